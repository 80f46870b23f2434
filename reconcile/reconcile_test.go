package reconcile

import (
	"testing"

	"github.com/alitto/pond"
	"github.com/rcowham/otcore/commit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func records(cs ...commit.Commit) []commit.Record {
	out := make([]commit.Record, len(cs))
	for i, c := range cs {
		out[i] = commit.Record{ID: uint32(i), Content: c}
	}
	return out
}

// --- Scenario A - simple positional interleave ---------------------------

func TestScenarioAFull(t *testing.T) {
	f := commit.NewFileID()
	local := records(
		commit.NewInsertText(f, 0, "Hello World"),
		commit.NewInsertText(f, 11, " This is a text."),
	)
	remote := records(
		commit.NewInsertText(f, 5, "Text at 5"),
		commit.NewInsertText(f, 9, " Test with 9."),
	)

	nvv, patch := InsertBefore(remote, local)

	require.Len(t, patch, 2)
	assert.Equal(t, int64(32), patch[0].Location())
	assert.Equal(t, int64(36), patch[1].Location())

	require.Len(t, nvv, 2)
	assert.Equal(t, uint32(2), nvv[0].ID)
	assert.Equal(t, uint32(3), nvv[1].ID)
	// l1's three sub-steps: shift_backwards over [l0] first undoes l0's own
	// insert (location 11 -> 0, since l0 is a zero-length-prior insert of
	// "Hello World"), landing before both remote commits' locations (5, 9)
	// so shift_forwards over remote leaves it at 0; shift_forwards over the
	// already-shifted l0 (itself still at location 0) then ties on location
	// and shifts by len("Hello World")=11.
	assert.Equal(t, int64(0), nvv[0].Content.Location())
	assert.Equal(t, int64(11), nvv[1].Content.Location())
}

// --- Scenario B - duplicate suppression -----------------------------------

func TestScenarioBDuplicateSuppression(t *testing.T) {
	f := commit.NewFileID()
	local := records(commit.NewInsertText(f, 0, "x"))
	remote := records(commit.NewInsertText(f, 0, "x"))

	nvv, patch := InsertBefore(remote, local)

	// The Insert-Insert "identical commit" rule is symmetric: remote's
	// insert is structurally equal to local's, so shift_forwards(remote,
	// local) also annihilates, and the patch is empty - the document
	// already carries the edit via local's own copy. An empty patch is the
	// only outcome that avoids the converged document seeing "x" twice.
	assert.Empty(t, patch)
	assert.Empty(t, nvv)
}

// --- Scenario C - file deletion erases edits ------------------------------

func TestScenarioCFileDeletionErasesEdits(t *testing.T) {
	f := commit.NewFileID()
	local := records(commit.NewInsertText(f, 0, "abc"))
	remote := records(commit.NewDeleteFile(f, "name"))

	nvv, patch := InsertBefore(remote, local)

	require.Len(t, patch, 1)
	assert.Equal(t, commit.KindDeleteFile, patch[0].Kind())
	assert.Empty(t, nvv)
}

// --- Scenario D - disjoint files untouched --------------------------------

func TestScenarioDDisjointFilesUntouched(t *testing.T) {
	f1, f2 := commit.NewFileID(), commit.NewFileID()
	local := records(commit.NewInsertText(f1, 0, "abc"))
	remote := records(commit.NewInsertText(f2, 0, "xyz"))

	nvv, patch := InsertBefore(remote, local)

	require.Len(t, patch, 1)
	assert.True(t, remote[0].Content.Equal(patch[0]))

	require.Len(t, nvv, 1)
	assert.Equal(t, uint32(1), nvv[0].ID) // shifted by |remote| = 1
	assert.True(t, local[0].Content.Equal(nvv[0].Content))
}

// --- Scenario E - deletion fully past insertion ---------------------------

func TestScenarioEDeletionFullyPastInsertion(t *testing.T) {
	f := commit.NewFileID()
	local := records(commit.NewInsertText(f, 0, "ab"))
	remote := records(commit.NewDeleteText(f, 5, 2))

	nvv, patch := InsertBefore(remote, local)

	require.Len(t, patch, 1)
	assert.Equal(t, commit.KindDeleteText, patch[0].Kind())
	assert.Equal(t, int64(7), patch[0].Location())
	assert.Equal(t, int64(2), patch[0].Length())

	require.Len(t, nvv, 1)
	assert.Equal(t, uint32(1), nvv[0].ID)
	assert.Equal(t, int64(0), nvv[0].Content.Location())
}

// --- Property 5: identifier density ----------------------------------------

func TestIdentifierDensity(t *testing.T) {
	f := commit.NewFileID()
	remote := records(commit.NewInsertText(f, 0, "R"))
	local := records(
		commit.NewInsertText(f, 0, "R"), // duplicate of remote -> annihilated at step 2b
		commit.NewInsertText(f, 1, "a"),
		commit.NewInsertText(f, 2, "b"),
	)

	nvv, _ := InsertBefore(remote, local)

	require.Len(t, nvv, 2)
	ids := []uint32{nvv[0].ID, nvv[1].ID}
	assert.Equal(t, []uint32{uint32(len(remote)), uint32(len(remote)) + 1}, ids,
		"surviving identifiers must form a contiguous range starting at len(remote)")
}

// --- Property 6: non-expansion ---------------------------------------------

func TestNonExpansion(t *testing.T) {
	f := commit.NewFileID()
	remote := records(
		commit.NewInsertText(f, 0, "a"),
		commit.NewInsertText(f, 1, "b"),
		commit.NewDeleteText(f, 0, 1),
	)
	local := records(
		commit.NewInsertText(f, 0, "x"),
		commit.NewInsertText(f, 1, "y"),
	)
	nvv, patch := InsertBefore(remote, local)
	assert.LessOrEqual(t, len(patch), len(remote))
	assert.LessOrEqual(t, len(nvv), len(local))
}

// --- Property 7: file-disjoint commutativity --------------------------------

func TestFileDisjointCommutativity(t *testing.T) {
	f1, f2, f3 := commit.NewFileID(), commit.NewFileID(), commit.NewFileID()
	local := records(
		commit.NewInsertText(f1, 0, "a"),
		commit.NewInsertText(f2, 0, "b"),
	)
	remote := records(commit.NewInsertText(f3, 0, "c"))

	nvv, patch := InsertBefore(remote, local)

	require.Len(t, patch, 1)
	assert.True(t, remote[0].Content.Equal(patch[0]))

	require.Len(t, nvv, len(local))
	for i := range local {
		assert.True(t, local[i].Content.Equal(nvv[i].Content))
		assert.Equal(t, local[i].ID+uint32(len(remote)), nvv[i].ID)
	}
}

// --- Concurrent driver parity ------------------------------------------------

func TestInsertBeforeConcurrentMatchesSerial(t *testing.T) {
	fa, fb := commit.NewFileID(), commit.NewFileID()
	remote := records(
		commit.NewInsertText(fa, 5, "Text at 5"),
		commit.NewInsertText(fb, 2, "Y"),
		commit.NewDeleteFile(fa, "z"),
	)
	local := records(
		commit.NewInsertText(fa, 0, "Hello World"),
		commit.NewInsertText(fb, 0, "abc"),
	)

	wantNVV, wantPatch := InsertBefore(remote, local)
	gotNVV, gotPatch := InsertBeforeConcurrent(remote, local)

	require.Equal(t, len(wantPatch), len(gotPatch))
	for i := range wantPatch {
		assert.True(t, wantPatch[i].Equal(gotPatch[i]), "patch[%d] mismatch", i)
	}
	require.Equal(t, len(wantNVV), len(gotNVV))
	for i := range wantNVV {
		assert.Equal(t, wantNVV[i].ID, gotNVV[i].ID)
		assert.True(t, wantNVV[i].Content.Equal(gotNVV[i].Content))
	}
}

func TestInsertBeforeConcurrentWithCallerPool(t *testing.T) {
	pool := pond.New(2, 0, pond.MinWorkers(1))
	defer pool.StopAndWait()

	f := commit.NewFileID()
	remote := records(commit.NewInsertText(f, 0, "r"))
	local := records(commit.NewInsertText(f, 1, "l"))

	nvv, patch := InsertBeforeConcurrent(remote, local, WithPool(pool))
	require.Len(t, patch, 1)
	require.Len(t, nvv, 1)
}

// --- Empty inputs -------------------------------------------------------

func TestEmptyInputs(t *testing.T) {
	nvv, patch := InsertBefore(nil, nil)
	assert.Empty(t, nvv)
	assert.Empty(t, patch)
}
