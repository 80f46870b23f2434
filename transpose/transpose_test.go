package transpose

import (
	"testing"

	"github.com/rcowham/otcore/commit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustForward(t *testing.T, a, b commit.Commit) commit.Commit {
	t.Helper()
	out, ok := ShiftForwards(a, b)
	require.True(t, ok, "expected shift_forwards to survive, got annihilation")
	return out
}

func requireAnnihilated(t *testing.T, a, b commit.Commit) {
	t.Helper()
	_, ok := ShiftForwards(a, b)
	assert.False(t, ok, "expected shift_forwards to annihilate")
}

// --- Property 1: file independence ---------------------------------------

func TestFileIndependenceForward(t *testing.T) {
	f1, f2 := commit.NewFileID(), commit.NewFileID()
	pairs := []struct {
		name string
		a, b commit.Commit
	}{
		{"Insert-Insert", commit.NewInsertText(f1, 5, "x"), commit.NewInsertText(f2, 0, "y")},
		{"Insert-Delete", commit.NewInsertText(f1, 5, "x"), commit.NewDeleteText(f2, 0, 3)},
		{"Delete-Insert", commit.NewDeleteText(f1, 5, 2), commit.NewInsertText(f2, 0, "y")},
		{"Delete-Delete", commit.NewDeleteText(f1, 5, 2), commit.NewDeleteText(f2, 0, 3)},
		{"Insert-AddFile", commit.NewInsertText(f1, 5, "x"), commit.NewAddFile(f2, "a", nil)},
		{"AddFile-AddFile", commit.NewAddFile(f1, "a", nil), commit.NewAddFile(f2, "b", nil)},
	}
	for _, p := range pairs {
		t.Run(p.name, func(t *testing.T) {
			out := mustForward(t, p.a, p.b)
			assert.True(t, p.a.Equal(out), "commit on a different file must pass through unchanged")
		})
	}
}

func TestFileIndependenceDeleteFileExceptionForward(t *testing.T) {
	f1, f2 := commit.NewFileID(), commit.NewFileID()
	ins := commit.NewInsertText(f1, 0, "x")
	requireAnnihilated(t, ins, commit.NewDeleteFile(f1, "a"))
	out := mustForward(t, ins, commit.NewDeleteFile(f2, "a"))
	assert.True(t, ins.Equal(out))
}

func TestFileIndependenceBackward(t *testing.T) {
	f1, f2 := commit.NewFileID(), commit.NewFileID()
	a := commit.NewInsertText(f1, 5, "x")
	b := commit.NewInsertText(f2, 0, "y")
	assert.True(t, a.Equal(ShiftBackwards(a, b)))
}

// --- Property 2: duplicate annihilation -----------------------------------

func TestDuplicateAnnihilation(t *testing.T) {
	f := commit.NewFileID()
	variants := []commit.Commit{
		commit.NewInsertText(f, 3, "hi"),
		commit.NewDeleteText(f, 3, 2),
		commit.NewAddFile(f, "a.txt", []byte("x")),
		commit.NewDeleteFile(f, "a.txt"),
	}
	for _, c := range variants {
		t.Run(c.Kind().String(), func(t *testing.T) {
			requireAnnihilated(t, c, c)
		})
	}
}

// --- Property 3: left-disjoint stability ----------------------------------

func TestLeftDisjointStability(t *testing.T) {
	f := commit.NewFileID()
	// a ends before b starts on both textual forward rules.
	aIns := commit.NewInsertText(f, 0, "ab") // max_location = 2
	b := commit.NewDeleteText(f, 5, 3)       // location = 5
	out := mustForward(t, aIns, b)
	assert.True(t, aIns.Equal(out))

	aDel := commit.NewDeleteText(f, 0, 2) // max_location = 2
	out2 := mustForward(t, aDel, b)
	assert.True(t, aDel.Equal(out2))
}

// --- Property 4: right-disjoint shift is the backward inverse -------------

func TestRightDisjointShiftIsInverseOfBackward(t *testing.T) {
	f := commit.NewFileID()
	a := commit.NewDeleteText(f, 10, 4) // right of b
	b := commit.NewDeleteText(f, 0, 3)  // b.max_location = 3 <= a.location = 10

	forward := mustForward(t, a, b)
	assert.Equal(t, int64(-3), forward.Location()-a.Location())

	back := ShiftBackwards(forward, b)
	assert.True(t, a.Equal(back), "backward must undo the forward shift in the disjoint regime")
}

// --- Property 5 is exercised in reconcile (identifier density requires the driver) ---

// --- Fold semantics: forward short-circuits, backward is newest-first ---

func TestShiftForwardsMultipleShortCircuits(t *testing.T) {
	f := commit.NewFileID()
	a := commit.NewInsertText(f, 0, "x")
	bs := []commit.Record{
		{ID: 0, Content: commit.NewDeleteFile(f, "a")},
		{ID: 1, Content: commit.NewInsertText(f, 0, "y")},
	}
	_, ok := ShiftForwardsMultiple(a, bs)
	assert.False(t, ok, "annihilation on the first element must short-circuit")
}

func TestShiftBackwardsMultipleIsNewestFirst(t *testing.T) {
	f := commit.NewFileID()
	a := commit.NewInsertText(f, 10, "z")
	bs := []commit.Record{
		{ID: 0, Content: commit.NewInsertText(f, 0, "aaaa")}, // len 4
		{ID: 1, Content: commit.NewInsertText(f, 0, "bb")},   // len 2
	}
	// Newest-first: undo bs[1] first (location 10 >= 0, shift -2 -> 8),
	// then undo bs[0] (8 >= 0, shift -4 -> 4).
	got := ShiftBackwardsMultiple(a, bs)
	assert.Equal(t, int64(4), got.Location())
}

// --- Scenario A: simple positional interleave -----------------------------

func TestScenarioASimplePositionalInterleave(t *testing.T) {
	f := commit.NewFileID()
	local := []commit.Record{
		{ID: 0, Content: commit.NewInsertText(f, 0, "Hello World")},
		{ID: 1, Content: commit.NewInsertText(f, 11, " This is a text.")},
	}
	r0 := commit.NewInsertText(f, 5, "Text at 5")
	r1 := commit.NewInsertText(f, 9, " Test with 9.")

	shifted0, ok := ShiftForwardsMultiple(r0, local)
	require.True(t, ok)
	assert.Equal(t, int64(32), shifted0.Location())

	shifted1, ok := ShiftForwardsMultiple(r1, local)
	require.True(t, ok)
	assert.Equal(t, int64(36), shifted1.Location())
}

// --- Scenario E: deletion fully past insertion -----------------------------

func TestScenarioEDeletionFullyPastInsertion(t *testing.T) {
	f := commit.NewFileID()
	ins := commit.NewInsertText(f, 0, "ab")
	del := commit.NewDeleteText(f, 5, 2)

	shifted := mustForward(t, del, ins)
	assert.Equal(t, int64(7), shifted.Location())
	assert.Equal(t, int64(2), shifted.Length())

	// The local insert sits strictly before the remote delete's region.
	out := mustForward(t, ins, del)
	assert.True(t, ins.Equal(out))
}

// --- Overlap policy: annihilate vs split ----------------------------------

func TestOverlapPolicyAnnihilateIsDefault(t *testing.T) {
	f := commit.NewFileID()
	del := commit.NewDeleteText(f, 0, 10)
	ins := commit.NewInsertText(f, 5, "xx") // splits the deletion
	requireAnnihilated(t, del, ins)

	overlapping := commit.NewDeleteText(f, 4, 10) // overlaps [0,10) at [4,14)
	requireAnnihilated(t, del, overlapping)
}

func TestOverlapPolicySplitInsertSplittingDeletion(t *testing.T) {
	alg := Algebra{Overlap: PolicySplit}
	f := commit.NewFileID()
	del := commit.NewDeleteText(f, 0, 10)
	ins := commit.NewInsertText(f, 4, "xx")

	out, ok := alg.ShiftForwards(del, ins)
	require.True(t, ok)
	assert.Equal(t, int64(0), out.Location())
	assert.Equal(t, int64(4), out.Length())
}

func TestOverlapPolicySplitOverlappingDeletes(t *testing.T) {
	alg := Algebra{Overlap: PolicySplit}
	f := commit.NewFileID()

	// a = [0,10), b = [4,14) -> a.location <= b.location -> truncate to [0,4)
	a := commit.NewDeleteText(f, 0, 10)
	b := commit.NewDeleteText(f, 4, 10)
	out, ok := alg.ShiftForwards(a, b)
	require.True(t, ok)
	assert.Equal(t, int64(0), out.Location())
	assert.Equal(t, int64(4), out.Length())

	// a = [4,14), b = [0,10) -> overlap [4,10), remainder [10,14), which
	// sits at [0,4) once b has been applied
	a2 := commit.NewDeleteText(f, 4, 10)
	b2 := commit.NewDeleteText(f, 0, 10)
	out2, ok := alg.ShiftForwards(a2, b2)
	require.True(t, ok)
	assert.Equal(t, int64(0), out2.Location())
	assert.Equal(t, int64(4), out2.Length())
}

func TestOverlapPolicyNeverChangesDisjointRegimes(t *testing.T) {
	f := commit.NewFileID()
	a := commit.NewDeleteText(f, 10, 4)
	b := commit.NewDeleteText(f, 0, 3)
	for _, alg := range []Algebra{{Overlap: PolicyAnnihilate}, {Overlap: PolicySplit}} {
		out, ok := alg.ShiftForwards(a, b)
		require.True(t, ok)
		assert.Equal(t, int64(7), out.Location())
	}
}
