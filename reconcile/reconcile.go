// Package reconcile implements insert_before, the reconciliation driver that
// turns a remote commit sequence and an unsynchronized local commit sequence
// into a document patch and a rewritten local version vector.
package reconcile

import (
	"runtime"
	"sync"

	"github.com/alitto/pond"
	"github.com/rcowham/otcore/commit"
	"github.com/rcowham/otcore/transpose"
)

// Option configures a single InsertBefore / InsertBeforeConcurrent call.
type Option func(*options)

type options struct {
	alg  transpose.Algebra
	pool *pond.WorkerPool
}

// WithAlgebra selects a non-default overlap policy for this call.
func WithAlgebra(alg transpose.Algebra) Option {
	return func(o *options) { o.alg = alg }
}

// WithPool supplies a caller-owned worker pool to InsertBeforeConcurrent.
// The pool is used but never stopped by this package; the caller remains
// responsible for its lifecycle.
func WithPool(pool *pond.WorkerPool) Option {
	return func(o *options) { o.pool = pool }
}

func buildOptions(opts []Option) options {
	o := options{alg: transpose.Default}
	for _, apply := range opts {
		apply(&o)
	}
	return o
}

// InsertBefore computes the document patch and the new local version vector
// for remote arriving while local is held unsynchronized. Remote commits
// conceptually precede local commits on equal position (insert-before-local);
// within each sequence original positional order is preserved.
func InsertBefore(remote, local []commit.Record, opts ...Option) (newVersionVector []commit.Record, documentPatch []commit.Commit) {
	o := buildOptions(opts)
	documentPatch = documentPatchSerial(o.alg, remote, local)
	newVersionVector = newVersionVectorFor(o.alg, remote, local)
	return newVersionVector, documentPatch
}

// InsertBeforeConcurrent computes the same result as InsertBefore but
// computes the document patch's per-remote-commit forward shifts in
// parallel, partitioned by FileID. Testable Property 1 (file independence)
// guarantees this is safe: commits scoped to different files never interact
// in shift_forwards, so shifting file-disjoint groups concurrently produces
// byte-identical output to the serial fold. The new version vector has a
// genuine left-to-right dependency through seen_local/shifted_prefix and is
// always computed serially.
func InsertBeforeConcurrent(remote, local []commit.Record, opts ...Option) (newVersionVector []commit.Record, documentPatch []commit.Commit) {
	o := buildOptions(opts)

	pool := o.pool
	if pool == nil {
		pool = pond.New(runtime.NumCPU(), 0, pond.MinWorkers(1))
		defer pool.StopAndWait()
	}

	documentPatch = documentPatchConcurrent(o.alg, pool, remote, local)
	newVersionVector = newVersionVectorFor(o.alg, remote, local)
	return newVersionVector, documentPatch
}

// documentPatchSerial computes, for each remote commit in order, its
// forward shift across the full local sequence, retaining only survivors.
func documentPatchSerial(alg transpose.Algebra, remote, local []commit.Record) []commit.Commit {
	patch := make([]commit.Commit, 0, len(remote))
	for _, r := range remote {
		if shifted, ok := alg.ShiftForwardsMultiple(r.Content, local); ok {
			patch = append(patch, shifted)
		}
	}
	return patch
}

// documentPatchConcurrent groups local by FileID and submits one pool job
// per remote commit, shifting it across the local commits of its own file;
// results are reassembled in original remote order.
func documentPatchConcurrent(alg transpose.Algebra, pool *pond.WorkerPool, remote, local []commit.Record) []commit.Commit {
	localByFile := partitionByFile(local)

	results := make([]commit.Commit, len(remote))
	survived := make([]bool, len(remote))

	var wg sync.WaitGroup
	wg.Add(len(remote))
	for i, r := range remote {
		i, r := i, r
		pool.Submit(func() {
			defer wg.Done()
			group := localByFile[r.Content.File()]
			if shifted, ok := alg.ShiftForwardsMultiple(r.Content, group); ok {
				results[i] = shifted
				survived[i] = true
			}
		})
	}
	wg.Wait()

	patch := make([]commit.Commit, 0, len(remote))
	for i, ok := range survived {
		if ok {
			patch = append(patch, results[i])
		}
	}
	return patch
}

func partitionByFile(records []commit.Record) map[commit.FileID][]commit.Record {
	byFile := make(map[commit.FileID][]commit.Record)
	for _, rec := range records {
		byFile[rec.Content.File()] = append(byFile[rec.Content.File()], rec)
	}
	return byFile
}

// newVersionVectorFor implements §4.3 step 2: rewrite each local commit to
// sit after the remote tail, assigning fresh dense identifiers.
func newVersionVectorFor(alg transpose.Algebra, remote, local []commit.Record) []commit.Record {
	remoteCount := uint32(len(remote))

	seenLocal := make([]commit.Record, 0, len(local))
	shiftedPrefix := make([]commit.Record, 0, len(local))
	var deleted uint32

	for _, l := range local {
		u := alg.ShiftBackwardsMultiple(l.Content, seenLocal)

		v, ok := alg.ShiftForwardsMultiple(u, remote)
		if !ok {
			deleted++
			seenLocal = append(seenLocal, l)
			continue
		}

		w, ok := alg.ShiftForwardsMultiple(v, shiftedPrefix)
		if !ok {
			// Increment deleted here too, so surviving identifiers stay
			// densely packed - required for a contiguous surviving id range.
			deleted++
			seenLocal = append(seenLocal, l)
			continue
		}

		seenLocal = append(seenLocal, l)
		shiftedPrefix = append(shiftedPrefix, commit.Record{
			ID:      l.ID + remoteCount - deleted,
			Content: w,
		})
	}

	return shiftedPrefix
}
