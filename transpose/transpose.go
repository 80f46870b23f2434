// Package transpose implements the shift algebra: shift_forwards and
// shift_backwards over pairs of commits, and their list-folding extensions.
// shift_forwards rewrites a commit as if some other commit had already been
// applied before it; shift_backwards is its inverse, rewriting a commit as
// if that other commit had not yet happened. Every rule is a dense,
// exhaustive switch over the two commits' kinds, mirroring how closely a
// small tagged union lends itself to pattern matching over an interface
// with one method per case.
package transpose

import "github.com/rcowham/otcore/commit"

// OverlapPolicy selects how shift_forwards resolves the two ambiguous
// overlap regimes the source left unspecified: an insertion splitting a
// deletion region, and two overlapping deletions.
type OverlapPolicy int

const (
	// PolicyAnnihilate returns absence (⊥) in both ambiguous overlap
	// regimes. This is the literal behavior of the rule tables and is the
	// default zero value.
	PolicyAnnihilate OverlapPolicy = iota
	// PolicySplit clamps the overlapping remainder instead of annihilating:
	// an insertion inside a deletion only cancels the overlapping part, and
	// two overlapping deletions leave the non-overlapping remainder.
	PolicySplit
)

// Algebra carries the overlap policy for shift_forwards. The zero value
// (PolicyAnnihilate) is ready to use; there is no other state, so an
// Algebra value may be shared freely across goroutines.
type Algebra struct {
	Overlap OverlapPolicy
}

// Default is the algebra with the literal rule tables (PolicyAnnihilate).
var Default = Algebra{Overlap: PolicyAnnihilate}

// ShiftForwards rewrites a assuming b has already been applied before it.
// The second return value is false when a is annihilated by b.
func ShiftForwards(a, b commit.Commit) (commit.Commit, bool) {
	return Default.ShiftForwards(a, b)
}

// ShiftBackwards rewrites a assuming b is being undone from the history
// preceding it. Always total.
func ShiftBackwards(a, b commit.Commit) commit.Commit {
	return Default.ShiftBackwards(a, b)
}

// ShiftForwardsMultiple folds ShiftForwards over bs left to right,
// short-circuiting to (_, false) the moment any step annihilates.
func ShiftForwardsMultiple(a commit.Commit, bs []commit.Record) (commit.Commit, bool) {
	return Default.ShiftForwardsMultiple(a, bs)
}

// ShiftBackwardsMultiple folds ShiftBackwards over bs newest-first (i.e.
// in reverse). Never annihilates.
func ShiftBackwardsMultiple(a commit.Commit, bs []commit.Record) commit.Commit {
	return Default.ShiftBackwardsMultiple(a, bs)
}

// ShiftForwardsMultiple is the Algebra-scoped counterpart of the package
// function of the same name, applying this Algebra's overlap policy.
func (alg Algebra) ShiftForwardsMultiple(a commit.Commit, bs []commit.Record) (commit.Commit, bool) {
	current := a
	for _, b := range bs {
		shifted, ok := alg.ShiftForwards(current, b.Content)
		if !ok {
			return commit.Commit{}, false
		}
		current = shifted
	}
	return current, true
}

// ShiftBackwardsMultiple is the Algebra-scoped counterpart, folding newest
// b first (reverse order).
func (alg Algebra) ShiftBackwardsMultiple(a commit.Commit, bs []commit.Record) commit.Commit {
	current := a
	for i := len(bs) - 1; i >= 0; i-- {
		current = alg.ShiftBackwards(current, bs[i].Content)
	}
	return current
}

// ShiftForwards implements §4.2.1's forward rule table, dispatching on the
// (Kind(a), Kind(b)) pair.
func (alg Algebra) ShiftForwards(a, b commit.Commit) (commit.Commit, bool) {
	switch a.Kind() {
	case commit.KindInsertText:
		switch b.Kind() {
		case commit.KindInsertText:
			return alg.insertForwardInsert(a, b)
		case commit.KindDeleteText:
			return alg.insertForwardDelete(a, b)
		case commit.KindAddFile:
			return a, true
		case commit.KindDeleteFile:
			return annihilateIfSameFile(a, b)
		}
	case commit.KindDeleteText:
		switch b.Kind() {
		case commit.KindInsertText:
			return alg.deleteForwardInsert(a, b)
		case commit.KindDeleteText:
			return alg.deleteForwardDelete(a, b)
		case commit.KindAddFile:
			return a, true
		case commit.KindDeleteFile:
			return annihilateIfSameFile(a, b)
		}
	case commit.KindAddFile:
		switch b.Kind() {
		case commit.KindAddFile:
			return annihilateIfIdentical(a, b)
		default:
			return a, true
		}
	case commit.KindDeleteFile:
		switch b.Kind() {
		case commit.KindDeleteFile:
			return annihilateIfIdentical(a, b)
		default:
			return a, true
		}
	}
	panic("transpose: unreachable commit kind pair")
}

// ShiftBackwards implements §4.2.2's backward rule table. Always total.
func (alg Algebra) ShiftBackwards(a, b commit.Commit) commit.Commit {
	switch a.Kind() {
	case commit.KindInsertText:
		switch b.Kind() {
		case commit.KindInsertText:
			return alg.insertBackwardInsert(a, b)
		case commit.KindDeleteText:
			return alg.insertBackwardDelete(a, b)
		default:
			return a
		}
	case commit.KindDeleteText:
		switch b.Kind() {
		case commit.KindInsertText:
			return alg.deleteBackwardInsert(a, b)
		case commit.KindDeleteText:
			return alg.deleteBackwardDelete(a, b)
		default:
			return a
		}
	default:
		// AddFile and DeleteFile are unaffected by anything, backward.
		return a
	}
}

func sameFile(a, b commit.Commit) bool { return a.File().Equal(b.File()) }

func annihilateIfSameFile(a, b commit.Commit) (commit.Commit, bool) {
	if sameFile(a, b) {
		return commit.Commit{}, false
	}
	return a, true
}

func annihilateIfIdentical(a, b commit.Commit) (commit.Commit, bool) {
	if a.Equal(b) {
		return commit.Commit{}, false
	}
	return a, true
}

// --- Insert ▸ Insert -------------------------------------------------

func (alg Algebra) insertForwardInsert(a, b commit.Commit) (commit.Commit, bool) {
	if !sameFile(a, b) {
		return a, true
	}
	if a.Equal(b) {
		return commit.Commit{}, false
	}
	if a.Location() < b.Location() {
		return a, true
	}
	return a.ShiftedBy(int64(len(b.Text()))), true
}

// --- Insert ▸ DeleteText ----------------------------------------------

func (alg Algebra) insertForwardDelete(a, b commit.Commit) (commit.Commit, bool) {
	if !sameFile(a, b) {
		return a, true
	}
	if a.Location() < b.Location() {
		return a, true
	}
	if b.MaxLocation() <= a.Location() {
		return a.ShiftedBy(-b.Length()), true
	}
	return a.WithLocation(b.Location()), true
}

// --- DeleteText ▸ InsertText --------------------------------------------

func (alg Algebra) deleteForwardInsert(a, b commit.Commit) (commit.Commit, bool) {
	if !sameFile(a, b) {
		return a, true
	}
	if a.Location() >= b.Location() {
		return a.ShiftedBy(int64(len(b.Text()))), true
	}
	if a.MaxLocation() <= b.Location() {
		return a, true
	}
	// The insertion splits the deletion region.
	if alg.Overlap == PolicySplit {
		// Keep deleting the portion of a that lies before the insertion
		// point; the portion after it is pushed forward by the insertion
		// and is left for a future commit to address.
		return a.WithLength(b.Location() - a.Location()), true
	}
	return commit.Commit{}, false
}

// --- DeleteText ▸ DeleteText ---------------------------------------------

func (alg Algebra) deleteForwardDelete(a, b commit.Commit) (commit.Commit, bool) {
	if !sameFile(a, b) {
		return a, true
	}
	if a.Equal(b) {
		return commit.Commit{}, false
	}
	if a.MaxLocation() <= b.Location() {
		return a, true
	}
	if b.MaxLocation() <= a.Location() {
		return a.ShiftedBy(-b.Length()), true
	}
	if alg.Overlap != PolicySplit {
		return commit.Commit{}, false
	}
	// Keep the parts of a that lie outside b. Once b is applied they are
	// adjacent, starting at the lower of the two locations.
	start, end := a.Location(), a.MaxLocation()
	if b.Location() > start {
		start = b.Location()
	}
	if b.MaxLocation() < end {
		end = b.MaxLocation()
	}
	loc := a.Location()
	if b.Location() < loc {
		loc = b.Location()
	}
	return a.WithLocation(loc).WithLength(a.Length() - (end - start)), true
}

// --- Insert ◂ Insert -----------------------------------------------------

func (alg Algebra) insertBackwardInsert(a, b commit.Commit) commit.Commit {
	if !sameFile(a, b) || a.Equal(b) || a.Location() < b.Location() {
		return a
	}
	return a.ShiftedBy(-int64(len(b.Text())))
}

// --- Insert ◂ DeleteText ---------------------------------------------------

func (alg Algebra) insertBackwardDelete(a, b commit.Commit) commit.Commit {
	if !sameFile(a, b) || a.Location() < b.Location() {
		return a
	}
	if b.MaxLocation() <= a.Location()-b.Length() {
		return a.ShiftedBy(b.Length())
	}
	return a.WithLocation(b.Location())
}

// --- DeleteText ◂ InsertText -----------------------------------------------

func (alg Algebra) deleteBackwardInsert(a, b commit.Commit) commit.Commit {
	if !sameFile(a, b) {
		return a
	}
	if a.Location()-int64(len(b.Text())) >= b.Location() {
		return a.ShiftedBy(-int64(len(b.Text())))
	}
	return a
}

// --- DeleteText ◂ DeleteText ------------------------------------------------

func (alg Algebra) deleteBackwardDelete(a, b commit.Commit) commit.Commit {
	if !sameFile(a, b) {
		return a
	}
	if b.MaxLocation() <= a.Location()-b.Length() {
		return a.ShiftedBy(b.Length())
	}
	return a
}
