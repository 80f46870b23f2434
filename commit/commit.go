// Package commit defines the tagged-union operation model shared by the
// transpose algebra and the reconciliation driver: the four commit variants,
// their derived attributes, and the pure positional helpers used to rewrite
// them (with_location, with_length, shifted_by).
//
// Commits are immutable once constructed. Every helper returns a copy; there
// is no in-place mutation anywhere in this package.
package commit

import (
	"fmt"

	"github.com/google/uuid"
)

// FileID is an opaque 128-bit file identifier. Only equality is defined on
// it - callers must not rely on its byte layout or any ordering.
type FileID struct {
	id uuid.UUID
}

// NewFileID returns a freshly generated random FileID.
func NewFileID() FileID {
	return FileID{id: uuid.New()}
}

// FileIDFromBytes builds a FileID from 16 raw bytes, as produced by the wire
// encoding in the codec package. It panics if b is not exactly 16 bytes -
// malformed input is a caller bug per the data model invariants.
func FileIDFromBytes(b []byte) FileID {
	id, err := uuid.FromBytes(b)
	if err != nil {
		panic(fmt.Sprintf("commit: invalid FileID bytes: %v", err))
	}
	return FileID{id: id}
}

// Bytes returns the 16 raw bytes of the identifier.
func (f FileID) Bytes() []byte {
	b := f.id
	return b[:]
}

func (f FileID) String() string { return f.id.String() }

// Equal reports whether two FileIDs refer to the same file.
func (f FileID) Equal(other FileID) bool { return f.id == other.id }

// Kind tags which variant a Commit holds.
type Kind int

const (
	KindInsertText Kind = iota
	KindDeleteText
	KindAddFile
	KindDeleteFile
)

func (k Kind) String() string {
	switch k {
	case KindInsertText:
		return "InsertText"
	case KindDeleteText:
		return "DeleteText"
	case KindAddFile:
		return "AddFile"
	case KindDeleteFile:
		return "DeleteFile"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Commit is the tagged union of the four commit variants. Exactly one of
// the variant-specific field groups is meaningful, selected by Kind; callers
// should never construct a Commit by hand, only through the New* functions,
// which guarantee the field groups stay consistent with Kind.
type Commit struct {
	kind Kind

	file FileID

	// InsertText, DeleteText
	location int64

	// InsertText
	text string

	// DeleteText
	length int64

	// AddFile, DeleteFile
	name string

	// AddFile
	content    []byte
	hasContent bool
}

// NewInsertText builds an InsertText commit: insert text at location in file.
func NewInsertText(file FileID, location int64, text string) Commit {
	if location < 0 {
		panic("commit: negative location in InsertText")
	}
	return Commit{kind: KindInsertText, file: file, location: location, text: text}
}

// NewDeleteText builds a DeleteText commit: delete length chars starting at
// location in file.
func NewDeleteText(file FileID, location, length int64) Commit {
	if location < 0 {
		panic("commit: negative location in DeleteText")
	}
	if length < 0 {
		panic("commit: negative length in DeleteText")
	}
	return Commit{kind: KindDeleteText, file: file, location: location, length: length}
}

// NewAddFile builds an AddFile commit. content may be nil to represent the
// absence of initial bytes.
func NewAddFile(file FileID, name string, content []byte) Commit {
	c := Commit{kind: KindAddFile, file: file, name: name}
	if content != nil {
		c.content = content
		c.hasContent = true
	}
	return c
}

// NewDeleteFile builds a DeleteFile commit.
func NewDeleteFile(file FileID, name string) Commit {
	return Commit{kind: KindDeleteFile, file: file, name: name}
}

// Kind returns the commit's variant tag.
func (c Commit) Kind() Kind { return c.kind }

// File returns the file this commit is scoped to.
func (c Commit) File() FileID { return c.file }

// Location returns the offset field, valid for InsertText and DeleteText.
func (c Commit) Location() int64 { return c.location }

// Text returns the inserted text, valid for InsertText.
func (c Commit) Text() string { return c.text }

// Length returns the delete length, valid for DeleteText.
func (c Commit) Length() int64 { return c.length }

// Name returns the file name, valid for AddFile and DeleteFile.
func (c Commit) Name() string { return c.name }

// Content returns the initial file bytes and whether any were set, valid
// for AddFile.
func (c Commit) Content() ([]byte, bool) { return c.content, c.hasContent }

// MaxLocation returns location+byte_length(text) for InsertText and
// location+length for DeleteText. It panics for AddFile and DeleteFile,
// which have no positional extent.
func (c Commit) MaxLocation() int64 {
	switch c.kind {
	case KindInsertText:
		return c.location + int64(len(c.text))
	case KindDeleteText:
		return c.location + c.length
	default:
		panic(fmt.Sprintf("commit: MaxLocation undefined for %s", c.kind))
	}
}

// WithLocation returns a copy of c with location replaced. Valid for
// InsertText and DeleteText only.
func (c Commit) WithLocation(location int64) Commit {
	switch c.kind {
	case KindInsertText, KindDeleteText:
		out := c
		out.location = location
		return out
	default:
		panic(fmt.Sprintf("commit: WithLocation undefined for %s", c.kind))
	}
}

// WithLength returns a copy of c with length replaced. Valid for DeleteText
// only.
func (c Commit) WithLength(length int64) Commit {
	if c.kind != KindDeleteText {
		panic(fmt.Sprintf("commit: WithLength undefined for %s", c.kind))
	}
	out := c
	out.length = length
	return out
}

// ShiftedBy returns a copy of c with location advanced by delta. Valid for
// InsertText and DeleteText only. Callers are responsible for not producing
// a negative location.
func (c Commit) ShiftedBy(delta int64) Commit {
	return c.WithLocation(c.location + delta)
}

// Equal reports structural equality over all fields.
func (c Commit) Equal(other Commit) bool {
	if c.kind != other.kind || !c.file.Equal(other.file) {
		return false
	}
	switch c.kind {
	case KindInsertText:
		return c.location == other.location && c.text == other.text
	case KindDeleteText:
		return c.location == other.location && c.length == other.length
	case KindAddFile:
		if c.name != other.name || c.hasContent != other.hasContent {
			return false
		}
		if !c.hasContent {
			return true
		}
		return string(c.content) == string(other.content)
	case KindDeleteFile:
		return c.name == other.name
	default:
		return false
	}
}

// Record pairs a Commit with a dense, zero-based, unsigned identifier
// assigned by the reconciliation driver in positional order.
type Record struct {
	ID      uint32
	Content Commit
}
