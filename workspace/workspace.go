// Package workspace tracks, per git branch, which paths exist and which
// commit.FileID each path is currently bound to. It lists the files under a
// directory so callers can expand directory deletes/renames/copies into
// per-file git actions, treats a delete of a path that is not live as a
// no-op, and assigns stable FileIDs to paths so that a file's AddFile, InsertText/DeleteText
// and DeleteFile commits all reference the same commit.FileID as it moves
// through a git history.
package workspace

import (
	"strings"

	"github.com/rcowham/otcore/commit"
)

type node struct {
	name     string
	path     string
	isFile   bool
	file     commit.FileID
	children []*node
}

// Tree records the set of live files on one git branch.
type Tree struct {
	root *node
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{root: &node{}}
}

// Clone returns a deep copy of t, used when a new branch is created and
// starts from its parent's current file set.
func (t *Tree) Clone() *Tree {
	return &Tree{root: cloneNode(t.root)}
}

func cloneNode(n *node) *node {
	cp := &node{name: n.name, path: n.path, isFile: n.isFile, file: n.file}
	for _, c := range n.children {
		cp.children = append(cp.children, cloneNode(c))
	}
	return cp
}

// AddFile registers path as a live file, assigning it a fresh FileID if
// path is not currently live, or reusing the existing FileID if the path
// is already live (a re-add after an edit).
func (t *Tree) AddFile(path string) commit.FileID {
	if id, ok := t.Lookup(path); ok {
		return id
	}
	id := commit.NewFileID()
	t.root.addSubFile(path, path, id)
	return id
}

// Bind registers path as a live file bound to an explicit FileID. otreplay
// does not use this to carry a FileID across a rename or copy - it treats
// the destination of a move as a fresh file under the OT model, binding it
// a new FileID - but Bind is available for callers whose model of identity
// should survive a path change.
func (t *Tree) Bind(path string, id commit.FileID) {
	t.root.deleteSubFile(path, path)
	t.root.addSubFile(path, path, id)
}

// DeleteFile removes path from the tree. It is a no-op if path is not
// currently live, tolerating deletes against files already renamed or
// deleted away upstream.
func (t *Tree) DeleteFile(path string) {
	t.root.deleteSubFile(path, path)
}

// Lookup returns the FileID currently bound to path, if any.
func (t *Tree) Lookup(path string) (commit.FileID, bool) {
	parts := strings.Split(path, "/")
	n := t.root
	for _, p := range parts {
		var next *node
		for _, c := range n.children {
			if c.name == p {
				next = c
				break
			}
		}
		if next == nil {
			return commit.FileID{}, false
		}
		n = next
	}
	if !n.isFile {
		return commit.FileID{}, false
	}
	return n.file, true
}

// Files returns every live file path under dirName ("" for the whole
// tree), used to turn a directory delete/rename/copy into one operation
// per contained file.
func (t *Tree) Files(dirName string) []string {
	if dirName == "" {
		return t.root.childFiles()
	}
	parts := strings.Split(dirName, "/")
	n := t.root
	for _, p := range parts {
		var next *node
		for _, c := range n.children {
			if c.name == p {
				next = c
				break
			}
		}
		if next == nil {
			return nil
		}
		n = next
	}
	if n.isFile {
		return []string{n.path}
	}
	return n.childFiles()
}

func (n *node) childFiles() []string {
	var files []string
	for _, c := range n.children {
		if c.isFile {
			files = append(files, c.path)
		} else {
			files = append(files, c.childFiles()...)
		}
	}
	return files
}

func (n *node) addSubFile(fullPath, subPath string, id commit.FileID) {
	parts := strings.SplitN(subPath, "/", 2)
	if len(parts) == 1 {
		for _, c := range n.children {
			if c.name == parts[0] {
				c.isFile = true
				c.path = fullPath
				c.file = id
				return
			}
		}
		n.children = append(n.children, &node{name: parts[0], isFile: true, path: fullPath, file: id})
		return
	}
	for _, c := range n.children {
		if c.name == parts[0] {
			c.addSubFile(fullPath, parts[1], id)
			return
		}
	}
	child := &node{name: parts[0]}
	n.children = append(n.children, child)
	child.addSubFile(fullPath, parts[1], id)
}

func (n *node) deleteSubFile(fullPath, subPath string) {
	parts := strings.SplitN(subPath, "/", 2)
	if len(parts) == 1 {
		for i, c := range n.children {
			if c.name == parts[0] {
				n.children[i] = n.children[len(n.children)-1]
				n.children = n.children[:len(n.children)-1]
				return
			}
		}
		return
	}
	for _, c := range n.children {
		if c.name == parts[0] {
			c.deleteSubFile(fullPath, parts[1])
			return
		}
	}
	_ = fullPath
}
