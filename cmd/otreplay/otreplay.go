// Command otreplay converts a git fast-export stream into a pair of
// otcore commit streams - one "local" and one "remote", chosen per branch
// by config.BranchRole - suitable for feeding to reconcile.InsertBefore.
// It reads one libgitfastimport command at a time, accumulates per-commit
// file actions, then flushes them once CmdCommitEnd arrives.
//
// Git's fast-export format has no notion of a versioned text edit - a
// FileModify simply supplies the new full content of a path. otreplay's
// simplifying model turns that into commit operations: the first time a
// path is seen it becomes an AddFile; every later modification becomes a
// DeleteText covering the old content followed by an InsertText of the new
// content at offset 0; a FileDelete becomes a DeleteFile. Renames and
// copies are expanded, directory included, using workspace.Tree to turn a
// directory delete/rename/copy into one operation per contained file.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	libfastimport "github.com/rcowham/go-libgitfastimport"
	"github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/rcowham/otcore/codec"
	"github.com/rcowham/otcore/commit"
	"github.com/rcowham/otcore/config"
	"github.com/rcowham/otcore/internal/version"
	"github.com/rcowham/otcore/sniff"
	"github.com/rcowham/otcore/workspace"
)

type pendingFile struct {
	path    string
	content []byte
	deleted bool
}

type pendingCommit struct {
	branch string
	from   string
	files  []pendingFile
}

// Replayer holds the state needed to turn a fast-export stream into two
// otcore commit streams.
type Replayer struct {
	logger *logrus.Logger
	cfg    *config.Config

	blobs map[int][]byte

	trees   map[string]*workspace.Tree
	content map[commit.FileID][]byte

	localWriter  *codec.Writer
	remoteWriter *codec.Writer
	localID      uint32
	remoteID     uint32

	branchOf map[int]string // commit mark -> branch, for resolving "from"
}

// NewReplayer builds a Replayer writing local records to local and remote
// records to remote.
func NewReplayer(logger *logrus.Logger, cfg *config.Config, local, remote io.Writer) *Replayer {
	return &Replayer{
		logger:       logger,
		cfg:          cfg,
		blobs:        make(map[int][]byte),
		trees:        make(map[string]*workspace.Tree),
		content:      make(map[commit.FileID][]byte),
		localWriter:  codec.NewWriter(local),
		remoteWriter: codec.NewWriter(remote),
		branchOf:     make(map[int]string),
	}
}

// Run reads a fast-export stream from r until EOF, writing commit records
// as it goes.
func (rp *Replayer) Run(r io.Reader) error {
	f := libfastimport.NewFrontend(bufio.NewReader(r), nil, nil)
	var cur *pendingCommit

	for {
		cmd, err := f.ReadCmd()
		if err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("otreplay: read command: %w", err)
		}
		switch c := cmd.(type) {
		case libfastimport.CmdBlob:
			rp.blobs[c.Mark] = []byte(c.Data)

		case libfastimport.CmdCommit:
			branch := strings.Replace(c.Ref, "refs/heads/", "", 1)
			cur = &pendingCommit{branch: branch, from: c.From}
			if mark, err := markOf(c.From); err == nil {
				if parentBranch, ok := rp.branchOf[mark]; ok {
					rp.ensureTree(branch, parentBranch)
				}
			}
			rp.branchOf[c.Mark] = branch
			rp.ensureTree(branch, "")

		case libfastimport.CmdCommitEnd:
			if cur != nil {
				if err := rp.flush(cur); err != nil {
					return err
				}
			}
			cur = nil

		case libfastimport.FileModify:
			if cur == nil {
				continue
			}
			oid, err := dataRefMark(c.DataRef)
			if err != nil {
				rp.logger.Errorf("otreplay: bad dataref %q: %v", c.DataRef, err)
				continue
			}
			data, ok := rp.blobs[oid]
			if !ok {
				rp.logger.Errorf("otreplay: missing blob for mark %d", oid)
				continue
			}
			cur.files = append(cur.files, pendingFile{path: string(c.Path), content: data})

		case libfastimport.FileDelete:
			if cur == nil {
				continue
			}
			path := string(c.Path)
			if tree := rp.trees[cur.branch]; tree != nil {
				if _, isFile := tree.Lookup(path); !isFile {
					if files := tree.Files(path); len(files) > 0 {
						for _, p := range files {
							cur.files = append(cur.files, pendingFile{path: p, deleted: true})
						}
						continue
					}
				}
			}
			cur.files = append(cur.files, pendingFile{path: path, deleted: true})

		case libfastimport.FileRename:
			if cur == nil {
				continue
			}
			rp.expandMove(cur, string(c.Src), string(c.Dst), true)

		case libfastimport.FileCopy:
			if cur == nil {
				continue
			}
			rp.expandMove(cur, string(c.Src), string(c.Dst), false)
		}
	}
	if cur != nil {
		return rp.flush(cur)
	}
	return nil
}

func (rp *Replayer) ensureTree(branch, parentBranch string) {
	if _, ok := rp.trees[branch]; ok {
		return
	}
	if parent, ok := rp.trees[parentBranch]; ok {
		rp.trees[branch] = parent.Clone()
		return
	}
	rp.trees[branch] = workspace.New()
}

// expandMove expands a directory rename/copy into one rename/copy per file
// the tree currently has under that directory.
func (rp *Replayer) expandMove(cur *pendingCommit, src, dst string, isRename bool) {
	tree := rp.trees[cur.branch]
	if tree == nil {
		return
	}
	if _, isFile := tree.Lookup(src); isFile {
		rp.moveOne(cur, tree, src, dst, isRename)
		return
	}
	for _, path := range tree.Files(src) {
		if !strings.HasPrefix(path, src) {
			continue
		}
		destPath := dst + path[len(src):]
		rp.moveOne(cur, tree, path, destPath, isRename)
	}
}

func (rp *Replayer) moveOne(cur *pendingCommit, tree *workspace.Tree, src, dst string, isRename bool) {
	id, ok := tree.Lookup(src)
	if !ok {
		return
	}
	data := rp.content[id]
	if isRename {
		cur.files = append(cur.files, pendingFile{path: src, deleted: true})
	}
	// A rename/copy becomes an unrelated AddFile in the OT model; flush
	// applies both changes to the tree.
	cur.files = append(cur.files, pendingFile{path: dst, content: data})
}

// flush turns a pending commit's file actions into commit.Commit values
// and writes them to the stream selected by the branch's configured role.
func (rp *Replayer) flush(cur *pendingCommit) error {
	tree, ok := rp.trees[cur.branch]
	if !ok {
		tree = workspace.New()
		rp.trees[cur.branch] = tree
	}

	var recs []commit.Commit
	for _, pf := range cur.files {
		if pf.deleted {
			id, ok := tree.Lookup(pf.path)
			if !ok {
				continue
			}
			tree.DeleteFile(pf.path)
			delete(rp.content, id)
			recs = append(recs, commit.NewDeleteFile(id, pf.path))
			continue
		}
		if id, existed := tree.Lookup(pf.path); existed {
			old := rp.content[id]
			if len(old) > 0 {
				recs = append(recs, commit.NewDeleteText(id, 0, int64(len(old))))
			}
			recs = append(recs, commit.NewInsertText(id, 0, string(pf.content)))
			rp.content[id] = pf.content
			continue
		}
		id := tree.AddFile(pf.path)
		binary := sniff.Classify(pf.path, pf.content, rp.cfg.ForcedBinary)
		var stored []byte
		if !binary {
			stored = pf.content
		}
		recs = append(recs, commit.NewAddFile(id, pf.path, stored))
		rp.content[id] = pf.content
	}

	role := rp.cfg.RoleForBranch(cur.branch)
	for _, c := range recs {
		switch role {
		case "remote":
			if err := rp.remoteWriter.WriteRecord(commit.Record{ID: rp.remoteID, Content: c}); err != nil {
				return err
			}
			rp.remoteID++
		default: // "local" and unclassified branches default to the local stream
			if err := rp.localWriter.WriteRecord(commit.Record{ID: rp.localID, Content: c}); err != nil {
				return err
			}
			rp.localID++
		}
	}
	return nil
}

func dataRefMark(dataref string) (int, error) {
	if !strings.HasPrefix(dataref, ":") {
		return 0, fmt.Errorf("invalid dataref %q", dataref)
	}
	return strconv.Atoi(dataref[1:])
}

func markOf(from string) (int, error) {
	if from == "" {
		return 0, fmt.Errorf("no parent")
	}
	return dataRefMark(from)
}

func main() {
	var (
		configFile   = kingpin.Flag("config", "Config file for otreplay (optional).").Short('c').String()
		gitexport    = kingpin.Flag("gitexport", "Git fast-export file to process.").Required().String()
		localBranch  = kingpin.Flag("local-branch", "Git branch that plays the local role (overrides config branch_roles).").String()
		remoteBranch = kingpin.Flag("remote-branch", "Git branch that plays the remote role (overrides config branch_roles).").String()
		localOut     = kingpin.Flag("local", "Output file for the local commit stream.").Default("local.otc").String()
		remoteOut    = kingpin.Flag("remote", "Output file for the remote commit stream.").Default("remote.otc").String()
		debug        = kingpin.Flag("debug", "Enable debug logging.").Bool()
	)
	kingpin.UsageTemplate(kingpin.CompactUsageTemplate).Version(version.Print("otreplay")).Author("otcore contributors")
	kingpin.HelpFlag.Short('h')
	kingpin.Parse()

	logger := logrus.New()
	if *debug {
		logger.Level = logrus.DebugLevel
	}

	var cfg *config.Config
	var err error
	if *configFile != "" {
		cfg, err = config.LoadFile(*configFile)
		if err != nil {
			logger.Errorf("error loading config file: %v", err)
			os.Exit(1)
		}
	} else {
		cfg, err = config.Unmarshal(nil)
		if err != nil {
			logger.Errorf("error building default config: %v", err)
			os.Exit(1)
		}
	}
	if *localBranch != "" {
		cfg.BranchRoles = append([]config.BranchRole{{Name: "^" + *localBranch + "$", Role: "local"}}, cfg.BranchRoles...)
	}
	if *remoteBranch != "" {
		cfg.BranchRoles = append([]config.BranchRole{{Name: "^" + *remoteBranch + "$", Role: "remote"}}, cfg.BranchRoles...)
	}

	in, err := os.Open(*gitexport)
	if err != nil {
		logger.Errorf("error opening %s: %v", *gitexport, err)
		os.Exit(1)
	}
	defer in.Close()

	localFile, err := os.Create(*localOut)
	if err != nil {
		logger.Errorf("error creating %s: %v", *localOut, err)
		os.Exit(1)
	}
	defer localFile.Close()

	remoteFile, err := os.Create(*remoteOut)
	if err != nil {
		logger.Errorf("error creating %s: %v", *remoteOut, err)
		os.Exit(1)
	}
	defer remoteFile.Close()

	rp := NewReplayer(logger, cfg, localFile, remoteFile)
	if err := rp.Run(in); err != nil {
		logger.Errorf("otreplay failed: %v", err)
		os.Exit(1)
	}
}
