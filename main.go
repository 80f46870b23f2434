package main

// otcore program
//
// Reads two encoded commit streams - a "remote" version already applied to
// the shared document, and a "local" one describing edits made offline
// against an older base - and reconciles them: it writes the resulting
// document patch (the commits to apply so the shared document catches up)
// and the new version vector (the caller's local commits renumbered and
// shifted so they chain cleanly onto the now-current document).
//
// Reads both streams fully, calls reconcile.InsertBefore or its concurrent
// counterpart, then writes the two results back out via codec. An optional
// Graphviz dot file, and PNG rendered from it, show which remote/local
// commits survived the reconciliation.

import (
	"fmt"
	"os"
	"time"

	"github.com/alitto/pond"
	"github.com/emicklei/dot"
	graphviz "github.com/goccy/go-graphviz"
	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/rcowham/otcore/codec"
	"github.com/rcowham/otcore/commit"
	"github.com/rcowham/otcore/config"
	"github.com/rcowham/otcore/internal/version"
	"github.com/rcowham/otcore/reconcile"
)

// loadRecords reads every commit.Record from filename.
func loadRecords(filename string) ([]commit.Record, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", filename, err)
	}
	defer f.Close()
	return codec.NewReader(f).ReadAll()
}

// saveRecords writes recs to filename using codec.Writer.
func saveRecords(filename string, recs []commit.Record) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("creating %s: %w", filename, err)
	}
	defer f.Close()
	return codec.NewWriter(f).WriteAll(recs)
}

// savePatch writes a document patch (commits with no record id) to filename.
func savePatch(filename string, patch []commit.Commit) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("creating %s: %w", filename, err)
	}
	defer f.Close()
	for _, c := range patch {
		if err := codec.EncodeCommit(f, c); err != nil {
			return err
		}
	}
	return nil
}

// buildGraph renders a Graphviz dot graph of the reconciliation: one node
// per remote/local commit and one per surviving patch/version-vector commit.
func buildGraph(remote, local []commit.Record, patch []commit.Commit, nvv []commit.Record) *dot.Graph {
	g := dot.NewGraph(dot.Directed)

	remoteCluster := g.Subgraph("remote", dot.ClusterOption{})
	remoteNodes := make([]dot.Node, len(remote))
	for i, r := range remote {
		remoteNodes[i] = remoteCluster.Node(fmt.Sprintf("r%d", r.ID)).
			Label(fmt.Sprintf("remote#%d %s", r.ID, r.Content.Kind()))
	}

	localCluster := g.Subgraph("local", dot.ClusterOption{})
	localNodes := make([]dot.Node, len(local))
	for i, l := range local {
		localNodes[i] = localCluster.Node(fmt.Sprintf("l%d", l.ID)).
			Label(fmt.Sprintf("local#%d %s", l.ID, l.Content.Kind()))
	}

	patchCluster := g.Subgraph("patch", dot.ClusterOption{})
	for i, c := range patch {
		n := patchCluster.Node(fmt.Sprintf("p%d", i)).Label(fmt.Sprintf("patch %s", c.Kind()))
		if i < len(remoteNodes) {
			g.Edge(remoteNodes[i], n, "survives")
		}
	}

	nvvCluster := g.Subgraph("new_version_vector", dot.ClusterOption{})
	for _, rec := range nvv {
		n := nvvCluster.Node(fmt.Sprintf("v%d", rec.ID)).Label(fmt.Sprintf("nvv#%d %s", rec.ID, rec.Content.Kind()))
		if len(localNodes) > 0 {
			g.Edge(localNodes[0], n, "shifted")
		}
	}

	return g
}

// renderPNG parses a dot source string with go-graphviz and writes a PNG
// rendering of it to filename.
func renderPNG(dotSource string, filename string) error {
	gv := graphviz.New()
	defer gv.Close()
	graph, err := graphviz.ParseBytes([]byte(dotSource))
	if err != nil {
		return fmt.Errorf("parsing dot source: %w", err)
	}
	defer graph.Close()
	return gv.RenderFilename(graph, graphviz.PNG, filename)
}

func main() {
	var (
		configFile = kingpin.Flag(
			"config",
			"Config file for otcore.",
		).Default("otcore.yaml").Short('c').String()
		localFile = kingpin.Flag(
			"local",
			"Encoded local commit stream.",
		).Required().String()
		remoteFile = kingpin.Flag(
			"remote",
			"Encoded remote commit stream.",
		).Required().String()
		patchFile = kingpin.Flag(
			"patch",
			"Where to write the resulting document patch.",
		).Default("patch.otc").String()
		vectorFile = kingpin.Flag(
			"vector",
			"Where to write the resulting new version vector.",
		).Default("vector.otc").String()
		graphFile = kingpin.Flag(
			"graph",
			"Graphviz dot file to write showing the reconciliation.",
		).String()
		pngFile = kingpin.Flag(
			"png",
			"PNG file to render from --graph (requires --graph).",
		).String()
		concurrent = kingpin.Flag(
			"concurrent",
			"Use the concurrent, file-partitioned reconciliation driver.",
		).Bool()
		cpuProfile = kingpin.Flag(
			"cpuprofile",
			"Write a CPU profile to this directory.",
		).String()
		debug = kingpin.Flag(
			"debug",
			"Enable debug logging.",
		).Bool()
	)
	kingpin.UsageTemplate(kingpin.CompactUsageTemplate).Version(version.Print("otcore")).Author("otcore contributors")
	kingpin.CommandLine.Help = "Reconciles a local and a remote operational-transform commit stream\n"
	kingpin.HelpFlag.Short('h')
	kingpin.Parse()

	logger := logrus.New()
	logger.Level = logrus.InfoLevel
	if *debug {
		logger.Level = logrus.DebugLevel
	}

	if *cpuProfile != "" {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(*cpuProfile)).Stop()
	}

	cfg, err := config.LoadFile(*configFile)
	if err != nil {
		logger.Warnf("using default configuration: %v", err)
		cfg, err = config.Unmarshal(nil)
		if err != nil {
			logger.Fatalf("error building default config: %v", err)
		}
	}

	startTime := time.Now()
	logger.Infof("%v", version.Print("otcore"))
	logger.Infof("Starting %s, local: %s, remote: %s", startTime, *localFile, *remoteFile)

	local, err := loadRecords(*localFile)
	if err != nil {
		logger.Fatalf("error loading local stream: %v", err)
	}
	remote, err := loadRecords(*remoteFile)
	if err != nil {
		logger.Fatalf("error loading remote stream: %v", err)
	}
	logger.Infof("Loaded %d local and %d remote records", len(local), len(remote))

	alg := cfg.Algebra()
	var nvv []commit.Record
	var patch []commit.Commit
	if *concurrent {
		opts := []reconcile.Option{reconcile.WithAlgebra(alg)}
		if cfg.Concurrency > 0 {
			pool := pond.New(cfg.Concurrency, 0, pond.MinWorkers(1))
			defer pool.StopAndWait()
			opts = append(opts, reconcile.WithPool(pool))
		}
		nvv, patch = reconcile.InsertBeforeConcurrent(remote, local, opts...)
	} else {
		nvv, patch = reconcile.InsertBefore(remote, local, reconcile.WithAlgebra(alg))
	}
	logger.Infof("Reconciled: patch has %d commits, new version vector has %d entries", len(patch), len(nvv))

	if err := savePatch(*patchFile, patch); err != nil {
		logger.Fatalf("error writing patch: %v", err)
	}
	if err := saveRecords(*vectorFile, nvv); err != nil {
		logger.Fatalf("error writing version vector: %v", err)
	}

	if *graphFile != "" {
		g := buildGraph(remote, local, patch, nvv)
		f, err := os.Create(*graphFile)
		if err != nil {
			logger.Errorf("error creating graph file: %v", err)
		} else {
			f.WriteString(g.String())
			f.Close()
			if *pngFile != "" {
				if err := renderPNG(g.String(), *pngFile); err != nil {
					logger.Errorf("error rendering png: %v", err)
				}
			}
		}
	}

	logger.Infof("Finished in %s", time.Since(startTime))
}
