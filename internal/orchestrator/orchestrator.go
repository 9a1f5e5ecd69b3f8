// Package orchestrator drives a build: it walks the working root, maps each
// schema file to its output directory and runs the compiler on a bounded
// worker pool.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/agentic-research/protocli/api"
	"github.com/agentic-research/protocli/internal/invoke"
	"github.com/agentic-research/protocli/internal/layout"
	"github.com/agentic-research/protocli/internal/ledger"
	"github.com/agentic-research/protocli/internal/report"
	"github.com/agentic-research/protocli/internal/walk"
	"github.com/agentic-research/protocli/internal/writeback"
	"github.com/go-git/go-billy/v5/osfs"
	"golang.org/x/sync/errgroup"
)

// Orchestrator runs builds with a fixed compiler.
type Orchestrator struct {
	// Compiler is the path of the protoc executable.
	Compiler string
	// Progress, if set, is called once per finished invocation from a
	// single goroutine.
	Progress func(api.Invocation)
}

// RunBuild compiles every schema file below root. root must be an existing
// directory. A run that finds no input or has failing invocations is not an
// error; the verdict is in Result.Outcome. Errors abort the run: a compiler
// that cannot be launched, an unreadable directory, an unmappable directory
// name or cancellation of ctx.
func (o *Orchestrator) RunBuild(ctx context.Context, root string, opts api.BuildOptions) (api.Result, error) {
	started := time.Now()
	outRoot := opts.Output(root)
	if err := os.MkdirAll(outRoot, 0o755); err != nil {
		return api.Result{}, api.Wrap(api.KindEnvironment, err, "create output root")
	}
	outFS := osfs.New(outRoot)
	walker := walk.New(osfs.New(root), api.SchemaSuffix)

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	runner := &invoke.Runner{Timeout: opts.Timeout, Dir: root}
	rootSlash := filepath.ToSlash(root)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	rr := newRunResult()
	results := make(chan api.Invocation)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for inv := range results {
			rr.record(inv)
			if o.Progress != nil {
				o.Progress(inv)
			}
		}
	}()

	var produceErr error
	seq := 0
	for f, err := range walker.Files() {
		if err != nil {
			produceErr = api.Wrap(api.KindEnvironment, err, "walk "+root)
			break
		}
		if gctx.Err() != nil {
			break
		}

		sourceDir := filepath.Join(root, filepath.FromSlash(f.RelDir()))
		outDir, err := layout.ResolveOutputDirectory(outFS, root, sourceDir, opts)
		if err != nil {
			produceErr = api.Wrap(api.KindEnvironment, err, "map output directory")
			break
		}
		source := filepath.ToSlash(filepath.Join(sourceDir, f.Name))
		spec := invoke.BuildInvocation(o.Compiler, source, rootSlash, outDir, opts)

		inv := api.Invocation{
			Seq:       seq,
			File:      source,
			OutputDir: outDir,
			Args:      spec.Args,
			Command:   spec.String(),
		}
		rr.discovered(seq)
		seq++

		g.Go(func() error {
			st, err := runner.Run(gctx, spec)
			if err != nil {
				return err
			}
			inv.ExitCode = st.ExitCode
			inv.TimedOut = st.TimedOut
			inv.Duration = st.Duration
			inv.Output = st.Output
			select {
			case results <- inv:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}
	if produceErr != nil {
		cancel()
	}
	runErr := g.Wait()
	close(results)
	<-done

	switch {
	case produceErr != nil:
		return api.Result{}, produceErr
	case runErr != nil:
		var launchErr *invoke.LaunchError
		if errors.As(runErr, &launchErr) {
			return api.Result{}, api.Wrap(api.KindLaunch, runErr, "compiler could not be launched")
		}
		return api.Result{}, api.Wrap(api.KindInternal, runErr, "build interrupted")
	case ctx.Err() != nil:
		return api.Result{}, api.Wrap(api.KindInternal, ctx.Err(), "build interrupted")
	}

	res := api.Result{
		Root:        rootSlash,
		Outcome:     rr.Outcome(),
		Invocations: rr.Invocations(),
		Started:     started,
	}
	if opts.FormatGo && opts.Lang() == "go" && res.Outcome != api.NoInputFound {
		n, err := writeback.FormatTree(outFS, started)
		if err != nil {
			log.Printf("Writeback: format pass failed: %v", err)
		}
		res.Formatted = n
	}
	res.Elapsed = time.Since(started)

	if opts.Ledger != "" {
		if err := recordLedger(opts.Ledger, res, opts); err != nil {
			log.Printf("Ledger: %v", err)
		}
	}
	if opts.Report != "" {
		if err := report.Write(opts.Report, res, opts); err != nil {
			return res, api.Wrap(api.KindEnvironment, err, "report")
		}
	}
	return res, nil
}

func recordLedger(path string, res api.Result, opts api.BuildOptions) error {
	l, err := ledger.Open(path)
	if err != nil {
		return err
	}
	if _, err := l.Record(res, opts); err != nil {
		_ = l.Close()
		return fmt.Errorf("record run: %w", err)
	}
	return l.Close()
}
