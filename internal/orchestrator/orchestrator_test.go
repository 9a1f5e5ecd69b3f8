package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/agentic-research/protocli/api"
	"github.com/agentic-research/protocli/internal/layout"
	"github.com/agentic-research/protocli/internal/testutil"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slash(parts ...string) string {
	return filepath.ToSlash(filepath.Join(parts...))
}

func TestRunBuild_SomeFailedAttemptsEveryFile(t *testing.T) {
	fake := testutil.NewFakeCompiler(t)
	root := t.TempDir()
	testutil.WriteTree(t, root,
		"a.proto", "b.proto", "x/c.proto", "x/fail.proto", "x/y/d.proto")

	o := &Orchestrator{Compiler: fake.Path}
	res, err := o.RunBuild(context.Background(), root, api.BuildOptions{Jobs: 2})
	require.NoError(t, err)

	assert.Equal(t, api.SomeFailed, res.Outcome)
	require.Len(t, res.Invocations, 5)
	require.Len(t, res.Failed(), 1)
	assert.Equal(t, slash(root, "x", "fail.proto"), res.Failed()[0].File)
	assert.Contains(t, string(res.Failed()[0].Output), "Expected top-level statement")
	assert.Len(t, fake.Calls(t), 5)

	var kindErr *api.Error
	require.ErrorAs(t, res.Err(), &kindErr)
	assert.Equal(t, 5, api.ExitCode(res.Err()))
}

func TestRunBuild_NoInput(t *testing.T) {
	fake := testutil.NewFakeCompiler(t)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "readme.txt"), []byte("hi"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".proto"), []byte(""), 0o644))

	res, err := (&Orchestrator{Compiler: fake.Path}).RunBuild(context.Background(), root, api.BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, api.NoInputFound, res.Outcome)
	assert.Empty(t, res.Invocations)
	assert.Empty(t, fake.Calls(t))
	assert.Equal(t, 4, api.ExitCode(res.Err()))
}

func TestRunBuild_MirrorLayout(t *testing.T) {
	fake := testutil.NewFakeCompiler(t)
	root := t.TempDir()
	out := t.TempDir()
	testutil.WriteTree(t, root, "a.proto", "my_pkg/b.proto", "my_pkg/sub/c.proto")

	res, err := (&Orchestrator{Compiler: fake.Path}).RunBuild(context.Background(), root,
		api.BuildOptions{OutputRoot: out, Language: "java"})
	require.NoError(t, err)
	assert.Equal(t, api.AllSucceeded, res.Outcome)
	assert.NoError(t, res.Err())

	assert.FileExists(t, filepath.Join(out, "a.out"))
	assert.FileExists(t, filepath.Join(out, "my_pkg", "b.out"))
	assert.FileExists(t, filepath.Join(out, "my_pkg", "sub", "c.out"))

	src := slash(root, "my_pkg", "sub", "c.proto")
	assert.Equal(t, []string{
		"--proto_path=" + filepath.ToSlash(root),
		"--java_out=" + slash(out, "my_pkg", "sub"),
		src,
	}, fake.Calls(t)[src])
}

func TestRunBuild_PascalLayoutWithNamespace(t *testing.T) {
	fake := testutil.NewFakeCompiler(t)
	root := t.TempDir()
	testutil.WriteTree(t, root, "my_thing/inner_api/a.proto")

	res, err := (&Orchestrator{Compiler: fake.Path}).RunBuild(context.Background(), root,
		api.BuildOptions{Namespace: "Acme", FileExtension: ".g.cs"})
	require.NoError(t, err)
	assert.Equal(t, api.AllSucceeded, res.Outcome)
	assert.DirExists(t, filepath.Join(root, "MyThing", "InnerApi"))

	src := slash(root, "my_thing", "inner_api", "a.proto")
	assert.Equal(t, []string{
		"--csharp_opt=base_namespace=Acme,file_extension=.g.cs",
		"--proto_path=" + filepath.ToSlash(root),
		"--csharp_out=" + slash(root, "MyThing", "InnerApi"),
		src,
	}, fake.Calls(t)[src])
}

func TestRunBuild_InvalidSegmentAborts(t *testing.T) {
	fake := testutil.NewFakeCompiler(t)
	root := t.TempDir()
	testutil.WriteTree(t, root, "bad-name/a.proto")

	_, err := (&Orchestrator{Compiler: fake.Path}).RunBuild(context.Background(), root,
		api.BuildOptions{Layout: api.LayoutPascal})
	require.ErrorIs(t, err, layout.ErrInvalidSegment)
	assert.Equal(t, 3, api.ExitCode(err))
	assert.Empty(t, fake.Calls(t))
}

func TestRunBuild_Idempotent(t *testing.T) {
	fake := testutil.NewFakeCompiler(t)
	root := t.TempDir()
	out := t.TempDir()
	testutil.WriteTree(t, root, "a.proto", "p/b.proto")

	o := &Orchestrator{Compiler: fake.Path}
	opts := api.BuildOptions{OutputRoot: out}
	first, err := o.RunBuild(context.Background(), root, opts)
	require.NoError(t, err)
	second, err := o.RunBuild(context.Background(), root, opts)
	require.NoError(t, err)

	assert.Equal(t, first.Outcome, second.Outcome)
	require.Len(t, second.Invocations, len(first.Invocations))
	for i := range first.Invocations {
		assert.Equal(t, first.Invocations[i].Args, second.Invocations[i].Args)
	}
}

func TestRunBuild_SequentialMatchesParallel(t *testing.T) {
	root := t.TempDir()
	testutil.WriteTree(t, root,
		"z.proto", "a.proto", "m/fail.proto", "m/n.proto", "b/c/d.proto", "b/e.proto")

	run := func(jobs int) api.Result {
		fake := testutil.NewFakeCompiler(t)
		res, err := (&Orchestrator{Compiler: fake.Path}).RunBuild(context.Background(), root,
			api.BuildOptions{Jobs: jobs, OutputRoot: t.TempDir()})
		require.NoError(t, err)
		return res
	}
	seq, par := run(1), run(8)

	assert.Equal(t, seq.Outcome, par.Outcome)
	require.Len(t, par.Invocations, len(seq.Invocations))
	for i := range seq.Invocations {
		assert.Equal(t, seq.Invocations[i].Seq, par.Invocations[i].Seq)
		assert.Equal(t, seq.Invocations[i].File, par.Invocations[i].File)
		assert.Equal(t, seq.Invocations[i].ExitCode, par.Invocations[i].ExitCode)
	}
	assert.Equal(t, []string{
		slash(root, "a.proto"),
		slash(root, "z.proto"),
		slash(root, "b", "e.proto"),
		slash(root, "m", "fail.proto"),
		slash(root, "m", "n.proto"),
		slash(root, "b", "c", "d.proto"),
	}, files(seq))
}

func files(res api.Result) []string {
	out := make([]string, len(res.Invocations))
	for i, inv := range res.Invocations {
		out[i] = inv.File
	}
	return out
}

func TestRunBuild_LaunchFailure(t *testing.T) {
	root := t.TempDir()
	testutil.WriteTree(t, root, "a.proto", "b.proto", "c/d.proto")

	o := &Orchestrator{Compiler: filepath.Join(t.TempDir(), "no-such-protoc")}
	_, err := o.RunBuild(context.Background(), root, api.BuildOptions{})
	require.Error(t, err)
	assert.Equal(t, 6, api.ExitCode(err))
}

func TestRunBuild_Timeout(t *testing.T) {
	fake := testutil.NewFakeCompiler(t)
	root := t.TempDir()
	testutil.WriteTree(t, root, "a.proto", "slow.proto")

	res, err := (&Orchestrator{Compiler: fake.Path}).RunBuild(context.Background(), root,
		api.BuildOptions{Timeout: 200 * time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, api.SomeFailed, res.Outcome)
	require.Len(t, res.Failed(), 1)
	assert.True(t, res.Failed()[0].TimedOut)
}

func TestRunBuild_Cancelled(t *testing.T) {
	fake := testutil.NewFakeCompiler(t)
	root := t.TempDir()
	testutil.WriteTree(t, root, "slow.proto")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err := (&Orchestrator{Compiler: fake.Path}).RunBuild(ctx, root, api.BuildOptions{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, api.ExitCode(err))
}

func TestRunBuild_Progress(t *testing.T) {
	fake := testutil.NewFakeCompiler(t)
	root := t.TempDir()
	testutil.WriteTree(t, root, "a.proto", "b/c.proto", "b/fail.proto")

	var mu sync.Mutex
	seen := map[string]bool{}
	o := &Orchestrator{
		Compiler: fake.Path,
		Progress: func(inv api.Invocation) {
			mu.Lock()
			defer mu.Unlock()
			assert.False(t, seen[inv.File], "reported twice: %s", inv.File)
			seen[inv.File] = true
		},
	}
	_, err := o.RunBuild(context.Background(), root, api.BuildOptions{Jobs: 3})
	require.NoError(t, err)
	assert.Len(t, seen, 3)
}

func TestRunBuild_FormatGo(t *testing.T) {
	fake := testutil.NewFakeCompiler(t)
	root := t.TempDir()
	out := t.TempDir()
	testutil.WriteTree(t, root, "user.proto", "orders/order.proto")

	res, err := (&Orchestrator{Compiler: fake.Path}).RunBuild(context.Background(), root,
		api.BuildOptions{Language: "go", OutputRoot: out, FormatGo: true})
	require.NoError(t, err)
	assert.Equal(t, api.AllSucceeded, res.Outcome)
	assert.Equal(t, 2, res.Formatted)

	got, err := os.ReadFile(filepath.Join(out, "orders", "order.pb.go"))
	require.NoError(t, err)
	assert.Equal(t, "package gen\n\nfunc Gen() {\n\treturn\n}\n", string(got))
}

func TestRunBuild_FormatGoIgnoredForOtherLanguages(t *testing.T) {
	fake := testutil.NewFakeCompiler(t)
	root := t.TempDir()
	testutil.WriteTree(t, root, "user.proto")

	res, err := (&Orchestrator{Compiler: fake.Path}).RunBuild(context.Background(), root,
		api.BuildOptions{Language: "python", OutputRoot: t.TempDir(), FormatGo: true})
	require.NoError(t, err)
	assert.Zero(t, res.Formatted)
}

func TestRunBuild_LedgerAndReport(t *testing.T) {
	fake := testutil.NewFakeCompiler(t)
	root := t.TempDir()
	state := t.TempDir()
	testutil.WriteTree(t, root, "a.proto", "b/fail.proto")

	opts := api.BuildOptions{
		OutputRoot: t.TempDir(),
		Ledger:     filepath.Join(state, "build.db"),
		Report:     filepath.Join(state, "report.json"),
	}
	_, err := (&Orchestrator{Compiler: fake.Path}).RunBuild(context.Background(), root, opts)
	require.NoError(t, err)

	assert.FileExists(t, opts.Ledger)
	raw, err := os.ReadFile(opts.Report)
	require.NoError(t, err)
	doc, err := oj.ParseString(string(raw))
	require.NoError(t, err)
	assert.Equal(t, []any{"failed"}, jp.MustParseString("$.outcome").Get(doc))
	assert.Equal(t, []any{slash(root, "b", "fail.proto")},
		jp.MustParseString("$.invocations[?(@.exit_code == 1)].file").Get(doc))
}

func TestRunResult(t *testing.T) {
	rr := newRunResult()
	assert.Equal(t, api.NoInputFound, rr.Outcome())

	rr.discovered(0)
	rr.discovered(1)
	rr.record(api.Invocation{Seq: 1})
	rr.record(api.Invocation{Seq: 0})
	assert.Equal(t, api.AllSucceeded, rr.Outcome())

	rr.discovered(2)
	rr.record(api.Invocation{Seq: 2, ExitCode: 3})
	assert.Equal(t, api.SomeFailed, rr.Outcome())

	assert.Equal(t, uint64(3), rr.found.GetCardinality())
	assert.True(t, rr.failed.Contains(2))
	assert.Equal(t, uint64(1), rr.failed.GetCardinality())

	invs := rr.Invocations()
	require.Len(t, invs, 3)
	for i, inv := range invs {
		assert.Equal(t, i, inv.Seq)
	}
}
