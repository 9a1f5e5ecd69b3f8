// Package testutil provides a scripted stand-in for protoc used by tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeScript records its argv, then behaves by source file name:
// fail*.proto exits 1, slow*.proto sleeps. Otherwise it writes one output
// file into the --<lang>_out directory (a .pb.go file for --go_out).
const fakeScript = `#!/bin/sh
logdir='%s'
out=""
last=""
for arg in "$@"; do
	case "$arg" in
	--*_out=*) out="${arg#*=}" ;;
	esac
	last="$arg"
done
name=$(printf '%%s' "$last" | tr '/ ' '__')
for arg in "$@"; do
	printf '%%s\n' "$arg"
done > "$logdir/$name.args"
file=$(basename "$last")
case "$file" in
fail*) echo "$last:1:1: Expected top-level statement" >&2; exit 1 ;;
slow*) sleep 30 ;;
esac
base=$(basename "$last" .proto)
case "$*" in
*--go_out=*) printf 'package gen\n\nfunc  Gen()  {\nreturn\n}\n' > "$out/$base.pb.go" ;;
*) printf '// generated\n' > "$out/$base.out" ;;
esac
echo "compiled $last"
`

// FakeCompiler is an executable shell script standing in for protoc.
type FakeCompiler struct {
	Path   string
	logDir string
}

// NewFakeCompiler writes the script into a temp dir. POSIX only.
func NewFakeCompiler(t testing.TB) *FakeCompiler {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake compiler is a POSIX shell script")
	}
	dir := t.TempDir()
	logDir := filepath.Join(dir, "calls")
	require.NoError(t, os.MkdirAll(logDir, 0o755))

	path := filepath.Join(dir, "protoc")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(fakeScript, logDir)), 0o755))
	return &FakeCompiler{Path: path, logDir: logDir}
}

// Calls returns the recorded argv of every invocation keyed by its last
// argument (the source file).
func (f *FakeCompiler) Calls(t testing.TB) map[string][]string {
	t.Helper()
	entries, err := os.ReadDir(f.logDir)
	require.NoError(t, err)

	calls := make(map[string][]string, len(entries))
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(f.logDir, e.Name()))
		require.NoError(t, err)
		args := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
		calls[args[len(args)-1]] = args
	}
	return calls
}

// Sources returns the sorted source files the compiler was invoked with.
func (f *FakeCompiler) Sources(t testing.TB) []string {
	t.Helper()
	var out []string
	for src := range f.Calls(t) {
		out = append(out, src)
	}
	sort.Strings(out)
	return out
}

// WriteTree creates files (slash-separated, relative to root) with a minimal
// proto body.
func WriteTree(t testing.TB, root string, files ...string) {
	t.Helper()
	for _, name := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("syntax = \"proto3\";\n"), 0o644))
	}
}
