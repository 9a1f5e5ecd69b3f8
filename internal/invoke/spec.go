// Package invoke builds and runs single protoc invocations.
package invoke

import (
	"path/filepath"
	"strings"

	"github.com/agentic-research/protocli/api"
)

// Spec is one compiler invocation: an executable and its argv.
// Specs are built by BuildInvocation and never mutated afterwards.
type Spec struct {
	Path string
	Args []string
}

// BuildInvocation returns the compiler invocation for sourceFile.
//
// The argument order is fixed: the C# generator option (baseline language
// only), --proto_path, --<lang>_out, then the source file. Identical inputs
// produce identical argv.
func BuildInvocation(compiler, sourceFile, workingRoot, outputDir string, opts api.BuildOptions) Spec {
	args := make([]string, 0, 4)
	if opt := generatorOption(opts); opt != "" {
		args = append(args, opt)
	}
	args = append(args,
		"--proto_path="+filepath.ToSlash(workingRoot),
		"--"+opts.Lang()+"_out="+outputDir,
		filepath.ToSlash(sourceFile),
	)
	return Spec{Path: compiler, Args: args}
}

// generatorOption composes namespace and file extension into the single
// comma-joined option understood by the C# backend. Other backends get none.
func generatorOption(opts api.BuildOptions) string {
	if !opts.IsBaseline() {
		return ""
	}
	var parts []string
	if opts.Namespace != "" {
		parts = append(parts, "base_namespace="+opts.Namespace)
	}
	if opts.FileExtension != "" {
		parts = append(parts, "file_extension="+opts.FileExtension)
	}
	if len(parts) == 0 {
		return ""
	}
	return "--" + api.DefaultLanguage + "_opt=" + strings.Join(parts, ",")
}

// String renders the invocation as a shell command line.
func (s Spec) String() string {
	var b strings.Builder
	b.WriteString(quote(s.Path))
	for _, a := range s.Args {
		b.WriteByte(' ')
		b.WriteString(quote(a))
	}
	return b.String()
}

func quote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\n\"'\\$`") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
