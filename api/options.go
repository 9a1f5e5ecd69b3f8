package api

import "time"

// DefaultLanguage is the baseline protoc backend. It is the only backend
// whose generator options (namespace, file extension) are composed.
const DefaultLanguage = "csharp"

// SchemaSuffix identifies the source files handed to the compiler.
const SchemaSuffix = ".proto"

// Layout selects how source directories map onto output directories.
type Layout string

const (
	// LayoutAuto picks LayoutPascal when a namespace is set, LayoutMirror otherwise.
	LayoutAuto Layout = ""
	// LayoutMirror copies the relative directory path verbatim.
	LayoutMirror Layout = "mirror"
	// LayoutPascal rewrites every path segment to PascalCase.
	LayoutPascal Layout = "pascal"
)

// BuildOptions is the validated configuration of a single build run.
// It is resolved once at the CLI boundary and never mutated afterwards.
type BuildOptions struct {
	// OutputRoot is where generated code is placed. Empty means the working root.
	OutputRoot string
	// Language is the protoc backend (csharp, java, python, go, ...).
	Language string
	// Namespace is passed as the C# base namespace and enables the Pascal layout.
	Namespace string
	// FileExtension overrides the extension of generated C# files (e.g. ".g.cs").
	FileExtension string

	Layout   Layout
	Jobs     int
	Timeout  time.Duration
	Compiler string
	Ledger   string
	Report   string
	FormatGo bool
}

// Lang returns the target language, falling back to DefaultLanguage.
func (o BuildOptions) Lang() string {
	if o.Language == "" {
		return DefaultLanguage
	}
	return o.Language
}

// IsBaseline reports whether the target language is DefaultLanguage.
func (o BuildOptions) IsBaseline() bool {
	return o.Lang() == DefaultLanguage
}

// Pascal reports whether output directories are rewritten to PascalCase.
func (o BuildOptions) Pascal() bool {
	switch o.Layout {
	case LayoutPascal:
		return true
	case LayoutMirror:
		return false
	default:
		return o.Namespace != ""
	}
}

// Output returns the output root, defaulting to workingRoot.
func (o BuildOptions) Output(workingRoot string) string {
	if o.OutputRoot == "" {
		return workingRoot
	}
	return o.OutputRoot
}
