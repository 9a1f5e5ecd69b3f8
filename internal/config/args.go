// Package config resolves build options from CLI tokens and an optional
// HCL config file.
package config

import (
	"errors"
	"fmt"
	"regexp"
	"slices"

	"github.com/spf13/pflag"
)

var (
	ErrMalformedArgument = errors.New("malformed argument")
	ErrUnknownOption     = errors.New("unknown option")
	ErrDuplicateOption   = errors.New("duplicate option")
	ErrInvalidValue      = errors.New("invalid option value")
)

// Option keys accepted as --key=value.
const (
	KeyOutput        = "output"
	KeyLang          = "lang"
	KeyNamespace     = "namespace"
	KeyFileExtension = "file_extension"
	KeyLayout        = "layout"
	KeyJobs          = "jobs"
	KeyTimeout       = "timeout"
	KeyCompiler      = "compiler"
	KeyConfig        = "config"
	KeyLedger        = "ledger"
	KeyReport        = "report"
	KeyFormatGo      = "format_go"
)

// Keys lists every recognized option key.
var Keys = []string{
	KeyOutput, KeyLang, KeyNamespace, KeyFileExtension,
	KeyLayout, KeyJobs, KeyTimeout, KeyCompiler, KeyConfig, KeyLedger, KeyReport, KeyFormatGo,
}

// argPattern matches --key=value and --key="value with spaces".
var argPattern = regexp.MustCompile(`^--(\w+)=(?:"(.*)"|(\S+))$`)

// RegisterFlags declares the build options on fs. The flag set provides
// typed parsing and the usage text; tokens are validated by ParseBuildArgs first.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(KeyOutput, "", "root folder where compiled files are placed (default: the target directory)")
	fs.String(KeyLang, "", "output language, e.g. csharp, java, python, go (default: csharp)")
	fs.String(KeyNamespace, "", "C# base namespace; output folders are renamed to PascalCase (quote spaces as '--namespace=\"A B\"')")
	fs.String(KeyFileExtension, "", "custom extension for generated C# files, e.g. .g.cs")
	fs.String(KeyLayout, "", "output layout: mirror or pascal (default: pascal when --namespace is set)")
	fs.Int(KeyJobs, 0, "number of concurrent compiler invocations (default: number of CPUs)")
	fs.Duration(KeyTimeout, 0, "per-file compiler timeout, e.g. 30s (default: none)")
	fs.String(KeyCompiler, "", "path to protoc (default: the bundled compiler for this platform)")
	fs.String(KeyConfig, "", "config file, .hcl or .yaml (default: "+DefaultFile+" in the target directory)")
	fs.String(KeyLedger, "", "SQLite database recording every invocation")
	fs.String(KeyReport, "", "write a JSON build report to this path")
	fs.Bool(KeyFormatGo, false, "rewrite generated Go files with gofumpt (lang=go only)")
}

// IsHelp reports whether any token asks for help.
func IsHelp(tokens []string) bool {
	return slices.ContainsFunc(tokens, func(t string) bool { return t == "--help" || t == "-h" })
}

// ParseBuildArgs validates raw build tokens and sets the matching flags on fs. Every
// token must have the --key=value shape except the last, which may be a bare
// path. It returns that path, or "" when absent.
func ParseBuildArgs(fs *pflag.FlagSet, tokens []string) (string, error) {
	var root string
	seen := make(map[string]bool, len(tokens))
	for i, tok := range tokens {
		m := argPattern.FindStringSubmatch(tok)
		if m == nil {
			if i < len(tokens)-1 {
				return "", fmt.Errorf("%w in position %d: %q", ErrMalformedArgument, i, tok)
			}
			root = tok
			continue
		}

		key, value := m[1], m[3]
		if m[3] == "" {
			value = m[2]
		}
		if !slices.Contains(Keys, key) {
			return "", fmt.Errorf("%w --%s", ErrUnknownOption, key)
		}
		if seen[key] {
			return "", fmt.Errorf("%w --%s", ErrDuplicateOption, key)
		}
		seen[key] = true
		if err := fs.Set(key, value); err != nil {
			return "", fmt.Errorf("%w --%s=%s: %v", ErrInvalidValue, key, value, err)
		}
	}
	return root, nil
}
