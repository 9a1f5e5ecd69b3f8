package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/agentic-research/protocli/api"
	"github.com/spf13/pflag"
)

var langPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Resolve merges the command-line flags over the config file and validates
// the result. Paths given on the command line resolve against the current
// directory, paths from the file against the file's directory.
func Resolve(fs *pflag.FlagSet, f File) (api.BuildOptions, error) {
	opts := api.BuildOptions{
		OutputRoot:    f.path(f.Output),
		Language:      f.Lang,
		Namespace:     f.Namespace,
		FileExtension: f.FileExtension,
		Layout:        api.Layout(f.Layout),
		Jobs:          f.Jobs,
		Compiler:      f.executable(f.Compiler),
		Ledger:        f.path(f.Ledger),
		Report:        f.path(f.Report),
		FormatGo:      f.FormatGo,
	}
	if f.Timeout != "" {
		d, err := time.ParseDuration(f.Timeout)
		if err != nil {
			return api.BuildOptions{}, fmt.Errorf("%w: timeout %q: %v", ErrInvalidValue, f.Timeout, err)
		}
		opts.Timeout = d
	}

	str := func(key string, dst *string) {
		if fs.Changed(key) {
			*dst, _ = fs.GetString(key)
		}
	}
	str(KeyOutput, &opts.OutputRoot)
	str(KeyLang, &opts.Language)
	str(KeyNamespace, &opts.Namespace)
	str(KeyFileExtension, &opts.FileExtension)
	str(KeyCompiler, &opts.Compiler)
	str(KeyLedger, &opts.Ledger)
	str(KeyReport, &opts.Report)
	if fs.Changed(KeyLayout) {
		v, _ := fs.GetString(KeyLayout)
		opts.Layout = api.Layout(v)
	}
	if fs.Changed(KeyJobs) {
		opts.Jobs, _ = fs.GetInt(KeyJobs)
	}
	if fs.Changed(KeyTimeout) {
		opts.Timeout, _ = fs.GetDuration(KeyTimeout)
	}
	if fs.Changed(KeyFormatGo) {
		opts.FormatGo, _ = fs.GetBool(KeyFormatGo)
	}

	if err := validate(&opts); err != nil {
		return api.BuildOptions{}, err
	}
	return opts, nil
}

func validate(opts *api.BuildOptions) error {
	switch opts.Layout {
	case api.LayoutAuto, api.LayoutMirror, api.LayoutPascal:
	default:
		return fmt.Errorf("%w: layout %q (want mirror or pascal)", ErrInvalidValue, opts.Layout)
	}
	if opts.Language != "" && !langPattern.MatchString(opts.Language) {
		return fmt.Errorf("%w: lang %q", ErrInvalidValue, opts.Language)
	}
	if opts.Jobs < 0 {
		return fmt.Errorf("%w: jobs %d", ErrInvalidValue, opts.Jobs)
	}
	if opts.Timeout < 0 {
		return fmt.Errorf("%w: timeout %s", ErrInvalidValue, opts.Timeout)
	}

	for _, p := range []*string{&opts.OutputRoot, &opts.Ledger, &opts.Report} {
		if *p == "" {
			continue
		}
		abs, err := filepath.Abs(*p)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", *p, err)
		}
		*p = filepath.ToSlash(abs)
	}

	// The compiler runs in the working root, so a relative path must be
	// anchored to the current directory first. Bare names stay PATH lookups.
	if strings.ContainsAny(opts.Compiler, `/\`) && !filepath.IsAbs(opts.Compiler) {
		abs, err := filepath.Abs(opts.Compiler)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", opts.Compiler, err)
		}
		opts.Compiler = filepath.ToSlash(abs)
	}
	return nil
}
