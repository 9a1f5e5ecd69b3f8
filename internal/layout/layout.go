// Package layout maps source directories onto output directories.
package layout

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/agentic-research/protocli/api"
	billy "github.com/go-git/go-billy/v5"
)

var (
	// ErrOutsideRoot means a source directory is not below the working root.
	// The walker never produces such a directory.
	ErrOutsideRoot = errors.New("source directory outside working root")
	// ErrInvalidSegment means a directory name cannot be rewritten to PascalCase.
	ErrInvalidSegment = errors.New("invalid directory segment")
)

// ResolveOutputDirectory returns the output directory for sources found in
// sourceDir and creates it if needed. fs must be rooted at the output root
// (opts.Output(workingRoot)). The returned path uses forward slashes.
func ResolveOutputDirectory(fs billy.Filesystem, workingRoot, sourceDir string, opts api.BuildOptions) (string, error) {
	rel, err := RelativeDir(workingRoot, sourceDir)
	if err != nil {
		return "", err
	}
	if opts.Pascal() {
		if rel, err = PascalPath(rel); err != nil {
			return "", err
		}
	}
	if rel != "" {
		if err := fs.MkdirAll(rel, 0o755); err != nil {
			return "", fmt.Errorf("create output directory %s: %w", rel, err)
		}
	}
	return join(opts.Output(workingRoot), rel), nil
}

// RelativeDir returns sourceDir relative to workingRoot using forward slashes
// and no leading separator. The root itself maps to "".
func RelativeDir(workingRoot, sourceDir string) (string, error) {
	rel, err := filepath.Rel(workingRoot, sourceDir)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrOutsideRoot, err)
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, sourceDir)
	}
	if rel == "." {
		return "", nil
	}
	return strings.TrimPrefix(rel, "/"), nil
}

// PascalPath rewrites every segment of a slash-separated relative path with
// PascalSegment. "a/my_thing" becomes "A/MyThing".
func PascalPath(rel string) (string, error) {
	if rel == "" {
		return "", nil
	}
	segs := strings.Split(rel, "/")
	for i, seg := range segs {
		p, err := PascalSegment(seg)
		if err != nil {
			return "", err
		}
		segs[i] = p
	}
	return strings.Join(segs, "/"), nil
}

// PascalSegment splits seg on '_', upper-cases the first rune of each token
// and concatenates the tokens. Empty tokens and runes other than letters,
// digits and '_' are rejected.
func PascalSegment(seg string) (string, error) {
	if seg == "" {
		return "", fmt.Errorf("%w: empty segment", ErrInvalidSegment)
	}
	var b strings.Builder
	b.Grow(len(seg))
	for _, tok := range strings.Split(seg, "_") {
		if tok == "" {
			return "", fmt.Errorf("%w: %q has an empty token", ErrInvalidSegment, seg)
		}
		first := true
		for _, r := range tok {
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
				return "", fmt.Errorf("%w: %q contains %q", ErrInvalidSegment, seg, r)
			}
			if first {
				r = unicode.ToUpper(r)
				first = false
			}
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

func join(root, rel string) string {
	root = strings.TrimSuffix(filepath.ToSlash(root), "/")
	if rel == "" {
		if root == "" {
			return "/"
		}
		return root
	}
	return root + "/" + rel
}
