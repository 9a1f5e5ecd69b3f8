// Package writeback rewrites generated sources in place after a build.
package writeback

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"mvdan.cc/gofumpt/format"
)

// FormatGoBuffer formats generated Go source with gofumpt. Non-Go paths
// come back unchanged. On a parse error the original content is returned
// together with the error.
func FormatGoBuffer(content []byte, filePath string) ([]byte, error) {
	if !strings.HasSuffix(filePath, ".go") {
		return content, nil
	}
	formatted, err := format.Source(content, format.Options{})
	if err != nil {
		return content, fmt.Errorf("gofumpt %s: %w", filePath, err)
	}
	return formatted, nil
}

// FormatTree runs every .go file under the root of fs that was modified at
// or after since through gofumpt. Files that do not parse are left as they
// are. It returns the number of files rewritten.
func FormatTree(fs billy.Filesystem, since time.Time) (int, error) {
	// Filesystems with coarse timestamps round mtimes down.
	since = since.Truncate(time.Second)

	var n int
	err := util.Walk(fs, "/", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			log.Printf("Writeback: skip %s: %v", path, err)
			return nil
		}
		if info.IsDir() || !info.Mode().IsRegular() || !strings.HasSuffix(path, ".go") {
			return nil
		}
		if info.ModTime().Before(since) {
			return nil
		}

		src, err := util.ReadFile(fs, path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		out, ferr := FormatGoBuffer(src, path)
		if ferr != nil {
			log.Printf("Writeback: %s left unformatted: %v", path, ferr)
			return nil
		}
		if string(out) == string(src) {
			return nil
		}
		if err := util.WriteFile(fs, path, out, info.Mode().Perm()); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		n++
		return nil
	})
	return n, err
}
