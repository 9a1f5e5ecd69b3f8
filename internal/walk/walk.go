// Package walk discovers schema files breadth-first below a root directory.
package walk

import (
	"fmt"
	"iter"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	billy "github.com/go-git/go-billy/v5"
)

// maxLinkHops bounds symlink chains, matching the usual kernel limit.
const maxLinkHops = 40

// File is a schema file paired with the directory containing it. Dir is a
// slash-separated path rooted at "/" inside the walked filesystem.
type File struct {
	Dir  string
	Name string
}

// Path returns the slash-separated path of the file inside the filesystem.
func (f File) Path() string {
	return path.Join(f.Dir, f.Name)
}

// RelDir returns Dir without the leading separator ("" for the root).
func (f File) RelDir() string {
	return strings.TrimPrefix(f.Dir, "/")
}

type pending struct {
	logical   string // path as reached from the root
	canonical string // path with symlinks resolved, used for listing
}

// Walker is a single-use breadth-first traversal. Files drains its queue,
// so a finished Walker yields nothing on later calls.
type Walker struct {
	fs      billy.Filesystem
	suffix  string
	queue   []pending
	visited map[string]struct{}
}

// New returns a Walker over the whole of fs matching names ending in suffix.
func New(fs billy.Filesystem, suffix string) *Walker {
	return &Walker{
		fs:      fs,
		suffix:  suffix,
		queue:   []pending{{logical: "/", canonical: "/"}},
		visited: map[string]struct{}{"/": {}},
	}
}

// Files yields matching files lazily. Within a directory files come first in
// name order, then subdirectories are queued in name order. Each canonical
// directory is listed at most once, so symlink cycles terminate.
func (w *Walker) Files() iter.Seq2[File, error] {
	return func(yield func(File, error) bool) {
		for len(w.queue) > 0 {
			dir := w.queue[0]
			w.queue = w.queue[1:]

			entries, err := w.fs.ReadDir(dir.canonical)
			if err != nil {
				if !yield(File{}, fmt.Errorf("read dir %s: %w", dir.logical, err)) {
					return
				}
				continue
			}
			sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

			var subdirs []pending
			for _, e := range entries {
				logical := path.Join(dir.logical, e.Name())
				canonical := path.Join(dir.canonical, e.Name())
				info := e

				if e.Mode()&os.ModeSymlink != 0 {
					target, ok := w.resolve(canonical)
					if !ok {
						continue
					}
					if info, err = w.fs.Stat(target); err != nil {
						continue // dangling link
					}
					canonical = target
				}

				if info.IsDir() {
					if _, seen := w.visited[canonical]; seen {
						continue
					}
					w.visited[canonical] = struct{}{}
					subdirs = append(subdirs, pending{logical: logical, canonical: canonical})
					continue
				}
				if !info.Mode().IsRegular() || !w.match(e.Name()) {
					continue
				}
				if !yield(File{Dir: dir.logical, Name: e.Name()}, nil) {
					return
				}
			}
			w.queue = append(w.queue, subdirs...)
		}
	}
}

func (w *Walker) match(name string) bool {
	return len(name) > len(w.suffix) && strings.HasSuffix(name, w.suffix)
}

// resolve follows a symlink chain starting at link. It reports false when the
// chain is too long, broken, or leaves the filesystem root.
func (w *Walker) resolve(link string) (string, bool) {
	cur := link
	for range maxLinkHops {
		target, err := w.fs.Readlink(cur)
		if err != nil {
			return "", false
		}
		target = filepath.ToSlash(target)

		var rel string
		if strings.HasPrefix(target, "/") {
			rel = path.Clean(strings.TrimPrefix(target, "/"))
		} else {
			rel = path.Join(strings.TrimPrefix(path.Dir(cur), "/"), target)
		}
		if rel == ".." || strings.HasPrefix(rel, "../") {
			return "", false
		}
		cur = path.Join("/", rel)

		info, err := w.fs.Lstat(cur)
		if err != nil {
			return "", false
		}
		if info.Mode()&os.ModeSymlink == 0 {
			return cur, true
		}
	}
	return "", false
}
