// Package library enumerates candidate media files under a library root.
package library

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"
)

// ErrRootUnreadable is returned by Validate when the library root cannot be listed.
// No work can proceed without it, so callers abort the run.
var ErrRootUnreadable = errors.New("library root unreadable")

// Walker recursively lists regular files under a root directory.
//
// The sequence returned by Files is lazy and restartable: each range over it
// walks the tree again from scratch.
//
// Example:
//
//	w := library.NewWalker("/music", library.WithExtensions(".mp3", ".flac"))
//	if err := w.Validate(); err != nil {
//	    return err
//	}
//	for path, err := range w.Files() {
//	    if err != nil {
//	        log.Warn("skipping subtree", "err", err)
//	        continue
//	    }
//	    fmt.Println(path)
//	}
type Walker struct {
	root       string
	excludeExt string
	includeExt map[string]struct{}
}

// Option configures a Walker.
type Option func(*Walker)

// WithExtensions restricts the walk to files with one of the given extensions.
// Matching is case-insensitive; a leading dot is optional.
func WithExtensions(exts ...string) Option {
	return func(w *Walker) {
		for _, ext := range exts {
			ext = normalizeExt(ext)
			if ext == "" {
				continue
			}
			if w.includeExt == nil {
				w.includeExt = make(map[string]struct{})
			}
			w.includeExt[ext] = struct{}{}
		}
	}
}

// WithSidecarExtension sets the extension excluded from the walk.
// It defaults to ".lrc" so lyrics files are never treated as media.
func WithSidecarExtension(ext string) Option {
	return func(w *Walker) {
		w.excludeExt = normalizeExt(ext)
	}
}

// NewWalker creates a Walker for root.
func NewWalker(root string, opts ...Option) *Walker {
	w := &Walker{
		root:       root,
		excludeExt: ".lrc",
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Root returns the library root.
func (w *Walker) Root() string {
	return w.root
}

// Validate checks that the root exists, is a directory and can be listed.
// The returned error wraps ErrRootUnreadable.
func (w *Walker) Validate() error {
	info, err := os.Stat(w.root)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRootUnreadable, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrRootUnreadable, w.root)
	}
	f, err := os.Open(w.root)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRootUnreadable, err)
	}
	defer f.Close()
	if _, err := f.ReadDir(1); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", ErrRootUnreadable, err)
	}
	return nil
}

// Files returns the candidate files under the root in directory traversal order.
//
// An unreadable subtree is yielded once as (path, err) and skipped; the walk
// carries on with its siblings. Stopping the range stops the walk.
func (w *Walker) Files() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if !yield(path, err) {
					return filepath.SkipAll
				}
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}
			if !w.accepts(path) {
				return nil
			}
			if !yield(path, nil) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

func (w *Walker) accepts(path string) bool {
	ext := normalizeExt(filepath.Ext(path))
	if ext == w.excludeExt {
		return false
	}
	if len(w.includeExt) == 0 {
		return true
	}
	_, ok := w.includeExt[ext]
	return ok
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
