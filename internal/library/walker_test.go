package library

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestWalker_Files(t *testing.T) {
	root := t.TempDir()
	files := []string{
		"a/01 song.mp3",
		"a/01 song.lrc",
		"a/cover.jpg",
		"b/c/02 other.FLAC",
		"b/c/02 other.LRC",
		"top.mp3",
	}
	for _, f := range files {
		path := filepath.Join(root, f)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name string
		opts []Option
		want []string
	}{
		{
			name: "all regular files except sidecars",
			want: []string{"a/01 song.mp3", "a/cover.jpg", "b/c/02 other.FLAC", "top.mp3"},
		},
		{
			name: "extension filter",
			opts: []Option{WithExtensions("mp3", ".flac")},
			want: []string{"a/01 song.mp3", "b/c/02 other.FLAC", "top.mp3"},
		},
		{
			name: "custom sidecar extension",
			opts: []Option{WithSidecarExtension(".jpg")},
			want: []string{"a/01 song.lrc", "a/01 song.mp3", "b/c/02 other.FLAC", "b/c/02 other.LRC", "top.mp3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWalker(root, tt.opts...)
			got := collect(t, w, root)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestWalker_Restartable(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"one.mp3", "two.mp3"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	w := NewWalker(root)
	first := collect(t, w, root)
	second := collect(t, w, root)
	if len(first) != 2 || len(second) != 2 {
		t.Errorf("expected two files on each pass, got %v and %v", first, second)
	}
}

func TestWalker_EarlyStop(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"one.mp3", "two.mp3", "three.mp3"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	n := 0
	for range NewWalker(root).Files() {
		n++
		break
	}
	if n != 1 {
		t.Errorf("expected to stop after one file, got %d", n)
	}
}

func TestWalker_UnreadableSubtree(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}

	root := t.TempDir()
	locked := filepath.Join(root, "locked")
	if err := os.Mkdir(locked, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(locked, "hidden.mp3"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "visible.mp3"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(locked, 0); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(locked, 0755) })

	var paths []string
	var errs int
	for path, err := range NewWalker(root).Files() {
		if err != nil {
			errs++
			continue
		}
		paths = append(paths, filepath.Base(path))
	}

	if errs != 1 {
		t.Errorf("expected one subtree error, got %d", errs)
	}
	if len(paths) != 1 || paths[0] != "visible.mp3" {
		t.Errorf("expected sibling to be walked, got %v", paths)
	}
}

func TestWalker_Validate(t *testing.T) {
	t.Run("existing directory", func(t *testing.T) {
		if err := NewWalker(t.TempDir()).Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("missing root", func(t *testing.T) {
		err := NewWalker(filepath.Join(t.TempDir(), "nope")).Validate()
		if !errors.Is(err, ErrRootUnreadable) {
			t.Errorf("expected ErrRootUnreadable, got %v", err)
		}
	})

	t.Run("root is a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "file.mp3")
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		if err := NewWalker(path).Validate(); !errors.Is(err, ErrRootUnreadable) {
			t.Errorf("expected ErrRootUnreadable, got %v", err)
		}
	})
}

func collect(t *testing.T, w *Walker, root string) []string {
	t.Helper()
	var out []string
	for path, err := range w.Files() {
		if err != nil {
			t.Fatalf("unexpected walk error: %v", err)
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, filepath.ToSlash(rel))
	}
	sort.Strings(out)
	return out
}
