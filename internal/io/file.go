package ioutils

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WriteFileAtomic writes data to path so that readers never observe a partial file.
//
// The data goes to a hidden temporary file in the same directory, named
// ".<stem>.<random><ext>", which is synced, closed and renamed over path. Keeping
// the destination's extension on the temporary file means directory walks that
// filter on that extension skip it as well.
//
// Parameters:
//   - ctx: Checked before the rename; a cancelled context aborts the write
//   - path: Final file path
//   - data: Full file contents
//   - perm: Permission bits for the final file
//
// Returns an error if the temporary file cannot be created, written, synced or
// renamed. The temporary file is removed in every error case.
//
// Example:
//
//	err := WriteFileAtomic(ctx, "/music/01 One More Time.lrc", lrcBytes, 0644)
func WriteFileAtomic(ctx context.Context, path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(filepath.Base(path), ext)

	tmp, err := os.CreateTemp(dir, "."+stem+".*"+ext)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = ctx.Err(); err != nil {
		return err
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}

// RemoveIfExists deletes path, treating a missing file as success.
func RemoveIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
