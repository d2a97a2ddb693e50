// Package ioutils provides file system utilities for lrc-downloader.
//
// # Atomic Writes
//
// Lyrics files are written through a hidden temporary file in the destination
// directory which is renamed over the final path once fully written and synced:
//
//	err := ioutils.WriteFileAtomic(ctx, "/music/song.lrc", data, 0644)
//
// Either the complete file appears at its final path or nothing does. The
// temporary file is removed on every failure path, including cancellation
// of ctx before the rename.
package ioutils
