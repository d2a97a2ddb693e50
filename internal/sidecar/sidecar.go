// Package sidecar decides, per media file, whether a lyrics file has to be fetched.
//
// A sidecar is the synchronized-lyrics file stored next to a media file with
// the same stem and a dedicated extension. Its first line must carry a
// bracketed timestamp tag such as "[00:01.23]" or "[ar:Artist]"; a sidecar
// failing that check is considered corrupt and is deleted during evaluation.
package sidecar

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	ioutils "github.com/handiism/lrc-downloader/internal/io"
	"github.com/handiism/lrc-downloader/internal/model"
)

// DefaultExtension is the synchronized-lyrics file extension.
const DefaultExtension = ".lrc"

// Manager evaluates and cleans sidecar files.
type Manager struct {
	ext string
}

// NewManager creates a Manager for sidecars with the given extension.
// An empty extension selects DefaultExtension.
func NewManager(ext string) *Manager {
	if ext == "" {
		ext = DefaultExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return &Manager{ext: ext}
}

// Extension returns the sidecar extension, including the dot.
func (m *Manager) Extension() string {
	return m.ext
}

// Path returns the sidecar path for a media file.
func (m *Manager) Path(mediaPath string) string {
	return model.SidecarPath(mediaPath, m.ext)
}

// Evaluate inspects the sidecar of mediaPath.
//
// It returns SidecarAbsent when no sidecar exists, SidecarValid when the first
// line contains both '[' and ']', and SidecarCorrupt otherwise. A corrupt
// sidecar is deleted before Evaluate returns, so callers may write a new one
// straight away.
func (m *Manager) Evaluate(mediaPath string) (model.SidecarState, error) {
	path := m.Path(mediaPath)

	line, err := readFirstLine(path)
	if os.IsNotExist(err) {
		return model.SidecarAbsent, nil
	}
	if err != nil {
		return model.SidecarAbsent, fmt.Errorf("read sidecar %s: %w", path, err)
	}

	if IsValidFirstLine(line) {
		return model.SidecarValid, nil
	}

	if err := ioutils.RemoveIfExists(path); err != nil {
		return model.SidecarCorrupt, fmt.Errorf("remove corrupt sidecar %s: %w", path, err)
	}
	return model.SidecarCorrupt, nil
}

// IsValidFirstLine reports whether line looks like the first line of a
// synchronized-lyrics file.
func IsValidFirstLine(line string) bool {
	return strings.Contains(line, "[") && strings.Contains(line, "]")
}

// readFirstLine returns the first line of the file without its line ending.
func readFirstLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
