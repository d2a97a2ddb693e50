package model

import (
	"path/filepath"
	"strings"
)

// Track represents the tags of a single media file that identify its lyrics.
//
// Track is produced by the tag reader and never modified afterwards. Artist
// and Title are always non-empty for a Track returned by a reader; Album and
// Number fall back to their zero values when the file does not carry them.
//
// Example:
//
//	track := &Track{
//	    Path:   "/music/Daft Punk/Discovery/01 One More Time.flac",
//	    Artist: "Daft Punk",
//	    Album:  "Discovery",
//	    Number: 1,
//	    Title:  "One More Time",
//	}
type Track struct {
	// Path is the media file the tags were read from.
	Path string

	// Artist is the lead artist (TPE1 / ARTIST).
	Artist string

	// Album is the album title (TALB / ALBUM). May be empty.
	Album string

	// Number is the track number (TRCK / TRACKNUMBER). Zero when unknown.
	Number int

	// Title is the track title (TIT2 / TITLE).
	Title string
}

// Query returns the search term for the track: artist and title joined by a space.
func (t *Track) Query() string {
	return t.Artist + " " + t.Title
}

// String returns "Artist - Title".
func (t *Track) String() string {
	return t.Artist + " - " + t.Title
}

// SidecarState describes the lyrics file next to a media file.
type SidecarState int

const (
	// SidecarAbsent means no lyrics file exists yet.
	SidecarAbsent SidecarState = iota

	// SidecarValid means a lyrics file exists and its first line
	// carries a bracketed timestamp tag.
	SidecarValid

	// SidecarCorrupt means a lyrics file existed but failed the first-line check.
	// The sidecar manager has already removed it when this state is reported.
	SidecarCorrupt
)

// String returns a lowercase name for the state.
func (s SidecarState) String() string {
	switch s {
	case SidecarAbsent:
		return "absent"
	case SidecarValid:
		return "valid"
	case SidecarCorrupt:
		return "corrupt"
	default:
		return "unknown"
	}
}

// NeedsFetch reports whether a file in this state should have its lyrics downloaded.
func (s SidecarState) NeedsFetch() bool {
	return s == SidecarAbsent || s == SidecarCorrupt
}

// SidecarPath returns the path of the sidecar file for mediaPath: same directory,
// same stem, extension replaced by ext.
//
// Example:
//
//	SidecarPath("/music/song.mp3", ".lrc") // "/music/song.lrc"
//	SidecarPath("/music/song", ".lrc")     // "/music/song.lrc"
func SidecarPath(mediaPath, ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return strings.TrimSuffix(mediaPath, filepath.Ext(mediaPath)) + ext
}
