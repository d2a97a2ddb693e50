package audio

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bogem/id3v2"
	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"
	"github.com/handiism/lrc-downloader/internal/model"
)

var (
	// ErrUnsupportedFormat is returned for files the reader cannot parse.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrMissingMetadata is returned when the artist or the title tag is missing or blank.
	ErrMissingMetadata = errors.New("missing artist or title tag")
)

// Reader reads the identifying tags of a media file.
//
// Implementations return ErrUnsupportedFormat or ErrMissingMetadata (possibly
// wrapped) for files that cannot produce a Track.
type Reader interface {
	ReadTrack(path string) (*model.Track, error)
}

// ReaderFunc adapts a function to the Reader interface.
type ReaderFunc func(path string) (*model.Track, error)

// ReadTrack calls f(path).
func (f ReaderFunc) ReadTrack(path string) (*model.Track, error) {
	return f(path)
}

// TagReader reads ID3v2 tags from MP3 files and Vorbis comments from FLAC files.
//
// The format is chosen by file extension. Album and track number are optional;
// artist and title are required and never guessed.
//
// Example:
//
//	reader := NewTagReader()
//	track, err := reader.ReadTrack("/music/song.flac")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(track.Artist, "-", track.Title)
type TagReader struct{}

// NewTagReader creates a new TagReader.
func NewTagReader() *TagReader {
	return &TagReader{}
}

// ReadTrack reads the tags of the file at path.
func (r *TagReader) ReadTrack(path string) (*model.Track, error) {
	var (
		track *model.Track
		err   error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		track, err = readID3(path)
	case ".flac":
		track, err = readFLAC(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	track.Path = path
	track.Artist = strings.TrimSpace(track.Artist)
	track.Title = strings.TrimSpace(track.Title)
	track.Album = strings.TrimSpace(track.Album)

	if track.Artist == "" || track.Title == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingMetadata, filepath.Base(path))
	}
	return track, nil
}

// readID3 reads the TPE1, TIT2, TALB and TRCK frames of an MP3 file.
func readID3(path string) (*model.Track, error) {
	tag, err := id3v2.Open(path, id3v2.Options{
		Parse:       true,
		ParseFrames: []string{"Artist", "Title", "Album", "Track number/Position in set"},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	defer tag.Close()

	return &model.Track{
		Artist: tag.Artist(),
		Title:  tag.Title(),
		Album:  tag.Album(),
		Number: parseTrackNumber(tag.GetTextFrame(tag.CommonID("Track number/Position in set")).Text),
	}, nil
}

// readFLAC reads the ARTIST, TITLE, ALBUM and TRACKNUMBER comments of a FLAC file.
func readFLAC(path string) (*model.Track, error) {
	f, err := flac.ParseMetadata(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	track := &model.Track{}
	for _, block := range f.Meta {
		if block.Type != flac.VorbisComment {
			continue
		}
		cmt, err := flacvorbis.ParseFromMetaDataBlock(*block)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
		}
		track.Artist = firstComment(cmt, flacvorbis.FIELD_ARTIST)
		track.Title = firstComment(cmt, flacvorbis.FIELD_TITLE)
		track.Album = firstComment(cmt, flacvorbis.FIELD_ALBUM)
		track.Number = parseTrackNumber(firstComment(cmt, flacvorbis.FIELD_TRACKNUMBER))
		break
	}

	return track, nil
}

func firstComment(cmt *flacvorbis.MetaDataBlockVorbisComment, field string) string {
	values, err := cmt.Get(field)
	if err != nil || len(values) == 0 {
		return ""
	}
	return values[0]
}

// parseTrackNumber parses "3" or "3/12" into 3. Anything else yields 0.
func parseTrackNumber(s string) int {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
