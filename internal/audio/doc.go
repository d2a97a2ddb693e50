// Package audio provides audio file services: tag reading and playlist generation.
//
// # Tag Reading
//
// Use the TagReader to read the tags that identify a track's lyrics:
//
//	reader := audio.NewTagReader()
//	track, err := reader.ReadTrack("/music/01 One More Time.mp3")
//	switch {
//	case errors.Is(err, audio.ErrUnsupportedFormat):
//	    // not an MP3 or FLAC file
//	case errors.Is(err, audio.ErrMissingMetadata):
//	    // no artist or no title tag
//	}
//
// Supported formats:
//   - MP3 (ID3v2: TPE1, TIT2, TALB, TRCK)
//   - FLAC (Vorbis comments: ARTIST, TITLE, ALBUM, TRACKNUMBER)
//
// # Missing-Lyrics Playlists
//
// Generate a playlist of the tracks the lyrics site had nothing for:
//
//	creator := audio.NewPlaylistCreator(audio.FormatM3U, true) // extended M3U
//	content := creator.CreatePlaylist(results)
//
// Supported formats:
//   - M3U (with optional extended info)
//   - PLS
package audio
