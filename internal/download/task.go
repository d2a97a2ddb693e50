package download

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/handiism/lrc-downloader/internal/audio"
	ioutils "github.com/handiism/lrc-downloader/internal/io"
	"github.com/handiism/lrc-downloader/internal/lyrics"
	"github.com/handiism/lrc-downloader/internal/model"
)

// process runs the whole pipeline for one media file and never fails: every
// error ends up in the returned Result.
func (m *Manager) process(ctx context.Context, path string) (res model.Result) {
	start := time.Now()
	res.Path = path
	defer func() {
		res.Duration = time.Since(start)
		m.processed.Add(1)
	}()

	name := filepath.Base(path)
	fail := func(o model.Outcome, err error) model.Result {
		res.Outcome, res.Err = o, err
		return res
	}

	if err := ctx.Err(); err != nil {
		return fail(model.OutcomeCancelled, err)
	}

	state, err := m.sidecars.Evaluate(path)
	if err != nil {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error checking sidecar of %s: %v", name, err), Level: LevelError})
		return fail(model.OutcomeFilesystemError, err)
	}
	switch state {
	case model.SidecarValid:
		m.progress(ProgressEvent{Message: fmt.Sprintf("Skipping %s: lyrics present", name), Level: LevelVerbose})
		res.Outcome = model.OutcomeSkipped
		return res
	case model.SidecarCorrupt:
		m.progress(ProgressEvent{Message: fmt.Sprintf("Removed corrupt sidecar of %s", name), Level: LevelWarning})
	}

	track, err := m.reader.ReadTrack(path)
	if err != nil {
		if errors.Is(err, audio.ErrMissingMetadata) {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Missing artist or title: %s", name), Level: LevelWarning})
			return fail(model.OutcomeMissingMetadata, err)
		}
		m.progress(ProgressEvent{Message: fmt.Sprintf("Unsupported file %s: %v", name, err), Level: LevelVerbose})
		return fail(model.OutcomeUnsupportedFormat, err)
	}
	res.Track = track

	if m.dryRun {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Would fetch lyrics for %s", track), Level: LevelInfo})
		res.Outcome = model.OutcomePlanned
		return res
	}

	if m.misses != nil {
		miss, ok, err := m.misses.Lookup(ctx, track.Artist, track.Title, m.settings.MissCacheTTL())
		switch {
		case err != nil:
			m.logger.Warn("miss cache lookup failed", "track", track, "err", err)
		case ok:
			m.progress(ProgressEvent{
				Message: fmt.Sprintf("No lyrics for %s (remembered %s, %s)", track, miss.CheckedAt.Format(time.DateOnly), miss.Outcome),
				Level:   LevelVerbose,
			})
			res.Outcome = model.OutcomeKnownMiss
			return res
		}
	}

	if err := m.gate.Acquire(ctx); err != nil {
		return fail(model.OutcomeCancelled, err)
	}
	data, err := m.fetchLyrics(ctx, track)
	m.gate.Release()

	if err != nil {
		outcome := classify(ctx, err)
		switch outcome {
		case model.OutcomeNoSearchResult, model.OutcomeNoLyricsFile:
			m.progress(ProgressEvent{Message: fmt.Sprintf("No lyrics for %s: %v", track, err), Level: LevelWarning})
			m.recordMiss(ctx, track, outcome)
		case model.OutcomeTransportError:
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error fetching lyrics for %s: %v", track, err), Level: LevelError})
		}
		return fail(outcome, err)
	}

	if err := ioutils.WriteFileAtomic(ctx, m.sidecars.Path(path), data, 0644); err != nil {
		if ctx.Err() != nil {
			return fail(model.OutcomeCancelled, err)
		}
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error writing lyrics for %s: %v", name, err), Level: LevelError})
		return fail(model.OutcomeFilesystemError, err)
	}

	m.downloaded.Add(1)
	m.progress(ProgressEvent{Message: fmt.Sprintf("Downloaded lyrics: %s", track), Level: LevelSuccess})
	res.Outcome = model.OutcomeDownloaded
	return res
}

// fetchLyrics resolves and downloads the lyrics file, retrying transport
// failures up to DownloadMaxRetries times. Structural misses are final.
func (m *Manager) fetchLyrics(ctx context.Context, track *model.Track) ([]byte, error) {
	for tries := 0; ; tries++ {
		data, err := m.fetchOnce(ctx, track)
		if err == nil {
			return data, nil
		}
		if tries >= m.settings.DownloadMaxRetries || !retryable(ctx, err) {
			return nil, err
		}

		m.progress(ProgressEvent{Message: fmt.Sprintf("Retry %d/%d for %s", tries+1, m.settings.DownloadMaxRetries, track), Level: LevelWarning})
		m.waitForRetry(ctx, tries)
	}
}

// fetchOnce runs the hop chain and the final download in a fresh session.
func (m *Manager) fetchOnce(ctx context.Context, track *model.Track) ([]byte, error) {
	session := m.client.NewSession()
	defer session.Close()

	link, err := m.resolver.Resolve(ctx, session, track)
	if err != nil {
		return nil, err
	}

	m.logger.Debug("downloading lyrics", "track", track, "url", link)
	data, err := session.Get(ctx, link)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	return data, nil
}

func (m *Manager) recordMiss(ctx context.Context, track *model.Track, outcome model.Outcome) {
	if m.misses == nil {
		return
	}
	if err := m.misses.Record(ctx, track.Artist, track.Title, outcome); err != nil {
		m.logger.Warn("miss cache record failed", "track", track, "err", err)
	}
}

func isMiss(err error) bool {
	return errors.Is(err, lyrics.ErrNoSearchResult) || errors.Is(err, lyrics.ErrNoLyricsFile)
}

func retryable(ctx context.Context, err error) bool {
	return ctx.Err() == nil && !isMiss(err)
}

// classify maps a fetch error to its outcome.
func classify(ctx context.Context, err error) model.Outcome {
	switch {
	case ctx.Err() != nil:
		return model.OutcomeCancelled
	case errors.Is(err, lyrics.ErrNoSearchResult):
		return model.OutcomeNoSearchResult
	case errors.Is(err, lyrics.ErrNoLyricsFile):
		return model.OutcomeNoLyricsFile
	default:
		return model.OutcomeTransportError
	}
}
