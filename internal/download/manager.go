package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/url"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/handiism/lrc-downloader/internal/audio"
	"github.com/handiism/lrc-downloader/internal/cache"
	"github.com/handiism/lrc-downloader/internal/config"
	lrchttp "github.com/handiism/lrc-downloader/internal/http"
	ioutils "github.com/handiism/lrc-downloader/internal/io"
	"github.com/handiism/lrc-downloader/internal/library"
	"github.com/handiism/lrc-downloader/internal/lyrics"
	"github.com/handiism/lrc-downloader/internal/model"
	"github.com/handiism/lrc-downloader/internal/sidecar"
)

// ErrNoSource is returned by Run when the path source is nil.
var ErrNoSource = errors.New("no path source")

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent represents a progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
}

// MissCache remembers tracks the site recently had no lyrics for.
// *cache.MissCache implements it.
type MissCache interface {
	Lookup(ctx context.Context, artist, title string, ttl time.Duration) (cache.Miss, bool, error)
	Record(ctx context.Context, artist, title string, outcome model.Outcome) error
}

// Progress is a snapshot of the manager's counters.
type Progress struct {
	Discovered    int32
	Processed     int32
	Downloaded    int32
	ReceivedBytes int64
	InFlight      int
}

// Report is the aggregate of one run.
type Report struct {
	// Results holds one entry per discovered path, sorted by path.
	Results []model.Result
	Summary model.Summary

	// PeakConcurrency is the highest number of tasks that were in their
	// network phase at the same time.
	PeakConcurrency int
	Elapsed         time.Duration

	// ReportPath is the missing-lyrics playlist written after the run, if any.
	ReportPath string
}

// Option configures a Manager.
type Option func(*Manager)

// WithReader replaces the tag reader.
func WithReader(r audio.Reader) Option {
	return func(m *Manager) { m.reader = r }
}

// WithHTTPClient replaces the HTTP client built from the settings.
func WithHTTPClient(c *lrchttp.Client) Option {
	return func(m *Manager) { m.client = c }
}

// WithLogger sets the logger used for hop-level debug output.
func WithLogger(l *log.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithProgress registers the progress callback. It may be called from many
// goroutines at once.
func WithProgress(fn func(ProgressEvent)) Option {
	return func(m *Manager) { m.onProgress = fn }
}

// WithMissCache enables the miss cache.
func WithMissCache(c MissCache) Option {
	return func(m *Manager) { m.misses = c }
}

// WithDryRun stops every task before the network: sidecars are evaluated and
// tags read, nothing is fetched or written.
func WithDryRun(dryRun bool) Option {
	return func(m *Manager) { m.dryRun = dryRun }
}

// Manager fetches missing lyrics sidecars for a stream of media files.
//
// Every file is an independent task. Tasks evaluate the existing sidecar and
// read tags freely; only the network phase (search, hops, download) is
// bounded by the admission gate of size MaxConcurrentRequests. A failing task
// never affects its siblings: its outcome is recorded and the run goes on.
type Manager struct {
	settings config.Settings

	reader   audio.Reader
	sidecars *sidecar.Manager
	client   *lrchttp.Client
	resolver *lyrics.Resolver
	gate     *Gate
	misses   MissCache
	playlist *audio.PlaylistCreator
	logger   *log.Logger
	dryRun   bool

	discovered    atomic.Int32
	processed     atomic.Int32
	downloaded    atomic.Int32
	receivedBytes atomic.Int64

	onProgress func(ProgressEvent)
}

// NewManager creates a Manager from validated settings.
//
// Example:
//
//	settings := config.DefaultSettings()
//	manager, err := download.NewManager(*settings,
//	    download.WithLogger(logger),
//	    download.WithProgress(func(e download.ProgressEvent) { fmt.Println(e.Message) }),
//	)
//	if err != nil {
//	    return err
//	}
//	report, err := manager.RunLibrary(ctx, "/music")
func NewManager(settings config.Settings, opts ...Option) (*Manager, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	m := &Manager{
		settings: settings,
		reader:   audio.NewTagReader(),
		sidecars: sidecar.NewManager(settings.SidecarExtension),
		gate:     NewGate(settings.MaxConcurrentRequests),
		logger:   log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.client == nil {
		client, err := m.newClient()
		if err != nil {
			return nil, err
		}
		m.client = client
	}

	base, err := url.Parse(settings.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	strategy, err := lyrics.ParseStrategy(settings.SearchStrategy)
	if err != nil {
		return nil, err
	}
	hops, err := lyrics.NewLayout(settings.ResolverLayout, settings.SearchPath, strategy)
	if err != nil {
		return nil, err
	}
	m.resolver = lyrics.NewResolver(base, hops, lyrics.WithLogger(m.logger))

	format, err := audio.ParsePlaylistFormat(settings.ReportFormat)
	if err != nil {
		return nil, err
	}
	m.playlist = audio.NewPlaylistCreator(format, settings.M3UExtended)

	return m, nil
}

func (m *Manager) newClient() (*lrchttp.Client, error) {
	enc, err := lrchttp.LookupEncoding(m.settings.PageEncoding)
	if err != nil {
		return nil, err
	}

	opts := []lrchttp.Option{
		lrchttp.WithUserAgent(m.settings.UserAgent),
		lrchttp.WithAcceptEncoding(m.settings.AcceptEncoding),
		lrchttp.WithTimeout(m.settings.RequestTimeout()),
		lrchttp.WithPageEncoding(enc),
		lrchttp.WithByteCounter(func(n int64) { m.receivedBytes.Add(n) }),
	}
	if rps := m.settings.RequestsPerSecond; rps > 0 {
		opts = append(opts, lrchttp.WithRateLimiter(rate.NewLimiter(rate.Limit(rps), 1)))
	}
	return lrchttp.NewClient(opts...), nil
}

// RunLibrary validates root and runs over every file below it.
//
// An unreadable root is the only fatal error; it is returned before any task
// starts and wraps library.ErrRootUnreadable.
func (m *Manager) RunLibrary(ctx context.Context, root string) (*Report, error) {
	walker := library.NewWalker(root,
		library.WithExtensions(m.settings.Extensions...),
		library.WithSidecarExtension(m.settings.SidecarExtension),
	)
	if err := walker.Validate(); err != nil {
		return nil, err
	}
	m.progress(ProgressEvent{Message: fmt.Sprintf("Scanning %s", root), Level: LevelInfo})
	return m.Run(ctx, walker.Files())
}

// Run starts one task per path and waits for all of them.
//
// Paths are consumed lazily; at most MaxPendingTasks tasks exist at once, so
// a very large library never materializes in memory. Errors yielded by the
// source (unreadable subtrees) become filesystem-error results.
//
// Run returns ctx.Err() when the run was cancelled, together with the report
// of everything that finished.
func (m *Manager) Run(ctx context.Context, paths iter.Seq2[string, error]) (*Report, error) {
	if paths == nil {
		return nil, ErrNoSource
	}

	start := time.Now()

	var (
		mu      sync.Mutex
		results []model.Result
	)
	collect := func(r model.Result) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.settings.MaxPendingTasks)

	for path, err := range paths {
		if ctx.Err() != nil {
			break
		}
		m.discovered.Add(1)

		if err != nil {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Cannot read %s: %v", path, err), Level: LevelWarning})
			m.processed.Add(1)
			collect(model.Result{Path: path, Outcome: model.OutcomeFilesystemError, Err: err})
			continue
		}

		g.Go(func() error {
			collect(m.process(gctx, path))
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })

	report := &Report{
		Results:         results,
		PeakConcurrency: m.gate.Peak(),
	}
	for _, r := range results {
		report.Summary.Add(r)
	}

	if err := ctx.Err(); err != nil {
		report.Elapsed = time.Since(start)
		return report, err
	}

	if m.settings.ReportPath != "" && !m.dryRun {
		if err := m.writeReport(ctx, results); err != nil {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error writing report: %v", err), Level: LevelWarning})
		} else {
			report.ReportPath = m.settings.ReportPath
		}
	}

	report.Elapsed = time.Since(start)
	m.progress(ProgressEvent{
		Message: fmt.Sprintf("Finished %d files in %s: %s", report.Summary.Total(), report.Elapsed.Round(time.Millisecond), &report.Summary),
		Level:   LevelSuccess,
	})
	return report, nil
}

// GetProgress returns the current counters.
func (m *Manager) GetProgress() Progress {
	return Progress{
		Discovered:    m.discovered.Load(),
		Processed:     m.processed.Load(),
		Downloaded:    m.downloaded.Load(),
		ReceivedBytes: m.receivedBytes.Load(),
		InFlight:      m.gate.InUse(),
	}
}

func (m *Manager) writeReport(ctx context.Context, results []model.Result) error {
	content := m.playlist.CreatePlaylist(results)
	if err := ioutils.WriteFileAtomic(ctx, m.settings.ReportPath, []byte(content), 0644); err != nil {
		return err
	}
	m.progress(ProgressEvent{Message: fmt.Sprintf("Wrote missing-lyrics report %s", filepath.Base(m.settings.ReportPath)), Level: LevelInfo})
	return nil
}

func (m *Manager) waitForRetry(ctx context.Context, tries int) {
	select {
	case <-ctx.Done():
	case <-time.After(m.settings.RetryDelay(tries)):
	}
}

func (m *Manager) progress(event ProgressEvent) {
	if m.onProgress != nil {
		m.onProgress(event)
	}
}
