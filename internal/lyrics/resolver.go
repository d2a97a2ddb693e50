package lyrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/net/html"

	"github.com/handiism/lrc-downloader/internal/model"
)

var (
	// ErrNoSearchResult is returned when the search page lists no result.
	ErrNoSearchResult = errors.New("no search result")

	// ErrNoLyricsFile is returned when the lyrics page names no .lrc file.
	ErrNoLyricsFile = errors.New("no lyrics file")

	// ErrNoDownloadLink is returned when the download page has no "click here"
	// link. It wraps ErrNoLyricsFile: to the caller the track simply has no
	// lyrics file.
	ErrNoDownloadLink = fmt.Errorf("no download link: %w", ErrNoLyricsFile)
)

// Layout names accepted by NewLayout.
const (
	// LayoutThreeHop: search page, lyrics page, then the .lrc link is the file.
	LayoutThreeHop = "three-hop"
	// LayoutFourHop: search page, lyrics page, download page with a
	// "click here" link, then the file.
	LayoutFourHop = "four-hop"
)

// Fetcher retrieves and parses one page. *http.Session implements it.
type Fetcher interface {
	GetPage(ctx context.Context, rawURL string) (*html.Node, error)
}

// Hop is one step of the resolution chain.
type Hop struct {
	// Name identifies the hop in errors and logs.
	Name string

	// Request returns the URL to fetch. prev is the link extracted by the
	// previous hop, already resolved against the base URL; it is empty for
	// the first hop.
	Request func(base *url.URL, track *model.Track, prev string) (string, error)

	// Extract returns the raw href to follow from the fetched page.
	Extract func(doc *html.Node, track *model.Track) (string, bool)

	// Missing is returned when Extract finds nothing.
	Missing error
}

// SearchHop returns the first hop: query the search endpoint and pick a
// result with strategy.
func SearchHop(searchPath string, strategy Strategy) Hop {
	return Hop{
		Name: "search",
		Request: func(base *url.URL, track *model.Track, _ string) (string, error) {
			return SearchURL(base, searchPath, track.Artist, track.Title), nil
		},
		Extract: func(doc *html.Node, track *model.Track) (string, bool) {
			a, ok := strategy.Select(TitleAnchors(doc), track)
			return a.Href, ok
		},
		Missing: ErrNoSearchResult,
	}
}

// LyricsPageHop follows the chosen search result and finds the .lrc link.
func LyricsPageHop() Hop {
	return Hop{
		Name:    "lyrics page",
		Request: followPrevious,
		Extract: func(doc *html.Node, _ *model.Track) (string, bool) {
			return LRCFileLink(doc)
		},
		Missing: ErrNoLyricsFile,
	}
}

// DownloadPageHop follows the .lrc link to an intermediate page and finds
// the "click here" link.
func DownloadPageHop() Hop {
	return Hop{
		Name:    "download page",
		Request: followPrevious,
		Extract: func(doc *html.Node, _ *model.Track) (string, bool) {
			return ClickHereLink(doc)
		},
		Missing: ErrNoDownloadLink,
	}
}

func followPrevious(_ *url.URL, _ *model.Track, prev string) (string, error) {
	if prev == "" {
		return "", errors.New("no link from previous hop")
	}
	return prev, nil
}

// NewLayout returns the hop chain for a layout name.
func NewLayout(name, searchPath string, strategy Strategy) ([]Hop, error) {
	if strategy == nil {
		strategy = FirstMatch
	}
	if searchPath == "" {
		searchPath = DefaultSearchPath
	}

	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", LayoutThreeHop:
		return []Hop{SearchHop(searchPath, strategy), LyricsPageHop()}, nil
	case LayoutFourHop:
		return []Hop{SearchHop(searchPath, strategy), LyricsPageHop(), DownloadPageHop()}, nil
	default:
		return nil, fmt.Errorf("unknown resolver layout %q", name)
	}
}

// Resolver runs a hop chain and returns the lyrics file URL.
//
// A Resolver holds no per-request state and can be shared between tasks;
// the Fetcher passed to Resolve carries the per-task session.
type Resolver struct {
	base   *url.URL
	hops   []Hop
	logger *log.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithLogger sets the logger used for hop-level debug output.
func WithLogger(l *log.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewResolver creates a Resolver for the given site and hop chain.
func NewResolver(base *url.URL, hops []Hop, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		base:   base,
		hops:   hops,
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Hops returns the number of hops in the chain, not counting the final
// download of the file.
func (r *Resolver) Hops() int {
	return len(r.hops)
}

// Resolve runs every hop in order and returns the absolute URL of the
// lyrics file.
//
// The chain stops at the first hop whose element is missing and returns that
// hop's sentinel (ErrNoSearchResult, ErrNoLyricsFile or ErrNoDownloadLink).
// Fetch errors are returned wrapped with the hop name.
func (r *Resolver) Resolve(ctx context.Context, f Fetcher, track *model.Track) (string, error) {
	var link string
	for _, hop := range r.hops {
		target, err := hop.Request(r.base, track, link)
		if err != nil {
			return "", fmt.Errorf("%s: %w", hop.Name, err)
		}
		r.logger.Debug("fetching", "hop", hop.Name, "url", target, "track", track)

		doc, err := f.GetPage(ctx, target)
		if err != nil {
			return "", fmt.Errorf("%s: %w", hop.Name, err)
		}

		href, ok := hop.Extract(doc, track)
		if !ok {
			return "", fmt.Errorf("%s %s: %w", hop.Name, target, hop.Missing)
		}

		link, err = ResolveLink(r.base, href)
		if err != nil {
			return "", fmt.Errorf("%s: bad link %q: %w", hop.Name, href, err)
		}
		r.logger.Debug("resolved", "hop", hop.Name, "link", link)
	}

	if link == "" {
		return "", errors.New("empty hop chain")
	}
	return link, nil
}
