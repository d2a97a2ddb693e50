package lyrics

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/handiism/lrc-downloader/internal/model"
)

const (
	searchPage = `<html><body>
		<a href="/about" class="nav">About</a>
		<div class="li"><a href="/lyrics/daft-punk/one-more-time" class="title">Daft Punk - One More Time</a></div>
		<div class="li"><a href="/lyrics/daft-punk/one-more-time-live" class="title big">Daft Punk - One More Time (Live)</a></div>
	</body></html>`

	lyricsPage = `<html><body>
		<h1>One More Time</h1>
		<a href="/lrc/daft-punk/one-more-time"><span>Daft Punk - One More Time.lrc</span></a>
	</body></html>`

	downloadPage = `<html><body>
		<p>Your download is ready. <a href="/files/one-more-time.lrc"> Click Here </a></p>
	</body></html>`
)

func parse(t *testing.T, s string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		t.Fatalf("html.Parse() error = %v", err)
	}
	return doc
}

// fakeFetcher serves parsed pages by URL and records every request.
type fakeFetcher struct {
	pages    map[string]string
	requests []string
	err      error
}

func (f *fakeFetcher) GetPage(_ context.Context, rawURL string) (*html.Node, error) {
	f.requests = append(f.requests, rawURL)
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.pages[rawURL]
	if !ok {
		body = "<html><body></body></html>"
	}
	return html.Parse(strings.NewReader(body))
}

func mustBase(t *testing.T) *url.URL {
	t.Helper()
	u, err := url.Parse("https://www.lyricsify.com")
	if err != nil {
		t.Fatal(err)
	}
	return u
}

var daftPunk = &model.Track{Artist: "Daft Punk", Title: "One More Time"}

func TestSearchURL(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		endpoint string
		artist   string
		title    string
		want     string
	}{
		{
			name:     "spaces as percent twenty",
			base:     "https://www.lyricsify.com",
			endpoint: "/search",
			artist:   "Daft Punk",
			title:    "One More Time",
			want:     "https://www.lyricsify.com/search?q=Daft%20Punk%20One%20More%20Time",
		},
		{
			name:     "reserved characters escaped",
			base:     "https://www.lyricsify.com",
			endpoint: "/search",
			artist:   "AC/DC",
			title:    "Rock & Roll?",
			want:     "https://www.lyricsify.com/search?q=AC%2FDC%20Rock%20%26%20Roll%3F",
		},
		{
			name:     "base with path",
			base:     "http://127.0.0.1:8080/site/",
			endpoint: "/search",
			artist:   "A",
			title:    "B",
			want:     "http://127.0.0.1:8080/search?q=A%20B",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, err := url.Parse(tt.base)
			if err != nil {
				t.Fatal(err)
			}
			if got := SearchURL(base, tt.endpoint, tt.artist, tt.title); got != tt.want {
				t.Errorf("SearchURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTitleAnchors(t *testing.T) {
	got := TitleAnchors(parse(t, searchPage))
	if len(got) != 2 {
		t.Fatalf("TitleAnchors() returned %d anchors, want 2", len(got))
	}
	if got[0].Href != "/lyrics/daft-punk/one-more-time" {
		t.Errorf("first href = %q", got[0].Href)
	}
	if got[1].Text != "Daft Punk - One More Time (Live)" {
		t.Errorf("second text = %q", got[1].Text)
	}

	none := TitleAnchors(parse(t, `<a class="title">no href</a><a href="/x" class="subtitle">x</a>`))
	if len(none) != 0 {
		t.Errorf("TitleAnchors() = %v, want none", none)
	}
}

func TestLRCFileLink(t *testing.T) {
	tests := []struct {
		name   string
		html   string
		want   string
		wantOK bool
	}{
		{
			name:   "span inside anchor",
			html:   lyricsPage,
			want:   "/lrc/daft-punk/one-more-time",
			wantOK: true,
		},
		{
			name:   "nested deeper",
			html:   `<a href="/dl"><div><b><i>song.LRC</i></b></div></a>`,
			want:   "/dl",
			wantOK: true,
		},
		{
			name:   "first match wins",
			html:   `<a href="/one">a.lrc</a><a href="/two">b.lrc</a>`,
			want:   "/one",
			wantOK: true,
		},
		{
			name:   "skips text without enclosing link",
			html:   `<p>readme.lrc</p><a href="/two">b.lrc</a>`,
			want:   "/two",
			wantOK: true,
		},
		{
			name:   "no lrc file",
			html:   `<a href="/lyrics">Plain lyrics only</a>`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := LRCFileLink(parse(t, tt.html))
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("LRCFileLink() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestClickHereLink(t *testing.T) {
	got, ok := ClickHereLink(parse(t, downloadPage))
	if !ok || got != "/files/one-more-time.lrc" {
		t.Errorf("ClickHereLink() = (%q, %v)", got, ok)
	}

	if _, ok := ClickHereLink(parse(t, `<a href="/x">click here to subscribe</a>`)); ok {
		t.Error("ClickHereLink() matched partial text")
	}
}

func TestStrategies(t *testing.T) {
	candidates := []Anchor{
		{Href: "/a", Text: "Some Cover Band - One More Time (Karaoke Version)"},
		{Href: "/b", Text: "Daft Punk - One More Time"},
		{Href: "/c", Text: "Daft Punk - One More Time"},
	}

	if a, ok := FirstMatch.Select(candidates, daftPunk); !ok || a.Href != "/a" {
		t.Errorf("FirstMatch = %v, %v", a, ok)
	}
	if a, ok := ClosestMatch.Select(candidates, daftPunk); !ok || a.Href != "/b" {
		t.Errorf("ClosestMatch = %v, %v; want /b (ties go to the earlier anchor)", a, ok)
	}
	if _, ok := ClosestMatch.Select(nil, daftPunk); ok {
		t.Error("ClosestMatch on empty candidates reported ok")
	}

	for _, name := range []string{"", "first", "Closest"} {
		if _, err := ParseStrategy(name); err != nil {
			t.Errorf("ParseStrategy(%q) error = %v", name, err)
		}
	}
	if _, err := ParseStrategy("random"); err == nil {
		t.Error("ParseStrategy(random) expected error")
	}
}

func TestResolver_ThreeHop(t *testing.T) {
	base := mustBase(t)
	f := &fakeFetcher{pages: map[string]string{
		"https://www.lyricsify.com/search?q=Daft%20Punk%20One%20More%20Time": searchPage,
		"https://www.lyricsify.com/lyrics/daft-punk/one-more-time":           lyricsPage,
	}}

	hops, err := NewLayout(LayoutThreeHop, "/search", FirstMatch)
	if err != nil {
		t.Fatal(err)
	}
	r := NewResolver(base, hops)

	got, err := r.Resolve(context.Background(), f, daftPunk)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if want := "https://www.lyricsify.com/lrc/daft-punk/one-more-time"; got != want {
		t.Errorf("Resolve() = %q, want %q", got, want)
	}
	if len(f.requests) != 2 {
		t.Errorf("requests = %v, want 2", f.requests)
	}
}

func TestResolver_FourHop(t *testing.T) {
	base := mustBase(t)
	f := &fakeFetcher{pages: map[string]string{
		"https://www.lyricsify.com/search?q=Daft%20Punk%20One%20More%20Time": searchPage,
		"https://www.lyricsify.com/lyrics/daft-punk/one-more-time":           lyricsPage,
		"https://www.lyricsify.com/lrc/daft-punk/one-more-time":              downloadPage,
	}}

	hops, err := NewLayout(LayoutFourHop, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := NewResolver(base, hops).Resolve(context.Background(), f, daftPunk)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if want := "https://www.lyricsify.com/files/one-more-time.lrc"; got != want {
		t.Errorf("Resolve() = %q, want %q", got, want)
	}
}

func TestResolver_ShortCircuit(t *testing.T) {
	base := mustBase(t)
	search := "https://www.lyricsify.com/search?q=Daft%20Punk%20One%20More%20Time"

	tests := []struct {
		name         string
		layout       string
		pages        map[string]string
		wantErr      error
		wantRequests int
	}{
		{
			name:         "empty search page",
			layout:       LayoutThreeHop,
			pages:        map[string]string{},
			wantErr:      ErrNoSearchResult,
			wantRequests: 1,
		},
		{
			name:   "lyrics page without lrc",
			layout: LayoutFourHop,
			pages: map[string]string{
				search: searchPage,
			},
			wantErr:      ErrNoLyricsFile,
			wantRequests: 2,
		},
		{
			name:   "download page without click here",
			layout: LayoutFourHop,
			pages: map[string]string{
				search: searchPage,
				"https://www.lyricsify.com/lyrics/daft-punk/one-more-time": lyricsPage,
			},
			wantErr:      ErrNoDownloadLink,
			wantRequests: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hops, err := NewLayout(tt.layout, "/search", FirstMatch)
			if err != nil {
				t.Fatal(err)
			}
			f := &fakeFetcher{pages: tt.pages}
			_, err = NewResolver(base, hops).Resolve(context.Background(), f, daftPunk)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Resolve() error = %v, want %v", err, tt.wantErr)
			}
			if len(f.requests) != tt.wantRequests {
				t.Errorf("requests = %d, want %d", len(f.requests), tt.wantRequests)
			}
		})
	}

	if !errors.Is(ErrNoDownloadLink, ErrNoLyricsFile) {
		t.Error("ErrNoDownloadLink should wrap ErrNoLyricsFile")
	}
}

func TestResolver_FetchError(t *testing.T) {
	boom := errors.New("connection reset")
	hops, _ := NewLayout(LayoutThreeHop, "/search", FirstMatch)
	f := &fakeFetcher{err: boom}

	_, err := NewResolver(mustBase(t), hops).Resolve(context.Background(), f, daftPunk)
	if !errors.Is(err, boom) {
		t.Errorf("Resolve() error = %v, want %v", err, boom)
	}
	if errors.Is(err, ErrNoSearchResult) || errors.Is(err, ErrNoLyricsFile) {
		t.Error("fetch error classified as a miss")
	}
}

func TestNewLayout_Unknown(t *testing.T) {
	if _, err := NewLayout("five-hop", "/search", FirstMatch); err == nil {
		t.Error("NewLayout() expected error for unknown layout")
	}
}
