package http

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"golang.org/x/net/html"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/time/rate"
)

const (
	// DefaultUserAgent is a desktop browser User-Agent; the site serves
	// simplified markup to unknown agents.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/96.0.4664.110 Safari/537.36"

	// DefaultAcceptEncoding is sent on every request.
	DefaultAcceptEncoding = "gzip, deflate"

	// DefaultTimeout bounds a single request including the body read.
	DefaultTimeout = 60 * time.Second
)

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s (%s)", e.StatusCode, e.Status, e.URL)
}

// Client holds the immutable request configuration shared by all sessions.
//
// Client provides:
//   - The header set sent on every request
//   - The charset used to decode HTML pages
//   - An optional rate limiter shared by all sessions
//
// Example usage:
//
//	client := NewClient(
//	    WithTimeout(30*time.Second),
//	    WithPageEncoding(charmap.ISO8859_1),
//	)
//	session := client.NewSession()
//	defer session.Close()
type Client struct {
	header    http.Header
	timeout   time.Duration
	pageEnc   encoding.Encoding
	limiter   *rate.Limiter
	transport http.RoundTripper
	onBytes   func(n int64)
}

// Option configures a Client.
type Option func(*Client)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.header.Set("User-Agent", ua)
		}
	}
}

// WithAcceptEncoding sets the Accept-Encoding header.
// Only gzip and deflate responses can be decoded.
func WithAcceptEncoding(ae string) Option {
	return func(c *Client) {
		if ae != "" {
			c.header.Set("Accept-Encoding", ae)
		}
	}
}

// WithHeader sets an extra header sent on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.header.Set(key, value)
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithPageEncoding sets the charset HTML pages are decoded from.
// A nil encoding leaves page bytes untouched (UTF-8).
func WithPageEncoding(enc encoding.Encoding) Option {
	return func(c *Client) {
		c.pageEnc = enc
	}
}

// WithRateLimiter throttles every request of every session through limiter.
func WithRateLimiter(limiter *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = limiter
	}
}

// WithTransport sets the base transport. When it is an *http.Transport each
// session gets its own clone of it.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.transport = rt
	}
}

// WithByteCounter registers a callback receiving the size of every body chunk read.
func WithByteCounter(fn func(n int64)) Option {
	return func(c *Client) {
		c.onBytes = fn
	}
}

// NewClient creates a Client.
//
// The client is configured by default with:
//   - 60 second timeout
//   - A desktop browser User-Agent
//   - "Accept-Encoding: gzip, deflate" and "Upgrade-Insecure-Requests: 1"
//   - ISO-8859-1 page decoding
func NewClient(opts ...Option) *Client {
	c := &Client{
		header:  make(http.Header),
		timeout: DefaultTimeout,
		pageEnc: charmap.ISO8859_1,
	}
	c.header.Set("User-Agent", DefaultUserAgent)
	c.header.Set("Accept-Encoding", DefaultAcceptEncoding)
	c.header.Set("Upgrade-Insecure-Requests", "1")

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LookupEncoding resolves a charset name such as "iso-8859-1" or "windows-1252".
// The names "" and "utf-8" return a nil encoding, meaning no decoding.
func LookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return nil, nil
	case "iso-8859-1", "iso8859-1", "latin-1", "latin1":
		// htmlindex maps these labels to windows-1252, which differs in 0x80-0x9f.
		return charmap.ISO8859_1, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown page encoding %q: %w", name, err)
	}
	return enc, nil
}

// Session is a single task's HTTP session.
//
// A session owns its transport and cookie jar; it must not be shared between
// tasks. Close releases its idle connections.
type Session struct {
	client     *Client
	httpClient *http.Client
}

// NewSession opens a new Session.
func (c *Client) NewSession() *Session {
	transport := c.transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	if t, ok := transport.(*http.Transport); ok {
		transport = t.Clone()
	}

	jar, _ := cookiejar.New(nil)

	return &Session{
		client: c,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   c.timeout,
			Jar:       jar,
		},
	}
}

// Close releases the session's idle connections.
func (s *Session) Close() {
	s.httpClient.CloseIdleConnections()
}

// Get performs a GET request and returns the decompressed response body.
//
// Returns an error if:
//   - The rate limiter wait is interrupted by ctx
//   - The request fails
//   - The response status is not 2xx (*StatusError)
//   - Decompressing or reading the body fails
//
// Example:
//
//	data, err := session.Get(ctx, "https://www.lyricsify.com/lrc/daft-punk/one-more-time.lrc")
func (s *Session) Get(ctx context.Context, url string) ([]byte, error) {
	resp, err := s.do(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := decodeContent(resp)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	pw := &ProgressWriter{Writer: &buf, Total: resp.ContentLength}
	if s.client.onBytes != nil {
		var last int64
		pw.OnUpdate = func(written, _ int64) {
			s.client.onBytes(written - last)
			last = written
		}
	}
	if _, err := io.Copy(pw, body); err != nil {
		return nil, fmt.Errorf("read body of %s: %w", url, err)
	}
	return buf.Bytes(), nil
}

// GetPage performs a GET request, decodes the body from the client's page
// charset and parses it as HTML.
func (s *Session) GetPage(ctx context.Context, url string) (*html.Node, error) {
	data, err := s.Get(ctx, url)
	if err != nil {
		return nil, err
	}

	var r io.Reader = bytes.NewReader(data)
	if s.client.pageEnc != nil {
		r = s.client.pageEnc.NewDecoder().Reader(r)
	}

	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	return doc, nil
}

func (s *Session) do(ctx context.Context, url string) (*http.Response, error) {
	if s.client.limiter != nil {
		if err := s.client.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for key, values := range s.client.header {
		req.Header[key] = append([]string(nil), values...)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return resp, nil
}

// decodeContent wraps the response body according to its Content-Encoding.
//
// "deflate" is ambiguous in practice: servers send either zlib-wrapped or raw
// DEFLATE data, so the zlib header is sniffed first.
func decodeContent(resp *http.Response) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "", "identity":
		return resp.Body, nil
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip body: %w", err)
		}
		return zr, nil
	case "deflate":
		br := bufio.NewReader(resp.Body)
		head, _ := br.Peek(2)
		if len(head) == 2 && head[0]&0x0f == 8 && (uint16(head[0])<<8|uint16(head[1]))%31 == 0 {
			zr, err := zlib.NewReader(br)
			if err != nil {
				return nil, fmt.Errorf("deflate body: %w", err)
			}
			return zr, nil
		}
		return flate.NewReader(br), nil
	default:
		return nil, fmt.Errorf("unsupported Content-Encoding %q", resp.Header.Get("Content-Encoding"))
	}
}

// ProgressWriter wraps a writer to track download progress.
//
// Example:
//
//	pw := &ProgressWriter{
//	    Writer: &buf,
//	    Total:  contentLength,
//	    OnUpdate: func(written, total int64) {
//	        fmt.Printf("%d / %d bytes\n", written, total)
//	    },
//	}
//	io.Copy(pw, response.Body)
type ProgressWriter struct {
	// Writer is the underlying writer to write data to.
	Writer io.Writer

	// Total is the expected total bytes (from Content-Length header).
	// It is -1 when unknown or when the body is compressed.
	Total int64

	// Written is the current number of bytes written.
	Written int64

	// OnUpdate is called after each Write with current progress.
	// Parameters are (bytesWritten, totalExpected).
	OnUpdate func(written, total int64)
}

// Write implements io.Writer, tracking progress and calling OnUpdate.
func (pw *ProgressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.Written += int64(n)
	if pw.OnUpdate != nil {
		pw.OnUpdate(pw.Written, pw.Total)
	}
	return n, err
}
