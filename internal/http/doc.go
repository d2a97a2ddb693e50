// Package http provides the HTTP client used to talk to the lyrics site.
//
// The Client in this package handles:
//   - A fixed header set (User-Agent, Accept-Encoding, ...) sent on every request
//   - gzip and deflate response decoding, since Accept-Encoding is set explicitly
//   - Decoding HTML pages from the site's legacy single-byte charset
//   - Optional request rate limiting shared by all sessions
//
// # Sessions
//
// Each download task opens its own Session, which owns its transport and
// cookie jar. Nothing mutable is shared between sessions:
//
//	client := http.NewClient(http.WithUserAgent("Mozilla/5.0 ..."))
//
//	session := client.NewSession()
//	defer session.Close()
//
//	// Fetch and parse an HTML page
//	doc, err := session.GetPage(ctx, "https://www.lyricsify.com/search?q=...")
//
//	// Fetch raw bytes
//	data, err := session.Get(ctx, lrcURL)
//
// # Progress Tracking
//
// The ProgressWriter type can be used to wrap any io.Writer for progress tracking:
//
//	pw := &http.ProgressWriter{
//	    Writer:   &buf,
//	    OnUpdate: func(written, total int64) { /* update UI */ },
//	}
package http
