package lyrics

import (
	"net/url"
	"strings"
)

// DefaultSearchPath is the search endpoint of the lyrics site.
const DefaultSearchPath = "/search"

// SearchURL builds the search request for a track.
//
// The query is "artist title", escaped with spaces encoded as %20 rather than
// "+", and appended as the q parameter of the endpoint resolved against base.
//
// Example:
//
//	base, _ := url.Parse("https://www.lyricsify.com")
//	SearchURL(base, "/search", "Daft Punk", "One More Time")
//	// https://www.lyricsify.com/search?q=Daft%20Punk%20One%20More%20Time
func SearchURL(base *url.URL, endpoint, artist, title string) string {
	u := base.ResolveReference(&url.URL{Path: endpoint})
	q := strings.ReplaceAll(url.QueryEscape(artist+" "+title), "+", "%20")
	u.RawQuery = "q=" + q
	u.Fragment = ""
	return u.String()
}

// ResolveLink resolves an extracted href against the site base URL.
func ResolveLink(base *url.URL, href string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}
