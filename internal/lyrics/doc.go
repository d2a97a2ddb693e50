// Package lyrics resolves the download URL of a track's synchronized lyrics
// by scraping the lyrics site.
//
// Resolution is a chain of hops. Each hop builds a request URL from the
// previous hop's link, fetches and parses the page, and extracts the next
// link. The last extracted link is the lyrics file itself:
//
//  1. Search page: the first anchor with class "title" (or the closest one,
//     depending on the Strategy)
//  2. Lyrics page: the element enclosing a "<name>.lrc" text
//  3. Optional download page: the "click here" anchor
//
// # Basic Usage
//
//	base, _ := url.Parse("https://www.lyricsify.com")
//	hops, _ := lyrics.NewLayout(lyrics.LayoutThreeHop, "/search", lyrics.FirstMatch)
//	resolver := lyrics.NewResolver(base, hops)
//
//	link, err := resolver.Resolve(ctx, session, track)
//	switch {
//	case errors.Is(err, lyrics.ErrNoSearchResult):
//	    // the site does not know the track
//	case errors.Is(err, lyrics.ErrNoLyricsFile):
//	    // the track has no synchronized lyrics
//	}
//
// # Failure Policy
//
// Hops are never retried. A missing element means the page does not have what
// the hop expects, which far more often means "no lyrics for this track" than
// a transient failure, so the chain stops at the first miss.
package lyrics
