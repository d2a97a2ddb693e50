package lyrics

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/handiism/lrc-downloader/internal/model"
)

// Strategy picks the search result to follow.
type Strategy interface {
	Select(candidates []Anchor, track *model.Track) (Anchor, bool)
}

// StrategyFunc adapts a function to the Strategy interface.
type StrategyFunc func(candidates []Anchor, track *model.Track) (Anchor, bool)

// Select calls f(candidates, track).
func (f StrategyFunc) Select(candidates []Anchor, track *model.Track) (Anchor, bool) {
	return f(candidates, track)
}

// FirstMatch takes the first result in site order.
var FirstMatch Strategy = StrategyFunc(func(candidates []Anchor, _ *model.Track) (Anchor, bool) {
	if len(candidates) == 0 {
		return Anchor{}, false
	}
	return candidates[0], true
})

// ClosestMatch takes the result whose text shares the most words with
// "artist title" (Jaccard similarity). Ties go to the earlier result.
var ClosestMatch Strategy = StrategyFunc(func(candidates []Anchor, track *model.Track) (Anchor, bool) {
	if len(candidates) == 0 {
		return Anchor{}, false
	}

	want := tokenSet(track.Query())
	best, bestScore := 0, -1.0
	for i, c := range candidates {
		if score := jaccard(want, tokenSet(c.Text)); score > bestScore {
			best, bestScore = i, score
		}
	}
	return candidates[best], true
})

// ParseStrategy maps a configuration value ("first", "closest") to a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "first":
		return FirstMatch, nil
	case "closest":
		return ClosestMatch, nil
	default:
		return nil, fmt.Errorf("unknown search strategy %q", name)
	}
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		set[tok] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			inter++
		}
	}
	return float64(inter) / float64(len(a)+len(b)-inter)
}
