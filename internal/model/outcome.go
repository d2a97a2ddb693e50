package model

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Outcome is the final disposition of one file handled by the download manager.
type Outcome int

const (
	// OutcomeSkipped means a valid sidecar already existed; nothing was done.
	OutcomeSkipped Outcome = iota

	// OutcomeDownloaded means a sidecar was fetched and written.
	OutcomeDownloaded

	// OutcomeUnsupportedFormat means the tag reader does not handle the file.
	OutcomeUnsupportedFormat

	// OutcomeMissingMetadata means the file has no artist or no title tag.
	OutcomeMissingMetadata

	// OutcomeNoSearchResult means the search page listed no matching entry.
	OutcomeNoSearchResult

	// OutcomeNoLyricsFile means the lyrics page had no downloadable lyrics link.
	OutcomeNoLyricsFile

	// OutcomeTransportError means an HTTP request failed or returned a bad status.
	OutcomeTransportError

	// OutcomeKnownMiss means the miss cache remembered a recent miss for the track.
	OutcomeKnownMiss

	// OutcomeFilesystemError means the sidecar could not be inspected or written.
	OutcomeFilesystemError

	// OutcomeCancelled means the run was cancelled before the file was finished.
	OutcomeCancelled

	// OutcomePlanned means a dry run stopped before the network; the file
	// would have been fetched.
	OutcomePlanned
)

var outcomeNames = map[Outcome]string{
	OutcomeSkipped:           "skipped",
	OutcomeDownloaded:        "downloaded",
	OutcomeUnsupportedFormat: "unsupported-format",
	OutcomeMissingMetadata:   "missing-metadata",
	OutcomeNoSearchResult:    "no-search-result",
	OutcomeNoLyricsFile:      "no-lyrics-file",
	OutcomeTransportError:    "transport-error",
	OutcomeKnownMiss:         "known-miss",
	OutcomeFilesystemError:   "filesystem-error",
	OutcomeCancelled:         "cancelled",
	OutcomePlanned:           "planned",
}

// String returns the outcome's kebab-case name.
func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// IsFailure reports whether the outcome should be reported as a failure
// rather than a success or a no-op.
func (o Outcome) IsFailure() bool {
	switch o {
	case OutcomeSkipped, OutcomeDownloaded, OutcomePlanned:
		return false
	default:
		return true
	}
}

// IsMiss reports whether the site has no lyrics for the track.
// Misses are what the miss cache and the missing-lyrics report track.
func (o Outcome) IsMiss() bool {
	return o == OutcomeNoSearchResult || o == OutcomeNoLyricsFile || o == OutcomeKnownMiss
}

// Result records what happened to one file.
type Result struct {
	// Path is the media file.
	Path string

	// Track holds the tags, or nil if the task ended before they were read.
	Track *Track

	// Outcome is the final disposition.
	Outcome Outcome

	// Err is the underlying error for failure outcomes, nil otherwise.
	Err error

	// Duration is the wall time spent on the file.
	Duration time.Duration
}

// Summary counts results per outcome.
//
// The zero value is ready to use. Summary is not safe for concurrent use.
type Summary struct {
	counts map[Outcome]int
	total  int
}

// Add counts one result.
func (s *Summary) Add(r Result) {
	if s.counts == nil {
		s.counts = make(map[Outcome]int)
	}
	s.counts[r.Outcome]++
	s.total++
}

// Count returns how many results had outcome o.
func (s *Summary) Count(o Outcome) int {
	return s.counts[o]
}

// Total returns how many results were added.
func (s *Summary) Total() int {
	return s.total
}

// Failures returns how many results had a failure outcome.
func (s *Summary) Failures() int {
	n := 0
	for o, c := range s.counts {
		if o.IsFailure() {
			n += c
		}
	}
	return n
}

// String renders the non-zero counts as "name=count" pairs in outcome order.
func (s *Summary) String() string {
	outcomes := make([]Outcome, 0, len(s.counts))
	for o := range s.counts {
		outcomes = append(outcomes, o)
	}
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i] < outcomes[j] })

	parts := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		parts = append(parts, fmt.Sprintf("%s=%d", o, s.counts[o]))
	}
	return strings.Join(parts, " ")
}
