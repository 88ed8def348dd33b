package vectorstores

import (
	"fmt"
)

// Options is a set of options for similarity search.
type Options struct {
	// ScoreThreshold excludes documents with a lower similarity score.
	ScoreThreshold float32
	// Filters restricts the search to documents whose metadata
	// has equal values for all the keys.
	Filters map[string]any
}

// Option is a function that configures an Options.
type Option func(*Options)

// WithScoreThreshold returns an option for setting the score threshold.
func WithScoreThreshold(scoreThreshold float32) Option {
	return func(o *Options) {
		o.ScoreThreshold = scoreThreshold
	}
}

// WithFilters returns an option for filtering by metadata.
func WithFilters(filters map[string]any) Option {
	return func(o *Options) {
		o.Filters = filters
	}
}

// NewOptions returns the options, or ErrInvalidScoreThreshold.
func NewOptions(options ...Option) (Options, error) {
	var opts Options
	for _, opt := range options {
		opt(&opts)
	}
	if opts.ScoreThreshold < 0 || opts.ScoreThreshold > 1 {
		return opts, ErrInvalidScoreThreshold
	}
	return opts, nil
}

// MatchFilters returns true if metadata has all the filter values.
// Values are compared by their string form, so 1 matches 1.0 after a JSON round trip.
func MatchFilters(metadata map[string]any, filters map[string]any) bool {
	for k, want := range filters {
		got, ok := metadata[k]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}
