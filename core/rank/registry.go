package rank

import (
	"fmt"
	"sort"

	"github.com/FocuswithJustin/JuniperAnswers/core/contexts"
	"github.com/FocuswithJustin/JuniperAnswers/core/errors"
)

// Options carries the dependencies optional filters need.
type Options struct {
	// Searcher backs the similarity filters. May be nil.
	Searcher Searcher

	// SimilarityLimit caps how many search results are scored.
	SimilarityLimit int
}

type filterFactory func(scriptures []contexts.Scripture, opts Options) Filter

var factories = map[string]filterFactory{
	"people":  func(s []contexts.Scripture, _ Options) Filter { return NewPeopleFilter(s) },
	"places":  func(s []contexts.Scripture, _ Options) Filter { return NewPlacesFilter(s) },
	"actions": func(s []contexts.Scripture, _ Options) Filter { return NewActionsFilter(s) },
	"section": func(s []contexts.Scripture, _ Options) Filter { return NewSectionAffinityFilter(s) },
	"words":   func(s []contexts.Scripture, _ Options) Filter { return NewSignificantWordsFilter(s) },
	"similarity": func(_ []contexts.Scripture, o Options) Filter {
		return NewSimilarityFilter(o.Searcher, o.SimilarityLimit)
	},
	"question-similarity": func(s []contexts.Scripture, o Options) Filter {
		return NewQuestionSimilarityFilter(NewSignificantWordsFilter(s), NewSimilarityFilter(o.Searcher, o.SimilarityLimit))
	},
	"verse-in-question": func(s []contexts.Scripture, _ Options) Filter { return NewVerseInQuestionFilter(s) },
	"relating-to":       func(_ []contexts.Scripture, _ Options) Filter { return NewRelatingToFilter() },
	"situation":         func(_ []contexts.Scripture, _ Options) Filter { return NewSituationFilter() },
	"question-type":     func(_ []contexts.Scripture, _ Options) Filter { return NewQuestionTypeFilter() },
}

// DefaultFilters is the pipeline used when none is configured.
var DefaultFilters = []string{
	"people",
	"places",
	"actions",
	"section",
	"question-similarity",
	"verse-in-question",
	"relating-to",
	"situation",
	"question-type",
}

// FilterNames lists every name BuildFilters accepts, sorted.
func FilterNames() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuildFilters instantiates the named filters in order.
func BuildFilters(names []string, scriptures []contexts.Scripture, opts Options) ([]Filter, error) {
	filters := make([]Filter, 0, len(names))
	for _, name := range names {
		factory, ok := factories[name]
		if !ok {
			return nil, errors.NewUnsupported("filter", fmt.Sprintf("unknown name %q", name))
		}
		filters = append(filters, factory(scriptures, opts))
	}
	return filters, nil
}
