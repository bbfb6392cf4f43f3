package rank

import (
	"context"
	"strings"

	"github.com/FocuswithJustin/JuniperAnswers/core/contexts"
)

// Filter is one scoring strategy. Process reads the question and adjusts
// passage scores through s; it must not keep s after returning.
type Filter interface {
	Name() string
	Process(ctx context.Context, q *contexts.Question, s Scorer) error
}

// matchFunc decides whether a question value matches a scripture value.
type matchFunc func(questionValue, scriptureValue string) bool

// listFilter scores +1 for every matching (question value, scripture value)
// pair, for every scripture. Repeated matches are not deduplicated.
type listFilter struct {
	name         string
	questionKey  string
	scriptureKey string
	scriptures   []contexts.Scripture
	match        matchFunc
}

func (f *listFilter) Name() string { return f.name }

func (f *listFilter) Process(ctx context.Context, q *contexts.Question, s Scorer) error {
	values, err := q.List(f.questionKey)
	if err != nil {
		return err
	}

	for i := range f.scriptures {
		sc := &f.scriptures[i]
		targets, err := sc.List(f.scriptureKey)
		if err != nil {
			return err
		}

		hits := 0
		for _, qv := range values {
			for _, sv := range targets {
				if f.match(qv, sv) {
					hits++
				}
			}
		}
		if hits == 0 {
			continue
		}
		if err := s.AddScore(sc.Passage, hits); err != nil {
			return err
		}
	}
	return nil
}

// ExactMatchFilter scores +1 for each question value exactly equal to a
// scripture value.
type ExactMatchFilter struct {
	listFilter
}

// NewExactMatchFilter compares questionKey values with scriptureKey values.
func NewExactMatchFilter(name, questionKey, scriptureKey string, scriptures []contexts.Scripture) *ExactMatchFilter {
	return &ExactMatchFilter{listFilter{
		name:         name,
		questionKey:  questionKey,
		scriptureKey: scriptureKey,
		scriptures:   scriptures,
		match:        func(qv, sv string) bool { return qv == sv },
	}}
}

// NewPeopleFilter matches people named in the question.
func NewPeopleFilter(scriptures []contexts.Scripture) *ExactMatchFilter {
	return NewExactMatchFilter("people", contexts.KeyPeople, contexts.KeyPeople, scriptures)
}

// NewPlacesFilter matches places named in the question.
func NewPlacesFilter(scriptures []contexts.Scripture) *ExactMatchFilter {
	return NewExactMatchFilter("places", contexts.KeyPlaces, contexts.KeyPlaces, scriptures)
}

// NewActionsFilter matches actions named in the question.
func NewActionsFilter(scriptures []contexts.Scripture) *ExactMatchFilter {
	return NewExactMatchFilter("actions", contexts.KeyActions, contexts.KeyActions, scriptures)
}

// SubstringMatchFilter scores +1 for each question value contained in a
// scripture value. Matching is case-sensitive and empty question values
// never match.
type SubstringMatchFilter struct {
	listFilter
}

// NewSubstringMatchFilter looks for questionKey values inside scriptureKey values.
func NewSubstringMatchFilter(name, questionKey, scriptureKey string, scriptures []contexts.Scripture) *SubstringMatchFilter {
	return &SubstringMatchFilter{listFilter{
		name:         name,
		questionKey:  questionKey,
		scriptureKey: scriptureKey,
		scriptures:   scriptures,
		match: func(qv, sv string) bool {
			return qv != "" && strings.Contains(sv, qv)
		},
	}}
}

// NewSignificantWordsFilter matches the question's significant words against
// the questions each passage is known to answer.
func NewSignificantWordsFilter(scriptures []contexts.Scripture) *SubstringMatchFilter {
	return NewSubstringMatchFilter("words", contexts.KeySignificantWords, contexts.KeyQuestions, scriptures)
}

// SectionAffinityFilter rewards passages from the testament the question
// asks about and penalizes the other one.
type SectionAffinityFilter struct {
	scriptures []contexts.Scripture
}

// NewSectionAffinityFilter creates a section filter over scriptures.
func NewSectionAffinityFilter(scriptures []contexts.Scripture) *SectionAffinityFilter {
	return &SectionAffinityFilter{scriptures: scriptures}
}

func (f *SectionAffinityFilter) Name() string { return "section" }

func (f *SectionAffinityFilter) Process(ctx context.Context, q *contexts.Question, s Scorer) error {
	want, err := q.RequireSection()
	if err != nil {
		return err
	}
	if want == contexts.SectionNeither {
		return nil
	}

	for i := range f.scriptures {
		sc := &f.scriptures[i]
		have, err := sc.RequireSection()
		if err != nil {
			return err
		}
		if delta := want.Affinity(have); delta != 0 {
			if err := s.AddScore(sc.Passage, delta); err != nil {
				return err
			}
		}
	}
	return nil
}

// CompositeFilter runs sub-filters in registration order as one stage. The
// first sub-filter error stops the stage.
type CompositeFilter struct {
	name    string
	filters []Filter
}

// NewCompositeFilter groups filters under one name.
func NewCompositeFilter(name string, filters ...Filter) *CompositeFilter {
	return &CompositeFilter{name: name, filters: filters}
}

func (f *CompositeFilter) Name() string { return f.name }

// Filters returns the sub-filters in order.
func (f *CompositeFilter) Filters() []Filter {
	return append([]Filter(nil), f.filters...)
}

func (f *CompositeFilter) Process(ctx context.Context, q *contexts.Question, s Scorer) error {
	for _, sub := range f.filters {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := sub.Process(ctx, q, s); err != nil {
			return err
		}
	}
	return nil
}

// NewQuestionSimilarityFilter combines significant-word matching with a
// similarity search over the corpus's known questions.
func NewQuestionSimilarityFilter(words *SubstringMatchFilter, similarity *SimilarityFilter) *CompositeFilter {
	return NewCompositeFilter("question-similarity", words, similarity)
}
