package rank

import (
	"context"

	"github.com/FocuswithJustin/JuniperAnswers/core/contexts"
	"github.com/FocuswithJustin/JuniperAnswers/core/passage"
	"github.com/FocuswithJustin/JuniperAnswers/internal/logging"
)

// placeholderFilter occupies a pipeline slot for a strategy that does not
// score yet. It never changes a score.
type placeholderFilter struct {
	name string
}

func (f *placeholderFilter) Name() string { return f.name }

func (f *placeholderFilter) Process(ctx context.Context, q *contexts.Question, _ Scorer) error {
	logging.DebugContext(ctx, "filter has no scoring strategy", "filter", f.name, "question", q.Text)
	return nil
}

// NewRelatingToFilter is the slot for matching relationships and roles
// (daughters, employers, believers).
func NewRelatingToFilter() Filter { return &placeholderFilter{name: "relating-to"} }

// NewSituationFilter is the slot for matching the situation a question
// describes.
func NewSituationFilter() Filter { return &placeholderFilter{name: "situation"} }

// NewQuestionTypeFilter is the slot for matching the question type descriptor.
func NewQuestionTypeFilter() Filter { return &placeholderFilter{name: "question-type"} }

// VerseInQuestionFilter scores +1 for each reference cited in the question
// text ("What does John 3:16 mean?") that a corpus passage includes.
type VerseInQuestionFilter struct {
	scriptures []contexts.Scripture
}

// NewVerseInQuestionFilter creates a filter over scriptures.
func NewVerseInQuestionFilter(scriptures []contexts.Scripture) *VerseInQuestionFilter {
	return &VerseInQuestionFilter{scriptures: scriptures}
}

func (f *VerseInQuestionFilter) Name() string { return "verse-in-question" }

func (f *VerseInQuestionFilter) Process(ctx context.Context, q *contexts.Question, s Scorer) error {
	cited := passage.FindInText(q.Text)
	if len(cited) == 0 {
		return nil
	}

	for i := range f.scriptures {
		sc := &f.scriptures[i]
		ref, err := sc.Reference()
		if err != nil {
			return err
		}
		hits := 0
		for _, c := range cited {
			if ref.Includes(c) {
				hits++
			}
		}
		if hits > 0 {
			if err := s.AddScore(sc.Passage, hits); err != nil {
				return err
			}
		}
	}
	return nil
}

// Searcher finds corpus passages whose known questions resemble a query.
// Implementations return passage ids, best match first.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

// SearcherFunc adapts a function to Searcher.
type SearcherFunc func(ctx context.Context, query string, limit int) ([]string, error)

// Search calls fn.
func (fn SearcherFunc) Search(ctx context.Context, query string, limit int) ([]string, error) {
	return fn(ctx, query, limit)
}

// SimilarityFilter scores +1 for each passage a Searcher returns for the
// question text. Without a searcher it does nothing.
type SimilarityFilter struct {
	searcher Searcher
	limit    int
}

// DefaultSimilarityLimit is the number of search results scored when no
// limit is configured.
const DefaultSimilarityLimit = 5

// NewSimilarityFilter creates a similarity filter. A nil searcher is allowed.
func NewSimilarityFilter(searcher Searcher, limit int) *SimilarityFilter {
	if limit <= 0 {
		limit = DefaultSimilarityLimit
	}
	return &SimilarityFilter{searcher: searcher, limit: limit}
}

func (f *SimilarityFilter) Name() string { return "similarity" }

func (f *SimilarityFilter) Process(ctx context.Context, q *contexts.Question, s Scorer) error {
	if f == nil || f.searcher == nil {
		logging.DebugContext(ctx, "similarity search not configured")
		return nil
	}
	if q.Text == "" {
		return nil
	}

	ids, err := f.searcher.Search(ctx, q.Text, f.limit)
	if err != nil {
		return err
	}
	if len(ids) > f.limit {
		ids = ids[:f.limit]
	}
	for _, id := range ids {
		if err := s.AddScore(id, 1); err != nil {
			return err
		}
	}
	return nil
}
