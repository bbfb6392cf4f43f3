package rank

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/FocuswithJustin/JuniperAnswers/core/contexts"
	"github.com/FocuswithJustin/JuniperAnswers/core/errors"
	"github.com/FocuswithJustin/JuniperAnswers/core/passage"
	"github.com/FocuswithJustin/JuniperAnswers/internal/logging"
	"github.com/FocuswithJustin/JuniperAnswers/internal/workerpool"
)

// StageEvent reports the application of one filter during a run.
type StageEvent struct {
	RunID    string        `json:"run_id"`
	Filter   string        `json:"filter"`
	Stage    int           `json:"stage"`
	Total    int           `json:"total"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// Pipeline applies filters to an index and ranks the result. Runs are
// serialized; use Index.Clone to rank concurrently.
type Pipeline struct {
	mu       sync.Mutex
	index    *Index
	filters  []Filter
	workers  int
	observer func(StageEvent)
}

// NewPipeline creates a pipeline that applies filters in order.
func NewPipeline(index *Index, filters ...Filter) *Pipeline {
	return &Pipeline{index: index, filters: filters}
}

// WithConcurrency runs filters on up to workers goroutines. Each filter
// scores into a private buffer against the reset index and the buffers are
// merged in registration order, so the ranking matches a sequential run.
// Values below 2 keep sequential application.
func (p *Pipeline) WithConcurrency(workers int) *Pipeline {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.workers = workers
	return p
}

// WithObserver registers fn to receive a StageEvent after every filter. fn is
// called from the goroutine running Run.
func (p *Pipeline) WithObserver(fn func(StageEvent)) *Pipeline {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observer = fn
	return p
}

// Filters returns the configured filters in order.
func (p *Pipeline) Filters() []Filter {
	return append([]Filter(nil), p.filters...)
}

// Ranking is the ordered result of one run.
type Ranking struct {
	RunID    string  `json:"run_id"`
	Question string  `json:"question"`
	Entries  []Entry `json:"entries"`
}

// Len returns the number of ranked passages.
func (r Ranking) Len() int {
	return len(r.Entries)
}

// TopN returns the n best entries.
func (r Ranking) TopN(n int) ([]Entry, error) {
	if n < 0 {
		return nil, errors.NewValidation("n", fmt.Sprint(n), "must not be negative")
	}
	if n > len(r.Entries) {
		return nil, &errors.InsufficientResultsError{Requested: n, Available: len(r.Entries)}
	}
	return append([]Entry(nil), r.Entries[:n]...), nil
}

// Top returns the best entry.
func (r Ranking) Top() (Entry, error) {
	top, err := r.TopN(1)
	if err != nil {
		return Entry{}, err
	}
	return top[0], nil
}

// Run resets every score, applies the filters and returns the passages
// sorted by score, highest first. Equal scores keep corpus order. A filter
// error aborts the run and leaves every score at zero.
func (p *Pipeline) Run(ctx context.Context, q *contexts.Question) (Ranking, error) {
	if q == nil {
		return Ranking{}, errors.NewValidation("question", "", "question is required")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	runID := logging.NewRequestID()
	start := time.Now()
	p.index.Reset()

	var err error
	if p.workers > 1 && len(p.filters) > 1 {
		err = p.applyConcurrent(ctx, runID, q)
	} else {
		err = p.applySequential(ctx, runID, q)
	}
	if err != nil {
		p.index.Reset()
		return Ranking{}, err
	}

	entries := p.index.Entries()
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})

	logging.RankingRun(ctx, runID, len(p.filters), len(entries), time.Since(start), "question", q.Text)
	return Ranking{RunID: runID, Question: q.Text, Entries: entries}, nil
}

func (p *Pipeline) applySequential(ctx context.Context, runID string, q *contexts.Question) error {
	for i, f := range p.filters {
		if err := ctx.Err(); err != nil {
			return err
		}
		t0 := time.Now()
		err := f.Process(ctx, q, p.index)
		p.stage(ctx, runID, i, f, time.Since(t0), err)
		if err != nil {
			return fmt.Errorf("filter %s: %w", f.Name(), err)
		}
	}
	return nil
}

type stageResult struct {
	buf      *deltas
	duration time.Duration
	err      error
}

func (p *Pipeline) applyConcurrent(ctx context.Context, runID string, q *contexts.Question) error {
	results := workerpool.Map(p.workers, p.filters, func(f Filter) stageResult {
		if err := ctx.Err(); err != nil {
			return stageResult{err: err}
		}
		buf := newDeltas(p.index)
		t0 := time.Now()
		err := f.Process(ctx, q, buf)
		return stageResult{buf: buf, duration: time.Since(t0), err: err}
	})

	for i, r := range results {
		f := p.filters[i]
		p.stage(ctx, runID, i, f, r.duration, r.err)
		if r.err != nil {
			return fmt.Errorf("filter %s: %w", f.Name(), r.err)
		}
		r.buf.apply()
	}
	return nil
}

func (p *Pipeline) stage(ctx context.Context, runID string, i int, f Filter, d time.Duration, err error) {
	logging.FilterStage(ctx, runID, f.Name(), i, d, err)
	if p.observer != nil {
		p.observer(StageEvent{
			RunID:    runID,
			Filter:   f.Name(),
			Stage:    i,
			Total:    len(p.filters),
			Duration: d,
			Err:      err,
		})
	}
}

// Answer retrieves the text of the best-ranked passage from src.
func Answer(ctx context.Context, r Ranking, src passage.TextSource) (Entry, passage.Text, error) {
	top, err := r.Top()
	if err != nil {
		return Entry{}, passage.Text{}, err
	}
	text, err := top.Ref.Text(ctx, src)
	if err != nil {
		return top, passage.Text{}, err
	}
	return top, text, nil
}
