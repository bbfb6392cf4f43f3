// Package rank scores a corpus of scripture contexts against a question and
// orders the passages by score.
//
// An Index holds one Entry per corpus passage. A Pipeline resets the index,
// lets each Filter add score deltas through a Scorer, and sorts the entries
// into a Ranking.
package rank

import (
	"fmt"

	"github.com/FocuswithJustin/JuniperAnswers/core/contexts"
	"github.com/FocuswithJustin/JuniperAnswers/core/errors"
	"github.com/FocuswithJustin/JuniperAnswers/core/passage"
)

// Entry is one passage in an index together with its accumulated score.
type Entry struct {
	// ID is the passage string exactly as it appears in the corpus.
	ID string `json:"id"`

	// Ref is the parsed passage.
	Ref passage.Reference `json:"passage"`

	// Score is the sum of filter deltas from the current run.
	Score int `json:"score"`

	// Seq is the corpus position of the passage's first occurrence.
	Seq int `json:"seq"`
}

// Equal reports whether two entries cover the same span, carry the same
// score and print the same canonical string.
func (e Entry) Equal(other Entry) bool {
	return e.Ref.Equal(other.Ref) && e.Score == other.Score && e.Ref.String() == other.Ref.String()
}

// Scorer is the mutable handle filters use to adjust passage scores.
type Scorer interface {
	AddScore(id string, delta int) error
}

// Index maps passage ids to entries. It is built once per corpus and reused
// across runs; entries are never removed.
type Index struct {
	entries []*Entry
	byID    map[string]*Entry
}

// NewIndex builds an index from scripture contexts. Every passage string
// must parse; a repeated passage keeps its first position.
func NewIndex(scriptures []contexts.Scripture) (*Index, error) {
	idx := &Index{
		entries: make([]*Entry, 0, len(scriptures)),
		byID:    make(map[string]*Entry, len(scriptures)),
	}
	for i := range scriptures {
		s := &scriptures[i]
		if _, ok := idx.byID[s.Passage]; ok {
			continue
		}
		ref, err := s.Reference()
		if err != nil {
			return nil, fmt.Errorf("scripture %d: %w", i, err)
		}
		e := &Entry{ID: s.Passage, Ref: ref, Seq: len(idx.entries)}
		idx.entries = append(idx.entries, e)
		idx.byID[s.Passage] = e
	}
	return idx, nil
}

// Len returns the number of distinct passages.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Get returns a copy of the entry for id.
func (idx *Index) Get(id string) (Entry, bool) {
	e, ok := idx.byID[id]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Has reports whether id is in the index.
func (idx *Index) Has(id string) bool {
	_, ok := idx.byID[id]
	return ok
}

// AddScore adds delta to the score of passage id.
func (idx *Index) AddScore(id string, delta int) error {
	e, ok := idx.byID[id]
	if !ok {
		return errors.NewNotFound("passage", id)
	}
	e.Score += delta
	return nil
}

// Reset sets every score to zero.
func (idx *Index) Reset() {
	for _, e := range idx.entries {
		e.Score = 0
	}
}

// Entries returns a snapshot of all entries in corpus order.
func (idx *Index) Entries() []Entry {
	out := make([]Entry, len(idx.entries))
	for i, e := range idx.entries {
		out[i] = *e
	}
	return out
}

// Clone returns an independent copy, so separate pipelines can rank
// concurrently against the same corpus.
func (idx *Index) Clone() *Index {
	c := &Index{
		entries: make([]*Entry, len(idx.entries)),
		byID:    make(map[string]*Entry, len(idx.entries)),
	}
	for i, e := range idx.entries {
		cp := *e
		c.entries[i] = &cp
		c.byID[cp.ID] = &cp
	}
	return c
}

// deltas records score changes without touching the index. Filters running
// concurrently each write into their own buffer.
type deltas struct {
	idx   *Index
	order []string
	delta map[string]int
}

func newDeltas(idx *Index) *deltas {
	return &deltas{idx: idx, delta: make(map[string]int)}
}

func (d *deltas) AddScore(id string, delta int) error {
	if !d.idx.Has(id) {
		return errors.NewNotFound("passage", id)
	}
	if _, seen := d.delta[id]; !seen {
		d.order = append(d.order, id)
	}
	d.delta[id] += delta
	return nil
}

// apply merges the buffered deltas into the index.
func (d *deltas) apply() {
	for _, id := range d.order {
		d.idx.byID[id].Score += d.delta[id]
	}
}
