package passage

import (
	"github.com/FocuswithJustin/JuniperAnswers/core/canon"
	"github.com/FocuswithJustin/JuniperAnswers/core/errors"
)

// Compare orders two points by (book order, chapter, verse). It returns
// -1, 0 or 1, or an error when either book is not in the canon.
func (p Point) Compare(q Point) (int, error) {
	po := canon.Order(p.Book)
	if po == canon.NotFound {
		return 0, errors.NewUnknownBook(p.Book)
	}
	qo := canon.Order(q.Book)
	if qo == canon.NotFound {
		return 0, errors.NewUnknownBook(q.Book)
	}

	switch {
	case po != qo:
		return cmpInt(po, qo), nil
	case p.Chapter != q.Chapter:
		return cmpInt(p.Chapter, q.Chapter), nil
	default:
		return cmpInt(p.Verse, q.Verse), nil
	}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Equal reports whether two references cover the same span. Book identifiers
// are compared by canonical code, so "John.3.16" equals "JHN.3.16".
func (r Reference) Equal(other Reference) bool {
	return r.Start().same(other.Start()) && r.End().same(other.End())
}

// Includes reports whether other lies entirely within r: r starts at or
// before other's start and ends at or after other's end.
//
// Equal spans are always included. Otherwise, if any book involved is not in
// the canon the spans cannot be ordered and Includes returns false; use
// Compare or Validate to surface the unknown book.
func (r Reference) Includes(other Reference) bool {
	if r.Equal(other) {
		return true
	}

	startsBefore, err := r.Start().Compare(other.Start())
	if err != nil {
		return false
	}
	endsAfter, err := r.End().Compare(other.End())
	if err != nil {
		return false
	}
	return startsBefore <= 0 && endsAfter >= 0
}

// Compare orders references by start point, then by end point.
func (r Reference) Compare(other Reference) (int, error) {
	c, err := r.Start().Compare(other.Start())
	if err != nil || c != 0 {
		return c, err
	}
	return r.End().Compare(other.End())
}
