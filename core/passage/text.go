package passage

import (
	"context"

	"github.com/FocuswithJustin/JuniperAnswers/core/canon"
	"github.com/FocuswithJustin/JuniperAnswers/core/errors"
)

// Text is the retrieved wording of a passage.
type Text struct {
	// Joined is every verse of the passage separated by single spaces.
	Joined string `json:"text"`

	// Chapters holds the verses of each chapter in the passage, in order.
	Chapters [][]string `json:"chapters"`
}

// TextSource retrieves passage text for a book and chapter/verse range in a
// fixed language and version. A zero endChapter or endVerse means "through
// the end of the book" or "through the end of the chapter".
type TextSource interface {
	FetchPassage(ctx context.Context, book string, startChapter, endChapter, startVerse, endVerse int) (Text, error)
}

// Text retrieves the wording of r from src.
func (r Reference) Text(ctx context.Context, src TextSource) (Text, error) {
	if src == nil {
		return Text{}, errors.NewUnsupported("text retrieval", "no text source configured")
	}
	if r.IsZero() {
		return Text{}, errors.NewValidation("reference", "", "reference is unset")
	}
	if canon.Code(r.StartBook) != canon.Code(r.EndBook) {
		return Text{}, errors.NewUnsupported("text retrieval", "passage spans more than one book: "+r.String())
	}
	return src.FetchPassage(ctx, r.StartBook, r.StartChapter, r.EndChapter, r.StartVerse, r.EndVerse)
}
