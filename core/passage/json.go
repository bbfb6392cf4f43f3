package passage

import (
	"bytes"
	"encoding/json"

	"github.com/FocuswithJustin/JuniperAnswers/core/canon"
	"github.com/FocuswithJustin/JuniperAnswers/core/errors"
)

// referenceData is the JSON form of a Reference.
type referenceData struct {
	OSIS         string `json:"osis-reference"`
	Reference    string `json:"reference"`
	BookStart    string `json:"book-start"`
	ChapterStart int    `json:"chapter-start"`
	VerseStart   int    `json:"verse-start"`
	BookEnd      string `json:"book-end"`
	ChapterEnd   int    `json:"chapter-end"`
	VerseEnd     int    `json:"verse-end"`
}

// MarshalJSON encodes the reference with both its interval and display forms.
func (r Reference) MarshalJSON() ([]byte, error) {
	return json.Marshal(referenceData{
		OSIS:         r.String(),
		Reference:    r.Human(),
		BookStart:    canon.Code(r.StartBook),
		ChapterStart: r.StartChapter,
		VerseStart:   r.StartVerse,
		BookEnd:      canon.Code(r.EndBook),
		ChapterEnd:   r.EndChapter,
		VerseEnd:     r.EndVerse,
	})
}

// UnmarshalJSON accepts either an interval string ("John.3.16-John.3.18") or
// the object produced by MarshalJSON.
func (r *Reference) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		ref, err := Parse(s)
		if err != nil {
			return err
		}
		*r = ref
		return nil
	}

	var d referenceData
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	if d.OSIS != "" {
		ref, err := Parse(d.OSIS)
		if err != nil {
			return err
		}
		*r = ref
		return nil
	}
	if d.BookStart == "" {
		return errors.NewParse("reference", string(data), "missing osis-reference and book-start")
	}
	end := d.BookEnd
	if end == "" {
		end = d.BookStart
	}
	ref, err := fromPoints(
		Point{Book: d.BookStart, Chapter: d.ChapterStart, Verse: d.VerseStart},
		Point{Book: end, Chapter: d.ChapterEnd, Verse: d.VerseEnd},
		"",
	)
	if err != nil {
		return err
	}
	*r = ref
	return nil
}
