// Package contexts defines the metadata records the ranking engine compares:
// a Question describes what a user asked, a Scripture describes one corpus
// passage.
package contexts

import (
	"encoding/json"

	"github.com/FocuswithJustin/JuniperAnswers/core/errors"
	"github.com/FocuswithJustin/JuniperAnswers/core/passage"
)

// Record key names, as they appear in the JSON datasets.
const (
	KeyPassage          = "passage"
	KeyPeople           = "people"
	KeyPlaces           = "places"
	KeyActions          = "actions"
	KeySignificantWords = "significant-words"
	KeyQuestions        = "questions"
	KeySection          = "scripture-section"
	KeyQuestionText     = "question-text"
	KeyQuestionType     = "question-type"
)

// Section is a part of the canon, or a question's preference for one.
type Section string

// Section constants. Scriptures carry only SectionOT or SectionNT.
const (
	SectionOT      Section = "OT"
	SectionNT      Section = "NT"
	SectionBoth    Section = "Both"
	SectionNeither Section = "Neither"
)

// IsFixed reports whether s names a single testament.
func (s Section) IsFixed() bool {
	return s == SectionOT || s == SectionNT
}

// IsValid reports whether s is a recognized question preference.
func (s Section) IsValid() bool {
	return s.IsFixed() || s == SectionBoth || s == SectionNeither
}

// Affinity scores how well a passage in section p suits a question that
// prefers s: +1 when they agree (Both agrees with either testament), -1 when
// they name opposite testaments, 0 for Neither or an unfixed passage section.
func (s Section) Affinity(p Section) int {
	if !p.IsFixed() {
		return 0
	}
	switch s {
	case SectionBoth:
		return 1
	case SectionOT, SectionNT:
		if s == p {
			return 1
		}
		return -1
	default:
		return 0
	}
}

// Question is the metadata extracted from a user question.
//
// A list field left nil (absent from the JSON record) is missing and makes
// filters that read it fail; an empty list is present and simply matches
// nothing.
type Question struct {
	// Text is the question as asked.
	Text string `json:"question-text"`

	People           []string `json:"people"`
	Places           []string `json:"places"`
	Actions          []string `json:"actions"`
	SignificantWords []string `json:"significant-words"`

	// Section is the part of the canon the answer should come from.
	Section Section `json:"scripture-section"`

	// Type is the question type descriptor. Its structure is not interpreted.
	Type json.RawMessage `json:"question-type,omitempty"`
}

// List returns the list stored under key.
func (q *Question) List(key string) ([]string, error) {
	var v []string
	switch key {
	case KeyPeople:
		v = q.People
	case KeyPlaces:
		v = q.Places
	case KeyActions:
		v = q.Actions
	case KeySignificantWords:
		v = q.SignificantWords
	}
	if v == nil {
		return nil, errors.NewMalformedContext("question", q.Text, key)
	}
	return v, nil
}

// RequireSection returns the question's section preference, failing when it
// is absent or unrecognized.
func (q *Question) RequireSection() (Section, error) {
	if q.Section == "" {
		return "", errors.NewMalformedContext("question", q.Text, KeySection)
	}
	if !q.Section.IsValid() {
		return "", errors.NewValidation(KeySection, string(q.Section), "must be OT, NT, Both or Neither")
	}
	return q.Section, nil
}

// Scripture is the precomputed metadata for one corpus passage.
type Scripture struct {
	// Passage is the interval string identifying the passage ("John.3.16-John.3.18").
	// It is also the passage's id in a ranking index.
	Passage string `json:"passage"`

	People  []string `json:"people"`
	Places  []string `json:"places"`
	Actions []string `json:"actions"`

	// Section is the testament the passage belongs to.
	Section Section `json:"scripture-section"`

	// Questions are free-text questions the passage is known to answer.
	Questions []string `json:"questions"`
}

// List returns the list stored under key.
func (s *Scripture) List(key string) ([]string, error) {
	var v []string
	switch key {
	case KeyPeople:
		v = s.People
	case KeyPlaces:
		v = s.Places
	case KeyActions:
		v = s.Actions
	case KeyQuestions:
		v = s.Questions
	}
	if v == nil {
		return nil, errors.NewMalformedContext("scripture", s.Passage, key)
	}
	return v, nil
}

// RequireSection returns the passage's testament, failing when it is absent
// or not OT/NT.
func (s *Scripture) RequireSection() (Section, error) {
	if s.Section == "" {
		return "", errors.NewMalformedContext("scripture", s.Passage, KeySection)
	}
	if !s.Section.IsFixed() {
		return "", errors.NewValidation(KeySection, string(s.Section), "scripture section must be OT or NT")
	}
	return s.Section, nil
}

// Reference parses the passage string.
func (s *Scripture) Reference() (passage.Reference, error) {
	if s.Passage == "" {
		return passage.Reference{}, errors.NewMalformedContext("scripture", "", KeyPassage)
	}
	return passage.Parse(s.Passage)
}
