// Package passage models scripture spans: a single verse or a verse-to-verse
// range that may cross chapters (and books), in OSIS-style interval notation
// Book.Chapter.Verse[-Book.Chapter.Verse].
package passage

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/FocuswithJustin/JuniperAnswers/core/canon"
	"github.com/FocuswithJustin/JuniperAnswers/core/errors"
)

// Reference is an immutable scripture span. The zero value is unset and is
// what a failed parse leaves behind.
type Reference struct {
	StartBook    string
	StartChapter int
	StartVerse   int
	EndBook      string
	EndChapter   int
	EndVerse     int

	// raw is the string the reference was parsed from, if any.
	raw string
}

// Point is one end of a Reference.
type Point struct {
	Book    string
	Chapter int
	Verse   int
}

// intervalGrammar is the participle grammar for interval strings.
// Examples: "John.3.16", "John.3.16-John.3.18", "1John.4.8", "Song of Solomon.2.4"
//
//nolint:govet // participle grammar tags are not standard struct tags
type intervalGrammar struct {
	Start *pointGrammar `@@`
	End   *pointGrammar `( "-" @@ )?`
}

//nolint:govet // participle grammar tags are not standard struct tags
type pointGrammar struct {
	BookPrefix string   `@Int?`
	BookWords  []string `@Ident+`
	Chapter    int      `"." @Int`
	Verse      int      `"." @Int`
}

// refLexer defines the lexer for interval strings.
var refLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Ident", Pattern: `[A-Za-z]+`},
	{Name: "Punct", Pattern: `[.\-]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// refParser is the participle parser for interval strings.
var refParser = participle.MustBuild[intervalGrammar](
	participle.Lexer(refLexer),
	participle.Elide("Whitespace"),
)

func (g *pointGrammar) point() Point {
	book := strings.Join(g.BookWords, " ")
	if g.BookPrefix != "" {
		// "1 John" and "1John" both become "1John".
		book = g.BookPrefix + book
	}
	return Point{Book: book, Chapter: g.Chapter, Verse: g.Verse}
}

// Parse parses an interval string of the form Book.Chapter.Verse with an
// optional -Book.Chapter.Verse suffix. Book identifiers are kept as written;
// unrecognized books are accepted here and only matter when ordering.
func Parse(s string) (Reference, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Reference{}, errors.NewParse("reference", s, "empty reference")
	}

	parsed, err := refParser.ParseString("", trimmed)
	if err != nil {
		perr := errors.NewParse("reference", s, "expected Book.Chapter.Verse[-Book.Chapter.Verse]")
		perr.Err = err
		return Reference{}, perr
	}

	start := parsed.Start.point()
	end := start
	if parsed.End != nil {
		end = parsed.End.point()
	}

	ref, err := fromPoints(start, end, s)
	if err != nil {
		return Reference{}, err
	}
	return ref, nil
}

// MustParse is like Parse but panics on error. Intended for tests and tables.
func MustParse(s string) Reference {
	ref, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return ref
}

// New builds a single-book reference from chapter and verse bounds.
func New(book string, startChapter, endChapter, startVerse, endVerse int) (Reference, error) {
	book = strings.TrimSpace(book)
	if book == "" {
		return Reference{}, errors.NewParse("reference", "", "empty book")
	}
	return fromPoints(
		Point{Book: book, Chapter: startChapter, Verse: startVerse},
		Point{Book: book, Chapter: endChapter, Verse: endVerse},
		"",
	)
}

func fromPoints(start, end Point, raw string) (Reference, error) {
	input := raw
	if input == "" {
		input = start.String() + "-" + end.String()
	}
	for _, n := range []int{start.Chapter, start.Verse, end.Chapter, end.Verse} {
		if n <= 0 {
			return Reference{}, errors.NewParse("reference", input, "chapter and verse numbers must be positive")
		}
	}
	if c, err := start.Compare(end); err == nil && c > 0 {
		return Reference{}, errors.NewParse("reference", input, "range ends before it starts")
	}

	return Reference{
		StartBook:    start.Book,
		StartChapter: start.Chapter,
		StartVerse:   start.Verse,
		EndBook:      end.Book,
		EndChapter:   end.Chapter,
		EndVerse:     end.Verse,
		raw:          raw,
	}, nil
}

// Start returns the first verse of the span.
func (r Reference) Start() Point {
	return Point{Book: r.StartBook, Chapter: r.StartChapter, Verse: r.StartVerse}
}

// End returns the last verse of the span.
func (r Reference) End() Point {
	return Point{Book: r.EndBook, Chapter: r.EndChapter, Verse: r.EndVerse}
}

// Raw returns the string the reference was parsed from.
func (r Reference) Raw() string {
	return r.raw
}

// IsZero reports whether the reference is unset.
func (r Reference) IsZero() bool {
	return r.StartBook == "" && r.EndBook == ""
}

// SingleVerse reports whether the span covers exactly one verse.
func (r Reference) SingleVerse() bool {
	return r.Start().same(r.End())
}

// String returns the canonical interval form using OSIS book codes, omitting
// the range suffix for single verses.
func (r Reference) String() string {
	if r.IsZero() {
		return ""
	}
	s := r.Start().String()
	if !r.SingleVerse() {
		s += "-" + r.End().String()
	}
	return s
}

// Human returns the conventional display form, e.g. "John 3:16-18".
func (r Reference) Human() string {
	if r.IsZero() {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(canon.Name(r.StartBook))
	sb.WriteString(" ")
	sb.WriteString(strconv.Itoa(r.StartChapter))
	sb.WriteString(":")
	sb.WriteString(strconv.Itoa(r.StartVerse))

	switch {
	case r.SingleVerse():
	case canon.Code(r.StartBook) != canon.Code(r.EndBook):
		fmt.Fprintf(&sb, "-%s %d:%d", canon.Name(r.EndBook), r.EndChapter, r.EndVerse)
	case r.StartChapter != r.EndChapter:
		fmt.Fprintf(&sb, "-%d:%d", r.EndChapter, r.EndVerse)
	default:
		fmt.Fprintf(&sb, "-%d", r.EndVerse)
	}
	return sb.String()
}

// Validate reports an unknown book on either end of the span.
func (r Reference) Validate() error {
	if canon.Order(r.StartBook) == canon.NotFound {
		return errors.NewUnknownBook(r.StartBook)
	}
	if canon.Order(r.EndBook) == canon.NotFound {
		return errors.NewUnknownBook(r.EndBook)
	}
	return nil
}

// Section returns the testament of the starting book.
func (r Reference) Section() (canon.Testament, bool) {
	return canon.TestamentOf(r.StartBook)
}

// String returns the canonical Book.Chapter.Verse form of the point.
func (p Point) String() string {
	return canon.Code(p.Book) + "." + strconv.Itoa(p.Chapter) + "." + strconv.Itoa(p.Verse)
}

func (p Point) same(q Point) bool {
	return canon.Code(p.Book) == canon.Code(q.Book) && p.Chapter == q.Chapter && p.Verse == q.Verse
}
