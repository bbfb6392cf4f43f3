package passage

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/FocuswithJustin/JuniperAnswers/core/canon"
	"github.com/FocuswithJustin/JuniperAnswers/core/errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input    string
		expected Reference
	}{
		{
			input: "John.3.16",
			expected: Reference{
				StartBook: "John", StartChapter: 3, StartVerse: 16,
				EndBook: "John", EndChapter: 3, EndVerse: 16,
			},
		},
		{
			input: "John.3.16-John.3.18",
			expected: Reference{
				StartBook: "John", StartChapter: 3, StartVerse: 16,
				EndBook: "John", EndChapter: 3, EndVerse: 18,
			},
		},
		{
			input: "John.3.16-John.4.20",
			expected: Reference{
				StartBook: "John", StartChapter: 3, StartVerse: 16,
				EndBook: "John", EndChapter: 4, EndVerse: 20,
			},
		},
		{
			input: "1John.4.8",
			expected: Reference{
				StartBook: "1John", StartChapter: 4, StartVerse: 8,
				EndBook: "1John", EndChapter: 4, EndVerse: 8,
			},
		},
		{
			input: "Song of Solomon.2.4",
			expected: Reference{
				StartBook: "Song of Solomon", StartChapter: 2, StartVerse: 4,
				EndBook: "Song of Solomon", EndChapter: 2, EndVerse: 4,
			},
		},
		{
			input: "Mal.4.6-Matt.1.1",
			expected: Reference{
				StartBook: "Mal", StartChapter: 4, StartVerse: 6,
				EndBook: "Matt", EndChapter: 1, EndVerse: 1,
			},
		},
		{
			input: "  Gen.1.1  ",
			expected: Reference{
				StartBook: "Gen", StartChapter: 1, StartVerse: 1,
				EndBook: "Gen", EndChapter: 1, EndVerse: 1,
			},
		},
		{
			input: "Enoch.1.9",
			expected: Reference{
				StartBook: "Enoch", StartChapter: 1, StartVerse: 9,
				EndBook: "Enoch", EndChapter: 1, EndVerse: 9,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.input, err)
			}
			if got.StartBook != tt.expected.StartBook || got.EndBook != tt.expected.EndBook {
				t.Errorf("books = (%q, %q), want (%q, %q)", got.StartBook, got.EndBook, tt.expected.StartBook, tt.expected.EndBook)
			}
			if got.StartChapter != tt.expected.StartChapter || got.EndChapter != tt.expected.EndChapter {
				t.Errorf("chapters = (%d, %d), want (%d, %d)", got.StartChapter, got.EndChapter, tt.expected.StartChapter, tt.expected.EndChapter)
			}
			if got.StartVerse != tt.expected.StartVerse || got.EndVerse != tt.expected.EndVerse {
				t.Errorf("verses = (%d, %d), want (%d, %d)", got.StartVerse, got.EndVerse, tt.expected.StartVerse, tt.expected.EndVerse)
			}
			if got.Raw() != tt.input {
				t.Errorf("Raw() = %q, want %q", got.Raw(), tt.input)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		"",
		"   ",
		"John",
		"John.3",
		"John.3.x",
		"John.three.16",
		"John.3.16-",
		"John.3.16-John.3",
		"John.3.16 extra",
		"John.0.16",
		"John.3.0",
		"John.3.18-John.3.16",
		"Rev.1.1-Gen.1.1",
		"3.16",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			got, err := Parse(input)
			if err == nil {
				t.Fatalf("Parse(%q) = %v, want error", input, got)
			}
			var perr *errors.ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("Parse(%q) error = %T, want *errors.ParseError", input, err)
			}
			if perr.Format != "reference" {
				t.Errorf("ParseError.Format = %q, want reference", perr.Format)
			}
			if perr.Input != input {
				t.Errorf("ParseError.Input = %q, want %q", perr.Input, input)
			}
			if !got.IsZero() {
				t.Errorf("Parse(%q) returned non-zero reference %+v on error", input, got)
			}
		})
	}
}

func TestNew(t *testing.T) {
	ref, err := New("John", 3, 3, 16, 18)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got, want := ref.String(), "John.3.16-John.3.18"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	if _, err := New("John", 3, 3, 0, 18); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("New with zero verse error = %v, want ErrInvalidInput", err)
	}
	if _, err := New("", 1, 1, 1, 1); err == nil {
		t.Error("New with empty book succeeded, want error")
	}
	if _, err := New("John", 4, 3, 1, 1); err == nil {
		t.Error("New with reversed chapters succeeded, want error")
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"John.3.16-John.3.18", "John.3.16-John.3.18"},
		{"John.3.16", "John.3.16"},
		{"John.3.16-John.3.16", "John.3.16"},
		{"Genesis.1.1", "Gen.1.1"},
		{"JHN.3.16-John.3.17", "John.3.16-John.3.17"},
		{"1 John.4.8", "1John.4.8"},
		{"Song of Solomon.2.4", "Song.2.4"},
		{"Enoch.1.9", "Enoch.1.9"},
	}

	for _, tt := range tests {
		if got := MustParse(tt.input).String(); got != tt.want {
			t.Errorf("Parse(%q).String() = %q, want %q", tt.input, got, tt.want)
		}
	}
	if got := (Reference{}).String(); got != "" {
		t.Errorf("zero Reference String() = %q, want empty", got)
	}
}

func TestStringRoundTrip(t *testing.T) {
	inputs := []string{
		"John.3.16",
		"John.3.16-John.3.18",
		"Matthew.5.3-Matthew.7.29",
		"Psalms.23.1-Psalms.23.6",
		"1Cor.13.4-1Cor.13.7",
		"Mal.4.5-Matt.1.1",
		"Song of Solomon.2.4",
	}

	for _, input := range inputs {
		ref := MustParse(input)
		again, err := Parse(ref.String())
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", ref.String(), err)
		}
		if !again.Equal(ref) {
			t.Errorf("round trip of %q = %q, not equal", input, again.String())
		}
		if again.Start() != (Point{canon.Code(ref.StartBook), ref.StartChapter, ref.StartVerse}) {
			t.Errorf("round trip of %q start = %+v", input, again.Start())
		}
	}
}

func TestHuman(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"John.3.16", "John 3:16"},
		{"John.3.16-John.3.18", "John 3:16-18"},
		{"John.3.16-John.4.2", "John 3:16-4:2"},
		{"Gen.50.26-Exod.1.1", "Genesis 50:26-Exodus 1:1"},
		{"1John.4.8", "1 John 4:8"},
	}

	for _, tt := range tests {
		if got := MustParse(tt.input).Human(); got != tt.want {
			t.Errorf("Parse(%q).Human() = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"John.3.16", "John.3.16", true},
		{"John.3.16", "JHN.3.16", true},
		{"John.3.16", "John.3.16-John.3.16", true},
		{"John.3.16", "John.3.17", false},
		{"John.3.16-John.3.18", "John.3.16-John.3.17", false},
		{"John.3.16", "Luke.3.16", false},
	}

	for _, tt := range tests {
		if got := MustParse(tt.a).Equal(MustParse(tt.b)); got != tt.want {
			t.Errorf("%s.Equal(%s) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestIncludes(t *testing.T) {
	tests := []struct {
		outer, inner string
		want         bool
	}{
		{"John.3.16-John.3.18", "John.3.17", true},
		{"John.3.16-John.3.18", "John.3.16", true},
		{"John.3.16-John.3.18", "John.3.18", true},
		{"John.3.16-John.3.18", "John.3.19", false},
		{"John.3.16-John.3.18", "John.3.15-John.3.17", false},
		{"John.3.16-John.4.2", "John.3.30", true},
		{"John.3.16-John.4.2", "John.4.3", false},
		{"Mal.4.1-Matt.1.5", "Matt.1.1", true},
		{"Gen.1.1-Rev.22.21", "Ps.23.1-Ps.23.6", true},
		{"John.3.17", "John.3.16-John.3.18", false},
		{"Enoch.1.9", "Enoch.1.9", true},
		{"Enoch.1.1-Enoch.1.20", "Enoch.1.9", false},
		{"John.3.1-John.3.36", "Enoch.1.9", false},
	}

	for _, tt := range tests {
		if got := MustParse(tt.outer).Includes(MustParse(tt.inner)); got != tt.want {
			t.Errorf("%s.Includes(%s) = %v, want %v", tt.outer, tt.inner, got, tt.want)
		}
	}
}

func TestIncludesTupleAndString(t *testing.T) {
	tuple, err := New("John", 3, 3, 16, 16)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if !tuple.Includes(MustParse("John.3.16")) {
		t.Error(`New("John",3,3,16,16).Includes(Parse("John.3.16")) = false, want true`)
	}
}

func TestIncludesProperties(t *testing.T) {
	refs := []Reference{
		MustParse("John.3.16"),
		MustParse("John.3.16-John.3.18"),
		MustParse("John.3.1-John.4.54"),
		MustParse("Gen.1.1-Gen.2.3"),
		MustParse("Mal.4.1-Matt.1.17"),
		MustParse("Rev.22.21"),
	}

	for _, a := range refs {
		if !a.Includes(a) {
			t.Errorf("%s.Includes(itself) = false", a)
		}
		for _, b := range refs {
			if a.Equal(b) {
				continue
			}
			if a.Includes(b) && b.Includes(a) {
				t.Errorf("%s and %s include each other but are not equal", a, b)
			}
		}
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"Gen.1.1", "Exod.1.1", -1},
		{"John.3.16", "John.3.16", 0},
		{"John.4.1", "John.3.16", 1},
		{"John.3.16", "John.3.16-John.3.18", -1},
		{"Matt.1.1", "Mal.4.6", 1},
	}

	for _, tt := range tests {
		got, err := MustParse(tt.a).Compare(MustParse(tt.b))
		if err != nil {
			t.Fatalf("Compare(%s, %s) error = %v", tt.a, tt.b, err)
		}
		if got != tt.want {
			t.Errorf("Compare(%s, %s) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}

	_, err := MustParse("Enoch.1.9").Compare(MustParse("Gen.1.1"))
	var nf *errors.NotFoundError
	if !errors.As(err, &nf) || nf.Resource != "book" || nf.ID != "Enoch" {
		t.Errorf("Compare with unknown book error = %v, want book not found: Enoch", err)
	}
}

func TestValidateAndSection(t *testing.T) {
	if err := MustParse("John.3.16").Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
	if err := MustParse("Gen.1.1-Enoch.1.1").Validate(); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Validate() = %v, want ErrNotFound", err)
	}
	if s, ok := MustParse("Ps.23.1").Section(); s != canon.OldTestament || !ok {
		t.Errorf("Section() = (%q, %v), want (OT, true)", s, ok)
	}
	if s, ok := MustParse("Rom.8.28").Section(); s != canon.NewTestament || !ok {
		t.Errorf("Section() = (%q, %v), want (NT, true)", s, ok)
	}
}

func TestReferenceJSON(t *testing.T) {
	ref := MustParse("John.3.16-John.3.18")
	data, err := json.Marshal(ref)
	if err != nil {
		t.Fatalf("json.Marshal failed: %v", err)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("json.Unmarshal failed: %v", err)
	}
	if fields["osis-reference"] != "John.3.16-John.3.18" {
		t.Errorf("osis-reference = %v", fields["osis-reference"])
	}
	if fields["reference"] != "John 3:16-18" {
		t.Errorf("reference = %v", fields["reference"])
	}

	var decoded Reference
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json.Unmarshal into Reference failed: %v", err)
	}
	if !decoded.Equal(ref) {
		t.Errorf("decoded = %s, want %s", decoded, ref)
	}

	var fromString Reference
	if err := json.Unmarshal([]byte(`"Ps.23.1"`), &fromString); err != nil {
		t.Fatalf("json.Unmarshal string failed: %v", err)
	}
	if fromString.String() != "Ps.23.1" {
		t.Errorf("decoded string = %s, want Ps.23.1", fromString)
	}

	var fromFields Reference
	if err := json.Unmarshal([]byte(`{"book-start":"John","chapter-start":1,"verse-start":1,"chapter-end":1,"verse-end":5}`), &fromFields); err != nil {
		t.Fatalf("json.Unmarshal fields failed: %v", err)
	}
	if fromFields.String() != "John.1.1-John.1.5" {
		t.Errorf("decoded fields = %s, want John.1.1-John.1.5", fromFields)
	}

	var bad Reference
	if err := json.Unmarshal([]byte(`"John.3"`), &bad); err == nil {
		t.Error("json.Unmarshal of malformed reference succeeded, want error")
	}
}

type fakeSource struct {
	calls []string
	text  Text
}

func (f *fakeSource) FetchPassage(_ context.Context, book string, sc, ec, sv, ev int) (Text, error) {
	f.calls = append(f.calls, Reference{StartBook: book, StartChapter: sc, StartVerse: sv, EndBook: book, EndChapter: ec, EndVerse: ev}.String())
	return f.text, nil
}

func TestText(t *testing.T) {
	src := &fakeSource{text: Text{Joined: "For God so loved the world", Chapters: [][]string{{"For God so loved the world"}}}}
	got, err := MustParse("John.3.16").Text(context.Background(), src)
	if err != nil {
		t.Fatalf("Text() error = %v", err)
	}
	if got.Joined != src.text.Joined {
		t.Errorf("Text().Joined = %q, want %q", got.Joined, src.text.Joined)
	}
	if len(src.calls) != 1 || src.calls[0] != "John.3.16" {
		t.Errorf("calls = %v, want [John.3.16]", src.calls)
	}

	if _, err := MustParse("John.3.16").Text(context.Background(), nil); !errors.Is(err, errors.ErrUnsupported) {
		t.Errorf("Text(nil source) error = %v, want ErrUnsupported", err)
	}
	if _, err := MustParse("Mal.4.6-Matt.1.1").Text(context.Background(), src); !errors.Is(err, errors.ErrUnsupported) {
		t.Errorf("Text(cross-book) error = %v, want ErrUnsupported", err)
	}
}
