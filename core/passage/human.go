package passage

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/FocuswithJustin/JuniperAnswers/core/canon"
	"github.com/FocuswithJustin/JuniperAnswers/core/errors"
)

// humanPattern matches display references such as "John 3:16", "1 John 4:7-8",
// "Genesis 1:1-2:3" and "Song of Solomon 2:4". Only the canon's own
// multi-word names may contain "of", so "meaning of John 3:16" matches at
// "John".
var humanPattern = regexp.MustCompile(`(?i)\b((?:[123]\s?)?(?:song\s+of\s+(?:solomon|songs)|[a-z]+))\.?\s+(\d+):(\d+)(?:\s*[-–]\s*(?:(\d+):)?(\d+))?`)

// ParseHuman parses a single display reference ("John 3:16-18"). The book
// must be in the canon.
func ParseHuman(s string) (Reference, error) {
	trimmed := strings.TrimSpace(s)
	loc := humanPattern.FindStringSubmatchIndex(trimmed)
	if loc == nil || loc[0] != 0 || loc[1] != len(trimmed) {
		return Reference{}, errors.NewParse("reference", s, "expected Book Chapter:Verse[-[Chapter:]Verse]")
	}
	ref, ok := fromHumanMatch(trimmed, loc, canon.Lookup)
	if !ok {
		return Reference{}, errors.NewParse("reference", s, "unknown book or invalid range")
	}
	return ref, nil
}

// FindInText returns every canonical reference cited in free text, in order
// of appearance. Matches on unknown books are ignored.
func FindInText(text string) []Reference {
	var refs []Reference
	for _, loc := range humanPattern.FindAllStringSubmatchIndex(text, -1) {
		if ref, ok := fromHumanMatch(text, loc, lookupTrailing); ok {
			refs = append(refs, ref)
		}
	}
	return refs
}

// lookupTrailing resolves name, then each shorter run of its trailing
// words ("x John" falls back to "John").
func lookupTrailing(name string) (canon.Book, bool) {
	words := strings.Fields(name)
	for i := range words {
		if b, ok := canon.Lookup(strings.Join(words[i:], " ")); ok {
			return b, true
		}
	}
	return canon.Book{}, false
}

func fromHumanMatch(text string, loc []int, lookup func(string) (canon.Book, bool)) (Reference, bool) {
	group := func(i int) string {
		if loc[2*i] < 0 {
			return ""
		}
		return text[loc[2*i]:loc[2*i+1]]
	}

	book, ok := lookup(group(1))
	if !ok {
		return Reference{}, false
	}
	chapter, _ := strconv.Atoi(group(2))
	verse, _ := strconv.Atoi(group(3))

	endChapter, endVerse := chapter, verse
	if v := group(5); v != "" {
		endVerse, _ = strconv.Atoi(v)
		if c := group(4); c != "" {
			endChapter, _ = strconv.Atoi(c)
		}
	}

	ref, err := fromPoints(
		Point{Book: book.OSIS, Chapter: chapter, Verse: verse},
		Point{Book: book.OSIS, Chapter: endChapter, Verse: endVerse},
		strings.TrimSpace(text[loc[0]:loc[1]]),
	)
	if err != nil {
		return Reference{}, false
	}
	return ref, true
}
