// Package canon holds the canonical Protestant book list used to order and
// classify passage references.
//
// Every book can be addressed by its OSIS ID ("1John"), its USFM code ("1JN"),
// its full name ("1 John") or one of the common abbreviations ("1jn"). Lookups
// ignore case, spaces and periods.
package canon

import (
	"strings"
)

// Testament identifies the section of the canon a book belongs to.
type Testament string

// Testament constants.
const (
	OldTestament Testament = "OT"
	NewTestament Testament = "NT"
)

// NotFound is the order returned for an unrecognized book identifier.
const NotFound = -1

// Book describes one canonical book.
type Book struct {
	OSIS      string    // OSIS book ID, the canonical short form (e.g. "Gen", "1John")
	Name      string    // Full English name (e.g. "Genesis", "1 John")
	USFM      string    // USFM/Paratext code used by remote text services (e.g. "GEN")
	Testament Testament // OT or NT
	Chapters  int       // Number of chapters
	Order     int       // 0-based canonical position
}

// books is the canonical order: Genesis = 0 ... Revelation = 65.
var books = []Book{
	// Old Testament
	{"Gen", "Genesis", "GEN", OldTestament, 50, 0},
	{"Exod", "Exodus", "EXO", OldTestament, 40, 1},
	{"Lev", "Leviticus", "LEV", OldTestament, 27, 2},
	{"Num", "Numbers", "NUM", OldTestament, 36, 3},
	{"Deut", "Deuteronomy", "DEU", OldTestament, 34, 4},
	{"Josh", "Joshua", "JOS", OldTestament, 24, 5},
	{"Judg", "Judges", "JDG", OldTestament, 21, 6},
	{"Ruth", "Ruth", "RUT", OldTestament, 4, 7},
	{"1Sam", "1 Samuel", "1SA", OldTestament, 31, 8},
	{"2Sam", "2 Samuel", "2SA", OldTestament, 24, 9},
	{"1Kgs", "1 Kings", "1KI", OldTestament, 22, 10},
	{"2Kgs", "2 Kings", "2KI", OldTestament, 25, 11},
	{"1Chr", "1 Chronicles", "1CH", OldTestament, 29, 12},
	{"2Chr", "2 Chronicles", "2CH", OldTestament, 36, 13},
	{"Ezra", "Ezra", "EZR", OldTestament, 10, 14},
	{"Neh", "Nehemiah", "NEH", OldTestament, 13, 15},
	{"Esth", "Esther", "EST", OldTestament, 10, 16},
	{"Job", "Job", "JOB", OldTestament, 42, 17},
	{"Ps", "Psalms", "PSA", OldTestament, 150, 18},
	{"Prov", "Proverbs", "PRO", OldTestament, 31, 19},
	{"Eccl", "Ecclesiastes", "ECC", OldTestament, 12, 20},
	{"Song", "Song of Solomon", "SNG", OldTestament, 8, 21},
	{"Isa", "Isaiah", "ISA", OldTestament, 66, 22},
	{"Jer", "Jeremiah", "JER", OldTestament, 52, 23},
	{"Lam", "Lamentations", "LAM", OldTestament, 5, 24},
	{"Ezek", "Ezekiel", "EZK", OldTestament, 48, 25},
	{"Dan", "Daniel", "DAN", OldTestament, 12, 26},
	{"Hos", "Hosea", "HOS", OldTestament, 14, 27},
	{"Joel", "Joel", "JOL", OldTestament, 3, 28},
	{"Amos", "Amos", "AMO", OldTestament, 9, 29},
	{"Obad", "Obadiah", "OBA", OldTestament, 1, 30},
	{"Jonah", "Jonah", "JON", OldTestament, 4, 31},
	{"Mic", "Micah", "MIC", OldTestament, 7, 32},
	{"Nah", "Nahum", "NAM", OldTestament, 3, 33},
	{"Hab", "Habakkuk", "HAB", OldTestament, 3, 34},
	{"Zeph", "Zephaniah", "ZEP", OldTestament, 3, 35},
	{"Hag", "Haggai", "HAG", OldTestament, 2, 36},
	{"Zech", "Zechariah", "ZEC", OldTestament, 14, 37},
	{"Mal", "Malachi", "MAL", OldTestament, 4, 38},
	// New Testament
	{"Matt", "Matthew", "MAT", NewTestament, 28, 39},
	{"Mark", "Mark", "MRK", NewTestament, 16, 40},
	{"Luke", "Luke", "LUK", NewTestament, 24, 41},
	{"John", "John", "JHN", NewTestament, 21, 42},
	{"Acts", "Acts", "ACT", NewTestament, 28, 43},
	{"Rom", "Romans", "ROM", NewTestament, 16, 44},
	{"1Cor", "1 Corinthians", "1CO", NewTestament, 16, 45},
	{"2Cor", "2 Corinthians", "2CO", NewTestament, 13, 46},
	{"Gal", "Galatians", "GAL", NewTestament, 6, 47},
	{"Eph", "Ephesians", "EPH", NewTestament, 6, 48},
	{"Phil", "Philippians", "PHP", NewTestament, 4, 49},
	{"Col", "Colossians", "COL", NewTestament, 4, 50},
	{"1Thess", "1 Thessalonians", "1TH", NewTestament, 5, 51},
	{"2Thess", "2 Thessalonians", "2TH", NewTestament, 3, 52},
	{"1Tim", "1 Timothy", "1TI", NewTestament, 6, 53},
	{"2Tim", "2 Timothy", "2TI", NewTestament, 4, 54},
	{"Titus", "Titus", "TIT", NewTestament, 3, 55},
	{"Phlm", "Philemon", "PHM", NewTestament, 1, 56},
	{"Heb", "Hebrews", "HEB", NewTestament, 13, 57},
	{"Jas", "James", "JAS", NewTestament, 5, 58},
	{"1Pet", "1 Peter", "1PE", NewTestament, 5, 59},
	{"2Pet", "2 Peter", "2PE", NewTestament, 3, 60},
	{"1John", "1 John", "1JN", NewTestament, 5, 61},
	{"2John", "2 John", "2JN", NewTestament, 1, 62},
	{"3John", "3 John", "3JN", NewTestament, 1, 63},
	{"Jude", "Jude", "JUD", NewTestament, 1, 64},
	{"Rev", "Revelation", "REV", NewTestament, 22, 65},
}

// abbreviations maps additional common abbreviations to OSIS IDs.
var abbreviations = map[string]string{
	"ex": "Exod", "dt": "Deut",
	"1samuel": "1Sam", "2samuel": "2Sam",
	"1kings": "1Kgs", "2kings": "2Kgs",
	"1chronicles": "1Chr", "2chronicles": "2Chr",
	"pss": "Ps", "psalm": "Ps",
	"qoh": "Eccl", "sos": "Song", "songofsongs": "Song", "canticles": "Song",
	"mt": "Matt", "mk": "Mark", "lk": "Luke", "jn": "John",
	"1thessalonians": "1Thess", "2thessalonians": "2Thess",
	"1jn": "1John", "2jn": "2John", "3jn": "3John",
	"apocalypse": "Rev", "revelations": "Rev",
}

// index maps normalized identifiers to positions in books.
var index = buildIndex()

func buildIndex() map[string]int {
	idx := make(map[string]int, len(books)*3+len(abbreviations))
	for i, b := range books {
		idx[normalize(b.OSIS)] = i
		idx[normalize(b.Name)] = i
		idx[normalize(b.USFM)] = i
	}
	for alias, osis := range abbreviations {
		if i, ok := idx[normalize(osis)]; ok {
			idx[normalize(alias)] = i
		}
	}
	return idx
}

// normalize folds an identifier to the lookup key form.
func normalize(id string) string {
	var sb strings.Builder
	sb.Grow(len(id))
	for _, r := range strings.ToLower(id) {
		if r == ' ' || r == '.' || r == '_' {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Lookup returns the book matching the identifier.
func Lookup(id string) (Book, bool) {
	i, ok := index[normalize(id)]
	if !ok {
		return Book{}, false
	}
	return books[i], true
}

// Order returns the canonical 0-based position of the book, or NotFound.
func Order(id string) int {
	if b, ok := Lookup(id); ok {
		return b.Order
	}
	return NotFound
}

// Code returns the OSIS ID for a recognized identifier and the identifier
// itself otherwise.
func Code(id string) string {
	if b, ok := Lookup(id); ok {
		return b.OSIS
	}
	return id
}

// Name returns the full name for a recognized identifier and the identifier
// itself otherwise.
func Name(id string) string {
	if b, ok := Lookup(id); ok {
		return b.Name
	}
	return id
}

// TestamentOf returns the testament of the book and whether it was recognized.
func TestamentOf(id string) (Testament, bool) {
	b, ok := Lookup(id)
	if !ok {
		return "", false
	}
	return b.Testament, true
}

// Books returns a copy of the canonical book list.
func Books() []Book {
	out := make([]Book, len(books))
	copy(out, books)
	return out
}

// Count returns the number of canonical books.
func Count() int {
	return len(books)
}
