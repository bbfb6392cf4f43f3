package dbp

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/FocuswithJustin/JuniperAnswers/core/canon"
	"github.com/FocuswithJustin/JuniperAnswers/core/errors"
	"github.com/FocuswithJustin/JuniperAnswers/core/passage"
)

// Bible retrieves text in one language and version. It implements
// passage.TextSource.
type Bible struct {
	client   *Client
	Language string
	Version  string
}

var _ passage.TextSource = (*Bible)(nil)

// FilesetID returns the plain-text fileset this Bible reads from.
func (b *Bible) FilesetID() string {
	return FilesetID(b.Language, b.Version)
}

// BookInfo describes a book as the API reports it.
type BookInfo struct {
	BookID      string       `json:"book_id"`
	Name        string       `json:"name"`
	NameShort   string       `json:"name_short"`
	Testament   string       `json:"testament"`
	BookSeq     string       `json:"book_seq"`
	Chapters    []int        `json:"chapters"`
	VersesCount []VerseCount `json:"verses_count"`
}

// VerseCount is the number of verses in one chapter.
type VerseCount struct {
	Chapter int `json:"chapter"`
	Verses  int `json:"verses"`
}

// LastChapter returns the number of chapters in the book.
func (bi BookInfo) LastChapter() int {
	return len(bi.Chapters)
}

// LastVerse returns the number of verses in chapter.
func (bi BookInfo) LastVerse(chapter int) (int, error) {
	if chapter < 1 || chapter > len(bi.VersesCount) {
		return 0, errors.NewNotFound("chapter", fmt.Sprintf("%s %d", bi.BookID, chapter))
	}
	return bi.VersesCount[chapter-1].Verses, nil
}

// bookCode maps a book identifier to the code the API expects. Unknown
// identifiers pass through unchanged.
func bookCode(book string) string {
	if b, ok := canon.Lookup(book); ok {
		return b.USFM
	}
	return strings.ToUpper(book)
}

// BookInfo returns chapter and verse counts for book.
func (b *Bible) BookInfo(ctx context.Context, book string) (BookInfo, error) {
	code := bookCode(book)
	key := b.FilesetID() + "/" + code
	if info, ok := b.client.books.Get(key); ok {
		return info, nil
	}

	var resp struct {
		Data []BookInfo `json:"data"`
	}
	params := url.Values{
		"book_id":        {code},
		"verify_content": {"true"},
		"verse_count":    {"true"},
	}
	endpoint := "/bibles/" + url.PathEscape(b.FilesetID()) + "/book"
	if err := b.client.getJSON(ctx, "book info", endpoint, params, &resp); err != nil {
		return BookInfo{}, err
	}
	if len(resp.Data) == 0 {
		return BookInfo{}, errors.NewRetrieval("book info", b.client.host+endpoint, 200, "no data for book "+code, nil)
	}

	info := resp.Data[0]
	b.client.books.Add(key, info)
	return info, nil
}

// FetchPassage returns the text of book from startChapter:startVerse to
// endChapter:endVerse. A zero startChapter or startVerse means 1; a zero
// endChapter means the last chapter of the book and a zero endVerse the last
// verse of endChapter.
func (b *Bible) FetchPassage(ctx context.Context, book string, startChapter, endChapter, startVerse, endVerse int) (passage.Text, error) {
	if startChapter <= 0 {
		startChapter = 1
	}
	if startVerse <= 0 {
		startVerse = 1
	}

	var info *BookInfo
	loadInfo := func() (*BookInfo, error) {
		if info == nil {
			bi, err := b.BookInfo(ctx, book)
			if err != nil {
				return nil, err
			}
			info = &bi
		}
		return info, nil
	}

	if endChapter <= 0 {
		bi, err := loadInfo()
		if err != nil {
			return passage.Text{}, err
		}
		endChapter = bi.LastChapter()
	}
	if endVerse <= 0 {
		bi, err := loadInfo()
		if err != nil {
			return passage.Text{}, err
		}
		if endVerse, err = bi.LastVerse(endChapter); err != nil {
			return passage.Text{}, err
		}
	}
	if endChapter < startChapter || (endChapter == startChapter && endVerse < startVerse) {
		return passage.Text{}, errors.NewValidation("range", fmt.Sprintf("%d:%d-%d:%d", startChapter, startVerse, endChapter, endVerse), "range ends before it starts")
	}

	var text passage.Text
	var all []string
	for ch := startChapter; ch <= endChapter; ch++ {
		first, last := 1, endVerse
		if ch == startChapter {
			first = startVerse
		}
		if ch != endChapter {
			bi, err := loadInfo()
			if err != nil {
				return passage.Text{}, err
			}
			if last, err = bi.LastVerse(ch); err != nil {
				return passage.Text{}, err
			}
		}

		verses, err := b.chapter(ctx, book, ch, first, last)
		if err != nil {
			return passage.Text{}, err
		}
		text.Chapters = append(text.Chapters, verses)
		all = append(all, verses...)
	}
	text.Joined = strings.Join(all, " ")
	return text, nil
}

// chapter returns the trimmed verse texts of one chapter range.
func (b *Bible) chapter(ctx context.Context, book string, chapter, first, last int) ([]string, error) {
	code := bookCode(book)
	key := fmt.Sprintf("%s/%s/%d/%d-%d", b.FilesetID(), code, chapter, first, last)
	if verses, ok := b.client.verses.Get(key); ok {
		return slices.Clone(verses), nil
	}

	var resp struct {
		Data []struct {
			VerseStart int    `json:"verse_start"`
			VerseText  string `json:"verse_text"`
		} `json:"data"`
	}
	params := url.Values{
		"verse_start": {fmt.Sprint(first)},
		"verse_end":   {fmt.Sprint(last)},
	}
	endpoint := fmt.Sprintf("/bibles/filesets/%s/%s/%d", url.PathEscape(b.FilesetID()), url.PathEscape(code), chapter)
	if err := b.client.getJSON(ctx, "verses", endpoint, params, &resp); err != nil {
		return nil, err
	}

	verses := make([]string, 0, len(resp.Data))
	for _, v := range resp.Data {
		verses = append(verses, strings.TrimSpace(v.VerseText))
	}
	b.client.verses.Add(key, verses)
	return slices.Clone(verses), nil
}
