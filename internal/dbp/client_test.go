package dbp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/FocuswithJustin/JuniperAnswers/core/errors"
	"github.com/FocuswithJustin/JuniperAnswers/core/passage"
)

// fakeAPI serves a tiny slice of the Digital Bible Platform.
type fakeAPI struct {
	mu    sync.Mutex
	calls map[string]int
	paths []string
}

func (f *fakeAPI) hits(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[r.URL.Path]++
	f.paths = append(f.paths, r.URL.Path+"?"+r.URL.RawQuery)
	f.mu.Unlock()

	q := r.URL.Query()
	if q.Get("key") != "test-key" || q.Get("v") != "4" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	write := func(v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}

	switch {
	case r.URL.Path == "/languages":
		page := q.Get("page")
		isos := map[string][]string{"1": {"spa", "fra"}, "2": {"deu", "eng"}}[page]
		var data []map[string]string
		for _, iso := range isos {
			data = append(data, map[string]string{"iso": iso})
		}
		write(map[string]any{
			"data": data,
			"meta": map[string]any{"pagination": map[string]any{"total_pages": 2}},
		})

	case r.URL.Path == "/bibles":
		if q.Get("media") != "text_plain" || q.Get("language_code") != "ENG" {
			write(map[string]any{"data": []any{}, "meta": map[string]any{"pagination": map[string]any{"last_page": 1}}})
			return
		}
		write(map[string]any{
			"data": []any{
				map[string]any{"abbr": "ENGKJV", "filesets": map[string]any{"dbp-prod": []any{map[string]string{"id": "ENGKJV", "type": "text_plain"}}}},
				map[string]any{"abbr": "ENGESV", "filesets": map[string]any{"dbp-prod": []any{map[string]string{"id": "ENGESV", "type": "text_plain"}}}},
			},
			"meta": map[string]any{"pagination": map[string]any{"last_page": 1}},
		})

	case r.URL.Path == "/bibles/ENGESV/book":
		if q.Get("book_id") != "JHN" {
			write(map[string]any{"data": []any{}})
			return
		}
		write(map[string]any{"data": []any{map[string]any{
			"book_id":  "JHN",
			"name":     "John",
			"chapters": []int{1, 2, 3},
			"verses_count": []map[string]int{
				{"chapter": 1, "verses": 3},
				{"chapter": 2, "verses": 2},
				{"chapter": 3, "verses": 4},
			},
		}}})

	case strings.HasPrefix(r.URL.Path, "/bibles/filesets/ENGESV/JHN/"):
		var chapter, first, last int
		fmt.Sscanf(strings.TrimPrefix(r.URL.Path, "/bibles/filesets/ENGESV/JHN/"), "%d", &chapter)
		fmt.Sscanf(q.Get("verse_start"), "%d", &first)
		fmt.Sscanf(q.Get("verse_end"), "%d", &last)
		var data []map[string]any
		for v := first; v <= last; v++ {
			data = append(data, map[string]any{"verse_start": v, "verse_text": fmt.Sprintf("  J%d:%d ", chapter, v)})
		}
		write(map[string]any{"data": data})

	case r.URL.Path == "/broken":
		_, _ = w.Write([]byte("{not json"))

	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T) (*Client, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{Host: srv.URL, Key: "test-key"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c, api
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(Config{}); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("NewClient() error = %v, want ErrInvalidInput", err)
	}
}

func TestValidateLanguage(t *testing.T) {
	c, api := newTestClient(t)
	ctx := context.Background()

	if err := c.ValidateLanguage(ctx, "ENG"); err != nil {
		t.Errorf("ValidateLanguage(ENG) error = %v", err)
	}
	if api.hits("/languages") != 2 {
		t.Errorf("languages endpoint hit %d times, want 2", api.hits("/languages"))
	}

	var verr *errors.ValidationError
	if err := c.ValidateLanguage(ctx, "xyz"); !errors.As(err, &verr) || verr.Field != "language" {
		t.Errorf("ValidateLanguage(xyz) error = %v, want language ValidationError", err)
	}
	if err := c.ValidateLanguage(ctx, ""); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("ValidateLanguage(empty) error = %v", err)
	}
}

func TestValidateVersion(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	if err := c.ValidateVersion(ctx, "eng", "esv"); err != nil {
		t.Errorf("ValidateVersion(eng, esv) error = %v", err)
	}
	if err := c.ValidateVersion(ctx, "ENG", "NIV"); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("ValidateVersion(NIV) error = %v, want ErrInvalidInput", err)
	}
}

func TestOpen(t *testing.T) {
	c, _ := newTestClient(t)
	b, err := c.Open(context.Background(), "eng", "esv")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if b.FilesetID() != "ENGESV" {
		t.Errorf("FilesetID() = %q, want ENGESV", b.FilesetID())
	}

	if _, err := c.Open(context.Background(), "xyz", "esv"); err == nil {
		t.Error("Open(xyz) succeeded, want error")
	}
}

func TestRetrievalErrors(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	var out map[string]any
	err := c.getJSON(ctx, "lookup", "/missing", url.Values{}, &out)
	var rerr *errors.RetrievalError
	if !errors.As(err, &rerr) {
		t.Fatalf("getJSON(/missing) error = %v, want *RetrievalError", err)
	}
	if rerr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", rerr.StatusCode)
	}
	if strings.Contains(err.Error(), "test-key") {
		t.Errorf("error leaks API key: %v", err)
	}

	if err := c.getJSON(ctx, "lookup", "/broken", url.Values{}, &out); !errors.Is(err, errors.ErrRetrieval) {
		t.Errorf("getJSON(/broken) error = %v, want ErrRetrieval", err)
	}

	bad, err := NewClient(Config{Host: "http://127.0.0.1:1", Key: "k"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if err := bad.ValidateLanguage(ctx, "eng"); !errors.Is(err, errors.ErrRetrieval) {
		t.Errorf("ValidateLanguage(unreachable) error = %v, want ErrRetrieval", err)
	}
}

func TestFetchPassage(t *testing.T) {
	c, api := newTestClient(t)
	b := c.Bible("eng", "esv")
	ctx := context.Background()

	tests := []struct {
		name       string
		sc, ec     int
		sv, ev     int
		wantJoined string
		wantShape  []int
	}{
		{"single verse", 3, 3, 2, 2, "J3:2", []int{1}},
		{"verse range", 3, 3, 2, 4, "J3:2 J3:3 J3:4", []int{3}},
		{"across chapters", 1, 2, 3, 1, "J1:3 J2:1", []int{1, 1}},
		{"to end of chapter", 2, 2, 1, 0, "J2:1 J2:2", []int{2}},
		{"to end of book", 2, 0, 2, 0, "J2:2 J3:1 J3:2 J3:3 J3:4", []int{1, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := b.FetchPassage(ctx, "John", tt.sc, tt.ec, tt.sv, tt.ev)
			if err != nil {
				t.Fatalf("FetchPassage() error = %v", err)
			}
			if got.Joined != tt.wantJoined {
				t.Errorf("Joined = %q, want %q", got.Joined, tt.wantJoined)
			}
			if len(got.Chapters) != len(tt.wantShape) {
				t.Fatalf("Chapters = %v, want %d chapters", got.Chapters, len(tt.wantShape))
			}
			for i, n := range tt.wantShape {
				if len(got.Chapters[i]) != n {
					t.Errorf("Chapters[%d] has %d verses, want %d", i, len(got.Chapters[i]), n)
				}
			}
		})
	}

	if api.hits("/bibles/ENGESV/book") != 1 {
		t.Errorf("book info fetched %d times, want 1 (cached)", api.hits("/bibles/ENGESV/book"))
	}

	before := api.hits("/bibles/filesets/ENGESV/JHN/3")
	if _, err := b.FetchPassage(ctx, "JHN", 3, 3, 2, 2); err != nil {
		t.Fatalf("FetchPassage() error = %v", err)
	}
	if api.hits("/bibles/filesets/ENGESV/JHN/3") != before {
		t.Error("repeated chapter request was not served from cache")
	}

	if _, err := b.FetchPassage(ctx, "John", 3, 3, 4, 2); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("FetchPassage(reversed) error = %v, want ErrInvalidInput", err)
	}
	if _, err := b.FetchPassage(ctx, "John", 9, 9, 1, 0); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("FetchPassage(chapter 9) error = %v, want ErrNotFound", err)
	}
	if _, err := b.FetchPassage(ctx, "Rom", 1, 0, 1, 0); !errors.Is(err, errors.ErrRetrieval) {
		t.Errorf("FetchPassage(no book info) error = %v, want ErrRetrieval", err)
	}
}

func TestBibleIsTextSource(t *testing.T) {
	c, _ := newTestClient(t)
	text, err := passage.MustParse("John.1.1-John.1.2").Text(context.Background(), c.Bible("ENG", "ESV"))
	if err != nil {
		t.Fatalf("Text() error = %v", err)
	}
	if text.Joined != "J1:1 J1:2" {
		t.Errorf("Text() = %q, want %q", text.Joined, "J1:1 J1:2")
	}
}

func TestFetchPassageCacheIsolation(t *testing.T) {
	c, api := newTestClient(t)
	b := c.Bible("eng", "esv")
	ctx := context.Background()

	first, err := b.FetchPassage(ctx, "John", 1, 1, 1, 2)
	if err != nil {
		t.Fatalf("FetchPassage() error = %v", err)
	}
	first.Chapters[0][0] = "edited"

	second, err := b.FetchPassage(ctx, "John", 1, 1, 1, 2)
	if err != nil {
		t.Fatalf("FetchPassage() error = %v", err)
	}
	if api.hits("/bibles/filesets/ENGESV/JHN/1") != 1 {
		t.Fatalf("chapter fetched %d times, want 1 (cached)", api.hits("/bibles/filesets/ENGESV/JHN/1"))
	}
	if second.Chapters[0][0] != "J1:1" {
		t.Errorf("cached verse = %q, want J1:1", second.Chapters[0][0])
	}
	second.Chapters[0][1] = "edited"

	third, _ := b.FetchPassage(ctx, "John", 1, 1, 1, 2)
	if third.Chapters[0][1] != "J1:2" {
		t.Errorf("cached verse = %q, want J1:2", third.Chapters[0][1])
	}
}
