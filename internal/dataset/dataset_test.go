package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/FocuswithJustin/JuniperAnswers/core/contexts"
)

const questionsJSON = `{
  "context": [
    {"question-text": "Who walked on water?", "people": ["Peter"], "places": [], "actions": ["walk"], "significant-words": ["water"], "scripture-section": "NT"},
    {"question-text": "Will God make a way?", "people": [], "places": ["Red Sea"], "actions": [], "significant-words": ["way"], "scripture-section": "Both"}
  ]
}`

const scripturesJSON = `{
  "scripture": [
    {"passage": "Matt.14.28-Matt.14.31", "people": ["Peter"], "places": [], "actions": ["walk"], "scripture-section": "NT", "questions": []},
    {"passage": "Exod.14.21-Exod.14.22", "people": ["Moses"], "places": ["Red Sea"], "actions": [], "scripture-section": "OT", "questions": []}
  ]
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, QuestionsFile, questionsJSON)
	writeFile(t, dir, ScripturesFile, scripturesJSON)

	ds := Load(dir, "", "")
	if len(ds.Questions) != 2 {
		t.Fatalf("Questions = %d, want 2", len(ds.Questions))
	}
	if len(ds.Scriptures) != 2 {
		t.Fatalf("Scriptures = %d, want 2", len(ds.Scriptures))
	}
	if ds.Questions[1].Section != contexts.SectionBoth {
		t.Errorf("Questions[1].Section = %q", ds.Questions[1].Section)
	}
	if ds.Scriptures[0].Passage != "Matt.14.28-Matt.14.31" {
		t.Errorf("Scriptures[0].Passage = %q", ds.Scriptures[0].Passage)
	}
	if len(ds.Fingerprint) != 64 {
		t.Errorf("Fingerprint = %q, want 64 hex chars", ds.Fingerprint)
	}

	first := ds.Fingerprint
	writeFile(t, dir, ScripturesFile, strings.Replace(scripturesJSON, "Moses", "Aaron", 1))
	if again := Load(dir, "", ""); again.Fingerprint == first {
		t.Error("Fingerprint did not change when the scriptures file changed")
	}
}

func TestLoadFailuresAreSwallowed(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.json", `{"context": [`)

	if got := LoadQuestions(bad); got != nil {
		t.Errorf("LoadQuestions(malformed) = %v, want nil", got)
	}
	if got := LoadScriptures(filepath.Join(dir, "missing.json")); got != nil {
		t.Errorf("LoadScriptures(missing) = %v, want nil", got)
	}
	if got := LoadQuestions(""); got != nil {
		t.Errorf("LoadQuestions(\"\") = %v, want nil", got)
	}

	ds := Load(filepath.Join(dir, "nope"), "", "")
	if ds == nil || len(ds.Questions) != 0 || len(ds.Scriptures) != 0 {
		t.Errorf("Load(missing dir) = %+v, want empty dataset", ds)
	}
}

func TestWriteJSONRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := Load(writeDataset(t), "", "")

	for _, name := range []string{"out/Scriptures.json", "out/Scriptures.json.xz"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := SaveScriptures(path, src.Scriptures); err != nil {
				t.Fatalf("SaveScriptures() error = %v", err)
			}
			got := LoadScriptures(path)
			if len(got) != len(src.Scriptures) {
				t.Fatalf("reloaded %d scriptures, want %d", len(got), len(src.Scriptures))
			}
			for i := range got {
				if got[i].Passage != src.Scriptures[i].Passage || got[i].Section != src.Scriptures[i].Section {
					t.Errorf("scripture %d = %+v, want %+v", i, got[i], src.Scriptures[i])
				}
			}
		})
	}

	plain, err := os.ReadFile(filepath.Join(dir, "out/Scriptures.json"))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.Contains(string(plain), "\n    \"scripture\": [") {
		t.Errorf("output not indented with four spaces:\n%s", plain)
	}

	xzData, err := os.ReadFile(filepath.Join(dir, "out/Scriptures.json.xz"))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.HasPrefix(string(xzData), "\xfd7zXZ") {
		t.Error(".xz output is not xz-compressed")
	}
}

func TestLoadPrefersPlainThenXZ(t *testing.T) {
	dir := t.TempDir()
	src := Load(writeDataset(t), "", "")
	if err := SaveQuestions(filepath.Join(dir, QuestionsFile+".xz"), src.Questions[:1]); err != nil {
		t.Fatalf("SaveQuestions() error = %v", err)
	}

	if got := Resolve(dir, QuestionsFile); got != filepath.Join(dir, QuestionsFile+".xz") {
		t.Errorf("Resolve() = %q, want the .xz file", got)
	}
	if got := Load(dir, "", ""); len(got.Questions) != 1 {
		t.Errorf("Load() questions = %d, want 1 from the .xz file", len(got.Questions))
	}

	writeFile(t, dir, QuestionsFile, questionsJSON)
	if got := Resolve(dir, QuestionsFile); got != filepath.Join(dir, QuestionsFile) {
		t.Errorf("Resolve() = %q, want the plain file", got)
	}
}

func TestWriteJSONErrors(t *testing.T) {
	if err := WriteJSON("", map[string]int{}); err == nil {
		t.Error("WriteJSON(\"\") succeeded, want error")
	}
	if err := WriteJSON(filepath.Join(t.TempDir(), "x.json"), func() {}); err == nil {
		t.Error("WriteJSON(func) succeeded, want error")
	}
}

func TestSelectQuestion(t *testing.T) {
	questions := []contexts.Question{{Text: "a"}, {Text: "b"}, {Text: "c"}}
	fixed := func(n int) int { return n - 1 }

	tests := []struct {
		name  string
		index int
		want  string
	}{
		{"valid index", 1, "b"},
		{"last index", 2, "c"},
		{"random", RandomIndex, "c"},
		{"out of range", 7, "a"},
		{"negative", -5, "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectQuestion(questions, tt.index, fixed)
			if got == nil || got.Text != tt.want {
				t.Errorf("SelectQuestion(%d) = %v, want %q", tt.index, got, tt.want)
			}
		})
	}

	if got := SelectQuestion(nil, 0, nil); got != nil {
		t.Errorf("SelectQuestion(empty) = %v, want nil", got)
	}
	if got := SelectQuestion(questions, RandomIndex, nil); got == nil {
		t.Error("SelectQuestion(random, default source) = nil")
	}
}

func writeDataset(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, QuestionsFile, questionsJSON)
	writeFile(t, dir, ScripturesFile, scripturesJSON)
	return dir
}
