// Package dataset loads and saves the flat JSON files holding question and
// scripture contexts. Files ending in .xz are transparently (de)compressed.
//
// Loading never fails: a missing or malformed file is logged and yields no
// records, so callers degrade to an empty corpus instead of aborting.
package dataset

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/JuniperAnswers/core/contexts"
	"github.com/FocuswithJustin/JuniperAnswers/core/errors"
	"github.com/FocuswithJustin/JuniperAnswers/internal/logging"
)

// Default file names inside a data directory.
const (
	QuestionsFile  = "Contexts.json"
	ScripturesFile = "Scriptures.json"
)

// questionsDoc is the on-disk shape of a questions file.
type questionsDoc struct {
	Context []contexts.Question `json:"context"`
}

// scripturesDoc is the on-disk shape of a scriptures file.
type scripturesDoc struct {
	Scripture []contexts.Scripture `json:"scripture"`
}

// Dataset is a loaded corpus plus the questions asked of it.
type Dataset struct {
	Questions  []contexts.Question
	Scriptures []contexts.Scripture

	// Fingerprint is the BLAKE3 hash of the raw files, hex encoded. It
	// changes whenever either file changes.
	Fingerprint string
}

// ReadJSON decodes the file at path into v.
func ReadJSON(path string, v any) error {
	data, err := readFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.NewParse("JSON", path, err.Error())
	}
	return nil
}

func readFile(path string) ([]byte, error) {
	if path == "" {
		return nil, errors.NewValidation("path", "", "path is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".xz") {
		xzr, err := xz.NewReader(f)
		if err != nil {
			return nil, errors.NewIO("xz reader", path, err)
		}
		r = xzr
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewIO("read", path, err)
	}
	return data, nil
}

// LoadQuestions reads a questions file ({"context": [...]}).
func LoadQuestions(path string) []contexts.Question {
	var doc questionsDoc
	err := ReadJSON(path, &doc)
	logging.DatasetLoad(path, len(doc.Context), err)
	if err != nil {
		return nil
	}
	return doc.Context
}

// LoadScriptures reads a scriptures file ({"scripture": [...]}).
func LoadScriptures(path string) []contexts.Scripture {
	var doc scripturesDoc
	err := ReadJSON(path, &doc)
	logging.DatasetLoad(path, len(doc.Scripture), err)
	if err != nil {
		return nil
	}
	return doc.Scripture
}

// Resolve returns the path of name inside dir, preferring an uncompressed
// file and falling back to name.xz.
func Resolve(dir, name string) string {
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); err == nil || strings.HasSuffix(name, ".xz") {
		return path
	}
	if _, err := os.Stat(path + ".xz"); err == nil {
		return path + ".xz"
	}
	return path
}

// Load reads the questions and scriptures files from dir. Empty names use
// QuestionsFile and ScripturesFile.
func Load(dir, questionsName, scripturesName string) *Dataset {
	if questionsName == "" {
		questionsName = QuestionsFile
	}
	if scripturesName == "" {
		scripturesName = ScripturesFile
	}
	qPath := Resolve(dir, questionsName)
	sPath := Resolve(dir, scripturesName)

	ds := &Dataset{
		Questions:  LoadQuestions(qPath),
		Scriptures: LoadScriptures(sPath),
	}
	ds.Fingerprint = fingerprint(qPath, sPath)
	return ds
}

// fingerprint hashes the raw bytes of every readable path.
func fingerprint(paths ...string) string {
	var buf bytes.Buffer
	for _, p := range paths {
		data, err := readFile(p)
		if err != nil {
			continue
		}
		buf.WriteString(filepath.Base(p))
		buf.WriteByte(0)
		buf.Write(data)
		buf.WriteByte(0)
	}
	sum := blake3.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:])
}

// WriteJSON writes v to path as JSON indented with four spaces, compressing
// with xz when path ends in .xz. Failures are logged and returned.
func WriteJSON(path string, v any) (err error) {
	defer func() {
		if err != nil {
			logging.Error("dataset_write", "path", path, "error", err.Error())
		}
	}()

	if path == "" {
		return errors.NewValidation("path", "", "path is required")
	}
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return errors.Wrap(err, "encoding JSON")
	}
	data = append(data, '\n')

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.NewIO("mkdir", dir, err)
		}
	}

	if !strings.HasSuffix(path, ".xz") {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return errors.NewIO("write", path, err)
		}
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.NewIO("create", path, err)
	}
	defer f.Close()

	xzw, err := xz.NewWriter(f)
	if err != nil {
		return errors.NewIO("xz writer", path, err)
	}
	if _, err := xzw.Write(data); err != nil {
		return errors.NewIO("write", path, err)
	}
	if err := xzw.Close(); err != nil {
		return errors.NewIO("close", path, err)
	}
	return nil
}

// SaveQuestions writes questions in the questions file layout.
func SaveQuestions(path string, questions []contexts.Question) error {
	return WriteJSON(path, questionsDoc{Context: questions})
}

// SaveScriptures writes scriptures in the scriptures file layout.
func SaveScriptures(path string, scriptures []contexts.Scripture) error {
	return WriteJSON(path, scripturesDoc{Scripture: scriptures})
}

// RandomIndex is the index value that asks SelectQuestion for a random pick.
const RandomIndex = -1

// SelectQuestion picks a question: a random one for RandomIndex, the one at
// index when it is in range, and the first one otherwise. It returns nil when
// there are no questions. intn supplies randomness and defaults to
// math/rand.Intn.
func SelectQuestion(questions []contexts.Question, index int, intn func(int) int) *contexts.Question {
	n := len(questions)
	if n == 0 {
		return nil
	}
	if intn == nil {
		intn = rand.Intn
	}

	switch {
	case index >= 0 && index < n:
	case index == RandomIndex:
		index = intn(n)
	default:
		index = 0
	}
	return &questions[index]
}
