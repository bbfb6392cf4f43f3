package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/FocuswithJustin/JuniperAnswers/core/canon"
	"github.com/FocuswithJustin/JuniperAnswers/core/contexts"
	"github.com/FocuswithJustin/JuniperAnswers/core/errors"
	"github.com/FocuswithJustin/JuniperAnswers/core/passage"
	"github.com/FocuswithJustin/JuniperAnswers/core/rank"
	"github.com/FocuswithJustin/JuniperAnswers/internal/api"
	"github.com/FocuswithJustin/JuniperAnswers/internal/dataset"
	"github.com/FocuswithJustin/JuniperAnswers/internal/logging"
)

// AskCmd ranks the corpus against a question from the dataset.
type AskCmd struct {
	Index  int  `help:"Question index (-1 picks one at random; out of range uses the first)" default:"-1"`
	Top    int  `help:"Number of ranked passages to list (default: ranking.top, capped at the corpus size)"`
	NoText bool `name:"no-text" help:"Do not fetch the text of the best passage"`
}

func (c *AskCmd) Run(g *Globals) error {
	ctx := context.Background()
	ds, err := g.dataset()
	if err != nil {
		return err
	}
	q := dataset.SelectQuestion(ds.Questions, c.Index, nil)
	if q == nil {
		return errors.NewNotFound("question", "no questions loaded")
	}

	ranking, err := rankQuestion(ctx, g, ds, q)
	if err != nil {
		return err
	}

	out := g.stdout()
	fmt.Fprintf(out, "Question: %s\n\n", q.Text)
	if err := printRanking(out, ranking, c.Top, g.cfg.Ranking.Top); err != nil {
		return err
	}

	if c.NoText || ranking.Len() == 0 {
		return nil
	}
	if !g.cfg.HasKey() {
		logging.Warn("no Digital Bible Platform key configured, skipping passage text")
		return nil
	}
	bible, err := g.bible(ctx, "", "")
	if err != nil {
		return err
	}
	best, text, err := rank.Answer(ctx, ranking, bible)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nAnswer: %s\n%s\n", best.Ref.Human(), text.Joined)
	return nil
}

// RankCmd ranks the corpus against a question stored in a JSON file.
type RankCmd struct {
	QuestionFile string `arg:"" name:"question-file" help:"JSON file holding one question context" type:"existingfile"`
	Top          int    `help:"Number of ranked passages to list (default: ranking.top, capped at the corpus size)"`
	JSON         bool   `name:"json" help:"Print the ranking as JSON"`
}

func (c *RankCmd) Run(g *Globals) error {
	var q contexts.Question
	if err := dataset.ReadJSON(c.QuestionFile, &q); err != nil {
		return err
	}
	ds, err := g.dataset()
	if err != nil {
		return err
	}
	ranking, err := rankQuestion(context.Background(), g, ds, &q)
	if err != nil {
		return err
	}

	out := g.stdout()
	if !c.JSON {
		fmt.Fprintf(out, "Question: %s\n\n", q.Text)
		return printRanking(out, ranking, c.Top, g.cfg.Ranking.Top)
	}

	entries, err := ranking.TopN(topCount(ranking, c.Top, g.cfg.Ranking.Top))
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "    ")
	return enc.Encode(rank.Ranking{RunID: ranking.RunID, Question: ranking.Question, Entries: entries})
}

// ReadCmd prints the text of a passage.
type ReadCmd struct {
	Ref      string `arg:"" help:"Passage, e.g. John.3.16-John.3.18 or \"John 3:16-18\""`
	Language string `arg:"" optional:"" help:"Language code (default: configured language)"`
	Version  string `arg:"" optional:"" help:"Bible version code (default: configured version)"`
	Out      string `arg:"" optional:"" help:"Also write the text to this file" type:"path"`
}

func (c *ReadCmd) Run(g *Globals) error {
	ref, err := passage.Parse(c.Ref)
	if err != nil {
		human, herr := passage.ParseHuman(c.Ref)
		if herr != nil {
			return err
		}
		ref = human
	}
	if err := ref.Validate(); err != nil {
		return err
	}

	ctx := context.Background()
	bible, err := g.bible(ctx, c.Language, c.Version)
	if err != nil {
		return err
	}
	text, err := ref.Text(ctx, bible)
	if err != nil {
		return err
	}

	fmt.Fprintf(g.stdout(), "%s\n%s\n", ref.Human(), text.Joined)
	if c.Out != "" {
		if err := os.WriteFile(c.Out, []byte(text.Joined+"\n"), 0o644); err != nil {
			return errors.NewIO("write", c.Out, err)
		}
	}
	return nil
}

// BooksCmd lists the canonical books.
type BooksCmd struct {
	Testament string `help:"Only list one testament (OT or NT)"`
}

func (c *BooksCmd) Run(g *Globals) error {
	testament := strings.ToUpper(c.Testament)
	if testament != "" && testament != string(canon.OldTestament) && testament != string(canon.NewTestament) {
		return errors.NewValidation("testament", c.Testament, "must be OT or NT")
	}
	w := tabwriter.NewWriter(g.stdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tOSIS\tUSFM\tNAME\tTESTAMENT\tCHAPTERS")
	for _, b := range canon.Books() {
		if testament != "" && string(b.Testament) != testament {
			continue
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d\n", b.Order+1, b.OSIS, b.USFM, b.Name, b.Testament, b.Chapters)
	}
	return w.Flush()
}

// ExportCmd rewrites the loaded dataset into another directory.
type ExportCmd struct {
	Dir string `arg:"" help:"Destination directory" type:"path"`
	XZ  bool   `name:"xz" help:"Compress the files with xz"`
}

func (c *ExportCmd) Run(g *Globals) error {
	ds, err := g.dataset()
	if err != nil {
		return err
	}
	if len(ds.Questions) == 0 && len(ds.Scriptures) == 0 {
		return errors.NewNotFound("dataset", g.cfg.Data.Dir)
	}

	qName, sName := filepath.Base(g.cfg.Data.Questions), filepath.Base(g.cfg.Data.Scriptures)
	qName, sName = strings.TrimSuffix(qName, ".xz"), strings.TrimSuffix(sName, ".xz")
	if c.XZ {
		qName, sName = qName+".xz", sName+".xz"
	}
	qPath, sPath := filepath.Join(c.Dir, qName), filepath.Join(c.Dir, sName)

	if err := dataset.SaveQuestions(qPath, ds.Questions); err != nil {
		return err
	}
	if err := dataset.SaveScriptures(sPath, ds.Scriptures); err != nil {
		return err
	}
	out := g.stdout()
	fmt.Fprintf(out, "%s (%d questions)\n", qPath, len(ds.Questions))
	fmt.Fprintf(out, "%s (%d scriptures)\n", sPath, len(ds.Scriptures))
	return nil
}

// ServeCmd starts the REST API server.
type ServeCmd struct {
	Port int `help:"HTTP server port (default: api.port)"`
}

func (c *ServeCmd) Run(g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	ds, err := g.dataset()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := api.Options{
		Dataset:       ds,
		Filters:       cfg.Ranking.Filters,
		FilterOptions: rank.Options{SimilarityLimit: cfg.Ranking.SimilarityLimit},
		Version:       version,
	}
	if cfg.HasKey() {
		bible, err := g.bible(ctx, "", "")
		if err != nil {
			return err
		}
		opts.Text = bible
	} else {
		logging.Warn("no Digital Bible Platform key configured, passage text disabled")
	}

	port := cfg.API.Port
	if c.Port != 0 {
		port = c.Port
	}
	srv, err := api.New(api.Config{
		Port:              port,
		RateLimitRequests: cfg.API.RateLimitRequests,
		RateLimitBurst:    cfg.API.RateLimitBurst,
		CacheTTL:          cfg.API.CacheTTL,
		CacheSize:         cfg.API.CacheSize,
		AllowedOrigins:    cfg.API.AllowedOrigins,
		Top:               cfg.Ranking.Top,
		Concurrency:       cfg.Ranking.Concurrency,
	}, opts)
	if err != nil {
		return err
	}
	return srv.ListenAndServe(ctx)
}

type VersionCmd struct{}

func (c *VersionCmd) Run(g *Globals) error {
	fmt.Fprintf(g.stdout(), "juniper-answers version %s\n", version)
	return nil
}

// Helper functions

func rankQuestion(ctx context.Context, g *Globals, ds *dataset.Dataset, q *contexts.Question) (rank.Ranking, error) {
	p, err := g.pipeline(ds)
	if err != nil {
		return rank.Ranking{}, err
	}
	return p.Run(ctx, q)
}

// topCount resolves how many entries to show: an explicit request is used
// as is, otherwise the default capped at the ranking size.
func topCount(r rank.Ranking, requested, fallback int) int {
	if requested > 0 {
		return requested
	}
	return min(fallback, r.Len())
}

func printRanking(out io.Writer, r rank.Ranking, requested, fallback int) error {
	entries, err := r.TopN(topCount(r, requested, fallback))
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tSCORE\tPASSAGE")
	for i, e := range entries {
		fmt.Fprintf(w, "%d\t%d\t%s\n", i+1, e.Score, strings.TrimSpace(e.Ref.Human()))
	}
	return w.Flush()
}
