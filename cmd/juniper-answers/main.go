// Command juniper-answers ranks Bible passages against questions and reads
// passage text from the Digital Bible Platform.
package main

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/JuniperAnswers/core/rank"
	"github.com/FocuswithJustin/JuniperAnswers/internal/config"
	"github.com/FocuswithJustin/JuniperAnswers/internal/dataset"
	"github.com/FocuswithJustin/JuniperAnswers/internal/dbp"
	"github.com/FocuswithJustin/JuniperAnswers/internal/logging"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "0.1.0"

// Globals are flags shared by every command. Set flags override the loaded
// configuration.
type Globals struct {
	Config      string `help:"Config file (default: juniper-answers.{yaml,json,toml} in . or ~/.config/juniper-answers)" short:"c" type:"path"`
	LogLevel    string `name:"log-level" help:"Log level (debug, info, warn, error)"`
	LogFormat   string `name:"log-format" help:"Log format (json, text)"`
	DataDir     string `name:"data-dir" help:"Directory holding the question and scripture files" type:"path"`
	Language    string `name:"lang" help:"Text language (ISO 639-3 code)"`
	Translation string `name:"translation" help:"Bible version code"`
	Key         string `name:"key" help:"Digital Bible Platform API key (default: DBP_KEY)"`

	out io.Writer
	cfg *config.Config
}

// CLI defines the command-line interface.
type CLI struct {
	Globals `embed:""`

	Ask     AskCmd     `cmd:"" help:"Rank the corpus against a dataset question and show the answer"`
	Rank    RankCmd    `cmd:"" help:"Rank the corpus against a question read from a JSON file"`
	Read    ReadCmd    `cmd:"" help:"Print the text of a passage"`
	Books   BooksCmd   `cmd:"" help:"List the canonical books"`
	Export  ExportCmd  `cmd:"" help:"Write the loaded dataset to a directory, optionally xz-compressed"`
	Serve   ServeCmd   `cmd:"" help:"Start the REST API server"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// load reads the configuration once, applies flag overrides and sets up
// logging.
func (g *Globals) load() (*config.Config, error) {
	if g.cfg != nil {
		return g.cfg, nil
	}
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}

	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&cfg.Logging.Level, g.LogLevel)
	override(&cfg.Logging.Format, g.LogFormat)
	override(&cfg.Data.Dir, g.DataDir)
	override(&cfg.Language, g.Language)
	override(&cfg.Version, g.Translation)
	override(&cfg.DBP.Key, g.Key)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logging.InitLogger(logging.ParseLevel(cfg.Logging.Level), logging.ParseFormat(cfg.Logging.Format))
	g.cfg = cfg
	return cfg, nil
}

func (g *Globals) stdout() io.Writer {
	if g.out == nil {
		return os.Stdout
	}
	return g.out
}

// dataset loads the configured question and scripture files.
func (g *Globals) dataset() (*dataset.Dataset, error) {
	cfg, err := g.load()
	if err != nil {
		return nil, err
	}
	return dataset.Load(cfg.Data.Dir, cfg.Data.Questions, cfg.Data.Scriptures), nil
}

// pipeline builds the configured filter pipeline over ds.
func (g *Globals) pipeline(ds *dataset.Dataset) (*rank.Pipeline, error) {
	cfg, err := g.load()
	if err != nil {
		return nil, err
	}
	idx, err := rank.NewIndex(ds.Scriptures)
	if err != nil {
		return nil, err
	}
	filters, err := rank.BuildFilters(cfg.Ranking.Filters, ds.Scriptures, rank.Options{
		SimilarityLimit: cfg.Ranking.SimilarityLimit,
	})
	if err != nil {
		return nil, err
	}
	return rank.NewPipeline(idx, filters...).WithConcurrency(cfg.Ranking.Concurrency), nil
}

// client creates a Digital Bible Platform client from the configuration.
func (g *Globals) client() (*dbp.Client, error) {
	cfg, err := g.load()
	if err != nil {
		return nil, err
	}
	return dbp.NewClient(dbp.Config{
		Host:              cfg.DBP.Host,
		Key:               cfg.DBP.Key,
		RequestsPerSecond: cfg.DBP.RequestsPerSecond,
		Burst:             cfg.DBP.Burst,
		CacheSize:         cfg.DBP.CacheSize,
		Timeout:           cfg.DBP.Timeout,
	})
}

// bible validates the language and version and returns a text source.
// language and version override the configuration when set.
func (g *Globals) bible(ctx context.Context, language, version string) (*dbp.Bible, error) {
	cfg, err := g.load()
	if err != nil {
		return nil, err
	}
	if language == "" {
		language = cfg.Language
	}
	if version == "" {
		version = cfg.Version
	}
	c, err := g.client()
	if err != nil {
		return nil, err
	}
	return c.Open(ctx, strings.TrimSpace(language), strings.TrimSpace(version))
}

func newParser(cli *CLI, options ...kong.Option) (*kong.Kong, error) {
	options = append([]kong.Option{
		kong.Name("juniper-answers"),
		kong.Description("Juniper Answers - find the Bible passage that answers a question"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	}, options...)
	return kong.New(cli, options...)
}

func main() {
	var cli CLI
	parser, err := newParser(&cli)
	if err != nil {
		panic(err)
	}
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)
	err = ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
