// Package config loads application settings. Sources are layered, lowest
// precedence first: built-in defaults, an optional juniper-answers.{yaml,json,toml}
// file, a .env file, and JUNIPER_* environment variables. DBP_KEY is also
// accepted for the API key. Command-line flags are applied by the caller.
package config

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/FocuswithJustin/JuniperAnswers/core/errors"
	"github.com/FocuswithJustin/JuniperAnswers/core/rank"
)

// FileName is the config file base name searched for when no explicit path
// is given.
const FileName = "juniper-answers"

// EnvPrefix prefixes every environment override, e.g. JUNIPER_DATA_DIR.
const EnvPrefix = "JUNIPER"

// Config is the complete application configuration.
type Config struct {
	// Language is the ISO 639-3 code of the text language (e.g. "ENG").
	Language string `mapstructure:"language"`

	// Version is the translation code (e.g. "ESV").
	Version string `mapstructure:"version"`

	DBP     DBPConfig     `mapstructure:"dbp"`
	Data    DataConfig    `mapstructure:"data"`
	Ranking RankingConfig `mapstructure:"ranking"`
	Logging LoggingConfig `mapstructure:"logging"`
	API     APIConfig     `mapstructure:"api"`
}

// DBPConfig configures the Digital Bible Platform client.
type DBPConfig struct {
	Host              string        `mapstructure:"host"`
	Key               string        `mapstructure:"key"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	CacheSize         int           `mapstructure:"cache_size"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

// DataConfig locates the dataset files.
type DataConfig struct {
	Dir        string `mapstructure:"dir"`
	Questions  string `mapstructure:"questions"`
	Scriptures string `mapstructure:"scriptures"`
}

// RankingConfig configures the filter pipeline.
type RankingConfig struct {
	Filters         []string `mapstructure:"filters"`
	Top             int      `mapstructure:"top"`
	Concurrency     int      `mapstructure:"concurrency"`
	SimilarityLimit int      `mapstructure:"similarity_limit"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// APIConfig configures the HTTP server.
type APIConfig struct {
	Port              int           `mapstructure:"port"`
	RateLimitRequests int           `mapstructure:"rate_limit_requests"` // per minute, 0 disables
	RateLimitBurst    int           `mapstructure:"rate_limit_burst"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
	CacheSize         int           `mapstructure:"cache_size"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("language", "ENG")
	v.SetDefault("version", "ESV")

	v.SetDefault("dbp.host", "https://4.dbt.io/api")
	v.SetDefault("dbp.key", "")
	v.SetDefault("dbp.requests_per_second", 5.0)
	v.SetDefault("dbp.burst", 2)
	v.SetDefault("dbp.cache_size", 512)
	v.SetDefault("dbp.timeout", 30*time.Second)

	v.SetDefault("data.dir", "data")
	v.SetDefault("data.questions", "Contexts.json")
	v.SetDefault("data.scriptures", "Scriptures.json")

	v.SetDefault("ranking.filters", rank.DefaultFilters)
	v.SetDefault("ranking.top", 5)
	v.SetDefault("ranking.concurrency", 0)
	v.SetDefault("ranking.similarity_limit", rank.DefaultSimilarityLimit)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("api.port", 8080)
	v.SetDefault("api.rate_limit_requests", 120)
	v.SetDefault("api.rate_limit_burst", 20)
	v.SetDefault("api.cache_ttl", 10*time.Minute)
	v.SetDefault("api.cache_size", 256)
	v.SetDefault("api.allowed_origins", []string{})
}

// DefaultConfig returns the configuration used when no file or environment
// overrides are present.
func DefaultConfig() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config: decoding defaults: %v", err))
	}
	return &cfg
}

// Load reads the configuration. An empty path searches the working directory
// and $HOME/.config/juniper-answers for juniper-answers.{yaml,json,toml}; a
// missing file there is not an error. An explicit path must exist.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("dbp.key", EnvPrefix+"_DBP_KEY", "DBP_KEY"); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/juniper-answers")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !stderrors.As(err, &notFound) {
			return nil, errors.Wrapf(err, "reading config %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges. It does not require an API key, since only
// text retrieval needs one.
func (c *Config) Validate() error {
	if c.Ranking.Top < 1 {
		return errors.NewValidation("ranking.top", fmt.Sprint(c.Ranking.Top), "must be at least 1")
	}
	if c.Ranking.Concurrency < 0 {
		return errors.NewValidation("ranking.concurrency", fmt.Sprint(c.Ranking.Concurrency), "must not be negative")
	}
	if len(c.Ranking.Filters) == 0 {
		return errors.NewValidation("ranking.filters", "", "at least one filter is required")
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		return errors.NewValidation("api.port", fmt.Sprint(c.API.Port), "must be between 0 and 65535")
	}
	if c.API.RateLimitRequests < 0 {
		return errors.NewValidation("api.rate_limit_requests", fmt.Sprint(c.API.RateLimitRequests), "must not be negative")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return errors.NewValidation("logging.format", c.Logging.Format, "must be json or text")
	}
	return nil
}

// HasKey reports whether an API key is configured.
func (c *Config) HasKey() bool {
	return strings.TrimSpace(c.DBP.Key) != ""
}
