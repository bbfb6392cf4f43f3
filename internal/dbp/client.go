// Package dbp is a client for the Digital Bible Platform v4 API, used to
// validate a language and version and to retrieve passage text.
package dbp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/FocuswithJustin/JuniperAnswers/core/errors"
	"github.com/FocuswithJustin/JuniperAnswers/internal/logging"
)

// DefaultHost is the production API root.
const DefaultHost = "https://4.dbt.io/api"

// apiVersion is sent as the v parameter on every request.
const apiVersion = "4"

// pageLimit is the page size requested from paginated endpoints.
const pageLimit = 150

// Config configures a Client.
type Config struct {
	// Host is the API root. Defaults to DefaultHost.
	Host string

	// Key is the API key sent with every request.
	Key string

	// RequestsPerSecond throttles outbound calls. Zero or negative disables
	// throttling.
	RequestsPerSecond float64

	// Burst is the token bucket size. Defaults to 1.
	Burst int

	// CacheSize bounds the number of cached chapter and book responses.
	// Defaults to 512.
	CacheSize int

	// Timeout applies to each HTTP request. Defaults to 30 seconds.
	Timeout time.Duration

	// HTTPClient overrides the HTTP client. Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client talks to the API. It is safe for concurrent use.
type Client struct {
	host       string
	key        string
	httpClient *http.Client
	limiter    *rate.Limiter
	books      *lru.Cache[string, BookInfo]
	verses     *lru.Cache[string, []string]
}

// NewClient creates a client from cfg.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Key) == "" {
		return nil, errors.NewValidation("key", "", "an API key is required (set DBP_KEY)")
	}
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 512
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	books, err := lru.New[string, BookInfo](cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	verses, err := lru.New[string, []string](cfg.CacheSize)
	if err != nil {
		return nil, err
	}

	return &Client{
		host:       strings.TrimRight(cfg.Host, "/"),
		key:        cfg.Key,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, cfg.Burst),
		books:      books,
		verses:     verses,
	}, nil
}

// pagination is the meta block of paginated responses. The languages
// endpoint reports total_pages, the bibles endpoint last_page.
type pagination struct {
	Meta struct {
		Pagination struct {
			TotalPages int `json:"total_pages"`
			LastPage   int `json:"last_page"`
		} `json:"pagination"`
	} `json:"meta"`
}

type languagesPage struct {
	pagination
	Data []struct {
		ISO  string `json:"iso"`
		Name string `json:"name"`
	} `json:"data"`
}

type biblesPage struct {
	pagination
	Data []struct {
		Abbr     string `json:"abbr"`
		Filesets map[string][]struct {
			ID   string `json:"id"`
			Type string `json:"type"`
		} `json:"filesets"`
	} `json:"data"`
}

// ValidateLanguage checks that the API has content for the ISO 639-3
// language code. An unknown language is a ValidationError; transport and
// format failures are RetrievalErrors.
func (c *Client) ValidateLanguage(ctx context.Context, lang string) error {
	want := strings.ToLower(strings.TrimSpace(lang))
	if want == "" {
		return errors.NewValidation("language", lang, "language code is required")
	}

	maxPage := -1
	for page := 1; maxPage == -1 || page <= maxPage; page++ {
		var resp languagesPage
		params := url.Values{
			"limit": {fmt.Sprint(pageLimit)},
			"page":  {fmt.Sprint(page)},
		}
		if err := c.getJSON(ctx, "languages", "/languages", params, &resp); err != nil {
			return err
		}
		if maxPage == -1 {
			maxPage = resp.Meta.Pagination.TotalPages
		}
		for _, l := range resp.Data {
			if l.ISO == want {
				return nil
			}
		}
	}
	return errors.NewValidation("language", lang, "no content for this language code")
}

// ValidateVersion checks that a plain-text fileset exists for the language
// and version pair.
func (c *Client) ValidateVersion(ctx context.Context, lang, version string) error {
	if strings.TrimSpace(version) == "" {
		return errors.NewValidation("version", version, "version code is required")
	}
	want := FilesetID(lang, version)

	maxPage := -1
	for page := 1; maxPage == -1 || page <= maxPage; page++ {
		var resp biblesPage
		params := url.Values{
			"language_code": {strings.ToUpper(lang)},
			"media":         {"text_plain"},
			"limit":         {fmt.Sprint(pageLimit)},
			"page":          {fmt.Sprint(page)},
		}
		if err := c.getJSON(ctx, "versions", "/bibles", params, &resp); err != nil {
			return err
		}
		if maxPage == -1 {
			maxPage = resp.Meta.Pagination.LastPage
		}
		for _, bible := range resp.Data {
			for _, fs := range bible.Filesets["dbp-prod"] {
				if strings.EqualFold(fs.ID, want) {
					return nil
				}
			}
		}
	}
	return errors.NewValidation("version", version, fmt.Sprintf("no plain-text fileset %s", want))
}

// Open validates the language and version and returns a Bible bound to them.
func (c *Client) Open(ctx context.Context, lang, version string) (*Bible, error) {
	if err := c.ValidateLanguage(ctx, lang); err != nil {
		return nil, err
	}
	if err := c.ValidateVersion(ctx, lang, version); err != nil {
		return nil, err
	}
	return c.Bible(lang, version), nil
}

// Bible binds the client to a language and version without validating them.
func (c *Client) Bible(lang, version string) *Bible {
	return &Bible{
		client:   c,
		Language: strings.ToUpper(lang),
		Version:  strings.ToUpper(version),
	}
}

// FilesetID is the plain-text fileset identifier for a language and version
// ("ENG" + "ESV" = "ENGESV").
func FilesetID(lang, version string) string {
	return strings.ToUpper(strings.TrimSpace(lang) + strings.TrimSpace(version))
}

// getJSON performs a GET against endpoint and decodes the JSON body into out.
// The API key never appears in returned errors.
func (c *Client) getJSON(ctx context.Context, operation, endpoint string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	params.Set("v", apiVersion)
	params.Set("key", c.key)
	endpointURL := c.host + endpoint

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpointURL+"?"+params.Encode(), nil)
	if err != nil {
		return errors.NewRetrieval(operation, endpointURL, 0, "building request", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.NewRetrieval(operation, endpointURL, 0, "request failed", err)
	}
	defer resp.Body.Close()
	logging.RemoteCall(ctx, endpoint, resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		return errors.NewRetrieval(operation, endpointURL, resp.StatusCode, "unexpected status", nil)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.NewRetrieval(operation, endpointURL, resp.StatusCode, "unexpected response format", err)
	}
	return nil
}
