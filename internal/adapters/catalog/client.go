// Package catalog enriches movie and series notifications with metadata from
// a TMDB-compatible catalog service.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/RyDizz214/snappier-server-docker/internal/adapters/cache"
	"github.com/RyDizz214/snappier-server-docker/pkg/logger"
	"github.com/RyDizz214/snappier-server-docker/pkg/metrics"
)

const (
	defaultBaseURL   = "https://api.themoviedb.org/3"
	defaultTimeout   = 3 * time.Second
	defaultLanguage  = "en-US"
	defaultCacheSize = 500
	defaultRate      = 10
)

// Kind selects the catalog search endpoint.
type Kind string

const (
	KindMovie  Kind = "movie"
	KindSeries Kind = "tv"
)

// Entry is the metadata kept from the first search hit.
type Entry struct {
	ID       int      `json:"tmdb_id"`
	Title    string   `json:"title"`
	Overview string   `json:"overview"`
	Genres   []string `json:"genres"`
	Rating   *float64 `json:"vote_average,omitempty"`
	Votes    *int     `json:"vote_count,omitempty"`
	// Date is the release date for movies and first air date for series.
	Date string `json:"date,omitempty"`
}

// Year is the leading year of Date, or "".
func (e *Entry) Year() string {
	if len(e.Date) >= 4 {
		return e.Date[:4]
	}
	return ""
}

type searchResult struct {
	ID           int      `json:"id"`
	Title        string   `json:"title"`
	Name         string   `json:"name"`
	Overview     string   `json:"overview"`
	GenreIDs     []int    `json:"genre_ids"`
	VoteAverage  *float64 `json:"vote_average"`
	VoteCount    *int     `json:"vote_count"`
	ReleaseDate  string   `json:"release_date"`
	FirstAirDate string   `json:"first_air_date"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

// Client looks up titles and caches both hits and misses.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	language   string
	enabled    bool
	cache      *cache.LRU[string, *Entry]
	limiter    *rate.Limiter
	logger     logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the catalog API key. Lookups are disabled without one.
func WithAPIKey(key string) Option { return func(c *Client) { c.apiKey = key } }

// WithBaseURL sets the API root.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base = strings.TrimRight(base, "/"); base != "" {
			c.baseURL = base
		}
	}
}

// WithEnabled turns lookups on or off.
func WithEnabled(enabled bool) Option { return func(c *Client) { c.enabled = enabled } }

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithLanguage sets the response language.
func WithLanguage(lang string) Option {
	return func(c *Client) {
		if lang != "" {
			c.language = lang
		}
	}
}

// WithCacheSize sets the lookup cache capacity.
func WithCacheSize(n int) Option {
	return func(c *Client) { c.cache = cache.New[string, *Entry](n) }
}

// WithRateLimit throttles outbound requests per second.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), max(1, int(perSecond)))
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a catalog client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    defaultBaseURL,
		language:   defaultLanguage,
		enabled:    true,
		cache:      cache.New[string, *Entry](defaultCacheSize),
		limiter:    rate.NewLimiter(rate.Limit(defaultRate), defaultRate),
		logger:     logger.Get().Named("catalog"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether lookups will be attempted.
func (c *Client) Enabled() bool { return c.enabled && c.apiKey != "" }

// CacheLen is the number of cached lookups, including misses.
func (c *Client) CacheLen() int { return c.cache.Len() }

// Movie parses a movie title (and year) from the programme name or file path
// and returns the first catalog match.
func (c *Client) Movie(ctx context.Context, programName, filePath string) (*Entry, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}
	title, year := ParseMovieTitleYear(programName, filePath)
	if title == "" {
		return nil, ErrNotFound
	}
	key := title
	if year > 0 {
		key = fmt.Sprintf("%s:%d", title, year)
	}
	return c.lookup(ctx, KindMovie, key, title, year)
}

// Series parses "Title (YYYY)" and returns the first catalog match.
func (c *Client) Series(ctx context.Context, programName string) (*Entry, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}
	title, year := ParseSeriesTitleYear(programName)
	if title == "" {
		return nil, ErrNotFound
	}
	key := "tv:" + title
	if year > 0 {
		key = fmt.Sprintf("tv:%s:%d", title, year)
	}
	return c.lookup(ctx, KindSeries, key, title, year)
}

func (c *Client) lookup(ctx context.Context, kind Kind, key, title string, year int) (*Entry, error) {
	if e, ok := c.cache.Get(key); ok {
		metrics.RecordCatalogLookup(string(kind), "cached")
		if e == nil {
			return nil, ErrNotFound
		}
		return e, nil
	}

	e, err := c.search(ctx, kind, title, year)
	switch {
	case err != nil:
		metrics.RecordCatalogLookup(string(kind), "error")
		c.logger.Warn(ctx, "catalog search failed",
			logger.String("kind", string(kind)),
			logger.String("title", title),
			logger.Error(err),
		)
		return nil, err
	case e == nil:
		metrics.RecordCatalogLookup(string(kind), "miss")
		c.cache.Add(key, nil)
		return nil, ErrNotFound
	}

	metrics.RecordCatalogLookup(string(kind), "hit")
	c.cache.Add(key, e)
	c.logger.Debug(ctx, "catalog match",
		logger.String("kind", string(kind)),
		logger.String("title", e.Title),
		logger.String("year", e.Year()),
	)
	return e, nil
}

func (c *Client) search(ctx context.Context, kind Kind, title string, year int) (*Entry, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait: %w", ErrUnavailable, err)
	}

	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("query", title)
	params.Set("language", c.language)
	if year > 0 {
		if kind == KindSeries {
			params.Set("first_air_date_year", strconv.Itoa(year))
		} else {
			params.Set("year", strconv.Itoa(year))
		}
	}

	u := c.baseURL + "/search/" + string(kind) + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrUnavailable, err)
	}
	if len(body.Results) == 0 {
		return nil, nil
	}

	// The first result is the most relevant.
	r := body.Results[0]
	e := &Entry{
		ID:       r.ID,
		Title:    r.Title,
		Overview: r.Overview,
		Genres:   GenreNames(r.GenreIDs),
		Rating:   r.VoteAverage,
		Votes:    r.VoteCount,
		Date:     r.ReleaseDate,
	}
	if kind == KindSeries {
		e.Title, e.Date = r.Name, r.FirstAirDate
	}
	return e, nil
}
