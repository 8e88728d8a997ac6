// Package search is the client for the remote EPG search service.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/RyDizz214/snappier-server-docker/internal/domain/model"
	"github.com/RyDizz214/snappier-server-docker/internal/domain/normalize"
	"github.com/RyDizz214/snappier-server-docker/internal/domain/scoring"
	"github.com/RyDizz214/snappier-server-docker/pkg/logger"
	"github.com/RyDizz214/snappier-server-docker/pkg/metrics"
)

const (
	defaultBaseURL = "http://127.0.0.1:8000"
	defaultTimeout = 5 * time.Second
	defaultLimit   = 10
	defaultRate    = 20
	maxBodyBytes   = 4 << 20
)

// Outcome classifies a remote lookup.
type Outcome string

const (
	OutcomeHit      Outcome = "hit"
	OutcomeMiss     Outcome = "miss"
	OutcomeDisabled Outcome = "disabled"
	OutcomeTimeout  Outcome = "timeout"
	OutcomeError    Outcome = "error"
)

// Meta carries the result-count headers of the last search.
type Meta struct {
	Total    string `json:"total,omitempty"`
	Returned string `json:"returned,omitempty"`
}

// Resolver queries GET {base}/epg/search and picks the best record.
type Resolver struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limit      int
	enabled    bool
	goodEnough float64
	limiter    *rate.Limiter
	logger     logger.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithBaseURL sets the service root; a trailing slash is dropped.
func WithBaseURL(base string) Option {
	return func(r *Resolver) {
		if base = strings.TrimRight(strings.TrimSpace(base), "/"); base != "" {
			r.baseURL = base
		}
	}
}

// WithAPIKey sends the key as a bearer token.
func WithAPIKey(key string) Option {
	return func(r *Resolver) { r.apiKey = key }
}

// WithTimeout bounds each search request.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.httpClient.Timeout = d
		}
	}
}

// WithLimit sets the maximum number of records requested.
func WithLimit(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.limit = n
		}
	}
}

// WithEnabled turns the resolver on or off.
func WithEnabled(enabled bool) Option {
	return func(r *Resolver) { r.enabled = enabled }
}

// WithRateLimit throttles outbound requests per second.
func WithRateLimit(perSecond float64) Option {
	return func(r *Resolver) {
		if perSecond > 0 {
			r.limiter = rate.NewLimiter(rate.Limit(perSecond), max(1, int(perSecond)))
		}
	}
}

// WithGoodEnough sets the early-exit score used when ranking results.
func WithGoodEnough(score float64) Option {
	return func(r *Resolver) {
		if score > 0 {
			r.goodEnough = score
		}
	}
}

// WithHTTPClient replaces the HTTP client, keeping its timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) {
		if c != nil {
			r.httpClient = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewResolver creates an enabled resolver against the local search service.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    defaultBaseURL,
		limit:      defaultLimit,
		enabled:    true,
		goodEnough: scoring.DefaultGoodEnough,
		limiter:    rate.NewLimiter(rate.Limit(defaultRate), defaultRate),
		logger:     logger.Get().Named("search"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Enabled reports whether remote lookups are attempted.
func (r *Resolver) Enabled() bool { return r.enabled }

// BaseURL is the configured service root.
func (r *Resolver) BaseURL() string { return r.baseURL }

// Timeout is the per-request timeout.
func (r *Resolver) Timeout() time.Duration { return r.httpClient.Timeout }

// Search runs one query. An empty result list is not an error.
func (r *Resolver) Search(ctx context.Context, title, channel string) ([]model.GuideEvent, Meta, error) {
	if !r.enabled {
		return nil, Meta{}, ErrDisabled
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, Meta{}, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	if title != "" {
		params.Set("title", title)
	}
	if channel != "" {
		params.Set("channel", channel)
	}
	params.Set("limit", strconv.Itoa(r.limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/epg/search?"+params.Encode(), nil)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, Meta{}, fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}

	meta := Meta{
		Total:    resp.Header.Get("X-Total-Results"),
		Returned: resp.Header.Get("X-Returned-Results"),
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, meta, fmt.Errorf("read response body: %w", err)
	}

	// Anything other than an array means no hits.
	var hits []json.RawMessage
	if err := json.Unmarshal(body, &hits); err != nil {
		return nil, meta, nil
	}
	events := make([]model.GuideEvent, 0, len(hits))
	for _, raw := range hits {
		var m map[string]any
		if json.Unmarshal(raw, &m) != nil || m == nil {
			continue
		}
		events = append(events, model.CoerceGuideEvent(m))
	}
	return events, meta, nil
}

// FindRemote tries title+channel, then title, then channel; the first
// non-empty result list is ranked with the guide scoring rules. A failed
// attempt moves on to the next one; the outcome of the last failure is
// reported when nothing is found. Errors are never returned.
func (r *Resolver) FindRemote(ctx context.Context, channel, title, start string) (model.Programme, Meta, Outcome) {
	if !r.enabled {
		return model.Programme{}, Meta{}, OutcomeDisabled
	}

	type attempt struct{ title, channel string }
	var attempts []attempt
	if title != "" && channel != "" {
		attempts = append(attempts, attempt{title, channel})
	}
	if title != "" {
		attempts = append(attempts, attempt{title: title})
	}
	if channel != "" {
		attempts = append(attempts, attempt{channel: channel})
	}

	var meta Meta
	outcome := OutcomeMiss
	for _, a := range attempts {
		started := time.Now()
		events, m, err := r.Search(ctx, a.title, a.channel)
		latency := float64(time.Since(started).Milliseconds())
		if err != nil {
			outcome = classify(err)
			metrics.RecordRemoteSearch(string(outcome), latency)
			r.logger.Debug(ctx, "remote search failed",
				logger.String("title", a.title),
				logger.String("channel", a.channel),
				logger.Error(err),
			)
			continue
		}
		meta = m
		if len(events) == 0 {
			metrics.RecordRemoteSearch(string(OutcomeMiss), latency)
			continue
		}
		metrics.RecordRemoteSearch(string(OutcomeHit), latency)
		return r.pick(events, a.title, a.channel, start), meta, OutcomeHit
	}
	return model.Programme{}, meta, outcome
}

// pick ranks records the same way the local guide does, without a
// past preference.
func (r *Resolver) pick(events []model.GuideEvent, title, channel, start string) model.Programme {
	q := scoring.NewQuery(title, channel, start, false)
	sel := scoring.NewSelector(false, r.goodEnough)
	for i, ev := range events {
		c := scoring.NewCandidate(ev)
		res := scoring.Score(q, c)
		if sel.Offer(i, c, &res) {
			break
		}
	}
	i, _, _ := sel.Best()
	ev := events[i]
	p := model.Programme{GuideEvent: ev}
	if ev.Channel != "" {
		p.ChannelClean = normalize.CleanChannel(ev.Channel)
	}
	return p
}

func classify(err error) Outcome {
	var netErr interface{ Timeout() bool }
	switch {
	case errors.Is(err, ErrDisabled):
		return OutcomeDisabled
	case errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return OutcomeTimeout
	}
	return OutcomeError
}
