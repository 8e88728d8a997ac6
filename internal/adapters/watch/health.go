package watch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/RyDizz214/snappier-server-docker/pkg/logger"
)

const (
	defaultHealthBase      = "http://127.0.0.1:8000"
	defaultHealthEndpoint  = "/serverStats"
	defaultHealthNotifyURL = "http://127.0.0.1:9080/notify"
	defaultHealthInterval  = 30 * time.Second
	defaultHealthTimeout   = 5 * time.Second
	defaultWarnCooldown    = 300 * time.Second
	defaultFailThreshold   = 3
	notifyPostTimeout      = 5 * time.Second
)

// HealthWatcher polls the recording server and posts a health_warn event to
// the notifier after repeated failures.
type HealthWatcher struct {
	client        *http.Client
	url           string
	notifyURL     string
	interval      time.Duration
	expectMin     int
	expectMax     int
	cooldown      time.Duration
	failThreshold int
	now           func() time.Time
	logger        logger.Logger

	failures int
	lastWarn time.Time
}

// HealthOption configures a HealthWatcher.
type HealthOption func(*HealthWatcher)

// WithHealthTarget sets the polled base URL and endpoint path.
func WithHealthTarget(base, endpoint string) HealthOption {
	return func(h *HealthWatcher) {
		if base == "" {
			base = defaultHealthBase
		}
		if endpoint == "" {
			endpoint = defaultHealthEndpoint
		}
		h.url = strings.TrimRight(base, "/") + endpoint
	}
}

// WithNotifyURL sets where warnings are posted.
func WithNotifyURL(u string) HealthOption {
	return func(h *HealthWatcher) {
		if u != "" {
			h.notifyURL = u
		}
	}
}

// WithHealthInterval sets the poll interval. Values below one second are raised to one second.
func WithHealthInterval(d time.Duration) HealthOption {
	return func(h *HealthWatcher) { h.interval = max(d, time.Second) }
}

// WithHealthTimeout bounds each poll.
func WithHealthTimeout(d time.Duration) HealthOption {
	return func(h *HealthWatcher) {
		if d > 0 {
			h.client.Timeout = d
		}
	}
}

// WithExpectedStatus sets the inclusive range of healthy status codes.
func WithExpectedStatus(lo, hi int) HealthOption {
	return func(h *HealthWatcher) {
		if lo > 0 && hi >= lo {
			h.expectMin, h.expectMax = lo, hi
		}
	}
}

// WithWarnCooldown sets the minimum gap between two warnings.
func WithWarnCooldown(d time.Duration) HealthOption {
	return func(h *HealthWatcher) {
		if d >= 0 {
			h.cooldown = d
		}
	}
}

// WithFailThreshold sets how many consecutive failures trigger a warning.
func WithFailThreshold(n int) HealthOption {
	return func(h *HealthWatcher) {
		if n > 0 {
			h.failThreshold = n
		}
	}
}

// WithHealthClock replaces time.Now.
func WithHealthClock(now func() time.Time) HealthOption {
	return func(h *HealthWatcher) {
		if now != nil {
			h.now = now
		}
	}
}

// WithHealthHTTPClient replaces the HTTP client used for polling and posting.
func WithHealthHTTPClient(c *http.Client) HealthOption {
	return func(h *HealthWatcher) {
		if c != nil {
			h.client = c
		}
	}
}

// WithHealthLogger sets the logger.
func WithHealthLogger(l logger.Logger) HealthOption {
	return func(h *HealthWatcher) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHealthWatcher creates a watcher. It is not safe for concurrent use.
func NewHealthWatcher(opts ...HealthOption) *HealthWatcher {
	h := &HealthWatcher{
		client:        &http.Client{Timeout: defaultHealthTimeout},
		url:           defaultHealthBase + defaultHealthEndpoint,
		notifyURL:     defaultHealthNotifyURL,
		interval:      defaultHealthInterval,
		expectMin:     200,
		expectMax:     399,
		cooldown:      defaultWarnCooldown,
		failThreshold: defaultFailThreshold,
		now:           time.Now,
		logger:        logger.Get().Named("health_watcher"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Check performs one poll. It reports whether the server looked healthy and
// whether a warning was posted.
func (h *HealthWatcher) Check(ctx context.Context) (healthy, warned bool) {
	started := h.now()
	status, reason := h.poll(ctx)
	if status >= h.expectMin && status <= h.expectMax {
		h.failures = 0
		return true, false
	}
	h.failures++
	h.logger.Debug(ctx, "health probe failed",
		logger.Int("status", status),
		logger.String("reason", reason),
		logger.Int("consecutive", h.failures))

	if h.failures < h.failThreshold {
		return false, false
	}
	if !h.lastWarn.IsZero() && started.Sub(h.lastWarn) < h.cooldown {
		return false, false
	}
	h.lastWarn = started
	h.warn(ctx, status, reason)
	return false, true
}

// Failures is the current count of consecutive failed polls.
func (h *HealthWatcher) Failures() int { return h.failures }

// Run polls every interval until ctx is done.
func (h *HealthWatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		h.Check(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// poll returns the status code, or 0 with a reason when the request failed.
func (h *HealthWatcher) poll(ctx context.Context) (int, string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return 0, err.Error()
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return 0, "timeout/connection"
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, http.StatusText(resp.StatusCode)
}

// HealthWarning builds the payload posted to the notifier.
func HealthWarning(status int, reason string) map[string]any {
	shown := "none"
	if status > 0 {
		shown = fmt.Sprint(status)
	}
	return map[string]any{
		"action":      "health_warn",
		"channel":     "system",
		"title":       "Health Warning ⚠️",
		"desc":        "Health check failed: status=" + shown,
		"error":       reason,
		"exit_code":   nil,
		"exit_reason": "health_probe",
	}
}

func (h *HealthWatcher) warn(ctx context.Context, status int, reason string) {
	body, err := json.Marshal(HealthWarning(status, reason))
	if err != nil {
		return
	}
	postCtx, cancel := context.WithTimeout(ctx, notifyPostTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(postCtx, http.MethodPost, h.notifyURL, bytes.NewReader(body))
	if err != nil {
		h.logger.Warn(ctx, "health warning not sent", logger.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := h.client.Do(req)
	if err != nil {
		h.logger.Warn(ctx, "health warning not sent", logger.Error(err))
		return
	}
	_ = resp.Body.Close()
	h.logger.Info(ctx, "health warning sent", logger.Int("status", status), logger.Int("notify_status", resp.StatusCode))
}
