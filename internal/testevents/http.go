package testevents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/RyDizz214/snappier-server-docker/internal/domain/types"
	"github.com/RyDizz214/snappier-server-docker/pkg/logger"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client *http.Client
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(ctx context.Context, url string, body any) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// fetchHealth reads GET /health.
func fetchHealth(ctx context.Context, client *HTTPClient, baseURL string) (types.Health, error) {
	var h types.Health
	resp, err := client.Get(ctx, baseURL+"/health")
	if err != nil {
		return h, fmt.Errorf("failed to connect to service: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return h, fmt.Errorf("failed to read health: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return h, fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, &h); err != nil {
		return h, fmt.Errorf("failed to decode health: %w", err)
	}
	return h, nil
}

// submitEvents posts events concurrently with at most config.Workers in flight.
func submitEvents(ctx context.Context, config *Config, events []Event, stats *Stats) {
	log := logger.Get().Named("replay")
	log.Info(ctx, "submitting events",
		logger.Int("events", len(events)),
		logger.Int("workers", config.Workers))

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/notify"

	var mu sync.Mutex
	counts := map[string]int{}

	p := pool.New().WithMaxGoroutines(max(config.Workers, 1))
	for i, event := range events {
		if ctx.Err() != nil {
			break
		}
		p.Go(func() {
			outcome := submitSingleEvent(ctx, client, url, event)
			if config.Verbose {
				log.Debug(ctx, "event submitted",
					logger.Int("index", i),
					logger.Any("action", event["action"]),
					logger.String("outcome", outcome))
			}
			mu.Lock()
			counts[outcome]++
			mu.Unlock()
		})
	}
	p.Wait()

	stats.Delivered = counts[OutcomeDelivered]
	stats.Deduplicated = counts[OutcomeDeduplicated]
	stats.Suppressed = counts[OutcomeSuppressed]
	stats.Rejected = counts[OutcomeRejected]
	stats.Failed = counts[OutcomeFailed]
	stats.EventsSubmitted = stats.Delivered + stats.Deduplicated + stats.Suppressed + stats.Rejected + stats.Failed

	log.Info(ctx, "event submission completed",
		logger.Int("delivered", stats.Delivered),
		logger.Int("deduplicated", stats.Deduplicated),
		logger.Int("suppressed", stats.Suppressed),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed))
}

// submitSingleEvent submits a single event and returns its outcome.
func submitSingleEvent(ctx context.Context, client *HTTPClient, url string, event Event) string {
	resp, err := client.Post(ctx, url, event)
	if err != nil {
		return OutcomeFailed
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return OutcomeFailed
	}
	return classify(resp.StatusCode, body)
}

// classify maps a /notify response to an outcome.
func classify(status int, body []byte) string {
	var res struct {
		OK           bool `json:"ok"`
		Deduplicated bool `json:"deduplicated"`
		Suppressed   bool `json:"suppressed"`
	}
	switch {
	case status == http.StatusBadRequest:
		return OutcomeRejected
	case status != http.StatusOK:
		return OutcomeFailed
	case json.Unmarshal(body, &res) != nil || !res.OK:
		return OutcomeFailed
	case res.Deduplicated:
		return OutcomeDeduplicated
	case res.Suppressed:
		return OutcomeSuppressed
	default:
		return OutcomeDelivered
	}
}
