// Package pushover delivers notifications through a Pushover-compatible API.
package pushover

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strconv"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/spf13/afero"

	"github.com/RyDizz214/snappier-server-docker/pkg/logger"
	"github.com/RyDizz214/snappier-server-docker/pkg/metrics"
)

const (
	defaultURL      = "https://api.pushover.net/1/messages.json"
	defaultTimeout  = 15 * time.Second
	defaultAttempts = 3
	defaultDelay    = 2 * time.Second
)

// Message is one push notification.
type Message struct {
	Title    string
	Body     string
	Priority int
	URL      string
	URLTitle string
	// Attachment is an optional image path; unreadable files are skipped.
	Attachment string
}

// Result is the JSON delivery result embedded in the webhook response.
type Result map[string]any

// OK reports whether the result signals a successful delivery.
func (r Result) OK() bool {
	if r == nil {
		return false
	}
	if ok, _ := r["ok"].(bool); ok {
		return true
	}
	status, _ := r["status"].(float64)
	return status == 1
}

// Sender delivers a message and always yields a result.
type Sender interface {
	Send(ctx context.Context, msg Message) Result
	Configured() bool
}

// Client posts form-encoded messages with exponential-backoff retries.
type Client struct {
	httpClient *http.Client
	endpoint   string
	user       string
	token      string
	attempts   uint
	delay      time.Duration
	fs         afero.Fs
	logger     logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithCredentials sets the user key and application token.
func WithCredentials(user, token string) Option {
	return func(c *Client) { c.user, c.token = user, token }
}

// WithEndpoint overrides the messages endpoint.
func WithEndpoint(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.endpoint = u
		}
	}
}

// WithTimeout bounds each attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRetry sets the attempt count and the base backoff delay.
// Attempt n waits delay*2^(n-1) before the next one.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.attempts = uint(attempts)
		}
		if delay >= 0 {
			c.delay = delay
		}
	}
}

// WithFs sets the filesystem attachments are read from.
func WithFs(fs afero.Fs) Option {
	return func(c *Client) {
		if fs != nil {
			c.fs = fs
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

// NewClient creates a push client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		endpoint:   defaultURL,
		attempts:   defaultAttempts,
		delay:      defaultDelay,
		fs:         afero.NewOsFs(),
		logger:     logger.Get().Named("pushover"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether credentials are present.
func (c *Client) Configured() bool { return c.user != "" && c.token != "" }

// Send delivers msg. Failures are folded into the returned result.
func (c *Client) Send(ctx context.Context, msg Message) Result {
	if !c.Configured() {
		c.logger.Error(ctx, "push not configured",
			logger.Bool("user_set", c.user != ""),
			logger.Bool("token_set", c.token != ""),
		)
		return Result{"ok": false, "error": "Pushover not configured"}
	}

	form := url.Values{}
	form.Set("token", c.token)
	form.Set("user", c.user)
	form.Set("title", msg.Title)
	form.Set("message", msg.Body)
	form.Set("priority", strconv.Itoa(msg.Priority))
	if msg.URL != "" {
		form.Set("url", msg.URL)
	}
	if msg.URLTitle != "" {
		form.Set("url_title", msg.URLTitle)
	}

	var attachment []byte
	if msg.Attachment != "" {
		b, err := afero.ReadFile(c.fs, msg.Attachment)
		if err != nil {
			c.logger.Warn(ctx, "attachment unreadable, sending without it",
				logger.String("path", msg.Attachment),
				logger.Error(err),
			)
		} else {
			attachment = b
		}
	}

	started := time.Now()
	var result Result
	err := retry.Do(
		func() error {
			metrics.RecordPushAttempt()
			r, err := c.post(ctx, form, msg.Attachment, attachment)
			if err != nil {
				return err
			}
			result = r
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn(ctx, "push attempt failed",
				logger.Int("attempt", int(n)+1),
				logger.Int("max_attempts", int(c.attempts)),
				logger.Duration("backoff", c.delay<<n),
				logger.Error(err),
			)
		}),
	)
	latency := float64(time.Since(started).Milliseconds())

	if err == nil {
		metrics.RecordPushResult("sent", latency)
		c.logger.Debug(ctx, "push sent", logger.String("title", msg.Title))
		return result
	}

	c.logger.Error(ctx, "push failed after retries",
		logger.Int("attempts", int(c.attempts)),
		logger.Error(err),
	)

	var se *statusError
	var netErr interface{ Timeout() bool }
	switch {
	case errors.As(err, &se):
		metrics.RecordPushResult("rejected", latency)
		if se.code == http.StatusOK && se.body != nil {
			return Result(se.body)
		}
		return Result{"ok": se.code >= 200 && se.code < 300, "status": se.code}
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		metrics.RecordPushResult("timeout", latency)
		return Result{"ok": false, "error": "timeout"}
	default:
		metrics.RecordPushResult("error", latency)
		return Result{"ok": false, "error": err.Error()}
	}
}

// post performs one delivery attempt.
func (c *Client) post(ctx context.Context, form url.Values, attachmentPath string, attachment []byte) (Result, error) {
	var body io.Reader
	contentType := "application/x-www-form-urlencoded"

	if attachment != nil {
		buf := &bytes.Buffer{}
		w := multipart.NewWriter(buf)
		for k := range form {
			if err := w.WriteField(k, form.Get(k)); err != nil {
				return nil, fmt.Errorf("write field %s: %w", k, err)
			}
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name="attachment"; filename=%q`, filepath.Base(attachmentPath)))
		h.Set("Content-Type", "image/gif")
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, fmt.Errorf("create attachment part: %w", err)
		}
		if _, err := part.Write(attachment); err != nil {
			return nil, fmt.Errorf("write attachment: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("close multipart: %w", err)
		}
		body, contentType = buf, w.FormDataContentType()
	} else {
		body = bytes.NewBufferString(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("push request: %w", err)
	}
	defer resp.Body.Close()

	var parsed map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&parsed)

	if resp.StatusCode == http.StatusOK && Result(parsed).OK() {
		return Result(parsed), nil
	}
	return nil, &statusError{code: resp.StatusCode, body: parsed}
}
