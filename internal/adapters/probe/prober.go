// Package probe checks whether plain-HTTP hosts also serve HTTPS and
// remembers the answer per host.
package probe

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/RyDizz214/snappier-server-docker/internal/adapters/cache"
	"github.com/RyDizz214/snappier-server-docker/pkg/logger"
	"github.com/RyDizz214/snappier-server-docker/pkg/metrics"
)

const (
	defaultTimeout   = 3 * time.Second
	defaultCacheSize = 1000
)

// DefaultAllowHTTPHosts are never upgraded.
var DefaultAllowHTTPHosts = []string{"localhost", "127.0.0.1", "snappier-server"}

// Prober probes hosts over HTTPS with a bounded per-host result cache.
type Prober struct {
	httpClient *http.Client
	method     string
	allow      map[string]struct{}
	cache      *cache.LRU[string, bool]
	probes     atomic.Int64
	logger     logger.Logger
}

// Option configures a Prober.
type Option func(*Prober)

// WithTimeout bounds each probe request.
func WithTimeout(d time.Duration) Option {
	return func(p *Prober) {
		if d > 0 {
			p.httpClient.Timeout = d
		}
	}
}

// WithMethod selects HEAD (default) or GET.
func WithMethod(m string) Option {
	return func(p *Prober) {
		if strings.EqualFold(m, http.MethodGet) {
			p.method = http.MethodGet
		} else {
			p.method = http.MethodHead
		}
	}
}

// WithAllowHTTPHosts replaces the hosts that are never probed.
func WithAllowHTTPHosts(hosts []string) Option {
	return func(p *Prober) {
		p.allow = make(map[string]struct{}, len(hosts))
		for _, h := range hosts {
			if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
				p.allow[h] = struct{}{}
			}
		}
	}
}

// WithCacheSize sets the per-host cache capacity.
func WithCacheSize(n int) Option {
	return func(p *Prober) { p.cache = cache.New[string, bool](n) }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Prober) {
		if c != nil {
			p.httpClient = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Prober) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewProber creates a prober.
func NewProber(opts ...Option) *Prober {
	p := &Prober{
		httpClient: &http.Client{Timeout: defaultTimeout},
		method:     http.MethodHead,
		cache:      cache.New[string, bool](defaultCacheSize),
		logger:     logger.Get().Named("probe"),
	}
	WithAllowHTTPHosts(DefaultAllowHTTPHosts)(p)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe reports whether the https:// form of httpURL answers with a 2xx or
// 3xx status. Non-http URLs and allow-listed hosts are never probed.
func (p *Prober) Probe(ctx context.Context, httpURL string) bool {
	rest, ok := strings.CutPrefix(httpURL, "http://")
	if !ok {
		return false
	}
	httpsURL := "https://" + rest
	host := hostOf(httpsURL)
	if host == "" {
		return false
	}
	if _, skip := p.allow[host]; skip {
		return false
	}
	if supported, hit := p.cache.Get(host); hit {
		metrics.RecordProbe("cached")
		return supported
	}

	p.probes.Add(1)
	supported := p.request(ctx, httpsURL)
	p.cache.Add(host, supported)
	metrics.UpdateProbeCacheSize(p.cache.Len())
	if supported {
		metrics.RecordProbe("https")
	} else {
		metrics.RecordProbe("http_only")
	}
	p.logger.Debug(ctx, "https probe", logger.String("host", host), logger.Bool("supported", supported))
	return supported
}

func (p *Prober) request(ctx context.Context, u string) bool {
	req, err := http.NewRequestWithContext(ctx, p.method, u, nil)
	if err != nil {
		return false
	}
	// The default client follows redirects.
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 400
}

// Capabilities returns the cached host results.
func (p *Prober) Capabilities() map[string]bool { return p.cache.Snapshot() }

// ProbesTotal is the number of network probes performed.
func (p *Prober) ProbesTotal() int64 { return p.probes.Load() }

// CacheLen is the number of cached hosts.
func (p *Prober) CacheLen() int { return p.cache.Len() }

// CacheCap is the cache capacity.
func (p *Prober) CacheCap() int { return p.cache.Cap() }

func hostOf(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}
