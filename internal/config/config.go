// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - New(ctx) returns a Config holding every default.
//   - Load layers an optional .env file, an optional YAML file and SNAPPIER_*
//     environment variables on top of the defaults.
//   - Durations accept Go duration strings such as "60s" or "2s".
package config

import (
	"context"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// Logging.
	LogLevel      string `koanf:"log_level" validate:"oneof=debug info warn warning error"`
	LogFormat     string `koanf:"log_format" validate:"oneof=text json"`
	LogFile       string `koanf:"log_file"`
	LogMaxSizeMB  int    `koanf:"log_max_size_mb" validate:"gte=0"`
	LogMaxBackups int    `koanf:"log_max_backups" validate:"gte=0"`
	LogMaxAgeDays int    `koanf:"log_max_age_days" validate:"gte=0"`
	LogCompress   bool   `koanf:"log_compress"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// Files written by the recording server.
	EPGCachePath  string `koanf:"epg_cache_path" validate:"required"`
	SchedulesPath string `koanf:"schedules_path"`

	// Timezone names the zone used for catch-up start labels; empty means local.
	Timezone string `koanf:"timezone"`

	// Duplicate suppression.
	DedupWindow     time.Duration `koanf:"dedup_window" validate:"gt=0"`
	DedupMaxEntries int           `koanf:"dedup_max_entries" validate:"gte=1"`

	// Guide index.
	EPGIndexMaxSize       int     `koanf:"epg_index_max_size" validate:"gte=1"`
	EPGIndexShrinkDivisor int     `koanf:"epg_index_shrink_divisor" validate:"gte=1"`
	MatchGoodEnoughScore  float64 `koanf:"match_good_enough_score" validate:"gt=0"`

	// TitlePrefix is prepended to every push title when set.
	TitlePrefix string `koanf:"title_prefix"`
	DescLimit   int    `koanf:"desc_limit" validate:"gte=1"`

	// Remote search.
	APIEnabled     bool          `koanf:"api_enabled"`
	APIBase        string        `koanf:"api_base" validate:"omitempty,url"`
	APIKey         string        `koanf:"api_key"`
	APITimeout     time.Duration `koanf:"api_timeout" validate:"gt=0"`
	APISearchLimit int           `koanf:"api_search_limit" validate:"gte=1"`
	APIRatePerSec  float64       `koanf:"api_rate_per_sec" validate:"gte=0"`

	// Push delivery.
	PushoverUser  string        `koanf:"pushover_user"`
	PushoverToken string        `koanf:"pushover_token"`
	PushoverURL   string        `koanf:"pushover_url" validate:"required,url"`
	PushTimeout   time.Duration `koanf:"push_timeout" validate:"gt=0"`
	RetryAttempts int           `koanf:"retry_attempts" validate:"gte=1"`
	RetryDelay    time.Duration `koanf:"retry_delay" validate:"gte=0"`

	// HTTPS probing.
	HTTPSCacheMaxSize int           `koanf:"https_cache_max_size" validate:"gte=1"`
	ProbeTimeout      time.Duration `koanf:"probe_timeout" validate:"gt=0"`
	ProbeMethod       string        `koanf:"probe_method" validate:"oneof=HEAD GET"`
	ProbeWorkers      int           `koanf:"probe_workers" validate:"gte=1"`
	PreflightLimit    int           `koanf:"preflight_limit" validate:"gte=0"`
	// AllowHTTPHosts is a comma separated host list that is never upgraded.
	AllowHTTPHosts string `koanf:"allow_http_hosts"`

	// Catalog enrichment.
	TMDBEnabled      bool          `koanf:"tmdb_enabled"`
	TMDBAPIKey       string        `koanf:"tmdb_api_key"`
	TMDBBase         string        `koanf:"tmdb_base" validate:"required,url"`
	TMDBTimeout      time.Duration `koanf:"tmdb_timeout" validate:"gt=0"`
	TMDBLanguage     string        `koanf:"tmdb_language"`
	TMDBCacheMaxSize int           `koanf:"tmdb_cache_max_size" validate:"gte=1"`
	TMDBRatePerSec   float64       `koanf:"tmdb_rate_per_sec" validate:"gte=0"`
}

// New creates a Config holding the defaults. Context is accepted first to
// satisfy the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:      "info",
		LogFormat:     "text",
		LogMaxSizeMB:  10,
		LogMaxBackups: 3,
		LogMaxAgeDays: 7,

		Addr:          ":9080",
		EPGCachePath:  "/root/SnappierServer/epg/epg_cache.json",
		SchedulesPath: "/root/SnappierServer/schedules.json",

		DedupWindow:     60 * time.Second,
		DedupMaxEntries: 1000,

		EPGIndexMaxSize:       50_000,
		EPGIndexShrinkDivisor: 2,
		MatchGoodEnoughScore:  12,

		DescLimit: 900,

		APIEnabled:     true,
		APIBase:        "http://127.0.0.1:8000",
		APITimeout:     5 * time.Second,
		APISearchLimit: 10,
		APIRatePerSec:  20,

		PushoverURL:   "https://api.pushover.net/1/messages.json",
		PushTimeout:   15 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    2 * time.Second,

		HTTPSCacheMaxSize: 1000,
		ProbeTimeout:      3 * time.Second,
		ProbeMethod:       "HEAD",
		ProbeWorkers:      4,
		PreflightLimit:    2000,
		AllowHTTPHosts:    "localhost,127.0.0.1,snappier-server",

		TMDBEnabled:      true,
		TMDBBase:         "https://api.themoviedb.org/3",
		TMDBTimeout:      3 * time.Second,
		TMDBLanguage:     "en-US",
		TMDBCacheMaxSize: 500,
		TMDBRatePerSec:   10,
	}
}

// AllowHTTPHostList splits AllowHTTPHosts, dropping blanks.
func (c *Config) AllowHTTPHostList() []string {
	var hosts []string
	for _, h := range strings.Split(c.AllowHTTPHosts, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

// Location resolves Timezone, falling back to the local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local, wrapInvalid("timezone", err)
	}
	return loc, nil
}
