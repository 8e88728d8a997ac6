// Package types contains the response shapes shared by the service and the HTTP layer.
package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// NotifyResult is the outcome of one webhook event. Exactly one of the
// rejected, deduplicated, suppressed or delivered shapes is rendered.
type NotifyResult struct {
	OK     bool
	Action string

	// Error is set when validation rejected the event.
	Error string

	Deduplicated     bool
	ElapsedSinceLast time.Duration

	Suppressed bool
	Reason     string

	// Pushover is the delivery result; nil when nothing was sent.
	Pushover map[string]any
	Enriched bool
	UsedAPI  bool
}

// Rejected builds a validation failure.
func Rejected(msg string) NotifyResult {
	return NotifyResult{OK: false, Error: msg}
}

// Duplicate builds the response for an event seen inside the dedup window.
func Duplicate(action string, elapsed time.Duration) NotifyResult {
	return NotifyResult{OK: true, Action: action, Deduplicated: true, ElapsedSinceLast: elapsed}
}

// SuppressedExit builds the response for a quiet *_exit event.
func SuppressedExit(action string) NotifyResult {
	return NotifyResult{OK: true, Action: action, Suppressed: true, Reason: "exit_code==0"}
}

// MarshalJSON renders the wire shape matching the result kind.
func (r NotifyResult) MarshalJSON() ([]byte, error) {
	switch {
	case r.Error != "":
		return json.Marshal(struct {
			OK    bool   `json:"ok"`
			Error string `json:"error"`
		}{r.OK, r.Error})
	case r.Deduplicated:
		return json.Marshal(struct {
			OK               bool   `json:"ok"`
			Deduplicated     bool   `json:"deduplicated"`
			ElapsedSinceLast string `json:"elapsed_since_last"`
			Action           string `json:"action"`
		}{r.OK, true, fmt.Sprintf("%.1fs", r.ElapsedSinceLast.Seconds()), r.Action})
	case r.Suppressed:
		return json.Marshal(struct {
			OK         bool   `json:"ok"`
			Suppressed bool   `json:"suppressed"`
			Reason     string `json:"reason"`
			Action     string `json:"action"`
		}{r.OK, true, r.Reason, r.Action})
	default:
		return json.Marshal(struct {
			OK       bool           `json:"ok"`
			Pushover map[string]any `json:"pushover"`
			Enriched bool           `json:"enriched"`
			UsedAPI  bool           `json:"used_api"`
			Action   string         `json:"action"`
		}{r.OK, r.Pushover, r.Enriched, r.UsedAPI, r.Action})
	}
}

// CacheStats reports the guide index and HTTPS capability cache counters.
type CacheStats struct {
	EPGHits          int64 `json:"epg_hits"`
	EPGMisses        int64 `json:"epg_misses"`
	HTTPSCacheSize   int   `json:"https_cache_size"`
	HTTPSCacheMax    int   `json:"https_cache_max"`
	HTTPSProbesTotal int64 `json:"https_probes_total"`
	MemoryWarnings   int64 `json:"memory_warnings"`
	EPGIndexMax      int   `json:"epg_index_max"`
}

// Health is the /health response.
type Health struct {
	OK         bool       `json:"ok"`
	TS         float64    `json:"ts"`
	APIEnabled bool       `json:"api_enabled"`
	CacheStats CacheStats `json:"cache_stats"`
}
