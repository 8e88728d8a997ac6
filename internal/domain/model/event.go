// Package model contains domain models passed between layers.
package model

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// IncomingEvent is one webhook payload after alias resolution.
// It lives for the duration of a single /notify request.
type IncomingEvent struct {
	Action string `json:"action" validate:"required"`

	// ChannelHint is "channel" when the key is present (even if empty), otherwise "ch".
	ChannelHint  string `json:"channel,omitempty"`
	Channel      string `json:"-"`
	Ch           string `json:"-"`
	ChannelName  string `json:"channel_name,omitempty"`
	ChannelClean string `json:"channelClean,omitempty"`

	Title      string `json:"title,omitempty"`
	Start      string `json:"start,omitempty"`
	StartLocal string `json:"start_local,omitempty"`
	End        string `json:"end,omitempty"`
	EndLocal   string `json:"end_local,omitempty"`

	JobID     string `json:"job_id,omitempty"`
	JobIDFull string `json:"job_id_full,omitempty"`
	File      string `json:"file,omitempty"`

	Desc    string `json:"desc,omitempty"`
	Type    string `json:"type,omitempty"`
	Year    string `json:"year,omitempty"`
	Episode string `json:"episode,omitempty"`

	DurationMin *int   `json:"duration_min,omitempty"`
	Error       string `json:"error,omitempty"`
	ExitCode    *int   `json:"exit_code,omitempty"`
	ExitReason  string `json:"exit_reason,omitempty"`
	ScheduledAt string `json:"scheduled_at,omitempty"`
}

// DedupJobID is the job identifier used for duplicate detection.
func (e *IncomingEvent) DedupJobID() string {
	return firstNonEmpty(e.JobIDFull, e.JobID)
}

// DisplayJobID is the job identifier shown to the user.
func (e *IncomingEvent) DisplayJobID() string {
	if id := firstNonEmpty(e.JobID, e.JobIDFull); id != "" {
		return id
	}
	return "Unknown"
}

// DecodeIncoming parses a raw webhook body. Bodies that are not a JSON object
// are kept as {"text": body} so validation can report the missing action.
func DecodeIncoming(body []byte) IncomingEvent {
	payload := map[string]any{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			payload = map[string]any{"text": string(body)}
		}
	}
	return FromPayload(payload)
}

// FromPayload resolves field aliases of a decoded payload.
func FromPayload(p map[string]any) IncomingEvent {
	ev := IncomingEvent{
		Action:       strings.ToLower(strings.TrimSpace(Str(p, "action"))),
		Channel:      Str(p, "channel"),
		Ch:           Str(p, "ch"),
		ChannelName:  Str(p, "channel_name"),
		ChannelClean: Str(p, "channelClean"),
		Title:        Str(p, "title", "program"),
		Start:        Str(p, "start", "ts"),
		StartLocal:   Str(p, "start_local", "start_local_formatted"),
		End:          Str(p, "end", "end_time"),
		EndLocal:     Str(p, "end_local", "end_local_formatted"),
		JobID:        Str(p, "job_id"),
		JobIDFull:    Str(p, "job_id_full"),
		File:         Str(p, "file"),
		Desc:         Str(p, "desc", "description"),
		Type:         Str(p, "type"),
		Year:         Str(p, "year"),
		Episode:      Str(p, "episode"),
		Error:        Str(p, "error"),
		ExitReason:   Str(p, "exit_reason"),
		ScheduledAt:  Str(p, "scheduled_at"),
		DurationMin:  Int(p, "duration_min"),
		ExitCode:     Int(p, "exit_code"),
	}
	if _, ok := p["channel"]; ok {
		ev.ChannelHint = ev.Channel
	} else {
		ev.ChannelHint = ev.Ch
	}
	return ev
}

// Str returns the first non-empty value among keys, rendered as a string.
func Str(p map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := toString(p[k]); s != "" {
			return s
		}
	}
	return ""
}

// Int returns the first key that coerces to an integer.
func Int(p map[string]any, keys ...string) *int {
	for _, k := range keys {
		if n, ok := toInt(p[k]); ok {
			return &n
		}
	}
	return nil
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "true"
		}
		return ""
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

func toInt(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(t), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, false
		}
		return n, true
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
