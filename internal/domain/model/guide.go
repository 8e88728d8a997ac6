package model

import (
	"bytes"
	"encoding/json"
	"math"
	"slices"
)

// GuideEvent is one programme airing. Its identity is its position in the
// snapshot; no stable external id is guaranteed.
type GuideEvent struct {
	Title    string `json:"title,omitempty"`
	Subtitle string `json:"subtitle,omitempty"`
	Desc     string `json:"desc,omitempty"`
	Start    string `json:"start,omitempty"`
	Channel  string `json:"channel,omitempty"`
	Type     string `json:"type,omitempty"`
	Year     string `json:"year,omitempty"`
	Priority *int   `json:"priority,omitempty"`
}

// UnmarshalJSON accepts loosely shaped records, including field synonyms
// used by the remote search service. Non-object values decode to an empty event.
func (e *GuideEvent) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	m, ok := raw.(map[string]any)
	if !ok {
		*e = GuideEvent{}
		return nil
	}
	*e = CoerceGuideEvent(m)
	return nil
}

// CoerceGuideEvent maps a loosely shaped record onto a GuideEvent.
func CoerceGuideEvent(m map[string]any) GuideEvent {
	ev := GuideEvent{
		Title:    Str(m, "title", "name", "programTitle"),
		Subtitle: Str(m, "subtitle", "episodeTitle"),
		Desc:     Str(m, "desc", "description"),
		Start:    Str(m, "start", "start_ts", "startTime"),
		Channel:  Str(m, "channel", "channelName", "ch"),
		Type:     Str(m, "type"),
		Year:     Str(m, "year", "releaseYear"),
	}
	// Only integral numbers count as an explicit priority.
	if f, ok := m["priority"].(float64); ok && f == math.Trunc(f) {
		p := int(f)
		ev.Priority = &p
	}
	return ev
}

// ChannelMeta describes one channel entry of a guide snapshot.
type ChannelMeta struct {
	ID          string `json:"id,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Name        string `json:"name,omitempty"`
}

// UnmarshalJSON tolerates non-object channel entries, which carry no display name.
func (c *ChannelMeta) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	m, ok := raw.(map[string]any)
	if !ok {
		*c = ChannelMeta{}
		return nil
	}
	*c = ChannelMeta{
		ID:          Str(m, "id"),
		DisplayName: Str(m, "displayName"),
		Name:        Str(m, "name"),
	}
	return nil
}

// Display returns the human readable channel name, if any.
func (c ChannelMeta) Display() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.Name
}

// GuideSnapshot is the full guide dataset as stored on disk.
type GuideSnapshot struct {
	Programmes []GuideEvent            `json:"programmes"`
	Channels   map[string]ChannelMeta `json:"channels"`

	// ChannelOrder holds the channel keys in document order.
	ChannelOrder []string `json:"-"`
}

// UnmarshalJSON decodes the snapshot and records the document order of the
// channel keys.
func (s *GuideSnapshot) UnmarshalJSON(b []byte) error {
	var raw struct {
		Programmes []GuideEvent    `json:"programmes"`
		Channels   json.RawMessage `json:"channels"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = GuideSnapshot{Programmes: raw.Programmes}
	if len(raw.Channels) == 0 || bytes.Equal(raw.Channels, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(raw.Channels, &s.Channels); err != nil {
		return err
	}
	order, err := objectKeys(raw.Channels)
	if err != nil {
		return err
	}
	s.ChannelOrder = order
	return nil
}

// ChannelKeys returns the channel keys in document order. Keys without a
// recorded position follow in sorted order.
func (s GuideSnapshot) ChannelKeys() []string {
	keys := make([]string, 0, len(s.Channels))
	seen := make(map[string]bool, len(s.Channels))
	for _, k := range s.ChannelOrder {
		if _, ok := s.Channels[k]; ok && !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	var rest []string
	for k := range s.Channels {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	return append(keys, rest...)
}

func objectKeys(b []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		keys = append(keys, key)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// Programme is a resolved guide record, augmented with channel display data.
type Programme struct {
	GuideEvent
	ChannelName  string `json:"channelName,omitempty"`
	ChannelClean string `json:"channelClean,omitempty"`
}

// ProbeTask asks a worker to check HTTPS support for a plain-HTTP URL.
type ProbeTask struct {
	URL string
}
