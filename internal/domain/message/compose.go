package message

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	xmessage "golang.org/x/text/message"

	"github.com/RyDizz214/snappier-server-docker/internal/domain/normalize"
)

// DefaultDescLimit is the description length, in characters, before trimming.
const DefaultDescLimit = 900

var episodeHeader = regexp.MustCompile(`^(S\d+E\d+)\s*(?:[-:]\s*)?(.*)$`)

// Fields are the resolved values a notification body is built from.
type Fields struct {
	Action  string
	Program string
	JobID   string
	Channel string
	Episode string
	Desc    string
	Kind    string
	Year    string

	Start       string
	End         string
	StartLocal  string
	EndLocal    string
	ScheduledAt string
	DurationMin *int

	File       string
	Error      string
	ExitCode   *int
	ExitReason string

	// Catalog values; only shown for movie and series actions.
	Rating *float64
	Votes  *int
}

// Compose renders the push body for f. Descriptions longer than descLimit
// characters are cut and end with "…".
func Compose(f Fields, descLimit int) string {
	if descLimit <= 0 {
		descLimit = DefaultDescLimit
	}
	if f.Action == "health_warn" {
		return healthBody(f)
	}

	action := f.Action
	lines := []string{"📺 " + f.Program}
	descBody := f.Desc

	switch {
	case strings.HasPrefix(action, "series_") && f.Episode != "":
		lines = append(lines, "📋 Episode: "+f.Episode)
	case isLiveRecording(action) && f.Desc != "":
		first, rest, _ := strings.Cut(f.Desc, "\n")
		if m := episodeHeader.FindStringSubmatch(strings.TrimSpace(first)); m != nil {
			if title := strings.TrimSpace(m[2]); title != "" {
				lines = append(lines, "📋 Episode: "+m[1]+" - "+title)
			} else {
				lines = append(lines, "📋 Episode: "+m[1])
			}
			descBody = strings.TrimSpace(rest)
		}
	}

	lines = append(lines, "🆔 Job ID: "+f.JobID)
	if !IsVOD(action) && f.Channel != "Unknown" {
		lines = append(lines, "📡 Channel: "+f.Channel)
	}

	if isLiveRecording(action) {
		lines = append(lines, timingLines(f)...)
	}

	if IsCatchup(action) || strings.HasPrefix(action, "series_") {
		aired := f.StartLocal
		if aired == "" {
			aired = f.Start
		}
		if aired != "" {
			lines = append(lines, "🕘 Aired: "+aired)
		}
	}

	var header []string
	if f.Kind != "" {
		header = append(header, f.Kind)
	}
	if f.Year != "" {
		header = append(header, "("+f.Year+")")
	}
	if len(header) > 0 {
		lines = append(lines, "\n📝 "+strings.Join(header, " "))
	} else {
		lines = append(lines, "\n📝")
	}

	if desc := SafeTrim(descBody, descLimit); desc != "" {
		lines = append(lines, desc)
	}

	if IsVOD(action) && f.Rating != nil && *f.Rating != 0 {
		rating := fmt.Sprintf("⭐ TMDB: %.1f/10", *f.Rating)
		if f.Votes != nil && *f.Votes != 0 {
			rating += " (" + Thousands(*f.Votes) + " votes)"
		}
		lines = append(lines, "\n"+rating)
	}

	if tail := tailParts(f); len(tail) > 0 {
		lines = append(lines, "\n"+strings.Join(tail, " • "))
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func healthBody(f Fields) string {
	var lines []string
	if f.Desc != "" {
		lines = append(lines, f.Desc)
	}
	if f.Error != "" {
		lines = append(lines, "⚠️ "+f.Error)
	}
	if f.ExitReason != "" {
		lines = append(lines, "🧰 "+f.ExitReason)
	}
	if body := strings.TrimSpace(strings.Join(lines, "\n")); body != "" {
		return body
	}
	return "Server health check failed"
}

func isLiveRecording(action string) bool {
	switch action {
	case "recording_scheduled", "recording_started", "recording_live_started":
		return true
	}
	return false
}

func timingLines(f Fields) []string {
	var lines []string
	switch {
	case f.Action == "recording_scheduled":
		if f.ScheduledAt != "" {
			lines = append(lines, "🗓️ Starts: "+f.ScheduledAt)
		}
	case f.StartLocal != "":
		lines = append(lines, "🕘 Started: "+f.StartLocal)
	case f.ScheduledAt != "":
		lines = append(lines, "🕘 Started: "+f.ScheduledAt)
	}
	if f.EndLocal != "" {
		lines = append(lines, "🏁 Ends: "+f.EndLocal)
	}
	if minutes, ok := normalize.DurationMinutes(f.Start, f.End); ok {
		lines = append(lines, "⏱️ Duration: "+FormatDuration(minutes))
	}
	return lines
}

func tailParts(f Fields) []string {
	var tail []string
	switch f.Action {
	case "recording_completed", "catchup_completed", "movie_completed", "series_completed":
		if f.DurationMin != nil && *f.DurationMin != 0 {
			tail = append(tail, fmt.Sprintf("⏱️ %d min", *f.DurationMin))
		}
		if f.File != "" {
			tail = append(tail, "📁 "+f.File)
		}
	}

	exitParts := func() {
		if f.ExitCode != nil {
			tail = append(tail, "🔢 exit="+strconv.Itoa(*f.ExitCode))
		}
		if f.ExitReason != "" {
			tail = append(tail, "🧰 "+f.ExitReason)
		}
	}
	if strings.HasSuffix(f.Action, "_failed") || f.Action == "server_error" || f.Action == "server_failed" {
		if f.Error != "" {
			tail = append(tail, "⚠️ "+f.Error)
		}
		exitParts()
	}
	if strings.HasSuffix(f.Action, "_exit") {
		exitParts()
	}
	return tail
}

// FormatDuration renders minutes as "1h 5m" or "45m".
func FormatDuration(minutes int) string {
	if h := minutes / 60; h > 0 {
		return fmt.Sprintf("%dh %dm", h, minutes%60)
	}
	return fmt.Sprintf("%dm", minutes)
}

// SafeTrim trims whitespace and cuts s to limit characters, appending "…"
// when it was cut.
func SafeTrim(s string, limit int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "…"
}

// Thousands formats n with comma group separators.
func Thousands(n int) string {
	return xmessage.NewPrinter(language.English).Sprintf("%d", n)
}
