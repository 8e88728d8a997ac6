package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const compactLayout = "20060102150405"

var (
	offsetPattern = regexp.MustCompile(`^[+-]\d{4}$`)
	isoLayouts    = []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999Z07:00",
		"2006-01-02T15:04Z07:00",
		"20060102T150405Z07:00",
	}
)

// ParseTimestamp parses ISO-8601 strings ending in Z as well as compact digit
// encodings such as "20240101120000 +0000", "2024-01-01T12:00:00-05:00" or
// "202401011200". Short digit runs are right-padded to seconds; offsets that do
// not look like ±HHMM are ignored and UTC is assumed.
func ParseTimestamp(raw string) (time.Time, bool) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return time.Time{}, false
	}

	if strings.HasSuffix(text, "Z") {
		for _, layout := range isoLayouts {
			if t, err := time.Parse(layout, text); err == nil {
				return t, true
			}
		}
	}

	sanitized := strings.ReplaceAll(text, "T", "")
	base, offset := sanitized, ""
	for i := 8; i < len(sanitized); i++ {
		if c := sanitized[i]; c == '+' || c == '-' {
			base, offset = sanitized[:i], sanitized[i:]
			break
		}
	}

	digits := onlyDigits(base)
	if len(digits) < 6 {
		return time.Time{}, false
	}
	if len(digits) < len(compactLayout) {
		digits += strings.Repeat("0", len(compactLayout)-len(digits))
	} else {
		digits = digits[:len(compactLayout)]
	}

	loc := time.UTC
	if offset != "" {
		off := strings.ReplaceAll(strings.TrimSpace(offset), ":", "")
		if offsetPattern.MatchString(off) {
			hours, _ := strconv.Atoi(off[1:3])
			minutes, _ := strconv.Atoi(off[3:5])
			secs := hours*3600 + minutes*60
			if off[0] == '-' {
				secs = -secs
			}
			loc = time.FixedZone(off, secs)
		}
	}

	t, err := time.ParseInLocation(compactLayout, digits, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// NormalizeStart converts a raw timestamp into epoch seconds.
func NormalizeStart(raw string) (int64, bool) {
	t, ok := ParseTimestamp(raw)
	if !ok {
		return 0, false
	}
	return t.Unix(), true
}

// DurationMinutes returns whole minutes between two raw timestamps when end is after start.
func DurationMinutes(start, end string) (int, bool) {
	s, ok := ParseTimestamp(start)
	if !ok {
		return 0, false
	}
	e, ok := ParseTimestamp(end)
	if !ok {
		return 0, false
	}
	d := e.Sub(s)
	if d <= 0 {
		return 0, false
	}
	return int(d / time.Minute), true
}

// LocalLabel formats t for display in loc, e.g. "2024-01-01 07:00 AM EST".
func LocalLabel(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("2006-01-02 03:04 PM MST")
}

func onlyDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
