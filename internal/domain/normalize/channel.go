// Package normalize canonicalizes the free-form channel labels, titles and
// timestamps found in webhook payloads and guide snapshots.
package normalize

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	countrySuffix = regexp.MustCompile(`(?i)\.(us|ca|uk|au|mx|tv)\b`)
	spaceRun      = regexp.MustCompile(`\s+`)
)

var regionPrefixes = []string{"US", "CA", "UK", "AU", "MX", "NZ"}

// CleanChannel canonicalizes a channel label so lookups are comparable:
// it keeps the last "|" segment, drops country suffixes such as ".us",
// spaces out "/", and strips a leading region code like "US:" or "UK ".
func CleanChannel(value string) string {
	val := strings.TrimSpace(value)
	if val == "" {
		return ""
	}

	if strings.Contains(val, "|") {
		var last string
		for _, p := range strings.Split(val, "|") {
			if p = strings.TrimSpace(p); p != "" {
				last = p
			}
		}
		if last != "" {
			val = last
		}
	}

	val = strings.ReplaceAll(val, "_", " ")
	val = countrySuffix.ReplaceAllString(val, "")
	val = strings.ReplaceAll(val, "/", " / ")
	val = strings.TrimSpace(spaceRun.ReplaceAllString(val, " "))

	for _, prefix := range regionPrefixes {
		if len(val) <= len(prefix) || !strings.EqualFold(val[:len(prefix)], prefix) {
			continue
		}
		// "USA Network" is a name, not a region code.
		if sep := rune(val[len(prefix)]); sep != ':' && !unicode.IsSpace(sep) {
			continue
		}
		if rest := strings.TrimLeft(val[len(prefix):], ": "); rest != "" {
			val = rest
			break
		}
	}

	return strings.Trim(val, " -:")
}

// PickChannel returns the first value that cleans to a non-empty label.
func PickChannel(values ...string) string {
	for _, v := range values {
		if c := CleanChannel(v); c != "" {
			return c
		}
	}
	return ""
}
