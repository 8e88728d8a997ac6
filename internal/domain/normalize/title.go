package normalize

import (
	"regexp"
	"strings"
)

var (
	punctuation = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
	// Filenames lose apostrophes: "Freddy s Revenge".
	detachedPossessive = regexp.MustCompile(`(?i) s\b`)
)

// TitleKey lowercases and trims a title.
func TitleKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// StripPunct removes punctuation from an already lowercased title key.
func StripPunct(key string) string {
	return strings.TrimSpace(punctuation.ReplaceAllString(key, ""))
}

// TitleNorm is StripPunct(TitleKey(title)).
func TitleNorm(title string) string {
	return StripPunct(TitleKey(title))
}

// RestorePossessive turns "Freddy s Revenge" back into "Freddy's Revenge".
func RestorePossessive(title string) string {
	return detachedPossessive.ReplaceAllString(title, "'s")
}
