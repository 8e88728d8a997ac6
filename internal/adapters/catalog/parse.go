package catalog

import (
	"path"
	"regexp"
	"strconv"
	"strings"
)

var (
	dashYear      = regexp.MustCompile(`^(.+?)\s*[-–]\s*(\d{4})$`)
	parenYear     = regexp.MustCompile(`^(.+?)\s*\((\d{4})\)$`)
	qualityPrefix = regexp.MustCompile(`(?i)^(4K|HD|UHD|EN|US|UK):\s*`)

	mediaExt      = regexp.MustCompile(`(?i)\.(mkv|mp4|avi|m4v|ts)$`)
	uuidSuffix    = regexp.MustCompile(`--[a-f0-9-]{30,}$`)
	fileTitleYear = regexp.MustCompile(`^(.+?)_-_(\d{4})$`)
	filePrefix    = regexp.MustCompile(`^(4K__|EN_-_|HD__|UHD__)`)
)

// ParseMovieTitleYear extracts a title and release year from a programme name
// such as "Bad Boys II - 2003" or "Heat (1995)", falling back to recorder
// filenames like "4K__Title_-_2025--<uuid>.mkv". Year is 0 when unknown.
func ParseMovieTitleYear(programName, filePath string) (string, int) {
	var title string
	if programName != "" {
		for _, re := range []*regexp.Regexp{dashYear, parenYear} {
			if m := re.FindStringSubmatch(programName); m != nil {
				year, _ := strconv.Atoi(m[2])
				return qualityPrefix.ReplaceAllString(strings.TrimSpace(m[1]), ""), year
			}
		}
		title = qualityPrefix.ReplaceAllString(strings.TrimSpace(programName), "")
	}

	if filePath != "" {
		name := path.Base(strings.ReplaceAll(filePath, `\`, "/"))
		name = mediaExt.ReplaceAllString(name, "")
		name = uuidSuffix.ReplaceAllString(name, "")
		if m := fileTitleYear.FindStringSubmatch(name); m != nil {
			year, _ := strconv.Atoi(m[2])
			raw := filePrefix.ReplaceAllString(m[1], "")
			return strings.TrimSpace(strings.ReplaceAll(raw, "_", " ")), year
		}
	}

	return title, 0
}

// ParseSeriesTitleYear handles "Tulsa King (2022)" style names.
func ParseSeriesTitleYear(programName string) (string, int) {
	if m := parenYear.FindStringSubmatch(programName); m != nil {
		year, _ := strconv.Atoi(m[2])
		return strings.TrimSpace(m[1]), year
	}
	return strings.TrimSpace(programName), 0
}
