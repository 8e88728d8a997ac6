// Package message builds push notification titles and bodies for webhook
// actions.
package message

import (
	"maps"
	"slices"
	"strings"
)

// Action is the push title and priority for one webhook action.
type Action struct {
	Title    string
	Priority int
}

var actions = map[string]Action{
	"catchup_started":   {Title: "Catch-Up Download Started 📥", Priority: 0},
	"catchup_completed": {Title: "Catch-Up Download Completed ✅", Priority: 0},
	"catchup_failed":    {Title: "Catch-Up Download Failed ❗", Priority: 1},
	"catchup_exit":      {Title: "Catch-Up Download Exited ⏹️", Priority: 0},

	"movie_started":   {Title: "Movie Download Started 🎬", Priority: 0},
	"movie_completed": {Title: "Movie Download Completed ✅", Priority: 0},
	"movie_failed":    {Title: "Movie Download Failed ❗", Priority: 1},
	"movie_exit":      {Title: "Movie Download Exited ⏹️", Priority: 0},

	"series_started":   {Title: "Series Download Started 🎞️", Priority: 0},
	"series_completed": {Title: "Series Download Completed ✅", Priority: 0},
	"series_failed":    {Title: "Series Download Failed ❗", Priority: 1},
	"series_exit":      {Title: "Series Download Exited ⏹️", Priority: 0},

	"recording_scheduled":    {Title: "Recording Scheduled 🗓️", Priority: 0},
	"recording_started":      {Title: "Recording Started 🔴", Priority: 0},
	"recording_live_started": {Title: "Recording Started 🔴", Priority: 0},
	"recording_completed":    {Title: "Recording Completed ✅", Priority: 0},
	"recording_failed":       {Title: "Recording Failed ❗", Priority: 1},
	"recording_cancelled":    {Title: "Recording Cancelled ❌", Priority: 0},

	"health_warn":   {Title: "Health Warning ❗", Priority: 1},
	"server_error":  {Title: "Server Error ❗", Priority: 1},
	"server_failed": {Title: "Server Failure ❗", Priority: 1},
	"epg_match":     {Title: "EPG Match 📇", Priority: -2},
	"ffmpeg_retry":  {Title: "Stream Reconnected/Upgraded 🔁", Priority: -1},

	// Housekeeping events from the log monitor.
	"remux_started":      {Title: "Remux Started 🧩", Priority: -2},
	"remux_finished":     {Title: "Remux Finished ✅", Priority: -2},
	"download_started":   {Title: "Download Started 📥", Priority: -2},
	"cleanup_deleted_ts": {Title: "Cleanup: TS Deleted 🧹", Priority: -2},

	// Older emitters.
	"catchup_finished": {Title: "Catch-Up Download Completed ✅", Priority: 0},
}

// Lookup returns the table entry for action.
func Lookup(action string) (Action, bool) {
	a, ok := actions[action]
	return a, ok
}

// Actions lists every known action in sorted order.
func Actions() []string {
	return slices.Sorted(maps.Keys(actions))
}

// TitleFor resolves the push title and priority. Unknown actions use
// fallback with priority 0. A non-empty prefix is prepended to the title.
func TitleFor(action, fallback, prefix string) (string, int) {
	a, ok := actions[action]
	if !ok {
		a = Action{Title: fallback}
	}
	if prefix = strings.TrimSpace(prefix); prefix != "" {
		a.Title = prefix + " " + a.Title
	}
	return a.Title, a.Priority
}

// IsCatchup reports a catch-up action.
func IsCatchup(action string) bool { return strings.HasPrefix(action, "catchup_") }

// IsVOD reports a movie or series action.
func IsVOD(action string) bool {
	return strings.HasPrefix(action, "movie_") || strings.HasPrefix(action, "series_")
}

// Suppressed reports *_exit actions whose exit code is missing or zero.
func Suppressed(action string, exitCode *int) bool {
	return strings.HasSuffix(action, "_exit") && (exitCode == nil || *exitCode == 0)
}
