package message_test

import (
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/RyDizz214/snappier-server-docker/internal/domain/message"
)

func intp(n int) *int { return &n }

func TestTitleFor(t *testing.T) {
	Convey("Given the action table", t, func() {
		Convey("Known actions carry their title and priority", func() {
			title, prio := message.TitleFor("catchup_failed", "ignored", "")
			So(title, ShouldEqual, "Catch-Up Download Failed ❗")
			So(prio, ShouldEqual, 1)

			title, prio = message.TitleFor("epg_match", "", "")
			So(title, ShouldStartWith, "EPG Match")
			So(prio, ShouldEqual, -2)
		})

		Convey("Unknown actions use the fallback at priority zero", func() {
			title, prio := message.TitleFor("mystery", "Gutfeld!", "")
			So(title, ShouldEqual, "Gutfeld!")
			So(prio, ShouldEqual, 0)
		})

		Convey("A prefix is prepended", func() {
			title, _ := message.TitleFor("movie_started", "", "Snappier")
			So(title, ShouldEqual, "Snappier Movie Download Started 🎬")
		})

		Convey("The action list is sorted and complete", func() {
			all := message.Actions()
			So(all, ShouldContain, "catchup_exit")
			So(all, ShouldContain, "catchup_finished")
			for i := 1; i < len(all); i++ {
				So(all[i-1] < all[i], ShouldBeTrue)
			}
		})

		Convey("Synonyms map to the canonical entry", func() {
			a, _ := message.Lookup("catchup_finished")
			b, _ := message.Lookup("catchup_completed")
			So(a, ShouldResemble, b)
		})
	})
}

func TestSuppressed(t *testing.T) {
	Convey("Exit events without a failing code are suppressed", t, func() {
		So(message.Suppressed("recording_exit", intp(0)), ShouldBeTrue)
		So(message.Suppressed("recording_exit", nil), ShouldBeTrue)
		So(message.Suppressed("recording_exit", intp(1)), ShouldBeFalse)
		So(message.Suppressed("recording_failed", intp(0)), ShouldBeFalse)
	})
}

func TestCompose(t *testing.T) {
	Convey("Given a completed catch-up", t, func() {
		body := message.Compose(message.Fields{
			Action:      "catchup_completed",
			Program:     "Gutfeld!",
			JobID:       "abc123",
			Channel:     "FOX News",
			StartLocal:  "2024-01-01 07:00 AM EST",
			Desc:        "Comedy and news.",
			Kind:        "Talk",
			Year:        "2024",
			DurationMin: intp(60),
			File:        "/x/gutfeld.mkv",
		}, 0)

		Convey("Then every section is present in order", func() {
			So(body, ShouldEqual, strings.Join([]string{
				"📺 Gutfeld!",
				"🆔 Job ID: abc123",
				"📡 Channel: FOX News",
				"🕘 Aired: 2024-01-01 07:00 AM EST",
				"",
				"📝 Talk (2024)",
				"Comedy and news.",
				"",
				"⏱️ 60 min • 📁 /x/gutfeld.mkv",
			}, "\n"))
		})
	})

	Convey("Given a started recording whose description leads with an episode header", t, func() {
		body := message.Compose(message.Fields{
			Action:     "recording_started",
			Program:    "Show",
			JobID:      "j1",
			Channel:    "Unknown",
			Desc:       "S01E02 - Pilot\nThe first one.",
			Start:      "20240101120000 +0000",
			End:        "20240101133000 +0000",
			StartLocal: "noon",
			EndLocal:   "half one",
		}, 0)

		Convey("Then the episode is lifted out and timing is shown", func() {
			So(body, ShouldContainSubstring, "📋 Episode: S01E02 - Pilot")
			So(body, ShouldContainSubstring, "🕘 Started: noon")
			So(body, ShouldContainSubstring, "🏁 Ends: half one")
			So(body, ShouldContainSubstring, "⏱️ Duration: 1h 30m")
			So(body, ShouldContainSubstring, "\n📝\nThe first one.")
			So(body, ShouldNotContainSubstring, "Channel")
		})
	})

	Convey("Given a scheduled recording", t, func() {
		body := message.Compose(message.Fields{
			Action:      "recording_scheduled",
			Program:     "Show",
			JobID:       "j1",
			Channel:     "CNN",
			ScheduledAt: "tomorrow",
			StartLocal:  "ignored",
		}, 0)

		So(body, ShouldContainSubstring, "🗓️ Starts: tomorrow")
		So(body, ShouldNotContainSubstring, "Started")
	})

	Convey("Given a movie with catalog data", t, func() {
		rating, votes := 7.456, 12345
		body := message.Compose(message.Fields{
			Action:  "movie_completed",
			Program: "Heat",
			JobID:   "m1",
			Channel: "VOD",
			Rating:  &rating,
			Votes:   &votes,
		}, 0)

		Convey("Then the rating uses thousands separators and the channel is hidden", func() {
			So(body, ShouldContainSubstring, "\n\n⭐ TMDB: 7.5/10 (12,345 votes)")
			So(body, ShouldNotContainSubstring, "Channel")
		})
	})

	Convey("Given a failure with exit details", t, func() {
		body := message.Compose(message.Fields{
			Action:     "recording_failed",
			Program:    "Show",
			JobID:      "j1",
			Channel:    "CNN",
			Error:      "ffmpeg died",
			ExitCode:   intp(1),
			ExitReason: "signal",
		}, 0)

		So(body, ShouldEndWith, "⚠️ ffmpeg died • 🔢 exit=1 • 🧰 signal")
	})

	Convey("Given a health warning", t, func() {
		Convey("Then only the warning lines are used", func() {
			body := message.Compose(message.Fields{
				Action:     "health_warn",
				Desc:       "Health check failed: status=503",
				Error:      "Service Unavailable",
				ExitReason: "health_probe",
			}, 0)
			So(body, ShouldEqual, "Health check failed: status=503\n⚠️ Service Unavailable\n🧰 health_probe")
		})

		Convey("Then an empty warning has a default body", func() {
			So(message.Compose(message.Fields{Action: "health_warn"}, 0), ShouldEqual, "Server health check failed")
		})
	})

	Convey("Long descriptions are trimmed", t, func() {
		body := message.Compose(message.Fields{
			Action:  "catchup_started",
			Program: "P",
			JobID:   "j",
			Channel: "C",
			Desc:    strings.Repeat("é", 20),
		}, 5)
		So(body, ShouldEndWith, "ééééé…")
	})
}

func TestHelpers(t *testing.T) {
	Convey("Formatting helpers", t, func() {
		So(message.FormatDuration(45), ShouldEqual, "45m")
		So(message.FormatDuration(125), ShouldEqual, "2h 5m")
		So(message.SafeTrim("  abc  ", 3), ShouldEqual, "abc")
		So(message.SafeTrim("abcd", 3), ShouldEqual, "abc…")
		So(message.Thousands(999), ShouldEqual, "999")
		So(message.Thousands(1234567), ShouldEqual, "1,234,567")
	})
}
