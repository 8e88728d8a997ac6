package normalize_test

import (
	"testing"
	"time"

	"github.com/RyDizz214/snappier-server-docker/internal/domain/normalize"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCleanChannel(t *testing.T) {
	Convey("Given raw channel labels", t, func() {
		cases := map[string]string{
			"US: FOX NEWS":          "FOX NEWS",
			"fox.us":                "fox",
			"HD | UK | BBC_One.uk":  "BBC One",
			"uk bbc two":            "bbc two",
			"USA Network":           "USA Network",
			"CA:":                   "CA",
			"A&E/History":           "A&E / History",
			"  Discovery   Channel ": "Discovery Channel",
			"- CNN -":               "CNN",
			"":                      "",
			"   ":                   "",
		}
		for in, want := range cases {
			So(normalize.CleanChannel(in), ShouldEqual, want)
		}
	})

	Convey("PickChannel returns the first usable label", t, func() {
		So(normalize.PickChannel("", "  ", "US: CNN", "FOX"), ShouldEqual, "CNN")
		So(normalize.PickChannel("", ""), ShouldEqual, "")
	})
}

func TestParseTimestamp(t *testing.T) {
	Convey("Given timestamps in the formats the pipeline emits", t, func() {
		want := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

		Convey("Compact digits with an offset", func() {
			got, ok := normalize.ParseTimestamp("20240101120000 +0000")
			So(ok, ShouldBeTrue)
			So(got.Equal(want), ShouldBeTrue)
		})

		Convey("Compact digits without a separator before the offset", func() {
			got, ok := normalize.ParseTimestamp("20240101070000-0500")
			So(ok, ShouldBeTrue)
			So(got.Equal(want), ShouldBeTrue)
		})

		Convey("ISO with a colon offset", func() {
			got, ok := normalize.ParseTimestamp("2024-01-01T07:00:00-05:00")
			So(ok, ShouldBeTrue)
			So(got.Equal(want), ShouldBeTrue)
		})

		Convey("ISO with a Z suffix", func() {
			got, ok := normalize.ParseTimestamp("2024-01-01T12:00:00Z")
			So(ok, ShouldBeTrue)
			So(got.Equal(want), ShouldBeTrue)
		})

		Convey("Short digit runs are padded", func() {
			got, ok := normalize.ParseTimestamp("202401011200")
			So(ok, ShouldBeTrue)
			So(got.Equal(want), ShouldBeTrue)
		})

		Convey("An unusable offset falls back to UTC", func() {
			got, ok := normalize.ParseTimestamp("20240101120000 +5")
			So(ok, ShouldBeTrue)
			So(got.Equal(want), ShouldBeTrue)
		})

		Convey("Too few digits fail", func() {
			_, ok := normalize.ParseTimestamp("12:00")
			So(ok, ShouldBeFalse)
			_, ok = normalize.ParseTimestamp("")
			So(ok, ShouldBeFalse)
		})

		Convey("NormalizeStart returns epoch seconds", func() {
			sec, ok := normalize.NormalizeStart("20240101120000 +0000")
			So(ok, ShouldBeTrue)
			So(sec, ShouldEqual, want.Unix())
		})
	})

	Convey("DurationMinutes needs end after start", t, func() {
		m, ok := normalize.DurationMinutes("20240101120000 +0000", "20240101133000 +0000")
		So(ok, ShouldBeTrue)
		So(m, ShouldEqual, 90)
		_, ok = normalize.DurationMinutes("20240101133000 +0000", "20240101120000 +0000")
		So(ok, ShouldBeFalse)
	})

	Convey("LocalLabel renders 12-hour clock time", t, func() {
		loc := time.FixedZone("EST", -5*3600)
		label := normalize.LocalLabel(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), loc)
		So(label, ShouldEqual, "2024-01-01 07:00 AM EST")
	})
}

func TestTitles(t *testing.T) {
	Convey("Title helpers", t, func() {
		So(normalize.TitleKey("  Gutfeld! "), ShouldEqual, "gutfeld!")
		So(normalize.TitleNorm("Gutfeld!"), ShouldEqual, "gutfeld")
		So(normalize.StripPunct("law & order: svu"), ShouldEqual, "law  order svu")
		So(normalize.RestorePossessive("Freddy s Revenge"), ShouldEqual, "Freddy's Revenge")
		So(normalize.RestorePossessive("Somebody Feed Phil"), ShouldEqual, "Somebody Feed Phil")
	})
}
