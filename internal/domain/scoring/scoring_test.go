package scoring_test

import (
	"testing"

	"github.com/RyDizz214/snappier-server-docker/internal/domain/model"
	"github.com/RyDizz214/snappier-server-docker/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

const noon = "20240101120000 +0000"

func candidate(title, channel, start string) scoring.Candidate {
	return scoring.NewCandidate(model.GuideEvent{Title: title, Channel: channel, Start: start})
}

func TestScore(t *testing.T) {
	Convey("Given a query for Gutfeld! at noon", t, func() {
		q := scoring.NewQuery("Gutfeld!", "", noon, false)

		Convey("An exact title outscores a substring title", func() {
			exact := scoring.Score(q, candidate("Gutfeld", "", noon))
			sub := scoring.Score(q, candidate("Gutfeld Weekend", "", noon))
			So(exact.Score, ShouldBeGreaterThanOrEqualTo, sub.Score)
			So(exact.Breakdown.Title, ShouldEqual, "title_exact")
			So(sub.Breakdown.Title, ShouldEqual, "title_normalized_match")
		})

		Convey("Time proximity ranks 30s above 400s", func() {
			near := scoring.Score(q, candidate("Gutfeld!", "", "20240101120030 +0000"))
			far := scoring.Score(q, candidate("Gutfeld!", "", "20240101120640 +0000"))
			So(near.Score, ShouldBeGreaterThan, far.Score)
			So(near.Breakdown.TimePoints, ShouldEqual, 10)
			So(far.Breakdown.TimePoints, ShouldEqual, 2)
		})

		Convey("An exact start earns 20", func() {
			r := scoring.Score(q, candidate("Other", "", noon))
			So(r.Breakdown.TimePoints, ShouldEqual, 20)
			So(r.Score, ShouldEqual, 20)
		})
	})

	Convey("Given a past-preferring query", t, func() {
		q := scoring.NewQuery("Gutfeld!", "", noon, true)

		Convey("A past airing beats a future airing at the same distance", func() {
			past := scoring.Score(q, candidate("Gutfeld!", "", "20240101100000 +0000"))
			future := scoring.Score(q, candidate("Gutfeld!", "", "20240101140000 +0000"))
			So(past.Score, ShouldBeGreaterThan, future.Score)
			So(past.Breakdown.PastBonus, ShouldEqual, 5)
			So(future.Breakdown.FuturePenalty, ShouldEqual, -15)
		})

		Convey("The distance bonus decays over a day", func() {
			r := scoring.Score(q, candidate("Gutfeld!", "", noon))
			So(r.Breakdown.DistanceBonus, ShouldEqual, 3)
			r = scoring.Score(q, candidate("Gutfeld!", "", "20231231120000 +0000"))
			So(r.Breakdown.DistanceBonus, ShouldEqual, 0)
			r = scoring.Score(q, candidate("Gutfeld!", "", "20240101080000 +0000"))
			So(r.Breakdown.DistanceBonus, ShouldEqual, 2.5)
		})
	})

	Convey("Given channel and network signals", t, func() {
		q := scoring.NewQuery("", "US: FOX NEWS", "", false)

		Convey("A cleaned channel match adds 4 and Fox News adds 5", func() {
			r := scoring.Score(q, candidate("", "FOX NEWS", ""))
			So(r.Breakdown.ChannelPoints, ShouldEqual, 4)
			So(r.Breakdown.NetworkPoints, ShouldEqual, 5)
			So(r.Score, ShouldEqual, 9)
		})

		Convey("Only the first network tier applies", func() {
			r := scoring.Score(scoring.NewQuery("", "", "", false), candidate("", "FOX USA", ""))
			So(r.Breakdown.Network, ShouldEqual, "network_major")
			So(r.Score, ShouldEqual, 3)
		})

		Convey("Military channels are penalized", func() {
			r := scoring.Score(scoring.NewQuery("", "", "", false), candidate("", "AFN Sports", ""))
			So(r.Score, ShouldEqual, -10)
		})
	})

	Convey("Priority is clamped to 0..3", t, func() {
		q := scoring.NewQuery("", "", "", false)
		high, low := 9, -4
		r := scoring.Score(q, scoring.NewCandidate(model.GuideEvent{Priority: &high}))
		So(r.Score, ShouldEqual, 3)
		r = scoring.Score(q, scoring.NewCandidate(model.GuideEvent{Priority: &low}))
		So(r.Score, ShouldEqual, 0)
	})

	Convey("Breakdown renders its parts", t, func() {
		r := scoring.Score(scoring.NewQuery("Gutfeld!", "", noon, false), candidate("Gutfeld", "", noon))
		So(r.Breakdown.String(), ShouldEqual, "title_exact=6, time_exact=20")
	})
}

func TestSelector(t *testing.T) {
	Convey("Given a selector", t, func() {
		Convey("It keeps the strictly higher score", func() {
			s := scoring.NewSelector(false, 0)
			a := scoring.Result{Score: 4}
			b := scoring.Result{Score: 6}
			s.Offer(0, candidate("a", "", ""), &a)
			s.Offer(1, candidate("b", "", ""), &b)
			idx, score, ok := s.Best()
			So(ok, ShouldBeTrue)
			So(idx, ShouldEqual, 1)
			So(score, ShouldEqual, 6)
		})

		Convey("It stops at the good-enough threshold", func() {
			s := scoring.NewSelector(false, 12)
			r := scoring.Result{Score: 12}
			So(s.Offer(0, candidate("a", "", ""), &r), ShouldBeTrue)
		})

		Convey("Ties go to the earlier airing when preferring the past", func() {
			s := scoring.NewSelector(true, 100)
			late := scoring.Result{Score: 7}
			early := scoring.Result{Score: 7}
			s.Offer(0, candidate("a", "", "20240101120000 +0000"), &late)
			s.Offer(1, candidate("a", "", "20240101080000 +0000"), &early)
			idx, _, _ := s.Best()
			So(idx, ShouldEqual, 1)
			So(early.Breakdown.EarlierAiring, ShouldBeTrue)
		})

		Convey("Ties keep the first candidate otherwise", func() {
			s := scoring.NewSelector(false, 100)
			late := scoring.Result{Score: 7}
			early := scoring.Result{Score: 7}
			s.Offer(0, candidate("a", "", "20240101120000 +0000"), &late)
			s.Offer(1, candidate("a", "", "20240101080000 +0000"), &early)
			idx, _, _ := s.Best()
			So(idx, ShouldEqual, 0)
		})

		Convey("Negative scores fall back to the first candidate", func() {
			s := scoring.NewSelector(false, 0)
			r1 := scoring.Result{Score: -10}
			r2 := scoring.Result{Score: -15}
			s.Offer(3, candidate("a", "", ""), &r1)
			s.Offer(4, candidate("b", "", ""), &r2)
			idx, _, ok := s.Best()
			So(ok, ShouldBeTrue)
			So(idx, ShouldEqual, 3)
		})

		Convey("Nothing offered means no result", func() {
			_, _, ok := scoring.NewSelector(false, 0).Best()
			So(ok, ShouldBeFalse)
		})
	})
}
