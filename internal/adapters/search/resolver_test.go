package search_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/RyDizz214/snappier-server-docker/internal/adapters/search"
	"github.com/RyDizz214/snappier-server-docker/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

type recorded struct {
	mu      sync.Mutex
	queries []map[string]string
	auth    []string
}

func (r *recorded) add(req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q := map[string]string{}
	for k := range req.URL.Query() {
		q[k] = req.URL.Query().Get(k)
	}
	r.queries = append(r.queries, q)
	r.auth = append(r.auth, req.Header.Get("Authorization"))
}

func TestFindRemote(t *testing.T) {
	ctx := context.Background()

	Convey("Given a search service that only answers title-only queries", t, func() {
		rec := &recorded{}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			rec.add(req)
			if req.URL.Path != "/epg/search" {
				http.NotFound(w, req)
				return
			}
			w.Header().Set("X-Total-Results", "2")
			w.Header().Set("X-Returned-Results", "2")
			if req.URL.Query().Get("channel") != "" {
				_, _ = w.Write([]byte(`[]`))
				return
			}
			_ = json.NewEncoder(w).Encode([]any{
				map[string]any{"name": "Gutfeld Weekend", "startTime": "20240101120000 +0000", "channelName": "FOXNEWS.us"},
				map[string]any{"programTitle": "Gutfeld!", "start_ts": "20240101120000 +0000", "ch": "FOXNEWS.us", "description": "Late night"},
				"noise",
			})
		}))
		defer srv.Close()

		r := search.NewResolver(
			search.WithBaseURL(srv.URL+"/"),
			search.WithAPIKey("secret"),
			search.WithGoodEnough(100),
		)

		Convey("When both title and channel are known", func() {
			p, meta, outcome := r.FindRemote(ctx, "FOX NEWS", "Gutfeld!", "20240101120000+0000")

			Convey("Then it falls through to the title-only search and ranks the hits", func() {
				So(outcome, ShouldEqual, search.OutcomeHit)
				So(p.Title, ShouldEqual, "Gutfeld!")
				So(p.Desc, ShouldEqual, "Late night")
				So(p.ChannelClean, ShouldEqual, "FOXNEWS")
				So(meta.Total, ShouldEqual, "2")
				So(meta.Returned, ShouldEqual, "2")
			})

			Convey("And the requests carry the expected parameters", func() {
				So(len(rec.queries), ShouldEqual, 2)
				So(rec.queries[0], ShouldResemble, map[string]string{"title": "Gutfeld!", "channel": "FOX NEWS", "limit": "10"})
				So(rec.queries[1], ShouldResemble, map[string]string{"title": "Gutfeld!", "limit": "10"})
				So(rec.auth[0], ShouldEqual, "Bearer secret")
			})
		})

		Convey("When only a channel is known", func() {
			_, _, outcome := r.FindRemote(ctx, "FOX NEWS", "", "")

			Convey("Then it is a miss", func() {
				So(outcome, ShouldEqual, search.OutcomeMiss)
			})
		})
	})

	Convey("Given a failing search service", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		r := search.NewResolver(search.WithBaseURL(srv.URL))
		p, _, outcome := r.FindRemote(ctx, "", "Gutfeld!", "")

		Convey("Then an error outcome is reported without a result", func() {
			So(outcome, ShouldEqual, search.OutcomeError)
			So(p.Title, ShouldEqual, "")
		})
	})

	Convey("Given a slow search service", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte(`[]`))
		}))
		defer srv.Close()

		r := search.NewResolver(search.WithBaseURL(srv.URL), search.WithTimeout(20*time.Millisecond))
		_, _, outcome := r.FindRemote(ctx, "", "Gutfeld!", "")

		Convey("Then the timeout is reported", func() {
			So(outcome, ShouldEqual, search.OutcomeTimeout)
		})
	})

	Convey("Given a disabled resolver", t, func() {
		r := search.NewResolver(search.WithEnabled(false))
		_, _, outcome := r.FindRemote(ctx, "FOX", "Gutfeld!", "")

		Convey("Then nothing is requested", func() {
			So(r.Enabled(), ShouldBeFalse)
			So(outcome, ShouldEqual, search.OutcomeDisabled)
		})
	})
}
