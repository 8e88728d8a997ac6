package probe_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"

	"github.com/RyDizz214/snappier-server-docker/internal/adapters/probe"
	"github.com/RyDizz214/snappier-server-docker/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

func TestProber(t *testing.T) {
	ctx := context.Background()

	Convey("Given an HTTPS server that answers 200", t, func() {
		var mu sync.Mutex
		var methods []string
		srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			methods = append(methods, r.Method)
			mu.Unlock()
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		p := probe.NewProber(probe.WithHTTPClient(srv.Client()), probe.WithAllowHTTPHosts(nil))
		plain := "http://" + strings.TrimPrefix(srv.URL, "https://") + "/logo.png"

		Convey("When the same host is probed twice", func() {
			first := p.Probe(ctx, plain)
			second := p.Probe(ctx, plain)

			Convey("Then HTTPS is supported and only one request is made", func() {
				So(first, ShouldBeTrue)
				So(second, ShouldBeTrue)
				So(p.ProbesTotal(), ShouldEqual, 1)
				So(methods, ShouldResemble, []string{http.MethodHead})
				So(p.CacheLen(), ShouldEqual, 1)
				So(p.Capabilities(), ShouldResemble, map[string]bool{"127.0.0.1": true})
			})
		})

		Convey("When the URL is already https", func() {
			So(p.Probe(ctx, srv.URL), ShouldBeFalse)
			So(p.ProbesTotal(), ShouldEqual, 0)
		})
	})

	Convey("Given an HTTPS server that errors", t, func() {
		srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		p := probe.NewProber(
			probe.WithHTTPClient(srv.Client()),
			probe.WithAllowHTTPHosts(nil),
			probe.WithMethod("get"),
		)
		ok := p.Probe(ctx, "http://"+strings.TrimPrefix(srv.URL, "https://"))

		Convey("Then the host is cached as HTTP only", func() {
			So(ok, ShouldBeFalse)
			So(p.Capabilities()["127.0.0.1"], ShouldBeFalse)
			So(p.CacheLen(), ShouldEqual, 1)
		})
	})

	Convey("Allow-listed hosts are never probed", t, func() {
		p := probe.NewProber()
		So(p.Probe(ctx, "http://localhost:8000/x"), ShouldBeFalse)
		So(p.Probe(ctx, "http://snappier-server/x"), ShouldBeFalse)
		So(p.ProbesTotal(), ShouldEqual, 0)
		So(p.CacheCap(), ShouldEqual, 1000)
	})
}

type recordingProber struct {
	mu   sync.Mutex
	urls []string
}

func (r *recordingProber) Probe(_ context.Context, u string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.urls = append(r.urls, u)
	return false
}

func TestPreflight(t *testing.T) {
	ctx := context.Background()

	Convey("Given schedule and guide files with plain-HTTP links", t, func() {
		fs := afero.NewMemMapFs()
		So(afero.WriteFile(fs, "/schedules.json", []byte(`{
			"a": {"logo": "http://img.example/a.png", "other": "https://secure.example"},
			"b": ["http://img.example/b.png", 3, null]
		}`), 0o644), ShouldBeNil)
		So(afero.WriteFile(fs, "/epg.json", []byte(`{"programmes":[{"icon":"http://cdn.example/c.png"}]}`), 0o644), ShouldBeNil)
		So(afero.WriteFile(fs, "/broken.json", []byte(`{`), 0o644), ShouldBeNil)

		rec := &recordingProber{}
		pf := probe.NewPreflight(fs, rec, []string{"/schedules.json", "/missing.json", "/broken.json", "/epg.json"}, 10, 2)
		n := pf.Run(ctx)

		Convey("Then every http:// string is probed", func() {
			So(n, ShouldEqual, 3)
			sort.Strings(rec.urls)
			So(rec.urls, ShouldResemble, []string{
				"http://cdn.example/c.png",
				"http://img.example/a.png",
				"http://img.example/b.png",
			})
		})
	})

	Convey("CollectHTTP stops at the limit", t, func() {
		doc := []any{"http://a", "http://b", "http://c"}
		So(probe.CollectHTTP(doc, 2, nil), ShouldResemble, []string{"http://a", "http://b"})
	})
}
