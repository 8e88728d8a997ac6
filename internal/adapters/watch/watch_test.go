package watch_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/afero"

	"github.com/RyDizz214/snappier-server-docker/internal/adapters/watch"
	"github.com/RyDizz214/snappier-server-docker/pkg/logger"
)

func init() {
	_ = logger.Init()
}

// hostProber reports HTTPS support for a fixed set of URL prefixes.
type hostProber struct {
	mu     sync.Mutex
	ok     []string
	probed []string
}

func (p *hostProber) Probe(_ context.Context, u string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probed = append(p.probed, u)
	for _, prefix := range p.ok {
		if strings.HasPrefix(u, prefix) {
			return true
		}
	}
	return false
}

func TestHTTPSUpgrader(t *testing.T) {
	Convey("Given a schedules file with mixed urls", t, func() {
		fs := afero.NewMemMapFs()
		_ = afero.WriteFile(fs, "/data/schedules.json", []byte(`{
			"jobs": [
				{"logo": "http://cdn.example.com/a.png", "stream": "http://localhost:8000/live"},
				{"logo": "https://already.example.com/b.png", "id": 1700000000000}
			],
			"http://keys.example.com": "unchanged key"
		}`), 0o644)
		prober := &hostProber{ok: []string{"http://cdn.example.com"}}
		up := watch.NewHTTPSUpgrader(prober, []string{"/data/schedules.json", "/data/missing.json"}, watch.WithHTTPSFs(fs))

		Convey("When one pass runs", func() {
			n := up.Once(context.Background())

			Convey("Then supported hosts are upgraded in place", func() {
				So(n, ShouldEqual, 1)
				raw, err := afero.ReadFile(fs, "/data/schedules.json")
				So(err, ShouldBeNil)

				var doc map[string]any
				So(json.Unmarshal(raw, &doc), ShouldBeNil)
				jobs := doc["jobs"].([]any)
				So(jobs[0].(map[string]any)["logo"], ShouldEqual, "https://cdn.example.com/a.png")
				So(jobs[0].(map[string]any)["stream"], ShouldEqual, "http://localhost:8000/live")
				So(string(raw), ShouldContainSubstring, "1700000000000")
				So(doc["http://keys.example.com"], ShouldEqual, "unchanged key")

				exists, _ := afero.Exists(fs, "/data/schedules.json.tmp")
				So(exists, ShouldBeFalse)
			})

			Convey("Then a second pass has nothing to do", func() {
				So(up.Once(context.Background()), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a malformed file", t, func() {
		fs := afero.NewMemMapFs()
		_ = afero.WriteFile(fs, "/bad.json", []byte("{not json"), 0o644)
		up := watch.NewHTTPSUpgrader(&hostProber{}, []string{"/bad.json"}, watch.WithHTTPSFs(fs))

		Convey("Then it is left alone", func() {
			So(up.Once(context.Background()), ShouldEqual, 0)
			raw, _ := afero.ReadFile(fs, "/bad.json")
			So(string(raw), ShouldEqual, "{not json")
		})
	})
}

func TestScheduleSanitizer(t *testing.T) {
	Convey("SanitizeString maps odd spaces and compatibility forms", t, func() {
		So(watch.SanitizeString("7:00\u202fPM"), ShouldEqual, "7:00 PM")
		So(watch.SanitizeString("a\u00a0b\u2007c\u2060d"), ShouldEqual, "a b c d")
		So(watch.SanitizeString("\ufb01le"), ShouldEqual, "file")
		So(watch.SanitizeString(""), ShouldEqual, "")
	})

	Convey("Given a schedules file", t, func() {
		fs := afero.NewMemMapFs()
		path := "/data/schedules.json"

		Convey("When a string contains a narrow no-break space", func() {
			_ = afero.WriteFile(fs, path, []byte("{\"start\":\"7:00\u202fPM\"}"), 0o644)
			s := watch.NewScheduleSanitizer(path, watch.WithScheduleFs(fs))

			Convey("Then the file is rewritten with indentation", func() {
				So(s.Once(context.Background()), ShouldBeTrue)
				raw, _ := afero.ReadFile(fs, path)
				So(string(raw), ShouldEqual, "{\n  \"start\": \"7:00 PM\"\n}")
			})

			Convey("Then a second pass is a no-op", func() {
				So(s.Once(context.Background()), ShouldBeTrue)
				So(s.Once(context.Background()), ShouldBeFalse)
			})
		})

		Convey("When the file is clean but compact", func() {
			_ = afero.WriteFile(fs, path, []byte(`{"a":"b"}`), 0o644)
			s := watch.NewScheduleSanitizer(path, watch.WithScheduleFs(fs))

			Convey("Then it is reformatted", func() {
				So(s.Once(context.Background()), ShouldBeTrue)
				raw, _ := afero.ReadFile(fs, path)
				So(string(raw), ShouldEqual, "{\n  \"a\": \"b\"\n}")
			})
		})

		Convey("When the file does not exist", func() {
			s := watch.NewScheduleSanitizer(path, watch.WithScheduleFs(fs))

			Convey("Then nothing happens", func() {
				So(s.Once(context.Background()), ShouldBeFalse)
			})
		})
	})
}

func TestHealthWatcher(t *testing.T) {
	Convey("Given an unhealthy server and a notifier", t, func() {
		var status = http.StatusServiceUnavailable
		var mu sync.Mutex
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			mu.Lock()
			defer mu.Unlock()
			w.WriteHeader(status)
		}))
		defer server.Close()

		var posted []map[string]any
		notifier := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			mu.Lock()
			posted = append(posted, body)
			mu.Unlock()
			w.WriteHeader(http.StatusOK)
		}))
		defer notifier.Close()

		now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
		h := watch.NewHealthWatcher(
			watch.WithHealthTarget(server.URL, "/serverStats"),
			watch.WithNotifyURL(notifier.URL),
			watch.WithFailThreshold(3),
			watch.WithWarnCooldown(5*time.Minute),
			watch.WithHealthClock(func() time.Time { return now }),
		)
		ctx := context.Background()

		Convey("When failures stay below the threshold", func() {
			_, w1 := h.Check(ctx)
			_, w2 := h.Check(ctx)

			Convey("Then nothing is posted", func() {
				So(w1, ShouldBeFalse)
				So(w2, ShouldBeFalse)
				So(h.Failures(), ShouldEqual, 2)
				So(posted, ShouldBeEmpty)
			})
		})

		Convey("When the threshold is reached", func() {
			h.Check(ctx)
			h.Check(ctx)
			healthy, warned := h.Check(ctx)

			Convey("Then one health_warn event is posted", func() {
				So(healthy, ShouldBeFalse)
				So(warned, ShouldBeTrue)
				So(len(posted), ShouldEqual, 1)
				So(posted[0]["action"], ShouldEqual, "health_warn")
				So(posted[0]["desc"], ShouldEqual, "Health check failed: status=503")
				So(posted[0]["exit_reason"], ShouldEqual, "health_probe")
			})

			Convey("Then the cooldown holds back further warnings", func() {
				now = now.Add(time.Minute)
				_, warned := h.Check(ctx)
				So(warned, ShouldBeFalse)

				now = now.Add(5 * time.Minute)
				_, warned = h.Check(ctx)
				So(warned, ShouldBeTrue)
				So(len(posted), ShouldEqual, 2)
			})

			Convey("Then a healthy poll resets the count", func() {
				mu.Lock()
				status = http.StatusOK
				mu.Unlock()
				healthy, _ := h.Check(ctx)
				So(healthy, ShouldBeTrue)
				So(h.Failures(), ShouldEqual, 0)
			})
		})
	})

	Convey("HealthWarning renders a missing status", t, func() {
		p := watch.HealthWarning(0, "timeout/connection")
		So(p["desc"], ShouldEqual, "Health check failed: status=none")
		So(p["error"], ShouldEqual, "timeout/connection")
		So(p["exit_code"], ShouldBeNil)
	})
}
