package pushover_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/RyDizz214/snappier-server-docker/internal/adapters/pushover"
	"github.com/RyDizz214/snappier-server-docker/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

func TestSend(t *testing.T) {
	ctx := context.Background()

	Convey("Given a push endpoint that accepts messages", t, func() {
		var mu sync.Mutex
		var forms []map[string]string
		var contentTypes []string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = r.ParseMultipartForm(1 << 20)
			mu.Lock()
			f := map[string]string{}
			for k := range r.Form {
				f[k] = r.Form.Get(k)
			}
			forms = append(forms, f)
			contentTypes = append(contentTypes, r.Header.Get("Content-Type"))
			mu.Unlock()
			_, _ = w.Write([]byte(`{"status":1,"request":"abc"}`))
		}))
		defer srv.Close()

		fs := afero.NewMemMapFs()
		So(afero.WriteFile(fs, "/img/logo.gif", []byte("GIF89a"), 0o644), ShouldBeNil)

		c := pushover.NewClient(
			pushover.WithEndpoint(srv.URL),
			pushover.WithCredentials("user", "token"),
			pushover.WithFs(fs),
		)

		Convey("When a plain message is sent", func() {
			res := c.Send(ctx, pushover.Message{Title: "T", Body: "B", Priority: 1, URL: "https://x", URLTitle: "X"})

			Convey("Then the form carries every field", func() {
				So(res.OK(), ShouldBeTrue)
				So(res["request"], ShouldEqual, "abc")
				So(forms[0], ShouldResemble, map[string]string{
					"token": "token", "user": "user", "title": "T", "message": "B",
					"priority": "1", "url": "https://x", "url_title": "X",
				})
				So(contentTypes[0], ShouldEqual, "application/x-www-form-urlencoded")
			})
		})

		Convey("When an attachment is included", func() {
			res := c.Send(ctx, pushover.Message{Title: "T", Body: "B", Attachment: "/img/logo.gif"})

			Convey("Then a multipart request is sent", func() {
				So(res.OK(), ShouldBeTrue)
				So(contentTypes[0], ShouldStartWith, "multipart/form-data")
				So(forms[0]["title"], ShouldEqual, "T")
			})
		})

		Convey("When the attachment cannot be read", func() {
			res := c.Send(ctx, pushover.Message{Title: "T", Body: "B", Attachment: "/missing.gif"})

			Convey("Then the message goes out without it", func() {
				So(res.OK(), ShouldBeTrue)
				So(contentTypes[0], ShouldEqual, "application/x-www-form-urlencoded")
			})
		})
	})

	Convey("Given a push endpoint that keeps failing", t, func() {
		var calls atomic.Int32
		var stamps []time.Time
		var mu sync.Mutex
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			mu.Lock()
			stamps = append(stamps, time.Now())
			mu.Unlock()
			_, _ = io.Copy(io.Discard, r.Body)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		c := pushover.NewClient(
			pushover.WithEndpoint(srv.URL),
			pushover.WithCredentials("user", "token"),
			pushover.WithRetry(3, 20*time.Millisecond),
		)
		res := c.Send(ctx, pushover.Message{Title: "T", Body: "B"})

		Convey("Then it retries with growing backoff and reports the status", func() {
			So(calls.Load(), ShouldEqual, 3)
			So(res.OK(), ShouldBeFalse)
			So(res["status"], ShouldEqual, http.StatusBadGateway)
			So(stamps[1].Sub(stamps[0]), ShouldBeGreaterThanOrEqualTo, 20*time.Millisecond)
			So(stamps[2].Sub(stamps[1]), ShouldBeGreaterThanOrEqualTo, 40*time.Millisecond)
		})
	})

	Convey("Given a push endpoint that recovers", t, func() {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) == 1 {
				_, _ = w.Write([]byte(`{"status":0,"errors":["busy"]}`))
				return
			}
			_, _ = w.Write([]byte(`{"status":1}`))
		}))
		defer srv.Close()

		c := pushover.NewClient(
			pushover.WithEndpoint(srv.URL),
			pushover.WithCredentials("user", "token"),
			pushover.WithRetry(3, time.Millisecond),
		)
		res := c.Send(ctx, pushover.Message{Title: "T"})

		Convey("Then the second attempt succeeds", func() {
			So(calls.Load(), ShouldEqual, 2)
			So(res.OK(), ShouldBeTrue)
		})
	})

	Convey("Given a push endpoint that times out", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(100 * time.Millisecond)
			_, _ = w.Write([]byte(`{"status":1}`))
		}))
		defer srv.Close()

		c := pushover.NewClient(
			pushover.WithEndpoint(srv.URL),
			pushover.WithCredentials("user", "token"),
			pushover.WithTimeout(10*time.Millisecond),
			pushover.WithRetry(2, time.Millisecond),
		)
		res := c.Send(ctx, pushover.Message{Title: "T"})

		Convey("Then a timeout result is returned", func() {
			So(res, ShouldResemble, pushover.Result{"ok": false, "error": "timeout"})
		})
	})

	Convey("Without credentials nothing is sent", t, func() {
		c := pushover.NewClient()
		res := c.Send(ctx, pushover.Message{Title: "T"})
		So(c.Configured(), ShouldBeFalse)
		So(res["error"], ShouldEqual, "Pushover not configured")
	})
}
