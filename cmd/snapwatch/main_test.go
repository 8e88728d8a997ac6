package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// resetFlags restores every flag of the tree to its default so package-level
// flag variables do not leak between runs.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(args ...string) (string, error) {
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSendCommand(t *testing.T) {
	convey.Convey("Given a notify webhook", t, func() {
		var got map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&got)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"ok":true,"action":"recording_exit"}`))
		}))
		defer srv.Close()

		convey.Convey("When an event is sent with extra fields", func() {
			out, err := execute("send", "--url", srv.URL, "--action", "recording_exit",
				"--title", "Gutfeld!", "--field", "exit_code=1", "--field", "exit_reason=killed")

			convey.Convey("Then the payload carries typed fields and the reply is printed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(got["action"], convey.ShouldEqual, "recording_exit")
				convey.So(got["title"], convey.ShouldEqual, "Gutfeld!")
				convey.So(got["exit_code"], convey.ShouldEqual, 1.0)
				convey.So(got["exit_reason"], convey.ShouldEqual, "killed")
				convey.So(out, convey.ShouldContainSubstring, `"ok":true`)
			})
		})

		convey.Convey("When a field is malformed", func() {
			_, err := execute("send", "--url", srv.URL, "--action", "x", "--field", "novalue")

			convey.Convey("Then the command fails before posting", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "key=value")
			})

			convey.Convey("Then a following send starts from clean flags", func() {
				_, err := execute("send", "--url", srv.URL, "--action", "recording_started")
				convey.So(err, convey.ShouldBeNil)
				convey.So(got["action"], convey.ShouldEqual, "recording_started")
				convey.So(got, convey.ShouldNotContainKey, "novalue")
				convey.So(got, convey.ShouldNotContainKey, "exit_code")
			})
		})
	})

	convey.Convey("Given a webhook that rejects the event", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"ok":false,"error":"nope"}`))
		}))
		defer srv.Close()

		_, err := execute("send", "--url", srv.URL, "--action", "x")
		convey.So(err, convey.ShouldNotBeNil)
		convey.So(err.Error(), convey.ShouldContainSubstring, "status 400")
	})
}

func TestHealthCheckCommand(t *testing.T) {
	convey.Convey("Given a notify service health endpoint", t, func() {
		healthy := true
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": healthy, "ts": 1.0})
		}))
		defer srv.Close()

		convey.Convey("When it reports ok", func() {
			out, err := execute("health-check", "--url", srv.URL)

			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, `"ok":true`)
		})

		convey.Convey("When it reports not ok", func() {
			healthy = false
			_, err := execute("health-check", "--url", srv.URL)

			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestScheduleCommand(t *testing.T) {
	convey.Convey("Given a schedules file with a narrow no-break space", t, func() {
		path := filepath.Join(t.TempDir(), "schedules.json")
		convey.So(os.WriteFile(path, []byte("{\"start\":\"7:00\u202fPM\"}"), 0o600), convey.ShouldBeNil)

		convey.Convey("When a single pass runs", func() {
			out, err := execute("schedule", "--path", path, "--once")

			convey.Convey("Then the file is rewritten", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "changed=true")
				b, _ := os.ReadFile(path)
				convey.So(string(b), convey.ShouldContainSubstring, `"7:00 PM"`)
			})
		})
	})
}
