package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/RyDizz214/snappier-server-docker/internal/adapters/http/api"
	"github.com/RyDizz214/snappier-server-docker/internal/adapters/http/swagger"
	"github.com/RyDizz214/snappier-server-docker/internal/config"
	"github.com/RyDizz214/snappier-server-docker/pkg/logger"
)

func init() { _ = logger.Init() }

func TestBuildService(t *testing.T) {
	convey.Convey("Given a service built from configuration", t, func() {
		cfg := config.New(context.Background())
		cfg.APIEnabled = false
		cfg.HTTPSCacheMaxSize = 42
		cfg.EPGCachePath = t.TempDir() + "/missing.json"

		svc := buildService(cfg, logger.Get())
		mux := http.NewServeMux()
		swagger.Register(mux)
		api.NewServer(svc, svc).Register(mux)

		convey.Convey("When health is requested", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

			convey.Convey("Then configured values are reflected", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				var got struct {
					APIEnabled bool `json:"api_enabled"`
					CacheStats struct {
						HTTPSCacheMax int `json:"https_cache_max"`
						EPGIndexMax   int `json:"epg_index_max"`
					} `json:"cache_stats"`
				}
				convey.So(json.Unmarshal(w.Body.Bytes(), &got), convey.ShouldBeNil)
				convey.So(got.APIEnabled, convey.ShouldBeFalse)
				convey.So(got.CacheStats.HTTPSCacheMax, convey.ShouldEqual, 42)
				convey.So(got.CacheStats.EPGIndexMax, convey.ShouldEqual, cfg.EPGIndexMaxSize)
			})
		})

		convey.Convey("When an event without an action is posted", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/notify", strings.NewReader(`{"title":"x"}`)))

			convey.Convey("Then it is rejected", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusBadRequest)
			})
		})

		convey.Convey("When the OpenAPI document is requested", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/openapi.yaml", http.NoBody))

			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given the metrics updaters", t, func() {
		cfg := config.New(context.Background())
		cfg.APIEnabled = false
		svc := buildService(cfg, logger.Get())

		convey.Convey("Then a single refresh does not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
			convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
		})
	})
}
