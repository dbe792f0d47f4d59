package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/persistorai/navgraph/internal/api"
	"github.com/persistorai/navgraph/internal/db"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestLiveness_ReturnsOK(t *testing.T) {
	t.Parallel()

	h := api.NewHealthHandler(nil, nil, nil, &mockNavigation{loaded: true, epoch: 4}, testLogger(), "test-v1")

	r := gin.New()
	r.GET("/health", h.Liveness)

	w := doRequest(r, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if body["status"] != "ok" || body["version"] != "test-v1" {
		t.Errorf("unexpected body %v", body)
	}
	if body["graph_loaded"] != true || body["epoch"] != float64(4) {
		t.Errorf("graph state not reported: %v", body)
	}
}

func TestReadiness_WithoutDatabase(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		cache     api.Pinger
		loaded    bool
		wantCache string
		wantGraph string
	}{
		{name: "no cache, not loaded", wantCache: "not_configured", wantGraph: "loading"},
		{name: "cache up, loaded", cache: fakePinger{}, loaded: true, wantCache: "ok", wantGraph: "ok"},
		{name: "cache down", cache: fakePinger{err: errors.New("refused")}, wantCache: "degraded", wantGraph: "loading"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := api.NewHealthHandler(nil, tc.cache, nil, &mockNavigation{loaded: tc.loaded}, testLogger(), "v")

			r := gin.New()
			r.GET("/ready", h.Readiness)

			w := doRequest(r, http.MethodGet, "/ready", "")
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", w.Code)
			}

			var body struct {
				Status        string            `json:"status"`
				SchemaVersion int               `json:"schema_version"`
				Checks        map[string]string `json:"checks"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}

			if body.Status != "ready" || body.SchemaVersion != db.SchemaVersion() {
				t.Errorf("unexpected body %+v", body)
			}
			if body.Checks["database"] != "not_configured" {
				t.Errorf("database = %q", body.Checks["database"])
			}
			if body.Checks["cache"] != tc.wantCache || body.Checks["graph"] != tc.wantGraph {
				t.Errorf("checks = %v", body.Checks)
			}
		})
	}
}
