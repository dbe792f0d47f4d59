package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/persistorai/navgraph/internal/api"
	"github.com/persistorai/navgraph/internal/models"
	"github.com/persistorai/navgraph/internal/service"
)

func navRouter(svc api.NavigationService) *gin.Engine {
	h := api.NewNavigationHandler(svc, testLogger())

	r := gin.New()
	r.GET("/path/:from/:to", h.Path)
	r.GET("/diagnostics", h.Diagnostics)
	r.POST("/preload", h.Preload)
	r.GET("/graph", h.Graph)

	return r
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()

	var resp map[string]string
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	return resp["code"]
}

func TestPath(t *testing.T) {
	t.Parallel()

	svc := &mockNavigation{
		findPathFn: func(_ context.Context, from, to, mode string) (*models.PathResult, error) {
			switch {
			case mode == "boat":
				return nil, fmt.Errorf("%w: %q", models.ErrInvalidMode, mode)
			case to == "ghost":
				return nil, &models.InvalidNodeError{NodeID: to}
			case to == "island":
				return &models.PathResult{Status: models.PathUnreachable, Mode: models.ModeReal}, nil
			case to == "broken":
				return nil, errors.New("boom")
			case to == "cold":
				return nil, fmt.Errorf("%w: store down", models.ErrNotLoaded)
			}

			return &models.PathResult{
				Status:        models.PathFound,
				Nodes:         []string{from, to},
				TotalDistance: 12.5,
				Hops:          1,
				Mode:          models.Mode(mode),
				Epoch:         3,
			}, nil
		},
	}
	r := navRouter(svc)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantCode   string
	}{
		{name: "found", path: "/path/A/B?mode=all", wantStatus: http.StatusOK},
		{name: "unreachable", path: "/path/A/island", wantStatus: http.StatusOK},
		{name: "invalid node", path: "/path/A/ghost", wantStatus: http.StatusNotFound, wantCode: api.ErrCodeInvalidNode},
		{name: "bad mode", path: "/path/A/B?mode=boat", wantStatus: http.StatusBadRequest, wantCode: api.ErrCodeInvalidMode},
		{name: "not loaded", path: "/path/A/cold", wantStatus: http.StatusServiceUnavailable, wantCode: api.ErrCodeNotLoaded},
		{name: "internal", path: "/path/A/broken", wantStatus: http.StatusInternalServerError, wantCode: api.ErrCodeInternalError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := doRequest(r, http.MethodGet, tc.path, "")
			if w.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tc.wantStatus, w.Code, w.Body.String())
			}
			if tc.wantCode != "" {
				if got := errorCode(t, w.Body.Bytes()); got != tc.wantCode {
					t.Errorf("code = %q, want %q", got, tc.wantCode)
				}
			}
		})
	}
}

func TestPath_Body(t *testing.T) {
	t.Parallel()

	svc := &mockNavigation{
		findPathFn: func(_ context.Context, from, to, mode string) (*models.PathResult, error) {
			return &models.PathResult{Status: models.PathFound, Nodes: []string{from, to}, Hops: 1, Mode: models.Mode(mode), Epoch: 3}, nil
		},
	}

	w := doRequest(navRouter(svc), http.MethodGet, "/path/A/B?mode=all", "")

	var res models.PathResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !res.Found() || res.Mode != models.ModeAll || res.Epoch != 3 || len(res.Nodes) != 2 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestDiagnostics(t *testing.T) {
	t.Parallel()

	svc := &mockNavigation{
		diagnosticsFn: func(_ context.Context, mode string) (models.Diagnostics, error) {
			if mode == "x" {
				return models.Diagnostics{}, models.ErrInvalidMode
			}

			return models.Diagnostics{
				TotalNodes:      4,
				PathfindingMode: models.ModeReal,
				Partial:         true,
				Error:           "timeout: context deadline exceeded",
			}, nil
		},
	}
	r := navRouter(svc)

	w := doRequest(r, http.MethodGet, "/diagnostics?mode=real", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["partial"] != true || body["pathfindingMode"] != "real" || body["totalNodes"] != float64(4) {
		t.Errorf("unexpected body %v", body)
	}

	if w := doRequest(r, http.MethodGet, "/diagnostics?mode=x", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad mode: expected 400, got %d", w.Code)
	}
}

func TestPreloadAndGraph(t *testing.T) {
	t.Parallel()

	fail := false
	svc := &mockNavigation{
		preloadFn: func(context.Context) (*service.PreloadResult, error) {
			if fail {
				return nil, errors.New("store down")
			}

			return &service.PreloadResult{Epoch: 2, Metadata: models.GraphMetadata{TotalParcels: 4}}, nil
		},
		exportFn: func(context.Context) (*models.GraphExport, error) {
			if fail {
				return nil, errors.New("store down")
			}

			return &models.GraphExport{Simple: map[string][]string{"A": {"B"}, "B": {"A"}}, Epoch: 2}, nil
		},
	}
	r := navRouter(svc)

	w := doRequest(r, http.MethodPost, "/preload", "")
	if w.Code != http.StatusOK {
		t.Fatalf("preload: expected 200, got %d", w.Code)
	}

	var pre service.PreloadResult
	if err := json.Unmarshal(w.Body.Bytes(), &pre); err != nil || pre.Epoch != 2 {
		t.Fatalf("preload body %s (%v)", w.Body.String(), err)
	}

	w = doRequest(r, http.MethodGet, "/graph", "")
	if w.Code != http.StatusOK {
		t.Fatalf("graph: expected 200, got %d", w.Code)
	}

	var export models.GraphExport
	if err := json.Unmarshal(w.Body.Bytes(), &export); err != nil || len(export.Simple) != 2 {
		t.Fatalf("graph body %s (%v)", w.Body.String(), err)
	}

	fail = true
	if w := doRequest(r, http.MethodPost, "/preload", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("failed preload: expected 503, got %d", w.Code)
	}
	if w := doRequest(r, http.MethodGet, "/graph", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("failed export: expected 503, got %d", w.Code)
	}
}
