package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/navgraph/internal/models"
	"github.com/persistorai/navgraph/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)

	return l
}

// doRequest performs an HTTP request against the handler and returns the recorder.
func doRequest(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, http.NoBody)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	return w
}

// mockNavigation implements api.NavigationService for testing.
type mockNavigation struct {
	findPathFn    func(ctx context.Context, from, to, mode string) (*models.PathResult, error)
	diagnosticsFn func(ctx context.Context, mode string) (models.Diagnostics, error)
	preloadFn     func(ctx context.Context) (*service.PreloadResult, error)
	exportFn      func(ctx context.Context) (*models.GraphExport, error)
	loaded        bool
	epoch         uint64
}

func (m *mockNavigation) FindPath(ctx context.Context, from, to, mode string) (*models.PathResult, error) {
	return m.findPathFn(ctx, from, to, mode)
}

func (m *mockNavigation) Diagnostics(ctx context.Context, mode string) (models.Diagnostics, error) {
	return m.diagnosticsFn(ctx, mode)
}

func (m *mockNavigation) Preload(ctx context.Context) (*service.PreloadResult, error) {
	return m.preloadFn(ctx)
}

func (m *mockNavigation) Export(ctx context.Context) (*models.GraphExport, error) {
	return m.exportFn(ctx)
}

func (m *mockNavigation) Loaded() (bool, uint64) { return m.loaded, m.epoch }
