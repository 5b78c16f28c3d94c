package serverhttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"material-service/internal/config"
	"material-service/internal/extract"
	matHnd "material-service/internal/matching/handler"
	"material-service/internal/matching/model"
	"material-service/internal/matching/service"
	"material-service/internal/middleware"
	"material-service/internal/retrain"
)

func testRouter(t *testing.T, apiKey string) http.Handler {
	t.Helper()
	dir := t.TempDir()
	logger := zerolog.Nop()
	records := []model.CatalogRecord{{Code: "1", Description: "LUVA PVC 25MM", Unit: "PC", Family: "7"}}

	snap := service.NewSnapshot("test", records, nil, nil)
	eng := service.NewEngine(service.NewStore(snap), service.EngineConfig{Duplicates: model.DefaultDuplicateOptions()}, logger)
	mgr := extract.NewManager(extract.NewRuleExtractor())
	store := retrain.NewFeedbackStore(filepath.Join(dir, "feedback.jsonl"))
	coord := retrain.NewCoordinator(context.Background(), retrain.PolicyReject,
		retrain.NewJob(store, mgr, filepath.Join(dir, "extractor.json"), logger).Run, logger)
	t.Cleanup(coord.Wait)

	cfg := config.Config{AllowOrigins: []string{"*"}, MaxUploadMB: 1, APIKey: apiKey}
	return NewRouter(cfg, matHnd.Deps{
		Engine:    eng,
		Extractor: mgr,
		Feedback:  store,
		Retrain:   coord,
		Reload:    func() *service.Snapshot { return snap },
		Logger:    logger,
	})
}

func TestHealthAndStatusArePublic(t *testing.T) {
	h := testRouter(t, "secret")
	for _, path := range []string{"/health", "/"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader), path)
	}
}

func TestAPIKeyRequired(t *testing.T) {
	h := testRouter(t, "secret")
	body := `{"descricao":"luva pvc 25mm"}`

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/buscar", strings.NewReader(body)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/buscar", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"CODIGO":"1"`)
}

func TestNoAPIKeyConfigured(t *testing.T) {
	h := testRouter(t, "")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/duplicados", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	h := testRouter(t, "")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nao-existe", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
