package routes

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finance-dashboard-backend/internal/config"
	"finance-dashboard-backend/internal/repository"
)

func TestRegisterRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		DBDriver:       config.DriverSQLite,
		SQLitePath:     filepath.Join(t.TempDir(), "routes.db"),
		MaxUploadBytes: 1 << 20,
	}
	db, err := config.InitDB(cfg)
	require.NoError(t, err)
	require.NoError(t, repository.AutoMigrate(db))

	r := gin.New()
	RegisterRoutes(r, db, cfg, zerolog.Nop())

	for _, path := range []string{"/api/health", "/api/transactions", "/api/summary?month=2025-03"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/transactions?month=2025-03", nil))
	assert.JSONEq(t, `{"items":[],"count":0}`, w.Body.String())
}
