package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arvandy/moodmate/internal/app"
	"github.com/arvandy/moodmate/pkg/logger"
	"go.uber.org/zap"
)

func testConfig(t *testing.T) *app.Config {
	t.Helper()
	return &app.Config{
		Server: app.ServerConfig{
			Port:        0,
			LogLevel:    "error",
			BaseURL:     "http://localhost:8080",
			FrontendURL: "http://localhost:3000",
			RateLimit:   100,
			RateWindow:  time.Minute,
		},
		Database: app.DatabaseConfig{
			Driver: "sqlite",
			Path:   filepath.Join(t.TempDir(), "moodmate.sqlite"),
		},
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				AccessSecret:    "bootstrap-access-secret",
				RefreshSecret:   "bootstrap-refresh-secret",
				Issuer:          "moodmate",
				AccessTokenTTL:  24 * time.Hour,
				RefreshTokenTTL: 720 * time.Hour,
			},
			Verification: app.VerificationSettings{TTL: time.Hour},
		},
	}
}

func TestBootstrapRuntimeBuildsServableStack(t *testing.T) {
	log := logger.WithModule("bootstrap-test")

	stack, err := bootstrapRuntime(context.Background(), testConfig(t), log)
	require.NoError(t, err)
	t.Cleanup(func() { stack.Shutdown(context.Background(), log) })

	require.NotNil(t, stack.DB)
	require.NotNil(t, stack.Router)
	require.NotNil(t, stack.Cleaner)
	require.Nil(t, stack.Redis)

	w := httptest.NewRecorder()
	stack.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

func TestBootstrapRuntimeFallsBackWithoutRedis(t *testing.T) {
	log := zap.NewNop()

	cfg := testConfig(t)
	cfg.Cache.Redis.Enabled = true
	cfg.Cache.Redis.Address = "127.0.0.1:1" // nothing listening
	cfg.Cache.Redis.Timeout = 250 * time.Millisecond

	stack, err := bootstrapRuntime(context.Background(), cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { stack.Shutdown(context.Background(), log) })

	require.Nil(t, stack.Redis)
	require.NotNil(t, stack.Router)
}
