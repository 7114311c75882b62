package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hychen958/Water-trekkie-gov/internal/config"
	"github.com/hychen958/Water-trekkie-gov/internal/game"
	"github.com/hychen958/Water-trekkie-gov/internal/limit"
	"github.com/hychen958/Water-trekkie-gov/internal/store/redis"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	t.Setenv("DATABASE_PATH", filepath.Join(t.TempDir(), "app.db"))
	t.Setenv("DAILY_LIMIT", "150")
	cfg, err := config.Parse()
	require.NoError(t, err)
	return cfg
}

func TestBuildAppServesHealthAndSessions(t *testing.T) {
	for _, backend := range []string{config.BackendSQLite, config.BackendMemory} {
		t.Run(backend, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.StateBackend = backend

			a, err := buildApp(context.Background(), cfg)
			require.NoError(t, err)
			t.Cleanup(a.close)

			rec := httptest.NewRecorder()
			a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, http.StatusOK, rec.Code)

			rec = httptest.NewRecorder()
			a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(`{"characterId":3}`)))
			assert.Equal(t, http.StatusCreated, rec.Code)
			assert.Contains(t, rec.Body.String(), `"dailyLimit":150`)
			a.sessions.Close(context.Background())
		})
	}
}

func TestBuildAppRedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.StateBackend = config.BackendRedis
	cfg.RedisAddr = mr.Addr()

	a, err := buildApp(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(a.close)
	_, ok := a.states.(*redis.Store)
	assert.True(t, ok)
}

func TestBuildAppRedisKeyPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.StateBackend = config.BackendRedis
	cfg.RedisAddr = mr.Addr()
	cfg.RedisPrefix = "wt:"

	a, err := buildApp(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(a.close)

	require.NoError(t, a.states.Save(context.Background(), "u1", &game.State{DailyLimit: 150}))
	assert.True(t, mr.Exists("wt:u1"))
	assert.Zero(t, mr.TTL("wt:u1"))
}

func TestBuildAppRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig(t)
	cfg.StateBackend = config.BackendRedis
	cfg.RedisAddr = addr

	_, err := buildApp(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewLimitProvider(t *testing.T) {
	cfg := testConfig(t)
	assert.Equal(t, limit.Static(150), newLimitProvider(cfg))

	cfg.DailyLimit = 0
	_, ok := newLimitProvider(cfg).(*limit.OpenData)
	assert.True(t, ok)
}
