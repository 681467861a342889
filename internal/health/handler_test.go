package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/serroba/persona-api/internal/health"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockChecker struct {
	err error
}

func (m *mockChecker) Ping(_ context.Context) error {
	return m.err
}

func TestNewHandler(t *testing.T) {
	handler := health.NewHandler(&mockChecker{}, nil)

	assert.NotNil(t, handler)
}

func TestHandler_Check(t *testing.T) {
	down := errors.New("connection refused")

	tests := []struct {
		name         string
		redis        health.Checker
		postgres     health.Checker
		wantStatus   string
		wantRedis    string
		wantPostgres string
	}{
		{
			name:         "all healthy",
			redis:        &mockChecker{},
			postgres:     &mockChecker{},
			wantStatus:   health.StatusOK,
			wantRedis:    health.Healthy,
			wantPostgres: health.Healthy,
		},
		{
			name:         "postgres disabled",
			redis:        &mockChecker{},
			wantStatus:   health.StatusOK,
			wantRedis:    health.Healthy,
			wantPostgres: health.Disabled,
		},
		{
			name:         "redis unhealthy",
			redis:        &mockChecker{err: down},
			wantStatus:   health.StatusDegraded,
			wantRedis:    health.Unhealthy,
			wantPostgres: health.Disabled,
		},
		{
			name:         "postgres unhealthy",
			redis:        &mockChecker{},
			postgres:     &mockChecker{err: down},
			wantStatus:   health.StatusDegraded,
			wantRedis:    health.Healthy,
			wantPostgres: health.Unhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := health.NewHandler(tt.redis, tt.postgres)

			resp, err := handler.Check(context.Background(), nil)

			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.Body.Status)
			assert.Equal(t, tt.wantRedis, resp.Body.Redis)
			assert.Equal(t, tt.wantPostgres, resp.Body.Postgres)
		})
	}
}

func TestRegisterRoutes(t *testing.T) {
	router := chi.NewMux()
	api := humachi.New(router, huma.DefaultConfig("Test", "1.0.0"))
	health.RegisterRoutes(api, health.NewHandler(&mockChecker{err: errors.New("down")}, nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, health.StatusDegraded, body["status"])
	assert.Equal(t, health.Disabled, body["postgres"])
}

func TestRedisChecker(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available at %s: %v", addr, err)
	}

	t.Run("Ping returns nil when redis is available", func(t *testing.T) {
		checker := health.NewRedisChecker(client)

		err := checker.Ping(context.Background())

		assert.NoError(t, err)
	})
}
