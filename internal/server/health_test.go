package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(context.Context) error {
	return f.err
}

func serve(t *testing.T, h http.Handler, path string) (int, HealthResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	return rec.Code, resp
}

func TestLiveness(t *testing.T) {
	h := NewHealthChecker(nil)
	code, resp := serve(t, h.LivenessHandler(), "/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, healthStatusOK, resp.Status)
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name     string
		storeErr error
		notReady bool
		shutdown bool
		wantCode int
		wantKey  string
		wantVal  string
	}{
		{
			name:     "ready",
			wantCode: http.StatusOK,
			wantKey:  "store",
			wantVal:  healthStatusOK,
		},
		{
			name:     "store unavailable",
			storeErr: errors.New("database is closed"),
			wantCode: http.StatusServiceUnavailable,
			wantKey:  "store",
			wantVal:  healthStatusUnavailable,
		},
		{
			name:     "marked not ready",
			notReady: true,
			wantCode: http.StatusServiceUnavailable,
			wantKey:  "ready",
			wantVal:  healthStatusNotReady,
		},
		{
			name:     "shutting down",
			shutdown: true,
			wantCode: http.StatusServiceUnavailable,
			wantKey:  "shutdown",
			wantVal:  healthStatusShuttingDown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := NewServerContext(context.Background(), &fakePinger{err: tt.storeErr})
			h := NewHealthChecker(sc)
			if tt.notReady {
				h.SetReady(false)
			}
			if tt.shutdown {
				sc.Shutdown()
			}

			code, resp := serve(t, h.ReadinessHandler(), "/readyz")
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantVal, resp.Checks[tt.wantKey])
		})
	}
}

func TestDetailedHealth(t *testing.T) {
	sc := NewServerContext(context.Background(), &fakePinger{err: errors.New("down")})
	h := NewHealthChecker(sc)

	rec := httptest.NewRecorder()
	h.DetailedHealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/detailed", nil))

	var resp DetailedHealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, healthStatusNotReady, resp.Status)
	assert.Equal(t, healthStatusUnavailable, resp.Store)
	assert.NotEmpty(t, resp.Uptime)
}

func TestServerContextShutdown(t *testing.T) {
	sc := NewServerContext(context.Background(), nil)
	assert.False(t, sc.IsShutdown())
	assert.Nil(t, sc.Store())

	sc.Shutdown()
	sc.Shutdown()
	assert.True(t, sc.IsShutdown())
	assert.ErrorIs(t, sc.Context().Err(), context.Canceled)
}
