package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/user/ferry-watch/internal/domain"
	"github.com/user/ferry-watch/internal/monitoring"
	"github.com/user/ferry-watch/internal/storage"
)

type runnerFunc func(ctx context.Context) (*domain.CheckResult, error)

func (f runnerFunc) Run(ctx context.Context) (*domain.CheckResult, error) { return f(ctx) }

type stubRecorder struct {
	name    string
	pingErr error
}

func (s *stubRecorder) Name() string { return s.name }
func (s *stubRecorder) Record(context.Context, *domain.CheckResult) error { return nil }
func (s *stubRecorder) Ping(context.Context) error { return s.pingErr }
func (s *stubRecorder) Close() error { return nil }

func newTestServer(t *testing.T, runner Runner, recorders ...storage.Recorder) (*Server, *monitoring.Metrics) {
	t.Helper()
	m := monitoring.NewMetrics()
	return NewServer("0", time.Minute, runner, recorders, m, zaptest.NewLogger(t)), m
}

func TestHandleCheck(t *testing.T) {
	checkedAt := time.Date(2025, 8, 3, 7, 0, 0, 0, time.UTC)
	srv, _ := newTestServer(t, runnerFunc(func(ctx context.Context) (*domain.CheckResult, error) {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return &domain.CheckResult{Available: true, CheckedAt: checkedAt}, nil
	}))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/check", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, domain.OutcomeAvailable, body["outcome"])
	assert.Equal(t, true, body["available"])
}

func TestHandleCheckRunnerError(t *testing.T) {
	srv, _ := newTestServer(t, runnerFunc(func(context.Context) (*domain.CheckResult, error) {
		return nil, errors.New("launch browser: exec: not found")
	}))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/check", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"check failed"}`, rec.Body.String())
}

func TestHandleCheckBusy(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	srv, _ := newTestServer(t, runnerFunc(func(context.Context) (*domain.CheckResult, error) {
		close(started)
		<-release
		return &domain.CheckResult{}, nil
	}))

	done := make(chan int)
	go func() {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/check", nil))
		done <- rec.Code
	}()
	<-started

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/check", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	close(release)
	assert.Equal(t, http.StatusOK, <-done)
}

func TestHandleHealthCheck(t *testing.T) {
	tests := []struct {
		name      string
		recorders []storage.Recorder
		wantCode  int
		want      map[string]string
	}{
		{
			name:     "no sinks",
			wantCode: http.StatusOK,
			want:     map[string]string{"status": "healthy"},
		},
		{
			name:      "all healthy",
			recorders: []storage.Recorder{&stubRecorder{name: "postgres"}, &stubRecorder{name: "redis"}},
			wantCode:  http.StatusOK,
			want:      map[string]string{"status": "healthy", "postgres": "healthy", "redis": "healthy"},
		},
		{
			name:      "redis down",
			recorders: []storage.Recorder{&stubRecorder{name: "postgres"}, &stubRecorder{name: "redis", pingErr: errors.New("dial tcp: connection refused")}},
			wantCode:  http.StatusServiceUnavailable,
			want:      map[string]string{"status": "degraded", "postgres": "healthy", "redis": "unhealthy"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, nil, tt.recorders...)
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

			require.Equal(t, tt.wantCode, rec.Code)
			var got map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `ferry_http_requests_total{code="200",method="GET",route="/api/health"} 1`), body)
}

func TestUnknownRoute(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
