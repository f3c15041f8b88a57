package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apphttp "franchise_crm_backend/internal/http"
	"franchise_crm_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

type testConfig struct{}

func (testConfig) GetHTTPAddr() string               { return ":0" }
func (testConfig) GetCORSAllowAll() bool             { return false }
func (testConfig) GetCORSOrigins() []string          { return []string{"https://crm.example.com"} }
func (testConfig) GetShutdownTimeout() time.Duration { return time.Second }
func (testConfig) GetJWTAccessSecret() string        { return "test-secret" }

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type echoModule struct{}

func (echoModule) Name() string { return "echo" }

func (echoModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.GET("/public/echo", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	ctx.Protected.GET("/echo", func(c *gin.Context) { c.Status(http.StatusNoContent) })
}

func newEngine(health apphttp.HealthChecker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return New(&apphttp.App{
		Config:  testConfig{},
		Logger:  logger.Discard(),
		Health:  health,
		Modules: []apphttp.Module{echoModule{}},
	})
}

func serve(engine http.Handler, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestRoutes(t *testing.T) {
	engine := newEngine(pingFunc(func(context.Context) error { return nil }))

	tests := []struct {
		path string
		want int
	}{
		{path: "/api/health", want: http.StatusOK},
		{path: "/api/ready", want: http.StatusOK},
		{path: "/metrics", want: http.StatusOK},
		{path: "/api/v1/public/echo", want: http.StatusNoContent},
		{path: "/api/v1/echo", want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := serve(engine, http.MethodGet, tt.path)
			if rec.Code != tt.want {
				t.Fatalf("GET %s = %d, want %d", tt.path, rec.Code, tt.want)
			}
		})
	}
}

func TestReadyReportsDatabaseFailure(t *testing.T) {
	engine := newEngine(pingFunc(func(context.Context) error { return errors.New("db down") }))

	rec := serve(engine, http.MethodGet, "/api/ready")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	engine := newEngine(nil)

	rec := serve(engine, http.MethodGet, "/api/health")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected X-Request-ID header")
	}
}
