package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"atelier/pkg/client"
	"atelier/pkg/config"
	"atelier/pkg/logger"
	"atelier/pkg/middleware"
	"atelier/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type routeFunc func(*httprouter.Router)

func (f routeFunc) RegisterRoutes(r *httprouter.Router) { f(r) }

type stubAuth struct{}

func (stubAuth) Authenticate(ctx context.Context, token string) (*model.CallerIdentity, error) {
	if token == "good" {
		return &model.CallerIdentity{UID: "u1"}, nil
	}
	return nil, errors.New("bad token")
}

func testConfig() *config.Config {
	return &config.Config{
		Port:              "8080",
		AllowedOrigins:    []string{"https://app.example.com"},
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
		RequestTimeout:    time.Second,
		IdempotencyTTL:    time.Minute,
		MaxRequestSize:    1024,
		ReadTimeout:       time.Second,
		WriteTimeout:      time.Second,
		IdleTimeout:       time.Second,
		ShutdownTimeout:   time.Second,
		Log:               logger.Discard(),
		Client:            client.NewClient(),
	}
}

func newTestApp(t *testing.T) *Application {
	t.Helper()
	a := NewApplication(testConfig())

	app := routeFunc(func(r *httprouter.Router) {
		r.GET("/api/v1/whoami", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
			caller := middleware.CallerFromContext(r.Context())
			if caller.IsAnonymous() {
				_, _ = w.Write([]byte("anonymous"))
				return
			}
			_, _ = w.Write([]byte(caller.UID))
		})
		r.POST("/api/v1/echo", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
			w.WriteHeader(http.StatusCreated)
		})
	})
	health := routeFunc(func(r *httprouter.Router) {
		r.GET("/health", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
			w.WriteHeader(http.StatusOK)
		})
	})

	a.SetApp(app, health, stubAuth{}, nil)
	t.Cleanup(func() {
		a.idempotencyStore.Stop()
		a.rateLimiter.Stop()
	})
	return a
}

func TestApplication_Identity(t *testing.T) {
	a := newTestApp(t)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"anonymous", "", http.StatusOK, "anonymous"},
		{"valid token", "Bearer good", http.StatusOK, "u1"},
		{"invalid token", "Bearer nope", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic good", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			a.Handler().ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
			if rec.Header().Get(middleware.RequestIDHeader) == "" {
				t.Error("missing request id header")
			}
		})
	}
}

func TestApplication_HealthSkipsIdentity(t *testing.T) {
	a := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestApplication_RequestGuards(t *testing.T) {
	a := newTestApp(t)

	t.Run("oversized body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/echo", strings.NewReader(strings.Repeat("a", 4096)))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		a.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("status = %d, want 413", rec.Code)
		}
	})

	t.Run("wrong content type", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/echo", strings.NewReader("x"))
		req.Header.Set("Content-Type", "text/plain")
		rec := httptest.NewRecorder()
		a.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusUnsupportedMediaType {
			t.Errorf("status = %d, want 415", rec.Code)
		}
	})

	t.Run("cors preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/echo", nil)
		req.Header.Set("Origin", "https://app.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		a.Handler().ServeHTTP(rec, req)
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
			t.Errorf("allow origin = %q", got)
		}
	})
}

func TestApplication_ShutdownHooks(t *testing.T) {
	a := newTestApp(t)
	called := false
	a.OnShutdown("test", func() error {
		called = true
		return errors.New("ignored")
	})

	a.gracefulShutdown()
	if !called {
		t.Error("shutdown hook not called")
	}
}
