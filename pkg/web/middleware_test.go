package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fsandov/klipper-gotify/pkg/logs"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func setupEngine(middlewares ...gin.HandlerFunc) *gin.Engine {
	e := gin.New()
	for _, mw := range middlewares {
		e.Use(mw)
	}
	e.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	e.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return e
}

func TestSecureHeadersMiddleware(t *testing.T) {
	e := setupEngine(SecureHeadersMiddleware())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	e.ServeHTTP(w, req)

	expected := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
	}
	for header, want := range expected {
		if got := w.Header().Get(header); got != want {
			t.Errorf("header %s: expected %q, got %q", header, want, got)
		}
	}
}

func TestRequestIDMiddleware_GeneratesID(t *testing.T) {
	e := setupEngine(RequestIDMiddleware())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	e.ServeHTTP(w, req)

	id := w.Header().Get("X-Request-ID")
	if len(id) != 36 {
		t.Errorf("expected a uuid X-Request-ID, got %q", id)
	}
}

func TestRequestIDMiddleware_PreservesExisting(t *testing.T) {
	e := setupEngine(RequestIDMiddleware())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-Request-ID", "printer-1")
	e.ServeHTTP(w, req)

	if id := w.Header().Get("X-Request-ID"); id != "printer-1" {
		t.Errorf("expected preserved X-Request-ID, got %q", id)
	}
}

func TestAPIKeyMiddleware(t *testing.T) {
	e := setupEngine(APIKeyMiddleware("secret"))

	tests := []struct {
		name   string
		path   string
		key    string
		status int
	}{
		{"missing key", "/test", "", http.StatusUnauthorized},
		{"wrong key", "/test", "nope", http.StatusUnauthorized},
		{"valid key", "/test", "secret", http.StatusOK},
		{"health is open", "/health", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.key != "" {
				req.Header.Set("X-Api-Key", tt.key)
			}
			e.ServeHTTP(w, req)
			if w.Code != tt.status {
				t.Errorf("expected %d, got %d", tt.status, w.Code)
			}
		})
	}
}

func TestAccessLogMiddleware(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	e := setupEngine(RequestIDMiddleware(), AccessLogMiddleware(logs.New(zap.New(core))))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-Request-ID", "abc")
	e.ServeHTTP(w, req)

	entries := recorded.FilterMessage("http request").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 access log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["path"] != "/test" || fields["request_id"] != "abc" || fields["status"] != int64(http.StatusOK) {
		t.Errorf("unexpected fields %v", fields)
	}
}

func TestRecovery(t *testing.T) {
	e := gin.New()
	e.Use(gin.Recovery())
	e.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	e.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 after panic, got %d", w.Code)
	}
}
