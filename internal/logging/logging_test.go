package logging

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_FallsBackToInfo(t *testing.T) {
	for _, level := range []string{"", "nonsense"} {
		logger, err := NewLogger(level)
		if err != nil {
			t.Fatalf("NewLogger(%q): %v", level, err)
		}
		if logger.Core().Enabled(zapcore.DebugLevel) {
			t.Fatalf("NewLogger(%q) enables debug", level)
		}
		if !logger.Core().Enabled(zapcore.InfoLevel) {
			t.Fatalf("NewLogger(%q) disables info", level)
		}
	}

	logger, err := NewLogger("DEBUG")
	if err != nil {
		t.Fatalf("NewLogger(DEBUG): %v", err)
	}
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("expected debug to be enabled")
	}
}

func TestFromContext_DefaultsToNop(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatalf("expected a logger")
	}

	core, _ := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)
	if got := FromContext(WithLogger(context.Background(), logger)); got != logger {
		t.Fatalf("FromContext returned a different logger")
	}
}

func TestRequestLogger_LogsStatusAndRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(zap.New(core)))
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/7", nil))

	entries := logs.FilterMessage("request completed").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 completion entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Level != zapcore.WarnLevel {
		t.Fatalf("level = %s, want warn", entry.Level)
	}
	fields := entry.ContextMap()
	if fields["status"] != int64(http.StatusTeapot) {
		t.Fatalf("status field = %v", fields["status"])
	}
	if fields["route"] != "/items/{id}" {
		t.Fatalf("route field = %v", fields["route"])
	}
	if fields["request_id"] == "" {
		t.Fatalf("missing request id")
	}
	if logs.FilterMessage("inside handler").Len() != 1 {
		t.Fatalf("handler did not log through the request logger")
	}
}

func TestRecoverer_WritesJSONError(t *testing.T) {
	h := Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "internal_server_error" {
		t.Fatalf("error = %v", body["error"])
	}
}
