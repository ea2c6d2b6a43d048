package log

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Output: &buf, Component: ComponentTracker})

	l.Info("item added", FieldRecordID, "i-1")
	out := buf.String()
	if !strings.Contains(out, "component=tracker") || !strings.Contains(out, "record_id=i-1") {
		t.Fatalf("unexpected log line: %s", out)
	}

	buf.Reset()
	l.WithComponent(ComponentPersist).Warn("save failed")
	if !strings.Contains(buf.String(), "component=persist") {
		t.Fatalf("component not switched: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{"": slog.LevelInfo, "DEBUG": slog.LevelDebug, "warn": slog.LevelWarn, "error": slog.LevelError}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("%q expected %v, got %v (err=%v)", in, want, got, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestFieldsBuilder(t *testing.T) {
	f := NewFields().WithOperation(OpSave).WithRecord("items", "i-1").WithUser("").WithError(nil)
	if len(f) != 3 {
		t.Fatalf("expected 3 fields, got %v", f)
	}
	if len(f.ToSlice()) != 6 {
		t.Fatalf("expected 6 slice entries")
	}
}

func TestMiddlewareLogsRequest(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Output: &buf})

	var fromCtx *Logger
	h := middleware.RequestID(Middleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = FromContext(r.Context())
		w.WriteHeader(http.StatusNotFound)
	})))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/items", nil))

	if fromCtx == nil || fromCtx.Component() != ComponentHTTP {
		t.Fatalf("expected http logger in context")
	}
	out := buf.String()
	if !strings.Contains(out, "status_code=404") || !strings.Contains(out, "level=WARN") || !strings.Contains(out, "request_id=") {
		t.Fatalf("unexpected access log: %s", out)
	}
}
