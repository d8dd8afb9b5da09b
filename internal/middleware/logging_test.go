package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

func TestLogger(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{"ok", http.StatusOK, "level=INFO"},
		{"created", http.StatusCreated, "level=INFO"},
		{"lookup miss", http.StatusNotFound, "level=INFO"},
		{"conflict", http.StatusConflict, "level=WARN"},
		{"server error", http.StatusInternalServerError, "level=ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			h := chimiddleware.RequestID(Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("body"))
			})))

			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/users/a@x.com", nil))

			line := buf.String()
			if !strings.Contains(line, tt.wantLevel) {
				t.Errorf("log line = %q, want %s", line, tt.wantLevel)
			}
			if !strings.Contains(line, "path=/api/users/a@x.com") {
				t.Errorf("log line missing path: %q", line)
			}
			if !strings.Contains(line, "bytes=4") {
				t.Errorf("log line missing byte count: %q", line)
			}
			if strings.Contains(line, "request_id= ") || strings.Contains(line, `request_id=""`) {
				t.Errorf("log line missing request id: %q", line)
			}
		})
	}
}

func TestLogger_DefaultStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	h := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{}"))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if !strings.Contains(buf.String(), "status=200") {
		t.Errorf("log line = %q, want status=200", buf.String())
	}
}
