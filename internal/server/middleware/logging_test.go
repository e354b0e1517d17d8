package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLoggingRecordsRoutePattern(t *testing.T) {
	inner := http.NewServeMux()
	inner.HandleFunc("GET /api/markets/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	outer := http.NewServeMux()
	outer.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {})
	outer.Handle("/", inner)

	tests := []struct {
		path       string
		wantRoute  string
		wantStatus int
	}{
		{"/api/health", "/api/health", http.StatusOK},
		{"/api/markets/abc", "/api/markets/{id}", http.StatusTeapot},
		{"/nowhere", unmatchedRoute, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))
			h := Logging(logger)(outer)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			var entry struct {
				Route  string `json:"route"`
				Path   string `json:"path"`
				Status int    `json:"status"`
			}
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("decode log line %q: %v", buf.String(), err)
			}
			if entry.Route != tt.wantRoute {
				t.Errorf("route = %q, want %q", entry.Route, tt.wantRoute)
			}
			if entry.Path != tt.path {
				t.Errorf("path = %q, want %q", entry.Path, tt.path)
			}
			if entry.Status != tt.wantStatus {
				t.Errorf("status = %d, want %d", entry.Status, tt.wantStatus)
			}
		})
	}
}

func TestRouteOfStripsMethod(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/markets/1", nil)
	r.Pattern = "GET /markets/{id}"
	if got := routeOf(r); got != "/markets/{id}" {
		t.Errorf("routeOf = %q", got)
	}
	r.Pattern = "/"
	if got := routeOf(r); got != "/" {
		t.Errorf("routeOf = %q, want /", got)
	}
}
