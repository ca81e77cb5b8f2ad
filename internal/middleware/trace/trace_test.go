package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"

	applog "rfcharts/internal/log"
)

func TestMiddleware_LogsAndCounts(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := applog.New(applog.Config{Handler: slog.NewTextHandler(&buf, nil)})
	tm := NewMiddleware(func(r *http.Request) string { return "192.0.2.1" }, logger)

	var seenID string
	h := middleware.RequestID(tm.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		if r.URL.Path == "/boom" {
			w.WriteHeader(http.StatusBadGateway)
		}
	})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	if seenID == "" || strings.HasPrefix(seenID, "req_") {
		t.Errorf("chi request id not reused: %q", seenID)
	}
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	m := tm.GetMetrics()
	if m.TotalRequests != 2 || m.ServerErrors != 1 {
		t.Errorf("metrics = %+v", m)
	}
	out := buf.String()
	if !strings.Contains(out, "HTTP request completed") || !strings.Contains(out, "status_code=502") {
		t.Errorf("log output = %q", out)
	}
	if !strings.Contains(out, "client_ip=192.0.2.1") {
		t.Errorf("client ip missing: %q", out)
	}
}

func TestGenerateRequestID(t *testing.T) {
	a, b := GenerateRequestID(), GenerateRequestID()
	if !strings.HasPrefix(a, "req_") || a == b {
		t.Errorf("ids %q, %q", a, b)
	}
}
