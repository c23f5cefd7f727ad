package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareLabelsRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/api/files/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/files/secret-name", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/files/{id}", "418"))
	if got != 1 {
		t.Errorf("counter = %v, want 1", got)
	}
}

func TestRecorder(t *testing.T) {
	var rec Recorder
	before := testutil.ToFloat64(fileOpsTotal.WithLabelValues("rename", "info"))
	rec.RecordOp("rename", "info")
	if got := testutil.ToFloat64(fileOpsTotal.WithLabelValues("rename", "info")); got != before+1 {
		t.Errorf("ops = %v, want %v", got, before+1)
	}

	bytesBefore := testutil.ToFloat64(uploadBytesTotal)
	rec.RecordUpload(1024)
	if got := testutil.ToFloat64(uploadBytesTotal); got != bytesBefore+1024 {
		t.Errorf("bytes = %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	RecordAuthAttempt(false)
	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(w.Body.String(), "filedeck_auth_attempts_total") {
		t.Error("auth metric missing from exposition")
	}
}

func TestRegisterSSEClients(t *testing.T) {
	RegisterSSEClients(func() int { return 3 })
	// A second registration must not panic.
	RegisterSSEClients(func() int { return 5 })

	n, err := testutil.GatherAndCount(prometheus.DefaultGatherer, "filedeck_sse_clients")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if n != 1 {
		t.Errorf("series = %d, want 1", n)
	}
}
