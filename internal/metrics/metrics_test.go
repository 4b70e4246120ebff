package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/files/*", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/files/*", "404"))
	for _, p := range []string{"/files/a.txt", "/files/docs/b.pdf"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/files/*", "404"))

	if after-before != 2 {
		t.Fatalf("expected 2 requests under the route pattern, got %v", after-before)
	}
}

func TestRecordFirewallOp(t *testing.T) {
	okBefore := testutil.ToFloat64(firewallOpsTotal.WithLabelValues("add", "success"))
	errBefore := testutil.ToFloat64(firewallOpsTotal.WithLabelValues("add", "error"))

	RecordFirewallOp("add", nil)
	RecordFirewallOp("add", errors.New("boom"))

	if got := testutil.ToFloat64(firewallOpsTotal.WithLabelValues("add", "success")) - okBefore; got != 1 {
		t.Errorf("success delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(firewallOpsTotal.WithLabelValues("add", "error")) - errBefore; got != 1 {
		t.Errorf("error delta = %v, want 1", got)
	}
}

func TestSetClientsActive(t *testing.T) {
	SetClientsActive(3)
	if got := testutil.ToFloat64(httpClientsActive); got != 3 {
		t.Fatalf("clients gauge = %v, want 3", got)
	}
	SetClientsActive(0)
}
