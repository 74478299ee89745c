package admin

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/common/expfmt"
)

func TestAdminHandler(t *testing.T) {
	s := NewServer("localhost:0")
	s.Mount("/debug/outbound/", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("mounted"))
	}))

	for _, tt := range []struct {
		path   string
		ready  bool
		status int
		body   string
	}{
		{"/ping", false, http.StatusOK, "pong"},
		{"/ready", false, http.StatusServiceUnavailable, "not ready"},
		{"/ready", true, http.StatusOK, "ok"},
		{"/metrics", false, http.StatusOK, "go_goroutines"},
		{"/debug/outbound/policies", false, http.StatusOK, "mounted"},
		{"/debug/pprof/", false, http.StatusOK, "profile"},
		{"/nope", false, http.StatusNotFound, ""},
	} {
		s.SetReady(tt.ready)
		rec := httptest.NewRecorder()
		s.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

		if rec.Code != tt.status {
			t.Errorf("%s: expected status %d, got %d", tt.path, tt.status, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), tt.body) {
			t.Errorf("%s: expected body to contain %q, got %q", tt.path, tt.body, rec.Body.String())
		}
	}
}

func TestAdminMetricsExposition(t *testing.T) {
	s := NewServer("localhost:0")
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(rec.Body)
	if err != nil {
		t.Fatalf("failed to parse metrics: %s", err)
	}
	family, ok := families["go_goroutines"]
	if !ok {
		t.Fatal("expected go_goroutines to be exposed")
	}
	if family.GetMetric()[0].GetGauge().GetValue() <= 0 {
		t.Fatal("expected a positive goroutine count")
	}
}
