package srv

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"

	"github.com/linkerd/outbound-policy/controller/api/outbound"
	"github.com/linkerd/outbound-policy/controller/api/outbound/watcher"
	policy "github.com/linkerd/outbound-policy/pkg/outbound"
	logging "github.com/sirupsen/logrus"
)

func newTestHandler(t *testing.T) http.Handler {
	log := logging.WithField("test", t.Name())
	policies := watcher.NewPolicyWatcher(log)
	err := policies.Set(&policy.OutboundPolicy{
		Authority: "web.ns.svc.cluster.local:8080",
		Name:      "web",
		Namespace: "ns",
		Port:      8080,
		Opaque:    true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	policies.SetService(watcher.ServiceInfo{
		ID:         watcher.ServiceID{Namespace: "ns", Name: "web"},
		ClusterIPs: []netip.Addr{netip.MustParseAddr("10.0.0.1")},
		Visibility: watcher.VisibleFrom("ns"),
	})
	return NewHandler(outbound.NewServer(policies, 0, log))
}

func TestHandler(t *testing.T) {
	h := newTestHandler(t)

	for _, tt := range []struct {
		name   string
		path   string
		status int
		body   string
	}{
		{
			name:   "list policies",
			path:   "/debug/outbound/policies",
			status: http.StatusOK,
			body:   `[{"service":"web","namespace":"ns","port":8080}]`,
		},
		{
			name:   "get policy",
			path:   "/debug/outbound/policies/ns/web/8080",
			status: http.StatusOK,
			body:   `{"authority":"web.ns.svc.cluster.local:8080","service":"web","namespace":"ns","port":8080,"opaque":true}`,
		},
		{
			name:   "unknown policy",
			path:   "/debug/outbound/policies/ns/web/9090",
			status: http.StatusNotFound,
			body:   `{"error":"no policy for web.ns:9090 (from ns)"}`,
		},
		{
			name:   "invalid port",
			path:   "/debug/outbound/policies/ns/web/http",
			status: http.StatusBadRequest,
			body:   `{"error":"invalid port \"http\""}`,
		},
		{
			name:   "invalid service name",
			path:   "/debug/outbound/policies/ns/Web/8080",
			status: http.StatusBadRequest,
			body:   `invalid service`,
		},
		{
			name:   "lookup visible service",
			path:   "/debug/outbound/lookup/10.0.0.1/8080?sourceNamespace=ns",
			status: http.StatusOK,
			body:   `{"service":"web","namespace":"ns","port":8080}`,
		},
		{
			name:   "lookup hidden service",
			path:   "/debug/outbound/lookup/10.0.0.1/8080?sourceNamespace=client",
			status: http.StatusNotFound,
			body:   `{"error":"no service for 10.0.0.1:8080"}`,
		},
		{
			name:   "lookup invalid address",
			path:   "/debug/outbound/lookup/not-an-ip/8080",
			status: http.StatusBadRequest,
			body:   `error`,
		},
	} {
		tt := tt // pin
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Fatalf("expected JSON content type, got %q", ct)
			}
			if !strings.Contains(rec.Body.String(), tt.body) {
				t.Fatalf("expected body to contain %s, got %s", tt.body, rec.Body.String())
			}
		})
	}
}
