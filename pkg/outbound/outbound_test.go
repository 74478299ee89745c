package outbound

import (
	"math"
	"testing"
	"time"
)

func TestBackoffValidate(t *testing.T) {
	for _, tt := range []struct {
		name    string
		backoff Backoff
		valid   bool
	}{
		{"defaults", Backoff{MinPenalty: time.Second, MaxPenalty: time.Minute, Jitter: 0.5}, true},
		{"equal bounds", Backoff{MinPenalty: time.Second, MaxPenalty: time.Second}, true},
		{"full jitter", Backoff{MinPenalty: 0, MaxPenalty: time.Second, Jitter: 1}, true},
		{"inverted bounds", Backoff{MinPenalty: time.Minute, MaxPenalty: time.Second}, false},
		{"negative min", Backoff{MinPenalty: -time.Second, MaxPenalty: time.Second}, false},
		{"jitter above one", Backoff{MinPenalty: time.Second, MaxPenalty: time.Minute, Jitter: 1.5}, false},
		{"negative jitter", Backoff{MinPenalty: time.Second, MaxPenalty: time.Minute, Jitter: -0.1}, false},
		{"NaN jitter", Backoff{MinPenalty: time.Second, MaxPenalty: time.Minute, Jitter: float32(math.NaN())}, false},
	} {
		tt := tt // pin
		t.Run(tt.name, func(t *testing.T) {
			err := tt.backoff.Validate()
			if tt.valid && err != nil {
				t.Fatalf("unexpected error: %s", err)
			}
			if !tt.valid && err == nil {
				t.Fatal("expected an error")
			}

			_, err = NewBackoff(tt.backoff.MinPenalty, tt.backoff.MaxPenalty, tt.backoff.Jitter)
			if tt.valid != (err == nil) {
				t.Fatalf("NewBackoff disagrees with Validate: %v", err)
			}
		})
	}
}

func TestConsecutiveFailuresValidate(t *testing.T) {
	backoff, err := NewBackoff(time.Second, time.Minute, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	var accrual FailureAccrual = &ConsecutiveFailures{MaxFailures: 7, Backoff: backoff}
	if err := accrual.Validate(); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	accrual = &ConsecutiveFailures{MaxFailures: 0, Backoff: backoff}
	if err := accrual.Validate(); err == nil {
		t.Fatal("expected zero max failures to be rejected")
	}
}

func TestOutboundPolicyValidate(t *testing.T) {
	policy := &OutboundPolicy{
		Authority: "web.ns.svc.cluster.local:8080",
		Name:      "web",
		Namespace: "ns",
		Port:      8080,
	}
	if err := policy.Validate(); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	zeroPort := *policy
	zeroPort.Port = 0
	if err := zeroPort.Validate(); err == nil {
		t.Fatal("expected port 0 to be rejected")
	}

	badAccrual := *policy
	badAccrual.Accrual = &ConsecutiveFailures{
		MaxFailures: 3,
		Backoff:     Backoff{MinPenalty: time.Minute, MaxPenalty: time.Second},
	}
	if err := badAccrual.Validate(); err == nil {
		t.Fatal("expected an invalid accrual to be rejected")
	}
}

func TestOutboundPolicyClone(t *testing.T) {
	policy := &OutboundPolicy{Name: "web", Namespace: "ns", Port: 8080}
	policy.Routes.Insert(routeKey("a"), httpRoute("/a"))

	clone := policy.Clone()
	policy.Routes.Remove(routeKey("a"))

	if clone.Routes.Len() != 1 {
		t.Fatalf("expected clone to keep its route, got %d", clone.Routes.Len())
	}
	if clone.Name != "web" || clone.Port != 8080 {
		t.Fatalf("unexpected clone %+v", clone)
	}
}

func TestOutboundDiscoverTargetValidate(t *testing.T) {
	for _, tt := range []struct {
		name   string
		target OutboundDiscoverTarget
		valid  bool
	}{
		{
			name:   "valid",
			target: OutboundDiscoverTarget{ServiceName: "web", ServiceNamespace: "ns", ServicePort: 8080, SourceNamespace: "client"},
			valid:  true,
		},
		{
			name:   "no source namespace",
			target: OutboundDiscoverTarget{ServiceName: "web", ServiceNamespace: "ns", ServicePort: 8080},
			valid:  true,
		},
		{
			name:   "zero port",
			target: OutboundDiscoverTarget{ServiceName: "web", ServiceNamespace: "ns"},
			valid:  false,
		},
		{
			name:   "invalid service name",
			target: OutboundDiscoverTarget{ServiceName: "1web", ServiceNamespace: "ns", ServicePort: 80},
			valid:  false,
		},
		{
			name:   "invalid namespace",
			target: OutboundDiscoverTarget{ServiceName: "web", ServiceNamespace: "NS", ServicePort: 80},
			valid:  false,
		},
	} {
		tt := tt // pin
		t.Run(tt.name, func(t *testing.T) {
			err := tt.target.Validate()
			if tt.valid && err != nil {
				t.Fatalf("unexpected error: %s", err)
			}
			if !tt.valid && err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestTypedRoute(t *testing.T) {
	typed := httpRoute("/").Typed()
	if typed.Kind() != RouteKindHTTP {
		t.Fatalf("expected HTTP, got %s", typed.Kind())
	}
	if typed.Typed().Kind() != RouteKindHTTP {
		t.Fatal("expected Typed to be idempotent")
	}
	if (OutboundRoute[int]{}).Typed().Kind() != RouteKindEmpty {
		t.Fatal("expected a route with no protocol to have no kind")
	}
}
