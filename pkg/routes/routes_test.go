package routes

import (
	"testing"

	"github.com/go-test/deep"
)

func TestParseHostMatch(t *testing.T) {
	for _, tt := range []struct {
		hostname string
		expected HostMatch
		str      string
	}{
		{
			hostname: "web.emojivoto.svc.cluster.local",
			expected: HostMatch{Exact: "web.emojivoto.svc.cluster.local"},
			str:      "web.emojivoto.svc.cluster.local",
		},
		{
			hostname: "Example.COM.",
			expected: HostMatch{Exact: "example.com"},
			str:      "example.com",
		},
		{
			hostname: "*.example.com",
			expected: HostMatch{ReverseLabels: []string{"com", "example"}},
			str:      "*.example.com",
		},
	} {
		tt := tt // pin
		t.Run(tt.hostname, func(t *testing.T) {
			match := ParseHostMatch(tt.hostname)
			if diff := deep.Equal(match, tt.expected); diff != nil {
				t.Errorf("%v", diff)
			}
			if match.String() != tt.str {
				t.Errorf("expected %q, got %q", tt.str, match.String())
			}
		})
	}
}

func TestHostMatchMatches(t *testing.T) {
	suffix := ParseHostMatch("*.example.com")
	exact := ParseHostMatch("foo.example.com")

	for _, tt := range []struct {
		match    HostMatch
		host     string
		expected bool
	}{
		{suffix, "foo.example.com", true},
		{suffix, "a.b.example.com", true},
		{suffix, "example.com", false},
		{suffix, "foo.example.org", false},
		{exact, "foo.example.com", true},
		{exact, "FOO.example.com.", true},
		{exact, "bar.example.com", false},
	} {
		if got := tt.match.Matches(tt.host); got != tt.expected {
			t.Errorf("%s matching %s: expected %t, got %t", tt.match, tt.host, tt.expected, got)
		}
	}
}

func TestGroupKindNamespaceNameLess(t *testing.T) {
	a := GroupKindNamespaceName{Group: GatewayGroup, Kind: HTTPRouteKind, Namespace: "ns", Name: "a"}
	b := GroupKindNamespaceName{Group: GatewayGroup, Kind: HTTPRouteKind, Namespace: "ns", Name: "b"}
	other := GroupKindNamespaceName{Group: GatewayGroup, Kind: HTTPRouteKind, Namespace: "other", Name: "a"}

	if !a.Less(b) || b.Less(a) {
		t.Errorf("expected %s < %s", a, b)
	}
	if !b.Less(other) {
		t.Errorf("expected namespace to take precedence: %s < %s", b, other)
	}
	if a.Less(a) {
		t.Errorf("expected %s not to be less than itself", a)
	}
	if a.String() != "HTTPRoute.gateway.networking.k8s.io/ns/a" {
		t.Errorf("unexpected string %s", a)
	}
}

func TestHTTPRouteMatchValidate(t *testing.T) {
	for _, tt := range []struct {
		name  string
		match HTTPRouteMatch
		valid bool
	}{
		{
			name:  "empty",
			match: HTTPRouteMatch{},
			valid: true,
		},
		{
			name: "prefix",
			match: HTTPRouteMatch{
				Path:    &PathMatch{Type: PathMatchPrefix, Value: "/api"},
				Headers: []HeaderMatch{{Name: "x-user", Type: ValueMatchRegex, Value: "^a.*"}},
				Method:  "GET",
			},
			valid: true,
		},
		{
			name:  "relative path",
			match: HTTPRouteMatch{Path: &PathMatch{Type: PathMatchExact, Value: "api"}},
			valid: false,
		},
		{
			name:  "bad path regex",
			match: HTTPRouteMatch{Path: &PathMatch{Type: PathMatchRegex, Value: "(("}},
			valid: false,
		},
		{
			name:  "unnamed header",
			match: HTTPRouteMatch{Headers: []HeaderMatch{{Value: "x"}}},
			valid: false,
		},
		{
			name:  "bad query regex",
			match: HTTPRouteMatch{QueryParams: []QueryParamMatch{{Name: "q", Type: ValueMatchRegex, Value: "[["}}},
			valid: false,
		},
	} {
		tt := tt // pin
		t.Run(tt.name, func(t *testing.T) {
			err := tt.match.Validate()
			if tt.valid && err != nil {
				t.Fatalf("unexpected error: %s", err)
			}
			if !tt.valid && err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestFilterValidate(t *testing.T) {
	if err := (FailureInjectorFilter{Status: 503, Ratio: Ratio{Numerator: 1, Denominator: 2}}).Validate(); err != nil {
		t.Errorf("unexpected error: %s", err)
	}
	if err := (FailureInjectorFilter{Status: 503, Ratio: Ratio{Numerator: 3, Denominator: 2}}).Validate(); err == nil {
		t.Error("expected ratio above 1 to be rejected")
	}
	if err := (FailureInjectorFilter{Status: 42, Ratio: Ratio{Numerator: 1, Denominator: 1}}).Validate(); err == nil {
		t.Error("expected invalid status to be rejected")
	}
	if err := (RequestRedirectFilter{Status: 200}).Validate(); err == nil {
		t.Error("expected non-redirect status to be rejected")
	}
	if err := (RequestRedirectFilter{}).Validate(); err != nil {
		t.Errorf("unexpected error: %s", err)
	}
}
