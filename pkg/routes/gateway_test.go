package routes

import (
	"testing"

	"github.com/go-test/deep"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/pointer"
	gatewayapiv1beta1 "sigs.k8s.io/gateway-api/apis/v1beta1"
)

func TestHTTPRouteMatchFromGateway(t *testing.T) {
	pathPrefix := gatewayapiv1beta1.PathMatchPathPrefix
	pathExact := gatewayapiv1beta1.PathMatchExact
	pathRegex := gatewayapiv1beta1.PathMatchRegularExpression
	headerRegex := gatewayapiv1beta1.HeaderMatchRegularExpression
	queryExact := gatewayapiv1beta1.QueryParamMatchExact
	get := gatewayapiv1beta1.HTTPMethodGet

	for _, tt := range []struct {
		name     string
		match    gatewayapiv1beta1.HTTPRouteMatch
		expected HTTPRouteMatch
		err      bool
	}{
		{
			name:  "defaults to root prefix",
			match: gatewayapiv1beta1.HTTPRouteMatch{},
			expected: HTTPRouteMatch{
				Path: &PathMatch{Type: PathMatchPrefix, Value: "/"},
			},
		},
		{
			name: "prefix with headers, query and method",
			match: gatewayapiv1beta1.HTTPRouteMatch{
				Path: &gatewayapiv1beta1.HTTPPathMatch{Type: &pathPrefix, Value: pointer.String("/api")},
				Headers: []gatewayapiv1beta1.HTTPHeaderMatch{
					{Name: "x-user", Value: "alice"},
					{Type: &headerRegex, Name: "x-team", Value: "^core-.*$"},
				},
				QueryParams: []gatewayapiv1beta1.HTTPQueryParamMatch{
					{Type: &queryExact, Name: "debug", Value: "true"},
				},
				Method: &get,
			},
			expected: HTTPRouteMatch{
				Path: &PathMatch{Type: PathMatchPrefix, Value: "/api"},
				Headers: []HeaderMatch{
					{Name: "x-user", Type: ValueMatchExact, Value: "alice"},
					{Name: "x-team", Type: ValueMatchRegex, Value: "^core-.*$"},
				},
				QueryParams: []QueryParamMatch{
					{Name: "debug", Type: ValueMatchExact, Value: "true"},
				},
				Method: "GET",
			},
		},
		{
			name: "exact",
			match: gatewayapiv1beta1.HTTPRouteMatch{
				Path: &gatewayapiv1beta1.HTTPPathMatch{Type: &pathExact, Value: pointer.String("/healthz")},
			},
			expected: HTTPRouteMatch{
				Path: &PathMatch{Type: PathMatchExact, Value: "/healthz"},
			},
		},
		{
			name: "invalid regex",
			match: gatewayapiv1beta1.HTTPRouteMatch{
				Path: &gatewayapiv1beta1.HTTPPathMatch{Type: &pathRegex, Value: pointer.String("((")},
			},
			err: true,
		},
	} {
		tt := tt // pin
		t.Run(tt.name, func(t *testing.T) {
			match, err := HTTPRouteMatchFromGateway(tt.match)
			if tt.err {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %s", err)
			}
			if diff := deep.Equal(match, tt.expected); diff != nil {
				t.Errorf("%v", diff)
			}
		})
	}
}

func TestHeaderModifierFromGateway(t *testing.T) {
	hm := HeaderModifierFromGateway(&gatewayapiv1beta1.HTTPHeaderFilter{
		Set:    []gatewayapiv1beta1.HTTPHeader{{Name: "x-set", Value: "1"}},
		Add:    []gatewayapiv1beta1.HTTPHeader{{Name: "x-add", Value: "2"}},
		Remove: []string{"x-remove"},
	})
	expected := HeaderModifierFilter{
		Add:    []Header{{Name: "x-add", Value: "2"}},
		Set:    []Header{{Name: "x-set", Value: "1"}},
		Remove: []string{"x-remove"},
	}
	if diff := deep.Equal(hm, expected); diff != nil {
		t.Errorf("%v", diff)
	}
}

func TestRequestRedirectFromGateway(t *testing.T) {
	hostname := gatewayapiv1beta1.PreciseHostname("example.com")
	port := gatewayapiv1beta1.PortNumber(8443)

	redirect, err := RequestRedirectFromGateway(&gatewayapiv1beta1.HTTPRequestRedirectFilter{
		Scheme:   pointer.String("https"),
		Hostname: &hostname,
		Port:     &port,
		Path: &gatewayapiv1beta1.HTTPPathModifier{
			Type:               gatewayapiv1beta1.PrefixMatchHTTPPathModifier,
			ReplacePrefixMatch: pointer.String("/v2"),
		},
		StatusCode: pointer.Int(301),
	})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	expected := RequestRedirectFilter{
		Scheme: "https",
		Host:   "example.com",
		Path:   &PathModifier{Type: ReplacePrefixMatch, Value: "/v2"},
		Port:   8443,
		Status: 301,
	}
	if diff := deep.Equal(redirect, expected); diff != nil {
		t.Errorf("%v", diff)
	}

	_, err = RequestRedirectFromGateway(&gatewayapiv1beta1.HTTPRequestRedirectFilter{
		Path: &gatewayapiv1beta1.HTTPPathModifier{Type: gatewayapiv1beta1.FullPathHTTPPathModifier},
	})
	if err == nil {
		t.Error("expected a missing replaceFullPath to be rejected")
	}
}

func TestHTTPRouteID(t *testing.T) {
	route := &gatewayapiv1beta1.HTTPRoute{
		ObjectMeta: metav1.ObjectMeta{Name: "web-route", Namespace: "emojivoto"},
	}
	expected := GroupKindNamespaceName{
		Group:     "gateway.networking.k8s.io",
		Kind:      "HTTPRoute",
		Namespace: "emojivoto",
		Name:      "web-route",
	}
	if diff := deep.Equal(HTTPRouteID(route), expected); diff != nil {
		t.Errorf("%v", diff)
	}
}
