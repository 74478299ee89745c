package routes

import (
	"fmt"

	gatewayapiv1beta1 "sigs.k8s.io/gateway-api/apis/v1beta1"
)

const (
	// GatewayGroup is the API group of Gateway API resources.
	GatewayGroup = "gateway.networking.k8s.io"
	// HTTPRouteKind is the kind of Gateway API HTTPRoute resources.
	HTTPRouteKind = "HTTPRoute"
)

// HTTPRouteID returns the route identity of a Gateway API HTTPRoute.
func HTTPRouteID(route *gatewayapiv1beta1.HTTPRoute) GroupKindNamespaceName {
	return GroupKindNamespaceName{
		Group:     GatewayGroup,
		Kind:      HTTPRouteKind,
		Namespace: route.Namespace,
		Name:      route.Name,
	}
}

// HostMatchesFromGateway converts the hostnames of an HTTPRoute.
func HostMatchesFromGateway(hostnames []gatewayapiv1beta1.Hostname) []HostMatch {
	matches := make([]HostMatch, 0, len(hostnames))
	for _, h := range hostnames {
		matches = append(matches, ParseHostMatch(string(h)))
	}
	return matches
}

// HTTPRouteMatchFromGateway converts a Gateway API match, applying the API's
// defaults for omitted match types. An omitted path matches the `/` prefix.
func HTTPRouteMatchFromGateway(m gatewayapiv1beta1.HTTPRouteMatch) (HTTPRouteMatch, error) {
	match := HTTPRouteMatch{
		Path: &PathMatch{Type: PathMatchPrefix, Value: "/"},
	}

	if m.Path != nil {
		path, err := pathMatchFromGateway(m.Path)
		if err != nil {
			return HTTPRouteMatch{}, err
		}
		match.Path = path
	}

	for _, h := range m.Headers {
		typ, err := headerMatchType(h.Type)
		if err != nil {
			return HTTPRouteMatch{}, err
		}
		match.Headers = append(match.Headers, HeaderMatch{
			Name:  string(h.Name),
			Type:  typ,
			Value: h.Value,
		})
	}

	for _, q := range m.QueryParams {
		typ, err := queryParamMatchType(q.Type)
		if err != nil {
			return HTTPRouteMatch{}, err
		}
		match.QueryParams = append(match.QueryParams, QueryParamMatch{
			Name:  string(q.Name),
			Type:  typ,
			Value: q.Value,
		})
	}

	if m.Method != nil {
		match.Method = string(*m.Method)
	}

	if err := match.Validate(); err != nil {
		return HTTPRouteMatch{}, err
	}
	return match, nil
}

func pathMatchFromGateway(p *gatewayapiv1beta1.HTTPPathMatch) (*PathMatch, error) {
	value := "/"
	if p.Value != nil {
		value = *p.Value
	}
	if p.Type == nil {
		return &PathMatch{Type: PathMatchPrefix, Value: value}, nil
	}
	switch *p.Type {
	case gatewayapiv1beta1.PathMatchPathPrefix:
		return &PathMatch{Type: PathMatchPrefix, Value: value}, nil
	case gatewayapiv1beta1.PathMatchExact:
		return &PathMatch{Type: PathMatchExact, Value: value}, nil
	case gatewayapiv1beta1.PathMatchRegularExpression:
		return &PathMatch{Type: PathMatchRegex, Value: value}, nil
	default:
		return nil, fmt.Errorf("unsupported path match type %q", *p.Type)
	}
}

func headerMatchType(t *gatewayapiv1beta1.HeaderMatchType) (ValueMatchType, error) {
	if t == nil {
		return ValueMatchExact, nil
	}
	switch *t {
	case gatewayapiv1beta1.HeaderMatchExact:
		return ValueMatchExact, nil
	case gatewayapiv1beta1.HeaderMatchRegularExpression:
		return ValueMatchRegex, nil
	default:
		return 0, fmt.Errorf("unsupported header match type %q", *t)
	}
}

func queryParamMatchType(t *gatewayapiv1beta1.QueryParamMatchType) (ValueMatchType, error) {
	if t == nil {
		return ValueMatchExact, nil
	}
	switch *t {
	case gatewayapiv1beta1.QueryParamMatchExact:
		return ValueMatchExact, nil
	case gatewayapiv1beta1.QueryParamMatchRegularExpression:
		return ValueMatchRegex, nil
	default:
		return 0, fmt.Errorf("unsupported query parameter match type %q", *t)
	}
}

// HeaderModifierFromGateway converts a Gateway API header filter.
func HeaderModifierFromGateway(f *gatewayapiv1beta1.HTTPHeaderFilter) HeaderModifierFilter {
	if f == nil {
		return HeaderModifierFilter{}
	}
	hm := HeaderModifierFilter{Remove: f.Remove}
	for _, h := range f.Add {
		hm.Add = append(hm.Add, Header{Name: string(h.Name), Value: h.Value})
	}
	for _, h := range f.Set {
		hm.Set = append(hm.Set, Header{Name: string(h.Name), Value: h.Value})
	}
	return hm
}

// RequestRedirectFromGateway converts a Gateway API redirect filter.
func RequestRedirectFromGateway(f *gatewayapiv1beta1.HTTPRequestRedirectFilter) (RequestRedirectFilter, error) {
	if f == nil {
		return RequestRedirectFilter{}, fmt.Errorf("missing request redirect configuration")
	}

	redirect := RequestRedirectFilter{}
	if f.Scheme != nil {
		redirect.Scheme = *f.Scheme
	}
	if f.Hostname != nil {
		redirect.Host = string(*f.Hostname)
	}
	if f.Port != nil {
		if *f.Port <= 0 || *f.Port > 65535 {
			return RequestRedirectFilter{}, fmt.Errorf("invalid redirect port %d", *f.Port)
		}
		redirect.Port = uint16(*f.Port)
	}
	if f.StatusCode != nil {
		if *f.StatusCode < 0 || *f.StatusCode > 65535 {
			return RequestRedirectFilter{}, fmt.Errorf("invalid redirect status %d", *f.StatusCode)
		}
		redirect.Status = uint16(*f.StatusCode)
	}
	if f.Path != nil {
		switch f.Path.Type {
		case gatewayapiv1beta1.FullPathHTTPPathModifier:
			if f.Path.ReplaceFullPath == nil {
				return RequestRedirectFilter{}, fmt.Errorf("missing replaceFullPath")
			}
			redirect.Path = &PathModifier{Type: ReplaceFullPath, Value: *f.Path.ReplaceFullPath}
		case gatewayapiv1beta1.PrefixMatchHTTPPathModifier:
			if f.Path.ReplacePrefixMatch == nil {
				return RequestRedirectFilter{}, fmt.Errorf("missing replacePrefixMatch")
			}
			redirect.Path = &PathModifier{Type: ReplacePrefixMatch, Value: *f.Path.ReplacePrefixMatch}
		default:
			return RequestRedirectFilter{}, fmt.Errorf("unsupported path modifier type %q", f.Path.Type)
		}
	}

	if err := redirect.Validate(); err != nil {
		return RequestRedirectFilter{}, err
	}
	return redirect, nil
}
