// Package view renders outbound policy snapshots as plain structs suitable
// for JSON and YAML output.
package view

import (
	"fmt"
	"net/netip"
	"time"

	"github.com/linkerd/outbound-policy/pkg/outbound"
	"github.com/linkerd/outbound-policy/pkg/routes"
)

type (
	Policy struct {
		Authority      string   `json:"authority"`
		Service        string   `json:"service"`
		Namespace      string   `json:"namespace"`
		Port           uint16   `json:"port"`
		Opaque         bool     `json:"opaque"`
		FailureAccrual *Accrual `json:"failureAccrual,omitempty"`
		HTTPRoutes     []Route  `json:"httpRoutes,omitempty"`
	}

	Accrual struct {
		ConsecutiveFailures *ConsecutiveFailures `json:"consecutiveFailures,omitempty"`
	}

	ConsecutiveFailures struct {
		MaxFailures uint32  `json:"maxFailures"`
		MinPenalty  string  `json:"minPenalty"`
		MaxPenalty  string  `json:"maxPenalty"`
		Jitter      float32 `json:"jitter"`
	}

	Route struct {
		Name              string     `json:"name"`
		Hostnames         []string   `json:"hostnames,omitempty"`
		CreationTimestamp *time.Time `json:"creationTimestamp,omitempty"`
		Rules             []Rule     `json:"rules"`
	}

	Rule struct {
		Matches               []Match   `json:"matches"`
		Filters               []Filter  `json:"filters,omitempty"`
		Backends              []Backend `json:"backends"`
		RequestTimeout        string    `json:"requestTimeout,omitempty"`
		BackendRequestTimeout string    `json:"backendRequestTimeout,omitempty"`
	}

	Match struct {
		Path        *ValueMatch  `json:"path,omitempty"`
		Headers     []ValueMatch `json:"headers,omitempty"`
		QueryParams []ValueMatch `json:"queryParams,omitempty"`
		Method      string       `json:"method,omitempty"`
	}

	ValueMatch struct {
		Name  string `json:"name,omitempty"`
		Type  string `json:"type"`
		Value string `json:"value"`
	}

	Filter struct {
		RequestHeaderModifier  *HeaderModifier  `json:"requestHeaderModifier,omitempty"`
		ResponseHeaderModifier *HeaderModifier  `json:"responseHeaderModifier,omitempty"`
		RequestRedirect        *Redirect        `json:"requestRedirect,omitempty"`
		FailureInjector        *FailureInjector `json:"failureInjector,omitempty"`
	}

	HeaderModifier struct {
		Add    []Header `json:"add,omitempty"`
		Set    []Header `json:"set,omitempty"`
		Remove []string `json:"remove,omitempty"`
	}

	Header struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	}

	Redirect struct {
		Scheme string      `json:"scheme,omitempty"`
		Host   string      `json:"host,omitempty"`
		Path   *ValueMatch `json:"path,omitempty"`
		Port   uint16      `json:"port,omitempty"`
		Status uint16      `json:"status"`
	}

	FailureInjector struct {
		Status  uint16 `json:"status"`
		Message string `json:"message,omitempty"`
		Ratio   string `json:"ratio"`
	}

	Backend struct {
		Weight  uint32          `json:"weight"`
		Service *ServiceBackend `json:"service,omitempty"`
		Addr    string          `json:"addr,omitempty"`
		Invalid string          `json:"invalid,omitempty"`
	}

	ServiceBackend struct {
		Authority string   `json:"authority"`
		Exists    bool     `json:"exists"`
		Filters   []Filter `json:"filters,omitempty"`
	}
)

// FromPolicy converts a snapshot. Routes keep the collection's order.
func FromPolicy(p *outbound.OutboundPolicy) Policy {
	v := Policy{
		Authority: p.Authority,
		Service:   p.Name,
		Namespace: p.Namespace,
		Port:      p.Port,
		Opaque:    p.Opaque,
	}
	if cf, ok := p.Accrual.(*outbound.ConsecutiveFailures); ok && cf != nil {
		v.FailureAccrual = &Accrual{
			ConsecutiveFailures: &ConsecutiveFailures{
				MaxFailures: cf.MaxFailures,
				MinPenalty:  cf.Backoff.MinPenalty.String(),
				MaxPenalty:  cf.Backoff.MaxPenalty.String(),
				Jitter:      cf.Backoff.Jitter,
			},
		}
	}
	for _, keyed := range p.Routes.HTTPRoutes() {
		v.HTTPRoutes = append(v.HTTPRoutes, fromHTTPRoute(keyed))
	}
	return v
}

func fromHTTPRoute(keyed outbound.KeyedHTTPRoute) Route {
	r := Route{
		Name:              keyed.Key.String(),
		CreationTimestamp: keyed.Route.CreationTimestamp,
		Rules:             []Rule{},
	}
	for _, h := range keyed.Route.Hostnames {
		r.Hostnames = append(r.Hostnames, h.String())
	}
	for _, rule := range keyed.Route.Rules {
		vr := Rule{
			Matches:               []Match{},
			Filters:               fromFilters(rule.Filters),
			Backends:              []Backend{},
			RequestTimeout:        durationString(rule.RequestTimeout),
			BackendRequestTimeout: durationString(rule.BackendRequestTimeout),
		}
		for _, m := range rule.Matches {
			vr.Matches = append(vr.Matches, fromMatch(m))
		}
		for _, b := range rule.Backends {
			vr.Backends = append(vr.Backends, fromBackend(b))
		}
		r.Rules = append(r.Rules, vr)
	}
	return r
}

func fromMatch(m routes.HTTPRouteMatch) Match {
	vm := Match{Method: m.Method}
	if m.Path != nil {
		vm.Path = &ValueMatch{Type: m.Path.Type.String(), Value: m.Path.Value}
	}
	for _, h := range m.Headers {
		vm.Headers = append(vm.Headers, ValueMatch{Name: h.Name, Type: h.Type.String(), Value: h.Value})
	}
	for _, q := range m.QueryParams {
		vm.QueryParams = append(vm.QueryParams, ValueMatch{Name: q.Name, Type: q.Type.String(), Value: q.Value})
	}
	return vm
}

func fromFilters(filters []outbound.Filter) []Filter {
	var vf []Filter
	for _, f := range filters {
		switch f := f.(type) {
		case outbound.RequestHeaderModifier:
			vf = append(vf, Filter{RequestHeaderModifier: fromHeaderModifier(f.HeaderModifierFilter)})
		case outbound.ResponseHeaderModifier:
			vf = append(vf, Filter{ResponseHeaderModifier: fromHeaderModifier(f.HeaderModifierFilter)})
		case outbound.RequestRedirect:
			redirect := &Redirect{
				Scheme: f.Scheme,
				Host:   f.Host,
				Port:   f.Port,
				Status: f.Status,
			}
			if redirect.Status == 0 {
				redirect.Status = routes.DefaultRedirectStatus
			}
			if f.Path != nil {
				redirect.Path = &ValueMatch{Type: f.Path.Type.String(), Value: f.Path.Value}
			}
			vf = append(vf, Filter{RequestRedirect: redirect})
		case outbound.FailureInjector:
			vf = append(vf, Filter{FailureInjector: &FailureInjector{
				Status:  f.Status,
				Message: f.Message,
				Ratio:   ratioString(f.Ratio),
			}})
		}
	}
	return vf
}

func fromHeaderModifier(hm routes.HeaderModifierFilter) *HeaderModifier {
	return &HeaderModifier{Add: headers(hm.Add), Set: headers(hm.Set), Remove: hm.Remove}
}

func headers(hs []routes.Header) []Header {
	var out []Header
	for _, h := range hs {
		out = append(out, Header{Name: h.Name, Value: h.Value})
	}
	return out
}

func fromBackend(b outbound.Backend) Backend {
	vb := Backend{Weight: b.GetWeight()}
	switch b := b.(type) {
	case *outbound.WeightedService:
		vb.Service = &ServiceBackend{
			Authority: b.Authority,
			Exists:    b.Exists,
			Filters:   fromFilters(b.Filters),
		}
	case *outbound.WeightedAddr:
		vb.Addr = netip.AddrPortFrom(b.Addr, b.Port).String()
	case *outbound.InvalidBackend:
		vb.Invalid = b.Message
	}
	return vb
}

func durationString(d *time.Duration) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func ratioString(r routes.Ratio) string {
	return fmt.Sprintf("%d/%d", r.Numerator, r.Denominator)
}
