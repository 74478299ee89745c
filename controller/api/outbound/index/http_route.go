package index

import (
	"fmt"

	"github.com/linkerd/outbound-policy/controller/api/outbound/watcher"
	"github.com/linkerd/outbound-policy/pkg/k8s"
	"github.com/linkerd/outbound-policy/pkg/outbound"
	"github.com/linkerd/outbound-policy/pkg/routes"
	gatewayapiv1beta1 "sigs.k8s.io/gateway-api/apis/v1beta1"
)

// backendResolver reports whether a backend service is known and formats
// service authorities.
type backendResolver interface {
	serviceExists(id watcher.ServiceID) bool
	authority(id watcher.ServiceID, port uint16) string
}

// parentPorts returns the ports of svc that route attaches to. A route
// attaches to a Service in its own namespace, either to one port or, when
// the parentRef names no port, to all of them.
func parentPorts(route *gatewayapiv1beta1.HTTPRoute, svc watcher.ServiceID, svcPorts []uint16) []uint16 {
	if route.Namespace != svc.Namespace {
		return nil
	}

	attached := make(map[uint16]struct{})
	for _, parent := range route.Spec.ParentRefs {
		if !isServiceParent(parent) || string(parent.Name) != svc.Name {
			continue
		}
		if parent.Namespace != nil && string(*parent.Namespace) != route.Namespace {
			continue
		}
		if parent.Port == nil {
			for _, p := range svcPorts {
				attached[p] = struct{}{}
			}
			continue
		}
		for _, p := range svcPorts {
			if int32(p) == int32(*parent.Port) {
				attached[p] = struct{}{}
			}
		}
	}

	var ports []uint16
	for _, p := range svcPorts {
		if _, ok := attached[p]; ok {
			ports = append(ports, p)
		}
	}
	return ports
}

func isServiceParent(parent gatewayapiv1beta1.ParentReference) bool {
	if parent.Kind == nil || string(*parent.Kind) != k8s.Service {
		return false
	}
	// Parent references default to the Gateway API group, so a Service must
	// name the core group explicitly.
	return parent.Group != nil && isCoreGroup(string(*parent.Group))
}

func isCoreGroup(group string) bool {
	return group == "" || group == "core"
}

// convertHTTPRoute converts a Gateway API HTTPRoute attached to the parent
// service port. Rules without backendRefs route to the parent itself.
func convertHTTPRoute(
	route *gatewayapiv1beta1.HTTPRoute,
	parent watcher.PolicyID,
	resolver backendResolver,
) (outbound.HTTPOutboundRoute, error) {
	converted := outbound.HTTPOutboundRoute{
		Hostnames: routes.HostMatchesFromGateway(route.Spec.Hostnames),
	}
	if !route.CreationTimestamp.IsZero() {
		created := route.CreationTimestamp.Time
		converted.CreationTimestamp = &created
	}

	for i, rule := range route.Spec.Rules {
		r, err := convertRule(route.Namespace, rule, parent, resolver)
		if err != nil {
			return outbound.HTTPOutboundRoute{}, fmt.Errorf("rule %d: %w", i, err)
		}
		converted.Rules = append(converted.Rules, r)
	}
	return converted, nil
}

func convertRule(
	namespace string,
	rule gatewayapiv1beta1.HTTPRouteRule,
	parent watcher.PolicyID,
	resolver backendResolver,
) (outbound.OutboundRouteRule[routes.HTTPRouteMatch], error) {
	converted := outbound.OutboundRouteRule[routes.HTTPRouteMatch]{}

	matches := rule.Matches
	if len(matches) == 0 {
		matches = []gatewayapiv1beta1.HTTPRouteMatch{{}}
	}
	for _, m := range matches {
		match, err := routes.HTTPRouteMatchFromGateway(m)
		if err != nil {
			return converted, err
		}
		converted.Matches = append(converted.Matches, match)
	}

	filters, err := convertFilters(rule.Filters)
	if err != nil {
		return converted, err
	}
	converted.Filters = filters

	if len(rule.BackendRefs) == 0 {
		converted.Backends = []outbound.Backend{
			&outbound.WeightedService{
				Weight:    1,
				Authority: resolver.authority(parent.Service, parent.Port),
				Name:      parent.Service.Name,
				Namespace: parent.Service.Namespace,
				Port:      parent.Port,
				Exists:    resolver.serviceExists(parent.Service),
			},
		}
		return converted, nil
	}

	for _, ref := range rule.BackendRefs {
		backend, err := convertBackend(namespace, ref, resolver)
		if err != nil {
			return converted, err
		}
		converted.Backends = append(converted.Backends, backend)
	}
	return converted, nil
}

// convertBackend converts a backendRef. References that cannot be resolved
// become an InvalidBackend so that the rule keeps its weights; unsupported
// backend filters fail the whole route.
func convertBackend(namespace string, ref gatewayapiv1beta1.HTTPBackendRef, resolver backendResolver) (outbound.Backend, error) {
	weight := uint32(1)
	if ref.Weight != nil {
		if *ref.Weight < 0 {
			return nil, fmt.Errorf("invalid backend weight %d", *ref.Weight)
		}
		weight = uint32(*ref.Weight)
	}

	group := ""
	if ref.Group != nil {
		group = string(*ref.Group)
	}
	kind := k8s.Service
	if ref.Kind != nil {
		kind = string(*ref.Kind)
	}
	if !isCoreGroup(group) || kind != k8s.Service {
		return &outbound.InvalidBackend{
			Weight:  weight,
			Message: fmt.Sprintf("unsupported backend kind %s.%s", kind, group),
		}, nil
	}
	if ref.Port == nil {
		return &outbound.InvalidBackend{
			Weight:  weight,
			Message: fmt.Sprintf("missing port for backend service %s", ref.Name),
		}, nil
	}
	if *ref.Port <= 0 || *ref.Port > 65535 {
		return &outbound.InvalidBackend{
			Weight:  weight,
			Message: fmt.Sprintf("invalid port %d for backend service %s", *ref.Port, ref.Name),
		}, nil
	}

	filters, err := convertFilters(ref.Filters)
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", ref.Name, err)
	}

	id := watcher.ServiceID{Namespace: namespace, Name: string(ref.Name)}
	if ref.Namespace != nil && *ref.Namespace != "" {
		id.Namespace = string(*ref.Namespace)
	}
	port := uint16(*ref.Port)
	return &outbound.WeightedService{
		Weight:    weight,
		Authority: resolver.authority(id, port),
		Name:      id.Name,
		Namespace: id.Namespace,
		Port:      port,
		Filters:   filters,
		Exists:    resolver.serviceExists(id),
	}, nil
}

func convertFilters(filters []gatewayapiv1beta1.HTTPRouteFilter) ([]outbound.Filter, error) {
	var converted []outbound.Filter
	for _, f := range filters {
		switch f.Type {
		case gatewayapiv1beta1.HTTPRouteFilterRequestHeaderModifier:
			converted = append(converted, outbound.RequestHeaderModifier{
				HeaderModifierFilter: routes.HeaderModifierFromGateway(f.RequestHeaderModifier),
			})
		case gatewayapiv1beta1.HTTPRouteFilterResponseHeaderModifier:
			converted = append(converted, outbound.ResponseHeaderModifier{
				HeaderModifierFilter: routes.HeaderModifierFromGateway(f.ResponseHeaderModifier),
			})
		case gatewayapiv1beta1.HTTPRouteFilterRequestRedirect:
			redirect, err := routes.RequestRedirectFromGateway(f.RequestRedirect)
			if err != nil {
				return nil, err
			}
			converted = append(converted, outbound.RequestRedirect{RequestRedirectFilter: redirect})
		default:
			return nil, fmt.Errorf("unsupported filter %s", f.Type)
		}
	}
	return converted, nil
}
