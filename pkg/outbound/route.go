package outbound

import (
	"fmt"
	"time"

	"github.com/linkerd/outbound-policy/pkg/routes"
)

type (
	// OutboundRouteRule is an ordered rule of a route. Matches are evaluated
	// in order by the caller; Filters are applied in order.
	OutboundRouteRule[M any] struct {
		Matches               []M
		Backends              []Backend
		RequestTimeout        *time.Duration
		BackendRequestTimeout *time.Duration
		Filters               []Filter
	}

	// OutboundRoute is a set of rules for the given hostnames.
	OutboundRoute[M any] struct {
		Hostnames []routes.HostMatch
		Rules     []OutboundRouteRule[M]

		// CreationTimestamp orders routes of a collection, oldest first.
		CreationTimestamp *time.Time
	}

	// HTTPOutboundRoute is an OutboundRoute over HTTP request matches.
	HTTPOutboundRoute = OutboundRoute[routes.HTTPRouteMatch]

	// RouteKind is the protocol a route or route collection applies to.
	RouteKind int

	// TypedOutboundRoute tags a route with its protocol. Exactly one field is
	// set; the zero value has no kind.
	TypedOutboundRoute struct {
		HTTP *HTTPOutboundRoute
	}

	// TypedRoute is anything that converts into a TypedOutboundRoute.
	TypedRoute interface {
		Typed() TypedOutboundRoute
	}
)

const (
	RouteKindEmpty RouteKind = iota
	RouteKindHTTP
)

func (k RouteKind) String() string {
	switch k {
	case RouteKindEmpty:
		return "Empty"
	case RouteKindHTTP:
		return "HTTP"
	default:
		return fmt.Sprintf("RouteKind(%d)", int(k))
	}
}

// Typed converts the route into its tagged form. Routes over a match type
// with no protocol have no kind.
func (r OutboundRoute[M]) Typed() TypedOutboundRoute {
	switch route := any(r).(type) {
	case HTTPOutboundRoute:
		return TypedOutboundRoute{HTTP: &route}
	default:
		return TypedOutboundRoute{}
	}
}

// Typed returns r.
func (r TypedOutboundRoute) Typed() TypedOutboundRoute {
	return r
}

// Kind returns the protocol of the route, or RouteKindEmpty for the zero
// value.
func (r TypedOutboundRoute) Kind() RouteKind {
	switch {
	case r.HTTP != nil:
		return RouteKindHTTP
	default:
		return RouteKindEmpty
	}
}

// creationLess orders by creation timestamp, routes without one last.
func creationLess(a, b *time.Time) (less bool, equal bool) {
	switch {
	case a == nil && b == nil:
		return false, true
	case a == nil:
		return false, false
	case b == nil:
		return true, false
	case a.Equal(*b):
		return false, true
	default:
		return a.Before(*b), false
	}
}
