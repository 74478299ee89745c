package outbound

import (
	"errors"
	"fmt"
	"sort"

	"github.com/linkerd/outbound-policy/pkg/routes"
)

type (
	// OutboundRouteCollection holds every route of one destination, keyed by
	// the identity of the resource each was derived from. All routes in a
	// collection share one protocol.
	//
	// The zero value is the empty collection. A collection is empty iff no
	// variant map is allocated: Remove drops a map once its last route is
	// removed, so IsEmpty never scans.
	//
	// A collection is owned by a single writer. Use Clone to hand a copy to
	// readers.
	OutboundRouteCollection struct {
		http map[routes.GroupKindNamespaceName]HTTPOutboundRoute
	}

	// KeyedHTTPRoute is an HTTP route together with its identity.
	KeyedHTTPRoute struct {
		Key   routes.GroupKindNamespaceName
		Route HTTPOutboundRoute
	}
)

var (
	// ErrRouteKindConflict is returned when a route of one protocol is
	// inserted into a collection holding routes of another. The collection
	// is left unchanged.
	ErrRouteKindConflict = errors.New("route kind conflicts with collection")

	// ErrUnknownRouteKind is returned when inserting a route that has no
	// protocol.
	ErrUnknownRouteKind = errors.New("unknown route kind")
)

// IsEmpty returns true iff the collection holds no routes.
func (c *OutboundRouteCollection) IsEmpty() bool {
	return c.http == nil
}

// Kind returns the protocol of the routes in the collection.
func (c *OutboundRouteCollection) Kind() RouteKind {
	switch {
	case c.http != nil:
		return RouteKindHTTP
	default:
		return RouteKindEmpty
	}
}

// Len returns the number of routes in the collection.
func (c *OutboundRouteCollection) Len() int {
	return len(c.http)
}

// Insert adds or replaces the route stored under key. When a route was
// already stored under key it is returned with replaced set to true.
func (c *OutboundRouteCollection) Insert(key routes.GroupKindNamespaceName, route TypedRoute) (prev TypedOutboundRoute, replaced bool, err error) {
	typed := route.Typed()

	switch typed.Kind() {
	case RouteKindHTTP:
		switch c.Kind() {
		case RouteKindEmpty:
			c.http = make(map[routes.GroupKindNamespaceName]HTTPOutboundRoute)
		case RouteKindHTTP:
		default:
			return TypedOutboundRoute{}, false, fmt.Errorf("%w: cannot insert %s route %s into %s collection", ErrRouteKindConflict, typed.Kind(), key, c.Kind())
		}

		old, ok := c.http[key]
		c.http[key] = *typed.HTTP
		if ok {
			return old.Typed(), true, nil
		}
		return TypedOutboundRoute{}, false, nil

	default:
		return TypedOutboundRoute{}, false, fmt.Errorf("%w: route %s", ErrUnknownRouteKind, key)
	}
}

// Remove deletes the route stored under key, if any. Removing the last route
// reverts the collection to empty.
func (c *OutboundRouteCollection) Remove(key routes.GroupKindNamespaceName) {
	switch c.Kind() {
	case RouteKindHTTP:
		delete(c.http, key)
		if len(c.http) == 0 {
			c.http = nil
		}
	case RouteKindEmpty:
	}
}

// Get returns the route stored under key.
func (c *OutboundRouteCollection) Get(key routes.GroupKindNamespaceName) (TypedOutboundRoute, bool) {
	switch c.Kind() {
	case RouteKindHTTP:
		if route, ok := c.http[key]; ok {
			return route.Typed(), true
		}
	}
	return TypedOutboundRoute{}, false
}

// Keys returns the identities of all routes, in no particular order.
func (c *OutboundRouteCollection) Keys() []routes.GroupKindNamespaceName {
	keys := make([]routes.GroupKindNamespaceName, 0, c.Len())
	for key := range c.http {
		keys = append(keys, key)
	}
	return keys
}

// HTTPRoutes returns the HTTP routes ordered by creation timestamp, oldest
// first, with ties broken by identity. It returns nil for a collection of
// another kind.
func (c *OutboundRouteCollection) HTTPRoutes() []KeyedHTTPRoute {
	if c.Kind() != RouteKindHTTP {
		return nil
	}

	keyed := make([]KeyedHTTPRoute, 0, len(c.http))
	for key, route := range c.http {
		keyed = append(keyed, KeyedHTTPRoute{Key: key, Route: route})
	}
	sort.Slice(keyed, func(i, j int) bool {
		less, equal := creationLess(keyed[i].Route.CreationTimestamp, keyed[j].Route.CreationTimestamp)
		if !equal {
			return less
		}
		return keyed[i].Key.Less(keyed[j].Key)
	})
	return keyed
}

// Clone returns a collection with its own map. Routes themselves are shared
// and must be treated as immutable.
func (c *OutboundRouteCollection) Clone() OutboundRouteCollection {
	if c.http == nil {
		return OutboundRouteCollection{}
	}
	http := make(map[routes.GroupKindNamespaceName]HTTPOutboundRoute, len(c.http))
	for key, route := range c.http {
		http[key] = route
	}
	return OutboundRouteCollection{http: http}
}
