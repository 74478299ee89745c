package outbound

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/go-test/deep"
	"github.com/linkerd/outbound-policy/pkg/routes"
)

func routeKey(name string) routes.GroupKindNamespaceName {
	return routes.GroupKindNamespaceName{
		Group:     routes.GatewayGroup,
		Kind:      routes.HTTPRouteKind,
		Namespace: "ns",
		Name:      name,
	}
}

func httpRoute(path string) HTTPOutboundRoute {
	return HTTPOutboundRoute{
		Hostnames: []routes.HostMatch{routes.ParseHostMatch("web.ns.svc.cluster.local")},
		Rules: []OutboundRouteRule[routes.HTTPRouteMatch]{
			{
				Matches: []routes.HTTPRouteMatch{
					{Path: &routes.PathMatch{Type: routes.PathMatchPrefix, Value: path}},
				},
				Backends: []Backend{
					&WeightedService{
						Weight:    1,
						Authority: "web.ns.svc.cluster.local:8080",
						Name:      "web",
						Namespace: "ns",
						Port:      8080,
						Exists:    true,
					},
				},
			},
		},
	}
}

func TestOutboundRouteCollectionInsertRemove(t *testing.T) {
	var c OutboundRouteCollection
	if !c.IsEmpty() || c.Kind() != RouteKindEmpty {
		t.Fatalf("expected zero value to be empty, got %s", c.Kind())
	}

	a, b := routeKey("a"), routeKey("b")

	if _, replaced, err := c.Insert(a, httpRoute("/a")); err != nil || replaced {
		t.Fatalf("unexpected insert result: replaced=%t err=%v", replaced, err)
	}
	if _, replaced, err := c.Insert(b, httpRoute("/b")); err != nil || replaced {
		t.Fatalf("unexpected insert result: replaced=%t err=%v", replaced, err)
	}
	if c.IsEmpty() || c.Kind() != RouteKindHTTP || c.Len() != 2 {
		t.Fatalf("expected two HTTP routes, got %d %s routes", c.Len(), c.Kind())
	}

	c.Remove(a)
	if c.Len() != 1 {
		t.Fatalf("expected one route, got %d", c.Len())
	}
	if _, ok := c.Get(a); ok {
		t.Fatalf("expected %s to be removed", a)
	}
	if _, ok := c.Get(b); !ok {
		t.Fatalf("expected %s to remain", b)
	}

	c.Remove(b)
	if !c.IsEmpty() || c.Kind() != RouteKindEmpty {
		t.Fatalf("expected collection to revert to empty, got %s", c.Kind())
	}

	// Removing from an empty collection is a no-op.
	c.Remove(a)
	if !c.IsEmpty() {
		t.Fatal("expected collection to stay empty")
	}
}

func TestOutboundRouteCollectionInsertReturnsPrevious(t *testing.T) {
	var c OutboundRouteCollection
	key := routeKey("a")
	first := httpRoute("/first")
	second := httpRoute("/second")

	if _, replaced, _ := c.Insert(key, first); replaced {
		t.Fatal("expected a fresh insert not to report a previous route")
	}

	prev, replaced, err := c.Insert(key, second)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !replaced {
		t.Fatal("expected the previous route to be returned")
	}
	if prev.Kind() != RouteKindHTTP {
		t.Fatalf("expected an HTTP route, got %s", prev.Kind())
	}
	if diff := deep.Equal(*prev.HTTP, first); diff != nil {
		t.Errorf("%v", diff)
	}

	current, ok := c.Get(key)
	if !ok {
		t.Fatalf("expected %s to be present", key)
	}
	if diff := deep.Equal(*current.HTTP, second); diff != nil {
		t.Errorf("%v", diff)
	}
}

func TestOutboundRouteCollectionRejectsUnknownKind(t *testing.T) {
	var c OutboundRouteCollection

	_, _, err := c.Insert(routeKey("a"), TypedOutboundRoute{})
	if !errors.Is(err, ErrUnknownRouteKind) {
		t.Fatalf("expected ErrUnknownRouteKind, got %v", err)
	}

	// Routes over match types without a protocol have no kind either.
	_, _, err = c.Insert(routeKey("b"), OutboundRoute[string]{})
	if !errors.Is(err, ErrUnknownRouteKind) {
		t.Fatalf("expected ErrUnknownRouteKind, got %v", err)
	}

	if !c.IsEmpty() {
		t.Fatal("expected a rejected insert to leave the collection empty")
	}
}

// Any sequence of inserts and removes leaves the collection empty iff no key
// remains, and Insert reports a previous route iff the key was present.
func TestOutboundRouteCollectionRandomOperations(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	keys := []routes.GroupKindNamespaceName{routeKey("a"), routeKey("b"), routeKey("c"), routeKey("d")}

	for run := 0; run < 50; run++ {
		var c OutboundRouteCollection
		present := make(map[routes.GroupKindNamespaceName]struct{})

		for op := 0; op < 40; op++ {
			key := keys[rng.Intn(len(keys))]
			if rng.Intn(2) == 0 {
				_, replaced, err := c.Insert(key, httpRoute(fmt.Sprintf("/%d", op)))
				if err != nil {
					t.Fatalf("unexpected error: %s", err)
				}
				_, existed := present[key]
				if replaced != existed {
					t.Fatalf("run %d op %d: insert %s replaced=%t, expected %t", run, op, key, replaced, existed)
				}
				present[key] = struct{}{}
			} else {
				c.Remove(key)
				delete(present, key)
			}

			if c.IsEmpty() != (len(present) == 0) {
				t.Fatalf("run %d op %d: IsEmpty=%t with %d keys", run, op, c.IsEmpty(), len(present))
			}
			if c.Len() != len(present) {
				t.Fatalf("run %d op %d: expected %d routes, got %d", run, op, len(present), c.Len())
			}
		}
	}
}

func TestOutboundRouteCollectionHTTPRoutesOrder(t *testing.T) {
	older := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	withTime := func(route HTTPOutboundRoute, ts *time.Time) HTTPOutboundRoute {
		route.CreationTimestamp = ts
		return route
	}

	var c OutboundRouteCollection
	for key, route := range map[routes.GroupKindNamespaceName]HTTPOutboundRoute{
		routeKey("untimed"): withTime(httpRoute("/untimed"), nil),
		routeKey("newer"):   withTime(httpRoute("/newer"), &newer),
		routeKey("b-older"): withTime(httpRoute("/b"), &older),
		routeKey("a-older"): withTime(httpRoute("/a"), &older),
	} {
		if _, _, err := c.Insert(key, route); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
	}

	var got []string
	for _, keyed := range c.HTTPRoutes() {
		got = append(got, keyed.Key.Name)
	}
	expected := []string{"a-older", "b-older", "newer", "untimed"}
	if diff := deep.Equal(got, expected); diff != nil {
		t.Errorf("%v", diff)
	}

	var empty OutboundRouteCollection
	if empty.HTTPRoutes() != nil {
		t.Error("expected no HTTP routes from an empty collection")
	}
}

func TestOutboundRouteCollectionClone(t *testing.T) {
	var c OutboundRouteCollection
	c.Insert(routeKey("a"), httpRoute("/a"))

	snapshot := c.Clone()
	c.Insert(routeKey("b"), httpRoute("/b"))
	c.Remove(routeKey("a"))

	if snapshot.Len() != 1 {
		t.Fatalf("expected snapshot to keep one route, got %d", snapshot.Len())
	}
	if _, ok := snapshot.Get(routeKey("a")); !ok {
		t.Fatal("expected snapshot to be unaffected by later mutation")
	}

	var empty OutboundRouteCollection
	clone := empty.Clone()
	if !clone.IsEmpty() {
		t.Fatal("expected a clone of an empty collection to be empty")
	}
}
