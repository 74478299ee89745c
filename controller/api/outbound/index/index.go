// Package index builds outbound policy from Kubernetes manifests. It keeps a
// live route collection per service port, applies manifest changes to it
// incrementally and publishes a snapshot to a watcher.PolicyWatcher
// whenever a port's policy changes.
package index

import (
	"net/netip"
	"reflect"
	"sort"
	"sync"

	"github.com/linkerd/outbound-policy/controller/api/outbound/watcher"
	"github.com/linkerd/outbound-policy/pkg/k8s"
	"github.com/linkerd/outbound-policy/pkg/outbound"
	"github.com/linkerd/outbound-policy/pkg/routes"
	logging "github.com/sirupsen/logrus"
	corev1 "k8s.io/api/core/v1"
	gatewayapiv1beta1 "sigs.k8s.io/gateway-api/apis/v1beta1"
)

type (
	// Index is the single writer of a PolicyWatcher.
	Index struct {
		policies           *watcher.PolicyWatcher
		clusterDomain      string
		defaultOpaquePorts map[uint16]struct{}

		// ports holds the live route collection of every indexed service
		// port. Collections are only mutated under mu and are cloned into
		// published snapshots.
		ports    map[watcher.PolicyID]*outbound.OutboundRouteCollection
		services map[watcher.ServiceID]struct{}
		// known is the set of services in the manifest being applied.
		known map[watcher.ServiceID]struct{}
		mu    sync.Mutex

		log *logging.Entry
	}

	// Stats summarizes the effect of an Apply.
	Stats struct {
		Services      int
		Policies      int
		Routes        int
		SkippedRoutes int
		Deleted       int
	}
)

// NewIndex returns an Index that publishes to policies.
func NewIndex(policies *watcher.PolicyWatcher, clusterDomain string, defaultOpaquePorts map[uint16]struct{}, log *logging.Entry) *Index {
	if clusterDomain == "" {
		clusterDomain = k8s.DefaultClusterDomain
	}
	if defaultOpaquePorts == nil {
		defaultOpaquePorts = map[uint16]struct{}{}
	}
	return &Index{
		policies:           policies,
		clusterDomain:      clusterDomain,
		defaultOpaquePorts: defaultOpaquePorts,
		ports:              make(map[watcher.PolicyID]*outbound.OutboundRouteCollection),
		services:           make(map[watcher.ServiceID]struct{}),
		log:                log.WithField("component", "outbound-index"),
	}
}

// Apply makes the index reflect manifest. Resources missing from manifest
// are removed. Policies are republished only when they change.
//
// Apply fails with watcher.ErrWatcherStopped without touching the index once
// the watcher is stopped. A Stop that races with Apply can still leave the
// index partially applied; a stopped index is not reused.
func (idx *Index) Apply(manifest *k8s.Manifest) (Stats, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.policies.Stopped() {
		return Stats{}, watcher.ErrWatcherStopped
	}

	stats := Stats{}
	nsAnnotations := make(map[string]map[string]string, len(manifest.Namespaces))
	for _, ns := range manifest.Namespaces {
		nsAnnotations[ns.Name] = ns.Annotations
	}

	services := make(map[watcher.ServiceID]*corev1.Service, len(manifest.Services))
	for i := range manifest.Services {
		svc := &manifest.Services[i]
		services[watcher.ServiceID{Namespace: svc.Namespace, Name: svc.Name}] = svc
	}
	idx.known = make(map[watcher.ServiceID]struct{}, len(services))
	for id := range services {
		idx.known[id] = struct{}{}
	}

	httpRoutes := make([]*gatewayapiv1beta1.HTTPRoute, 0, len(manifest.HTTPRoutes))
	for i := range manifest.HTTPRoutes {
		httpRoutes = append(httpRoutes, &manifest.HTTPRoutes[i])
	}
	sort.Slice(httpRoutes, func(i, j int) bool {
		return routes.HTTPRouteID(httpRoutes[i]).Less(routes.HTTPRouteID(httpRoutes[j]))
	})

	// Desired routes per service port.
	desired := make(map[watcher.PolicyID]map[routes.GroupKindNamespaceName]outbound.HTTPOutboundRoute)
	seen := make(map[watcher.PolicyID]struct{})
	for id, svc := range services {
		svcPorts := servicePorts(svc)
		for _, port := range svcPorts {
			pid := watcher.PolicyID{Service: id, Port: port}
			seen[pid] = struct{}{}
			desired[pid] = make(map[routes.GroupKindNamespaceName]outbound.HTTPOutboundRoute)
		}

		for _, route := range httpRoutes {
			for _, port := range parentPorts(route, id, svcPorts) {
				pid := watcher.PolicyID{Service: id, Port: port}
				key := routes.HTTPRouteID(route)
				converted, err := convertHTTPRoute(route, pid, idx)
				if err != nil {
					idx.log.Warnf("Skipping HTTPRoute %s for %s: %s", key, pid, err)
					stats.SkippedRoutes++
					continue
				}
				desired[pid][key] = converted
				stats.Routes++
			}
		}
	}

	// Remove policies whose service or port is gone.
	for pid := range idx.ports {
		if _, ok := seen[pid]; !ok {
			idx.log.Debugf("Deleting policy %s", pid)
			delete(idx.ports, pid)
			idx.policies.Delete(pid)
			stats.Deleted++
		}
	}
	for id := range idx.services {
		if _, ok := services[id]; !ok {
			delete(idx.services, id)
			idx.policies.DeleteService(id)
		}
	}

	for id, svc := range services {
		idx.services[id] = struct{}{}
		idx.policies.SetService(watcher.ServiceInfo{
			ID:         id,
			ClusterIPs: clusterIPs(svc, idx.log),
			Visibility: parseExportTo(svc.Annotations[k8s.ExportToAnnotation], svc.Namespace),
		})
		stats.Services++

		log := idx.log.WithFields(logging.Fields{"ns": id.Namespace, "svc": id.Name})
		nsAnn := nsAnnotations[svc.Namespace]
		accrual := parseAccrual(svc.Annotations, nsAnn, log)
		opaque := opaquePorts(svc, nsAnn, idx.defaultOpaquePorts)

		for _, port := range servicePorts(svc) {
			pid := watcher.PolicyID{Service: id, Port: port}
			collection := idx.collection(pid)
			idx.sync(collection, desired[pid], log)

			_, isOpaque := opaque[port]
			policy := &outbound.OutboundPolicy{
				Routes:    collection.Clone(),
				Authority: idx.authority(id, port),
				Name:      id.Name,
				Namespace: id.Namespace,
				Port:      port,
				Opaque:    isOpaque,
				Accrual:   accrual,
			}
			if err := idx.policies.Set(policy); err != nil {
				return stats, err
			}
			stats.Policies++
		}
	}

	return stats, nil
}

// Stop stops the underlying PolicyWatcher, ending all subscriptions.
func (idx *Index) Stop() {
	idx.policies.Stop()
}

func (idx *Index) collection(pid watcher.PolicyID) *outbound.OutboundRouteCollection {
	collection, ok := idx.ports[pid]
	if !ok {
		collection = &outbound.OutboundRouteCollection{}
		idx.ports[pid] = collection
	}
	return collection
}

// sync applies the difference between collection and desired to collection.
func (idx *Index) sync(
	collection *outbound.OutboundRouteCollection,
	desired map[routes.GroupKindNamespaceName]outbound.HTTPOutboundRoute,
	log *logging.Entry,
) {
	for _, key := range collection.Keys() {
		if _, ok := desired[key]; !ok {
			log.Debugf("Removing route %s", key)
			collection.Remove(key)
		}
	}

	keys := make([]routes.GroupKindNamespaceName, 0, len(desired))
	for key := range desired {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	for _, key := range keys {
		route := desired[key]
		if current, ok := collection.Get(key); ok && current.HTTP != nil && reflect.DeepEqual(*current.HTTP, route) {
			continue
		}
		if _, replaced, err := collection.Insert(key, route); err != nil {
			log.Errorf("Failed to index route %s: %s", key, err)
		} else if replaced {
			log.Debugf("Updated route %s", key)
		} else {
			log.Debugf("Added route %s", key)
		}
	}
}

func (idx *Index) serviceExists(id watcher.ServiceID) bool {
	_, ok := idx.known[id]
	return ok
}

func (idx *Index) authority(id watcher.ServiceID, port uint16) string {
	return k8s.ServiceAuthority(id.Name, id.Namespace, idx.clusterDomain, port)
}

// servicePorts returns the distinct ports of svc in ascending order.
func servicePorts(svc *corev1.Service) []uint16 {
	set := make(map[uint16]struct{}, len(svc.Spec.Ports))
	for _, p := range svc.Spec.Ports {
		if p.Port > 0 && p.Port <= 65535 {
			set[uint16(p.Port)] = struct{}{}
		}
	}
	ports := make([]uint16, 0, len(set))
	for p := range set {
		ports = append(ports, p)
	}
	sort.Slice(ports, func(i, j int) bool { return ports[i] < ports[j] })
	return ports
}

func clusterIPs(svc *corev1.Service, log *logging.Entry) []netip.Addr {
	raw := svc.Spec.ClusterIPs
	if len(raw) == 0 && svc.Spec.ClusterIP != "" {
		raw = []string{svc.Spec.ClusterIP}
	}

	var addrs []netip.Addr
	for _, ip := range raw {
		if ip == "" || ip == corev1.ClusterIPNone {
			continue
		}
		addr, err := netip.ParseAddr(ip)
		if err != nil {
			log.Warnf("Invalid cluster IP %q for service %s/%s: %s", ip, svc.Namespace, svc.Name, err)
			continue
		}
		addrs = append(addrs, addr)
	}
	return addrs
}
