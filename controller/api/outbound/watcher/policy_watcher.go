package watcher

import (
	"errors"
	"fmt"
	"net/netip"
	"reflect"
	"sync"

	"github.com/linkerd/outbound-policy/pkg/outbound"
	logging "github.com/sirupsen/logrus"
)

// ErrWatcherStopped is returned by every PolicyWatcher operation after Stop.
var ErrWatcherStopped = fmt.Errorf("policy watcher: %w", outbound.ErrIndexStopped)

type (
	// PolicyWatcher holds the current outbound policy of every known service
	// port. Listeners can subscribe to a particular policy and PolicyWatcher
	// will publish the current snapshot and all future changes for it.
	//
	// Set and Delete are expected to be called from a single writer.
	PolicyWatcher struct {
		publishers map[PolicyID]*policyPublisher
		services   map[ServiceID]ServiceInfo
		byIP       map[netip.Addr]ServiceID
		stopped    bool
		// This mutex protects modification of the maps and the stopped flag.
		mu sync.RWMutex

		log *logging.Entry
	}

	// ServiceInfo describes how clients address a service and which
	// namespaces may discover it by IP.
	ServiceInfo struct {
		ID         ServiceID
		ClusterIPs []netip.Addr
		Visibility Visibility
	}

	policyPublisher struct {
		id        PolicyID
		policy    *outbound.OutboundPolicy
		listeners []PolicyUpdateListener
		deleted   bool
		metrics   policyMetrics
		// All access to the policyPublisher is explicitly synchronized by this mutex.
		mutex sync.Mutex

		log *logging.Entry
	}

	// PolicyUpdateListener receives outbound policy snapshots. Implementations
	// must not block.
	PolicyUpdateListener interface {
		Update(policy *outbound.OutboundPolicy)
		// Delete is called once when the policy is removed. No further calls
		// are made on the listener afterwards.
		Delete()
	}
)

func NewPolicyWatcher(log *logging.Entry) *PolicyWatcher {
	return &PolicyWatcher{
		publishers: make(map[PolicyID]*policyPublisher),
		services:   make(map[ServiceID]ServiceInfo),
		byIP:       make(map[netip.Addr]ServiceID),
		log:        log.WithField("component", "policy-watcher"),
	}
}

/////////////////////
/// PolicyWatcher ///
/////////////////////

// Get returns the current policy for id, or nil if none is known.
func (pw *PolicyWatcher) Get(id PolicyID) (*outbound.OutboundPolicy, error) {
	pw.mu.RLock()
	defer pw.mu.RUnlock()
	if pw.stopped {
		return nil, ErrWatcherStopped
	}
	publisher, ok := pw.publishers[id]
	if !ok {
		return nil, nil
	}
	return publisher.current(), nil
}

// Subscribe registers listener for updates to id and immediately sends it
// the current snapshot. It returns false if no policy is known for id.
func (pw *PolicyWatcher) Subscribe(id PolicyID, listener PolicyUpdateListener) (bool, error) {
	pw.mu.RLock()
	if pw.stopped {
		pw.mu.RUnlock()
		return false, ErrWatcherStopped
	}
	publisher, ok := pw.publishers[id]
	pw.mu.RUnlock()
	if !ok {
		return false, nil
	}

	pw.log.Infof("Establishing watch on policy %s", id)
	return publisher.subscribe(listener), nil
}

// Unsubscribe removes listener from id. It is a no-op if the listener or
// the policy is unknown.
func (pw *PolicyWatcher) Unsubscribe(id PolicyID, listener PolicyUpdateListener) {
	pw.mu.RLock()
	publisher, ok := pw.publishers[id]
	pw.mu.RUnlock()
	if !ok {
		return
	}

	pw.log.Infof("Stopping watch on policy %s", id)
	publisher.unsubscribe(listener)
}

// Set records policy as the current snapshot for its service port and
// publishes it to subscribers if it differs from the previous one.
func (pw *PolicyWatcher) Set(policy *outbound.OutboundPolicy) error {
	if policy == nil {
		return errors.New("nil policy")
	}
	if err := policy.Validate(); err != nil {
		return fmt.Errorf("invalid policy: %w", err)
	}
	id := PolicyID{
		Service: ServiceID{Namespace: policy.Namespace, Name: policy.Name},
		Port:    policy.Port,
	}

	pw.mu.Lock()
	if pw.stopped {
		pw.mu.Unlock()
		return ErrWatcherStopped
	}
	publisher, ok := pw.publishers[id]
	if !ok {
		publisher = pw.newPolicyPublisher(id)
		pw.publishers[id] = publisher
		policyCount.Inc()
	}
	pw.mu.Unlock()

	publisher.update(policy)
	return nil
}

// Delete removes the policy for id and ends all of its subscriptions.
func (pw *PolicyWatcher) Delete(id PolicyID) {
	pw.mu.Lock()
	publisher, ok := pw.publishers[id]
	if ok {
		delete(pw.publishers, id)
		policyCount.Dec()
	}
	pw.mu.Unlock()

	if ok {
		publisher.delete()
	}
}

// PolicyIDs returns the IDs of all known policies.
func (pw *PolicyWatcher) PolicyIDs() []PolicyID {
	pw.mu.RLock()
	defer pw.mu.RUnlock()
	ids := make([]PolicyID, 0, len(pw.publishers))
	for id := range pw.publishers {
		ids = append(ids, id)
	}
	return ids
}

// SetService records the addresses and visibility of a service, replacing
// any previous record for it.
func (pw *PolicyWatcher) SetService(info ServiceInfo) {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if prev, ok := pw.services[info.ID]; ok {
		pw.unindexIPs(prev)
	}
	ips := make([]netip.Addr, 0, len(info.ClusterIPs))
	for _, ip := range info.ClusterIPs {
		ips = append(ips, ip.Unmap())
	}
	info.ClusterIPs = ips
	pw.services[info.ID] = info
	for _, ip := range info.ClusterIPs {
		if owner, ok := pw.byIP[ip]; ok && owner != info.ID {
			pw.log.Warnf("Cluster IP %s of service %s is already claimed by %s", ip, info.ID, owner)
		}
		pw.byIP[ip] = info.ID
	}
}

// DeleteService forgets the addresses of a service.
func (pw *PolicyWatcher) DeleteService(id ServiceID) {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if prev, ok := pw.services[id]; ok {
		pw.unindexIPs(prev)
		delete(pw.services, id)
	}
}

func (pw *PolicyWatcher) unindexIPs(info ServiceInfo) {
	for _, ip := range info.ClusterIPs {
		if pw.byIP[ip] == info.ID {
			delete(pw.byIP, ip)
		}
	}
}

// LookupIP resolves a cluster IP to the service that owns it, if the service
// is visible from sourceNamespace. The port is not checked against the ports the
// service exposes, so Get may still return no policy for the result.
func (pw *PolicyWatcher) LookupIP(addr netip.Addr, port Port, sourceNamespace string) (PolicyID, bool) {
	if port == 0 {
		return PolicyID{}, false
	}

	pw.mu.RLock()
	defer pw.mu.RUnlock()
	if pw.stopped {
		return PolicyID{}, false
	}
	id, ok := pw.byIP[addr.Unmap()]
	if !ok {
		return PolicyID{}, false
	}
	if !pw.services[id].Visibility.Allows(sourceNamespace) {
		pw.log.Debugf("Service %s is not visible from namespace %s", id, sourceNamespace)
		return PolicyID{}, false
	}
	return PolicyID{Service: id, Port: port}, true
}

// Stopped reports whether Stop has been called.
func (pw *PolicyWatcher) Stopped() bool {
	pw.mu.RLock()
	defer pw.mu.RUnlock()
	return pw.stopped
}

// Stop ends all subscriptions. All subsequent operations fail with
// ErrWatcherStopped.
func (pw *PolicyWatcher) Stop() {
	pw.mu.Lock()
	if pw.stopped {
		pw.mu.Unlock()
		return
	}
	pw.stopped = true
	publishers := pw.publishers
	pw.publishers = make(map[PolicyID]*policyPublisher)
	policyCount.Sub(float64(len(publishers)))
	pw.mu.Unlock()

	for _, publisher := range publishers {
		publisher.delete()
	}
}

func (pw *PolicyWatcher) newPolicyPublisher(id PolicyID) *policyPublisher {
	return &policyPublisher{
		id:        id,
		listeners: make([]PolicyUpdateListener, 0),
		metrics:   newPolicyMetrics(id),
		log: pw.log.WithFields(logging.Fields{
			"component": "policy-publisher",
			"ns":        id.Service.Namespace,
			"svc":       id.Service.Name,
			"port":      id.Port,
		}),
	}
}

///////////////////////
/// policyPublisher ///
///////////////////////

func (pp *policyPublisher) current() *outbound.OutboundPolicy {
	pp.mutex.Lock()
	defer pp.mutex.Unlock()
	return pp.policy
}

// subscribe returns false if the publisher was deleted concurrently.
func (pp *policyPublisher) subscribe(listener PolicyUpdateListener) bool {
	pp.mutex.Lock()
	defer pp.mutex.Unlock()
	if pp.deleted {
		return false
	}

	pp.listeners = append(pp.listeners, listener)
	pp.metrics.setSubscribers(len(pp.listeners))
	if pp.policy != nil {
		listener.Update(pp.policy)
	}
	return true
}

func (pp *policyPublisher) unsubscribe(listener PolicyUpdateListener) {
	pp.mutex.Lock()
	defer pp.mutex.Unlock()

	for i, item := range pp.listeners {
		if item == listener {
			// delete the item from the slice
			n := len(pp.listeners)
			pp.listeners[i] = pp.listeners[n-1]
			pp.listeners[n-1] = nil
			pp.listeners = pp.listeners[:n-1]
			break
		}
	}
	if !pp.deleted {
		pp.metrics.setSubscribers(len(pp.listeners))
	}
}

func (pp *policyPublisher) update(policy *outbound.OutboundPolicy) {
	pp.mutex.Lock()
	defer pp.mutex.Unlock()
	if pp.deleted {
		return
	}
	if reflect.DeepEqual(pp.policy, policy) {
		pp.log.Debug("Policy unchanged")
		return
	}
	pp.log.Debug("Updating policy")

	pp.policy = policy
	pp.metrics.incUpdates()
	for _, listener := range pp.listeners {
		listener.Update(policy)
	}
}

func (pp *policyPublisher) delete() {
	pp.mutex.Lock()
	defer pp.mutex.Unlock()
	if pp.deleted {
		return
	}
	pp.log.Debug("Deleting policy")

	pp.deleted = true
	for _, listener := range pp.listeners {
		listener.Delete()
	}
	pp.listeners = nil
	pp.metrics.unregister()
}
