package outbound

import (
	"context"
	"fmt"
	"net/netip"
	"sort"

	"github.com/linkerd/outbound-policy/controller/api/outbound/watcher"
	policy "github.com/linkerd/outbound-policy/pkg/outbound"
	logging "github.com/sirupsen/logrus"
)

// Server serves outbound policy from a PolicyWatcher.
type Server struct {
	policies       *watcher.PolicyWatcher
	streamCapacity int

	log *logging.Entry
}

var _ policy.DiscoverOutboundPolicy[policy.OutboundDiscoverTarget] = (*Server)(nil)

// NewServer returns a Server backed by policies. Streams buffer up to
// streamCapacity snapshots; a non-positive value selects the default.
func NewServer(policies *watcher.PolicyWatcher, streamCapacity int, log *logging.Entry) *Server {
	if streamCapacity <= 0 {
		streamCapacity = defaultStreamCapacity
	}
	return &Server{
		policies:       policies,
		streamCapacity: streamCapacity,
		log:            log.WithField("component", "outbound-server"),
	}
}

func (s *Server) GetOutboundPolicy(ctx context.Context, target policy.OutboundDiscoverTarget) (*policy.OutboundPolicy, error) {
	if err := target.Validate(); err != nil {
		return nil, fmt.Errorf("invalid target: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.log.Debugf("GetOutboundPolicy(%s)", target)

	return s.policies.Get(policyID(target))
}

func (s *Server) WatchOutboundPolicy(ctx context.Context, target policy.OutboundDiscoverTarget) (policy.OutboundPolicyStream, error) {
	if err := target.Validate(); err != nil {
		return nil, fmt.Errorf("invalid target: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := s.log.WithField("target", target.String())
	log.Debug("WatchOutboundPolicy")

	id := policyID(target)
	stream := newPolicyStream(s.streamCapacity, log)
	stream.unsubscribe = func() { s.policies.Unsubscribe(id, stream) }

	ok, err := s.policies.Subscribe(id, stream)
	if err != nil {
		log.Errorf("Failed to subscribe to %s: %s", id, err)
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	go func() {
		select {
		case <-ctx.Done():
			log.Debug("WatchOutboundPolicy cancelled")
			stream.Close()
		case <-stream.done:
		}
	}()

	return stream, nil
}

func (s *Server) LookupIP(addr netip.Addr, port uint16, sourceNamespace string) (policy.OutboundDiscoverTarget, bool) {
	id, ok := s.policies.LookupIP(addr, port, sourceNamespace)
	if !ok {
		return policy.OutboundDiscoverTarget{}, false
	}
	return policy.OutboundDiscoverTarget{
		ServiceName:      id.Service.Name,
		ServiceNamespace: id.Service.Namespace,
		ServicePort:      id.Port,
		SourceNamespace:  sourceNamespace,
	}, true
}

// Targets returns a target for every known policy, ordered by namespace,
// service and port.
func (s *Server) Targets() []policy.OutboundDiscoverTarget {
	ids := s.policies.PolicyIDs()
	sort.Slice(ids, func(i, j int) bool {
		a, b := ids[i], ids[j]
		if a.Service.Namespace != b.Service.Namespace {
			return a.Service.Namespace < b.Service.Namespace
		}
		if a.Service.Name != b.Service.Name {
			return a.Service.Name < b.Service.Name
		}
		return a.Port < b.Port
	})

	targets := make([]policy.OutboundDiscoverTarget, 0, len(ids))
	for _, id := range ids {
		targets = append(targets, policy.OutboundDiscoverTarget{
			ServiceName:      id.Service.Name,
			ServiceNamespace: id.Service.Namespace,
			ServicePort:      id.Port,
		})
	}
	return targets
}

func policyID(target policy.OutboundDiscoverTarget) watcher.PolicyID {
	return watcher.PolicyID{
		Service: watcher.ServiceID{
			Namespace: target.ServiceNamespace,
			Name:      target.ServiceName,
		},
		Port: target.ServicePort,
	}
}
