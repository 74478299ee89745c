// Package outbound models the routing policy a proxy applies to traffic it
// sends to a destination service port, and the discovery contract through
// which that policy and its changes are obtained.
package outbound

import (
	"context"
	"errors"
	"fmt"
	"net/netip"

	"k8s.io/apimachinery/pkg/util/validation"
)

type (
	// DiscoverOutboundPolicy is implemented by the layer that serves outbound
	// policy. Implementations must be safe for concurrent use.
	//
	// An unknown destination is never an error: GetOutboundPolicy returns a
	// nil policy and WatchOutboundPolicy a nil stream. Errors are reserved for
	// failures of the underlying index.
	DiscoverOutboundPolicy[T any] interface {
		GetOutboundPolicy(ctx context.Context, target T) (*OutboundPolicy, error)
		WatchOutboundPolicy(ctx context.Context, target T) (OutboundPolicyStream, error)
		LookupIP(addr netip.Addr, port uint16, sourceNamespace string) (T, bool)
	}

	// OutboundPolicyStream delivers complete policy snapshots, one per
	// observed change, starting with the snapshot current at subscription
	// time. The channel returned by Updates is closed when the stream ends.
	// A stream has a single consumer.
	OutboundPolicyStream interface {
		Updates() <-chan *OutboundPolicy
		// Close ends the stream and releases its upstream subscription. It
		// is safe to call more than once.
		Close()
	}

	// OutboundDiscoverTarget names a service port as seen from a client
	// namespace.
	OutboundDiscoverTarget struct {
		ServiceName      string
		ServiceNamespace string
		ServicePort      uint16
		SourceNamespace  string
	}

	// OutboundPolicy is a complete snapshot of the outbound policy for a
	// service port. Snapshots handed to consumers must not be modified.
	OutboundPolicy struct {
		Routes    OutboundRouteCollection
		Authority string
		Name      string
		Namespace string
		Port      uint16
		Opaque    bool
		// Accrual is nil when no failure accrual is configured.
		Accrual FailureAccrual
	}
)

var (
	// ErrIndexStopped is returned by discovery operations once the index
	// serving them has shut down.
	ErrIndexStopped = errors.New("outbound policy index stopped")

	errZeroPort = errors.New("port must be positive")
)

func (t OutboundDiscoverTarget) String() string {
	return fmt.Sprintf("%s.%s:%d (from %s)", t.ServiceName, t.ServiceNamespace, t.ServicePort, t.SourceNamespace)
}

// Validate checks that the target names a valid service and namespace and a
// nonzero port.
func (t OutboundDiscoverTarget) Validate() error {
	// a DNS-1035 label must consist of lower case alphanumeric characters or '-',
	// start with an alphabetic character, and end with an alphanumeric character
	if errs := validation.IsDNS1035Label(t.ServiceName); len(errs) != 0 {
		return fmt.Errorf("invalid service %q: %v", t.ServiceName, errs)
	}
	if errs := validation.IsDNS1123Label(t.ServiceNamespace); len(errs) != 0 {
		return fmt.Errorf("invalid namespace %q: %v", t.ServiceNamespace, errs)
	}
	if t.SourceNamespace != "" {
		if errs := validation.IsDNS1123Label(t.SourceNamespace); len(errs) != 0 {
			return fmt.Errorf("invalid source namespace %q: %v", t.SourceNamespace, errs)
		}
	}
	if t.ServicePort == 0 {
		return errZeroPort
	}
	return nil
}

// Validate checks that a snapshot is well formed.
func (p *OutboundPolicy) Validate() error {
	if p.Port == 0 {
		return fmt.Errorf("policy %s/%s: %w", p.Namespace, p.Name, errZeroPort)
	}
	if p.Accrual != nil {
		if err := p.Accrual.Validate(); err != nil {
			return fmt.Errorf("policy %s/%s: %w", p.Namespace, p.Name, err)
		}
	}
	return nil
}

// Clone returns a copy of the policy whose route collection no longer shares
// its map with p.
func (p *OutboundPolicy) Clone() *OutboundPolicy {
	clone := *p
	clone.Routes = p.Routes.Clone()
	return &clone
}
