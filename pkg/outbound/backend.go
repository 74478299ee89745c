package outbound

import (
	"fmt"
	"net/netip"

	"github.com/linkerd/outbound-policy/pkg/routes"
)

type (
	// Backend is a weighted destination for routed requests. It is one of
	// *WeightedAddr, *WeightedService or *InvalidBackend.
	Backend interface {
		GetWeight() uint32
		isBackend()
	}

	// WeightedAddr routes directly to an address.
	WeightedAddr struct {
		Weight uint32
		Addr   netip.Addr
		Port   uint16
	}

	// WeightedService routes to a named service. Exists is false when the
	// referenced service is not currently known.
	WeightedService struct {
		Weight    uint32
		Authority string
		Name      string
		Namespace string
		Port      uint16
		Filters   []Filter
		Exists    bool
	}

	// InvalidBackend stands in for a backend reference that could not be
	// resolved. It keeps the route and its weights intact; requests routed
	// to it fail with Message.
	InvalidBackend struct {
		Weight  uint32
		Message string
	}

	// Filter transforms a request or response. It is one of
	// RequestHeaderModifier, ResponseHeaderModifier, RequestRedirect or
	// FailureInjector.
	Filter interface {
		isFilter()
	}

	RequestHeaderModifier struct {
		routes.HeaderModifierFilter
	}

	ResponseHeaderModifier struct {
		routes.HeaderModifierFilter
	}

	RequestRedirect struct {
		routes.RequestRedirectFilter
	}

	FailureInjector struct {
		routes.FailureInjectorFilter
	}
)

func (b *WeightedAddr) GetWeight() uint32    { return b.Weight }
func (b *WeightedService) GetWeight() uint32 { return b.Weight }
func (b *InvalidBackend) GetWeight() uint32  { return b.Weight }

func (*WeightedAddr) isBackend()    {}
func (*WeightedService) isBackend() {}
func (*InvalidBackend) isBackend()  {}

func (b *WeightedAddr) String() string {
	return fmt.Sprintf("%s (weight %d)", netip.AddrPortFrom(b.Addr, b.Port), b.Weight)
}

func (b *WeightedService) String() string {
	return fmt.Sprintf("%s (weight %d)", b.Authority, b.Weight)
}

func (b *InvalidBackend) String() string {
	return fmt.Sprintf("invalid: %s (weight %d)", b.Message, b.Weight)
}

func (RequestHeaderModifier) isFilter()  {}
func (ResponseHeaderModifier) isFilter() {}
func (RequestRedirect) isFilter()        {}
func (FailureInjector) isFilter()        {}
