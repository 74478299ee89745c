package cmd

import (
	"fmt"
	"strconv"

	"github.com/linkerd/outbound-policy/pkg/k8s"
	policy "github.com/linkerd/outbound-policy/pkg/outbound"
)

// parseTarget builds a discovery target from a SERVICE[.NAMESPACE] argument
// and a port. The source namespace defaults to the service's namespace.
func parseTarget(service, port, sourceNamespace string) (policy.OutboundDiscoverTarget, error) {
	name, namespace, err := k8s.ParseServiceName(service)
	if err != nil {
		return policy.OutboundDiscoverTarget{}, err
	}
	p, err := parsePort(port)
	if err != nil {
		return policy.OutboundDiscoverTarget{}, err
	}
	if sourceNamespace == "" {
		sourceNamespace = namespace
	}

	target := policy.OutboundDiscoverTarget{
		ServiceName:      name,
		ServiceNamespace: namespace,
		ServicePort:      p,
		SourceNamespace:  sourceNamespace,
	}
	if err := target.Validate(); err != nil {
		return policy.OutboundDiscoverTarget{}, err
	}
	return target, nil
}

func parsePort(s string) (uint16, error) {
	port, err := strconv.ParseUint(s, 10, 16)
	if err != nil || port == 0 {
		return 0, fmt.Errorf("invalid port %q: must be between 1 and 65535", s)
	}
	return uint16(port), nil
}
