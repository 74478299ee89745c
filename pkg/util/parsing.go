package util

import (
	"strings"

	"github.com/linkerd/linkerd2-proxy-init/ports"
	log "github.com/sirupsen/logrus"
	corev1 "k8s.io/api/core/v1"
)

// ParsePorts parses the given ports string into a map of ports;
// this includes converting port ranges into separate ports
func ParsePorts(portsString string) map[uint16]struct{} {
	opaquePorts := make(map[uint16]struct{})
	if portsString != "" {
		for _, pr := range GetPortRanges(portsString) {
			addPortRange(opaquePorts, pr)
		}
	}
	return opaquePorts
}

// ParseServiceOpaquePorts parses the opaque ports annotation of a service
// into a set of ports; this includes converting port ranges into separate
// ports and named service ports into their port number equivalents.
func ParseServiceOpaquePorts(override string, svcPorts []corev1.ServicePort) map[uint16]struct{} {
	opaquePorts := make(map[uint16]struct{})
	if override == "" {
		return opaquePorts
	}
	for _, pr := range GetPortRanges(override) {
		if port, named := isNamed(pr, svcPorts); named {
			opaquePorts[uint16(port)] = struct{}{}
			continue
		}
		addPortRange(opaquePorts, pr)
	}
	return opaquePorts
}

func addPortRange(set map[uint16]struct{}, pr string) {
	portsRange, err := ports.ParsePortRange(pr)
	if err != nil {
		log.Warnf("Invalid port range [%v]: %s", pr, err)
		return
	}
	for i := portsRange.LowerBound; i <= portsRange.UpperBound; i++ {
		set[uint16(i)] = struct{}{}
	}
}

// GetPortRanges gets port ranges from an override annotation
func GetPortRanges(override string) []string {
	var ports []string
	for _, port := range strings.Split(strings.TrimSuffix(override, ","), ",") {
		ports = append(ports, strings.TrimSpace(port))
	}

	return ports
}

// isNamed checks if a port range is actually a named service port (e.g.
// `123-456` is a valid name, but also is a valid range); all port names must
// be checked before making it a list.
func isNamed(pr string, svcPorts []corev1.ServicePort) (int32, bool) {
	for _, p := range svcPorts {
		if p.Name != "" && p.Name == pr {
			return p.Port, true
		}
	}
	return 0, false
}

// ContainsString checks if a string collections contains the given string.
func ContainsString(str string, collection []string) bool {
	for _, e := range collection {
		if str == e {
			return true
		}
	}
	return false
}
