package k8s

import (
	"fmt"
	"strings"

	corev1 "k8s.io/api/core/v1"
)

// ServiceAuthority returns the fully qualified authority a client uses to
// address a service port: <name>.<namespace>.svc.<cluster-domain>:<port>.
func ServiceAuthority(name, namespace, clusterDomain string, port uint16) string {
	return fmt.Sprintf("%s:%d", ServiceHost(name, namespace, clusterDomain), port)
}

// ServiceHost returns the fully qualified host name of a service.
func ServiceHost(name, namespace, clusterDomain string) string {
	if clusterDomain == "" {
		clusterDomain = DefaultClusterDomain
	}
	return fmt.Sprintf("%s.%s.svc.%s", name, namespace, strings.TrimSuffix(clusterDomain, "."))
}

// ParseServiceName splits "name.namespace" into its parts. A bare name is
// placed in the "default" namespace.
func ParseServiceName(s string) (name, namespace string, err error) {
	parts := strings.Split(s, ".")
	switch len(parts) {
	case 1:
		if parts[0] != "" {
			return parts[0], corev1.NamespaceDefault, nil
		}
	case 2:
		if parts[0] != "" && parts[1] != "" {
			return parts[0], parts[1], nil
		}
	}
	return "", "", fmt.Errorf("invalid service %q: expected NAME.NAMESPACE", s)
}
