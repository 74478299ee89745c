// Package routes holds the protocol-level value types shared by inbound and
// outbound route definitions: route identities, hostname matches, HTTP request
// matches and the filters that may be attached to a rule.
package routes

import (
	"fmt"
	"strings"
)

type (
	// GroupKindNamespaceName identifies the configuration resource a route
	// was derived from. It is used as the key of a route collection.
	GroupKindNamespaceName struct {
		Group     string
		Kind      string
		Namespace string
		Name      string
	}

	// HostMatch matches the authority of a request. Exactly one of Exact or
	// ReverseLabels is set. ReverseLabels holds the labels of a wildcard
	// suffix match in reverse order, so `*.example.com` is stored as
	// ["com", "example"].
	HostMatch struct {
		Exact         string
		ReverseLabels []string
	}
)

func (g GroupKindNamespaceName) String() string {
	if g.Group == "" {
		return fmt.Sprintf("%s/%s/%s", g.Kind, g.Namespace, g.Name)
	}
	return fmt.Sprintf("%s.%s/%s/%s", g.Kind, g.Group, g.Namespace, g.Name)
}

// Less orders route identities by namespace, then name, then kind and group.
func (g GroupKindNamespaceName) Less(other GroupKindNamespaceName) bool {
	if g.Namespace != other.Namespace {
		return g.Namespace < other.Namespace
	}
	if g.Name != other.Name {
		return g.Name < other.Name
	}
	if g.Kind != other.Kind {
		return g.Kind < other.Kind
	}
	return g.Group < other.Group
}

// ParseHostMatch builds a HostMatch from a Gateway API style hostname. A
// leading `*.` denotes a suffix match.
func ParseHostMatch(hostname string) HostMatch {
	hostname = strings.ToLower(strings.TrimSuffix(hostname, "."))
	if !strings.HasPrefix(hostname, "*.") {
		return HostMatch{Exact: hostname}
	}

	labels := strings.Split(strings.TrimPrefix(hostname, "*."), ".")
	reversed := make([]string, 0, len(labels))
	for i := len(labels) - 1; i >= 0; i-- {
		reversed = append(reversed, labels[i])
	}
	return HostMatch{ReverseLabels: reversed}
}

// IsSuffix returns true iff this is a wildcard suffix match.
func (h HostMatch) IsSuffix() bool {
	return h.Exact == "" && len(h.ReverseLabels) > 0
}

// Matches reports whether the given host is matched. A suffix match requires
// at least one label in front of the suffix.
func (h HostMatch) Matches(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if !h.IsSuffix() {
		return h.Exact == host
	}

	labels := strings.Split(host, ".")
	if len(labels) <= len(h.ReverseLabels) {
		return false
	}
	for i, label := range h.ReverseLabels {
		if labels[len(labels)-1-i] != label {
			return false
		}
	}
	return true
}

func (h HostMatch) String() string {
	if !h.IsSuffix() {
		return h.Exact
	}
	labels := make([]string, 0, len(h.ReverseLabels)+1)
	labels = append(labels, "*")
	for i := len(h.ReverseLabels) - 1; i >= 0; i-- {
		labels = append(labels, h.ReverseLabels[i])
	}
	return strings.Join(labels, ".")
}
