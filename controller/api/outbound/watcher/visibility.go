package watcher

import (
	"sort"
	"strings"
)

// Visibility is the set of client namespaces a service may be discovered
// from. The zero value is visible from nowhere.
type Visibility struct {
	all        bool
	namespaces map[string]struct{}
}

// VisibleFromAll returns a Visibility that allows every namespace.
func VisibleFromAll() Visibility {
	return Visibility{all: true}
}

// VisibleFrom returns a Visibility that allows only the given namespaces.
func VisibleFrom(namespaces ...string) Visibility {
	v := Visibility{namespaces: make(map[string]struct{}, len(namespaces))}
	for _, ns := range namespaces {
		v.namespaces[ns] = struct{}{}
	}
	return v
}

// Allows returns true iff clients in namespace may discover the service.
func (v Visibility) Allows(namespace string) bool {
	if v.all {
		return true
	}
	_, ok := v.namespaces[namespace]
	return ok
}

func (v Visibility) String() string {
	if v.all {
		return "*"
	}
	if len(v.namespaces) == 0 {
		return "~"
	}
	namespaces := make([]string, 0, len(v.namespaces))
	for ns := range v.namespaces {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)
	return strings.Join(namespaces, ",")
}
