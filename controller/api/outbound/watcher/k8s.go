package watcher

import (
	"fmt"
)

type (
	// ID is a namespace-qualified name.
	ID struct {
		Namespace string
		Name      string
	}
	// ServiceID is the namespace-qualified name of a service.
	ServiceID = ID

	// Port is a numeric port.
	Port = uint16

	// PolicyID identifies the outbound policy of a service port.
	PolicyID struct {
		Service ServiceID
		Port    Port
	}
)

func (i ID) String() string {
	return fmt.Sprintf("%s/%s", i.Namespace, i.Name)
}

func (p PolicyID) String() string {
	return fmt.Sprintf("%s:%d", p.Service, p.Port)
}
