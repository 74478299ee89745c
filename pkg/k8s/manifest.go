package k8s

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	yamlDecoder "k8s.io/apimachinery/pkg/util/yaml"
	gatewayapiv1beta1 "sigs.k8s.io/gateway-api/apis/v1beta1"
	"sigs.k8s.io/yaml"
)

// Manifest holds the resources outbound policy is built from.
type Manifest struct {
	Namespaces []corev1.Namespace
	Services   []corev1.Service
	HTTPRoutes []gatewayapiv1beta1.HTTPRoute
}

// gatewayVersions are the Gateway API versions whose HTTPRoute schema
// decodes into the v1beta1 types.
var gatewayVersions = map[string]struct{}{
	"v1alpha2": {},
	"v1beta1":  {},
	"v1":       {},
}

// ReadManifestFile reads a multi-document YAML (or JSON) manifest from path.
func ReadManifestFile(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := ReadManifest(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return m, nil
}

// ReadManifest reads from a slice of readers, each representing a manifest
// or collection of manifests. Documents of unsupported kinds are skipped.
func ReadManifest(readers ...io.Reader) (*Manifest, error) {
	m := &Manifest{}
	for _, reader := range readers {
		r := yamlDecoder.NewYAMLReader(bufio.NewReaderSize(reader, 4096))

		// Iterate over all YAML objects in the input
		for {
			// Read a single YAML object
			bytes, err := r.Read()
			if err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				return nil, err
			}
			if err := m.add(bytes); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Manifest) add(bytes []byte) error {
	// check for kind
	var typeMeta metav1.TypeMeta
	if err := yaml.Unmarshal(bytes, &typeMeta); err != nil {
		return err
	}
	gv, err := schema.ParseGroupVersion(typeMeta.APIVersion)
	if err != nil {
		return err
	}

	switch {
	case typeMeta.Kind == "":
		// Kind missing from YAML, skipping

	case typeMeta.Kind == "List":
		var sourceList corev1.List
		if err := yaml.Unmarshal(bytes, &sourceList); err != nil {
			return err
		}
		for _, item := range sourceList.Items {
			if err := m.add(item.Raw); err != nil {
				return err
			}
		}

	case gv.Group == "" && typeMeta.Kind == Namespace:
		var ns corev1.Namespace
		if err := yaml.Unmarshal(bytes, &ns); err != nil {
			return fmt.Errorf("invalid namespace: %w", err)
		}
		m.Namespaces = append(m.Namespaces, ns)

	case gv.Group == "" && typeMeta.Kind == Service:
		var svc corev1.Service
		if err := yaml.Unmarshal(bytes, &svc); err != nil {
			return fmt.Errorf("invalid service: %w", err)
		}
		m.Services = append(m.Services, svc)

	case gv.Group == gatewayapiv1beta1.GroupName && typeMeta.Kind == HTTPRoute:
		if _, ok := gatewayVersions[gv.Version]; !ok {
			log.Warnf("Skipping HTTPRoute with unsupported version %s", typeMeta.APIVersion)
			return nil
		}
		var route gatewayapiv1beta1.HTTPRoute
		if err := yaml.Unmarshal(bytes, &route); err != nil {
			return fmt.Errorf("invalid HTTPRoute: %w", err)
		}
		m.HTTPRoutes = append(m.HTTPRoutes, route)

	default:
		log.Debugf("Skipping unsupported resource %s %s", typeMeta.APIVersion, strings.ToLower(typeMeta.Kind))
	}
	return nil
}

// Merge appends the resources of other to m.
func (m *Manifest) Merge(other *Manifest) {
	m.Namespaces = append(m.Namespaces, other.Namespaces...)
	m.Services = append(m.Services, other.Services...)
	m.HTTPRoutes = append(m.HTTPRoutes, other.HTTPRoutes...)
}

// DefaultNamespaces fills in the namespace of namespaced resources that omit
// it.
func (m *Manifest) DefaultNamespaces(namespace string) {
	for i := range m.Services {
		if m.Services[i].Namespace == "" {
			m.Services[i].Namespace = namespace
		}
	}
	for i := range m.HTTPRoutes {
		if m.HTTPRoutes[i].Namespace == "" {
			m.HTTPRoutes[i].Namespace = namespace
		}
	}
}
