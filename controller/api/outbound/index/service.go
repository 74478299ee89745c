package index

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/linkerd/outbound-policy/controller/api/outbound/watcher"
	"github.com/linkerd/outbound-policy/pkg/k8s"
	"github.com/linkerd/outbound-policy/pkg/outbound"
	"github.com/linkerd/outbound-policy/pkg/util"
	logging "github.com/sirupsen/logrus"
	corev1 "k8s.io/api/core/v1"
)

const (
	defaultMaxFailures = 7
	defaultMinPenalty  = time.Second
	defaultMaxPenalty  = time.Minute
	defaultJitter      = 0.5
)

// parseExportTo returns the namespaces a service in namespace may be
// discovered from. An empty value exports to all namespaces.
func parseExportTo(value, namespace string) watcher.Visibility {
	value = strings.TrimSpace(value)
	if value == "" {
		return watcher.VisibleFromAll()
	}

	var namespaces []string
	for _, ns := range strings.Split(value, ",") {
		switch ns = strings.TrimSpace(ns); ns {
		case "*":
			return watcher.VisibleFromAll()
		case ".":
			namespaces = append(namespaces, namespace)
		case "~", "":
		default:
			namespaces = append(namespaces, ns)
		}
	}
	return watcher.VisibleFrom(namespaces...)
}

// parseAccrual reads the failure accrual annotations. Annotations on the
// service take precedence over those on its namespace. Invalid settings are
// logged and disable accrual.
func parseAccrual(svcAnnotations, nsAnnotations map[string]string, log *logging.Entry) outbound.FailureAccrual {
	annotations := svcAnnotations
	if _, ok := annotations[k8s.FailureAccrualAnnotation]; !ok {
		annotations = nsAnnotations
	}

	mode, ok := annotations[k8s.FailureAccrualAnnotation]
	if !ok {
		return nil
	}
	if mode != k8s.FailureAccrualConsecutive {
		log.Warnf("Unsupported %s value %q", k8s.FailureAccrualAnnotation, mode)
		return nil
	}

	maxFailures := uint32(defaultMaxFailures)
	if v, ok := annotations[k8s.FailureAccrualConsecutiveMaxFailuresAnnotation]; ok {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			log.Warnf("Invalid %s value %q: %s", k8s.FailureAccrualConsecutiveMaxFailuresAnnotation, v, err)
			return nil
		}
		maxFailures = uint32(n)
	}

	minPenalty, err := parseDuration(annotations, k8s.FailureAccrualConsecutiveMinPenaltyAnnotation, defaultMinPenalty)
	if err != nil {
		log.Warn(err)
		return nil
	}
	maxPenalty, err := parseDuration(annotations, k8s.FailureAccrualConsecutiveMaxPenaltyAnnotation, defaultMaxPenalty)
	if err != nil {
		log.Warn(err)
		return nil
	}

	jitter := float32(defaultJitter)
	if v, ok := annotations[k8s.FailureAccrualConsecutiveJitterAnnotation]; ok {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			log.Warnf("Invalid %s value %q: %s", k8s.FailureAccrualConsecutiveJitterAnnotation, v, err)
			return nil
		}
		jitter = float32(f)
	}

	backoff, err := outbound.NewBackoff(minPenalty, maxPenalty, jitter)
	if err != nil {
		log.Warnf("Invalid failure accrual backoff: %s", err)
		return nil
	}
	accrual := &outbound.ConsecutiveFailures{MaxFailures: maxFailures, Backoff: backoff}
	if err := accrual.Validate(); err != nil {
		log.Warnf("Invalid failure accrual: %s", err)
		return nil
	}
	return accrual
}

func parseDuration(annotations map[string]string, key string, def time.Duration) (time.Duration, error) {
	v, ok := annotations[key]
	if !ok {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
	}
	return d, nil
}

// opaquePorts returns the opaque ports of a service. The service annotation
// takes precedence over the namespace annotation, which takes precedence
// over the cluster defaults.
func opaquePorts(svc *corev1.Service, nsAnnotations map[string]string, defaults map[uint16]struct{}) map[uint16]struct{} {
	if override, ok := svc.Annotations[k8s.ProxyOpaquePortsAnnotation]; ok {
		return util.ParseServiceOpaquePorts(override, svc.Spec.Ports)
	}
	if override, ok := nsAnnotations[k8s.ProxyOpaquePortsAnnotation]; ok {
		return util.ParseServiceOpaquePorts(override, svc.Spec.Ports)
	}
	return defaults
}
