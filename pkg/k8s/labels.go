/*
Kubernetes annotations and well-known names read when building outbound
policy from manifests.
*/

package k8s

const (
	/*
	 * Annotations
	 */

	// ProxyOpaquePortsAnnotation lists the ports, port ranges or named ports
	// of a service (or of every service in a namespace) that carry opaque
	// traffic.
	ProxyOpaquePortsAnnotation = "config.linkerd.io/opaque-ports"

	// FailureAccrualAnnotation selects the failure accrual mode of a service's
	// load balancer. The only supported value is "consecutive".
	FailureAccrualAnnotation = "balancer.linkerd.io/failure-accrual"

	// FailureAccrualConsecutiveMaxFailuresAnnotation is the number of
	// consecutive failures after which an endpoint is made unavailable.
	FailureAccrualConsecutiveMaxFailuresAnnotation = "balancer.linkerd.io/failure-accrual-consecutive-max-failures"

	// FailureAccrualConsecutiveMinPenaltyAnnotation is the minimum backoff
	// before an unavailable endpoint is probed again (a Go duration).
	FailureAccrualConsecutiveMinPenaltyAnnotation = "balancer.linkerd.io/failure-accrual-consecutive-min-penalty"

	// FailureAccrualConsecutiveMaxPenaltyAnnotation is the maximum backoff
	// before an unavailable endpoint is probed again (a Go duration).
	FailureAccrualConsecutiveMaxPenaltyAnnotation = "balancer.linkerd.io/failure-accrual-consecutive-max-penalty"

	// FailureAccrualConsecutiveJitterAnnotation is the jitter ratio applied
	// to the backoff, between 0 and 1.
	FailureAccrualConsecutiveJitterAnnotation = "balancer.linkerd.io/failure-accrual-consecutive-jitter-ratio"

	// FailureAccrualConsecutive is the value of FailureAccrualAnnotation that
	// enables consecutive-failures accrual.
	FailureAccrualConsecutive = "consecutive"

	// ExportToAnnotation restricts the namespaces from which a service can be
	// discovered by IP: "*" (everywhere), "." (own namespace), "~" (nowhere)
	// or a comma-separated list of namespaces.
	ExportToAnnotation = "networking.istio.io/exportTo"

	/*
	 * Well-known names
	 */

	// DefaultClusterDomain is the cluster domain used in service authorities
	// when none is configured.
	DefaultClusterDomain = "cluster.local"

	// Service is the kind of a core/v1 Service.
	Service = "Service"

	// Namespace is the kind of a core/v1 Namespace.
	Namespace = "Namespace"

	// HTTPRoute is the kind of a Gateway API HTTPRoute.
	HTTPRoute = "HTTPRoute"
)
