package watcher

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

type policyMetrics struct {
	labels      prometheus.Labels
	subscribers prometheus.Gauge
	updates     prometheus.Counter
}

var (
	policyLabelNames = []string{"namespace", "service", "port"}

	policySubscribers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "outbound_policy_subscribers",
			Help: "A gauge for the current number of subscribers to an outbound policy.",
		},
		policyLabelNames,
	)

	policyUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbound_policy_updates",
			Help: "A counter for number of updates to an outbound policy.",
		},
		policyLabelNames,
	)

	policyCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "outbound_policies",
			Help: "A gauge for the number of outbound policies in the index.",
		},
	)
)

func newPolicyMetrics(id PolicyID) policyMetrics {
	labels := prometheus.Labels{
		"namespace": id.Service.Namespace,
		"service":   id.Service.Name,
		"port":      strconv.Itoa(int(id.Port)),
	}
	return policyMetrics{
		labels:      labels,
		subscribers: policySubscribers.With(labels),
		updates:     policyUpdates.With(labels),
	}
}

func (m policyMetrics) unregister() {
	if !policySubscribers.Delete(m.labels) {
		log.Warnf("unable to delete outbound_policy_subscribers metric with labels %s", m.labels)
	}
	if !policyUpdates.Delete(m.labels) {
		log.Warnf("unable to delete outbound_policy_updates metric with labels %s", m.labels)
	}
}

func (m policyMetrics) setSubscribers(n int) {
	m.subscribers.Set(float64(n))
}

func (m policyMetrics) incUpdates() {
	m.updates.Inc()
}
