package outbound

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// streamOverflowCounter is incremented whenever a stream drops a pending
// snapshot because its consumer has fallen behind.
//
// We omit service labels because streams are short-lived and numerous.
var streamOverflowCounter = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "outbound_policy_stream_overflow",
		Help: "A counter incremented whenever an outbound policy stream drops a pending snapshot",
	},
)
