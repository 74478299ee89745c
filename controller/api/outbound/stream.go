package outbound

import (
	"sync"

	policy "github.com/linkerd/outbound-policy/pkg/outbound"
	logging "github.com/sirupsen/logrus"
)

const defaultStreamCapacity = 10

// policyStream is a watcher.PolicyUpdateListener that buffers snapshots for a
// single consumer.
type policyStream struct {
	updates chan *policy.OutboundPolicy
	done    chan struct{}

	// unsubscribe releases the upstream subscription. It is called at most
	// once, without holding mu.
	unsubscribe func()
	closeOnce   sync.Once

	ended bool
	// mu serializes enqueueing with ending the stream.
	mu sync.Mutex

	log *logging.Entry
}

func newPolicyStream(capacity int, log *logging.Entry) *policyStream {
	if capacity <= 0 {
		capacity = defaultStreamCapacity
	}
	return &policyStream{
		updates:     make(chan *policy.OutboundPolicy, capacity),
		done:        make(chan struct{}),
		unsubscribe: func() {},
		log:         log.WithField("component", "policy-stream"),
	}
}

func (ps *policyStream) Updates() <-chan *policy.OutboundPolicy {
	return ps.updates
}

func (ps *policyStream) Close() {
	ps.closeOnce.Do(ps.unsubscribe)
	ps.end()
}

// Update enqueues a snapshot. When the buffer is full the oldest pending
// snapshot is discarded. Update never blocks.
func (ps *policyStream) Update(snapshot *policy.OutboundPolicy) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.ended {
		return
	}

	for {
		select {
		case ps.updates <- snapshot:
			return
		default:
		}

		// Only Update sends on the channel, so after a successful receive
		// there is room for the next attempt.
		select {
		case <-ps.updates:
			streamOverflowCounter.Inc()
			ps.log.Debug("Policy stream full; dropped oldest snapshot")
		default:
		}
	}
}

// Delete ends the stream when the policy is removed upstream. The publisher
// has already dropped this listener.
func (ps *policyStream) Delete() {
	ps.log.Debug("Policy deleted; ending stream")
	ps.end()
}

func (ps *policyStream) end() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.ended {
		return
	}
	ps.ended = true
	close(ps.updates)
	close(ps.done)
}
