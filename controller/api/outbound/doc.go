// Package outbound serves outbound policy discovery on top of a
// watcher.PolicyWatcher. It is the in-process implementation of
// outbound.DiscoverOutboundPolicy keyed by outbound.OutboundDiscoverTarget.
//
// Event Flow:
//
//	indexer -> PolicyWatcher.Set -> policyPublisher -> policyStream
//	-> Updates() channel -> consumer
//
// Concurrency & Safety Contracts:
//   - The PolicyWatcher guards its maps with an RWMutex and each publisher
//     with its own mutex. Publishers call listeners while holding their
//     mutex.
//   - policyStream guards its buffer with its own mutex and never calls back
//     into a publisher while holding it. Close unsubscribes first and then
//     ends the stream.
//   - A stream has exactly one consumer.
//
// Backpressure & Overflow:
//   - Each stream buffers at most a fixed number of snapshots (10 by
//     default). Every snapshot is a complete state, so when the buffer is
//     full the oldest pending snapshot is dropped in favour of the newest and
//     the outbound_policy_stream_overflow counter is incremented.
package outbound
