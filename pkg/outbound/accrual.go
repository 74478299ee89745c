package outbound

import (
	"fmt"
	"time"
)

type (
	// FailureAccrual configures passive failure tracking, which temporarily
	// ejects a backend after repeated failures. ConsecutiveFailures is the
	// only strategy.
	FailureAccrual interface {
		Validate() error
		isFailureAccrual()
	}

	// ConsecutiveFailures ejects a backend after MaxFailures consecutive
	// failures, for a penalty governed by Backoff.
	ConsecutiveFailures struct {
		MaxFailures uint32
		Backoff     Backoff
	}

	// Backoff bounds the penalty of an ejected backend. Jitter is the
	// fraction of the penalty that is randomized.
	Backoff struct {
		MinPenalty time.Duration
		MaxPenalty time.Duration
		Jitter     float32
	}
)

// NewBackoff returns a Backoff or an error when the bounds are inconsistent.
func NewBackoff(minPenalty, maxPenalty time.Duration, jitter float32) (Backoff, error) {
	b := Backoff{MinPenalty: minPenalty, MaxPenalty: maxPenalty, Jitter: jitter}
	if err := b.Validate(); err != nil {
		return Backoff{}, err
	}
	return b, nil
}

// Validate checks that 0 <= MinPenalty <= MaxPenalty and 0 <= Jitter <= 1.
func (b Backoff) Validate() error {
	if b.MinPenalty < 0 {
		return fmt.Errorf("min penalty %s must not be negative", b.MinPenalty)
	}
	if b.MinPenalty > b.MaxPenalty {
		return fmt.Errorf("min penalty %s exceeds max penalty %s", b.MinPenalty, b.MaxPenalty)
	}
	// NaN fails both comparisons.
	if !(b.Jitter >= 0 && b.Jitter <= 1) {
		return fmt.Errorf("jitter %v must be in [0, 1]", b.Jitter)
	}
	return nil
}

func (c *ConsecutiveFailures) Validate() error {
	if c.MaxFailures == 0 {
		return fmt.Errorf("max failures must be positive")
	}
	return c.Backoff.Validate()
}

func (*ConsecutiveFailures) isFailureAccrual() {}
