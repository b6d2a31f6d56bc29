package market

import (
	"errors"
	"sync"
	"time"
)

// BreakerState is the state of the upstream circuit breaker.
type BreakerState string

const (
	BreakerDisabled BreakerState = "disabled"
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"      // rejecting calls
	BreakerHalfOpen BreakerState = "half_open" // testing recovery
)

// ErrBreakerOpen is the cause of fetches rejected while the breaker is open.
var ErrBreakerOpen = errors.New("upstream circuit breaker is open")

// BreakerConfig configures the upstream circuit breaker.
type BreakerConfig struct {
	// Failures is the number of consecutive provider failures that opens
	// the breaker. Zero disables it.
	Failures int
	// Cooldown is how long the breaker stays open before letting a trial call
	// through.
	Cooldown time.Duration
	// Successes is the number of half-open successes that close it again.
	Successes int
}

// BreakerStats is a snapshot of the breaker counters.
type BreakerStats struct {
	State           BreakerState `json:"state"`
	Failures        int          `json:"consecutive_failures"`
	Rejected        int64        `json:"rejected"`
	LastFailure     time.Time    `json:"last_failure"`
	LastStateChange time.Time    `json:"last_state_change"`
}

// breaker stops calling a failing provider for a cooldown period. It never
// retries; a rejected fetch fails immediately.
type breaker struct {
	cfg BreakerConfig
	now func() time.Time

	mu              sync.Mutex
	state           BreakerState
	failures        int
	successes       int
	trialInFlight   bool // a half-open call is in flight
	rejected        int64
	lastFailure     time.Time
	lastStateChange time.Time
}

func newBreaker(cfg BreakerConfig) *breaker {
	if cfg.Failures <= 0 {
		return nil
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.Successes <= 0 {
		cfg.Successes = 1
	}
	return &breaker{
		cfg:             cfg,
		now:             time.Now,
		state:           BreakerClosed,
		lastStateChange: time.Now(),
	}
}

// allow reports whether a call may proceed. A nil breaker always allows.
// While half-open only one call at a time is let through; every allowed call
// must be followed by record or release.
func (b *breaker) allow() error {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerOpen {
		if b.now().Sub(b.lastFailure) < b.cfg.Cooldown {
			b.rejected++
			return ErrBreakerOpen
		}
		b.transition(BreakerHalfOpen)
	}
	if b.state == BreakerHalfOpen {
		if b.trialInFlight {
			b.rejected++
			return ErrBreakerOpen
		}
		b.trialInFlight = true
	}
	return nil
}

// release ends an allowed call without counting its outcome, e.g. when the
// caller gave up.
func (b *breaker) release() {
	if b == nil {
		return
	}
	b.mu.Lock()
	b.trialInFlight = false
	b.mu.Unlock()
}

func (b *breaker) record(err error) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.trialInFlight = false
	if err == nil {
		switch b.state {
		case BreakerHalfOpen:
			b.successes++
			if b.successes >= b.cfg.Successes {
				b.transition(BreakerClosed)
			}
		case BreakerClosed:
			b.failures = 0
		}
		return
	}

	b.lastFailure = b.now()
	switch b.state {
	case BreakerClosed:
		b.failures++
		if b.failures >= b.cfg.Failures {
			b.transition(BreakerOpen)
		}
	case BreakerHalfOpen:
		b.transition(BreakerOpen)
	}
}

func (b *breaker) transition(state BreakerState) {
	b.state = state
	b.lastStateChange = b.now()
	b.failures = 0
	b.successes = 0
	b.trialInFlight = false
}

func (b *breaker) stats() BreakerStats {
	if b == nil {
		return BreakerStats{State: BreakerDisabled}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return BreakerStats{
		State:           b.state,
		Failures:        b.failures,
		Rejected:        b.rejected,
		LastFailure:     b.lastFailure,
		LastStateChange: b.lastStateChange,
	}
}
