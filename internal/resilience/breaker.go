package resilience

import (
	"sync"
	"time"
)

// CircuitState describes the breaker position for a dependency.
type CircuitState string

const (
	CircuitClosed   CircuitState = "closed"
	CircuitOpen     CircuitState = "open"
	CircuitHalfOpen CircuitState = "half-open"
)

type sample struct {
	at      time.Time
	success bool
}

// breaker is a rolling-window circuit breaker. While closed it admits
// every call and records outcomes; once the failure rate over the window
// crosses the threshold (with at least minSamples observations) it opens
// and rejects calls until the cooldown elapses. After the cooldown a
// single probe call is admitted: success closes the circuit and clears
// the window, failure reopens it.
type breaker struct {
	mu        sync.Mutex
	state     CircuitState
	samples   []sample
	openedAt  time.Time
	probing   bool
	threshold float64
	minCount  int
	window    time.Duration
	cooldown  time.Duration
	now       func() time.Time
}

func newBreaker(threshold float64, minSamples int, window, cooldown time.Duration) *breaker {
	return &breaker{
		state:     CircuitClosed,
		threshold: threshold,
		minCount:  minSamples,
		window:    window,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// allow reports whether a call may proceed. In the open state it admits
// exactly one probe once the cooldown has elapsed.
func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitClosed:
		return true
	case CircuitHalfOpen:
		// Only the in-flight probe is admitted.
		return false
	case CircuitOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return false
		}
		b.state = CircuitHalfOpen
		b.probing = true
		return true
	}

	return false
}

// record registers a call outcome and advances the breaker state.
func (b *breaker) record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitHalfOpen {
		b.probing = false
		if success {
			b.state = CircuitClosed
			b.samples = nil
			return
		}
		b.state = CircuitOpen
		b.openedAt = b.now()
		return
	}

	if b.state == CircuitOpen {
		return
	}

	now := b.now()
	b.samples = append(b.samples, sample{at: now, success: success})
	b.prune(now)

	failures := 0
	for _, s := range b.samples {
		if !s.success {
			failures++
		}
	}

	total := len(b.samples)
	if total >= b.minCount && float64(failures)/float64(total) >= b.threshold {
		b.state = CircuitOpen
		b.openedAt = now
	}
}

// snapshot returns the current state and windowed counts.
func (b *breaker) snapshot() (CircuitState, int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.prune(b.now())

	successes, failures := 0, 0
	for _, s := range b.samples {
		if s.success {
			successes++
		} else {
			failures++
		}
	}

	return b.state, successes, failures
}

func (b *breaker) prune(now time.Time) {
	cutoff := now.Add(-b.window)
	kept := b.samples[:0]
	for _, s := range b.samples {
		if s.at.After(cutoff) {
			kept = append(kept, s)
		}
	}
	b.samples = kept
}
