package resilience

import (
	"testing"
	"time"
)

func testBreaker(threshold float64, minSamples int, window, cooldown time.Duration) (*breaker, *time.Time) {
	clock := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	b := newBreaker(threshold, minSamples, window, cooldown)
	b.now = func() time.Time { return clock }
	return b, &clock
}

func TestBreakerStaysClosedBelowMinSamples(t *testing.T) {
	b, _ := testBreaker(0.5, 4, time.Minute, 30*time.Second)

	b.record(false)
	b.record(false)
	b.record(false)

	if state, _, _ := b.snapshot(); state != CircuitClosed {
		t.Errorf("state: got %s, want %s", state, CircuitClosed)
	}
	if !b.allow() {
		t.Error("closed breaker should admit calls")
	}
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	b, _ := testBreaker(0.5, 4, time.Minute, 30*time.Second)

	b.record(true)
	b.record(true)
	b.record(false)
	b.record(false)

	state, successes, failures := b.snapshot()
	if state != CircuitOpen {
		t.Errorf("state: got %s, want %s", state, CircuitOpen)
	}
	if successes != 2 || failures != 2 {
		t.Errorf("counts: got %d/%d, want 2/2", successes, failures)
	}
	if b.allow() {
		t.Error("open breaker should reject calls before cooldown")
	}
}

func TestBreakerProbeAfterCooldown(t *testing.T) {
	b, clock := testBreaker(0.5, 2, time.Minute, 30*time.Second)

	b.record(false)
	b.record(false)
	if b.allow() {
		t.Fatal("breaker should be open")
	}

	*clock = clock.Add(31 * time.Second)

	if !b.allow() {
		t.Fatal("probe should be admitted after cooldown")
	}
	if b.allow() {
		t.Error("only a single probe should be admitted")
	}

	b.record(true)

	if state, _, _ := b.snapshot(); state != CircuitClosed {
		t.Errorf("state after successful probe: got %s, want %s", state, CircuitClosed)
	}
	if !b.allow() {
		t.Error("closed breaker should admit calls")
	}
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	b, clock := testBreaker(0.5, 2, time.Minute, 30*time.Second)

	b.record(false)
	b.record(false)

	*clock = clock.Add(31 * time.Second)
	if !b.allow() {
		t.Fatal("probe should be admitted after cooldown")
	}

	b.record(false)

	if state, _, _ := b.snapshot(); state != CircuitOpen {
		t.Errorf("state after failed probe: got %s, want %s", state, CircuitOpen)
	}
	if b.allow() {
		t.Error("reopened breaker should reject until the next cooldown")
	}

	*clock = clock.Add(31 * time.Second)
	if !b.allow() {
		t.Error("a fresh probe should be admitted after the second cooldown")
	}
}

func TestBreakerPrunesExpiredSamples(t *testing.T) {
	b, clock := testBreaker(0.5, 2, time.Minute, 30*time.Second)

	b.record(false)

	*clock = clock.Add(2 * time.Minute)
	b.record(false)

	if state, _, failures := b.snapshot(); state != CircuitClosed || failures != 1 {
		t.Errorf("expired samples should not count: state %s, failures %d", state, failures)
	}
}
