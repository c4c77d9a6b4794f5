// Package resilience protects calls against external dependencies with a
// composed policy: a concurrency limiter in front of a per-call timeout in
// front of a rolling-window circuit breaker.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/JaimeStill/loom/internal/config"
)

// Policy guards calls against a single named dependency. Acquisition
// order is fixed: callers first wait on the concurrency limiter, then
// the breaker decides admission, then the call runs under the policy
// timeout. Waiting on the limiter honors context cancellation, so a
// caller that gives up never occupies a slot.
type Policy struct {
	name     string
	cfg      config.PolicyConfig
	limiter  *semaphore.Weighted
	breaker  *breaker
	logger   *slog.Logger
	inFlight atomic.Int64
	queued   atomic.Int64
}

// Stats reports a point-in-time view of policy health.
type Stats struct {
	Name      string       `json:"name"`
	Circuit   CircuitState `json:"circuit"`
	Successes int          `json:"successes"`
	Failures  int          `json:"failures"`
	InFlight  int64        `json:"in_flight"`
	Queued    int64        `json:"queued"`
}

// NewPolicy creates a policy for the named dependency.
func NewPolicy(name string, cfg config.PolicyConfig, logger *slog.Logger) *Policy {
	return &Policy{
		name:    name,
		cfg:     cfg,
		limiter: semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		breaker: newBreaker(
			cfg.FailureThreshold,
			cfg.MinSamples,
			cfg.WindowDuration(),
			cfg.CooldownDuration(),
		),
		logger: logger.With("system", "resilience", "dependency", name),
	}
}

// Name returns the dependency name the policy guards.
func (p *Policy) Name() string {
	return p.name
}

// Do runs op under the composed policy. Timeout expiry surfaces as
// ErrTimeout and an open circuit as ErrCircuitOpen; both are recorded
// as failures. Caller cancellation, whether while queued or mid-call,
// records nothing on the breaker.
func (p *Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	p.queued.Add(1)
	err := p.limiter.Acquire(ctx, 1)
	p.queued.Add(-1)
	if err != nil {
		return fmt.Errorf("acquire %s slot: %w", p.name, err)
	}
	defer p.limiter.Release(1)

	if !p.breaker.allow() {
		p.logger.Warn("call rejected", "reason", "circuit open")
		return fmt.Errorf("%s: %w", p.name, ErrCircuitOpen)
	}

	callCtx, cancel := context.WithTimeout(ctx, p.cfg.TimeoutDuration())
	defer cancel()

	p.inFlight.Add(1)
	err = op(callCtx)
	p.inFlight.Add(-1)

	if err != nil && errors.Is(err, context.DeadlineExceeded) && callCtx.Err() == context.DeadlineExceeded {
		err = fmt.Errorf("%s after %s: %w", p.name, p.cfg.Timeout, ErrTimeout)
	}

	// A call the caller abandoned says nothing about dependency health,
	// so it must not count against the breaker.
	if errors.Is(err, context.Canceled) && ctx.Err() == context.Canceled {
		return err
	}

	p.breaker.record(err == nil)

	if err != nil {
		return err
	}
	return nil
}

// Healthy reports whether the circuit admits calls without probing.
func (p *Policy) Healthy() bool {
	state, _, _ := p.breaker.snapshot()
	return state == CircuitClosed
}

// Stats returns the current policy counters.
func (p *Policy) Stats() Stats {
	state, successes, failures := p.breaker.snapshot()
	return Stats{
		Name:      p.name,
		Circuit:   state,
		Successes: successes,
		Failures:  failures,
		InFlight:  p.inFlight.Load(),
		Queued:    p.queued.Load(),
	}
}

// Execute runs op under policy and returns its typed result.
func Execute[T any](ctx context.Context, policy *Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var result T

	err := policy.Do(ctx, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	})
	if err != nil {
		var zero T
		return zero, err
	}

	return result, nil
}
