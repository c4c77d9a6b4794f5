package resilience_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JaimeStill/loom/internal/config"
	"github.com/JaimeStill/loom/internal/resilience"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func policyConfig() config.PolicyConfig {
	return config.PolicyConfig{
		MaxConcurrent:    4,
		Timeout:          "1s",
		FailureThreshold: 0.5,
		MinSamples:       2,
		Window:           "1m",
		Cooldown:         "25ms",
	}
}

func TestDoPassesThroughSuccess(t *testing.T) {
	policy := resilience.NewPolicy("storage", policyConfig(), discardLogger())

	var calls atomic.Int32
	err := policy.Do(context.Background(), func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls: got %d, want 1", got)
	}
	if !policy.Healthy() {
		t.Error("policy should be healthy after a success")
	}
}

func TestDoMapsDeadlineToTimeout(t *testing.T) {
	cfg := policyConfig()
	cfg.Timeout = "20ms"
	policy := resilience.NewPolicy("inference-azure", cfg, discardLogger())

	err := policy.Do(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, resilience.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if got := resilience.MapHTTPStatus(err); got != http.StatusGatewayTimeout {
		t.Errorf("status: got %d, want %d", got, http.StatusGatewayTimeout)
	}
}

func TestDoPreservesCallerCancellation(t *testing.T) {
	policy := resilience.NewPolicy("inference-azure", policyConfig(), discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	err := policy.Do(ctx, func(ctx context.Context) error {
		cancel()
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, resilience.ErrTimeout) {
		t.Error("caller cancellation must not be reported as a policy timeout")
	}
}

func TestDoCallerCancellationNotRecorded(t *testing.T) {
	policy := resilience.NewPolicy("inference-azure", policyConfig(), discardLogger())

	for range 4 {
		ctx, cancel := context.WithCancel(context.Background())
		err := policy.Do(ctx, func(ctx context.Context) error {
			cancel()
			<-ctx.Done()
			return ctx.Err()
		})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	}

	if !policy.Healthy() {
		t.Error("caller cancellations must not open the circuit")
	}
	if got := policy.Stats().Failures; got != 0 {
		t.Errorf("failures: got %d, want 0", got)
	}

	var calls atomic.Int32
	if err := policy.Do(context.Background(), func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}); err != nil {
		t.Errorf("healthy dependency should still admit calls: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls: got %d, want 1", got)
	}
}

func TestDoRejectsWhenCircuitOpen(t *testing.T) {
	policy := resilience.NewPolicy("inference-ollama", policyConfig(), discardLogger())

	boom := errors.New("inference backend down")
	for range 2 {
		if err := policy.Do(context.Background(), func(ctx context.Context) error {
			return boom
		}); !errors.Is(err, boom) {
			t.Fatalf("expected operation error, got %v", err)
		}
	}

	var calls atomic.Int32
	err := policy.Do(context.Background(), func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if calls.Load() != 0 {
		t.Error("rejected call must not execute the operation")
	}
	if got := resilience.MapHTTPStatus(err); got != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want %d", got, http.StatusServiceUnavailable)
	}
}

func TestDoRecoversAfterCooldown(t *testing.T) {
	policy := resilience.NewPolicy("inference-ollama", policyConfig(), discardLogger())

	boom := errors.New("inference backend down")
	for range 2 {
		policy.Do(context.Background(), func(ctx context.Context) error {
			return boom
		})
	}
	if policy.Healthy() {
		t.Fatal("circuit should be open")
	}

	time.Sleep(50 * time.Millisecond)

	err := policy.Do(context.Background(), func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("probe call: %v", err)
	}
	if !policy.Healthy() {
		t.Error("successful probe should close the circuit")
	}
}

func TestDoHonorsConcurrencyCap(t *testing.T) {
	cfg := policyConfig()
	cfg.MaxConcurrent = 1
	policy := resilience.NewPolicy("storage", cfg, discardLogger())

	release := make(chan struct{})
	holding := make(chan struct{})
	go func() {
		policy.Do(context.Background(), func(ctx context.Context) error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := policy.Do(ctx, func(ctx context.Context) error {
		return nil
	})
	if err == nil {
		t.Error("second call should fail while the only slot is held")
	}
	if errors.Is(err, resilience.ErrTimeout) {
		t.Error("queue wait expiry must not be reported as a call timeout")
	}

	close(release)
}

func TestExecuteReturnsTypedResult(t *testing.T) {
	policy := resilience.NewPolicy("storage", policyConfig(), discardLogger())

	got, err := resilience.Execute(context.Background(), policy, func(ctx context.Context) (string, error) {
		return "artifact body", nil
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got != "artifact body" {
		t.Errorf("result: got %q", got)
	}

	boom := errors.New("upload failed")
	out, err := resilience.Execute(context.Background(), policy, func(ctx context.Context) (string, error) {
		return "partial", boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected operation error, got %v", err)
	}
	if out != "" {
		t.Errorf("failed execute should return the zero value, got %q", out)
	}
}

func TestRegistrySharesPolicies(t *testing.T) {
	cfg := config.ResilienceConfig{}
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("finalize resilience config: %v", err)
	}

	registry := resilience.NewRegistry(cfg, discardLogger())

	a := registry.For("storage")
	b := registry.For("storage")
	if a != b {
		t.Error("For should return the same policy instance per dependency")
	}

	if _, err := registry.Lookup("storage"); err != nil {
		t.Errorf("lookup registered policy: %v", err)
	}

	_, err := registry.Lookup("missing")
	if !errors.Is(err, resilience.ErrUnknownPolicy) {
		t.Errorf("expected ErrUnknownPolicy, got %v", err)
	}
	if got := resilience.MapHTTPStatus(err); got != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", got, http.StatusNotFound)
	}
}

func TestRegistryStatsOrderedByName(t *testing.T) {
	cfg := config.ResilienceConfig{}
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("finalize resilience config: %v", err)
	}

	registry := resilience.NewRegistry(cfg, discardLogger())
	registry.For("storage")
	registry.For("inference-azure")
	registry.For("inference-ollama")

	stats := registry.Stats()
	if len(stats) != 3 {
		t.Fatalf("stats length: got %d, want 3", len(stats))
	}

	want := []string{"inference-azure", "inference-ollama", "storage"}
	for i, name := range want {
		if stats[i].Name != name {
			t.Errorf("stats[%d]: got %s, want %s", i, stats[i].Name, name)
		}
	}
}
