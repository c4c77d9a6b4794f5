package lifecycle_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/JaimeStill/loom/pkg/lifecycle"
)

func TestStartupHooks(t *testing.T) {
	lc := lifecycle.New()

	var count atomic.Int32
	for range 3 {
		lc.OnStartup(func() {
			count.Add(1)
		})
	}

	lc.WaitForStartup()

	if got := count.Load(); got != 3 {
		t.Errorf("startup hooks: got %d, want 3", got)
	}
}

func TestReadyAfterStartup(t *testing.T) {
	lc := lifecycle.New()

	if lc.Ready() {
		t.Error("should not be ready before startup completes")
	}

	lc.OnStartup(func() {})
	lc.WaitForStartup()

	if !lc.Ready() {
		t.Error("should be ready after startup completes")
	}
}

func TestShutdownHooks(t *testing.T) {
	lc := lifecycle.New()

	var count atomic.Int32
	for range 2 {
		lc.OnShutdown(func() {
			<-lc.Context().Done()
			count.Add(1)
		})
	}

	if err := lc.Shutdown(time.Second); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if got := count.Load(); got != 2 {
		t.Errorf("shutdown hooks: got %d, want 2", got)
	}
}

func TestShutdownCancelsContext(t *testing.T) {
	lc := lifecycle.New()

	if err := lc.Shutdown(time.Second); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	select {
	case <-lc.Context().Done():
	default:
		t.Error("context should be cancelled after shutdown")
	}
}

func TestShutdownTimeout(t *testing.T) {
	lc := lifecycle.New()

	release := make(chan struct{})
	lc.OnShutdown(func() {
		<-release
	})

	err := lc.Shutdown(20 * time.Millisecond)
	if err == nil {
		t.Error("expected timeout error from stuck shutdown hook")
	}

	close(release)
}
