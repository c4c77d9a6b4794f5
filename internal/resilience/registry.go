package resilience

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/JaimeStill/loom/internal/config"
)

// Registry holds one policy per named dependency so that every caller
// shares the same limiter and breaker state for that dependency.
type Registry struct {
	mu       sync.Mutex
	cfg      config.ResilienceConfig
	logger   *slog.Logger
	policies map[string]*Policy
}

// NewRegistry creates a registry backed by the given resilience config.
func NewRegistry(cfg config.ResilienceConfig, logger *slog.Logger) *Registry {
	return &Registry{
		cfg:      cfg,
		logger:   logger,
		policies: make(map[string]*Policy),
	}
}

// For returns the shared policy for the named dependency, creating it
// from config on first use.
func (r *Registry) For(name string) *Policy {
	r.mu.Lock()
	defer r.mu.Unlock()

	if policy, ok := r.policies[name]; ok {
		return policy
	}

	policy := NewPolicy(name, r.cfg.For(name), r.logger)
	r.policies[name] = policy
	return policy
}

// Lookup returns the policy for name, or ErrUnknownPolicy if no policy
// has been created for it.
func (r *Registry) Lookup(name string) (*Policy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	policy, ok := r.policies[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownPolicy)
	}
	return policy, nil
}

// Stats returns current stats for every registered policy, ordered by
// dependency name.
func (r *Registry) Stats() []Stats {
	r.mu.Lock()
	policies := make([]*Policy, 0, len(r.policies))
	for _, policy := range r.policies {
		policies = append(policies, policy)
	}
	r.mu.Unlock()

	sort.Slice(policies, func(i, j int) bool {
		return policies[i].Name() < policies[j].Name()
	})

	stats := make([]Stats, len(policies))
	for i, policy := range policies {
		stats[i] = policy.Stats()
	}
	return stats
}
