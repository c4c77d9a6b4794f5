package models

import (
	"fmt"
	"slices"
	"sync"

	"github.com/JaimeStill/loom/internal/config"
)

// Router resolves stage names to model resolutions. The assignment table
// is injected at construction rather than read from ambient global state;
// Reload swaps it in place when configuration changes. Resolutions are
// cached for the router's lifetime and invalidated by Reload.
type Router struct {
	mu    sync.RWMutex
	cfg   config.ModelsConfig
	cache map[string]Resolution
}

// NewRouter creates a Router over a finalized models configuration.
func NewRouter(cfg *config.ModelsConfig) *Router {
	return &Router{
		cfg:   *cfg,
		cache: make(map[string]Resolution),
	}
}

// Resolve returns the provider and model id for a stage. Stages with an
// explicit assignment use it; otherwise leader stages default to the
// premium managed tier and worker stages to the cheapest. Lookups are
// cached per stage.
func (r *Router) Resolve(stage string) (Resolution, error) {
	r.mu.RLock()
	if res, ok := r.cache[stage]; ok {
		r.mu.RUnlock()
		return res, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	// Re-check after upgrading the lock.
	if res, ok := r.cache[stage]; ok {
		return res, nil
	}

	res, err := r.resolve(stage)
	if err != nil {
		return Resolution{}, err
	}

	r.cache[stage] = res
	return res, nil
}

// Reload replaces the assignment table and clears the cache. Used by
// tests and by configuration reloads.
func (r *Router) Reload(cfg *config.ModelsConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg = *cfg
	r.cache = make(map[string]Resolution)
}

func (r *Router) resolve(stage string) (Resolution, error) {
	id, ok := r.cfg.Assignments[stage]
	if !ok {
		tier := TierCheap
		if slices.Contains(r.cfg.LeaderStages, stage) {
			tier = TierPremium
		}
		return r.managed(tier)
	}

	if local, ok := ParseLocalModel(id); ok {
		return Resolution{Provider: ProviderOllama, ModelID: local.FullName}, nil
	}

	if IsManagedModel(id) {
		return r.managed(Tier(id))
	}

	return Resolution{}, fmt.Errorf("stage %q: model identifier %q is neither a managed tier nor a local model", stage, id)
}

func (r *Router) managed(tier Tier) (Resolution, error) {
	deployment, ok := r.cfg.Deployments[string(tier)]
	if !ok || deployment == "" {
		return Resolution{}, fmt.Errorf("no deployment configured for managed tier %q", tier)
	}
	return Resolution{Provider: ProviderAzure, ModelID: deployment}, nil
}
