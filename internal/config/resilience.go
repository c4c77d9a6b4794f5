package config

import (
	"fmt"
	"time"
)

// PolicyConfig describes the protections applied to calls against a
// single named dependency: a concurrency cap, a per-call timeout, and a
// rolling-window circuit breaker.
type PolicyConfig struct {
	MaxConcurrent    int     `toml:"max_concurrent"`
	Timeout          string  `toml:"timeout"`
	FailureThreshold float64 `toml:"failure_threshold"`
	MinSamples       int     `toml:"min_samples"`
	Window           string  `toml:"window"`
	Cooldown         string  `toml:"cooldown"`
}

// TimeoutDuration returns the parsed per-call timeout.
func (c *PolicyConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// WindowDuration returns the parsed breaker sample window.
func (c *PolicyConfig) WindowDuration() time.Duration {
	d, _ := time.ParseDuration(c.Window)
	return d
}

// CooldownDuration returns the parsed open-state cooldown.
func (c *PolicyConfig) CooldownDuration() time.Duration {
	d, _ := time.ParseDuration(c.Cooldown)
	return d
}

func (c *PolicyConfig) loadDefaults() {
	if c.MaxConcurrent == 0 {
		c.MaxConcurrent = 4
	}

	if c.Timeout == "" {
		c.Timeout = "30s"
	}

	if c.FailureThreshold == 0 {
		c.FailureThreshold = 0.5
	}

	if c.MinSamples == 0 {
		c.MinSamples = 5
	}

	if c.Window == "" {
		c.Window = "1m"
	}

	if c.Cooldown == "" {
		c.Cooldown = "30s"
	}
}

func (c *PolicyConfig) merge(overlay *PolicyConfig) {
	if overlay.MaxConcurrent != 0 {
		c.MaxConcurrent = overlay.MaxConcurrent
	}

	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}

	if overlay.FailureThreshold != 0 {
		c.FailureThreshold = overlay.FailureThreshold
	}

	if overlay.MinSamples != 0 {
		c.MinSamples = overlay.MinSamples
	}

	if overlay.Window != "" {
		c.Window = overlay.Window
	}

	if overlay.Cooldown != "" {
		c.Cooldown = overlay.Cooldown
	}
}

func (c *PolicyConfig) validate(name string) error {
	if c.MaxConcurrent < 1 {
		return fmt.Errorf("%s: max_concurrent must be at least 1, got %d", name, c.MaxConcurrent)
	}

	if c.FailureThreshold <= 0 || c.FailureThreshold > 1 {
		return fmt.Errorf("%s: failure_threshold must be within (0, 1], got %g", name, c.FailureThreshold)
	}

	if c.MinSamples < 1 {
		return fmt.Errorf("%s: min_samples must be at least 1, got %d", name, c.MinSamples)
	}

	for field, value := range map[string]string{
		"timeout":  c.Timeout,
		"window":   c.Window,
		"cooldown": c.Cooldown,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s: invalid %s %q: %w", name, field, value, err)
		}
	}

	return nil
}

// ResilienceConfig holds the default dependency policy and named
// per-dependency overrides.
type ResilienceConfig struct {
	Default      PolicyConfig            `toml:"default"`
	Dependencies map[string]PolicyConfig `toml:"dependencies"`
}

// For returns the effective policy for the named dependency: the default
// policy with any named override merged on top.
func (c *ResilienceConfig) For(name string) PolicyConfig {
	policy := c.Default

	if override, ok := c.Dependencies[name]; ok {
		policy.merge(&override)
	}

	return policy
}

// Finalize applies defaults and validates the default policy and every
// named override.
func (c *ResilienceConfig) Finalize() error {
	c.Default.loadDefaults()

	if err := c.Default.validate("default"); err != nil {
		return err
	}

	for name := range c.Dependencies {
		policy := c.For(name)
		if err := policy.validate(name); err != nil {
			return err
		}
	}

	return nil
}

// Merge overwrites populated fields from overlay. Named overrides merge
// key by key.
func (c *ResilienceConfig) Merge(overlay *ResilienceConfig) {
	c.Default.merge(&overlay.Default)

	if len(overlay.Dependencies) > 0 {
		if c.Dependencies == nil {
			c.Dependencies = make(map[string]PolicyConfig)
		}
		for name, policy := range overlay.Dependencies {
			existing := c.Dependencies[name]
			existing.merge(&policy)
			c.Dependencies[name] = existing
		}
	}
}
