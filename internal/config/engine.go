package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// EngineConfig controls workflow execution thresholds and pacing.
type EngineConfig struct {
	AutoApprovalThreshold int    `toml:"auto_approval_threshold"`
	MinReadinessScore     int    `toml:"min_readiness_score"`
	MaxCritiqueIterations int    `toml:"max_critique_iterations"`
	RequireHiTL           *bool  `toml:"require_hitl"`
	SequentialFanout      bool   `toml:"sequential_fanout"`
	NodeTimeout           string `toml:"node_timeout"`
}

// HiTLRequired reports whether human review gates are enforced. Defaults
// to true when unset.
func (c *EngineConfig) HiTLRequired() bool {
	if c.RequireHiTL == nil {
		return true
	}
	return *c.RequireHiTL
}

// NodeTimeoutDuration returns the parsed per-node timeout.
func (c *EngineConfig) NodeTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.NodeTimeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *EngineConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *EngineConfig) Merge(overlay *EngineConfig) {
	if overlay.AutoApprovalThreshold != 0 {
		c.AutoApprovalThreshold = overlay.AutoApprovalThreshold
	}

	if overlay.MinReadinessScore != 0 {
		c.MinReadinessScore = overlay.MinReadinessScore
	}

	if overlay.MaxCritiqueIterations != 0 {
		c.MaxCritiqueIterations = overlay.MaxCritiqueIterations
	}

	if overlay.RequireHiTL != nil {
		c.RequireHiTL = overlay.RequireHiTL
	}

	if overlay.SequentialFanout {
		c.SequentialFanout = true
	}

	if overlay.NodeTimeout != "" {
		c.NodeTimeout = overlay.NodeTimeout
	}
}

func (c *EngineConfig) loadDefaults() {
	if c.AutoApprovalThreshold == 0 {
		c.AutoApprovalThreshold = 95
	}

	if c.MinReadinessScore == 0 {
		c.MinReadinessScore = 70
	}

	if c.MaxCritiqueIterations == 0 {
		c.MaxCritiqueIterations = 3
	}

	if c.NodeTimeout == "" {
		c.NodeTimeout = "30s"
	}
}

func (c *EngineConfig) loadEnv() {
	if v := os.Getenv("LOOM_ENGINE_AUTO_APPROVAL_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.AutoApprovalThreshold = n
		}
	}

	if v := os.Getenv("LOOM_ENGINE_MIN_READINESS_SCORE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MinReadinessScore = n
		}
	}

	if v := os.Getenv("LOOM_ENGINE_MAX_CRITIQUE_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxCritiqueIterations = n
		}
	}

	if v := os.Getenv("LOOM_ENGINE_REQUIRE_HITL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.RequireHiTL = &b
		}
	}

	if v := os.Getenv("LOOM_ENGINE_SEQUENTIAL_FANOUT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.SequentialFanout = b
		}
	}

	if v := os.Getenv("LOOM_ENGINE_NODE_TIMEOUT"); v != "" {
		c.NodeTimeout = v
	}
}

func (c *EngineConfig) validate() error {
	if c.AutoApprovalThreshold < 0 || c.AutoApprovalThreshold > 100 {
		return fmt.Errorf("auto_approval_threshold must be within 0..100, got %d", c.AutoApprovalThreshold)
	}

	if c.MinReadinessScore < 0 || c.MinReadinessScore > 100 {
		return fmt.Errorf("min_readiness_score must be within 0..100, got %d", c.MinReadinessScore)
	}

	if c.MinReadinessScore > c.AutoApprovalThreshold {
		return fmt.Errorf(
			"min_readiness_score %d exceeds auto_approval_threshold %d",
			c.MinReadinessScore, c.AutoApprovalThreshold,
		)
	}

	if c.MaxCritiqueIterations < 1 {
		return fmt.Errorf("max_critique_iterations must be at least 1, got %d", c.MaxCritiqueIterations)
	}

	if _, err := time.ParseDuration(c.NodeTimeout); err != nil {
		return fmt.Errorf("invalid node_timeout %q: %w", c.NodeTimeout, err)
	}

	return nil
}
