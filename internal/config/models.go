package config

import (
	"os"
	"strings"
)

// ModelsConfig maps workflow stages to models. Assignments bind a stage
// name to either a local model id ("ollama:<model>:<tag>") or a managed
// tier ("cheap", "balanced", "premium"). Deployments bind each managed
// tier to a provider deployment name. LeaderStages lists the stages that
// default to the premium tier when no explicit assignment exists.
type ModelsConfig struct {
	Assignments  map[string]string `toml:"assignments"`
	Deployments  map[string]string `toml:"deployments"`
	LeaderStages []string          `toml:"leader_stages"`
}

// IsLeaderStage reports whether stage defaults to the premium tier.
func (c *ModelsConfig) IsLeaderStage(stage string) bool {
	for _, s := range c.LeaderStages {
		if s == stage {
			return true
		}
	}
	return false
}

// Finalize applies defaults and environment variable overrides.
func (c *ModelsConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return nil
}

// Merge overwrites populated fields from overlay. Assignment and
// deployment maps merge key by key.
func (c *ModelsConfig) Merge(overlay *ModelsConfig) {
	if len(overlay.Assignments) > 0 {
		if c.Assignments == nil {
			c.Assignments = make(map[string]string)
		}
		for stage, model := range overlay.Assignments {
			c.Assignments[stage] = model
		}
	}

	if len(overlay.Deployments) > 0 {
		if c.Deployments == nil {
			c.Deployments = make(map[string]string)
		}
		for tier, deployment := range overlay.Deployments {
			c.Deployments[tier] = deployment
		}
	}

	if len(overlay.LeaderStages) > 0 {
		c.LeaderStages = overlay.LeaderStages
	}
}

func (c *ModelsConfig) loadDefaults() {
	if c.Assignments == nil {
		c.Assignments = make(map[string]string)
	}

	if c.Deployments == nil {
		c.Deployments = make(map[string]string)
	}

	if _, ok := c.Deployments["cheap"]; !ok {
		c.Deployments["cheap"] = "gpt-4o-mini"
	}

	if _, ok := c.Deployments["balanced"]; !ok {
		c.Deployments["balanced"] = "gpt-4o"
	}

	if _, ok := c.Deployments["premium"]; !ok {
		c.Deployments["premium"] = "gpt-4.1"
	}

	if len(c.LeaderStages) == 0 {
		c.LeaderStages = []string{"readiness-score", "synthesize"}
	}
}

func (c *ModelsConfig) loadEnv() {
	if v := os.Getenv("LOOM_MODELS_LEADER_STAGES"); v != "" {
		stages := strings.Split(v, ",")
		for i, s := range stages {
			stages[i] = strings.TrimSpace(s)
		}
		c.LeaderStages = stages
	}
}
