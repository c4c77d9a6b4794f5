package models

import (
	"fmt"

	"github.com/JaimeStill/loom/internal/config"
)

// ValidateAssignments checks that every stage assignment resolves to a
// usable model and that every managed tier has a deployment. Called once
// at startup so misconfiguration fails before any run starts.
func ValidateAssignments(cfg *config.ModelsConfig) error {
	for stage, id := range cfg.Assignments {
		if IsLocalModel(id) || IsManagedModel(id) {
			continue
		}
		return fmt.Errorf(
			"stage %q: model %q is neither a local identifier nor a managed tier",
			stage, id,
		)
	}

	for _, tier := range tiers {
		if cfg.Deployments[string(tier)] == "" {
			return fmt.Errorf("managed tier %q has no deployment configured", tier)
		}
	}

	return nil
}
