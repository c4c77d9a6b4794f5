package api

import (
	"fmt"

	"github.com/JaimeStill/loom/internal/config"
	"github.com/JaimeStill/loom/internal/engine"
	"github.com/JaimeStill/loom/internal/infrastructure"
	"github.com/JaimeStill/loom/internal/models"
	"github.com/JaimeStill/loom/internal/resilience"
	"github.com/JaimeStill/loom/internal/stages"
	"github.com/JaimeStill/loom/pkg/pagination"
)

// Runtime extends Infrastructure with the model router, resilience
// registry, and workflow engine the API module depends on.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination pagination.Config
	Router     *models.Router
	Policies   *resilience.Registry
	Engine     *engine.Engine
}

// NewRuntime creates an API runtime with a module-scoped logger. Model
// assignments are validated here so a misconfigured stage fails startup
// rather than the first run that hits it.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) (*Runtime, error) {
	if err := models.ValidateAssignments(&cfg.Models); err != nil {
		return nil, fmt.Errorf("model assignments: %w", err)
	}

	logger := infra.Logger.With("module", "api")

	router := models.NewRouter(&cfg.Models)
	policies := resilience.NewRegistry(cfg.Resilience, logger)
	set := stages.NewAgentSet(cfg.Agent.AgentConfig, logger)

	eng := engine.New(
		cfg.Engine,
		router,
		policies,
		set,
		infra.Storage,
		logger,
	)

	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    logger,
			Database:  infra.Database,
			Storage:   infra.Storage,
		},
		Pagination: cfg.API.Pagination,
		Router:     router,
		Policies:   policies,
		Engine:     eng,
	}, nil
}
