package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/JaimeStill/go-agents/pkg/agent"
	gaconfig "github.com/JaimeStill/go-agents/pkg/config"

	"github.com/JaimeStill/loom/internal/graph"
	"github.com/JaimeStill/loom/internal/models"
	"github.com/JaimeStill/loom/pkg/formatting"
)

type critiqueResponse struct {
	Gaps      []string `json:"gaps"`
	Rationale string   `json:"rationale"`
}

type attackResponse struct {
	Findings  []string `json:"findings"`
	Resolved  bool     `json:"resolved"`
	Rationale string   `json:"rationale"`
}

type readinessResponse struct {
	Score     int    `json:"score"`
	Rationale string `json:"rationale"`
}

type synthesisResponse struct {
	Document string `json:"document"`
	Summary  string `json:"summary"`
}

// NewAgentSet builds the standard stage set backed by go-agents chat
// inference. Each stage creates its own agent from the base config with
// the resolved model applied, so concurrent fanout branches never share
// client state.
func NewAgentSet(base gaconfig.AgentConfig, logger *slog.Logger) Set {
	logger = logger.With("system", "stages")

	set := make(Set)
	set.Register(StageFanoutPM, critiqueStage(base, logger, StageFanoutPM, graph.ArtifactPMGaps))
	set.Register(StageFanoutUX, critiqueStage(base, logger, StageFanoutUX, graph.ArtifactUXGaps))
	set.Register(StageFanoutQA, critiqueStage(base, logger, StageFanoutQA, graph.ArtifactQAGaps))
	set.Register(StageAttack, attackStage(base, logger))
	set.Register(StageReadiness, readinessStage(base, logger))
	set.Register(StageSynthesize, synthesizeStage(base, logger))
	return set
}

func critiqueStage(base gaconfig.AgentConfig, logger *slog.Logger, name string, artifact graph.ArtifactType) Stage {
	return func(ctx context.Context, in Input) (Result, error) {
		parsed, err := infer[critiqueResponse](ctx, base, name, in)
		if err != nil {
			return Result{}, err
		}

		logger.InfoContext(ctx, "critique complete", "stage", name, "gaps", len(parsed.Gaps))

		output, err := json.Marshal(parsed)
		if err != nil {
			return Result{}, fmt.Errorf("%s: marshal output: %w", name, err)
		}

		return Result{
			Output: output,
			Evidence: []graph.EvidenceRef{{
				Type:        string(artifact),
				Path:        fmt.Sprintf("%s/%s.json", in.State.StoryID, name),
				Timestamp:   time.Now().UTC(),
				Description: parsed.Rationale,
			}},
		}, nil
	}
}

func attackStage(base gaconfig.AgentConfig, logger *slog.Logger) Stage {
	return func(ctx context.Context, in Input) (Result, error) {
		parsed, err := infer[attackResponse](ctx, base, StageAttack, in)
		if err != nil {
			return Result{}, err
		}

		logger.InfoContext(
			ctx, "attack complete",
			"iteration", in.Iteration,
			"findings", len(parsed.Findings),
			"resolved", parsed.Resolved,
		)

		output, err := json.Marshal(parsed)
		if err != nil {
			return Result{}, fmt.Errorf("%s: marshal output: %w", StageAttack, err)
		}

		return Result{
			Output: output,
			Evidence: []graph.EvidenceRef{{
				Type:        string(graph.ArtifactAttackLog),
				Path:        fmt.Sprintf("%s/attack-%d.json", in.State.StoryID, in.Iteration),
				Timestamp:   time.Now().UTC(),
				Description: parsed.Rationale,
			}},
		}, nil
	}
}

func readinessStage(base gaconfig.AgentConfig, logger *slog.Logger) Stage {
	return func(ctx context.Context, in Input) (Result, error) {
		parsed, err := infer[readinessResponse](ctx, base, StageReadiness, in)
		if err != nil {
			return Result{}, err
		}

		if parsed.Score < 0 || parsed.Score > 100 {
			return Result{}, fmt.Errorf("%s: score %d out of range", StageReadiness, parsed.Score)
		}

		logger.InfoContext(ctx, "readiness scored", "score", parsed.Score)

		output, err := json.Marshal(parsed)
		if err != nil {
			return Result{}, fmt.Errorf("%s: marshal output: %w", StageReadiness, err)
		}

		score := parsed.Score
		return Result{Output: output, Score: &score}, nil
	}
}

func synthesizeStage(base gaconfig.AgentConfig, logger *slog.Logger) Stage {
	return func(ctx context.Context, in Input) (Result, error) {
		parsed, err := infer[synthesisResponse](ctx, base, StageSynthesize, in)
		if err != nil {
			return Result{}, err
		}

		logger.InfoContext(ctx, "synthesis complete", "story_id", in.State.StoryID)

		output, err := json.Marshal(parsed)
		if err != nil {
			return Result{}, fmt.Errorf("%s: marshal output: %w", StageSynthesize, err)
		}

		return Result{
			Output: output,
			Evidence: []graph.EvidenceRef{{
				Type:        string(graph.ArtifactStoryDoc),
				Path:        fmt.Sprintf("%s/story.json", in.State.StoryID),
				Timestamp:   time.Now().UTC(),
				Description: parsed.Summary,
			}},
		}, nil
	}
}

func infer[T any](ctx context.Context, base gaconfig.AgentConfig, name string, in Input) (T, error) {
	var zero T

	cfg := configureAgent(base, in.Model)
	a, err := agent.New(&cfg)
	if err != nil {
		return zero, fmt.Errorf("%s: create agent: %w", name, err)
	}

	prompt, err := composePrompt(name, in)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", name, err)
	}

	resp, err := a.Chat(ctx, prompt)
	if err != nil {
		return zero, fmt.Errorf("%s: chat call: %w", name, err)
	}

	parsed, err := formatting.Parse[T](resp.Text())
	if err != nil {
		return zero, fmt.Errorf("%s: parse response: %w", name, err)
	}

	return parsed, nil
}

// configureAgent applies a model resolution to a copy of the base agent
// config. Local models switch the provider to ollama; managed models
// set the deployment option on the configured provider.
func configureAgent(base gaconfig.AgentConfig, res models.Resolution) gaconfig.AgentConfig {
	cfg := base

	provider := gaconfig.ProviderConfig{}
	if base.Provider != nil {
		provider = *base.Provider
	}
	provider.Options = make(map[string]any, len(provider.Options))
	if base.Provider != nil {
		for k, v := range base.Provider.Options {
			provider.Options[k] = v
		}
	}

	model := gaconfig.ModelConfig{}
	if base.Model != nil {
		model = *base.Model
	}

	switch res.Provider {
	case models.ProviderOllama:
		provider.Name = string(models.ProviderOllama)
		model.Name = res.ModelID
	case models.ProviderAzure:
		provider.Name = string(models.ProviderAzure)
		provider.Options["deployment"] = res.ModelID
		model.Name = res.ModelID
	}

	cfg.Provider = &provider
	cfg.Model = &model
	return cfg
}
