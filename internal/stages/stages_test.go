package stages

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"

	"github.com/JaimeStill/loom/internal/graph"
	"github.com/JaimeStill/loom/internal/models"
)

func baseAgentConfig() gaconfig.AgentConfig {
	return gaconfig.AgentConfig{
		Name: "test-agent",
		Provider: &gaconfig.ProviderConfig{
			Name:    "azure",
			BaseURL: "https://example.openai.azure.com",
			Options: map[string]any{"auth_type": "api_key"},
		},
		Model: &gaconfig.ModelConfig{
			Name: "gpt-4o-mini",
		},
	}
}

func TestSetRegisterAndLookup(t *testing.T) {
	set := Set{}
	set.Register(StageAttack, func(ctx context.Context, in Input) (Result, error) {
		return Result{Output: json.RawMessage(`{}`)}, nil
	})

	stage, err := set.Lookup(StageAttack)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if stage == nil {
		t.Fatal("lookup returned nil stage")
	}

	_, err = set.Lookup("deploy")
	if !errors.Is(err, ErrUnknownStage) {
		t.Errorf("expected ErrUnknownStage, got %v", err)
	}
}

func TestFanoutStages(t *testing.T) {
	want := []string{StageFanoutPM, StageFanoutUX, StageFanoutQA}
	if len(FanoutStages) != len(want) {
		t.Fatalf("fanout stages: got %d, want %d", len(FanoutStages), len(want))
	}
	for i, name := range want {
		if FanoutStages[i] != name {
			t.Errorf("fanout[%d]: got %s, want %s", i, FanoutStages[i], name)
		}
	}
}

func TestComposePrompt(t *testing.T) {
	st, err := graph.New("AUTH", "AUTH-42")
	if err != nil {
		t.Fatalf("new state: %v", err)
	}

	in := Input{
		State:     st.Core,
		Model:     models.Resolution{Provider: models.ProviderAzure, ModelID: "gpt-4.1"},
		Iteration: 2,
	}

	prompt, err := composePrompt(StageAttack, in)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}

	if !strings.Contains(prompt, "AUTH-42") {
		t.Error("prompt should include the story id")
	}
	if !strings.Contains(prompt, "iteration 2") {
		t.Error("attack prompt should include the iteration")
	}
	if !strings.Contains(prompt, `"story_id": "AUTH-42"`) {
		t.Error("prompt should embed the serialized state")
	}
}

func TestComposePromptCoversEveryStage(t *testing.T) {
	st, err := graph.New("AUTH", "AUTH-1")
	if err != nil {
		t.Fatalf("new state: %v", err)
	}
	in := Input{State: st.Core, Iteration: 1}

	for _, name := range []string{
		StageFanoutPM, StageFanoutUX, StageFanoutQA,
		StageAttack, StageReadiness, StageSynthesize,
	} {
		if _, err := composePrompt(name, in); err != nil {
			t.Errorf("compose %s: %v", name, err)
		}
	}
}

func TestComposePromptUnknownStage(t *testing.T) {
	_, err := composePrompt("deploy", Input{})
	if !errors.Is(err, ErrUnknownStage) {
		t.Errorf("expected ErrUnknownStage, got %v", err)
	}
}

func TestConfigureAgentLocal(t *testing.T) {
	base := baseAgentConfig()

	cfg := configureAgent(base, models.Resolution{
		Provider: models.ProviderOllama,
		ModelID:  "qwen2.5-coder:7b",
	})

	if cfg.Provider.Name != "ollama" {
		t.Errorf("provider: got %s, want ollama", cfg.Provider.Name)
	}
	if cfg.Model.Name != "qwen2.5-coder:7b" {
		t.Errorf("model: got %s, want qwen2.5-coder:7b", cfg.Model.Name)
	}
}

func TestConfigureAgentManaged(t *testing.T) {
	base := baseAgentConfig()

	cfg := configureAgent(base, models.Resolution{
		Provider: models.ProviderAzure,
		ModelID:  "gpt-4.1",
	})

	if cfg.Provider.Name != "azure" {
		t.Errorf("provider: got %s, want azure", cfg.Provider.Name)
	}
	if got := cfg.Provider.Options["deployment"]; got != "gpt-4.1" {
		t.Errorf("deployment option: got %v, want gpt-4.1", got)
	}
	if base.Provider.Options["deployment"] != nil {
		t.Error("configureAgent must not mutate the base options map")
	}
}
