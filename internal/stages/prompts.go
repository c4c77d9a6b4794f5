package stages

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"
)

// Stage prompts instruct the model to respond with bare JSON so that
// responses parse without a repair pass. Markdown-fenced JSON is still
// tolerated downstream.
var promptTemplates = map[string]string{
	StageFanoutPM: `You are a product manager reviewing a story draft for completeness.
Story: {{.StoryID}}

Current state:
{{.StateJSON}}

Identify gaps in scope, acceptance criteria, and stakeholder coverage.
Respond with JSON: {"gaps": ["..."], "rationale": "..."}`,

	StageFanoutUX: `You are a UX designer reviewing a story draft for user experience concerns.
Story: {{.StoryID}}

Current state:
{{.StateJSON}}

Identify gaps in user flows, accessibility, and interaction design.
Respond with JSON: {"gaps": ["..."], "rationale": "..."}`,

	StageFanoutQA: `You are a QA engineer reviewing a story draft for testability.
Story: {{.StoryID}}

Current state:
{{.StateJSON}}

Identify gaps in edge cases, error handling, and verification strategy.
Respond with JSON: {"gaps": ["..."], "rationale": "..."}`,

	StageAttack: `You are an adversarial reviewer attacking a story draft. This is iteration {{.Iteration}}.
Story: {{.StoryID}}

Current state:
{{.StateJSON}}

Find the weakest remaining assumptions and attack them.
Respond with JSON: {"findings": ["..."], "resolved": true|false, "rationale": "..."}`,

	StageReadiness: `You are the lead reviewer scoring a story draft for implementation readiness.
Story: {{.StoryID}}

Current state:
{{.StateJSON}}

Score readiness from 0 to 100, weighing unresolved gaps and attack findings.
Respond with JSON: {"score": 0, "rationale": "..."}`,

	StageSynthesize: `You are the lead author producing the final story document.
Story: {{.StoryID}}

Current state:
{{.StateJSON}}

Synthesize all critique and attack resolutions into the definitive story document.
Respond with JSON: {"document": "...", "summary": "..."}`,
}

type promptData struct {
	StoryID   string
	Iteration int
	StateJSON string
}

func composePrompt(name string, in Input) (string, error) {
	text, ok := promptTemplates[name]
	if !ok {
		return "", fmt.Errorf("%q: %w", name, ErrUnknownStage)
	}

	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse %s prompt: %w", name, err)
	}

	stateJSON, err := json.MarshalIndent(in.State, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal state: %w", err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, promptData{
		StoryID:   in.State.StoryID,
		Iteration: in.Iteration,
		StateJSON: string(stateJSON),
	})
	if err != nil {
		return "", fmt.Errorf("compose %s prompt: %w", name, err)
	}

	return buf.String(), nil
}
