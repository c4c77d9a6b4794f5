// Package stages defines the unit of work executed by workflow nodes:
// a named function that takes the current graph state and a resolved
// model, and produces structured output with supporting evidence.
package stages

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/JaimeStill/loom/internal/graph"
	"github.com/JaimeStill/loom/internal/models"
)

// Stage names referenced by model assignments and workflow nodes.
const (
	StageSetup      = "setup"
	StageFanoutPM   = "fanout-pm"
	StageFanoutUX   = "fanout-ux"
	StageFanoutQA   = "fanout-qa"
	StageAttack     = "attack"
	StageReadiness  = "readiness-score"
	StageSynthesize = "synthesize"
)

// FanoutStages lists the critique perspectives executed in parallel.
var FanoutStages = []string{StageFanoutPM, StageFanoutUX, StageFanoutQA}

// ErrUnknownStage indicates a stage name with no registered implementation.
var ErrUnknownStage = errors.New("unknown stage")

// Input carries everything a stage needs to run.
type Input struct {
	State     graph.Core
	Model     models.Resolution
	Iteration int
}

// Result is the structured output of a single stage execution.
type Result struct {
	Output   json.RawMessage     `json:"output"`
	Evidence []graph.EvidenceRef `json:"evidence,omitempty"`
	Score    *int                `json:"score,omitempty"`
}

// Stage executes one unit of workflow work.
type Stage func(ctx context.Context, in Input) (Result, error)

// Set maps stage names to implementations.
type Set map[string]Stage

// Register binds name to stage, replacing any existing binding.
func (s Set) Register(name string, stage Stage) {
	s[name] = stage
}

// Lookup returns the stage registered under name.
func (s Set) Lookup(name string) (Stage, error) {
	stage, ok := s[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownStage)
	}
	return stage, nil
}
