// Package engine drives a run through the workflow lifecycle: setup,
// parallel critique fanout, the adversarial critique loop, the readiness
// gate, and final synthesis. Every dependency call runs under the
// resilience policy registered for that dependency, and every phase
// transition records a state snapshot.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/loom/internal/config"
	"github.com/JaimeStill/loom/internal/graph"
	"github.com/JaimeStill/loom/internal/models"
	"github.com/JaimeStill/loom/internal/resilience"
	"github.com/JaimeStill/loom/internal/stages"
	"github.com/JaimeStill/loom/pkg/storage"
)

// Dependency names under which engine calls are registered with the
// resilience registry.
const (
	DepInferenceAzure  = "inference-azure"
	DepInferenceOllama = "inference-ollama"
	DepStorage         = "storage"
)

// Engine executes workflow runs.
type Engine struct {
	cfg      config.EngineConfig
	router   *models.Router
	policies *resilience.Registry
	stages   stages.Set
	storage  storage.System
	logger   *slog.Logger
}

// Outcome is the result of executing or resuming a run. Phase is
// PhaseSuspended when a reviewer decision is required; Fingerprint is
// set only in that case and must be echoed on resume.
type Outcome struct {
	Phase       Phase                      `json:"phase"`
	State       graph.State                `json:"state"`
	Score       int                        `json:"score"`
	Fingerprint string                     `json:"fingerprint,omitempty"`
	Outputs     map[string]json.RawMessage `json:"outputs,omitempty"`
}

// Suspended reports whether the outcome awaits a reviewer decision.
func (o Outcome) Suspended() bool {
	return o.Phase == PhaseSuspended
}

// New creates an Engine over finalized configuration and shared systems.
func New(
	cfg config.EngineConfig,
	router *models.Router,
	policies *resilience.Registry,
	set stages.Set,
	store storage.System,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		cfg:      cfg,
		router:   router,
		policies: policies,
		stages:   set,
		storage:  store,
		logger:   logger.With("system", "engine"),
	}
}

// Execute runs the full workflow from a freshly created state. It
// returns a terminal outcome, or a suspended one when the readiness
// gate requires a reviewer.
func (e *Engine) Execute(ctx context.Context, st graph.State) (Outcome, error) {
	if err := st.Validate(); err != nil {
		return Outcome{}, fmt.Errorf("setup: %w", err)
	}

	e.logger.InfoContext(ctx, "run started", "story_id", st.StoryID)

	outcome := Outcome{Phase: PhaseSetup, Outputs: make(map[string]json.RawMessage)}

	st, err := e.setup(st)
	if err != nil {
		return e.fail(outcome, st, PhaseSetup, err)
	}
	outcome.State = st

	phase, err := e.transition(outcome.Phase, PhaseFanout)
	if err != nil {
		return Outcome{}, err
	}
	outcome.Phase = phase

	st, err = e.fanout(ctx, st, outcome.Outputs)
	if err != nil {
		return e.fail(outcome, st, PhaseFanout, err)
	}
	outcome.State = st

	phase, err = e.transition(outcome.Phase, PhaseCritique)
	if err != nil {
		return Outcome{}, err
	}
	outcome.Phase = phase

	st, score, err := e.critique(ctx, st, outcome.Outputs)
	if err != nil {
		return e.fail(outcome, st, PhaseCritique, err)
	}
	outcome.State = st
	outcome.Score = score

	phase, err = e.transition(outcome.Phase, PhaseGate)
	if err != nil {
		return Outcome{}, err
	}
	outcome.Phase = phase

	return e.gate(ctx, outcome)
}

// Resume continues a suspended run with a reviewer decision. The
// fingerprint must match the suspended state, otherwise the resume is
// rejected as stale.
func (e *Engine) Resume(ctx context.Context, phase Phase, st graph.State, decision Decision, fingerprint string) (Outcome, error) {
	if phase != PhaseSuspended {
		return Outcome{}, fmt.Errorf("phase %s: %w", phase, ErrNotSuspended)
	}
	if !decision.Valid() {
		return Outcome{}, fmt.Errorf("%q: %w", decision, ErrInvalidDecision)
	}
	if err := st.Validate(); err != nil {
		return Outcome{}, fmt.Errorf("resume: %w", err)
	}
	current, err := st.Fingerprint()
	if err != nil {
		return Outcome{}, fmt.Errorf("resume: %w", err)
	}
	if current != fingerprint {
		return Outcome{}, fmt.Errorf("%w: got %s, state is %s", ErrStaleResume, fingerprint, current)
	}

	e.logger.InfoContext(ctx, "run resumed", "story_id", st.StoryID, "decision", decision)

	outcome := Outcome{
		Phase:   PhaseSuspended,
		State:   st,
		Outputs: make(map[string]json.RawMessage),
	}

	switch decision {
	case DecisionApprove:
		st, err := e.recordGate(st, graph.GateCommitment, graph.DecisionApprove)
		if err != nil {
			return Outcome{}, err
		}
		outcome.State = st
		return e.synthesize(ctx, outcome)

	case DecisionRevise:
		st, err := e.recordGate(st, graph.GateCommitment, graph.DecisionEscalate)
		if err != nil {
			return Outcome{}, err
		}

		phase, err := e.transition(outcome.Phase, PhaseCritique)
		if err != nil {
			return Outcome{}, err
		}
		outcome.Phase = phase

		st, score, err := e.critique(ctx, st, outcome.Outputs)
		if err != nil {
			return e.fail(outcome, st, PhaseCritique, err)
		}
		outcome.State = st
		outcome.Score = score

		phase, err = e.transition(outcome.Phase, PhaseGate)
		if err != nil {
			return Outcome{}, err
		}
		outcome.Phase = phase
		return e.gate(ctx, outcome)

	case DecisionReject:
		return e.reject(outcome, st)

	case DecisionDefer:
		// The run stays suspended; the fingerprint remains valid.
		outcome.Fingerprint = fingerprint
		return outcome, nil
	}

	return Outcome{}, fmt.Errorf("%q: %w", decision, ErrInvalidDecision)
}

func (e *Engine) setup(st graph.State) (graph.State, error) {
	if st.StoryState == "" {
		drafting := graph.StoryDrafting
		next, err := st.Apply(graph.Patch{StoryState: &drafting})
		if err != nil {
			return st, err
		}
		st = next
	}
	return st.Record(), nil
}

// fanout runs the critique perspectives, concurrently unless configured
// sequential. Branch failures are recoverable: each is recorded as a
// node error and the run continues with partial results. Only when every
// branch fails does the run fail.
func (e *Engine) fanout(ctx context.Context, st graph.State, outputs map[string]json.RawMessage) (graph.State, error) {
	names := stages.FanoutStages
	results := make([]stages.Result, len(names))
	errs := make([]error, len(names))

	if e.cfg.SequentialFanout {
		for i, name := range names {
			results[i], errs[i] = e.runStage(ctx, name, st.Core, 0)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(len(names))
		for i, name := range names {
			g.Go(func() error {
				// Sibling branches keep running when one fails.
				results[i], errs[i] = e.runStage(ctx, name, st.Core, 0)
				return nil
			})
		}
		g.Wait()
	}

	patch := graph.Patch{ArtifactPaths: make(map[graph.ArtifactType]string)}
	failures := 0

	for i, name := range names {
		if errs[i] != nil {
			failures++
			e.logger.WarnContext(ctx, "fanout branch failed", "stage", name, "error", errs[i])
			patch.Errors = append(patch.Errors, nodeError(name, errs[i], true))
			continue
		}

		outputs[name] = results[i].Output
		patch.EvidenceRefs = append(patch.EvidenceRefs, results[i].Evidence...)
		for _, ref := range results[i].Evidence {
			patch.ArtifactPaths[graph.ArtifactType(ref.Type)] = ref.Path
		}
	}

	if failures == len(names) {
		return st, ErrFanoutFailed
	}

	next, err := st.Apply(patch)
	if err != nil {
		return st, err
	}
	return next.Record(), nil
}

// critique alternates adversarial attack and readiness scoring, exiting
// early once the score clears the configured minimum.
func (e *Engine) critique(ctx context.Context, st graph.State, outputs map[string]json.RawMessage) (graph.State, int, error) {
	score := 0

	for iteration := 1; iteration <= e.cfg.MaxCritiqueIterations; iteration++ {
		attack, err := e.runStage(ctx, stages.StageAttack, st.Core, iteration)
		if err != nil {
			// Attack failures degrade the loop but never kill the run.
			e.logger.WarnContext(ctx, "attack iteration failed", "iteration", iteration, "error", err)
			next, applyErr := st.Apply(graph.Patch{Errors: []graph.NodeError{nodeError(stages.StageAttack, err, true)}})
			if applyErr != nil {
				return st, score, applyErr
			}
			st = next
		} else {
			outputs[fmt.Sprintf("%s-%d", stages.StageAttack, iteration)] = attack.Output

			patch := graph.Patch{
				EvidenceRefs:  attack.Evidence,
				ArtifactPaths: make(map[graph.ArtifactType]string),
			}
			for _, ref := range attack.Evidence {
				patch.ArtifactPaths[graph.ArtifactType(ref.Type)] = ref.Path
			}

			next, err := st.Apply(patch)
			if err != nil {
				return st, score, err
			}
			st = next
		}

		readiness, err := e.runStage(ctx, stages.StageReadiness, st.Core, iteration)
		if err != nil {
			return st, score, fmt.Errorf("readiness scoring: %w", err)
		}
		if readiness.Score == nil {
			return st, score, fmt.Errorf("readiness scoring returned no score")
		}

		score = *readiness.Score
		outputs[fmt.Sprintf("%s-%d", stages.StageReadiness, iteration)] = readiness.Output
		st = st.Record()

		e.logger.InfoContext(
			ctx, "critique iteration complete",
			"iteration", iteration,
			"score", score,
		)

		if score >= e.cfg.MinReadinessScore {
			break
		}
	}

	return st, score, nil
}

// gate applies the readiness gate. A run auto-approves only when human
// review is disabled and the score clears the auto-approval threshold;
// every other run suspends for a reviewer decision.
func (e *Engine) gate(ctx context.Context, outcome Outcome) (Outcome, error) {
	autoApprove := !e.cfg.HiTLRequired() && outcome.Score >= e.cfg.AutoApprovalThreshold

	if autoApprove {
		st, err := e.recordGate(outcome.State, graph.GateReadiness, graph.DecisionApprove)
		if err != nil {
			return Outcome{}, err
		}
		outcome.State = st

		e.logger.InfoContext(ctx, "gate auto-approved", "score", outcome.Score)
		return e.synthesize(ctx, outcome)
	}

	st, err := e.recordGate(outcome.State, graph.GateReadiness, graph.DecisionEscalate)
	if err != nil {
		return Outcome{}, err
	}

	phase, err := e.transition(outcome.Phase, PhaseSuspended)
	if err != nil {
		return Outcome{}, err
	}

	fingerprint, err := st.Fingerprint()
	if err != nil {
		return Outcome{}, err
	}

	outcome.Phase = phase
	outcome.State = st
	outcome.Fingerprint = fingerprint

	e.logger.InfoContext(
		ctx, "run suspended for review",
		"story_id", st.StoryID,
		"score", outcome.Score,
	)
	return outcome, nil
}

func (e *Engine) synthesize(ctx context.Context, outcome Outcome) (Outcome, error) {
	phase, err := e.transition(outcome.Phase, PhaseSynthesize)
	if err != nil {
		return Outcome{}, err
	}
	outcome.Phase = phase

	st := outcome.State
	result, err := e.runStage(ctx, stages.StageSynthesize, st.Core, 0)
	if err != nil {
		return e.fail(outcome, st, PhaseSynthesize, err)
	}
	outcome.Outputs[stages.StageSynthesize] = result.Output

	key := fmt.Sprintf("%s/story.json", st.StoryID)
	err = e.policies.For(DepStorage).Do(ctx, func(ctx context.Context) error {
		return e.storage.Upload(ctx, key, bytes.NewReader(result.Output), "application/json")
	})
	if err != nil {
		return e.fail(outcome, st, PhaseSynthesize, fmt.Errorf("upload story document: %w", err))
	}

	done := graph.StoryDone
	patch := graph.Patch{
		StoryState:    &done,
		ArtifactPaths: map[graph.ArtifactType]string{graph.ArtifactStoryDoc: key},
		RoutingFlags:  map[graph.RoutingFlag]bool{graph.FlagComplete: true},
		EvidenceRefs:  result.Evidence,
	}

	next, err := st.Apply(patch)
	if err != nil {
		return Outcome{}, err
	}
	outcome.State = next.Record()

	phase, err = e.transition(outcome.Phase, PhaseCompleted)
	if err != nil {
		return Outcome{}, err
	}
	outcome.Phase = phase
	outcome.Fingerprint = ""

	e.logger.InfoContext(ctx, "run completed", "story_id", st.StoryID, "artifact", key)
	return outcome, nil
}

func (e *Engine) reject(outcome Outcome, st graph.State) (Outcome, error) {
	st, err := e.recordGate(st, graph.GateCommitment, graph.DecisionReject)
	if err != nil {
		return Outcome{}, err
	}

	blocked := graph.StoryBlocked
	reason := "rejected by reviewer"
	next, err := st.Apply(graph.Patch{
		StoryState:   &blocked,
		BlockedBy:    &reason,
		RoutingFlags: map[graph.RoutingFlag]bool{graph.FlagBlocked: true},
	})
	if err != nil {
		return Outcome{}, err
	}

	phase, err := e.transition(outcome.Phase, PhaseFailed)
	if err != nil {
		return Outcome{}, err
	}

	outcome.Phase = phase
	outcome.State = next.Record()
	outcome.Fingerprint = ""

	e.logger.Info("run rejected", "story_id", st.StoryID)
	return outcome, nil
}

// runStage resolves the stage's model, then executes it under the node
// timeout and the resilience policy for the resolved provider.
func (e *Engine) runStage(ctx context.Context, name string, core graph.Core, iteration int) (stages.Result, error) {
	stage, err := e.stages.Lookup(name)
	if err != nil {
		return stages.Result{}, err
	}

	resolution, err := e.router.Resolve(name)
	if err != nil {
		return stages.Result{}, fmt.Errorf("%s: resolve model: %w", name, err)
	}

	nodeCtx, cancel := context.WithTimeout(ctx, e.cfg.NodeTimeoutDuration())
	defer cancel()

	policy := e.policies.For(dependencyFor(resolution.Provider))
	return resilience.Execute(nodeCtx, policy, func(ctx context.Context) (stages.Result, error) {
		return stage(ctx, stages.Input{
			State:     core,
			Model:     resolution,
			Iteration: iteration,
		})
	})
}

func (e *Engine) fail(outcome Outcome, st graph.State, phase Phase, cause error) (Outcome, error) {
	blocked := graph.StoryBlocked
	next, applyErr := st.Apply(graph.Patch{
		StoryState:   &blocked,
		RoutingFlags: map[graph.RoutingFlag]bool{graph.FlagBlocked: true},
		Errors:       []graph.NodeError{nodeError(string(phase), cause, false)},
	})
	if applyErr == nil {
		st = next.Record()
	}

	outcome.State = st
	outcome.Phase = PhaseFailed
	outcome.Fingerprint = ""

	e.logger.Error("run failed", "story_id", st.StoryID, "phase", phase, "error", cause)
	return outcome, fmt.Errorf("%s: %w", phase, cause)
}

func (e *Engine) recordGate(st graph.State, gate graph.GateType, decision graph.GateDecision) (graph.State, error) {
	next, err := st.Apply(graph.Patch{
		GateDecisions: map[graph.GateType]graph.GateDecision{gate: decision},
	})
	if err != nil {
		return st, err
	}
	return next.Record(), nil
}

func dependencyFor(provider models.Provider) string {
	if provider == models.ProviderOllama {
		return DepInferenceOllama
	}
	return DepInferenceAzure
}

func nodeError(stage string, err error, recoverable bool) graph.NodeError {
	return graph.NodeError{
		Stage:       stage,
		Code:        "stage_failed",
		Message:     err.Error(),
		Timestamp:   time.Now().UTC(),
		Recoverable: recoverable,
	}
}
