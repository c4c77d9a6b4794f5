package runs

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/loom/internal/engine"
	"github.com/JaimeStill/loom/internal/graph"
	"github.com/JaimeStill/loom/pkg/pagination"
	"github.com/JaimeStill/loom/pkg/query"
	"github.com/JaimeStill/loom/pkg/repository"
)

const runColumns = `id, epic_prefix, story_id, phase, score, fingerprint,
				  state, outputs, created_at, updated_at`

type repo struct {
	db         *sql.DB
	engine     *engine.Engine
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a run repository implementing the System interface.
func New(
	db *sql.DB,
	eng *engine.Engine,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		engine:     eng,
		logger:     logger.With("system", "runs"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Run], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "StoryID", "EpicPrefix")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count runs: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanRun)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Run, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	run, err := repository.QueryOne(ctx, r.db, q, args, scanRun)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &run, nil
}

// History returns the ordered snapshot history for a run.
func (r *repo) History(ctx context.Context, id uuid.UUID) ([]graph.Snapshot, error) {
	run, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	return run.State.StateHistory, nil
}

// Replay reconstructs the run state as it was at the given history index.
func (r *repo) Replay(ctx context.Context, id uuid.UUID, index int) (*graph.State, error) {
	run, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	st, err := graph.Replay(run.State.StateHistory, index)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// Start creates a fresh state for the story, executes the workflow, and
// persists the resulting run. Engine failures are persisted too: the run
// record carries the failed phase and the node errors accumulated in
// state.
func (r *repo) Start(ctx context.Context, cmd StartCommand) (*Run, error) {
	st, err := graph.New(cmd.EpicPrefix, cmd.StoryID)
	if err != nil {
		return nil, err
	}

	outcome, execErr := r.engine.Execute(ctx, st)
	if execErr != nil && outcome.Phase != engine.PhaseFailed {
		return nil, execErr
	}

	run, err := r.insert(ctx, uuid.New(), cmd, outcome)
	if err != nil {
		return nil, err
	}

	r.logger.Info("run started",
		"id", run.ID,
		"story_id", run.StoryID,
		"phase", run.Phase,
		"score", run.Score,
	)
	return run, nil
}

// Resume applies a reviewer decision to a suspended run and persists the
// outcome.
func (r *repo) Resume(ctx context.Context, id uuid.UUID, cmd ResumeCommand) (*Run, error) {
	run, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	if run.Phase.Terminal() {
		return nil, fmt.Errorf("run %s in phase %s: %w", id, run.Phase, ErrTerminal)
	}

	outcome, resumeErr := r.engine.Resume(ctx, run.Phase, run.State, cmd.Decision, cmd.Fingerprint)
	if resumeErr != nil && outcome.Phase != engine.PhaseFailed {
		return nil, resumeErr
	}

	updated, err := r.update(ctx, id, outcome)
	if err != nil {
		return nil, err
	}

	r.logger.Info("run resumed",
		"id", updated.ID,
		"decision", cmd.Decision,
		"phase", updated.Phase,
	)
	return updated, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if err := repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM runs WHERE id = $1",
			id,
		); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})

	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("run deleted", "id", id)
	return nil
}

func (r *repo) insert(ctx context.Context, id uuid.UUID, cmd StartCommand, outcome engine.Outcome) (*Run, error) {
	stateJSON, outputsJSON, fingerprint, err := marshalOutcome(outcome)
	if err != nil {
		return nil, err
	}

	insertQ := fmt.Sprintf(`
		INSERT INTO runs(id, epic_prefix, story_id, phase, score, fingerprint, state, outputs)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING %s`, runColumns)

	run, err := repository.QueryOne(ctx, r.db, insertQ, []any{
		id, cmd.EpicPrefix, cmd.StoryID,
		string(outcome.Phase), outcome.Score, fingerprint,
		stateJSON, outputsJSON,
	}, scanRun)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &run, nil
}

func (r *repo) update(ctx context.Context, id uuid.UUID, outcome engine.Outcome) (*Run, error) {
	stateJSON, outputsJSON, fingerprint, err := marshalOutcome(outcome)
	if err != nil {
		return nil, err
	}

	updateQ := fmt.Sprintf(`
		UPDATE runs
		SET phase = $1, score = $2, fingerprint = $3, state = $4,
			outputs = COALESCE(outputs, '{}'::jsonb) || $5::jsonb,
			updated_at = NOW()
		WHERE id = $6
		RETURNING %s`, runColumns)

	run, err := repository.QueryOne(ctx, r.db, updateQ, []any{
		string(outcome.Phase), outcome.Score, fingerprint,
		stateJSON, outputsJSON, id,
	}, scanRun)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &run, nil
}

func marshalOutcome(outcome engine.Outcome) ([]byte, []byte, *string, error) {
	stateJSON, err := json.Marshal(outcome.State)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal state: %w", err)
	}

	outputs := outcome.Outputs
	if outputs == nil {
		outputs = map[string]json.RawMessage{}
	}
	outputsJSON, err := json.Marshal(outputs)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal outputs: %w", err)
	}

	var fingerprint *string
	if outcome.Fingerprint != "" {
		fp := outcome.Fingerprint
		fingerprint = &fp
	}

	return stateJSON, outputsJSON, fingerprint, nil
}
