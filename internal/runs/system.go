package runs

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/loom/internal/graph"
	"github.com/JaimeStill/loom/pkg/pagination"
)

// System defines the public contract for run domain operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Run], error)

	Find(ctx context.Context, id uuid.UUID) (*Run, error)
	History(ctx context.Context, id uuid.UUID) ([]graph.Snapshot, error)
	Replay(ctx context.Context, id uuid.UUID, index int) (*graph.State, error)
	Start(ctx context.Context, cmd StartCommand) (*Run, error)
	Resume(ctx context.Context, id uuid.UUID, cmd ResumeCommand) (*Run, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
