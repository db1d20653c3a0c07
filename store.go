package kanban

import (
	"context"
	"fmt"
)

// Store is everything the HTTP layer needs from storage.
type Store interface {
	CreateBoard(ctx context.Context, in CreateBoardInput) (Board, error)
	CreateTask(ctx context.Context, in CreateTaskInput) (Task, error)

	ListBoards(ctx context.Context) ([]Board, error)
	ListTasksByBoard(ctx context.Context, boardID string) ([]Task, error)
	ListTasksByStatus(ctx context.Context, status Status) ([]TaskStatusView, error)
	ListTasksByAssignee(ctx context.Context, assigneeID string) ([]TaskAssigneeView, error)

	// UpdateTaskStatus sets the status of a task without checking that it exists.
	UpdateTaskStatus(ctx context.Context, boardID, taskID string, status Status) error
	// DeleteTask succeeds when the task does not exist.
	DeleteTask(ctx context.Context, boardID, taskID string) error
	// DeleteBoard removes the board and every task under it. Items the store
	// kept refusing are listed in the report rather than failing the call.
	DeleteBoard(ctx context.Context, boardID string) (DeleteBoardReport, error)
}

// ItemKey is the primary key of a stored item.
type ItemKey struct {
	PK string `json:"pk"`
	SK string `json:"sk"`
}

func (k ItemKey) String() string {
	return fmt.Sprintf("%s/%s", k.PK, k.SK)
}

// DeleteBoardReport describes the outcome of a cascading board delete.
type DeleteBoardReport struct {
	BoardID    string
	ItemsFound int
	Batches    int
	// Residual holds the keys still present after the retry ceiling.
	Residual []ItemKey
}

// Complete reports whether every enumerated item was deleted.
func (r DeleteBoardReport) Complete() bool {
	return len(r.Residual) == 0
}
