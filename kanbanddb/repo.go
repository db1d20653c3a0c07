package kanbanddb

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/acksell/kanban"
	"github.com/acksell/kanban/dynamodb/ddbiface"
	"github.com/acksell/kanban/dynamodb/ddbsdk"
	"github.com/acksell/kanban/dynamodb/table"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	defaultPageSize          = 100
	defaultDeleteMaxAttempts = 5
)

// Repository implements kanban.Store on a single DynamoDB table.
type Repository struct {
	db    *ddbsdk.Client
	table table.TableDefinition
	log   log.FieldLogger

	now        func() time.Time
	newID      func() string
	pageSize   int
	boardCheck bool

	deleteBatchSize   int
	deleteMaxAttempts int
	deleteConcurrency int
	backoff           ddbsdk.BackoffFunc
}

var _ kanban.Store = (*Repository)(nil)

type Option func(*Repository)

// WithTableName overrides DefaultTableName.
func WithTableName(name string) Option {
	return func(r *Repository) { r.table = NewTableDefinition(name) }
}

func WithLogger(l log.FieldLogger) Option {
	return func(r *Repository) { r.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(r *Repository) { r.newID = newID }
}

// WithPageSize sets the Limit of every query and scan page.
func WithPageSize(n int) Option {
	return func(r *Repository) { r.pageSize = n }
}

// WithBoardCheck makes CreateTask fail with kanban.ErrNotFound when the board
// does not exist. Without it tasks can be created under any board id.
func WithBoardCheck() Option {
	return func(r *Repository) { r.boardCheck = true }
}

// WithDeleteBatchSize sets how many keys DeleteBoard sends per BatchWriteItem (1..25).
func WithDeleteBatchSize(n int) Option {
	return func(r *Repository) { r.deleteBatchSize = n }
}

// WithDeleteMaxAttempts caps the BatchWriteItem calls per batch, first attempt included.
func WithDeleteMaxAttempts(n int) Option {
	return func(r *Repository) { r.deleteMaxAttempts = n }
}

// WithDeleteConcurrency lets DeleteBoard run up to n batches at once.
func WithDeleteConcurrency(n int) Option {
	return func(r *Repository) { r.deleteConcurrency = n }
}

// WithBackoff sets the wait between attempts of a delete batch.
func WithBackoff(b ddbsdk.BackoffFunc) Option {
	return func(r *Repository) { r.backoff = b }
}

func New(client ddbiface.AWSDynamoClientV2, opts ...Option) (*Repository, error) {
	r := &Repository{
		db:                ddbsdk.New(client),
		table:             Table,
		log:               log.StandardLogger(),
		now:               time.Now,
		newID:             func() string { return uuid.NewString() },
		pageSize:          defaultPageSize,
		deleteBatchSize:   ddbsdk.MaxBatchWriteItems,
		deleteMaxAttempts: defaultDeleteMaxAttempts,
		deleteConcurrency: 1,
		backoff:           ddbsdk.DefaultBackoff,
	}
	for _, opt := range opts {
		opt(r)
	}
	switch {
	case r.table.Name == "":
		return nil, errors.New("table name is required")
	case r.pageSize <= 0:
		return nil, fmt.Errorf("page size must be positive, got %d", r.pageSize)
	case r.deleteBatchSize < 1 || r.deleteBatchSize > ddbsdk.MaxBatchWriteItems:
		return nil, fmt.Errorf("delete batch size must be between 1 and %d, got %d", ddbsdk.MaxBatchWriteItems, r.deleteBatchSize)
	case r.deleteMaxAttempts <= 0:
		return nil, fmt.Errorf("delete max attempts must be positive, got %d", r.deleteMaxAttempts)
	case r.deleteConcurrency <= 0:
		return nil, fmt.Errorf("delete concurrency must be positive, got %d", r.deleteConcurrency)
	case r.backoff == nil:
		r.backoff = ddbsdk.NoBackoff
	}
	return r, nil
}

// TableDefinition is the table the repository reads and writes.
func (r *Repository) TableDefinition() table.TableDefinition {
	return r.table
}

// storeErr classifies a store failure as kanban.ErrUnavailable or kanban.ErrStore.
func storeErr(op string, err error) error {
	if ddbsdk.IsRetryable(err) {
		return fmt.Errorf("%s: %w: %w", op, kanban.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w: %w", op, kanban.ErrStore, err)
}

func (r *Repository) CreateBoard(ctx context.Context, in kanban.CreateBoardInput) (kanban.Board, error) {
	if err := in.Validate(); err != nil {
		return kanban.Board{}, err
	}
	b := kanban.Board{
		ID:          r.newID(),
		Title:       in.Title,
		Description: in.Description,
		CreatedAt:   kanban.FormatTime(r.now()),
	}
	if err := r.put(ctx, BoardItem{b}); err != nil {
		return kanban.Board{}, storeErr("create board", err)
	}
	return b, nil
}

func (r *Repository) CreateTask(ctx context.Context, in kanban.CreateTaskInput) (kanban.Task, error) {
	if err := in.Validate(); err != nil {
		return kanban.Task{}, err
	}
	if r.boardCheck {
		if err := r.requireBoard(ctx, in.BoardID); err != nil {
			return kanban.Task{}, err
		}
	}
	t := kanban.Task{
		ID:          r.newID(),
		BoardID:     in.BoardID,
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Assignees:   slices.Clone(nonNil(in.Assignees)),
		StartDate:   in.StartDate,
		DueDate:     in.DueDate,
		Tags:        slices.Clone(nonNil(in.Tags)),
		CreatedAt:   kanban.FormatTime(r.now()),
	}
	if t.Status == "" {
		t.Status = kanban.DefaultStatus
	}
	if err := r.put(ctx, TaskItem{t}); err != nil {
		return kanban.Task{}, storeErr("create task", err)
	}
	return t, nil
}

func (r *Repository) requireBoard(ctx context.Context, boardID string) error {
	key, err := BoardKey(boardID)
	if err != nil {
		return err
	}
	item, err := r.db.NewLookup().GetItem(ctx, ddbsdk.GetItemRequest{
		Table:      r.table,
		Key:        key,
		Projection: []string{attrPK},
	})
	if err != nil {
		return storeErr("get board", err)
	}
	if item == nil {
		return fmt.Errorf("board %s: %w", boardID, kanban.ErrNotFound)
	}
	return nil
}

func (r *Repository) put(ctx context.Context, item StorageItem) error {
	key, err := item.Key()
	if err != nil {
		return err
	}
	doc, err := Encode(item)
	if err != nil {
		return err
	}
	return r.db.PutItem(ctx, ddbsdk.NewPut(r.table, key, doc))
}

// ListBoards scans the whole table for root items, following every page.
func (r *Repository) ListBoards(ctx context.Context) ([]kanban.Board, error) {
	res, err := r.db.NewScan(r.table).
		WithFilter(expression.Name(attrType).Equal(expression.Value(typeBoard))).
		WithPageSize(r.pageSize).
		ScanAll(ctx)
	if err != nil {
		return nil, storeErr("list boards", err)
	}
	boards := make([]kanban.Board, 0, len(res.Items))
	for _, item := range res.Items {
		b, err := DecodeBoard(item)
		if err != nil {
			return nil, fmt.Errorf("list boards: %w: %w", kanban.ErrStore, err)
		}
		boards = append(boards, b)
	}
	return boards, nil
}

func (r *Repository) ListTasksByBoard(ctx context.Context, boardID string) ([]kanban.Task, error) {
	if err := kanban.Required("boardId", boardID); err != nil {
		return nil, err
	}
	res, err := r.db.NewQuery(r.table, ddbsdk.NewKeyCondition(BoardPK(boardID), ddbsdk.BeginsWith(taskKeyPrefix))).
		WithPageSize(r.pageSize).
		QueryAll(ctx)
	if err != nil {
		return nil, storeErr("list tasks by board", err)
	}
	tasks := make([]kanban.Task, 0, len(res.Items))
	for _, item := range res.Items {
		t, err := DecodeTask(item)
		if err != nil {
			return nil, fmt.Errorf("list tasks by board: %w: %w", kanban.ErrStore, err)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// ListTasksByStatus reads the status index in ascending createdAt order.
func (r *Repository) ListTasksByStatus(ctx context.Context, status kanban.Status) ([]kanban.TaskStatusView, error) {
	if err := kanban.Required("status", string(status)); err != nil {
		return nil, err
	}
	res, err := r.db.NewQuery(r.table, ddbsdk.NewKeyCondition(string(status), nil)).
		WithGSI(StatusIndex).
		WithProjection(attrPK, attrSK, attrTitle, attrCreatedAt).
		WithPageSize(r.pageSize).
		QueryAll(ctx)
	if err != nil {
		return nil, storeErr("list tasks by status", err)
	}
	views := make([]kanban.TaskStatusView, 0, len(res.Items))
	for _, item := range res.Items {
		t, err := DecodeTask(item)
		if err != nil {
			return nil, fmt.Errorf("list tasks by status: %w: %w", kanban.ErrStore, err)
		}
		views = append(views, kanban.TaskStatusView{ID: t.ID, BoardID: t.BoardID, Title: t.Title, CreatedAt: t.CreatedAt})
	}
	return views, nil
}

func (r *Repository) ListTasksByAssignee(ctx context.Context, assigneeID string) ([]kanban.TaskAssigneeView, error) {
	if err := kanban.Required("assigneeId", assigneeID); err != nil {
		return nil, err
	}
	res, err := r.db.NewQuery(r.table, ddbsdk.NewKeyCondition(assigneeID, nil)).
		WithGSI(AssigneeIndex).
		WithProjection(attrPK, attrSK, attrTitle, attrStatus).
		WithPageSize(r.pageSize).
		QueryAll(ctx)
	if err != nil {
		return nil, storeErr("list tasks by assignee", err)
	}
	views := make([]kanban.TaskAssigneeView, 0, len(res.Items))
	for _, item := range res.Items {
		t, err := DecodeTask(item)
		if err != nil {
			return nil, fmt.Errorf("list tasks by assignee: %w: %w", kanban.ErrStore, err)
		}
		views = append(views, kanban.TaskAssigneeView{ID: t.ID, BoardID: t.BoardID, Title: t.Title, Status: t.Status})
	}
	return views, nil
}

// UpdateTaskStatus sets status unconditionally. A missing task is created
// with only its key and status, and any non-empty status is accepted.
func (r *Repository) UpdateTaskStatus(ctx context.Context, boardID, taskID string, status kanban.Status) error {
	if err := kanban.Required("boardId", boardID, "taskId", taskID, "status", string(status)); err != nil {
		return err
	}
	key, err := TaskKey(boardID, taskID)
	if err != nil {
		return err
	}
	update := ddbsdk.NewUnsafeUpdate(r.table, key).AddOp(ddbsdk.SetFieldOp(attrStatus, string(status)))
	if err := r.db.UpdateItem(ctx, update); err != nil {
		return storeErr("update task status", err)
	}
	return nil
}

func (r *Repository) DeleteTask(ctx context.Context, boardID, taskID string) error {
	if err := kanban.Required("boardId", boardID, "taskId", taskID); err != nil {
		return err
	}
	key, err := TaskKey(boardID, taskID)
	if err != nil {
		return err
	}
	if err := r.db.DeleteItem(ctx, ddbsdk.NewDelete(r.table, key)); err != nil {
		return storeErr("delete task", err)
	}
	return nil
}
