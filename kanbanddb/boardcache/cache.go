// Package boardcache keeps board and task listings in Redis in front of a
// kanban.Store.
package boardcache

import (
	"context"
	"errors"
	"time"

	"github.com/acksell/kanban"
	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultTTL = 30 * time.Second

	boardsKey     = "kanban:boards"
	boardTasksKey = "kanban:tasks:"
)

// Store decorates a kanban.Store. Reads of ListBoards and ListTasksByBoard
// are served from Redis when present; writes go to the base store and then
// evict the affected keys. Redis failures never fail a call.
type Store struct {
	kanban.Store
	redis *redis.Client
	ttl   time.Duration
	log   log.FieldLogger
}

var _ kanban.Store = (*Store)(nil)

type Option func(*Store)

func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

func WithLogger(l log.FieldLogger) Option {
	return func(s *Store) { s.log = l }
}

func New(base kanban.Store, client *redis.Client, opts ...Option) *Store {
	if base == nil {
		panic("boardcache.New: base store is nil")
	}
	s := &Store{
		Store: base,
		redis: client,
		ttl:   DefaultTTL,
		log:   log.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ttl < 0 {
		s.ttl = 0
	}
	return s
}

func (s *Store) ListBoards(ctx context.Context) ([]kanban.Board, error) {
	var boards []kanban.Board
	if s.load(ctx, boardsKey, &boards) {
		return boards, nil
	}
	boards, err := s.Store.ListBoards(ctx)
	if err != nil {
		return nil, err
	}
	s.store(ctx, boardsKey, boards)
	return boards, nil
}

func (s *Store) ListTasksByBoard(ctx context.Context, boardID string) ([]kanban.Task, error) {
	var tasks []kanban.Task
	if boardID != "" && s.load(ctx, tasksKey(boardID), &tasks) {
		return tasks, nil
	}
	tasks, err := s.Store.ListTasksByBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if boardID != "" {
		s.store(ctx, tasksKey(boardID), tasks)
	}
	return tasks, nil
}

func (s *Store) CreateBoard(ctx context.Context, in kanban.CreateBoardInput) (kanban.Board, error) {
	b, err := s.Store.CreateBoard(ctx, in)
	if err != nil {
		return kanban.Board{}, err
	}
	s.evict(ctx, boardsKey)
	return b, nil
}

func (s *Store) CreateTask(ctx context.Context, in kanban.CreateTaskInput) (kanban.Task, error) {
	t, err := s.Store.CreateTask(ctx, in)
	if err != nil {
		return kanban.Task{}, err
	}
	s.evict(ctx, tasksKey(t.BoardID))
	return t, nil
}

func (s *Store) UpdateTaskStatus(ctx context.Context, boardID, taskID string, status kanban.Status) error {
	if err := s.Store.UpdateTaskStatus(ctx, boardID, taskID, status); err != nil {
		return err
	}
	s.evict(ctx, tasksKey(boardID))
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, boardID, taskID string) error {
	if err := s.Store.DeleteTask(ctx, boardID, taskID); err != nil {
		return err
	}
	s.evict(ctx, tasksKey(boardID))
	return nil
}

// DeleteBoard evicts even when the base store fails: a partial cascade may
// have removed items already.
func (s *Store) DeleteBoard(ctx context.Context, boardID string) (kanban.DeleteBoardReport, error) {
	report, err := s.Store.DeleteBoard(ctx, boardID)
	if boardID != "" {
		s.evict(ctx, boardsKey, tasksKey(boardID))
	}
	return report, err
}

func (s *Store) load(ctx context.Context, key string, dst any) bool {
	if s.redis == nil {
		return false
	}
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.WithError(err).WithField("key", key).Warn("cache read failed")
		}
		return false
	}
	if err := sonic.Unmarshal(data, dst); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("dropping undecodable cache entry")
		s.evict(ctx, key)
		return false
	}
	return true
}

func (s *Store) store(ctx context.Context, key string, v any) {
	if s.redis == nil || s.ttl == 0 {
		return
	}
	data, err := sonic.Marshal(v)
	if err != nil {
		s.log.WithError(err).WithField("key", key).Warn("cache encode failed")
		return
	}
	if err := s.redis.Set(ctx, key, data, s.ttl).Err(); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("cache write failed")
	}
}

func (s *Store) evict(ctx context.Context, keys ...string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		s.log.WithError(err).WithField("keys", keys).Warn("cache evict failed")
	}
}

func tasksKey(boardID string) string {
	return boardTasksKey + boardID
}
