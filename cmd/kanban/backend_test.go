package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/acksell/kanban"
	"github.com/acksell/kanban/kanbanddb/boardcache"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStore_Local(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = backendLocal
	cfg.Table = "LocalKanban"
	logger, _ := test.NewNullLogger()
	ctx := context.Background()

	store, closeStore, err := openStore(ctx, cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, closeStore()) })

	b, err := store.CreateBoard(ctx, kanban.CreateBoardInput{Title: "local"})
	require.NoError(t, err)
	boards, err := store.ListBoards(ctx)
	require.NoError(t, err)
	assert.Equal(t, []kanban.Board{b}, boards)
}

func TestOpenStore_LocalWithCache(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := DefaultConfig()
	cfg.Backend = backendLocal
	cfg.RedisURL = "redis://" + mr.Addr()
	logger, _ := test.NewNullLogger()

	store, closeStore, err := openStore(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, closeStore()) })
	assert.IsType(t, &boardcache.Store{}, store)

	cfg.RedisURL = "://bad"
	_, _, err = openStore(context.Background(), cfg, logger)
	assert.Error(t, err)
}

func TestOpenClient_UnknownBackend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = "sqlite"
	logger, _ := test.NewNullLogger()
	_, _, err := openClient(context.Background(), cfg, logger)
	assert.ErrorContains(t, err, "unknown backend")
}

func TestRunSchema(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, runSchema([]string{"-table", "Boards"}, &buf))
	out := buf.String()
	assert.Contains(t, out, "name: Boards")
	assert.Contains(t, out, "status-createdAt-index")
	assert.Contains(t, out, "TASK#{taskId}")
}
