package kanbanddb

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/acksell/kanban"
	"github.com/acksell/kanban/dynamodb/ddbiface"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// throttlingClient passes BatchWriteItem through to the store except for the
// requests refuse picks, which come back as unprocessed.
type throttlingClient struct {
	ddbiface.AWSDynamoClientV2

	mu     sync.Mutex
	calls  int
	sent   []int
	refuse func(call int, reqs []types.WriteRequest) (process, unprocessed []types.WriteRequest)
	err    error
}

func (c *throttlingClient) BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	c.mu.Lock()
	c.calls++
	call := c.calls
	reqs := in.RequestItems[Table.Name]
	c.sent = append(c.sent, len(reqs))
	c.mu.Unlock()

	if c.err != nil {
		return nil, c.err
	}
	process, unprocessed := reqs, []types.WriteRequest(nil)
	if c.refuse != nil {
		process, unprocessed = c.refuse(call, reqs)
	}
	if len(process) > 0 {
		_, err := c.AWSDynamoClientV2.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{Table.Name: process},
		}, optFns...)
		if err != nil {
			return nil, err
		}
	}
	out := &dynamodb.BatchWriteItemOutput{}
	if len(unprocessed) > 0 {
		out.UnprocessedItems = map[string][]types.WriteRequest{Table.Name: unprocessed}
	}
	return out, nil
}

func refuseKeys(sks ...string) func(int, []types.WriteRequest) ([]types.WriteRequest, []types.WriteRequest) {
	return func(_ int, reqs []types.WriteRequest) (process, unprocessed []types.WriteRequest) {
		for _, r := range reqs {
			sk := r.DeleteRequest.Key["SK"].(*types.AttributeValueMemberS).Value
			refused := false
			for _, s := range sks {
				refused = refused || s == sk
			}
			if refused {
				unprocessed = append(unprocessed, r)
			} else {
				process = append(process, r)
			}
		}
		return process, unprocessed
	}
}

func seedBoard(t *testing.T, repo *Repository, tasks int) kanban.Board {
	t.Helper()
	ctx := context.Background()
	b, err := repo.CreateBoard(ctx, kanban.CreateBoardInput{Title: "doomed"})
	require.NoError(t, err)
	for i := range tasks {
		_, err := repo.CreateTask(ctx, kanban.CreateTaskInput{BoardID: b.ID, Title: fmt.Sprintf("task %d", i)})
		require.NoError(t, err)
	}
	return b
}

func assertBoardGone(t *testing.T, repo *Repository, boardID string) {
	t.Helper()
	ctx := context.Background()
	tasks, err := repo.ListTasksByBoard(ctx, boardID)
	require.NoError(t, err)
	assert.Empty(t, tasks)
	boards, err := repo.ListBoards(ctx)
	require.NoError(t, err)
	for _, b := range boards {
		assert.NotEqual(t, boardID, b.ID)
	}
}

func TestDeleteBoard_ThirtyTasks(t *testing.T) {
	client := &throttlingClient{AWSDynamoClientV2: newStore(t)}
	repo, hook := newTestRepo(t, client)
	ctx := context.Background()

	b := seedBoard(t, repo, 30)
	other := seedBoard(t, repo, 2)

	report, err := repo.DeleteBoard(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, kanban.DeleteBoardReport{BoardID: b.ID, ItemsFound: 31, Batches: 2}, report)
	assert.True(t, report.Complete())
	assert.Equal(t, []int{25, 6}, client.sent)
	assertBoardGone(t, repo, b.ID)

	tasks, err := repo.ListTasksByBoard(ctx, other.ID)
	require.NoError(t, err)
	assert.Len(t, tasks, 2, "other boards are untouched")
	for _, e := range hook.AllEntries() {
		assert.NotEqual(t, logrus.WarnLevel, e.Level)
	}
}

func TestDeleteBoard_RetriesOnlyUnprocessedKeys(t *testing.T) {
	client := &throttlingClient{AWSDynamoClientV2: newStore(t)}
	repo, _ := newTestRepo(t, client)
	b := seedBoard(t, repo, 30)

	// The first attempt of each batch loses its last three writes.
	client.refuse = func(call int, reqs []types.WriteRequest) ([]types.WriteRequest, []types.WriteRequest) {
		if call%2 == 1 && len(reqs) > 3 {
			return reqs[:len(reqs)-3], reqs[len(reqs)-3:]
		}
		return reqs, nil
	}

	report, err := repo.DeleteBoard(context.Background(), b.ID)
	require.NoError(t, err)
	assert.True(t, report.Complete())
	assert.Equal(t, []int{25, 3, 6, 3}, client.sent)
	assertBoardGone(t, repo, b.ID)
}

func TestDeleteBoard_ReportsResidualAfterCeiling(t *testing.T) {
	client := &throttlingClient{AWSDynamoClientV2: newStore(t)}
	repo, hook := newTestRepo(t, client, WithDeleteMaxAttempts(3))
	ctx := context.Background()
	b := seedBoard(t, repo, 4)

	stuck := TaskSK("id-0003")
	client.refuse = refuseKeys(stuck)

	report, err := repo.DeleteBoard(ctx, b.ID)
	require.NoError(t, err, "residual items do not fail the call")
	assert.Equal(t, []kanban.ItemKey{{PK: BoardPK(b.ID), SK: stuck}}, report.Residual)
	assert.False(t, report.Complete())
	assert.Equal(t, []int{5, 1, 1}, client.sent, "three attempts, retries carry only the stuck key")

	tasks, err := repo.ListTasksByBoard(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "id-0003", tasks[0].ID)

	boards, err := repo.ListBoards(ctx)
	require.NoError(t, err)
	assert.Empty(t, boards, "the root item is deleted explicitly")

	var warn *logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warn = e
		}
	}
	require.NotNil(t, warn)
	assert.Equal(t, "board deleted with items left behind", warn.Message)
	assert.Equal(t, 1, warn.Data["residual"])
	assert.Equal(t, b.ID, warn.Data["boardId"])
}

func TestDeleteBoard_RootInResidualIsStillDeleted(t *testing.T) {
	client := &throttlingClient{AWSDynamoClientV2: newStore(t)}
	repo, _ := newTestRepo(t, client)
	b := seedBoard(t, repo, 2)
	client.refuse = refuseKeys(BoardSK(b.ID))

	report, err := repo.DeleteBoard(context.Background(), b.ID)
	require.NoError(t, err)
	assert.True(t, report.Complete())
	assert.Equal(t, 5, client.calls)
	assertBoardGone(t, repo, b.ID)
}

func TestDeleteBoard_Concurrent(t *testing.T) {
	client := &throttlingClient{AWSDynamoClientV2: newStore(t)}
	repo, _ := newTestRepo(t, client, WithDeleteConcurrency(3), WithDeleteBatchSize(10))
	b := seedBoard(t, repo, 59)

	// Every full batch loses half of its first attempt.
	client.refuse = func(_ int, reqs []types.WriteRequest) ([]types.WriteRequest, []types.WriteRequest) {
		if len(reqs) == 10 {
			return reqs[:5], reqs[5:]
		}
		return reqs, nil
	}

	report, err := repo.DeleteBoard(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, 60, report.ItemsFound)
	assert.Equal(t, 6, report.Batches)
	assert.True(t, report.Complete())
	assertBoardGone(t, repo, b.ID)
}

func TestDeleteBoard_HardErrorAborts(t *testing.T) {
	client := &throttlingClient{AWSDynamoClientV2: newStore(t)}
	repo, _ := newTestRepo(t, client)
	b := seedBoard(t, repo, 3)
	client.err = &smithy.GenericAPIError{Code: "ProvisionedThroughputExceededException"}

	_, err := repo.DeleteBoard(context.Background(), b.ID)
	require.ErrorIs(t, err, kanban.ErrUnavailable)

	boards, err := repo.ListBoards(context.Background())
	require.NoError(t, err)
	assert.Len(t, boards, 1, "the root item survives an aborted delete")
}

func TestDeleteBoard_EmptyAndInvalid(t *testing.T) {
	repo, _ := newTestRepo(t, nil)
	ctx := context.Background()

	report, err := repo.DeleteBoard(ctx, "never-existed")
	require.NoError(t, err)
	assert.Equal(t, kanban.DeleteBoardReport{BoardID: "never-existed"}, report)

	_, err = repo.DeleteBoard(ctx, "")
	assert.True(t, kanban.IsValidation(err))
}

func TestChunkKeys(t *testing.T) {
	keys := make([]kanban.ItemKey, 51)
	batches := chunkKeys(keys, 25)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0].keys, 25)
	assert.Len(t, batches[2].keys, 1)
	assert.Equal(t, batchPending, batches[2].state)
	assert.Empty(t, chunkKeys(nil, 25))
	assert.Equal(t, "exhausted", batchExhausted.String())
}
