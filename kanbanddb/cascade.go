package kanbanddb

import (
	"context"
	"fmt"

	"github.com/acksell/kanban"
	"github.com/acksell/kanban/dynamodb/ddbsdk"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type batchState int

const (
	batchPending batchState = iota
	batchRetrying
	batchDone
	batchExhausted
)

func (s batchState) String() string {
	switch s {
	case batchPending:
		return "pending"
	case batchRetrying:
		return "retrying"
	case batchDone:
		return "done"
	case batchExhausted:
		return "exhausted"
	}
	return fmt.Sprintf("batchState(%d)", int(s))
}

// deleteBatch is one BatchWriteItem worth of keys. Each attempt resends only
// the keys the previous attempt left unprocessed.
type deleteBatch struct {
	index    int
	keys     []kanban.ItemKey
	state    batchState
	attempts int
	residual []kanban.ItemKey
}

// DeleteBoard deletes every item in the board's partition in batches, then
// deletes the root item by key in case the query missed it.
//
// Keys still unprocessed after the attempt ceiling are returned in the report
// and the call still succeeds. A failing BatchWriteItem call aborts.
func (r *Repository) DeleteBoard(ctx context.Context, boardID string) (kanban.DeleteBoardReport, error) {
	if err := kanban.Required("boardId", boardID); err != nil {
		return kanban.DeleteBoardReport{}, err
	}
	rootKey, err := BoardKey(boardID)
	if err != nil {
		return kanban.DeleteBoardReport{}, err
	}
	logger := r.log.WithField("boardId", boardID)

	keys, err := r.partitionKeys(ctx, boardID)
	if err != nil {
		return kanban.DeleteBoardReport{}, err
	}
	batches := chunkKeys(keys, r.deleteBatchSize)
	report := kanban.DeleteBoardReport{
		BoardID:    boardID,
		ItemsFound: len(keys),
		Batches:    len(batches),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.deleteConcurrency)
	for _, b := range batches {
		g.Go(func() error {
			return r.runBatch(gctx, b)
		})
	}
	if err := g.Wait(); err != nil {
		return kanban.DeleteBoardReport{}, storeErr("delete board", err)
	}

	if err := r.db.DeleteItem(ctx, ddbsdk.NewDelete(r.table, rootKey)); err != nil {
		return kanban.DeleteBoardReport{}, storeErr("delete board root item", err)
	}

	root := kanban.ItemKey{PK: BoardPK(boardID), SK: BoardSK(boardID)}
	for _, b := range batches {
		for _, k := range b.residual {
			if k != root {
				report.Residual = append(report.Residual, k)
			}
		}
	}
	if !report.Complete() {
		logger.WithFields(log.Fields{
			"residual": len(report.Residual),
			"found":    report.ItemsFound,
		}).Warn("board deleted with items left behind")
		for _, k := range report.Residual {
			logger.WithField("key", k.String()).Debug("residual item")
		}
	} else {
		logger.WithFields(log.Fields{"found": report.ItemsFound, "batches": report.Batches}).Debug("board deleted")
	}
	return report, nil
}

// partitionKeys lists the key of every item under the board partition.
func (r *Repository) partitionKeys(ctx context.Context, boardID string) ([]kanban.ItemKey, error) {
	res, err := r.db.NewQuery(r.table, ddbsdk.NewKeyCondition(BoardPK(boardID), nil)).
		WithProjection(attrPK, attrSK).
		WithPageSize(r.pageSize).
		QueryAll(ctx)
	if err != nil {
		return nil, storeErr("query board partition", err)
	}
	keys := make([]kanban.ItemKey, 0, len(res.Items))
	for _, item := range res.Items {
		k, err := itemKey(item)
		if err != nil {
			return nil, fmt.Errorf("query board partition: %w: %w", kanban.ErrStore, err)
		}
		keys = append(keys, k)
	}
	return keys, nil
}

func chunkKeys(keys []kanban.ItemKey, size int) []*deleteBatch {
	var batches []*deleteBatch
	for start := 0; start < len(keys); start += size {
		end := min(start+size, len(keys))
		batches = append(batches, &deleteBatch{
			index: len(batches),
			keys:  keys[start:end],
		})
	}
	return batches
}

// runBatch drives one batch from pending to done or exhausted.
func (r *Repository) runBatch(ctx context.Context, b *deleteBatch) error {
	batch := r.db.NewBatch()
	for _, k := range b.keys {
		if err := batch.AddAction(ddbsdk.NewDelete(r.table, r.table.KeyOf(k.PK, k.SK))); err != nil {
			return err
		}
	}
	for b.state == batchPending || b.state == batchRetrying {
		res, err := batch.Exec(ctx)
		b.attempts = res.Attempts
		if err != nil {
			return fmt.Errorf("batch %d attempt %d: %w", b.index, b.attempts, err)
		}
		switch {
		case res.Done():
			b.state = batchDone
		case b.attempts >= r.deleteMaxAttempts:
			b.state = batchExhausted
			for _, item := range res.UnprocessedKeys(r.table.Name) {
				k, err := itemKey(item)
				if err != nil {
					return err
				}
				b.residual = append(b.residual, k)
			}
		default:
			b.state = batchRetrying
			r.log.WithFields(log.Fields{
				"batch":       b.index,
				"attempt":     b.attempts,
				"unprocessed": len(res.UnprocessedKeys(r.table.Name)),
			}).Debug("retrying unprocessed keys")
			if err := ddbsdk.Sleep(ctx, r.backoff(res.Retries())); err != nil {
				return err
			}
		}
	}
	return nil
}
