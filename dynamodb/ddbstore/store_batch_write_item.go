package ddbstore

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dgraph-io/badger/v4"
)

// BatchWriteItem performs up to MaxBatchWriteItems puts and deletes.
// The local store processes every request, so UnprocessedItems is always empty.
func (s *Store) BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	if params == nil || len(params.RequestItems) == 0 {
		return nil, validationError("request items are required")
	}

	type write struct {
		tabl *tableSchema
		key  []byte
		put  map[string]types.AttributeValue
	}
	var writes []write
	seen := make(map[string]bool)
	for tableName, reqs := range params.RequestItems {
		tabl, err := s.getTable(&tableName)
		if err != nil {
			return nil, err
		}
		for _, req := range reqs {
			var w write
			switch {
			case req.PutRequest != nil && req.DeleteRequest == nil:
				w.key, err = tabl.itemKey(req.PutRequest.Item)
				w.put = req.PutRequest.Item
			case req.DeleteRequest != nil && req.PutRequest == nil:
				w.key, err = tabl.baseKey(req.DeleteRequest.Key)
			default:
				return nil, validationError("each write request must hold exactly one of PutRequest or DeleteRequest")
			}
			if err != nil {
				return nil, err
			}
			if seen[string(w.key)] {
				return nil, validationError("provided list of item keys contains duplicates")
			}
			seen[string(w.key)] = true
			w.tabl = tabl
			writes = append(writes, w)
		}
	}
	if len(writes) > MaxBatchWriteItems {
		return nil, validationError(fmt.Sprintf("too many items requested for the BatchWriteItem call: %d > %d", len(writes), MaxBatchWriteItems))
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		for _, w := range writes {
			oldItem, err := loadItem(txn, w.key)
			if err != nil {
				return err
			}
			if w.put != nil {
				err = w.tabl.writeItem(txn, w.key, w.put, oldItem)
			} else {
				err = w.tabl.removeItem(txn, w.key, oldItem)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dynamodb.BatchWriteItemOutput{
		UnprocessedItems: map[string][]types.WriteRequest{},
	}, nil
}
