package ddbstore

import (
	"bytes"
	"context"
	"fmt"

	"github.com/acksell/kanban/dynamodb/ddbstore/exprs"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dgraph-io/badger/v4"
)

// Query reads one partition of the table or of a GSI in sort key order.
func (s *Store) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	if params == nil || params.KeyConditionExpression == nil {
		return nil, validationError("key condition expression is required")
	}
	enc, err := s.getBadgerKeyEncoder(params.TableName, params.IndexName)
	if err != nil {
		return nil, err
	}
	if enc.isGSI() && params.ConsistentRead != nil && *params.ConsistentRead {
		return nil, validationError("consistent reads are not supported on global secondary indexes")
	}

	p := exprParams(params.ExpressionAttributeNames, params.ExpressionAttributeValues)
	keyCond, err := exprs.ParseKeyCondition(*params.KeyConditionExpression, p, enc.keyDefs.PartitionKey.Name, enc.keyDefs.SortKey.Name)
	if err != nil {
		return nil, validationError(fmt.Sprintf("invalid KeyConditionExpression: %v", err))
	}
	prefix, err := enc.encodePartitionPrefix(keyCond.Partition)
	if err != nil {
		return nil, validationError(err.Error())
	}
	filter, err := parseOptionalCondition(params.FilterExpression, p)
	if err != nil {
		return nil, validationError(fmt.Sprintf("invalid FilterExpression: %v", err))
	}

	page, err := s.readPage(pageRequest{
		enc:      enc,
		prefix:   prefix,
		startKey: params.ExclusiveStartKey,
		forward:  params.ScanIndexForward == nil || *params.ScanIndexForward,
		limit:    params.Limit,
		match:    keyCond.Sort,
		filter:   filter,
	})
	if err != nil {
		return nil, err
	}

	items, err := exprs.ProjectAll(params.ProjectionExpression, params.ExpressionAttributeNames, page.items)
	if err != nil {
		return nil, validationError(fmt.Sprintf("invalid ProjectionExpression: %v", err))
	}
	out := &dynamodb.QueryOutput{
		Count:            int32(len(items)),
		ScannedCount:     int32(page.scanned),
		LastEvaluatedKey: page.lastKey,
	}
	if params.Select != types.SelectCount {
		out.Items = items
	}
	return out, nil
}

type pageRequest struct {
	enc      *badgerKeyEncoder
	prefix   []byte
	startKey map[string]types.AttributeValue
	forward  bool
	limit    *int32
	// match excludes items without counting them against the limit.
	match exprs.Condition
	// filter excludes items after they count against the limit.
	filter exprs.Condition
}

type page struct {
	items   []map[string]types.AttributeValue
	scanned int
	lastKey map[string]types.AttributeValue
}

// readPage iterates the key range under prefix. The limit counts evaluated
// items before the filter is applied, and lastKey is set when the limit stopped
// the read.
func (s *Store) readPage(req pageRequest) (page, error) {
	var res page
	limit := 0
	if req.limit != nil {
		if *req.limit <= 0 {
			return res, validationError("limit must be greater than 0")
		}
		limit = int(*req.limit)
	}

	var startKey []byte
	if req.startKey != nil {
		var err error
		startKey, err = req.enc.encodeItemKey(req.startKey)
		if err != nil {
			return res, validationError(fmt.Sprintf("invalid ExclusiveStartKey: %v", err))
		}
		if !bytes.HasPrefix(startKey, req.prefix) {
			return res, validationError("ExclusiveStartKey is outside the requested range")
		}
	}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = !req.forward
		opts.Prefix = req.prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		switch {
		case startKey != nil:
			it.Seek(startKey)
			if it.Valid() && bytes.Equal(it.Item().Key(), startKey) {
				it.Next()
			}
		case req.forward:
			it.Seek(req.prefix)
		default:
			// every key under the prefix continues with a type byte below 0xFF
			it.Seek(append(bytes.Clone(req.prefix), 0xFF))
		}

		for ; it.Valid(); it.Next() {
			var item map[string]types.AttributeValue
			if err := it.Item().Value(func(val []byte) error {
				var err error
				item, err = DeserializeItem(val)
				return err
			}); err != nil {
				return err
			}
			if req.match != nil {
				ok, err := req.match.Eval(item)
				if err != nil {
					return validationError(err.Error())
				}
				if !ok {
					continue
				}
			}
			res.scanned++
			keep := true
			if req.filter != nil {
				var err error
				keep, err = req.filter.Eval(item)
				if err != nil {
					return validationError(err.Error())
				}
			}
			if keep {
				res.items = append(res.items, item)
			}
			if limit > 0 && res.scanned >= limit {
				res.lastKey = req.enc.lastEvaluatedKey(item)
				break
			}
		}
		return nil
	})
	return res, err
}

func parseOptionalCondition(expr *string, p exprs.Params) (exprs.Condition, error) {
	if expr == nil || *expr == "" {
		return nil, nil
	}
	return exprs.ParseCondition(*expr, p)
}
