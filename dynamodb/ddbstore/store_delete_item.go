package ddbstore

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dgraph-io/badger/v4"
)

// DeleteItem removes an item. Deleting a missing item succeeds.
func (s *Store) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	if params == nil {
		return nil, validationError("params is required")
	}
	tabl, err := s.getTable(params.TableName)
	if err != nil {
		return nil, err
	}
	key, err := tabl.baseKey(params.Key)
	if err != nil {
		return nil, err
	}

	var oldItem map[string]types.AttributeValue
	err = s.db.Update(func(txn *badger.Txn) error {
		oldItem, err = loadItem(txn, key)
		if err != nil {
			return err
		}
		cond := exprParams(params.ExpressionAttributeNames, params.ExpressionAttributeValues)
		if err := checkCondition(params.ConditionExpression, cond, oldItem); err != nil {
			return err
		}
		return tabl.removeItem(txn, key, oldItem)
	})
	if err != nil {
		return nil, err
	}

	out := &dynamodb.DeleteItemOutput{}
	if params.ReturnValues == types.ReturnValueAllOld && oldItem != nil {
		out.Attributes = oldItem
	}
	return out, nil
}
