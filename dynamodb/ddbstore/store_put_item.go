package ddbstore

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dgraph-io/badger/v4"
)

// PutItem creates or replaces an item.
func (s *Store) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	if params == nil || params.Item == nil {
		return nil, validationError("item is required")
	}
	tabl, err := s.getTable(params.TableName)
	if err != nil {
		return nil, err
	}
	key, err := tabl.itemKey(params.Item)
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
		return tabl.writeItem(txn, key, params.Item, oldItem)
	})
	if err != nil {
		return nil, err
	}

	out := &dynamodb.PutItemOutput{}
	if params.ReturnValues == types.ReturnValueAllOld && oldItem != nil {
		out.Attributes = oldItem
	}
	return out, nil
}

// itemKey validates the key attributes of a full item and encodes its badger key.
func (t *tableSchema) itemKey(item map[string]types.AttributeValue) ([]byte, error) {
	if _, err := t.definition.ExtractPrimaryKey(item); err != nil {
		return nil, validationError(fmt.Sprintf("one or more parameter values were invalid: %v", err))
	}
	return t.encoder().encodeItemKey(item)
}
