package ddbstore

import (
	"context"
	"fmt"
	"maps"

	"github.com/acksell/kanban/dynamodb/ddbstore/exprs"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dgraph-io/badger/v4"
)

// UpdateItem applies an update expression to an item.
// Like DynamoDB, updating a missing item creates it from its key.
func (s *Store) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	if params == nil {
		return nil, validationError("params is required")
	}
	if params.UpdateExpression == nil {
		return nil, validationError("update expression is required")
	}
	tabl, err := s.getTable(params.TableName)
	if err != nil {
		return nil, err
	}
	key, err := tabl.baseKey(params.Key)
	if err != nil {
		return nil, err
	}
	p := exprParams(params.ExpressionAttributeNames, params.ExpressionAttributeValues)
	update, err := exprs.ParseUpdate(*params.UpdateExpression, p)
	if err != nil {
		return nil, validationError(fmt.Sprintf("invalid UpdateExpression: %v", err))
	}
	keyDefs := tabl.definition.KeyDefinitions
	for _, path := range update.Paths() {
		if path.IsAttribute(keyDefs.PartitionKey.Name) || (keyDefs.SortKey.Name != "" && path.IsAttribute(keyDefs.SortKey.Name)) {
			return nil, validationError(fmt.Sprintf("cannot update attribute %s: it is part of the key", path))
		}
	}

	var oldItem, newItem map[string]types.AttributeValue
	err = s.db.Update(func(txn *badger.Txn) error {
		oldItem, err = loadItem(txn, key)
		if err != nil {
			return err
		}
		if err := checkCondition(params.ConditionExpression, p, oldItem); err != nil {
			return err
		}
		base := oldItem
		if base == nil {
			base = maps.Clone(params.Key)
		}
		newItem, err = update.Apply(base)
		if err != nil {
			return validationError(err.Error())
		}
		return tabl.writeItem(txn, key, newItem, oldItem)
	})
	if err != nil {
		return nil, err
	}

	out := &dynamodb.UpdateItemOutput{}
	switch params.ReturnValues {
	case types.ReturnValueAllNew:
		out.Attributes = newItem
	case types.ReturnValueAllOld:
		out.Attributes = oldItem
	}
	return out, nil
}
