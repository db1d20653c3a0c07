package ddbstore

import (
	"context"
	"fmt"

	"github.com/acksell/kanban/dynamodb/ddbstore/exprs"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dgraph-io/badger/v4"
)

// GetItem retrieves a single item by primary key.
// A missing item yields an output without Item, like DynamoDB.
func (s *Store) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
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

	var item map[string]types.AttributeValue
	err = s.db.View(func(txn *badger.Txn) error {
		item, err = loadItem(txn, key)
		return err
	})
	if err != nil {
		return nil, err
	}
	if item == nil {
		return &dynamodb.GetItemOutput{}, nil
	}

	projected, err := exprs.ProjectAll(params.ProjectionExpression, params.ExpressionAttributeNames, []exprs.Item{item})
	if err != nil {
		return nil, validationError(fmt.Sprintf("invalid ProjectionExpression: %v", err))
	}
	return &dynamodb.GetItemOutput{Item: projected[0]}, nil
}
