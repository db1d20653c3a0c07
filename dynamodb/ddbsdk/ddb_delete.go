package ddbsdk

import (
	"errors"
	"fmt"

	"github.com/acksell/kanban/dynamodb/table"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	dynamodbv2 "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func NewDelete(t table.TableDefinition, pk table.PrimaryKey) *Delete {
	return &Delete{
		Table: t,
		Key:   pk,
	}
}

func (d *Delete) TableName() *string {
	return &d.Table.Name
}

func (d *Delete) PrimaryKey() table.PrimaryKey {
	return d.Key
}

func (d *Delete) WithCondition(c expression.ConditionBuilder) *Delete {
	d.c = andCondition(d.c, c)
	return d
}

func (d *Delete) ToDeleteItem() (*dynamodbv2.DeleteItemInput, error) {
	key, err := d.Key.Marshal()
	if err != nil {
		return nil, fmt.Errorf("key %s: %w", d.Key, err)
	}
	e, err := buildExpression(d.c, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build delete: %w", err)
	}
	return &dynamodbv2.DeleteItemInput{
		TableName:                 d.TableName(),
		Key:                       key,
		ConditionExpression:       e.Condition(),
		ExpressionAttributeValues: e.Values(),
		ExpressionAttributeNames:  e.Names(),
	}, nil
}

// ToBatchWriteRequest converts the Delete to a WriteRequest for BatchWriteItem.
func (d *Delete) ToBatchWriteRequest() (types.WriteRequest, error) {
	if d.c.IsSet() {
		return types.WriteRequest{}, errors.New("conditional delete cannot be batched")
	}
	key, err := d.Key.Marshal()
	if err != nil {
		return types.WriteRequest{}, fmt.Errorf("key %s: %w", d.Key, err)
	}
	return types.WriteRequest{
		DeleteRequest: &types.DeleteRequest{Key: key},
	}, nil
}
