package ddbsdk

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/acksell/kanban/dynamodb/table"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	dynamodbv2 "github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

func NewUnsafeUpdate(t table.TableDefinition, pk table.PrimaryKey) *UnsafeUpdate {
	return &UnsafeUpdate{
		Table: t,
		Key:   pk,
	}
}

func (u *UnsafeUpdate) TableName() *string {
	return &u.Table.Name
}

func (u *UnsafeUpdate) PrimaryKey() table.PrimaryKey {
	return u.Key
}

// AddOp panics if the field already has an operation.
func (u *UnsafeUpdate) AddOp(op UpdateOp) *UnsafeUpdate {
	if u.Fields == nil {
		u.Fields = make(map[string]UpdateOp)
	}
	if _, ok := u.Fields[op.Field()]; ok {
		panic(fmt.Sprintf("adding operation: field %s already exists in update of type %T", op.Field(), op))
	}
	u.Fields[op.Field()] = op
	return u
}

func (u *UnsafeUpdate) WithCondition(c expression.ConditionBuilder) *UnsafeUpdate {
	u.c = andCondition(u.c, c)
	return u
}

func (u *UnsafeUpdate) Build() (expression.Expression, error) {
	if len(u.Fields) == 0 {
		return expression.Expression{}, errors.New("update has no operations")
	}
	keyNames := []string{u.Table.KeyDefinitions.PartitionKey.Name, u.Table.KeyDefinitions.SortKey.Name}
	// sorted so the built expression is deterministic
	fields := slices.Sorted(maps.Keys(u.Fields))
	var ub expression.UpdateBuilder
	for _, f := range fields {
		if slices.Contains(keyNames, f) {
			return expression.Expression{}, fmt.Errorf("cannot update key attribute %q", f)
		}
		ub = u.Fields[f].Apply(ub)
	}
	e, err := buildExpression(u.c, &ub)
	if err != nil {
		return expression.Expression{}, fmt.Errorf("build: %w", err)
	}
	return e, nil
}

func (u *UnsafeUpdate) ToUpdateItem() (*dynamodbv2.UpdateItemInput, error) {
	key, err := u.Key.Marshal()
	if err != nil {
		return nil, fmt.Errorf("key %s: %w", u.Key, err)
	}
	e, err := u.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build update: %w", err)
	}
	return &dynamodbv2.UpdateItemInput{
		TableName:                 u.TableName(),
		Key:                       key,
		UpdateExpression:          e.Update(),
		ConditionExpression:       e.Condition(),
		ExpressionAttributeValues: e.Values(),
		ExpressionAttributeNames:  e.Names(),
	}, nil
}
