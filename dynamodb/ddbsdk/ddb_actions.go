package ddbsdk

import (
	"github.com/acksell/kanban/dynamodb/table"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type Action interface {
	TableName() *string
	PrimaryKey() table.PrimaryKey
}

// BatchAction is an action that can be sent through BatchWriteItem.
// Only unconditional puts and deletes qualify.
type BatchAction interface {
	Action
	ToBatchWriteRequest() (types.WriteRequest, error)
}

var (
	_ BatchAction = &Put{}
	_ BatchAction = &Delete{}
	_ Action      = &UnsafeUpdate{}
)

// Put writes a whole item. Entity is either an Item or a struct marshalled
// with attributevalue.MarshalMap; the key attributes are always taken from Key.
type Put struct {
	Table  table.TableDefinition
	Key    table.PrimaryKey
	Entity any

	c expression.ConditionBuilder
}

// UnsafeUpdate is called unsafe because it does not require the user to
// check the invariants of the entity they're modifying. Without a condition
// it also creates the item when it does not exist, and concurrent updates
// resolve as last write wins.
type UnsafeUpdate struct {
	Table  table.TableDefinition
	Key    table.PrimaryKey
	Fields map[string]UpdateOp

	c expression.ConditionBuilder
}

type Delete struct {
	Table table.TableDefinition
	Key   table.PrimaryKey

	c expression.ConditionBuilder
}

// buildExpression returns the zero Expression when nothing is set, since the
// expression builder refuses to build an empty expression.
func buildExpression(c expression.ConditionBuilder, u *expression.UpdateBuilder) (expression.Expression, error) {
	if !c.IsSet() && u == nil {
		return expression.Expression{}, nil
	}
	b := expression.NewBuilder()
	if c.IsSet() {
		b = b.WithCondition(c)
	}
	if u != nil {
		b = b.WithUpdate(*u)
	}
	return b.Build()
}

func andCondition(existing, c expression.ConditionBuilder) expression.ConditionBuilder {
	if existing.IsSet() {
		return existing.And(c)
	}
	return c
}
