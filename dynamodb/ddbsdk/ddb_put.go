package ddbsdk

import (
	"errors"
	"fmt"
	"maps"

	"github.com/acksell/kanban/dynamodb/table"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	dynamodbv2 "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func NewPut(t table.TableDefinition, key table.PrimaryKey, entity any) *Put {
	return &Put{
		Table:  t,
		Key:    key,
		Entity: entity,
	}
}

func (p *Put) TableName() *string {
	return &p.Table.Name
}

func (p *Put) PrimaryKey() table.PrimaryKey {
	return p.Key
}

// WithCondition adds a condition expression (AND with any existing one).
// A conditional put cannot be added to a batch.
func (p *Put) WithCondition(c expression.ConditionBuilder) *Put {
	p.c = andCondition(p.c, c)
	return p
}

func (p *Put) Build() (expression.Expression, map[string]types.AttributeValue, error) {
	var doc map[string]types.AttributeValue
	switch e := p.Entity.(type) {
	case Item:
		doc = maps.Clone(e)
	default:
		var err error
		doc, err = attributevalue.MarshalMap(p.Entity)
		if err != nil {
			return expression.Expression{}, nil, fmt.Errorf("failed to marshal entity to dynamodb map: %w", err)
		}
	}
	if doc == nil {
		doc = make(map[string]types.AttributeValue)
	}
	key, err := p.Key.Marshal()
	if err != nil {
		return expression.Expression{}, nil, fmt.Errorf("key %s: %w", p.Key, err)
	}
	maps.Copy(doc, key)

	exp, err := buildExpression(p.c, nil)
	if err != nil {
		return expression.Expression{}, nil, fmt.Errorf("build: %w", err)
	}
	return exp, doc, nil
}

func (p *Put) ToPutItem() (*dynamodbv2.PutItemInput, error) {
	e, doc, err := p.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build put: %w", err)
	}
	return &dynamodbv2.PutItemInput{
		TableName:                 p.TableName(),
		Item:                      doc,
		ConditionExpression:       e.Condition(),
		ExpressionAttributeValues: e.Values(),
		ExpressionAttributeNames:  e.Names(),
	}, nil
}

// ToBatchWriteRequest converts the Put to a WriteRequest for BatchWriteItem.
func (p *Put) ToBatchWriteRequest() (types.WriteRequest, error) {
	if p.c.IsSet() {
		return types.WriteRequest{}, errors.New("conditional put cannot be batched")
	}
	_, doc, err := p.Build()
	if err != nil {
		return types.WriteRequest{}, fmt.Errorf("failed to build put: %w", err)
	}
	return types.WriteRequest{
		PutRequest: &types.PutRequest{
			Item: doc,
		},
	}, nil
}
