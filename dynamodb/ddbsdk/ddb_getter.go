package ddbsdk

import (
	"context"
	"fmt"

	"github.com/acksell/kanban/dynamodb/table"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	dynamodbv2 "github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

type getter struct {
	awsddb AWSDynamoClientV2

	opts getOpts
}

var _ Getter = &getter{}

func NewGetter(ddb AWSDynamoClientV2, opts ...GetOption) *getter {
	g := &getter{
		awsddb: ddb,
	}
	for _, opt := range opts {
		opt(&g.opts)
	}
	return g
}

type GetOption func(*getOpts)

type getOpts struct {
	eventuallyConsistent bool
}

func WithEventualConsistency() GetOption {
	return func(o *getOpts) {
		o.eventuallyConsistent = true
	}
}

// GetItemRequest identifies an item to retrieve with optional projection.
type GetItemRequest struct {
	Table      table.TableDefinition
	Key        table.PrimaryKey
	Projection []string
}

func (g *getter) GetItem(ctx context.Context, item GetItemRequest) (Item, error) {
	key, err := item.Key.Marshal()
	if err != nil {
		return nil, fmt.Errorf("key %s: %w", item.Key, err)
	}
	input := &dynamodbv2.GetItemInput{
		TableName:      &item.Table.Name,
		Key:            key,
		ConsistentRead: ptr(!g.opts.eventuallyConsistent),
	}
	if proj, ok := projection(item.Projection); ok {
		expr, err := expression.NewBuilder().WithProjection(proj).Build()
		if err != nil {
			return nil, fmt.Errorf("failed to apply projection: %w", err)
		}
		input.ProjectionExpression = expr.Projection()
		input.ExpressionAttributeNames = expr.Names()
	}

	res, err := g.awsddb.GetItem(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("get item failed: %w", err)
	}
	if len(res.Item) == 0 {
		return nil, nil
	}
	return res.Item, nil
}
