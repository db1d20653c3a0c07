package ddbsdk

import (
	"context"
	"errors"
	"fmt"

	"github.com/acksell/kanban/dynamodb/table"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	dynamodbv2 "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type Querier struct {
	awsddb AWSDynamoClientV2

	table   table.TableDefinition
	keyCond KeyCondition

	//internal, not exposed to user
	lastCursor map[string]types.AttributeValue
	done       bool

	opts queryOptions
}

type queryOptions struct {
	// default to consistent reads on the base table
	eventuallyConsistent bool
	pageSize             int32
	descending           bool
	indexName            *string
	filter               expression.ConditionBuilder
	projectionAttributes []string
}

const defaultPageSize = 100

type KeyCondition struct {
	partition any
	strategy  SortKeyStrategy
}

// NewKeyCondition selects one partition, optionally narrowed by a sort key strategy.
// A nil strategy reads the whole partition.
func NewKeyCondition(partition any, strategy SortKeyStrategy) KeyCondition {
	return KeyCondition{
		partition: partition,
		strategy:  strategy,
	}
}

func NewQuerier(ddb AWSDynamoClientV2, t table.TableDefinition, kc KeyCondition) *Querier {
	return &Querier{
		awsddb:  ddb,
		table:   t,
		keyCond: kc,
		opts: queryOptions{
			pageSize: defaultPageSize,
		},
	}
}

type QueryResult struct {
	Items  []Item
	IsDone bool
}

func (q *Querier) keyDefinitions() (table.PrimaryKeyDefinition, error) {
	if q.opts.indexName == nil {
		return q.table.KeyDefinitions, nil
	}
	gsi, ok := q.table.GSI(*q.opts.indexName)
	if !ok {
		return table.PrimaryKeyDefinition{}, fmt.Errorf("table %s has no index %q", q.table.Name, *q.opts.indexName)
	}
	return gsi.KeyDefinitions, nil
}

func (q *Querier) input() (*dynamodbv2.QueryInput, error) {
	keys, err := q.keyDefinitions()
	if err != nil {
		return nil, err
	}
	key := expression.KeyEqual(expression.Key(keys.PartitionKey.Name), expression.Value(q.keyCond.partition))
	if q.keyCond.strategy != nil {
		if keys.SortKey.Name == "" {
			return nil, errors.New("sort key condition on a key without sort key")
		}
		key = key.And(q.keyCond.strategy(keys.SortKey.Name))
	}
	b := expression.NewBuilder().WithKeyCondition(key)
	if q.opts.filter.IsSet() {
		b = b.WithFilter(q.opts.filter)
	}
	if proj, ok := projection(q.opts.projectionAttributes); ok {
		b = b.WithProjection(proj)
	}
	expr, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build query expression: %w", err)
	}

	return &dynamodbv2.QueryInput{
		TableName:                 &q.table.Name,
		IndexName:                 q.opts.indexName,
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ProjectionExpression:      expr.Projection(),
		ExpressionAttributeValues: expr.Values(),
		ExpressionAttributeNames:  expr.Names(),
		// GSIs only support eventually consistent reads.
		ConsistentRead:    ptr(!q.opts.eventuallyConsistent && q.opts.indexName == nil),
		Limit:             ptr(q.opts.pageSize),
		ScanIndexForward:  ptr(!q.opts.descending),
		ExclusiveStartKey: q.lastCursor,
	}, nil
}

// Next reads one page. Calling Next after the last page returns an empty done result.
func (q *Querier) Next(ctx context.Context) (*QueryResult, error) {
	if q.done {
		return &QueryResult{IsDone: true}, nil
	}
	in, err := q.input()
	if err != nil {
		return nil, err
	}
	res, err := q.awsddb.Query(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	q.lastCursor = res.LastEvaluatedKey
	q.done = res.LastEvaluatedKey == nil
	return &QueryResult{
		Items:  res.Items,
		IsDone: q.done,
	}, nil
}

// QueryAll follows LastEvaluatedKey until the partition is exhausted.
func (q *Querier) QueryAll(ctx context.Context) (*QueryResult, error) {
	var allItems []Item
	for {
		res, err := q.Next(ctx)
		if err != nil {
			return nil, err
		}
		allItems = append(allItems, res.Items...)
		if res.IsDone {
			break
		}
	}
	return &QueryResult{
		Items:  allItems,
		IsDone: true,
	}, nil
}

func (q *Querier) WithEventuallyConsistentReads() *Querier {
	q.opts.eventuallyConsistent = true
	return q
}

func (q *Querier) WithDescending() *Querier {
	q.opts.descending = true
	return q
}

func (q *Querier) WithPageSize(limit int) *Querier {
	q.opts.pageSize = int32(limit)
	return q
}

// WithGSI queries a global secondary index. The key condition applies to the
// index keys and reads are eventually consistent.
func (q *Querier) WithGSI(indexName string) *Querier {
	q.opts.indexName = &indexName
	return q
}

// WithFilter drops items after they are read. Filtered items still count
// against the page size.
func (q *Querier) WithFilter(c expression.ConditionBuilder) *Querier {
	q.opts.filter = andCondition(q.opts.filter, c)
	return q
}

// WithProjection limits the attributes returned in the response.
func (q *Querier) WithProjection(attrs ...string) *Querier {
	q.opts.projectionAttributes = attrs
	return q
}

func projection(attrs []string) (expression.ProjectionBuilder, bool) {
	if len(attrs) == 0 {
		return expression.ProjectionBuilder{}, false
	}
	names := make([]expression.NameBuilder, len(attrs))
	for i, attr := range attrs {
		names[i] = expression.Name(attr)
	}
	return expression.NamesList(names[0], names[1:]...), true
}
