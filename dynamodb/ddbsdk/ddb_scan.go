package ddbsdk

import (
	"context"
	"fmt"

	"github.com/acksell/kanban/dynamodb/table"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	dynamodbv2 "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Scanner reads a whole table page by page.
type Scanner struct {
	awsddb AWSDynamoClientV2
	table  table.TableDefinition

	lastCursor map[string]types.AttributeValue
	done       bool

	pageSize   int32
	filter     expression.ConditionBuilder
	projection []string
}

func NewScanner(ddb AWSDynamoClientV2, t table.TableDefinition) *Scanner {
	return &Scanner{
		awsddb:   ddb,
		table:    t,
		pageSize: defaultPageSize,
	}
}

func (s *Scanner) WithPageSize(limit int) *Scanner {
	s.pageSize = int32(limit)
	return s
}

func (s *Scanner) WithFilter(c expression.ConditionBuilder) *Scanner {
	s.filter = andCondition(s.filter, c)
	return s
}

func (s *Scanner) WithProjection(attrs ...string) *Scanner {
	s.projection = attrs
	return s
}

func (s *Scanner) Next(ctx context.Context) (*QueryResult, error) {
	if s.done {
		return &QueryResult{IsDone: true}, nil
	}
	in := &dynamodbv2.ScanInput{
		TableName:         &s.table.Name,
		Limit:             ptr(s.pageSize),
		ExclusiveStartKey: s.lastCursor,
	}
	proj, hasProj := projection(s.projection)
	if s.filter.IsSet() || hasProj {
		b := expression.NewBuilder()
		if s.filter.IsSet() {
			b = b.WithFilter(s.filter)
		}
		if hasProj {
			b = b.WithProjection(proj)
		}
		expr, err := b.Build()
		if err != nil {
			return nil, fmt.Errorf("failed to build scan expression: %w", err)
		}
		in.FilterExpression = expr.Filter()
		in.ProjectionExpression = expr.Projection()
		in.ExpressionAttributeNames = expr.Names()
		in.ExpressionAttributeValues = expr.Values()
	}

	res, err := s.awsddb.Scan(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	s.lastCursor = res.LastEvaluatedKey
	s.done = res.LastEvaluatedKey == nil
	return &QueryResult{
		Items:  res.Items,
		IsDone: s.done,
	}, nil
}

// ScanAll follows LastEvaluatedKey until the table is exhausted.
func (s *Scanner) ScanAll(ctx context.Context) (*QueryResult, error) {
	var all []Item
	for {
		res, err := s.Next(ctx)
		if err != nil {
			return nil, err
		}
		all = append(all, res.Items...)
		if res.IsDone {
			return &QueryResult{Items: all, IsDone: true}, nil
		}
	}
}
