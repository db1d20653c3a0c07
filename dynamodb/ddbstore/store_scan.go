package ddbstore

import (
	"context"
	"fmt"

	"github.com/acksell/kanban/dynamodb/ddbstore/exprs"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Scan reads every item of the table or of a GSI in key order.
// Parallel scans (Segment/TotalSegments) are not supported.
func (s *Store) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	if params == nil {
		return nil, validationError("params is required")
	}
	if params.TotalSegments != nil {
		return nil, validationError("parallel scan is not supported")
	}
	enc, err := s.getBadgerKeyEncoder(params.TableName, params.IndexName)
	if err != nil {
		return nil, err
	}

	p := exprParams(params.ExpressionAttributeNames, params.ExpressionAttributeValues)
	filter, err := parseOptionalCondition(params.FilterExpression, p)
	if err != nil {
		return nil, validationError(fmt.Sprintf("invalid FilterExpression: %v", err))
	}

	page, err := s.readPage(pageRequest{
		enc:      enc,
		prefix:   enc.prefix(),
		startKey: params.ExclusiveStartKey,
		forward:  true,
		limit:    params.Limit,
		filter:   filter,
	})
	if err != nil {
		return nil, err
	}

	items, err := exprs.ProjectAll(params.ProjectionExpression, params.ExpressionAttributeNames, page.items)
	if err != nil {
		return nil, validationError(fmt.Sprintf("invalid ProjectionExpression: %v", err))
	}
	out := &dynamodb.ScanOutput{
		Count:            int32(len(items)),
		ScannedCount:     int32(page.scanned),
		LastEvaluatedKey: page.lastKey,
	}
	if params.Select != types.SelectCount {
		out.Items = items
	}
	return out, nil
}
