package ddbsdk

import (
	"context"

	"github.com/acksell/kanban/dynamodb/ddbiface"
	"github.com/acksell/kanban/dynamodb/table"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// AWSDynamoClientV2 is implemented by *dynamodb.Client and ddbstore.Store.
type AWSDynamoClientV2 = ddbiface.AWSDynamoClientV2

type IO interface {
	Writer
	Reader
}

type Writer interface {
	NewBatch(...BatchOption) Batcher

	PutItem(context.Context, *Put) error
	UpdateItem(context.Context, *UnsafeUpdate) error
	DeleteItem(context.Context, *Delete) error
}

type Reader interface {
	NewQuery(table.TableDefinition, KeyCondition) *Querier
	NewScan(table.TableDefinition) *Scanner
	NewLookup(...GetOption) Getter
}

type Batcher interface {
	AddAction(...BatchAction) error
	Exec(context.Context) (ExecResult, error)
	ExecAndRetry(context.Context) error
}

// ConsistentReads are enabled by default.
// To use EventuallyConsistent reads, add the WithEventualConsistency option.
type Getter interface {
	// GetItem returns nil without error when the item does not exist.
	GetItem(context.Context, GetItemRequest) (Item, error)
}

// Item represents a raw DynamoDB item as returned from read operations.
// Callers should use attributevalue.UnmarshalMap to convert to their struct.
type Item = map[string]types.AttributeValue
