package ddbsdk

import "github.com/acksell/kanban/dynamodb/table"

func New(awsddb AWSDynamoClientV2) *Client {
	return &Client{
		awsddb: awsddb,
	}
}

type Client struct {
	awsddb AWSDynamoClientV2
}

var _ IO = &Client{}

// NewBatch creates a new write-batch. Add actions and execute the batch writes.
func (c *Client) NewBatch(opts ...BatchOption) Batcher {
	return NewBatcher(c.awsddb, opts...)
}

// NewQuery creates a new querier over one partition of the table.
//
// Configure with method chaining: WithGSI, WithDescending, WithPageSize,
// WithProjection, WithFilter, WithEventuallyConsistentReads.
func (c *Client) NewQuery(t table.TableDefinition, kc KeyCondition) *Querier {
	return NewQuerier(c.awsddb, t, kc)
}

// NewScan creates a new scanner over the whole table.
func (c *Client) NewScan(t table.TableDefinition) *Scanner {
	return NewScanner(c.awsddb, t)
}

// NewLookup creates a new getter for direct lookups by primary key.
//
// Options: [WithEventualConsistency]
func (c *Client) NewLookup(opts ...GetOption) Getter {
	return NewGetter(c.awsddb, opts...)
}
