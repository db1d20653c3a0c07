package ddbsdk

import (
	"github.com/acksell/kanban/dynamodb/ddbstore"
	"github.com/acksell/kanban/dynamodb/table"
)

// NewMock returns a client backed by an in-memory ddbstore. It panics when
// the table definitions are invalid.
func NewMock(defs ...table.TableDefinition) *Client {
	mock, err := ddbstore.New(ddbstore.StoreOptions{InMemory: true}, defs...)
	if err != nil {
		panic(err)
	}
	return New(mock)
}
