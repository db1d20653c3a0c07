// Package kanbanddb stores boards and tasks in one DynamoDB table.
//
// Every board is a partition: the board itself is the root item
// BOARD#<id>/BOARD#<id> and each task lives next to it under
// BOARD#<boardId>/TASK#<taskId>. Two global secondary indexes look tasks up
// across boards by status and by primary assignee.
package kanbanddb

import (
	"github.com/acksell/kanban/dynamodb/table"
)

const (
	DefaultTableName = "KanbanApp"

	// StatusIndex is keyed by (status, createdAt).
	StatusIndex = "status-createdAt-index"
	// AssigneeIndex is keyed by (assigneeId, status).
	AssigneeIndex = "assigneeId-status-index"
)

const (
	attrPK         = "PK"
	attrSK         = "SK"
	attrType       = "Type"
	attrTitle      = "title"
	attrStatus     = "status"
	attrCreatedAt  = "createdAt"
	attrAssigneeID = "assigneeId"
	typeBoard      = "Board"
	typeTask       = "Task"
	boardKeyPrefix = "BOARD#"
	taskKeyPrefix  = "TASK#"
	keyAttrBoardID = "boardId"
	keyAttrTaskID  = "taskId"
)

var keySchema = table.PrimaryKeyDefinition{
	PartitionKey: table.KeyDef{Name: attrPK, Kind: table.KeyKindS},
	SortKey:      table.KeyDef{Name: attrSK, Kind: table.KeyKindS},
}

// NewTableDefinition describes the kanban table and its indexes under the given name.
func NewTableDefinition(name string) table.TableDefinition {
	return table.TableDefinition{
		Name:           name,
		KeyDefinitions: keySchema,
		GSIs: []table.GSIDefinition{
			{
				Name: StatusIndex,
				KeyDefinitions: table.PrimaryKeyDefinition{
					PartitionKey: table.KeyDef{Name: attrStatus, Kind: table.KeyKindS},
					SortKey:      table.KeyDef{Name: attrCreatedAt, Kind: table.KeyKindS},
				},
			},
			{
				Name: AssigneeIndex,
				KeyDefinitions: table.PrimaryKeyDefinition{
					PartitionKey: table.KeyDef{Name: attrAssigneeID, Kind: table.KeyKindS},
					SortKey:      table.KeyDef{Name: attrStatus, Kind: table.KeyKindS},
				},
			},
		},
	}
}

// Table is the kanban table under its default name.
var Table = NewTableDefinition(DefaultTableName)

// The key scheme. Both derive keys from a small document holding the ids.
var (
	boardIndex = table.PrimaryIndexDefinition{
		Table:          Table,
		PartitionKeyer: table.FmtKeyer(boardKeyPrefix+"%s", keyAttrBoardID),
		SortKeyer:      table.FmtKeyer(boardKeyPrefix+"%s", keyAttrBoardID),
	}
	taskIndex = table.PrimaryIndexDefinition{
		Table:          Table,
		PartitionKeyer: table.FmtKeyer(boardKeyPrefix+"%s", keyAttrBoardID),
		SortKeyer:      table.FmtKeyer(taskKeyPrefix+"%s", keyAttrTaskID),
	}
)
