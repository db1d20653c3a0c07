package kanbanddb

import (
	"github.com/acksell/kanban"
	"github.com/acksell/kanban/dynamodb/schema"
	"github.com/acksell/kanban/dynamodb/table"
)

// Describe lays out def and the board and task items stored in it.
func Describe(def table.TableDefinition) schema.Schema {
	board := schema.Entity{
		Type:                typeBoard,
		PartitionKeyPattern: boardKeyPrefix + "{boardId}",
		SortKeyPattern:      boardKeyPrefix + "{boardId}",
		Fields:              schema.Fields(boardRecord{}),
	}
	task := schema.Entity{
		Type:                typeTask,
		PartitionKeyPattern: boardKeyPrefix + "{boardId}",
		SortKeyPattern:      taskKeyPrefix + "{taskId}",
		Fields:              schema.Fields(taskRecord{}),
		GSIMappings: []schema.GSIMapping{
			{GSI: StatusIndex, PartitionPattern: "{status}", SortPattern: "{createdAt}"},
			{GSI: AssigneeIndex, PartitionPattern: "{assignees[0]|" + kanban.UnassignedID + "}", SortPattern: "{status}"},
		},
	}
	return schema.Schema{Tables: []schema.Table{schema.FromTable(def, board, task)}}
}
