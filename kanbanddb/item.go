package kanbanddb

import (
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/acksell/kanban"
	"github.com/acksell/kanban/dynamodb/ddbsdk"
	"github.com/acksell/kanban/dynamodb/table"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// StorageItem is one item of the kanban table: a BoardItem or a TaskItem.
type StorageItem interface {
	Key() (table.PrimaryKey, error)
	storageItem()
}

type BoardItem struct {
	kanban.Board
}

type TaskItem struct {
	kanban.Task
}

func (BoardItem) storageItem() {}
func (TaskItem) storageItem() {}

func (b BoardItem) Key() (table.PrimaryKey, error) {
	return BoardKey(b.ID)
}

func (t TaskItem) Key() (table.PrimaryKey, error) {
	return TaskKey(t.BoardID, t.ID)
}

// BoardKey is the key of the root item of a board.
func BoardKey(boardID string) (table.PrimaryKey, error) {
	return boardIndex.PrimaryKey(idDoc(keyAttrBoardID, boardID))
}

// TaskKey is the key of a task item.
func TaskKey(boardID, taskID string) (table.PrimaryKey, error) {
	return taskIndex.PrimaryKey(idDoc(keyAttrBoardID, boardID, keyAttrTaskID, taskID))
}

func idDoc(pairs ...string) map[string]types.AttributeValue {
	doc := make(map[string]types.AttributeValue, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		doc[pairs[i]] = &types.AttributeValueMemberS{Value: pairs[i+1]}
	}
	return doc
}

// BoardPK is the partition key shared by a board and its tasks.
func BoardPK(boardID string) string { return boardKeyPrefix + boardID }

// BoardSK is the sort key of a board's root item.
func BoardSK(boardID string) string { return boardKeyPrefix + boardID }

func TaskSK(taskID string) string { return taskKeyPrefix + taskID }

// ParseBoardID extracts the board id from a BOARD# key.
func ParseBoardID(key string) (string, error) {
	return parseKey(key, boardKeyPrefix)
}

// ParseTaskID extracts the task id from a TASK# key.
func ParseTaskID(key string) (string, error) {
	return parseKey(key, taskKeyPrefix)
}

func parseKey(key, prefix string) (string, error) {
	id, ok := strings.CutPrefix(key, prefix)
	if !ok || id == "" {
		return "", fmt.Errorf("key %q is not of the form %s<id>", key, prefix)
	}
	return id, nil
}

type boardRecord struct {
	Type        string `dynamodbav:"Type"`
	Title       string `dynamodbav:"title"`
	Description string `dynamodbav:"description"`
	CreatedAt   string `dynamodbav:"createdAt"`
}

// Empty status and createdAt are left out so that the item is not indexed
// with an empty key.
type taskRecord struct {
	Type        string   `dynamodbav:"Type"`
	Title       string   `dynamodbav:"title"`
	Description string   `dynamodbav:"description"`
	Status      string   `dynamodbav:"status,omitempty"`
	AssigneeID  string   `dynamodbav:"assigneeId"`
	Assignees   []string `dynamodbav:"assignees"`
	StartDate   string   `dynamodbav:"startDate"`
	DueDate     string   `dynamodbav:"dueDate"`
	Tags        []string `dynamodbav:"tags"`
	CreatedAt   string   `dynamodbav:"createdAt,omitempty"`
}

func EncodeBoard(b kanban.Board) (ddbsdk.Item, error) {
	return encode(BoardItem{b}, boardRecord{
		Type:        typeBoard,
		Title:       b.Title,
		Description: b.Description,
		CreatedAt:   b.CreatedAt,
	})
}

// EncodeTask encodes a task; nil lists are stored as empty lists.
func EncodeTask(t kanban.Task) (ddbsdk.Item, error) {
	return encode(TaskItem{t}, taskRecord{
		Type:        typeTask,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		AssigneeID:  t.PrimaryAssignee(),
		Assignees:   nonNil(t.Assignees),
		StartDate:   t.StartDate,
		DueDate:     t.DueDate,
		Tags:        nonNil(t.Tags),
		CreatedAt:   t.CreatedAt,
	})
}

// Encode encodes either kind of item.
func Encode(item StorageItem) (ddbsdk.Item, error) {
	switch it := item.(type) {
	case BoardItem:
		return EncodeBoard(it.Board)
	case TaskItem:
		return EncodeTask(it.Task)
	default:
		return nil, fmt.Errorf("unknown storage item %T", item)
	}
}

func encode(item StorageItem, record any) (ddbsdk.Item, error) {
	key, err := item.Key()
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	keyAttrs, err := key.Marshal()
	if err != nil {
		return nil, err
	}
	doc, err := attributevalue.MarshalMap(record)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", item, err)
	}
	maps.Copy(doc, keyAttrs)
	return doc, nil
}

// DecodeItem classifies an item by its Type tag, falling back to the sort
// key prefix for items written without one.
func DecodeItem(item ddbsdk.Item) (StorageItem, error) {
	kind := stringAttr(item, attrType)
	if kind == "" {
		switch sk := stringAttr(item, attrSK); {
		case strings.HasPrefix(sk, boardKeyPrefix):
			kind = typeBoard
		case strings.HasPrefix(sk, taskKeyPrefix):
			kind = typeTask
		}
	}
	switch kind {
	case typeBoard:
		b, err := DecodeBoard(item)
		return BoardItem{b}, err
	case typeTask:
		t, err := DecodeTask(item)
		return TaskItem{t}, err
	default:
		return nil, fmt.Errorf("item %s/%s has unknown type %q", stringAttr(item, attrPK), stringAttr(item, attrSK), kind)
	}
}

// DecodeBoard requires the board key; every other attribute may be missing.
func DecodeBoard(item ddbsdk.Item) (kanban.Board, error) {
	id, err := ParseBoardID(stringAttr(item, attrPK))
	if err != nil {
		return kanban.Board{}, err
	}
	var rec boardRecord
	if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
		return kanban.Board{}, fmt.Errorf("unmarshal board %s: %w", id, err)
	}
	return kanban.Board{
		ID:          id,
		Title:       rec.Title,
		Description: rec.Description,
		CreatedAt:   rec.CreatedAt,
	}, nil
}

// DecodeTask requires the task key; every other attribute may be missing.
// Lists decode to non-nil slices.
func DecodeTask(item ddbsdk.Item) (kanban.Task, error) {
	boardID, err := ParseBoardID(stringAttr(item, attrPK))
	if err != nil {
		return kanban.Task{}, err
	}
	taskID, err := ParseTaskID(stringAttr(item, attrSK))
	if err != nil {
		return kanban.Task{}, err
	}
	var rec taskRecord
	if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
		return kanban.Task{}, fmt.Errorf("unmarshal task %s: %w", taskID, err)
	}
	return kanban.Task{
		ID:          taskID,
		BoardID:     boardID,
		Title:       rec.Title,
		Description: rec.Description,
		Status:      kanban.Status(rec.Status),
		Assignees:   nonNil(rec.Assignees),
		StartDate:   rec.StartDate,
		DueDate:     rec.DueDate,
		Tags:        nonNil(rec.Tags),
		CreatedAt:   rec.CreatedAt,
	}, nil
}

func itemKey(item ddbsdk.Item) (kanban.ItemKey, error) {
	k := kanban.ItemKey{PK: stringAttr(item, attrPK), SK: stringAttr(item, attrSK)}
	if k.PK == "" || k.SK == "" {
		return k, errors.New("item without PK/SK")
	}
	return k, nil
}

func stringAttr(item ddbsdk.Item, name string) string {
	if s, ok := item[name].(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
