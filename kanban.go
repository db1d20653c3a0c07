// Package kanban defines the boards and tasks of a single-user kanban board
// and the Store the HTTP layer talks to. Storage lives in kanbanddb.
package kanban

import "time"

// TimeFormat is the layout of CreatedAt timestamps: ISO-8601 UTC with milliseconds.
const TimeFormat = "2006-01-02T15:04:05.000Z"

// FormatTime renders t in TimeFormat.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

type Status string

const (
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"

	DefaultStatus = StatusTodo
)

// Valid reports whether s is one of the known statuses. Stores accept any
// non-empty status, so this is informational.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// UnassignedID is the primary assignee of a task without assignees.
const UnassignedID = "unassigned"

type Board struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	CreatedAt   string `json:"createdAt"`
}

type Task struct {
	ID          string   `json:"id"`
	BoardID     string   `json:"boardId"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      Status   `json:"status"`
	Assignees   []string `json:"assignees"`
	StartDate   string   `json:"startDate"`
	DueDate     string   `json:"dueDate"`
	Tags        []string `json:"tags"`
	CreatedAt   string   `json:"createdAt"`
}

// PrimaryAssignee is the first assignee, or UnassignedID.
func (t Task) PrimaryAssignee() string {
	if len(t.Assignees) == 0 || t.Assignees[0] == "" {
		return UnassignedID
	}
	return t.Assignees[0]
}

// TaskStatusView is a task as listed by status.
type TaskStatusView struct {
	ID        string `json:"id"`
	BoardID   string `json:"boardId"`
	Title     string `json:"title"`
	CreatedAt string `json:"createdAt"`
}

// TaskAssigneeView is a task as listed by assignee.
type TaskAssigneeView struct {
	ID      string `json:"id"`
	BoardID string `json:"boardId"`
	Title   string `json:"title"`
	Status  Status `json:"status"`
}
