package kanban

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequired(t *testing.T) {
	assert.NoError(t, Required("a", "x", "b", "y"))
	assert.NoError(t, Required())

	err := Required("boardId", "", "title", "t", "taskId", "")
	require.Error(t, err)
	assert.Equal(t, "Missing boardId, taskId", err.Error())

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"boardId", "taskId"}, ve.Fields)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"board ok", CreateBoardInput{Title: "Sprint"}.Validate(), ""},
		{"board no title", CreateBoardInput{Description: "d"}.Validate(), "Missing title"},
		{"task ok", CreateTaskInput{BoardID: "b", Title: "t"}.Validate(), ""},
		{"task no title", CreateTaskInput{BoardID: "b"}.Validate(), "Missing title"},
		{"task empty", CreateTaskInput{}.Validate(), "Missing boardId, title"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.want == "" {
				assert.NoError(t, tt.err)
				return
			}
			assert.True(t, IsValidation(tt.err))
			assert.EqualError(t, tt.err, tt.want)
		})
	}
}

func TestIsValidation_Wrapped(t *testing.T) {
	err := fmt.Errorf("create task: %w", Required("title", ""))
	assert.True(t, IsValidation(err))
	assert.False(t, IsValidation(errors.New("Missing title")))
	assert.False(t, IsValidation(nil))
}

func TestPrimaryAssignee(t *testing.T) {
	assert.Equal(t, UnassignedID, Task{}.PrimaryAssignee())
	assert.Equal(t, UnassignedID, Task{Assignees: []string{""}}.PrimaryAssignee())
	assert.Equal(t, "ann", Task{Assignees: []string{"ann", "ben", "ann"}}.PrimaryAssignee())
}

func TestFormatTime(t *testing.T) {
	loc := time.FixedZone("CEST", 2*60*60)
	ts := time.Date(2024, 5, 1, 11, 0, 0, 7_000_000, loc)
	assert.Equal(t, "2024-05-01T09:00:00.007Z", FormatTime(ts))
	assert.Equal(t, "2024-05-01T09:00:00.000Z", FormatTime(ts.Truncate(time.Second)))
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusTodo, StatusInProgress, StatusDone} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, Status("BLOCKED").Valid())
	assert.False(t, Status("").Valid())
	assert.Equal(t, StatusTodo, DefaultStatus)
}

func TestDeleteBoardReport(t *testing.T) {
	r := DeleteBoardReport{BoardID: "b"}
	assert.True(t, r.Complete())
	r.Residual = []ItemKey{{PK: "BOARD#b", SK: "TASK#t"}}
	assert.False(t, r.Complete())
	assert.Equal(t, "BOARD#b/TASK#t", r.Residual[0].String())
}
