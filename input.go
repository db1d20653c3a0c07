package kanban

type CreateBoardInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (in CreateBoardInput) Validate() error {
	return Required("title", in.Title)
}

type CreateTaskInput struct {
	BoardID     string   `json:"boardId"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      Status   `json:"status"`
	Assignees   []string `json:"assignees"`
	StartDate   string   `json:"startDate"`
	DueDate     string   `json:"dueDate"`
	Tags        []string `json:"tags"`
}

func (in CreateTaskInput) Validate() error {
	return Required("boardId", in.BoardID, "title", in.Title)
}

// Required takes name/value pairs and returns a ValidationError naming every
// empty value, or nil.
func Required(pairs ...string) error {
	var missing []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			missing = append(missing, pairs[i])
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &ValidationError{Fields: missing}
}
