package api

import (
	"bytes"
	"io"
	"net/http"

	"github.com/acksell/kanban"
	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
)

type okResponse struct {
	OK bool `json:"ok"`
}

type deleteBoardResponse struct {
	OK       bool `json:"ok"`
	Residual int  `json:"residual,omitempty"`
}

type createBoardResponse struct {
	Message string `json:"message"`
	BoardID string `json:"boardId"`
}

type createTaskResponse struct {
	Message string `json:"message"`
	TaskID  string `json:"taskId"`
}

type boardsResponse struct {
	Boards []kanban.Board `json:"boards"`
}

type tasksResponse[T any] struct {
	Tasks []T `json:"tasks"`
}

type updateStatusRequest struct {
	BoardID string        `json:"boardId"`
	TaskID  string        `json:"taskId"`
	Status  kanban.Status `json:"status"`
}

// keyRequest carries the ids of DELETE requests, which may come in the body
// or the query string.
type keyRequest struct {
	BoardID string `json:"boardId"`
	TaskID  string `json:"taskId"`
}

type errInvalidBody struct{ err error }

func (e errInvalidBody) Error() string { return msgInvalidBody + ": " + e.err.Error() }

// decodeBody reads a JSON body into dst. An empty body leaves dst untouched.
func decodeBody(c echo.Context, dst any) error {
	data, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return errInvalidBody{err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := sonic.ConfigStd.Unmarshal(data, dst); err != nil {
		return errInvalidBody{err}
	}
	return nil
}

func (s *Server) bindBody(c echo.Context, dst any) (bool, error) {
	if err := decodeBody(c, dst); err != nil {
		s.log.WithError(err).WithField("path", c.Path()).Debug("rejecting request body")
		return false, c.JSON(http.StatusBadRequest, errorResponse{Error: msgInvalidBody})
	}
	return true, nil
}

// bindKeys fills ids from the body, falling back to query parameters per field.
func (s *Server) bindKeys(c echo.Context) (keyRequest, bool, error) {
	var req keyRequest
	if ok, err := s.bindBody(c, &req); !ok {
		return req, false, err
	}
	if req.BoardID == "" {
		req.BoardID = c.QueryParam("boardId")
	}
	if req.TaskID == "" {
		req.TaskID = c.QueryParam("taskId")
	}
	return req, true, nil
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, okResponse{OK: true})
}

func (s *Server) createBoard(c echo.Context) error {
	var in kanban.CreateBoardInput
	if ok, err := s.bindBody(c, &in); !ok {
		return err
	}
	b, err := s.store.CreateBoard(c.Request().Context(), in)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, createBoardResponse{Message: "Board created", BoardID: b.ID})
}

func (s *Server) listBoards(c echo.Context) error {
	boards, err := s.store.ListBoards(c.Request().Context())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, boardsResponse{Boards: boards})
}

func (s *Server) deleteBoard(c echo.Context) error {
	req, ok, err := s.bindKeys(c)
	if !ok {
		return err
	}
	report, err := s.store.DeleteBoard(c.Request().Context(), req.BoardID)
	if err != nil {
		return s.fail(c, err)
	}
	s.metrics.observeDeleteBoard(len(report.Residual))
	return c.JSON(http.StatusOK, deleteBoardResponse{OK: true, Residual: len(report.Residual)})
}

func (s *Server) createTask(c echo.Context) error {
	var in kanban.CreateTaskInput
	if ok, err := s.bindBody(c, &in); !ok {
		return err
	}
	t, err := s.store.CreateTask(c.Request().Context(), in)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, createTaskResponse{Message: "Task created", TaskID: t.ID})
}

func (s *Server) listTasksByBoard(c echo.Context) error {
	tasks, err := s.store.ListTasksByBoard(c.Request().Context(), c.QueryParam("boardId"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, tasksResponse[kanban.Task]{Tasks: tasks})
}

func (s *Server) listTasksByStatus(c echo.Context) error {
	tasks, err := s.store.ListTasksByStatus(c.Request().Context(), kanban.Status(c.QueryParam("status")))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, tasksResponse[kanban.TaskStatusView]{Tasks: tasks})
}

func (s *Server) listTasksByAssignee(c echo.Context) error {
	tasks, err := s.store.ListTasksByAssignee(c.Request().Context(), c.QueryParam("assigneeId"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, tasksResponse[kanban.TaskAssigneeView]{Tasks: tasks})
}

func (s *Server) updateTaskStatus(c echo.Context) error {
	var req updateStatusRequest
	if ok, err := s.bindBody(c, &req); !ok {
		return err
	}
	if err := s.store.UpdateTaskStatus(c.Request().Context(), req.BoardID, req.TaskID, req.Status); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, okResponse{OK: true})
}

func (s *Server) deleteTask(c echo.Context) error {
	req, ok, err := s.bindKeys(c)
	if !ok {
		return err
	}
	if err := s.store.DeleteTask(c.Request().Context(), req.BoardID, req.TaskID); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, okResponse{OK: true})
}
