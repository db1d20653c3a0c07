package api

import (
	"errors"
	"net/http"

	"github.com/acksell/kanban"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

const (
	msgInvalidBody   = "Invalid request body"
	msgBoardNotFound = "Board not found"
)

type errorResponse struct {
	Error string `json:"error"`
}

// errorStatus maps a store or validation error to its HTTP status and message.
func errorStatus(err error) (int, string) {
	var ve *kanban.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Error()
	case errors.Is(err, kanban.ErrNotFound):
		return http.StatusNotFound, msgBoardNotFound
	case errors.Is(err, kanban.ErrUnavailable):
		return http.StatusServiceUnavailable, http.StatusText(http.StatusServiceUnavailable)
	}
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
}

func (s *Server) fail(c echo.Context, err error) error {
	code, msg := errorStatus(err)
	if code >= http.StatusInternalServerError {
		s.log.WithError(err).WithFields(log.Fields{
			"method": c.Request().Method,
			"path":   c.Path(),
		}).Error("store call failed")
	}
	return c.JSON(code, errorResponse{Error: msg})
}

// httpErrorHandler renders echo's own errors (unknown routes, panics) in the
// same JSON shape as handler errors.
func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
	} else {
		s.log.WithError(err).Error("unhandled error")
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, errorResponse{Error: http.StatusText(code)})
}
