// Package api serves the kanban store over HTTP with echo.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/acksell/kanban"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	// BodyLimit is an echo size string such as "1M".
	BodyLimit string
}

func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		BodyLimit:       "1M",
	}
}

type Server struct {
	cfg     Config
	store   kanban.Store
	log     *log.Logger
	metrics *Metrics
	e       *echo.Echo
}

// New builds the router. A nil registry gets a private one so that several
// servers can live in one process.
func New(store kanban.Store, cfg Config, logger *log.Logger, reg *prometheus.Registry) *Server {
	if logger == nil {
		logger = log.StandardLogger()
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	s := &Server{
		cfg:     cfg,
		store:   store,
		log:     logger,
		metrics: NewMetrics(reg),
		e:       echo.New(),
	}
	s.e.HideBanner = true
	s.e.HidePort = true
	s.e.HTTPErrorHandler = s.httpErrorHandler

	s.e.Use(s.observe)
	s.e.Use(middleware.Recover())
	s.e.Use(cors)
	if cfg.BodyLimit != "" {
		s.e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}
	s.routes(reg)
	return s
}

func (s *Server) routes(reg *prometheus.Registry) {
	s.e.GET("/health", s.health)
	s.e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	s.e.POST("/boards", s.createBoard)
	s.e.GET("/boards", s.listBoards)
	s.e.DELETE("/boards", s.deleteBoard)

	s.e.POST("/tasks", s.createTask)
	s.e.GET("/tasks", s.listTasksByBoard)
	s.e.GET("/tasks/by-status", s.listTasksByStatus)
	s.e.GET("/tasks/by-assignee", s.listTasksByAssignee)
	s.e.PATCH("/tasks/status", s.updateTaskStatus)
	s.e.DELETE("/tasks", s.deleteTask)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.e.ServeHTTP(w, r)
}

// Run listens on cfg.Addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.e.Server.ReadTimeout = s.cfg.ReadTimeout
	s.e.Server.WriteTimeout = s.cfg.WriteTimeout

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.e.Start(s.cfg.Addr)
	}()
	s.log.WithField("addr", s.cfg.Addr).Info("listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return s.e.Shutdown(shutdownCtx)
}

// observe logs every request and feeds the request metrics.
func (s *Server) observe(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		if err := next(c); err != nil {
			c.Error(err)
		}
		elapsed := time.Since(start)

		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request().Method
		status := c.Response().Status
		s.metrics.Requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
		s.metrics.RequestLatency.WithLabelValues(route, method).Observe(elapsed.Seconds())

		s.log.WithFields(log.Fields{
			"method":     method,
			"path":       c.Request().URL.Path,
			"status":     status,
			"latency_ms": float64(elapsed.Microseconds()) / 1000,
		}).Debug("request")
		return nil
	}
}

// cors allows any origin on every response and answers preflights directly.
func cors(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		h := c.Response().Header()
		h.Set(echo.HeaderAccessControlAllowOrigin, "*")
		h.Set(echo.HeaderAccessControlAllowHeaders, echo.HeaderContentType)
		h.Set(echo.HeaderAccessControlAllowMethods, "GET,POST,PATCH,DELETE,OPTIONS")
		if c.Request().Method == http.MethodOptions {
			return c.NoContent(http.StatusNoContent)
		}
		return next(c)
	}
}
