// Package httpapi serves the chat agent over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/oliverbatey/forager/internal/core/domain"
	"github.com/oliverbatey/forager/internal/core/ports/driving"
	"github.com/oliverbatey/forager/internal/logger"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = "64K"

// ErrMissingAgent is returned when the agent service is not provided.
var ErrMissingAgent = errors.New("httpapi: agent service is required")

// Ports aggregates the driving ports used by the HTTP server.
type Ports struct {
	// Agent answers chat messages.
	Agent driving.AgentService

	// Search backs the chunk count in /v1/status. Optional.
	Search driving.SearchService

	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

// Server is the echo application.
type Server struct {
	ports *Ports
	echo  *echo.Echo
}

// NewServer builds the router.
func NewServer(ports *Ports) (*Server, error) {
	if ports == nil || ports.Agent == nil {
		return nil, ErrMissingAgent
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(maxBodyBytes))
	e.Use(requestLogger())
	e.HTTPErrorHandler = errorHandler

	s := &Server{ports: ports, echo: e}

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if ports.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(ports.Metrics))
	}

	v1 := e.Group("/v1")
	v1.POST("/sessions/:id/messages", s.postMessage)
	v1.DELETE("/sessions/:id", s.deleteSession)
	v1.GET("/status", s.status)

	return s, nil
}

// Handler returns the router for use with httptest or a custom server.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run listens on addr until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

type messageRequest struct {
	Message string `json:"message"`
}

type messageResponse struct {
	SessionID     string   `json:"session_id"`
	Reply         string   `json:"reply"`
	Iterations    int      `json:"iterations"`
	ToolCalls     []string `json:"tool_calls"`
	LimitExceeded bool     `json:"limit_exceeded"`
}

type statusResponse struct {
	Sessions int  `json:"sessions"`
	Chunks   *int `json:"chunks,omitempty"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) postMessage(c echo.Context) error {
	id := c.Param("id")
	var req messageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "body must be a JSON object with a message field")
	}
	if strings.TrimSpace(req.Message) == "" {
		return fmt.Errorf("message is required: %w", domain.ErrEmptyInput)
	}

	reply, err := s.ports.Agent.Chat(c.Request().Context(), id, req.Message)
	if err != nil && !errors.Is(err, domain.ErrIterationLimitExceeded) {
		return err
	}
	if reply == nil {
		return fmt.Errorf("agent returned no reply: %w", domain.ErrGeneration)
	}

	tools := make([]string, len(reply.ToolCalls))
	for i, call := range reply.ToolCalls {
		tools[i] = string(call.Name)
	}
	return c.JSON(http.StatusOK, messageResponse{
		SessionID:     id,
		Reply:         reply.Text,
		Iterations:    reply.Iterations,
		ToolCalls:     tools,
		LimitExceeded: reply.LimitExceeded,
	})
}

func (s *Server) deleteSession(c echo.Context) error {
	s.ports.Agent.Reset(c.Param("id"))
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) status(c echo.Context) error {
	resp := statusResponse{Sessions: s.ports.Agent.SessionCount()}
	if s.ports.Search != nil {
		n, err := s.ports.Search.Count(c.Request().Context())
		if err != nil {
			return err
		}
		resp.Chunks = &n
	}
	return c.JSON(http.StatusOK, resp)
}

// statusFor maps a domain error kind to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrEmptyInput), errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrUpstream), errors.Is(err, domain.ErrGeneration):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrStoreUnavailable), errors.Is(err, domain.ErrConfig):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// errorHandler writes every failure as {"error": kind, "message": text}.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := statusFor(err)
	body := errorResponse{Error: domain.ErrorKind(err), Message: err.Error()}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		body.Error = http.StatusText(he.Code)
		body.Message = fmt.Sprint(he.Message)
	}

	if code >= http.StatusInternalServerError {
		logger.Error("%s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	}
	if err := c.JSON(code, body); err != nil {
		logger.Warn("writing error response: %v", err)
	}
}

// requestLogger handles errors itself so the logged status is the one sent.
func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}
			logger.Debug("%s %s %d %s", c.Request().Method, c.Request().URL.Path,
				c.Response().Status, time.Since(start).Round(time.Millisecond))
			return nil
		}
	}
}
