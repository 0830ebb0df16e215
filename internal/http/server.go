// Package http serves the online answering API.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mcqrouter/internal/answer"
	"github.com/fyrsmithlabs/mcqrouter/internal/logging"
	"github.com/fyrsmithlabs/mcqrouter/internal/question"
	"github.com/fyrsmithlabs/mcqrouter/internal/router"
)

// Router classifies a question.
type Router interface {
	Route(ctx context.Context, q question.Question) router.Route
}

// Answerer answers one question on the single-question path.
type Answerer interface {
	Single(ctx context.Context, q question.Question, d question.Domain) (answer.Result, error)
}

// Server provides HTTP endpoints for mcqrouter.
type Server struct {
	echo     *echo.Echo
	router   Router
	answerer Answerer
	logger   *logging.Logger
	metrics  *HTTPMetrics
	config   *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// NewServer creates a new HTTP server.
func NewServer(r Router, a Answerer, logger *logging.Logger, cfg *Config) (*Server, error) {
	if r == nil || a == nil {
		return nil, fmt.Errorf("router and answerer are required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{Host: "127.0.0.1", Port: 8080}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	m := NewHTTPMetrics(logger)
	e.Use(m.MetricsMiddleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			logger.Info(c.Request().Context(), "http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{
		echo:     e,
		router:   r,
		answerer: a,
		logger:   logger,
		metrics:  m,
		config:   cfg,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/answer", s.handleAnswer)
}

// AnswerRequest is the request body for POST /api/v1/answer.
type AnswerRequest struct {
	QID      string   `json:"qid"`
	Question string   `json:"question"`
	Choices  []string `json:"choices"`
}

// AnswerResponse is the response body for POST /api/v1/answer. Answer is
// always a valid letter; Reason is set when it is the default.
type AnswerResponse struct {
	QID        string  `json:"qid"`
	Answer     string  `json:"answer"`
	Domain     string  `json:"domain"`
	Confidence float64 `json:"confidence"`
	Context    string  `json:"context"`
	Reason     string  `json:"reason,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleAnswer(c echo.Context) error {
	var req AnswerRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(c.Request().Context(), "invalid answer request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	q := question.Question{QID: req.QID, Question: req.Question, Choices: req.Choices}
	if err := errors.Join(q.Validate(), q.CheckChoices()); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	route := s.router.Route(ctx, q)
	ctx = logging.WithQuestion(ctx, q.QID, route.Domain.String())

	res, err := s.answerer.Single(ctx, q, route.Domain)
	resp := AnswerResponse{
		QID:        q.QID,
		Answer:     res.Answer,
		Domain:     route.Domain.String(),
		Confidence: route.Confidence,
		Context:    string(res.Source),
		Reason:     string(res.Reason),
	}
	if err != nil {
		// res.Answer already holds the default letter.
		resp.Error = err.Error()
		if errors.Is(err, context.Canceled) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "request cancelled")
		}
	}
	s.metrics.recordAnswer(ctx, route.Domain, res.Reason != "")
	return c.JSON(http.StatusOK, resp)
}

// Start starts the HTTP server. It returns http.ErrServerClosed after Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
