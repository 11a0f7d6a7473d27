// internal/server/server.go
// Package server exposes the query path over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/mwiater/pdfrag/internal/generator"
	"github.com/mwiater/pdfrag/internal/logging"
	"github.com/mwiater/pdfrag/internal/metrics"
	"github.com/mwiater/pdfrag/internal/rag"
)

const maxTopK = 50

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k,omitempty"`
}

// MatchResponse is one retrieved chunk.
type MatchResponse struct {
	ID     string  `json:"id"`
	Score  float64 `json:"score"`
	Source string  `json:"source,omitempty"`
	Text   string  `json:"text,omitempty"`
}

// QueryResponse is the answer to POST /query.
type QueryResponse struct {
	Answer         string          `json:"answer"`
	Kind           string          `json:"kind"`
	Reason         string          `json:"reason,omitempty"`
	Error          string          `json:"error,omitempty"`
	ResponseTimeMs int64           `json:"response_time_ms"`
	Matches        []MatchResponse `json:"matches"`
}

// Server routes HTTP requests to the retriever and generator.
type Server struct {
	echo      *echo.Echo
	retriever *rag.Retriever
	generator *generator.Generator
}

// New builds the router. m may be nil, in which case /metrics is not mounted.
func New(r *rag.Retriever, g *generator.Generator, m *metrics.Metrics) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logging.Logf(logging.Server, "%s %s %d %s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))

	s := &Server{echo: e, retriever: r, generator: g}
	e.GET("/healthz", s.health)
	e.POST("/query", s.query)
	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}
	return s
}

// Handler returns the router for use with httptest or a custom http.Server.
func (s *Server) Handler() http.Handler { return s.echo }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Logf(logging.Server, "listening on %s", addr)
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
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":    "ok",
		"generator": s.generator.Available(),
	})
}

func (s *Server) query(c echo.Context) error {
	var req QueryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Question) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question is required")
	}
	if req.TopK < 0 || req.TopK > maxTopK {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("top_k must be between 1 and %d, or 0 for the configured default", maxTopK))
	}

	answer, err := rag.Ask(c.Request().Context(), s.retriever, s.generator, req.Question, req.TopK)
	if err != nil {
		logging.Logf(logging.Server, "query failed: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	resp := QueryResponse{
		Answer:         answer.Result.String(),
		Kind:           answer.Result.Kind.String(),
		ResponseTimeMs: answer.ResponseTime.Milliseconds(),
		Matches:        make([]MatchResponse, 0, len(answer.Retrieval.Matches)),
	}
	switch answer.Result.Kind {
	case generator.KindDegraded:
		resp.Reason = answer.Result.Reason
	case generator.KindFailed:
		if answer.Result.Err != nil {
			resp.Error = answer.Result.Err.Error()
		}
	}
	for _, m := range answer.Retrieval.Matches {
		mr := MatchResponse{ID: m.ID, Score: m.Score}
		if m.Metadata != nil {
			mr.Source = m.Metadata.Source
			mr.Text = m.Metadata.Text
		}
		resp.Matches = append(resp.Matches, mr)
	}
	return c.JSON(http.StatusOK, resp)
}
