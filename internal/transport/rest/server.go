package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	logpkg "github.com/godilite/ila-server/internal/logger"
	"github.com/godilite/ila-server/internal/metrics"
	"github.com/godilite/ila-server/internal/service"
	"github.com/godilite/ila-server/internal/transport/api"
)

const (
	maxBodyBytes       = 1 << 20
	healthCheckTimeout = 2 * time.Second
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Server exposes the run controller over JSON/HTTP.
type Server struct {
	runner api.Runner
	checks map[string]HealthCheck
	logger *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(runner api.Runner, checks map[string]HealthCheck, logger *zap.Logger) *Server {
	if runner == nil {
		panic("runner must not be nil")
	}
	if logger == nil {
		l, _ := zap.NewProduction()
		logger = l
	}
	return &Server{runner: runner, checks: checks, logger: logger}
}

// Routes builds the chi router with the middleware stack.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(metrics.Middleware())

	r.Post("/v1/ila/calculate", s.Calculate)
	r.Get("/v1/ila/businesses/{id}/history", s.History)
	r.Get("/healthz", s.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, api.ErrorResponse{Error: "not found", Details: r.URL.Path})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, api.ErrorResponse{Error: "method not allowed", Details: r.Method})
	})
	return r
}

// Calculate handles POST /v1/ila/calculate.
func (s *Server) Calculate(w http.ResponseWriter, r *http.Request) {
	var req api.CalculateRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}

	resp, err := api.Calculate(r.Context(), s.runner, req)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// History handles GET /v1/ila/businesses/{id}/history.
func (s *Server) History(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.handleError(w, r, fmt.Errorf("%w: limit must be a positive integer", service.ErrMalformedInput))
			return
		}
		limit = n
	}

	entries, err := s.runner.History(r.Context(), id, limit)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.HistoryResponse{BusinessID: id, History: entries})
}

// Health handles GET /healthz.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			logpkg.FromContext(r.Context()).Warn("health check failed", zap.String("check", name), zap.Error(err))
			checks[name] = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	writeJSON(w, status, map[string]any{"status": overall, "checks": checks})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dest any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", service.ErrMalformedInput)
		}
		return fmt.Errorf("%w: invalid request body: %v", service.ErrMalformedInput, err)
	}
	return nil
}

func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	kind, resp := api.Classify(err)

	status := http.StatusInternalServerError
	switch kind {
	case api.KindMalformed:
		status = http.StatusBadRequest
	case api.KindNotFound:
		status = http.StatusNotFound
	case api.KindDeadline:
		status = http.StatusGatewayTimeout
	}

	logger := logpkg.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	} else {
		logger.Warn("request rejected", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
