// Package api holds the request and response shapes shared by the HTTP and gRPC transports,
// and the mapping from service errors to transport-neutral kinds.
package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/godilite/ila-server/internal/repository/models"
	"github.com/godilite/ila-server/internal/service"
)

// Runner is the run controller as seen by the transports.
type Runner interface {
	ScoreBusiness(ctx context.Context, id string) (service.RecordResult, error)
	RunBatch(ctx context.Context) (service.BatchReport, error)
	History(ctx context.Context, id string, limit int) ([]models.ScoreHistoryEntry, error)
}

type CalculateRequest struct {
	BusinessID string `json:"businessId,omitempty"`
	BatchMode  bool   `json:"batchMode,omitempty"`
}

// CalculateResponse carries a single RecordResult or the list of batch results in Results.
type CalculateResponse struct {
	Success bool                 `json:"success"`
	Message string               `json:"message"`
	RunID   string               `json:"runId,omitempty"`
	Summary service.BatchSummary `json:"summary"`
	Results any                  `json:"results"`
}

type HistoryResponse struct {
	BusinessID string                     `json:"businessId"`
	History    []models.ScoreHistoryEntry `json:"history"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

// Calculate dispatches on the request mode. batchMode wins over businessId; a request with
// neither is malformed.
func Calculate(ctx context.Context, runner Runner, req CalculateRequest) (CalculateResponse, error) {
	if req.BatchMode {
		report, err := runner.RunBatch(ctx)
		if err != nil {
			return CalculateResponse{}, err
		}
		s := report.Summary
		return CalculateResponse{
			Success: true,
			Message: fmt.Sprintf("Batch processed: %d succeeded, %d errors, %d skipped", s.Succeeded, s.Errors, s.Skipped),
			RunID:   report.RunID,
			Summary: s,
			Results: report.Results,
		}, nil
	}

	id := strings.TrimSpace(req.BusinessID)
	if id == "" {
		return CalculateResponse{}, fmt.Errorf("%w: businessId or batchMode=true is required", service.ErrMalformedInput)
	}

	res, err := runner.ScoreBusiness(ctx, id)
	if err != nil {
		return CalculateResponse{}, err
	}
	return CalculateResponse{
		Success: true,
		Message: fmt.Sprintf("ILA computed for business %s", id),
		Summary: service.Summarize([]service.RecordResult{res}),
		Results: res,
	}, nil
}

type Kind int

const (
	KindInternal Kind = iota
	KindMalformed
	KindNotFound
	KindCanceled
	KindDeadline
)

// Classify maps an error to its kind and a client-facing message. Details of unexpected
// errors are not exposed.
func Classify(err error) (Kind, ErrorResponse) {
	switch {
	case errors.Is(err, service.ErrMalformedInput):
		return KindMalformed, ErrorResponse{Error: "malformed input", Details: err.Error()}
	case errors.Is(err, service.ErrBusinessNotFound):
		return KindNotFound, ErrorResponse{Error: "business not found", Details: err.Error()}
	case errors.Is(err, service.ErrPersistenceFailure):
		return KindInternal, ErrorResponse{Error: "persistence failure", Details: err.Error()}
	case errors.Is(err, service.ErrStorageFailure):
		return KindInternal, ErrorResponse{Error: "storage failure", Details: err.Error()}
	case errors.Is(err, context.Canceled):
		return KindCanceled, ErrorResponse{Error: "request canceled", Details: err.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		return KindDeadline, ErrorResponse{Error: "deadline exceeded", Details: err.Error()}
	default:
		return KindInternal, ErrorResponse{Error: "internal error", Details: "unexpected error"}
	}
}
