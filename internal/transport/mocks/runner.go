package mocks

import (
	"context"
	"errors"

	"github.com/godilite/ila-server/internal/repository/models"
	"github.com/godilite/ila-server/internal/service"
)

// MockRunner is a mock implementation of the Runner interface shared by the HTTP and gRPC transports.
type MockRunner struct {
	ScoreBusinessFunc func(ctx context.Context, id string) (service.RecordResult, error)
	RunBatchFunc      func(ctx context.Context) (service.BatchReport, error)
	HistoryFunc       func(ctx context.Context, id string, limit int) ([]models.ScoreHistoryEntry, error)
}

// ScoreBusiness implements the Runner interface
func (m *MockRunner) ScoreBusiness(ctx context.Context, id string) (service.RecordResult, error) {
	if m.ScoreBusinessFunc != nil {
		return m.ScoreBusinessFunc(ctx, id)
	}
	return service.RecordResult{}, errors.New("ScoreBusinessFunc not implemented")
}

// RunBatch implements the Runner interface
func (m *MockRunner) RunBatch(ctx context.Context) (service.BatchReport, error) {
	if m.RunBatchFunc != nil {
		return m.RunBatchFunc(ctx)
	}
	return service.BatchReport{}, errors.New("RunBatchFunc not implemented")
}

// History implements the Runner interface
func (m *MockRunner) History(ctx context.Context, id string, limit int) ([]models.ScoreHistoryEntry, error) {
	if m.HistoryFunc != nil {
		return m.HistoryFunc(ctx, id, limit)
	}
	return nil, errors.New("HistoryFunc not implemented")
}
