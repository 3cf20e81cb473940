package mocks

import (
	"context"
	"errors"

	"github.com/godilite/ila-server/internal/repository/models"
	"github.com/godilite/ila-server/internal/scoring"
)

// MockBusinessRepository is a mock implementation of the BusinessRepository and
// MarketReader interfaces for testing the service layer.
type MockBusinessRepository struct {
	GetBusinessFunc  func(ctx context.Context, id string) (scoring.BusinessSignals, error)
	ListUnscoredFunc func(ctx context.Context, limit int) ([]scoring.BusinessSignals, error)
	SaveScoreFunc    func(ctx context.Context, rec models.ScoreRecord) error
	ListHistoryFunc  func(ctx context.Context, businessID string, limit int) ([]models.ScoreHistoryEntry, error)
	MarketScoresFunc func(ctx context.Context, city, sector string, limit int) ([]models.PeerScore, error)
}

// GetBusiness implements the BusinessRepository interface
func (m *MockBusinessRepository) GetBusiness(ctx context.Context, id string) (scoring.BusinessSignals, error) {
	if m.GetBusinessFunc != nil {
		return m.GetBusinessFunc(ctx, id)
	}
	return scoring.BusinessSignals{}, errors.New("GetBusinessFunc not implemented")
}

// ListUnscored implements the BusinessRepository interface
func (m *MockBusinessRepository) ListUnscored(ctx context.Context, limit int) ([]scoring.BusinessSignals, error) {
	if m.ListUnscoredFunc != nil {
		return m.ListUnscoredFunc(ctx, limit)
	}
	return nil, errors.New("ListUnscoredFunc not implemented")
}

// SaveScore implements the BusinessRepository interface
func (m *MockBusinessRepository) SaveScore(ctx context.Context, rec models.ScoreRecord) error {
	if m.SaveScoreFunc != nil {
		return m.SaveScoreFunc(ctx, rec)
	}
	return errors.New("SaveScoreFunc not implemented")
}

// ListHistory implements the BusinessRepository interface
func (m *MockBusinessRepository) ListHistory(ctx context.Context, businessID string, limit int) ([]models.ScoreHistoryEntry, error) {
	if m.ListHistoryFunc != nil {
		return m.ListHistoryFunc(ctx, businessID, limit)
	}
	return nil, errors.New("ListHistoryFunc not implemented")
}

// MarketScores implements the MarketReader interface
func (m *MockBusinessRepository) MarketScores(ctx context.Context, city, sector string, limit int) ([]models.PeerScore, error) {
	if m.MarketScoresFunc != nil {
		return m.MarketScoresFunc(ctx, city, sector, limit)
	}
	return nil, errors.New("MarketScoresFunc not implemented")
}
