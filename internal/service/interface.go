package service

import (
	"context"
	"time"

	"github.com/godilite/ila-server/internal/repository/models"
	"github.com/godilite/ila-server/internal/scoring"
)

// BusinessRepository defines the storage operations the run controller depends on.
type BusinessRepository interface {
	GetBusiness(ctx context.Context, id string) (scoring.BusinessSignals, error)
	ListUnscored(ctx context.Context, limit int) ([]scoring.BusinessSignals, error)
	SaveScore(ctx context.Context, rec models.ScoreRecord) error
	ListHistory(ctx context.Context, businessID string, limit int) ([]models.ScoreHistoryEntry, error)
}

// MarketReader reads the current indices of a city/sector market.
type MarketReader interface {
	MarketScores(ctx context.Context, city, sector string, limit int) ([]models.PeerScore, error)
}

// Cacher is the subset of pkg/cache used for benchmark lookups.
type Cacher interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
