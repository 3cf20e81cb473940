package service

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/godilite/ila-server/internal/repository/models"
	"github.com/godilite/ila-server/internal/scoring"
)

const (
	DefaultPeerLimit    = 50
	DefaultBenchmarkTTL = time.Minute
)

// BenchmarkService computes market averages and leaders for a city and sector.
type BenchmarkService struct {
	repo      MarketReader
	cache     Cacher
	sf        singleflight.Group
	ttl       time.Duration
	peerLimit int
	logger    *zap.Logger
}

type BenchmarkOption func(*BenchmarkService)

// WithCache enables the read-through cache. A nil Cacher leaves caching off.
func WithCache(c Cacher, ttl time.Duration) BenchmarkOption {
	return func(s *BenchmarkService) {
		s.cache = c
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithPeerLimit(n int) BenchmarkOption {
	return func(s *BenchmarkService) {
		if n > 0 {
			s.peerLimit = n
		}
	}
}

// NewBenchmarkService creates a new BenchmarkService instance.
func NewBenchmarkService(repo MarketReader, logger *zap.Logger, opts ...BenchmarkOption) *BenchmarkService {
	if repo == nil {
		panic("market reader must not be nil")
	}
	if logger == nil {
		l, _ := zap.NewProduction()
		logger = l
	}
	s := &BenchmarkService{
		repo:      repo,
		ttl:       DefaultBenchmarkTTL,
		peerLimit: DefaultPeerLimit,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func marketKey(city, sector string) string {
	return fmt.Sprintf("benchmark:%s:%s", url.QueryEscape(city), url.QueryEscape(sector))
}

// Lookup returns the benchmark of the market the business belongs to, excluding the business
// itself. ErrNoPeers is returned when no other business in the market has been scored.
func (s *BenchmarkService) Lookup(ctx context.Context, city, sector, excludeID string) (scoring.Benchmark, error) {
	// One extra row so the excluded business cannot shrink the peer set below the limit.
	limit := s.peerLimit + 1
	market, err := findAndCache(ctx, s.cache, &s.sf, marketKey(city, sector), s.ttl, s.logger,
		func(ctx context.Context) ([]models.PeerScore, error) {
			dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
			defer cancel()

			scores, err := s.repo.MarketScores(dbCtx, city, sector, limit)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
			}
			if scores == nil {
				scores = []models.PeerScore{}
			}
			return scores, nil
		})
	if err != nil {
		return scoring.Benchmark{}, err
	}

	peers := make([]int, 0, len(market))
	for _, p := range market {
		if p.BusinessID == excludeID {
			continue
		}
		if len(peers) == s.peerLimit {
			break
		}
		peers = append(peers, p.Score)
	}

	b, ok := ComputeBenchmark(peers)
	if !ok {
		return scoring.Benchmark{}, ErrNoPeers
	}
	return b, nil
}

// Invalidate drops the cached market so the next lookup sees freshly saved scores.
func (s *BenchmarkService) Invalidate(ctx context.Context, city, sector string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, marketKey(city, sector)); err != nil {
		s.logger.Warn("failed to invalidate benchmark cache",
			zap.String("city", city),
			zap.String("sector", sector),
			zap.Error(err))
	}
}

// ComputeBenchmark returns the rounded mean and the maximum of the scores. It reports false
// for an empty set.
func ComputeBenchmark(scores []int) (scoring.Benchmark, bool) {
	if len(scores) == 0 {
		return scoring.Benchmark{}, false
	}
	sum, leader := 0, scores[0]
	for _, s := range scores {
		sum += s
		if s > leader {
			leader = s
		}
	}
	return scoring.Benchmark{
		MarketAverage: int(math.Round(float64(sum) / float64(len(scores)))),
		MarketLeader:  leader,
		PeerCount:     len(scores),
	}, true
}
