package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/godilite/ila-server/internal/repository"
	"github.com/godilite/ila-server/internal/repository/models"
	"github.com/godilite/ila-server/internal/scoring"
	"github.com/godilite/ila-server/internal/service/mocks"
)

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }
func flag(v bool) *bool      { return &v }

// restaurant scores 37 ("low") with the built-in weights.
func restaurant(id string) scoring.BusinessSignals {
	return scoring.BusinessSignals{
		ID:          id,
		Name:        "Bistro " + id,
		Sector:      "restaurant",
		City:        "Lyon",
		Rating:      f64(4.8),
		ReviewCount: i64(150),
		HasPhotos:   flag(true),
		HasWebsite:  flag(false),
		HasBlog:     flag(false),
		Backlinks:   i64(0),
	}
}

func fixedClock() time.Time {
	return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
}

func newTestController(t *testing.T, repo *mocks.MockBusinessRepository, bench *BenchmarkService, cfg RunnerConfig) *RunController {
	t.Helper()
	r := NewRunController(repo, scoring.NewEngine(nil), bench, zaptest.NewLogger(t), cfg)
	r.now = fixedClock
	r.newRunID = func() string { return "run-test" }
	return r
}

// TestNewRunController tests the constructor
func TestNewRunController(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		r := NewRunController(&mocks.MockBusinessRepository{}, nil, nil, nil, RunnerConfig{})

		assert.NotNil(t, r.engine)
		assert.NotNil(t, r.logger)
		assert.Nil(t, r.limiter)
		assert.Equal(t, DefaultRunnerConfig(), r.cfg)
	})

	t.Run("rate limiter", func(t *testing.T) {
		cfg := DefaultRunnerConfig()
		cfg.RatePerSecond = 20
		r := NewRunController(&mocks.MockBusinessRepository{}, nil, nil, zap.NewNop(), cfg)

		require.NotNil(t, r.limiter)
		assert.InDelta(t, 20.0, float64(r.limiter.Limit()), 0.001)
	})

	t.Run("nil repository panics", func(t *testing.T) {
		assert.Panics(t, func() {
			NewRunController(nil, nil, nil, zap.NewNop(), DefaultRunnerConfig())
		})
	})
}

// TestScoreBusiness tests single-record scoring and persistence
func TestScoreBusiness(t *testing.T) {
	ctx := context.Background()

	t.Run("scores and persists", func(t *testing.T) {
		var saved models.ScoreRecord
		repo := &mocks.MockBusinessRepository{
			GetBusinessFunc: func(ctx context.Context, id string) (scoring.BusinessSignals, error) {
				assert.Equal(t, "resto-1", id)
				return restaurant(id), nil
			},
			SaveScoreFunc: func(ctx context.Context, rec models.ScoreRecord) error {
				_, hasDeadline := ctx.Deadline()
				assert.True(t, hasDeadline)
				saved = rec
				return nil
			},
		}
		r := newTestController(t, repo, nil, DefaultRunnerConfig())

		res, err := r.ScoreBusiness(ctx, "  resto-1 ")
		require.NoError(t, err)

		assert.Equal(t, StatusOK, res.Status)
		assert.Equal(t, "Bistro resto-1", res.Name)
		require.NotNil(t, res.Result)
		assert.Equal(t, 37, res.Result.Index)
		assert.Equal(t, scoring.PotentialLow, res.Result.Potential)
		assert.Nil(t, res.Result.Benchmark)
		assert.Empty(t, res.Error)

		assert.Equal(t, "resto-1", saved.BusinessID)
		assert.Equal(t, "run-test", saved.RunID)
		assert.Equal(t, 37, saved.Index)
		assert.Equal(t, res.Result.Weighted, saved.Scores)
		assert.Equal(t, res.Result.Recommendation, saved.Recommendation)
		assert.Equal(t, scoring.DefaultWeightTable().For("restaurant"), saved.Weights)
		assert.Equal(t, fixedClock(), saved.AnalyzedAt)
		assert.Nil(t, saved.Benchmark)
	})

	t.Run("empty id", func(t *testing.T) {
		r := newTestController(t, &mocks.MockBusinessRepository{}, nil, DefaultRunnerConfig())

		_, err := r.ScoreBusiness(ctx, "   ")
		assert.ErrorIs(t, err, ErrMalformedInput)
	})

	t.Run("not found", func(t *testing.T) {
		repo := &mocks.MockBusinessRepository{
			GetBusinessFunc: func(ctx context.Context, id string) (scoring.BusinessSignals, error) {
				return scoring.BusinessSignals{}, fmt.Errorf("%w: %s", repository.ErrNotFound, id)
			},
		}
		r := newTestController(t, repo, nil, DefaultRunnerConfig())

		_, err := r.ScoreBusiness(ctx, "ghost")
		assert.ErrorIs(t, err, ErrBusinessNotFound)
		assert.Contains(t, err.Error(), "ghost")
	})

	t.Run("read failure", func(t *testing.T) {
		repo := &mocks.MockBusinessRepository{
			GetBusinessFunc: func(ctx context.Context, id string) (scoring.BusinessSignals, error) {
				return scoring.BusinessSignals{}, errors.New("database is locked")
			},
		}
		r := newTestController(t, repo, nil, DefaultRunnerConfig())

		_, err := r.ScoreBusiness(ctx, "resto-1")
		assert.ErrorIs(t, err, ErrStorageFailure)
	})

	t.Run("persistence failure", func(t *testing.T) {
		repo := &mocks.MockBusinessRepository{
			GetBusinessFunc: func(ctx context.Context, id string) (scoring.BusinessSignals, error) {
				return restaurant(id), nil
			},
			SaveScoreFunc: func(ctx context.Context, rec models.ScoreRecord) error {
				return errors.New("constraint failed")
			},
		}
		r := newTestController(t, repo, nil, DefaultRunnerConfig())

		res, err := r.ScoreBusiness(ctx, "resto-1")
		assert.ErrorIs(t, err, ErrPersistenceFailure)
		assert.Equal(t, StatusError, res.Status)
		assert.Nil(t, res.Result)
		assert.Contains(t, res.Error, "constraint failed")
		assert.ErrorIs(t, res.Err(), ErrPersistenceFailure)
	})

	t.Run("persist timeout", func(t *testing.T) {
		repo := &mocks.MockBusinessRepository{
			GetBusinessFunc: func(ctx context.Context, id string) (scoring.BusinessSignals, error) {
				return restaurant(id), nil
			},
			SaveScoreFunc: func(ctx context.Context, rec models.ScoreRecord) error {
				<-ctx.Done()
				return ctx.Err()
			},
		}
		cfg := DefaultRunnerConfig()
		cfg.PersistTimeout = 10 * time.Millisecond
		r := newTestController(t, repo, nil, cfg)

		_, err := r.ScoreBusiness(ctx, "resto-1")
		assert.ErrorIs(t, err, ErrPersistenceFailure)
		assert.Contains(t, err.Error(), "deadline exceeded")
	})

	t.Run("row deleted before save", func(t *testing.T) {
		repo := &mocks.MockBusinessRepository{
			GetBusinessFunc: func(ctx context.Context, id string) (scoring.BusinessSignals, error) {
				return restaurant(id), nil
			},
			SaveScoreFunc: func(ctx context.Context, rec models.ScoreRecord) error {
				return fmt.Errorf("%w: %s", repository.ErrNotFound, rec.BusinessID)
			},
		}
		r := newTestController(t, repo, nil, DefaultRunnerConfig())

		_, err := r.ScoreBusiness(ctx, "resto-1")
		assert.ErrorIs(t, err, ErrBusinessNotFound)
	})
}

// TestScoreBusiness_Benchmark tests that the market benchmark is attached and persisted
func TestScoreBusiness_Benchmark(t *testing.T) {
	ctx := context.Background()

	t.Run("attached", func(t *testing.T) {
		var saved models.ScoreRecord
		repo := &mocks.MockBusinessRepository{
			GetBusinessFunc: func(ctx context.Context, id string) (scoring.BusinessSignals, error) {
				return restaurant(id), nil
			},
			SaveScoreFunc: func(ctx context.Context, rec models.ScoreRecord) error {
				saved = rec
				return nil
			},
			MarketScoresFunc: func(ctx context.Context, city, sector string, limit int) ([]models.PeerScore, error) {
				assert.Equal(t, "Lyon", city)
				assert.Equal(t, "restaurant", sector)
				return []models.PeerScore{{BusinessID: "resto-1", Score: 10}, {BusinessID: "p-1", Score: 45}, {BusinessID: "p-2", Score: 71}}, nil
			},
		}
		bench := NewBenchmarkService(repo, zap.NewNop())
		r := newTestController(t, repo, bench, DefaultRunnerConfig())

		res, err := r.ScoreBusiness(ctx, "resto-1")
		require.NoError(t, err)

		want := &scoring.Benchmark{MarketAverage: 58, MarketLeader: 71, PeerCount: 2}
		assert.Equal(t, want, res.Result.Benchmark)
		assert.Equal(t, want, saved.Benchmark)
	})

	t.Run("no peers leaves benchmark empty", func(t *testing.T) {
		repo := &mocks.MockBusinessRepository{
			GetBusinessFunc: func(ctx context.Context, id string) (scoring.BusinessSignals, error) {
				return restaurant(id), nil
			},
			SaveScoreFunc: func(ctx context.Context, rec models.ScoreRecord) error {
				assert.Nil(t, rec.Benchmark)
				return nil
			},
			MarketScoresFunc: func(ctx context.Context, city, sector string, limit int) ([]models.PeerScore, error) {
				return nil, nil
			},
		}
		r := newTestController(t, repo, NewBenchmarkService(repo, zap.NewNop()), DefaultRunnerConfig())

		res, err := r.ScoreBusiness(ctx, "resto-1")
		require.NoError(t, err)
		assert.Nil(t, res.Result.Benchmark)
	})

	t.Run("lookup failure is not fatal", func(t *testing.T) {
		repo := &mocks.MockBusinessRepository{
			GetBusinessFunc: func(ctx context.Context, id string) (scoring.BusinessSignals, error) {
				return restaurant(id), nil
			},
			SaveScoreFunc: func(ctx context.Context, rec models.ScoreRecord) error {
				return nil
			},
			MarketScoresFunc: func(ctx context.Context, city, sector string, limit int) ([]models.PeerScore, error) {
				return nil, errors.New("no such table")
			},
		}
		r := newTestController(t, repo, NewBenchmarkService(repo, zap.NewNop()), DefaultRunnerConfig())

		res, err := r.ScoreBusiness(ctx, "resto-1")
		require.NoError(t, err)
		assert.Equal(t, StatusOK, res.Status)
		assert.Nil(t, res.Result.Benchmark)
	})
}

func batchRepo(records []scoring.BusinessSignals, save func(ctx context.Context, rec models.ScoreRecord) error) *mocks.MockBusinessRepository {
	return &mocks.MockBusinessRepository{
		ListUnscoredFunc: func(ctx context.Context, limit int) ([]scoring.BusinessSignals, error) {
			if len(records) > limit {
				return records[:limit], nil
			}
			return records, nil
		},
		SaveScoreFunc: save,
	}
}

// TestRunBatch tests batch scoring with per-record failure isolation
func TestRunBatch(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()

	t.Run("mixed outcomes", func(t *testing.T) {
		records := []scoring.BusinessSignals{
			restaurant("r-1"),
			restaurant("r-2"),
			{ID: "empty", Sector: "unknown"},
		}
		var mu sync.Mutex
		saved := map[string]int{}
		repo := batchRepo(records, func(ctx context.Context, rec models.ScoreRecord) error {
			if rec.BusinessID == "r-2" {
				return errors.New("disk full")
			}
			mu.Lock()
			saved[rec.BusinessID] = rec.Index
			mu.Unlock()
			return nil
		})
		r := newTestController(t, repo, nil, DefaultRunnerConfig())

		report, err := r.RunBatch(ctx)
		require.NoError(t, err)

		assert.Equal(t, "run-test", report.RunID)
		assert.Equal(t, BatchSummary{Processed: 3, Succeeded: 2, Errors: 1, Skipped: 0, AverageScore: 19}, report.Summary)
		require.Len(t, report.Results, 3)

		assert.Equal(t, "r-1", report.Results[0].BusinessID)
		assert.Equal(t, StatusOK, report.Results[0].Status)
		assert.Equal(t, "r-2", report.Results[1].BusinessID)
		assert.Equal(t, StatusError, report.Results[1].Status)
		assert.Contains(t, report.Results[1].Error, "disk full")
		assert.Equal(t, StatusOK, report.Results[2].Status)
		assert.Equal(t, 0, report.Results[2].Result.Index)

		assert.Equal(t, map[string]int{"r-1": 37, "empty": 0}, saved)
	})

	t.Run("respects page size", func(t *testing.T) {
		records := make([]scoring.BusinessSignals, 10)
		for i := range records {
			records[i] = restaurant(fmt.Sprintf("r-%d", i))
		}
		repo := batchRepo(records, func(ctx context.Context, rec models.ScoreRecord) error { return nil })
		cfg := DefaultRunnerConfig()
		cfg.PageSize = 4
		cfg.RatePerSecond = 1000
		r := newTestController(t, repo, nil, cfg)

		report, err := r.RunBatch(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, report.Summary.Processed)
		assert.Equal(t, 37, report.Summary.AverageScore)
	})

	t.Run("nothing to score", func(t *testing.T) {
		r := newTestController(t, batchRepo(nil, nil), nil, DefaultRunnerConfig())

		report, err := r.RunBatch(ctx)
		require.NoError(t, err)
		assert.Equal(t, BatchSummary{}, report.Summary)
		assert.NotNil(t, report.Results)
		assert.Empty(t, report.Results)
	})

	t.Run("selection failure", func(t *testing.T) {
		repo := &mocks.MockBusinessRepository{
			ListUnscoredFunc: func(ctx context.Context, limit int) ([]scoring.BusinessSignals, error) {
				return nil, errors.New("database is locked")
			},
		}
		r := newTestController(t, repo, nil, DefaultRunnerConfig())

		_, err := r.RunBatch(ctx)
		assert.ErrorIs(t, err, ErrStorageFailure)
	})
}

// TestRunBatch_Cancellation tests that records not yet started are skipped once the batch is canceled
func TestRunBatch_Cancellation(t *testing.T) {
	defer goleak.VerifyNone(t)

	t.Run("canceled mid-batch", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		records := []scoring.BusinessSignals{restaurant("r-1"), restaurant("r-2"), restaurant("r-3")}
		repo := batchRepo(records, func(saveCtx context.Context, rec models.ScoreRecord) error {
			cancel()
			// the in-flight record still completes
			return saveCtx.Err()
		})
		cfg := DefaultRunnerConfig()
		cfg.Workers = 1
		r := newTestController(t, repo, nil, cfg)

		report, err := r.RunBatch(ctx)
		require.NoError(t, err)

		assert.Equal(t, BatchSummary{Processed: 1, Succeeded: 1, Skipped: 2, AverageScore: 37}, report.Summary)
		assert.Equal(t, StatusOK, report.Results[0].Status)
		assert.Equal(t, StatusSkipped, report.Results[1].Status)
		assert.Equal(t, StatusSkipped, report.Results[2].Status)
		assert.Nil(t, report.Results[2].Result)
		assert.Empty(t, report.Results[2].Error)
	})

	t.Run("canceled before start", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		records := []scoring.BusinessSignals{restaurant("r-1"), restaurant("r-2")}
		repo := batchRepo(records, func(ctx context.Context, rec models.ScoreRecord) error {
			t.Error("no record should be persisted")
			return nil
		})
		r := newTestController(t, repo, nil, DefaultRunnerConfig())

		report, err := r.RunBatch(ctx)
		require.NoError(t, err)
		assert.Equal(t, BatchSummary{Skipped: 2}, report.Summary)
	})
}

// TestRunBatch_SingleWriterPerBusiness tests that concurrent scoring of one business writes once
func TestRunBatch_SingleWriterPerBusiness(t *testing.T) {
	defer goleak.VerifyNone(t)

	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	var mu sync.Mutex
	writes := 0

	repo := &mocks.MockBusinessRepository{
		GetBusinessFunc: func(ctx context.Context, id string) (scoring.BusinessSignals, error) {
			return restaurant(id), nil
		},
		SaveScoreFunc: func(ctx context.Context, rec models.ScoreRecord) error {
			mu.Lock()
			writes++
			mu.Unlock()
			entered <- struct{}{}
			<-release
			return nil
		},
	}
	r := newTestController(t, repo, nil, DefaultRunnerConfig())

	var wg sync.WaitGroup
	results := make([]RecordResult, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _ = r.ScoreBusiness(context.Background(), "resto-1")
	}()
	<-entered

	// The first call holds the write; a second call for the same id joins it.
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], _ = r.ScoreBusiness(context.Background(), "resto-1")
	}()
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, 1, writes)
	assert.Equal(t, StatusOK, results[0].Status)
	assert.Equal(t, StatusOK, results[1].Status)
}

// TestHistory tests history retrieval
func TestHistory(t *testing.T) {
	ctx := context.Background()
	existing := &mocks.MockBusinessRepository{
		GetBusinessFunc: func(ctx context.Context, id string) (scoring.BusinessSignals, error) {
			if id != "resto-1" {
				return scoring.BusinessSignals{}, repository.ErrNotFound
			}
			return restaurant(id), nil
		},
		ListHistoryFunc: func(ctx context.Context, businessID string, limit int) ([]models.ScoreHistoryEntry, error) {
			assert.Equal(t, DefaultHistoryLimit, limit)
			return nil, nil
		},
	}
	r := newTestController(t, existing, nil, DefaultRunnerConfig())

	t.Run("empty history", func(t *testing.T) {
		entries, err := r.History(ctx, "resto-1", 0)
		require.NoError(t, err)
		assert.NotNil(t, entries)
		assert.Empty(t, entries)
	})

	t.Run("unknown business", func(t *testing.T) {
		_, err := r.History(ctx, "ghost", 0)
		assert.ErrorIs(t, err, ErrBusinessNotFound)
	})

	t.Run("limit too large", func(t *testing.T) {
		_, err := r.History(ctx, "resto-1", MaxHistoryLimit+1)
		assert.ErrorIs(t, err, ErrMalformedInput)
	})
}

// TestSummarize tests batch counters
func TestSummarize(t *testing.T) {
	results := []RecordResult{
		{Status: StatusOK, Result: &scoring.Result{Index: 41}},
		{Status: StatusOK, Result: &scoring.Result{Index: 42}},
		{Status: StatusError, Error: "boom"},
		{Status: StatusSkipped},
	}

	assert.Equal(t, BatchSummary{Processed: 3, Succeeded: 2, Errors: 1, Skipped: 1, AverageScore: 42}, Summarize(results))
	assert.Equal(t, BatchSummary{}, Summarize(nil))
}
