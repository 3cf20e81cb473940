package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/godilite/ila-server/internal/metrics"
	"github.com/godilite/ila-server/internal/repository"
	"github.com/godilite/ila-server/internal/repository/models"
	"github.com/godilite/ila-server/internal/scoring"
)

const (
	dbTimeout = 2 * time.Second

	DefaultPageSize       = 100
	DefaultWorkers        = 4
	DefaultPersistTimeout = 5 * time.Second
	DefaultHistoryLimit   = 20
	MaxHistoryLimit       = 500
)

type RunnerConfig struct {
	// PageSize caps how many unscored records one batch selects.
	PageSize int
	Workers  int
	// RatePerSecond paces record starts; 0 disables pacing.
	RatePerSecond  float64
	PersistTimeout time.Duration
}

func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		PageSize:       DefaultPageSize,
		Workers:        DefaultWorkers,
		PersistTimeout: DefaultPersistTimeout,
	}
}

// RunController scores a single business on demand or a page of unscored businesses.
type RunController struct {
	repo     BusinessRepository
	engine   *scoring.Engine
	bench    *BenchmarkService
	logger   *zap.Logger
	cfg      RunnerConfig
	limiter  *rate.Limiter
	inflight singleflight.Group
	now      func() time.Time
	newRunID func() string
}

// NewRunController creates a new RunController instance. bench may be nil, in which case
// results carry no benchmark.
func NewRunController(repo BusinessRepository, engine *scoring.Engine, bench *BenchmarkService, logger *zap.Logger, cfg RunnerConfig) *RunController {
	if repo == nil {
		panic("repository must not be nil")
	}
	if engine == nil {
		engine = scoring.NewEngine(nil)
	}
	if logger == nil {
		l, _ := zap.NewProduction()
		logger = l
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = DefaultPersistTimeout
	}

	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}

	return &RunController{
		repo:     repo,
		engine:   engine,
		bench:    bench,
		logger:   logger,
		cfg:      cfg,
		limiter:  limiter,
		now:      time.Now,
		newRunID: uuid.NewString,
	}
}

// ScoreBusiness scores and persists one business.
func (r *RunController) ScoreBusiness(ctx context.Context, id string) (RecordResult, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return RecordResult{}, fmt.Errorf("%w: business id is required", ErrMalformedInput)
	}

	b, err := r.load(ctx, id)
	if err != nil {
		return RecordResult{}, err
	}

	res := r.scoreRecord(ctx, b, r.newRunID(), "single")
	if res.Status == StatusError {
		return res, res.err
	}
	return res, nil
}

// RunBatch scores up to PageSize unscored businesses on a bounded worker pool. Per-record
// failures are reported in the results and never abort the batch. Cancellation is observed
// between records: records already started finish, the rest are reported as skipped.
func (r *RunController) RunBatch(ctx context.Context) (BatchReport, error) {
	started := time.Now()
	runID := r.newRunID()
	logger := r.logger.With(zap.String("run_id", runID))

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	records, err := r.repo.ListUnscored(dbCtx, r.cfg.PageSize)
	cancel()
	if err != nil {
		return BatchReport{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	results := make([]RecordResult, len(records))
	for i, b := range records {
		results[i] = RecordResult{BusinessID: b.ID, Name: b.Name, Status: StatusSkipped}
	}

	workCtx := context.WithoutCancel(ctx)
	var g errgroup.Group
	g.SetLimit(r.cfg.Workers)

	for i, b := range records {
		i, b := i, b
		if ctx.Err() != nil {
			break
		}
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				break
			}
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			results[i] = r.scoreRecord(workCtx, b, runID, "batch")
			return nil
		})
	}
	_ = g.Wait()

	summary := Summarize(results)
	for i := range results {
		if results[i].Status == StatusSkipped {
			metrics.ObserveRecord("batch", StatusSkipped, records[i].Sector, 0)
		}
	}
	metrics.ObserveBatch(started)

	fields := []zap.Field{
		zap.Int("selected", len(records)),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("errors", summary.Errors),
		zap.Int("skipped", summary.Skipped),
		zap.Int("average_score", summary.AverageScore),
		zap.Duration("duration", time.Since(started)),
	}
	if ctx.Err() != nil {
		logger.Warn("batch canceled", append(fields, zap.Error(ctx.Err()))...)
	} else {
		logger.Info("batch completed", fields...)
	}

	return BatchReport{
		RunID:      runID,
		Summary:    summary,
		Results:    results,
		DurationMs: time.Since(started).Milliseconds(),
	}, nil
}

// History returns the most recent score history of an existing business, newest first.
func (r *RunController) History(ctx context.Context, id string, limit int) ([]models.ScoreHistoryEntry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: business id is required", ErrMalformedInput)
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return nil, fmt.Errorf("%w: limit must be at most %d", ErrMalformedInput, MaxHistoryLimit)
	}

	if _, err := r.load(ctx, id); err != nil {
		return nil, err
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	entries, err := r.repo.ListHistory(dbCtx, id, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	if entries == nil {
		entries = []models.ScoreHistoryEntry{}
	}
	return entries, nil
}

func (r *RunController) load(ctx context.Context, id string) (scoring.BusinessSignals, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	b, err := r.repo.GetBusiness(dbCtx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return scoring.BusinessSignals{}, fmt.Errorf("%w: %s", ErrBusinessNotFound, id)
		}
		return scoring.BusinessSignals{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return b, nil
}

// scoreRecord collapses concurrent scoring of the same business into one computation and
// one write; every caller receives the shared outcome.
func (r *RunController) scoreRecord(ctx context.Context, b scoring.BusinessSignals, runID, mode string) RecordResult {
	v, _, _ := r.inflight.Do(b.ID, func() (any, error) {
		return r.process(ctx, b, runID), nil
	})
	res := v.(RecordResult)

	index := 0
	if res.Result != nil {
		index = res.Result.Index
	}
	metrics.ObserveRecord(mode, res.Status, b.Sector, index)
	return res
}

func (r *RunController) process(ctx context.Context, b scoring.BusinessSignals, runID string) RecordResult {
	logger := r.logger.With(zap.String("business_id", b.ID), zap.String("run_id", runID))

	result := r.engine.Score(b)

	if r.bench != nil {
		bm, err := r.bench.Lookup(ctx, b.City, b.Sector, b.ID)
		switch {
		case err == nil:
			result.Benchmark = &bm
		case errors.Is(err, ErrNoPeers):
			logger.Debug("no benchmark available", zap.String("city", b.City), zap.String("sector", b.Sector))
		default:
			logger.Warn("benchmark lookup failed, continuing without it", zap.Error(err))
		}
	}

	rec := models.ScoreRecord{
		BusinessID:     b.ID,
		RunID:          runID,
		City:           b.City,
		Sector:         b.Sector,
		Index:          result.Index,
		Potential:      result.Potential,
		Scores:         result.Weighted,
		Recommendation: result.Recommendation,
		Weights:        result.Weights,
		Benchmark:      result.Benchmark,
		AnalyzedAt:     r.now(),
	}

	saveCtx, cancel := context.WithTimeout(ctx, r.cfg.PersistTimeout)
	defer cancel()

	if err := r.repo.SaveScore(saveCtx, rec); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			err = fmt.Errorf("%w: %s", ErrBusinessNotFound, b.ID)
		} else {
			err = fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
		}
		logger.Error("failed to persist score", zap.Error(err))
		return RecordResult{BusinessID: b.ID, Name: b.Name, Status: StatusError, Error: err.Error(), err: err}
	}

	if r.bench != nil {
		r.bench.Invalidate(ctx, b.City, b.Sector)
	}

	logger.Info("business scored",
		zap.Int("ila_score", result.Index),
		zap.String("potential", string(result.Potential)))

	return RecordResult{BusinessID: b.ID, Name: b.Name, Status: StatusOK, Result: &result}
}
