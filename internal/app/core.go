package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/godilite/ila-server/internal/config"
	"github.com/godilite/ila-server/internal/repository"
	"github.com/godilite/ila-server/internal/scoring"
	"github.com/godilite/ila-server/internal/service"
	"github.com/godilite/ila-server/pkg/cache"
	dbbuilder "github.com/godilite/ila-server/pkg/database"
)

// Core is the storage and scoring graph shared by the server and the CLI.
type Core struct {
	DB     *sql.DB
	Cache  *cache.Cache
	Repo   *repository.BusinessRepository
	Runner *service.RunController
}

// NewCore opens the database, applies the schema, connects the benchmark cache when enabled
// and builds the run controller.
func NewCore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Core, error) {
	dbPool, err := dbbuilder.New(ctx,
		dbbuilder.WithDriver(cfg.DBDriver),
		dbbuilder.WithDataSource(dbbuilder.SQLiteDSN(cfg.DBPath)),
	)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}
	logger.Info("Database pool initialized", zap.String("path", cfg.DBPath))

	repo := repository.NewBusinessRepository(dbPool)
	if err := repo.Migrate(ctx); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("schema migration failed: %w", err)
	}

	weights, err := scoring.LoadWeightTable(cfg.SectorWeightsFile)
	if err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("sector weights: %w", err)
	}
	if cfg.SectorWeightsFile != "" {
		logger.Info("Sector weights loaded",
			zap.String("file", cfg.SectorWeightsFile),
			zap.Strings("sectors", weights.Sectors()))
	}

	benchOpts := []service.BenchmarkOption{service.WithPeerLimit(cfg.BenchmarkPeerLimit)}

	var cacheClient *cache.Cache
	if cfg.CacheEnabled {
		cacheClient, err = cache.New(ctx, cache.WithAddress(cfg.RedisAddr))
		if err != nil {
			dbPool.Close()
			return nil, fmt.Errorf("cache init failed: %w", err)
		}
		benchOpts = append(benchOpts, service.WithCache(cacheClient, cfg.BenchmarkCacheTTL))
		logger.Info("Cache client initialized", zap.String("addr", cfg.RedisAddr))
	}

	bench := service.NewBenchmarkService(repo, logger.Named("benchmark"), benchOpts...)
	runner := service.NewRunController(repo, scoring.NewEngine(weights), bench, logger.Named("runner"), service.RunnerConfig{
		PageSize:       cfg.BatchPageSize,
		Workers:        cfg.BatchWorkers,
		RatePerSecond:  cfg.BatchRatePerSec,
		PersistTimeout: cfg.PersistTimeout,
	})

	return &Core{DB: dbPool, Cache: cacheClient, Repo: repo, Runner: runner}, nil
}

// Close releases the cache client and the database pool.
func (c *Core) Close() error {
	var errs []error
	if c.Cache != nil {
		if err := c.Cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("cache: %w", err))
		}
	}
	if err := c.DB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("database: %w", err))
	}
	return errors.Join(errs...)
}
