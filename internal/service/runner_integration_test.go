package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/godilite/ila-server/internal/scoring"
	"github.com/godilite/ila-server/pkg/cache"
)

// TestRunController_Integration tests batch and single runs against sqlite and redis
func TestRunController_Integration(t *testing.T) {
	ctx := context.Background()
	repo := setupRealDB(t, 6)

	mr := miniredis.RunT(t)
	c, err := cache.New(ctx, cache.WithAddress(mr.Addr()))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	logger := zaptest.NewLogger(t)
	bench := NewBenchmarkService(repo, logger, WithCache(c, time.Minute))
	cfg := DefaultRunnerConfig()
	cfg.Workers = 2
	r := NewRunController(repo, scoring.NewEngine(nil), bench, logger, cfg)

	t.Run("batch scores every unscored business once", func(t *testing.T) {
		report, err := r.RunBatch(ctx)
		require.NoError(t, err)

		assert.Equal(t, BatchSummary{Processed: 6, Succeeded: 6, AverageScore: 37}, report.Summary)
		assert.NotEmpty(t, report.RunID)
		assert.Empty(t, unscored(t, repo))

		again, err := r.RunBatch(ctx)
		require.NoError(t, err)
		assert.Equal(t, BatchSummary{}, again.Summary)
	})

	t.Run("rescoring appends history and uses peers", func(t *testing.T) {
		// lookups that raced the batch's saves may have cached a partial market
		mr.FlushAll()

		res, err := r.ScoreBusiness(ctx, "r-001")
		require.NoError(t, err)

		require.NotNil(t, res.Result.Benchmark)
		// r-002, r-004 and r-005 are the other Lyon restaurants.
		assert.Equal(t, scoring.Benchmark{MarketAverage: 37, MarketLeader: 37, PeerCount: 3}, *res.Result.Benchmark)

		history, err := r.History(ctx, "r-001", 0)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, res.Result.Index, history[0].Index)
		assert.Equal(t, res.Result.Benchmark, history[0].Benchmark)
		assert.NotEqual(t, history[0].RunID, history[1].RunID)
	})

	t.Run("unknown business", func(t *testing.T) {
		_, err := r.ScoreBusiness(ctx, "missing")
		assert.ErrorIs(t, err, ErrBusinessNotFound)
	})
}
