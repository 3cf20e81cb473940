package service

import (
	"context"
	"fmt"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/godilite/ila-server/internal/repository"
	"github.com/godilite/ila-server/internal/scoring"
	dbbuilder "github.com/godilite/ila-server/pkg/database"
)

func setupRealDB(tb testing.TB, businesses int) *repository.BusinessRepository {
	tb.Helper()
	ctx := context.Background()

	db, err := dbbuilder.New(ctx,
		dbbuilder.WithDriver("sqlite3"),
		dbbuilder.WithDataSource(":memory:"),
		dbbuilder.WithMaxOpenConns(1),
	)
	if err != nil {
		tb.Fatalf("failed to create db pool via builder: %v", err)
	}
	tb.Cleanup(func() { db.Close() })

	repo := repository.NewBusinessRepository(db)
	if err := repo.Migrate(ctx); err != nil {
		tb.Fatalf("failed to migrate db: %v", err)
	}

	for i := 0; i < businesses; i++ {
		b := restaurant(fmt.Sprintf("r-%03d", i))
		if i%3 == 0 {
			b.Sector = "hotel"
		}
		if err := repo.UpsertBusiness(ctx, b); err != nil {
			tb.Fatalf("failed to seed db: %v", err)
		}
	}
	return repo
}

func unscored(tb testing.TB, repo *repository.BusinessRepository) []scoring.BusinessSignals {
	tb.Helper()
	rows, err := repo.ListUnscored(context.Background(), 1000)
	if err != nil {
		tb.Fatalf("list unscored: %v", err)
	}
	return rows
}
