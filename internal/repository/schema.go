package repository

import (
	"context"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS businesses (
	id                TEXT PRIMARY KEY,
	name              TEXT NOT NULL DEFAULT '',
	sector            TEXT NOT NULL DEFAULT '',
	city              TEXT NOT NULL DEFAULT '',
	rating            REAL,
	review_count      INTEGER,
	has_photos        INTEGER,
	has_phone         INTEGER,
	has_address       INTEGER,
	social_followers  INTEGER,
	has_website       INTEGER,
	indexed_pages     INTEGER,
	total_keywords    INTEGER,
	top10_keywords    INTEGER,
	has_blog          INTEGER,
	content_quality   REAL,
	organic_traffic   INTEGER,
	serp_rank         INTEGER,
	backlinks         INTEGER,
	domain_rating     REAL,
	ila_score         INTEGER,
	score_presence    INTEGER,
	score_reputation  INTEGER,
	score_seo         INTEGER,
	score_content     INTEGER,
	score_position    INTEGER,
	potential         TEXT,
	recommendations   TEXT,
	last_analyzed_at  TEXT
);

CREATE INDEX IF NOT EXISTS idx_businesses_market ON businesses (city, sector);

CREATE TABLE IF NOT EXISTS ila_score_history (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	business_id       TEXT NOT NULL,
	run_id            TEXT NOT NULL DEFAULT '',
	ila_score         INTEGER NOT NULL,
	score_presence    INTEGER NOT NULL,
	score_reputation  INTEGER NOT NULL,
	score_seo         INTEGER NOT NULL,
	score_content     INTEGER NOT NULL,
	score_position    INTEGER NOT NULL,
	potential         TEXT NOT NULL,
	recommendations   TEXT NOT NULL,
	sector_weights    TEXT NOT NULL,
	benchmark         TEXT,
	computed_at       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ila_score_history_business ON ila_score_history (business_id, computed_at);

CREATE TRIGGER IF NOT EXISTS ila_score_history_immutable
BEFORE UPDATE ON ila_score_history
BEGIN
	SELECT RAISE(ABORT, 'score history is append-only');
END;
`

// Migrate creates the tables the repository needs. It is safe to run repeatedly.
func (s *BusinessRepository) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}
