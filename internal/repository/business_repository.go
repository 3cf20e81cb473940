package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/godilite/ila-server/internal/repository/models"
	"github.com/godilite/ila-server/internal/scoring"
)

// ErrNotFound is returned when a business identifier does not resolve to a row.
var ErrNotFound = errors.New("business not found")

const businessColumns = `
	id, name, sector, city,
	rating, review_count, has_photos, has_phone, has_address, social_followers,
	has_website, indexed_pages, total_keywords, top10_keywords,
	has_blog, content_quality, organic_traffic,
	serp_rank, backlinks, domain_rating`

type BusinessRepository struct {
	db *sql.DB
}

func NewBusinessRepository(db *sql.DB) *BusinessRepository {
	return &BusinessRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBusiness(row rowScanner) (scoring.BusinessSignals, error) {
	var b scoring.BusinessSignals
	var rating, quality, domainRating sql.NullFloat64
	var reviews, followers, pages, keywords, top10, traffic, rank, backlinks sql.NullInt64
	var photos, phone, address, website, blog sql.NullBool

	err := row.Scan(
		&b.ID, &b.Name, &b.Sector, &b.City,
		&rating, &reviews, &photos, &phone, &address, &followers,
		&website, &pages, &keywords, &top10,
		&blog, &quality, &traffic,
		&rank, &backlinks, &domainRating,
	)
	if err != nil {
		return scoring.BusinessSignals{}, err
	}

	b.Rating = nullFloat(rating)
	b.ReviewCount = nullInt(reviews)
	b.HasPhotos = nullBool(photos)
	b.HasPhone = nullBool(phone)
	b.HasAddress = nullBool(address)
	b.SocialFollowers = nullInt(followers)
	b.HasWebsite = nullBool(website)
	b.IndexedPages = nullInt(pages)
	b.TotalKeywords = nullInt(keywords)
	b.Top10Keywords = nullInt(top10)
	b.HasBlog = nullBool(blog)
	b.ContentQuality = nullFloat(quality)
	b.OrganicTraffic = nullInt(traffic)
	b.SERPRank = nullInt(rank)
	b.Backlinks = nullInt(backlinks)
	b.DomainRating = nullFloat(domainRating)
	return b, nil
}

// GetBusiness loads the raw signals of one business.
func (s *BusinessRepository) GetBusiness(ctx context.Context, id string) (scoring.BusinessSignals, error) {
	query := `SELECT ` + businessColumns + ` FROM businesses WHERE id = ?`

	b, err := scanBusiness(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return scoring.BusinessSignals{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return scoring.BusinessSignals{}, fmt.Errorf("query GetBusiness: %w", err)
	}
	return b, nil
}

// ListUnscored returns up to limit businesses that have never received an index.
func (s *BusinessRepository) ListUnscored(ctx context.Context, limit int) ([]scoring.BusinessSignals, error) {
	query := `SELECT ` + businessColumns + `
		FROM businesses
		WHERE ila_score IS NULL
		ORDER BY id
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query ListUnscored: %w", err)
	}
	defer rows.Close()

	var results []scoring.BusinessSignals
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ListUnscored row: %w", err)
		}
		results = append(results, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ListUnscored: %w", err)
	}
	return results, nil
}

// MarketScores returns the current indices of scored businesses in a city and sector,
// most recently analyzed first.
func (s *BusinessRepository) MarketScores(ctx context.Context, city, sector string, limit int) ([]models.PeerScore, error) {
	const query = `
		SELECT id, ila_score
		FROM businesses
		WHERE city = ? AND sector = ? AND ila_score IS NOT NULL
		ORDER BY last_analyzed_at DESC, id
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, city, sector, limit)
	if err != nil {
		return nil, fmt.Errorf("query MarketScores: %w", err)
	}
	defer rows.Close()

	var scores []models.PeerScore
	for rows.Next() {
		var p models.PeerScore
		if err := rows.Scan(&p.BusinessID, &p.Score); err != nil {
			return nil, fmt.Errorf("scan MarketScores row: %w", err)
		}
		scores = append(scores, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate MarketScores: %w", err)
	}
	return scores, nil
}

// SaveScore overwrites the score columns of the business and appends a history row,
// both in one transaction.
func (s *BusinessRepository) SaveScore(ctx context.Context, rec models.ScoreRecord) error {
	weights, err := json.Marshal(rec.Weights)
	if err != nil {
		return fmt.Errorf("encode weights: %w", err)
	}
	var benchmark sql.NullString
	if rec.Benchmark != nil {
		data, err := json.Marshal(rec.Benchmark)
		if err != nil {
			return fmt.Errorf("encode benchmark: %w", err)
		}
		benchmark = sql.NullString{String: string(data), Valid: true}
	}
	analyzedAt := rec.AnalyzedAt.UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin SaveScore: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE businesses SET
			ila_score = ?,
			score_presence = ?,
			score_reputation = ?,
			score_seo = ?,
			score_content = ?,
			score_position = ?,
			potential = ?,
			recommendations = ?,
			last_analyzed_at = ?
		WHERE id = ?`,
		rec.Index,
		rec.Scores.Presence, rec.Scores.Reputation, rec.Scores.SEO, rec.Scores.Content, rec.Scores.Position,
		string(rec.Potential), rec.Recommendation, analyzedAt, rec.BusinessID,
	)
	if err != nil {
		return fmt.Errorf("update business score: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, rec.BusinessID)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ila_score_history (
			business_id, run_id, ila_score,
			score_presence, score_reputation, score_seo, score_content, score_position,
			potential, recommendations, sector_weights, benchmark, computed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.BusinessID, rec.RunID, rec.Index,
		rec.Scores.Presence, rec.Scores.Reputation, rec.Scores.SEO, rec.Scores.Content, rec.Scores.Position,
		string(rec.Potential), rec.Recommendation, string(weights), benchmark, analyzedAt,
	)
	if err != nil {
		return fmt.Errorf("insert score history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit SaveScore: %w", err)
	}
	return nil
}

// ListHistory returns the most recent history rows of a business, newest first.
func (s *BusinessRepository) ListHistory(ctx context.Context, businessID string, limit int) ([]models.ScoreHistoryEntry, error) {
	const query = `
		SELECT
			id, business_id, run_id, ila_score,
			score_presence, score_reputation, score_seo, score_content, score_position,
			potential, recommendations, sector_weights, benchmark, computed_at
		FROM ila_score_history
		WHERE business_id = ?
		ORDER BY computed_at DESC, id DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, businessID, limit)
	if err != nil {
		return nil, fmt.Errorf("query ListHistory: %w", err)
	}
	defer rows.Close()

	var results []models.ScoreHistoryEntry
	for rows.Next() {
		var (
			e          models.ScoreHistoryEntry
			potential  string
			weights    string
			benchmark  sql.NullString
			computedAt string
		)
		if err := rows.Scan(
			&e.ID, &e.BusinessID, &e.RunID, &e.Index,
			&e.Scores.Presence, &e.Scores.Reputation, &e.Scores.SEO, &e.Scores.Content, &e.Scores.Position,
			&potential, &e.Recommendation, &weights, &benchmark, &computedAt,
		); err != nil {
			return nil, fmt.Errorf("scan ListHistory row: %w", err)
		}

		e.Potential = scoring.Potential(potential)
		if err := json.Unmarshal([]byte(weights), &e.Weights); err != nil {
			return nil, fmt.Errorf("decode history weights: %w", err)
		}
		if benchmark.Valid {
			e.Benchmark = &scoring.Benchmark{}
			if err := json.Unmarshal([]byte(benchmark.String), e.Benchmark); err != nil {
				return nil, fmt.Errorf("decode history benchmark: %w", err)
			}
		}
		if e.ComputedAt, err = time.Parse(time.RFC3339Nano, computedAt); err != nil {
			return nil, fmt.Errorf("parse history timestamp: %w", err)
		}
		results = append(results, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ListHistory: %w", err)
	}
	return results, nil
}

// UpsertBusiness inserts or replaces the raw signals of a business without touching its score.
func (s *BusinessRepository) UpsertBusiness(ctx context.Context, b scoring.BusinessSignals) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO businesses (`+businessColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			sector = excluded.sector,
			city = excluded.city,
			rating = excluded.rating,
			review_count = excluded.review_count,
			has_photos = excluded.has_photos,
			has_phone = excluded.has_phone,
			has_address = excluded.has_address,
			social_followers = excluded.social_followers,
			has_website = excluded.has_website,
			indexed_pages = excluded.indexed_pages,
			total_keywords = excluded.total_keywords,
			top10_keywords = excluded.top10_keywords,
			has_blog = excluded.has_blog,
			content_quality = excluded.content_quality,
			organic_traffic = excluded.organic_traffic,
			serp_rank = excluded.serp_rank,
			backlinks = excluded.backlinks,
			domain_rating = excluded.domain_rating`,
		b.ID, b.Name, b.Sector, b.City,
		b.Rating, b.ReviewCount, b.HasPhotos, b.HasPhone, b.HasAddress, b.SocialFollowers,
		b.HasWebsite, b.IndexedPages, b.TotalKeywords, b.Top10Keywords,
		b.HasBlog, b.ContentQuality, b.OrganicTraffic,
		b.SERPRank, b.Backlinks, b.DomainRating,
	)
	if err != nil {
		return fmt.Errorf("upsert business %s: %w", b.ID, err)
	}
	return nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}

func nullBool(v sql.NullBool) *bool {
	if !v.Valid {
		return nil
	}
	return &v.Bool
}
