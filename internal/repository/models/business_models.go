package models

import (
	"time"

	"github.com/godilite/ila-server/internal/scoring"
)

// ScoreRecord is everything written back for one scored business.
type ScoreRecord struct {
	BusinessID     string
	RunID          string
	City           string
	Sector         string
	Index          int
	Potential      scoring.Potential
	Scores         scoring.DimensionScores
	Recommendation string
	Weights        scoring.Weights
	Benchmark      *scoring.Benchmark
	AnalyzedAt     time.Time
}

// ScoreHistoryEntry is one immutable row of the score history.
type ScoreHistoryEntry struct {
	ID             int64                   `json:"id"`
	BusinessID     string                  `json:"businessId"`
	RunID          string                  `json:"runId,omitempty"`
	Index          int                     `json:"ilaScore"`
	Potential      scoring.Potential       `json:"potential"`
	Scores         scoring.DimensionScores `json:"scores"`
	Recommendation string                  `json:"recommendation"`
	Weights        scoring.Weights         `json:"weights"`
	Benchmark      *scoring.Benchmark      `json:"benchmark"`
	ComputedAt     time.Time               `json:"computedAt"`
}

// PeerScore is the current index of one business in a market.
type PeerScore struct {
	BusinessID string `json:"businessId"`
	Score      int    `json:"score"`
}
