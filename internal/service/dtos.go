package service

import (
	"math"

	"github.com/godilite/ila-server/internal/scoring"
)

// Record statuses.
const (
	StatusOK      = "ok"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

// RecordResult is the outcome of one business within a run. Result is set on success,
// Error on failure; skipped records carry neither.
type RecordResult struct {
	BusinessID string          `json:"businessId"`
	Name       string          `json:"name,omitempty"`
	Status     string          `json:"status"`
	Result     *scoring.Result `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`

	err error
}

// Err returns the underlying error of a failed record.
func (r RecordResult) Err() error {
	return r.err
}

type BatchSummary struct {
	Processed    int `json:"processed"`
	Succeeded    int `json:"succeeded"`
	Errors       int `json:"errors"`
	Skipped      int `json:"skipped"`
	AverageScore int `json:"averageScore"`
}

type BatchReport struct {
	RunID      string         `json:"runId"`
	Summary    BatchSummary   `json:"summary"`
	Results    []RecordResult `json:"results"`
	DurationMs int64          `json:"durationMs"`
}

// Summarize counts outcomes. AverageScore is the rounded mean index over successful records,
// 0 when there are none.
func Summarize(results []RecordResult) BatchSummary {
	var s BatchSummary
	total := 0
	for _, r := range results {
		switch r.Status {
		case StatusOK:
			s.Processed++
			s.Succeeded++
			total += r.Result.Index
		case StatusError:
			s.Processed++
			s.Errors++
		case StatusSkipped:
			s.Skipped++
		}
	}
	if s.Succeeded > 0 {
		s.AverageScore = int(math.Round(float64(total) / float64(s.Succeeded)))
	}
	return s
}
