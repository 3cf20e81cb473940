package scoring

import "math"

// Benchmark is the peer-market reference for a city and sector.
type Benchmark struct {
	MarketAverage int `json:"marketAverage"`
	MarketLeader  int `json:"marketLeader"`
	PeerCount     int `json:"peerCount"`
}

// Result is the outcome of scoring one business.
type Result struct {
	BusinessID      string          `json:"businessId"`
	Index           int             `json:"ilaScore"`
	Potential       Potential       `json:"potential"`
	Raw             DimensionScores `json:"rawScores"`
	Weighted        DimensionScores `json:"scores"`
	Weights         Weights         `json:"weights"`
	Recommendations []string        `json:"recommendations"`
	Recommendation  string          `json:"recommendation"`
	Benchmark       *Benchmark      `json:"benchmark"`
}

// Engine turns business signals into a Result. It holds no mutable state.
type Engine struct {
	weights *WeightTable
}

// NewEngine builds an engine around a weight table; nil uses the built-in table.
func NewEngine(weights *WeightTable) *Engine {
	if weights == nil {
		weights = DefaultWeightTable()
	}
	return &Engine{weights: weights}
}

// Weights exposes the table the engine was built with.
func (e *Engine) Weights() *WeightTable {
	return e.weights
}

// Score computes the index, tier and recommendations. It never fails.
func (e *Engine) Score(b BusinessSignals) Result {
	s := b.Normalize()
	raw := ScoreDimensions(s)
	w := e.weights.For(b.Sector)
	weighted := ApplyWeights(raw, w)
	index := Aggregate(weighted)
	recs := Recommend(weighted, s)

	return Result{
		BusinessID:      b.ID,
		Index:           index,
		Potential:       Classify(index),
		Raw:             raw,
		Weighted:        weighted,
		Weights:         w,
		Recommendations: recs,
		Recommendation:  JoinRecommendations(recs),
	}
}

// ApplyWeights multiplies each dimension by its sector weight. Results are rounded but
// not clamped, so a multiplier above 1 can lift a dimension past 50.
func ApplyWeights(raw DimensionScores, w Weights) DimensionScores {
	return DimensionScores{
		Presence:   weigh(raw.Presence, w.Presence),
		Reputation: weigh(raw.Reputation, w.Reputation),
		SEO:        weigh(raw.SEO, w.SEO),
		Content:    weigh(raw.Content, w.Content),
		Position:   weigh(raw.Position, w.Position),
	}
}

// Aggregate doubles the mean of the weighted scores. The result is not capped at 100.
func Aggregate(weighted DimensionScores) int {
	return int(math.Round(float64(weighted.Sum()) / float64(len(Dimensions)) * 2))
}

func weigh(score int, weight float64) int {
	return int(math.Round(float64(score) * weight))
}
