package scoring

// Rung is one step of a threshold ladder.
type Rung struct {
	Min    float64
	Points int
}

// Ladder converts a metric into bounded points. Rungs are ordered from the highest
// threshold down; the first rung whose lower bound is met wins.
type Ladder []Rung

// Points returns the points for v, or 0 when v is below every rung.
func (l Ladder) Points(v float64) int {
	for _, r := range l {
		if v >= r.Min {
			return r.Points
		}
	}
	return 0
}

// Max is the largest award the ladder can produce.
func (l Ladder) Max() int {
	if len(l) == 0 {
		return 0
	}
	return l[0].Points
}

// RankRung is a step of a ladder where smaller values are better.
type RankRung struct {
	Max    int64
	Points int
}

// RankLadder is ordered from the best (smallest) position outward.
type RankLadder []RankRung

// Points returns the points for a position, or 0 when it falls outside every rung.
func (l RankLadder) Points(pos int64) int {
	if pos <= 0 {
		return 0
	}
	for _, r := range l {
		if pos <= r.Max {
			return r.Points
		}
	}
	return 0
}
