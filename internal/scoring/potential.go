package scoring

// Potential is the qualitative tier derived from the final index.
type Potential string

const (
	PotentialVeryLow  Potential = "very low"
	PotentialLow      Potential = "low"
	PotentialMedium   Potential = "medium"
	PotentialHigh     Potential = "high"
	PotentialVeryHigh Potential = "very high"
)

// Classify maps an index to its tier.
func Classify(index int) Potential {
	switch {
	case index >= 80:
		return PotentialVeryHigh
	case index >= 60:
		return PotentialHigh
	case index >= 40:
		return PotentialMedium
	case index >= 20:
		return PotentialLow
	default:
		return PotentialVeryLow
	}
}

// Rank orders tiers from 0 (very low) to 4 (very high); unknown values rank -1.
func (p Potential) Rank() int {
	switch p {
	case PotentialVeryLow:
		return 0
	case PotentialLow:
		return 1
	case PotentialMedium:
		return 2
	case PotentialHigh:
		return 3
	case PotentialVeryHigh:
		return 4
	default:
		return -1
	}
}
