package scoring

import "math"

// Dimension identifies one of the five scoring axes.
type Dimension int

const (
	Presence Dimension = iota
	Reputation
	SEO
	Content
	Position
)

// Dimensions lists every axis in priority order.
var Dimensions = [...]Dimension{Presence, Reputation, SEO, Content, Position}

func (d Dimension) String() string {
	switch d {
	case Presence:
		return "presence"
	case Reputation:
		return "reputation"
	case SEO:
		return "seo"
	case Content:
		return "content"
	case Position:
		return "position"
	default:
		return "unknown"
	}
}

// MaxDimensionScore is the ceiling of a raw (unweighted) dimension score.
const MaxDimensionScore = 50

var (
	presenceRating  = Ladder{{4.5, 20}, {4.0, 15}, {3.5, 10}, {3.0, 5}}
	presenceReviews = Ladder{{100, 15}, {50, 10}, {20, 6}, {5, 3}}

	reputationReviews   = Ladder{{200, 12}, {100, 9}, {50, 6}, {10, 3}}
	reputationFollowers = Ladder{{10000, 8}, {1000, 5}, {100, 2}}

	seoIndexedPages  = Ladder{{100, 15}, {50, 10}, {10, 5}, {1, 2}}
	seoTotalKeywords = Ladder{{500, 12}, {100, 8}, {20, 4}}
	seoTop10Keywords = Ladder{{50, 13}, {20, 9}, {5, 5}, {1, 2}}

	contentQuality = Ladder{{8, 15}, {6, 10}, {4, 5}}
	contentTraffic = Ladder{{10000, 15}, {1000, 10}, {100, 5}}

	positionSERP         = RankLadder{{3, 20}, {10, 15}, {20, 10}, {50, 5}}
	positionBacklinks    = Ladder{{1000, 17}, {100, 12}, {10, 6}, {1, 2}}
	positionDomainRating = Ladder{{50, 13}, {30, 9}, {10, 5}}
)

const (
	completenessPoints  = 5
	websitePoints       = 10
	blogPoints          = 20
	reputationRatingMax = 30
)

// ScorePresence rates the physical listing: rating, review volume and listing completeness.
func ScorePresence(s Signals) int {
	pts := presenceRating.Points(s.Rating) + presenceReviews.Points(float64(s.ReviewCount))
	if s.HasPhotos {
		pts += completenessPoints
	}
	if s.HasPhone {
		pts += completenessPoints
	}
	if s.HasAddress {
		pts += completenessPoints
	}
	return clampDimension(pts)
}

// ScoreReputation rates how customers perceive the business.
func ScoreReputation(s Signals) int {
	pts := int(math.Round(s.Rating / 5 * reputationRatingMax))
	pts += reputationReviews.Points(float64(s.ReviewCount))
	pts += reputationFollowers.Points(float64(s.SocialFollowers))
	return clampDimension(pts)
}

// ScoreSEO rates the website's search footprint.
func ScoreSEO(s Signals) int {
	pts := 0
	if s.HasWebsite {
		pts += websitePoints
	}
	pts += seoIndexedPages.Points(float64(s.IndexedPages))
	pts += seoTotalKeywords.Points(float64(s.TotalKeywords))
	pts += seoTop10Keywords.Points(float64(s.Top10Keywords))
	return clampDimension(pts)
}

// ScoreContent rates editorial activity and the traffic it brings.
func ScoreContent(s Signals) int {
	pts := 0
	if s.HasBlog {
		pts += blogPoints
	}
	pts += contentQuality.Points(s.ContentQuality)
	pts += contentTraffic.Points(float64(s.OrganicTraffic))
	return clampDimension(pts)
}

// ScorePosition rates search ranking and domain authority.
func ScorePosition(s Signals) int {
	pts := 0
	if s.Ranked {
		pts += positionSERP.Points(s.SERPRank)
	}
	pts += positionBacklinks.Points(float64(s.Backlinks))
	pts += positionDomainRating.Points(s.DomainRating)
	return clampDimension(pts)
}

// DimensionScores holds one value per dimension.
type DimensionScores struct {
	Presence   int `json:"presence"`
	Reputation int `json:"reputation"`
	SEO        int `json:"seo"`
	Content    int `json:"content"`
	Position   int `json:"position"`
}

// Get returns the score of a single dimension.
func (d DimensionScores) Get(dim Dimension) int {
	switch dim {
	case Presence:
		return d.Presence
	case Reputation:
		return d.Reputation
	case SEO:
		return d.SEO
	case Content:
		return d.Content
	case Position:
		return d.Position
	}
	return 0
}

// Sum adds all five dimensions.
func (d DimensionScores) Sum() int {
	return d.Presence + d.Reputation + d.SEO + d.Content + d.Position
}

// ScoreDimensions runs every scorer on the normalized signals.
func ScoreDimensions(s Signals) DimensionScores {
	return DimensionScores{
		Presence:   ScorePresence(s),
		Reputation: ScoreReputation(s),
		SEO:        ScoreSEO(s),
		Content:    ScoreContent(s),
		Position:   ScorePosition(s),
	}
}

func clampDimension(v int) int {
	if v < 0 {
		return 0
	}
	if v > MaxDimensionScore {
		return MaxDimensionScore
	}
	return v
}
