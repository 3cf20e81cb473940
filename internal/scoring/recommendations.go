package scoring

import "strings"

const (
	// RecommendationThreshold is the weighted score under which a dimension gets advice.
	RecommendationThreshold = 30
	// MaxRecommendations caps the advice list.
	MaxRecommendations = 3

	recommendationSeparator = "; "
)

type rule struct {
	applies func(Signals) bool
	advice  string
	// final stops evaluation of the remaining rules of the dimension.
	final bool
}

type dimensionRules struct {
	rules    []rule
	fallback string
}

var recommendationRules = map[Dimension]dimensionRules{
	Presence: {
		rules: []rule{
			{func(s Signals) bool { return s.ReviewCount < 20 }, "Encourage satisfied customers to leave reviews on your listing", false},
			{func(s Signals) bool { return !s.HasPhotos }, "Add photos of your premises and products to your listing", false},
			{func(s Signals) bool { return !s.HasPhone || !s.HasAddress }, "Complete your listing with a phone number and full address", false},
		},
		fallback: "Keep your business listing up to date",
	},
	Reputation: {
		rules: []rule{
			{func(s Signals) bool { return s.Rating < 4.0 }, "Respond to negative reviews and address recurring complaints to lift your rating", false},
			{func(s Signals) bool { return s.SocialFollowers < 1000 }, "Grow your social media audience with regular local posts", false},
		},
		fallback: "Strengthen your online reputation",
	},
	SEO: {
		rules: []rule{
			{func(s Signals) bool { return !s.HasWebsite }, "Build a website for your business", true},
			{func(s Signals) bool { return s.IndexedPages < 10 }, "Publish more indexable pages describing your services", false},
			{func(s Signals) bool { return s.Top10Keywords < 5 }, "Optimize your pages for local search keywords", false},
		},
		fallback: "Improve your SEO",
	},
	Content: {
		rules: []rule{
			{func(s Signals) bool { return !s.HasBlog }, "Start a blog with regular local news and guides", true},
			{func(s Signals) bool { return s.ContentQuality < 6 }, "Improve the depth and quality of your published content", false},
			{func(s Signals) bool { return s.OrganicTraffic < 1000 }, "Promote your content to attract organic traffic", false},
		},
		fallback: "Publish content more regularly",
	},
	Position: {
		rules: []rule{
			{func(s Signals) bool { return !s.Ranked || s.SERPRank > 10 }, "Target a top-10 position on local search results", false},
			{func(s Signals) bool { return s.Backlinks < 10 }, "Earn backlinks from local partners and directories", false},
			{func(s Signals) bool { return s.DomainRating < 30 }, "Build domain authority with quality partnerships", false},
		},
		fallback: "Improve your search positioning",
	},
}

// Recommend returns at most three suggestions for dimensions whose weighted score is
// below the threshold, in dimension order.
func Recommend(weighted DimensionScores, s Signals) []string {
	out := make([]string, 0, MaxRecommendations)
	for _, dim := range Dimensions {
		if weighted.Get(dim) >= RecommendationThreshold {
			continue
		}
		out = append(out, dimensionAdvice(dim, s)...)
		if len(out) >= MaxRecommendations {
			return out[:MaxRecommendations]
		}
	}
	return out
}

func dimensionAdvice(dim Dimension, s Signals) []string {
	dr := recommendationRules[dim]
	var advice []string
	for _, r := range dr.rules {
		if !r.applies(s) {
			continue
		}
		advice = append(advice, r.advice)
		if r.final {
			break
		}
	}
	if len(advice) == 0 {
		advice = append(advice, dr.fallback)
	}
	return advice
}

// JoinRecommendations renders the list as the single display string stored on the record.
func JoinRecommendations(items []string) string {
	return strings.Join(items, recommendationSeparator)
}
