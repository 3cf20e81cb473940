package scoring

// BusinessSignals is the raw business record as read from storage. Every metric is
// optional; a nil field means the upstream pipeline never populated it.
type BusinessSignals struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Sector string `json:"sector"`
	City   string `json:"city"`

	Rating          *float64 `json:"rating,omitempty"`
	ReviewCount     *int64   `json:"reviewCount,omitempty"`
	HasPhotos       *bool    `json:"hasPhotos,omitempty"`
	HasPhone        *bool    `json:"hasPhone,omitempty"`
	HasAddress      *bool    `json:"hasAddress,omitempty"`
	SocialFollowers *int64   `json:"socialFollowers,omitempty"`

	HasWebsite    *bool  `json:"hasWebsite,omitempty"`
	IndexedPages  *int64 `json:"indexedPages,omitempty"`
	TotalKeywords *int64 `json:"totalKeywords,omitempty"`
	Top10Keywords *int64 `json:"top10Keywords,omitempty"`

	HasBlog        *bool    `json:"hasBlog,omitempty"`
	ContentQuality *float64 `json:"contentQuality,omitempty"`
	OrganicTraffic *int64   `json:"organicTraffic,omitempty"`

	SERPRank     *int64   `json:"serpRank,omitempty"`
	Backlinks    *int64   `json:"backlinks,omitempty"`
	DomainRating *float64 `json:"domainRating,omitempty"`
}

// Signals is the normalized view the dimension scorers work on. Missing values are zero.
type Signals struct {
	Rating          float64
	ReviewCount     int64
	HasPhotos       bool
	HasPhone        bool
	HasAddress      bool
	SocialFollowers int64

	HasWebsite    bool
	IndexedPages  int64
	TotalKeywords int64
	Top10Keywords int64

	HasBlog        bool
	ContentQuality float64
	OrganicTraffic int64

	// Ranked is false when the business does not appear in the SERP at all.
	Ranked       bool
	SERPRank     int64
	Backlinks    int64
	DomainRating float64
}

// Normalize resolves every optional field to a usable value.
func (b BusinessSignals) Normalize() Signals {
	s := Signals{
		Rating:          clampFloat(floatOr(b.Rating), 0, 5),
		ReviewCount:     count(b.ReviewCount),
		HasPhotos:       boolOr(b.HasPhotos),
		HasPhone:        boolOr(b.HasPhone),
		HasAddress:      boolOr(b.HasAddress),
		SocialFollowers: count(b.SocialFollowers),
		HasWebsite:      boolOr(b.HasWebsite),
		IndexedPages:    count(b.IndexedPages),
		TotalKeywords:   count(b.TotalKeywords),
		Top10Keywords:   count(b.Top10Keywords),
		HasBlog:         boolOr(b.HasBlog),
		ContentQuality:  clampFloat(floatOr(b.ContentQuality), 0, 10),
		OrganicTraffic:  count(b.OrganicTraffic),
		Backlinks:       count(b.Backlinks),
		DomainRating:    clampFloat(floatOr(b.DomainRating), 0, 100),
	}
	if b.SERPRank != nil && *b.SERPRank > 0 {
		s.Ranked = true
		s.SERPRank = *b.SERPRank
	}
	return s
}

func floatOr(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func boolOr(v *bool) bool {
	return v != nil && *v
}

func count(v *int64) int64 {
	if v == nil || *v < 0 {
		return 0
	}
	return *v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
