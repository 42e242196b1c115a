package model

import "slices"

// DefaultSimilarityThreshold is used when an analysis does not carry its own threshold.
const DefaultSimilarityThreshold = 0.8

// AnalysisReport is the result of one analysis run as returned by the backend.
// It is the unit that the filter engine, the renderer and the exporters work on.
type AnalysisReport struct {
	// Groups holds one entry per keyword with cannibalization.
	Groups []KeywordGroup `json:"groups"`

	// Stats is present for Search Console analyses only.
	Stats *Stats `json:"stats,omitempty"`

	// SimilarityThreshold is the threshold the backend used for this run.
	SimilarityThreshold float64 `json:"similarity_threshold,omitempty"`

	// AnalysisType is "exact_keyword" or "primary_keyword".
	AnalysisType string `json:"analysis_type,omitempty"`

	// TotalKeywords is the number of distinct keywords the backend looked at.
	TotalKeywords int `json:"total_keywords,omitempty"`

	// AnalyzedKeywords is the number of keywords ranking with two URLs or more.
	AnalyzedKeywords int `json:"analyzed_keywords,omitempty"`

	// CannibalizedKeywords is the number of keywords with at least one pair above threshold.
	CannibalizedKeywords int `json:"cannibalized_keywords,omitempty"`

	// ScrapedData maps a URL to the page content used for similarity.
	ScrapedData map[string]ScrapedPage `json:"scraped_data,omitempty"`
}

// Stats summarizes a Search Console analysis.
type Stats struct {
	TotalKeywords        int `json:"total_keywords"`
	CannibalizationCount int `json:"cannibalization_count"`
}

// ScrapedPage is the content extracted from a page (or supplied in a content CSV).
type ScrapedPage struct {
	Title           string   `json:"title,omitempty"`
	MetaDescription string   `json:"meta_description,omitempty"`
	H1              []string `json:"h1,omitempty"`
	H2              []string `json:"h2,omitempty"`
	Content         string   `json:"content,omitempty"`
}

// KeywordGroup is a keyword and the URLs of the site ranking for it.
// URLCount must equal len(URLs) after every filter pass.
type KeywordGroup struct {
	Keyword  string           `json:"keyword"`
	URLs     []URLEntry       `json:"urls"`
	Pairs    []SimilarityPair `json:"pairs"`
	URLCount int              `json:"url_count"`
}

// URLEntry is one URL of a keyword group with its Search Console metrics.
// Metrics are pointers because CSV imports may omit them.
type URLEntry struct {
	URL         string   `json:"url"`
	Clicks      *int     `json:"clicks,omitempty"`
	Impressions *int     `json:"impressions,omitempty"`
	Position    *float64 `json:"position,omitempty"`
	CTR         *float64 `json:"ctr,omitempty"`
}

// ClickCount returns the clicks, or 0 when unknown.
func (u URLEntry) ClickCount() int {
	if u.Clicks == nil {
		return 0
	}
	return *u.Clicks
}

// ImpressionCount returns the impressions, or 0 when unknown.
func (u URLEntry) ImpressionCount() int {
	if u.Impressions == nil {
		return 0
	}
	return *u.Impressions
}

// SimilarityPair is the similarity between two URLs of the same group.
// The order of URL1 and URL2 is not significant.
type SimilarityPair struct {
	URL1              string             `json:"url1"`
	URL2              string             `json:"url2"`
	Similarity        float64            `json:"similarity"`
	Risk              string             `json:"risk,omitempty"`
	SimilarityDetails *SimilarityDetails `json:"similarity_details,omitempty"`
}

// SimilarityDetails breaks a combined similarity down into its sources.
type SimilarityDetails struct {
	URLSimilarity      float64  `json:"url_similarity"`
	ContentSimilarity  *float64 `json:"content_similarity"`
	CombinedSimilarity float64  `json:"combined_similarity"`
}

// Connects reports whether the pair links a and b, in either order.
func (p SimilarityPair) Connects(a, b string) bool {
	return (p.URL1 == a && p.URL2 == b) || (p.URL1 == b && p.URL2 == a)
}

// Threshold returns the report's similarity threshold, or the default when unset.
func (r *AnalysisReport) Threshold() float64 {
	if r == nil || r.SimilarityThreshold <= 0 {
		return DefaultSimilarityThreshold
	}
	return r.SimilarityThreshold
}

// Clone returns a deep copy of the groups so callers can filter without
// touching the original analysis.
func (r *AnalysisReport) Clone() *AnalysisReport {
	if r == nil {
		return nil
	}
	c := *r
	if r.Stats != nil {
		stats := *r.Stats
		c.Stats = &stats
	}
	c.Groups = CloneGroups(r.Groups)
	return &c
}

// CloneGroups returns a copy of groups whose URL and pair slices are not shared.
// Metric pointers are shared; they are never written through.
func CloneGroups(groups []KeywordGroup) []KeywordGroup {
	if groups == nil {
		return nil
	}
	out := make([]KeywordGroup, len(groups))
	for i, g := range groups {
		out[i] = KeywordGroup{
			Keyword:  g.Keyword,
			URLs:     slices.Clone(g.URLs),
			Pairs:    slices.Clone(g.Pairs),
			URLCount: g.URLCount,
		}
	}
	return out
}

// TotalClicks returns the sum of clicks over the group's URLs.
func (g KeywordGroup) TotalClicks() int {
	total := 0
	for _, u := range g.URLs {
		total += u.ClickCount()
	}
	return total
}

// MaxSimilarity returns the highest pair similarity of the group.
// ok is false when the group has no pairs.
func (g KeywordGroup) MaxSimilarity() (best float64, ok bool) {
	for i, p := range g.Pairs {
		if i == 0 || p.Similarity > best {
			best = p.Similarity
		}
	}
	return best, len(g.Pairs) > 0
}

// GeneratedReport is the summary returned by the backend's report endpoint.
type GeneratedReport struct {
	GeneratedAt           string         `json:"generated_at,omitempty"`
	TotalKeywordsAnalyzed int            `json:"total_keywords_analyzed,omitempty"`
	CannibalizedKeywords  int            `json:"cannibalized_keywords,omitempty"`
	SimilarityThreshold   float64        `json:"similarity_threshold,omitempty"`
	AnalysisType          string         `json:"analysis_type,omitempty"`
	Groups                []KeywordGroup `json:"groups"`
	Stats                 *Stats         `json:"stats,omitempty"`
}

// Site is a Search Console property available to the authenticated user.
type Site struct {
	SiteURL         string `json:"siteUrl"`
	PermissionLevel string `json:"permissionLevel,omitempty"`
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// FloatPtr returns a pointer to v.
func FloatPtr(v float64) *float64 { return &v }
