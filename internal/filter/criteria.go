package filter

import (
	"errors"
	"fmt"
	"strings"
)

// SortKey selects the ordering of filtered groups.
type SortKey string

// Supported sort keys. Any other value leaves the filtered order untouched.
const (
	SortSimilarityDesc SortKey = "similarity_desc"
	SortSimilarityAsc  SortKey = "similarity_asc"
	SortURLsDesc       SortKey = "urls_desc"
	SortURLsAsc        SortKey = "urls_asc"
	SortClicksDesc     SortKey = "clicks_desc"
	SortClicksAsc      SortKey = "clicks_asc"
)

// SortKeys lists the supported keys in display order.
var SortKeys = []SortKey{
	SortSimilarityDesc,
	SortSimilarityAsc,
	SortURLsDesc,
	SortURLsAsc,
	SortClicksDesc,
	SortClicksAsc,
}

// Label returns the French label shown for the key in reports.
func (k SortKey) Label() string {
	switch k {
	case SortSimilarityDesc:
		return "Similarité (décroissante)"
	case SortSimilarityAsc:
		return "Similarité (croissante)"
	case SortURLsDesc:
		return "Nombre d'URLs (décroissant)"
	case SortURLsAsc:
		return "Nombre d'URLs (croissant)"
	case SortClicksDesc:
		return "Clics (décroissants)"
	case SortClicksAsc:
		return "Clics (croissants)"
	default:
		return string(k)
	}
}

// Known reports whether k is one of the supported keys.
func (k SortKey) Known() bool {
	for _, key := range SortKeys {
		if key == k {
			return true
		}
	}
	return false
}

// Default filter values, matching the reset state of the report view.
const (
	DefaultMinURLs        = 2
	DefaultMinClicks      = 0
	DefaultMinImpressions = 0
	DefaultSortBy         = SortSimilarityDesc
)

// Pattern errors. Apply wraps them with the regexp compiler's message.
var (
	// ErrInvalidIncludePattern is returned when the inclusion regex does not compile.
	ErrInvalidIncludePattern = errors.New("invalid inclusion regular expression")

	// ErrInvalidExcludePattern is returned when one of the exclusion regexes does not compile.
	ErrInvalidExcludePattern = errors.New("invalid exclusion regular expression")
)

// Criteria holds every setting of one filter pass.
type Criteria struct {
	// Include keeps groups whose keyword contains (or matches) this text.
	Include string `json:"include,omitempty" yaml:"include,omitempty"`

	// Exclude is a comma separated list of terms (or regexes); a group whose
	// keyword matches any of them is dropped.
	Exclude string `json:"exclude,omitempty" yaml:"exclude,omitempty"`

	// UseRegex switches Include and Exclude from substring to regex matching.
	UseRegex bool `json:"use_regex,omitempty" yaml:"useRegex,omitempty"`

	// MinSimilarity is the lowest pair similarity kept.
	MinSimilarity float64 `json:"min_similarity" yaml:"minSimilarity,omitempty"`

	// MinSimilaritySet tells an explicit MinSimilarity, 0 included, from
	// one still waiting for the analysis threshold. See ForThreshold.
	MinSimilaritySet bool `json:"-" yaml:"-"`

	// MinClicks is the lowest click count a URL needs to stay in its group.
	MinClicks int `json:"min_clicks" yaml:"minClicks,omitempty"`

	// MinImpressions is the lowest impression count a URL needs to stay in its group.
	MinImpressions int `json:"min_impressions" yaml:"minImpressions,omitempty"`

	// MinURLs is the lowest number of surviving URLs a group needs.
	MinURLs int `json:"min_urls" yaml:"minUrls,omitempty"`

	// SortBy orders the surviving groups.
	SortBy SortKey `json:"sort_by" yaml:"sortBy,omitempty"`
}

// DefaultCriteria returns the reset state of the filters for a report
// analysed with the given similarity threshold.
func DefaultCriteria(threshold float64) Criteria {
	return Criteria{
		MinSimilarity:    threshold,
		MinSimilaritySet: true,
		MinClicks:        DefaultMinClicks,
		MinImpressions:   DefaultMinImpressions,
		MinURLs:          DefaultMinURLs,
		SortBy:           DefaultSortBy,
	}
}

// WithMinSimilarity returns c with an explicit minimum similarity.
func (c Criteria) WithMinSimilarity(similarity float64) Criteria {
	c.MinSimilarity = similarity
	c.MinSimilaritySet = true
	return c
}

// ForThreshold returns c for an analysis run with the given threshold. A
// minimum similarity that was never set becomes the threshold; an explicit
// one is kept as is.
func (c Criteria) ForThreshold(threshold float64) Criteria {
	if c.MinSimilaritySet {
		return c
	}
	return c.WithMinSimilarity(threshold)
}

// excludeTerms splits the exclusion list on commas, trimming each term and
// dropping empty ones.
func (c Criteria) excludeTerms() []string {
	value := strings.TrimSpace(c.Exclude)
	if value == "" {
		return nil
	}
	var terms []string
	for _, term := range strings.Split(value, ",") {
		term = strings.TrimSpace(term)
		if term != "" {
			terms = append(terms, term)
		}
	}
	return terms
}

// String renders the criteria in a compact, log-friendly form.
func (c Criteria) String() string {
	return fmt.Sprintf("include=%q exclude=%q regex=%t similarity>=%.2f clicks>=%d impressions>=%d urls>=%d sort=%s",
		c.Include, c.Exclude, c.UseRegex, c.MinSimilarity, c.MinClicks, c.MinImpressions, c.MinURLs, c.SortBy)
}
