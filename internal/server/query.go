package server

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/nao1215/cannibalscan/internal/filter"
)

// Query parameters of the filter form.
const (
	paramInclude        = "include"
	paramExclude        = "exclude"
	paramRegex          = "regex"
	paramMinSimilarity  = "min_similarity"
	paramMinClicks      = "min_clicks"
	paramMinImpressions = "min_impressions"
	paramMinURLs        = "min_urls"
	paramSort           = "sort"
)

// errInvalidParam is wrapped by every query parsing error.
var errInvalidParam = errors.New("invalid filter parameter")

var filterParams = []string{
	paramInclude, paramExclude, paramRegex, paramMinSimilarity,
	paramMinClicks, paramMinImpressions, paramMinURLs, paramSort,
}

// hasFilterParams reports whether the query carries any filter parameter.
func hasFilterParams(q url.Values) bool {
	for _, p := range filterParams {
		if q.Has(p) {
			return true
		}
	}
	return false
}

// parseCriteria overrides base with the filter parameters of q. Like an
// unchecked checkbox, a missing regex parameter means false.
func parseCriteria(q url.Values, base filter.Criteria) (filter.Criteria, error) {
	c := base
	if q.Has(paramInclude) {
		c.Include = q.Get(paramInclude)
	}
	if q.Has(paramExclude) {
		c.Exclude = q.Get(paramExclude)
	}

	c.UseRegex = false
	if v := strings.TrimSpace(q.Get(paramRegex)); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return base, fmt.Errorf("%w %s: %q", errInvalidParam, paramRegex, v)
		}
		c.UseRegex = b
	}

	if v := strings.TrimSpace(q.Get(paramMinSimilarity)); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 1 {
			return base, fmt.Errorf("%w %s: %q", errInvalidParam, paramMinSimilarity, v)
		}
		c = c.WithMinSimilarity(f)
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{paramMinClicks, &c.MinClicks},
		{paramMinImpressions, &c.MinImpressions},
		{paramMinURLs, &c.MinURLs},
	}
	for _, p := range ints {
		v := strings.TrimSpace(q.Get(p.name))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return base, fmt.Errorf("%w %s: %q", errInvalidParam, p.name, v)
		}
		*p.dst = n
	}

	if v := strings.TrimSpace(q.Get(paramSort)); v != "" {
		key := filter.SortKey(v)
		if !key.Known() {
			return base, fmt.Errorf("%w %s: %q", errInvalidParam, paramSort, v)
		}
		c.SortBy = key
	}
	return c, nil
}
