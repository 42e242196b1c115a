package filter

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"

	"github.com/nao1215/cannibalscan/internal/model"
)

// matcher decides whether a keyword matches one inclusion or exclusion term.
type matcher func(keyword string) bool

// compiled is a Criteria with its patterns prepared once per pass.
type compiled struct {
	criteria Criteria
	include  matcher
	excludes []matcher
}

// compile prepares the keyword matchers. Every regex is compiled up front so
// that a bad pattern aborts the pass before any group is looked at.
func compile(c Criteria) (*compiled, error) {
	cc := &compiled{criteria: c}

	// A Caser is stateful and must not be shared across goroutines.
	fold := cases.Fold()

	include := strings.TrimSpace(c.Include)
	if include != "" {
		if c.UseRegex {
			re, err := regexp.Compile("(?i)" + include)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidIncludePattern, err)
			}
			cc.include = re.MatchString
		} else {
			needle := fold.String(include)
			cc.include = func(keyword string) bool {
				return strings.Contains(fold.String(keyword), needle)
			}
		}
	}

	for _, term := range c.excludeTerms() {
		if c.UseRegex {
			re, err := regexp.Compile("(?i)" + term)
			if err != nil {
				return nil, fmt.Errorf("%w %q: %w", ErrInvalidExcludePattern, term, err)
			}
			cc.excludes = append(cc.excludes, re.MatchString)
			continue
		}
		needle := fold.String(term)
		cc.excludes = append(cc.excludes, func(keyword string) bool {
			return strings.Contains(fold.String(keyword), needle)
		})
	}

	return cc, nil
}

// Apply filters and sorts groups according to c.
//
// The returned groups are new values: their URLs, URLCount and Pairs hold
// only what survived. groups itself is left as it was. When a regex in c
// does not compile, Apply returns an error wrapping ErrInvalidIncludePattern
// or ErrInvalidExcludePattern and no groups.
func Apply(groups []model.KeywordGroup, c Criteria) ([]model.KeywordGroup, error) {
	_, survivors, err := Narrow(groups, c)
	return survivors, err
}

// Narrow runs a filter pass that also reports what the pass keeps of every
// group, for callers whose next pass starts from this one.
//
// narrowed has one entry per input group, in input order. A group dropped
// by the keyword filters, or because no URL or too few URLs passed the
// click and impression minimums, is returned unchanged. A group whose URLs
// passed has its URLs and URLCount narrowed, and its Pairs too when at
// least one pair survived. survivors are the groups to display, sorted by
// c.SortBy. groups itself is left as it was.
func Narrow(groups []model.KeywordGroup, c Criteria) (narrowed, survivors []model.KeywordGroup, err error) {
	cc, err := compile(c)
	if err != nil {
		return nil, nil, err
	}

	narrowed = make([]model.KeywordGroup, 0, len(groups))
	survivors = make([]model.KeywordGroup, 0, len(groups))
	for _, g := range groups {
		next, ok := cc.keep(g)
		narrowed = append(narrowed, next)
		if ok {
			survivors = append(survivors, next)
		}
	}

	Sort(survivors, c.SortBy)
	return narrowed, survivors, nil
}

// keep runs one group through the checks. It returns the group as narrowed
// by the checks it passed and whether it survived all of them.
func (cc *compiled) keep(g model.KeywordGroup) (model.KeywordGroup, bool) {
	c := cc.criteria

	if cc.include != nil && !cc.include(g.Keyword) {
		return g, false
	}
	for _, exclude := range cc.excludes {
		if exclude(g.Keyword) {
			return g, false
		}
	}

	urls := make([]model.URLEntry, 0, len(g.URLs))
	for _, u := range g.URLs {
		if u.ClickCount() >= c.MinClicks && u.ImpressionCount() >= c.MinImpressions {
			urls = append(urls, u)
		}
	}
	if len(urls) == 0 || len(urls) < c.MinURLs {
		return g, false
	}

	surviving := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		surviving[u.URL] = struct{}{}
	}

	pairs := make([]model.SimilarityPair, 0, len(g.Pairs))
	for _, p := range g.Pairs {
		_, ok1 := surviving[p.URL1]
		_, ok2 := surviving[p.URL2]
		if ok1 && ok2 && p.Similarity >= c.MinSimilarity {
			pairs = append(pairs, p)
		}
	}

	next := model.KeywordGroup{
		Keyword:  g.Keyword,
		URLs:     urls,
		Pairs:    g.Pairs,
		URLCount: len(urls),
	}
	if len(pairs) == 0 {
		return next, false
	}
	next.Pairs = pairs
	return next, true
}
