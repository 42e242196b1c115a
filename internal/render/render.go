// Package render turns filtered keyword groups into display rows.
//
// Rendering is a pure function of the groups: it picks the reference URL of
// each group, looks up how similar every other URL is to it and formats the
// numbers the way every output format shows them. Exporters and the local
// viewer only lay the resulting views out.
package render

import (
	"fmt"
	"math"
	"slices"

	"github.com/nao1215/cannibalscan/internal/model"
)

// Notices shown in place of tables.
const (
	NoResults       = "Aucun résultat ne correspond à vos critères de filtrage."
	NoCannibalizing = "Aucune URL ne se cannibalise avec l'URL de référence."
	NoPairs         = "Aucune paire de cannibalisation trouvée pour ce mot-clé."
)

// Placeholder is shown for unknown metrics.
const Placeholder = "-"

// Options controls how similarities are displayed.
type Options struct {
	// ExactSimilarity shows scores with four decimals instead of a rounded percentage.
	ExactSimilarity bool
}

// GroupView is one keyword group ready for display.
type GroupView struct {
	Keyword  string
	URLCount int

	// Reference is nil when the group has no URLs.
	Reference *URLView

	// Cannibalizing lists every URL of the group other than the reference.
	Cannibalizing []URLView

	// Notice is set when there is no table to show.
	Notice string
}

// URLView is one row of a group table.
type URLView struct {
	URL         string
	Position    string
	Clicks      int
	Impressions int
	CTR         string

	// Similarity is the score against the reference URL (0 when no pair exists).
	// It is meaningless on the reference row itself.
	Similarity        float64
	SimilarityDisplay string
	Band              model.Band
}

// Groups renders every group in order.
func Groups(groups []model.KeywordGroup, opts Options) []GroupView {
	views := make([]GroupView, 0, len(groups))
	for _, g := range groups {
		views = append(views, Group(g, opts))
	}
	return views
}

// Group renders a single group.
func Group(g model.KeywordGroup, opts Options) GroupView {
	view := GroupView{
		Keyword:  g.Keyword,
		URLCount: g.URLCount,
	}

	ref, ok := ReferenceURL(g.URLs)
	if !ok {
		view.Notice = NoPairs
		return view
	}

	refView := urlView(ref)
	refView.SimilarityDisplay = Placeholder
	view.Reference = &refView

	for _, u := range g.URLs {
		if u.URL == ref.URL {
			continue
		}
		row := urlView(u)
		row.Similarity = SimilarityBetween(g.Pairs, ref.URL, u.URL)
		row.Band = model.BandFor(row.Similarity)
		row.SimilarityDisplay = FormatSimilarity(row.Similarity, opts.ExactSimilarity)
		view.Cannibalizing = append(view.Cannibalizing, row)
	}

	if len(view.Cannibalizing) == 0 {
		view.Notice = NoCannibalizing
	}
	return view
}

// ReferenceURL returns the URL with the most clicks. Ties go to the URL that
// comes first. ok is false for an empty list.
func ReferenceURL(urls []model.URLEntry) (model.URLEntry, bool) {
	if len(urls) == 0 {
		return model.URLEntry{}, false
	}
	sorted := slices.Clone(urls)
	slices.SortStableFunc(sorted, func(a, b model.URLEntry) int {
		return b.ClickCount() - a.ClickCount()
	})
	return sorted[0], true
}

// SimilarityBetween returns the similarity of the pair linking a and b in
// either order, or 0 when there is none.
func SimilarityBetween(pairs []model.SimilarityPair, a, b string) float64 {
	for _, p := range pairs {
		if p.Connects(a, b) {
			return p.Similarity
		}
	}
	return 0
}

// FormatSimilarity formats a score as "0.9512" (exact) or "95%".
func FormatSimilarity(similarity float64, exact bool) string {
	if exact {
		return fmt.Sprintf("%.4f", similarity)
	}
	return fmt.Sprintf("%.0f%%", math.Round(similarity*100))
}

// FormatPosition formats an average position with one decimal, or "-" when
// unknown or zero.
func FormatPosition(position *float64) string {
	if position == nil || *position == 0 || math.IsNaN(*position) {
		return Placeholder
	}
	return fmt.Sprintf("%.1f", *position)
}

// FormatCTR formats a click-through rate as a percentage with two decimals,
// or "-" when unknown or zero.
func FormatCTR(ctr *float64) string {
	if ctr == nil || *ctr == 0 || math.IsNaN(*ctr) {
		return Placeholder
	}
	return fmt.Sprintf("%.2f%%", *ctr*100)
}

func urlView(u model.URLEntry) URLView {
	return URLView{
		URL:         u.URL,
		Position:    FormatPosition(u.Position),
		Clicks:      u.ClickCount(),
		Impressions: u.ImpressionCount(),
		CTR:         FormatCTR(u.CTR),
	}
}
