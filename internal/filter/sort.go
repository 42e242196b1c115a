package filter

import (
	"cmp"
	"slices"

	"github.com/nao1215/cannibalscan/internal/model"
)

// Sort orders groups in place with a stable sort. Unknown keys leave the
// order unchanged.
//
// Groups without pairs have no maximum similarity and count as the lowest:
// last when descending, first when ascending.
func Sort(groups []model.KeywordGroup, key SortKey) {
	switch key {
	case SortSimilarityDesc:
		slices.SortStableFunc(groups, func(a, b model.KeywordGroup) int {
			return compareSimilarity(b, a)
		})
	case SortSimilarityAsc:
		slices.SortStableFunc(groups, compareSimilarity)
	case SortURLsDesc:
		slices.SortStableFunc(groups, func(a, b model.KeywordGroup) int {
			return cmp.Compare(b.URLCount, a.URLCount)
		})
	case SortURLsAsc:
		slices.SortStableFunc(groups, func(a, b model.KeywordGroup) int {
			return cmp.Compare(a.URLCount, b.URLCount)
		})
	case SortClicksDesc:
		slices.SortStableFunc(groups, func(a, b model.KeywordGroup) int {
			return cmp.Compare(b.TotalClicks(), a.TotalClicks())
		})
	case SortClicksAsc:
		slices.SortStableFunc(groups, func(a, b model.KeywordGroup) int {
			return cmp.Compare(a.TotalClicks(), b.TotalClicks())
		})
	}
}

// compareSimilarity orders groups by ascending maximum similarity, with
// pairless groups first.
func compareSimilarity(a, b model.KeywordGroup) int {
	sa, okA := a.MaxSimilarity()
	sb, okB := b.MaxSimilarity()
	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return -1
	case !okB:
		return 1
	default:
		return cmp.Compare(sa, sb)
	}
}
