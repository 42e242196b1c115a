package report

import (
	"fmt"
	"time"

	"github.com/nao1215/cannibalscan/internal/filter"
	"github.com/nao1215/cannibalscan/internal/model"
	"github.com/nao1215/cannibalscan/internal/render"
)

// Title is the heading of every exported report.
const Title = "Rapport de Cannibalisation SEO"

// DateLayout is the day/month/year layout used for report dates.
const DateLayout = "02/01/2006"

// fileDateLayout is the date part of export file names.
const fileDateLayout = "20060102"

// Header summarizes an analysis above its groups.
type Header struct {
	// TotalKeywords describes how many keywords were analysed.
	TotalKeywords string `json:"total_keywords"`

	// Threshold is the similarity threshold the analysis ran with.
	Threshold float64 `json:"similarity_threshold"`

	// Date is the local date the report was assembled on.
	Date string `json:"date"`

	// GeneratedAt is the local time the report was assembled at.
	GeneratedAt time.Time `json:"-"`
}

// Assemble computes the header of an analysis. The keyword count comes from
// the backend statistics when present and falls back to the number of groups.
// The date is the caller's clock, not the backend's.
func Assemble(a *model.AnalysisReport, now time.Time) *Header {
	h := &Header{
		Threshold:   a.Threshold(),
		Date:        now.Format(DateLayout),
		GeneratedAt: now,
	}

	switch {
	case a == nil:
		h.TotalKeywords = fmt.Sprintf("%d groupes de mots-clés analysés", 0)
	case a.Stats != nil:
		h.TotalKeywords = fmt.Sprintf("%d mots-clés analysés (%d avec cannibalisation)",
			a.Stats.TotalKeywords, a.Stats.CannibalizationCount)
	default:
		h.TotalKeywords = fmt.Sprintf("%d groupes de mots-clés analysés", len(a.Groups))
	}
	return h
}

// FileName returns the export file name for the given date and extension,
// e.g. "rapport-cannibalisation-20240131.json".
func FileName(now time.Time, ext string) string {
	return fmt.Sprintf("rapport-cannibalisation-%s.%s", now.Format(fileDateLayout), ext)
}

// Document is everything a Writer needs to lay out one report.
type Document struct {
	Header *Header

	// Criteria is the filter pass that produced Groups.
	Criteria filter.Criteria

	// Groups are the groups currently displayed, in display order.
	Groups []model.KeywordGroup

	// Views are Groups rendered for display.
	Views []render.GroupView

	// Analysis is the full analysis the groups were filtered from. It is
	// embedded in HTML snapshots so they can be filtered again later.
	Analysis *model.AnalysisReport
}

// NewDocument assembles a Document for groups filtered out of analysis.
func NewDocument(analysis *model.AnalysisReport, criteria filter.Criteria, groups []model.KeywordGroup, opts render.Options, now time.Time) *Document {
	return &Document{
		Header:   Assemble(analysis, now),
		Criteria: criteria,
		Groups:   groups,
		Views:    render.Groups(groups, opts),
		Analysis: analysis,
	}
}

// ResultsCount returns the number of displayed groups.
func (d *Document) ResultsCount() int {
	return len(d.Groups)
}

// ThresholdUsed returns the similarity threshold shown on the report: the
// minimum similarity of the active filters, 0 included, or the analysis
// threshold when no filter pass set one.
func (d *Document) ThresholdUsed() float64 {
	if d.Criteria.MinSimilaritySet {
		return d.Criteria.MinSimilarity
	}
	if d.Header != nil {
		return d.Header.Threshold
	}
	return model.DefaultSimilarityThreshold
}
