package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/cannibalscan/internal/model"
	"github.com/nao1215/cannibalscan/internal/render"
)

// MarkdownWriter outputs reports in GitHub flavoured Markdown, for pasting
// into tickets and documentation.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the document in Markdown format.
func (w *MarkdownWriter) Write(doc *Document) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, doc)
	w.writeSummary(md, doc)
	w.writeGroups(md, doc)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report title and summary table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, doc *Document) {
	md.H1(Title)
	md.PlainText("")

	rows := [][]string{}
	if doc.Header != nil {
		rows = append(rows,
			[]string{"Date du rapport", doc.Header.Date},
			[]string{"Mots-clés analysés", doc.Header.TotalKeywords},
		)
	}
	rows = append(rows,
		[]string{"Seuil de similarité", strconv.FormatFloat(doc.ThresholdUsed(), 'f', 1, 64)},
		[]string{"Résultats", strconv.Itoa(doc.ResultsCount())},
		[]string{"Tri", doc.Criteria.SortBy.Label()},
	)

	md.Table(markdown.TableSet{
		Header: []string{"Propriété", "Valeur"},
		Rows:   rows,
	})
	md.PlainText("")
}

// bandCounts counts cannibalizing URLs per band.
func bandCounts(views []render.GroupView) map[model.Band]int {
	counts := make(map[model.Band]int, 3)
	for _, view := range views {
		for _, row := range view.Cannibalizing {
			counts[row.Band]++
		}
	}
	return counts
}

// writeSummary writes the risk distribution and an alert for the worst band.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, doc *Document) {
	counts := bandCounts(doc.Views)
	total := counts[model.BandHigh] + counts[model.BandMedium] + counts[model.BandLow]

	if total > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Répartition des risques"),
			piechart.WithShowData(true),
		)
		for _, band := range []model.Band{model.BandHigh, model.BandMedium, model.BandLow} {
			if counts[band] > 0 {
				chart.LabelAndIntValue(band.Label(), uint64(counts[band]))
			}
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	switch {
	case counts[model.BandHigh] > 0:
		md.Cautionf("%d URL(s) en risque élevé de cannibalisation.", counts[model.BandHigh])
	case counts[model.BandMedium] > 0:
		md.Warningf("%d URL(s) en risque moyen de cannibalisation.", counts[model.BandMedium])
	case total > 0:
		md.Note("Seules des URLs à risque faible ont été trouvées.")
	default:
		md.Tip(render.NoResults)
	}
	md.PlainText("")
}

// writeGroups writes one section and table per keyword group.
func (w *MarkdownWriter) writeGroups(md *markdown.Markdown, doc *Document) {
	for _, view := range doc.Views {
		md.H2(view.Keyword)
		md.PlainTextf("**%d URLs**", view.URLCount)
		md.PlainText("")

		if view.Reference == nil {
			md.Note(view.Notice)
			md.PlainText("")
			continue
		}

		rows := [][]string{urlRow("**Référence** "+view.Reference.URL, *view.Reference, "-")}
		for _, row := range view.Cannibalizing {
			rows = append(rows, urlRow(row.URL, row, row.SimilarityDisplay+" "+row.Band.Label()))
		}
		md.Table(markdown.TableSet{
			Header: []string{"URL", "Position", "Clics", "Impressions", "CTR", "Similarité"},
			Rows:   rows,
		})
		md.PlainText("")

		if view.Notice != "" {
			md.Note(view.Notice)
			md.PlainText("")
		}
	}
}

func urlRow(label string, row render.URLView, similarity string) []string {
	return []string{
		label,
		row.Position,
		strconv.Itoa(row.Clicks),
		strconv.Itoa(row.Impressions),
		row.CTR,
		similarity,
	}
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [cannibalscan](https://github.com/nao1215/cannibalscan)*")
}
