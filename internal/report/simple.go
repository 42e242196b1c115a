package report

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/nao1215/cannibalscan/internal/model"
	"github.com/nao1215/cannibalscan/internal/render"
)

// SimpleWriter outputs human-readable text reports for terminal display.
// Plain ASCII rules separate the sections so output stays readable when
// piped to files.
type SimpleWriter struct {
	baseWriter

	// printer formats counts with the grouping of the report language.
	printer *message.Printer

	// verbose adds the active filter criteria to the header.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// WithLanguage sets the language used to format numbers. French by default.
func WithLanguage(tag language.Tag) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.printer = message.NewPrinter(tag)
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		printer:    message.NewPrinter(language.French),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the document in human-readable format.
func (w *SimpleWriter) Write(doc *Document) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, doc)
	w.writeGroups(&sb, doc)
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

// writeHeader writes the report title and summary.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, doc *Document) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                  " + strings.ToUpper(Title) + "\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	if doc.Header != nil {
		fmt.Fprintf(sb, "Date du rapport:       %s\n", doc.Header.Date)
		fmt.Fprintf(sb, "Mots-clés analysés:    %s\n", doc.Header.TotalKeywords)
	}
	fmt.Fprintf(sb, "Seuil de similarité:   %.1f\n", doc.ThresholdUsed())
	fmt.Fprintf(sb, "Résultats:             %d\n", doc.ResultsCount())

	if w.verbose {
		fmt.Fprintf(sb, "Filtres:               %s\n", doc.Criteria)
	}
	sb.WriteString("\n")
}

// writeGroups writes one section per keyword group.
func (w *SimpleWriter) writeGroups(sb *strings.Builder, doc *Document) {
	if len(doc.Views) == 0 {
		sb.WriteString("  " + render.NoResults + "\n\n")
		return
	}

	for _, view := range doc.Views {
		sb.WriteString(strings.Repeat("-", 70))
		sb.WriteString("\n")
		fmt.Fprintf(sb, "%s (%d URLs)\n", view.Keyword, view.URLCount)
		sb.WriteString(strings.Repeat("-", 70))
		sb.WriteString("\n")

		if view.Reference != nil {
			fmt.Fprintf(sb, "  [REF] %s\n", view.Reference.URL)
			w.writeMetrics(sb, *view.Reference)
		}
		for _, row := range view.Cannibalizing {
			fmt.Fprintf(sb, "  [%s] %s\n", w.bandIndicator(row), row.URL)
			w.writeMetrics(sb, row)
			fmt.Fprintf(sb, "        Similarité: %s (%s)\n", row.SimilarityDisplay, row.Band.Label())
		}
		if view.Notice != "" {
			sb.WriteString("  " + view.Notice + "\n")
		}
		sb.WriteString("\n")
	}
}

func (w *SimpleWriter) writeMetrics(sb *strings.Builder, row render.URLView) {
	sb.WriteString(w.printer.Sprintf("        Position: %s  Clics: %d  Impressions: %d  CTR: %s\n",
		row.Position, row.Clicks, row.Impressions, row.CTR))
}

// bandIndicator returns a visual indicator for the similarity band.
func (w *SimpleWriter) bandIndicator(row render.URLView) string {
	switch row.Band {
	case model.BandHigh:
		return "!!!"
	case model.BandMedium:
		return "!! "
	default:
		return "!  "
	}
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by cannibalscan\n")
	sb.WriteString("https://github.com/nao1215/cannibalscan\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
