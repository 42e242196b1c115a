package report

import (
	"fmt"

	"github.com/gingfrederik/docx"

	"github.com/nao1215/cannibalscan/internal/model"
	"github.com/nao1215/cannibalscan/internal/render"
)

// DOCX text colors, as RGB hex.
const (
	docxGrey   = "808080"
	docxBlue   = "0000FF"
	docxRed    = "DC3545"
	docxOrange = "FD7E14"
	docxGreen  = "198754"
)

// SaveDOCX writes the document as a Word file at path.
func SaveDOCX(doc *Document, path string) error {
	f := docx.NewFile()

	f.AddParagraph().AddText(Title).Size(20)
	if doc.Header != nil {
		f.AddParagraph().AddText("Date du rapport: " + doc.Header.Date).Size(10).Color(docxGrey)
		f.AddParagraph().AddText("Mots-clés analysés: " + doc.Header.TotalKeywords).Size(10).Color(docxGrey)
	}
	f.AddParagraph().AddText(fmt.Sprintf("Seuil de similarité: %.1f", doc.ThresholdUsed())).Size(10).Color(docxGrey)
	f.AddParagraph().AddText(fmt.Sprintf("Résultats: %d", doc.ResultsCount())).Size(10).Color(docxGrey)
	f.AddParagraph()

	if len(doc.Views) == 0 {
		f.AddParagraph().AddText(render.NoResults)
	}

	for _, view := range doc.Views {
		f.AddParagraph().AddText(fmt.Sprintf("%s (%d URLs)", view.Keyword, view.URLCount)).Size(16)

		if ref := view.Reference; ref != nil {
			p := f.AddParagraph()
			p.AddText("Référence: ").Size(11)
			p.AddText(ref.URL).Size(11).Color(docxBlue)
			f.AddParagraph().AddText(docxMetrics(*ref)).Size(9).Color(docxGrey)
		}

		for _, row := range view.Cannibalizing {
			p := f.AddParagraph()
			p.AddText(row.URL).Size(11).Color(docxBlue)
			p.AddText(fmt.Sprintf("  %s %s", row.SimilarityDisplay, row.Band.Label())).Size(11).Color(bandColor(row))
			f.AddParagraph().AddText(docxMetrics(row)).Size(9).Color(docxGrey)
		}

		if view.Notice != "" {
			f.AddParagraph().AddText(view.Notice).Size(10)
		}
		f.AddParagraph().AddText("--------------------------------------------------")
	}

	if err := f.Save(path); err != nil {
		return fmt.Errorf("failed to save DOCX report: %w", err)
	}
	return nil
}

func docxMetrics(row render.URLView) string {
	return fmt.Sprintf("Position: %s | Clics: %d | Impressions: %d | CTR: %s",
		row.Position, row.Clicks, row.Impressions, row.CTR)
}

func bandColor(row render.URLView) string {
	switch row.Band {
	case model.BandHigh:
		return docxRed
	case model.BandMedium:
		return docxOrange
	default:
		return docxGreen
	}
}
