package report

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/cannibalscan/internal/filter"
	"github.com/nao1215/cannibalscan/internal/model"
	"github.com/nao1215/cannibalscan/internal/render"
)

// defaultCSS styles the report tables and similarity bands.
//
//go:embed assets/report.css
var defaultCSS string

// AnalysisDataID is the id of the script element holding the analysis in
// HTML snapshots.
const AnalysisDataID = "analysis-data"

// HTMLWriter outputs a self-contained HTML snapshot of a report. Every
// stylesheet is inlined and the full analysis is embedded as JSON so the file
// can be imported and filtered again.
type HTMLWriter struct {
	baseWriter

	// stylesheets are inlined before the default stylesheet.
	stylesheets []string

	// formAction, when set, turns the filter summary into a GET form
	// submitting to it.
	formAction string

	// links are shown above the groups.
	links []Link
}

// Link is an action shown on the page. Post links are rendered as a form
// button since they change state.
type Link struct {
	Label string
	Href  string
	Post  bool
}

// HTMLWriterOption configures an HTMLWriter.
type HTMLWriterOption func(*HTMLWriter)

// WithStylesheets inlines the given CSS sources, typically fetched with
// FetchStylesheets.
func WithStylesheets(css ...string) HTMLWriterOption {
	return func(w *HTMLWriter) {
		w.stylesheets = append(w.stylesheets, css...)
	}
}

// WithFilterForm renders the filters as a form submitting to action, with
// the query parameters include, exclude, regex, min_similarity, min_clicks,
// min_impressions, min_urls and sort.
func WithFilterForm(action string) HTMLWriterOption {
	return func(w *HTMLWriter) {
		w.formAction = action
	}
}

// WithLinks adds action links to the page.
func WithLinks(links ...Link) HTMLWriterOption {
	return func(w *HTMLWriter) {
		w.links = append(w.links, links...)
	}
}

// NewHTMLWriter creates an HTMLWriter that outputs to the given writer.
func NewHTMLWriter(output io.Writer, opts ...HTMLWriterOption) *HTMLWriter {
	w := &HTMLWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// htmlPage is the data passed to the page template.
type htmlPage struct {
	Title        string
	Date         string
	Threshold    string
	Keywords     string
	ResultsCount int
	Filters      []htmlFilter
	Views        []render.GroupView
	NoResults    string
	CSS          template.CSS
	Analysis     template.JS
	DataID       string
	FormAction   string
	Criteria     filter.Criteria
	SortOptions  []sortOption
	Links        []Link
}

type sortOption struct {
	Value    string
	Label    string
	Selected bool
}

type htmlFilter struct {
	Label string
	Value string
}

// Write outputs the document as an HTML page.
func (w *HTMLWriter) Write(doc *Document) (int, error) {
	analysis := doc.Analysis
	if analysis == nil {
		analysis = &model.AnalysisReport{Groups: doc.Groups}
	}
	// encoding/json escapes <, > and & so the payload cannot close the script element.
	data, err := json.Marshal(analysis)
	if err != nil {
		return 0, fmt.Errorf("failed to encode analysis: %w", err)
	}

	page := htmlPage{
		Title:        Title,
		Threshold:    strconv.FormatFloat(doc.ThresholdUsed(), 'f', 1, 64),
		ResultsCount: doc.ResultsCount(),
		Filters:      filterRows(doc.Criteria),
		Views:        doc.Views,
		NoResults:    render.NoResults,
		CSS:          template.CSS(w.css()), //nolint:gosec // stylesheets come from configured sources
		Analysis:     template.JS(data),     //nolint:gosec // JSON encoded above
		DataID:       AnalysisDataID,
		FormAction:   w.formAction,
		Criteria:     doc.Criteria,
		Links:        w.links,
	}
	if w.formAction != "" {
		page.SortOptions = sortOptions(doc.Criteria.SortBy)
	}
	if doc.Header != nil {
		page.Date = doc.Header.Date
		page.Keywords = doc.Header.TotalKeywords
	}

	var sb strings.Builder
	if err := pageTemplate.Execute(&sb, page); err != nil {
		return 0, fmt.Errorf("failed to render HTML report: %w", err)
	}
	return io.WriteString(w.output, sb.String())
}

// css joins the inlined stylesheets, ending with the default one. Any "</"
// becomes the CSS escape "<\/" so no sheet can end the <style> element.
func (w *HTMLWriter) css() string {
	sheets := make([]string, 0, len(w.stylesheets)+1)
	sheets = append(sheets, w.stylesheets...)
	sheets = append(sheets, defaultCSS)
	return strings.ReplaceAll(strings.Join(sheets, "\n"), "</", `<\/`)
}

func filterRows(c filter.Criteria) []htmlFilter {
	rows := []htmlFilter{}
	if c.Include != "" {
		rows = append(rows, htmlFilter{"Mot-clé contient", c.Include})
	}
	if c.Exclude != "" {
		rows = append(rows, htmlFilter{"Exclure les mots-clés", c.Exclude})
	}
	if c.UseRegex {
		rows = append(rows, htmlFilter{"Expressions régulières", "oui"})
	}
	rows = append(rows,
		htmlFilter{"Similarité minimale", strconv.FormatFloat(c.MinSimilarity, 'f', 2, 64)},
		htmlFilter{"Clics minimum", strconv.Itoa(c.MinClicks)},
		htmlFilter{"Impressions minimum", strconv.Itoa(c.MinImpressions)},
		htmlFilter{"Nombre minimum d'URLs", strconv.Itoa(c.MinURLs)},
		htmlFilter{"Trier par", c.SortBy.Label()},
	)
	return rows
}

func sortOptions(selected filter.SortKey) []sortOption {
	opts := make([]sortOption, len(filter.SortKeys))
	for i, key := range filter.SortKeys {
		opts[i] = sortOption{Value: string(key), Label: key.Label(), Selected: key == selected}
	}
	return opts
}

var pageTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="fr">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}} - {{.Date}}</title>
<style>
{{.CSS}}
</style>
</head>
<body>
<div class="container-fluid">
<h1 class="mb-4">{{.Title}}</h1>
<div class="export-info">
<div><strong>Date du rapport:</strong> <span id="reportDate">{{.Date}}</span></div>
<div><strong>Seuil de similarité:</strong> <span id="thresholdUsed">{{.Threshold}}</span></div>
<div><strong>Mots-clés analysés:</strong> <span id="totalKeywords">{{.Keywords}}</span></div>
<div><strong>Résultats:</strong> <span id="resultsCount">{{.ResultsCount}}</span></div>
</div>
{{- if .Links}}
<div class="report-links mb-3">
{{- range .Links}}
{{- if .Post}}
<form method="post" action="{{.Href}}" class="d-inline"><button type="submit" class="btn btn-outline-secondary me-2">{{.Label}}</button></form>
{{- else}}
<a href="{{.Href}}" class="btn btn-outline-primary me-2">{{.Label}}</a>
{{- end}}
{{- end}}
</div>
{{- end}}
{{- if .FormAction}}
<form method="get" action="{{.FormAction}}" class="filters-section">
<h4>Filtres</h4>
<div class="row g-2">
<div class="col-md-4"><label for="include">Mot-clé contient</label><input type="text" class="form-control" id="include" name="include" value="{{.Criteria.Include}}"></div>
<div class="col-md-4"><label for="exclude">Exclure les mots-clés</label><input type="text" class="form-control" id="exclude" name="exclude" value="{{.Criteria.Exclude}}"></div>
<div class="col-md-4"><label><input type="checkbox" name="regex" value="true"{{if .Criteria.UseRegex}} checked{{end}}> Expressions régulières</label></div>
<div class="col-md-3"><label for="min_similarity">Similarité minimale</label><input type="number" class="form-control" id="min_similarity" name="min_similarity" min="0" max="1" step="0.01" value="{{printf "%.2f" .Criteria.MinSimilarity}}"></div>
<div class="col-md-3"><label for="min_clicks">Clics minimum</label><input type="number" class="form-control" id="min_clicks" name="min_clicks" min="0" value="{{.Criteria.MinClicks}}"></div>
<div class="col-md-3"><label for="min_impressions">Impressions minimum</label><input type="number" class="form-control" id="min_impressions" name="min_impressions" min="0" value="{{.Criteria.MinImpressions}}"></div>
<div class="col-md-3"><label for="min_urls">Nombre minimum d'URLs</label><input type="number" class="form-control" id="min_urls" name="min_urls" min="1" value="{{.Criteria.MinURLs}}"></div>
<div class="col-md-4"><label for="sort">Trier par</label><select class="form-select" id="sort" name="sort">
{{- range .SortOptions}}
<option value="{{.Value}}"{{if .Selected}} selected{{end}}>{{.Label}}</option>
{{- end}}
</select></div>
</div>
<button type="submit" class="btn btn-primary mt-2">Appliquer les filtres</button>
</form>
{{- else}}
<div class="filters-section">
<h4>Filtres</h4>
<ul>
{{- range .Filters}}
<li><strong>{{.Label}}:</strong> {{.Value}}</li>
{{- end}}
</ul>
</div>
{{- end}}
<div id="keywordGroups">
{{- range .Views}}
<div class="keyword-group">
<h4 class="keyword-title">{{.Keyword}}</h4>
<div class="keyword-stats"><span class="badge bg-primary">{{.URLCount}} URLs</span></div>
{{- if .Reference}}
<div class="table-responsive">
<table class="table table-hover">
<thead>
<tr>
<th>URL</th>
<th class="text-end">Position</th>
<th class="text-end">Clics</th>
<th class="text-end">Impressions</th>
<th class="text-end">CTR</th>
<th class="text-end">Similarité</th>
</tr>
</thead>
<tbody>
{{- with .Reference}}
<tr class="reference-url">
<td><span class="badge bg-success me-2">Référence</span> <span class="url-cell"><a href="{{.URL}}" target="_blank" class="url-link">{{.URL}}</a></span></td>
<td class="text-end">{{.Position}}</td>
<td class="text-end">{{.Clicks}}</td>
<td class="text-end">{{.Impressions}}</td>
<td class="text-end">{{.CTR}}</td>
<td class="text-end">-</td>
</tr>
{{- end}}
{{- range .Cannibalizing}}
<tr>
<td><span class="url-cell"><a href="{{.URL}}" target="_blank" class="url-link">{{.URL}}</a></span></td>
<td class="text-end">{{.Position}}</td>
<td class="text-end">{{.Clicks}}</td>
<td class="text-end">{{.Impressions}}</td>
<td class="text-end">{{.CTR}}</td>
<td class="text-end similarity-cell"><span class="similarity-value {{.Band.Class}}">{{.SimilarityDisplay}}</span><span class="risk-label {{.Band.Class}}">{{.Band.Label}}</span></td>
</tr>
{{- end}}
</tbody>
</table>
</div>
{{- end}}
{{- if .Notice}}
<div class="notice">{{.Notice}}</div>
{{- end}}
</div>
{{- else}}
<div class="notice">{{.NoResults}}</div>
{{- end}}
</div>
</div>
<script type="application/json" id="{{.DataID}}">{{.Analysis}}</script>
</body>
</html>
`))
