package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nao1215/cannibalscan/internal/client"
	"github.com/nao1215/cannibalscan/internal/config"
	"github.com/nao1215/cannibalscan/internal/database"
	"github.com/nao1215/cannibalscan/internal/filter"
	"github.com/nao1215/cannibalscan/internal/model"
	"github.com/nao1215/cannibalscan/internal/render"
	"github.com/nao1215/cannibalscan/internal/report"
	"github.com/nao1215/cannibalscan/internal/session"
)

// ErrNoAnalysis is returned by steps that need an analysis when no earlier
// step provided one.
var ErrNoAnalysis = errors.New("no analysis to process")

// SearchConsoleAnalyzer runs Search Console analyses. *client.Client implements it.
type SearchConsoleAnalyzer interface {
	AnalyzeSearchConsole(ctx context.Context, r client.GSCRequest) (*model.AnalysisReport, error)
}

// CSVAnalyzer runs analyses of uploaded exports. *client.Client implements it.
type CSVAnalyzer interface {
	AnalyzeCSV(ctx context.Context, r client.CSVRequest) (*model.AnalysisReport, error)
}

// ReportGenerator asks the backend for its report summary. *client.Client implements it.
type ReportGenerator interface {
	GenerateReport(ctx context.Context, analysis *model.AnalysisReport) (*model.GeneratedReport, error)
}

// AnalysisSaver stores analyses. *database.HistoryDB implements it.
type AnalysisSaver interface {
	SaveAnalysis(ctx context.Context, source, site string, at time.Time, analysis *model.AnalysisReport) (int64, error)
}

// AnalysisGetter loads stored analyses. *database.HistoryDB implements it.
type AnalysisGetter interface {
	GetAnalysis(ctx context.Context, id int64) (*model.AnalysisReport, error)
}

// SearchConsoleStep fetches a Search Console analysis of the run's site.
type SearchConsoleStep struct {
	analyzer SearchConsoleAnalyzer

	// request holds every parameter but the site, taken from the run.
	request client.GSCRequest
}

// NewSearchConsoleStep creates a step sending request for the run's site.
func NewSearchConsoleStep(analyzer SearchConsoleAnalyzer, request client.GSCRequest) *SearchConsoleStep {
	return &SearchConsoleStep{analyzer: analyzer, request: request}
}

// Name returns the step name.
func (s *SearchConsoleStep) Name() string {
	return "search_console"
}

// Do executes the Search Console analysis.
func (s *SearchConsoleStep) Do(ctx context.Context, run *Run) error {
	r := s.request
	r.SiteURL = run.Site

	analysis, err := s.analyzer.AnalyzeSearchConsole(ctx, r)
	if err != nil {
		return err
	}
	run.Analysis = analysis
	run.Source = database.SourceSearchConsole
	return nil
}

// CSVStep uploads a keyword export, plus an optional content export.
type CSVStep struct {
	analyzer    CSVAnalyzer
	path        string
	contentPath string

	// request holds the analysis parameters; files are set by Do.
	request client.CSVRequest
}

// NewCSVStep creates a step uploading the file at path. contentPath may be empty.
func NewCSVStep(analyzer CSVAnalyzer, path, contentPath string, request client.CSVRequest) *CSVStep {
	return &CSVStep{
		analyzer:    analyzer,
		path:        path,
		contentPath: contentPath,
		request:     request,
	}
}

// Name returns the step name.
func (s *CSVStep) Name() string {
	return "csv_upload"
}

// Do uploads the files and stores the analysis in the run.
func (s *CSVStep) Do(ctx context.Context, run *Run) error {
	f, err := os.Open(filepath.Clean(s.path))
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", s.path, err)
	}
	defer f.Close()

	r := s.request
	r.FileName = filepath.Base(s.path)
	r.File = f

	if s.contentPath != "" {
		cf, err := os.Open(filepath.Clean(s.contentPath))
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", s.contentPath, err)
		}
		defer cf.Close()
		r.ContentFileName = filepath.Base(s.contentPath)
		r.ContentFile = cf
	}

	analysis, err := s.analyzer.AnalyzeCSV(ctx, r)
	if err != nil {
		return err
	}
	run.Analysis = analysis
	run.Source = database.SourceCSV
	if run.Site == "" {
		run.Site = r.FileName
	}
	return nil
}

// ImportStep reads an analysis from a JSON or HTML export file.
type ImportStep struct {
	path string
}

// NewImportStep creates a step importing the export at path.
func NewImportStep(path string) *ImportStep {
	return &ImportStep{path: path}
}

// Name returns the step name.
func (s *ImportStep) Name() string {
	return "import"
}

// Do imports the export file.
func (s *ImportStep) Do(_ context.Context, run *Run) error {
	analysis, err := report.ImportFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to import %s: %w", s.path, err)
	}
	run.Analysis = analysis
	run.Source = database.SourceImport
	if run.Site == "" {
		run.Site = filepath.Base(s.path)
	}
	return nil
}

// HistoryStep loads a stored analysis.
type HistoryStep struct {
	store AnalysisGetter
	id    int64
}

// NewHistoryStep creates a step loading analysis id from store.
func NewHistoryStep(store AnalysisGetter, id int64) *HistoryStep {
	return &HistoryStep{store: store, id: id}
}

// Name returns the step name.
func (s *HistoryStep) Name() string {
	return "history"
}

// Do loads the analysis.
func (s *HistoryStep) Do(ctx context.Context, run *Run) error {
	analysis, err := s.store.GetAnalysis(ctx, s.id)
	if err != nil {
		return fmt.Errorf("failed to load analysis %d: %w", s.id, err)
	}
	run.Analysis = analysis
	run.AnalysisID = s.id
	return nil
}

// GenerateReportStep asks the backend for its report summary. A failure
// is logged and does not stop the run: the local report does not need it.
type GenerateReportStep struct {
	generator ReportGenerator
	logger    *slog.Logger
}

// NewGenerateReportStep creates the step.
func NewGenerateReportStep(generator ReportGenerator, logger *slog.Logger) *GenerateReportStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &GenerateReportStep{generator: generator, logger: logger}
}

// Name returns the step name.
func (s *GenerateReportStep) Name() string {
	return "generate_report"
}

// Do requests the summary.
func (s *GenerateReportStep) Do(ctx context.Context, run *Run) error {
	if run.Analysis == nil {
		return ErrNoAnalysis
	}
	generated, err := s.generator.GenerateReport(ctx, run.Analysis)
	if err != nil {
		s.logger.Warn("backend report unavailable", "site", run.Site, "error", err)
		return nil
	}
	run.Generated = generated
	s.logger.Debug("backend report",
		"site", run.Site,
		"generated_at", generated.GeneratedAt,
		"cannibalized_keywords", generated.CannibalizedKeywords,
	)
	return nil
}

// PersistStep stores the analysis in the history database.
type PersistStep struct {
	store AnalysisSaver
}

// NewPersistStep creates the step.
func NewPersistStep(store AnalysisSaver) *PersistStep {
	return &PersistStep{store: store}
}

// Name returns the step name.
func (s *PersistStep) Name() string {
	return "persist"
}

// Do saves the analysis and records its ID in the run.
func (s *PersistStep) Do(ctx context.Context, run *Run) error {
	if run.Analysis == nil {
		return ErrNoAnalysis
	}
	id, err := s.store.SaveAnalysis(ctx, run.Source, run.Site, run.StartedAt, run.Analysis)
	if err != nil {
		return err
	}
	run.AnalysisID = id
	return nil
}

// FilterStep filters the analysis into a report document.
type FilterStep struct {
	criteria filter.Criteria
	options  render.Options
	now      func() time.Time
}

// FilterStepOption configures a FilterStep.
type FilterStepOption func(*FilterStep)

// WithFilterClock sets the clock used for the report date.
func WithFilterClock(now func() time.Time) FilterStepOption {
	return func(s *FilterStep) {
		s.now = now
	}
}

// WithFilterRenderOptions sets how similarities are displayed.
func WithFilterRenderOptions(opts render.Options) FilterStepOption {
	return func(s *FilterStep) {
		s.options = opts
	}
}

// NewFilterStep creates a step applying criteria. Unless MinSimilaritySet,
// the minimum similarity is the threshold of the analysis.
func NewFilterStep(criteria filter.Criteria, opts ...FilterStepOption) *FilterStep {
	s := &FilterStep{
		criteria: criteria,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *FilterStep) Name() string {
	return "filter"
}

// Do filters the analysis and stores the document in the run.
func (s *FilterStep) Do(_ context.Context, run *Run) error {
	if run.Analysis == nil {
		return ErrNoAnalysis
	}

	sess := session.New(
		session.WithClock(s.now),
		session.WithRenderOptions(s.options),
		session.WithCriteria(s.criteria),
	)
	if err := sess.Load(run.Analysis); err != nil {
		return err
	}
	doc, err := sess.Document()
	if err != nil {
		return err
	}
	run.Document = doc
	return nil
}

// ExportStep writes the report document to export files.
type ExportStep struct {
	dir         string
	formats     []string
	stylesheets []string
	httpClient  *http.Client
	perSite     bool
	logger      *slog.Logger
}

// ExportStepOption configures an ExportStep.
type ExportStepOption func(*ExportStep)

// WithStylesheetURLs sets the remote stylesheets inlined into HTML exports.
func WithStylesheetURLs(urls []string) ExportStepOption {
	return func(s *ExportStep) {
		s.stylesheets = urls
	}
}

// WithExportHTTPClient sets the client used to fetch stylesheets.
func WithExportHTTPClient(c *http.Client) ExportStepOption {
	return func(s *ExportStep) {
		s.httpClient = c
	}
}

// WithPerSiteNames adds the site to file names, for batches.
func WithPerSiteNames(perSite bool) ExportStepOption {
	return func(s *ExportStep) {
		s.perSite = perSite
	}
}

// WithExportLogger sets a custom logger for the export step.
func WithExportLogger(logger *slog.Logger) ExportStepOption {
	return func(s *ExportStep) {
		s.logger = logger
	}
}

// NewExportStep creates a step writing formats (see config.Export*) to dir.
func NewExportStep(dir string, formats []string, opts ...ExportStepOption) *ExportStep {
	s := &ExportStep{
		dir:     dir,
		formats: formats,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *ExportStep) Name() string {
	return "export"
}

// Do writes every export file. An empty report is not exported.
func (s *ExportStep) Do(ctx context.Context, run *Run) error {
	if run.Document == nil {
		return ErrNoAnalysis
	}
	if len(s.formats) == 0 {
		return nil
	}
	if run.Document.ResultsCount() == 0 {
		s.logger.Warn("nothing to export", "site", run.Site)
		return nil
	}

	if err := os.MkdirAll(s.dir, 0750); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	now := run.Document.Header.GeneratedAt
	for _, format := range s.formats {
		name := report.FileName(now, format)
		if s.perSite {
			name = siteFileName(name, run.Site)
		}
		path := filepath.Join(s.dir, name)

		if err := s.write(ctx, run.Document, format, path); err != nil {
			return err
		}
		s.logger.Info("export written", "format", format, "path", path)
		run.Exports = append(run.Exports, path)
	}
	return nil
}

func (s *ExportStep) write(ctx context.Context, doc *report.Document, format, path string) error {
	if format == config.ExportDOCX {
		return report.SaveDOCX(doc, path)
	}

	var w func(f *os.File) report.Writer
	switch format {
	case config.ExportJSON:
		w = func(f *os.File) report.Writer { return report.NewJSONWriter(f, report.WithPrettyPrint()) }
	case config.ExportMarkdown:
		w = func(f *os.File) report.Writer { return report.NewMarkdownWriter(f) }
	case config.ExportHTML:
		css := s.fetchStylesheets(ctx)
		w = func(f *os.File) report.Writer { return report.NewHTMLWriter(f, report.WithStylesheets(css...)) }
	default:
		return fmt.Errorf("%w: %s", config.ErrUnknownExportFormat, format)
	}

	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := w(f).Write(doc); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// fetchStylesheets returns the remote stylesheets, or none when any of them
// cannot be fetched: the embedded stylesheet alone still gives a readable page.
func (s *ExportStep) fetchStylesheets(ctx context.Context) []string {
	if len(s.stylesheets) == 0 {
		return nil
	}
	css, err := report.FetchStylesheets(ctx, s.httpClient, s.stylesheets)
	if err != nil {
		s.logger.Warn("stylesheets not inlined", "error", err)
		return nil
	}
	return css
}

// siteFileName inserts a file-system friendly form of site before the date
// of an export file name: rapport-cannibalisation-example-com-20240131.json.
func siteFileName(name, site string) string {
	slug := siteSlug(site)
	if slug == "" {
		return name
	}
	const prefix = "rapport-cannibalisation-"
	return prefix + slug + "-" + strings.TrimPrefix(name, prefix)
}

func siteSlug(site string) string {
	site = strings.TrimPrefix(site, "sc-domain:")
	if i := strings.Index(site, "://"); i >= 0 {
		site = site[i+3:]
	}
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, site)
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	return strings.Trim(slug, "-")
}
