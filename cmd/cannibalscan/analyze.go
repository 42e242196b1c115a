package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/cannibalscan/internal/client"
	"github.com/nao1215/cannibalscan/internal/config"
	"github.com/nao1215/cannibalscan/internal/database"
	"github.com/nao1215/cannibalscan/internal/filter"
	"github.com/nao1215/cannibalscan/internal/pipeline"
	"github.com/nao1215/cannibalscan/internal/render"
)

// defaultForbiddenMessage is shown for a 403 without a backend message.
const defaultForbiddenMessage = "Erreur d'autorisation. Veuillez vérifier vos permissions dans Google Search Console."

// NewAnalyzeCmd creates the analyze command.
func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run a cannibalization analysis on the backend",
		Long: `Analyze sends keyword data to the analysis backend, then filters, prints
and exports the resulting keyword groups.

The analysis is stored in the history database (disable with --no-save)
so it can be filtered again later with "cannibalscan filter --id".`,
	}

	cmd.AddCommand(newAnalyzeCSVCmd())
	cmd.AddCommand(newAnalyzeGSCCmd())
	return cmd
}

func newAnalyzeCSVCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "csv <keywords.csv>",
		Short: "Analyze a Search Console keyword export",
		Long: `Upload a keyword export (query, page, clicks, impressions, ...) for analysis.

Examples:
  # Analyze an export and print the report
  cannibalscan analyze csv keywords.csv

  # Provide page content instead of letting the backend scrape pages
  cannibalscan analyze csv keywords.csv --content pages.csv

  # Write HTML and DOCX exports
  cannibalscan analyze csv keywords.csv -x html -x docx --export-dir reports`,
		Args: cobra.ExactArgs(1),
		RunE: runAnalyzeCSVCmd,
	}

	cmd.Flags().String("content", "", "CSV file of page contents (url, content columns)")
	addAnalysisFlags(cmd)
	addFilterFlags(cmd)
	addOutputFlags(cmd)
	return cmd
}

func newAnalyzeGSCCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gsc",
		Short: "Analyze Search Console data of one or more properties",
		Long: `Fetch Search Console data through the backend and analyze it.

Several --site flags analyse the properties concurrently (see --batch).
Without --site, the sites listed in the configuration file are analysed.

Examples:
  # Analyze the last 30 days of a property
  cannibalscan analyze gsc --site https://www.example.com/

  # Analyze a domain property over a fixed period
  cannibalscan analyze gsc --site sc-domain:example.com --start 2024-01-01 --end 2024-03-31

  # Analyze two properties and export JSON for each
  cannibalscan analyze gsc --site https://a.example/ --site https://b.example/ -x json`,
		Args: cobra.NoArgs,
		RunE: runAnalyzeGSCCmd,
	}

	cmd.Flags().StringSliceP("site", "s", nil, "Search Console property URL (repeatable)")
	cmd.Flags().Int("days", config.DefaultDateRangeDays, "Length of the analysed period ending today")
	cmd.Flags().String("start", "", "First day of the period (YYYY-MM-DD), overrides --days")
	cmd.Flags().String("end", "", "Last day of the period (YYYY-MM-DD, default: today)")
	cmd.Flags().Int("max-rows", config.DefaultMaxRows, "Maximum Search Console rows fetched")
	cmd.Flags().Int("chunk-size", config.DefaultChunkSize, "Days per Search Console request")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize, "Number of properties analysed concurrently")
	addAnalysisFlags(cmd)
	addFilterFlags(cmd)
	addOutputFlags(cmd)
	return cmd
}

// addAnalysisFlags registers the parameters sent to the backend.
func addAnalysisFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("threshold", 0, "Similarity threshold of the analysis (default 0.8)")
	cmd.Flags().Bool("scrape", false, "Let the backend scrape page content to compare")
	cmd.Flags().Bool("primary-only", false, "Only analyse the main query of each page")
	cmd.Flags().Int("analysis-min-clicks", 0, "Drop rows with fewer clicks before grouping")
	cmd.Flags().Int("analysis-min-impressions", 0, "Drop rows with fewer impressions before grouping")
	cmd.Flags().Bool("backend-report", false, "Also request the backend report summary")
	cmd.Flags().Bool("no-save", false, "Do not store the analysis in the history database")
}

// analyzeOptions are the settings of analyze not kept in config.Config.
type analyzeOptions struct {
	backendReport bool
	start, end    string
}

// buildAnalyzeConfig creates the configuration of an analyze subcommand.
func buildAnalyzeConfig(cmd *cobra.Command) (*config.Config, analyzeOptions, error) {
	var opts analyzeOptions

	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, opts, err
	}

	flags := cmd.Flags()
	if flags.Changed("threshold") {
		if cfg.Analysis.SimilarityThreshold, err = flags.GetFloat64("threshold"); err != nil {
			return nil, opts, err
		}
	}
	if flags.Changed("scrape") {
		if cfg.Analysis.ScrapePages, err = flags.GetBool("scrape"); err != nil {
			return nil, opts, err
		}
	}
	if flags.Changed("primary-only") {
		if cfg.Analysis.PrimaryKeywordOnly, err = flags.GetBool("primary-only"); err != nil {
			return nil, opts, err
		}
	}
	if flags.Changed("analysis-min-clicks") {
		if cfg.Analysis.MinClicks, err = flags.GetInt("analysis-min-clicks"); err != nil {
			return nil, opts, err
		}
	}
	if flags.Changed("analysis-min-impressions") {
		if cfg.Analysis.MinImpressions, err = flags.GetInt("analysis-min-impressions"); err != nil {
			return nil, opts, err
		}
	}
	noSave, err := flags.GetBool("no-save")
	if err != nil {
		return nil, opts, err
	}
	cfg.SaveToDB = !noSave

	if opts.backendReport, err = flags.GetBool("backend-report"); err != nil {
		return nil, opts, err
	}

	if err := applyFilterFlags(cmd, cfg); err != nil {
		return nil, opts, err
	}
	if err := applyOutputFlags(cmd, cfg); err != nil {
		return nil, opts, err
	}
	return cfg, opts, nil
}

func runAnalyzeCSVCmd(cmd *cobra.Command, args []string) error {
	cfg, opts, err := buildAnalyzeConfig(cmd)
	if err != nil {
		return err
	}
	contentPath, err := cmd.Flags().GetString("content")
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)
	ctx, cancel := signalContext(logger)
	defer cancel()

	a := newAnalyzer(cfg, opts, logger)
	if cfg.SaveToDB {
		if a.db, err = openHistory(cfg); err != nil {
			return err
		}
		defer a.db.Close()
	}

	request := client.CSVRequest{
		SimilarityThreshold: cfg.Analysis.SimilarityThreshold,
		ScrapePages:         cfg.Analysis.ScrapePages,
		PrimaryKeywordOnly:  cfg.Analysis.PrimaryKeywordOnly,
		MinClicks:           cfg.Analysis.MinClicks,
		MinImpressions:      cfg.Analysis.MinImpressions,
	}
	p := a.pipeline(pipeline.NewCSVStep(a.client, args[0], contentPath, request), cfg.Criteria, false)

	run := pipeline.NewRun("")
	return a.finish(cmd.OutOrStdout(), run, p.Execute(ctx, run))
}

func runAnalyzeGSCCmd(cmd *cobra.Command, _ []string) error {
	cfg, opts, err := buildAnalyzeConfig(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if cfg.Sites, err = flags.GetStringSlice("site"); err != nil {
		return err
	}
	if len(cfg.Sites) == 0 && cfg.SiteConfigs != nil {
		for site := range cfg.SiteConfigs.Sites {
			cfg.Sites = append(cfg.Sites, site)
		}
	}
	if len(cfg.Sites) == 0 {
		return errors.New("no site provided (use --site or list sites in the configuration file)")
	}
	if cfg.DateRangeDays, err = flags.GetInt("days"); err != nil {
		return err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return err
	}
	if flags.Changed("max-rows") {
		if cfg.Analysis.MaxRows, err = flags.GetInt("max-rows"); err != nil {
			return err
		}
	}
	if flags.Changed("chunk-size") {
		if cfg.Analysis.ChunkSize, err = flags.GetInt("chunk-size"); err != nil {
			return err
		}
	}
	if opts.start, err = flags.GetString("start"); err != nil {
		return err
	}
	if opts.end, err = flags.GetString("end"); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)
	ctx, cancel := signalContext(logger)
	defer cancel()

	a := newAnalyzer(cfg, opts, logger)
	if cfg.SaveToDB {
		if a.db, err = openHistory(cfg); err != nil {
			return err
		}
		defer a.db.Close()
	}

	// Requests are built up front so a bad date fails before any call.
	requests := make(map[string]client.GSCRequest, len(cfg.Sites))
	for _, site := range cfg.Sites {
		r, err := gscRequest(cfg, opts, site, time.Now())
		if err != nil {
			return err
		}
		requests[site] = r
	}

	batch := len(cfg.Sites) > 1
	factory := func(site string) *pipeline.Pipeline {
		return a.pipeline(pipeline.NewSearchConsoleStep(a.client, requests[site]), cfg.SiteCriteria(site), batch)
	}

	if !batch {
		run := pipeline.NewRun(cfg.Sites[0])
		return a.finish(cmd.OutOrStdout(), run, factory(cfg.Sites[0]).Execute(ctx, run))
	}
	return a.runBatch(ctx, cmd.OutOrStdout(), factory)
}

// gscRequest builds the Search Console request of site.
func gscRequest(cfg *config.Config, opts analyzeOptions, site string, now time.Time) (client.GSCRequest, error) {
	params := cfg.SiteAnalysis(site)

	end := now
	if opts.end != "" {
		t, err := time.Parse(client.DateLayout, opts.end)
		if err != nil {
			return client.GSCRequest{}, fmt.Errorf("invalid --end date %q: %w", opts.end, err)
		}
		end = t
	}
	start := end.AddDate(0, 0, -cfg.DateRangeDays)
	if opts.start != "" {
		t, err := time.Parse(client.DateLayout, opts.start)
		if err != nil {
			return client.GSCRequest{}, fmt.Errorf("invalid --start date %q: %w", opts.start, err)
		}
		start = t
	}
	if start.After(end) {
		return client.GSCRequest{}, fmt.Errorf("%w: start %s is after end %s",
			config.ErrInvalidDateRange, start.Format(client.DateLayout), end.Format(client.DateLayout))
	}

	r := client.NewGSCRequest(site, now)
	r.StartDate = start.Format(client.DateLayout)
	r.EndDate = end.Format(client.DateLayout)
	r.SimilarityThreshold = params.SimilarityThreshold
	r.ScrapePages = params.ScrapePages
	r.PrimaryKeywordOnly = params.PrimaryKeywordOnly
	r.MinClicks = params.MinClicks
	r.MinImpressions = params.MinImpressions
	if params.MaxRows > 0 {
		r.MaxRows = params.MaxRows
	}
	if params.ChunkSize > 0 {
		r.ChunkSize = params.ChunkSize
	}
	return r, nil
}

// analyzer holds what every analysis pipeline of one command shares.
type analyzer struct {
	cfg    *config.Config
	opts   analyzeOptions
	client *client.Client
	db     *database.HistoryDB
	logger *slog.Logger

	// mu serializes report output of concurrent runs.
	mu sync.Mutex
}

func newAnalyzer(cfg *config.Config, opts analyzeOptions, logger *slog.Logger) *analyzer {
	return &analyzer{
		cfg:    cfg,
		opts:   opts,
		client: newClient(cfg, logger),
		logger: logger,
	}
}

// pipeline assembles source, then the optional backend report and history
// steps, then filtering and exports.
func (a *analyzer) pipeline(source pipeline.Step, criteria filter.Criteria, perSite bool) *pipeline.Pipeline {
	p := pipeline.New(pipeline.WithLogger(a.logger))
	p.AddStep(source)
	if a.opts.backendReport {
		p.AddStep(pipeline.NewGenerateReportStep(a.client, a.logger))
	}
	if a.db != nil {
		p.AddStep(pipeline.NewPersistStep(a.db))
	}
	p.AddSteps(
		pipeline.NewFilterStep(criteria,
			pipeline.WithFilterRenderOptions(render.Options{ExactSimilarity: a.cfg.ExactSimilarity}),
		),
		pipeline.NewExportStep(a.cfg.ExportDir, a.cfg.Exports,
			pipeline.WithStylesheetURLs(stylesheetURLs(a.cfg)),
			pipeline.WithPerSiteNames(perSite),
			pipeline.WithExportLogger(a.logger),
		),
	)
	return p
}

// finish reports a finished run. A 403 is a message, not a failure.
func (a *analyzer) finish(stdout io.Writer, run *pipeline.Run, err error) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err != nil {
		if errors.Is(err, client.ErrForbidden) {
			fmt.Fprintf(stdout, "%s: %s\n", run.Site, forbiddenMessage(err))
			return nil
		}
		return fmt.Errorf("analysis of %s failed: %w", siteLabel(run), err)
	}

	if run.Document != nil {
		if err := outputReport(a.cfg, stdout, run.Document); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}
	if run.AnalysisID != 0 {
		a.logger.Info("analysis stored", "id", run.AnalysisID, "site", run.Site)
	}
	for _, path := range run.Exports {
		fmt.Fprintf(stdout, "Export: %s\n", path)
	}
	return nil
}

// runBatch analyses every configured site concurrently.
func (a *analyzer) runBatch(ctx context.Context, stdout io.Writer, factory func(site string) *pipeline.Pipeline) error {
	sites := a.cfg.Sites
	fmt.Fprintf(stdout, "Analysing %d sites (concurrency: %d)...\n\n", len(sites), a.cfg.BatchSize)
	startTime := time.Now()

	bp := pipeline.NewBatchProcessor(factory,
		pipeline.WithConcurrency(a.cfg.BatchSize),
		pipeline.WithBatchLogger(a.logger),
	)

	var (
		mu     sync.Mutex
		failed []string
	)
	err := bp.ProcessBatchWithCallback(ctx, sites, func(run *pipeline.Run, index int) {
		a.mu.Lock()
		fmt.Fprintf(stdout, "[%d/%d] %s\n", index+1, len(sites), run.Site)
		a.mu.Unlock()

		if ferr := a.finish(stdout, run, run.Error); ferr != nil {
			a.logger.Error("analysis failed", "site", run.Site, "error", ferr)
			mu.Lock()
			failed = append(failed, run.Site)
			mu.Unlock()
		}
	})

	fmt.Fprintf(stdout, "\nBatch completed in %s\n", time.Since(startTime).Round(time.Millisecond))
	if err != nil {
		return err
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d analyses failed: %s", len(failed), len(sites), strings.Join(failed, ", "))
	}
	return nil
}

// forbiddenMessage returns the backend's explanation of a 403, or a
// generic permissions message.
func forbiddenMessage(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return defaultForbiddenMessage
}

func siteLabel(run *pipeline.Run) string {
	if run.Site == "" {
		return "the upload"
	}
	return run.Site
}
