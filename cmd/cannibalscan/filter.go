package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nao1215/cannibalscan/internal/database"
	"github.com/nao1215/cannibalscan/internal/pipeline"
	"github.com/nao1215/cannibalscan/internal/render"
)

// NewFilterCmd creates the filter command.
func NewFilterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Filter an existing analysis without calling the backend",
		Long: `Filter loads an analysis from an export file or the history database,
applies the report filters and prints or exports the result.

JSON exports and HTML exports written by cannibalscan can both be loaded:
HTML exports embed the full analysis they were filtered from.

Examples:
  # Keep groups about shoes in a stored analysis
  cannibalscan filter --id 3 --include chaussure

  # Re-filter an HTML export with regular expressions
  cannibalscan filter --file rapport.html --regex --exclude '^marque\b'

  # Latest analysis of a site, sorted by clicks, as Markdown
  cannibalscan filter --latest --site https://www.example.com/ --sort clicks_desc -m`,
		Args: cobra.NoArgs,
		RunE: runFilterCmd,
	}

	addSourceFlags(cmd)
	addFilterFlags(cmd)
	addOutputFlags(cmd)
	return cmd
}

func runFilterCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	src, err := getSourceFlags(cmd)
	if err != nil {
		return err
	}
	if src.site != "" {
		cfg.Criteria = cfg.SiteCriteria(src.site)
	}
	if err := applyFilterFlags(cmd, cfg); err != nil {
		return err
	}
	if err := applyOutputFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)
	ctx, cancel := signalContext(logger)
	defer cancel()

	var db *database.HistoryDB
	if src.needsDB() {
		if db, err = openHistory(cfg); err != nil {
			return err
		}
		defer db.Close()
	}

	source, err := src.step(ctx, db)
	if err != nil {
		return err
	}

	p := pipeline.New(pipeline.WithLogger(logger))
	p.AddSteps(
		source,
		pipeline.NewFilterStep(cfg.Criteria,
			pipeline.WithFilterRenderOptions(render.Options{ExactSimilarity: cfg.ExactSimilarity}),
		),
		pipeline.NewExportStep(cfg.ExportDir, cfg.Exports,
			pipeline.WithStylesheetURLs(stylesheetURLs(cfg)),
			pipeline.WithExportLogger(logger),
		),
	)

	run := pipeline.NewRun(src.site)
	if err := p.Execute(ctx, run); err != nil {
		return err
	}

	if err := outputReport(cfg, cmd.OutOrStdout(), run.Document); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	for _, path := range run.Exports {
		fmt.Fprintf(cmd.OutOrStdout(), "Export: %s\n", path)
	}
	return nil
}
