package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/cannibalscan/internal/client"
	"github.com/nao1215/cannibalscan/internal/config"
	"github.com/nao1215/cannibalscan/internal/database"
	"github.com/nao1215/cannibalscan/internal/filter"
	applog "github.com/nao1215/cannibalscan/internal/log"
	"github.com/nao1215/cannibalscan/internal/report"
)

const defaultBackendHelp = config.DefaultBaseURL

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// flagChanged reports whether the flag name exists on cmd and was set.
// Global flags are missing when a subcommand runs on its own.
func flagChanged(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}

// loadConfig builds the configuration of a command: defaults, then the
// configuration file, then the global flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	var err error
	if flagChanged(cmd, "config") {
		if cfg.ConfigFilePath, err = cmd.Flags().GetString("config"); err != nil {
			return nil, err
		}
	}

	// An explicit config path must exist; the default locations are optional.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	switch {
	case configPath != "":
		cf, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		if err := cfg.ApplyFile(cf); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
		}
	case explicitConfigPath:
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	if flagChanged(cmd, "backend") {
		if cfg.BaseURL, err = cmd.Flags().GetString("backend"); err != nil {
			return nil, err
		}
	}
	if flagChanged(cmd, "data-dir") {
		if cfg.DBDir, err = cmd.Flags().GetString("data-dir"); err != nil {
			return nil, err
		}
	}
	if flagChanged(cmd, "timeout") {
		if cfg.Timeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// setupLogger creates the structured logger. Secrets of the OAuth flow are
// redacted before anything is written.
func setupLogger(verbose bool) *slog.Logger {
	return applog.NewSecureLogger(os.Stderr, verbose)
}

// newClient creates a backend client from cfg.
func newClient(cfg *config.Config, logger *slog.Logger) *client.Client {
	return client.New(cfg.BaseURL,
		client.WithTimeout(cfg.Timeout),
		client.WithUserAgent(cfg.UserAgent),
		client.WithLogger(logger),
	)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

// openHistory opens the history database in cfg.DBDir.
func openHistory(cfg *config.Config) (*database.HistoryDB, error) {
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	return db, nil
}

// addFilterFlags registers the report filter flags.
func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("include", "", "Keep keywords containing this text")
	cmd.Flags().String("exclude", "", "Drop keywords containing any of these comma separated terms")
	cmd.Flags().Bool("regex", false, "Treat --include and --exclude as regular expressions")
	cmd.Flags().Float64("min-similarity", 0,
		"Lowest similarity kept, between 0 and 1 (default: threshold of the analysis)")
	cmd.Flags().Int("min-clicks", filter.DefaultMinClicks, "Lowest clicks a URL needs to stay in its group")
	cmd.Flags().Int("min-impressions", filter.DefaultMinImpressions, "Lowest impressions a URL needs to stay in its group")
	cmd.Flags().Int("min-urls", filter.DefaultMinURLs, "Lowest number of URLs a group needs")
	cmd.Flags().String("sort", string(filter.DefaultSortBy),
		"Sort order: similarity_desc, similarity_asc, urls_desc, urls_asc, clicks_desc or clicks_asc")
	cmd.Flags().Bool("exact", false, "Show similarities with four decimals instead of percentages")
}

// applyFilterFlags overrides cfg.Criteria with the filter flags set on cmd.
func applyFilterFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	var err error

	if flags.Changed("include") {
		if cfg.Criteria.Include, err = flags.GetString("include"); err != nil {
			return err
		}
	}
	if flags.Changed("exclude") {
		if cfg.Criteria.Exclude, err = flags.GetString("exclude"); err != nil {
			return err
		}
	}
	if flags.Changed("regex") {
		if cfg.Criteria.UseRegex, err = flags.GetBool("regex"); err != nil {
			return err
		}
	}
	if flags.Changed("min-similarity") {
		similarity, err := flags.GetFloat64("min-similarity")
		if err != nil {
			return err
		}
		cfg.Criteria = cfg.Criteria.WithMinSimilarity(similarity)
	}
	if flags.Changed("min-clicks") {
		if cfg.Criteria.MinClicks, err = flags.GetInt("min-clicks"); err != nil {
			return err
		}
	}
	if flags.Changed("min-impressions") {
		if cfg.Criteria.MinImpressions, err = flags.GetInt("min-impressions"); err != nil {
			return err
		}
	}
	if flags.Changed("min-urls") {
		if cfg.Criteria.MinURLs, err = flags.GetInt("min-urls"); err != nil {
			return err
		}
	}
	if flags.Changed("sort") {
		sortBy, err := flags.GetString("sort")
		if err != nil {
			return err
		}
		cfg.Criteria.SortBy = filter.SortKey(sortBy)
	}
	if flags.Changed("exact") {
		if cfg.ExactSimilarity, err = flags.GetBool("exact"); err != nil {
			return err
		}
	}
	return nil
}

// addOutputFlags registers the report and export flags.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false,
		"Print the JSON export instead of the text report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Print a Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write the report to this file instead of stdout (creates directories if needed)")
	cmd.Flags().StringSliceP("export", "x", nil,
		"Export formats to write: json, html, md, docx (repeatable)")
	cmd.Flags().String("export-dir", "", "Directory of export files (default: current directory)")
	cmd.Flags().Bool("offline", false, "Do not fetch remote stylesheets for HTML exports")
}

// applyOutputFlags overrides the report and export settings of cfg.
func applyOutputFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	var err error

	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return err
	}
	if flags.Changed("export") {
		if cfg.Exports, err = flags.GetStringSlice("export"); err != nil {
			return err
		}
	}
	if flags.Changed("export-dir") {
		if cfg.ExportDir, err = flags.GetString("export-dir"); err != nil {
			return err
		}
	}
	if flags.Changed("offline") {
		if cfg.Offline, err = flags.GetBool("offline"); err != nil {
			return err
		}
	}
	return nil
}

// stylesheetURLs returns the remote stylesheets of HTML exports.
func stylesheetURLs(cfg *config.Config) []string {
	if cfg.Offline {
		return nil
	}
	return cfg.StylesheetURLs
}

// outputReport prints doc in the requested format, to cfg.ReportFile or stdout.
func outputReport(cfg *config.Config, stdout io.Writer, doc *report.Document) error {
	output := stdout
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewJSONWriter(output, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}
	_, err := writer.Write(doc)
	return err
}
