package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/cannibalscan/internal/config"
	"github.com/nao1215/cannibalscan/internal/database"
	"github.com/nao1215/cannibalscan/internal/model"
	"github.com/nao1215/cannibalscan/internal/pipeline"
	"github.com/nao1215/cannibalscan/internal/render"
	"github.com/nao1215/cannibalscan/internal/report"
	"github.com/nao1215/cannibalscan/internal/server"
	"github.com/nao1215/cannibalscan/internal/session"
)

// stylesheetTimeout bounds fetching the viewer stylesheets at startup.
const stylesheetTimeout = 30 * time.Second

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Browse and filter an analysis in a local web viewer",
		Long: `Serve opens an analysis in a local web page with the report filters,
export downloads and reload/reset actions.

The analysis comes from an export file, the history database, or a live
Search Console analysis (--analyze). In live mode "reload" runs the
analysis again; otherwise it restores the loaded analysis.

Examples:
  cannibalscan serve --latest
  cannibalscan serve --file rapport.html --listen 127.0.0.1:9000
  cannibalscan serve --analyze https://www.example.com/`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	addSourceFlags(cmd)
	cmd.Flags().String("analyze", "", "Search Console property analysed live (reload re-runs the analysis)")
	cmd.Flags().StringP("listen", "l", config.DefaultListenAddress, "Address the viewer listens on")
	cmd.Flags().Bool("offline", false, "Do not fetch remote stylesheets")
	cmd.Flags().Bool("exact", false, "Show similarities with four decimals instead of percentages")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if cfg.ListenAddress, err = flags.GetString("listen"); err != nil {
		return err
	}
	if flags.Changed("offline") {
		if cfg.Offline, err = flags.GetBool("offline"); err != nil {
			return err
		}
	}
	if cfg.ExactSimilarity, err = flags.GetBool("exact"); err != nil {
		return err
	}
	liveSite, err := flags.GetString("analyze")
	if err != nil {
		return err
	}

	var src analysisSource
	if liveSite == "" {
		if src, err = getSourceFlags(cmd); err != nil {
			return err
		}
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)
	ctx, cancel := signalContext(logger)
	defer cancel()

	var db *database.HistoryDB
	if liveSite != "" || src.needsDB() {
		if db, err = openHistory(cfg); err != nil {
			return err
		}
		defer db.Close()
	}

	var fetch server.Fetcher
	var source pipeline.Step
	site := src.site
	if liveSite != "" {
		site = liveSite
		fetch = liveFetcher(cfg, logger, db, liveSite)
		source = fetchStep{fetch: fetch}
	} else if source, err = src.step(ctx, db); err != nil {
		return err
	}

	p := pipeline.New(pipeline.WithLogger(logger))
	p.AddStep(source)
	run := pipeline.NewRun(site)
	if err := p.Execute(ctx, run); err != nil {
		return err
	}

	sess := session.New(
		session.WithRenderOptions(render.Options{ExactSimilarity: cfg.ExactSimilarity}),
		session.WithCriteria(cfg.SiteCriteria(site)),
	)
	if err := sess.Load(run.Analysis); err != nil {
		return err
	}

	srv := server.New(sess,
		server.WithLogger(logger),
		server.WithStylesheets(viewerStylesheets(ctx, cfg, logger)),
		server.WithFetcher(fetch),
	)

	fmt.Fprintf(cmd.OutOrStdout(), "Viewer running at http://%s (Ctrl+C to stop)\n", cfg.ListenAddress)
	return srv.ListenAndServe(ctx, cfg.ListenAddress)
}

// liveFetcher runs a Search Console analysis of site and stores each result.
func liveFetcher(cfg *config.Config, logger *slog.Logger, db *database.HistoryDB, site string) server.Fetcher {
	c := newClient(cfg, logger)
	return func(ctx context.Context) (*model.AnalysisReport, error) {
		r, err := gscRequest(cfg, analyzeOptions{}, site, time.Now())
		if err != nil {
			return nil, err
		}
		analysis, err := c.AnalyzeSearchConsole(ctx, r)
		if err != nil {
			return nil, err
		}
		if db != nil {
			if _, err := db.SaveAnalysis(ctx, database.SourceSearchConsole, site, time.Now(), analysis); err != nil {
				logger.Warn("failed to store analysis", "site", site, "error", err)
			}
		}
		return analysis, nil
	}
}

// fetchStep adapts a Fetcher to a pipeline step.
type fetchStep struct {
	fetch server.Fetcher
}

func (s fetchStep) Name() string {
	return "fetch"
}

func (s fetchStep) Do(ctx context.Context, run *pipeline.Run) error {
	analysis, err := s.fetch(ctx)
	if err != nil {
		return err
	}
	run.Analysis = analysis
	run.Source = database.SourceSearchConsole
	return nil
}

// viewerStylesheets fetches the remote stylesheets once for every page.
// The viewer falls back to its embedded style when they are unavailable.
func viewerStylesheets(ctx context.Context, cfg *config.Config, logger *slog.Logger) []string {
	urls := stylesheetURLs(cfg)
	if len(urls) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, stylesheetTimeout)
	defer cancel()

	sheets, err := report.FetchStylesheets(ctx, &http.Client{Timeout: stylesheetTimeout}, urls)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Warn("stylesheets unavailable, using the embedded style", "error", err)
		}
		return nil
	}
	return sheets
}
