package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of sites analysed at once when
// WithConcurrency is not given.
const DefaultConcurrency = 2

// BatchProcessor analyses several sites concurrently.
type BatchProcessor struct {
	// pipelineFactory creates a fresh pipeline for each site, so that
	// per-site settings can be applied and no state leaks between runs.
	pipelineFactory func(site string) *Pipeline

	// concurrency is the maximum number of concurrent runs.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent runs.
// Non-positive values keep the default.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(pipelineFactory func(site string) *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch runs one pipeline per site, at most concurrency at a time.
//
// Returns every run in the order of sites, including failed and cancelled
// ones; such runs carry their error. The error return is only set when the batch was
// cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, sites []string) ([]*Run, error) {
	runs := make([]*Run, len(sites))
	err := bp.ProcessBatchWithCallback(ctx, sites, func(run *Run, index int) {
		runs[index] = run
	})
	return runs, err
}

// ProcessBatchWithCallback runs one pipeline per site and calls callback
// with each finished run and the index of its site. The callback is called
// from the goroutine that finished the run; distinct indexes may be
// reported concurrently.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	sites []string,
	callback func(run *Run, index int),
) error {
	bp.logger.Info("starting batch processing",
		"total_sites", len(sites),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, site := range sites {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				run := NewRun(site)
				run.TimedOut = true
				run.Error = err
				callback(run, i)
				return err
			}

			bp.logger.Info("analysing site",
				"site", site,
				"index", i+1,
				"total", len(sites),
			)

			run := NewRun(site)
			if err := bp.pipelineFactory(site).Execute(ctx, run); err != nil {
				// The error is kept in the run; other sites go on.
				bp.logger.Warn("analysis failed",
					"site", site,
					"error", err,
				)
			} else {
				bp.logger.Info("analysis completed",
					"site", site,
				)
			}

			callback(run, i)
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Info("batch processing complete",
		"total_sites", len(sites),
		"elapsed", time.Since(startTime),
	)

	return err
}
