package pipeline

import (
	"time"

	"github.com/nao1215/cannibalscan/internal/model"
	"github.com/nao1215/cannibalscan/internal/report"
)

// Run accumulates the results of one pipeline execution.
type Run struct {
	// Site is the Search Console property, or the input file for CSV
	// uploads and imports.
	Site string

	// Source tells where the analysis came from (see database.Source*).
	Source string

	// StartedAt is when the run was created.
	StartedAt time.Time

	// Analysis is the analysis as fetched or imported.
	Analysis *model.AnalysisReport

	// Generated is the backend's report summary, when requested.
	Generated *model.GeneratedReport

	// Document is the filtered report, ready for the writers.
	Document *report.Document

	// AnalysisID is the history database ID, 0 when not stored.
	AnalysisID int64

	// Exports are the paths of the export files written.
	Exports []string

	// PerformedSteps lists the steps that ran, in order.
	PerformedSteps []string

	// Error is the error of the step that stopped the run.
	Error error

	// TimedOut is set when the context ended before every step ran.
	TimedOut bool
}

// NewRun creates an empty run for site.
func NewRun(site string) *Run {
	return &Run{
		Site:           site,
		StartedAt:      time.Now(),
		Exports:        make([]string, 0),
		PerformedSteps: make([]string, 0),
	}
}

// Failed reports whether a step failed.
func (r *Run) Failed() bool {
	return r.Error != nil
}
