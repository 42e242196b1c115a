// Package pipeline runs an analysis through its stages in sequence.
//
// A Run is passed through every Step of a Pipeline: acquiring the analysis
// (Search Console, CSV upload, export import or history), asking the backend
// for its report summary, storing the analysis, filtering it into a report
// document and writing the export files. Each stage is a Step that reads
// and fills the Run.
//
// BatchProcessor analyses several Search Console properties concurrently,
// one pipeline per site, with the number of simultaneous backend calls
// bounded by errgroup.
package pipeline
