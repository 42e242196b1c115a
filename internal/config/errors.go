package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() so callers can use
// errors.Is() while users still get a readable message.
var (
	// ErrNoBaseURL is returned when the backend URL is empty.
	ErrNoBaseURL = errors.New("no backend URL: set --backend or backend.url in the config file")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidThreshold is returned when a similarity is outside [0, 1].
	ErrInvalidThreshold = errors.New("invalid similarity: must be between 0 and 1")

	// ErrNegativeMinimum is returned when a click, impression or URL minimum is negative.
	ErrNegativeMinimum = errors.New("invalid minimum: must be non-negative")

	// ErrUnknownSortKey is returned for an unsupported --sort value.
	ErrUnknownSortKey = errors.New("unknown sort key: use similarity_desc, similarity_asc, urls_desc, urls_asc, clicks_desc or clicks_asc")

	// ErrUnknownExportFormat is returned for an unsupported --export value.
	ErrUnknownExportFormat = errors.New("unknown export format: use json, html, md or docx")

	// ErrInvalidDateRange is returned when the Search Console period is not positive.
	ErrInvalidDateRange = errors.New("invalid date range: must be at least one day")
)
