package config

import (
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/cannibalscan/internal/client"
	"github.com/nao1215/cannibalscan/internal/filter"
	"github.com/nao1215/cannibalscan/internal/model"
)

// Default configuration values.
const (
	// DefaultBaseURL is the address the analysis backend listens on when
	// started locally.
	DefaultBaseURL = client.DefaultBaseURL

	// DefaultTimeout bounds a single backend request. Analyses that scrape
	// every ranking page routinely take several minutes.
	DefaultTimeout = client.DefaultTimeout

	// DefaultBatchSize is the number of Search Console properties analysed
	// concurrently. The backend is single-process, so keep it small.
	DefaultBatchSize = 2

	// DefaultMaxRows is the Search Console row limit of one analysis.
	DefaultMaxRows = client.DefaultMaxRows

	// DefaultChunkSize is the number of days fetched per Search Console request.
	DefaultChunkSize = client.DefaultChunkSize

	// DefaultDateRangeDays is the length of the analysed period ending today.
	DefaultDateRangeDays = 30

	// DefaultListenAddress is where the local viewer listens.
	DefaultListenAddress = "127.0.0.1:8080"

	// DefaultUserAgent identifies cannibalscan in backend requests.
	DefaultUserAgent = "cannibalscan/1.0 (+https://github.com/nao1215/cannibalscan)"

	// AppName is the application name used for XDG directory paths.
	AppName = "cannibalscan"
)

// Export formats written next to the terminal report.
const (
	ExportJSON     = "json"
	ExportHTML     = "html"
	ExportMarkdown = "md"
	ExportDOCX     = "docx"
)

// ExportFormats lists the supported export formats.
var ExportFormats = []string{ExportJSON, ExportHTML, ExportMarkdown, ExportDOCX}

// DefaultStylesheetURLs are inlined into HTML exports unless running offline.
var DefaultStylesheetURLs = []string{
	"https://cdn.jsdelivr.net/npm/bootstrap@5.3.0-alpha1/dist/css/bootstrap.min.css",
	"https://cdn.jsdelivr.net/npm/bootstrap-icons@1.10.3/font/bootstrap-icons.css",
}

// Config holds all configuration options for cannibalscan.
// It is populated from the configuration file and CLI flags and passed
// through the application rather than kept in global state.
type Config struct {
	// BaseURL is the root URL of the analysis backend.
	BaseURL string

	// Timeout bounds each backend request.
	Timeout time.Duration

	// UserAgent is sent with backend requests.
	UserAgent string

	// Verbose enables detailed log output using slog.LevelDebug.
	Verbose bool

	// BatchSize is the number of sites analysed concurrently.
	BatchSize int

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .cannibalscan in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds site-specific settings loaded from the config file.
	SiteConfigs *File

	// Analysis holds the parameters sent to the backend.
	Analysis SiteConfig

	// DateRangeDays is the length of the Search Console period ending today.
	DateRangeDays int

	// Criteria are the filters applied to every fetched analysis. Unless
	// MinSimilaritySet, the minimum similarity is the threshold of the
	// analysis itself.
	// MinSimilarity means the threshold of the analysis itself.
	Criteria filter.Criteria

	// ExactSimilarity shows similarities with four decimals instead of percentages.
	ExactSimilarity bool

	// JSONReport prints the JSON export instead of the text report.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport prints a Markdown report instead of the text report.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the printed report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// ExportDir is where export files are written.
	ExportDir string

	// Exports lists the export formats to write (json, html, md, docx).
	Exports []string

	// StylesheetURLs are fetched and inlined into HTML exports.
	StylesheetURLs []string

	// Offline skips fetching remote stylesheets.
	Offline bool

	// DBDir is the directory of the SQLite history database.
	DBDir string

	// SaveToDB stores every fetched analysis in the history database.
	SaveToDB bool

	// ListenAddress is where the local viewer listens.
	ListenAddress string

	// Sites are the Search Console properties to analyse.
	Sites []string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		BaseURL:   DefaultBaseURL,
		Timeout:   DefaultTimeout,
		UserAgent: DefaultUserAgent,
		BatchSize: DefaultBatchSize,
		Analysis: SiteConfig{
			SimilarityThreshold: model.DefaultSimilarityThreshold,
			MaxRows:             DefaultMaxRows,
			ChunkSize:           DefaultChunkSize,
		},
		DateRangeDays: DefaultDateRangeDays,
		Criteria: filter.Criteria{
			MinClicks:      filter.DefaultMinClicks,
			MinImpressions: filter.DefaultMinImpressions,
			MinURLs:        filter.DefaultMinURLs,
			SortBy:         filter.DefaultSortBy,
		},
		ExportDir:      ".",
		StylesheetURLs: slices.Clone(DefaultStylesheetURLs),
		DBDir:          XDGDataDir(),
		SaveToDB:       true,
		ListenAddress:  DefaultListenAddress,
	}
}

// XDGDataDir returns the XDG data directory for cannibalscan.
// On Linux: ~/.local/share/cannibalscan
// On macOS: ~/Library/Application Support/cannibalscan
// On Windows: %LOCALAPPDATA%\cannibalscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for cannibalscan.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// SiteAnalysis returns the analysis parameters for a Search Console
// property: the global parameters overridden by the site's entry in the
// config file.
func (c *Config) SiteAnalysis(siteURL string) SiteConfig {
	if c.SiteConfigs == nil {
		return c.Analysis
	}
	site, ok := c.SiteConfigs.Sites[siteURL]
	if !ok {
		return c.Analysis
	}
	return mergeSiteConfig(c.Analysis, site)
}

// Validate checks if the configuration is valid.
// It returns the first problem found.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrNoBaseURL
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if t := c.Analysis.SimilarityThreshold; t < 0 || t > 1 {
		return ErrInvalidThreshold
	}
	if s := c.Criteria.MinSimilarity; s < 0 || s > 1 {
		return ErrInvalidThreshold
	}

	if c.Criteria.MinClicks < 0 || c.Criteria.MinImpressions < 0 || c.Criteria.MinURLs < 0 ||
		c.Analysis.MinClicks < 0 || c.Analysis.MinImpressions < 0 {
		return ErrNegativeMinimum
	}

	if c.Criteria.SortBy != "" && !c.Criteria.SortBy.Known() {
		return ErrUnknownSortKey
	}

	for _, format := range c.Exports {
		if !slices.Contains(ExportFormats, format) {
			return ErrUnknownExportFormat
		}
	}

	if c.DateRangeDays <= 0 {
		return ErrInvalidDateRange
	}

	return nil
}

// SiteCriteria returns the report filters for a site: the global criteria
// with the site's excluded keywords appended.
func (c *Config) SiteCriteria(siteURL string) filter.Criteria {
	criteria := c.Criteria
	exclude := c.SiteAnalysis(siteURL).Exclude
	if strings.TrimSpace(exclude) == "" {
		return criteria
	}
	if strings.TrimSpace(criteria.Exclude) == "" {
		criteria.Exclude = exclude
	} else {
		criteria.Exclude = criteria.Exclude + "," + exclude
	}
	return criteria
}
