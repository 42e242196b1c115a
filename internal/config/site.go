package config

// SiteConfig holds the analysis parameters of one Search Console property.
// Zero values mean "not set" and fall back to the defaults.
type SiteConfig struct {
	// SimilarityThreshold is the lowest similarity the backend reports.
	SimilarityThreshold float64 `yaml:"similarityThreshold,omitempty"`

	// ScrapePages makes the backend fetch page content to compare.
	ScrapePages bool `yaml:"scrapePages,omitempty"`

	// PrimaryKeywordOnly limits the analysis to each page's main query.
	PrimaryKeywordOnly bool `yaml:"primaryKeywordOnly,omitempty"`

	// MinClicks and MinImpressions drop rows before the backend groups them.
	MinClicks      int `yaml:"minClicks,omitempty"`
	MinImpressions int `yaml:"minImpressions,omitempty"`

	// MaxRows caps the number of Search Console rows fetched.
	MaxRows int `yaml:"maxRows,omitempty"`

	// ChunkSize is the number of days per Search Console request.
	ChunkSize int `yaml:"chunkSize,omitempty"`

	// Exclude is a comma separated list of keywords dropped from reports of
	// this site, typically brand terms.
	Exclude string `yaml:"exclude,omitempty"`
}

// BackendConfig locates the analysis backend.
type BackendConfig struct {
	URL     string `yaml:"url,omitempty"`
	Timeout string `yaml:"timeout,omitempty"`
}

// ExportConfig controls export files.
type ExportConfig struct {
	Dir         string   `yaml:"dir,omitempty"`
	Formats     []string `yaml:"formats,omitempty"`
	Stylesheets []string `yaml:"stylesheets,omitempty"`
	Offline     bool     `yaml:"offline,omitempty"`
}

// File represents the structure of the .cannibalscan configuration file.
type File struct {
	// Backend locates the analysis backend.
	Backend BackendConfig `yaml:"backend,omitempty"`

	// Filters are the default report filters.
	Filters FilterConfig `yaml:"filters,omitempty"`

	// Export controls export files.
	Export ExportConfig `yaml:"export,omitempty"`

	// Sites maps Search Console property URLs to their settings.
	// Keys are written the way Search Console lists them, e.g.
	// "https://www.example.com/" or "sc-domain:example.com".
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults apply to all sites unless overridden in Sites.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// FilterConfig are the report filters set in the config file.
type FilterConfig struct {
	Include        string   `yaml:"include,omitempty"`
	Exclude        string   `yaml:"exclude,omitempty"`
	UseRegex       bool     `yaml:"useRegex,omitempty"`
	MinSimilarity  *float64 `yaml:"minSimilarity,omitempty"`
	MinClicks      int      `yaml:"minClicks,omitempty"`
	MinImpressions int      `yaml:"minImpressions,omitempty"`
	MinURLs        int      `yaml:"minUrls,omitempty"`
	SortBy         string   `yaml:"sortBy,omitempty"`
}

// GetSiteConfig returns the configuration for a specific site.
// It merges the site-specific configuration with defaults.
func (cf *File) GetSiteConfig(siteURL string) SiteConfig {
	if siteConfig, ok := cf.Sites[siteURL]; ok {
		return mergeSiteConfig(cf.Defaults, siteConfig)
	}
	return cf.Defaults
}

// mergeSiteConfig overrides base with every field set in override.
func mergeSiteConfig(base, override SiteConfig) SiteConfig {
	result := base
	if override.SimilarityThreshold != 0 {
		result.SimilarityThreshold = override.SimilarityThreshold
	}
	if override.ScrapePages {
		result.ScrapePages = true
	}
	if override.PrimaryKeywordOnly {
		result.PrimaryKeywordOnly = true
	}
	if override.MinClicks != 0 {
		result.MinClicks = override.MinClicks
	}
	if override.MinImpressions != 0 {
		result.MinImpressions = override.MinImpressions
	}
	if override.MaxRows != 0 {
		result.MaxRows = override.MaxRows
	}
	if override.ChunkSize != 0 {
		result.ChunkSize = override.ChunkSize
	}
	if override.Exclude != "" {
		result.Exclude = override.Exclude
	}
	return result
}
