package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nao1215/cannibalscan/internal/filter"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".cannibalscan"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// LoadConfigFile loads a YAML configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
// Callers should handle this error appropriately based on whether
// the config file path was explicitly specified by the user.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}

	// Initialize Sites map if nil
	if cf.Sites == nil {
		cf.Sites = make(map[string]SiteConfig)
	}

	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .cannibalscan in the current directory
// 3. Look for .cannibalscan in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	// If explicit path is provided, use it
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	// Check current directory
	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	// Check home directory
	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}

// ApplyFile copies every value set in the configuration file over the
// current configuration. CLI flags are applied afterwards so they win.
func (c *Config) ApplyFile(cf *File) error {
	c.SiteConfigs = cf
	if cf == nil {
		return nil
	}

	if cf.Backend.URL != "" {
		c.BaseURL = cf.Backend.URL
	}
	if cf.Backend.Timeout != "" {
		timeout, err := time.ParseDuration(cf.Backend.Timeout)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidTimeout, err)
		}
		c.Timeout = timeout
	}

	c.Analysis = mergeSiteConfig(c.Analysis, cf.Defaults)
	c.applyFilters(cf.Filters)

	if cf.Export.Dir != "" {
		c.ExportDir = cf.Export.Dir
	}
	if len(cf.Export.Formats) > 0 {
		c.Exports = cf.Export.Formats
	}
	if len(cf.Export.Stylesheets) > 0 {
		c.StylesheetURLs = cf.Export.Stylesheets
	}
	if cf.Export.Offline {
		c.Offline = true
	}
	return nil
}

func (c *Config) applyFilters(fc FilterConfig) {
	if fc.Include != "" {
		c.Criteria.Include = fc.Include
	}
	if fc.Exclude != "" {
		c.Criteria.Exclude = fc.Exclude
	}
	if fc.UseRegex {
		c.Criteria.UseRegex = true
	}
	if fc.MinSimilarity != nil {
		c.Criteria = c.Criteria.WithMinSimilarity(*fc.MinSimilarity)
	}
	if fc.MinClicks != 0 {
		c.Criteria.MinClicks = fc.MinClicks
	}
	if fc.MinImpressions != 0 {
		c.Criteria.MinImpressions = fc.MinImpressions
	}
	if fc.MinURLs != 0 {
		c.Criteria.MinURLs = fc.MinURLs
	}
	if fc.SortBy != "" {
		c.Criteria.SortBy = filter.SortKey(fc.SortBy)
	}
}
