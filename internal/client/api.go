package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/nao1215/cannibalscan/internal/model"
)

// Search Console request defaults.
const (
	DefaultMaxRows   = 100000
	DefaultChunkSize = 7
	DefaultDateRange = 30 * 24 * time.Hour

	// DateLayout is the date format the backend expects.
	DateLayout = "2006-01-02"
)

// AuthURL returns the Google OAuth consent URL to open in a browser.
func (c *Client) AuthURL(ctx context.Context) (string, error) {
	var resp struct {
		AuthURL string `json:"auth_url"`
	}
	if err := c.getJSON(ctx, "/api/auth/url", &resp); err != nil {
		return "", err
	}
	return resp.AuthURL, nil
}

// Sites lists the Search Console properties of the authorized account.
func (c *Client) Sites(ctx context.Context) ([]model.Site, error) {
	var resp struct {
		Sites []model.Site `json:"sites"`
	}
	if err := c.getJSON(ctx, "/api/sites", &resp); err != nil {
		return nil, err
	}
	return resp.Sites, nil
}

// FilterSites returns the sites whose URL contains term, ignoring case.
// An empty term returns every site.
func FilterSites(sites []model.Site, term string) []model.Site {
	term = strings.TrimSpace(term)
	if term == "" {
		return sites
	}
	fold := cases.Fold()
	needle := fold.String(term)

	var matched []model.Site
	for _, site := range sites {
		if strings.Contains(fold.String(site.SiteURL), needle) {
			matched = append(matched, site)
		}
	}
	return matched
}

// CSVRequest is a keyword analysis of exported Search Console data.
type CSVRequest struct {
	// FileName and File are the keyword export (query, page, clicks, ...).
	FileName string
	File     io.Reader

	// ContentFileName and ContentFile optionally provide page content
	// (url, content columns). Providing it implies ScrapePages.
	ContentFileName string
	ContentFile     io.Reader

	SimilarityThreshold float64
	ScrapePages         bool
	PrimaryKeywordOnly  bool
	MinClicks           int
	MinImpressions      int
}

// AnalyzeCSV uploads a keyword export for analysis.
func (c *Client) AnalyzeCSV(ctx context.Context, r CSVRequest) (*model.AnalysisReport, error) {
	if r.File == nil {
		return nil, ErrMissingFile
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := writeFormFile(mw, "file", r.FileName, r.File); err != nil {
		return nil, err
	}
	scrape := r.ScrapePages
	if r.ContentFile != nil {
		if err := writeFormFile(mw, "content_file", r.ContentFileName, r.ContentFile); err != nil {
			return nil, err
		}
		scrape = true
	}

	fields := []struct{ name, value string }{
		{"similarity_threshold", strconv.FormatFloat(thresholdOrDefault(r.SimilarityThreshold), 'f', -1, 64)},
		{"scrape_pages", strconv.FormatBool(scrape)},
		{"primary_keyword_only", strconv.FormatBool(r.PrimaryKeywordOnly)},
		{"min_clicks", strconv.Itoa(r.MinClicks)},
		{"min_impressions", strconv.Itoa(r.MinImpressions)},
	}
	for _, f := range fields {
		if err := mw.WriteField(f.name, f.value); err != nil {
			return nil, fmt.Errorf("failed to write form field %s: %w", f.name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/analyze/csv", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var analysis model.AnalysisReport
	if err := c.do(req, &analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}

func writeFormFile(mw *multipart.Writer, field, name string, r io.Reader) error {
	if name == "" {
		name = field + ".csv"
	}
	part, err := mw.CreateFormFile(field, name)
	if err != nil {
		return fmt.Errorf("failed to create form file %s: %w", field, err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("failed to copy %s: %w", name, err)
	}
	return nil
}

// GSCRequest is a keyword analysis pulled from the Search Console API.
type GSCRequest struct {
	SiteURL             string  `json:"site_url"`
	StartDate           string  `json:"start_date"`
	EndDate             string  `json:"end_date"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
	ScrapePages         bool    `json:"scrape_pages"`
	PrimaryKeywordOnly  bool    `json:"primary_keyword_only"`
	MaxRows             int     `json:"max_rows"`
	MinClicks           int     `json:"min_clicks"`
	MinImpressions      int     `json:"min_impressions"`
	UseDateChunks       bool    `json:"use_date_chunks"`
	ChunkSize           int     `json:"chunk_size"`
}

// NewGSCRequest returns a request for the last 30 days of siteURL with the
// backend defaults.
func NewGSCRequest(siteURL string, now time.Time) GSCRequest {
	return GSCRequest{
		SiteURL:             siteURL,
		StartDate:           now.Add(-DefaultDateRange).Format(DateLayout),
		EndDate:             now.Format(DateLayout),
		SimilarityThreshold: model.DefaultSimilarityThreshold,
		MaxRows:             DefaultMaxRows,
		UseDateChunks:       true,
		ChunkSize:           DefaultChunkSize,
	}
}

// AnalyzeSearchConsole runs an analysis on Search Console data.
func (c *Client) AnalyzeSearchConsole(ctx context.Context, r GSCRequest) (*model.AnalysisReport, error) {
	if strings.TrimSpace(r.SiteURL) == "" {
		return nil, ErrMissingSite
	}
	r.SimilarityThreshold = thresholdOrDefault(r.SimilarityThreshold)
	if r.MaxRows <= 0 {
		r.MaxRows = DefaultMaxRows
	}
	if r.ChunkSize <= 0 {
		r.ChunkSize = DefaultChunkSize
	}

	var analysis model.AnalysisReport
	if err := c.postJSON(ctx, "/api/analyze/search-console", r, &analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}

// GenerateReport asks the backend to build its report for an analysis.
func (c *Client) GenerateReport(ctx context.Context, analysis *model.AnalysisReport) (*model.GeneratedReport, error) {
	var generated model.GeneratedReport
	if err := c.postJSON(ctx, "/api/report", analysis, &generated); err != nil {
		return nil, err
	}
	return &generated, nil
}

func thresholdOrDefault(threshold float64) float64 {
	if threshold <= 0 {
		return model.DefaultSimilarityThreshold
	}
	return threshold
}
