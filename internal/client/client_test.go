package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/cannibalscan/internal/model"
)

const analysisResponse = `{
	"groups": [{
		"keyword": "chaussures",
		"urls": [{"url": "a", "clicks": 100}, {"url": "b", "clicks": 5}],
		"pairs": [{"url1": "a", "url2": "b", "similarity": 0.95, "risk": "high"}],
		"url_count": 2
	}],
	"stats": {"total_keywords": 40, "cannibalization_count": 1},
	"similarity_threshold": 0.8,
	"analysis_type": "csv"
}`

// newTestServer starts a backend stub and returns a client pointing at it.
func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(server.URL+"/", WithHTTPClient(server.Client()))
}

// TestAuthURL tests fetching the OAuth consent URL.
func TestAuthURL(t *testing.T) {
	t.Parallel()

	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/auth/url" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_, _ = io.WriteString(w, `{"auth_url":"https://accounts.google.com/o/oauth2/auth?x=1"}`)
	})

	got, err := c.AuthURL(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "https://accounts.google.com/o/oauth2/auth?x=1" {
		t.Errorf("unexpected auth URL %q", got)
	}
}

// TestSites tests listing and searching Search Console properties.
func TestSites(t *testing.T) {
	t.Parallel()

	c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"sites":[
			{"siteUrl":"https://www.Example.com/","permissionLevel":"siteOwner"},
			{"siteUrl":"sc-domain:boutique.fr","permissionLevel":"siteFullUser"}]}`)
	})

	sites, err := c.Sites(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sites) != 2 || sites[1].PermissionLevel != "siteFullUser" {
		t.Fatalf("unexpected sites %+v", sites)
	}

	t.Run("filter ignores case", func(t *testing.T) {
		t.Parallel()

		matched := FilterSites(sites, " EXAMPLE ")
		if len(matched) != 1 || matched[0].SiteURL != "https://www.Example.com/" {
			t.Errorf("unexpected match %+v", matched)
		}
	})

	t.Run("empty term keeps all", func(t *testing.T) {
		t.Parallel()

		if got := FilterSites(sites, ""); len(got) != 2 {
			t.Errorf("expected 2 sites, got %d", len(got))
		}
	})

	t.Run("no match", func(t *testing.T) {
		t.Parallel()

		if got := FilterSites(sites, "absent"); len(got) != 0 {
			t.Errorf("expected no sites, got %+v", got)
		}
	})
}

// TestAnalyzeCSV tests the multipart upload.
func TestAnalyzeCSV(t *testing.T) {
	t.Parallel()

	t.Run("sends files and fields", func(t *testing.T) {
		t.Parallel()

		c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/analyze/csv" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("failed to parse form: %v", err)
				return
			}
			file, header, err := r.FormFile("file")
			if err != nil {
				t.Errorf("missing file: %v", err)
				return
			}
			defer file.Close()
			data, _ := io.ReadAll(file)
			if header.Filename != "export.csv" || string(data) != "query;page;clicks\n" {
				t.Errorf("unexpected file %s: %q", header.Filename, data)
			}
			if _, _, err := r.FormFile("content_file"); err != nil {
				t.Errorf("missing content file: %v", err)
			}

			want := map[string]string{
				"similarity_threshold": "0.75",
				"scrape_pages":         "true",
				"primary_keyword_only": "true",
				"min_clicks":           "10",
				"min_impressions":      "0",
			}
			for field, value := range want {
				if got := r.FormValue(field); got != value {
					t.Errorf("field %s: expected %q, got %q", field, value, got)
				}
			}
			_, _ = io.WriteString(w, analysisResponse)
		})

		analysis, err := c.AnalyzeCSV(context.Background(), CSVRequest{
			FileName:            "export.csv",
			File:                strings.NewReader("query;page;clicks\n"),
			ContentFileName:     "content.csv",
			ContentFile:         strings.NewReader("url;content\n"),
			SimilarityThreshold: 0.75,
			PrimaryKeywordOnly:  true,
			MinClicks:           10,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(analysis.Groups) != 1 || analysis.Stats.CannibalizationCount != 1 {
			t.Errorf("unexpected analysis %+v", analysis)
		}
		if analysis.Groups[0].Pairs[0].Risk != "high" {
			t.Errorf("expected risk to be decoded")
		}
	})

	t.Run("requires a file", func(t *testing.T) {
		t.Parallel()

		_, err := New("").AnalyzeCSV(context.Background(), CSVRequest{})
		if !errors.Is(err, ErrMissingFile) {
			t.Errorf("expected ErrMissingFile, got %v", err)
		}
	})

	t.Run("reports backend error", func(t *testing.T) {
		t.Parallel()

		c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":"Colonnes manquantes dans le fichier CSV: clicks"}`)
		})

		_, err := c.AnalyzeCSV(context.Background(), CSVRequest{File: strings.NewReader("x")})
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected APIError, got %v", err)
		}
		if apiErr.StatusCode != http.StatusBadRequest || apiErr.Message != "Colonnes manquantes dans le fichier CSV: clicks" {
			t.Errorf("unexpected error %+v", apiErr)
		}
		if errors.Is(err, ErrForbidden) {
			t.Error("400 must not match ErrForbidden")
		}
	})
}

// TestAnalyzeSearchConsole tests the JSON analysis request.
func TestAnalyzeSearchConsole(t *testing.T) {
	t.Parallel()

	t.Run("sends defaults", func(t *testing.T) {
		t.Parallel()

		c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Content-Type") != "application/json" {
				t.Errorf("unexpected content type %q", r.Header.Get("Content-Type"))
			}
			var got GSCRequest
			if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
				t.Errorf("failed to decode body: %v", err)
			}
			if got.SiteURL != "sc-domain:boutique.fr" || got.MaxRows != DefaultMaxRows ||
				got.ChunkSize != DefaultChunkSize || !got.UseDateChunks || got.SimilarityThreshold != 0.8 {
				t.Errorf("unexpected request %+v", got)
			}
			if got.StartDate != "2024-01-01" || got.EndDate != "2024-01-31" {
				t.Errorf("unexpected dates %s %s", got.StartDate, got.EndDate)
			}
			_, _ = io.WriteString(w, analysisResponse)
		})

		now := time.Date(2024, time.January, 31, 12, 0, 0, 0, time.UTC)
		analysis, err := c.AnalyzeSearchConsole(context.Background(), NewGSCRequest("sc-domain:boutique.fr", now))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if analysis.AnalysisType != "csv" {
			t.Errorf("unexpected analysis type %q", analysis.AnalysisType)
		}
	})

	t.Run("forbidden", func(t *testing.T) {
		t.Parallel()

		c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, `{"message":"User does not have sufficient permission"}`)
		})

		_, err := c.AnalyzeSearchConsole(context.Background(), GSCRequest{SiteURL: "https://example.com/"})
		if !errors.Is(err, ErrForbidden) {
			t.Errorf("expected ErrForbidden, got %v", err)
		}
		if !strings.Contains(err.Error(), "sufficient permission") {
			t.Errorf("expected backend message in %q", err.Error())
		}
	})

	t.Run("requires a site", func(t *testing.T) {
		t.Parallel()

		_, err := New("").AnalyzeSearchConsole(context.Background(), GSCRequest{SiteURL: "  "})
		if !errors.Is(err, ErrMissingSite) {
			t.Errorf("expected ErrMissingSite, got %v", err)
		}
	})
}

// TestGenerateReport tests posting an analysis back to the backend.
func TestGenerateReport(t *testing.T) {
	t.Parallel()

	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var got model.AnalysisReport
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		if len(got.Groups) != 1 {
			t.Errorf("expected analysis in body, got %+v", got)
		}
		_, _ = io.WriteString(w, `{"generated_at":"2024-01-31T12:00:00","cannibalized_keywords":1,"groups":[]}`)
	})

	generated, err := c.GenerateReport(context.Background(), &model.AnalysisReport{
		Groups: []model.KeywordGroup{{Keyword: "k"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if generated.CannibalizedKeywords != 1 || generated.GeneratedAt == "" {
		t.Errorf("unexpected report %+v", generated)
	}
}

// TestAPIErrorMessages tests decoding of error bodies.
func TestAPIErrorMessages(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		body     string
		expected string
	}{
		{"message field", `{"message":"boom"}`, "boom"},
		{"error field", `{"error":"bad file"}`, "bad file"},
		{"detail field", `{"detail":"Non authentifié"}`, "Non authentifié"},
		{"validation details", `{"detail":[{"loc":["body","site_url"],"msg":"field required","type":"value_error.missing"},{"msg":"invalid date"}]}`, "field required; invalid date"},
		{"detail wins over message", `{"detail":"quota exceeded","message":"ignored"}`, "quota exceeded"},
		{"html page", "<html><body><h1>502 Bad Gateway</h1>\n<p>nginx</p></body></html>", "502 Bad Gateway nginx"},
		{"empty body", "", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				_, _ = io.WriteString(w, tc.body)
			})

			_, err := c.Sites(context.Background())
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.Message != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, apiErr.Message)
			}
		})
	}
}
