package main

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/cannibalscan/internal/client"
	"github.com/nao1215/cannibalscan/internal/config"
)

// TestNewAnalyzeCmd tests the analyze command tree.
func TestNewAnalyzeCmd(t *testing.T) {
	t.Parallel()

	cmd := NewAnalyzeCmd()
	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true

		for _, flag := range []string{"threshold", "no-save", "include", "min-urls", "export", "json"} {
			if sub.Flags().Lookup(flag) == nil {
				t.Errorf("%s: expected %s flag", sub.Name(), flag)
			}
		}
	}
	if !names["csv"] || !names["gsc"] {
		t.Errorf("expected csv and gsc subcommands, got %v", names)
	}
}

// TestAnalyzeCSV tests uploading a keyword export.
func TestAnalyzeCSV(t *testing.T) {
	t.Parallel()

	t.Run("prints, exports and stores the analysis", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.backend = newBackend(t).URL
		csvPath := filepath.Join(env.dir, "keywords.csv")
		writeFile(t, csvPath, "query,page,clicks\nshoes,https://www.example.com/a,100\n")
		exportDir := filepath.Join(env.dir, "exports")

		out, err := env.run(t, "analyze", "csv", csvPath, "-x", "json", "-x", "md", "--export-dir", exportDir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"shoes (2 URLs)", "boots (2 URLs)", "Export:"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, out)
			}
		}

		exports, err := filepath.Glob(filepath.Join(exportDir, "rapport-cannibalisation-*"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(exports) != 2 {
			t.Errorf("expected 2 export files, got %v", exports)
		}

		out, err = env.run(t, "history", "list")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "keywords.csv") || !strings.Contains(out, "csv") {
			t.Errorf("expected the upload in the history, got:\n%s", out)
		}
	})

	t.Run("no-save skips the history", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.backend = newBackend(t).URL
		csvPath := filepath.Join(env.dir, "keywords.csv")
		writeFile(t, csvPath, "query,page\n")

		if _, err := env.run(t, "analyze", "csv", csvPath, "--no-save"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out, err := env.run(t, "history", "list")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "No stored analysis found.") {
			t.Errorf("expected an empty history, got:\n%s", out)
		}
	})

	t.Run("filters apply to the report", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.backend = newBackend(t).URL
		csvPath := filepath.Join(env.dir, "keywords.csv")
		writeFile(t, csvPath, "query,page\n")

		out, err := env.run(t, "analyze", "csv", csvPath, "--min-similarity", "0.9", "--no-save")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "shoes (2 URLs)") || strings.Contains(out, "boots (2 URLs)") {
			t.Errorf("expected only shoes, got:\n%s", out)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.backend = newBackend(t).URL
		if _, err := env.run(t, "analyze", "csv", filepath.Join(env.dir, "missing.csv"), "--no-save"); err == nil {
			t.Error("expected an error for a missing file")
		}
	})

	t.Run("invalid export format", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		_, err := env.run(t, "analyze", "csv", "keywords.csv", "-x", "pdf")
		if !errors.Is(err, config.ErrUnknownExportFormat) {
			t.Errorf("expected ErrUnknownExportFormat, got %v", err)
		}
	})
}

// TestAnalyzeGSC tests Search Console analyses.
func TestAnalyzeGSC(t *testing.T) {
	t.Parallel()

	t.Run("single site", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.backend = newBackend(t).URL
		out, err := env.run(t, "analyze", "gsc", "--site", "https://www.example.com/", "--backend-report")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "shoes (2 URLs)") {
			t.Errorf("expected the report, got:\n%s", out)
		}

		out, err = env.run(t, "history", "list", "--site", "https://www.example.com/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "search-console") {
			t.Errorf("expected a Search Console analysis in the history, got:\n%s", out)
		}
	})

	t.Run("forbidden site is reported inline", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.backend = newBackend(t).URL
		out, err := env.run(t, "analyze", "gsc", "--site", "https://forbidden.example/", "--no-save")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(out, forbiddenMessage403) {
			t.Errorf("expected the permissions message, got:\n%s", out)
		}
	})

	t.Run("batch", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.backend = newBackend(t).URL
		exportDir := filepath.Join(env.dir, "exports")
		out, err := env.run(t, "analyze", "gsc",
			"--site", "https://a.example/", "--site", "https://b.example/",
			"-x", "json", "--export-dir", exportDir, "--no-save")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "Batch completed") {
			t.Errorf("expected a batch summary, got:\n%s", out)
		}

		for _, slug := range []string{"a-example", "b-example"} {
			matches, _ := filepath.Glob(filepath.Join(exportDir, "*"+slug+"*.json"))
			if len(matches) != 1 {
				t.Errorf("expected one export for %s, got %v", slug, matches)
			}
		}
	})

	t.Run("batch with a failing site", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.backend = newBackend(t).URL
		_, err := env.run(t, "analyze", "gsc",
			"--site", "https://a.example/", "--site", "https://broken.example/", "--no-save")
		if err == nil || !strings.Contains(err.Error(), "1 of 2 analyses failed") {
			t.Errorf("expected one failure, got %v", err)
		}
	})

	t.Run("sites from the config file", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.backend = newBackend(t).URL
		writeFile(t, env.config, "export:\n  offline: true\nsites:\n  \"https://www.example.com/\":\n    exclude: \"boots\"\n")

		out, err := env.run(t, "analyze", "gsc", "--no-save")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "shoes (2 URLs)") || strings.Contains(out, "boots (2 URLs)") {
			t.Errorf("expected the site exclusions to apply, got:\n%s", out)
		}
	})

	t.Run("no site", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		if _, err := env.run(t, "analyze", "gsc"); err == nil {
			t.Error("expected an error without sites")
		}
	})
}

// TestGSCRequest tests building Search Console requests.
func TestGSCRequest(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.June, 30, 12, 0, 0, 0, time.UTC)

	cfg := config.NewConfig()
	cfg.SiteConfigs = &config.File{Sites: map[string]config.SiteConfig{
		"https://www.example.com/": {SimilarityThreshold: 0.9, MaxRows: 500},
	}}

	tests := []struct {
		name      string
		site      string
		opts      analyzeOptions
		wantStart string
		wantEnd   string
		wantErr   error
	}{
		{name: "default period", site: "https://other.example/", wantStart: "2024-05-31", wantEnd: "2024-06-30"},
		{name: "explicit period", site: "https://other.example/", opts: analyzeOptions{start: "2024-01-01", end: "2024-01-31"}, wantStart: "2024-01-01", wantEnd: "2024-01-31"},
		{name: "end only", site: "https://other.example/", opts: analyzeOptions{end: "2024-03-31"}, wantStart: "2024-03-01", wantEnd: "2024-03-31"},
		{name: "start after end", site: "https://other.example/", opts: analyzeOptions{start: "2024-02-01", end: "2024-01-01"}, wantErr: config.ErrInvalidDateRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r, err := gscRequest(cfg, tt.opts, tt.site, now)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r.StartDate != tt.wantStart || r.EndDate != tt.wantEnd {
				t.Errorf("expected %s..%s, got %s..%s", tt.wantStart, tt.wantEnd, r.StartDate, r.EndDate)
			}
			if r.SiteURL != tt.site || !r.UseDateChunks {
				t.Errorf("unexpected request %+v", r)
			}
		})
	}

	t.Run("invalid date", func(t *testing.T) {
		t.Parallel()

		if _, err := gscRequest(cfg, analyzeOptions{start: "01/02/2024"}, "https://other.example/", now); err == nil {
			t.Error("expected an error")
		}
	})

	t.Run("site settings", func(t *testing.T) {
		t.Parallel()

		r, err := gscRequest(cfg, analyzeOptions{}, "https://www.example.com/", now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.SimilarityThreshold != 0.9 || r.MaxRows != 500 || r.ChunkSize != config.DefaultChunkSize {
			t.Errorf("unexpected request %+v", r)
		}
	})
}

// TestForbiddenMessage tests the inline permissions message.
func TestForbiddenMessage(t *testing.T) {
	t.Parallel()

	withMessage := &client.APIError{StatusCode: 403, Status: "403 Forbidden", Message: "no access"}
	if got := forbiddenMessage(withMessage); got != "no access" {
		t.Errorf("expected backend message, got %q", got)
	}
	bare := &client.APIError{StatusCode: 403, Status: "403 Forbidden"}
	if got := forbiddenMessage(bare); got != defaultForbiddenMessage {
		t.Errorf("expected default message, got %q", got)
	}
}
