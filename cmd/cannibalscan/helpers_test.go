package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/cannibalscan/internal/model"
)

// testAnalysis returns two groups: "shoes" (a: 100 clicks, b: 5 clicks,
// similarity 0.95) and "boots" (c: 50, d: 40, similarity 0.85).
func testAnalysis() *model.AnalysisReport {
	return &model.AnalysisReport{
		SimilarityThreshold: 0.8,
		Groups: []model.KeywordGroup{
			{
				Keyword:  "boots",
				URLs:     []model.URLEntry{{URL: "https://www.example.com/c", Clicks: model.IntPtr(50)}, {URL: "https://www.example.com/d", Clicks: model.IntPtr(40)}},
				Pairs:    []model.SimilarityPair{{URL1: "https://www.example.com/c", URL2: "https://www.example.com/d", Similarity: 0.85}},
				URLCount: 2,
			},
			{
				Keyword:  "shoes",
				URLs:     []model.URLEntry{{URL: "https://www.example.com/a", Clicks: model.IntPtr(100)}, {URL: "https://www.example.com/b", Clicks: model.IntPtr(5)}},
				Pairs:    []model.SimilarityPair{{URL1: "https://www.example.com/a", URL2: "https://www.example.com/b", Similarity: 0.95}},
				URLCount: 2,
			},
		},
	}
}

// forbiddenMessage403 is what the fake backend answers for forbidden sites.
const forbiddenMessage403 = "Vous n'avez pas les permissions suffisantes pour accéder aux données de ce site."

// newBackend starts a fake analysis backend. Search Console sites
// containing "forbidden" get a 403 and sites containing "broken" a 500.
func newBackend(t *testing.T) *httptest.Server {
	t.Helper()

	writeJSON := func(w http.ResponseWriter, code int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(v)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/auth/url", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"auth_url": "https://accounts.google.com/o/oauth2/auth?client_id=test"})
	})
	mux.HandleFunc("GET /api/sites", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"sites": []model.Site{
			{SiteURL: "https://www.example.com/", PermissionLevel: "siteOwner"},
			{SiteURL: "sc-domain:other.org", PermissionLevel: "siteFullUser"},
		}})
	})
	mux.HandleFunc("POST /api/analyze/csv", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
			return
		}
		if _, _, err := r.FormFile("file"); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "missing file"})
			return
		}
		writeJSON(w, http.StatusOK, testAnalysis())
	})
	mux.HandleFunc("POST /api/analyze/search-console", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			SiteURL string `json:"site_url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
			return
		}
		switch {
		case strings.Contains(req.SiteURL, "forbidden"):
			writeJSON(w, http.StatusForbidden, map[string]string{
				"error":   "Erreur d'autorisation",
				"message": forbiddenMessage403,
			})
		case strings.Contains(req.SiteURL, "broken"):
			writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "quota exceeded"})
		default:
			writeJSON(w, http.StatusOK, testAnalysis())
		}
	})
	mux.HandleFunc("POST /api/report", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"groups": []model.KeywordGroup{}, "cannibalized_keywords": 2})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// testEnv is an isolated configuration file and data directory.
type testEnv struct {
	dir     string
	config  string
	dataDir string
	backend string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()

	dir := t.TempDir()
	env := testEnv{
		dir:     dir,
		config:  filepath.Join(dir, "cannibalscan.yaml"),
		dataDir: filepath.Join(dir, "data"),
	}
	writeFile(t, env.config, "export:\n  offline: true\n")
	return env
}

// run executes the CLI with the environment's global flags.
func (e testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	global := []string{"--config", e.config, "--data-dir", e.dataDir}
	if e.backend != "" {
		global = append(global, "--backend", e.backend)
	}

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, global...))
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// writeAnalysisFile stores testAnalysis as a backend JSON response.
func writeAnalysisFile(t *testing.T, dir string) string {
	t.Helper()

	data, err := json.Marshal(testAnalysis())
	if err != nil {
		t.Fatalf("failed to marshal analysis: %v", err)
	}
	path := filepath.Join(dir, "analysis.json")
	writeFile(t, path, string(data))
	return path
}
