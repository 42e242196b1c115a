package main

import (
	"bytes"
	"errors"
	"slices"
	"strconv"
	"strings"
	"testing"

	"github.com/nao1215/cannibalscan/internal/database"
	"github.com/nao1215/cannibalscan/internal/model"
)

// TestHistoryCmd tests listing, printing and deleting stored analyses.
func TestHistoryCmd(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	first := storeAnalysis(t, env, "https://www.example.com/")
	second := storeAnalysis(t, env, "https://www.example.com/")

	out, err := env.run(t, "history", "list", "-n", "1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, strconv.FormatInt(second, 10)+" ") {
		t.Errorf("expected the latest analysis, got:\n%s", out)
	}

	out, err = env.run(t, "history", "show", strconv.FormatInt(first, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "shoes (2 URLs)") {
		t.Errorf("expected the text report, got:\n%s", out)
	}

	out, err = env.run(t, "history", "compare", strconv.FormatInt(first, 10), strconv.FormatInt(second, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Cannibalized keywords: 2 -> 2 (0)") {
		t.Errorf("unexpected comparison:\n%s", out)
	}

	if _, err := env.run(t, "history", "delete", strconv.FormatInt(first, 10)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = env.run(t, "history", "delete", strconv.FormatInt(first, 10))
	if !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if _, err := env.run(t, "history", "show", "abc"); err == nil {
		t.Error("expected an error for an invalid ID")
	}
}

// TestCompareAnalyses tests the keyword difference of two analyses.
func TestCompareAnalyses(t *testing.T) {
	t.Parallel()

	previous := testAnalysis()
	current := testAnalysis()
	current.Groups = current.Groups[1:] // drops boots
	current.Groups = append(current.Groups, model.KeywordGroup{
		Keyword:  "sandals",
		URLs:     []model.URLEntry{{URL: "e"}, {URL: "f"}},
		Pairs:    []model.SimilarityPair{{URL1: "e", URL2: "f", Similarity: 0.9}},
		URLCount: 2,
	}, model.KeywordGroup{
		// Below the threshold, so not cannibalized.
		Keyword:  "socks",
		URLs:     []model.URLEntry{{URL: "g"}, {URL: "h"}},
		Pairs:    []model.SimilarityPair{{URL1: "g", URL2: "h", Similarity: 0.5}},
		URLCount: 2,
	})

	c := compareAnalyses(previous, current)
	if c.PreviousGroups != 2 || c.CurrentGroups != 2 {
		t.Errorf("unexpected counts %+v", c)
	}
	if !slices.Equal(c.New, []string{"sandals"}) {
		t.Errorf("expected sandals to be new, got %v", c.New)
	}
	if !slices.Equal(c.Resolved, []string{"boots"}) {
		t.Errorf("expected boots to be resolved, got %v", c.Resolved)
	}
	if !slices.Equal(c.Remaining, []string{"shoes"}) {
		t.Errorf("expected shoes to remain, got %v", c.Remaining)
	}

	var buf bytes.Buffer
	writeComparison(&buf, c)
	if !strings.Contains(buf.String(), "New (1):") || !strings.Contains(buf.String(), "• sandals") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}

// TestFormatDelta tests signed count changes.
func TestFormatDelta(t *testing.T) {
	t.Parallel()

	tests := []struct {
		delta int
		want  string
	}{
		{delta: 3, want: "+3"},
		{delta: 0, want: "0"},
		{delta: -2, want: "-2"},
	}
	for _, tt := range tests {
		if got := formatDelta(tt.delta); got != tt.want {
			t.Errorf("formatDelta(%d) = %q, want %q", tt.delta, got, tt.want)
		}
	}
}
