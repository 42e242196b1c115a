package render

import (
	"testing"

	"github.com/nao1215/cannibalscan/internal/model"
)

// TestGroup tests rendering of the reference URL and cannibalizing rows.
func TestGroup(t *testing.T) {
	t.Parallel()

	g := model.KeywordGroup{
		Keyword: "shoes",
		URLs: []model.URLEntry{
			{URL: "b", Clicks: model.IntPtr(5), Position: model.FloatPtr(4.26), CTR: model.FloatPtr(0.0123)},
			{URL: "a", Clicks: model.IntPtr(100), Impressions: model.IntPtr(2000)},
			{URL: "c", Clicks: model.IntPtr(1)},
		},
		Pairs: []model.SimilarityPair{
			{URL1: "b", URL2: "a", Similarity: 0.95},
			{URL1: "b", URL2: "c", Similarity: 0.99},
		},
		URLCount: 3,
	}

	t.Run("reference is the URL with most clicks", func(t *testing.T) {
		t.Parallel()

		view := Group(g, Options{})
		if view.Reference == nil || view.Reference.URL != "a" {
			t.Fatalf("expected reference a, got %+v", view.Reference)
		}
		if view.Reference.SimilarityDisplay != Placeholder {
			t.Errorf("expected placeholder similarity on reference, got %q", view.Reference.SimilarityDisplay)
		}
		if view.Reference.Impressions != 2000 {
			t.Errorf("expected 2000 impressions, got %d", view.Reference.Impressions)
		}
	})

	t.Run("pairs are looked up in either order", func(t *testing.T) {
		t.Parallel()

		view := Group(g, Options{})
		if len(view.Cannibalizing) != 2 {
			t.Fatalf("expected 2 cannibalizing rows, got %d", len(view.Cannibalizing))
		}
		b := view.Cannibalizing[0]
		if b.URL != "b" || b.Similarity != 0.95 || b.Band != model.BandHigh {
			t.Errorf("unexpected row for b: %+v", b)
		}
		if b.SimilarityDisplay != "95%" {
			t.Errorf("expected 95%%, got %q", b.SimilarityDisplay)
		}
		if b.Position != "4.3" || b.CTR != "1.23%" {
			t.Errorf("unexpected metrics: position %q ctr %q", b.Position, b.CTR)
		}
	})

	t.Run("missing pair defaults to zero similarity", func(t *testing.T) {
		t.Parallel()

		view := Group(g, Options{ExactSimilarity: true})
		c := view.Cannibalizing[1]
		if c.URL != "c" || c.Similarity != 0 || c.Band != model.BandLow {
			t.Errorf("unexpected row for c: %+v", c)
		}
		if c.SimilarityDisplay != "0.0000" {
			t.Errorf("expected 0.0000, got %q", c.SimilarityDisplay)
		}
		if c.Position != Placeholder || c.CTR != Placeholder {
			t.Errorf("expected placeholders for unknown metrics, got %q and %q", c.Position, c.CTR)
		}
	})
}

// TestGroupNotices tests groups with nothing to tabulate.
func TestGroupNotices(t *testing.T) {
	t.Parallel()

	single := Group(model.KeywordGroup{Keyword: "k", URLs: []model.URLEntry{{URL: "a"}}, URLCount: 1}, Options{})
	if single.Notice != NoCannibalizing {
		t.Errorf("expected %q, got %q", NoCannibalizing, single.Notice)
	}
	if single.Reference == nil {
		t.Error("expected a reference URL")
	}

	empty := Group(model.KeywordGroup{Keyword: "k"}, Options{})
	if empty.Notice != NoPairs || empty.Reference != nil {
		t.Errorf("unexpected view for empty group: %+v", empty)
	}
}

// TestReferenceURLTies tests that the first URL wins a tie.
func TestReferenceURLTies(t *testing.T) {
	t.Parallel()

	ref, ok := ReferenceURL([]model.URLEntry{
		{URL: "first", Clicks: model.IntPtr(10)},
		{URL: "second", Clicks: model.IntPtr(10)},
		{URL: "third"},
	})
	if !ok || ref.URL != "first" {
		t.Errorf("expected first, got %q", ref.URL)
	}

	if _, ok := ReferenceURL(nil); ok {
		t.Error("expected no reference for empty list")
	}
}

// TestFormatSimilarity tests both display modes.
func TestFormatSimilarity(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		similarity float64
		exact      bool
		expected   string
	}{
		{0.95, false, "95%"},
		{0.955, false, "96%"},
		{0.8, false, "80%"},
		{0.95123456, true, "0.9512"},
		{1, true, "1.0000"},
	}

	for _, tc := range testCases {
		if got := FormatSimilarity(tc.similarity, tc.exact); got != tc.expected {
			t.Errorf("FormatSimilarity(%v, %t) = %q, expected %q", tc.similarity, tc.exact, got, tc.expected)
		}
	}
}

// TestGroupsKeepsOrder tests that views follow the input order.
func TestGroupsKeepsOrder(t *testing.T) {
	t.Parallel()

	views := Groups([]model.KeywordGroup{{Keyword: "z"}, {Keyword: "a"}}, Options{})
	if len(views) != 2 || views[0].Keyword != "z" || views[1].Keyword != "a" {
		t.Errorf("unexpected views: %+v", views)
	}
}
