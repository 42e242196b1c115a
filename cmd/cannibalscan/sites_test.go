package main

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/nao1215/cannibalscan/internal/model"
)

// TestSitesCmd tests listing Search Console properties.
func TestSitesCmd(t *testing.T) {
	t.Parallel()

	t.Run("search", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.backend = newBackend(t).URL
		out, err := env.run(t, "sites", "--search", "EXAMPLE")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "https://www.example.com/\tsiteOwner") || strings.Contains(out, "other.org") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("json", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.backend = newBackend(t).URL
		out, err := env.run(t, "sites", "-j")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var sites []model.Site
		if err := json.Unmarshal([]byte(out), &sites); err != nil {
			t.Fatalf("failed to decode %s: %v", out, err)
		}
		if len(sites) != 2 {
			t.Errorf("expected 2 sites, got %+v", sites)
		}
	})

	t.Run("no match", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.backend = newBackend(t).URL
		out, err := env.run(t, "sites", "--search", "nothing")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "No site found.") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("backend unreachable", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.backend = "http://127.0.0.1:1"
		if _, err := env.run(t, "sites"); err == nil {
			t.Error("expected an error")
		}
	})
}

// TestAuthCmd tests printing the authorization URL.
func TestAuthCmd(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.backend = newBackend(t).URL
	out, err := env.run(t, "auth")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "https://accounts.google.com/o/oauth2/auth?client_id=test") {
		t.Errorf("expected the authorization URL, got:\n%s", out)
	}
}
