package report

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// TestImportHTML tests reading the analysis back from HTML snapshots.
func TestImportHTML(t *testing.T) {
	t.Parallel()

	t.Run("round trip keeps full analysis", func(t *testing.T) {
		t.Parallel()

		doc := createTestDocument(t)
		var buf bytes.Buffer
		if _, err := NewHTMLWriter(&buf).Write(doc); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		imported, err := ImportHTML(&buf)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(imported, doc.Analysis) {
			t.Errorf("analysis differs after round trip:\n got %+v\nwant %+v", imported, doc.Analysis)
		}
	})

	t.Run("missing data", func(t *testing.T) {
		t.Parallel()

		_, err := ImportHTML(strings.NewReader("<html><body><p>rapport</p></body></html>"))
		if !errors.Is(err, ErrNoAnalysisData) {
			t.Errorf("expected ErrNoAnalysisData, got %v", err)
		}
	})

	t.Run("invalid data", func(t *testing.T) {
		t.Parallel()

		input := `<html><script type="application/json" id="analysis-data">{oops</script></html>`
		if _, err := ImportHTML(strings.NewReader(input)); err == nil {
			t.Error("expected error for invalid embedded JSON")
		}
	})
}

// TestImportFile tests choosing the importer from the file extension.
func TestImportFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	doc := createTestDocument(t)

	var jsonBuf, htmlBuf bytes.Buffer
	if _, err := NewJSONWriter(&jsonBuf).Write(doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := NewHTMLWriter(&htmlBuf).Write(doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	jsonPath := filepath.Join(dir, FileName(testNow, "json"))
	htmlPath := filepath.Join(dir, FileName(testNow, "HTML"))
	if err := os.WriteFile(jsonPath, jsonBuf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(htmlPath, htmlBuf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{jsonPath, htmlPath} {
		analysis, err := ImportFile(path)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", path, err)
		}
		if len(analysis.Groups) != len(doc.Groups) {
			t.Errorf("%s: expected %d groups, got %d", path, len(doc.Groups), len(analysis.Groups))
		}
	}

	if _, err := ImportFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
