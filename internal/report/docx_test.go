package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// TestSaveDOCX tests the Word export.
func TestSaveDOCX(t *testing.T) {
	t.Parallel()

	for name, doc := range map[string]*Document{
		"with groups": createTestDocument(t),
		"empty":       emptyDocument(),
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), FileName(testNow, "docx"))
			if err := SaveDOCX(doc, path); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("failed to read DOCX: %v", err)
			}
			if !bytes.HasPrefix(data, []byte("PK")) {
				t.Error("expected a zip archive")
			}
		})
	}
}
