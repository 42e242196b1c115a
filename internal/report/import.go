package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"github.com/nao1215/cannibalscan/internal/model"
)

// ErrNoAnalysisData is returned when an HTML file has no embedded analysis.
var ErrNoAnalysisData = errors.New("no embedded analysis found in HTML report")

// ImportHTML reads the analysis embedded in an HTML snapshot written by
// HTMLWriter.
func ImportHTML(r io.Reader) (*model.AnalysisReport, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML report: %w", err)
	}

	payload, ok := findAnalysisData(doc)
	if !ok {
		return nil, ErrNoAnalysisData
	}

	var analysis model.AnalysisReport
	if err := json.Unmarshal([]byte(payload), &analysis); err != nil {
		return nil, fmt.Errorf("failed to decode embedded analysis: %w", err)
	}
	if analysis.Groups == nil {
		return nil, ErrNoGroups
	}
	return &analysis, nil
}

// findAnalysisData walks the DOM tree for the analysis script element.
func findAnalysisData(n *html.Node) (string, bool) {
	if n.Type == html.ElementNode && n.Data == "script" && getAttr(n, "id") == AnalysisDataID {
		var sb strings.Builder
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				sb.WriteString(c.Data)
			}
		}
		return sb.String(), true
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if data, ok := findAnalysisData(c); ok {
			return data, true
		}
	}
	return "", false
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// ImportFile reads a previously exported report. HTML snapshots are
// recognized by their extension; anything else is read as JSON.
func ImportFile(path string) (*model.AnalysisReport, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open report: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return ImportHTML(f)
	default:
		return ImportJSON(f)
	}
}
