package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/cannibalscan/internal/model"
)

// ErrNoGroups is returned when an imported file carries no groups array.
var ErrNoGroups = errors.New("report has no groups")

// Export is the JSON export of a report.
type Export struct {
	Title               string               `json:"title"`
	Date                string               `json:"date"`
	TotalKeywords       string               `json:"total_keywords"`
	SimilarityThreshold string               `json:"similarity_threshold"`
	Groups              []model.KeywordGroup `json:"groups"`
}

// NewExport builds the JSON export of a document. Groups are the displayed
// groups themselves, in display order.
func NewExport(doc *Document) *Export {
	groups := doc.Groups
	if groups == nil {
		groups = []model.KeywordGroup{}
	}
	e := &Export{
		Title:               Title,
		SimilarityThreshold: strconv.FormatFloat(doc.ThresholdUsed(), 'f', 1, 64),
		Groups:              groups,
	}
	if doc.Header != nil {
		e.Date = doc.Header.Date
		e.TotalKeywords = doc.Header.TotalKeywords
	}
	return e
}

// JSONWriter outputs the JSON export of a report.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with two space indentation,
// the layout of downloaded exports.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the JSON export of the document.
func (w *JSONWriter) Write(doc *Document) (int, error) {
	return w.writeJSON(NewExport(doc))
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}

// ImportJSON reads a JSON export back. A raw backend analysis response
// (groups plus optional stats) is accepted too.
func ImportJSON(r io.Reader) (*model.AnalysisReport, error) {
	var raw struct {
		Export
		SimilarityThreshold json.RawMessage `json:"similarity_threshold"`
		Stats               *model.Stats    `json:"stats"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	if raw.Groups == nil {
		return nil, ErrNoGroups
	}

	// Exports carry the threshold as text, backend responses as a number.
	threshold, err := parseThreshold(raw.SimilarityThreshold)
	if err != nil {
		return nil, err
	}

	return &model.AnalysisReport{
		Groups:              raw.Groups,
		Stats:               raw.Stats,
		SimilarityThreshold: threshold,
	}, nil
}

func parseThreshold(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		return number, nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return 0, fmt.Errorf("invalid similarity threshold %s: %w", raw, err)
	}
	if text == "" {
		return 0, nil
	}
	number, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid similarity threshold %q: %w", text, err)
	}
	return number, nil
}
