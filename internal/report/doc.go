// Package report assembles and exports cannibalization reports.
//
// Assemble computes the header shown above a report from the raw backend
// analysis. A Document bundles that header with the active filter criteria,
// the filtered groups and their rendered views, and Writers lay a Document
// out in a given format:
//   - SimpleWriter: plain text for terminal display
//   - JSONWriter: the JSON export, re-readable with ImportJSON
//   - MarkdownWriter: GitHub flavoured Markdown for sharing
//   - HTMLWriter: a self-contained HTML snapshot, re-readable with ImportHTML
//
// SaveDOCX writes the same content as a Word document.
package report
