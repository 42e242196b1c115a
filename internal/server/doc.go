// Package server is the local report viewer.
//
// It serves the analysis held by a session.Session over HTTP with a chi
// router: the report page with its filter form, the displayed groups as
// JSON, and the JSON, HTML, Markdown and DOCX exports of what is displayed.
// Filter criteria come from the query string; applying them narrows the
// session the same way successive filter passes do in the CLI, until the
// analysis is reloaded.
package server
