package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/cannibalscan/internal/config"
	"github.com/nao1215/cannibalscan/internal/filter"
	"github.com/nao1215/cannibalscan/internal/model"
	"github.com/nao1215/cannibalscan/internal/report"
	"github.com/nao1215/cannibalscan/internal/session"
)

// errNothingToExport is returned by export routes when no group is displayed.
var errNothingToExport = errors.New("aucun résultat à exporter")

var contentTypes = map[string]string{
	config.ExportJSON:     "application/json; charset=utf-8",
	config.ExportHTML:     "text/html; charset=utf-8",
	config.ExportMarkdown: "text/markdown; charset=utf-8",
	config.ExportDOCX:     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// groupsResponse is the body of GET /api/groups.
type groupsResponse struct {
	Header       *report.Header       `json:"header"`
	Criteria     filter.Criteria      `json:"criteria"`
	ResultsCount int                  `json:"results_count"`
	Groups       []model.KeywordGroup `json:"groups"`
}

// applyQuery runs a filter pass when the request carries filter parameters.
func (s *Server) applyQuery(r *http.Request) error {
	q := r.URL.Query()
	if !hasFilterParams(q) {
		return nil
	}
	c, err := parseCriteria(q, s.session.Criteria())
	if err != nil {
		return err
	}
	_, err = s.session.ApplyFilters(c)
	return err
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if err := s.applyQuery(r); err != nil {
		s.writeError(w, err)
		return
	}
	doc, err := s.session.Document()
	if err != nil {
		s.writeError(w, err)
		return
	}

	links := make([]report.Link, 0, len(config.ExportFormats)+2)
	for _, format := range config.ExportFormats {
		links = append(links, report.Link{Label: "Exporter " + strings.ToUpper(format), Href: "/export." + format})
	}
	links = append(links,
		report.Link{Label: "Réinitialiser les filtres", Href: "/api/reset", Post: true},
		report.Link{Label: "Recharger l'analyse", Href: "/api/reload", Post: true},
	)

	w.Header().Set("Content-Type", contentTypes[config.ExportHTML])
	hw := report.NewHTMLWriter(w,
		report.WithStylesheets(s.stylesheets...),
		report.WithFilterForm("/"),
		report.WithLinks(links...),
	)
	if _, err := hw.Write(doc); err != nil {
		s.logger.Error("failed to render page", "error", err)
	}
}

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	if err := s.applyQuery(r); err != nil {
		s.writeError(w, err)
		return
	}
	doc, err := s.session.Document()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, groupsResponse{
		Header:       doc.Header,
		Criteria:     doc.Criteria,
		ResultsCount: doc.ResultsCount(),
		Groups:       doc.Groups,
	})
}

func (s *Server) handleExport(format string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		doc, err := s.session.Document()
		if err != nil {
			s.writeError(w, err)
			return
		}
		if doc.ResultsCount() == 0 {
			s.writeError(w, errNothingToExport)
			return
		}

		w.Header().Set("Content-Type", contentTypes[format])
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", report.FileName(s.now(), format)))

		switch format {
		case config.ExportJSON:
			_, err = report.NewJSONWriter(w, report.WithPrettyPrint()).Write(doc)
		case config.ExportHTML:
			_, err = report.NewHTMLWriter(w, report.WithStylesheets(s.stylesheets...)).Write(doc)
		case config.ExportMarkdown:
			_, err = report.NewMarkdownWriter(w).Write(doc)
		case config.ExportDOCX:
			err = writeDOCX(w, doc)
		}
		if err != nil {
			s.logger.Error("failed to write export", "format", format, "error", err)
		}
	}
}

// writeDOCX builds the document in a temporary file, the only output the
// DOCX library supports, and copies it to w.
func writeDOCX(w io.Writer, doc *report.Document) error {
	dir, err := os.MkdirTemp("", "cannibalscan-docx-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "report.docx")
	if err := report.SaveDOCX(doc, path); err != nil {
		return err
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	var err error
	if s.fetch != nil {
		var analysis *model.AnalysisReport
		analysis, err = s.fetch(r.Context())
		if err == nil {
			err = s.session.Load(analysis)
		}
	} else {
		err = s.session.Reload()
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.afterAction(w, r)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if _, err := s.session.ResetFilters(); err != nil {
		s.writeError(w, err)
		return
	}
	s.afterAction(w, r)
}

// afterAction sends browsers back to the report and API clients the new count.
func (s *Server) afterAction(w http.ResponseWriter, r *http.Request) {
	if strings.Contains(r.Header.Get("Accept"), "text/html") ||
		strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	groups, err := s.session.Groups()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"results_count": len(groups)})
}

// writeError maps err to a status code and writes it as {"error": ...}.
// Anything not caused by the request is a failed backend call.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, session.ErrNoAnalysis):
		status = http.StatusNotFound
	case errors.Is(err, errNothingToExport):
		status = http.StatusConflict
	case errors.Is(err, errInvalidParam),
		errors.Is(err, filter.ErrInvalidIncludePattern),
		errors.Is(err, filter.ErrInvalidExcludePattern):
		status = http.StatusBadRequest
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v) //nolint:errchkjson // response already started
}
