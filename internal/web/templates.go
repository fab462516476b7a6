// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package web

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/pkg/errutil"
)

//go:embed templates/*.html
var templatesFS embed.FS

// parseTemplates loads all page templates from the embedded FS.
// Each page is a standalone template looked up by file name.
func parseTemplates() (*template.Template, error) {
	t, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, oops.Code("TEMPLATE_PARSE_FAILED").Wrap(err)
	}
	return t, nil
}

// render writes a page template with the given data and status code.
// A render failure after headers are sent can only be logged.
func (s *Server) render(w http.ResponseWriter, status int, page string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, page, data); err != nil {
		errutil.LogError(s.logger, "template render failed", oops.With("page", page).Wrap(err))
	}
}
