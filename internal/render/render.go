// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package render provides HTML template rendering for Folio's pages.
// It supports full-page and HTMX partial rendering, automatically detecting
// the request type via the HX-Request header.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"folio/internal/middleware"
	"folio/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

// PageData holds all data passed to templates.
type PageData struct {
	Title     string            // Page title for <title> tag
	Section   string            // Active nav section ("home", "articles", "categories")
	Session   *session.Data     // Current user session (nil if anonymous)
	CSRFToken string            // CSRF token for forms and HTMX headers
	Data      map[string]any    // Page-specific data
	Errors    map[string]string // Field name to inline validation message
	Error     string            // Form-level error message
	Flashes   []Flash           // One-time notification messages
}

// Flash represents a one-time notification message displayed to the user.
type Flash struct {
	Type    string // "success", "error", "warning", "info"
	Message string
}

// Renderer handles template parsing and execution.
type Renderer struct {
	templates map[string]*template.Template
	funcMap   template.FuncMap
	now       func() time.Time
}

// standaloneTemplates lists templates that render as full HTML pages
// without the base layout (they have their own <html>, <head>, etc.).
var standaloneTemplates = map[string]bool{
	"login":    true,
	"register": true,
}

// sharedTemplates are parsed into every page.
var sharedTemplates = map[string]bool{
	"base.html":     true,
	"partials.html": true,
}

// New creates a Renderer by parsing all templates from the embedded
// filesystem. Each page template is paired with the base layout and the
// shared partials.
func New() (*Renderer, error) {
	rn := &Renderer{
		templates: make(map[string]*template.Template),
		now:       time.Now,
	}
	rn.funcMap = rn.funcs(bluemonday.UGCPolicy())

	entries, err := fs.ReadDir(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("read embedded templates: %w", err)
	}

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || path.Ext(name) != ".html" || sharedTemplates[name] {
			continue
		}
		tmplName := strings.TrimSuffix(name, ".html")

		files := []string{"templates/partials.html", "templates/" + name}
		root := name
		if !standaloneTemplates[tmplName] {
			files = append([]string{"templates/base.html"}, files...)
			root = "base.html"
		}

		tmpl, err := template.New(root).Funcs(rn.funcMap).ParseFS(templateFS, files...)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		rn.templates[tmplName] = tmpl
	}

	return rn, nil
}

// funcs returns the template helpers. policy re-sanitises article HTML
// at render time.
func (rn *Renderer) funcs(policy *bluemonday.Policy) template.FuncMap {
	return template.FuncMap{
		// deref safely dereferences a string pointer for use in templates.
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		// catIndent returns a category name with non-breaking space indentation
		// based on depth. Used for hierarchical <select> dropdowns.
		"catIndent": func(depth int, name string) string {
			if depth == 0 {
				return name
			}
			return strings.Repeat("\u00A0\u00A0\u00A0\u00A0", depth) + name
		},
		// uuidEq compares a *uuid.UUID pointer with a uuid.UUID value.
		// Returns true if the pointer is non-nil and points to the same value.
		"uuidEq": func(ptr *uuid.UUID, val uuid.UUID) bool {
			return ptr != nil && *ptr == val
		},
		"formatDate": formatDate,
		"timeAgo": func(t any) string {
			return timeAgo(rn.now(), t)
		},
		"pluralize": pluralize,
		"safeHTML": func(s string) template.HTML {
			return template.HTML(policy.Sanitize(s))
		},
		"isHTMX": isHTMX,
		// dict builds a map from alternating keys and values, for passing
		// several values into a nested template.
		"dict": func(kv ...any) (map[string]any, error) {
			if len(kv)%2 != 0 {
				return nil, fmt.Errorf("dict: odd number of arguments")
			}
			m := make(map[string]any, len(kv)/2)
			for i := 0; i < len(kv); i += 2 {
				k, ok := kv[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict: key %v is not a string", kv[i])
				}
				m[k] = kv[i+1]
			}
			return m, nil
		},
	}
}

// Has reports whether a page template called name exists.
func (rn *Renderer) Has(name string) bool {
	_, ok := rn.templates[name]
	return ok
}

// Page renders a page with status 200. See PageStatus.
func (rn *Renderer) Page(w http.ResponseWriter, r *http.Request, name string, data *PageData) {
	rn.PageStatus(w, r, http.StatusOK, name, data)
}

// PageStatus renders a full page or an HTMX partial, depending on the
// request headers, with the given status code. Pending flash messages are
// consumed and shown.
func (rn *Renderer) PageStatus(w http.ResponseWriter, r *http.Request, status int, name string, data *PageData) {
	data.Flashes = append(data.Flashes, popFlash(w, r)...)

	body, err := rn.Render(r, name, data)
	if err != nil {
		slog.Error("render page failed", "template", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(body)
}

// Render executes template name into memory. The session and CSRF token
// are taken from the request context. HTMX requests get only the page
// fragment; full loads get the complete layout.
func (rn *Renderer) Render(r *http.Request, name string, data *PageData) ([]byte, error) {
	tmpl, ok := rn.templates[name]
	if !ok {
		return nil, fmt.Errorf("template %q not found", name)
	}

	data.CSRFToken = middleware.CSRFToken(r)
	if data.Session == nil {
		data.Session = middleware.SessionFromCtx(r.Context())
	}

	execName := "base.html"
	switch {
	case standaloneTemplates[name]:
		execName = name + ".html"
	case isHTMX(r):
		execName = "page"
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, execName, data); err != nil {
		return nil, fmt.Errorf("execute %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// isHTMX returns true if the request was made by HTMX (has HX-Request header).
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
