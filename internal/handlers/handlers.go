// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the HTTP handlers for Folio. Handlers are
// grouped by concern (auth, categories, articles, public pages, JSON API)
// and receive their dependencies through the handler struct.
package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	chimw "github.com/go-chi/chi/v5/middleware"

	"folio/internal/apperr"
	"folio/internal/middleware"
	"folio/internal/render"
	"folio/internal/session"
)

// msgTryAgain is shown whenever a storage failure aborts an operation.
const msgTryAgain = "Something went wrong. Please try again."

// SessionManager creates and destroys login sessions. *session.Store
// satisfies it.
type SessionManager interface {
	Create(ctx context.Context, w http.ResponseWriter, data *session.Data) (string, error)
	Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

// PageCache stores rendered pages for anonymous visitors.
// *cache.PageCache satisfies it.
type PageCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, html []byte)
}

// ImageStore uploads and removes featured images. *storage.Client
// satisfies it.
type ImageStore interface {
	UploadImage(ctx context.Context, r io.Reader) (string, error)
	RemoveImage(ctx context.Context, rawURL string) error
}

// formFailure maps a service error to the way a form page reports it:
// the status code, inline field messages and a form-level message. ok is
// false when the error replaces the form with another response.
func formFailure(err error) (status int, fields map[string]string, general string, ok bool) {
	if v, isValidation := apperr.AsValidation(err); isValidation {
		return http.StatusUnprocessableEntity, v.Fields, "", true
	}
	var nf *apperr.NotFoundError
	if errors.As(err, &nf) && nf.Resource == "parent category" {
		return http.StatusNotFound, map[string]string{"parent_id": "The selected parent category no longer exists."}, "", true
	}
	switch apperr.Kind(err) {
	case apperr.KindStorage, apperr.KindInternal:
		return http.StatusInternalServerError, nil, msgTryAgain, true
	}
	return 0, nil, "", false
}

// logFailure logs errors that are not the user's fault.
func logFailure(r *http.Request, action string, err error) {
	switch apperr.Kind(err) {
	case apperr.KindStorage, apperr.KindInternal:
		slog.Error(action+" failed",
			"error", err,
			"path", r.URL.Path,
			"request_id", chimw.GetReqID(r.Context()),
		)
	}
}

// respondError writes the page for an error that cannot be shown inline:
// 404 for missing records, a login redirect or 403 for authorization
// failures and a generic 500 otherwise.
func respondError(rn *render.Renderer, w http.ResponseWriter, r *http.Request, action string, err error) {
	if apperr.IsNotFound(err) {
		notFound(rn, w, r)
		return
	}
	if a, ok := apperr.AsAuthorization(err); ok {
		if !a.Authenticated {
			http.Redirect(w, r, middleware.LoginURL(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}
		errorPage(rn, w, r, http.StatusForbidden, "Forbidden", forbiddenMessage(a))
		return
	}
	if v, ok := apperr.AsValidation(err); ok {
		errorPage(rn, w, r, http.StatusUnprocessableEntity, "Invalid request", v.Error())
		return
	}
	logFailure(r, action, err)
	errorPage(rn, w, r, http.StatusInternalServerError, "Something went wrong", msgTryAgain)
}

// forbiddenMessage turns the refusal reason into a sentence for the page.
func forbiddenMessage(a *apperr.AuthorizationError) string {
	reason := strings.TrimSpace(a.Reason)
	if reason == "" {
		return "You are not allowed to do that."
	}
	first, size := utf8.DecodeRuneInString(reason)
	reason = string(unicode.ToUpper(first)) + reason[size:]
	if !strings.HasSuffix(reason, ".") {
		reason += "."
	}
	return reason
}

func notFound(rn *render.Renderer, w http.ResponseWriter, r *http.Request) {
	errorPage(rn, w, r, http.StatusNotFound, "Not found", "The page you were looking for does not exist.")
}

func errorPage(rn *render.Renderer, w http.ResponseWriter, r *http.Request, status int, title, message string) {
	rn.PageStatus(w, r, status, "error", &render.PageData{
		Title: title,
		Data:  map[string]any{"Status": status, "Message": message},
	})
}

// NotFound renders the 404 page for unmatched routes.
func NotFound(rn *render.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		notFound(rn, w, r)
	}
}

// cacheable reports whether the response to r may be served from or
// stored in the page cache: anonymous full-page loads with no pending
// flash message.
func cacheable(r *http.Request, pc PageCache) bool {
	return pc != nil &&
		middleware.SessionFromCtx(r.Context()) == nil &&
		r.Header.Get("HX-Request") != "true" &&
		!render.HasFlash(r)
}

// serveCached writes the cached page for key and reports whether it did.
func serveCached(w http.ResponseWriter, r *http.Request, pc PageCache, key string) bool {
	if !cacheable(r, pc) {
		return false
	}
	html, ok := pc.Get(r.Context(), key)
	if !ok {
		return false
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Cache", "HIT")
	w.Write(html)
	return true
}

// renderCached renders a page and stores it under key when cacheable.
func renderCached(rn *render.Renderer, pc PageCache, w http.ResponseWriter, r *http.Request, key, name string, data *render.PageData) {
	if !cacheable(r, pc) {
		rn.Page(w, r, name, data)
		return
	}
	html, err := rn.Render(r, name, data)
	if err != nil {
		slog.Error("render page failed", "template", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	pc.Set(r.Context(), key, html)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Cache", "MISS")
	w.Write(html)
}
