package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"folio/internal/apperr"
	"folio/internal/article"
	"folio/internal/category"
	"folio/internal/middleware"
	"folio/internal/models"
)

// maxJSONBody caps API request bodies.
const maxJSONBody = 1 << 20

// API serves the JSON endpoints under /api.
type API struct {
	articles   *article.Service
	categories *category.Manager
}

// NewAPI creates a new API handler group.
func NewAPI(articles *article.Service, categories *category.Manager) *API {
	return &API{articles: articles, categories: categories}
}

// articleRequest is the body of article create and update calls.
type articleRequest struct {
	Title         string     `json:"title"`
	Slug          string     `json:"slug"`
	Excerpt       string     `json:"excerpt"`
	Content       string     `json:"content"`
	FeaturedImage string     `json:"featured_image"`
	IsPublished   bool       `json:"is_published"`
	CategoryID    *uuid.UUID `json:"category_id"`
}

func (req articleRequest) input() article.Input {
	return article.Input{
		Title:         req.Title,
		Slug:          req.Slug,
		Excerpt:       req.Excerpt,
		Content:       req.Content,
		FeaturedImage: req.FeaturedImage,
		IsPublished:   req.IsPublished,
		CategoryID:    req.CategoryID,
	}
}

// ListArticles returns the articles visible to the requester.
func (a *API) ListArticles(w http.ResponseWriter, r *http.Request) {
	items, err := a.articles.ListVisible(r.Context(), middleware.IdentityFromCtx(r.Context()))
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"articles": items})
}

// GetArticle returns one article by id or slug.
func (a *API) GetArticle(w http.ResponseWriter, r *http.Request) {
	who := middleware.IdentityFromCtx(r.Context())
	ref := chi.URLParam(r, "id")

	var (
		item *models.Article
		err  error
	)
	if id, parseErr := uuid.Parse(ref); parseErr == nil {
		item, err = a.articles.Get(r.Context(), who, id)
	} else {
		item, err = a.articles.GetBySlug(r.Context(), who, ref)
	}
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// CreateArticle creates an article authored by the requester.
func (a *API) CreateArticle(w http.ResponseWriter, r *http.Request) {
	var req articleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	created, err := a.articles.Create(r.Context(), middleware.IdentityFromCtx(r.Context()), req.input())
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/articles/"+created.ID.String())
	writeJSON(w, http.StatusCreated, created)
}

// UpdateArticle replaces the editable fields of one of the requester's
// articles.
func (a *API) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeAPIError(w, r, &apperr.NotFoundError{Resource: "article", ID: chi.URLParam(r, "id")})
		return
	}
	var req articleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	updated, err := a.articles.Update(r.Context(), middleware.IdentityFromCtx(r.Context()), id, req.input())
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteArticle removes one of the requester's articles.
func (a *API) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeAPIError(w, r, &apperr.NotFoundError{Resource: "article", ID: chi.URLParam(r, "id")})
		return
	}
	if err := a.articles.Delete(r.Context(), middleware.IdentityFromCtx(r.Context()), id); err != nil {
		writeAPIError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CategoryTree returns the category forest.
func (a *API) CategoryTree(w http.ResponseWriter, r *http.Request) {
	tree, err := a.categories.Tree(r.Context())
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": tree})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, map[string]string{"error": "invalid JSON body"})
		return false
	}
	return true
}

// writeAPIError maps a service error to a JSON error response.
func writeAPIError(w http.ResponseWriter, r *http.Request, err error) {
	if v, ok := apperr.AsValidation(err); ok {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "validation failed",
			"fields": v.Fields,
		})
		return
	}
	if apperr.IsNotFound(err) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	if a, ok := apperr.AsAuthorization(err); ok {
		status := http.StatusForbidden
		if !a.Authenticated {
			status = http.StatusUnauthorized
		}
		writeJSON(w, status, map[string]string{"error": a.Error()})
		return
	}
	logFailure(r, "api "+r.Method+" "+r.URL.Path, err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode json response failed", "error", err)
	}
}
