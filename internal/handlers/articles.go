package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"folio/internal/apperr"
	"folio/internal/article"
	"folio/internal/cache"
	"folio/internal/category"
	"folio/internal/middleware"
	"folio/internal/models"
	"folio/internal/render"
)

// Articles groups the article authoring and reading handlers.
type Articles struct {
	renderer   *render.Renderer
	articles   *article.Service
	categories *category.Manager
	images     ImageStore
	cache      PageCache
}

// NewArticles creates a new Articles handler group. images and pages may
// be nil, which disables uploads and page caching respectively.
func NewArticles(renderer *render.Renderer, articles *article.Service, categories *category.Manager, images ImageStore, pages PageCache) *Articles {
	return &Articles{
		renderer:   renderer,
		articles:   articles,
		categories: categories,
		images:     images,
		cache:      pages,
	}
}

// articleForm holds the submitted values of the article form.
type articleForm struct {
	ID            uuid.UUID
	Title         string
	Slug          string
	Excerpt       string
	Content       string
	FeaturedImage string
	IsPublished   bool
	CategoryID    *uuid.UUID
}

func (f articleForm) input() article.Input {
	return article.Input{
		Title:         f.Title,
		Slug:          f.Slug,
		Excerpt:       f.Excerpt,
		Content:       f.Content,
		FeaturedImage: f.FeaturedImage,
		IsPublished:   f.IsPublished,
		CategoryID:    f.CategoryID,
	}
}

func articleFormFrom(a *models.Article) articleForm {
	f := articleForm{
		ID:          a.ID,
		Title:       a.Title,
		Slug:        a.Slug,
		Excerpt:     a.Excerpt,
		Content:     a.Content,
		IsPublished: a.IsPublished,
		CategoryID:  a.CategoryID,
	}
	if a.FeaturedImage != nil {
		f.FeaturedImage = *a.FeaturedImage
	}
	return f
}

func parseArticleForm(r *http.Request) (articleForm, map[string]string) {
	f := articleForm{
		Title:         strings.TrimSpace(r.FormValue("title")),
		Slug:          strings.TrimSpace(r.FormValue("slug")),
		Excerpt:       strings.TrimSpace(r.FormValue("excerpt")),
		Content:       r.FormValue("content"),
		FeaturedImage: strings.TrimSpace(r.FormValue("featured_image")),
		IsPublished:   formBool(r.FormValue("is_published")),
	}
	categoryID, ok := optionalUUID(r.FormValue("category_id"))
	if !ok {
		return f, map[string]string{"category_id": "Choose a valid category."}
	}
	f.CategoryID = categoryID
	return f, nil
}

// List renders every article the requester may see.
func (h *Articles) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.articles.ListVisible(r.Context(), middleware.IdentityFromCtx(r.Context()))
	if err != nil {
		respondError(h.renderer, w, r, "list articles", err)
		return
	}
	h.renderer.Page(w, r, "articles_list", &render.PageData{
		Title:   "Articles",
		Section: "articles",
		Data:    map[string]any{"Articles": items},
	})
}

// Show renders a single article, addressed by id or slug.
func (h *Articles) Show(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "id")
	key := cache.ArticleKey(ref)
	if serveCached(w, r, h.cache, key) {
		return
	}

	who := middleware.IdentityFromCtx(r.Context())
	var (
		a   *models.Article
		err error
	)
	if id, parseErr := uuid.Parse(ref); parseErr == nil {
		a, err = h.articles.Get(r.Context(), who, id)
	} else {
		a, err = h.articles.GetBySlug(r.Context(), who, ref)
	}
	if err != nil {
		respondError(h.renderer, w, r, "load article", err)
		return
	}

	var cat *models.Category
	if a.CategoryID != nil {
		cat, err = h.categories.Get(r.Context(), *a.CategoryID)
		if err != nil && !apperr.IsNotFound(err) {
			slog.Warn("load article category failed", "article_id", a.ID, "error", err)
		}
	}

	renderCached(h.renderer, h.cache, w, r, key, "article_show", &render.PageData{
		Title:   a.Title,
		Section: "articles",
		Data: map[string]any{
			"Article":  a,
			"Category": cat,
			"CanEdit":  a.OwnedBy(who),
		},
	})
}

// New renders an empty article form.
func (h *Articles) New(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, articleForm{}, true, nil, "")
}

// Create handles the new article form submission.
func (h *Articles) Create(w http.ResponseWriter, r *http.Request) {
	form, fields := parseArticleForm(r)
	if fields != nil {
		h.renderForm(w, r, http.StatusUnprocessableEntity, form, true, fields, "")
		return
	}

	uploaded, err := h.upload(r)
	if err != nil {
		h.fail(w, r, "upload image", form, true, err)
		return
	}
	if uploaded != "" {
		form.FeaturedImage = uploaded
	}

	a, err := h.articles.Create(r.Context(), middleware.IdentityFromCtx(r.Context()), form.input())
	if err != nil {
		h.removeImage(r, uploaded)
		if uploaded != "" {
			form.FeaturedImage = ""
		}
		h.fail(w, r, "create article", form, true, err)
		return
	}

	render.SetFlash(w, "success", fmt.Sprintf("Article “%s” created.", a.Title))
	http.Redirect(w, r, "/articles/"+a.ID.String(), http.StatusSeeOther)
}

// Edit renders the form for one of the requester's articles.
func (h *Articles) Edit(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		notFound(h.renderer, w, r)
		return
	}
	a, err := h.articles.GetForEdit(r.Context(), middleware.IdentityFromCtx(r.Context()), id)
	if err != nil {
		respondError(h.renderer, w, r, "load article", err)
		return
	}
	h.renderForm(w, r, http.StatusOK, articleFormFrom(a), false, nil, "")
}

// Update handles the edit form submission.
func (h *Articles) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		notFound(h.renderer, w, r)
		return
	}
	who := middleware.IdentityFromCtx(r.Context())

	form, fields := parseArticleForm(r)
	form.ID = id
	if fields != nil {
		h.renderForm(w, r, http.StatusUnprocessableEntity, form, false, fields, "")
		return
	}

	// Ownership is checked before anything is uploaded.
	existing, err := h.articles.GetForEdit(r.Context(), who, id)
	if err != nil {
		respondError(h.renderer, w, r, "load article", err)
		return
	}
	var previous string
	if existing.FeaturedImage != nil {
		previous = *existing.FeaturedImage
	}

	uploaded, err := h.upload(r)
	if err != nil {
		h.fail(w, r, "upload image", form, false, err)
		return
	}
	if uploaded != "" {
		form.FeaturedImage = uploaded
	}

	a, err := h.articles.Update(r.Context(), who, id, form.input())
	if err != nil {
		h.removeImage(r, uploaded)
		if uploaded != "" {
			form.FeaturedImage = previous
		}
		h.fail(w, r, "update article", form, false, err)
		return
	}
	if previous != "" && (a.FeaturedImage == nil || *a.FeaturedImage != previous) {
		h.removeImage(r, previous)
	}

	render.SetFlash(w, "success", fmt.Sprintf("Article “%s” updated.", a.Title))
	http.Redirect(w, r, "/articles/"+a.ID.String(), http.StatusSeeOther)
}

// Delete removes one of the requester's articles.
func (h *Articles) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		notFound(h.renderer, w, r)
		return
	}
	who := middleware.IdentityFromCtx(r.Context())

	a, err := h.articles.GetForEdit(r.Context(), who, id)
	if err != nil {
		respondError(h.renderer, w, r, "load article", err)
		return
	}
	if err := h.articles.Delete(r.Context(), who, id); err != nil {
		respondError(h.renderer, w, r, "delete article", err)
		return
	}
	if a.FeaturedImage != nil {
		h.removeImage(r, *a.FeaturedImage)
	}

	render.SetFlash(w, "success", fmt.Sprintf("Article “%s” deleted.", a.Title))
	http.Redirect(w, r, "/articles", http.StatusSeeOther)
}

// upload stores the optional featured_image_file part and returns its
// public URL, or "" when nothing was uploaded.
func (h *Articles) upload(r *http.Request) (string, error) {
	if h.images == nil {
		return "", nil
	}
	file, _, err := r.FormFile("featured_image_file")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return "", nil
	}
	if err != nil {
		return "", apperr.Invalid("featured_image", "The uploaded file could not be read.")
	}
	defer func(f multipart.File) { f.Close() }(file)

	return h.images.UploadImage(r.Context(), file)
}

func (h *Articles) removeImage(r *http.Request, url string) {
	if h.images == nil || url == "" {
		return
	}
	if err := h.images.RemoveImage(r.Context(), url); err != nil {
		slog.Warn("remove featured image failed", "url", url, "error", err)
	}
}

func (h *Articles) fail(w http.ResponseWriter, r *http.Request, action string, form articleForm, isNew bool, err error) {
	status, fields, general, ok := formFailure(err)
	if !ok {
		respondError(h.renderer, w, r, action, err)
		return
	}
	logFailure(r, action, err)
	h.renderForm(w, r, status, form, isNew, fields, general)
}

func (h *Articles) renderForm(w http.ResponseWriter, r *http.Request, status int, form articleForm, isNew bool, fields map[string]string, general string) {
	tree, err := h.categories.Tree(r.Context())
	if err != nil {
		slog.Error("load category choices failed", "error", err)
	}

	title := "Edit article"
	if isNew {
		title = "New article"
	}
	h.renderer.PageStatus(w, r, status, "article_form", &render.PageData{
		Title:   title,
		Section: "articles",
		Errors:  fields,
		Error:   general,
		Data: map[string]any{
			"IsNew":         isNew,
			"Form":          form,
			"Categories":    category.Flatten(tree),
			"UploadEnabled": h.images != nil,
		},
	})
}
