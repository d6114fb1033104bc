package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"folio/internal/category"
	"folio/internal/middleware"
	"folio/internal/models"
	"folio/internal/render"
)

// Categories groups the category management handlers.
type Categories struct {
	renderer *render.Renderer
	manager  *category.Manager
}

// NewCategories creates a new Categories handler group.
func NewCategories(renderer *render.Renderer, manager *category.Manager) *Categories {
	return &Categories{renderer: renderer, manager: manager}
}

// categoryForm holds the submitted values of the category form.
type categoryForm struct {
	ID          uuid.UUID
	Name        string
	Slug        string
	Description string
	ParentID    *uuid.UUID
}

func (f categoryForm) input() category.Input {
	return category.Input{
		Name:        f.Name,
		Slug:        f.Slug,
		Description: f.Description,
		ParentID:    f.ParentID,
	}
}

func categoryFormFrom(c *models.Category) categoryForm {
	return categoryForm{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		ParentID:    c.ParentID,
	}
}

// parseCategoryForm reads the form. The returned map holds messages for
// values that could not be parsed at all.
func parseCategoryForm(r *http.Request) (categoryForm, map[string]string) {
	f := categoryForm{
		Name:        strings.TrimSpace(r.FormValue("name")),
		Slug:        strings.TrimSpace(r.FormValue("slug")),
		Description: strings.TrimSpace(r.FormValue("description")),
	}
	parent, ok := optionalUUID(r.FormValue("parent_id"))
	if !ok {
		return f, map[string]string{"parent_id": "Choose a valid parent category."}
	}
	f.ParentID = parent
	return f, nil
}

// List renders the category tree.
func (h *Categories) List(w http.ResponseWriter, r *http.Request) {
	all, err := h.manager.List(r.Context())
	if err != nil {
		respondError(h.renderer, w, r, "list categories", err)
		return
	}
	h.renderer.Page(w, r, "categories_list", &render.PageData{
		Title:   "Categories",
		Section: "categories",
		Data: map[string]any{
			"Tree":  category.BuildTree(all),
			"Total": len(all),
		},
	})
}

// New renders an empty category form.
func (h *Categories) New(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, categoryForm{}, true, nil, "")
}

// Create handles the new category form submission.
func (h *Categories) Create(w http.ResponseWriter, r *http.Request) {
	form, fields := parseCategoryForm(r)
	if fields != nil {
		h.renderForm(w, r, http.StatusUnprocessableEntity, form, true, fields, "")
		return
	}

	c, err := h.manager.Create(r.Context(), middleware.IdentityFromCtx(r.Context()), form.input())
	if err != nil {
		h.fail(w, r, "create category", form, true, err)
		return
	}

	render.SetFlash(w, "success", fmt.Sprintf("Category “%s” created.", c.Name))
	http.Redirect(w, r, "/categories", http.StatusSeeOther)
}

// Edit renders the form for an existing category.
func (h *Categories) Edit(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		notFound(h.renderer, w, r)
		return
	}
	c, err := h.manager.Get(r.Context(), id)
	if err != nil {
		respondError(h.renderer, w, r, "load category", err)
		return
	}
	h.renderForm(w, r, http.StatusOK, categoryFormFrom(c), false, nil, "")
}

// Update handles the edit form submission.
func (h *Categories) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		notFound(h.renderer, w, r)
		return
	}

	form, fields := parseCategoryForm(r)
	form.ID = id
	if fields != nil {
		h.renderForm(w, r, http.StatusUnprocessableEntity, form, false, fields, "")
		return
	}

	c, err := h.manager.Update(r.Context(), middleware.IdentityFromCtx(r.Context()), id, form.input())
	if err != nil {
		h.fail(w, r, "update category", form, false, err)
		return
	}

	render.SetFlash(w, "success", fmt.Sprintf("Category “%s” updated.", c.Name))
	http.Redirect(w, r, "/categories", http.StatusSeeOther)
}

// Delete removes a category, promoting its children and detaching its
// articles.
func (h *Categories) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		notFound(h.renderer, w, r)
		return
	}
	c, err := h.manager.Get(r.Context(), id)
	if err != nil {
		respondError(h.renderer, w, r, "load category", err)
		return
	}

	result, err := h.manager.Delete(r.Context(), middleware.IdentityFromCtx(r.Context()), id)
	if err != nil {
		respondError(h.renderer, w, r, "delete category", err)
		return
	}

	msg := fmt.Sprintf("Category “%s” deleted.", c.Name)
	if result.PromotedChildren > 0 {
		msg += fmt.Sprintf(" %d %s moved up.", result.PromotedChildren, plural(result.PromotedChildren, "subcategory", "subcategories"))
	}
	if result.DetachedArticles > 0 {
		msg += fmt.Sprintf(" %d %s now uncategorised.", result.DetachedArticles, plural(result.DetachedArticles, "article is", "articles are"))
	}
	render.SetFlash(w, "success", msg)
	http.Redirect(w, r, "/categories", http.StatusSeeOther)
}

func (h *Categories) fail(w http.ResponseWriter, r *http.Request, action string, form categoryForm, isNew bool, err error) {
	status, fields, general, ok := formFailure(err)
	if !ok {
		respondError(h.renderer, w, r, action, err)
		return
	}
	logFailure(r, action, err)
	h.renderForm(w, r, status, form, isNew, fields, general)
}

func (h *Categories) renderForm(w http.ResponseWriter, r *http.Request, status int, form categoryForm, isNew bool, fields map[string]string, general string) {
	var exclude *uuid.UUID
	if !isNew {
		exclude = &form.ID
	}
	parents, err := h.manager.ParentChoices(r.Context(), exclude)
	if err != nil {
		slog.Error("load parent choices failed", "error", err)
	}

	title := "Edit category"
	if isNew {
		title = "New category"
	}
	h.renderer.PageStatus(w, r, status, "category_form", &render.PageData{
		Title:   title,
		Section: "categories",
		Errors:  fields,
		Error:   general,
		Data: map[string]any{
			"IsNew":   isNew,
			"Form":    form,
			"Parents": parents,
		},
	})
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
