package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"folio/internal/article"
	"folio/internal/cache"
	"folio/internal/category"
	"folio/internal/render"
)

// Public serves the reader-facing pages: the home page and the topic
// pages that list published articles per category.
type Public struct {
	renderer   *render.Renderer
	articles   *article.Service
	categories *category.Manager
	cache      PageCache
}

// NewPublic creates a new Public handler group. pages may be nil.
func NewPublic(renderer *render.Renderer, articles *article.Service, categories *category.Manager, pages PageCache) *Public {
	return &Public{
		renderer:   renderer,
		articles:   articles,
		categories: categories,
		cache:      pages,
	}
}

// Home renders the latest published articles and the topic tree.
func (p *Public) Home(w http.ResponseWriter, r *http.Request) {
	key := cache.HomeKey()
	if serveCached(w, r, p.cache, key) {
		return
	}

	items, err := p.articles.ListPublished(r.Context())
	if err != nil {
		respondError(p.renderer, w, r, "list published articles", err)
		return
	}
	tree, err := p.categories.Tree(r.Context())
	if err != nil {
		respondError(p.renderer, w, r, "load category tree", err)
		return
	}

	renderCached(p.renderer, p.cache, w, r, key, "home", &render.PageData{
		Title:   "Home",
		Section: "home",
		Data: map[string]any{
			"Articles": items,
			"Topics":   tree,
		},
	})
}

// Topic renders a category with the published articles filed under it
// or any of its descendants.
func (p *Public) Topic(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "slug")
	key := cache.TopicKey(ref)
	if serveCached(w, r, p.cache, key) {
		return
	}

	cat, err := p.categories.GetBySlug(r.Context(), ref)
	if err != nil {
		respondError(p.renderer, w, r, "load topic", err)
		return
	}
	all, err := p.categories.List(r.Context())
	if err != nil {
		respondError(p.renderer, w, r, "list categories", err)
		return
	}

	ids := []uuid.UUID{cat.ID}
	for id := range category.Descendants(all, cat.ID) {
		if id != cat.ID {
			ids = append(ids, id)
		}
	}
	items, err := p.articles.ListPublished(r.Context(), ids...)
	if err != nil {
		respondError(p.renderer, w, r, "list topic articles", err)
		return
	}

	var children []*category.TreeNode
	for _, n := range category.Flatten(category.BuildTree(all)) {
		if n.ID == cat.ID {
			children = n.Children
			break
		}
	}

	renderCached(p.renderer, p.cache, w, r, key, "topic", &render.PageData{
		Title:   cat.Name,
		Section: "home",
		Data: map[string]any{
			"Category": cat,
			"Path":     category.Ancestors(all, cat.ID),
			"Children": children,
			"Articles": items,
		},
	})
}
