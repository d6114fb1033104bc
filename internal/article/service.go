// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package article implements article authoring: validation, slug
// assignment, HTML sanitising, publish-state transitions and the
// author-only ownership rule for edits and deletes.
package article

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"folio/internal/apperr"
	"folio/internal/models"
	"folio/internal/slug"
)

// Validation limits for article fields.
const (
	maxTitleLen    = 300
	maxSlugLen     = 300
	maxContentLen  = 100_000
	maxExcerptLen  = 1_000
	maxImageURLLen = 2_000

	// excerptLen is the length of generated excerpts, in runes.
	excerptLen = 200

	// maxSlugAttempts bounds the numeric suffix search for derived slugs.
	maxSlugAttempts = 100
)

// Repository is the persistence contract for articles. Finders return
// (nil, nil) when no row matches.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Article, error)
	// FindBySlug matches case-insensitively and ignores publish state.
	FindBySlug(ctx context.Context, slug string) (*models.Article, error)
	List(ctx context.Context, filter models.ArticleFilter) ([]models.Article, error)
	Create(ctx context.Context, a *models.Article) (*models.Article, error)
	Update(ctx context.Context, a *models.Article) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// CategoryFinder resolves category references.
type CategoryFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
}

// Observer receives the outcome of every mutation, e.g. for metrics.
type Observer interface {
	ObserveMutation(entity, op string, err error)
}

// Input carries the user-editable fields of an article.
type Input struct {
	Title         string
	Slug          string
	Excerpt       string
	Content       string
	FeaturedImage string
	IsPublished   bool
	CategoryID    *uuid.UUID
}

// Service applies article operations on behalf of an identity.
type Service struct {
	repo       Repository
	categories CategoryFinder
	observer   Observer
	content    *bluemonday.Policy
	plain      *bluemonday.Policy
	now        func() time.Time
}

// NewService creates an article Service. observer may be nil.
func NewService(repo Repository, categories CategoryFinder, observer Observer) *Service {
	return &Service{
		repo:       repo,
		categories: categories,
		observer:   observer,
		content:    bluemonday.UGCPolicy(),
		plain:      bluemonday.StrictPolicy(),
		now:        time.Now,
	}
}

func (s *Service) observe(op string, err error) {
	if s.observer != nil {
		s.observer.ObserveMutation("article", op, err)
	}
}

// Get returns article id if who may read it. Drafts of other authors
// are reported as not found.
func (s *Service) Get(ctx context.Context, who *models.Identity, id uuid.UUID) (*models.Article, error) {
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.Storage("find article", err)
	}
	if a == nil || !a.VisibleTo(who) {
		return nil, apperr.NotFound("article", id)
	}
	return a, nil
}

// GetBySlug is Get keyed by slug.
func (s *Service) GetBySlug(ctx context.Context, who *models.Identity, articleSlug string) (*models.Article, error) {
	a, err := s.repo.FindBySlug(ctx, articleSlug)
	if err != nil {
		return nil, apperr.Storage("find article by slug", err)
	}
	if a == nil || !a.VisibleTo(who) {
		return nil, &apperr.NotFoundError{Resource: "article", ID: articleSlug}
	}
	return a, nil
}

// GetForEdit returns article id if who is its author.
func (s *Service) GetForEdit(ctx context.Context, who *models.Identity, id uuid.UUID) (*models.Article, error) {
	if who == nil {
		return nil, apperr.Unauthenticated()
	}
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.Storage("find article", err)
	}
	if a == nil {
		return nil, apperr.NotFound("article", id)
	}
	if !a.OwnedBy(who) {
		return nil, apperr.Forbidden("only the author can edit this article")
	}
	return a, nil
}

// ListVisible returns published articles plus who's own drafts.
func (s *Service) ListVisible(ctx context.Context, who *models.Identity) ([]models.Article, error) {
	filter := models.ArticleFilter{PublishedOnly: true}
	if who != nil {
		filter.OrAuthor = &who.UserID
	}
	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apperr.Storage("list articles", err)
	}
	return items, nil
}

// ListPublished returns published articles, optionally restricted to the
// given categories.
func (s *Service) ListPublished(ctx context.Context, categoryIDs ...uuid.UUID) ([]models.Article, error) {
	items, err := s.repo.List(ctx, models.ArticleFilter{PublishedOnly: true, CategoryIDs: categoryIDs})
	if err != nil {
		return nil, apperr.Storage("list published articles", err)
	}
	return items, nil
}

// Create validates in and stores a new article authored by who.
func (s *Service) Create(ctx context.Context, who *models.Identity, in Input) (created *models.Article, err error) {
	defer func() { s.observe("create", err) }()

	if who == nil {
		return nil, apperr.Unauthenticated()
	}

	in, err = s.prepare(ctx, in, uuid.Nil)
	if err != nil {
		return nil, err
	}

	a := &models.Article{AuthorID: who.UserID}
	s.apply(a, in)

	created, err = s.repo.Create(ctx, a)
	if err != nil {
		return nil, apperr.Storage("create article", err)
	}

	slog.Info("article created", "id", created.ID, "slug", created.Slug, "published", created.IsPublished, "user_id", who.UserID)
	return created, nil
}

// Update validates in and applies it to article id. Only the author may
// update an article.
func (s *Service) Update(ctx context.Context, who *models.Identity, id uuid.UUID, in Input) (updated *models.Article, err error) {
	defer func() { s.observe("update", err) }()

	existing, err := s.GetForEdit(ctx, who, id)
	if err != nil {
		return nil, err
	}

	in, err = s.prepare(ctx, in, id)
	if err != nil {
		return nil, err
	}

	s.apply(existing, in)

	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, apperr.Storage("update article", err)
	}

	slog.Info("article updated", "id", id, "slug", existing.Slug, "published", existing.IsPublished, "user_id", who.UserID)
	return existing, nil
}

// Delete removes article id. Only the author may delete an article.
func (s *Service) Delete(ctx context.Context, who *models.Identity, id uuid.UUID) (err error) {
	defer func() { s.observe("delete", err) }()

	if who == nil {
		return apperr.Unauthenticated()
	}
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return apperr.Storage("find article", err)
	}
	if a == nil {
		return apperr.NotFound("article", id)
	}
	if !a.OwnedBy(who) {
		return apperr.Forbidden("only the author can delete this article")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return apperr.Storage("delete article", err)
	}

	slog.Info("article deleted", "id", id, "slug", a.Slug, "user_id", who.UserID)
	return nil
}

// apply copies validated input onto a and moves the publish state.
func (s *Service) apply(a *models.Article, in Input) {
	a.Title = in.Title
	a.Slug = in.Slug
	a.Excerpt = in.Excerpt
	a.Content = in.Content
	a.CategoryID = in.CategoryID
	a.FeaturedImage = nil
	if in.FeaturedImage != "" {
		img := in.FeaturedImage
		a.FeaturedImage = &img
	}
	setPublished(a, in.IsPublished, s.now())
}

// setPublished moves a into the requested publish state. Publishing
// stamps PublishedAt, unpublishing clears it, and saving without a state
// change keeps the existing timestamp.
func setPublished(a *models.Article, publish bool, now time.Time) {
	switch {
	case publish && !a.IsPublished:
		a.PublishedAt = &now
	case !publish && a.IsPublished:
		a.PublishedAt = nil
	}
	a.IsPublished = publish
}

// prepare trims and sanitises in, validates every field, resolves the
// slug and fills a missing excerpt. self is the article being updated,
// or uuid.Nil on create.
func (s *Service) prepare(ctx context.Context, in Input, self uuid.UUID) (Input, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Slug = strings.TrimSpace(in.Slug)
	in.Excerpt = strings.TrimSpace(in.Excerpt)
	in.FeaturedImage = strings.TrimSpace(in.FeaturedImage)
	in.Content = strings.TrimSpace(s.content.Sanitize(in.Content))

	v := &apperr.ValidationError{}
	switch {
	case in.Title == "":
		v.Add("title", "Title is required.")
	case utf8.RuneCountInString(in.Title) > maxTitleLen:
		v.Add("title", "Title is too long (max 300 characters).")
	}
	switch {
	case in.Content == "":
		v.Add("content", "Content is required.")
	case utf8.RuneCountInString(in.Content) > maxContentLen:
		v.Add("content", "Content is too long (max 100,000 characters).")
	}
	if utf8.RuneCountInString(in.Excerpt) > maxExcerptLen {
		v.Add("excerpt", "Excerpt is too long (max 1,000 characters).")
	}
	if in.Slug != "" {
		switch {
		case !slug.Valid(in.Slug):
			v.Add("slug", "Slug may only contain letters, digits, hyphens and underscores.")
		case utf8.RuneCountInString(in.Slug) > maxSlugLen:
			v.Add("slug", "Slug is too long (max 300 characters).")
		}
	}
	if in.FeaturedImage != "" && !validImageURL(in.FeaturedImage) {
		v.Add("featured_image", "Featured image must be an absolute http(s) URL.")
	}
	if err := v.OrNil(); err != nil {
		return in, err
	}

	if in.CategoryID != nil {
		c, err := s.categories.FindByID(ctx, *in.CategoryID)
		if err != nil {
			return in, apperr.Storage("find category", err)
		}
		if c == nil {
			return in, apperr.Invalid("category_id", "Selected category does not exist.")
		}
	}

	var err error
	if in.Slug != "" {
		err = s.ensureSlugFree(ctx, in.Slug, self)
	} else {
		in.Slug, err = s.uniqueSlug(ctx, slug.Derive(in.Title), self)
	}
	if err != nil {
		return in, err
	}

	if in.Excerpt == "" {
		in.Excerpt = s.excerpt(in.Content)
	}
	return in, nil
}

func (s *Service) ensureSlugFree(ctx context.Context, candidate string, self uuid.UUID) error {
	other, err := s.repo.FindBySlug(ctx, candidate)
	if err != nil {
		return apperr.Storage("find article by slug", err)
	}
	if other != nil && other.ID != self {
		return apperr.Invalid("slug", "This slug is already in use. Please choose another one.")
	}
	return nil
}

// uniqueSlug returns base, or base with the first free numeric suffix
// ("base-1", "base-2", ...).
func (s *Service) uniqueSlug(ctx context.Context, base string, self uuid.UUID) (string, error) {
	if base == "" {
		return "", apperr.Invalid("slug", "A slug could not be derived from the title. Please enter one.")
	}
	if len(base) > maxSlugLen-10 {
		base = strings.TrimRight(base[:maxSlugLen-10], "-")
	}

	candidate := base
	for n := 1; n <= maxSlugAttempts; n++ {
		other, err := s.repo.FindBySlug(ctx, candidate)
		if err != nil {
			return "", apperr.Storage("find article by slug", err)
		}
		if other == nil || other.ID == self {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
	return base + "-" + uuid.NewString()[:8], nil
}

// excerpt returns the first excerptLen runes of the content's text.
func (s *Service) excerpt(content string) string {
	// Pad tags so adjacent blocks don't glue words together.
	text := s.plain.Sanitize(strings.ReplaceAll(content, ">", "> "))
	text = strings.Join(strings.Fields(html.UnescapeString(text)), " ")
	if utf8.RuneCountInString(text) <= excerptLen {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:excerptLen])) + "..."
}

func validImageURL(raw string) bool {
	if len(raw) > maxImageURLLen {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
