// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package category owns the category hierarchy: it validates and persists
// create, update and delete operations while keeping the parent relation a
// forest, and builds the materialized tree used by the rendering layer.
package category

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"folio/internal/apperr"
	"folio/internal/models"
	"folio/internal/slug"
)

// Validation limits for category fields.
const (
	maxNameLen        = 200
	maxSlugLen        = 200
	maxDescriptionLen = 1_000
)

// Field messages shown next to the offending form input.
const (
	msgNameRequired     = "Name is required."
	msgNameTooLong      = "Name is too long (max 200 characters)."
	msgSlugRequired     = "Slug is required."
	msgSlugInvalid      = "Slug may only contain letters, digits, hyphens and underscores."
	msgSlugTooLong      = "Slug is too long (max 200 characters)."
	msgSlugTaken        = "This slug is already in use. Please choose another one."
	msgDescTooLong      = "Description is too long (max 1,000 characters)."
	msgSelfParent       = "A category cannot be its own parent."
	msgParentDescendant = "A category cannot be moved under one of its own subcategories."
)

// Repository is the persistence contract the manager needs. Finders
// return (nil, nil) when no row matches.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	// FindBySlug matches case-insensitively.
	FindBySlug(ctx context.Context, slug string) (*models.Category, error)
	ListByParent(ctx context.Context, parentID *uuid.UUID) ([]models.Category, error)
	List(ctx context.Context) ([]models.Category, error)
	Create(ctx context.Context, c *models.Category) (*models.Category, error)
	Update(ctx context.Context, c *models.Category) error
	// Delete re-parents the category's children to its parent, clears the
	// category on referencing articles, and removes the row atomically.
	Delete(ctx context.Context, id uuid.UUID) (*models.CategoryDeletion, error)
}

// Observer receives the outcome of every mutation, e.g. for metrics.
type Observer interface {
	ObserveMutation(entity, op string, err error)
}

// Input carries the user-editable fields of a category. An empty Slug is
// derived from Name.
type Input struct {
	Name        string
	Slug        string
	Description string
	ParentID    *uuid.UUID
}

// Manager validates and applies category mutations.
type Manager struct {
	repo     Repository
	observer Observer
}

// NewManager creates a Manager. observer may be nil.
func NewManager(repo Repository, observer Observer) *Manager {
	return &Manager{repo: repo, observer: observer}
}

func (m *Manager) observe(op string, err error) {
	if m.observer != nil {
		m.observer.ObserveMutation("category", op, err)
	}
}

// Get returns a category by id.
func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	c, err := m.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.Storage("find category", err)
	}
	if c == nil {
		return nil, apperr.NotFound("category", id)
	}
	return c, nil
}

// GetBySlug returns a category by slug, compared case-insensitively.
func (m *Manager) GetBySlug(ctx context.Context, s string) (*models.Category, error) {
	c, err := m.repo.FindBySlug(ctx, s)
	if err != nil {
		return nil, apperr.Storage("find category by slug", err)
	}
	if c == nil {
		return nil, &apperr.NotFoundError{Resource: "category", ID: s}
	}
	return c, nil
}

// List returns every category with child and article counts.
func (m *Manager) List(ctx context.Context) ([]models.Category, error) {
	all, err := m.repo.List(ctx)
	if err != nil {
		return nil, apperr.Storage("list categories", err)
	}
	return all, nil
}

// Tree reads the current categories and builds the forest. Nothing is
// cached between calls.
func (m *Manager) Tree(ctx context.Context) ([]*TreeNode, error) {
	all, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	return BuildTree(all), nil
}

// ParentChoices returns the categories that may serve as parent of
// exclude, in indented display order. exclude and its descendants are
// left out. A nil exclude returns every category.
func (m *Manager) ParentChoices(ctx context.Context, exclude *uuid.UUID) ([]*TreeNode, error) {
	all, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	flat := Flatten(BuildTree(all))
	if exclude == nil {
		return flat, nil
	}

	banned := Descendants(all, *exclude)
	banned[*exclude] = struct{}{}

	choices := make([]*TreeNode, 0, len(flat))
	for _, n := range flat {
		if _, skip := banned[n.ID]; !skip {
			choices = append(choices, n)
		}
	}
	return choices, nil
}

// Create validates in and inserts a new category. Checks run in order:
// required fields, slug uniqueness, parent existence.
func (m *Manager) Create(ctx context.Context, who *models.Identity, in Input) (created *models.Category, err error) {
	defer func() { m.observe("create", err) }()

	if who == nil {
		return nil, apperr.Unauthenticated()
	}

	in, err = normalize(in)
	if err != nil {
		return nil, err
	}
	if err := m.ensureSlugFree(ctx, in.Slug, uuid.Nil); err != nil {
		return nil, err
	}
	if in.ParentID != nil {
		if err := m.ensureParentExists(ctx, *in.ParentID); err != nil {
			return nil, err
		}
	}

	created, err = m.repo.Create(ctx, &models.Category{
		Name:        in.Name,
		Slug:        in.Slug,
		Description: in.Description,
		ParentID:    in.ParentID,
	})
	if err != nil {
		return nil, apperr.Storage("create category", err)
	}

	slog.Info("category created", "id", created.ID, "slug", created.Slug, "user_id", who.UserID)
	return created, nil
}

// Update validates in and applies it to category id. Besides the create
// checks it rejects self-parenting and moving a category under one of
// its own descendants. Nothing is written when a check fails.
func (m *Manager) Update(ctx context.Context, who *models.Identity, id uuid.UUID, in Input) (updated *models.Category, err error) {
	defer func() { m.observe("update", err) }()

	if who == nil {
		return nil, apperr.Unauthenticated()
	}

	existing, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	in, err = normalize(in)
	if err != nil {
		return nil, err
	}
	if err := m.ensureSlugFree(ctx, in.Slug, id); err != nil {
		return nil, err
	}
	if in.ParentID != nil {
		if *in.ParentID == id {
			return nil, apperr.Invalid("parent_id", msgSelfParent)
		}
		if err := m.ensureParentExists(ctx, *in.ParentID); err != nil {
			return nil, err
		}
		all, err := m.List(ctx)
		if err != nil {
			return nil, err
		}
		if IsDescendant(all, id, *in.ParentID) {
			return nil, apperr.Invalid("parent_id", msgParentDescendant)
		}
	}

	existing.Name = in.Name
	existing.Slug = in.Slug
	existing.Description = in.Description
	existing.ParentID = in.ParentID

	if err := m.repo.Update(ctx, existing); err != nil {
		return nil, apperr.Storage("update category", err)
	}

	slog.Info("category updated", "id", id, "slug", existing.Slug, "user_id", who.UserID)
	return existing, nil
}

// Delete removes category id. Its direct children move up to its parent
// (or become top-level) and articles filed under it lose their category.
func (m *Manager) Delete(ctx context.Context, who *models.Identity, id uuid.UUID) (result *models.CategoryDeletion, err error) {
	defer func() { m.observe("delete", err) }()

	if who == nil {
		return nil, apperr.Unauthenticated()
	}

	existing, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	result, err = m.repo.Delete(ctx, id)
	if err != nil {
		return nil, apperr.Storage("delete category", err)
	}

	slog.Info("category deleted",
		"id", id,
		"slug", existing.Slug,
		"promoted_children", result.PromotedChildren,
		"detached_articles", result.DetachedArticles,
		"user_id", who.UserID,
	)
	return result, nil
}

// Children returns the direct children of id, or the top-level
// categories when id is nil.
func (m *Manager) Children(ctx context.Context, id *uuid.UUID) ([]models.Category, error) {
	children, err := m.repo.ListByParent(ctx, id)
	if err != nil {
		return nil, apperr.Storage("list child categories", err)
	}
	return children, nil
}

// ensureSlugFree fails when another category (other than self) already
// uses s, compared case-insensitively.
func (m *Manager) ensureSlugFree(ctx context.Context, s string, self uuid.UUID) error {
	other, err := m.repo.FindBySlug(ctx, s)
	if err != nil {
		return apperr.Storage("find category by slug", err)
	}
	if other != nil && other.ID != self {
		return apperr.Invalid("slug", msgSlugTaken)
	}
	return nil
}

func (m *Manager) ensureParentExists(ctx context.Context, parentID uuid.UUID) error {
	parent, err := m.repo.FindByID(ctx, parentID)
	if err != nil {
		return apperr.Storage("find parent category", err)
	}
	if parent == nil {
		return apperr.NotFound("parent category", parentID)
	}
	return nil
}

// normalize trims the input, derives a missing slug and checks required
// fields and lengths. Every failing field is reported at once.
func normalize(in Input) (Input, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Slug = strings.TrimSpace(in.Slug)
	in.Description = strings.TrimSpace(in.Description)
	if in.Slug == "" {
		in.Slug = slug.Derive(in.Name)
	}

	v := &apperr.ValidationError{}
	switch {
	case in.Name == "":
		v.Add("name", msgNameRequired)
	case utf8.RuneCountInString(in.Name) > maxNameLen:
		v.Add("name", msgNameTooLong)
	}
	switch {
	case in.Slug == "":
		v.Add("slug", msgSlugRequired)
	case !slug.Valid(in.Slug):
		v.Add("slug", msgSlugInvalid)
	case utf8.RuneCountInString(in.Slug) > maxSlugLen:
		v.Add("slug", msgSlugTooLong)
	}
	if utf8.RuneCountInString(in.Description) > maxDescriptionLen {
		v.Add("description", msgDescTooLong)
	}
	return in, v.OrNil()
}
