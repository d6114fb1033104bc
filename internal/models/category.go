// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Category represents a hierarchical article category. A nil ParentID
// marks a top-level category.
type Category struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	Description string     `json:"description,omitempty"`
	ParentID    *uuid.UUID `json:"parent_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Virtual fields populated by list queries.
	ChildCount   int `json:"child_count"`
	ArticleCount int `json:"article_count"`
}

// IsTopLevel returns true if the category has no parent.
func (c *Category) IsTopLevel() bool {
	return c.ParentID == nil
}

// HasParent returns true if the category's parent is id.
func (c *Category) HasParent(id uuid.UUID) bool {
	return c.ParentID != nil && *c.ParentID == id
}

// CategoryDeletion summarises the side effects of deleting a category.
type CategoryDeletion struct {
	// PromotedChildren is the number of direct children moved up to the
	// deleted category's parent (or to the top level).
	PromotedChildren int
	// DetachedArticles is the number of articles whose category was cleared.
	DetachedArticles int
}
