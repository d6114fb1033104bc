// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Article is a piece of rich HTML content written by a single author.
// PublishedAt is non-nil exactly when the latest publish-state change
// moved the article into the published state.
type Article struct {
	ID            uuid.UUID  `json:"id"`
	Title         string     `json:"title"`
	Slug          string     `json:"slug"`
	Excerpt       string     `json:"excerpt"`
	Content       string     `json:"content"`
	FeaturedImage *string    `json:"featured_image,omitempty"`
	IsPublished   bool       `json:"is_published"`
	PublishedAt   *time.Time `json:"published_at,omitempty"`
	CategoryID    *uuid.UUID `json:"category_id,omitempty"`
	AuthorID      uuid.UUID  `json:"author_id"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	// Virtual fields populated by list queries.
	CategoryName string `json:"category_name,omitempty"`
	AuthorName   string `json:"author_name,omitempty"`
}

// Status returns "published" or "draft" for display.
func (a *Article) Status() string {
	if a.IsPublished {
		return "published"
	}
	return "draft"
}

// OwnedBy returns true if the article was written by the given identity.
func (a *Article) OwnedBy(who *Identity) bool {
	return who != nil && who.UserID == a.AuthorID
}

// VisibleTo returns true if who may read the article. Drafts are only
// visible to their author.
func (a *Article) VisibleTo(who *Identity) bool {
	return a.IsPublished || a.OwnedBy(who)
}

// ArticleFilter selects articles for listings.
type ArticleFilter struct {
	// PublishedOnly restricts results to published articles.
	PublishedOnly bool
	// OrAuthor additionally includes every article by this author,
	// drafts included. Only meaningful with PublishedOnly.
	OrAuthor *uuid.UUID
	// CategoryIDs restricts results to articles filed under one of these.
	CategoryIDs []uuid.UUID
}
