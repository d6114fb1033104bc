// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"folio/internal/apperr"
	"folio/internal/models"
)

// ArticleStore handles all article-related database operations.
type ArticleStore struct {
	db *sql.DB
}

// NewArticleStore creates a new ArticleStore with the given database connection.
func NewArticleStore(db *sql.DB) *ArticleStore {
	return &ArticleStore{db: db}
}

const articleSelect = `
	SELECT a.id, a.title, a.slug, a.excerpt, a.content, a.featured_image,
	       a.is_published, a.published_at, a.category_id, a.author_id,
	       a.created_at, a.updated_at,
	       COALESCE(c.name, ''), COALESCE(u.display_name, '')
	FROM articles a
	LEFT JOIN categories c ON c.id = a.category_id
	LEFT JOIN users u ON u.id = a.author_id`

func scanArticle(scanner rowScanner) (*models.Article, error) {
	var a models.Article
	err := scanner.Scan(
		&a.ID, &a.Title, &a.Slug, &a.Excerpt, &a.Content, &a.FeaturedImage,
		&a.IsPublished, &a.PublishedAt, &a.CategoryID, &a.AuthorID,
		&a.CreatedAt, &a.UpdatedAt,
		&a.CategoryName, &a.AuthorName,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// FindByID retrieves an article by its UUID regardless of publish state.
// Returns nil if not found.
func (s *ArticleStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Article, error) {
	a, err := scanArticle(s.db.QueryRowContext(ctx, articleSelect+` WHERE a.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find article by id: %w", err)
	}
	return a, nil
}

// FindBySlug retrieves an article by slug, ignoring case and publish
// state. Returns nil if not found.
func (s *ArticleStore) FindBySlug(ctx context.Context, slug string) (*models.Article, error) {
	a, err := scanArticle(s.db.QueryRowContext(ctx, articleSelect+` WHERE LOWER(a.slug) = LOWER($1)`, slug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find article by slug: %w", err)
	}
	return a, nil
}

// List returns the articles matching filter, newest first. Published
// articles sort by publish time, drafts by their last update.
func (s *ArticleStore) List(ctx context.Context, filter models.ArticleFilter) ([]models.Article, error) {
	var (
		where []string
		args  []any
	)
	if filter.PublishedOnly {
		if filter.OrAuthor != nil {
			args = append(args, *filter.OrAuthor)
			where = append(where, fmt.Sprintf("(a.is_published OR a.author_id = $%d)", len(args)))
		} else {
			where = append(where, "a.is_published")
		}
	}
	if len(filter.CategoryIDs) > 0 {
		ids := make([]string, len(filter.CategoryIDs))
		for i, id := range filter.CategoryIDs {
			ids[i] = id.String()
		}
		args = append(args, ids)
		where = append(where, fmt.Sprintf("a.category_id = ANY($%d::uuid[])", len(args)))
	}

	query := articleSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY COALESCE(a.published_at, a.updated_at) DESC, a.created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	var items []models.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		items = append(items, *a)
	}
	return items, rows.Err()
}

// Create inserts a new article and returns it with its joined names.
func (s *ArticleStore) Create(ctx context.Context, a *models.Article) (*models.Article, error) {
	var id uuid.UUID
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO articles (title, slug, excerpt, content, featured_image,
		                      is_published, published_at, category_id, author_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`,
		a.Title, a.Slug, a.Excerpt, a.Content, a.FeaturedImage,
		a.IsPublished, a.PublishedAt, a.CategoryID, a.AuthorID,
	).Scan(&id)
	if conflict := slugConflict(err); conflict != nil {
		return nil, conflict
	}
	if err != nil {
		return nil, fmt.Errorf("create article: %w", err)
	}
	return s.FindByID(ctx, id)
}

// Update writes every editable column of a. The author never changes.
func (s *ArticleStore) Update(ctx context.Context, a *models.Article) error {
	err := s.db.QueryRowContext(ctx, `
		UPDATE articles SET
			title = $1, slug = $2, excerpt = $3, content = $4, featured_image = $5,
			is_published = $6, published_at = $7, category_id = $8, updated_at = NOW()
		WHERE id = $9
		RETURNING updated_at
	`,
		a.Title, a.Slug, a.Excerpt, a.Content, a.FeaturedImage,
		a.IsPublished, a.PublishedAt, a.CategoryID, a.ID,
	).Scan(&a.UpdatedAt)
	if conflict := slugConflict(err); conflict != nil {
		return conflict
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("article", a.ID)
	}
	if err != nil {
		return fmt.Errorf("update article: %w", err)
	}
	return nil
}

// Delete removes an article by ID.
func (s *ArticleStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM articles WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete article: %w", err)
	}
	return nil
}
