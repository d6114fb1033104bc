// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"folio/internal/apperr"
	"folio/internal/models"
)

// CategoryStore manages categories in the database.
type CategoryStore struct {
	db *sql.DB
}

// NewCategoryStore returns a new CategoryStore.
func NewCategoryStore(db *sql.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

const categorySelect = `
	SELECT c.id, c.name, c.slug, c.description, c.parent_id, c.created_at, c.updated_at,
	       (SELECT COUNT(*) FROM categories ch WHERE ch.parent_id = c.id) AS child_count,
	       (SELECT COUNT(*) FROM articles a WHERE a.category_id = c.id) AS article_count
	FROM categories c`

// scanCategory scans a categorySelect row into a Category struct.
func scanCategory(scanner rowScanner) (*models.Category, error) {
	var c models.Category
	err := scanner.Scan(
		&c.ID, &c.Name, &c.Slug, &c.Description, &c.ParentID,
		&c.CreatedAt, &c.UpdatedAt, &c.ChildCount, &c.ArticleCount,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *CategoryStore) query(ctx context.Context, op, tail string, args ...any) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx, categorySelect+tail, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var items []models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

// List returns all categories ordered by name, with child and article counts.
func (s *CategoryStore) List(ctx context.Context) ([]models.Category, error) {
	return s.query(ctx, "list categories", ` ORDER BY LOWER(c.name), c.slug`)
}

// ListByParent returns the direct children of parentID, or the top-level
// categories when parentID is nil.
func (s *CategoryStore) ListByParent(ctx context.Context, parentID *uuid.UUID) ([]models.Category, error) {
	if parentID == nil {
		return s.query(ctx, "list top-level categories", ` WHERE c.parent_id IS NULL ORDER BY LOWER(c.name), c.slug`)
	}
	return s.query(ctx, "list child categories", ` WHERE c.parent_id = $1 ORDER BY LOWER(c.name), c.slug`, *parentID)
}

// FindByID retrieves a category by ID. Returns nil if not found.
func (s *CategoryStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	c, err := scanCategory(s.db.QueryRowContext(ctx, categorySelect+` WHERE c.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find category by id: %w", err)
	}
	return c, nil
}

// FindBySlug retrieves a category by slug, ignoring case. Returns nil if
// not found.
func (s *CategoryStore) FindBySlug(ctx context.Context, slug string) (*models.Category, error) {
	c, err := scanCategory(s.db.QueryRowContext(ctx, categorySelect+` WHERE LOWER(c.slug) = LOWER($1)`, slug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find category by slug: %w", err)
	}
	return c, nil
}

// Create inserts a new category and returns it.
func (s *CategoryStore) Create(ctx context.Context, c *models.Category) (*models.Category, error) {
	var id uuid.UUID
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO categories (name, slug, description, parent_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, c.Name, c.Slug, c.Description, c.ParentID).Scan(&id)
	if conflict := slugConflict(err); conflict != nil {
		return nil, conflict
	}
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return s.FindByID(ctx, id)
}

// Update modifies an existing category.
func (s *CategoryStore) Update(ctx context.Context, c *models.Category) error {
	err := s.db.QueryRowContext(ctx, `
		UPDATE categories SET
			name = $1, slug = $2, description = $3, parent_id = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING updated_at
	`, c.Name, c.Slug, c.Description, c.ParentID, c.ID).Scan(&c.UpdatedAt)
	if conflict := slugConflict(err); conflict != nil {
		return conflict
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("category", c.ID)
	}
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return nil
}

// Delete removes a category in one transaction: its children move up to
// its parent (or the top level), articles filed under it lose their
// category, then the row is deleted. The row lock on the category keeps
// a concurrent delete of the same row from double-counting.
func (s *CategoryStore) Delete(ctx context.Context, id uuid.UUID) (*models.CategoryDeletion, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var parentID *uuid.UUID
	err = tx.QueryRowContext(ctx, `SELECT parent_id FROM categories WHERE id = $1 FOR UPDATE`, id).Scan(&parentID)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.CategoryDeletion{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lock category: %w", err)
	}

	result := &models.CategoryDeletion{}

	// On a stored cycle the grandparent can be one of the children; that
	// child becomes top-level instead of its own parent.
	res, err := tx.ExecContext(ctx, `
		UPDATE categories
		SET parent_id = CASE WHEN id = $1 THEN NULL ELSE $1 END, updated_at = NOW()
		WHERE parent_id = $2
	`, parentID, id)
	if err != nil {
		return nil, fmt.Errorf("promote child categories: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		result.PromotedChildren = int(n)
	}

	res, err = tx.ExecContext(ctx, `UPDATE articles SET category_id = NULL WHERE category_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("detach articles: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		result.DetachedArticles = int(n)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("delete category: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit category delete: %w", err)
	}
	return result, nil
}
