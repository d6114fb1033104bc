package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Default development account created by Seed.
const (
	SeedEmail    = "admin@folio.local"
	SeedPassword = "admin"
)

type seedCategory struct {
	name, slug, description, parent string
}

// seedCategories lists parents before their children.
var seedCategories = []seedCategory{
	{"Technology", "technology", "Articles about the latest in technology and software development", ""},
	{"Web Development", "web-development", "Frontend, backend, and full-stack web development", "technology"},
	{"Mobile Development", "mobile-development", "iOS, Android, and cross-platform mobile app development", "technology"},
	{"Design", "design", "UI/UX design, graphic design, and design thinking", ""},
	{"Business", "business", "Business strategies, startups, and entrepreneurship", ""},
	{"Productivity", "productivity", "Tips and tools for better productivity", ""},
	{"Tutorials", "tutorials", "Step-by-step guides and how-tos", ""},
}

// Seed populates the database with initial development data: a default
// author account and the starter category set. Existing rows are left
// untouched, so Seed can run any number of times.
func Seed(ctx context.Context, db *sql.DB) error {
	if err := seedUser(ctx, db); err != nil {
		return err
	}
	return seedCategoryTree(ctx, db)
}

func seedUser(ctx context.Context, db *sql.DB) error {
	var exists bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`, SeedEmail,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("seed check users: %w", err)
	}
	if exists {
		slog.Info("seed user already present, skipping", "email", SeedEmail)
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(SeedPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed bcrypt: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO users (email, password_hash, display_name)
		VALUES ($1, $2, $3)
	`, SeedEmail, string(hash), "Admin")
	if err != nil {
		return fmt.Errorf("seed insert admin: %w", err)
	}

	slog.Info("database seeded with default user", "email", SeedEmail, "password", SeedPassword)
	return nil
}

func seedCategoryTree(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed begin tx: %w", err)
	}
	defer tx.Rollback()

	ids := make(map[string]uuid.UUID, len(seedCategories))
	created := 0
	for _, c := range seedCategories {
		var parentID *uuid.UUID
		if c.parent != "" {
			if id, ok := ids[c.parent]; ok {
				parentID = &id
			}
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO categories (name, slug, description, parent_id)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT ((LOWER(slug))) DO NOTHING
		`, c.name, c.slug, c.description, parentID)
		if err != nil {
			return fmt.Errorf("seed insert category %s: %w", c.slug, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			created++
		}

		var id uuid.UUID
		err = tx.QueryRowContext(ctx,
			`SELECT id FROM categories WHERE LOWER(slug) = LOWER($1)`, c.slug,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("seed find category %s: %w", c.slug, err)
		}
		ids[c.slug] = id
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed commit: %w", err)
	}

	slog.Info("seed categories applied", "created", created, "total", len(seedCategories))
	return nil
}
