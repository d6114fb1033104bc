package database

import (
	"context"
	"testing"
)

func TestSeedIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := Connect(ctx, testDSN())
	if err != nil {
		t.Skipf("skipping: DB not available: %v", err)
	}
	defer db.Close()

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	// Other packages may share this database, so nothing is truncated
	// first. Seed only inserts what is missing.
	if err := Seed(ctx, db); err != nil {
		t.Fatalf("first Seed: %v", err)
	}
	if err := Seed(ctx, db); err != nil {
		t.Fatalf("second Seed: %v", err)
	}

	var users int
	if err := db.QueryRow("SELECT COUNT(*) FROM users WHERE LOWER(email) = $1", SeedEmail).Scan(&users); err != nil {
		t.Fatalf("count seed users: %v", err)
	}
	if users != 1 {
		t.Errorf("seed users: got %d, want 1", users)
	}

	for _, c := range seedCategories {
		var n int
		if err := db.QueryRow("SELECT COUNT(*) FROM categories WHERE LOWER(slug) = $1", c.slug).Scan(&n); err != nil {
			t.Fatalf("count %s: %v", c.slug, err)
		}
		if n != 1 {
			t.Errorf("category %s: got %d rows, want 1", c.slug, n)
		}
	}

	var parent string
	err = db.QueryRow(`
		SELECT p.slug FROM categories c JOIN categories p ON p.id = c.parent_id
		WHERE c.slug = 'web-development'
	`).Scan(&parent)
	if err != nil {
		t.Fatalf("find web-development parent: %v", err)
	}
	if parent != "technology" {
		t.Errorf("web-development parent: got %q, want %q", parent, "technology")
	}
}
