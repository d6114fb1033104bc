package identity

import (
	"context"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"folio/internal/apperr"
	"folio/internal/store/memory"
)

func newTestLocal() *Local {
	l := NewLocal(memory.New().Users())
	l.cost = bcrypt.MinCost
	return l
}

func TestRegisterAndAuthenticate(t *testing.T) {
	l := newTestLocal()
	ctx := context.Background()

	u, err := l.Register(ctx, " ada@folio.local ", "correct horse", " Ada ")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.Email != "ada@folio.local" || u.DisplayName != "Ada" {
		t.Errorf("got email %q name %q", u.Email, u.DisplayName)
	}
	if u.PasswordHash == "correct horse" {
		t.Error("password hash must not be plaintext")
	}

	got, err := l.Authenticate(ctx, "ADA@folio.local", "correct horse")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("Authenticate returned a different user")
	}
}

func TestAuthenticateRejects(t *testing.T) {
	l := newTestLocal()
	ctx := context.Background()
	if _, err := l.Register(ctx, "ada@folio.local", "correct horse", "Ada"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name, email, password string
	}{
		{"wrong password", "ada@folio.local", "wrong horse"},
		{"unknown email", "bob@folio.local", "correct horse"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Authenticate(ctx, tt.email, tt.password)
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("got %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestRegisterValidation(t *testing.T) {
	l := newTestLocal()
	ctx := context.Background()
	if _, err := l.Register(ctx, "taken@folio.local", "password1", "Taken"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name                         string
		email, password, displayName string
		field                        string
	}{
		{"bad email", "not-an-email", "password1", "X", "email"},
		{"named address", "Ada <ada@folio.local>", "password1", "X", "email"},
		{"short password", "a@folio.local", "short", "X", "password"},
		{"long password", "a@folio.local", strings.Repeat("p", 73), "X", "password"},
		{"missing name", "a@folio.local", "password1", "  ", "display_name"},
		{"duplicate email", "TAKEN@folio.local", "password1", "Dup", "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Register(ctx, tt.email, tt.password, tt.displayName)
			v, ok := apperr.AsValidation(err)
			if !ok {
				t.Fatalf("expected validation error, got %v", err)
			}
			if _, ok := v.Fields[tt.field]; !ok {
				t.Errorf("expected error on %q, got %v", tt.field, v.Fields)
			}
		})
	}
}
