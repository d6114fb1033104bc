// Package identity resolves who is making a request. Provider abstracts
// the credential backend; Local is the shipped adapter that checks bcrypt
// hashes stored in the users table.
package identity

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"folio/internal/apperr"
	"folio/internal/models"
)

// ErrInvalidCredentials is returned for an unknown email or a wrong
// password. Callers must not reveal which of the two it was.
var ErrInvalidCredentials = errors.New("invalid email or password")

const (
	minPasswordLen    = 8
	maxPasswordLen    = 72 // bcrypt ignores anything longer
	maxDisplayNameLen = 100
	maxEmailLen       = 254
)

// Provider authenticates and registers authors.
type Provider interface {
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	Register(ctx context.Context, email, password, displayName string) (*models.User, error)
}

// UserRepository is the persistence contract Local needs. Finders return
// (nil, nil) when no row matches.
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, u *models.User) (*models.User, error)
}

// Local is a Provider backed by the users table.
type Local struct {
	users UserRepository
	cost  int
}

// NewLocal creates a Local provider using bcrypt's default cost.
func NewLocal(users UserRepository) *Local {
	return &Local{users: users, cost: bcrypt.DefaultCost}
}

// Authenticate returns the user when email and password match.
func (l *Local) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	u, err := l.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, apperr.Storage("find user by email", err)
	}
	if u == nil {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// Register validates the input and creates a new author account.
func (l *Local) Register(ctx context.Context, email, password, displayName string) (*models.User, error) {
	email = strings.TrimSpace(email)
	displayName = strings.TrimSpace(displayName)

	v := &apperr.ValidationError{}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email || len(email) > maxEmailLen {
		v.Add("email", "Please enter a valid email address.")
	}
	switch {
	case utf8.RuneCountInString(password) < minPasswordLen:
		v.Add("password", "Password must be at least 8 characters.")
	case len(password) > maxPasswordLen:
		v.Add("password", "Password is too long (max 72 bytes).")
	}
	switch {
	case displayName == "":
		v.Add("display_name", "Display name is required.")
	case utf8.RuneCountInString(displayName) > maxDisplayNameLen:
		v.Add("display_name", "Display name is too long (max 100 characters).")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	existing, err := l.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Storage("find user by email", err)
	}
	if existing != nil {
		return nil, apperr.Invalid("email", "An account with this email already exists.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), l.cost)
	if err != nil {
		return nil, apperr.Storage("hash password", err)
	}

	u, err := l.users.Create(ctx, &models.User{
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  displayName,
	})
	if err != nil {
		return nil, apperr.Storage("create user", err)
	}

	slog.Info("user registered", "user_id", u.ID, "email", u.Email)
	return u, nil
}
