// Package models defines the data structures that map to database tables
// and provides the core types used throughout the application.
package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents an author account managed by the identity provider.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never serialize the hash
	DisplayName  string    `json:"display_name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Identity is the resolved requester passed explicitly into service
// operations. A nil *Identity means the request is anonymous.
type Identity struct {
	UserID      uuid.UUID
	Email       string
	DisplayName string
}

// Identity returns the identity of an authenticated user.
func (u *User) Identity() *Identity {
	return &Identity{UserID: u.ID, Email: u.Email, DisplayName: u.DisplayName}
}
