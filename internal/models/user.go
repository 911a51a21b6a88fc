package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered user account.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string `json:"id"`

	// Email is the user's email address (unique).
	Email string `json:"email"`

	// DisplayName is used when a participant is created from this user.
	DisplayName string `json:"displayName"`

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string `json:"-"`

	// DefaultCurrency is copied to the user's participant on bootstrap.
	DefaultCurrency string `json:"defaultCurrency"`

	CreatedAt int64 `json:"createdAt"`
	UpdatedAt int64 `json:"updatedAt"`
}

// NewUser creates a user with a fresh ID and timestamps.
func NewUser(email, displayName, passwordHash string) *User {
	now := time.Now().Unix()
	return &User{
		ID:              uuid.New().String(),
		Email:           email,
		DisplayName:     displayName,
		PasswordHash:    passwordHash,
		DefaultCurrency: DefaultCurrency,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
