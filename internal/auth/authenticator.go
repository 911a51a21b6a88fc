package auth

import (
	"context"

	"github.com/mmynk/ledger/internal/models"
)

// Authenticator registers and signs in ledger users.
// Implementations differ only in the credential they accept.
type Authenticator interface {
	// Register creates a user account. The email is normalized first.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate returns the user owning email if credential matches.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential checks the credential before anything is stored.
	ValidateCredential(credential string) error
}
