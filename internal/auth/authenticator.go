package auth

import (
	"context"

	"github.com/splitit-app/splitit/internal/models"
)

// Authenticator abstracts the credential scheme so the HTTP layer does not
// care whether accounts use passwords, OAuth, or something else.
type Authenticator interface {
	// Register creates a new account with the given email and credential.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate verifies the credentials and returns the user if valid.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential checks whether the credential meets the scheme's
	// minimum requirements before any storage work happens.
	ValidateCredential(credential string) error
}
