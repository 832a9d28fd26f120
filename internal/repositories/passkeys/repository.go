// Package passkeys provides the SQLite-backed repository for registered
// public-key credentials.
package passkeys

import (
	"context"

	"github.com/vaultkey/vaultkey/internal/models"
)

// Repository defines passkey persistence. Credential lookups return
// (nil, nil) when absent.
type Repository interface {
	// Create inserts the passkey, assigning it a fresh id, and returns the
	// stored row.
	Create(ctx context.Context, passkey *models.Passkey) (*models.Passkey, error)

	GetByID(ctx context.Context, id string) (*models.Passkey, error)
	GetByCredentialID(ctx context.Context, credentialID string) (*models.Passkey, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Passkey, error)

	// UpdateCounter records the signature counter reported by the
	// authenticator on a successful assertion.
	UpdateCounter(ctx context.Context, id string, counter uint32) error

	UpdateLastUsed(ctx context.Context, id string) error
}
