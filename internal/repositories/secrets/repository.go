// Package secrets provides the SQLite-backed repository for encrypted secret
// rows, addressed by the (userId, key) composite identity.
package secrets

import (
	"context"

	"github.com/vaultkey/vaultkey/internal/models"
)

// ListOptions narrows a listing. The zero value lists the user's live
// (non-expired) secrets.
type ListOptions struct {
	// IncludeExpired keeps rows whose expiry has passed.
	IncludeExpired bool

	// Pattern filters keys with a glob where '*' matches any run of
	// characters. Empty means no filter.
	Pattern string
}

// Repository defines secret persistence. Get returns (nil, nil) when the row
// is absent and applies no expiry filter; deciding what "expired" means for a
// single read is the service layer's job. All storage failures surface as
// database-kind domain errors.
type Repository interface {
	Create(ctx context.Context, secret *models.Secret) error
	Get(ctx context.Context, userID, key string) (*models.Secret, error)

	// Update replaces value and expiry in place and stamps updatedAt/updatedBy.
	Update(ctx context.Context, secret *models.Secret) error

	Delete(ctx context.Context, userID, key string) error
	List(ctx context.Context, userID string, opts ListOptions) ([]*models.Secret, error)
	ListExpired(ctx context.Context, userID string) ([]*models.Secret, error)

	// DeleteExpired removes the user's expired secrets, returning the count.
	DeleteExpired(ctx context.Context, userID string) (int64, error)

	UpdateLastAccessed(ctx context.Context, userID, key string) error

	// DeleteAllForUser removes every secret of the user, returning the count.
	DeleteAllForUser(ctx context.Context, userID string) (int64, error)
}
