// Package users provides the SQLite-backed repository for user rows.
package users

import (
	"context"

	"github.com/vaultkey/vaultkey/internal/models"
)

// Repository defines user persistence. Lookups return (nil, nil) when the
// user is absent; all storage failures surface as database-kind domain errors.
type Repository interface {
	Create(ctx context.Context, userID string) error
	GetByID(ctx context.Context, userID string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	UpdateLastLogin(ctx context.Context, userID string) error

	// Delete removes the user; tokens and secrets cascade at the store level.
	Delete(ctx context.Context, userID string) error
}
