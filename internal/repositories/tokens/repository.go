// Package tokens provides the SQLite-backed repository for bearer-token rows.
package tokens

import (
	"context"

	"github.com/vaultkey/vaultkey/internal/models"
)

// Repository defines token persistence. A token is valid iff it is not
// revoked and its expiry is strictly in the future, judged by the store's own
// clock. GetValid returns (nil, nil) for absent, revoked and expired tokens
// alike, so callers cannot distinguish those cases from this call alone.
type Repository interface {
	Create(ctx context.Context, tokenHash, userID, expiresAt string) error
	GetValid(ctx context.Context, tokenHash string) (*models.Token, error)

	// ListValid returns the user's valid tokens, newest first.
	ListValid(ctx context.Context, userID string) ([]*models.Token, error)
	CountValid(ctx context.Context, userID string) (int, error)

	// Revoke flips the revocation flag. Idempotent; unknown hashes are a no-op.
	Revoke(ctx context.Context, tokenHash string) error

	// RevokeAllForUser revokes every non-revoked token of the user and
	// returns the number of rows affected.
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)

	UpdateLastUsed(ctx context.Context, tokenHash string) error

	// DeleteOldest physically removes the user's single oldest non-revoked
	// token (capacity eviction). Creation-time ties break by insertion order.
	DeleteOldest(ctx context.Context, userID string) error

	// DeleteExpired removes every expired token regardless of owner and
	// returns the number of rows deleted.
	DeleteExpired(ctx context.Context) (int64, error)
}
