// Package auth implements the bearer-token lifecycle: issuing with per-user
// capacity eviction, verification, and revocation.
package auth

import (
	"context"
	"time"

	"github.com/vaultkey/vaultkey/internal/common"
	"github.com/vaultkey/vaultkey/internal/cryptox"
	"github.com/vaultkey/vaultkey/internal/logging"
	"github.com/vaultkey/vaultkey/internal/models"
	"github.com/vaultkey/vaultkey/internal/repositories/tokens"
)

// IssuedToken is the result of a successful token grant. Token is the
// plaintext bearer value and is never persisted; this is the caller's only
// chance to capture it.
type IssuedToken struct {
	Token     string
	TokenHash string
	ExpiresAt string
}

// TokenManager issues, verifies and revokes bearer tokens against the token
// repository. Expiry is computed on the manager's clock at issue time, while
// validity checks compare against the store's clock.
type TokenManager struct {
	repo tokens.Repository
	log  logging.Logger
	now  func() time.Time
}

// NewTokenManager constructs a manager over the given repository.
func NewTokenManager(repo tokens.Repository, log logging.Logger) *TokenManager {
	return &TokenManager{
		repo: repo,
		log:  log,
		now:  time.Now,
	}
}

// IssueToken grants a fresh bearer token to userID with the given lifetime.
// When the user already holds maxTokensPerUser valid tokens, the oldest
// non-revoked ones are evicted until the new token fits under the cap.
// A non-positive ttl is accepted and yields an already-expired token.
//
// Eviction and insertion are separate statements, not one transaction. A
// concurrent issuer can transiently push a user one token over the cap; the
// next grant corrects it.
func (m *TokenManager) IssueToken(ctx context.Context, userID string, ttl time.Duration, maxTokensPerUser int) (*IssuedToken, error) {
	if err := common.ValidateUserID(userID); err != nil {
		return nil, err
	}

	if maxTokensPerUser > 0 {
		count, err := m.repo.CountValid(ctx, userID)
		if err != nil {
			return nil, err
		}
		for ; count >= maxTokensPerUser; count-- {
			if err := m.repo.DeleteOldest(ctx, userID); err != nil {
				return nil, err
			}
			m.log.Debug(ctx, "evicted oldest token", "userId", userID)
		}
	}

	token, err := cryptox.GenerateToken()
	if err != nil {
		return nil, err
	}
	tokenHash := cryptox.HashToken(token)
	expiresAt := common.FormatTime(m.now().Add(ttl))

	if err := m.repo.Create(ctx, tokenHash, userID, expiresAt); err != nil {
		return nil, err
	}

	m.log.Info(ctx, "token issued", "userId", userID, "expiresAt", expiresAt)
	return &IssuedToken{Token: token, TokenHash: tokenHash, ExpiresAt: expiresAt}, nil
}

// VerifyToken resolves a bearer token to its owning user id. Malformed,
// unknown, revoked and expired tokens all fail identically, so the error
// leaks nothing about which case applied. Successful verification stamps the
// token's last-used time.
func (m *TokenManager) VerifyToken(ctx context.Context, token string) (string, error) {
	if err := common.ValidateToken(token); err != nil {
		return "", common.NewAuthenticationError("Invalid token")
	}

	tokenHash := cryptox.HashToken(token)
	row, err := m.repo.GetValid(ctx, tokenHash)
	if err != nil {
		return "", err
	}
	if row == nil {
		return "", common.NewAuthenticationError("Invalid token")
	}

	if err := m.repo.UpdateLastUsed(ctx, tokenHash); err != nil {
		return "", err
	}
	return row.UserID, nil
}

// InvalidateToken revokes a bearer token. Revoking a token that is unknown,
// malformed, expired or already revoked succeeds silently; a token that
// never hashed to a stored row simply matches nothing.
func (m *TokenManager) InvalidateToken(ctx context.Context, token string) error {
	return m.repo.Revoke(ctx, cryptox.HashToken(token))
}

// InvalidateAllForUser revokes every valid token of the user and returns how
// many were affected.
func (m *TokenManager) InvalidateAllForUser(ctx context.Context, userID string) (int64, error) {
	if err := common.ValidateUserID(userID); err != nil {
		return 0, err
	}
	n, err := m.repo.RevokeAllForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	m.log.Info(ctx, "user tokens revoked", "userId", userID, "count", n)
	return n, nil
}

// ListTokens returns the user's valid tokens, newest first.
func (m *TokenManager) ListTokens(ctx context.Context, userID string) ([]*models.Token, error) {
	if err := common.ValidateUserID(userID); err != nil {
		return nil, err
	}
	return m.repo.ListValid(ctx, userID)
}
