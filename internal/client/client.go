// Package client exposes the vault as a single facade. It is the only
// component that turns a bearer token into an authorization decision: every
// secret and token operation verifies the bearer first and only then runs the
// underlying service call scoped to the resolved user.
package client

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/vaultkey/vaultkey/internal/auth"
	"github.com/vaultkey/vaultkey/internal/common"
	"github.com/vaultkey/vaultkey/internal/logging"
	"github.com/vaultkey/vaultkey/internal/models"
	"github.com/vaultkey/vaultkey/internal/passkey"
	passkeysrepo "github.com/vaultkey/vaultkey/internal/repositories/passkeys"
	secretsrepo "github.com/vaultkey/vaultkey/internal/repositories/secrets"
	tokensrepo "github.com/vaultkey/vaultkey/internal/repositories/tokens"
	usersrepo "github.com/vaultkey/vaultkey/internal/repositories/users"
	"github.com/vaultkey/vaultkey/internal/secrets"
	"github.com/vaultkey/vaultkey/internal/store"
)

// Options configures a VaultClient.
type Options struct {
	// DBPath is the SQLite database file path.
	DBPath string

	// MasterKey is the 64-character hex encryption key.
	MasterKey string

	// TokenTTL is the lifetime of newly issued tokens.
	TokenTTL time.Duration

	// MaxTokensPerUser caps valid tokens per user; the oldest is evicted at
	// capacity. Zero or negative disables the cap.
	MaxTokensPerUser int

	// RelyingParty configures the credential ceremony. Zero value disables
	// ceremony methods.
	RelyingParty passkey.Config

	Logger logging.Logger
}

// VaultClient wires the store, repositories and services together behind a
// token-checked API surface.
type VaultClient struct {
	db        *sql.DB
	masterKey string
	tokenTTL  time.Duration
	maxTokens int

	users    usersrepo.Repository
	tokens   *auth.TokenManager
	secrets  *secrets.Service
	ceremony *passkey.Service

	log logging.Logger
}

// New opens the database, runs migrations and builds the facade.
func New(ctx context.Context, opts Options) (*VaultClient, error) {
	log := opts.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}

	db, err := store.Open(ctx, store.DSN(opts.DBPath))
	if err != nil {
		return nil, err
	}

	users := usersrepo.NewSQLiteRepository(db)
	passkeys := passkeysrepo.NewSQLiteRepository(db)

	c := &VaultClient{
		db:        db,
		masterKey: opts.MasterKey,
		tokenTTL:  opts.TokenTTL,
		maxTokens: opts.MaxTokensPerUser,
		users:     users,
		tokens:    auth.NewTokenManager(tokensrepo.NewSQLiteRepository(db), log),
		secrets:   secrets.NewService(secretsrepo.NewSQLiteRepository(db), log),
		log:       log,
	}

	if opts.RelyingParty.RPID != "" {
		ceremony, err := passkey.NewService(opts.RelyingParty, users, passkeys, log)
		if err != nil {
			_ = store.Close(db)
			return nil, err
		}
		c.ceremony = ceremony
	}

	return c, nil
}

// Close releases the underlying storage connection.
func (c *VaultClient) Close() error {
	return store.Close(c.db)
}

// DB exposes the underlying handle for maintenance commands that need
// transaction scope.
func (c *VaultClient) DB() *sql.DB {
	return c.db
}

// IssueToken grants a bearer token for userID using the configured TTL and
// capacity. It needs no pre-existing token: the passkey login ceremony or the
// operator's direct access to the vault file stand in for authentication.
func (c *VaultClient) IssueToken(ctx context.Context, userID string) (*auth.IssuedToken, error) {
	return c.tokens.IssueToken(ctx, userID, c.tokenTTL, c.maxTokens)
}

// IssueTokenTTL is IssueToken with an explicit lifetime.
func (c *VaultClient) IssueTokenTTL(ctx context.Context, userID string, ttl time.Duration) (*auth.IssuedToken, error) {
	return c.tokens.IssueToken(ctx, userID, ttl, c.maxTokens)
}

// GetSecret verifies the bearer and returns the decrypted secret at key.
func (c *VaultClient) GetSecret(ctx context.Context, key, token string) (*secrets.RetrievedSecret, error) {
	userID, err := c.tokens.VerifyToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return c.secrets.RetrieveSecret(ctx, userID, key, c.masterKey)
}

// StoreSecret verifies the bearer and upserts the secret at key. A nil
// expiresAt stores a secret that never expires.
func (c *VaultClient) StoreSecret(ctx context.Context, key, value, token string, expiresAt *time.Time) error {
	userID, err := c.tokens.VerifyToken(ctx, token)
	if err != nil {
		return err
	}
	return c.secrets.SaveSecret(ctx, userID, key, value, c.masterKey, expiresAt)
}

// UpdateSecret verifies the bearer and upserts the secret at key, exactly
// like StoreSecret: an absent key is created, an existing or expired row is
// overwritten without reading its old value.
func (c *VaultClient) UpdateSecret(ctx context.Context, key, value, token string, expiresAt *time.Time) error {
	userID, err := c.tokens.VerifyToken(ctx, token)
	if err != nil {
		return err
	}
	return c.secrets.SaveSecret(ctx, userID, key, value, c.masterKey, expiresAt)
}

// DeleteSecret verifies the bearer and removes the secret at key.
func (c *VaultClient) DeleteSecret(ctx context.Context, key, token string) error {
	userID, err := c.tokens.VerifyToken(ctx, token)
	if err != nil {
		return err
	}
	return c.secrets.RemoveSecret(ctx, userID, key)
}

// ListSecrets verifies the bearer and returns secret metadata.
func (c *VaultClient) ListSecrets(ctx context.Context, token string, filter secrets.ListFilter) ([]*secrets.SecretInfo, error) {
	userID, err := c.tokens.VerifyToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return c.secrets.ListAllSecrets(ctx, userID, filter)
}

// RevokeToken verifies the bearer and then revokes that same bearer, so a
// caller can only ever revoke a token it holds. Subsequent calls with the
// revoked token fail verification.
func (c *VaultClient) RevokeToken(ctx context.Context, token string) error {
	if _, err := c.tokens.VerifyToken(ctx, token); err != nil {
		return err
	}
	return c.tokens.InvalidateToken(ctx, token)
}

// ListTokens verifies the bearer and returns the caller's valid tokens,
// newest first.
func (c *VaultClient) ListTokens(ctx context.Context, token string) ([]*models.Token, error) {
	userID, err := c.tokens.VerifyToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return c.tokens.ListTokens(ctx, userID)
}

// Users returns the user repository for administrative operations.
func (c *VaultClient) Users() usersrepo.Repository {
	return c.users
}

func (c *VaultClient) requireCeremony() error {
	if c.ceremony == nil {
		return common.NewValidationError("Ceremony is not configured")
	}
	return nil
}

// BeginRegistration starts a passkey registration ceremony for userID.
func (c *VaultClient) BeginRegistration(ctx context.Context, userID string) (*protocol.CredentialCreation, error) {
	if err := c.requireCeremony(); err != nil {
		return nil, err
	}
	return c.ceremony.BeginRegistration(ctx, userID)
}

// FinishRegistration completes a registration ceremony from the browser's
// attestation response.
func (c *VaultClient) FinishRegistration(ctx context.Context, userID string, r *http.Request) (*models.Passkey, error) {
	if err := c.requireCeremony(); err != nil {
		return nil, err
	}
	return c.ceremony.FinishRegistration(ctx, userID, r)
}

// BeginLogin starts a passkey login ceremony for userID.
func (c *VaultClient) BeginLogin(ctx context.Context, userID string) (*protocol.CredentialAssertion, error) {
	if err := c.requireCeremony(); err != nil {
		return nil, err
	}
	return c.ceremony.BeginLogin(ctx, userID)
}

// FinishLogin completes a login ceremony and, on success, issues a bearer
// token for the authenticated user.
func (c *VaultClient) FinishLogin(ctx context.Context, userID string, r *http.Request) (*auth.IssuedToken, error) {
	if err := c.requireCeremony(); err != nil {
		return nil, err
	}
	authenticated, err := c.ceremony.FinishLogin(ctx, userID, r)
	if err != nil {
		return nil, err
	}
	return c.IssueToken(ctx, authenticated)
}
