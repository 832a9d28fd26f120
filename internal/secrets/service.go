// Package secrets implements the secret lifecycle: validation, envelope
// encryption and decryption, expiry handling, and listing. All operations are
// scoped to a caller-provided user id that upstream layers have already
// authenticated.
package secrets

import (
	"context"
	"strings"
	"time"

	"github.com/vaultkey/vaultkey/internal/common"
	"github.com/vaultkey/vaultkey/internal/cryptox"
	"github.com/vaultkey/vaultkey/internal/logging"
	"github.com/vaultkey/vaultkey/internal/models"
	secretsrepo "github.com/vaultkey/vaultkey/internal/repositories/secrets"
)

// SecretInfo is the metadata view of a secret. Listings return only this;
// values never appear outside a single-row retrieval.
type SecretInfo struct {
	Key            string
	CreatedAt      string
	UpdatedAt      string
	ExpiresAt      *string
	LastAccessedAt *string
}

// RetrievedSecret is a decrypted secret with its metadata.
type RetrievedSecret struct {
	Key       string
	Value     string
	CreatedAt string
	UpdatedAt string
	ExpiresAt *string
	Metadata  *string
}

// ListFilter narrows ListAllSecrets. Pattern uses '*' as a wildcard matching
// any run of characters.
type ListFilter struct {
	IncludeExpired bool
	Pattern        string
}

// Service orchestrates secret operations over the repository.
type Service struct {
	repo secretsrepo.Repository
	log  logging.Logger
	now  func() time.Time
}

// NewService constructs a secrets service over the given repository.
func NewService(repo secretsrepo.Repository, log logging.Logger) *Service {
	return &Service{repo: repo, log: log, now: time.Now}
}

// SaveSecret encrypts value under masterKey and upserts it at (userID, key).
// An existing row has its value and expiry fully replaced; partial update is
// not supported. A nil expiresAt stores a secret that never expires.
//
// The upsert is a read-then-branch two-step, not an atomic statement, matching
// the single-writer usage model.
func (s *Service) SaveSecret(ctx context.Context, userID, key, value, masterKey string, expiresAt *time.Time) error {
	if strings.TrimSpace(key) == "" {
		return common.NewValidationError("Key is required")
	}
	if strings.TrimSpace(value) == "" {
		return common.NewValidationError("Value is required")
	}
	if err := common.ValidateKey(key); err != nil {
		return err
	}
	if err := common.ValidateMasterKey(masterKey); err != nil {
		return err
	}

	envelope, err := cryptox.Encrypt(value, masterKey)
	if err != nil {
		return err
	}

	var expiry *string
	if expiresAt != nil {
		v := common.FormatTime(*expiresAt)
		expiry = &v
	}

	existing, err := s.repo.Get(ctx, userID, key)
	if err != nil {
		return err
	}

	row := &models.Secret{
		UserID:         userID,
		Key:            key,
		EncryptedValue: []byte(envelope),
		ExpiresAt:      expiry,
	}
	if existing == nil {
		row.CreatedBy = userID
		if err := s.repo.Create(ctx, row); err != nil {
			return err
		}
		s.log.Info(ctx, "secret created", "userId", userID, "key", key)
		return nil
	}

	row.UpdatedBy = &userID
	if err := s.repo.Update(ctx, row); err != nil {
		return err
	}
	s.log.Info(ctx, "secret updated", "userId", userID, "key", key)
	return nil
}

// RetrieveSecret decrypts and returns the secret at (userID, key). Absent and
// expired rows both fail with a not-found error; only the message tells them
// apart. A successful read stamps lastAccessedAt.
func (s *Service) RetrieveSecret(ctx context.Context, userID, key, masterKey string) (*RetrievedSecret, error) {
	if err := common.ValidateKey(key); err != nil {
		return nil, err
	}
	if err := common.ValidateMasterKey(masterKey); err != nil {
		return nil, err
	}

	row, err := s.repo.Get(ctx, userID, key)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, common.NewNotFoundError("Secret not found: " + key)
	}
	if expired, err := s.isExpired(row.ExpiresAt); err != nil {
		return nil, err
	} else if expired {
		return nil, common.NewNotFoundError("Secret expired: " + key)
	}

	value, err := cryptox.Decrypt(string(row.EncryptedValue), masterKey)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateLastAccessed(ctx, userID, key); err != nil {
		return nil, err
	}

	return &RetrievedSecret{
		Key:       row.Key,
		Value:     value,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
		ExpiresAt: row.ExpiresAt,
		Metadata:  row.Metadata,
	}, nil
}

// RemoveSecret deletes the secret at (userID, key), failing with a not-found
// error when no row exists.
func (s *Service) RemoveSecret(ctx context.Context, userID, key string) error {
	if err := common.ValidateKey(key); err != nil {
		return err
	}

	row, err := s.repo.Get(ctx, userID, key)
	if err != nil {
		return err
	}
	if row == nil {
		return common.NewNotFoundError("Secret not found: " + key)
	}

	if err := s.repo.Delete(ctx, userID, key); err != nil {
		return err
	}
	s.log.Info(ctx, "secret deleted", "userId", userID, "key", key)
	return nil
}

// ListAllSecrets returns metadata for the user's secrets, newest first.
// Values are never included in a listing. Expired rows are excluded unless
// the filter asks for them.
func (s *Service) ListAllSecrets(ctx context.Context, userID string, filter ListFilter) ([]*SecretInfo, error) {
	rows, err := s.repo.List(ctx, userID, secretsrepo.ListOptions{
		IncludeExpired: filter.IncludeExpired,
		Pattern:        filter.Pattern,
	})
	if err != nil {
		return nil, err
	}

	result := make([]*SecretInfo, 0, len(rows))
	for _, row := range rows {
		result = append(result, &SecretInfo{
			Key:            row.Key,
			CreatedAt:      row.CreatedAt,
			UpdatedAt:      row.UpdatedAt,
			ExpiresAt:      row.ExpiresAt,
			LastAccessedAt: row.LastAccessedAt,
		})
	}
	return result, nil
}

// PurgeExpired deletes the user's expired secrets and returns the count.
func (s *Service) PurgeExpired(ctx context.Context, userID string) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, userID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info(ctx, "expired secrets purged", "userId", userID, "count", n)
	}
	return n, nil
}

func (s *Service) isExpired(expiresAt *string) (bool, error) {
	if expiresAt == nil {
		return false, nil
	}
	t, err := common.ParseTime(*expiresAt)
	if err != nil {
		return false, common.NewDatabaseError("Failed to get secret")
	}
	return !t.After(s.now().UTC()), nil
}
