package passkeys

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/vaultkey/vaultkey/internal/common"
	"github.com/vaultkey/vaultkey/internal/dbx"
	"github.com/vaultkey/vaultkey/internal/models"
)

const passkeyColumns = `id, userId, credentialId, publicKey, counter, deviceType, backedUp, transports, createdAt, lastUsedAt`

// SQLiteRepository implements passkey storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository constructs a repository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func scanPasskey(row interface{ Scan(dest ...any) error }) (*models.Passkey, error) {
	p := &models.Passkey{}
	err := row.Scan(
		&p.ID, &p.UserID, &p.CredentialID, &p.PublicKey, &p.Counter,
		&p.DeviceType, &p.BackedUp, &p.Transports, &p.CreatedAt, &p.LastUsedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, passkey *models.Passkey) (*models.Passkey, error) {
	id := uuid.NewString()

	query := `
		INSERT INTO passkeys (id, userId, credentialId, publicKey, counter, deviceType, backedUp, transports)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		id, passkey.UserID, passkey.CredentialID, passkey.PublicKey,
		passkey.Counter, passkey.DeviceType, passkey.BackedUp, passkey.Transports)
	if err != nil {
		return nil, common.NewDatabaseError("Failed to create passkey")
	}

	created, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, common.NewDatabaseError("Failed to retrieve created passkey")
	}
	return created, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Passkey, error) {
	query := `
		SELECT ` + passkeyColumns + ` FROM passkeys
		WHERE id = ?
	`
	passkey, err := scanPasskey(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, common.NewDatabaseError("Failed to get passkey by ID")
	}
	return passkey, nil
}

func (r *SQLiteRepository) GetByCredentialID(ctx context.Context, credentialID string) (*models.Passkey, error) {
	query := `
		SELECT ` + passkeyColumns + ` FROM passkeys
		WHERE credentialId = ?
	`
	passkey, err := scanPasskey(r.db.QueryRowContext(ctx, query, credentialID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, common.NewDatabaseError("Failed to get passkey by credential ID")
	}
	return passkey, nil
}

func (r *SQLiteRepository) ListByUser(ctx context.Context, userID string) ([]*models.Passkey, error) {
	query := `
		SELECT ` + passkeyColumns + ` FROM passkeys
		WHERE userId = ?
		ORDER BY createdAt DESC, rowid DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, common.NewDatabaseError("Failed to list passkeys")
	}
	defer rows.Close()

	var result []*models.Passkey
	for rows.Next() {
		passkey, err := scanPasskey(rows)
		if err != nil {
			return nil, common.NewDatabaseError("Failed to list passkeys")
		}
		result = append(result, passkey)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewDatabaseError("Failed to list passkeys")
	}
	return result, nil
}

func (r *SQLiteRepository) UpdateCounter(ctx context.Context, id string, counter uint32) error {
	query := `
		UPDATE passkeys SET counter = ?
		WHERE id = ?
	`
	if _, err := r.db.ExecContext(ctx, query, counter, id); err != nil {
		return common.NewDatabaseError("Failed to update passkey counter")
	}
	return nil
}

func (r *SQLiteRepository) UpdateLastUsed(ctx context.Context, id string) error {
	query := `
		UPDATE passkeys SET lastUsedAt = datetime('now')
		WHERE id = ?
	`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return common.NewDatabaseError("Failed to update passkey last used")
	}
	return nil
}
