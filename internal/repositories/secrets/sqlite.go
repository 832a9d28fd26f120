package secrets

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/vaultkey/vaultkey/internal/common"
	"github.com/vaultkey/vaultkey/internal/dbx"
	"github.com/vaultkey/vaultkey/internal/models"
)

const secretColumns = `userId, key, encryptedValue, createdAt, updatedAt, createdBy, updatedBy, lastAccessedAt, expiresAt, metadata`

// SQLiteRepository implements secret storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository constructs a repository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func scanSecret(row interface{ Scan(dest ...any) error }) (*models.Secret, error) {
	s := &models.Secret{}
	err := row.Scan(
		&s.UserID, &s.Key, &s.EncryptedValue, &s.CreatedAt, &s.UpdatedAt,
		&s.CreatedBy, &s.UpdatedBy, &s.LastAccessedAt, &s.ExpiresAt, &s.Metadata,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, secret *models.Secret) error {
	query := `
		INSERT INTO secrets (userId, key, encryptedValue, expiresAt, createdBy)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		secret.UserID, secret.Key, secret.EncryptedValue, secret.ExpiresAt, secret.CreatedBy)
	if err != nil {
		return common.NewDatabaseError("Failed to create secret")
	}
	return nil
}

// Get fetches a single row without any expiry filtering; expired rows come
// back as stored and the service layer rejects them.
func (r *SQLiteRepository) Get(ctx context.Context, userID, key string) (*models.Secret, error) {
	query := `
		SELECT ` + secretColumns + ` FROM secrets
		WHERE userId = ? AND key = ?
	`
	secret, err := scanSecret(r.db.QueryRowContext(ctx, query, userID, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, common.NewDatabaseError("Failed to get secret")
	}
	return secret, nil
}

func (r *SQLiteRepository) Update(ctx context.Context, secret *models.Secret) error {
	query := `
		UPDATE secrets
		SET encryptedValue = ?,
		    expiresAt = ?,
		    updatedAt = datetime('now'),
		    updatedBy = ?
		WHERE userId = ? AND key = ?
	`
	_, err := r.db.ExecContext(ctx, query,
		secret.EncryptedValue, secret.ExpiresAt, secret.UpdatedBy, secret.UserID, secret.Key)
	if err != nil {
		return common.NewDatabaseError("Failed to update secret")
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, userID, key string) error {
	query := `
		DELETE FROM secrets
		WHERE userId = ? AND key = ?
	`
	if _, err := r.db.ExecContext(ctx, query, userID, key); err != nil {
		return common.NewDatabaseError("Failed to delete secret")
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context, userID string, opts ListOptions) ([]*models.Secret, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + secretColumns + ` FROM secrets WHERE userId = ?`)
	args := []any{userID}

	if !opts.IncludeExpired {
		sb.WriteString(` AND (expiresAt IS NULL OR datetime(expiresAt) > datetime('now'))`)
	}
	if opts.Pattern != "" {
		// GLOB gives '*' the required any-run-of-characters semantics.
		sb.WriteString(` AND key GLOB ?`)
		args = append(args, opts.Pattern)
	}
	sb.WriteString(` ORDER BY createdAt DESC, rowid DESC`)

	return r.queryList(ctx, "Failed to list secrets", sb.String(), args...)
}

func (r *SQLiteRepository) ListExpired(ctx context.Context, userID string) ([]*models.Secret, error) {
	query := `
		SELECT ` + secretColumns + ` FROM secrets
		WHERE userId = ? AND datetime(expiresAt) <= datetime('now')
		ORDER BY expiresAt ASC
	`
	return r.queryList(ctx, "Failed to list expired secrets", query, userID)
}

func (r *SQLiteRepository) queryList(ctx context.Context, failMsg, query string, args ...any) ([]*models.Secret, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, common.NewDatabaseError(failMsg)
	}
	defer rows.Close()

	var result []*models.Secret
	for rows.Next() {
		secret, err := scanSecret(rows)
		if err != nil {
			return nil, common.NewDatabaseError(failMsg)
		}
		result = append(result, secret)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewDatabaseError(failMsg)
	}
	return result, nil
}

func (r *SQLiteRepository) DeleteExpired(ctx context.Context, userID string) (int64, error) {
	query := `
		DELETE FROM secrets
		WHERE userId = ? AND datetime(expiresAt) <= datetime('now')
	`
	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, common.NewDatabaseError("Failed to delete expired secrets")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, common.NewDatabaseError("Failed to delete expired secrets")
	}
	return n, nil
}

func (r *SQLiteRepository) UpdateLastAccessed(ctx context.Context, userID, key string) error {
	query := `
		UPDATE secrets SET lastAccessedAt = datetime('now')
		WHERE userId = ? AND key = ?
	`
	if _, err := r.db.ExecContext(ctx, query, userID, key); err != nil {
		return common.NewDatabaseError("Failed to update secret last accessed")
	}
	return nil
}

func (r *SQLiteRepository) DeleteAllForUser(ctx context.Context, userID string) (int64, error) {
	query := `
		DELETE FROM secrets
		WHERE userId = ?
	`
	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, common.NewDatabaseError("Failed to delete user secrets")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, common.NewDatabaseError("Failed to delete user secrets")
	}
	return n, nil
}
