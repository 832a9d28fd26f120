package tokens

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vaultkey/vaultkey/internal/common"
	"github.com/vaultkey/vaultkey/internal/dbx"
	"github.com/vaultkey/vaultkey/internal/models"
)

// SQLiteRepository implements token storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository constructs a repository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, tokenHash, userID, expiresAt string) error {
	query := `
		INSERT INTO tokens (tokenHash, userId, expiresAt)
		VALUES (?, ?, ?)
	`
	if _, err := r.db.ExecContext(ctx, query, tokenHash, userID, expiresAt); err != nil {
		return common.NewDatabaseError("Failed to create token")
	}
	return nil
}

func (r *SQLiteRepository) GetValid(ctx context.Context, tokenHash string) (*models.Token, error) {
	query := `
		SELECT tokenHash, userId, expiresAt, createdAt, isRevoked, revokedAt, lastUsedAt
		FROM tokens
		WHERE tokenHash = ?
		  AND isRevoked = 0
		  AND datetime(expiresAt) > datetime('now')
	`
	token := &models.Token{}
	err := r.db.QueryRowContext(ctx, query, tokenHash).Scan(
		&token.TokenHash, &token.UserID, &token.ExpiresAt, &token.CreatedAt,
		&token.IsRevoked, &token.RevokedAt, &token.LastUsedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, common.NewDatabaseError("Failed to get token")
	}
	return token, nil
}

func (r *SQLiteRepository) ListValid(ctx context.Context, userID string) ([]*models.Token, error) {
	query := `
		SELECT tokenHash, userId, expiresAt, createdAt, isRevoked, revokedAt, lastUsedAt
		FROM tokens
		WHERE userId = ?
		  AND isRevoked = 0
		  AND datetime(expiresAt) > datetime('now')
		ORDER BY createdAt DESC, rowid DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, common.NewDatabaseError("Failed to list user tokens")
	}
	defer rows.Close()

	var result []*models.Token
	for rows.Next() {
		token := &models.Token{}
		if err := rows.Scan(
			&token.TokenHash, &token.UserID, &token.ExpiresAt, &token.CreatedAt,
			&token.IsRevoked, &token.RevokedAt, &token.LastUsedAt,
		); err != nil {
			return nil, common.NewDatabaseError("Failed to list user tokens")
		}
		result = append(result, token)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewDatabaseError("Failed to list user tokens")
	}
	return result, nil
}

func (r *SQLiteRepository) CountValid(ctx context.Context, userID string) (int, error) {
	query := `
		SELECT COUNT(*) FROM tokens
		WHERE userId = ?
		  AND isRevoked = 0
		  AND datetime(expiresAt) > datetime('now')
	`
	var count int
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, common.NewDatabaseError("Failed to count user tokens")
	}
	return count, nil
}

func (r *SQLiteRepository) Revoke(ctx context.Context, tokenHash string) error {
	query := `
		UPDATE tokens
		SET isRevoked = 1,
		    revokedAt = datetime('now')
		WHERE tokenHash = ?
	`
	if _, err := r.db.ExecContext(ctx, query, tokenHash); err != nil {
		return common.NewDatabaseError("Failed to revoke token")
	}
	return nil
}

func (r *SQLiteRepository) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	query := `
		UPDATE tokens
		SET isRevoked = 1,
		    revokedAt = datetime('now')
		WHERE userId = ? AND isRevoked = 0
	`
	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, common.NewDatabaseError("Failed to revoke user tokens")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, common.NewDatabaseError("Failed to revoke user tokens")
	}
	return n, nil
}

func (r *SQLiteRepository) UpdateLastUsed(ctx context.Context, tokenHash string) error {
	query := `
		UPDATE tokens SET lastUsedAt = datetime('now')
		WHERE tokenHash = ?
	`
	if _, err := r.db.ExecContext(ctx, query, tokenHash); err != nil {
		return common.NewDatabaseError("Failed to update token last used")
	}
	return nil
}

// DeleteOldest removes the single oldest non-revoked token of the user.
// rowid is the insertion-sequence tie-break for equal creation timestamps.
func (r *SQLiteRepository) DeleteOldest(ctx context.Context, userID string) error {
	query := `
		DELETE FROM tokens
		WHERE tokenHash = (
			SELECT tokenHash FROM tokens
			WHERE userId = ?
			  AND isRevoked = 0
			ORDER BY createdAt ASC, rowid ASC
			LIMIT 1
		)
	`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return common.NewDatabaseError("Failed to delete oldest token")
	}
	return nil
}

func (r *SQLiteRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `
		DELETE FROM tokens
		WHERE datetime(expiresAt) <= datetime('now')
	`
	res, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, common.NewDatabaseError("Failed to delete expired tokens")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, common.NewDatabaseError("Failed to delete expired tokens")
	}
	return n, nil
}
