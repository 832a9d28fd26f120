package users

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vaultkey/vaultkey/internal/common"
	"github.com/vaultkey/vaultkey/internal/dbx"
	"github.com/vaultkey/vaultkey/internal/models"
)

// SQLiteRepository implements user storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository constructs a repository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a new user row. Duplicate user ids fail the primary-key
// constraint and surface as a database error like any other storage failure.
func (r *SQLiteRepository) Create(ctx context.Context, userID string) error {
	query := `
		INSERT INTO users (userId)
		VALUES (?)
	`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return common.NewDatabaseError("Failed to create user")
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	query := `
		SELECT userId, createdAt, lastLoginAt FROM users
		WHERE userId = ?
	`
	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&user.UserID, &user.CreatedAt, &user.LastLoginAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, common.NewDatabaseError("Failed to get user by ID")
	}
	return user, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.User, error) {
	query := `
		SELECT userId, createdAt, lastLoginAt FROM users
		ORDER BY createdAt DESC, rowid DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, common.NewDatabaseError("Failed to get all users")
	}
	defer rows.Close()

	var result []*models.User
	for rows.Next() {
		user := &models.User{}
		if err := rows.Scan(&user.UserID, &user.CreatedAt, &user.LastLoginAt); err != nil {
			return nil, common.NewDatabaseError("Failed to get all users")
		}
		result = append(result, user)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewDatabaseError("Failed to get all users")
	}
	return result, nil
}

// UpdateLastLogin stamps lastLoginAt with the store clock. Updating an absent
// user is a no-op, not an error.
func (r *SQLiteRepository) UpdateLastLogin(ctx context.Context, userID string) error {
	query := `
		UPDATE users SET lastLoginAt = datetime('now')
		WHERE userId = ?
	`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return common.NewDatabaseError("Failed to update user last login")
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, userID string) error {
	query := `
		DELETE FROM users
		WHERE userId = ?
	`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return common.NewDatabaseError("Failed to delete user")
	}
	return nil
}
