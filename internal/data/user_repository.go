package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// UserRepository handles database operations for user accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID retrieves a user by id. Not found is not an error.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*User, error) {
	var user User
	query := `SELECT id, email, display_name, is_admin, group_id, group_permission, created_at FROM users WHERE id = ?`
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return &user, nil
}

// Upsert inserts the user on first login and refreshes mutable profile
// fields on subsequent logins. The denormalized group pointer is never
// touched here; only membership mutations may change it.
func (r *UserRepository) Upsert(ctx context.Context, user *User) error {
	var exists int
	if err := r.db.GetContext(ctx, &exists, `SELECT COUNT(*) FROM users WHERE id = ?`, user.ID); err != nil {
		return fmt.Errorf("failed to check user existence: %w", err)
	}
	if exists > 0 {
		_, err := r.db.ExecContext(ctx, `UPDATE users SET email = ?, display_name = ? WHERE id = ?`,
			user.Email, user.DisplayName, user.ID)
		if err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		return nil
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO users (id, email, display_name, is_admin) VALUES (?, ?, ?, ?)`,
		user.ID, user.Email, user.DisplayName, user.IsAdmin)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// clearGroupPointer resets the denormalized membership pointer inside an
// existing transaction.
func clearGroupPointer(ctx context.Context, tx *sqlx.Tx, userID string) error {
	_, err := tx.ExecContext(ctx, `UPDATE users SET group_id = NULL, group_permission = NULL WHERE id = ?`, userID)
	return err
}

// setGroupPointer updates the denormalized membership pointer inside an
// existing transaction.
func setGroupPointer(ctx context.Context, tx *sqlx.Tx, userID string, groupID int64, permission GroupPermission) error {
	_, err := tx.ExecContext(ctx, `UPDATE users SET group_id = ?, group_permission = ? WHERE id = ?`, groupID, permission, userID)
	return err
}
