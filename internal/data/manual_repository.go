package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/owaso30/ManualApp/internal/scope"
)

// ManualRepository handles database operations for manuals.
type ManualRepository struct {
	db *sqlx.DB
}

// NewManualRepository creates a new ManualRepository.
func NewManualRepository(db *sqlx.DB) *ManualRepository {
	return &ManualRepository{db: db}
}

const manualColumns = `id, title, category_id, owner_scope, creator_id, created_at`

// GetByID retrieves a manual by id. Not found is not an error.
func (r *ManualRepository) GetByID(ctx context.Context, id int64) (*Manual, error) {
	var manual Manual
	query := `SELECT ` + manualColumns + ` FROM manuals WHERE id = ?`
	if err := r.db.GetContext(ctx, &manual, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get manual by id: %w", err)
	}
	return &manual, nil
}

// ListByScope returns the manuals owned by the given scope, by title.
func (r *ManualRepository) ListByScope(ctx context.Context, ownerScope scope.ID) ([]*Manual, error) {
	var manuals []*Manual
	query := `SELECT ` + manualColumns + ` FROM manuals WHERE owner_scope = ? ORDER BY title`
	if err := r.db.SelectContext(ctx, &manuals, query, ownerScope); err != nil {
		return nil, fmt.Errorf("failed to list manuals: %w", err)
	}
	return manuals, nil
}

// Insert stores a new manual and returns its id. The owner scope must
// already be stamped by the caller.
func (r *ManualRepository) Insert(ctx context.Context, manual *Manual) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO manuals (title, category_id, owner_scope, creator_id) VALUES (?, ?, ?, ?)`,
		manual.Title, manual.CategoryID, manual.OwnerScope, manual.CreatorID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert manual: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get manual id: %w", err)
	}
	return id, nil
}

// Update rewrites the mutable fields of a manual.
func (r *ManualRepository) Update(ctx context.Context, manual *Manual) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE manuals SET title = ?, category_id = ? WHERE id = ?`,
		manual.Title, manual.CategoryID, manual.ID)
	if err != nil {
		return fmt.Errorf("failed to update manual: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("no manual found to update with id %d", manual.ID)
	}
	return nil
}

// DeleteCascade removes a manual with its contents and images in one
// transaction and returns the file paths of the deleted images so the
// caller can clean up the external blobs best-effort.
func (r *ManualRepository) DeleteCascade(ctx context.Context, id int64) ([]string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var paths []string
	query := `SELECT i.file_path FROM images i
		JOIN contents c ON c.id = i.content_id
		WHERE c.manual_id = ?`
	if err := tx.SelectContext(ctx, &paths, query, id); err != nil {
		return nil, fmt.Errorf("failed to collect image paths: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM images WHERE content_id IN (SELECT id FROM contents WHERE manual_id = ?)`, id); err != nil {
		return nil, fmt.Errorf("failed to delete images: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM contents WHERE manual_id = ?`, id); err != nil {
		return nil, fmt.Errorf("failed to delete contents: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM manuals WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete manual: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("no manual found to delete with id %d", id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit manual deletion: %w", err)
	}
	return paths, nil
}

// UpdateScope rewrites the owner scope of a manual, guarded by the
// expected current scope so a concurrent transfer cannot apply twice.
func (r *ManualRepository) UpdateScope(ctx context.Context, id int64, from, to scope.ID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE manuals SET owner_scope = ? WHERE id = ? AND owner_scope = ?`,
		to, id, from)
	if err != nil {
		return fmt.Errorf("failed to update manual scope: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("manual %d is not in the expected scope", id)
	}
	return nil
}
