package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/owaso30/ManualApp/internal/scope"
)

// CategoryRepository handles database operations for categories.
type CategoryRepository struct {
	db *sqlx.DB
}

// NewCategoryRepository creates a new CategoryRepository.
func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

const categoryColumns = `id, name, description, is_default, owner_scope, creator_id, allow_partial_edit, created_at`

// GetByID retrieves a category by id. Not found is not an error.
func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*Category, error) {
	var category Category
	query := `SELECT ` + categoryColumns + `, 0 AS manual_count FROM categories WHERE id = ?`
	if err := r.db.GetContext(ctx, &category, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get category by id: %w", err)
	}
	return &category, nil
}

// GetDefault retrieves the system default category. A missing default is
// an integrity error surfaced to the caller.
func (r *CategoryRepository) GetDefault(ctx context.Context) (*Category, error) {
	var category Category
	query := `SELECT ` + categoryColumns + `, 0 AS manual_count FROM categories WHERE is_default = 1`
	if err := r.db.GetContext(ctx, &category, query); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("default category is missing")
		}
		return nil, fmt.Errorf("failed to get default category: %w", err)
	}
	return &category, nil
}

// ListForScope returns the default category followed by the categories of
// the given owner scope, with per-category manual counts restricted to
// that scope.
func (r *CategoryRepository) ListForScope(ctx context.Context, ownerScope scope.ID) ([]*Category, error) {
	var categories []*Category
	query := `SELECT c.id, c.name, c.description, c.is_default, c.owner_scope, c.creator_id, c.allow_partial_edit, c.created_at,
			(SELECT COUNT(*) FROM manuals m WHERE m.category_id = c.id AND m.owner_scope = ?) AS manual_count
		FROM categories c
		WHERE c.is_default = 1 OR c.owner_scope = ?
		ORDER BY c.is_default DESC, c.name`
	if err := r.db.SelectContext(ctx, &categories, query, ownerScope, ownerScope); err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// Insert stores a new category and returns its id. The owner scope must
// already be stamped by the caller.
func (r *CategoryRepository) Insert(ctx context.Context, category *Category) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (name, description, is_default, owner_scope, creator_id, allow_partial_edit)
		VALUES (?, ?, 0, ?, ?, ?)`,
		category.Name, category.Description, category.OwnerScope, category.CreatorID, category.AllowPartialEdit)
	if err != nil {
		return 0, fmt.Errorf("failed to insert category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get category id: %w", err)
	}
	return id, nil
}

// Update rewrites the mutable fields of a category.
func (r *CategoryRepository) Update(ctx context.Context, category *Category) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, description = ?, allow_partial_edit = ? WHERE id = ?`,
		category.Name, category.Description, category.AllowPartialEdit, category.ID)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("no category found to update with id %d", category.ID)
	}
	return nil
}

// DeleteReassign deletes a category after moving its manuals to the
// default category, in one transaction.
func (r *CategoryRepository) DeleteReassign(ctx context.Context, id int64, defaultID int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE manuals SET category_id = ? WHERE category_id = ?`, defaultID, id); err != nil {
		return fmt.Errorf("failed to reassign manuals: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ? AND is_default = 0`, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("no deletable category found with id %d", id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit category deletion: %w", err)
	}
	return nil
}

// UpdateScope rewrites the owner scope of a category, guarded by the
// expected current scope so a concurrent transfer cannot apply twice.
func (r *CategoryRepository) UpdateScope(ctx context.Context, id int64, from, to scope.ID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET owner_scope = ? WHERE id = ? AND owner_scope = ? AND is_default = 0`,
		to, id, from)
	if err != nil {
		return fmt.Errorf("failed to update category scope: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("category %d is not in the expected scope", id)
	}
	return nil
}
