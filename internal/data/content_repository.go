package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ContentRepository handles database operations for manual steps and
// their attached images. Steps keep a dense 1..N ordinal sequence per
// manual; deletion renumbers inside the same transaction.
type ContentRepository struct {
	db *sqlx.DB
}

// NewContentRepository creates a new ContentRepository.
func NewContentRepository(db *sqlx.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

const contentColumns = `id, manual_id, ordinal, text, creator_id, created_at`

// GetByID retrieves a step with its image, if any. Not found is not an
// error.
func (r *ContentRepository) GetByID(ctx context.Context, id int64) (*Content, error) {
	var content Content
	query := `SELECT ` + contentColumns + ` FROM contents WHERE id = ?`
	if err := r.db.GetContext(ctx, &content, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get content by id: %w", err)
	}
	if err := r.attachImages(ctx, []*Content{&content}); err != nil {
		return nil, err
	}
	return &content, nil
}

// ListByManual returns the steps of a manual in ordinal order, images
// attached.
func (r *ContentRepository) ListByManual(ctx context.Context, manualID int64) ([]*Content, error) {
	var contents []*Content
	query := `SELECT ` + contentColumns + ` FROM contents WHERE manual_id = ? ORDER BY ordinal`
	if err := r.db.SelectContext(ctx, &contents, query, manualID); err != nil {
		return nil, fmt.Errorf("failed to list contents: %w", err)
	}
	if err := r.attachImages(ctx, contents); err != nil {
		return nil, err
	}
	return contents, nil
}

func (r *ContentRepository) attachImages(ctx context.Context, contents []*Content) error {
	if len(contents) == 0 {
		return nil
	}
	ids := make([]int64, len(contents))
	byID := make(map[int64]*Content, len(contents))
	for i, c := range contents {
		ids[i] = c.ID
		byID[c.ID] = c
	}
	query, args, err := sqlx.In(`SELECT id, file_path, content_id FROM images WHERE content_id IN (?)`, ids)
	if err != nil {
		return fmt.Errorf("failed to build image query: %w", err)
	}
	var images []*Image
	if err := r.db.SelectContext(ctx, &images, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to load images: %w", err)
	}
	for _, img := range images {
		if c, ok := byID[img.ContentID]; ok {
			c.Image = img
		}
	}
	return nil
}

// Insert appends a step at the end of the manual, assigning the next
// ordinal inside a transaction so concurrent appends cannot collide on
// the read-max-then-write step.
func (r *ContentRepository) Insert(ctx context.Context, content *Content) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var maxOrdinal sql.NullInt64
	if err := tx.GetContext(ctx, &maxOrdinal,
		`SELECT MAX(ordinal) FROM contents WHERE manual_id = ?`, content.ManualID); err != nil {
		return 0, fmt.Errorf("failed to read max ordinal: %w", err)
	}
	content.Ordinal = int(maxOrdinal.Int64) + 1

	res, err := tx.ExecContext(ctx,
		`INSERT INTO contents (manual_id, ordinal, text, creator_id) VALUES (?, ?, ?, ?)`,
		content.ManualID, content.Ordinal, content.Text, content.CreatorID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert content: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get content id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit content insert: %w", err)
	}
	return id, nil
}

// UpdateText rewrites the text of a step.
func (r *ContentRepository) UpdateText(ctx context.Context, id int64, text string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE contents SET text = ? WHERE id = ?`, text, id)
	if err != nil {
		return fmt.Errorf("failed to update content: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("no content found to update with id %d", id)
	}
	return nil
}

// DeleteAndRenumber removes a step together with its image row and
// renumbers the manual's remaining steps to a dense 1..N sequence, all in
// one transaction. It returns the file path of the removed image, if any,
// for best-effort blob cleanup.
func (r *ContentRepository) DeleteAndRenumber(ctx context.Context, id int64) (string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var content Content
	if err := tx.GetContext(ctx, &content,
		`SELECT `+contentColumns+` FROM contents WHERE id = ?`, id); err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("no content found to delete with id %d", id)
		}
		return "", fmt.Errorf("failed to load content: %w", err)
	}

	var imagePath string
	var image Image
	err = tx.GetContext(ctx, &image, `SELECT id, file_path, content_id FROM images WHERE content_id = ?`, id)
	switch err {
	case nil:
		imagePath = image.FilePath
		if _, err := tx.ExecContext(ctx, `DELETE FROM images WHERE id = ?`, image.ID); err != nil {
			return "", fmt.Errorf("failed to delete image: %w", err)
		}
	case sql.ErrNoRows:
		// no image attached
	default:
		return "", fmt.Errorf("failed to load image: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM contents WHERE id = ?`, id); err != nil {
		return "", fmt.Errorf("failed to delete content: %w", err)
	}

	// Close the gap: every later step shifts down one position, which
	// restores the dense 1..N sequence while preserving relative order.
	if _, err := tx.ExecContext(ctx,
		`UPDATE contents SET ordinal = ordinal - 1 WHERE manual_id = ? AND ordinal > ?`,
		content.ManualID, content.Ordinal); err != nil {
		return "", fmt.Errorf("failed to renumber contents: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit content deletion: %w", err)
	}
	return imagePath, nil
}

// SwapWithNeighbor exchanges a step's ordinal with its predecessor
// (up=true) or successor (up=false). It reports false without error when
// the step is already at the boundary.
func (r *ContentRepository) SwapWithNeighbor(ctx context.Context, id int64, up bool) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var content Content
	if err := tx.GetContext(ctx, &content,
		`SELECT `+contentColumns+` FROM contents WHERE id = ?`, id); err != nil {
		if err == sql.ErrNoRows {
			return false, fmt.Errorf("no content found with id %d", id)
		}
		return false, fmt.Errorf("failed to load content: %w", err)
	}

	var neighbor Content
	var query string
	if up {
		query = `SELECT ` + contentColumns + ` FROM contents WHERE manual_id = ? AND ordinal < ? ORDER BY ordinal DESC LIMIT 1`
	} else {
		query = `SELECT ` + contentColumns + ` FROM contents WHERE manual_id = ? AND ordinal > ? ORDER BY ordinal LIMIT 1`
	}
	if err := tx.GetContext(ctx, &neighbor, query, content.ManualID, content.Ordinal); err != nil {
		if err == sql.ErrNoRows {
			return false, nil // already at the boundary
		}
		return false, fmt.Errorf("failed to load neighbor: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE contents SET ordinal = ? WHERE id = ?`, neighbor.Ordinal, content.ID); err != nil {
		return false, fmt.Errorf("failed to move content: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE contents SET ordinal = ? WHERE id = ?`, content.Ordinal, neighbor.ID); err != nil {
		return false, fmt.Errorf("failed to move neighbor: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit swap: %w", err)
	}
	return true, nil
}

// SetImage attaches an image to a step, replacing any existing one. It
// returns the file path of the replaced image, if any.
func (r *ContentRepository) SetImage(ctx context.Context, contentID int64, filePath string) (string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var replaced string
	var existing Image
	err = tx.GetContext(ctx, &existing, `SELECT id, file_path, content_id FROM images WHERE content_id = ?`, contentID)
	switch err {
	case nil:
		replaced = existing.FilePath
		if _, err := tx.ExecContext(ctx, `UPDATE images SET file_path = ? WHERE id = ?`, filePath, existing.ID); err != nil {
			return "", fmt.Errorf("failed to replace image: %w", err)
		}
	case sql.ErrNoRows:
		if _, err := tx.ExecContext(ctx, `INSERT INTO images (file_path, content_id) VALUES (?, ?)`, filePath, contentID); err != nil {
			return "", fmt.Errorf("failed to insert image: %w", err)
		}
	default:
		return "", fmt.Errorf("failed to load existing image: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit image set: %w", err)
	}
	return replaced, nil
}

// DeleteImage detaches and removes a step's image, returning its file
// path for blob cleanup. Not found is not an error.
func (r *ContentRepository) DeleteImage(ctx context.Context, contentID int64) (string, error) {
	var image Image
	err := r.db.GetContext(ctx, &image, `SELECT id, file_path, content_id FROM images WHERE content_id = ?`, contentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("failed to load image: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM images WHERE id = ?`, image.ID); err != nil {
		return "", fmt.Errorf("failed to delete image: %w", err)
	}
	return image.FilePath, nil
}
