package service

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/owaso30/ManualApp/internal/cache"
	"github.com/owaso30/ManualApp/internal/data"
	"github.com/owaso30/ManualApp/internal/logger"
	"github.com/owaso30/ManualApp/internal/middleware"
	"github.com/owaso30/ManualApp/internal/storage"
)

// ContentStore is the persistence surface the content service uses.
type ContentStore interface {
	GetByID(ctx context.Context, id int64) (*data.Content, error)
	ListByManual(ctx context.Context, manualID int64) ([]*data.Content, error)
	Insert(ctx context.Context, content *data.Content) (int64, error)
	UpdateText(ctx context.Context, id int64, text string) error
	DeleteAndRenumber(ctx context.Context, id int64) (string, error)
	SwapWithNeighbor(ctx context.Context, id int64, up bool) (bool, error)
	SetImage(ctx context.Context, contentID int64, filePath string) (string, error)
	DeleteImage(ctx context.Context, contentID int64) (string, error)
}

// ContentService manages a manual's ordered steps and their images. All
// mutations require partial-edit access to the owning manual's scope and
// invalidate the manual's cached export.
type ContentService struct {
	contents  ContentStore
	manuals   ManualStore
	access    *AccessService
	blobs     storage.BlobStore
	cache     *cache.Cache
	sanitizer *bluemonday.Policy
	log       logger.Logger
}

// NewContentService creates a new ContentService.
func NewContentService(contents ContentStore, manuals ManualStore, access *AccessService, blobs storage.BlobStore, c *cache.Cache, log logger.Logger) *ContentService {
	return &ContentService{
		contents:  contents,
		manuals:   manuals,
		access:    access,
		blobs:     blobs,
		cache:     c,
		sanitizer: bluemonday.UGCPolicy(),
		log:       log,
	}
}

// ListByManual returns a manual's steps in ordinal order, images
// attached, for an actor who may view the manual.
func (s *ContentService) ListByManual(ctx context.Context, manualID int64) ([]*data.Content, bool) {
	manual, err := s.manuals.GetByID(ctx, manualID)
	if err != nil || manual == nil {
		return nil, false
	}
	if !s.access.Authorize(ctx, manual.OwnerScope, data.PermissionViewOnly) {
		return nil, false
	}
	contents, err := s.contents.ListByManual(ctx, manualID)
	if err != nil {
		s.log.Error(err, "failed to list contents")
		return nil, false
	}
	return contents, true
}

// Add appends a step to the end of the manual. Text is sanitized before
// storage.
func (s *ContentService) Add(ctx context.Context, manualID int64, text string) (*data.Content, bool) {
	actor := middleware.GetActor(ctx)
	manual, ok := s.writableManual(ctx, manualID)
	if !ok {
		return nil, false
	}
	content := &data.Content{
		ManualID:  manual.ID,
		Text:      s.sanitizer.Sanitize(text),
		CreatorID: actor.UserID,
	}
	id, err := s.contents.Insert(ctx, content)
	if err != nil {
		s.log.Error(err, "failed to add content")
		return nil, false
	}
	content.ID = id
	s.invalidateExport(manual.ID)
	return content, true
}

// UpdateText replaces a step's text, sanitized.
func (s *ContentService) UpdateText(ctx context.Context, contentID int64, text string) bool {
	content, _, ok := s.writableContent(ctx, contentID)
	if !ok {
		return false
	}
	if err := s.contents.UpdateText(ctx, contentID, s.sanitizer.Sanitize(text)); err != nil {
		s.log.Error(err, "failed to update content text")
		return false
	}
	s.invalidateExport(content.ManualID)
	return true
}

// Delete removes a step, renumbers the remaining steps to a dense 1..N
// sequence and deletes the step's image blob best effort.
func (s *ContentService) Delete(ctx context.Context, contentID int64) bool {
	content, _, ok := s.writableContent(ctx, contentID)
	if !ok {
		return false
	}
	imagePath, err := s.contents.DeleteAndRenumber(ctx, contentID)
	if err != nil {
		s.log.Error(err, "failed to delete content")
		return false
	}
	if imagePath != "" {
		if err := s.blobs.Delete(ctx, imagePath); err != nil {
			s.log.Error(err, "failed to delete image blob")
		}
	}
	s.invalidateExport(content.ManualID)
	return true
}

// Move swaps a step with its neighbor above (up) or below. Moving past
// either end is a no-op that still reports success.
func (s *ContentService) Move(ctx context.Context, contentID int64, up bool) bool {
	content, _, ok := s.writableContent(ctx, contentID)
	if !ok {
		return false
	}
	moved, err := s.contents.SwapWithNeighbor(ctx, contentID, up)
	if err != nil {
		s.log.Error(err, "failed to move content")
		return false
	}
	if moved {
		s.invalidateExport(content.ManualID)
	}
	return true
}

// AttachImage stores the uploaded image under a fresh key and points the
// step at it, replacing (and best-effort deleting) any previous image.
func (s *ContentService) AttachImage(ctx context.Context, contentID int64, filename string, r io.Reader) (string, bool) {
	content, _, ok := s.writableContent(ctx, contentID)
	if !ok {
		return "", false
	}
	ext := strings.ToLower(filepath.Ext(filename))
	key := "images/" + uuid.NewString() + ext
	url, err := s.blobs.Upload(ctx, key, r)
	if err != nil {
		s.log.Error(err, "failed to upload image")
		return "", false
	}
	replaced, err := s.contents.SetImage(ctx, contentID, url)
	if err != nil {
		s.log.Error(err, "failed to record image")
		// The freshly uploaded blob is now orphaned; remove it.
		if derr := s.blobs.Delete(ctx, url); derr != nil {
			s.log.Error(derr, "failed to delete orphaned image blob")
		}
		return "", false
	}
	if replaced != "" {
		if err := s.blobs.Delete(ctx, replaced); err != nil {
			s.log.Error(err, "failed to delete replaced image blob")
		}
	}
	s.invalidateExport(content.ManualID)
	return url, true
}

// RemoveImage detaches and best-effort deletes a step's image.
func (s *ContentService) RemoveImage(ctx context.Context, contentID int64) bool {
	content, _, ok := s.writableContent(ctx, contentID)
	if !ok {
		return false
	}
	path, err := s.contents.DeleteImage(ctx, contentID)
	if err != nil {
		s.log.Error(err, "failed to remove image")
		return false
	}
	if path != "" {
		if err := s.blobs.Delete(ctx, path); err != nil {
			s.log.Error(err, "failed to delete image blob")
		}
	}
	s.invalidateExport(content.ManualID)
	return true
}

func (s *ContentService) writableManual(ctx context.Context, manualID int64) (*data.Manual, bool) {
	manual, err := s.manuals.GetByID(ctx, manualID)
	if err != nil || manual == nil {
		return nil, false
	}
	if !s.access.CanModify(ctx, manual.OwnerScope, data.PermissionPartialEdit) {
		return nil, false
	}
	return manual, true
}

func (s *ContentService) writableContent(ctx context.Context, contentID int64) (*data.Content, *data.Manual, bool) {
	content, err := s.contents.GetByID(ctx, contentID)
	if err != nil || content == nil {
		return nil, nil, false
	}
	manual, ok := s.writableManual(ctx, content.ManualID)
	if !ok {
		return nil, nil, false
	}
	return content, manual, true
}

func (s *ContentService) invalidateExport(manualID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(exportCacheKey(manualID)); err != nil {
		s.log.Error(err, "failed to invalidate manual export cache")
	}
}
