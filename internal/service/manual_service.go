package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/owaso30/ManualApp/internal/cache"
	"github.com/owaso30/ManualApp/internal/data"
	"github.com/owaso30/ManualApp/internal/logger"
	"github.com/owaso30/ManualApp/internal/middleware"
	"github.com/owaso30/ManualApp/internal/scope"
	"github.com/owaso30/ManualApp/internal/storage"
)

// ManualStore is the persistence surface the manual service uses.
type ManualStore interface {
	GetByID(ctx context.Context, id int64) (*data.Manual, error)
	ListByScope(ctx context.Context, ownerScope scope.ID) ([]*data.Manual, error)
	Insert(ctx context.Context, manual *data.Manual) (int64, error)
	Update(ctx context.Context, manual *data.Manual) error
	DeleteCascade(ctx context.Context, id int64) ([]string, error)
	UpdateScope(ctx context.Context, id int64, from, to scope.ID) error
}

const exportCacheTTL = time.Hour

func exportCacheKey(manualID int64) string {
	return fmt.Sprintf("manual-export:%d", manualID)
}

// ManualService implements manual CRUD, one-way transfer to group scope
// and HTML export of a manual's steps.
type ManualService struct {
	manuals    ManualStore
	contents   ContentStore
	categories CategoryStore
	mode       *ModeService
	access     *AccessService
	blobs      storage.BlobStore
	cache      *cache.Cache
	markdown   goldmark.Markdown
	sanitizer  *bluemonday.Policy
	log        logger.Logger
}

// NewManualService creates a new ManualService.
func NewManualService(manuals ManualStore, contents ContentStore, categories CategoryStore, mode *ModeService, access *AccessService, blobs storage.BlobStore, c *cache.Cache, log logger.Logger) *ManualService {
	return &ManualService{
		manuals:    manuals,
		contents:   contents,
		categories: categories,
		mode:       mode,
		access:     access,
		blobs:      blobs,
		cache:      c,
		markdown:   goldmark.New(goldmark.WithExtensions(extension.GFM)),
		sanitizer:  bluemonday.UGCPolicy(),
		log:        log,
	}
}

// List returns the manuals owned by the actor's resolved scope.
func (s *ManualService) List(ctx context.Context) []*data.Manual {
	own, ok := s.mode.OwnerScopeID(ctx)
	if !ok {
		return nil
	}
	manuals, err := s.manuals.ListByScope(ctx, own)
	if err != nil {
		s.log.Error(err, "failed to list manuals")
		return nil
	}
	return manuals
}

// Get returns a manual the actor may view.
func (s *ManualService) Get(ctx context.Context, id int64) (*data.Manual, bool) {
	manual, err := s.manuals.GetByID(ctx, id)
	if err != nil || manual == nil {
		return nil, false
	}
	if !s.access.Authorize(ctx, manual.OwnerScope, data.PermissionViewOnly) {
		return nil, false
	}
	return manual, true
}

// Create inserts a manual stamped with the actor's resolved scope. The
// target category must be the default or visible to that scope.
func (s *ManualService) Create(ctx context.Context, title string, categoryID int64) (*data.Manual, bool) {
	actor := middleware.GetActor(ctx)
	own, ok := s.mode.OwnerScopeID(ctx)
	if !ok {
		return nil, false
	}
	if groupID, isGroup := own.GroupID(); isGroup {
		if !s.access.AuthorizeGroup(ctx, groupID, data.PermissionPartialEdit) {
			return nil, false
		}
	}
	category, err := s.categories.GetByID(ctx, categoryID)
	if err != nil || category == nil {
		return nil, false
	}
	if !category.IsDefault && category.OwnerScope != own {
		return nil, false
	}
	manual := &data.Manual{
		Title:      title,
		CategoryID: categoryID,
		OwnerScope: own,
		CreatorID:  actor.UserID,
	}
	id, err := s.manuals.Insert(ctx, manual)
	if err != nil {
		s.log.Error(err, "failed to create manual")
		return nil, false
	}
	manual.ID = id
	return manual, true
}

// Update changes a manual's title or category.
func (s *ManualService) Update(ctx context.Context, id int64, title string, categoryID int64) bool {
	manual, err := s.manuals.GetByID(ctx, id)
	if err != nil || manual == nil {
		return false
	}
	if !s.access.CanModify(ctx, manual.OwnerScope, data.PermissionPartialEdit) {
		return false
	}
	if categoryID != manual.CategoryID {
		category, err := s.categories.GetByID(ctx, categoryID)
		if err != nil || category == nil {
			return false
		}
		if !category.IsDefault && category.OwnerScope != manual.OwnerScope {
			return false
		}
	}
	manual.Title = title
	manual.CategoryID = categoryID
	if err := s.manuals.Update(ctx, manual); err != nil {
		s.log.Error(err, "failed to update manual")
		return false
	}
	s.invalidateExport(id)
	return true
}

// Delete removes a manual with its contents and images, then deletes the
// stored image blobs best effort.
func (s *ManualService) Delete(ctx context.Context, id int64) bool {
	manual, err := s.manuals.GetByID(ctx, id)
	if err != nil || manual == nil {
		return false
	}
	if !s.access.CanModify(ctx, manual.OwnerScope, data.PermissionFullEdit) {
		return false
	}
	paths, err := s.manuals.DeleteCascade(ctx, id)
	if err != nil {
		s.log.Error(err, "failed to delete manual")
		return false
	}
	for _, path := range paths {
		if err := s.blobs.Delete(ctx, path); err != nil {
			s.log.Error(err, "failed to delete image blob")
		}
	}
	s.invalidateExport(id)
	return true
}

// TransferToGroup moves a personally owned manual to the actor's current
// group. One-way, like the category transfer.
func (s *ManualService) TransferToGroup(ctx context.Context, id int64) bool {
	actor := middleware.GetActor(ctx)
	if !actor.IsAuthenticated {
		return false
	}
	groupID, ok := s.mode.CurrentGroupID(ctx)
	if !ok {
		return false
	}
	manual, err := s.manuals.GetByID(ctx, id)
	if err != nil || manual == nil {
		return false
	}
	if manual.OwnerScope != scope.Personal(actor.UserID) {
		return false
	}
	if err := s.manuals.UpdateScope(ctx, id, scope.Personal(actor.UserID), scope.SharedGroup(groupID)); err != nil {
		s.log.Error(err, "failed to transfer manual to group")
		return false
	}
	return true
}

// Export renders the manual's steps as a single sanitized HTML document.
// Results are cached for an hour; any content mutation invalidates the
// entry.
func (s *ManualService) Export(ctx context.Context, id int64) ([]byte, bool) {
	manual, err := s.manuals.GetByID(ctx, id)
	if err != nil || manual == nil {
		return nil, false
	}
	if !s.access.Authorize(ctx, manual.OwnerScope, data.PermissionViewOnly) {
		return nil, false
	}
	key := exportCacheKey(id)
	if s.cache != nil {
		if cached, err := s.cache.Get(key); err == nil && cached != nil {
			return cached, true
		}
	}
	contents, err := s.contents.ListByManual(ctx, id)
	if err != nil {
		s.log.Error(err, "failed to load contents for export")
		return nil, false
	}
	html, err := s.renderExport(manual, contents)
	if err != nil {
		s.log.Error(err, "failed to render manual export")
		return nil, false
	}
	if s.cache != nil {
		if err := s.cache.Set(key, html, exportCacheTTL); err != nil {
			s.log.Error(err, "failed to cache manual export")
		}
	}
	return html, true
}

func (s *ManualService) renderExport(manual *data.Manual, contents []*data.Content) ([]byte, error) {
	var md bytes.Buffer
	fmt.Fprintf(&md, "# %s\n\n", manual.Title)
	for _, c := range contents {
		fmt.Fprintf(&md, "## Step %d\n\n%s\n\n", c.Ordinal, c.Text)
		if c.Image != nil {
			fmt.Fprintf(&md, "![step %d image](%s)\n\n", c.Ordinal, c.Image.FilePath)
		}
	}
	var html bytes.Buffer
	if err := s.markdown.Convert(md.Bytes(), &html); err != nil {
		return nil, err
	}
	return s.sanitizer.SanitizeBytes(html.Bytes()), nil
}

func (s *ManualService) invalidateExport(manualID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(exportCacheKey(manualID)); err != nil {
		s.log.Error(err, "failed to invalidate manual export cache")
	}
}
