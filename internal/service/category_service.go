package service

import (
	"context"

	"github.com/owaso30/ManualApp/internal/data"
	"github.com/owaso30/ManualApp/internal/logger"
	"github.com/owaso30/ManualApp/internal/middleware"
	"github.com/owaso30/ManualApp/internal/scope"
)

// CategoryStore is the persistence surface the category service uses.
type CategoryStore interface {
	GetByID(ctx context.Context, id int64) (*data.Category, error)
	GetDefault(ctx context.Context) (*data.Category, error)
	ListForScope(ctx context.Context, ownerScope scope.ID) ([]*data.Category, error)
	Insert(ctx context.Context, category *data.Category) (int64, error)
	Update(ctx context.Context, category *data.Category) error
	DeleteReassign(ctx context.Context, id int64, defaultID int64) error
	UpdateScope(ctx context.Context, id int64, from, to scope.ID) error
}

// CategoryService implements category CRUD under scope-based access
// control. The default category is immutable and undeletable for every
// actor, including administrators.
type CategoryService struct {
	categories CategoryStore
	mode       *ModeService
	access     *AccessService
	log        logger.Logger
}

// NewCategoryService creates a new CategoryService.
func NewCategoryService(categories CategoryStore, mode *ModeService, access *AccessService, log logger.Logger) *CategoryService {
	return &CategoryService{categories: categories, mode: mode, access: access, log: log}
}

// List returns the default category plus the categories owned by the
// actor's resolved scope, with scoped manual counts.
func (s *CategoryService) List(ctx context.Context) []*data.Category {
	own, ok := s.mode.OwnerScopeID(ctx)
	if !ok {
		return nil
	}
	categories, err := s.categories.ListForScope(ctx, own)
	if err != nil {
		s.log.Error(err, "failed to list categories")
		return nil
	}
	return categories
}

// Get returns a category the actor may view.
func (s *CategoryService) Get(ctx context.Context, id int64) (*data.Category, bool) {
	category, err := s.categories.GetByID(ctx, id)
	if err != nil || category == nil {
		return nil, false
	}
	if category.IsDefault {
		return category, middleware.GetActor(ctx).IsAuthenticated
	}
	if !s.access.Authorize(ctx, category.OwnerScope, data.PermissionViewOnly) {
		return nil, false
	}
	return category, true
}

// Create inserts a category stamped with the actor's resolved scope.
func (s *CategoryService) Create(ctx context.Context, name string, description *string, allowPartialEdit bool) (*data.Category, bool) {
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
	category := &data.Category{
		Name:             name,
		Description:      description,
		OwnerScope:       own,
		CreatorID:        &actor.UserID,
		AllowPartialEdit: allowPartialEdit,
	}
	id, err := s.categories.Insert(ctx, category)
	if err != nil {
		s.log.Error(err, "failed to create category")
		return nil, false
	}
	category.ID = id
	return category, true
}

// editTier is the tier a group member needs to edit the category.
func editTier(category *data.Category) data.GroupPermission {
	if category.AllowPartialEdit {
		return data.PermissionPartialEdit
	}
	return data.PermissionFullEdit
}

// Update renames or reconfigures a category. The default category is
// refused outright.
func (s *CategoryService) Update(ctx context.Context, id int64, name string, description *string, allowPartialEdit bool) bool {
	category, err := s.categories.GetByID(ctx, id)
	if err != nil || category == nil || category.IsDefault {
		return false
	}
	if !s.access.CanModify(ctx, category.OwnerScope, editTier(category)) {
		return false
	}
	category.Name = name
	category.Description = description
	category.AllowPartialEdit = allowPartialEdit
	if err := s.categories.Update(ctx, category); err != nil {
		s.log.Error(err, "failed to update category")
		return false
	}
	return true
}

// Delete removes a category and reassigns its manuals to the default
// category in the same transaction. The default category is refused.
func (s *CategoryService) Delete(ctx context.Context, id int64) bool {
	category, err := s.categories.GetByID(ctx, id)
	if err != nil || category == nil || category.IsDefault {
		return false
	}
	if !s.access.CanModify(ctx, category.OwnerScope, data.PermissionFullEdit) {
		return false
	}
	def, err := s.categories.GetDefault(ctx)
	if err != nil {
		s.log.Error(err, "default category missing; refusing category delete")
		return false
	}
	if err := s.categories.DeleteReassign(ctx, id, def.ID); err != nil {
		s.log.Error(err, "failed to delete category")
		return false
	}
	return true
}

// TransferToGroup moves a personally owned category to the actor's
// current group. The move is one-way and requires the actor to own the
// category personally and to belong to a group.
func (s *CategoryService) TransferToGroup(ctx context.Context, id int64) bool {
	actor := middleware.GetActor(ctx)
	if !actor.IsAuthenticated {
		return false
	}
	groupID, ok := s.mode.CurrentGroupID(ctx)
	if !ok {
		return false
	}
	category, err := s.categories.GetByID(ctx, id)
	if err != nil || category == nil || category.IsDefault {
		return false
	}
	if category.OwnerScope != scope.Personal(actor.UserID) {
		return false
	}
	if err := s.categories.UpdateScope(ctx, id, scope.Personal(actor.UserID), scope.SharedGroup(groupID)); err != nil {
		s.log.Error(err, "failed to transfer category to group")
		return false
	}
	return true
}
