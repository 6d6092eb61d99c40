package service

import (
	"context"
	"net/http"
	"sync"

	"github.com/owaso30/ManualApp/internal/data"
	"github.com/owaso30/ManualApp/internal/logger"
	"github.com/owaso30/ManualApp/internal/middleware"
	"github.com/owaso30/ManualApp/internal/scope"
	"github.com/owaso30/ManualApp/internal/session"
)

// Mode is the actor's current selection of personal vs group scope.
type Mode string

const (
	ModePersonal Mode = "personal"
	ModeGroup    Mode = "group"
)

// modeSessionKey is where the preference lives in the session store. The
// session lifetime (30 days by default) bounds how long it persists.
const modeSessionKey = "view_mode"

// UserStore is the single lookup the mode resolver needs: the user row
// with its denormalized group pointer.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*data.User, error)
}

type modeCacheCtxKey struct{}

// modeCache memoizes the group-membership lookup for one request. The
// mutex serializes the load-if-absent path so parallel calls within the
// request trigger at most one database read.
type modeCache struct {
	mu         sync.Mutex
	loaded     bool
	userID     string
	groupID    *int64
	permission *data.GroupPermission
}

// ModeCacheMiddleware attaches a fresh membership memoization cache to
// every request. The cache dies with the request, so membership changes
// are visible on the next request without any explicit invalidation.
func ModeCacheMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), modeCacheCtxKey{}, &modeCache{})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// InvalidateModeCache drops the request's memoized membership so that
// later calls within the same request observe a membership mutation.
func InvalidateModeCache(ctx context.Context) {
	if c, ok := ctx.Value(modeCacheCtxKey{}).(*modeCache); ok {
		c.mu.Lock()
		c.loaded = false
		c.userID = ""
		c.groupID = nil
		c.permission = nil
		c.mu.Unlock()
	}
}

// ModeService resolves the effective owner scope of the current actor.
// Lookup failures degrade to personal scope and are never surfaced to
// callers; the UI above this layer cannot render arbitrary errors.
type ModeService struct {
	sessions session.Manager
	users    UserStore
	log      logger.Logger
}

// NewModeService creates a new ModeService.
func NewModeService(sessions session.Manager, users UserStore, log logger.Logger) *ModeService {
	return &ModeService{sessions: sessions, users: users, log: log}
}

// CurrentMode returns the actor's stored preference, defaulting to group
// mode when nothing (or garbage) is stored.
func (s *ModeService) CurrentMode(ctx context.Context) Mode {
	switch Mode(s.sessions.GetString(ctx, modeSessionKey)) {
	case ModePersonal:
		return ModePersonal
	case ModeGroup:
		return ModeGroup
	default:
		return ModeGroup
	}
}

// SetMode persists the preference in the session. Persist failures are
// swallowed and leave the default in effect.
func (s *ModeService) SetMode(ctx context.Context, mode Mode) {
	if mode != ModePersonal && mode != ModeGroup {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Warn("failed to persist view mode preference")
		}
	}()
	s.sessions.Put(ctx, modeSessionKey, string(mode))
}

// OwnerScopeID resolves the effective owner scope for the current actor.
// It returns false only for unauthenticated actors. In group mode without
// an active membership it silently degrades to the personal scope.
func (s *ModeService) OwnerScopeID(ctx context.Context) (scope.ID, bool) {
	actor := middleware.GetActor(ctx)
	if !actor.IsAuthenticated {
		return scope.ID{}, false
	}
	if s.CurrentMode(ctx) == ModePersonal {
		return scope.Personal(actor.UserID), true
	}
	groupID, _ := s.loadGroupInfo(ctx, actor.UserID)
	if groupID == nil {
		return scope.Personal(actor.UserID), true
	}
	return scope.SharedGroup(*groupID), true
}

// IsGroupMember reports whether the actor has an active membership.
func (s *ModeService) IsGroupMember(ctx context.Context) bool {
	actor := middleware.GetActor(ctx)
	if !actor.IsAuthenticated {
		return false
	}
	groupID, _ := s.loadGroupInfo(ctx, actor.UserID)
	return groupID != nil
}

// CurrentGroupID returns the actor's active group, if any.
func (s *ModeService) CurrentGroupID(ctx context.Context) (int64, bool) {
	actor := middleware.GetActor(ctx)
	if !actor.IsAuthenticated {
		return 0, false
	}
	groupID, _ := s.loadGroupInfo(ctx, actor.UserID)
	if groupID == nil {
		return 0, false
	}
	return *groupID, true
}

// CurrentPermission returns the actor's permission tier in their active
// group, if any.
func (s *ModeService) CurrentPermission(ctx context.Context) (data.GroupPermission, bool) {
	actor := middleware.GetActor(ctx)
	if !actor.IsAuthenticated {
		return 0, false
	}
	_, permission := s.loadGroupInfo(ctx, actor.UserID)
	if permission == nil {
		return 0, false
	}
	return *permission, true
}

// loadGroupInfo reads the denormalized group pointer for the user,
// memoized per request. Errors are treated as "not a group member".
func (s *ModeService) loadGroupInfo(ctx context.Context, userID string) (*int64, *data.GroupPermission) {
	c, ok := ctx.Value(modeCacheCtxKey{}).(*modeCache)
	if !ok {
		// No cache on the context (direct service call); plain lookup.
		return s.lookup(ctx, userID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded && c.userID == userID {
		return c.groupID, c.permission
	}
	groupID, permission := s.lookup(ctx, userID)
	c.loaded = true
	c.userID = userID
	c.groupID = groupID
	c.permission = permission
	return groupID, permission
}

func (s *ModeService) lookup(ctx context.Context, userID string) (*int64, *data.GroupPermission) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		s.log.Error(err, "group membership lookup failed; treating actor as personal")
		return nil, nil
	}
	if user == nil {
		return nil, nil
	}
	return user.GroupID, user.GroupPermission
}
