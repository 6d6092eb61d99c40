package session

import (
	"context"
	"net/http"

	"github.com/alexedwards/scs/v2"
)

// SCSManager adapts an scs.SessionManager to the Manager interface.
type SCSManager struct {
	sm *scs.SessionManager
}

var _ Manager = (*SCSManager)(nil)

// NewSCSManager wraps the given scs session manager.
func NewSCSManager(sm *scs.SessionManager) *SCSManager {
	return &SCSManager{sm: sm}
}

func (m *SCSManager) LoadAndSave(next http.Handler) http.Handler {
	return m.sm.LoadAndSave(next)
}

func (m *SCSManager) Put(ctx context.Context, key string, val interface{}) {
	m.sm.Put(ctx, key, val)
}

func (m *SCSManager) GetString(ctx context.Context, key string) string {
	return m.sm.GetString(ctx, key)
}

func (m *SCSManager) GetBool(ctx context.Context, key string) bool {
	return m.sm.GetBool(ctx, key)
}

func (m *SCSManager) PopString(ctx context.Context, key string) string {
	return m.sm.PopString(ctx, key)
}

func (m *SCSManager) Destroy(ctx context.Context) error {
	return m.sm.Destroy(ctx)
}

func (m *SCSManager) Remove(ctx context.Context, key string) {
	m.sm.Remove(ctx, key)
}

func (m *SCSManager) RenewToken(ctx context.Context) error {
	return m.sm.RenewToken(ctx)
}
