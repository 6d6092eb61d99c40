//go:build unit

package service

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/owaso30/ManualApp/internal/cache"
	"github.com/owaso30/ManualApp/internal/config"
	"github.com/owaso30/ManualApp/internal/data"
	"github.com/owaso30/ManualApp/internal/scope"
	"github.com/owaso30/ManualApp/internal/storage"
)

// newTestCache creates a new in-memory cache for testing.
func newTestCache(t *testing.T) (*cache.Cache, func()) {
	t.Helper()
	c, err := cache.New(config.CacheConfig{FilePath: "file::memory:"})
	if err != nil {
		t.Fatalf("failed to create test cache: %v", err)
	}
	teardown := func() {
		c.Close()
	}
	return c, teardown
}

// mockManualStore is a mock implementation of the ManualStore interface.
type mockManualStore struct {
	manual         *data.Manual
	listToReturn   []*data.Manual
	errToReturn    error
	inserted       *data.Manual
	updated        *data.Manual
	deletedID      int64
	imagePaths     []string
	scopeUpdatedTo scope.ID
}

var _ ManualStore = (*mockManualStore)(nil)

func (m *mockManualStore) GetByID(ctx context.Context, id int64) (*data.Manual, error) {
	if m.errToReturn != nil {
		return nil, m.errToReturn
	}
	if m.manual != nil && m.manual.ID == id {
		return m.manual, nil
	}
	return nil, nil
}

func (m *mockManualStore) ListByScope(ctx context.Context, ownerScope scope.ID) ([]*data.Manual, error) {
	return m.listToReturn, m.errToReturn
}

func (m *mockManualStore) Insert(ctx context.Context, manual *data.Manual) (int64, error) {
	if m.errToReturn != nil {
		return 0, m.errToReturn
	}
	m.inserted = manual
	return 21, nil
}

func (m *mockManualStore) Update(ctx context.Context, manual *data.Manual) error {
	m.updated = manual
	return m.errToReturn
}

func (m *mockManualStore) DeleteCascade(ctx context.Context, id int64) ([]string, error) {
	if m.errToReturn != nil {
		return nil, m.errToReturn
	}
	m.deletedID = id
	return m.imagePaths, nil
}

func (m *mockManualStore) UpdateScope(ctx context.Context, id int64, from, to scope.ID) error {
	m.scopeUpdatedTo = to
	return m.errToReturn
}

// mockContentStore is a mock implementation of the ContentStore interface.
type mockContentStore struct {
	content        *data.Content
	listToReturn   []*data.Content
	errToReturn    error
	inserted       *data.Content
	updatedText    string
	deletedID      int64
	deletedImage   string
	swapCalled     bool
	swapMoved      bool
	setImagePath   string
	replacedImage  string
	removedImageID int64
}

var _ ContentStore = (*mockContentStore)(nil)

func (m *mockContentStore) GetByID(ctx context.Context, id int64) (*data.Content, error) {
	if m.errToReturn != nil {
		return nil, m.errToReturn
	}
	if m.content != nil && m.content.ID == id {
		return m.content, nil
	}
	return nil, nil
}

func (m *mockContentStore) ListByManual(ctx context.Context, manualID int64) ([]*data.Content, error) {
	return m.listToReturn, m.errToReturn
}

func (m *mockContentStore) Insert(ctx context.Context, content *data.Content) (int64, error) {
	if m.errToReturn != nil {
		return 0, m.errToReturn
	}
	m.inserted = content
	content.Ordinal = len(m.listToReturn) + 1
	return 31, nil
}

func (m *mockContentStore) UpdateText(ctx context.Context, id int64, text string) error {
	m.updatedText = text
	return m.errToReturn
}

func (m *mockContentStore) DeleteAndRenumber(ctx context.Context, id int64) (string, error) {
	if m.errToReturn != nil {
		return "", m.errToReturn
	}
	m.deletedID = id
	return m.deletedImage, nil
}

func (m *mockContentStore) SwapWithNeighbor(ctx context.Context, id int64, up bool) (bool, error) {
	m.swapCalled = true
	return m.swapMoved, m.errToReturn
}

func (m *mockContentStore) SetImage(ctx context.Context, contentID int64, filePath string) (string, error) {
	if m.errToReturn != nil {
		return "", m.errToReturn
	}
	m.setImagePath = filePath
	return m.replacedImage, nil
}

func (m *mockContentStore) DeleteImage(ctx context.Context, contentID int64) (string, error) {
	if m.errToReturn != nil {
		return "", m.errToReturn
	}
	m.removedImageID = contentID
	return m.deletedImage, nil
}

// mockBlobStore records uploads and deletes in memory.
type mockBlobStore struct {
	uploads []string
	deletes []string
	failUp  bool
}

var _ storage.BlobStore = (*mockBlobStore)(nil)

func (m *mockBlobStore) Upload(ctx context.Context, key string, r io.Reader) (string, error) {
	if m.failUp {
		return "", io.ErrUnexpectedEOF
	}
	m.uploads = append(m.uploads, key)
	return "https://blobs.example.com/" + key, nil
}

func (m *mockBlobStore) Delete(ctx context.Context, fileURL string) error {
	m.deletes = append(m.deletes, fileURL)
	return nil
}

func newManualService(t *testing.T, manuals *mockManualStore, contents *mockContentStore, categories *mockCategoryStore, users *mockUserStore, memberships *mockMembershipStore, blobs *mockBlobStore, c *cache.Cache) *ManualService {
	t.Helper()
	log := newTestLogger(t)
	mode := NewModeService(newMockSessionManager(), users, log)
	access := NewAccessService(mode, memberships, log)
	return NewManualService(manuals, contents, categories, mode, access, blobs, c, log)
}

func TestManualService_CreateStampsScopeAndValidatesCategory(t *testing.T) {
	manuals := &mockManualStore{}
	categories := &mockCategoryStore{defaultCat: &data.Category{ID: 1, IsDefault: true}}
	users := &mockUserStore{userToReturn: &data.User{ID: "alice"}}
	svc := newManualService(t, manuals, &mockContentStore{}, categories, users, &mockMembershipStore{}, &mockBlobStore{}, nil)

	manual, ok := svc.Create(actorCtx("alice", false), "setup guide", 1)
	if !ok {
		t.Fatal("expected creation to succeed")
	}
	if manual.OwnerScope != scope.Personal("alice") {
		t.Errorf("expected personal-stamped scope, got %v", manual.OwnerScope)
	}
	if manual.CreatorID != "alice" {
		t.Errorf("expected creator audit field, got %q", manual.CreatorID)
	}
}

func TestManualService_CreateRefusedForForeignCategory(t *testing.T) {
	categories := &mockCategoryStore{category: &data.Category{ID: 2, OwnerScope: scope.Personal("bob")}}
	users := &mockUserStore{userToReturn: &data.User{ID: "alice"}}
	svc := newManualService(t, &mockManualStore{}, &mockContentStore{}, categories, users, &mockMembershipStore{}, &mockBlobStore{}, nil)

	if _, ok := svc.Create(actorCtx("alice", false), "setup guide", 2); ok {
		t.Error("expected refusal for a category outside the actor's scope")
	}
}

func TestManualService_DeleteCleansUpBlobs(t *testing.T) {
	manuals := &mockManualStore{
		manual:     &data.Manual{ID: 21, OwnerScope: scope.Personal("alice")},
		imagePaths: []string{"https://blobs.example.com/images/a.png", "https://blobs.example.com/images/b.png"},
	}
	blobs := &mockBlobStore{}
	users := &mockUserStore{userToReturn: &data.User{ID: "alice"}}
	svc := newManualService(t, manuals, &mockContentStore{}, &mockCategoryStore{}, users, &mockMembershipStore{}, blobs, nil)

	if !svc.Delete(actorCtx("alice", false), 21) {
		t.Fatal("expected deletion to succeed")
	}
	if len(blobs.deletes) != 2 {
		t.Errorf("expected both image blobs deleted, got %d", len(blobs.deletes))
	}
}

func TestManualService_TransferToGroup(t *testing.T) {
	manuals := &mockManualStore{manual: &data.Manual{ID: 21, OwnerScope: scope.Personal("alice")}}
	users := &mockUserStore{userToReturn: groupMember("alice", 7, data.PermissionViewOnly)}
	svc := newManualService(t, manuals, &mockContentStore{}, &mockCategoryStore{}, users, &mockMembershipStore{}, &mockBlobStore{}, nil)

	if !svc.TransferToGroup(actorCtx("alice", false), 21) {
		t.Fatal("expected transfer to succeed")
	}
	if manuals.scopeUpdatedTo != scope.SharedGroup(7) {
		t.Errorf("expected transfer to group 7, got %v", manuals.scopeUpdatedTo)
	}
}

func TestManualService_ExportRendersAndCaches(t *testing.T) {
	c, teardown := newTestCache(t)
	defer teardown()

	manuals := &mockManualStore{manual: &data.Manual{ID: 21, Title: "Setup", OwnerScope: scope.Personal("alice")}}
	contents := &mockContentStore{listToReturn: []*data.Content{
		{ID: 1, ManualID: 21, Ordinal: 1, Text: "Install the *agent*."},
		{ID: 2, ManualID: 21, Ordinal: 2, Text: "<script>alert(1)</script>Restart."},
	}}
	users := &mockUserStore{userToReturn: &data.User{ID: "alice"}}
	svc := newManualService(t, manuals, contents, &mockCategoryStore{}, users, &mockMembershipStore{}, &mockBlobStore{}, c)
	ctx := actorCtx("alice", false)

	html, ok := svc.Export(ctx, 21)
	if !ok {
		t.Fatal("expected export to succeed")
	}
	out := string(html)
	if !strings.Contains(out, "<em>agent</em>") {
		t.Errorf("expected rendered markdown, got %q", out)
	}
	if strings.Contains(out, "<script>") {
		t.Errorf("expected script tags to be stripped, got %q", out)
	}

	// Second export must come from the cache, not a fresh content read.
	contents.errToReturn = io.ErrUnexpectedEOF
	if _, ok := svc.Export(ctx, 21); !ok {
		t.Error("expected the cached export to be served")
	}
}

func TestManualService_UpdateInvalidatesExportCache(t *testing.T) {
	c, teardown := newTestCache(t)
	defer teardown()

	manuals := &mockManualStore{manual: &data.Manual{ID: 21, Title: "Setup", CategoryID: 1, OwnerScope: scope.Personal("alice")}}
	contents := &mockContentStore{listToReturn: []*data.Content{{ID: 1, ManualID: 21, Ordinal: 1, Text: "one"}}}
	users := &mockUserStore{userToReturn: &data.User{ID: "alice"}}
	svc := newManualService(t, manuals, contents, &mockCategoryStore{}, users, &mockMembershipStore{}, &mockBlobStore{}, c)
	ctx := actorCtx("alice", false)

	if _, ok := svc.Export(ctx, 21); !ok {
		t.Fatal("expected export to succeed")
	}
	if !svc.Update(ctx, 21, "Setup v2", 1) {
		t.Fatal("expected update to succeed")
	}

	html, ok := svc.Export(ctx, 21)
	if !ok {
		t.Fatal("expected re-export to succeed")
	}
	if !strings.Contains(string(html), "Setup v2") {
		t.Error("expected the export to reflect the new title")
	}
}
