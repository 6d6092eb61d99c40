//go:build integration

package data

import (
	"context"
	"testing"
)

func addStep(t *testing.T, repo *ContentRepository, manualID int64, text string) int64 {
	t.Helper()
	id, err := repo.Insert(context.Background(), &Content{ManualID: manualID, Text: text, CreatorID: "alice"})
	if err != nil {
		t.Fatalf("failed to insert content: %v", err)
	}
	return id
}

func ordinals(t *testing.T, repo *ContentRepository, manualID int64) []int {
	t.Helper()
	contents, err := repo.ListByManual(context.Background(), manualID)
	if err != nil {
		t.Fatalf("failed to list contents: %v", err)
	}
	out := make([]int, len(contents))
	for i, c := range contents {
		out[i] = c.Ordinal
	}
	return out
}

func TestContentRepository_InsertAssignsDenseOrdinals(t *testing.T) {
	db, teardown := newTestDB(t)
	defer teardown()
	repo := NewContentRepository(db)

	addStep(t, repo, 1, "one")
	addStep(t, repo, 1, "two")
	addStep(t, repo, 1, "three")

	got := ordinals(t, repo, 1)
	want := []int{1, 2, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected ordinals %v, got %v", want, got)
		}
	}
}

func TestContentRepository_DeleteRenumbersRemainingSteps(t *testing.T) {
	db, teardown := newTestDB(t)
	defer teardown()
	repo := NewContentRepository(db)
	ctx := context.Background()

	addStep(t, repo, 1, "one")
	second := addStep(t, repo, 1, "two")
	addStep(t, repo, 1, "three")
	addStep(t, repo, 1, "four")

	if _, err := repo.DeleteAndRenumber(ctx, second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	contents, err := repo.ListByManual(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 3 {
		t.Fatalf("expected 3 remaining steps, got %d", len(contents))
	}
	wantText := []string{"one", "three", "four"}
	for i, c := range contents {
		if c.Ordinal != i+1 {
			t.Errorf("step %d: expected ordinal %d, got %d", i, i+1, c.Ordinal)
		}
		if c.Text != wantText[i] {
			t.Errorf("step %d: expected text %q, got %q", i, wantText[i], c.Text)
		}
	}
}

func TestContentRepository_DeleteReturnsImagePath(t *testing.T) {
	db, teardown := newTestDB(t)
	defer teardown()
	repo := NewContentRepository(db)
	ctx := context.Background()

	id := addStep(t, repo, 1, "one")
	if _, err := repo.SetImage(ctx, id, "https://blobs.example.com/images/a.png"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path, err := repo.DeleteAndRenumber(ctx, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "https://blobs.example.com/images/a.png" {
		t.Errorf("expected the image path back, got %q", path)
	}
}

func TestContentRepository_SwapWithNeighbor(t *testing.T) {
	db, teardown := newTestDB(t)
	defer teardown()
	repo := NewContentRepository(db)
	ctx := context.Background()

	first := addStep(t, repo, 1, "one")
	second := addStep(t, repo, 1, "two")

	moved, err := repo.SwapWithNeighbor(ctx, second, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !moved {
		t.Fatal("expected the swap to happen")
	}

	contents, err := repo.ListByManual(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if contents[0].ID != second || contents[1].ID != first {
		t.Errorf("expected order [two, one], got [%d, %d]", contents[0].ID, contents[1].ID)
	}
}

func TestContentRepository_SwapAtBoundaryIsNoOp(t *testing.T) {
	db, teardown := newTestDB(t)
	defer teardown()
	repo := NewContentRepository(db)
	ctx := context.Background()

	first := addStep(t, repo, 1, "one")
	addStep(t, repo, 1, "two")

	moved, err := repo.SwapWithNeighbor(ctx, first, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if moved {
		t.Error("expected no move past the top boundary")
	}

	got := ordinals(t, repo, 1)
	if got[0] != 1 || got[1] != 2 {
		t.Errorf("expected ordinals unchanged, got %v", got)
	}
}

func TestContentRepository_SetImageReplaces(t *testing.T) {
	db, teardown := newTestDB(t)
	defer teardown()
	repo := NewContentRepository(db)
	ctx := context.Background()

	id := addStep(t, repo, 1, "one")

	replaced, err := repo.SetImage(ctx, id, "https://blobs.example.com/images/a.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if replaced != "" {
		t.Errorf("expected no replaced image on first set, got %q", replaced)
	}

	replaced, err = repo.SetImage(ctx, id, "https://blobs.example.com/images/b.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if replaced != "https://blobs.example.com/images/a.png" {
		t.Errorf("expected the first path back, got %q", replaced)
	}

	content, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content.Image == nil || content.Image.FilePath != "https://blobs.example.com/images/b.png" {
		t.Errorf("expected the new image attached, got %+v", content.Image)
	}
}

func TestContentRepository_DeleteImage(t *testing.T) {
	db, teardown := newTestDB(t)
	defer teardown()
	repo := NewContentRepository(db)
	ctx := context.Background()

	id := addStep(t, repo, 1, "one")

	// No image yet: not an error, empty path.
	path, err := repo.DeleteImage(ctx, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Errorf("expected empty path, got %q", path)
	}

	if _, err := repo.SetImage(ctx, id, "https://blobs.example.com/images/a.png"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	path, err = repo.DeleteImage(ctx, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "https://blobs.example.com/images/a.png" {
		t.Errorf("expected the stored path back, got %q", path)
	}
}
