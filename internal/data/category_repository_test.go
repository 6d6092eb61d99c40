//go:build integration

package data

import (
	"context"
	"testing"

	"github.com/owaso30/ManualApp/internal/scope"
)

func TestCategoryRepository_ListForScope(t *testing.T) {
	db, teardown := newTestDB(t)
	defer teardown()
	repo := NewCategoryRepository(db)
	ctx := context.Background()

	db.MustExec(`INSERT INTO categories (name, is_default) VALUES ('General', 1)`)
	alice := scope.Personal("alice")
	bob := scope.Personal("bob")

	aliceID, err := repo.Insert(ctx, &Category{Name: "runbooks", OwnerScope: alice})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := repo.Insert(ctx, &Category{Name: "secrets", OwnerScope: bob}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	db.MustExec(`INSERT INTO manuals (title, category_id, owner_scope, creator_id) VALUES ('a', ?, ?, 'alice')`, aliceID, alice.String())
	db.MustExec(`INSERT INTO manuals (title, category_id, owner_scope, creator_id) VALUES ('b', ?, ?, 'bob')`, aliceID, bob.String())

	categories, err := repo.ListForScope(ctx, alice)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(categories) != 2 {
		t.Fatalf("expected the default plus alice's category, got %d", len(categories))
	}
	if !categories[0].IsDefault {
		t.Error("expected the default category first")
	}
	if categories[1].Name != "runbooks" {
		t.Errorf("expected alice's category, got %q", categories[1].Name)
	}
	// Only manuals in alice's scope count.
	if categories[1].ManualCount != 1 {
		t.Errorf("expected a scoped manual count of 1, got %d", categories[1].ManualCount)
	}
}

func TestCategoryRepository_DeleteReassignMovesManuals(t *testing.T) {
	db, teardown := newTestDB(t)
	defer teardown()
	repo := NewCategoryRepository(db)
	ctx := context.Background()

	db.MustExec(`INSERT INTO categories (name, is_default) VALUES ('General', 1)`)
	def, err := repo.GetDefault(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	alice := scope.Personal("alice")
	catID, err := repo.Insert(ctx, &Category{Name: "runbooks", OwnerScope: alice})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	db.MustExec(`INSERT INTO manuals (title, category_id, owner_scope, creator_id) VALUES ('a', ?, ?, 'alice')`, catID, alice.String())

	if err := repo.DeleteReassign(ctx, catID, def.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	category, err := repo.GetByID(ctx, catID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if category != nil {
		t.Errorf("expected the category deleted, got %+v", category)
	}
	var count int
	if err := db.Get(&count, `SELECT COUNT(*) FROM manuals WHERE category_id = ?`, def.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1 {
		t.Errorf("expected the manual reassigned to the default category, got %d", count)
	}
}

func TestCategoryRepository_DeleteReassignRefusesDefault(t *testing.T) {
	db, teardown := newTestDB(t)
	defer teardown()
	repo := NewCategoryRepository(db)
	ctx := context.Background()

	db.MustExec(`INSERT INTO categories (name, is_default) VALUES ('General', 1)`)
	def, err := repo.GetDefault(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := repo.DeleteReassign(ctx, def.ID, def.ID); err == nil {
		t.Error("expected deleting the default category to fail")
	}
}

func TestCategoryRepository_UpdateScopeGuardedByExpectedScope(t *testing.T) {
	db, teardown := newTestDB(t)
	defer teardown()
	repo := NewCategoryRepository(db)
	ctx := context.Background()

	alice := scope.Personal("alice")
	catID, err := repo.Insert(ctx, &Category{Name: "runbooks", OwnerScope: alice})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := repo.UpdateScope(ctx, catID, alice, scope.SharedGroup(7)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// A second identical transfer no longer matches the expected scope.
	if err := repo.UpdateScope(ctx, catID, alice, scope.SharedGroup(7)); err == nil {
		t.Error("expected a repeated transfer to fail the scope guard")
	}

	category, err := repo.GetByID(ctx, catID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if category.OwnerScope != scope.SharedGroup(7) {
		t.Errorf("expected group scope, got %v", category.OwnerScope)
	}
}

func TestCategoryRepository_GetDefaultMissingIsAnError(t *testing.T) {
	db, teardown := newTestDB(t)
	defer teardown()
	repo := NewCategoryRepository(db)

	if _, err := repo.GetDefault(context.Background()); err == nil {
		t.Error("expected a missing default category to be an integrity error")
	}
}
