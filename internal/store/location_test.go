// location_test.go covers the materialized-path store operations:
// unique live paths, child listing, transactional subtree renames, and
// soft-delete cascades. Requires PostgreSQL; skipped when unavailable.
package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"boxden/internal/models"
	"boxden/internal/service"
)

func insertLocation(t *testing.T, locations *LocationStore, workspaceID uuid.UUID, name, path string) *models.Location {
	t.Helper()
	loc, err := locations.Insert(context.Background(), &models.Location{
		WorkspaceID: workspaceID,
		Name:        name,
		Path:        path,
	})
	if err != nil {
		t.Fatalf("insert location %s: %v", path, err)
	}
	return loc
}

func TestLocationInsertAndGet(t *testing.T) {
	db := testDB(t)
	user := testUser(t, db, "loc-insert@test.local")
	ws := testWorkspace(t, db, user.ID)
	locations := NewLocationStore(db)

	loc := insertLocation(t, locations, ws.ID, "Garage", "root.garage")
	if loc.ID == uuid.Nil {
		t.Fatal("insert did not assign an ID")
	}
	if loc.IsDeleted {
		t.Error("new location must be live")
	}

	got, err := locations.Get(context.Background(), loc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.Path != "root.garage" {
		t.Errorf("get returned %+v", got)
	}
}

func TestLocationGetMissing(t *testing.T) {
	db := testDB(t)
	locations := NewLocationStore(db)

	got, err := locations.Get(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing location, got %+v", got)
	}
}

func TestLocationUniqueLivePath(t *testing.T) {
	db := testDB(t)
	user := testUser(t, db, "loc-unique@test.local")
	ws := testWorkspace(t, db, user.ID)
	locations := NewLocationStore(db)

	insertLocation(t, locations, ws.ID, "Garage", "root.garage")

	_, err := locations.Insert(context.Background(), &models.Location{
		WorkspaceID: ws.ID, Name: "Garage", Path: "root.garage",
	})
	if !errors.Is(err, service.ErrDuplicatePath) {
		t.Fatalf("expected ErrDuplicatePath, got %v", err)
	}
}

func TestLocationDeletedPathIsReusable(t *testing.T) {
	db := testDB(t)
	user := testUser(t, db, "loc-reuse@test.local")
	ws := testWorkspace(t, db, user.ID)
	locations := NewLocationStore(db)

	old := insertLocation(t, locations, ws.ID, "Garage", "root.garage")
	if err := locations.SoftDeleteSubtree(context.Background(), ws.ID, old.Path); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	// The partial unique index only covers live rows.
	insertLocation(t, locations, ws.ID, "Garage", "root.garage")
}

func TestLocationSamePathAcrossWorkspaces(t *testing.T) {
	db := testDB(t)
	user := testUser(t, db, "loc-tenant@test.local")
	wsA := testWorkspace(t, db, user.ID)
	wsB := testWorkspace(t, db, user.ID)
	locations := NewLocationStore(db)

	insertLocation(t, locations, wsA.ID, "Garage", "root.garage")
	insertLocation(t, locations, wsB.ID, "Garage", "root.garage")
}

func TestLocationChildren(t *testing.T) {
	db := testDB(t)
	user := testUser(t, db, "loc-children@test.local")
	ws := testWorkspace(t, db, user.ID)
	locations := NewLocationStore(db)

	insertLocation(t, locations, ws.ID, "Garage", "root.garage")
	insertLocation(t, locations, ws.ID, "Top Shelf", "root.garage.top_shelf")
	insertLocation(t, locations, ws.ID, "Bottom Shelf", "root.garage.bottom_shelf")
	// Grandchild must not appear among the garage's children.
	insertLocation(t, locations, ws.ID, "Bin 3", "root.garage.top_shelf.bin_3")
	// Sibling subtree must not appear either.
	insertLocation(t, locations, ws.ID, "Basement", "root.basement")

	children, err := locations.Children(context.Background(), ws.ID, "root.garage")
	if err != nil {
		t.Fatalf("children: %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("children count: got %d, want 2", len(children))
	}
	if children[0].Path != "root.garage.bottom_shelf" || children[1].Path != "root.garage.top_shelf" {
		t.Errorf("children order: got %q, %q", children[0].Path, children[1].Path)
	}

	// Top level: parentPath is empty.
	top, err := locations.Children(context.Background(), ws.ID, "")
	if err != nil {
		t.Fatalf("top-level children: %v", err)
	}
	if len(top) != 2 {
		t.Errorf("top-level count: got %d, want 2", len(top))
	}
}

func TestLocationUpdateRenamesSubtree(t *testing.T) {
	db := testDB(t)
	user := testUser(t, db, "loc-rename@test.local")
	ws := testWorkspace(t, db, user.ID)
	locations := NewLocationStore(db)

	garage := insertLocation(t, locations, ws.ID, "Garage", "root.garage")
	shelf := insertLocation(t, locations, ws.ID, "Top Shelf", "root.garage.top_shelf")
	bin := insertLocation(t, locations, ws.ID, "Bin 3", "root.garage.top_shelf.bin_3")
	bystander := insertLocation(t, locations, ws.ID, "Garage Annex", "root.garage_annex")

	newName := "Workshop"
	newPath := "root.workshop"
	updated, err := locations.Update(context.Background(), garage.ID, service.LocationUpdate{
		Name:    &newName,
		OldPath: "root.garage",
		NewPath: &newPath,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Path != "root.workshop" || updated.Name != "Workshop" {
		t.Errorf("updated row: %+v", updated)
	}

	wantPaths := map[uuid.UUID]string{
		shelf.ID:     "root.workshop.top_shelf",
		bin.ID:       "root.workshop.top_shelf.bin_3",
		bystander.ID: "root.garage_annex",
	}
	for id, want := range wantPaths {
		got, err := locations.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Path != want {
			t.Errorf("path after rename: got %q, want %q", got.Path, want)
		}
	}
}

func TestLocationUpdateDescriptionClear(t *testing.T) {
	db := testDB(t)
	user := testUser(t, db, "loc-desc@test.local")
	ws := testWorkspace(t, db, user.ID)
	locations := NewLocationStore(db)

	desc := "tools"
	loc, err := locations.Insert(context.Background(), &models.Location{
		WorkspaceID: ws.ID, Name: "Garage", Description: &desc, Path: "root.garage",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	updated, err := locations.Update(context.Background(), loc.ID, service.LocationUpdate{
		OldPath:          loc.Path,
		ClearDescription: true,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Description != nil {
		t.Errorf("description not cleared: %q", *updated.Description)
	}
}

func TestLocationSoftDeleteSubtreeUnlinksBoxes(t *testing.T) {
	db := testDB(t)
	user := testUser(t, db, "loc-softdel@test.local")
	ws := testWorkspace(t, db, user.ID)
	locations := NewLocationStore(db)
	boxes := NewBoxStore(db)

	garage := insertLocation(t, locations, ws.ID, "Garage", "root.garage")
	shelf := insertLocation(t, locations, ws.ID, "Top Shelf", "root.garage.top_shelf")
	basement := insertLocation(t, locations, ws.ID, "Basement", "root.basement")

	inShelf, err := boxes.Create(context.Background(), &models.Box{
		WorkspaceID: ws.ID, LocationID: &shelf.ID, Name: "Screws",
	})
	if err != nil {
		t.Fatalf("create box: %v", err)
	}
	inBasement, err := boxes.Create(context.Background(), &models.Box{
		WorkspaceID: ws.ID, LocationID: &basement.ID, Name: "Paint",
	})
	if err != nil {
		t.Fatalf("create box: %v", err)
	}

	if err := locations.SoftDeleteSubtree(context.Background(), ws.ID, garage.Path); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	for _, id := range []uuid.UUID{garage.ID, shelf.ID} {
		got, _ := locations.Get(context.Background(), id)
		if !got.IsDeleted {
			t.Errorf("location %s should be soft-deleted", got.Path)
		}
	}
	gotBasement, _ := locations.Get(context.Background(), basement.ID)
	if gotBasement.IsDeleted {
		t.Error("sibling subtree must stay live")
	}

	// Box in the deleted subtree loses its location; the other keeps it.
	gotBox, _ := boxes.Get(context.Background(), inShelf.ID)
	if gotBox.LocationID != nil {
		t.Error("box in deleted subtree should be unlinked")
	}
	gotBox, _ = boxes.Get(context.Background(), inBasement.ID)
	if gotBox.LocationID == nil || *gotBox.LocationID != basement.ID {
		t.Error("box outside the subtree must keep its location")
	}

	// Soft-deleted rows disappear from listings.
	live, err := locations.ListByWorkspace(context.Background(), ws.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(live) != 1 || live[0].ID != basement.ID {
		t.Errorf("live listing: got %d rows", len(live))
	}
}

func TestLocationUnderscoreInPathIsLiteral(t *testing.T) {
	db := testDB(t)
	user := testUser(t, db, "loc-literal@test.local")
	ws := testWorkspace(t, db, user.ID)
	locations := NewLocationStore(db)
	boxes := NewBoxStore(db)

	// "top_shelf" and "topyshelf" have the same length, so a LIKE
	// pattern that reads the underscore as a wildcard matches both.
	// Cascades on one must never touch the other's subtree.
	shelf := insertLocation(t, locations, ws.ID, "Top Shelf", "root.top_shelf")
	shelfBin := insertLocation(t, locations, ws.ID, "Bin 1", "root.top_shelf.bin_1")
	lookalike := insertLocation(t, locations, ws.ID, "Topyshelf", "root.topyshelf")
	lookalikeBin := insertLocation(t, locations, ws.ID, "Bin 2", "root.topyshelf.bin_2")

	inLookalikeBin, err := boxes.Create(context.Background(), &models.Box{
		WorkspaceID: ws.ID, LocationID: &lookalikeBin.ID, Name: "Cables",
	})
	if err != nil {
		t.Fatalf("create box: %v", err)
	}

	children, err := locations.Children(context.Background(), ws.ID, shelf.Path)
	if err != nil {
		t.Fatalf("children: %v", err)
	}
	if len(children) != 1 || children[0].ID != shelfBin.ID {
		t.Fatalf("children of %s: got %d rows", shelf.Path, len(children))
	}

	newName := "Wall Shelf"
	newPath := "root.wall_shelf"
	if _, err := locations.Update(context.Background(), shelf.ID, service.LocationUpdate{
		Name:    &newName,
		OldPath: shelf.Path,
		NewPath: &newPath,
	}); err != nil {
		t.Fatalf("rename: %v", err)
	}

	got, _ := locations.Get(context.Background(), shelfBin.ID)
	if got.Path != "root.wall_shelf.bin_1" {
		t.Errorf("descendant path after rename: got %q", got.Path)
	}
	got, _ = locations.Get(context.Background(), lookalikeBin.ID)
	if got.Path != "root.topyshelf.bin_2" {
		t.Errorf("lookalike child path rewritten: got %q", got.Path)
	}

	if err := locations.SoftDeleteSubtree(context.Background(), ws.ID, "root.wall_shelf"); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	for _, id := range []uuid.UUID{lookalike.ID, lookalikeBin.ID} {
		got, _ := locations.Get(context.Background(), id)
		if got.IsDeleted {
			t.Errorf("lookalike location %s was soft-deleted", got.Path)
		}
	}
	gotBox, _ := boxes.Get(context.Background(), inLookalikeBin.ID)
	if gotBox.LocationID == nil || *gotBox.LocationID != lookalikeBin.ID {
		t.Error("box under the lookalike subtree must keep its location")
	}
}
