// box_test.go covers box CRUD, tag search, and the QR assignment
// lifecycle. Requires PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"boxden/internal/models"
)

func TestBoxCreateAndSearch(t *testing.T) {
	db := testDB(t)
	user := testUser(t, db, "box-search@test.local")
	ws := testWorkspace(t, db, user.ID)
	boxes := NewBoxStore(db)

	desc := "drill, sander, saw"
	if _, err := boxes.Create(context.Background(), &models.Box{
		WorkspaceID: ws.ID, Name: "Power Tools", Description: &desc, Tags: []string{"tools", "garage"},
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := boxes.Create(context.Background(), &models.Box{
		WorkspaceID: ws.ID, Name: "Winter Clothes", Tags: []string{"clothes"},
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Name match, case-insensitive.
	got, err := boxes.Search(context.Background(), ws.ID, "power", "")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Power Tools" {
		t.Errorf("name search: got %d results", len(got))
	}

	// Description match.
	got, err = boxes.Search(context.Background(), ws.ID, "sander", "")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("description search: got %d results", len(got))
	}

	// Tag filter.
	got, err = boxes.Search(context.Background(), ws.ID, "", "clothes")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Winter Clothes" {
		t.Errorf("tag search: got %d results", len(got))
	}

	// No filters lists everything.
	got, err = boxes.Search(context.Background(), ws.ID, "", "")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("unfiltered: got %d results, want 2", len(got))
	}
}

func TestBoxUpdatePartial(t *testing.T) {
	db := testDB(t)
	user := testUser(t, db, "box-update@test.local")
	ws := testWorkspace(t, db, user.ID)
	boxes := NewBoxStore(db)

	desc := "stuff"
	box, err := boxes.Create(context.Background(), &models.Box{
		WorkspaceID: ws.ID, Name: "Misc", Description: &desc, Tags: []string{"a"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	newName := "Miscellaneous"
	updated, err := boxes.Update(context.Background(), box.ID, BoxUpdate{Name: &newName})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != newName {
		t.Errorf("name: got %q", updated.Name)
	}
	if updated.Description == nil || *updated.Description != "stuff" {
		t.Error("untouched description must survive")
	}
	if len(updated.Tags) != 1 || updated.Tags[0] != "a" {
		t.Errorf("untouched tags must survive: %v", updated.Tags)
	}

	// Clear description, replace tags.
	updated, err = boxes.Update(context.Background(), box.ID, BoxUpdate{
		ClearDescription: true,
		Tags:             []string{},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Description != nil {
		t.Error("description not cleared")
	}
	if len(updated.Tags) != 0 {
		t.Errorf("tags not emptied: %v", updated.Tags)
	}
}

func TestBoxQRAssignmentLifecycle(t *testing.T) {
	db := testDB(t)
	user := testUser(t, db, "box-qr@test.local")
	ws := testWorkspace(t, db, user.ID)
	boxes := NewBoxStore(db)
	qrCodes := NewQRCodeStore(db)

	box, err := boxes.Create(context.Background(), &models.Box{WorkspaceID: ws.ID, Name: "Cables"})
	if err != nil {
		t.Fatalf("create box: %v", err)
	}
	batch, err := qrCodes.CreateBatch(context.Background(), ws.ID, 2)
	if err != nil {
		t.Fatalf("create batch: %v", err)
	}
	qrA, qrB := batch[0], batch[1]

	if err := boxes.AssignQRCode(context.Background(), box.ID, qrA.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	gotQR, _ := qrCodes.Get(context.Background(), qrA.ID)
	if gotQR.Status != models.QRStatusAssigned || gotQR.BoxID == nil || *gotQR.BoxID != box.ID {
		t.Errorf("assigned qr: %+v", gotQR)
	}
	gotBox, _ := boxes.Get(context.Background(), box.ID)
	if gotBox.QRCodeID == nil || *gotBox.QRCodeID != qrA.ID {
		t.Errorf("box qr link: %v", gotBox.QRCodeID)
	}

	// A second box cannot take the same code.
	other, err := boxes.Create(context.Background(), &models.Box{WorkspaceID: ws.ID, Name: "Chargers"})
	if err != nil {
		t.Fatalf("create box: %v", err)
	}
	if err := boxes.AssignQRCode(context.Background(), other.ID, qrA.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows for taken code, got %v", err)
	}

	// Reassigning the box to a new code releases the old one.
	if err := boxes.AssignQRCode(context.Background(), box.ID, qrB.ID); err != nil {
		t.Fatalf("reassign: %v", err)
	}
	gotQR, _ = qrCodes.Get(context.Background(), qrA.ID)
	if gotQR.Status != models.QRStatusGenerated || gotQR.BoxID != nil {
		t.Errorf("released qr: %+v", gotQR)
	}

	// Unassign resets the current code.
	if err := boxes.UnassignQRCode(context.Background(), box.ID); err != nil {
		t.Fatalf("unassign: %v", err)
	}
	gotQR, _ = qrCodes.Get(context.Background(), qrB.ID)
	if gotQR.Status != models.QRStatusGenerated || gotQR.BoxID != nil {
		t.Errorf("unassigned qr: %+v", gotQR)
	}
	gotBox, _ = boxes.Get(context.Background(), box.ID)
	if gotBox.QRCodeID != nil {
		t.Error("box must drop its qr link on unassign")
	}
}

func TestBoxDeleteReleasesQRCode(t *testing.T) {
	db := testDB(t)
	user := testUser(t, db, "box-delete@test.local")
	ws := testWorkspace(t, db, user.ID)
	boxes := NewBoxStore(db)
	qrCodes := NewQRCodeStore(db)

	box, err := boxes.Create(context.Background(), &models.Box{WorkspaceID: ws.ID, Name: "Books"})
	if err != nil {
		t.Fatalf("create box: %v", err)
	}
	batch, err := qrCodes.CreateBatch(context.Background(), ws.ID, 1)
	if err != nil {
		t.Fatalf("create batch: %v", err)
	}
	if err := boxes.AssignQRCode(context.Background(), box.ID, batch[0].ID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	if err := boxes.Delete(context.Background(), box.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	gotBox, _ := boxes.Get(context.Background(), box.ID)
	if gotBox != nil {
		t.Error("box must be gone")
	}
	// The QR code survives the box and is reusable.
	gotQR, _ := qrCodes.Get(context.Background(), batch[0].ID)
	if gotQR == nil || gotQR.Status != models.QRStatusGenerated || gotQR.BoxID != nil {
		t.Errorf("qr after box delete: %+v", gotQR)
	}
}
