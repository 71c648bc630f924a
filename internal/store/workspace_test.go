// workspace_test.go covers workspace creation, membership lookups, and
// the at-least-one-owner invariant. Requires PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"boxden/internal/models"
)

func TestWorkspaceCreateAddsOwnerMembership(t *testing.T) {
	db := testDB(t)
	user := testUser(t, db, "ws-create@test.local")
	workspaces := NewWorkspaceStore(db)

	ws := testWorkspace(t, db, user.ID)
	if ws.OwnerID != user.ID {
		t.Errorf("owner: got %s, want %s", ws.OwnerID, user.ID)
	}

	role, ok, err := workspaces.RoleOf(context.Background(), ws.ID, user.ID)
	if err != nil {
		t.Fatalf("role of: %v", err)
	}
	if !ok || role != models.RoleOwner {
		t.Errorf("creator role: got %q (member=%v), want owner", role, ok)
	}
}

func TestWorkspaceRoleOfNonMember(t *testing.T) {
	db := testDB(t)
	user := testUser(t, db, "ws-nonmember@test.local")
	ws := testWorkspace(t, db, user.ID)
	workspaces := NewWorkspaceStore(db)

	_, ok, err := workspaces.RoleOf(context.Background(), ws.ID, uuid.New())
	if err != nil {
		t.Fatalf("role of: %v", err)
	}
	if ok {
		t.Error("random user must not be a member")
	}
}

func TestWorkspaceListForUser(t *testing.T) {
	db := testDB(t)
	owner := testUser(t, db, "ws-list-owner@test.local")
	member := testUser(t, db, "ws-list-member@test.local")
	workspaces := NewWorkspaceStore(db)

	ws := testWorkspace(t, db, owner.ID)
	if err := workspaces.AddMember(context.Background(), ws.ID, member.ID, models.RoleReadOnly); err != nil {
		t.Fatalf("add member: %v", err)
	}

	mine, err := workspaces.ListForUser(context.Background(), member.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != ws.ID {
		t.Errorf("member's workspaces: got %d entries", len(mine))
	}
}

func TestWorkspaceLastOwnerCannotBeDemoted(t *testing.T) {
	db := testDB(t)
	owner := testUser(t, db, "ws-demote@test.local")
	ws := testWorkspace(t, db, owner.ID)
	workspaces := NewWorkspaceStore(db)

	err := workspaces.SetMemberRole(context.Background(), ws.ID, owner.ID, models.RoleMember)
	if !errors.Is(err, ErrLastOwner) {
		t.Fatalf("expected ErrLastOwner, got %v", err)
	}
}

func TestWorkspaceLastOwnerCannotBeRemoved(t *testing.T) {
	db := testDB(t)
	owner := testUser(t, db, "ws-remove@test.local")
	ws := testWorkspace(t, db, owner.ID)
	workspaces := NewWorkspaceStore(db)

	err := workspaces.RemoveMember(context.Background(), ws.ID, owner.ID)
	if !errors.Is(err, ErrLastOwner) {
		t.Fatalf("expected ErrLastOwner, got %v", err)
	}
}

func TestWorkspaceDemoteWithSecondOwner(t *testing.T) {
	db := testDB(t)
	owner := testUser(t, db, "ws-second-a@test.local")
	second := testUser(t, db, "ws-second-b@test.local")
	ws := testWorkspace(t, db, owner.ID)
	workspaces := NewWorkspaceStore(db)

	if err := workspaces.AddMember(context.Background(), ws.ID, second.ID, models.RoleOwner); err != nil {
		t.Fatalf("add second owner: %v", err)
	}
	if err := workspaces.SetMemberRole(context.Background(), ws.ID, owner.ID, models.RoleMember); err != nil {
		t.Fatalf("demote with second owner present: %v", err)
	}

	role, _, err := workspaces.RoleOf(context.Background(), ws.ID, owner.ID)
	if err != nil {
		t.Fatalf("role of: %v", err)
	}
	if role != models.RoleMember {
		t.Errorf("demoted role: got %q, want member", role)
	}
}

func TestWorkspaceRemoveMissingMember(t *testing.T) {
	db := testDB(t)
	owner := testUser(t, db, "ws-missing@test.local")
	ws := testWorkspace(t, db, owner.ID)
	workspaces := NewWorkspaceStore(db)

	err := workspaces.RemoveMember(context.Background(), ws.ID, uuid.New())
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestWorkspaceConcurrentOwnerDemotionsKeepOneOwner(t *testing.T) {
	db := testDB(t)
	a := testUser(t, db, "ws-race-a@test.local")
	b := testUser(t, db, "ws-race-b@test.local")
	ws := testWorkspace(t, db, a.ID)
	workspaces := NewWorkspaceStore(db)

	if err := workspaces.AddMember(context.Background(), ws.ID, b.ID, models.RoleOwner); err != nil {
		t.Fatalf("add second owner: %v", err)
	}

	// Each demotion targets the other owner. Without serializing on
	// the workspace row, both would count the other as a surviving
	// owner and commit, leaving zero owners.
	targets := []uuid.UUID{a.ID, b.ID}
	errs := make([]error, len(targets))
	var wg sync.WaitGroup
	for i, target := range targets {
		i, target := i, target
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = workspaces.SetMemberRole(context.Background(), ws.ID, target, models.RoleMember)
		}()
	}
	wg.Wait()

	var guarded int
	for _, err := range errs {
		switch {
		case err == nil:
		case errors.Is(err, ErrLastOwner):
			guarded++
		default:
			t.Fatalf("unexpected demotion error: %v", err)
		}
	}
	if guarded != 1 {
		t.Errorf("last-owner guard fired %d times, want 1 (errors: %v)", guarded, errs)
	}

	var owners int
	err := db.QueryRowContext(context.Background(), `
		SELECT COUNT(*) FROM workspace_members
		WHERE workspace_id = $1 AND role = 'owner'
	`, ws.ID).Scan(&owners)
	if err != nil {
		t.Fatalf("count owners: %v", err)
	}
	if owners != 1 {
		t.Errorf("surviving owners: got %d, want 1", owners)
	}
}
