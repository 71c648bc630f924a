// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"boxden/internal/models"
)

// ErrLastOwner is returned when a membership mutation would leave a
// workspace with no owner.
var ErrLastOwner = errors.New("workspace must keep at least one owner")

// WorkspaceStore handles workspace and membership database operations.
// Its RoleOf method is the membership gate the services authorize
// against.
type WorkspaceStore struct {
	db *sql.DB
}

// NewWorkspaceStore creates a new WorkspaceStore with the given database connection.
func NewWorkspaceStore(db *sql.DB) *WorkspaceStore {
	return &WorkspaceStore{db: db}
}

// Get retrieves a workspace by ID. Returns nil if not found.
func (s *WorkspaceStore) Get(ctx context.Context, id uuid.UUID) (*models.Workspace, error) {
	ws := &models.Workspace{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, created_at, updated_at FROM workspaces WHERE id = $1
	`, id).Scan(&ws.ID, &ws.OwnerID, &ws.Name, &ws.CreatedAt, &ws.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find workspace by id: %w", err)
	}
	return ws, nil
}

// OwnedBy returns every workspace whose owner_id is the given user.
func (s *WorkspaceStore) OwnedBy(ctx context.Context, userID uuid.UUID) ([]models.Workspace, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, name, created_at, updated_at
		FROM workspaces WHERE owner_id = $1 ORDER BY created_at ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list owned workspaces: %w", err)
	}
	defer rows.Close()
	return scanWorkspaces(rows)
}

// ListForUser returns every workspace the user is a member of.
func (s *WorkspaceStore) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Workspace, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT w.id, w.owner_id, w.name, w.created_at, w.updated_at
		FROM workspaces w
		JOIN workspace_members m ON m.workspace_id = w.id
		WHERE m.user_id = $1
		ORDER BY w.created_at ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list workspaces for user: %w", err)
	}
	defer rows.Close()
	return scanWorkspaces(rows)
}

// Create inserts a workspace and its owner membership in one transaction.
func (s *WorkspaceStore) Create(ctx context.Context, ownerID uuid.UUID, name string) (*models.Workspace, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("create workspace begin: %w", err)
	}
	defer tx.Rollback()

	ws := &models.Workspace{}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO workspaces (owner_id, name) VALUES ($1, $2)
		RETURNING id, owner_id, name, created_at, updated_at
	`, ownerID, name).Scan(&ws.ID, &ws.OwnerID, &ws.Name, &ws.CreatedAt, &ws.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO workspace_members (workspace_id, user_id, role)
		VALUES ($1, $2, $3)
	`, ws.ID, ownerID, models.RoleOwner); err != nil {
		return nil, fmt.Errorf("create owner membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("create workspace commit: %w", err)
	}
	return ws, nil
}

// RoleOf looks up the caller's role in a workspace. The second return
// is false when the user is not a member at all.
func (s *WorkspaceStore) RoleOf(ctx context.Context, workspaceID, userID uuid.UUID) (models.Role, bool, error) {
	var role models.Role
	err := s.db.QueryRowContext(ctx, `
		SELECT role FROM workspace_members WHERE workspace_id = $1 AND user_id = $2
	`, workspaceID, userID).Scan(&role)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("membership lookup: %w", err)
	}
	return role, true, nil
}

// Members returns all memberships of a workspace.
func (s *WorkspaceStore) Members(ctx context.Context, workspaceID uuid.UUID) ([]models.WorkspaceMember, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT workspace_id, user_id, role, created_at
		FROM workspace_members WHERE workspace_id = $1 ORDER BY created_at ASC
	`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []models.WorkspaceMember
	for rows.Next() {
		var m models.WorkspaceMember
		if err := rows.Scan(&m.WorkspaceID, &m.UserID, &m.Role, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// AddMember inserts a membership row. Duplicate pairs fail on the
// primary key.
func (s *WorkspaceStore) AddMember(ctx context.Context, workspaceID, userID uuid.UUID, role models.Role) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workspace_members (workspace_id, user_id, role) VALUES ($1, $2, $3)
	`, workspaceID, userID, role)
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

// SetMemberRole changes a member's role. Demoting the last owner is
// rejected with ErrLastOwner, checked inside the same transaction.
func (s *WorkspaceStore) SetMemberRole(ctx context.Context, workspaceID, userID uuid.UUID, role models.Role) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("set role begin: %w", err)
	}
	defer tx.Rollback()

	if role != models.RoleOwner {
		ok, err := hasAnotherOwner(ctx, tx, workspaceID, userID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrLastOwner
		}
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE workspace_members SET role = $1 WHERE workspace_id = $2 AND user_id = $3
	`, role, workspaceID, userID)
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("set role commit: %w", err)
	}
	return nil
}

// RemoveMember deletes a membership row, refusing to remove the last
// owner.
func (s *WorkspaceStore) RemoveMember(ctx context.Context, workspaceID, userID uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("remove member begin: %w", err)
	}
	defer tx.Rollback()

	ok, err := hasAnotherOwner(ctx, tx, workspaceID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrLastOwner
	}

	res, err := tx.ExecContext(ctx, `
		DELETE FROM workspace_members WHERE workspace_id = $1 AND user_id = $2
	`, workspaceID, userID)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("remove member commit: %w", err)
	}
	return nil
}

// hasAnotherOwner reports whether the workspace would still have an
// owner if the given user's owner role went away. Takes the workspace
// row lock first so concurrent demotions/removals of different owners
// serialize on one check instead of each counting the other as a
// surviving owner.
func hasAnotherOwner(ctx context.Context, tx *sql.Tx, workspaceID, userID uuid.UUID) (bool, error) {
	var wsID uuid.UUID
	if err := tx.QueryRowContext(ctx, `
		SELECT id FROM workspaces WHERE id = $1 FOR UPDATE
	`, workspaceID).Scan(&wsID); err != nil {
		if err == sql.ErrNoRows {
			return false, sql.ErrNoRows
		}
		return false, fmt.Errorf("lock workspace: %w", err)
	}

	var role models.Role
	err := tx.QueryRowContext(ctx, `
		SELECT role FROM workspace_members
		WHERE workspace_id = $1 AND user_id = $2 FOR UPDATE
	`, workspaceID, userID).Scan(&role)
	if err == sql.ErrNoRows {
		return false, sql.ErrNoRows
	}
	if err != nil {
		return false, fmt.Errorf("lock membership: %w", err)
	}
	if role != models.RoleOwner {
		// Non-owners can always be removed or re-roled.
		return true, nil
	}

	var others int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM workspace_members
		WHERE workspace_id = $1 AND user_id <> $2 AND role = 'owner'
	`, workspaceID, userID).Scan(&others)
	if err != nil {
		return false, fmt.Errorf("count owners: %w", err)
	}
	return others > 0, nil
}

// IsUniqueViolation reports whether err is any Postgres unique
// constraint violation. Handlers use it to turn duplicate inserts into
// conflict responses.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// scanWorkspaces drains rows into a slice.
func scanWorkspaces(rows *sql.Rows) ([]models.Workspace, error) {
	var items []models.Workspace
	for rows.Next() {
		var ws models.Workspace
		if err := rows.Scan(&ws.ID, &ws.OwnerID, &ws.Name, &ws.CreatedAt, &ws.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan workspace: %w", err)
		}
		items = append(items, ws)
	}
	return items, rows.Err()
}
