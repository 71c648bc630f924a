// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// CascadeStore executes the bulk teardown transactions behind
// workspace and account deletion. Every statement is keyed by a
// workspace or user ID, so rows that are already gone simply match
// nothing and a repeated call converges.
type CascadeStore struct {
	db *sql.DB
}

// NewCascadeStore creates a new CascadeStore with the given database connection.
func NewCascadeStore(db *sql.DB) *CascadeStore {
	return &CascadeStore{db: db}
}

// PurgeWorkspace hard-deletes everything a workspace owns, dependents
// first, then the workspace row itself. QR codes are deleted rather
// than reset — a sticker has no meaning once its workspace is gone.
// Runs as one transaction.
func (s *CascadeStore) PurgeWorkspace(ctx context.Context, workspaceID uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("purge workspace begin: %w", err)
	}
	defer tx.Rollback()

	// Boxes and qr_codes reference each other; break the cycle before
	// deleting either side.
	steps := []struct {
		name  string
		query string
	}{
		{"qr links", `UPDATE qr_codes SET box_id = NULL WHERE workspace_id = $1`},
		{"boxes", `DELETE FROM boxes WHERE workspace_id = $1`},
		{"qr codes", `DELETE FROM qr_codes WHERE workspace_id = $1`},
		{"locations", `DELETE FROM locations WHERE workspace_id = $1`},
		{"members", `DELETE FROM workspace_members WHERE workspace_id = $1`},
		{"workspace", `DELETE FROM workspaces WHERE id = $1`},
	}
	for _, step := range steps {
		if _, err := tx.ExecContext(ctx, step.query, workspaceID); err != nil {
			return fmt.Errorf("purge %s: %w", step.name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("purge workspace commit: %w", err)
	}
	return nil
}

// DeleteUserData removes everything that remains of a user once their
// owned workspaces are purged: memberships in other people's
// workspaces, the profile, and the auth identity row. One transaction.
func (s *CascadeStore) DeleteUserData(ctx context.Context, userID uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete user data begin: %w", err)
	}
	defer tx.Rollback()

	steps := []struct {
		name  string
		query string
	}{
		{"memberships", `DELETE FROM workspace_members WHERE user_id = $1`},
		{"profile", `DELETE FROM profiles WHERE id = $1`},
		{"user", `DELETE FROM users WHERE id = $1`},
	}
	for _, step := range steps {
		if _, err := tx.ExecContext(ctx, step.query, userID); err != nil {
			return fmt.Errorf("delete %s: %w", step.name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete user data commit: %w", err)
	}
	return nil
}
