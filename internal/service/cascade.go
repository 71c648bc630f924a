// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"boxden/internal/models"
)

// WorkspacePersistence is the read surface the cascade service needs.
type WorkspacePersistence interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Workspace, error)
	OwnedBy(ctx context.Context, userID uuid.UUID) ([]models.Workspace, error)
}

// CascadePersistence executes the ordered teardown steps. Each call is
// a single transaction; deleting rows that are already gone is not an
// error, so repeated invocations converge.
type CascadePersistence interface {
	// PurgeWorkspace removes all workspace-owned rows in dependency
	// order (boxes → qr_codes → locations → workspace_members) and
	// finally the workspace row itself.
	PurgeWorkspace(ctx context.Context, workspaceID uuid.UUID) error
	// DeleteUserData removes the user's memberships in workspaces they
	// did not own, the profile, and the auth identity row.
	DeleteUserData(ctx context.Context, userID uuid.UUID) error
}

// TokenRevoker invalidates a user's bearer tokens. Revocation is
// best-effort relative to data deletion: tokens expire by TTL anyway,
// and every request re-checks the user row.
type TokenRevoker interface {
	RevokeAll(ctx context.Context, userID uuid.UUID) error
}

// CascadeService orchestrates full workspace and full account
// deletion. A success response means the whole dependency graph
// reachable from the deleted entity is gone; an error response is
// always safe to retry.
type CascadeService struct {
	workspaces WorkspacePersistence
	cascade    CascadePersistence
	gate       MembershipGate
	revoker    TokenRevoker
}

// NewCascadeService creates a CascadeService with its collaborators.
func NewCascadeService(workspaces WorkspacePersistence, cascade CascadePersistence, gate MembershipGate, revoker TokenRevoker) *CascadeService {
	return &CascadeService{workspaces: workspaces, cascade: cascade, gate: gate, revoker: revoker}
}

// DeleteWorkspace tears down a workspace and everything it owns. Only
// the owner may do this; unlike location mutations, non-owners get a
// plain forbidden — a member already knows the workspace exists.
func (s *CascadeService) DeleteWorkspace(ctx context.Context, workspaceID, userID uuid.UUID) error {
	ws, err := s.workspaces.Get(ctx, workspaceID)
	if err != nil {
		return internalErr("load workspace", err)
	}
	if ws == nil {
		return notFoundErr("workspace not found")
	}

	role, ok, err := s.gate.RoleOf(ctx, workspaceID, userID)
	if err != nil {
		return internalErr("membership lookup", err)
	}
	if !ok || role != models.RoleOwner {
		return forbiddenErr("only the workspace owner can delete it")
	}

	if err := s.cascade.PurgeWorkspace(ctx, workspaceID); err != nil {
		return internalErr("purge workspace", err)
	}
	return nil
}

// DeleteAccount removes every workspace the user owns (same ordered
// cascade as DeleteWorkspace), then the user's remaining data, then
// revokes their tokens. The caller is always deleting their own
// account; there is deliberately no way to target another user.
func (s *CascadeService) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	owned, err := s.workspaces.OwnedBy(ctx, userID)
	if err != nil {
		return internalErr("list owned workspaces", err)
	}

	// Each purge commits on its own; a failure partway leaves already
	// purged workspaces gone, which a retry skips over naturally.
	for _, ws := range owned {
		if err := s.cascade.PurgeWorkspace(ctx, ws.ID); err != nil {
			return internalErr("purge workspace", err)
		}
	}

	if err := s.cascade.DeleteUserData(ctx, userID); err != nil {
		return internalErr("delete user data", err)
	}

	// Token revocation must not block the deletion response: the data is
	// already gone, which is the user-data-protection guarantee, and any
	// surviving token dies at the auth middleware on its next use.
	if s.revoker != nil {
		if err := s.revoker.RevokeAll(ctx, userID); err != nil {
			slog.Warn("token revocation failed after account deletion",
				"user_id", userID, "error", err)
		}
	}
	return nil
}
