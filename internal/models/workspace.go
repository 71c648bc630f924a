// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a member's permission level within a workspace.
type Role string

const (
	RoleOwner    Role = "owner"
	RoleMember   Role = "member"
	RoleReadOnly Role = "read_only"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleMember, RoleReadOnly:
		return true
	}
	return false
}

// CanWrite reports whether the role may mutate inventory data.
func (r Role) CanWrite() bool {
	return r == RoleOwner || r == RoleMember
}

// Workspace is the multi-tenancy boundary. Locations, boxes, QR codes,
// and memberships all belong to exactly one workspace and share its
// lifetime.
type Workspace struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WorkspaceMember links a user to a workspace with a role. Unique per
// (workspace, user) pair; every workspace keeps at least one owner.
type WorkspaceMember struct {
	WorkspaceID uuid.UUID `json:"workspace_id"`
	UserID      uuid.UUID `json:"user_id"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}
