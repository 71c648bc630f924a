// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"boxden/internal/models"
	"boxden/internal/pathtree"
	"boxden/internal/slug"
)

// Validation limits for location fields.
const (
	maxLocationNameLen = 100
	maxLocationDescLen = 500
)

// ErrDuplicatePath is returned by LocationPersistence implementations
// when an insert or rename hits the per-workspace unique path index.
// It is the backstop for racing mutations that pass the sibling check
// concurrently; the service reports it as a conflict.
var ErrDuplicatePath = errors.New("duplicate location path")

// MembershipGate answers "what role does this user hold in this
// workspace". The services interpret absence themselves: location
// mutations hide existence with not-found, workspace deletion answers
// forbidden.
type MembershipGate interface {
	RoleOf(ctx context.Context, workspaceID, userID uuid.UUID) (models.Role, bool, error)
}

// LocationUpdate describes the fields an update touches. A nil NewPath
// means the rename did not change the slug; a set NewPath obliges the
// store to rewrite every descendant's path prefix in the same
// transaction as the row update.
type LocationUpdate struct {
	Name             *string
	OldPath          string
	NewPath          *string
	Description      *string
	ClearDescription bool
}

// LocationPersistence is the store surface the location service needs.
// Get returns soft-deleted rows too (the service decides how to treat
// them); Children returns only live direct children.
type LocationPersistence interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Location, error)
	Children(ctx context.Context, workspaceID uuid.UUID, parentPath string) ([]models.Location, error)
	Insert(ctx context.Context, loc *models.Location) (*models.Location, error)
	Update(ctx context.Context, id uuid.UUID, upd LocationUpdate) (*models.Location, error)
	SoftDeleteSubtree(ctx context.Context, workspaceID uuid.UUID, path string) error
}

// CreateLocationInput carries the validated-on-entry fields for a new
// location.
type CreateLocationInput struct {
	WorkspaceID uuid.UUID
	Name        string
	Description *string
	ParentID    *uuid.UUID
}

// UpdateLocationInput carries a partial update. ClearDescription
// distinguishes "description": null (clear it) from an absent field.
type UpdateLocationInput struct {
	Name             *string
	Description      *string
	ClearDescription bool
}

// LocationService orchestrates create, rename, and soft delete of
// locations, including the path cascades that keep the subtree
// consistent.
type LocationService struct {
	locations LocationPersistence
	gate      MembershipGate
}

// NewLocationService creates a LocationService with its collaborators.
func NewLocationService(locations LocationPersistence, gate MembershipGate) *LocationService {
	return &LocationService{locations: locations, gate: gate}
}

// Create validates input, computes the child path, checks sibling
// conflicts, and persists a new live location.
func (s *LocationService) Create(ctx context.Context, userID uuid.UUID, in CreateLocationInput) (*models.Location, error) {
	if _, ok, err := s.roleIn(ctx, in.WorkspaceID, userID); err != nil {
		return nil, err
	} else if !ok {
		// Non-members never learn whether the workspace exists.
		return nil, notFoundErr("workspace not found")
	}

	name, verr := validateName(in.Name)
	if verr != nil {
		return nil, verr
	}
	if verr := validateDescription(in.Description); verr != nil {
		return nil, verr
	}

	parentPath := ""
	if in.ParentID != nil {
		parent, err := s.locations.Get(ctx, *in.ParentID)
		if err != nil {
			return nil, internalErr("load parent location", err)
		}
		if parent == nil || parent.IsDeleted || parent.WorkspaceID != in.WorkspaceID {
			return nil, notFoundErr("parent location not found")
		}
		parentPath = parent.Path
	}

	seg := slug.Generate(name)
	if seg == "" {
		return nil, validationErr("name must contain at least one letter or digit")
	}

	path := pathtree.Child(parentPath, seg)
	if pathtree.Depth(path) > pathtree.MaxDepth {
		return nil, maxDepthErr("locations cannot be nested more than 5 levels deep")
	}

	if err := s.checkSiblingConflict(ctx, in.WorkspaceID, parentPath, seg, nil); err != nil {
		return nil, err
	}

	created, err := s.locations.Insert(ctx, &models.Location{
		WorkspaceID: in.WorkspaceID,
		Name:        name,
		Description: in.Description,
		Path:        path,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicatePath) {
			return nil, conflictErr("a location with this name already exists here")
		}
		return nil, internalErr("create location", err)
	}
	return created, nil
}

// Update renames a location and/or changes its description. A rename
// that changes the slug recomputes the path and rewrites every
// descendant's path in one transaction, so a partial rename is never
// observable.
func (s *LocationService) Update(ctx context.Context, locationID, userID uuid.UUID, in UpdateLocationInput) (*models.Location, error) {
	if in.Name == nil && in.Description == nil && !in.ClearDescription {
		return nil, validationErr("at least one field required")
	}

	loc, err := s.visibleLocation(ctx, locationID, userID)
	if err != nil {
		return nil, err
	}

	upd := LocationUpdate{
		OldPath:          loc.Path,
		Description:      in.Description,
		ClearDescription: in.ClearDescription,
	}
	if in.Description != nil {
		if verr := validateDescription(in.Description); verr != nil {
			return nil, verr
		}
	}

	if in.Name != nil {
		name, verr := validateName(*in.Name)
		if verr != nil {
			return nil, verr
		}
		seg := slug.Generate(name)
		if seg == "" {
			return nil, validationErr("name must contain at least one letter or digit")
		}
		upd.Name = &name

		// Recompute the path only when the slug actually changes; a rename
		// to a name that slugifies identically (case, accents) keeps the
		// path and never conflicts with itself.
		if seg != pathtree.LastSegment(loc.Path) {
			parentPath := pathtree.Parent(loc.Path)
			if err := s.checkSiblingConflict(ctx, loc.WorkspaceID, parentPath, seg, &loc.ID); err != nil {
				return nil, err
			}
			newPath := pathtree.Child(parentPath, seg)
			upd.NewPath = &newPath
		}
	}

	updated, err := s.locations.Update(ctx, loc.ID, upd)
	if err != nil {
		if errors.Is(err, ErrDuplicatePath) {
			return nil, conflictErr("a location with this name already exists here")
		}
		return nil, internalErr("update location", err)
	}
	return updated, nil
}

// SoftDelete marks the location and its whole subtree deleted and
// unlinks every box that pointed into it, in one transaction.
func (s *LocationService) SoftDelete(ctx context.Context, locationID, userID uuid.UUID) error {
	loc, err := s.visibleLocation(ctx, locationID, userID)
	if err != nil {
		return err
	}

	if err := s.locations.SoftDeleteSubtree(ctx, loc.WorkspaceID, loc.Path); err != nil {
		return internalErr("soft delete location", err)
	}
	return nil
}

// visibleLocation loads a location and applies the information-hiding
// policy: missing, soft-deleted, and not-a-member all produce the same
// not-found error.
func (s *LocationService) visibleLocation(ctx context.Context, locationID, userID uuid.UUID) (*models.Location, error) {
	loc, err := s.locations.Get(ctx, locationID)
	if err != nil {
		return nil, internalErr("load location", err)
	}
	if loc == nil || loc.IsDeleted {
		return nil, notFoundErr("location not found")
	}
	if _, ok, err := s.roleIn(ctx, loc.WorkspaceID, userID); err != nil {
		return nil, err
	} else if !ok {
		return nil, notFoundErr("location not found")
	}
	return loc, nil
}

// checkSiblingConflict loads the live direct children of parentPath
// and rejects the candidate slug if a sibling already uses it. The
// comparison is on slugs, so names differing only in case or accents
// collide. excludeID skips the location being renamed.
func (s *LocationService) checkSiblingConflict(ctx context.Context, workspaceID uuid.UUID, parentPath, candidate string, excludeID *uuid.UUID) error {
	siblings, err := s.locations.Children(ctx, workspaceID, parentPath)
	if err != nil {
		return internalErr("list sibling locations", err)
	}
	for _, sib := range siblings {
		if excludeID != nil && sib.ID == *excludeID {
			continue
		}
		if pathtree.LastSegment(sib.Path) == candidate {
			return conflictErr("a location with this name already exists here")
		}
	}
	return nil
}

func (s *LocationService) roleIn(ctx context.Context, workspaceID, userID uuid.UUID) (models.Role, bool, error) {
	role, ok, err := s.gate.RoleOf(ctx, workspaceID, userID)
	if err != nil {
		return "", false, internalErr("membership lookup", err)
	}
	return role, ok, nil
}

func validateName(name string) (string, *Error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", validationErr("name is required")
	}
	if utf8.RuneCountInString(name) > maxLocationNameLen {
		return "", validationErr("name is too long (max 100 characters)")
	}
	return name, nil
}

func validateDescription(desc *string) *Error {
	if desc == nil {
		return nil
	}
	if utf8.RuneCountInString(*desc) > maxLocationDescLen {
		return validationErr("description is too long (max 500 characters)")
	}
	return nil
}
