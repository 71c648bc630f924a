// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"boxden/internal/middleware"
	"boxden/internal/models"
	"boxden/internal/service"
	"boxden/internal/store"
)

// Workspaces groups the workspace and membership HTTP handlers.
type Workspaces struct {
	workspaces *store.WorkspaceStore
	users      *store.UserStore
	cascade    *service.CascadeService
}

// NewWorkspaces creates a new Workspaces handler group.
func NewWorkspaces(workspaces *store.WorkspaceStore, users *store.UserStore, cascade *service.CascadeService) *Workspaces {
	return &Workspaces{workspaces: workspaces, users: users, cascade: cascade}
}

type createWorkspaceRequest struct {
	Name string `json:"name"`
}

// Create makes a new workspace with the caller as its owner member.
func (h *Workspaces) Create(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	var req createWorkspaceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	if utf8.RuneCountInString(name) > 100 {
		respondError(w, http.StatusBadRequest, "name is too long (max 100 characters)")
		return
	}

	ws, err := h.workspaces.Create(r.Context(), sess.UserID, name)
	if err != nil {
		slog.Error("create workspace failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondJSON(w, http.StatusCreated, ws)
}

// List returns the workspaces the caller belongs to.
func (h *Workspaces) List(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	items, err := h.workspaces.ListForUser(r.Context(), sess.UserID)
	if err != nil {
		slog.Error("list workspaces failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondJSON(w, http.StatusOK, items)
}

// Get returns one workspace. Non-members get a 404, the same as a
// workspace that does not exist.
func (h *Workspaces) Get(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	id, ok := h.workspaceParam(w, r)
	if !ok {
		return
	}
	if _, ok := h.requireMember(w, r, id, sess.UserID); !ok {
		return
	}

	ws, err := h.workspaces.Get(r.Context(), id)
	if err != nil {
		slog.Error("get workspace failed", "workspace_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if ws == nil {
		respondError(w, http.StatusNotFound, "workspace not found")
		return
	}
	respondJSON(w, http.StatusOK, ws)
}

// Delete tears down the workspace and everything in it. Owner only;
// non-owner members get a 403 since membership already told them the
// workspace exists.
func (h *Workspaces) Delete(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	id, ok := h.workspaceParam(w, r)
	if !ok {
		return
	}

	if err := h.cascade.DeleteWorkspace(r.Context(), id, sess.UserID); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Members lists a workspace's memberships.
func (h *Workspaces) Members(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	id, ok := h.workspaceParam(w, r)
	if !ok {
		return
	}
	if _, ok := h.requireMember(w, r, id, sess.UserID); !ok {
		return
	}

	members, err := h.workspaces.Members(r.Context(), id)
	if err != nil {
		slog.Error("list members failed", "workspace_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondJSON(w, http.StatusOK, members)
}

type addMemberRequest struct {
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
}

// AddMember invites an existing user into the workspace by email.
// Owner only.
func (h *Workspaces) AddMember(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	id, ok := h.workspaceParam(w, r)
	if !ok {
		return
	}
	if !h.requireOwner(w, r, id, sess.UserID) {
		return
	}

	var req addMemberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Role == "" {
		req.Role = models.RoleMember
	}
	if !req.Role.Valid() {
		respondError(w, http.StatusBadRequest, "role must be owner, member, or read_only")
		return
	}

	user, err := h.users.FindByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		slog.Error("member lookup failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if user == nil {
		respondError(w, http.StatusNotFound, "no user with that email")
		return
	}

	if err := h.workspaces.AddMember(r.Context(), id, user.ID, req.Role); err != nil {
		if store.IsUniqueViolation(err) {
			respondError(w, http.StatusConflict, "user is already a member")
			return
		}
		slog.Error("add member failed", "workspace_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"workspace_id": id,
		"user_id":      user.ID,
		"role":         req.Role,
	})
}

type setRoleRequest struct {
	Role models.Role `json:"role"`
}

// SetMemberRole changes a membership's role. Owner only; demoting the
// last owner is refused.
func (h *Workspaces) SetMemberRole(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	id, ok := h.workspaceParam(w, r)
	if !ok {
		return
	}
	memberID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if !h.requireOwner(w, r, id, sess.UserID) {
		return
	}

	var req setRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !req.Role.Valid() {
		respondError(w, http.StatusBadRequest, "role must be owner, member, or read_only")
		return
	}

	if err := h.workspaces.SetMemberRole(r.Context(), id, memberID, req.Role); err != nil {
		h.respondMembershipError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveMember removes a membership. Owners can remove anyone; other
// members can only remove themselves (leave). The last owner can never
// be removed.
func (h *Workspaces) RemoveMember(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	id, ok := h.workspaceParam(w, r)
	if !ok {
		return
	}
	memberID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	role, ok := h.requireMember(w, r, id, sess.UserID)
	if !ok {
		return
	}
	if role != models.RoleOwner && memberID != sess.UserID {
		respondError(w, http.StatusForbidden, "only the workspace owner can remove other members")
		return
	}

	if err := h.workspaces.RemoveMember(r.Context(), id, memberID); err != nil {
		h.respondMembershipError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Workspaces) respondMembershipError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrLastOwner):
		respondError(w, http.StatusConflict, "workspace must keep at least one owner")
	case errors.Is(err, sql.ErrNoRows):
		respondError(w, http.StatusNotFound, "member not found")
	default:
		slog.Error("membership mutation failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Workspaces) workspaceParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid workspace id")
		return uuid.Nil, false
	}
	return id, true
}

// requireMember answers the hidden-existence 404 for non-members and
// hands back the caller's role for finer checks.
func (h *Workspaces) requireMember(w http.ResponseWriter, r *http.Request, workspaceID, userID uuid.UUID) (models.Role, bool) {
	role, ok, err := h.workspaces.RoleOf(r.Context(), workspaceID, userID)
	if err != nil {
		slog.Error("membership lookup failed", "workspace_id", workspaceID, "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return "", false
	}
	if !ok {
		respondError(w, http.StatusNotFound, "workspace not found")
		return "", false
	}
	return role, true
}

// requireOwner is requireMember plus the owner check. Members who are
// not owners get a 403.
func (h *Workspaces) requireOwner(w http.ResponseWriter, r *http.Request, workspaceID, userID uuid.UUID) bool {
	role, ok := h.requireMember(w, r, workspaceID, userID)
	if !ok {
		return false
	}
	if role != models.RoleOwner {
		respondError(w, http.StatusForbidden, "only the workspace owner can manage members")
		return false
	}
	return true
}
