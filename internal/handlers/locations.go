// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"boxden/internal/middleware"
	"boxden/internal/service"
	"boxden/internal/store"
)

// Locations groups the location HTTP handlers. Mutations go through
// the LocationService; reads hit the store directly with the same
// membership policy.
type Locations struct {
	svc        *service.LocationService
	locations  *store.LocationStore
	workspaces *store.WorkspaceStore
}

// NewLocations creates a new Locations handler group.
func NewLocations(svc *service.LocationService, locations *store.LocationStore, workspaces *store.WorkspaceStore) *Locations {
	return &Locations{svc: svc, locations: locations, workspaces: workspaces}
}

type createLocationRequest struct {
	WorkspaceID uuid.UUID  `json:"workspace_id"`
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	ParentID    *uuid.UUID `json:"parent_location_id"`
}

// Create makes a new location, nested under a parent if one is given.
func (h *Locations) Create(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	var req createLocationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.WorkspaceID == uuid.Nil {
		respondError(w, http.StatusBadRequest, "workspace_id is required")
		return
	}

	loc, err := h.svc.Create(r.Context(), sess.UserID, service.CreateLocationInput{
		WorkspaceID: req.WorkspaceID,
		Name:        req.Name,
		Description: req.Description,
		ParentID:    req.ParentID,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, loc)
}

// List returns a workspace's live locations in depth-first path order.
func (h *Locations) List(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	workspaceID, err := uuid.Parse(r.URL.Query().Get("workspace_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "workspace_id query parameter is required")
		return
	}

	if !h.isMember(w, r, workspaceID, sess.UserID) {
		return
	}

	items, err := h.locations.ListByWorkspace(r.Context(), workspaceID)
	if err != nil {
		slog.Error("list locations failed", "workspace_id", workspaceID, "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondJSON(w, http.StatusOK, items)
}

// Get returns a single location, applying the same existence-hiding
// policy as mutations: non-members and soft-deleted rows look absent.
func (h *Locations) Get(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid location id")
		return
	}

	loc, err := h.locations.Get(r.Context(), id)
	if err != nil {
		slog.Error("get location failed", "location_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if loc == nil || loc.IsDeleted {
		respondError(w, http.StatusNotFound, "location not found")
		return
	}
	if _, ok, err := h.workspaces.RoleOf(r.Context(), loc.WorkspaceID, sess.UserID); err != nil {
		slog.Error("membership lookup failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	} else if !ok {
		respondError(w, http.StatusNotFound, "location not found")
		return
	}

	respondJSON(w, http.StatusOK, loc)
}

type updateLocationRequest struct {
	Name        *string         `json:"name"`
	Description json.RawMessage `json:"description"`
}

// Update renames a location and/or changes its description. An
// explicit "description": null clears the field.
func (h *Locations) Update(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid location id")
		return
	}

	var req updateLocationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	desc, clear, err := optionalString(req.Description)
	if err != nil {
		respondError(w, http.StatusBadRequest, "description must be a string or null")
		return
	}

	loc, err := h.svc.Update(r.Context(), id, sess.UserID, service.UpdateLocationInput{
		Name:             req.Name,
		Description:      desc,
		ClearDescription: clear,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, loc)
}

// Delete soft-deletes a location and its whole subtree.
func (h *Locations) Delete(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid location id")
		return
	}

	if err := h.svc.SoftDelete(r.Context(), id, sess.UserID); err != nil {
		respondServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// isMember checks membership for list-style endpoints, answering the
// standard hidden-existence 404 for non-members. Returns false when a
// response was already written.
func (h *Locations) isMember(w http.ResponseWriter, r *http.Request, workspaceID, userID uuid.UUID) bool {
	_, ok, err := h.workspaces.RoleOf(r.Context(), workspaceID, userID)
	if err != nil {
		slog.Error("membership lookup failed", "workspace_id", workspaceID, "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return false
	}
	if !ok {
		respondError(w, http.StatusNotFound, "workspace not found")
		return false
	}
	return true
}
