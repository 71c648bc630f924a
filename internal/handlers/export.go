// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"boxden/internal/middleware"
	"boxden/internal/store"
)

// Export produces CSV dumps of a workspace's inventory. Any member may
// export, read-only included.
type Export struct {
	boxes      *store.BoxStore
	locations  *store.LocationStore
	workspaces *store.WorkspaceStore
}

// NewExport creates a new Export handler group.
func NewExport(boxes *store.BoxStore, locations *store.LocationStore, workspaces *store.WorkspaceStore) *Export {
	return &Export{boxes: boxes, locations: locations, workspaces: workspaces}
}

// Boxes streams the workspace's boxes as CSV, one row per box with its
// location path resolved.
func (h *Export) Boxes(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	workspaceID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid workspace id")
		return
	}
	if _, ok, err := h.workspaces.RoleOf(r.Context(), workspaceID, sess.UserID); err != nil {
		slog.Error("membership lookup failed", "workspace_id", workspaceID, "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	} else if !ok {
		respondError(w, http.StatusNotFound, "workspace not found")
		return
	}

	boxes, err := h.boxes.Search(r.Context(), workspaceID, "", "")
	if err != nil {
		slog.Error("export list boxes failed", "workspace_id", workspaceID, "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	locations, err := h.locations.ListByWorkspace(r.Context(), workspaceID)
	if err != nil {
		slog.Error("export list locations failed", "workspace_id", workspaceID, "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	pathByID := make(map[uuid.UUID]string, len(locations))
	for _, loc := range locations {
		pathByID[loc.ID] = loc.Path
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "boxes-"+workspaceID.String()+".csv"))

	cw := csv.NewWriter(w)
	cw.Write([]string{"id", "name", "description", "location_path", "tags", "created_at"})
	for _, b := range boxes {
		desc := ""
		if b.Description != nil {
			desc = *b.Description
		}
		path := ""
		if b.LocationID != nil {
			path = pathByID[*b.LocationID]
		}
		cw.Write([]string{
			b.ID.String(),
			b.Name,
			desc,
			path,
			strings.Join(b.Tags, ","),
			b.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		slog.Error("export csv write failed", "workspace_id", workspaceID, "error", err)
	}
}
