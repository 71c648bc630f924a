// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"boxden/internal/middleware"
	"boxden/internal/models"
	"boxden/internal/storage"
	"boxden/internal/store"
)

const (
	maxBoxTags    = 20
	maxPhotoBytes = 5 << 20
	maxBoxNameLen = 100
	maxBoxDescLen = 500
)

// Boxes groups the box HTTP handlers.
type Boxes struct {
	boxes      *store.BoxStore
	locations  *store.LocationStore
	qrCodes    *store.QRCodeStore
	workspaces *store.WorkspaceStore
	files      *storage.Client
}

// NewBoxes creates a new Boxes handler group. files may be nil when no
// object storage is configured; photo uploads are then rejected.
func NewBoxes(boxes *store.BoxStore, locations *store.LocationStore, qrCodes *store.QRCodeStore, workspaces *store.WorkspaceStore, files *storage.Client) *Boxes {
	return &Boxes{boxes: boxes, locations: locations, qrCodes: qrCodes, workspaces: workspaces, files: files}
}

type createBoxRequest struct {
	WorkspaceID uuid.UUID  `json:"workspace_id"`
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	LocationID  *uuid.UUID `json:"location_id"`
	Tags        []string   `json:"tags"`
}

// Create makes a new box, optionally placed in a location.
func (h *Boxes) Create(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	var req createBoxRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.WorkspaceID == uuid.Nil {
		respondError(w, http.StatusBadRequest, "workspace_id is required")
		return
	}
	if !h.requireWriter(w, r, req.WorkspaceID, sess.UserID) {
		return
	}

	name, tags, msg := validateBoxFields(req.Name, req.Tags)
	if msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}
	if req.Description != nil && utf8.RuneCountInString(*req.Description) > maxBoxDescLen {
		respondError(w, http.StatusBadRequest, "description is too long (max 500 characters)")
		return
	}
	if req.LocationID != nil && !h.locationInWorkspace(w, r, *req.LocationID, req.WorkspaceID) {
		return
	}

	box, err := h.boxes.Create(r.Context(), &models.Box{
		WorkspaceID: req.WorkspaceID,
		LocationID:  req.LocationID,
		Name:        name,
		Description: req.Description,
		Tags:        tags,
	})
	if err != nil {
		slog.Error("create box failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondJSON(w, http.StatusCreated, box)
}

// Search lists a workspace's boxes, filtered by an optional free-text
// query and an optional tag.
func (h *Boxes) Search(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	workspaceID, err := uuid.Parse(r.URL.Query().Get("workspace_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "workspace_id query parameter is required")
		return
	}
	if _, ok := h.memberRole(w, r, workspaceID, sess.UserID); !ok {
		return
	}

	items, err := h.boxes.Search(r.Context(), workspaceID,
		strings.TrimSpace(r.URL.Query().Get("q")),
		strings.TrimSpace(r.URL.Query().Get("tag")))
	if err != nil {
		slog.Error("search boxes failed", "workspace_id", workspaceID, "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondJSON(w, http.StatusOK, items)
}

// Get returns one box, with the photo URL resolved if storage is
// configured.
func (h *Boxes) Get(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	box, ok := h.visibleBox(w, r, sess.UserID, false)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, h.withPhotoURL(box))
}

type updateBoxRequest struct {
	Name        *string         `json:"name"`
	Description json.RawMessage `json:"description"`
	LocationID  json.RawMessage `json:"location_id"`
	Tags        []string        `json:"tags"`
}

// Update applies a partial update. Explicit nulls clear description and
// location; an absent field leaves it alone.
func (h *Boxes) Update(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	box, ok := h.visibleBox(w, r, sess.UserID, true)
	if !ok {
		return
	}

	var req updateBoxRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var upd store.BoxUpdate
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			respondError(w, http.StatusBadRequest, "name is required")
			return
		}
		if utf8.RuneCountInString(name) > maxBoxNameLen {
			respondError(w, http.StatusBadRequest, "name is too long (max 100 characters)")
			return
		}
		upd.Name = &name
	}
	if req.Tags != nil {
		tags, msg := cleanTags(req.Tags)
		if msg != "" {
			respondError(w, http.StatusBadRequest, msg)
			return
		}
		upd.Tags = tags
	}

	desc, clearDesc, err := optionalString(req.Description)
	if err != nil {
		respondError(w, http.StatusBadRequest, "description must be a string or null")
		return
	}
	if desc != nil && utf8.RuneCountInString(*desc) > maxBoxDescLen {
		respondError(w, http.StatusBadRequest, "description is too long (max 500 characters)")
		return
	}
	upd.Description = desc
	upd.ClearDescription = clearDesc

	locID, clearLoc, err := optionalUUID(req.LocationID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "location_id must be a UUID or null")
		return
	}
	if locID != nil && !h.locationInWorkspace(w, r, *locID, box.WorkspaceID) {
		return
	}
	upd.LocationID = locID
	upd.ClearLocation = clearLoc

	if upd.Name == nil && upd.Description == nil && !upd.ClearDescription &&
		upd.LocationID == nil && !upd.ClearLocation && upd.Tags == nil {
		respondError(w, http.StatusBadRequest, "at least one field required")
		return
	}

	updated, err := h.boxes.Update(r.Context(), box.ID, upd)
	if err != nil {
		slog.Error("update box failed", "box_id", box.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if updated == nil {
		respondError(w, http.StatusNotFound, "box not found")
		return
	}
	respondJSON(w, http.StatusOK, h.withPhotoURL(updated))
}

// Delete removes a box. Its QR code, if any, goes back to "generated".
func (h *Boxes) Delete(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	box, ok := h.visibleBox(w, r, sess.UserID, true)
	if !ok {
		return
	}

	if err := h.boxes.Delete(r.Context(), box.ID); err != nil {
		slog.Error("delete box failed", "box_id", box.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if box.PhotoKey != nil && h.files != nil {
		if err := h.files.Delete(r.Context(), *box.PhotoKey); err != nil {
			slog.Warn("delete box photo failed", "key", *box.PhotoKey, "error", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

type assignQRRequest struct {
	QRCodeID uuid.UUID `json:"qr_code_id"`
}

// AssignQR links a QR code from the same workspace to the box.
func (h *Boxes) AssignQR(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	box, ok := h.visibleBox(w, r, sess.UserID, true)
	if !ok {
		return
	}

	var req assignQRRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	qr, err := h.qrCodes.Get(r.Context(), req.QRCodeID)
	if err != nil {
		slog.Error("qr lookup failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if qr == nil || qr.WorkspaceID != box.WorkspaceID {
		respondError(w, http.StatusNotFound, "qr code not found")
		return
	}

	if err := h.boxes.AssignQRCode(r.Context(), box.ID, qr.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusConflict, "qr code is already assigned to another box")
			return
		}
		slog.Error("assign qr failed", "box_id", box.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UnassignQR detaches the box's QR code.
func (h *Boxes) UnassignQR(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	box, ok := h.visibleBox(w, r, sess.UserID, true)
	if !ok {
		return
	}

	if err := h.boxes.UnassignQRCode(r.Context(), box.ID); err != nil {
		slog.Error("unassign qr failed", "box_id", box.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadPhoto stores a box photo in object storage and records its key.
func (h *Boxes) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	box, ok := h.visibleBox(w, r, sess.UserID, true)
	if !ok {
		return
	}
	if h.files == nil {
		respondError(w, http.StatusServiceUnavailable, "photo storage is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoBytes)
	if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
		respondError(w, http.StatusBadRequest, "photo must be a multipart upload under 5MB")
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		respondError(w, http.StatusBadRequest, "photo file is required")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	contentType := mimeForExt(ext)
	if contentType == "" {
		respondError(w, http.StatusBadRequest, "photo must be a jpeg, png, or webp image")
		return
	}

	key := fmt.Sprintf("boxes/%s/photo%s", box.ID, ext)
	if err := h.files.Upload(r.Context(), key, contentType, file, header.Size); err != nil {
		slog.Error("photo upload failed", "box_id", box.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if err := h.boxes.SetPhotoKey(r.Context(), box.ID, key); err != nil {
		slog.Error("record photo key failed", "box_id", box.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"photo_url": h.files.FileURL(key)})
}

// visibleBox loads the box from the URL, verifies membership with the
// hidden-existence policy, and optionally requires a writing role.
func (h *Boxes) visibleBox(w http.ResponseWriter, r *http.Request, userID uuid.UUID, write bool) (*models.Box, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid box id")
		return nil, false
	}

	box, err := h.boxes.Get(r.Context(), id)
	if err != nil {
		slog.Error("get box failed", "box_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return nil, false
	}
	if box == nil {
		respondError(w, http.StatusNotFound, "box not found")
		return nil, false
	}

	role, ok, err := h.workspaces.RoleOf(r.Context(), box.WorkspaceID, userID)
	if err != nil {
		slog.Error("membership lookup failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return nil, false
	}
	if !ok {
		respondError(w, http.StatusNotFound, "box not found")
		return nil, false
	}
	if write && !role.CanWrite() {
		respondError(w, http.StatusForbidden, "read-only members cannot modify boxes")
		return nil, false
	}
	return box, true
}

func (h *Boxes) memberRole(w http.ResponseWriter, r *http.Request, workspaceID, userID uuid.UUID) (models.Role, bool) {
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

func (h *Boxes) requireWriter(w http.ResponseWriter, r *http.Request, workspaceID, userID uuid.UUID) bool {
	role, ok := h.memberRole(w, r, workspaceID, userID)
	if !ok {
		return false
	}
	if !role.CanWrite() {
		respondError(w, http.StatusForbidden, "read-only members cannot modify boxes")
		return false
	}
	return true
}

// locationInWorkspace rejects cross-workspace and deleted location
// references on create and move.
func (h *Boxes) locationInWorkspace(w http.ResponseWriter, r *http.Request, locationID, workspaceID uuid.UUID) bool {
	loc, err := h.locations.Get(r.Context(), locationID)
	if err != nil {
		slog.Error("location lookup failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return false
	}
	if loc == nil || loc.IsDeleted || loc.WorkspaceID != workspaceID {
		respondError(w, http.StatusNotFound, "location not found")
		return false
	}
	return true
}

// withPhotoURL shapes a box response, resolving photo_key to a URL.
func (h *Boxes) withPhotoURL(box *models.Box) map[string]any {
	out := map[string]any{
		"id":           box.ID,
		"workspace_id": box.WorkspaceID,
		"location_id":  box.LocationID,
		"qr_code_id":   box.QRCodeID,
		"name":         box.Name,
		"description":  box.Description,
		"tags":         box.Tags,
		"created_at":   box.CreatedAt,
		"updated_at":   box.UpdatedAt,
	}
	if box.PhotoKey != nil && h.files != nil {
		out["photo_url"] = h.files.FileURL(*box.PhotoKey)
	}
	return out
}

func validateBoxFields(name string, tags []string) (string, []string, string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil, "name is required"
	}
	if utf8.RuneCountInString(name) > maxBoxNameLen {
		return "", nil, "name is too long (max 100 characters)"
	}
	if tags == nil {
		return name, nil, ""
	}
	cleaned, msg := cleanTags(tags)
	return name, cleaned, msg
}

// cleanTags trims whitespace and drops empty entries. The result is
// never nil so an explicit empty list clears tags.
func cleanTags(tags []string) ([]string, string) {
	if len(tags) > maxBoxTags {
		return nil, "too many tags (max 20)"
	}
	cleaned := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		cleaned = append(cleaned, t)
	}
	return cleaned, ""
}

func mimeForExt(ext string) string {
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	}
	return ""
}
