// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"

	"boxden/internal/middleware"
	"boxden/internal/models"
	"boxden/internal/store"
)

// maxQRBatch caps one batch request; sticker sheets are printed in
// pages anyway.
const maxQRBatch = 100

// qrImageSize is the PNG edge length in pixels, sized for 300dpi
// sticker printing.
const qrImageSize = 512

// QRCodes groups the QR-code HTTP handlers.
type QRCodes struct {
	qrCodes    *store.QRCodeStore
	workspaces *store.WorkspaceStore
	baseURL    string
}

// NewQRCodes creates a new QRCodes handler group. baseURL is the public
// origin encoded into the printable images.
func NewQRCodes(qrCodes *store.QRCodeStore, workspaces *store.WorkspaceStore, baseURL string) *QRCodes {
	return &QRCodes{qrCodes: qrCodes, workspaces: workspaces, baseURL: strings.TrimRight(baseURL, "/")}
}

type createBatchRequest struct {
	WorkspaceID uuid.UUID `json:"workspace_id"`
	Count       int       `json:"count"`
}

// CreateBatch generates a batch of fresh QR codes for printing.
func (h *QRCodes) CreateBatch(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	var req createBatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.WorkspaceID == uuid.Nil {
		respondError(w, http.StatusBadRequest, "workspace_id is required")
		return
	}
	if req.Count < 1 || req.Count > maxQRBatch {
		respondError(w, http.StatusBadRequest, "count must be between 1 and 100")
		return
	}
	if !h.requireWriter(w, r, req.WorkspaceID, sess.UserID) {
		return
	}

	items, err := h.qrCodes.CreateBatch(r.Context(), req.WorkspaceID, req.Count)
	if err != nil {
		slog.Error("create qr batch failed", "workspace_id", req.WorkspaceID, "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondJSON(w, http.StatusCreated, items)
}

// List returns a workspace's QR codes, optionally filtered by status.
func (h *QRCodes) List(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	workspaceID, err := uuid.Parse(r.URL.Query().Get("workspace_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "workspace_id query parameter is required")
		return
	}

	status := models.QRStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		respondError(w, http.StatusBadRequest, "status must be generated, printed, or assigned")
		return
	}
	if _, ok := h.memberRole(w, r, workspaceID, sess.UserID); !ok {
		return
	}

	items, err := h.qrCodes.List(r.Context(), workspaceID, status)
	if err != nil {
		slog.Error("list qr codes failed", "workspace_id", workspaceID, "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondJSON(w, http.StatusOK, items)
}

// Get returns one QR code.
func (h *QRCodes) Get(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	qr, ok := h.visibleQR(w, r, sess.UserID)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, qr)
}

// Image renders the QR code as a PNG encoding the scan URL for its
// short ID.
func (h *QRCodes) Image(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	qr, ok := h.visibleQR(w, r, sess.UserID)
	if !ok {
		return
	}

	png, err := qrcode.Encode(h.scanURL(qr.ShortID), qrcode.Medium, qrImageSize)
	if err != nil {
		slog.Error("encode qr image failed", "qr_id", qr.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(png)))
	w.Write(png)
}

type updateQRRequest struct {
	Status models.QRStatus `json:"status"`
}

// Update marks a QR code printed. That is the only status transition
// exposed here; assignment goes through the box endpoints.
func (h *QRCodes) Update(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	qr, ok := h.visibleQR(w, r, sess.UserID)
	if !ok {
		return
	}
	if !h.requireWriter(w, r, qr.WorkspaceID, sess.UserID) {
		return
	}

	var req updateQRRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Status != models.QRStatusPrinted {
		respondError(w, http.StatusBadRequest, "status can only be set to printed")
		return
	}

	updated, err := h.qrCodes.MarkPrinted(r.Context(), qr.ID)
	if err != nil {
		slog.Error("mark qr printed failed", "qr_id", qr.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if updated == nil {
		respondError(w, http.StatusConflict, "only generated codes can be marked printed")
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

// scanURL is the address a phone lands on after scanning the sticker.
func (h *QRCodes) scanURL(shortID string) string {
	return h.baseURL + "/q/" + shortID
}

// visibleQR loads the QR code from the URL with the hidden-existence
// membership policy.
func (h *QRCodes) visibleQR(w http.ResponseWriter, r *http.Request, userID uuid.UUID) (*models.QRCode, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid qr code id")
		return nil, false
	}

	qr, err := h.qrCodes.Get(r.Context(), id)
	if err != nil {
		slog.Error("get qr code failed", "qr_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return nil, false
	}
	if qr == nil {
		respondError(w, http.StatusNotFound, "qr code not found")
		return nil, false
	}
	if _, ok, err := h.workspaces.RoleOf(r.Context(), qr.WorkspaceID, userID); err != nil {
		slog.Error("membership lookup failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return nil, false
	} else if !ok {
		respondError(w, http.StatusNotFound, "qr code not found")
		return nil, false
	}
	return qr, true
}

func (h *QRCodes) memberRole(w http.ResponseWriter, r *http.Request, workspaceID, userID uuid.UUID) (models.Role, bool) {
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

func (h *QRCodes) requireWriter(w http.ResponseWriter, r *http.Request, workspaceID, userID uuid.UUID) bool {
	role, ok := h.memberRole(w, r, workspaceID, userID)
	if !ok {
		return false
	}
	if !role.CanWrite() {
		respondError(w, http.StatusForbidden, "read-only members cannot manage qr codes")
		return false
	}
	return true
}
