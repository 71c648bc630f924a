// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the HTTP handlers for the Boxden API.
// Handlers are grouped by concern (auth, workspaces, locations, boxes,
// qr codes, account) and receive their dependencies through the
// handler struct.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"boxden/internal/service"
)

// maxBodyBytes caps JSON request bodies. Photo uploads use their own limit.
const maxBodyBytes = 1 << 20

// errorResponse is the standard error body.
type errorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// respondJSON writes v as a JSON response with the given status.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			slog.Error("encode response failed", "error", err)
		}
	}
}

// respondError writes the standard error body.
func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Error: msg})
}

// respondServiceError maps a service failure onto an HTTP status.
// Internal errors are logged with context and answered generically.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	se := service.AsError(err)
	switch se.Kind {
	case service.KindValidation, service.KindMaxDepth:
		respondError(w, http.StatusBadRequest, se.Msg)
	case service.KindNotFound:
		respondError(w, http.StatusNotFound, se.Msg)
	case service.KindForbidden:
		respondError(w, http.StatusForbidden, se.Msg)
	case service.KindConflict:
		respondError(w, http.StatusConflict, se.Msg)
	default:
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON reads a JSON body into dst, rejecting unknown garbage and
// oversized payloads.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body is empty")
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

// optionalString decodes a JSON field that distinguishes absent,
// explicit null, and a string value. Returns (value, clear): clear is
// true when the field was an explicit null.
func optionalString(raw json.RawMessage) (*string, bool, error) {
	if raw == nil {
		return nil, false, nil
	}
	if string(raw) == "null" {
		return nil, true, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false, fmt.Errorf("expected a string or null")
	}
	return &s, false, nil
}

// optionalUUID is optionalString for UUID-valued fields.
func optionalUUID(raw json.RawMessage) (*uuid.UUID, bool, error) {
	if raw == nil {
		return nil, false, nil
	}
	if string(raw) == "null" {
		return nil, true, nil
	}
	var id uuid.UUID
	if err := json.Unmarshal(raw, &id); err != nil {
		return nil, false, fmt.Errorf("expected a UUID or null")
	}
	return &id, false, nil
}
