// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"

	"boxden/internal/middleware"
	"boxden/internal/service"
)

// Account groups the account-level HTTP handlers.
type Account struct {
	cascade *service.CascadeService
}

// NewAccount creates a new Account handler group.
func NewAccount(cascade *service.CascadeService) *Account {
	return &Account{cascade: cascade}
}

// Delete removes the caller's account and every workspace they own.
// The response confirms full deletion; retried requests converge on the
// same outcome.
func (h *Account) Delete(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	if err := h.cascade.DeleteAccount(r.Context(), sess.UserID); err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "account and all associated data deleted",
	})
}
