// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// QRStatus tracks a QR sticker through its lifecycle.
type QRStatus string

const (
	QRStatusGenerated QRStatus = "generated"
	QRStatusPrinted   QRStatus = "printed"
	QRStatusAssigned  QRStatus = "assigned"
)

// Valid reports whether the status is one of the known values.
func (s QRStatus) Valid() bool {
	switch s {
	case QRStatusGenerated, QRStatusPrinted, QRStatusAssigned:
		return true
	}
	return false
}

// QRCode is a printable sticker owned by a workspace. Status is
// "assigned" exactly while BoxID is set; unassigning (or deleting the
// box) resets it to "generated" so the physical sticker can be reused.
type QRCode struct {
	ID          uuid.UUID  `json:"id"`
	WorkspaceID uuid.UUID  `json:"workspace_id"`
	BoxID       *uuid.UUID `json:"box_id,omitempty"`
	ShortID     string     `json:"short_id"`
	Status      QRStatus   `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
