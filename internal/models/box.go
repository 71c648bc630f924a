// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Box is an inventory item. A box may sit in a location (nil means
// unassigned — e.g. its location was deleted), carry free-form tags,
// and have at most one QR code sticker attached.
type Box struct {
	ID          uuid.UUID  `json:"id"`
	WorkspaceID uuid.UUID  `json:"workspace_id"`
	LocationID  *uuid.UUID `json:"location_id,omitempty"`
	QRCodeID    *uuid.UUID `json:"qr_code_id,omitempty"`
	Name        string     `json:"name"`
	Description *string    `json:"description,omitempty"`
	Tags        []string   `json:"tags"`
	PhotoKey    *string    `json:"photo_key,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
