// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"boxden/internal/models"
)

const boxColumns = `id, workspace_id, location_id, qr_code_id, name, description, tags, photo_key, created_at, updated_at`

// BoxStore handles all box-related database operations, including the
// transactional QR assignment steps that keep qr_codes.status in sync
// with the box's reference.
type BoxStore struct {
	db *sql.DB
}

// NewBoxStore creates a new BoxStore with the given database connection.
func NewBoxStore(db *sql.DB) *BoxStore {
	return &BoxStore{db: db}
}

// Get retrieves a box by ID. Returns nil if not found.
func (s *BoxStore) Get(ctx context.Context, id uuid.UUID) (*models.Box, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+boxColumns+` FROM boxes WHERE id = $1`, id)
	b, err := scanBox(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find box by id: %w", err)
	}
	return b, nil
}

// Search returns the boxes of a workspace, optionally filtered by a
// case-insensitive name/description query and a tag. Empty filters
// list everything, newest first.
func (s *BoxStore) Search(ctx context.Context, workspaceID uuid.UUID, query, tag string) ([]models.Box, error) {
	tagJSON, err := json.Marshal([]string{tag})
	if err != nil {
		return nil, fmt.Errorf("marshal tag filter: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+boxColumns+`
		FROM boxes
		WHERE workspace_id = $1
		  AND ($2 = '' OR name ILIKE '%' || $2 || '%' OR description ILIKE '%' || $2 || '%')
		  AND ($3 = '' OR tags @> $4)
		ORDER BY created_at DESC
	`, workspaceID, query, tag, tagJSON)
	if err != nil {
		return nil, fmt.Errorf("search boxes: %w", err)
	}
	defer rows.Close()

	var items []models.Box
	for rows.Next() {
		b, err := scanBox(rows)
		if err != nil {
			return nil, fmt.Errorf("scan box: %w", err)
		}
		items = append(items, *b)
	}
	return items, rows.Err()
}

// Create inserts a new box and returns it with the generated ID.
func (s *BoxStore) Create(ctx context.Context, b *models.Box) (*models.Box, error) {
	tags, err := marshalTags(b.Tags)
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO boxes (workspace_id, location_id, name, description, tags)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+boxColumns+`
	`, b.WorkspaceID, b.LocationID, b.Name, b.Description, tags)
	created, err := scanBox(row)
	if err != nil {
		return nil, fmt.Errorf("create box: %w", err)
	}
	return created, nil
}

// BoxUpdate describes a partial box update. Nil fields are left
// untouched; ClearLocation and ClearDescription encode explicit nulls.
type BoxUpdate struct {
	Name             *string
	Description      *string
	ClearDescription bool
	LocationID       *uuid.UUID
	ClearLocation    bool
	Tags             []string // nil = unchanged
}

// Update applies a partial update to a box.
func (s *BoxStore) Update(ctx context.Context, id uuid.UUID, upd BoxUpdate) (*models.Box, error) {
	var tags any
	if upd.Tags != nil {
		marshaled, err := marshalTags(upd.Tags)
		if err != nil {
			return nil, err
		}
		tags = marshaled
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE boxes SET
			name = COALESCE($1, name),
			description = CASE WHEN $2 THEN NULL ELSE COALESCE($3, description) END,
			location_id = CASE WHEN $4 THEN NULL ELSE COALESCE($5, location_id) END,
			tags = COALESCE($6, tags),
			updated_at = NOW()
		WHERE id = $7
		RETURNING `+boxColumns+`
	`, upd.Name, upd.ClearDescription, upd.Description,
		upd.ClearLocation, upd.LocationID, tags, id)
	updated, err := scanBox(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update box: %w", err)
	}
	return updated, nil
}

// SetPhotoKey records the object-storage key of the box's photo.
func (s *BoxStore) SetPhotoKey(ctx context.Context, id uuid.UUID, key string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE boxes SET photo_key = $1, updated_at = NOW() WHERE id = $2
	`, key, id)
	if err != nil {
		return fmt.Errorf("set photo key: %w", err)
	}
	return nil
}

// AssignQRCode links a QR code to a box and flips the code to
// "assigned" in one transaction. A previously assigned code on the box
// is released first.
func (s *BoxStore) AssignQRCode(ctx context.Context, boxID, qrID uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("assign qr begin: %w", err)
	}
	defer tx.Rollback()

	if err := releaseBoxQR(ctx, tx, boxID); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE qr_codes SET box_id = $1, status = 'assigned', updated_at = NOW()
		WHERE id = $2 AND box_id IS NULL
	`, boxID, qrID)
	if err != nil {
		return fmt.Errorf("assign qr code: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE boxes SET qr_code_id = $1, updated_at = NOW() WHERE id = $2
	`, qrID, boxID); err != nil {
		return fmt.Errorf("link qr to box: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("assign qr commit: %w", err)
	}
	return nil
}

// UnassignQRCode detaches the box's QR code and resets it to
// "generated" so the physical sticker can be reused.
func (s *BoxStore) UnassignQRCode(ctx context.Context, boxID uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("unassign qr begin: %w", err)
	}
	defer tx.Rollback()

	if err := releaseBoxQR(ctx, tx, boxID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE boxes SET qr_code_id = NULL, updated_at = NOW() WHERE id = $1
	`, boxID); err != nil {
		return fmt.Errorf("unlink qr from box: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("unassign qr commit: %w", err)
	}
	return nil
}

// Delete removes a box, resetting any assigned QR code in the same
// transaction. Deleting a box never deletes its QR code.
func (s *BoxStore) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete box begin: %w", err)
	}
	defer tx.Rollback()

	if err := releaseBoxQR(ctx, tx, id); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM boxes WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete box: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete box commit: %w", err)
	}
	return nil
}

// releaseBoxQR resets whatever QR code currently points at the box.
func releaseBoxQR(ctx context.Context, tx *sql.Tx, boxID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE qr_codes SET box_id = NULL, status = 'generated', updated_at = NOW()
		WHERE box_id = $1
	`, boxID)
	if err != nil {
		return fmt.Errorf("release qr code: %w", err)
	}
	return nil
}

// scanBox reads one box row, decoding the JSONB tags column.
func scanBox(row interface{ Scan(...any) error }) (*models.Box, error) {
	b := &models.Box{}
	var tags []byte
	err := row.Scan(
		&b.ID, &b.WorkspaceID, &b.LocationID, &b.QRCodeID,
		&b.Name, &b.Description, &tags, &b.PhotoKey,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tags, &b.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	if b.Tags == nil {
		b.Tags = []string{}
	}
	return b, nil
}

func marshalTags(tags []string) ([]byte, error) {
	if tags == nil {
		tags = []string{}
	}
	out, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}
	return out, nil
}
