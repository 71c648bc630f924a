// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"boxden/internal/models"
)

const qrColumns = `id, workspace_id, box_id, short_id, status, created_at, updated_at`

// shortIDAlphabet avoids ambiguous characters (0/O, 1/I/L) so codes
// printed on stickers stay readable.
const shortIDAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

const shortIDLength = 8

// QRCodeStore handles all QR-code database operations.
type QRCodeStore struct {
	db *sql.DB
}

// NewQRCodeStore creates a new QRCodeStore with the given database connection.
func NewQRCodeStore(db *sql.DB) *QRCodeStore {
	return &QRCodeStore{db: db}
}

// Get retrieves a QR code by ID. Returns nil if not found.
func (s *QRCodeStore) Get(ctx context.Context, id uuid.UUID) (*models.QRCode, error) {
	q := &models.QRCode{}
	err := s.db.QueryRowContext(ctx, `
		SELECT `+qrColumns+` FROM qr_codes WHERE id = $1
	`, id).Scan(&q.ID, &q.WorkspaceID, &q.BoxID, &q.ShortID, &q.Status, &q.CreatedAt, &q.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find qr code by id: %w", err)
	}
	return q, nil
}

// List returns the QR codes of a workspace, optionally filtered by status.
func (s *QRCodeStore) List(ctx context.Context, workspaceID uuid.UUID, status models.QRStatus) ([]models.QRCode, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+qrColumns+`
		FROM qr_codes
		WHERE workspace_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
	`, workspaceID, string(status))
	if err != nil {
		return nil, fmt.Errorf("list qr codes: %w", err)
	}
	defer rows.Close()

	var items []models.QRCode
	for rows.Next() {
		var q models.QRCode
		if err := rows.Scan(&q.ID, &q.WorkspaceID, &q.BoxID, &q.ShortID, &q.Status, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan qr code: %w", err)
		}
		items = append(items, q)
	}
	return items, rows.Err()
}

// CreateBatch generates count fresh QR codes in the "generated" state,
// each with a random human-readable short ID, in one transaction.
func (s *QRCodeStore) CreateBatch(ctx context.Context, workspaceID uuid.UUID, count int) ([]models.QRCode, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("create qr batch begin: %w", err)
	}
	defer tx.Rollback()

	items := make([]models.QRCode, 0, count)
	for i := 0; i < count; i++ {
		shortID, err := generateShortID()
		if err != nil {
			return nil, fmt.Errorf("generate short id: %w", err)
		}

		var q models.QRCode
		err = tx.QueryRowContext(ctx, `
			INSERT INTO qr_codes (workspace_id, short_id) VALUES ($1, $2)
			RETURNING `+qrColumns+`
		`, workspaceID, shortID).Scan(
			&q.ID, &q.WorkspaceID, &q.BoxID, &q.ShortID, &q.Status, &q.CreatedAt, &q.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("create qr code: %w", err)
		}
		items = append(items, q)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("create qr batch commit: %w", err)
	}
	return items, nil
}

// MarkPrinted moves a QR code from "generated" to "printed". Assigned
// codes are left alone — printing state no longer matters once a code
// is on a box.
func (s *QRCodeStore) MarkPrinted(ctx context.Context, id uuid.UUID) (*models.QRCode, error) {
	q := &models.QRCode{}
	err := s.db.QueryRowContext(ctx, `
		UPDATE qr_codes SET status = 'printed', updated_at = NOW()
		WHERE id = $1 AND status = 'generated'
		RETURNING `+qrColumns+`
	`, id).Scan(&q.ID, &q.WorkspaceID, &q.BoxID, &q.ShortID, &q.Status, &q.CreatedAt, &q.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mark qr printed: %w", err)
	}
	return q, nil
}

// generateShortID draws shortIDLength characters from the sticker
// alphabet using crypto/rand.
func generateShortID() (string, error) {
	buf := make([]byte, shortIDLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, shortIDLength)
	for i, b := range buf {
		out[i] = shortIDAlphabet[int(b)%len(shortIDAlphabet)]
	}
	return string(out), nil
}
