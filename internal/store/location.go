// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"boxden/internal/models"
	"boxden/internal/pathtree"
	"boxden/internal/service"
)

const locationColumns = `id, workspace_id, name, description, path, is_deleted, created_at, updated_at`

// LocationStore handles all location-related database operations,
// including the transactional subtree rewrites for rename and soft
// delete.
type LocationStore struct {
	db *sql.DB
}

// NewLocationStore creates a new LocationStore with the given database connection.
func NewLocationStore(db *sql.DB) *LocationStore {
	return &LocationStore{db: db}
}

// Get retrieves a location by ID, soft-deleted rows included. Returns
// nil if not found.
func (s *LocationStore) Get(ctx context.Context, id uuid.UUID) (*models.Location, error) {
	loc := &models.Location{}
	err := s.db.QueryRowContext(ctx, `
		SELECT `+locationColumns+` FROM locations WHERE id = $1
	`, id).Scan(
		&loc.ID, &loc.WorkspaceID, &loc.Name, &loc.Description,
		&loc.Path, &loc.IsDeleted, &loc.CreatedAt, &loc.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find location by id: %w", err)
	}
	return loc, nil
}

// Children returns the live direct children of parentPath (pass "" for
// top-level locations). Descendants deeper than one level are excluded.
func (s *LocationStore) Children(ctx context.Context, workspaceID uuid.UUID, parentPath string) ([]models.Location, error) {
	prefix := pathtree.ChildrenPrefix(parentPath)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+locationColumns+`
		FROM locations
		WHERE workspace_id = $1
		  AND NOT is_deleted
		  AND path LIKE $2 || '.%' ESCAPE '\'
		  AND path NOT LIKE $2 || '.%.%' ESCAPE '\'
		ORDER BY path ASC
	`, workspaceID, likePrefix(prefix))
	if err != nil {
		return nil, fmt.Errorf("list child locations: %w", err)
	}
	defer rows.Close()
	return scanLocations(rows)
}

// ListByWorkspace returns all live locations in a workspace ordered by
// path, which yields a depth-first tree order.
func (s *LocationStore) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]models.Location, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+locationColumns+`
		FROM locations
		WHERE workspace_id = $1 AND NOT is_deleted
		ORDER BY path ASC
	`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()
	return scanLocations(rows)
}

// Insert persists a new live location with its precomputed path.
func (s *LocationStore) Insert(ctx context.Context, loc *models.Location) (*models.Location, error) {
	created := &models.Location{}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO locations (workspace_id, name, description, path)
		VALUES ($1, $2, $3, $4)
		RETURNING `+locationColumns+`
	`, loc.WorkspaceID, loc.Name, loc.Description, loc.Path).Scan(
		&created.ID, &created.WorkspaceID, &created.Name, &created.Description,
		&created.Path, &created.IsDeleted, &created.CreatedAt, &created.UpdatedAt,
	)
	if err != nil {
		if isUniquePathViolation(err) {
			return nil, fmt.Errorf("insert location: %w", service.ErrDuplicatePath)
		}
		return nil, fmt.Errorf("insert location: %w", err)
	}
	return created, nil
}

// Update applies a partial update to a location row. When the update
// carries a new path, every descendant's path prefix is rewritten in
// the same transaction, so no reader ever sees a half-renamed subtree.
func (s *LocationStore) Update(ctx context.Context, id uuid.UUID, upd service.LocationUpdate) (*models.Location, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("update location begin: %w", err)
	}
	defer tx.Rollback()

	// Lock the row so concurrent renames of overlapping subtrees
	// serialize here instead of interleaving their prefix rewrites.
	var workspaceID uuid.UUID
	if err := tx.QueryRowContext(ctx, `
		SELECT workspace_id FROM locations WHERE id = $1 FOR UPDATE
	`, id).Scan(&workspaceID); err != nil {
		return nil, fmt.Errorf("update location lock: %w", err)
	}

	updated := &models.Location{}
	err = tx.QueryRowContext(ctx, `
		UPDATE locations SET
			name = COALESCE($1, name),
			path = COALESCE($2, path),
			description = CASE WHEN $3 THEN NULL ELSE COALESCE($4, description) END,
			updated_at = NOW()
		WHERE id = $5
		RETURNING `+locationColumns+`
	`, upd.Name, upd.NewPath, upd.ClearDescription, upd.Description, id).Scan(
		&updated.ID, &updated.WorkspaceID, &updated.Name, &updated.Description,
		&updated.Path, &updated.IsDeleted, &updated.CreatedAt, &updated.UpdatedAt,
	)
	if err != nil {
		if isUniquePathViolation(err) {
			return nil, fmt.Errorf("update location: %w", service.ErrDuplicatePath)
		}
		return nil, fmt.Errorf("update location: %w", err)
	}

	if upd.NewPath != nil && *upd.NewPath != upd.OldPath {
		// Rewrite every descendant: replace the old prefix, keep the
		// suffix. Soft-deleted descendants are rewritten too so their
		// audit paths stay consistent with the live tree.
		_, err = tx.ExecContext(ctx, `
			UPDATE locations
			SET path = $1 || substr(path, length($2) + 1), updated_at = NOW()
			WHERE workspace_id = $3 AND path LIKE $4 || '.%' ESCAPE '\'
		`, *upd.NewPath, upd.OldPath, workspaceID, likePrefix(upd.OldPath))
		if err != nil {
			if isUniquePathViolation(err) {
				return nil, fmt.Errorf("rename descendants: %w", service.ErrDuplicatePath)
			}
			return nil, fmt.Errorf("rename descendants: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("update location commit: %w", err)
	}
	return updated, nil
}

// SoftDeleteSubtree marks the location at path and all its descendants
// deleted and clears location_id on every box that pointed at any of
// them. One transaction; either the whole subtree flips or none of it.
func (s *LocationStore) SoftDeleteSubtree(ctx context.Context, workspaceID uuid.UUID, path string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("soft delete begin: %w", err)
	}
	defer tx.Rollback()

	// Unlink boxes first, while the subtree is still addressable by path.
	_, err = tx.ExecContext(ctx, `
		UPDATE boxes SET location_id = NULL, updated_at = NOW()
		WHERE location_id IN (
			SELECT id FROM locations
			WHERE workspace_id = $1 AND (path = $2 OR path LIKE $3 || '.%' ESCAPE '\')
		)
	`, workspaceID, path, likePrefix(path))
	if err != nil {
		return fmt.Errorf("unlink boxes: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE locations SET is_deleted = TRUE, updated_at = NOW()
		WHERE workspace_id = $1
		  AND NOT is_deleted
		  AND (path = $2 OR path LIKE $3 || '.%' ESCAPE '\')
	`, workspaceID, path, likePrefix(path))
	if err != nil {
		return fmt.Errorf("soft delete subtree: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("soft delete commit: %w", err)
	}
	return nil
}

// scanLocations drains rows into a slice.
func scanLocations(rows *sql.Rows) ([]models.Location, error) {
	var items []models.Location
	for rows.Next() {
		var loc models.Location
		if err := rows.Scan(
			&loc.ID, &loc.WorkspaceID, &loc.Name, &loc.Description,
			&loc.Path, &loc.IsDeleted, &loc.CreatedAt, &loc.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		items = append(items, loc)
	}
	return items, rows.Err()
}

// likeEscaper escapes LIKE metacharacters. Slugs routinely contain
// underscores, which LIKE would otherwise treat as single-character
// wildcards: "root.top_shelf" must not prefix-match "root.topyshelf".
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePrefix returns path with LIKE metacharacters escaped, for use
// with an ESCAPE '\' clause in prefix queries.
func likePrefix(path string) string {
	return likeEscaper.Replace(path)
}

// isUniquePathViolation matches the partial unique index on
// (workspace_id, path) among live rows.
func isUniquePathViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == "23505" &&
		pgErr.ConstraintName == "locations_workspace_path_live"
}
