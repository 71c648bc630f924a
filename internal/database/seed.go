package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// Seed populates the database with initial development data: a demo
// user with a workspace and a couple of starter locations. No-op if
// any user already exists.
func Seed(db *sql.DB) error {
	// Check if any users exist already.
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return fmt.Errorf("seed check users: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("demo"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed bcrypt: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed begin: %w", err)
	}
	defer tx.Rollback()

	var userID string
	err = tx.QueryRow(`
		INSERT INTO users (email, password_hash)
		VALUES ($1, $2)
		RETURNING id
	`, "demo@boxden.local", string(hash)).Scan(&userID)
	if err != nil {
		return fmt.Errorf("seed insert user: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT INTO profiles (id, display_name) VALUES ($1, $2)
	`, userID, "Demo User"); err != nil {
		return fmt.Errorf("seed insert profile: %w", err)
	}

	var workspaceID string
	err = tx.QueryRow(`
		INSERT INTO workspaces (owner_id, name) VALUES ($1, $2) RETURNING id
	`, userID, "Home").Scan(&workspaceID)
	if err != nil {
		return fmt.Errorf("seed insert workspace: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT INTO workspace_members (workspace_id, user_id, role)
		VALUES ($1, $2, 'owner')
	`, workspaceID, userID); err != nil {
		return fmt.Errorf("seed insert membership: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT INTO locations (workspace_id, name, path) VALUES
			($1, 'Garage', 'root.garage'),
			($1, 'Basement', 'root.basement')
	`, workspaceID); err != nil {
		return fmt.Errorf("seed insert locations: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed commit: %w", err)
	}

	slog.Info("database seeded with demo account",
		"email", "demo@boxden.local",
		"password", "demo",
	)

	return nil
}
