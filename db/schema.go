package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Constraint names are matched by the repositories when classifying pq errors.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		id   TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		CONSTRAINT categories_name_key UNIQUE (name)
	)`,

	`CREATE TABLE IF NOT EXISTS teams (
		id   TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		CONSTRAINT teams_name_key UNIQUE (name)
	)`,

	`CREATE TABLE IF NOT EXISTS team_categories (
		id          SERIAL PRIMARY KEY,
		team_id     TEXT NOT NULL,
		category_id TEXT NOT NULL,
		CONSTRAINT team_categories_team_id_fkey FOREIGN KEY (team_id) REFERENCES teams (id) ON DELETE CASCADE,
		CONSTRAINT team_categories_category_id_fkey FOREIGN KEY (category_id) REFERENCES categories (id),
		CONSTRAINT team_categories_team_id_category_id_key UNIQUE (team_id, category_id)
	)`,

	`CREATE TABLE IF NOT EXISTS users (
		id             TEXT PRIMARY KEY,
		username       TEXT NOT NULL,
		password       TEXT NOT NULL,
		role           TEXT NOT NULL,
		assigned_teams TEXT NOT NULL DEFAULT '[]',
		CONSTRAINT users_username_key UNIQUE (username),
		CONSTRAINT users_role_check CHECK (role IN ('ORGANIZER', 'DELEGATE'))
	)`,

	// No foreign key on team_id: legacy rows may hold a team name instead of an id.
	`CREATE TABLE IF NOT EXISTS players (
		id                 TEXT PRIMARY KEY,
		category_id        TEXT NOT NULL,
		team_id            TEXT,
		first_name         TEXT NOT NULL,
		last_name          TEXT NOT NULL,
		birth_date         TEXT,
		photo_url          TEXT,
		document_photo_url TEXT,
		status             TEXT NOT NULL DEFAULT 'PENDING',
		created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT players_category_id_fkey FOREIGN KEY (category_id) REFERENCES categories (id),
		CONSTRAINT players_status_check CHECK (status IN ('PENDING', 'APPROVED', 'REJECTED'))
	)`,

	`CREATE INDEX IF NOT EXISTS players_category_id_idx ON players (category_id)`,
	`CREATE INDEX IF NOT EXISTS team_categories_category_id_idx ON team_categories (category_id)`,
}

// CreateSchema creates every table the service needs. It is idempotent.
func CreateSchema(ctx context.Context, conn *sql.DB) error {
	for i, stmt := range schemaStatements {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d failed: %w", i+1, err)
		}
	}
	return nil
}
