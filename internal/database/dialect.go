package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Dialect captures the handful of statements that differ between the
// supported SQL engines.
type Dialect struct {
	Name string
	// LockSuffix is appended to a SELECT that must hold the row until the
	// surrounding transaction ends.
	LockSuffix string
	// SeedGrid inserts the singleton grid row unless it already exists.
	SeedGrid string
	// Schema creates every table the service uses.  Statements are
	// idempotent.
	Schema []string
}

// MySQL is the production dialect.
var MySQL = Dialect{
	Name:       "mysql",
	LockSuffix: " FOR UPDATE",
	SeedGrid:   "INSERT IGNORE INTO grid_state (id, cells_json) VALUES (1, '[]')",
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
			username VARCHAR(80) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			vehicle VARCHAR(16) NOT NULL DEFAULT '🚗',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		) DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS refresh_tokens (
			id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
			user_id BIGINT UNSIGNED NOT NULL,
			token_hash CHAR(64) NOT NULL UNIQUE,
			expires_at DATETIME NOT NULL,
			revoked_at DATETIME NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_refresh_user (user_id),
			CONSTRAINT fk_refresh_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		) DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS grid_state (
			id INT NOT NULL PRIMARY KEY,
			cells_json MEDIUMTEXT NOT NULL
		) DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS user_logs (
			id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
			user_id BIGINT UNSIGNED NOT NULL,
			message TEXT NOT NULL,
			created_at DATETIME(6) NOT NULL,
			INDEX idx_user_logs_user (user_id, created_at),
			CONSTRAINT fk_user_logs_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		) DEFAULT CHARSET=utf8mb4`,
	},
}

// SQLite is used for single-file deployments and tests.  Writers are
// serialized by the engine itself, so no lock suffix is needed.
var SQLite = Dialect{
	Name:       "sqlite",
	LockSuffix: "",
	SeedGrid:   "INSERT OR IGNORE INTO grid_state (id, cells_json) VALUES (1, '[]')",
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			vehicle TEXT NOT NULL DEFAULT '🚗',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS refresh_tokens (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			token_hash TEXT NOT NULL UNIQUE,
			expires_at DATETIME NOT NULL,
			revoked_at DATETIME NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS grid_state (
			id INTEGER PRIMARY KEY,
			cells_json TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS user_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			message TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_user_logs_user ON user_logs (user_id, created_at)`,
	},
}

// DialectFor returns the dialect registered under name.
func DialectFor(name string) (Dialect, error) {
	switch name {
	case "", MySQL.Name:
		return MySQL, nil
	case SQLite.Name:
		return SQLite, nil
	}
	return Dialect{}, fmt.Errorf("unsupported db driver %q", name)
}

// EnsureSchema creates missing tables and seeds the singleton grid row.
func EnsureSchema(ctx context.Context, db *sql.DB, d Dialect) error {
	for _, stmt := range d.Schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s schema: %w", d.Name, err)
		}
	}
	if _, err := db.ExecContext(ctx, d.SeedGrid); err != nil {
		return fmt.Errorf("%s seed grid: %w", d.Name, err)
	}
	return nil
}
