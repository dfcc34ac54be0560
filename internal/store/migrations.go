package store

import "fmt"

// migrate applies the schema. The DDL sticks to the common subset accepted
// by both SQLite and PostgreSQL: TEXT primary keys, BOOLEAN flags,
// TIMESTAMP audit columns.
func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS keys (
			id TEXT PRIMARY KEY,
			secret TEXT NOT NULL,
			role TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			description TEXT UNIQUE,
			created_at TIMESTAMP NOT NULL,
			created_by TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMP,
			updated_by TEXT,
			deactivated_at TIMESTAMP,
			deactivated_by TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS certificates (
			code TEXT PRIMARY KEY,
			recipient_name TEXT NOT NULL,
			event_name TEXT NOT NULL,
			event_date TEXT NOT NULL DEFAULT '',
			issued_at TIMESTAMP NOT NULL,
			issued_by TEXT NOT NULL DEFAULT '',
			revoked BOOLEAN NOT NULL DEFAULT FALSE,
			revoked_at TIMESTAMP,
			revoked_by TEXT
		)`,

		`CREATE INDEX IF NOT EXISTS idx_keys_description ON keys(description)`,
		`CREATE INDEX IF NOT EXISTS idx_certificates_issued_by ON certificates(issued_by)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}
