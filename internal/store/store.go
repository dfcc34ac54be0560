// Package store persists key and certificate records. SQLite is the default
// backend (zero configuration, single file); PostgreSQL is available via a
// DSN for deployments that already run one. The store is constructed once at
// process startup and injected into the authenticator and key manager.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/attestly/attestly/internal/model"
)

// Config selects the store backend. With an empty Driver (or "sqlite"),
// DataDir locates the database file; an empty DataDir means in-memory.
// With Driver "postgres", DSN must be set.
type Config struct {
	Driver  string
	DSN     string
	DataDir string
}

// Store wraps the database handle for the keys and certificates collections.
type Store struct {
	db *sqlx.DB
}

// New opens the configured backend and applies migrations.
func New(cfg Config) (*Store, error) {
	var (
		db  *sqlx.DB
		err error
	)

	switch cfg.Driver {
	case "", "sqlite":
		var dsn string
		if cfg.DataDir == "" {
			dsn = ":memory:?_journal_mode=WAL"
		} else {
			if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
			dsn = filepath.Join(cfg.DataDir, "attestly.db") + "?_journal_mode=WAL&_busy_timeout=5000"
		}
		db, err = sqlx.Connect("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	case "postgres":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres store requires a DSN")
		}
		db, err = sqlx.Connect("pgx", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies store connectivity, for readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ---------------------------------------------------------------------------
// Keys collection
// ---------------------------------------------------------------------------

// InsertKey persists a new key record. CreatedAt is stamped here; the caller
// supplies id, secret, role, activity, description, and created_by.
func (s *Store) InsertKey(ctx context.Context, key *model.Key) error {
	key.CreatedAt = time.Now().UTC()

	const q = `INSERT INTO keys
		(id, secret, role, is_active, description, created_at, created_by)
		VALUES
		(:id, :secret, :role, :is_active, :description, :created_at, :created_by)`

	if _, err := s.db.NamedExecContext(ctx, q, key); err != nil {
		return fmt.Errorf("insert key: %w", err)
	}
	return nil
}

// GetKey returns a key record by id.
func (s *Store) GetKey(ctx context.Context, id string) (*model.Key, error) {
	var key model.Key
	q := s.db.Rebind("SELECT * FROM keys WHERE id = ?")
	if err := s.db.GetContext(ctx, &key, q, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get key: %w", err)
	}
	return &key, nil
}

// GetKeysByDescription returns every key whose description matches exactly.
// Description carries a unique constraint, but the lookup stays a slice so
// callers can surface ambiguity instead of picking an arbitrary record.
func (s *Store) GetKeysByDescription(ctx context.Context, description string) ([]model.Key, error) {
	var keys []model.Key
	q := s.db.Rebind("SELECT * FROM keys WHERE description = ?")
	if err := s.db.SelectContext(ctx, &keys, q, description); err != nil {
		return nil, fmt.Errorf("get keys by description: %w", err)
	}
	return keys, nil
}

// ListKeys returns all key records, newest first.
func (s *Store) ListKeys(ctx context.Context) ([]model.Key, error) {
	var keys []model.Key
	if err := s.db.SelectContext(ctx, &keys, "SELECT * FROM keys ORDER BY created_at DESC, id"); err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	return keys, nil
}

// keyColumns is the whitelist of columns UpdateKeyFields may touch.
var keyColumns = map[string]bool{
	"role":           true,
	"is_active":      true,
	"description":    true,
	"updated_at":     true,
	"updated_by":     true,
	"deactivated_at": true,
	"deactivated_by": true,
}

// UpdateKeyFields applies a partial update to a key record. Only whitelisted
// columns are accepted; unknown field names are an error rather than being
// silently dropped.
func (s *Store) UpdateKeyFields(ctx context.Context, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return fmt.Errorf("update key: no fields")
	}

	cols := make([]string, 0, len(fields))
	for col := range fields {
		if !keyColumns[col] {
			return fmt.Errorf("update key: unknown column %q", col)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	var b strings.Builder
	b.WriteString("UPDATE keys SET ")
	args := make([]interface{}, 0, len(cols)+1)
	for i, col := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(col + " = ?")
		args = append(args, fields[col])
	}
	b.WriteString(" WHERE id = ?")
	args = append(args, id)

	result, err := s.db.ExecContext(ctx, s.db.Rebind(b.String()), args...)
	if err != nil {
		return fmt.Errorf("update key: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update key rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Certificates collection
// ---------------------------------------------------------------------------

// InsertCertificate persists a new certificate. IssuedAt is stamped here.
func (s *Store) InsertCertificate(ctx context.Context, cert *model.Certificate) error {
	cert.IssuedAt = time.Now().UTC()

	const q = `INSERT INTO certificates
		(code, recipient_name, event_name, event_date, issued_at, issued_by, revoked)
		VALUES
		(:code, :recipient_name, :event_name, :event_date, :issued_at, :issued_by, :revoked)`

	if _, err := s.db.NamedExecContext(ctx, q, cert); err != nil {
		return fmt.Errorf("insert certificate: %w", err)
	}
	return nil
}

// GetCertificate returns a certificate by code.
func (s *Store) GetCertificate(ctx context.Context, code string) (*model.Certificate, error) {
	var cert model.Certificate
	q := s.db.Rebind("SELECT * FROM certificates WHERE code = ?")
	if err := s.db.GetContext(ctx, &cert, q, code); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get certificate: %w", err)
	}
	return &cert, nil
}

// ListCertificates returns all certificates, newest first.
func (s *Store) ListCertificates(ctx context.Context) ([]model.Certificate, error) {
	var certs []model.Certificate
	if err := s.db.SelectContext(ctx, &certs, "SELECT * FROM certificates ORDER BY issued_at DESC, code"); err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	return certs, nil
}

// RevokeCertificate soft-revokes a certificate. The record remains
// queryable; its code is never reusable.
func (s *Store) RevokeCertificate(ctx context.Context, code, actor string) error {
	now := time.Now().UTC()
	q := s.db.Rebind("UPDATE certificates SET revoked = true, revoked_at = ?, revoked_by = ? WHERE code = ?")
	result, err := s.db.ExecContext(ctx, q, now, actor, code)
	if err != nil {
		return fmt.Errorf("revoke certificate: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke certificate rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
