package kv

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ctbadmin/internal/adapters/storage"
)

// SQLiteStore implements Store on the kv table. When a Sealer is set, values
// are written sealed; plaintext rows written before a passphrase was
// configured are still readable.
type SQLiteStore struct {
	db     storage.SQLDB
	sealer *Sealer
	now    func() time.Time
}

// NewSQLiteStore creates a store. sealer may be nil.
func NewSQLiteStore(db storage.SQLDB, sealer *Sealer) *SQLiteStore {
	return &SQLiteStore{db: db, sealer: sealer, now: time.Now}
}

// Get returns the value stored under key.
// PRE: key is non-empty
// POST: Returns the value, ErrNotFound, or ErrUnseal
func (s *SQLiteStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	var sealed bool
	err := s.db.QueryRowContext(ctx, "SELECT value, sealed FROM kv WHERE key = ?", key).Scan(&value, &sealed)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	if !sealed {
		return value, nil
	}
	if s.sealer == nil {
		return "", fmt.Errorf("get %s: %w", key, ErrUnseal)
	}
	plain, err := s.sealer.Open(key, value)
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return plain, nil
}

// Set stores value under key, replacing any previous value.
// PRE: key is non-empty
// POST: value is persisted, sealed when a Sealer is configured
func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	sealed := false
	if s.sealer != nil {
		v, err := s.sealer.Seal(key, value)
		if err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
		value, sealed = v, true
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO kv (key, value, sealed, updated_at) VALUES (?, ?, ?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value, sealed=excluded.sealed, updated_at=excluded.updated_at",
		key, value, sealed, s.now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Delete removes the given keys. Missing keys are not an error.
func (s *SQLiteStore) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return nil
}
