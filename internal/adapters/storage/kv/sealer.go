package kv

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"ctbadmin/internal/adapters/storage"
)

// ErrUnseal is returned when a sealed value cannot be decrypted, typically
// because the passphrase changed.
var ErrUnseal = errors.New("kv: cannot unseal value")

// SaltKey is the kv row holding the key-derivation salt. It is never sealed.
const SaltKey = "kv.salt"

// SaltSize is the length of the random key-derivation salt.
const SaltSize = 16

// argon2id parameters (RFC 9106 second recommended option).
const (
	argonTime    = 3
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// Sealer encrypts values with XChaCha20-Poly1305. The value's key is bound as
// additional data so a ciphertext cannot be moved to another key.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives a 256-bit key from passphrase and salt with argon2id.
// PRE: passphrase is non-empty; len(salt) >= SaltSize
// POST: Returns a Sealer or an error
func NewSealer(passphrase string, salt []byte) (*Sealer, error) {
	if passphrase == "" {
		return nil, errors.New("kv: empty passphrase")
	}
	if len(salt) < SaltSize {
		return nil, fmt.Errorf("kv: salt must be at least %d bytes", SaltSize)
	}
	key := argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemory, argonThreads, chacha20poly1305.KeySize)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

// OpenSealer builds the Sealer of a state database, creating and storing its
// random salt on first use.
// PRE: db carries the kv table
// POST: Every call on the same database derives the same key for a passphrase
func OpenSealer(ctx context.Context, db storage.SQLDB, passphrase string) (*Sealer, error) {
	salt, err := loadSalt(ctx, db)
	if err != nil {
		return nil, err
	}
	return NewSealer(passphrase, salt)
}

func loadSalt(ctx context.Context, db storage.SQLDB) ([]byte, error) {
	fresh := make([]byte, SaltSize)
	if _, err := rand.Read(fresh); err != nil {
		return nil, fmt.Errorf("salt: %w", err)
	}
	// A concurrent first run may win the insert; both then read its salt.
	if _, err := db.ExecContext(ctx,
		"INSERT OR IGNORE INTO kv (key, value, sealed, updated_at) VALUES (?, ?, 0, ?)",
		SaltKey, base64.StdEncoding.EncodeToString(fresh), time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return nil, fmt.Errorf("store salt: %w", err)
	}

	var encoded string
	err := db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", SaltKey).Scan(&encoded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.New("salt: row missing after insert")
	}
	if err != nil {
		return nil, fmt.Errorf("read salt: %w", err)
	}
	salt, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(salt) < SaltSize {
		return nil, fmt.Errorf("salt: corrupt %s row", SaltKey)
	}
	return salt, nil
}

// Seal returns base64(nonce || ciphertext).
func (s *Sealer) Seal(key, plaintext string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	out := s.aead.Seal(nonce, nonce, []byte(plaintext), []byte(key))
	return base64.StdEncoding.EncodeToString(out), nil
}

// Open reverses Seal.
// PRE: sealed was produced by Seal for the same key
// POST: Returns the plaintext or ErrUnseal
func (s *Sealer) Open(key, sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil || len(raw) < s.aead.NonceSize() {
		return "", ErrUnseal
	}
	nonce, ct := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]
	pt, err := s.aead.Open(nil, nonce, ct, []byte(key))
	if err != nil {
		return "", ErrUnseal
	}
	return string(pt), nil
}
