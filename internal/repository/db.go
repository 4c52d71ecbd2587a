// Package repository implements the typed CRUD layer over Coheara's two
// SQLite databases: a per-profile encrypted-at-rest corpus database and a
// single unencrypted global app database shared across profiles for device
// pairing. Grounded on the teacher's internal/repository/document.go
// (context-scoped queries, %w-wrapped errors) adapted from pgx to
// modernc.org/sqlite, the pure-Go driver the pack's own local-agent repos
// (jbouey-msp-flake/agent) ship for on-device storage.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/ktiyab/coheara/internal/cherr"
	"github.com/ktiyab/coheara/internal/cryptoutil"
)

// DB wraps a *sql.DB for one profile's corpus, along with the plaintext
// scratch path it was decrypted to and the key to re-seal it on Close. Per
// spec.md §4.1/§5, at most one writer touches this handle at a time; callers
// serialize writes through Mu.
type DB struct {
	SQL *sql.DB
	Mu  sync.Mutex

	encryptedPath string
	scratchPath   string
	key           [cryptoutil.KeySize]byte
}

// OpenEncrypted decrypts the profile's database file to a private scratch
// path, opens it via modernc.org/sqlite, and runs pending migrations. If
// encryptedPath does not yet exist, a fresh empty database is created (the
// create_profile flow). Close must be called to re-encrypt and shred the
// scratch file.
func OpenEncrypted(encryptedPath string, key [cryptoutil.KeySize]byte) (*DB, error) {
	scratchPath := encryptedPath + ".scratch"

	if _, err := os.Stat(encryptedPath); err == nil {
		blob, err := os.ReadFile(encryptedPath)
		if err != nil {
			return nil, fmt.Errorf("repository.OpenEncrypted: read: %w", err)
		}
		plain, err := cryptoutil.Decrypt(key, blob)
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(scratchPath, plain, 0o600); err != nil {
			return nil, fmt.Errorf("repository.OpenEncrypted: write scratch: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("repository.OpenEncrypted: stat: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", scratchPath)
	if err != nil {
		return nil, fmt.Errorf("repository.OpenEncrypted: open: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	d := &DB{SQL: sqlDB, encryptedPath: encryptedPath, scratchPath: scratchPath, key: key}
	if err := d.migrate(context.Background()); err != nil {
		_ = sqlDB.Close()
		_ = os.Remove(scratchPath)
		return nil, err
	}
	return d, nil
}

// Close re-encrypts the scratch file back to encryptedPath and shreds the
// plaintext scratch copy. The guarantee here is cryptographic, not a secure
// overwrite — see spec.md §4.15.
func (d *DB) Close() error {
	if d == nil || d.SQL == nil {
		return nil
	}
	if err := d.SQL.Close(); err != nil {
		return fmt.Errorf("repository.Close: %w", err)
	}
	plain, err := os.ReadFile(d.scratchPath)
	if err != nil {
		return fmt.Errorf("repository.Close: read scratch: %w", err)
	}
	sealed, err := cryptoutil.Encrypt(d.key, plain)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(d.encryptedPath), 0o700); err != nil {
		return fmt.Errorf("repository.Close: mkdir: %w", err)
	}
	if err := os.WriteFile(d.encryptedPath, sealed, 0o600); err != nil {
		return fmt.Errorf("repository.Close: write sealed: %w", err)
	}
	shred(d.scratchPath)
	return nil
}

// shred overwrites then removes a scratch plaintext file; best-effort.
func shred(path string) {
	if info, err := os.Stat(path); err == nil {
		zeros := make([]byte, info.Size())
		_ = os.WriteFile(path, zeros, 0o600)
	}
	_ = os.Remove(path)
}

// OpenAppDB opens the unencrypted global app database (device pairing,
// cross-profile grants); it carries no patient data, so no key is needed.
func OpenAppDB(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("repository.OpenAppDB: mkdir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("repository.OpenAppDB: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := migrateAppDB(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// wrapDBErr maps a driver-level error to the database taxonomy kind.
func wrapDBErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows {
		return cherr.Wrap(cherr.KindDatabase, op+": not found", "", false, cherr.ErrNotFound)
	}
	return cherr.Wrap(cherr.KindDatabase, op+" failed", "retry; if the problem persists the profile may need repair", true, err)
}
