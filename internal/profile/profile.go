// Package profile manages the per-profile directory layout, password-keyed
// session lifecycle, and the global profiles.json registry. Grounded on
// spec.md §4.2 and the original's Profile/ProfileSession shape implied by
// authorization.rs's Profile type.
package profile

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ktiyab/coheara/internal/cherr"
	"github.com/ktiyab/coheara/internal/cryptoutil"
	"github.com/ktiyab/coheara/internal/repository"
)

// Profile is one entry in profiles.json — names only, never secrets.
type Profile struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
	ManagedBy string     `json:"managed_by,omitempty"`
}

// Session is an ephemeral, in-memory unlock of one profile. It owns the
// derived key for its lifetime; Close zeroes the key and closes the DB.
type Session struct {
	ProfileID uuid.UUID
	DBPath    string
	key       [cryptoutil.KeySize]byte

	mu sync.Mutex
	db *repository.DB
}

// Key returns a copy of the session's derived key; Close zeroes only the
// session's own copy, so it must not be retained beyond the session's
// lifetime.
func (s *Session) Key() [cryptoutil.KeySize]byte { return s.key }

// DB lazily opens (or returns the already-open) encrypted corpus database
// for this session.
func (s *Session) DB() (*repository.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db, nil
	}
	db, err := repository.OpenEncrypted(s.DBPath, s.key)
	if err != nil {
		return nil, fmt.Errorf("profile.Session.DB: %w", err)
	}
	s.db = db
	return db, nil
}

// Close zeroes the derived key and closes the database if it was opened.
// Per spec.md §5, cloning a session is cheap; Close should only be called
// once the last reference drops.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	if s.db != nil {
		err = s.db.Close()
		s.db = nil
	}
	cryptoutil.Zero(&s.key)
	return err
}

func dirFor(root string, id uuid.UUID) string { return filepath.Join(root, id.String()) }

func registryPath(root string) string { return filepath.Join(root, "profiles.json") }

// ListProfiles reads profiles.json under root, returning an empty slice if
// it does not yet exist.
func ListProfiles(root string) ([]Profile, error) {
	data, err := os.ReadFile(registryPath(root))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("profile.ListProfiles: %w", err)
	}
	var profiles []Profile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("profile.ListProfiles: %w", err)
	}
	return profiles, nil
}

// RemoveProfile drops one entry from profiles.json. It does not touch the
// profile's directory on disk; callers that need full erasure must remove
// that separately.
func RemoveProfile(root string, id uuid.UUID) (bool, error) {
	profiles, err := ListProfiles(root)
	if err != nil {
		return false, err
	}
	remaining := profiles[:0]
	found := false
	for _, p := range profiles {
		if p.ID == id {
			found = true
			continue
		}
		remaining = append(remaining, p)
	}
	if !found {
		return false, nil
	}
	if err := saveRegistry(root, remaining); err != nil {
		return false, err
	}
	return true, nil
}

func saveRegistry(root string, profiles []Profile) error {
	data, err := json.MarshalIndent(profiles, "", "  ")
	if err != nil {
		return fmt.Errorf("profile.saveRegistry: %w", err)
	}
	if err := os.MkdirAll(root, 0o700); err != nil {
		return fmt.Errorf("profile.saveRegistry: %w", err)
	}
	if err := os.WriteFile(registryPath(root), data, 0o600); err != nil {
		return fmt.Errorf("profile.saveRegistry: %w", err)
	}
	return nil
}

// CreateOptions holds the optional fields create_profile accepts.
type CreateOptions struct {
	ManagedBy string
}

// CreateProfile generates a salt, derives a key, lays out the profile
// directory, initializes the encrypted corpus DB, registers the profile in
// profiles.json, and returns a recovery phrase along with the unlocked
// Session. The returned phrase is shown once and never persisted.
func CreateProfile(ctx context.Context, root, name, password string, opts CreateOptions) (*Session, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, "", cherr.New(cherr.KindValidation, "profile.CreateProfile: name is required", "enter a profile name", false)
	}

	id := uuid.New()
	dir := dirFor(root, id)
	if err := os.MkdirAll(filepath.Join(dir, "originals"), 0o700); err != nil {
		return nil, "", fmt.Errorf("profile.CreateProfile: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "markdown"), 0o700); err != nil {
		return nil, "", fmt.Errorf("profile.CreateProfile: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "database"), 0o700); err != nil {
		return nil, "", fmt.Errorf("profile.CreateProfile: %w", err)
	}

	salt, err := cryptoutil.NewSalt()
	if err != nil {
		return nil, "", fmt.Errorf("profile.CreateProfile: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "salt.bin"), salt, 0o600); err != nil {
		return nil, "", fmt.Errorf("profile.CreateProfile: %w", err)
	}

	key := cryptoutil.DeriveKey(password, salt)
	dbPath := filepath.Join(dir, "database", "coheara.db")
	db, err := repository.OpenEncrypted(dbPath, key)
	if err != nil {
		return nil, "", err
	}
	if err := db.Close(); err != nil {
		return nil, "", err
	}

	profiles, err := ListProfiles(root)
	if err != nil {
		return nil, "", err
	}
	profiles = append(profiles, Profile{ID: id, Name: name, CreatedAt: time.Now(), ManagedBy: opts.ManagedBy})
	if err := saveRegistry(root, profiles); err != nil {
		return nil, "", err
	}

	phrase := recoveryPhrase(key)
	sess := &Session{ProfileID: id, DBPath: dbPath, key: key}
	return sess, phrase, nil
}

// OpenProfile rederives the key from password and salt.bin, then attempts
// to open the encrypted DB as a proof-of-key: a wrong password surfaces as
// cherr.ErrDecryption rather than a distinguishable "wrong password" error.
func OpenProfile(ctx context.Context, root string, id uuid.UUID, password string) (*Session, error) {
	dir := dirFor(root, id)
	salt, err := os.ReadFile(filepath.Join(dir, "salt.bin"))
	if err != nil {
		return nil, fmt.Errorf("profile.OpenProfile: %w", err)
	}
	key := cryptoutil.DeriveKey(password, salt)
	dbPath := filepath.Join(dir, "database", "coheara.db")

	db, err := repository.OpenEncrypted(dbPath, key)
	if err != nil {
		return nil, err
	}
	sess := &Session{ProfileID: id, DBPath: dbPath, key: key, db: db}
	return sess, nil
}

// recoveryPhrase renders the derived key as eight hyphen-separated groups of
// eight hex digits, shown once at profile creation so a lost password can be recovered
// by re-deriving nothing — the phrase IS the key, not a mnemonic seed.
func recoveryPhrase(key [cryptoutil.KeySize]byte) string {
	h := hex.EncodeToString(key[:])
	var groups []string
	for i := 0; i < len(h); i += 8 {
		end := i + 8
		if end > len(h) {
			end = len(h)
		}
		groups = append(groups, h[i:end])
	}
	return strings.Join(groups, "-")
}

// RecoveryKey parses a phrase produced by recoveryPhrase back into a key.
func RecoveryKey(phrase string) ([cryptoutil.KeySize]byte, error) {
	var key [cryptoutil.KeySize]byte
	h := strings.ReplaceAll(phrase, "-", "")
	raw, err := hex.DecodeString(h)
	if err != nil || len(raw) != cryptoutil.KeySize {
		return key, cherr.New(cherr.KindValidation, "profile.RecoveryKey: malformed recovery phrase", "check the phrase and try again", false)
	}
	copy(key[:], raw)
	return key, nil
}
