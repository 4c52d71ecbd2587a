// Package staging writes ingested document bytes to the profile's
// encrypted staging area. Grounded on spec.md §4.5: plaintext never
// touches disk in the profile area except inside the markdown sidecar,
// which is also encrypted.
package staging

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ktiyab/coheara/internal/cryptoutil"
)

// Area is a profile's staging directory, keyed by the profile's derived key.
type Area struct {
	Dir string
	key [cryptoutil.KeySize]byte
}

func New(profileDir string, key [cryptoutil.KeySize]byte) *Area {
	return &Area{Dir: filepath.Join(profileDir, "staging"), key: key}
}

// Stage encrypts plaintext and writes it to staging/<docID>.enc.
func (a *Area) Stage(docID string, plaintext []byte) (string, error) {
	if err := os.MkdirAll(a.Dir, 0o700); err != nil {
		return "", fmt.Errorf("staging.Stage: %w", err)
	}
	sealed, err := cryptoutil.Encrypt(a.key, plaintext)
	if err != nil {
		return "", err
	}
	path := filepath.Join(a.Dir, docID+".enc")
	if err := os.WriteFile(path, sealed, 0o600); err != nil {
		return "", fmt.Errorf("staging.Stage: %w", err)
	}
	return path, nil
}

// Read decrypts a staged file in memory; the plaintext is never written
// back to disk by this package.
func (a *Area) Read(docID string) ([]byte, error) {
	path := filepath.Join(a.Dir, docID+".enc")
	sealed, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("staging.Read: %w", err)
	}
	return cryptoutil.Decrypt(a.key, sealed)
}

// Discard removes a staged file once the pipeline has consumed it.
func (a *Area) Discard(docID string) error {
	path := filepath.Join(a.Dir, docID+".enc")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("staging.Discard: %w", err)
	}
	return nil
}

// WriteOriginal persists an encrypted copy of the original document under
// originals/<docID>.enc — the permanent, not staging, location.
func WriteOriginal(profileDir, docID string, plaintext []byte, key [cryptoutil.KeySize]byte) (string, error) {
	dir := filepath.Join(profileDir, "originals")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("staging.WriteOriginal: %w", err)
	}
	sealed, err := cryptoutil.Encrypt(key, plaintext)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, docID+".enc")
	if err := os.WriteFile(path, sealed, 0o600); err != nil {
		return "", fmt.Errorf("staging.WriteOriginal: %w", err)
	}
	return path, nil
}

// WriteMarkdown persists an encrypted markdown sidecar under
// markdown/<docID>.md.enc.
func WriteMarkdown(profileDir, docID string, markdown []byte, key [cryptoutil.KeySize]byte) (string, error) {
	dir := filepath.Join(profileDir, "markdown")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("staging.WriteMarkdown: %w", err)
	}
	sealed, err := cryptoutil.Encrypt(key, markdown)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, docID+".md.enc")
	if err := os.WriteFile(path, sealed, 0o600); err != nil {
		return "", fmt.Errorf("staging.WriteMarkdown: %w", err)
	}
	return path, nil
}

// ReadMarkdown decrypts a previously written markdown sidecar.
func ReadMarkdown(profileDir, docID string, key [cryptoutil.KeySize]byte) ([]byte, error) {
	path := filepath.Join(profileDir, "markdown", docID+".md.enc")
	sealed, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("staging.ReadMarkdown: %w", err)
	}
	return cryptoutil.Decrypt(key, sealed)
}
