// Package cryptoutil provides the envelope-encryption and key-derivation
// primitives every encrypted-at-rest surface in Coheara builds on: profile
// databases, originals, markdown sidecars, CA private keys, and backup
// archives all go through Encrypt/Decrypt with a profile's derived key.
package cryptoutil

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/argon2"

	"github.com/ktiyab/coheara/internal/cherr"
)

const (
	KeySize   = 32
	SaltSize  = 16
	nonceSize = 12

	argonTime    = 3
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// DeriveKey runs Argon2id over password+salt, producing a 32-byte key.
// The salt is stored unencrypted alongside the profile; the password is
// never stored.
func DeriveKey(password string, salt []byte) [KeySize]byte {
	out := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, KeySize)
	var key [KeySize]byte
	copy(key[:], out)
	return key
}

// NewSalt returns SaltSize fresh random bytes suitable for DeriveKey.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("cryptoutil.NewSalt: %w", err)
	}
	return salt, nil
}

// Encrypt seals plaintext under key, producing nonce||ciphertext||tag.
func Encrypt(key [KeySize]byte, plaintext []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, fmt.Errorf("cryptoutil.Encrypt: %w", err)
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("cryptoutil.Encrypt: %w", err)
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a nonce||ciphertext||tag blob produced by Encrypt. A wrong
// key and a tampered ciphertext are indistinguishable to the caller; both
// surface as cherr.ErrDecryption, per the spec's failure-mode contract.
func Decrypt(key [KeySize]byte, blob []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, fmt.Errorf("cryptoutil.Decrypt: %w", err)
	}
	if len(blob) < nonceSize {
		return nil, cherr.Wrap(cherr.KindCrypto, "ciphertext truncated", "the file is corrupted or incomplete", false, cherr.ErrDecryption)
	}
	nonce, ciphertext := blob[:nonceSize], blob[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, cherr.Wrap(cherr.KindCrypto, "decryption failed", "check the password, or the profile may be locked", false, cherr.ErrDecryption)
	}
	return plaintext, nil
}

func newGCM(key [KeySize]byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Zero overwrites a key in place once its last reference is dropped.
func Zero(key *[KeySize]byte) {
	for i := range key {
		key[i] = 0
	}
}
