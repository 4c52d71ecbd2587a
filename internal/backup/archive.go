// Package backup creates and restores portable archives of a profile
// directory: the encrypted corpus database, encrypted originals, encrypted
// markdown sidecars, and the salt that keys them all. Grounded on spec.md
// §4.14 and §6 directly — the original's backup.rs submodule file is not
// present in the retrieval pack, only exercised through trust/mod.rs's test
// block, which this package's tests reproduce.
package backup

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ktiyab/coheara/internal/cherr"
	"github.com/ktiyab/coheara/internal/cryptoutil"
	"github.com/ktiyab/coheara/internal/repository"
)

// magic identifies a Coheara backup archive; the trailing byte is a format
// version so a future incompatible layout can be rejected before parsing.
var magic = [8]byte{'C', 'O', 'H', 'E', 'A', 'R', 'A', 0x01}

const currentVersion = 1

// Metadata is stored as plaintext JSON immediately after the magic, so
// preview_backup can describe an archive without the password that unlocks
// its body.
type Metadata struct {
	ProfileName    string    `json:"profile_name"`
	Version        int       `json:"version"`
	CreatedAt      time.Time `json:"created_at"`
	DocumentCount  int       `json:"document_count"`
	Encrypted      bool      `json:"encrypted"`
	EncryptionSalt []byte    `json:"encryption_salt,omitempty"`
}

// Preview is what preview_backup returns: the metadata plus a compatibility
// verdict a caller can show before committing to a restore.
type Preview struct {
	Metadata             Metadata
	Compatible           bool
	CompatibilityMessage string
}

// CreateRequest describes a single backup operation.
type CreateRequest struct {
	ProfileDir  string // the profile's directory (originals/, markdown/, database/, salt.bin)
	ProfileName string
	ArchivePath string
	Password    string // empty means the archive body is stored unencrypted
}

// entry is one file inside the archive body: path relative to the archive
// root, followed by its raw content. Both are length-prefixed so a reader
// never needs to guess boundaries.
type entry struct {
	path    string
	content []byte
}

// CreateBackup enumerates a profile directory's persisted files, builds the
// length-delimited body, optionally encrypts it under a password-derived
// key, and writes magic || metadata-length || metadata || body to
// req.ArchivePath.
func CreateBackup(ctx context.Context, documents *repository.DocumentRepo, req CreateRequest) error {
	docs, err := documents.List(ctx)
	if err != nil {
		return fmt.Errorf("backup.CreateBackup: %w", err)
	}

	entries, err := collectEntries(req.ProfileDir)
	if err != nil {
		return fmt.Errorf("backup.CreateBackup: %w", err)
	}
	body := encodeEntries(entries)

	meta := Metadata{
		ProfileName:   req.ProfileName,
		Version:       currentVersion,
		CreatedAt:     time.Now().UTC(),
		DocumentCount: len(docs),
	}

	if req.Password != "" {
		salt, err := cryptoutil.NewSalt()
		if err != nil {
			return fmt.Errorf("backup.CreateBackup: %w", err)
		}
		key := cryptoutil.DeriveKey(req.Password, salt)
		defer cryptoutil.Zero(&key)
		sealed, err := cryptoutil.Encrypt(key, body)
		if err != nil {
			return fmt.Errorf("backup.CreateBackup: %w", err)
		}
		meta.Encrypted = true
		meta.EncryptionSalt = salt
		body = sealed
	}

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("backup.CreateBackup: %w", err)
	}

	var out bytes.Buffer
	out.Write(magic[:])
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(metaJSON)))
	out.Write(lenBuf[:])
	out.Write(metaJSON)
	out.Write(body)

	if err := os.WriteFile(req.ArchivePath, out.Bytes(), 0o600); err != nil {
		return fmt.Errorf("backup.CreateBackup: %w", err)
	}
	return nil
}

// PreviewBackup reads only the magic and metadata from archivePath, so a
// caller can show the user what a backup contains before supplying a
// password to restore it.
func PreviewBackup(archivePath string) (Preview, error) {
	meta, _, err := readMetadata(archivePath)
	if err != nil {
		return Preview{}, err
	}
	preview := Preview{Metadata: meta, Compatible: true}
	if meta.Version > currentVersion {
		preview.Compatible = false
		preview.CompatibilityMessage = fmt.Sprintf("archive was created by a newer version (v%d); this build supports up to v%d", meta.Version, currentVersion)
	}
	return preview, nil
}

// RestoreBackup verifies the archive, decrypts its body if needed, and
// writes every contained file into targetDir, recreating the profile
// directory layout verbatim. A wrong password and a corrupted body are
// indistinguishable, surfacing as the single cherr.ErrWrongPassword per the
// archive's authenticated-encryption contract.
func RestoreBackup(archivePath, password, targetDir string) error {
	meta, body, err := readMetadata(archivePath)
	if err != nil {
		return err
	}

	if meta.Encrypted {
		if len(meta.EncryptionSalt) == 0 {
			return cherr.New(cherr.KindFormat, "backup.RestoreBackup: encrypted archive is missing its salt", "the archive is corrupted", false)
		}
		key := cryptoutil.DeriveKey(password, meta.EncryptionSalt)
		defer cryptoutil.Zero(&key)
		plain, err := cryptoutil.Decrypt(key, body)
		if err != nil {
			return cherr.Wrap(cherr.KindCrypto, "backup.RestoreBackup: decryption failed", "", false, cherr.ErrWrongPassword)
		}
		body = plain
	}

	entries, err := decodeEntries(body)
	if err != nil {
		return fmt.Errorf("backup.RestoreBackup: %w", err)
	}
	for _, e := range entries {
		dest := filepath.Join(targetDir, filepath.FromSlash(e.path))
		if err := os.MkdirAll(filepath.Dir(dest), 0o700); err != nil {
			return fmt.Errorf("backup.RestoreBackup: %w", err)
		}
		if err := os.WriteFile(dest, e.content, 0o600); err != nil {
			return fmt.Errorf("backup.RestoreBackup: %w", err)
		}
	}
	return nil
}

func readMetadata(archivePath string) (Metadata, []byte, error) {
	data, err := os.ReadFile(archivePath)
	if err != nil {
		return Metadata{}, nil, fmt.Errorf("backup.readMetadata: %w", err)
	}
	if len(data) < len(magic)+4 || !bytes.Equal(data[:len(magic)], magic[:]) {
		return Metadata{}, nil, cherr.New(cherr.KindFormat, "backup.readMetadata: not a valid Coheara backup archive", "check the file is a .coheara-backup file", false)
	}
	rest := data[len(magic):]
	metaLen := binary.LittleEndian.Uint32(rest[:4])
	rest = rest[4:]
	if uint32(len(rest)) < metaLen {
		return Metadata{}, nil, cherr.New(cherr.KindFormat, "backup.readMetadata: archive is truncated", "the file is corrupted or incomplete", false)
	}
	var meta Metadata
	if err := json.Unmarshal(rest[:metaLen], &meta); err != nil {
		return Metadata{}, nil, cherr.New(cherr.KindFormat, "backup.readMetadata: malformed metadata", "the file is corrupted or incomplete", false)
	}
	return meta, rest[metaLen:], nil
}

// collectEntries walks a profile directory and returns every file worth
// preserving, paths relative to the profile root and using '/' separators
// so archives are portable across platforms.
func collectEntries(profileDir string) ([]entry, error) {
	var entries []entry
	wanted := []string{
		filepath.Join("database"),
		filepath.Join("originals"),
		filepath.Join("markdown"),
	}
	for _, sub := range wanted {
		dir := filepath.Join(profileDir, sub)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			continue
		}
		err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return nil
			}
			content, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(profileDir, path)
			if err != nil {
				return err
			}
			entries = append(entries, entry{path: filepath.ToSlash(rel), content: content})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	saltPath := filepath.Join(profileDir, "salt.bin")
	if content, err := os.ReadFile(saltPath); err == nil {
		entries = append(entries, entry{path: "salt.bin", content: content})
	} else if !os.IsNotExist(err) {
		return nil, err
	}
	return entries, nil
}

func encodeEntries(entries []entry) []byte {
	var buf bytes.Buffer
	for _, e := range entries {
		writeLenPrefixed(&buf, []byte(e.path))
		writeLenPrefixed(&buf, e.content)
	}
	return buf.Bytes()
}

func decodeEntries(body []byte) ([]entry, error) {
	r := bytes.NewReader(body)
	var entries []entry
	for r.Len() > 0 {
		path, err := readLenPrefixed(r)
		if err != nil {
			return nil, err
		}
		content, err := readLenPrefixed(r)
		if err != nil {
			return nil, err
		}
		if strings.Contains(string(path), "..") {
			return nil, cherr.New(cherr.KindFormat, "backup.decodeEntries: archive contains an unsafe path", "", false)
		}
		entries = append(entries, entry{path: string(path), content: content})
	}
	return entries, nil
}

func writeLenPrefixed(buf *bytes.Buffer, data []byte) {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(data)))
	buf.Write(lenBuf[:])
	buf.Write(data)
}

func readLenPrefixed(r *bytes.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, cherr.New(cherr.KindFormat, "backup.readLenPrefixed: archive is truncated", "the file is corrupted or incomplete", false)
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, cherr.New(cherr.KindFormat, "backup.readLenPrefixed: archive is truncated", "the file is corrupted or incomplete", false)
	}
	return data, nil
}
