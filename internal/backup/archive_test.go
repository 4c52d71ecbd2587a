package backup

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ktiyab/coheara/internal/repository"
)

func newTestDB(t *testing.T) *repository.DB {
	t.Helper()
	var key [32]byte
	for i := range key {
		key[i] = byte(i)
	}
	db, err := repository.OpenEncrypted(filepath.Join(t.TempDir(), "test.db"), key)
	if err != nil {
		t.Fatalf("OpenEncrypted: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedProfileDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, sub := range []string{"database", "originals", "markdown"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o700); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "database", "coheara.db"), []byte("sqlite-bytes"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "originals", "doc1.enc"), []byte("original-bytes"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "markdown", "doc1.enc"), []byte("markdown-bytes"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "salt.bin"), []byte("0123456789abcdef"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return dir
}

func TestCreateAndPreviewBackup(t *testing.T) {
	db := newTestDB(t)
	documents := repository.NewDocumentRepo(db)
	ctx := context.Background()
	now := time.Now()
	if err := documents.Create(ctx, &repository.Document{
		ID: "doc-1", DocType: "lab_result", Title: "CBC", DocumentDate: &now,
		IngestionDate: now, SourceFile: "cbc.pdf", PipelineStatus: "complete",
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	profileDir := seedProfileDir(t)
	archivePath := filepath.Join(t.TempDir(), "backup.coheara")

	req := CreateRequest{ProfileDir: profileDir, ProfileName: "Test Profile", ArchivePath: archivePath, Password: "hunter2"}
	if err := CreateBackup(ctx, documents, req); err != nil {
		t.Fatalf("CreateBackup: %v", err)
	}

	preview, err := PreviewBackup(archivePath)
	if err != nil {
		t.Fatalf("PreviewBackup: %v", err)
	}
	if preview.Metadata.ProfileName != "Test Profile" {
		t.Errorf("expected profile name to round-trip, got %q", preview.Metadata.ProfileName)
	}
	if preview.Metadata.DocumentCount != 1 {
		t.Errorf("expected document count 1, got %d", preview.Metadata.DocumentCount)
	}
	if !preview.Metadata.Encrypted {
		t.Error("expected metadata to report the archive as encrypted")
	}
	if !preview.Compatible {
		t.Errorf("expected a freshly created archive to be compatible, got message %q", preview.CompatibilityMessage)
	}
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	db := newTestDB(t)
	documents := repository.NewDocumentRepo(db)
	ctx := context.Background()

	profileDir := seedProfileDir(t)
	archivePath := filepath.Join(t.TempDir(), "backup.coheara")
	req := CreateRequest{ProfileDir: profileDir, ProfileName: "Test Profile", ArchivePath: archivePath, Password: "hunter2"}
	if err := CreateBackup(ctx, documents, req); err != nil {
		t.Fatalf("CreateBackup: %v", err)
	}

	targetDir := t.TempDir()
	if err := RestoreBackup(archivePath, "hunter2", targetDir); err != nil {
		t.Fatalf("RestoreBackup: %v", err)
	}

	restored, err := os.ReadFile(filepath.Join(targetDir, "database", "coheara.db"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(restored) != "sqlite-bytes" {
		t.Errorf("expected restored db bytes to match original, got %q", restored)
	}
	salt, err := os.ReadFile(filepath.Join(targetDir, "salt.bin"))
	if err != nil {
		t.Fatalf("ReadFile salt: %v", err)
	}
	if string(salt) != "0123456789abcdef" {
		t.Errorf("expected restored salt to match original, got %q", salt)
	}
}

func TestBackupUnencryptedRoundTrip(t *testing.T) {
	db := newTestDB(t)
	documents := repository.NewDocumentRepo(db)
	ctx := context.Background()

	profileDir := seedProfileDir(t)
	archivePath := filepath.Join(t.TempDir(), "backup.coheara")
	req := CreateRequest{ProfileDir: profileDir, ProfileName: "Test Profile", ArchivePath: archivePath}
	if err := CreateBackup(ctx, documents, req); err != nil {
		t.Fatalf("CreateBackup: %v", err)
	}

	preview, err := PreviewBackup(archivePath)
	if err != nil {
		t.Fatalf("PreviewBackup: %v", err)
	}
	if preview.Metadata.Encrypted {
		t.Error("expected an unencrypted archive")
	}

	targetDir := t.TempDir()
	if err := RestoreBackup(archivePath, "", targetDir); err != nil {
		t.Fatalf("RestoreBackup: %v", err)
	}
	if _, err := os.Stat(filepath.Join(targetDir, "originals", "doc1.enc")); err != nil {
		t.Fatalf("expected originals/doc1.enc to be restored: %v", err)
	}
}

func TestBackupWrongPassword(t *testing.T) {
	db := newTestDB(t)
	documents := repository.NewDocumentRepo(db)
	ctx := context.Background()

	profileDir := seedProfileDir(t)
	archivePath := filepath.Join(t.TempDir(), "backup.coheara")
	req := CreateRequest{ProfileDir: profileDir, ProfileName: "Test Profile", ArchivePath: archivePath, Password: "hunter2"}
	if err := CreateBackup(ctx, documents, req); err != nil {
		t.Fatalf("CreateBackup: %v", err)
	}

	targetDir := t.TempDir()
	if err := RestoreBackup(archivePath, "wrong password", targetDir); err == nil {
		t.Fatal("expected an error for the wrong password")
	}
}

func TestBackupCorruptedArchive(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "corrupt.coheara")
	if err := os.WriteFile(archivePath, []byte(string(magic[:])+"\x04\x00\x00\x00trun"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := PreviewBackup(archivePath); err == nil {
		t.Fatal("expected an error for a truncated archive")
	}
}

func TestBackupInvalidMagic(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "invalid.coheara")
	if err := os.WriteFile(archivePath, []byte("NOTACOHEARAFILE"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err := PreviewBackup(archivePath)
	if err == nil {
		t.Fatal("expected an error for an invalid magic header")
	}
	if !strings.Contains(strings.ToLower(err.Error()), "not a valid") {
		t.Errorf("expected error to mention the archive is not valid, got %q", err.Error())
	}
}
