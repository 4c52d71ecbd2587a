package chatextract

import (
	"path/filepath"
	"testing"

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

func newTestRepos(t *testing.T) (Repos, *repository.ExtractionRepo) {
	t.Helper()
	db := newTestDB(t)
	repos := Repos{
		Documents:     repository.NewDocumentRepo(db),
		Clinical:      repository.NewClinicalRepo(db),
		Medications:   repository.NewMedicationRepo(db),
		Professionals: repository.NewProfessionalRepo(db),
	}
	return repos, repository.NewExtractionRepo(db)
}
