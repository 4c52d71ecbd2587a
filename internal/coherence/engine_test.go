package coherence

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ktiyab/coheara/internal/repository"
)

func newTestDB(t *testing.T) *repository.DB {
	t.Helper()
	dir := t.TempDir()
	var key [32]byte
	for i := range key {
		key[i] = byte(i)
	}
	db, err := repository.OpenEncrypted(filepath.Join(dir, "corpus.db"), key)
	if err != nil {
		t.Fatalf("OpenEncrypted: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestScanPersistsNewFindingsOnce(t *testing.T) {
	db := newTestDB(t)
	alerts := repository.NewAlertRepo(db)
	engine := NewEngine(alerts, "en")

	snap := RepositorySnapshot{
		LabResults: []repository.LabResult{{ID: "l1", TestName: "potassium", AbnormalFlag: "critical_high"}},
	}

	inserted, err := engine.Scan(context.Background(), snap, CoherenceReferenceData{})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(inserted) != 1 {
		t.Fatalf("expected 1 newly inserted alert, got %d", len(inserted))
	}

	inserted2, err := engine.Scan(context.Background(), snap, CoherenceReferenceData{})
	if err != nil {
		t.Fatalf("Scan (second pass): %v", err)
	}
	if len(inserted2) != 0 {
		t.Fatalf("expected the second scan over an unchanged snapshot to insert nothing, got %d", len(inserted2))
	}

	active, err := alerts.ListActive(context.Background())
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("expected exactly 1 active alert after two scans, got %d", len(active))
	}
}

func TestScanDoesNotResurrectDismissedAlert(t *testing.T) {
	db := newTestDB(t)
	alerts := repository.NewAlertRepo(db)
	engine := NewEngine(alerts, "en")

	snap := RepositorySnapshot{
		LabResults: []repository.LabResult{{ID: "l1", TestName: "potassium", AbnormalFlag: "critical_high"}},
	}

	inserted, err := engine.Scan(context.Background(), snap, CoherenceReferenceData{})
	if err != nil || len(inserted) != 1 {
		t.Fatalf("expected initial scan to insert 1 alert, got %d, err %v", len(inserted), err)
	}

	alertID := inserted[0].ID
	if err := engine.RequestDismissal(context.Background(), alertID); err != nil {
		t.Fatalf("RequestDismissal: %v", err)
	}
	if err := engine.ConfirmDismissal(context.Background(), alertID, "confirmed by my doctor, result repeated normal"); err != nil {
		t.Fatalf("ConfirmDismissal: %v", err)
	}

	inserted2, err := engine.Scan(context.Background(), snap, CoherenceReferenceData{})
	if err != nil {
		t.Fatalf("Scan after dismissal: %v", err)
	}
	if len(inserted2) != 0 {
		t.Fatalf("expected a dismissed alert not to be resurrected, got %+v", inserted2)
	}

	active, err := alerts.ListActive(context.Background())
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("expected 0 active alerts after dismissal, got %d", len(active))
	}
}

func TestScanSkipsFindingsAlreadyInDismissedKeys(t *testing.T) {
	db := newTestDB(t)
	alerts := repository.NewAlertRepo(db)
	engine := NewEngine(alerts, "en")

	snap := RepositorySnapshot{
		LabResults:         []repository.LabResult{{ID: "l1", TestName: "potassium", AbnormalFlag: "critical_high"}},
		DismissedAlertKeys: map[string]bool{naturalKey("critical", "l1"): true},
	}

	inserted, err := engine.Scan(context.Background(), snap, CoherenceReferenceData{})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(inserted) != 0 {
		t.Fatalf("expected the in-process dismissed-key skip to prevent insertion, got %+v", inserted)
	}
}

