package trust

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

func f64(v float64) *float64 { return &v }

func seedDoseReferences(t *testing.T, prefs *repository.PrefsRepo) {
	t.Helper()
	refs := []repository.DoseReference{
		{GenericName: "metformin", TypicalMinMg: f64(500), TypicalMaxMg: f64(2550), AbsoluteMaxMg: f64(1000), Unit: "mg", Source: "bundled"},
		{GenericName: "lisinopril", TypicalMinMg: f64(2.5), TypicalMaxMg: f64(40), AbsoluteMaxMg: f64(40), Unit: "mg", Source: "bundled"},
	}
	if err := prefs.ReplaceDoseReferences(context.Background(), refs); err != nil {
		t.Fatalf("ReplaceDoseReferences: %v", err)
	}
}

func TestCheckDosePlausibilityPlausible(t *testing.T) {
	db := newTestDB(t)
	prefs := repository.NewPrefsRepo(db)
	seedDoseReferences(t, prefs)

	check, err := CheckDosePlausibility(context.Background(), prefs, nil, "metformin", 500, "mg")
	if err != nil {
		t.Fatalf("CheckDosePlausibility: %v", err)
	}
	if check.Plausibility != PlausibilityPlausible {
		t.Fatalf("expected plausible, got %v", check.Plausibility)
	}
}

func TestCheckDosePlausibilityHigh(t *testing.T) {
	db := newTestDB(t)
	prefs := repository.NewPrefsRepo(db)
	seedDoseReferences(t, prefs)

	check, err := CheckDosePlausibility(context.Background(), prefs, nil, "metformin", 3000, "mg")
	if err != nil {
		t.Fatalf("CheckDosePlausibility: %v", err)
	}
	if check.Plausibility != PlausibilityHighDose {
		t.Fatalf("expected high_dose, got %v", check.Plausibility)
	}
}

func TestCheckDosePlausibilityVeryHigh(t *testing.T) {
	db := newTestDB(t)
	prefs := repository.NewPrefsRepo(db)
	seedDoseReferences(t, prefs)

	check, err := CheckDosePlausibility(context.Background(), prefs, nil, "metformin", 50000, "mg")
	if err != nil {
		t.Fatalf("CheckDosePlausibility: %v", err)
	}
	if check.Plausibility != PlausibilityVeryHighDose {
		t.Fatalf("expected very_high_dose, got %v", check.Plausibility)
	}
}

func TestCheckDosePlausibilityLow(t *testing.T) {
	db := newTestDB(t)
	prefs := repository.NewPrefsRepo(db)
	seedDoseReferences(t, prefs)

	check, err := CheckDosePlausibility(context.Background(), prefs, nil, "metformin", 10, "mg")
	if err != nil {
		t.Fatalf("CheckDosePlausibility: %v", err)
	}
	if check.Plausibility != PlausibilityLowDose {
		t.Fatalf("expected low_dose, got %v", check.Plausibility)
	}
}

func TestCheckDosePlausibilityUnknownMedication(t *testing.T) {
	db := newTestDB(t)
	prefs := repository.NewPrefsRepo(db)
	seedDoseReferences(t, prefs)

	check, err := CheckDosePlausibility(context.Background(), prefs, nil, "xyzabc123", 100, "mg")
	if err != nil {
		t.Fatalf("CheckDosePlausibility: %v", err)
	}
	if check.Plausibility != PlausibilityUnknownMedication {
		t.Fatalf("expected unknown_medication, got %v", check.Plausibility)
	}
}

func TestCheckDosePlausibilityResolvesAlias(t *testing.T) {
	db := newTestDB(t)
	prefs := repository.NewPrefsRepo(db)
	seedDoseReferences(t, prefs)

	resolve := func(name string) string {
		if name == "Glucophage" {
			return "metformin"
		}
		return name
	}
	check, err := CheckDosePlausibility(context.Background(), prefs, resolve, "Glucophage", 500, "mg")
	if err != nil {
		t.Fatalf("CheckDosePlausibility: %v", err)
	}
	if check.Plausibility != PlausibilityPlausible {
		t.Fatalf("expected plausible after alias resolution, got %v", check.Plausibility)
	}
}

func TestCheckDosePlausibilityGramUnit(t *testing.T) {
	db := newTestDB(t)
	prefs := repository.NewPrefsRepo(db)
	seedDoseReferences(t, prefs)

	check, err := CheckDosePlausibility(context.Background(), prefs, nil, "metformin", 0.5, "g")
	if err != nil {
		t.Fatalf("CheckDosePlausibility: %v", err)
	}
	if check.Plausibility != PlausibilityPlausible {
		t.Fatalf("expected 0.5g to resolve to 500mg and be plausible, got %v", check.Plausibility)
	}
}

func TestConvertToMg(t *testing.T) {
	cases := []struct {
		value float64
		unit  string
		want  float64
	}{
		{1, "g", 1000},
		{1000, "mcg", 1},
		{500, "mg", 500},
		{500, "ug", 0.5},
		{42, "tablets", 42},
	}
	for _, c := range cases {
		got := ConvertToMg(c.value, c.unit)
		if got != c.want {
			t.Errorf("ConvertToMg(%v, %q) = %v, want %v", c.value, c.unit, got, c.want)
		}
	}
}
