package coherence

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ktiyab/coheara/internal/coherence/messages"
	"github.com/ktiyab/coheara/internal/repository"
)

// Finding is one detector's output, not yet persisted. NaturalKey is the
// dedup identity an AlertRepo.Upsert call keys on.
type Finding struct {
	AlertType      string
	Severity       string // "info", "warning", "critical"
	EntityIDs      []string
	NaturalKey     string
	PatientMessage string
}

func naturalKey(alertType string, ids ...string) string {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	return alertType + ":" + strings.Join(sorted, ",")
}

// detectConflict flags two active medications with the same generic name
// prescribed by different professionals at different doses or frequencies —
// the patient may be on two regimens for the same drug without either
// prescriber knowing about the other.
func detectConflict(snap RepositorySnapshot, ref CoherenceReferenceData, lang string) []Finding {
	type group struct {
		meds []repository.Medication
	}
	byGeneric := map[string]*group{}
	for _, m := range snap.Medications {
		if m.Status != "active" {
			continue
		}
		key := ref.genericFor(m.GenericName)
		g, ok := byGeneric[key]
		if !ok {
			g = &group{}
			byGeneric[key] = g
		}
		g.meds = append(g.meds, m)
	}

	professionals := snap.professionalByID()

	var findings []Finding
	for generic, g := range byGeneric {
		if len(g.meds) < 2 {
			continue
		}
		for i := 0; i < len(g.meds); i++ {
			for j := i + 1; j < len(g.meds); j++ {
				a, b := g.meds[i], g.meds[j]
				if differentPrescriber(a.PrescriberID, b.PrescriberID) && differentRegimen(a, b) {
					drugName := displayName(generic, a.BrandName, b.BrandName)
					if name, ok := prescriberDisplay(a.PrescriberID, professionals); ok {
						drugName = fmt.Sprintf("%s (prescribed by %s)", drugName, name)
					}
					f := Finding{
						AlertType:  "conflict",
						Severity:   "warning",
						EntityIDs:  []string{a.ID, b.ID},
						NaturalKey: naturalKey("conflict", a.ID, b.ID),
						PatientMessage: messages.Render("conflict", lang, map[string]string{
							"drug": drugName,
						}),
					}
					findings = append(findings, f)
				}
			}
		}
	}
	return findings
}

func prescriberDisplay(id *string, professionals map[string]repository.Professional) (string, bool) {
	if id == nil {
		return "", false
	}
	p, ok := professionals[*id]
	if !ok {
		return "", false
	}
	return p.Name, true
}

func differentPrescriber(a, b *string) bool {
	av, bv := "", ""
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	return av != bv
}

func differentRegimen(a, b repository.Medication) bool {
	return !strPtrEqual(a.Dose, b.Dose) || !strPtrEqual(a.Frequency, b.Frequency)
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func displayName(generic string, brands ...*string) string {
	for _, b := range brands {
		if b != nil && *b != "" {
			return *b
		}
	}
	return generic
}

// detectDuplicate flags two distinct active medications that alias to the
// same generic name under different brand names — likely the same drug
// entered twice from two documents.
func detectDuplicate(snap RepositorySnapshot, ref CoherenceReferenceData, lang string) []Finding {
	byGeneric := map[string][]repository.Medication{}
	for _, m := range snap.Medications {
		if m.Status != "active" {
			continue
		}
		key := ref.genericFor(m.GenericName)
		byGeneric[key] = append(byGeneric[key], m)
	}

	var findings []Finding
	for _, meds := range byGeneric {
		for i := 0; i < len(meds); i++ {
			for j := i + 1; j < len(meds); j++ {
				a, b := meds[i], meds[j]
				if strings.EqualFold(a.GenericName, b.GenericName) {
					continue // same name entered twice isn't aliasing, it's the conflict detector's job
				}
				f := Finding{
					AlertType:  "duplicate",
					Severity:   "info",
					EntityIDs:  []string{a.ID, b.ID},
					NaturalKey: naturalKey("duplicate", a.ID, b.ID),
					PatientMessage: messages.Render("duplicate", lang, map[string]string{
						"drug1": displayName(a.GenericName, a.BrandName),
						"drug2": displayName(b.GenericName, b.BrandName),
					}),
				}
				findings = append(findings, f)
			}
		}
	}
	return findings
}

// detectGap flags each active diagnosis when no medication at all in the
// record is active — the schema has no direct diagnosis-medication link,
// so this is a record-level heuristic rather than a per-diagnosis one. An
// active medication with no diagnosis is not flagged.
func detectGap(snap RepositorySnapshot, lang string) []Finding {
	activeMedCount := 0
	for _, m := range snap.Medications {
		if m.Status == "active" {
			activeMedCount++
		}
	}

	var findings []Finding
	if activeMedCount == 0 {
		for _, d := range snap.Diagnoses {
			if d.Status != "active" {
				continue
			}
			findings = append(findings, Finding{
				AlertType:  "gap",
				Severity:   "info",
				EntityIDs:  []string{d.ID},
				NaturalKey: naturalKey("gap", d.ID),
				PatientMessage: messages.Render("gap", lang, map[string]string{
					"diagnosis": d.Name,
				}),
			})
		}
	}
	return findings
}

// detectDrift flags a recorded dose change with no documented reason.
func detectDrift(snap RepositorySnapshot, lang string) []Finding {
	byID := map[string]repository.Medication{}
	for _, m := range snap.Medications {
		byID[m.ID] = m
	}

	var findings []Finding
	for _, dc := range snap.DoseChanges {
		if dc.Reason != nil && strings.TrimSpace(*dc.Reason) != "" {
			continue
		}
		med := byID[dc.MedicationID]
		findings = append(findings, Finding{
			AlertType:  "drift",
			Severity:   "warning",
			EntityIDs:  []string{dc.ID},
			NaturalKey: naturalKey("drift", dc.ID),
			PatientMessage: messages.Render("drift", lang, map[string]string{
				"drug": displayName(med.GenericName, med.BrandName),
			}),
		})
	}
	return findings
}

// temporalWindowDays is how close a symptom onset and a medication event have
// to be to be flagged as possibly related.
const temporalWindowDays = 14

// detectTemporal flags a symptom whose onset falls within temporalWindowDays
// of a medication's start date or of a dose change to that medication.
func detectTemporal(snap RepositorySnapshot, lang string) []Finding {
	byID := map[string]repository.Medication{}
	for _, m := range snap.Medications {
		byID[m.ID] = m
	}

	type event struct {
		medID string
		at    time.Time
	}
	var events []event
	for _, m := range snap.Medications {
		if m.StartDate != nil {
			events = append(events, event{medID: m.ID, at: *m.StartDate})
		}
	}
	for _, dc := range snap.DoseChanges {
		events = append(events, event{medID: dc.MedicationID, at: dc.ChangedAt})
	}

	var findings []Finding
	for _, s := range snap.Symptoms {
		if s.OnsetDate == nil {
			continue
		}
		for _, e := range events {
			days := s.OnsetDate.Sub(e.at).Hours() / 24
			if days < 0 || days > temporalWindowDays {
				continue
			}
			med := byID[e.medID]
			findings = append(findings, Finding{
				AlertType:  "temporal",
				Severity:   "info",
				EntityIDs:  []string{s.ID, e.medID},
				NaturalKey: naturalKey("temporal", s.ID, e.medID),
				PatientMessage: messages.Render("temporal", lang, map[string]string{
					"symptom": s.Description,
					"drug":    displayName(med.GenericName, med.BrandName),
				}),
			})
		}
	}
	return findings
}

// detectAllergy flags an active medication whose cross-reactivity family
// matches a recorded allergen.
func detectAllergy(snap RepositorySnapshot, ref CoherenceReferenceData, lang string) []Finding {
	var findings []Finding
	for _, m := range snap.Medications {
		if m.Status != "active" {
			continue
		}
		family := ref.familyFor(m.GenericName)
		if family == "" {
			continue
		}
		for _, a := range snap.Allergies {
			if strings.Contains(strings.ToLower(a.Allergen), family) {
				findings = append(findings, Finding{
					AlertType:  "allergy",
					Severity:   "critical",
					EntityIDs:  []string{m.ID, a.ID},
					NaturalKey: naturalKey("allergy", m.ID, a.ID),
					PatientMessage: messages.Render("allergy", lang, map[string]string{
						"drug":     displayName(m.GenericName, m.BrandName),
						"allergen": a.Allergen,
					}),
				})
			}
		}
	}
	return findings
}

var doseValueRe = regexp.MustCompile(`(\d+(?:\.\d+)?)`)

func parseDoseMg(dose string) (float64, bool) {
	m := doseValueRe.FindString(dose)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// detectDose flags an active medication's recorded dose falling outside
// the bundled typical or absolute-maximum range for its generic name.
func detectDose(snap RepositorySnapshot, ref CoherenceReferenceData, lang string) []Finding {
	var findings []Finding
	for _, m := range snap.Medications {
		if m.Status != "active" || m.Dose == nil {
			continue
		}
		generic := ref.genericFor(m.GenericName)
		doseRef, ok := ref.doseReference(generic)
		if !ok {
			continue
		}
		val, ok := parseDoseMg(*m.Dose)
		if !ok {
			continue
		}
		outOfRange := (doseRef.TypicalMaxMg != nil && val > *doseRef.TypicalMaxMg) ||
			(doseRef.AbsoluteMaxMg != nil && val > *doseRef.AbsoluteMaxMg) ||
			(doseRef.TypicalMinMg != nil && val < *doseRef.TypicalMinMg)
		if !outOfRange {
			continue
		}
		severity := "warning"
		if doseRef.AbsoluteMaxMg != nil && val > *doseRef.AbsoluteMaxMg {
			severity = "critical"
		}
		findings = append(findings, Finding{
			AlertType:  "dose",
			Severity:   severity,
			EntityIDs:  []string{m.ID},
			NaturalKey: naturalKey("dose", m.ID),
			PatientMessage: messages.Render("dose", lang, map[string]string{
				"drug": displayName(m.GenericName, m.BrandName),
			}),
		})
	}
	return findings
}

// detectCritical flags a lab result flagged critical-high or critical-low.
func detectCritical(snap RepositorySnapshot, lang string) []Finding {
	var findings []Finding
	for _, lr := range snap.LabResults {
		flag := strings.ToLower(lr.AbnormalFlag)
		if flag != "critical_high" && flag != "critical_low" {
			continue
		}
		findings = append(findings, Finding{
			AlertType:  "critical",
			Severity:   "critical",
			EntityIDs:  []string{lr.ID},
			NaturalKey: naturalKey("critical", lr.ID),
			PatientMessage: messages.Render("critical", lang, map[string]string{
				"test": lr.TestName,
			}),
		})
	}
	return findings
}

