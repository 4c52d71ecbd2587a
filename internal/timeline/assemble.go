package timeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ktiyab/coheara/internal/repository"
)

// Assembler reads medications, dose changes, lab results, symptoms,
// procedures, appointments, documents, diagnoses, vital signs and coherence
// alerts and folds the rows into a unified, filterable, chronologically
// sorted timeline. Allergies and referrals are not read.
type Assembler struct {
	documents     *repository.DocumentRepo
	professionals *repository.ProfessionalRepo
	medications   *repository.MedicationRepo
	clinical      *repository.ClinicalRepo
	alerts        *repository.AlertRepo
}

func NewAssembler(documents *repository.DocumentRepo, professionals *repository.ProfessionalRepo, medications *repository.MedicationRepo, clinical *repository.ClinicalRepo, alerts *repository.AlertRepo) *Assembler {
	return &Assembler{documents: documents, professionals: professionals, medications: medications, clinical: clinical, alerts: alerts}
}

// Assemble reads the full corpus, applies filter, detects correlations, and
// returns the complete payload in one call.
func (a *Assembler) Assemble(ctx context.Context, filter Filter) (Data, error) {
	resolved, err := a.resolveSinceAppointment(ctx, filter)
	if err != nil {
		return Data{}, fmt.Errorf("timeline.Assemble: %w", err)
	}
	filter = resolved

	professionals, err := a.professionals.List(ctx)
	if err != nil {
		return Data{}, fmt.Errorf("timeline.Assemble: %w", err)
	}
	profByID := make(map[string]repository.Professional, len(professionals))
	for _, p := range professionals {
		profByID[p.ID] = p
	}

	var all []Event
	fetchers := []func(context.Context, map[string]repository.Professional) ([]Event, error){
		a.fetchMedicationEvents,
		a.fetchDoseChangeEvents,
		a.fetchLabEvents,
		a.fetchSymptomEvents,
		a.fetchProcedureEvents,
		a.fetchAppointmentEvents,
		a.fetchDocumentEvents,
		a.fetchDiagnosisEvents,
		a.fetchVitalSignEvents,
		a.fetchCoherenceAlertEvents,
	}
	for _, fetch := range fetchers {
		events, err := fetch(ctx, profByID)
		if err != nil {
			return Data{}, fmt.Errorf("timeline.Assemble: %w", err)
		}
		all = append(all, events...)
	}

	var filtered []Event
	for _, e := range all {
		if !filter.includesType(e.Type) || !filter.includesProfessional(e.ProfessionalID) || !filter.includesDate(e.Date) {
			continue
		}
		filtered = append(filtered, e)
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].Date.Before(filtered[j].Date) })

	correlations, err := a.detectAllCorrelations(ctx, filtered)
	if err != nil {
		return Data{}, fmt.Errorf("timeline.Assemble: %w", err)
	}

	return Data{
		Events:        filtered,
		Correlations:  correlations,
		DateRange:     dateRangeOf(filtered),
		EventCounts:   countEvents(filtered),
		Professionals: professionalsWithCounts(professionals, filtered),
	}, nil
}

func (a *Assembler) resolveSinceAppointment(ctx context.Context, filter Filter) (Filter, error) {
	if filter.SinceAppointmentID == nil {
		return filter, nil
	}
	appointments, err := a.clinical.ListAppointments(ctx)
	if err != nil {
		return filter, err
	}
	for _, appt := range appointments {
		if appt.ID == *filter.SinceAppointmentID {
			d := appt.ScheduledAt
			filter.DateFrom = &d
			return filter, nil
		}
	}
	return filter, fmt.Errorf("timeline.resolveSinceAppointment: appointment %q not found", *filter.SinceAppointmentID)
}

func professionalName(id *string, profByID map[string]repository.Professional) *string {
	if id == nil {
		return nil
	}
	if p, ok := profByID[*id]; ok {
		return &p.Name
	}
	return nil
}

func severityFromLabFlag(flag string) Severity {
	switch strings.ToLower(flag) {
	case "low":
		return SeverityLow
	case "high":
		return SeverityHigh
	case "critical_low", "critical_high":
		return SeverityCritical
	default:
		return SeverityNormal
	}
}

func sevPtr(s Severity) *Severity { return &s }

func (a *Assembler) fetchMedicationEvents(ctx context.Context, profByID map[string]repository.Professional) ([]Event, error) {
	meds, err := a.medications.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []Event
	for _, m := range meds {
		name := m.GenericName
		if m.BrandName != nil && *m.BrandName != "" {
			name = *m.BrandName
		}
		if m.StartDate != nil {
			out = append(out, Event{
				ID: m.ID + ":start", Type: EventMedicationStart, Date: *m.StartDate,
				Title: "Started " + name, ProfessionalID: m.PrescriberID,
				ProfessionalName: professionalName(m.PrescriberID, profByID), DocumentID: &m.DocumentID,
			})
		}
		if m.EndDate != nil {
			out = append(out, Event{
				ID: m.ID + ":stop", Type: EventMedicationStop, Date: *m.EndDate,
				Title: "Stopped " + name, ProfessionalID: m.PrescriberID,
				ProfessionalName: professionalName(m.PrescriberID, profByID), DocumentID: &m.DocumentID,
			})
		}
	}
	return out, nil
}

func (a *Assembler) fetchDoseChangeEvents(ctx context.Context, profByID map[string]repository.Professional) ([]Event, error) {
	changes, err := a.medications.ListDoseChanges(ctx)
	if err != nil {
		return nil, err
	}
	meds, err := a.medications.List(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]repository.Medication, len(meds))
	for _, m := range meds {
		byID[m.ID] = m
	}
	var out []Event
	for _, dc := range changes {
		med := byID[dc.MedicationID]
		name := med.GenericName
		if name == "" {
			name = "medication"
		}
		out = append(out, Event{
			ID: dc.ID, Type: EventMedicationDoseChange, Date: dc.ChangedAt,
			Title: name + " dose changed", DocumentID: &dc.DocumentID,
		})
	}
	return out, nil
}

func (a *Assembler) fetchLabEvents(ctx context.Context, profByID map[string]repository.Professional) ([]Event, error) {
	labs, err := a.clinical.ListLabResults(ctx)
	if err != nil {
		return nil, err
	}
	var out []Event
	for _, lr := range labs {
		if lr.CollectionDate == nil {
			continue
		}
		sev := severityFromLabFlag(lr.AbnormalFlag)
		out = append(out, Event{
			ID: lr.ID, Type: EventLabResult, Date: *lr.CollectionDate,
			Title: lr.TestName, ProfessionalID: lr.OrderingPhysicianID,
			ProfessionalName: professionalName(lr.OrderingPhysicianID, profByID),
			DocumentID:       &lr.DocumentID, Severity: sevPtr(sev),
		})
	}
	return out, nil
}

func (a *Assembler) fetchSymptomEvents(ctx context.Context, profByID map[string]repository.Professional) ([]Event, error) {
	symptoms, err := a.clinical.ListSymptoms(ctx)
	if err != nil {
		return nil, err
	}
	var out []Event
	for _, s := range symptoms {
		if s.OnsetDate == nil {
			continue
		}
		out = append(out, Event{
			ID: s.ID, Type: EventSymptom, Date: *s.OnsetDate,
			Title: s.Description, DocumentID: &s.DocumentID,
		})
	}
	return out, nil
}

func (a *Assembler) fetchProcedureEvents(ctx context.Context, profByID map[string]repository.Professional) ([]Event, error) {
	procedures, err := a.clinical.ListProcedures(ctx)
	if err != nil {
		return nil, err
	}
	var out []Event
	for _, p := range procedures {
		if p.PerformedDate == nil {
			continue
		}
		out = append(out, Event{
			ID: p.ID, Type: EventProcedure, Date: *p.PerformedDate,
			Title: p.Name, DocumentID: &p.DocumentID,
		})
	}
	return out, nil
}

func (a *Assembler) fetchAppointmentEvents(ctx context.Context, profByID map[string]repository.Professional) ([]Event, error) {
	appointments, err := a.clinical.ListAppointments(ctx)
	if err != nil {
		return nil, err
	}
	var out []Event
	for _, appt := range appointments {
		title := "Appointment"
		if name := professionalName(appt.ProfessionalID, profByID); name != nil {
			title = "Visit with " + *name
		}
		out = append(out, Event{
			ID: appt.ID, Type: EventAppointment, Date: appt.ScheduledAt,
			Title: title, ProfessionalID: appt.ProfessionalID,
			ProfessionalName: professionalName(appt.ProfessionalID, profByID), DocumentID: appt.DocumentID,
		})
	}
	return out, nil
}

func (a *Assembler) fetchDocumentEvents(ctx context.Context, profByID map[string]repository.Professional) ([]Event, error) {
	documents, err := a.documents.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []Event
	for _, d := range documents {
		if d.DocumentDate == nil {
			continue
		}
		id := d.ID
		out = append(out, Event{
			ID: d.ID, Type: EventDocument, Date: *d.DocumentDate,
			Title: d.Title, ProfessionalID: d.ProfessionalID,
			ProfessionalName: professionalName(d.ProfessionalID, profByID), DocumentID: &id,
		})
	}
	return out, nil
}

func (a *Assembler) fetchDiagnosisEvents(ctx context.Context, profByID map[string]repository.Professional) ([]Event, error) {
	diagnoses, err := a.clinical.ListDiagnoses(ctx)
	if err != nil {
		return nil, err
	}
	var out []Event
	for _, d := range diagnoses {
		if d.DiagnosedDate == nil {
			continue
		}
		out = append(out, Event{
			ID: d.ID, Type: EventDiagnosis, Date: *d.DiagnosedDate,
			Title: d.Name, DocumentID: &d.DocumentID,
		})
	}
	return out, nil
}

func (a *Assembler) fetchVitalSignEvents(ctx context.Context, profByID map[string]repository.Professional) ([]Event, error) {
	vitals, err := a.clinical.ListVitalSigns(ctx)
	if err != nil {
		return nil, err
	}
	var out []Event
	for _, v := range vitals {
		if v.MeasuredAt == nil {
			continue
		}
		out = append(out, Event{
			ID: v.ID, Type: EventVitalSign, Date: *v.MeasuredAt,
			Title: formatVitalTitle(v.Kind), DocumentID: &v.DocumentID,
		})
	}
	return out, nil
}

func formatVitalTitle(kind string) string {
	kind = strings.ReplaceAll(kind, "_", " ")
	if kind == "" {
		return "Vital sign"
	}
	return strings.ToUpper(kind[:1]) + kind[1:]
}

func (a *Assembler) fetchCoherenceAlertEvents(ctx context.Context, profByID map[string]repository.Professional) ([]Event, error) {
	alerts, err := a.alerts.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []Event
	for _, al := range alerts {
		out = append(out, Event{
			ID: al.ID, Type: EventCoherenceAlert, Date: al.DetectedAt,
			Title: formatAlertTitle(al.AlertType), Severity: sevPtr(Severity(al.Severity)),
		})
	}
	return out, nil
}

func formatAlertTitle(alertType string) string {
	switch alertType {
	case "conflict":
		return "Medication conflict detected"
	case "duplicate":
		return "Possible duplicate medication"
	case "gap":
		return "Treatment gap detected"
	case "drift":
		return "Undocumented dose change"
	case "temporal":
		return "Possible symptom correlation"
	case "allergy":
		return "Allergy cross-reference"
	case "dose":
		return "Dose out of typical range"
	case "critical":
		return "Critical lab result"
	default:
		return "Coherence finding"
	}
}

func dateRangeOf(events []Event) DateRange {
	if len(events) == 0 {
		return DateRange{}
	}
	earliest, latest := events[0].Date, events[0].Date
	for _, e := range events[1:] {
		if e.Date.Before(earliest) {
			earliest = e.Date
		}
		if e.Date.After(latest) {
			latest = e.Date
		}
	}
	return DateRange{Earliest: &earliest, Latest: &latest}
}

func countEvents(events []Event) EventCounts {
	var c EventCounts
	for _, e := range events {
		switch e.Type {
		case EventMedicationStart, EventMedicationStop:
			c.Medications++
		case EventLabResult:
			c.LabResults++
		case EventSymptom:
			c.Symptoms++
		case EventProcedure:
			c.Procedures++
		case EventAppointment:
			c.Appointments++
		case EventDocument:
			c.Documents++
		case EventDiagnosis:
			c.Diagnoses++
		case EventCoherenceAlert:
			c.CoherenceAlerts++
		case EventVitalSign:
			c.VitalSigns++
		}
	}
	return c
}

func professionalsWithCounts(professionals []repository.Professional, events []Event) []ProfessionalSummary {
	counts := make(map[string]int, len(professionals))
	for _, e := range events {
		if e.ProfessionalID != nil {
			counts[*e.ProfessionalID]++
		}
	}
	var out []ProfessionalSummary
	for _, p := range professionals {
		if counts[p.ID] == 0 {
			continue
		}
		out = append(out, ProfessionalSummary{ID: p.ID, Name: p.Name, Specialty: p.Specialty, EventCount: counts[p.ID]})
	}
	return out
}
