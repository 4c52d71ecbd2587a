// Package timeline assembles a unified, chronologically sorted view of the
// patient's medical history from the dated entity tables (allergies and
// referrals are not included), and detects temporal correlations between
// events (a symptom appearing shortly after a medication start or dose
// change). Explicit links recorded at extraction time are not reported: the
// explicit-correlation pass returns no rows.
package timeline

import "time"

// EventType discriminates what kind of clinical entity an Event came from.
type EventType string

const (
	EventMedicationStart     EventType = "medication_start"
	EventMedicationStop      EventType = "medication_stop"
	EventMedicationDoseChange EventType = "medication_dose_change"
	EventLabResult           EventType = "lab_result"
	EventSymptom             EventType = "symptom"
	EventProcedure           EventType = "procedure"
	EventAppointment         EventType = "appointment"
	EventDocument            EventType = "document"
	EventDiagnosis           EventType = "diagnosis"
	EventCoherenceAlert      EventType = "coherence_alert"
	EventVitalSign           EventType = "vital_sign"
)

// Severity is a coarse clinical-significance tag used to color timeline
// entries in the companion UI.
type Severity string

const (
	SeverityNormal   Severity = "normal"
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Event is one entry in the assembled timeline.
type Event struct {
	ID               string
	Type             EventType
	Date             time.Time
	Title            string
	Subtitle         string
	ProfessionalID   *string
	ProfessionalName *string
	DocumentID       *string
	Severity         *Severity
}

// CorrelationType distinguishes a heuristic temporal match from one the
// patient (or an extractor) recorded explicitly.
type CorrelationType string

const (
	CorrelationSymptomAfterMedicationStart CorrelationType = "symptom_after_medication_start"
	CorrelationSymptomAfterDoseChange      CorrelationType = "symptom_after_dose_change"
	CorrelationExplicitLink                CorrelationType = "explicit_link"
)

// Correlation links two events the timeline believes are related.
type Correlation struct {
	SourceID        string
	TargetID        string
	Type            CorrelationType
	Description     string
}

// DateRange is the earliest/latest event date in an assembled timeline.
type DateRange struct {
	Earliest *time.Time
	Latest   *time.Time
}

// EventCounts summarizes how many events of each kind the snapshot holds.
type EventCounts struct {
	Medications     int
	LabResults      int
	Symptoms        int
	Procedures      int
	Appointments    int
	Documents       int
	Diagnoses       int
	CoherenceAlerts int
	VitalSigns      int
}

// ProfessionalSummary is one professional with the number of timeline
// events that reference them, for a "filter by provider" picker.
type ProfessionalSummary struct {
	ID         string
	Name       string
	Specialty  *string
	EventCount int
}

// Data is the full payload a timeline query returns in one round trip.
type Data struct {
	Events        []Event
	Correlations  []Correlation
	DateRange     DateRange
	EventCounts   EventCounts
	Professionals []ProfessionalSummary
}

// Filter narrows which events Assemble includes.
type Filter struct {
	EventTypes        []EventType // nil = all types
	ProfessionalID    *string
	DateFrom          *time.Time
	DateTo            *time.Time
	SinceAppointmentID *string // resolved to DateFrom = that appointment's date
}

func (f Filter) includesType(t EventType) bool {
	if len(f.EventTypes) == 0 {
		return true
	}
	for _, want := range f.EventTypes {
		if want == t {
			return true
		}
	}
	return false
}

func (f Filter) includesProfessional(id *string) bool {
	if f.ProfessionalID == nil {
		return true
	}
	return id != nil && *id == *f.ProfessionalID
}

func (f Filter) includesDate(d time.Time) bool {
	if f.DateFrom != nil && d.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && d.After(*f.DateTo) {
		return false
	}
	return true
}
