package structure

import (
	"time"

	"github.com/ktiyab/coheara/internal/entitystore"
	"github.com/ktiyab/coheara/internal/repository"
)

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t
	}
	return nil
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ToMedicationEntities converts the model's raw medication extraction into
// entitystore's persistence shape for documentID.
func ToMedicationEntities(documentID string, meds []MedicationEntity) []entitystore.MedicationEntity {
	out := make([]entitystore.MedicationEntity, 0, len(meds))
	for _, m := range meds {
		status := m.Status
		if status == "" {
			status = "active"
		}
		compounds := make([]repository.CompoundIngredient, 0, len(m.Compounds))
		for _, c := range m.Compounds {
			compounds = append(compounds, repository.CompoundIngredient{IngredientName: c.IngredientName, Dose: strPtr(c.Dose)})
		}
		tapers := make([]repository.TaperingStep, 0, len(m.Tapers))
		for _, t := range m.Tapers {
			tapers = append(tapers, repository.TaperingStep{StepOrder: t.StepOrder, Dose: t.Dose, StartDate: parseDate(t.StartDate), EndDate: parseDate(t.EndDate)})
		}
		instructions := make([]repository.MedicationInstruction, 0, len(m.Instructions))
		for _, instr := range m.Instructions {
			instructions = append(instructions, repository.MedicationInstruction{Instruction: instr})
		}
		out = append(out, entitystore.MedicationEntity{
			Medication: repository.Medication{
				DocumentID:  documentID,
				GenericName: m.GenericName,
				BrandName:   strPtr(m.BrandName),
				Dose:        strPtr(m.Dose),
				Frequency:   strPtr(m.Frequency),
				Route:       strPtr(m.Route),
				Status:      status,
				StartDate:   parseDate(m.StartDate),
				EndDate:     parseDate(m.EndDate),
				CreatedAt:   time.Now().UTC(),
			},
			PrescriberName: strPtr(m.Prescriber),
			Compounds:      compounds,
			Tapers:         tapers,
			Instructions:   instructions,
		})
	}
	return out
}

// ToClinicalEntities converts every non-medication extraction domain into
// entitystore's persistence shape for documentID.
func ToClinicalEntities(documentID string, e ExtractedEntities) entitystore.ClinicalEntities {
	out := entitystore.ClinicalEntities{}

	for _, d := range e.Diagnoses {
		status := d.Status
		if status == "" {
			status = "active"
		}
		out.Diagnoses = append(out.Diagnoses, repository.Diagnosis{
			DocumentID: documentID, Name: d.Name, ICDCode: strPtr(d.ICDCode),
			Status: status, DiagnosedDate: parseDate(d.DiagnosedDate),
		})
	}
	for _, a := range e.Allergies {
		out.Allergies = append(out.Allergies, repository.Allergy{
			DocumentID: documentID, Allergen: a.Allergen, Reaction: strPtr(a.Reaction), Severity: strPtr(a.Severity),
		})
	}
	for _, p := range e.Procedures {
		out.Procedures = append(out.Procedures, repository.Procedure{
			DocumentID: documentID, Name: p.Name, PerformedDate: parseDate(p.PerformedDate), PerformedBy: strPtr(p.PerformedBy),
		})
	}
	for _, r := range e.Referrals {
		out.Referrals = append(out.Referrals, entitystore.ReferralEntity{
			Referral: repository.Referral{
				DocumentID: documentID, ToSpecialty: strPtr(r.ToSpecialty), Reason: strPtr(r.Reason), ReferredDate: parseDate(r.ReferredDate),
			},
			ToProfessionalName: strPtr(r.ToProfessional),
		})
	}
	for _, s := range e.Symptoms {
		out.Symptoms = append(out.Symptoms, repository.Symptom{
			DocumentID: documentID, Description: s.Description, OnsetDate: parseDate(s.OnsetDate), ResolvedDate: parseDate(s.ResolvedDate),
		})
	}
	for _, a := range e.Appointments {
		status := a.Status
		if status == "" {
			status = "scheduled"
		}
		scheduled := time.Now().UTC()
		if t := parseDate(a.ScheduledAt); t != nil {
			scheduled = *t
		}
		docID := documentID
		out.Appointments = append(out.Appointments, entitystore.AppointmentEntity{
			Appointment: repository.Appointment{
				DocumentID: &docID, ScheduledAt: scheduled, Reason: strPtr(a.Reason), Status: status,
			},
			ProfessionalName: strPtr(a.Professional),
		})
	}
	for _, v := range e.VitalSigns {
		out.VitalSigns = append(out.VitalSigns, repository.VitalSign{
			DocumentID: documentID, Kind: v.Kind, Value: v.Value, Unit: strPtr(v.Unit), MeasuredAt: parseDate(v.MeasuredAt),
		})
	}
	for _, l := range e.LabResults {
		flag := l.AbnormalFlag
		if flag == "" {
			flag = "normal"
		}
		out.LabResults = append(out.LabResults, entitystore.LabResultEntity{
			LabResult: repository.LabResult{
				DocumentID: documentID, TestName: l.TestName, Value: l.Value, ValueText: strPtr(l.ValueText),
				Unit: strPtr(l.Unit), ReferenceRangeLow: l.ReferenceRangeLow, ReferenceRangeHigh: l.ReferenceRangeHigh,
				AbnormalFlag: flag, CollectionDate: parseDate(l.CollectionDate), LabFacility: strPtr(l.LabFacility),
			},
			OrderingPhysicianName: strPtr(l.OrderingPhysician),
		})
	}
	return out
}
