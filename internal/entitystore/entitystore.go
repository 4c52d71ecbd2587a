// Package entitystore orchestrates idempotent persistence of everything a
// structured extraction pass produces for one document: medications (with
// tapering steps, compound ingredients and instructions nested underneath)
// and the remaining clinical entity tables. The document row itself is not
// written here.
// Professional references are resolved find-or-create, case-insensitive,
// and an ambiguous name degrades to a warning rather than failing the whole
// store (spec.md §4.10).
package entitystore

import (
	"context"
	"fmt"

	"github.com/ktiyab/coheara/internal/repository"
)

// ProfessionalRef is a professional name as it appears in extracted data,
// optionally with a specialty hint.
type ProfessionalRef struct {
	Name      string
	Specialty *string
}

// MedicationEntity bundles one extracted medication with its nested rows.
// PrescriberName, when set, is resolved via ProfessionalRepo.FindOrCreate
// and written into Medication.PrescriberID before insert.
type MedicationEntity struct {
	Medication     repository.Medication
	PrescriberName *string
	Compounds      []repository.CompoundIngredient
	Tapers         []repository.TaperingStep
	Instructions   []repository.MedicationInstruction
}

// ClinicalEntities bundles every non-medication entity extracted for one
// document. Referral.ToProfessionalName and Appointment.ProfessionalName,
// when set, are resolved the same way as a medication's prescriber.
type ClinicalEntities struct {
	Diagnoses    []repository.Diagnosis
	Allergies    []repository.Allergy
	Procedures   []repository.Procedure
	Referrals    []ReferralEntity
	Symptoms     []repository.Symptom
	Appointments []AppointmentEntity
	VitalSigns   []repository.VitalSign
	LabResults   []LabResultEntity
}

type ReferralEntity struct {
	Referral           repository.Referral
	ToProfessionalName *string
}

type AppointmentEntity struct {
	Appointment     repository.Appointment
	ProfessionalName *string
}

type LabResultEntity struct {
	LabResult             repository.LabResult
	OrderingPhysicianName *string
}

// Result reports what was stored and anything that had to be skipped.
type Result struct {
	MedicationsStored int
	EntitiesStored    int
	Warnings          []string
}

// Store orchestrates the repositories involved in storing one document's
// extracted entities.
type Store struct {
	Professionals *repository.ProfessionalRepo
	Medications   *repository.MedicationRepo
	Clinical      *repository.ClinicalRepo
}

func New(professionals *repository.ProfessionalRepo, medications *repository.MedicationRepo, clinical *repository.ClinicalRepo) *Store {
	return &Store{Professionals: professionals, Medications: medications, Clinical: clinical}
}

// StoreMedications resolves each medication's prescriber and replaces every
// medication (and its nested rows) for documentID in one idempotent pass.
// A professional-name ambiguity degrades that one medication's prescriber
// link to nil plus a warning; it does not abort the whole batch.
func (s *Store) StoreMedications(ctx context.Context, documentID string, entities []MedicationEntity) (Result, error) {
	var result Result
	meds := make([]repository.Medication, 0, len(entities))
	var compounds []repository.CompoundIngredient
	var tapers []repository.TaperingStep
	var instructions []repository.MedicationInstruction

	for _, e := range entities {
		med := e.Medication
		med.DocumentID = documentID
		if e.PrescriberName != nil && *e.PrescriberName != "" {
			prof, err := s.Professionals.FindOrCreate(ctx, *e.PrescriberName, nil)
			if err != nil {
				if _, ok := err.(repository.ErrAmbiguous); ok {
					result.Warnings = append(result.Warnings, fmt.Sprintf("professional name %q is ambiguous; medication %q stored without a prescriber link", *e.PrescriberName, med.GenericName))
				} else {
					result.Warnings = append(result.Warnings, fmt.Sprintf("could not resolve prescriber %q: %v", *e.PrescriberName, err))
				}
			} else {
				med.PrescriberID = &prof.ID
			}
		}
		meds = append(meds, med)
		compounds = append(compounds, withMedicationID(e.Compounds, med.ID)...)
		tapers = append(tapers, withTaperMedicationID(e.Tapers, med.ID)...)
		instructions = append(instructions, withInstructionMedicationID(e.Instructions, med.ID)...)
	}

	if err := s.Medications.ReplaceForDocument(ctx, documentID, meds, compounds, tapers, instructions); err != nil {
		return result, fmt.Errorf("entitystore.StoreMedications: %w", err)
	}
	result.MedicationsStored = len(meds)
	return result, nil
}

func withMedicationID(items []repository.CompoundIngredient, medID string) []repository.CompoundIngredient {
	out := make([]repository.CompoundIngredient, len(items))
	for i, it := range items {
		it.MedicationID = medID
		out[i] = it
	}
	return out
}

func withTaperMedicationID(items []repository.TaperingStep, medID string) []repository.TaperingStep {
	out := make([]repository.TaperingStep, len(items))
	for i, it := range items {
		it.MedicationID = medID
		out[i] = it
	}
	return out
}

func withInstructionMedicationID(items []repository.MedicationInstruction, medID string) []repository.MedicationInstruction {
	out := make([]repository.MedicationInstruction, len(items))
	for i, it := range items {
		it.MedicationID = medID
		out[i] = it
	}
	return out
}

// StoreClinical replaces every non-medication clinical entity for
// documentID except appointments, which are inserted without removing
// earlier ones (so a re-run adds them again), resolving professional
// references along the way. Failures
// resolving a single entity's professional reference are recorded as
// warnings and do not prevent the rest of the document from being stored.
func (s *Store) StoreClinical(ctx context.Context, documentID string, entities ClinicalEntities) (Result, error) {
	var result Result

	diagnoses := withDocumentID(entities.Diagnoses, documentID)
	if err := s.Clinical.ReplaceDiagnoses(ctx, documentID, diagnoses); err != nil {
		return result, fmt.Errorf("entitystore.StoreClinical: diagnoses: %w", err)
	}
	result.EntitiesStored += len(diagnoses)

	allergies := withAllergyDocID(entities.Allergies, documentID)
	if err := s.Clinical.ReplaceAllergies(ctx, documentID, allergies); err != nil {
		return result, fmt.Errorf("entitystore.StoreClinical: allergies: %w", err)
	}
	result.EntitiesStored += len(allergies)

	procedures := withProcedureDocID(entities.Procedures, documentID)
	if err := s.Clinical.ReplaceProcedures(ctx, documentID, procedures); err != nil {
		return result, fmt.Errorf("entitystore.StoreClinical: procedures: %w", err)
	}
	result.EntitiesStored += len(procedures)

	referrals := make([]repository.Referral, 0, len(entities.Referrals))
	for _, re := range entities.Referrals {
		ref := re.Referral
		ref.DocumentID = documentID
		if re.ToProfessionalName != nil && *re.ToProfessionalName != "" {
			prof, err := s.Professionals.FindOrCreate(ctx, *re.ToProfessionalName, nil)
			if err != nil {
				result.Warnings = append(result.Warnings, ambiguityWarning(*re.ToProfessionalName, "referral", err))
			} else {
				ref.ToProfessionalID = &prof.ID
			}
		}
		referrals = append(referrals, ref)
	}
	if err := s.Clinical.ReplaceReferrals(ctx, documentID, referrals); err != nil {
		return result, fmt.Errorf("entitystore.StoreClinical: referrals: %w", err)
	}
	result.EntitiesStored += len(referrals)

	symptoms := withSymptomDocID(entities.Symptoms, documentID)
	if err := s.Clinical.ReplaceSymptoms(ctx, documentID, symptoms); err != nil {
		return result, fmt.Errorf("entitystore.StoreClinical: symptoms: %w", err)
	}
	result.EntitiesStored += len(symptoms)

	for _, ae := range entities.Appointments {
		appt := ae.Appointment
		appt.DocumentID = &documentID
		if ae.ProfessionalName != nil && *ae.ProfessionalName != "" {
			prof, err := s.Professionals.FindOrCreate(ctx, *ae.ProfessionalName, nil)
			if err != nil {
				result.Warnings = append(result.Warnings, ambiguityWarning(*ae.ProfessionalName, "appointment", err))
			} else {
				appt.ProfessionalID = &prof.ID
			}
		}
		if err := s.Clinical.InsertAppointment(ctx, appt); err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("appointment skipped: %v", err))
			continue
		}
		result.EntitiesStored++
	}

	vitals := withVitalDocID(entities.VitalSigns, documentID)
	if err := s.Clinical.ReplaceVitalSigns(ctx, documentID, vitals); err != nil {
		return result, fmt.Errorf("entitystore.StoreClinical: vital signs: %w", err)
	}
	result.EntitiesStored += len(vitals)

	labs := make([]repository.LabResult, 0, len(entities.LabResults))
	for _, le := range entities.LabResults {
		lab := le.LabResult
		lab.DocumentID = documentID
		if le.OrderingPhysicianName != nil && *le.OrderingPhysicianName != "" {
			prof, err := s.Professionals.FindOrCreate(ctx, *le.OrderingPhysicianName, nil)
			if err != nil {
				result.Warnings = append(result.Warnings, ambiguityWarning(*le.OrderingPhysicianName, "lab result", err))
			} else {
				lab.OrderingPhysicianID = &prof.ID
			}
		}
		labs = append(labs, lab)
	}
	if err := s.Clinical.ReplaceLabResults(ctx, documentID, labs); err != nil {
		return result, fmt.Errorf("entitystore.StoreClinical: lab results: %w", err)
	}
	result.EntitiesStored += len(labs)

	return result, nil
}

func ambiguityWarning(name, entityKind string, err error) string {
	if _, ok := err.(repository.ErrAmbiguous); ok {
		return fmt.Sprintf("professional name %q is ambiguous; %s stored without a professional link", name, entityKind)
	}
	return fmt.Sprintf("could not resolve professional %q for %s: %v", name, entityKind, err)
}

func withDocumentID(items []repository.Diagnosis, docID string) []repository.Diagnosis {
	out := make([]repository.Diagnosis, len(items))
	for i, it := range items {
		it.DocumentID = docID
		out[i] = it
	}
	return out
}

func withAllergyDocID(items []repository.Allergy, docID string) []repository.Allergy {
	out := make([]repository.Allergy, len(items))
	for i, it := range items {
		it.DocumentID = docID
		out[i] = it
	}
	return out
}

func withProcedureDocID(items []repository.Procedure, docID string) []repository.Procedure {
	out := make([]repository.Procedure, len(items))
	for i, it := range items {
		it.DocumentID = docID
		out[i] = it
	}
	return out
}

func withSymptomDocID(items []repository.Symptom, docID string) []repository.Symptom {
	out := make([]repository.Symptom, len(items))
	for i, it := range items {
		it.DocumentID = docID
		out[i] = it
	}
	return out
}

func withVitalDocID(items []repository.VitalSign, docID string) []repository.VitalSign {
	out := make([]repository.VitalSign, len(items))
	for i, it := range items {
		it.DocumentID = docID
		out[i] = it
	}
	return out
}
