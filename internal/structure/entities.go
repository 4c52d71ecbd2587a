package structure

// ExtractedEntities is the model's structured view of one document before
// professional-name resolution and repository insert — entitystore.Store
// consumes a resolved form of these once professional references are
// looked up.
type ExtractedEntities struct {
	Professional *ProfessionalHint

	Medications  []MedicationEntity
	Diagnoses    []DiagnosisEntity
	Allergies    []AllergyEntity
	Procedures   []ProcedureEntity
	Referrals    []ReferralEntity
	Symptoms     []SymptomEntity
	Appointments []AppointmentEntity
	VitalSigns   []VitalSignEntity
	LabResults   []LabResultEntity
}

// ProfessionalHint is the professional detected from the document's
// letterhead/signature, if any.
type ProfessionalHint struct {
	Name      string
	Specialty string
}

type CompoundIngredient struct {
	IngredientName string
	Dose           string
}

type TaperingStep struct {
	StepOrder int
	Dose      string
	StartDate string
	EndDate   string
}

type MedicationEntity struct {
	GenericName  string
	BrandName    string
	Dose         string
	Frequency    string
	Route        string
	Prescriber   string
	Status       string
	StartDate    string
	EndDate      string
	Confidence   float64
	Compounds    []CompoundIngredient
	Tapers       []TaperingStep
	Instructions []string
}

type DiagnosisEntity struct {
	Name          string
	ICDCode       string
	Status        string
	DiagnosedDate string
	Confidence    float64
}

type AllergyEntity struct {
	Allergen   string
	Reaction   string
	Severity   string
	Confidence float64
}

type ProcedureEntity struct {
	Name          string
	PerformedDate string
	PerformedBy   string
	Confidence    float64
}

type ReferralEntity struct {
	ToSpecialty    string
	ToProfessional string
	Reason         string
	ReferredDate   string
	Confidence     float64
}

type SymptomEntity struct {
	Description  string
	OnsetDate    string
	ResolvedDate string
	Confidence   float64
}

type AppointmentEntity struct {
	ScheduledAt  string
	Professional string
	Reason       string
	Status       string
	Confidence   float64
}

type VitalSignEntity struct {
	Kind       string
	Value      *float64
	Unit       string
	MeasuredAt string
	Confidence float64
}

type LabResultEntity struct {
	TestName            string
	Value               *float64
	ValueText           string
	Unit                string
	ReferenceRangeLow   *float64
	ReferenceRangeHigh  *float64
	AbnormalFlag        string
	CollectionDate      string
	LabFacility         string
	OrderingPhysician   string
	Confidence          float64
}

// entityNames collects every entity's primary name field, for the
// grounding token-overlap check.
func entityNames(e ExtractedEntities) []string {
	var names []string
	for _, m := range e.Medications {
		names = append(names, m.GenericName, m.BrandName)
	}
	for _, d := range e.Diagnoses {
		names = append(names, d.Name)
	}
	for _, a := range e.Allergies {
		names = append(names, a.Allergen)
	}
	for _, p := range e.Procedures {
		names = append(names, p.Name)
	}
	for _, s := range e.Symptoms {
		names = append(names, s.Description)
	}
	for _, l := range e.LabResults {
		names = append(names, l.TestName)
	}
	return names
}
