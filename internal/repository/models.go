package repository

import "time"

// Document is the provenance anchor every clinical entity FKs to.
type Document struct {
	ID               string
	DocType          string
	Title            string
	DocumentDate     *time.Time
	IngestionDate    time.Time
	ProfessionalID   *string
	SourceFile       string
	MarkdownFile     *string
	OCRConfidence    *float64
	Verified         bool
	PerceptualHash   *string
	PipelineStatus   string
}

// Professional is a care provider referenced by clinical entities.
type Professional struct {
	ID        string
	Name      string
	Specialty *string
	Phone     *string
	CreatedAt time.Time
}

// Medication is an active or historical prescription.
type Medication struct {
	ID           string
	DocumentID   string
	GenericName  string
	BrandName    *string
	Dose         *string
	Frequency    *string
	Route        *string
	PrescriberID *string
	Status       string
	StartDate    *time.Time
	EndDate      *time.Time
	CreatedAt    time.Time
}

// CompoundIngredient is one ingredient of a compound medication.
type CompoundIngredient struct {
	ID             string
	MedicationID   string
	IngredientName string
	Dose           *string
}

// TaperingStep is one step of a dose taper schedule.
type TaperingStep struct {
	ID           string
	MedicationID string
	StepOrder    int
	Dose         string
	StartDate    *time.Time
	EndDate      *time.Time
}

// MedicationInstruction is a free-text administration instruction.
type MedicationInstruction struct {
	ID           string
	MedicationID string
	Instruction  string
}

// DoseChange records an observed dose change, with or without a reason.
type DoseChange struct {
	ID           string
	DocumentID   string
	MedicationID string
	OldDose      *string
	NewDose      *string
	Reason       *string
	ChangedAt    time.Time
}

// LabResult is one lab test observation.
type LabResult struct {
	ID                  string
	DocumentID          string
	TestName            string
	Value               *float64
	ValueText           *string
	Unit                *string
	ReferenceRangeLow   *float64
	ReferenceRangeHigh  *float64
	AbnormalFlag        string
	CollectionDate      *time.Time
	LabFacility         *string
	OrderingPhysicianID *string
}

// Diagnosis is an active or historical condition.
type Diagnosis struct {
	ID            string
	DocumentID    string
	Name          string
	ICDCode       *string
	Status        string
	DiagnosedDate *time.Time
}

// Allergy is a known allergen and reaction.
type Allergy struct {
	ID         string
	DocumentID string
	Allergen   string
	Reaction   *string
	Severity   *string
}

// Procedure is a performed medical procedure.
type Procedure struct {
	ID            string
	DocumentID    string
	Name          string
	PerformedDate *time.Time
	PerformedBy   *string
}

// Referral is a referral to another professional/specialty.
type Referral struct {
	ID               string
	DocumentID       string
	ToSpecialty      *string
	ToProfessionalID *string
	Reason           *string
	ReferredDate     *time.Time
}

// Symptom is a reported symptom with optional onset/resolution.
type Symptom struct {
	ID           string
	DocumentID   string
	Description  string
	OnsetDate    *time.Time
	ResolvedDate *time.Time
}

// Appointment is a scheduled or past visit.
type Appointment struct {
	ID             string
	DocumentID     *string
	ProfessionalID *string
	ScheduledAt    time.Time
	Reason         *string
	Status         string
}

// VitalSign is one vital-sign measurement.
type VitalSign struct {
	ID         string
	DocumentID string
	Kind       string
	Value      *float64
	Unit       *string
	MeasuredAt *time.Time
}

// Conversation groups chat messages with the assistant.
type Conversation struct {
	ID        string
	Title     *string
	CreatedAt time.Time
}

// Message is one turn of a conversation.
type Message struct {
	ID             string
	ConversationID string
	Role           string
	Content        string
	Citations      *string
	Confidence     *float64
	CreatedAt      time.Time
}

// Chunk is a persisted, encrypted-at-rest markdown fragment plus embedding.
type Chunk struct {
	ChunkID          string
	DocumentID       string
	Content          string
	Embedding        []float32
	DocType          *string
	DocDate          *time.Time
	ProfessionalName *string
}

// DoseReference is a bundled reference range used by the dose detector.
type DoseReference struct {
	GenericName   string
	TypicalMinMg  *float64
	TypicalMaxMg  *float64
	AbsoluteMaxMg *float64
	Unit          string
	Source        string
}

// CoherenceAlert is a detector finding, deduplicated on NaturalKey.
type CoherenceAlert struct {
	ID                string
	DocumentID        *string // nil for corpus-spanning detectors (gap, drift, temporal)
	AlertType         string
	Severity          string
	EntityIDs         string // JSON array, kept opaque at the repository layer
	NaturalKey        string
	PatientMessage    string
	DetectedAt        time.Time
	Dismissed         bool
	DismissedBy       *string
	TwoStepConfirmed  bool
}

// DismissedAlert records a dismissal decision so the natural key stays
// suppressed; it is deleted along with the originating alert row.
type DismissedAlert struct {
	ID               string
	AlertID          string
	NaturalKey       string
	Reason           *string
	DismissedAt      time.Time
	TwoStepConfirmed bool
}

// ExtractionBatch groups pending review items produced by one chat turn.
type ExtractionBatch struct {
	ID             string
	ConversationID *string
	Status         string
	CreatedAt      time.Time
}

// PendingReviewItem is one candidate extraction awaiting patient review.
// Status is a terminal state machine: pending -> confirmed | edited_confirmed | dismissed.
type PendingReviewItem struct {
	ID               string
	ConversationID   string
	BatchID          string
	Domain           string
	ExtractedData    string // JSON
	Confidence       float64
	Grounding        string
	DuplicateOf      *string
	SourceMessageIDs *string
	Status           string
	CreatedAt        time.Time
	ReviewedAt       *time.Time
}

// ProfileTrust is the singleton row tracking dose-reference bundle version
// and the last cryptographic-erasure verification.
type ProfileTrust struct {
	DoseReferenceVersion *string
	LastErasureCheck     *time.Time
}

// UserPreference is a single free-form key/value preference.
type UserPreference struct {
	Key   string
	Value *string
}

// ModelPreference pins or disables a model for a routing category.
type ModelPreference struct {
	Category  string
	ModelName string
	Disabled  bool
}

// LocalCARecord is the persisted local certificate authority bundle.
type LocalCARecord struct {
	CertDER       []byte
	KeyEncrypted  []byte
	Fingerprint   string
	CreatedAt     time.Time
}

// DeviceRegistration is a paired companion device.
type DeviceRegistration struct {
	ID             string
	OwnerProfileID string
	Name           *string
	PairedAt       time.Time
	RevokedAt      *time.Time
}

// DeviceProfileAccessRow grants a device access to a profile at a level.
type DeviceProfileAccessRow struct {
	ID        string
	DeviceID  string
	ProfileID string
	Level     string
	GrantedAt time.Time
	RevokedAt *time.Time
}

// ProfileAccessGrantRow grants one profile's owner access to another profile.
type ProfileAccessGrantRow struct {
	ID                string
	GranterProfileID  string
	GranteeProfileID  string
	Level             string
	GrantedAt         time.Time
	RevokedAt         *time.Time
}
