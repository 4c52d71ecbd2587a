package chatextract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ktiyab/coheara/internal/repository"
)

// Repos bundles the repositories dispatch needs to route a confirmed item
// into its structured table.
type Repos struct {
	Documents     *repository.DocumentRepo
	Clinical      *repository.ClinicalRepo
	Medications   *repository.MedicationRepo
	Professionals *repository.ProfessionalRepo
}

// DispatchConfirmedItem routes one confirmed (or edited-then-confirmed)
// pending item into its domain table. Every dispatched item first gets its
// own synthetic "conversation" document, since every clinical table's rows
// carry a NOT NULL document_id foreign key and a chat-derived fact has no
// document of its own to attach to.
func DispatchConfirmedItem(ctx context.Context, repos Repos, item repository.PendingReviewItem) (DispatchResult, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(item.ExtractedData), &data); err != nil {
		return DispatchResult{}, fmt.Errorf("chatextract.DispatchConfirmedItem: %w", err)
	}

	doc, err := createConversationSourceDocument(ctx, repos.Documents, Domain(item.Domain))
	if err != nil {
		return DispatchResult{}, fmt.Errorf("chatextract.DispatchConfirmedItem: %w", err)
	}

	var recordID string
	switch Domain(item.Domain) {
	case DomainSymptom:
		recordID, err = dispatchSymptom(ctx, repos.Clinical, doc.ID, data)
	case DomainMedication:
		recordID, err = dispatchMedication(ctx, repos.Medications, doc.ID, data)
	case DomainAppointment:
		recordID, err = dispatchAppointment(ctx, repos.Clinical, repos.Professionals, doc.ID, data)
	default:
		return DispatchResult{}, fmt.Errorf("chatextract.DispatchConfirmedItem: unknown domain %q", item.Domain)
	}
	if err != nil {
		return DispatchResult{}, err
	}

	return DispatchResult{ItemID: item.ID, Domain: Domain(item.Domain), CreatedRecordID: recordID}, nil
}

func createConversationSourceDocument(ctx context.Context, documents *repository.DocumentRepo, domain Domain) (*repository.Document, error) {
	now := time.Now().UTC()
	doc := &repository.Document{
		ID:             uuid.NewString(),
		DocType:        "conversation",
		Title:          fmt.Sprintf("Chat-derived %s", domain),
		DocumentDate:   &now,
		IngestionDate:  now,
		SourceFile:     "conversation-extraction",
		Verified:       false,
		PipelineStatus: "complete",
	}
	if err := documents.Create(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func dispatchSymptom(ctx context.Context, clinical *repository.ClinicalRepo, documentID string, data map[string]any) (string, error) {
	sym := repository.Symptom{
		ID:          uuid.NewString(),
		DocumentID:  documentID,
		Description: symptomDescription(data),
		OnsetDate:   parseDateHint(data, "onset_hint"),
	}
	if err := clinical.ReplaceSymptoms(ctx, documentID, []repository.Symptom{sym}); err != nil {
		return "", err
	}
	return sym.ID, nil
}

func symptomDescription(data map[string]any) string {
	var parts []string
	for _, key := range []string{"specific", "category", "body_region", "character", "duration", "timing_pattern", "notes"} {
		if s, ok := data[key].(string); ok && s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return "symptom mentioned in conversation"
	}
	return strings.Join(parts, ", ")
}

func dispatchMedication(ctx context.Context, medications *repository.MedicationRepo, documentID string, data map[string]any) (string, error) {
	med := repository.Medication{
		ID:          uuid.NewString(),
		DocumentID:  documentID,
		GenericName: stringField(data, "name"),
		BrandName:   stringPtrField(data, "brand_name"),
		Dose:        stringPtrField(data, "dose"),
		Frequency:   stringPtrField(data, "frequency"),
		Route:       stringPtrField(data, "route"),
		Status:      "active",
		StartDate:   parseDateHint(data, "start_date_hint"),
		CreatedAt:   time.Now().UTC(),
	}
	if med.GenericName == "" {
		med.GenericName = "unspecified medication"
	}
	if err := medications.ReplaceForDocument(ctx, documentID, []repository.Medication{med}, nil, nil, nil); err != nil {
		return "", err
	}
	return med.ID, nil
}

func dispatchAppointment(ctx context.Context, clinical *repository.ClinicalRepo, professionals *repository.ProfessionalRepo, documentID string, data map[string]any) (string, error) {
	var professionalID *string
	if name := stringField(data, "professional_name"); name != "" {
		specialty := stringPtrField(data, "specialty")
		prof, err := professionals.FindOrCreate(ctx, name, specialty)
		if err != nil {
			return "", fmt.Errorf("chatextract.dispatchAppointment: %w", err)
		}
		professionalID = &prof.ID
	}

	scheduledAt := time.Now().UTC()
	if d := parseDateHint(data, "date_hint"); d != nil {
		scheduledAt = *d
	}

	docID := documentID
	appt := repository.Appointment{
		ID:             uuid.NewString(),
		DocumentID:     &docID,
		ProfessionalID: professionalID,
		ScheduledAt:    scheduledAt,
		Status:         "completed",
	}
	if err := clinical.InsertAppointment(ctx, appt); err != nil {
		return "", err
	}
	return appt.ID, nil
}

func stringField(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}

func stringPtrField(data map[string]any, key string) *string {
	s, ok := data[key].(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}

func parseDateHint(data map[string]any, key string) *time.Time {
	s, ok := data[key].(string)
	if !ok || s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}
