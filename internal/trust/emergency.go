package trust

import (
	"context"
	"fmt"

	"github.com/ktiyab/coheara/internal/repository"
)

// AppointmentPriority suggests how soon the patient should see a provider
// about a critical alert, never a claim that something must happen this
// instant.
type AppointmentPriority string

const (
	PriorityRoutine AppointmentPriority = "routine"
	PrioritySoon    AppointmentPriority = "soon"
	PriorityPrompt  AppointmentPriority = "prompt"
)

// EmergencyAction is the structured follow-up derived from one active
// critical alert: always a two-step dismissal (AlertRepo.ConfirmDismissal
// already enforces the non-empty-reason half of that), plus a suggested
// appointment priority.
type EmergencyAction struct {
	AlertID             string
	AlertType           string
	DismissalSteps      int
	AppointmentPriority AppointmentPriority
	Message             string
}

// ActionsForCriticalAlerts derives one EmergencyAction per active critical
// alert.
func ActionsForCriticalAlerts(ctx context.Context, alerts *repository.AlertRepo) ([]EmergencyAction, error) {
	critical, err := alerts.ListCritical(ctx)
	if err != nil {
		return nil, fmt.Errorf("trust.ActionsForCriticalAlerts: %w", err)
	}
	out := make([]EmergencyAction, 0, len(critical))
	for _, a := range critical {
		out = append(out, EmergencyAction{
			AlertID:             a.ID,
			AlertType:           a.AlertType,
			DismissalSteps:      2,
			AppointmentPriority: priorityFor(a.AlertType),
			Message:             a.PatientMessage,
		})
	}
	return out, nil
}

func priorityFor(alertType string) AppointmentPriority {
	switch alertType {
	case "critical", "allergy":
		return PriorityPrompt
	case "dose":
		return PrioritySoon
	default:
		return PriorityRoutine
	}
}
