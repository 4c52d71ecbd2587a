package trust

import (
	"context"
	"testing"

	"github.com/ktiyab/coheara/internal/repository"
)

func TestActionsForCriticalAlertsOnlyIncludesCritical(t *testing.T) {
	db := newTestDB(t)
	alerts := repository.NewAlertRepo(db)
	ctx := context.Background()

	mustUpsert := func(a repository.CoherenceAlert) {
		t.Helper()
		if _, err := alerts.Upsert(ctx, a); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}
	mustUpsert(repository.CoherenceAlert{ID: "a1", AlertType: "critical", Severity: "critical", EntityIDs: "[]", NaturalKey: "critical:lab-1", PatientMessage: "a critical lab result was found"})
	mustUpsert(repository.CoherenceAlert{ID: "a2", AlertType: "conflict", Severity: "warning", EntityIDs: "[]", NaturalKey: "conflict:m1,m2", PatientMessage: "a possible conflict was found"})

	actions, err := ActionsForCriticalAlerts(ctx, alerts)
	if err != nil {
		t.Fatalf("ActionsForCriticalAlerts: %v", err)
	}
	if len(actions) != 1 {
		t.Fatalf("expected exactly 1 emergency action, got %d: %+v", len(actions), actions)
	}
	if actions[0].DismissalSteps != 2 {
		t.Fatalf("expected 2 dismissal steps, got %d", actions[0].DismissalSteps)
	}
	if actions[0].AppointmentPriority != PriorityPrompt {
		t.Fatalf("expected prompt priority for a critical lab alert, got %v", actions[0].AppointmentPriority)
	}
}

func TestActionsForCriticalAlertsExcludesDismissed(t *testing.T) {
	db := newTestDB(t)
	alerts := repository.NewAlertRepo(db)
	ctx := context.Background()

	if _, err := alerts.Upsert(ctx, repository.CoherenceAlert{
		ID: "a1", AlertType: "critical", Severity: "critical", EntityIDs: "[]",
		NaturalKey: "critical:lab-1", PatientMessage: "a critical lab result was found",
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := alerts.RequestDismissal(ctx, "a1"); err != nil {
		t.Fatalf("RequestDismissal: %v", err)
	}
	if err := alerts.ConfirmDismissal(ctx, "a1", "doctor reviewed, result repeated normal"); err != nil {
		t.Fatalf("ConfirmDismissal: %v", err)
	}

	actions, err := ActionsForCriticalAlerts(ctx, alerts)
	if err != nil {
		t.Fatalf("ActionsForCriticalAlerts: %v", err)
	}
	if len(actions) != 0 {
		t.Fatalf("expected a dismissed critical alert to produce no action, got %+v", actions)
	}
}
