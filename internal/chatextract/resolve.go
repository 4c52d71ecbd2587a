package chatextract

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ktiyab/coheara/internal/cherr"
	"github.com/ktiyab/coheara/internal/repository"
)

// ResolveDecision is what the patient decided about one pending item.
type ResolveDecision string

const (
	DecisionConfirm ResolveDecision = "confirm"
	DecisionEdit    ResolveDecision = "edited_confirmed"
	DecisionDismiss ResolveDecision = "dismiss"
)

// ResolveRequest carries the patient's decision on one pending review item.
// EditedData is only read when Decision is DecisionEdit.
type ResolveRequest struct {
	PendingItemID string
	Decision      ResolveDecision
	EditedData    map[string]any
}

// ResolveOutcome is what resolving one pending item produced: always a
// status transition, plus a dispatch result when the item was confirmed.
type ResolveOutcome struct {
	Status   string
	Dispatch *DispatchResult
}

// ResolvePendingItem transitions a pending item per the patient's decision
// and, for a confirm or edited-confirm, dispatches it into its structured
// table in the same call. Dismissing just records the decision.
func ResolvePendingItem(ctx context.Context, extractions *repository.ExtractionRepo, repos Repos, req ResolveRequest) (ResolveOutcome, error) {
	item, err := extractions.GetPendingItem(ctx, req.PendingItemID)
	if err != nil {
		return ResolveOutcome{}, fmt.Errorf("chatextract.ResolvePendingItem: %w", err)
	}
	if item.Status != "pending" {
		return ResolveOutcome{}, cherr.New(cherr.KindValidation, "chatextract.ResolvePendingItem: item already resolved", "this item was already reviewed", false)
	}

	now := sql.NullTime{Time: time.Now().UTC(), Valid: true}
	var status string
	var editedJSON *string

	switch req.Decision {
	case DecisionDismiss:
		status = "dismissed"
		if err := extractions.ResolvePendingItem(ctx, req.PendingItemID, status, nil, now); err != nil {
			return ResolveOutcome{}, fmt.Errorf("chatextract.ResolvePendingItem: %w", err)
		}
		return ResolveOutcome{Status: status}, nil

	case DecisionConfirm:
		status = "confirmed"
		if err := extractions.ResolvePendingItem(ctx, req.PendingItemID, status, nil, now); err != nil {
			return ResolveOutcome{}, fmt.Errorf("chatextract.ResolvePendingItem: %w", err)
		}

	case DecisionEdit:
		status = "edited_confirmed"
		encoded, err := json.Marshal(req.EditedData)
		if err != nil {
			return ResolveOutcome{}, fmt.Errorf("chatextract.ResolvePendingItem: %w", err)
		}
		s := string(encoded)
		editedJSON = &s
		if err := extractions.ResolvePendingItem(ctx, req.PendingItemID, status, editedJSON, now); err != nil {
			return ResolveOutcome{}, fmt.Errorf("chatextract.ResolvePendingItem: %w", err)
		}
		item.ExtractedData = s

	default:
		return ResolveOutcome{}, cherr.New(cherr.KindValidation, "chatextract.ResolvePendingItem: unknown decision", "", false)
	}

	item.Status = status
	dispatch, err := DispatchConfirmedItem(ctx, repos, *item)
	if err != nil {
		return ResolveOutcome{}, fmt.Errorf("chatextract.ResolvePendingItem: %w", err)
	}
	return ResolveOutcome{Status: status, Dispatch: &dispatch}, nil
}
