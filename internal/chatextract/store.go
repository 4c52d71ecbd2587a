package chatextract

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ktiyab/coheara/internal/repository"
)

// StorePending persists one conversation's verified items as a new
// extraction batch: a batch row plus one extraction_pending row per item.
// Each row is its own insert, not one transaction: an error partway leaves
// the batch row and the items inserted before it in place.
func StorePending(ctx context.Context, extractions *repository.ExtractionRepo, conversationID string, items []VerifiedItem) (batchID string, err error) {
	batchID = NewBatchID()
	convID := conversationID
	if err := extractions.CreateBatch(ctx, repository.ExtractionBatch{
		ID: batchID, ConversationID: &convID, Status: "completed", CreatedAt: time.Now().UTC(),
	}); err != nil {
		return "", fmt.Errorf("chatextract.StorePending: %w", err)
	}

	for _, vi := range items {
		dataJSON, err := json.Marshal(vi.Item.Data)
		if err != nil {
			return "", fmt.Errorf("chatextract.StorePending: %w", err)
		}
		sourceIDsJSON, err := json.Marshal(vi.Item.SourceMessageIndices)
		if err != nil {
			return "", fmt.Errorf("chatextract.StorePending: %w", err)
		}
		sourceIDsStr := string(sourceIDsJSON)

		item := repository.PendingReviewItem{
			ID:               uuid.NewString(),
			ConversationID:   conversationID,
			BatchID:          batchID,
			Domain:           string(vi.Item.Domain),
			ExtractedData:    string(dataJSON),
			Confidence:       vi.Confidence,
			Grounding:        string(vi.Grounding),
			SourceMessageIDs: &sourceIDsStr,
			Status:           "pending",
			CreatedAt:        time.Now().UTC(),
		}
		if err := extractions.CreatePendingItem(ctx, item); err != nil {
			return "", fmt.Errorf("chatextract.StorePending: %w", err)
		}
	}

	return batchID, nil
}
