package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ktiyab/coheara/internal/repository"
)

// Service orchestrates the full query pipeline: classify, retrieve,
// generate, and persist.
type Service struct {
	retriever *Retriever
	generator *Generator
	chat      *repository.ChatRepo
}

func NewService(retriever *Retriever, generator *Generator, chat *repository.ChatRepo) *Service {
	return &Service{retriever: retriever, generator: generator, chat: chat}
}

// QueryOpts carries the per-call overrides and escalation inputs.
type QueryOpts struct {
	QueryType       *QueryType // nil = classify from text
	AgeMonths       *int
	IsMinor         bool
	Lang            string
	DeferPersistence bool // caller (e.g. safety filtering) will persist itself
}

// Query runs one end-to-end RAG turn for conversationID, optionally
// persisting the patient message and the assistant's response as
// conversation messages.
func (s *Service) Query(ctx context.Context, conversationID, query string, opts QueryOpts) (*RagResponse, error) {
	if query == "" {
		return nil, fmt.Errorf("rag.Query: query is empty")
	}

	var queryType QueryType
	if opts.QueryType != nil {
		queryType = *opts.QueryType
	} else {
		queryType = Classify(query)
	}

	retrieved, err := s.retriever.Retrieve(ctx, query, queryType, time.Now())
	if err != nil {
		return nil, fmt.Errorf("rag.Query: %w", err)
	}

	history, err := s.chat.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("rag.Query: history: %w", err)
	}

	resp, err := s.generator.Generate(ctx, query, retrieved, GenerateOpts{
		History:   history,
		AgeMonths: opts.AgeMonths,
		IsMinor:   opts.IsMinor,
		Lang:      opts.Lang,
	})
	if err != nil {
		return nil, fmt.Errorf("rag.Query: %w", err)
	}

	if !opts.DeferPersistence {
		if err := s.persist(ctx, conversationID, query, resp); err != nil {
			return nil, fmt.Errorf("rag.Query: persist: %w", err)
		}
	}

	return resp, nil
}

func (s *Service) persist(ctx context.Context, conversationID, query string, resp *RagResponse) error {
	now := time.Now().UTC()
	if err := s.chat.AppendMessage(ctx, repository.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           "patient",
		Content:        query,
		CreatedAt:      now,
	}); err != nil {
		return err
	}

	citationsJSON, err := json.Marshal(resp.Citations)
	if err != nil {
		return fmt.Errorf("marshal citations: %w", err)
	}
	citationsStr := string(citationsJSON)
	confidence := resp.Confidence

	return s.chat.AppendMessage(ctx, repository.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           "assistant",
		Content:        resp.Answer,
		Citations:      &citationsStr,
		Confidence:     &confidence,
		CreatedAt:      now,
	})
}
