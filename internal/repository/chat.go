package repository

import (
	"context"
	"fmt"
)

// ChatRepo persists conversations and messages for the RAG assistant.
type ChatRepo struct{ db *DB }

func NewChatRepo(db *DB) *ChatRepo { return &ChatRepo{db: db} }

func (r *ChatRepo) CreateConversation(ctx context.Context, c Conversation) error {
	r.db.Mu.Lock()
	defer r.db.Mu.Unlock()
	_, err := r.db.SQL.ExecContext(ctx,
		`INSERT INTO conversations (id, title, created_at) VALUES (?, ?, ?)`,
		c.ID, c.Title, c.CreatedAt)
	if err != nil {
		return wrapDBErr("repository.ChatRepo.CreateConversation", err)
	}
	return nil
}

func (r *ChatRepo) ListConversations(ctx context.Context) ([]Conversation, error) {
	rows, err := r.db.SQL.QueryContext(ctx, `SELECT id, title, created_at FROM conversations ORDER BY created_at DESC`)
	if err != nil {
		return nil, wrapDBErr("repository.ChatRepo.ListConversations", err)
	}
	defer rows.Close()
	var out []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.Title, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository.ChatRepo.ListConversations: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// AppendMessage inserts one message. Messages are append-only; the chat
// transcript is never rewritten in place.
func (r *ChatRepo) AppendMessage(ctx context.Context, m Message) error {
	r.db.Mu.Lock()
	defer r.db.Mu.Unlock()
	_, err := r.db.SQL.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, role, content, citations, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.ConversationID, m.Role, m.Content, m.Citations, m.Confidence, m.CreatedAt)
	if err != nil {
		return wrapDBErr("repository.ChatRepo.AppendMessage", err)
	}
	return nil
}

func (r *ChatRepo) ListMessages(ctx context.Context, conversationID string) ([]Message, error) {
	rows, err := r.db.SQL.QueryContext(ctx, `
		SELECT id, conversation_id, role, content, citations, confidence, created_at
		FROM messages WHERE conversation_id = ? ORDER BY created_at ASC`, conversationID)
	if err != nil {
		return nil, wrapDBErr("repository.ChatRepo.ListMessages", err)
	}
	defer rows.Close()
	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.Citations, &m.Confidence, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository.ChatRepo.ListMessages: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
