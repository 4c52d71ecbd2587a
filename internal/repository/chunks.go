package repository

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
)

// ChunkRepo persists markdown chunks and their embeddings. Embeddings are
// stored as a BLOB of little-endian float32s rather than JSON, matching the
// brute-force vector store's in-memory layout.
type ChunkRepo struct{ db *DB }

func NewChunkRepo(db *DB) *ChunkRepo { return &ChunkRepo{db: db} }

// ReplaceForDocument deletes existing chunks for documentID and inserts the
// given set, the same idempotent-reprocessing shape used elsewhere.
func (r *ChunkRepo) ReplaceForDocument(ctx context.Context, documentID string, chunks []Chunk) error {
	r.db.Mu.Lock()
	defer r.db.Mu.Unlock()

	if _, err := r.db.SQL.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, documentID); err != nil {
		return wrapDBErr("repository.ChunkRepo.ReplaceForDocument", err)
	}
	for _, c := range chunks {
		if _, err := r.db.SQL.ExecContext(ctx,
			`INSERT INTO chunks (chunk_id, document_id, content, embedding) VALUES (?, ?, ?, ?)`,
			c.ChunkID, documentID, c.Content, encodeEmbedding(c.Embedding)); err != nil {
			return fmt.Errorf("repository.ChunkRepo.ReplaceForDocument: %w", err)
		}
	}
	return nil
}

// ListAll returns every chunk joined with its parent document's type, date,
// and professional name, the denormalized shape the retriever needs for
// recency and parent-document boosting without a second query per chunk.
func (r *ChunkRepo) ListAll(ctx context.Context) ([]Chunk, error) {
	rows, err := r.db.SQL.QueryContext(ctx, `
		SELECT c.chunk_id, c.document_id, c.content, c.embedding,
			d.doc_type, d.document_date, p.name
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		LEFT JOIN professionals p ON p.id = d.professional_id`)
	if err != nil {
		return nil, wrapDBErr("repository.ChunkRepo.ListAll", err)
	}
	defer rows.Close()

	var out []Chunk
	for rows.Next() {
		var c Chunk
		var blob []byte
		if err := rows.Scan(&c.ChunkID, &c.DocumentID, &c.Content, &blob, &c.DocType, &c.DocDate, &c.ProfessionalName); err != nil {
			return nil, fmt.Errorf("repository.ChunkRepo.ListAll: %w", err)
		}
		c.Embedding = decodeEmbedding(blob)
		out = append(out, c)
	}
	return out, rows.Err()
}

func encodeEmbedding(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeEmbedding(buf []byte) []float32 {
	n := len(buf) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out
}
