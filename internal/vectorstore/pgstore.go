package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"legal-analysis-platform/internal/apperr"
)

// PGStore is the Postgres/pgvector-backed Store, the documented production
// swap for MemStore (§9). Embeddings are written using the pgVector literal
// format from the teacher's legal-gateway/worker.go (pgVector/verifyPgVector),
// generalized to the chunk/document schema of this spec.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore wraps an already-connected pool. Callers are expected to have
// run the schema migration (chunks table with a vector column) and verified
// the pgvector extension, mirroring verifyPgVector in the teacher.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// Upsert writes a document's chunks inside a single transaction: delete the
// prior set, then insert the new one, matching the "atomic per call" rule.
func (s *PGStore) Upsert(ctx context.Context, documentID string, chunks []ChunkRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return apperr.Upstream("vectorstore: begin tx: %v", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID); err != nil {
		return apperr.Upstream("vectorstore: clear prior chunks: %v", err)
	}

	for _, c := range chunks {
		id := chunkID(documentID, c.Index)
		_, err := tx.Exec(ctx,
			`INSERT INTO chunks (id, document_id, chunk_index, text, embedding, metadata)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			id, documentID, c.Index, c.Text, pgVectorLiteral(c.Embedding), metadataJSON(c.Metadata))
		if err != nil {
			return apperr.Upstream("vectorstore: insert chunk %s: %v", id, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Upstream("vectorstore: commit: %v", err)
	}
	return nil
}

// Search runs a pgvector cosine-distance nearest-neighbor query, optionally
// restricted to a document id set.
func (s *PGStore) Search(ctx context.Context, queryEmbedding []float32, k int, filter *Filter) ([]SearchResult, error) {
	if len(queryEmbedding) == 0 {
		return nil, errEmptyQuery
	}

	query := `SELECT id, document_id, text, metadata, 1 - (embedding <=> $1) AS score
	          FROM chunks`
	args := []any{pgVectorLiteral(queryEmbedding)}

	if filter != nil && len(filter.DocumentIDs) > 0 {
		placeholders := make([]string, len(filter.DocumentIDs))
		for i, id := range filter.DocumentIDs {
			args = append(args, id)
			placeholders[i] = "$" + strconv.Itoa(len(args))
		}
		query += fmt.Sprintf(" WHERE document_id IN (%s)", strings.Join(placeholders, ","))
	}

	query += " ORDER BY embedding <=> $1"
	if k > 0 {
		args = append(args, k)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Upstream("vectorstore: search query: %v", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var metaRaw []byte
		if err := rows.Scan(&r.ChunkID, &r.DocumentID, &r.Text, &metaRaw, &r.Score); err != nil {
			return nil, apperr.Upstream("vectorstore: scan row: %v", err)
		}
		r.Metadata = decodeMetadata(metaRaw)
		results = append(results, r)
	}
	return results, rows.Err()
}

// GetByDocument returns a document's chunks ordered by chunk_index.
func (s *PGStore) GetByDocument(ctx context.Context, documentID string) ([]ChunkRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, document_id, chunk_index, text, metadata
		 FROM chunks WHERE document_id = $1 ORDER BY chunk_index ASC`, documentID)
	if err != nil {
		return nil, apperr.Upstream("vectorstore: get by document: %v", err)
	}
	defer rows.Close()

	var out []ChunkRecord
	for rows.Next() {
		var c ChunkRecord
		var metaRaw []byte
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Index, &c.Text, &metaRaw); err != nil {
			return nil, apperr.Upstream("vectorstore: scan chunk: %v", err)
		}
		c.Metadata = decodeMetadata(metaRaw)
		out = append(out, c)
	}
	return out, rows.Err()
}

// Delete cascades by document_id prefix (§4.5 "cascade by id prefix").
func (s *PGStore) Delete(ctx context.Context, documentID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return apperr.Upstream("vectorstore: delete document %s: %v", documentID, err)
	}
	return nil
}

// Stats implements vectorstore.StatsProvider with a single aggregate query.
func (s *PGStore) Stats(ctx context.Context) (StoreStats, error) {
	var st StoreStats
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT document_id), COUNT(*) FROM chunks`,
	).Scan(&st.DocumentCount, &st.ChunkCount)
	if err != nil {
		return StoreStats{}, apperr.Upstream("vectorstore: stats query: %v", err)
	}
	return st, nil
}

// metadataJSON marshals a chunk's metadata map for storage in a jsonb
// column; nil metadata stores as an empty object.
func metadataJSON(meta map[string]any) []byte {
	if meta == nil {
		return []byte("{}")
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return []byte("{}")
	}
	return data
}

func decodeMetadata(raw []byte) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var meta map[string]any
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil
	}
	return meta
}

// pgVectorLiteral renders an embedding as the Postgres vector text literal,
// grounded on the teacher's pgVector helper.
func pgVectorLiteral(embedding []float32) string {
	var b strings.Builder
	b.WriteString("[")
	for i, v := range embedding {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, "%g", v)
	}
	b.WriteString("]")
	return b.String()
}
