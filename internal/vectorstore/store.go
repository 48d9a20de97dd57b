// Package vectorstore implements the Vector Store Adapter (C5): CRUD and
// similarity search over (chunk, embedding, metadata), generalized from the
// teacher's VectorStore.cosineSimilarity/calculateRelevance
// (go-enhanced-rag-service/vector_store.go) into a Store interface with an
// in-memory reference implementation and a Postgres/pgvector implementation.
package vectorstore

import (
	"context"
	"strconv"

	"legal-analysis-platform/internal/apperr"
)

// ChunkRecord is one persisted (chunk, embedding, metadata) tuple.
type ChunkRecord struct {
	ID         string // document_id + ":" + index
	DocumentID string
	Index      int
	Text       string
	Embedding  []float32
	Metadata   map[string]any
}

// SearchResult is a single ranked hit returned from Search.
type SearchResult struct {
	ChunkID    string
	DocumentID string
	Text       string
	Score      float32
	Metadata   map[string]any
}

// Filter restricts Search to a specific set of document ids.
type Filter struct {
	DocumentIDs []string
}

// Store is the C5 contract.
type Store interface {
	// Upsert writes all chunks/embeddings/metadata for a document atomically.
	Upsert(ctx context.Context, documentID string, chunks []ChunkRecord) error
	// Search returns the top-k most similar chunks to queryEmbedding.
	Search(ctx context.Context, queryEmbedding []float32, k int, filter *Filter) ([]SearchResult, error)
	// GetByDocument returns a document's chunks ordered by index.
	GetByDocument(ctx context.Context, documentID string) ([]ChunkRecord, error)
	// Delete removes every chunk belonging to documentID.
	Delete(ctx context.Context, documentID string) error
}

// StoreStats is a coarse summary of a store's contents, surfaced by the
// supplemented /api/vector-store/stats endpoint.
type StoreStats struct {
	DocumentCount int
	ChunkCount    int
}

// StatsProvider is an optional capability a Store implementation may expose.
// It is not part of the core C5 contract (every document-level query there
// is already served by GetByDocument/Search); kept separate so a Store that
// cannot cheaply answer it is not forced to implement it.
type StatsProvider interface {
	Stats(ctx context.Context) (StoreStats, error)
}

// chunkID is the deterministic identity rule from §3: document_id + ":" + index.
func chunkID(documentID string, index int) string {
	return documentID + ":" + strconv.Itoa(index)
}

// errEmptyQuery is returned when Search is called with a zero-length vector.
var errEmptyQuery = apperr.Validation("query embedding must not be empty")
