package ingest

import (
	"sync"
	"time"

	"legal-analysis-platform/internal/apperr"
)

// Document is the persisted identity introduced by a completed ingestion
// (§3 Document): never mutated after success, cascade-deleted with its
// chunks.
type Document struct {
	ID               string
	Name             string
	SizeBytes        int64
	Type             string
	PageCount        int
	Method           string
	OCRAvgConfidence *float64
	ChunkCount       int
	CreatedAt        time.Time
}

// DocumentStore is the process-wide table of completed documents.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string]Document
}

// NewDocumentStore builds an empty DocumentStore.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[string]Document)}
}

// Put writes a document, created once at the end of ingestion.
func (d *DocumentStore) Put(doc Document) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.docs[doc.ID] = doc
}

// Get returns a document by id.
func (d *DocumentStore) Get(id string) (Document, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	doc, ok := d.docs[id]
	if !ok {
		return Document{}, apperr.NotFound("document %s not found", id)
	}
	return doc, nil
}

// Delete removes a document's own record; callers are responsible for
// cascading the delete into the vector store (§3 Ownership).
func (d *DocumentStore) Delete(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.docs, id)
}
