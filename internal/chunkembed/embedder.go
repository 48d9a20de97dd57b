package chunkembed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"go.uber.org/zap"

	"legal-analysis-platform/internal/apperr"
)

// batchSize is the max chunks sent per embedding API call (§4.4 backpressure).
const batchSize = 100

// embedRetryAttempts/embedRetryDelay implement the "retry on rate-limit with
// 60s backoff, max 3 attempts" rule.
const embedRetryAttempts = 3

var embedRetryDelay = 60 * time.Second

// EmbeddingCompleter is the abstract embedding-model collaborator. The
// concrete API client is an external collaborator.
type EmbeddingCompleter interface {
	Embed(ctx context.Context, texts []string, model string) ([][]float64, error)
}

// RateLimitError lets an EmbeddingCompleter signal a retryable failure.
type RateLimitError struct {
	Err error
}

func (e *RateLimitError) Error() string { return "rate limited: " + e.Err.Error() }
func (e *RateLimitError) Unwrap() error { return e.Err }

// cacheEntry is the content-addressed payload keyed by sha256(text+model).
type cacheEntry struct {
	Embedding []float64 `json:"embedding"`
	Timestamp string    `json:"timestamp"`
	Model     string    `json:"model"`
	Hash      string    `json:"hash"`
}

// cache is the embedding cache backend seam. diskCache (the default, at
// EMBEDDING_CACHE_DIR) and RedisCache (the documented later swap, per §9
// "Redis with TTL is the intended later swap") both implement it.
type cache interface {
	get(hash string) ([]float64, bool)
	put(entry cacheEntry)
}

// Embedder batches cache-miss chunks to an EmbeddingCompleter and persists
// results to a content-addressed cache.
type Embedder struct {
	completer EmbeddingCompleter
	cache     cache
	model     string
	logger    *zap.Logger
	now       func() time.Time
}

// NewEmbedder builds an Embedder backed by the on-disk cache. cacheDir/model
// come from EMBEDDING_CACHE_DIR/LLM_EMBEDDING_MODEL.
func NewEmbedder(completer EmbeddingCompleter, cacheDir, model string, logger *zap.Logger) *Embedder {
	return NewEmbedderWithCache(completer, &diskCache{dir: cacheDir, logger: logger}, model, logger)
}

// NewEmbedderWithCache builds an Embedder against an arbitrary cache
// backend, e.g. a RedisCache in place of the default diskCache.
func NewEmbedderWithCache(completer EmbeddingCompleter, c cache, model string, logger *zap.Logger) *Embedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{completer: completer, cache: c, model: model, logger: logger, now: time.Now}
}

// Embed returns one vector per input text, in the original input order,
// consulting the on-disk cache first and batching misses up to batchSize
// per API call.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	results := make([][]float64, len(texts))
	hashes := make([]string, len(texts))

	var missIdx []int
	for i, text := range texts {
		h := e.hash(text)
		hashes[i] = h
		if vec, ok := e.cache.get(h); ok {
			results[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
	}

	for start := 0; start < len(missIdx); start += batchSize {
		end := start + batchSize
		if end > len(missIdx) {
			end = len(missIdx)
		}
		batch := missIdx[start:end]

		batchTexts := make([]string, len(batch))
		for j, idx := range batch {
			batchTexts[j] = texts[idx]
		}

		vecs, err := e.embedWithRetry(ctx, batchTexts)
		if err != nil {
			return nil, err
		}
		if len(vecs) != len(batch) {
			return nil, apperr.Upstream("embedding response size mismatch: got %d want %d", len(vecs), len(batch))
		}

		for j, idx := range batch {
			results[idx] = vecs[j]
			e.cache.put(cacheEntry{
				Embedding: vecs[j],
				Timestamp: e.now().UTC().Format(time.RFC3339),
				Model:     e.model,
				Hash:      hashes[idx],
			})
		}
	}

	return results, nil
}

func (e *Embedder) embedWithRetry(ctx context.Context, texts []string) ([][]float64, error) {
	var lastErr error
	for attempt := 0; attempt < embedRetryAttempts; attempt++ {
		vecs, err := e.completer.Embed(ctx, texts, e.model)
		if err == nil {
			return vecs, nil
		}

		var rle *RateLimitError
		if !errors.As(err, &rle) {
			return nil, apperr.Upstream("embedding call failed: %v", err)
		}
		lastErr = err
		if attempt == embedRetryAttempts-1 {
			break
		}

		e.logger.Warn("chunkembed.retry", zap.Int("attempt", attempt+1), zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, apperr.Upstream("embedding call canceled: %v", ctx.Err())
		case <-time.After(embedRetryDelay):
		}
	}
	return nil, apperr.Upstream("embedding rate limited after %d attempts: %v", embedRetryAttempts, lastErr)
}

func (e *Embedder) hash(text string) string {
	sum := sha256.Sum256([]byte(text + e.model))
	return hex.EncodeToString(sum[:])
}
