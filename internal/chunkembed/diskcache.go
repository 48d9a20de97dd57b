package chunkembed

import (
	"encoding/json"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// diskCache is the default embedding cache backend: one file per hash at
// {dir}/{sha256}.json. Generalized from the teacher's content-addressed
// cache_embeddings layout in cognitive-microservice.go.
type diskCache struct {
	dir    string
	logger *zap.Logger
}

func (c *diskCache) get(hash string) ([]float64, bool) {
	if c.dir == "" {
		return nil, false
	}
	data, err := os.ReadFile(filepath.Join(c.dir, hash+".json"))
	if err != nil {
		return nil, false
	}
	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}
	return entry.Embedding, true
}

// put is best-effort; failures are logged, never surfaced, per §4.4 "Cache
// write failures are non-fatal".
func (c *diskCache) put(entry cacheEntry) {
	if c.dir == "" {
		return
	}
	logger := c.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		logger.Warn("chunkembed.cache_marshal_failed", zap.Error(err))
		return
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		logger.Warn("chunkembed.cache_mkdir_failed", zap.Error(err))
		return
	}
	if err := os.WriteFile(filepath.Join(c.dir, entry.Hash+".json"), data, 0o644); err != nil {
		logger.Warn("chunkembed.cache_write_failed", zap.Error(err))
	}
}
