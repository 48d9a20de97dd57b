// Package config loads the environment-variable surface listed in the
// external interfaces spec, following the getenv/getenvInt pattern used
// across the teacher services' main.go files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds every recognized environment option.
type Config struct {
	LLMAPIKey               string
	LLMAnalysisModel        string
	LLMEmbeddingModel       string
	LLMAnalysisTemperature  float64
	LLMExpertTemperature    float64
	ChunkMaxTokens          int
	ChunkOverlapTokens      int
	UploadMaxMB             int
	UploadTempPath          string
	VectorStorePath         string
	OCRLanguage             string
	OCRDPI                  int
	OCRLowConfThreshold     int
	CORSOrigins             []string
	LogLevel                string
	EmbeddingCacheDir       string
}

// Load reads a .env file if present (non-fatal if missing) and builds a
// Config from the process environment, applying the documented defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	apiKey := os.Getenv("LLM_API_KEY")
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("LLM_API_KEY is required")
	}

	overlap := getenvInt("CHUNK_OVERLAP_TOKENS", 50)
	maxTokens := getenvInt("CHUNK_MAX_TOKENS", 500)
	if overlap >= maxTokens {
		return nil, fmt.Errorf("CHUNK_OVERLAP_TOKENS (%d) must be < CHUNK_MAX_TOKENS (%d)", overlap, maxTokens)
	}

	cfg := &Config{
		LLMAPIKey:              apiKey,
		LLMAnalysisModel:       getenv("LLM_ANALYSIS_MODEL", "gpt-4"),
		LLMEmbeddingModel:      getenv("LLM_EMBEDDING_MODEL", "text-embedding-ada-002"),
		LLMAnalysisTemperature: getenvFloat("LLM_ANALYSIS_TEMPERATURE", 0.3),
		LLMExpertTemperature:   getenvFloat("LLM_EXPERT_TEMPERATURE", 0.2),
		ChunkMaxTokens:         maxTokens,
		ChunkOverlapTokens:     overlap,
		UploadMaxMB:            getenvInt("UPLOAD_MAX_MB", 50),
		UploadTempPath:         getenv("UPLOAD_TEMP_PATH", os.TempDir()),
		VectorStorePath:        getenv("VECTOR_STORE_PATH", "data/vector_store"),
		OCRLanguage:            getenv("OCR_LANGUAGE", "por"),
		OCRDPI:                 getenvInt("OCR_DPI", 300),
		OCRLowConfThreshold:    getenvInt("OCR_LOW_CONF_THRESHOLD", 50),
		CORSOrigins:            splitCSV(getenv("CORS_ORIGINS", "*")),
		LogLevel:               getenv("LOG_LEVEL", "info"),
		EmbeddingCacheDir:      getenv("EMBEDDING_CACHE_DIR", "data/cache_embeddings"),
	}

	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
