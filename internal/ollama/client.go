// Package ollama is the concrete binding to a local Ollama server for the
// LLM Gateway's Completer (C1) and the Chunker & Embedder's
// EmbeddingCompleter (C4). Both the chat-completion and embedding contracts
// are external-collaborator Non-goals in the abstract; this is the
// concrete implementation cmd/server wires by default, grounded on
// cognitive-microservice.go's getOllamaSummary/getOllamaEmbeddings (same
// OLLAMA_HOST default, /api/generate NDJSON streaming decode, and
// /api/embeddings call shape) minus that file's Redis cache and circuit
// breaker. Retry/backoff lives one layer up in llmclient.Gateway and
// chunkembed.Embedder, and embedding caching in chunkembed.Embedder; no
// layer has a circuit breaker.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"legal-analysis-platform/internal/chunkembed"
	"legal-analysis-platform/internal/llmclient"
)

// Client is a thin HTTP binding to an Ollama server. Retry/backoff is the
// caller's job (llmclient.Gateway, chunkembed.Embedder); Client only
// classifies failures as retryable or not.
type Client struct {
	host       string
	httpClient *http.Client
}

// New builds a Client against host, e.g. "http://localhost:11434".
func New(host string) *Client {
	return &Client{
		host:       strings.TrimRight(host, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type generateChunk struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Complete implements llmclient.Completer via Ollama's streaming
// /api/generate endpoint, concatenating every NDJSON chunk's response
// field, the way getOllamaSummary does.
func (c *Client) Complete(ctx context.Context, req llmclient.CompletionRequest) (llmclient.CompletionResult, error) {
	prompt := req.Prompt
	if req.System != "" {
		prompt = req.System + "\n\n" + req.Prompt
	}

	payload, err := json.Marshal(map[string]any{
		"model":  req.Model,
		"prompt": prompt,
		"options": map[string]any{
			"temperature": req.Temperature,
			"num_predict": req.MaxTokens,
		},
	})
	if err != nil {
		return llmclient.CompletionResult{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return llmclient.CompletionResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return llmclient.CompletionResult{}, &llmclient.RetryableError{Kind: "timeout", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return llmclient.CompletionResult{}, &llmclient.RetryableError{Kind: "rate_limit", Err: fmt.Errorf("ollama status %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return llmclient.CompletionResult{}, fmt.Errorf("ollama generate: status %d", resp.StatusCode)
	}

	var sb strings.Builder
	dec := json.NewDecoder(resp.Body)
	for dec.More() {
		var chunk generateChunk
		if err := dec.Decode(&chunk); err != nil {
			return llmclient.CompletionResult{}, &llmclient.RetryableError{Kind: "timeout", Err: err}
		}
		sb.WriteString(chunk.Response)
	}

	text := strings.TrimSpace(sb.String())
	return llmclient.CompletionResult{
		Text:         text,
		InputTokens:  len(strings.Fields(prompt)),
		OutputTokens: len(strings.Fields(text)),
	}, nil
}

type embeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Embed implements chunkembed.EmbeddingCompleter via Ollama's
// /api/embeddings endpoint, called once per text since Ollama has no
// native batch-embedding call.
func (c *Client) Embed(ctx context.Context, texts []string, model string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		vec, err := c.embedOne(ctx, text, model)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (c *Client) embedOne(ctx context.Context, text, model string) ([]float64, error) {
	payload, err := json.Marshal(map[string]string{"model": model, "prompt": text})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &chunkembed.RateLimitError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &chunkembed.RateLimitError{Err: fmt.Errorf("ollama embeddings status %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama embeddings: status %d", resp.StatusCode)
	}

	var parsed embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	return parsed.Embedding, nil
}
