package ollama

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legal-analysis-platform/internal/chunkembed"
	"legal-analysis-platform/internal/llmclient"
)

func TestCompleteConcatenatesStreamedChunks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		w.Write([]byte(`{"response":"The client ","done":false}` + "\n"))
		w.Write([]byte(`{"response":"was injured.","done":true}` + "\n"))
	}))
	defer srv.Close()

	c := New(srv.URL)
	result, err := c.Complete(context.Background(), llmclient.CompletionRequest{
		Prompt: "Summarize this case.",
		Model:  "llama3",
	})

	require.NoError(t, err)
	assert.Equal(t, "The client was injured.", result.Text)
	assert.Greater(t, result.OutputTokens, 0)
}

func TestCompleteMapsRateLimitToRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Complete(context.Background(), llmclient.CompletionRequest{Prompt: "q", Model: "llama3"})

	require.Error(t, err)
	var retryable *llmclient.RetryableError
	require.ErrorAs(t, err, &retryable)
	assert.Equal(t, "rate_limit", retryable.Kind)
}

func TestEmbedReturnsOneVectorPerText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = body
		w.Write([]byte(`{"embedding":[0.1,0.2,0.3]}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	vecs, err := c.Embed(context.Background(), []string{"a", "b", "c"}, "nomic-embed-text")

	require.NoError(t, err)
	require.Len(t, vecs, 3)
	for _, v := range vecs {
		assert.Equal(t, []float64{0.1, 0.2, 0.3}, v)
	}
}

func TestEmbedMapsRateLimitToRateLimitError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Embed(context.Background(), []string{"a"}, "nomic-embed-text")

	require.Error(t, err)
	var rle *chunkembed.RateLimitError
	require.ErrorAs(t, err, &rle)
}
