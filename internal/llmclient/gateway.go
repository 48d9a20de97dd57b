// Package llmclient implements the LLM Gateway: the single chokepoint every
// agent and workflow step uses to call the language model. Retry/backoff
// shape is grounded on the withRetry helper and circuit breaker in the
// teacher's cognitive-microservice.go, generalized to the chat-completion
// contract and the "up to three attempts, fail fast on non-retryable
// errors" rule from the component design.
package llmclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"legal-analysis-platform/internal/apperr"
	"legal-analysis-platform/internal/metrics"
)

// Completer is the abstract LLM chat-completion collaborator. The concrete
// API client is an external collaborator out of scope for this core.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error)
}

// CompletionRequest is the (messages, model, temperature, max_tokens) contract.
type CompletionRequest struct {
	System      string
	Prompt      string
	Model       string
	Temperature float64
	MaxTokens   int
}

// CompletionResult carries the raw text plus token usage for a single call.
type CompletionResult struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// RetryableError lets a Completer tell the gateway a failure is transient
// (rate-limit or timeout) instead of a hard failure that should fail fast.
type RetryableError struct {
	Kind string // "rate_limit" or "timeout"
	Err  error
}

func (e *RetryableError) Error() string { return fmt.Sprintf("%s: %v", e.Kind, e.Err) }
func (e *RetryableError) Unwrap() error { return e.Err }

// ModelPricing is a static per-model price (USD per 1K tokens).
type ModelPricing struct {
	InputPerK  float64
	OutputPerK float64
}

// DefaultPriceTable mirrors commonly deployed chat/embedding model tiers.
var DefaultPriceTable = map[string]ModelPricing{
	"gpt-4":                  {InputPerK: 0.03, OutputPerK: 0.06},
	"gpt-4-turbo":            {InputPerK: 0.01, OutputPerK: 0.03},
	"gpt-3.5-turbo":          {InputPerK: 0.0015, OutputPerK: 0.002},
	"text-embedding-ada-002": {InputPerK: 0.0001, OutputPerK: 0},
}

// Usage accumulates process-level aggregates. Guarded with atomics so
// concurrent specialist calls never race (§4.1 "not thread-safe for
// aggregates" is resolved here in favor of atomic counters).
type Usage struct {
	TotalCalls  int64
	TotalInput  int64
	TotalOutput int64
	costCents   int64 // accumulated in hundredths of a cent to avoid float races
}

func (u *Usage) record(model string, in, out int) {
	atomic.AddInt64(&u.TotalCalls, 1)
	atomic.AddInt64(&u.TotalInput, int64(in))
	atomic.AddInt64(&u.TotalOutput, int64(out))

	pricing, ok := DefaultPriceTable[model]
	if !ok {
		return
	}
	cost := (float64(in)/1000.0)*pricing.InputPerK + (float64(out)/1000.0)*pricing.OutputPerK
	atomic.AddInt64(&u.costCents, int64(cost*10000))
}

// Snapshot is a point-in-time read of the usage aggregates.
type Snapshot struct {
	TotalCalls       int64
	TotalInputTokens int64
	TotalOutputTokens int64
	EstimatedCostUSD float64
}

func (u *Usage) Snapshot() Snapshot {
	return Snapshot{
		TotalCalls:        atomic.LoadInt64(&u.TotalCalls),
		TotalInputTokens:  atomic.LoadInt64(&u.TotalInput),
		TotalOutputTokens: atomic.LoadInt64(&u.TotalOutput),
		EstimatedCostUSD:  float64(atomic.LoadInt64(&u.costCents)) / 10000.0,
	}
}

// BackoffSchedule is the fixed 1s/2s/4s exponential delay sequence.
var BackoffSchedule = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

// maxAttempts caps how many times Call invokes the Completer for one request.
const maxAttempts = 3

// Gateway applies retry-with-backoff and usage accounting around a Completer.
type Gateway struct {
	completer Completer
	logger    *zap.Logger
	usage     Usage
	backoff   []time.Duration
	mu        sync.Mutex // guards nothing shared today; reserved per §4.1's "or mutex" option
}

// New builds a Gateway around the given Completer.
func New(completer Completer, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{completer: completer, logger: logger, backoff: BackoffSchedule}
}

// WithBackoff overrides the retry delay schedule (used by tests to avoid
// real sleeps); production callers should leave the default in place.
func (g *Gateway) WithBackoff(schedule []time.Duration) *Gateway {
	g.backoff = schedule
	return g
}

// Call applies up to three attempts with exponential backoff on retryable
// errors; non-retryable errors fail fast. On terminal failure it returns a
// distinctly classified apperr.
func (g *Gateway) Call(ctx context.Context, req CompletionRequest) (CompletionResult, error) {
	started := time.Now()
	defer func() {
		metrics.LLMCallDuration.WithLabelValues(req.Model).Observe(time.Since(started).Seconds())
	}()

	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		result, err := g.completer.Complete(ctx, req)
		if err == nil {
			g.usage.record(req.Model, result.InputTokens, result.OutputTokens)
			metrics.LLMCallsTotal.WithLabelValues(req.Model, "ok").Inc()
			return result, nil
		}

		var retryable *RetryableError
		if !errors.As(err, &retryable) {
			metrics.LLMCallsTotal.WithLabelValues(req.Model, "failed").Inc()
			return CompletionResult{}, apperr.Upstream("llm call failed: %v", err)
		}

		lastErr = err
		metrics.LLMCallsTotal.WithLabelValues(req.Model, "retry").Inc()
		if attempt == maxAttempts-1 || attempt >= len(g.backoff) {
			break
		}

		g.logger.Warn("llmclient.retry",
			zap.Int("attempt", attempt+1),
			zap.String("kind", retryable.Kind),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return CompletionResult{}, apperr.Upstream("llm call canceled: %v", ctx.Err())
		case <-time.After(g.backoff[attempt]):
		}
	}

	var retryable *RetryableError
	if errors.As(lastErr, &retryable) && retryable.Kind == "rate_limit" {
		metrics.LLMCallsTotal.WithLabelValues(req.Model, "rate_limit").Inc()
		return CompletionResult{}, fmt.Errorf("%w: %v", apperr.ErrRateLimit, lastErr)
	}
	metrics.LLMCallsTotal.WithLabelValues(req.Model, "timeout").Inc()
	return CompletionResult{}, fmt.Errorf("%w: %v", apperr.ErrTimeout, lastErr)
}

// Usage returns a snapshot of process-level aggregates.
func (g *Gateway) Usage() Snapshot {
	return g.usage.Snapshot()
}
