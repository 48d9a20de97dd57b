package llmclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legal-analysis-platform/internal/apperr"
)

var fastBackoff = []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}

type fakeCompleter struct {
	calls   int
	failN   int // fail this many times before succeeding
	kind    string
	hardErr error
}

func (f *fakeCompleter) Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error) {
	f.calls++
	if f.hardErr != nil {
		return CompletionResult{}, f.hardErr
	}
	if f.calls <= f.failN {
		return CompletionResult{}, &RetryableError{Kind: f.kind, Err: errors.New("boom")}
	}
	return CompletionResult{Text: "ok", InputTokens: 10, OutputTokens: 20}, nil
}

func TestGatewaySucceedsAfterRetries(t *testing.T) {
	fc := &fakeCompleter{failN: 2, kind: "rate_limit"}
	gw := New(fc, nil).WithBackoff(fastBackoff)

	res, err := gw.Call(context.Background(), CompletionRequest{Model: "gpt-4"})
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Text)
	assert.Equal(t, 3, fc.calls)
}

func TestGatewayFailsFastOnNonRetryable(t *testing.T) {
	fc := &fakeCompleter{hardErr: errors.New("nope")}
	gw := New(fc, nil)

	_, err := gw.Call(context.Background(), CompletionRequest{Model: "gpt-4"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindUpstream, apperr.Classify(err))
	assert.Equal(t, 1, fc.calls)
}

func TestGatewayTerminalRateLimit(t *testing.T) {
	fc := &fakeCompleter{failN: 100, kind: "rate_limit"}
	gw := New(fc, nil).WithBackoff(fastBackoff)

	_, err := gw.Call(context.Background(), CompletionRequest{Model: "gpt-4"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrRateLimit))
	assert.Equal(t, maxAttempts, fc.calls)
}

func TestGatewayTerminalTimeout(t *testing.T) {
	fc := &fakeCompleter{failN: 100, kind: "timeout"}
	gw := New(fc, nil).WithBackoff(fastBackoff)

	_, err := gw.Call(context.Background(), CompletionRequest{Model: "gpt-4"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrTimeout))
}

func TestGatewayUsageAccounting(t *testing.T) {
	fc := &fakeCompleter{}
	gw := New(fc, nil)

	_, err := gw.Call(context.Background(), CompletionRequest{Model: "gpt-4"})
	require.NoError(t, err)
	_, err = gw.Call(context.Background(), CompletionRequest{Model: "gpt-4"})
	require.NoError(t, err)

	snap := gw.Usage()
	assert.Equal(t, int64(2), snap.TotalCalls)
	assert.Equal(t, int64(20), snap.TotalInputTokens)
	assert.Equal(t, int64(40), snap.TotalOutputTokens)
	assert.Greater(t, snap.EstimatedCostUSD, 0.0)
}
