package analysisjobs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRejectsDuplicateID(t *testing.T) {
	s := New()
	_, err := s.Create("a-1", "what happened", nil, nil, nil)
	require.NoError(t, err)

	_, err = s.Create("a-1", "again", nil, nil, nil)
	require.Error(t, err)
}

func TestRecordResultIsImmutableOnceCompleted(t *testing.T) {
	s := New()
	_, err := s.Create("a-1", "prompt", nil, nil, nil)
	require.NoError(t, err)

	require.NoError(t, s.RecordResult("a-1", Result{CompiledAnswer: "first answer"}))
	require.NoError(t, s.RecordResult("a-1", Result{CompiledAnswer: "second answer"}))

	job, err := s.Get("a-1")
	require.NoError(t, err)
	assert.Equal(t, "first answer", job.Result.CompiledAnswer)
}

func TestProgressNeverRegresses(t *testing.T) {
	s := New()
	_, err := s.Create("a-1", "prompt", nil, nil, nil)
	require.NoError(t, err)

	require.NoError(t, s.UpdateStage("a-1", "compiling", 80))
	require.NoError(t, s.UpdateStage("a-1", "stale", 30))

	job, err := s.Get("a-1")
	require.NoError(t, err)
	assert.Equal(t, 80, job.Progress)
}

func TestDurationSecondsComputed(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(42 * time.Second)
	r := Result{StartedAt: start, EndedAt: end}
	assert.InDelta(t, 42.0, r.DurationSeconds(), 0.001)
}

func TestErrorThenResultIsNoOp(t *testing.T) {
	s := New()
	_, err := s.Create("a-1", "prompt", nil, nil, nil)
	require.NoError(t, err)

	require.NoError(t, s.RecordError("a-1", "boom", "COMPILE_FAILED"))
	require.NoError(t, s.RecordResult("a-1", Result{CompiledAnswer: "too late"}))

	job, err := s.Get("a-1")
	require.NoError(t, err)
	assert.Equal(t, StatusError, job.Status)
	assert.Nil(t, job.Result)
}
