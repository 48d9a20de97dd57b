package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postJSON(t *testing.T, url string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestAnalysisStartRejectsShortPrompt(t *testing.T) {
	h := buildHarness(t)
	req := postJSON(t, "/api/analysis/start", map[string]any{"prompt": "short"})
	rec := httptest.NewRecorder()

	h.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalysisStartRejectsUnknownExpert(t *testing.T) {
	h := buildHarness(t)
	req := postJSON(t, "/api/analysis/start", map[string]any{
		"prompt":           "a sufficiently long workplace injury prompt for validation purposes",
		"experts_selected": []string{"ghost_expert"},
	})
	rec := httptest.NewRecorder()

	h.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// No analysis job should have been admitted for a rejected request.
	assert.Empty(t, h.analysisJobs.List())
}

func TestAnalysisLifecycleCompletes(t *testing.T) {
	h := buildHarness(t)
	expertID := h.registry.Experts()[0].ID

	req := postJSON(t, "/api/analysis/start", map[string]any{
		"prompt":           "a workplace accident occurred and the worker was injured on site",
		"experts_selected": []string{expertID},
	})
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	analysisID, _ := body["analysis_id"].(string)
	require.NotEmpty(t, analysisID)

	require.Eventually(t, func() bool {
		job, err := h.analysisJobs.Get(analysisID)
		return err == nil && (job.Status == "COMPLETED" || job.Status == "ERROR")
	}, 2*time.Second, 10*time.Millisecond)

	resultReq := httptest.NewRequest(http.MethodGet, "/api/analysis/result/"+analysisID, nil)
	resultRec := httptest.NewRecorder()
	h.router.ServeHTTP(resultRec, resultReq)
	require.Equal(t, http.StatusOK, resultRec.Code)

	var result map[string]any
	require.NoError(t, json.Unmarshal(resultRec.Body.Bytes(), &result))
	assert.NotEmpty(t, result["compiled_answer"])
}

func TestListExpertsAndAttorneys(t *testing.T) {
	h := buildHarness(t)

	expertsReq := httptest.NewRequest(http.MethodGet, "/api/analysis/experts", nil)
	expertsRec := httptest.NewRecorder()
	h.router.ServeHTTP(expertsRec, expertsReq)
	require.Equal(t, http.StatusOK, expertsRec.Code)

	var experts map[string]any
	require.NoError(t, json.Unmarshal(expertsRec.Body.Bytes(), &experts))
	list, ok := experts["experts"].([]any)
	require.True(t, ok)
	assert.NotEmpty(t, list)

	attorneysReq := httptest.NewRequest(http.MethodGet, "/api/analysis/attorneys", nil)
	attorneysRec := httptest.NewRecorder()
	h.router.ServeHTTP(attorneysRec, attorneysReq)
	assert.Equal(t, http.StatusOK, attorneysRec.Code)
}

func TestMultiAgentLegacySynchronous(t *testing.T) {
	h := buildHarness(t)
	req := postJSON(t, "/api/analysis/multi-agent", map[string]any{
		"prompt": "a workplace accident occurred and the worker was injured on site",
	})
	rec := httptest.NewRecorder()

	h.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var result map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.NotEmpty(t, result["compiled_answer"])
}

func TestAnalysisResultTooEarly(t *testing.T) {
	h := buildHarness(t)
	_, err := h.analysisJobs.Create("an-pending", "prompt text", nil, nil, nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/analysis/result/an-pending", nil)
	rec := httptest.NewRecorder()

	h.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooEarly, rec.Code)
}
