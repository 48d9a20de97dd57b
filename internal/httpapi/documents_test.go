package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartUploadRejectsMissingFile(t *testing.T) {
	h := buildHarness(t)
	req := httptest.NewRequest(http.MethodPost, "/api/documents/start-upload", nil)
	rec := httptest.NewRecorder()

	h.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartUploadRejectsBadExtension(t *testing.T) {
	h := buildHarness(t)
	req := newMultipartUpload(t, "/api/documents/start-upload", "notes.txt", []byte("hello"), nil)
	rec := httptest.NewRecorder()

	h.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestStartUploadRejectsOversizeFile(t *testing.T) {
	h := buildHarness(t) // maxUploadMB=1 in the harness
	oversized := make([]byte, 2*1024*1024)
	req := newMultipartUpload(t, "/api/documents/start-upload", "brief.pdf", oversized, nil)
	rec := httptest.NewRecorder()

	h.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestStartUploadAdmitsAndCompletesInBackground(t *testing.T) {
	h := buildHarness(t)
	req := newMultipartUpload(t, "/api/documents/start-upload", "brief.pdf", []byte("%PDF-1.4 fake bytes"), nil)
	rec := httptest.NewRecorder()

	h.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	uploadID, _ := body["upload_id"].(string)
	require.NotEmpty(t, uploadID)
	assert.Equal(t, "INITIATED", body["status"])

	require.Eventually(t, func() bool {
		job, err := h.uploadJobs.Get(uploadID)
		return err == nil && (job.Status == "COMPLETED" || job.Status == "ERROR")
	}, 2*time.Second, 10*time.Millisecond)

	statusReq := httptest.NewRequest(http.MethodGet, "/api/documents/upload-status/"+uploadID, nil)
	statusRec := httptest.NewRecorder()
	h.router.ServeHTTP(statusRec, statusReq)
	assert.Equal(t, http.StatusOK, statusRec.Code)

	resultReq := httptest.NewRequest(http.MethodGet, "/api/documents/upload-result/"+uploadID, nil)
	resultRec := httptest.NewRecorder()
	h.router.ServeHTTP(resultRec, resultReq)
	require.Equal(t, http.StatusOK, resultRec.Code)

	var result map[string]any
	require.NoError(t, json.Unmarshal(resultRec.Body.Bytes(), &result))
	assert.NotEmpty(t, result["document_id"])
	assert.Equal(t, "brief.pdf", result["name"])
}

func TestUploadStatusUnknownID(t *testing.T) {
	h := buildHarness(t)
	req := httptest.NewRequest(http.MethodGet, "/api/documents/upload-status/does-not-exist", nil)
	rec := httptest.NewRecorder()

	h.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadResultTooEarly(t *testing.T) {
	h := buildHarness(t)
	_, err := h.uploadJobs.Create("up-pending", "brief.pdf", 10)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/documents/upload-result/up-pending", nil)
	rec := httptest.NewRecorder()

	h.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooEarly, rec.Code)
}
