package httpapi

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"legal-analysis-platform/internal/uploadjobs"
)

// handleStartUpload implements POST /api/documents/start-upload (§6.1).
// Validation (missing file, bad extension, size) happens before any job is
// admitted or background work starts (§4.14).
func (s *Server) handleStartUpload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}
	defer file.Close()

	if err := validateSize(header.Size, s.maxUploadBytes); err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		return
	}

	dt, err := declaredType(header.Filename, documentExtensions)
	if err != nil {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read uploaded file"})
		return
	}
	if int64(len(data)) > s.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds maximum upload size"})
		return
	}

	uploadID := s.newID()
	if _, err := s.uploadJobs.Create(uploadID, header.Filename, int64(len(data))); err != nil {
		s.writeError(c, err)
		return
	}

	// Detached from the request context: the background ingestion run must
	// outlive the HTTP response that admitted it.
	go s.pipeline.Run(context.Background(), uploadID, data, header.Filename, dt)

	c.JSON(http.StatusAccepted, gin.H{
		"upload_id": uploadID,
		"status":    string(uploadjobs.StatusInitiated),
	})
}

// handleUploadStatus implements GET /api/documents/upload-status/{upload_id}.
func (s *Server) handleUploadStatus(c *gin.Context) {
	job, err := s.uploadJobs.Get(c.Param("upload_id"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	resp := gin.H{
		"upload_id":       job.ID,
		"status":          string(job.Status),
		"current_stage":   job.CurrentStage,
		"progress_percent": job.Progress,
		"updated_at":      job.UpdatedAt.UTC().Format(iso8601),
	}
	if job.Status == uploadjobs.StatusError {
		resp["error_message"] = job.ErrorMessage
	}
	c.JSON(http.StatusOK, resp)
}

// handleUploadResult implements GET /api/documents/upload-result/{upload_id}.
func (s *Server) handleUploadResult(c *gin.Context) {
	job, err := s.uploadJobs.Get(c.Param("upload_id"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	switch job.Status {
	case uploadjobs.StatusCompleted:
		r := job.Result
		body := gin.H{
			"document_id": r.DocumentID,
			"page_count":  r.PageCount,
			"method":      r.Method,
			"chunk_count": r.ChunkCount,
		}
		if r.OCRAvgConfidence != nil {
			body["ocr_avg_confidence"] = *r.OCRAvgConfidence
		}
		if doc, err := s.documents.Get(r.DocumentID); err == nil {
			body["name"] = doc.Name
			body["size"] = doc.SizeBytes
			body["type"] = doc.Type
			body["created_at"] = doc.CreatedAt.UTC().Format(iso8601)
		}
		c.JSON(http.StatusOK, body)
	case uploadjobs.StatusError:
		c.JSON(http.StatusInternalServerError, gin.H{"error_message": job.ErrorMessage})
	default:
		c.JSON(http.StatusTooEarly, gin.H{"error_message": "upload is not yet complete", "status": string(job.Status)})
	}
}

const iso8601 = "2006-01-02T15:04:05Z07:00"
