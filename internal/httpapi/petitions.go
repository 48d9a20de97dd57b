package httpapi

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"legal-analysis-platform/internal/extract"
	"legal-analysis-platform/internal/petition"
	"legal-analysis-platform/internal/uploadjobs"
)

// handlePetitionStart implements POST /api/petitions/start (multipart;
// optional action_type). Only .pdf/.docx are accepted (§6.1, no images).
// The petition is admitted immediately in AWAITING_DOCUMENTS while its
// document ingests in the background; BindDocument wires the two together
// once ingestion completes.
func (s *Server) handlePetitionStart(c *gin.Context) {
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

	dt, err := declaredType(header.Filename, petitionExtensions)
	if err != nil {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read uploaded file"})
		return
	}

	uploadID := s.newID()
	petitionID := s.newID()

	if _, err := s.uploadJobs.Create(uploadID, header.Filename, int64(len(data))); err != nil {
		s.writeError(c, err)
		return
	}
	if _, err := s.petitions.Start(petitionID, uploadID); err != nil {
		s.writeError(c, err)
		return
	}

	go s.runPetitionIngestion(petitionID, uploadID, data, header.Filename, dt)

	c.JSON(http.StatusAccepted, gin.H{
		"petition_id": petitionID,
		"upload_id":   uploadID,
		"status":      string(petition.StateAwaitingDocuments),
	})
}

// runPetitionIngestion drives the petition's own document through the
// ordinary ingestion pipeline, then binds the resulting document id, all on
// a context detached from the admitting request.
func (s *Server) runPetitionIngestion(petitionID, uploadID string, data []byte, fileName string, dt extract.DocumentType) {
	s.pipeline.Run(context.Background(), uploadID, data, fileName, dt)

	job, err := s.uploadJobs.Get(uploadID)
	if err != nil || job.Status != uploadjobs.StatusCompleted {
		return
	}
	if _, err := s.petitions.BindDocument(petitionID, job.Result.DocumentID); err != nil {
		s.logger.Warn("httpapi.petition_bind_failed", zap.String("petition_id", petitionID), zap.Error(err))
	}
}

// handlePetitionStatus implements GET /api/petitions/status/{petition_id},
// surfacing the full petition state including documents_suggested once
// ready.
func (s *Server) handlePetitionStatus(c *gin.Context) {
	p, err := s.petitions.Status(c.Param("petition_id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, petitionView(p))
}

func petitionView(p *petition.Petition) gin.H {
	body := gin.H{
		"petition_id":            p.ID,
		"upload_id":              p.UploadID,
		"document_id":            p.DocumentID,
		"status":                 string(p.State),
		"documents_suggested":    suggestedDocViews(p.SuggestedDocuments),
		"submitted_document_ids": p.SubmittedDocumentIDs,
		"experts_selected":       p.ExpertsSelected,
		"attorneys_selected":     p.AttorneysSelected,
		"created_at":             p.CreatedAt.UTC().Format(iso8601),
		"updated_at":             p.UpdatedAt.UTC().Format(iso8601),
	}
	if p.State == petition.StateError {
		body["error_message"] = p.ErrorMessage
	}
	if p.AnalysisResult != nil {
		body["compiled_answer"] = p.AnalysisResult.CompiledAnswer
	}
	if p.Prognosis != nil {
		body["prognosis"] = prognosisView(p.Prognosis)
	}
	if p.Draft != "" {
		body["draft"] = p.Draft
	}
	return body
}

func suggestedDocViews(docs []petition.SuggestedDocument) []gin.H {
	out := make([]gin.H, 0, len(docs))
	for _, d := range docs {
		out = append(out, gin.H{
			"type":          d.Type,
			"justification": d.Justification,
			"priority":      string(d.Priority),
		})
	}
	return out
}

func prognosisView(p *petition.Prognosis) gin.H {
	scenarios := make(gin.H, len(p.Probabilities))
	for scenario, prob := range p.Probabilities {
		scenarios[string(scenario)] = prob
	}
	body := gin.H{
		"scenarios":       scenarios,
		"recommendation":  p.Recommendation,
		"critical_factors": p.CriticalFactors,
	}
	if p.ValueRangeMin != nil {
		body["value_range_min"] = *p.ValueRangeMin
	}
	if p.ValueRangeMax != nil {
		body["value_range_max"] = *p.ValueRangeMax
	}
	if p.EstimatedDurationMonths != nil {
		body["estimated_duration_months"] = *p.EstimatedDurationMonths
	}
	return body
}

// handlePetitionAnalyzeDocuments implements
// POST /api/petitions/{petition_id}/analyze-documents. Per §5 "the HTTP
// layer never awaits a background job", the relevance step runs detached;
// the 202 response carries a snapshot taken before it completes. Idempotent
// re-invocation (§4.13) is enforced inside Workflow.AnalyzeDocuments itself.
func (s *Server) handlePetitionAnalyzeDocuments(c *gin.Context) {
	id := c.Param("petition_id")

	snapshot, err := s.petitions.Status(id)
	if err != nil {
		s.writeError(c, err)
		return
	}

	go func() {
		if _, err := s.petitions.AnalyzeDocuments(context.Background(), id); err != nil {
			s.logger.Warn("httpapi.analyze_documents_failed", zap.String("petition_id", id), zap.Error(err))
		}
	}()

	c.JSON(http.StatusAccepted, petitionView(snapshot))
}

// handlePetitionAddDocument implements
// POST /api/petitions/{petition_id}/add-document (multipart): ingests the
// submitted file exactly like the general document endpoint, then
// associates the resulting document id with the petition once ingestion
// completes.
func (s *Server) handlePetitionAddDocument(c *gin.Context) {
	petitionID := c.Param("petition_id")
	if _, err := s.petitions.Status(petitionID); err != nil {
		s.writeError(c, err)
		return
	}

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

	uploadID := s.newID()
	if _, err := s.uploadJobs.Create(uploadID, header.Filename, int64(len(data))); err != nil {
		s.writeError(c, err)
		return
	}

	go s.runAddDocumentIngestion(petitionID, uploadID, data, header.Filename, dt)

	c.JSON(http.StatusAccepted, gin.H{
		"upload_id": uploadID,
		"status":    string(uploadjobs.StatusInitiated),
	})
}

func (s *Server) runAddDocumentIngestion(petitionID, uploadID string, data []byte, fileName string, dt extract.DocumentType) {
	s.pipeline.Run(context.Background(), uploadID, data, fileName, dt)

	job, err := s.uploadJobs.Get(uploadID)
	if err != nil || job.Status != uploadjobs.StatusCompleted {
		return
	}
	if _, err := s.petitions.AddDocument(petitionID, job.Result.DocumentID); err != nil {
		s.logger.Warn("httpapi.petition_add_document_failed", zap.String("petition_id", petitionID), zap.Error(err))
	}
}

// petitionAnalyzeRequest is the §6.1 POST .../analyze body.
type petitionAnalyzeRequest struct {
	ExpertsSelected   []string `json:"experts_selected"`
	AttorneysSelected []string `json:"attorneys_selected"`
}

// handlePetitionAnalyze implements
// POST /api/petitions/{petition_id}/analyze. Selected agent ids are
// validated synchronously before the (detached) analyze->prognose->draft
// chain is kicked off; the result surfaces via status polling.
func (s *Server) handlePetitionAnalyze(c *gin.Context) {
	id := c.Param("petition_id")

	var body petitionAnalyzeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	for _, agentID := range append(append([]string{}, body.ExpertsSelected...), body.AttorneysSelected...) {
		if !s.registry.Known(agentID) {
			s.writeError(c, unknownAgentErr(agentID))
			return
		}
	}

	snapshot, err := s.petitions.Status(id)
	if err != nil {
		s.writeError(c, err)
		return
	}

	go func() {
		if _, err := s.petitions.Analyze(context.Background(), id, body.ExpertsSelected, body.AttorneysSelected); err != nil {
			s.logger.Warn("httpapi.petition_analyze_failed", zap.String("petition_id", id), zap.Error(err))
		}
	}()

	c.JSON(http.StatusAccepted, petitionView(snapshot))
}
