package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"legal-analysis-platform/internal/agent"
	"legal-analysis-platform/internal/analysisjobs"
	"legal-analysis-platform/internal/orchestrator"
)

// analysisStartRequest is the §6.1 POST /api/analysis/start body.
type analysisStartRequest struct {
	Prompt            string   `json:"prompt"`
	ExpertsSelected   []string `json:"experts_selected"`
	AttorneysSelected []string `json:"attorneys_selected"`
	DocumentIDs       []string `json:"document_ids"`
}

func (r analysisStartRequest) toRequest() orchestrator.Request {
	return orchestrator.Request{
		Prompt:            r.Prompt,
		ExpertsSelected:   r.ExpertsSelected,
		AttorneysSelected: r.AttorneysSelected,
		DocumentIDs:       r.DocumentIDs,
	}
}

// handleAnalysisStart implements POST /api/analysis/start. Validation
// (prompt length, known agent ids) happens synchronously before any job is
// created (§4.12, §4.14): a rejected request never admits a job.
func (s *Server) handleAnalysisStart(c *gin.Context) {
	var body analysisStartRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := validatePrompt(body.Prompt); err != nil {
		s.writeError(c, err)
		return
	}

	req := body.toRequest()
	if err := s.orchestrator.Validate(req); err != nil {
		s.writeError(c, err)
		return
	}

	analysisID := s.newID()
	// Detached: the background flow must outlive this request.
	if err := s.orchestrator.Start(context.Background(), analysisID, req); err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"analysis_id": analysisID,
		"status":      string(analysisjobs.StatusInitiated),
		"message":     "analysis started",
	})
}

// handleAnalysisStatus implements GET /api/analysis/status/{analysis_id}.
func (s *Server) handleAnalysisStatus(c *gin.Context) {
	job, err := s.analysisJobs.Get(c.Param("analysis_id"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	resp := gin.H{
		"analysis_id":      job.ID,
		"status":           string(job.Status),
		"current_stage":    job.CurrentStage,
		"progress_percent": job.Progress,
		"updated_at":       job.UpdatedAt.UTC().Format(iso8601),
	}
	if job.Status == analysisjobs.StatusError {
		resp["error_message"] = job.ErrorMessage
	}
	c.JSON(http.StatusOK, resp)
}

// handleAnalysisResult implements GET /api/analysis/result/{analysis_id}.
func (s *Server) handleAnalysisResult(c *gin.Context) {
	job, err := s.analysisJobs.Get(c.Param("analysis_id"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	switch job.Status {
	case analysisjobs.StatusCompleted:
		c.JSON(http.StatusOK, resultBody(job.ID, *job.Result))
	case analysisjobs.StatusError:
		c.JSON(http.StatusInternalServerError, gin.H{"error_message": job.ErrorMessage})
	default:
		c.JSON(http.StatusTooEarly, gin.H{"error_message": "analysis is not yet complete", "status": string(job.Status)})
	}
}

func resultBody(analysisID string, r analysisjobs.Result) gin.H {
	return gin.H{
		"analysis_id":         analysisID,
		"status":              string(analysisjobs.StatusCompleted),
		"compiled_answer":     r.CompiledAnswer,
		"expert_opinions":     opinionViews(r.ExpertOpinions),
		"attorney_opinions":   opinionViews(r.AttorneyOpinions),
		"documents_consulted": r.DocumentsConsulted,
		"experts_used":        r.ExpertsUsed,
		"attorneys_used":      r.AttorneysUsed,
		"confidence":          r.Confidence,
		"duration_seconds":    r.DurationSeconds(),
		"started_at":          r.StartedAt.UTC().Format(iso8601),
		"ended_at":            r.EndedAt.UTC().Format(iso8601),
	}
}

func opinionViews(views []analysisjobs.AgentOpinionView) []gin.H {
	out := make([]gin.H, 0, len(views))
	for _, v := range views {
		if v.Failed {
			out = append(out, gin.H{"agent_id": v.AgentID, "error": true, "error_message": v.ErrorMessage})
			continue
		}
		out = append(out, gin.H{
			"agent_id":          v.AgentID,
			"agent_name":        v.AgentName,
			"agent_type":        v.AgentType,
			"specialty":         v.Specialty,
			"opinion_text":      v.OpinionText,
			"self_confidence":   v.SelfConfidence,
			"referenced_docs":   v.ReferencedDocs,
			"cited_legislation": v.CitedLegislation,
		})
	}
	return out
}

// handleListExperts implements GET /api/analysis/experts.
func (s *Server) handleListExperts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"experts": identityViews(s.registry.Experts())})
}

// handleListAttorneys implements GET /api/analysis/attorneys.
func (s *Server) handleListAttorneys(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"attorneys": identityViews(s.registry.Attorneys())})
}

func identityViews(ids []agent.Identity) []gin.H {
	out := make([]gin.H, 0, len(ids))
	for _, id := range ids {
		out = append(out, gin.H{
			"id":          id.ID,
			"name":        id.Name,
			"description": id.Description,
			"specialty":   id.Specialty,
		})
	}
	return out
}

// handleMultiAgentLegacy reimplements the deprecated synchronous
// /api/analysis/multi-agent endpoint (Open Question, DESIGN.md #2):
// validates synchronously, runs the coordinator flow in-request via
// orchestrator.RunSync, and returns the full result directly instead of
// polling.
func (s *Server) handleMultiAgentLegacy(c *gin.Context) {
	var body analysisStartRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := validatePrompt(body.Prompt); err != nil {
		s.writeError(c, err)
		return
	}

	req := body.toRequest()
	if err := s.orchestrator.Validate(req); err != nil {
		s.writeError(c, err)
		return
	}

	result, err := s.orchestrator.RunSync(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error_message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resultBody("", result))
}
