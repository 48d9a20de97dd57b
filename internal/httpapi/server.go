// Package httpapi implements the HTTP Surface (C14): a thin gin layer that
// validates requests (§4.14) and translates them into calls against the
// Upload Job Manager (C7), Analysis Job Manager (C11), Orchestrator (C12),
// and Petition Workflow (C13). Router/middleware shape is grounded on
// document-chunker/main.go's gin.New()+Logger+Recovery+manual-CORS setup;
// multipart upload handling is grounded on unified-rag-service/main.go's
// uploadDocumentHandler (c.Request.FormFile, gin.H{"success":...} bodies).
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"legal-analysis-platform/internal/agent"
	"legal-analysis-platform/internal/analysisjobs"
	"legal-analysis-platform/internal/ingest"
	"legal-analysis-platform/internal/llmclient"
	"legal-analysis-platform/internal/orchestrator"
	"legal-analysis-platform/internal/petition"
	"legal-analysis-platform/internal/uploadjobs"
	"legal-analysis-platform/internal/vectorstore"
)

// Registry is the subset of agent.Registry the HTTP surface needs for
// synchronous id validation and the experts/attorneys listing endpoints.
type Registry interface {
	Known(id string) bool
	Experts() []agent.Identity
	Attorneys() []agent.Identity
}

// Server holds every collaborator the HTTP surface translates requests into.
type Server struct {
	uploadJobs     *uploadjobs.Store
	analysisJobs   *analysisjobs.Store
	documents      *ingest.DocumentStore
	pipeline       *ingest.Pipeline
	vectorStore    vectorstore.Store
	orchestrator   *orchestrator.Orchestrator
	registry       Registry
	petitions      *petition.Workflow
	gateway        *llmclient.Gateway
	maxUploadBytes int64
	logger         *zap.Logger
	newID          func() string
}

// New builds a Server. maxUploadMB is UPLOAD_MAX_MB from config (§6.4).
func New(
	uploadJobs *uploadjobs.Store,
	analysisJobs *analysisjobs.Store,
	documents *ingest.DocumentStore,
	pipeline *ingest.Pipeline,
	vectorStore vectorstore.Store,
	orch *orchestrator.Orchestrator,
	registry Registry,
	petitions *petition.Workflow,
	gateway *llmclient.Gateway,
	maxUploadMB int,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		uploadJobs:     uploadJobs,
		analysisJobs:   analysisJobs,
		documents:      documents,
		pipeline:       pipeline,
		vectorStore:    vectorStore,
		orchestrator:   orch,
		registry:       registry,
		petitions:      petitions,
		gateway:        gateway,
		maxUploadBytes: int64(maxUploadMB) * 1024 * 1024,
		logger:         logger,
		newID:          uuid.NewString,
	}
}

// NewRouter builds the gin.Engine with every route from §6.1 registered.
func NewRouter(s *Server, corsOrigins []string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(corsMiddleware(corsOrigins))

	r.GET("/health", s.handleHealth)

	docs := r.Group("/api/documents")
	{
		docs.POST("/start-upload", s.handleStartUpload)
		docs.GET("/upload-status/:upload_id", s.handleUploadStatus)
		docs.GET("/upload-result/:upload_id", s.handleUploadResult)
	}

	analysis := r.Group("/api/analysis")
	{
		analysis.POST("/start", s.handleAnalysisStart)
		analysis.GET("/status/:analysis_id", s.handleAnalysisStatus)
		analysis.GET("/result/:analysis_id", s.handleAnalysisResult)
		analysis.GET("/experts", s.handleListExperts)
		analysis.GET("/attorneys", s.handleListAttorneys)
		analysis.POST("/multi-agent", s.handleMultiAgentLegacy)
	}

	petitions := r.Group("/api/petitions")
	{
		petitions.POST("/start", s.handlePetitionStart)
		petitions.GET("/status/:petition_id", s.handlePetitionStatus)
		petitions.POST("/:petition_id/analyze-documents", s.handlePetitionAnalyzeDocuments)
		petitions.POST("/:petition_id/add-document", s.handlePetitionAddDocument)
		petitions.POST("/:petition_id/analyze", s.handlePetitionAnalyze)
	}

	r.GET("/api/llm/usage", s.handleLLMUsage)
	r.GET("/api/vector-store/stats", s.handleVectorStoreStats)

	return r
}

// corsMiddleware mirrors document-chunker/main.go's manual CORS closure,
// generalized to a configured origin allow-list (CORS_ORIGINS, §6.4)
// instead of a hardcoded "*".
func corsMiddleware(origins []string) gin.HandlerFunc {
	allowAll := len(origins) == 0
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		switch {
		case allowAll:
			c.Header("Access-Control-Allow-Origin", "*")
		case allowed[origin]:
			c.Header("Access-Control-Allow-Origin", origin)
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"services": gin.H{
			"upload_jobs":   "ok",
			"analysis_jobs": "ok",
			"vector_store":  "ok",
		},
	})
}

func (s *Server) handleLLMUsage(c *gin.Context) {
	snap := s.gateway.Usage()
	c.JSON(http.StatusOK, gin.H{
		"total_calls":         snap.TotalCalls,
		"total_input_tokens":  snap.TotalInputTokens,
		"total_output_tokens": snap.TotalOutputTokens,
		"estimated_cost_usd":  snap.EstimatedCostUSD,
	})
}

func (s *Server) handleVectorStoreStats(c *gin.Context) {
	provider, ok := s.vectorStore.(vectorstore.StatsProvider)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"supported": false})
		return
	}
	stats, err := provider.Stats(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"supported":      true,
		"document_count": stats.DocumentCount,
		"chunk_count":    stats.ChunkCount,
	})
}
