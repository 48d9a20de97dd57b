package httpapi

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"legal-analysis-platform/internal/agent"
	"legal-analysis-platform/internal/analysisjobs"
	"legal-analysis-platform/internal/chunkembed"
	"legal-analysis-platform/internal/coordinator"
	"legal-analysis-platform/internal/extract"
	"legal-analysis-platform/internal/ingest"
	"legal-analysis-platform/internal/llmclient"
	"legal-analysis-platform/internal/ocr"
	"legal-analysis-platform/internal/orchestrator"
	"legal-analysis-platform/internal/petition"
	"legal-analysis-platform/internal/uploadjobs"
	"legal-analysis-platform/internal/vectorstore"
)

// routingCompleter answers every Gateway call routed through this package's
// handlers (agent opinions, petition relevance/prognosis/draft) with a fixed
// response keyed off a prompt fragment, mirroring petition.routingCompleter.
type routingCompleter struct{}

const validRelevanceJSON = `{"documents_suggested": [
	{"type": "rg", "justification": "identity proof", "priority": "essential"}
]}`

const validPrognosisJSON = `{"probabilities": {"VICTORY_TOTAL": 25, "VICTORY_PARTIAL": 35, "SETTLEMENT": 30, "DEFEAT": 10},
	"recommendation": "pursue settlement", "critical_factors": ["missing payslips"]}`

func (c *routingCompleter) Complete(ctx context.Context, req llmclient.CompletionRequest) (llmclient.CompletionResult, error) {
	switch {
	case strings.Contains(req.Prompt, "legal-intake assistant"):
		return llmclient.CompletionResult{Text: validRelevanceJSON}, nil
	case strings.Contains(req.Prompt, "outcome analyst"):
		return llmclient.CompletionResult{Text: validPrognosisJSON}, nil
	case strings.Contains(req.Prompt, "legal drafter"):
		return llmclient.CompletionResult{Text: "## Draft\n\n[PERSONALIZE: client full name] files this claim..."}, nil
	default:
		return llmclient.CompletionResult{Text: "a sufficiently long compiled legal opinion of this matter for test purposes."}, nil
	}
}

// fakePDF, fakeSource, fakeEngine, charCounter and fakeEmbedCompleter mirror
// the stubs in internal/ingest/pipeline_test.go so the pipeline embedded in
// the test Server actually completes ingestion runs.
type fakePDF struct{ pages []extract.PDFPage }

func (f *fakePDF) ExtractPages(ctx context.Context, path string) ([]extract.PDFPage, error) {
	return f.pages, nil
}

type fakeDOCX struct{}

func (f *fakeDOCX) ExtractParagraphs(ctx context.Context, path string) ([]string, error) {
	return []string{"a reasonably long extracted docx body with enough legible characters in it"}, nil
}

type fakeSource struct{}

func (f *fakeSource) RenderPages(ctx context.Context, path string, dpi int) ([]ocr.Image, error) {
	return nil, nil
}

type fakeEngine struct{}

func (f *fakeEngine) Recognize(ctx context.Context, img ocr.Image, lang string) (ocr.PageResult, error) {
	return ocr.PageResult{Text: "recognized", Confidence: 80}, nil
}

type charCounter struct{}

func (charCounter) Count(text string) int { return len([]rune(text)) }

type fakeEmbedCompleter struct{}

func (f *fakeEmbedCompleter) Embed(ctx context.Context, texts []string, model string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		out[i] = []float64{float64(len(t))}
	}
	return out, nil
}

// testHarness bundles every collaborator a test needs direct access to
// alongside the wired Server/router.
type testHarness struct {
	router       *gin.Engine
	server       *Server
	uploadJobs   *uploadjobs.Store
	analysisJobs *analysisjobs.Store
	documents    *ingest.DocumentStore
	registry     *agent.Registry
	petitions    *petition.Workflow
	gateway      *llmclient.Gateway
}

func buildHarness(t *testing.T) *testHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gw := llmclient.New(&routingCompleter{}, nil)
	reg := agent.NewRegistry(gw, 0.2, 0.3)
	vs := vectorstore.NewMemStore()
	coord := coordinator.New(vs, reg, gw)
	analysisJobs := analysisjobs.New()

	uploadJobs := uploadjobs.New()
	docs := ingest.NewDocumentStore()
	ex := extract.New(&fakePDF{pages: []extract.PDFPage{
		{Text: "a long legible page of extracted text with plenty of characters in it for testing"},
	}}, &fakeDOCX{})
	ocrProc := ocr.New(&fakeSource{}, &fakeEngine{}, 300, "eng", 50)
	chunker := chunkembed.NewChunker(charCounter{}, 200, 20)
	embedder := chunkembed.NewEmbedder(&fakeEmbedCompleter{}, t.TempDir(), "text-embedding-ada-002", nil)
	orch := orchestrator.New(coord, reg, analysisJobs, embedder, nil)
	pipeline := ingest.New(ex, ocrProc, chunker, embedder, vs, uploadJobs, docs, t.TempDir(), nil)

	pStore := petition.NewStore()
	wf := petition.New(pStore, docs, vs, orch, petition.NewRelevanceStep(gw, nil), petition.NewPrognosisStep(gw), petition.NewDraftStep(gw), embedder, nil)

	s := New(uploadJobs, analysisJobs, docs, pipeline, vs, orch, reg, wf, gw, 1, nil)
	r := NewRouter(s, nil)

	return &testHarness{
		router:       r,
		server:       s,
		uploadJobs:   uploadJobs,
		analysisJobs: analysisJobs,
		documents:    docs,
		registry:     reg,
		petitions:    wf,
		gateway:      gw,
	}
}

// newMultipartUpload builds a multipart/form-data POST request carrying a
// single file under "file" plus any extra form fields.
func newMultipartUpload(t *testing.T, url, fileName string, content []byte, extraFields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range extraFields {
		require.NoError(t, w.WriteField(k, v))
	}
	part, err := w.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, url, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}
