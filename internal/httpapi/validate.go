package httpapi

import (
	"path/filepath"
	"strings"
	"unicode/utf8"

	"legal-analysis-platform/internal/apperr"
	"legal-analysis-platform/internal/extract"
)

// Prompt length bounds from §4.14/§8 boundary behavior: length 9 rejected,
// length 5001 rejected; 10 and 5000 accepted.
const (
	minPromptChars = 10
	maxPromptChars = 5000
)

// documentExtensions maps every extension accepted by the general document
// ingestion endpoint to its declared extractor type. PDF is always declared
// PDF_TEXT here; the extractor itself reclassifies to PDF_SCANNED once it
// measures character density (§4.2) — the declared type only routes which
// decoder branch runs.
var documentExtensions = map[string]extract.DocumentType{
	".pdf":  extract.TypePDFText,
	".docx": extract.TypeDOCX,
	".png":  extract.TypeImage,
	".jpg":  extract.TypeImage,
	".jpeg": extract.TypeImage,
}

// petitionExtensions is the narrower set accepted by the petition workflow
// (§6.1 "Accepts only .pdf/.docx (no images)").
var petitionExtensions = map[string]extract.DocumentType{
	".pdf":  extract.TypePDFText,
	".docx": extract.TypeDOCX,
}

func validatePrompt(prompt string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(prompt))
	if n < minPromptChars || n > maxPromptChars {
		return apperr.Validation("prompt must be between %d and %d characters, got %d", minPromptChars, maxPromptChars, n)
	}
	return nil
}

// declaredType resolves an uploaded file name's extension against the given
// allow-list, rejecting anything else as an unsupported media type.
func declaredType(fileName string, allowed map[string]extract.DocumentType) (extract.DocumentType, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	dt, ok := allowed[ext]
	if !ok {
		return "", apperr.Validation("unsupported file extension %q", ext)
	}
	return dt, nil
}

// validateSize enforces the configured upload ceiling (§6.4 UPLOAD_MAX_MB,
// §8 "Upload rejects size 50MB+1 and accepts 50MB").
func validateSize(size, maxBytes int64) error {
	if size > maxBytes {
		return apperr.Validation("file size %d exceeds maximum %d bytes", size, maxBytes)
	}
	return nil
}

// unknownAgentErr reports a selected expert/attorney id absent from the
// registry (§4.14 "known agent ids").
func unknownAgentErr(agentID string) error {
	return apperr.Validation("unknown agent id %q", agentID)
}
