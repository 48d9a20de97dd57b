package apperr

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyAndHTTPStatus(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantKind   Kind
		wantStatus int
	}{
		{"validation", Validation("prompt too short"), KindValidation, http.StatusBadRequest},
		{"not found", NotFound("upload %s", "abc"), KindNotFound, http.StatusNotFound},
		{"too early", TooEarly("job still processing"), KindTooEarly, http.StatusTooEarly},
		{"upstream", Upstream("LLM call failed"), KindUpstream, http.StatusInternalServerError},
		{"rate limit is upstream", ErrRateLimit, KindUpstream, http.StatusInternalServerError},
		{"parse failure", ParseFailure("bad json"), KindParseFailure, http.StatusInternalServerError},
		{"corrupt input", CorruptInput("bad pdf"), KindCorruptInput, http.StatusInternalServerError},
		{"unknown", assertErr, KindUnknown, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.wantKind, Classify(tc.err))
			assert.Equal(t, tc.wantStatus, HTTPStatus(tc.err))
		})
	}
}

var assertErr = &plainErr{"boom"}

type plainErr struct{ msg string }

func (p *plainErr) Error() string { return p.msg }
