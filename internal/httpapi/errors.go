package httpapi

import (
	"github.com/gin-gonic/gin"

	"legal-analysis-platform/internal/apperr"
)

// writeError translates an apperr-classified error into the §7 HTTP status
// mapping with a {error_message} body.
func (s *Server) writeError(c *gin.Context, err error) {
	c.JSON(apperr.HTTPStatus(err), gin.H{"error_message": err.Error()})
}
