package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// GetTaxPosition reports total tax owed minus total tax paid as of the given
// instant.
func (s *Server) GetTaxPosition(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("date"))
	if raw == "" {
		AbortWithError(c, newValidationError("date", "invalid_date", "date query parameter is required"))
		return
	}

	asOf, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		AbortWithError(c, newValidationError("date", "invalid_date", "date must be an RFC 3339 timestamp"))
		return
	}

	position, err := s.taxPositionSvc.Compute(c.Request.Context(), asOf)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, position)
}
