package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	ingestiondomain "github.com/smallbiznis/taxledger/internal/ingestion/domain"
)

// IngestTransaction accepts a SALES or TAX_PAYMENT event. 202 mirrors the
// ledger semantics: the event is durably recorded, derived state follows.
func (s *Server) IngestTransaction(c *gin.Context) {
	var req ingestiondomain.TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request body"))
		return
	}

	if err := s.ingestionSvc.Ingest(c.Request.Context(), req); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{})
}
