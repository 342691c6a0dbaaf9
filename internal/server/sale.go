package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	amendmentdomain "github.com/smallbiznis/taxledger/internal/amendment/domain"
)

// AmendSale logs a sale amendment and merges it into the target sale when one
// exists. Both outcomes are accepted; the body says which one happened.
func (s *Server) AmendSale(c *gin.Context) {
	var req amendmentdomain.AmendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request body"))
		return
	}

	resp, err := s.amendmentSvc.Apply(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, resp)
}
