package server

import (
	"fmt"
	"mime"
	"net/http"

	"github.com/constructoai/backoffice/internal/submission/domain"
	"github.com/gin-gonic/gin"
)

// GetSubmissionByToken serves the canonical view behind the shareable link.
func (s *Server) GetSubmissionByToken(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	sub, err := s.resolverSvc.Resolve(c.Request.Context(), token)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, sub)
}

// GetSubmissionFile downloads the uploaded document behind the token.
func (s *Server) GetSubmissionFile(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	content, err := s.submissionSvc.FileByToken(c.Request.Context(), token)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	contentType := mime.TypeByExtension(content.Type)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", content.Name))
	c.Data(http.StatusOK, contentType, content.Data)
}

type clientDecisionRequest struct {
	Decision string `json:"decision" binding:"required"`
}

// PostClientDecision records the client's approve or reject answer. Clients
// can only decide once: a submission that already left pending is refused
// here. The admin override endpoint carries no such guard.
func (s *Server) PostClientDecision(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var req clientDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	status := domain.Status(req.Decision)
	if status != domain.StatusApproved && status != domain.StatusRejected {
		AbortWithError(c, domain.ErrInvalidStatus)
		return
	}

	current, err := s.resolverSvc.Resolve(c.Request.Context(), token)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if current.Status.Decided() {
		AbortWithError(c, domain.ErrAlreadyDecided)
		return
	}

	updated, err := s.resolverSvc.SetStatus(c.Request.Context(), token, status)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}
