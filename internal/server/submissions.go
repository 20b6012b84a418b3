package server

import (
	"io"
	"net/http"
	"strconv"

	"github.com/constructoai/backoffice/internal/submission/domain"
	"github.com/constructoai/backoffice/internal/submission/service"
	"github.com/gin-gonic/gin"
)

// ListSubmissions returns the merged view over both stores, newest first.
// An optional status query narrows the list.
func (s *Server) ListSubmissions(c *gin.Context) {
	records, err := s.aggregateSvc.ListAll(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if status := c.Query("status"); status != "" {
		filtered := make([]domain.Record, 0, len(records))
		for _, record := range records {
			if record.Status == domain.Status(status) {
				filtered = append(filtered, record)
			}
		}
		records = filtered
	}

	c.JSON(http.StatusOK, gin.H{
		"submissions": records,
		"count":       len(records),
	})
}

// CreateSubmission persists a manually entered submission in the legacy store.
func (s *Server) CreateSubmission(c *gin.Context) {
	var req service.CreateLegacyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	sub, err := s.submissionSvc.CreateLegacy(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, sub)
}

// UploadSubmission accepts a multipart form with the file and client fields
// and persists a document submission.
func (s *Server) UploadSubmission(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		AbortWithError(c, domain.ErrInvalidFile)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		AbortWithError(c, domain.ErrInvalidFile)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		AbortWithError(c, domain.ErrInvalidFile)
		return
	}

	amount := 0.0
	if raw := c.PostForm("amount"); raw != "" {
		parsed, convErr := strconv.ParseFloat(raw, 64)
		if convErr != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		amount = parsed
	}

	sub, err := s.submissionSvc.CreateUpload(c.Request.Context(), service.CreateUploadRequest{
		ClientName:  c.PostForm("client_name"),
		ClientEmail: c.PostForm("client_email"),
		ClientPhone: c.PostForm("client_phone"),
		ProjectName: c.PostForm("project_name"),
		Amount:      amount,
		FileName:    fileHeader.Filename,
		Data:        data,
		ClientIP:    c.ClientIP(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, sub)
}

// DeleteSubmission removes a submission by its merged display identity.
func (s *Server) DeleteSubmission(c *gin.Context) {
	if err := s.submissionSvc.DeleteByRef(c.Request.Context(), c.Param("ref")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

type overrideStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// OverrideSubmissionStatus sets any valid status regardless of the current
// one. This is the back-office correction path; the pending-only guard
// applies only to the public decision endpoint.
func (s *Server) OverrideSubmissionStatus(c *gin.Context) {
	var req overrideStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	sub, err := s.resolverSvc.SetStatus(c.Request.Context(), c.Param("token"), domain.Status(req.Status))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, sub)
}
