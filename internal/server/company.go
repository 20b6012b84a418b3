package server

import (
	"net/http"

	"github.com/constructoai/backoffice/internal/company"
	"github.com/gin-gonic/gin"
)

// GetCompanyProfile returns the saved profile, or the defaults when none
// has been saved yet.
func (s *Server) GetCompanyProfile(c *gin.Context) {
	profile, err := s.companyStore.Get(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (s *Server) SaveCompanyProfile(c *gin.Context) {
	var profile company.Profile
	if err := c.ShouldBindJSON(&profile); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.companyStore.Save(c.Request.Context(), profile); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
