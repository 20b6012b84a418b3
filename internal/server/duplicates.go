package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// FindDuplicates reports submission numbers used by more than one live row.
func (s *Server) FindDuplicates(c *gin.Context) {
	groups, err := s.repairSvc.FindDuplicateNumbers(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"duplicates": groups,
		"count":      len(groups),
	})
}

// RepairDuplicates renumbers every duplicate except the earliest-created
// occurrence of each group. Safe to call repeatedly.
func (s *Server) RepairDuplicates(c *gin.Context) {
	report, err := s.repairSvc.RepairDuplicates(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}
