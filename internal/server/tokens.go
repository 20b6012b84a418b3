package server

import (
	"io"
	"net/http"

	"github.com/constructoai/backoffice/internal/submission/tokenguard"
	"github.com/gin-gonic/gin"
)

// BackfillTokens generates tokens for rows that lack one. Existing tokens
// are never touched.
func (s *Server) BackfillTokens(c *gin.Context) {
	report, err := s.tokenguardSvc.BackfillMissingTokens(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ExportTokens returns the token snapshot for all tokened rows in both stores.
func (s *Server) ExportTokens(c *gin.Context) {
	snapshot, err := s.tokenguardSvc.ExportTokens(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// ImportTokens reconciles a posted snapshot against the live stores. The
// body accepts both the wrapped and the bare-list snapshot encodings.
func (s *Server) ImportTokens(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil || len(body) == 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	entries, err := tokenguard.DecodeSnapshot(body)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	report, err := s.tokenguardSvc.ImportTokens(c.Request.Context(), entries)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// BackupTokens writes a timestamped snapshot file plus the rolling latest
// copy and prunes old backups.
func (s *Server) BackupTokens(c *gin.Context) {
	path, err := s.tokenguardSvc.BackupToFile(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	removed, err := s.tokenguardSvc.CleanOldBackups(0)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"path":            path,
		"backups_removed": removed,
	})
}

type restoreRequest struct {
	Path string `json:"path"`
}

// RestoreTokens re-imports a snapshot file. With no path it uses the latest
// snapshot, falling back to the newest timestamped backup.
func (s *Server) RestoreTokens(c *gin.Context) {
	var req restoreRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
	}

	report, err := s.tokenguardSvc.RestoreFromFile(c.Request.Context(), req.Path)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// TokenStats reports token coverage per store and backup inventory.
func (s *Server) TokenStats(c *gin.Context) {
	stats, err := s.tokenguardSvc.Statistics(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
