package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/gitdrive/internal/objectstore"
	"github.com/GriffinCanCode/gitdrive/internal/settings"
	"github.com/GriffinCanCode/gitdrive/internal/vfs"
)

// GetConfig returns the current coordinates with the token redacted.
func (h *Handlers) GetConfig(c *gin.Context) {
	coords, err := h.config.Coordinates()
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "configured": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"configured": true,
		"config":     coords.Redacted(),
	})
}

// PutConfig verifies new coordinates against the backend and saves them.
// A blank or redacted token keeps the stored one, but only for the same
// repository; pointing the drive elsewhere needs the token again. When the
// backend rejects the coordinates the stored configuration is cleared.
func (h *Handlers) PutConfig(c *gin.Context) {
	var req settings.Coordinates
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid config body: "+err.Error())
		return
	}
	req = req.Normalized()
	if req.Token == "" || strings.Contains(req.Token, "****") {
		req.Token = ""
		if current, err := h.config.Coordinates(); err == nil && sameRepository(current, req) {
			req.Token = current.Token
		}
	}

	info, err := h.engine.Verify(c.Request.Context(), req)
	if errors.Is(err, settings.ErrNotConfigured) || errors.Is(err, vfs.ErrInvalidPath) {
		respondError(c, err, nil)
		return
	}
	if err != nil {
		if clearErr := h.config.Clear(); clearErr != nil {
			h.logger.Error("failed to clear config", zap.Error(clearErr))
		}
		respondError(c, err, nil)
		return
	}
	if err := h.config.Save(req); err != nil {
		respondError(c, err, nil)
		return
	}

	h.logger.Info("config saved",
		zap.String("owner", req.Owner),
		zap.String("repo", req.Repo),
		zap.String("branch", req.Branch),
		zap.String("dir", req.Dir),
	)
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"configured": true,
		"config":     req.Redacted(),
		"repo":       repoView(info),
	})
}

// DeleteConfig forgets the stored coordinates.
func (h *Handlers) DeleteConfig(c *gin.Context) {
	if err := h.config.Clear(); err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "configured": false})
}

// Repository reports repository metadata, including its storage use.
func (h *Handlers) Repository(c *gin.Context) {
	info, err := h.engine.Repository(c.Request.Context())
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "repo": repoView(info)})
}

func repoView(info *objectstore.Repository) gin.H {
	return gin.H{
		"full_name":      info.FullName,
		"private":        info.Private,
		"default_branch": info.DefaultBranch,
		"html_url":       info.HTMLURL,
		"size_bytes":     info.SizeBytes(),
		"size_human":     humanize.IBytes(uint64(info.SizeBytes())),
	}
}

func sameRepository(a, b settings.Coordinates) bool {
	return strings.EqualFold(a.Owner, b.Owner) && strings.EqualFold(a.Repo, b.Repo)
}
