package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/gitdrive/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/gitdrive/internal/settings"
	"github.com/GriffinCanCode/gitdrive/internal/vfs"
)

// ConfigStore persists the repository coordinates.
type ConfigStore interface {
	settings.Source
	Save(c settings.Coordinates) error
	Clear() error
}

// Handlers contains all HTTP handlers
type Handlers struct {
	engine  *vfs.Engine
	config  ConfigStore
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewHandlers creates a new handler set. metrics may be nil.
func NewHandlers(engine *vfs.Engine, config ConfigStore, metrics *monitoring.Metrics, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		engine:  engine,
		config:  config,
		metrics: metrics,
		logger:  logger.Named("api"),
	}
}

// Routes registers the JSON API on r, which is normally the /api group.
func (h *Handlers) Routes(r gin.IRouter) {
	r.GET("/config", h.GetConfig)
	r.PUT("/config", h.PutConfig)
	r.DELETE("/config", h.DeleteConfig)

	r.GET("/repo", h.Repository)

	fs := r.Group("/fs")
	fs.GET("/list", h.List)
	fs.GET("/stat", h.Stat)
	fs.GET("/content", h.Content)
	fs.GET("/raw-url", h.RawURL)
	fs.GET("/archive", h.Archive)
	fs.POST("/upload", h.Upload)
	fs.POST("/mkdir", h.Mkdir)
	fs.DELETE("/file", h.DeleteFile)
	fs.DELETE("/dir", h.DeleteDir)
	fs.POST("/rename", h.Rename)
	fs.POST("/copy", h.Copy)
}

// Root handles the service banner.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "gitdrive",
		"version": "1.0.0",
	})
}

// Health reports whether the drive is configured, plus running totals.
func (h *Handlers) Health(c *gin.Context) {
	_, err := h.config.Coordinates()
	body := gin.H{
		"status":     "healthy",
		"configured": err == nil,
	}
	if h.metrics != nil {
		body["metrics"] = h.metrics.Snapshot()
	}
	c.JSON(http.StatusOK, body)
}
