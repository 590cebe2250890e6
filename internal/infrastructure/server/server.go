package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	api "github.com/GriffinCanCode/gitdrive/internal/api/http"
	"github.com/GriffinCanCode/gitdrive/internal/api/middleware"
	"github.com/GriffinCanCode/gitdrive/internal/infrastructure/config"
	"github.com/GriffinCanCode/gitdrive/internal/infrastructure/logging"
	"github.com/GriffinCanCode/gitdrive/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/gitdrive/internal/objectstore"
	"github.com/GriffinCanCode/gitdrive/internal/settings"
	"github.com/GriffinCanCode/gitdrive/internal/vfs"
	"github.com/GriffinCanCode/gitdrive/internal/vfs/codec"
	"github.com/GriffinCanCode/gitdrive/internal/ws"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router  *gin.Engine
	http    *http.Server
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.FromConfig(cfg.Logging))
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	logger.Info("Initializing gitdrive server",
		zap.String("host", cfg.Server.Host),
		zap.String("port", cfg.Server.Port),
		zap.Strings("allowed_origins", cfg.Server.AllowedOrigins),
		zap.String("store", cfg.Store.BaseURL),
		zap.String("settings", cfg.Settings.Path),
	)

	// Initialize metrics first (needed by other components)
	metrics := monitoring.NewMetrics()

	client := objectstore.New(objectstore.Options{
		BaseURL:           cfg.Store.BaseURL,
		RawBaseURL:        cfg.Store.RawBaseURL,
		ProxyPrefix:       cfg.Store.ProxyPrefix,
		Timeout:           cfg.Store.Timeout,
		ReadRetries:       cfg.Store.ReadRetries,
		RequestsPerSecond: cfg.Store.RequestsPerSecond,
		Logger:            logger.Logger,
		Recorder:          metrics,
	})
	store := settings.NewStore(cfg.Settings.Path, cfg.Settings.Secret)
	engine := vfs.New(client, store,
		vfs.WithCodec(codec.New(cfg.Transfer.MaxObjectSize)),
		vfs.WithLogger(logger.Logger),
		vfs.WithMetrics(metrics),
	)

	if _, err := store.Coordinates(); err != nil {
		logger.Warn("Drive not configured yet; PUT /api/config to set it up", zap.Error(err))
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(middleware.Recovery(logger.Component("http")))
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(logger.Component("http")))
	router.Use(monitoring.Middleware(metrics))
	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.Server.AllowedOrigins
	router.Use(middleware.CORS(corsCfg))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(rl))
	}

	handlers := api.NewHandlers(engine, store, metrics, logger.Logger)
	wsHandler := ws.NewHandler(engine, metrics, logger.Logger, cfg.Server.AllowedOrigins)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	apiGroup := router.Group("/api")
	handlers.Routes(apiGroup)
	apiGroup.GET("/fs/stream", wsHandler.HandleConnection)

	logger.Info("Server initialized successfully")

	return &Server{
		router: router,
		http: &http.Server{
			Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}, nil
}

// Router exposes the configured router.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run starts the HTTP server and blocks until it stops. A server stopped by
// Shutdown returns nil.
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	err := s.http.Shutdown(ctx)
	if err != nil {
		s.logger.Error("Graceful shutdown failed", zap.Error(err))
	}

	// Sync logger before exit
	_ = s.logger.Sync()
	return err
}
