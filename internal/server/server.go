package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"orderflow/internal/config"
	"orderflow/internal/handler"
	"orderflow/internal/middleware"
	"orderflow/internal/redis"
	"orderflow/internal/transport/httpdto"
	"orderflow/pkg/logger"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
}

type Handlers struct {
	Order *handler.OrderHandler
}

func New(cfg *config.Config, l *logger.Logger) *Server {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
			Handler: engine,
		},
		engine: engine,
		config: cfg,
		logger: l,
	}
}

// SetupRoutes installs the middleware chain and the order API. healthCheck
// is probed by the /health endpoint; pass nil to always report healthy.
func (s *Server) SetupRoutes(handlers *Handlers, limiter *redis.RateLimiter, healthCheck func() error) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.ErrorHandler(s.logger))

	s.engine.GET("/health", func(c *gin.Context) {
		if healthCheck != nil {
			if err := healthCheck(); err != nil {
				c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse(err.Error(), "UNHEALTHY"))
				return
			}
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "healthy"}))
	})

	orders := s.engine.Group("/api/orders")
	{
		createChain := []gin.HandlerFunc{handlers.Order.Create}
		readChain := []gin.HandlerFunc{handlers.Order.GetByID}
		if limiter != nil {
			createChain = append([]gin.HandlerFunc{middleware.CreateRateLimitMiddleware(limiter)}, createChain...)
			readChain = append([]gin.HandlerFunc{middleware.ReadRateLimitMiddleware(limiter)}, readChain...)
		}
		orders.POST("", createChain...)
		orders.GET("/:id", readChain...)
	}
}

// Start runs ListenAndServe in the background and returns immediately.
func (s *Server) Start() {
	go func() {
		if s.logger != nil {
			s.logger.Infof("Starting the server on port %s...", s.config.Server.Port)
		}
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.Errorf("Error in starting the server: %s", err)
			}
		}
	}()
}

// Shutdown drains in-flight requests with a 5 second deadline.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		if s.logger != nil {
			s.logger.Infof("Error in the graceful shutdown of the server: %s", err)
		}
		return err
	}

	if s.logger != nil {
		s.logger.Infof("Server stopped gracefully")
	}
	return nil
}
