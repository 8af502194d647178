package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tfta-mcp-server/internal/agent"
	"github.com/tfta-mcp-server/internal/domain"
	"github.com/tfta-mcp-server/internal/middleware"
)

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	agent         *agent.Agent
	router        *gin.Engine
	server        *http.Server
	logger        *logrus.Logger
}

// NewServer creates a new HTTP server instance
func NewServer(configManager domain.ConfigManager, a *agent.Agent, logger *logrus.Logger) *Server {
	cfg := configManager.GetConfig()

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.RequestTimeout(cfg.Server.WriteTimeout))

	server := &Server{
		configManager: configManager,
		agent:         a,
		router:        router,
		logger:        logger,
	}
	server.setupRoutes()
	return server
}

// Handler returns the HTTP handler, e.g. for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves HTTP until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/operations", s.handleOperations)
		v1.POST("/query", s.handleQuery)
		v1.POST("/operations/:name", s.handleOperation)
		v1.POST("/refresh", s.handleRefresh)
	}
}

// handleHealth reports liveness and whether the lookup store is open. An
// unavailable store still answers queries, with empty results.
func (s *Server) handleHealth(c *gin.Context) {
	status := "healthy"
	if !s.agent.Ready() {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":          status,
		"store_available": s.agent.Ready(),
		"caches":          s.agent.CacheStats(),
		"timestamp":       time.Now().UTC(),
	})
}

func (s *Server) handleOperations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"operations": s.agent.Operations()})
}

func (s *Server) handleQuery(c *gin.Context) {
	var req agent.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respond(c, badRequest(req.Operation, err))
		return
	}
	s.respond(c, s.agent.Handle(c.Request.Context(), req))
}

// handleOperation answers the operation named in the path with the request
// body as its arguments.
func (s *Server) handleOperation(c *gin.Context) {
	req := agent.Request{Operation: c.Param("name")}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req.Args); err != nil {
			s.respond(c, badRequest(req.Operation, err))
			return
		}
	}
	s.respond(c, s.agent.Handle(c.Request.Context(), req))
}

func (s *Server) handleRefresh(c *gin.Context) {
	s.agent.Refresh()
	c.JSON(http.StatusOK, gin.H{"status": agent.StatusSuccess})
}

func (s *Server) respond(c *gin.Context, reply agent.Reply) {
	c.JSON(statusCode(reply), reply)
}

// statusCode maps a reply to an HTTP status. Not-found and clarification
// failures are answers to a well-formed question and use 200.
func statusCode(reply agent.Reply) int {
	if !reply.Failed() {
		return http.StatusOK
	}
	switch reply.Reason {
	case domain.ReasonInvalidArgument:
		return http.StatusBadRequest
	case domain.ReasonNoCapability:
		return http.StatusNotFound
	case domain.ReasonInternal:
		return http.StatusInternalServerError
	}
	return http.StatusOK
}

func badRequest(operation string, err error) agent.Reply {
	return agent.Reply{
		Operation: strings.ToUpper(strings.TrimSpace(operation)),
		Status:    agent.StatusFailure,
		Reason:    domain.ReasonInvalidArgument,
		Message:   fmt.Sprintf("malformed request: %v", err),
	}
}
