// Package server exposes the orchestrator over HTTP
package server

import (
	"log/slog"
	"net/http"
	"sync"

	glog "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	agentos "github.com/ronaldwang03/agent-os-sub001"
	"github.com/ronaldwang03/agent-os-sub001/internal/archive"
	"github.com/ronaldwang03/agent-os-sub001/internal/hub"
	"github.com/ronaldwang03/agent-os-sub001/internal/util"
	"github.com/ronaldwang03/agent-os-sub001/pkg/api"
	"github.com/ronaldwang03/agent-os-sub001/pkg/events"
)

// Server implements the HTTP API server for the orchestrator
type Server struct {
	hub      *hub.Hub
	eventHub *events.Hub
	archive  archive.Archiver
	registry *prometheus.Registry
	sockets  util.Set[*Client]
	mu       sync.Mutex
}

// NewServer creates a new HTTP API server. The archiver and metrics
// registry are optional
func NewServer(
	h *hub.Hub, eh *events.Hub, a archive.Archiver, reg *prometheus.Registry,
) *Server {
	return &Server{
		hub:      h,
		eventHub: eh,
		archive:  a,
		registry: reg,
		sockets:  util.Set[*Client]{},
	}
}

// SetupRoutes configures and returns the HTTP router with all API endpoints
func (s *Server) SetupRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(glog.SetLogger(
		glog.WithLogger(func(c *gin.Context, l *slog.Logger) *slog.Logger {
			return slog.Default()
		}),
	))

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set(
			"Access-Control-Allow-Methods",
			"GET, POST, PUT, DELETE, OPTIONS",
		)
		c.Writer.Header().Set(
			"Access-Control-Allow-Headers",
			"Content-Type, Authorization",
		)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	// Health check
	router.GET("/health", s.handleHealth)

	if s.registry != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(
			s.registry, promhttp.HandlerOpts{},
		)))
	}

	// Worker endpoints
	router.GET("/worker", s.listWorkers)

	// Workflow endpoints
	router.GET("/workflow", s.listWorkflows)
	router.POST("/workflow", s.registerWorkflows)
	router.GET("/workflow/:name", s.getWorkflow)
	router.POST("/workflow/:name/execute", s.executeWorkflow)

	// Run endpoints
	router.GET("/run/:runID", s.getRun)

	// WebSocket
	router.GET("/ws", s.handleWebSocket)

	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, api.HealthResponse{
		Service: agentos.Name,
		Version: agentos.Version,
		Status:  "healthy",
	})
}

func (s *Server) registerWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets.Add(c)
}

func (s *Server) unregisterWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets.Remove(c)
}

// CloseWebSockets closes all active WebSocket connections
func (s *Server) CloseWebSockets() {
	s.mu.Lock()
	conns := make([]*Client, 0, len(s.sockets))
	for c := range s.sockets {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}
