// Package httpserver assembles the gin router for both Code-Mode
// surfaces: gin.New() plus Recovery/RequestLogger/CORS, conditional
// auth middleware, health endpoints, then one route group per
// surface.
package httpserver

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/codemoderun/codemode/internal/domain/registry"
	"github.com/codemoderun/codemode/internal/infrastructure/auth"
	"github.com/codemoderun/codemode/internal/interfaces/httpserver/middlewares"
	"github.com/codemoderun/codemode/internal/interfaces/httpserver/routes/codemode"
	"github.com/codemoderun/codemode/internal/interfaces/httpserver/routes/debug"
	"github.com/codemoderun/codemode/internal/interfaces/httpserver/routes/localtools"
)

// HTTPServer owns the gin engine and every route it serves.
type HTTPServer struct {
	router        *gin.Engine
	host          string
	port          string
	authValidator *auth.Validator
}

// New builds an HTTPServer bound to host:port, serving facade's tools
// over /mcp, /local-tools and /debug/tools.
func New(host, port string, facade *registry.Facade, name, version string, authValidator *auth.Validator, log zerolog.Logger) *HTTPServer {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middlewares.RequestLogger(log))
	router.Use(middlewares.CORS())
	if authValidator != nil {
		router.Use(authValidator.Middleware())
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "codemode-server"})
	})
	router.GET("/readyz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready", "service": "codemode-server"})
	})
	router.GET("/health/auth", func(c *gin.Context) {
		if authValidator == nil || authValidator.Ready() {
			c.JSON(http.StatusOK, gin.H{"status": "ready"})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "initializing"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	mcpRoute := codemode.NewRoute(facade, name, version)
	mcpRoute.RegisterRouter(router.Group("/"))

	debug.NewRoute(facade).RegisterRouter(router)
	localtools.NewRoute(facade, log).RegisterRouter(router)

	return &HTTPServer{router: router, host: host, port: port, authValidator: authValidator}
}

// Run binds to host:port and serves until the process exits or Run
// returns a fatal listener error.
func (s *HTTPServer) Run() error {
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	return s.router.Run(addr)
}
