// Package localtools upgrades GET /local-tools to a websocket and
// hands the connection to a bridge.Session.
package localtools

import (
	"context"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/codemoderun/codemode/internal/domain/registry"
	"github.com/codemoderun/codemode/internal/infrastructure/bridge"
	"github.com/codemoderun/codemode/internal/infrastructure/metrics"
)

// Route serves GET /local-tools.
type Route struct {
	facade *registry.Facade
	log    zerolog.Logger
}

// NewRoute builds a local-tools route over facade.
func NewRoute(facade *registry.Facade, log zerolog.Logger) *Route {
	return &Route{facade: facade, log: log}
}

// RegisterRouter mounts GET /local-tools.
func (r *Route) RegisterRouter(router gin.IRouter) {
	router.GET("/local-tools", func(c *gin.Context) {
		conn, err := websocket.Accept(c.Writer, c.Request, nil)
		if err != nil {
			r.log.Warn().Err(err).Msg("local-tools websocket accept failed")
			return
		}
		defer conn.Close(websocket.StatusInternalError, "session ended")

		session := bridge.New(uuid.NewString(), conn, r.facade)

		metrics.BridgeSessions.Inc()
		defer metrics.BridgeSessions.Dec()

		if err := session.Serve(context.Background()); err != nil {
			r.log.Debug().Err(err).Msg("local-tools session ended")
		}
	})
}
