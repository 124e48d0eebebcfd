// Package debug exposes the operator-facing tool catalog dump as
// YAML, via gopkg.in/yaml.v3.
package debug

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v3"

	"github.com/codemoderun/codemode/internal/domain/registry"
	"github.com/codemoderun/codemode/internal/interfaces/httpserver/responses"
)

// Route serves GET /debug/tools.
type Route struct {
	facade *registry.Facade
}

// NewRoute builds a debug route over facade.
func NewRoute(facade *registry.Facade) *Route {
	return &Route{facade: facade}
}

type toolDump struct {
	Namespace   string `yaml:"namespace"`
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
}

// RegisterRouter mounts GET /debug/tools.
func (r *Route) RegisterRouter(router gin.IRouter) {
	router.GET("/debug/tools", func(c *gin.Context) {
		entries, _ := r.facade.ListFunctions()
		dump := make([]toolDump, 0, len(entries))
		for _, e := range entries {
			dump = append(dump, toolDump{Namespace: e.ID.Namespace, Name: e.ID.Name, Description: e.Description})
		}
		body, err := yaml.Marshal(dump)
		if err != nil {
			responses.HandleError(c, err, "failed to render tool dump")
			return
		}
		c.Data(http.StatusOK, "application/yaml", body)
	})
}
