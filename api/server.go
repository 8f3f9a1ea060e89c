// Package api exposes the HTTP surface: health, on-demand duplicate checks
// and coordinator observability.
package api

import (
	"github.com/gin-gonic/gin"

	"echopost/dedup"
)

// GroupInspector reports the group keys currently being processed.
// Implemented by grouping.Coordinator.
type GroupInspector interface {
	InFlight() []string
}

// Deps holds the collaborators the routes need.
type Deps struct {
	Checker    *dedup.Checker
	HistoryDir string
	Groups     GroupInspector
}

// NewRouter constructs a Gin engine with registered routes.
func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	// Minimal middleware: recovery; logger optional to reduce verbosity
	r.Use(gin.Recovery())

	RegisterHealthRoutes(r)
	RegisterDuplicateRoutes(r, deps)
	RegisterGroupRoutes(r, deps)
	return r
}

// RegisterHealthRoutes registers the health check endpoint.
func RegisterHealthRoutes(r *gin.Engine) {
	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "healthy"})
	})
}
