package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterGroupRoutes registers coordinator observability endpoints.
func RegisterGroupRoutes(r *gin.Engine, deps Deps) {
	r.GET("/api/groups", func(c *gin.Context) {
		keys := deps.Groups.InFlight()
		c.JSON(http.StatusOK, gin.H{
			"in_flight": keys,
			"count":     len(keys),
		})
	})
}
