package api

import (
	"github.com/gin-gonic/gin"
)

// SetupRouter wires the HTTP surface described in the specification's
// §6.1 onto a gin.Engine, following the teacher's flat route-group
// convention (internal/api/router.go).
func SetupRouter(d *Deps) *gin.Engine {
	r := gin.Default()

	r.GET("/health", healthHandler)

	group := r.Group("/api")
	{
		group.POST("/rank", rankHandler(d))
		group.GET("/search", searchHandler(d))
		group.GET("/status", statusHandler(d))
		group.GET("/stats", statsHandler(d))
	}

	return r
}
