package routes

import (
	"github.com/gin-gonic/gin"
)

// SetupMainHandlers registers the status endpoint.
func SetupMainHandlers(router *gin.RouterGroup, store TileStore, status map[string]any) {
	router.GET("/", func(c *gin.Context) {
		body := gin.H{"tiles": store.Count()}
		for k, v := range status {
			body[k] = v
		}
		c.JSON(200, body)
	})
}
