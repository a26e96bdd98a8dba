package api

import (
	"strconv"

	routes "gmlparser/internal/api/handlers"
	"gmlparser/internal/metrics"

	"github.com/gin-gonic/gin"
)

// SetupRouter initializes all application routes. m may be nil, in which
// case requests are not counted and /metrics is not served.
func SetupRouter(r *gin.Engine, tiles *routes.TileHandlers, m *metrics.Collector, status map[string]any) {
	if m != nil {
		r.Use(countRequests(m))
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	// API group
	api := r.Group("/api")

	routes.SetupMainHandlers(r.Group(""), tiles.Store, status)
	routes.SetupTileHandlers(api, tiles)
}

// countRequests counts requests by matched route and status code.
func countRequests(m *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
