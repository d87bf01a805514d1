package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prasenjit/route-explorer/internal/feed"
	"github.com/prasenjit/route-explorer/internal/logging"
)

// BasePath is where the admin API is mounted
const BasePath = "/_api"

// Router handles HTTP routing
type Router struct {
	engine  *gin.Engine
	handler *Handler
	stream  http.Handler
}

// NewRouter creates the admin API router. A nil hub disables the history
// stream endpoint.
func NewRouter(handler *Handler, hub *feed.Hub, logger *slog.Logger) *Router {
	r := &Router{
		engine:  gin.New(),
		handler: handler,
	}
	if hub != nil {
		r.stream = feed.NewWebSocketHandler(hub, logger)
	}

	r.engine.Use(gin.Recovery())
	r.engine.Use(corsMiddleware())
	r.engine.Use(logging.Middleware(logger))

	r.setupRoutes()
	return r
}

// setupRoutes configures all routes
func (r *Router) setupRoutes() {
	api := r.engine.Group(BasePath)
	{
		api.GET("/health", r.handler.HealthCheck)
		api.GET("/settings", r.handler.GetSettings)

		// Route catalog
		api.GET("/routes", r.handler.ListRoutes)
		api.GET("/routes/grouped", r.handler.GroupedRoutes)
		api.GET("/routes/stats", r.handler.RouteStats)
		api.GET("/routes/detail", r.handler.RouteDetail)
		api.POST("/routes/refresh", r.handler.RefreshRoutes)

		// OpenAPI export
		api.GET("/openapi.json", r.handler.OpenAPIJSON)
		api.GET("/openapi.yaml", r.handler.OpenAPIYAML)

		// Test execution
		api.POST("/tests", r.handler.RunTest)
		api.POST("/tests/bulk", r.handler.RunBulkTest)

		// History
		api.GET("/history", r.handler.ListHistory)
		api.GET("/history/stats", r.handler.HistoryStats)
		api.GET("/history/:id", r.handler.GetHistoryEntry)
		api.DELETE("/history", r.handler.ClearHistory)
		api.POST("/history/cleanup", r.handler.CleanupHistory)
		if r.stream != nil {
			api.GET("/history/stream", gin.WrapH(r.stream))
		}
	}

	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorResponse{Message: "Not found", StatusCode: http.StatusNotFound})
	})
}

// Handler returns the http.Handler
func (r *Router) Handler() http.Handler {
	return r.engine
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-User-ID")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
