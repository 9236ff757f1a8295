package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"analysis-backend/internal/analyses"
	"analysis-backend/internal/services/health"
	"analysis-backend/internal/shared/config"
	"analysis-backend/internal/shared/metrics"
	"analysis-backend/internal/shared/server/middleware"
	"analysis-backend/internal/shared/server/respond"
)

// RouterDeps carries the wired dependencies the router exposes over HTTP.
type RouterDeps struct {
	Config   config.Config
	Analyses *analyses.Handler
	Health   *health.Service
	Metrics  *metrics.Metrics
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.RateLimit(rateLimitConfig()),
	)

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, deps.Health.Status(c.Request.Context()))
	})
	deps.Analyses.RegisterRoutes(api)

	r.GET("/metrics", deps.Metrics.Handler())

	return r
}

// Batch status polling gets a higher budget than mutating endpoints.
func rateLimitConfig() middleware.RateLimitConfig {
	return middleware.RateLimitConfig{
		DefaultGroup: "DEFAULT",
		GroupFor: func(c *gin.Context) string {
			if c.Request.Method == http.MethodGet && c.FullPath() == "/api/v1/analysis/batch/:id" {
				return "POLLING"
			}
			return "DEFAULT"
		},
		Rules: map[string]middleware.RateLimitRule{
			"DEFAULT": {Rate: 5, Burst: 10},
			"POLLING": {Rate: 20, Burst: 40},
		},
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
