package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/vimoda/web3-oauth-api/internal/middleware"
	"github.com/vimoda/web3-oauth-api/internal/services"
)

// Router handles HTTP routing setup
type Router struct {
	authHandler   *AuthHandler
	healthHandler *HealthHandler
	developers    services.DeveloperServiceInterface
}

// NewRouter creates a new Router instance with all handlers
func NewRouter(authHandler *AuthHandler, healthHandler *HealthHandler, developers services.DeveloperServiceInterface) *Router {
	return &Router{
		authHandler:   authHandler,
		healthHandler: healthHandler,
		developers:    developers,
	}
}

// SetupRoutes configures all API routes. The session-lifecycle routes sit
// behind the HMAC transport authenticator; verify-token uses the bearer
// access token instead.
func (r *Router) SetupRoutes(engine *gin.Engine) {
	api := engine.Group("/api")
	{
		hmacProtected := api.Group("")
		hmacProtected.Use(middleware.HMACAuthMiddleware(r.developers))
		{
			hmacProtected.POST("/authenticate", r.authHandler.Authenticate)
			hmacProtected.POST("/refresh", r.authHandler.Refresh)
			hmacProtected.POST("/revoke", r.authHandler.Revoke)
		}

		api.GET("/verify-token", r.authHandler.VerifyToken)
	}
}

// SetupHealthRoutes configures health check routes
func (r *Router) SetupHealthRoutes(engine *gin.Engine) {
	health := engine.Group("/health")
	{
		health.GET("", r.healthHandler.GetHealth)
		health.GET("/live", r.healthHandler.GetLiveness)
		health.GET("/ready", r.healthHandler.GetReadiness)
	}
}
