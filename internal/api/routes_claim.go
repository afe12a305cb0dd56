package api

import (
	"github.com/gin-gonic/gin"

	"github.com/eventpress/eventpress/internal/app"
	"github.com/eventpress/eventpress/internal/cache"
	"github.com/eventpress/eventpress/internal/handlers"
	"github.com/eventpress/eventpress/internal/middleware"
)

func registerClaimRoutes(api *gin.RouterGroup, handler *handlers.ClaimHandler, store cache.Store, limit app.RateLimitConfig) {
	if api == nil || handler == nil {
		return
	}

	claim := api.Group("/claim")
	claim.Use(middleware.RateLimit(store, limit.Requests, limit.Window))
	{
		claim.GET("", handler.State)
		claim.POST("/code", handler.SubmitCode)
		claim.POST("/verify", handler.SubmitVerification)
		claim.POST("/resend", handler.Resend)
		claim.POST("/back", handler.Back)
		claim.DELETE("", handler.Cancel)
	}
}
