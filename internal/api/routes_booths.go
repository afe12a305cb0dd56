package api

import (
	"github.com/gin-gonic/gin"

	"github.com/eventpress/eventpress/internal/handlers"
)

func registerBoothRoutes(api *gin.RouterGroup, handler *handlers.BoothHandler) {
	if api == nil || handler == nil {
		return
	}
	api.GET("/booths/:id/access", handler.Access)
}
