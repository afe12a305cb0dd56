package api

import (
	"github.com/gin-gonic/gin"

	"github.com/eventpress/eventpress/internal/handlers"
	"github.com/eventpress/eventpress/internal/middleware"
)

func registerStaffRoutes(api *gin.RouterGroup, handler *handlers.StaffHandler, authz middleware.StaffAuthorizer) {
	if api == nil || handler == nil || authz == nil {
		return
	}

	manageTicket := middleware.RequireTicketManager(authz, "id")

	staff := api.Group("/staff")
	{
		staff.POST("", handler.Create)
		staff.GET("/:id", manageTicket, handler.Get)
		staff.PATCH("/:id", manageTicket, handler.Update)
		staff.DELETE("/:id", manageTicket, handler.Delete)
		staff.POST("/:id/booths/:boothID", manageTicket, handler.GrantBooth)
		staff.DELETE("/:id/booths/:boothID", manageTicket, handler.RevokeBooth)
		staff.POST("/:id/invite-email", manageTicket, handler.SendInvite)
	}

	api.GET("/events/:eventID/staff", middleware.RequireEventManager(authz, "eventID"), handler.ListByEvent)
	api.GET("/users/me/staff", handler.ListMine)
}
