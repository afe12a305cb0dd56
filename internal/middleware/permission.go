package middleware

import (
	"context"
	stderrors "errors"

	"github.com/gin-gonic/gin"

	"github.com/eventpress/eventpress/internal/permissions"
	"github.com/eventpress/eventpress/pkg/errors"
	"github.com/eventpress/eventpress/pkg/response"
)

// StaffAuthorizer answers the ownership questions guarding staff administration.
type StaffAuthorizer interface {
	CanManageEvent(ctx context.Context, userID, eventID string) (bool, error)
	CanManageTicket(ctx context.Context, userID, ticketID string) (bool, error)
}

// RequireEventManager allows the request only when the caller owns the event named by
// the route parameter.
func RequireEventManager(authz StaffAuthorizer, param string) gin.HandlerFunc {
	return requireOwnership(func(c *gin.Context, userID string) (bool, error) {
		return authz.CanManageEvent(c.Request.Context(), userID, c.Param(param))
	})
}

// RequireTicketManager allows the request only when the caller owns the event of the
// ticket named by the route parameter.
func RequireTicketManager(authz StaffAuthorizer, param string) gin.HandlerFunc {
	return requireOwnership(func(c *gin.Context, userID string) (bool, error) {
		return authz.CanManageTicket(c.Request.Context(), userID, c.Param(param))
	})
}

func requireOwnership(check func(c *gin.Context, userID string) (bool, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := CurrentUserID(c)
		if !ok {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		allowed, err := check(c, userID)
		switch {
		case stderrors.Is(err, permissions.ErrResourceNotFound):
			response.Error(c, errors.ErrNotFound)
			c.Abort()
			return
		case err != nil:
			response.Error(c, errors.ErrInternalServer.WithInternal(err))
			c.Abort()
			return
		case !allowed:
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
