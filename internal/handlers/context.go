package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/eventpress/eventpress/internal/middleware"
	appErrors "github.com/eventpress/eventpress/pkg/errors"
	"github.com/eventpress/eventpress/pkg/response"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// currentUser returns the authenticated user ID or writes a 401 and returns false.
func currentUser(c *gin.Context) (string, bool) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return "", false
	}
	return userID, true
}
