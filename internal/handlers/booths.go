package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eventpress/eventpress/internal/permissions"
	appErrors "github.com/eventpress/eventpress/pkg/errors"
	"github.com/eventpress/eventpress/pkg/response"
)

// BoothAuthorizer decides whether a user may act on a booth.
type BoothAuthorizer interface {
	CanAccessBooth(ctx context.Context, userID, boothID string) (bool, error)
}

type BoothHandler struct {
	authz BoothAuthorizer
}

func NewBoothHandler(authz BoothAuthorizer) *BoothHandler {
	return &BoothHandler{authz: authz}
}

type boothAccessResponse struct {
	BoothID string `json:"booth_id"`
	Allowed bool   `json:"allowed"`
}

// GET /api/booths/:id/access
func (h *BoothHandler) Access(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	boothID := c.Param("id")
	allowed, err := h.authz.CanAccessBooth(requestContext(c), userID, boothID)
	if errors.Is(err, permissions.ErrResourceNotFound) {
		response.Error(c, appErrors.NewNotFound("booth"))
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, boothAccessResponse{BoothID: boothID, Allowed: allowed})
}
