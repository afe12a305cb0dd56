package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eventpress/eventpress/internal/services"
	"github.com/eventpress/eventpress/pkg/response"
)

// ClaimHandler drives the invitation claim flow of the authenticated user. Every response
// carries the current claim view, failures included, so the client knows where to resume.
type ClaimHandler struct {
	flow *services.ClaimFlow
}

func NewClaimHandler(flow *services.ClaimFlow) *ClaimHandler {
	return &ClaimHandler{flow: flow}
}

type claimCodeRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}

type claimVerifyRequest struct {
	Code string `json:"code" validate:"required,verification_code"`
}

// GET /api/claim
func (h *ClaimHandler) State(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	view, err := h.flow.State(requestContext(c), userID)
	h.respond(c, view, err)
}

// POST /api/claim/code
func (h *ClaimHandler) SubmitCode(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req claimCodeRequest
	if !bindClaim(h, c, userID, &req) {
		return
	}
	view, err := h.flow.SubmitCode(requestContext(c), userID, req.Code)
	h.respond(c, view, err)
}

// POST /api/claim/verify
func (h *ClaimHandler) SubmitVerification(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req claimVerifyRequest
	if !bindClaim(h, c, userID, &req) {
		return
	}
	view, err := h.flow.SubmitVerification(requestContext(c), userID, req.Code)
	h.respond(c, view, err)
}

// POST /api/claim/resend
func (h *ClaimHandler) Resend(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	view, err := h.flow.Resend(requestContext(c), userID)
	h.respond(c, view, err)
}

// POST /api/claim/back
func (h *ClaimHandler) Back(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	view, err := h.flow.Back(requestContext(c), userID)
	h.respond(c, view, err)
}

// DELETE /api/claim
func (h *ClaimHandler) Cancel(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.flow.Cancel(requestContext(c), userID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"cancelled": true})
}

// bindClaim decodes dest; malformed payloads answer with the unchanged view.
func bindClaim[T any](h *ClaimHandler, c *gin.Context, userID string, dest *T) bool {
	if err := decodeAndValidate(c, dest); err != nil {
		view, _ := h.flow.State(requestContext(c), userID)
		response.ErrorWithData(c, err, view)
		return false
	}
	return true
}

func (h *ClaimHandler) respond(c *gin.Context, view *services.ClaimView, err error) {
	if err != nil {
		response.ErrorWithData(c, err, view)
		return
	}
	response.Success(c, http.StatusOK, view)
}
