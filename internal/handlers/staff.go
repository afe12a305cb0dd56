package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eventpress/eventpress/internal/models"
	"github.com/eventpress/eventpress/internal/permissions"
	"github.com/eventpress/eventpress/internal/services"
	appErrors "github.com/eventpress/eventpress/pkg/errors"
	"github.com/eventpress/eventpress/pkg/response"
	appValidator "github.com/eventpress/eventpress/pkg/validator"
)

// EventAuthorizer decides whether a user may administer an event's staff.
type EventAuthorizer interface {
	CanManageEvent(ctx context.Context, userID, eventID string) (bool, error)
}

// StaffHandler exposes staff ticket administration. Routes carrying a ticket or event
// identifier are guarded by middleware; Create checks the event named in the body itself.
type StaffHandler struct {
	staff *services.StaffService
	authz EventAuthorizer
}

func NewStaffHandler(staff *services.StaffService, authz EventAuthorizer) *StaffHandler {
	return &StaffHandler{staff: staff, authz: authz}
}

type staffListResponse struct {
	Staff []services.StaffMember `json:"staff"`
}

type ticketListResponse struct {
	Tickets []assignedTicket `json:"tickets"`
}

// assignedTicket is a ticket as seen by the staff member holding it. The organizer
// note is never part of it.
type assignedTicket struct {
	ID                string     `json:"id"`
	Event             string     `json:"event"`
	VerificationEmail *string    `json:"verification_email"`
	ValidUntil        *time.Time `json:"valid_until"`
	Message           *string    `json:"message"`
	ConnectedUser     *string    `json:"connected_user"`
	CreatedAt         time.Time  `json:"created_at"`
}

func newAssignedTicket(ticket *models.StaffTicket) assignedTicket {
	return assignedTicket{
		ID:                ticket.ID,
		Event:             ticket.EventID,
		VerificationEmail: ticket.VerificationEmail,
		ValidUntil:        ticket.ValidUntil,
		Message:           ticket.Message,
		ConnectedUser:     ticket.ConnectedUserID,
		CreatedAt:         ticket.CreatedAt,
	}
}

// POST /api/staff
func (h *StaffHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req services.CreateStaffRequest
	if !bindAndValidate(c, &req) {
		return
	}

	// Malformed identifiers fall through to the service, which reports them as validation errors.
	eventID := strings.ToLower(strings.TrimSpace(req.Event))
	if h.authz != nil && appValidator.IsUUID(eventID) {
		allowed, err := h.authz.CanManageEvent(requestContext(c), userID, eventID)
		switch {
		case errors.Is(err, permissions.ErrResourceNotFound):
			response.Error(c, appErrors.NewNotFound("event"))
			return
		case err != nil:
			response.Error(c, err)
			return
		case !allowed:
			response.Error(c, appErrors.ErrForbidden)
			return
		}
	}

	member, err := h.staff.CreateStaff(requestContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, member)
}

// PATCH /api/staff/:id
func (h *StaffHandler) Update(c *gin.Context) {
	var req services.UpdateStaffRequest
	if !bindAndValidate(c, &req) {
		return
	}
	req.StaffTicketsID = c.Param("id")

	member, err := h.staff.UpdateStaff(requestContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, member)
}

// DELETE /api/staff/:id
func (h *StaffHandler) Delete(c *gin.Context) {
	err := h.staff.DeleteStaff(requestContext(c), services.DeleteStaffRequest{StaffTicketsID: c.Param("id")})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// GET /api/staff/:id
func (h *StaffHandler) Get(c *gin.Context) {
	member, err := h.staff.GetStaffByTicketID(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, member)
}

// GET /api/events/:eventID/staff
func (h *StaffHandler) ListByEvent(c *gin.Context) {
	members, err := h.staff.GetStaffOfEvent(requestContext(c), c.Param("eventID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if members == nil {
		members = []services.StaffMember{}
	}
	response.Success(c, http.StatusOK, staffListResponse{Staff: members})
}

// GET /api/users/me/staff
func (h *StaffHandler) ListMine(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	tickets, err := h.staff.GetStaffOfUser(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	assigned := make([]assignedTicket, 0, len(tickets))
	for i := range tickets {
		assigned = append(assigned, newAssignedTicket(&tickets[i]))
	}
	response.Success(c, http.StatusOK, ticketListResponse{Tickets: assigned})
}

// POST /api/staff/:id/booths/:boothID
func (h *StaffHandler) GrantBooth(c *gin.Context) {
	permission, err := h.staff.GrantPermission(requestContext(c), c.Param("id"), c.Param("boothID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, permission)
}

// DELETE /api/staff/:id/booths/:boothID
func (h *StaffHandler) RevokeBooth(c *gin.Context) {
	permission, err := h.staff.RevokePermission(requestContext(c), c.Param("id"), c.Param("boothID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"revoked":    permission != nil,
		"permission": permission,
	})
}

// POST /api/staff/:id/invite-email
func (h *StaffHandler) SendInvite(c *gin.Context) {
	if err := h.staff.SendInviteEmail(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"sent": true})
}
