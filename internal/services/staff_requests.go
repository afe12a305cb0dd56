package services

import (
	"github.com/eventpress/eventpress/internal/models"
)

// CreateStaffRequest describes a new staff ticket. Booths is preferred over the lowercase
// alias when both are supplied.
type CreateStaffRequest struct {
	Event             string   `json:"event"`
	VerificationEmail *string  `json:"verification_email,omitempty"`
	ValidUntil        *string  `json:"valid_until,omitempty"`
	Note              *string  `json:"note,omitempty"`
	Message           *string  `json:"message,omitempty"`
	ConnectedUser     *string  `json:"connected_user,omitempty"`
	Booths            []string `json:"Booths,omitempty"`
	BoothsAlias       []string `json:"booths,omitempty"`
}

func (r CreateStaffRequest) booths() []string {
	if r.Booths != nil {
		return r.Booths
	}
	return r.BoothsAlias
}

// UpdateStaffRequest patches a staff ticket. Nil fields are left untouched; an empty
// valid_until or connected_user clears the value. The booth set is always replaced, so an
// omitted list revokes every grant.
type UpdateStaffRequest struct {
	StaffTicketsID    string   `json:"staff_tickets_id"`
	VerificationEmail *string  `json:"verification_email,omitempty"`
	ValidUntil        *string  `json:"valid_until,omitempty"`
	Note              *string  `json:"note,omitempty"`
	Message           *string  `json:"message,omitempty"`
	ConnectedUser     *string  `json:"connected_user,omitempty"`
	Booths            []string `json:"Booths,omitempty"`
	BoothsAlias       []string `json:"booths,omitempty"`
}

func (r UpdateStaffRequest) booths() []string {
	if r.Booths != nil {
		return r.Booths
	}
	return r.BoothsAlias
}

// DeleteStaffRequest identifies the ticket to delete.
type DeleteStaffRequest struct {
	StaffTicketsID string `json:"staff_tickets_id"`
}

// StaffMember is a ticket merged with its granted booths and bound user.
type StaffMember struct {
	models.StaffTicket

	Booths        []models.Booth `json:"Booths"`
	ConnectedUser *models.User   `json:"connected_user"`
}
