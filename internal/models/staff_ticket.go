package models

import (
	"strings"
	"time"
)

// StaffTicket is one invited staff slot for one event.
type StaffTicket struct {
	BaseModel

	EventID           string     `gorm:"type:uuid;not null;uniqueIndex:idx_staff_ticket_event_user,priority:1" json:"event"`
	VerificationEmail *string    `json:"verification_email"`
	ValidUntil        *time.Time `json:"valid_until"`
	Note              *string    `json:"note"`
	Message           *string    `json:"message"`
	ConnectedUserID   *string    `gorm:"type:uuid;uniqueIndex:idx_staff_ticket_event_user,priority:2" json:"connected_user"`

	Event         *Event            `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	ConnectedUser *User             `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	Permissions   []StaffPermission `gorm:"foreignKey:StaffTicketID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName keeps the historical table name.
func (StaffTicket) TableName() string { return "staff_tickets" }

// Claimed reports whether an identity is bound to the ticket.
func (t *StaffTicket) Claimed() bool {
	return t != nil && t.ConnectedUserID != nil && *t.ConnectedUserID != ""
}

// RequiresVerification reports whether claiming needs the emailed verification code.
func (t *StaffTicket) RequiresVerification() bool {
	return t != nil && t.VerificationEmail != nil && strings.TrimSpace(*t.VerificationEmail) != ""
}

// Expired reports whether ValidUntil lies before now. Tickets without ValidUntil never expire.
func (t *StaffTicket) Expired(now time.Time) bool {
	return t != nil && t.ValidUntil != nil && t.ValidUntil.Before(now)
}

// InvitationCode is the first dash-delimited segment of the ticket ID.
func (t *StaffTicket) InvitationCode() string {
	if t == nil {
		return ""
	}
	return InvitationCode(t.ID)
}

// VerificationCode is the last dash-delimited segment of the ticket ID.
func (t *StaffTicket) VerificationCode() string {
	if t == nil {
		return ""
	}
	return VerificationCode(t.ID)
}

// InvitationCode derives the invitation code from a ticket ID.
func InvitationCode(ticketID string) string {
	if i := strings.Index(ticketID, "-"); i >= 0 {
		return ticketID[:i]
	}
	return ticketID
}

// VerificationCode derives the verification code from a ticket ID.
func VerificationCode(ticketID string) string {
	if i := strings.LastIndex(ticketID, "-"); i >= 0 {
		return ticketID[i+1:]
	}
	return ticketID
}
