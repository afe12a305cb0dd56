package services

import (
	"errors"
	"net/http"

	"github.com/eventpress/eventpress/internal/store"
	apperrors "github.com/eventpress/eventpress/pkg/errors"
)

var (
	// ErrStaffAlreadyClaimed indicates the ticket is already bound to a user.
	ErrStaffAlreadyClaimed = apperrors.New("STAFF_ALREADY_CLAIMED", "This invitation has already been used", http.StatusConflict)
	// ErrAlreadyStaff indicates the caller already holds a ticket for the same event.
	ErrAlreadyStaff = apperrors.New("STAFF_ALREADY_ASSIGNED", "You are already staff for this event", http.StatusConflict)
	// ErrAmbiguousCode indicates an invitation code matched more than one ticket.
	ErrAmbiguousCode = apperrors.New("STAFF_AMBIGUOUS_CODE", "This invitation code is ambiguous, ask the organizer for a new one", http.StatusConflict)
	// ErrInvalidVerificationCode indicates the submitted verification code does not match.
	ErrInvalidVerificationCode = apperrors.New("STAFF_VERIFICATION_INVALID", "The verification code is incorrect", http.StatusBadRequest)
	// ErrVerificationLocked indicates the verification attempt cap was reached.
	ErrVerificationLocked = apperrors.New("STAFF_VERIFICATION_LOCKED", "Too many verification attempts, try again later", http.StatusTooManyRequests)
	// ErrTicketExpired indicates the ticket's valid_until lies in the past.
	ErrTicketExpired = apperrors.New("STAFF_TICKET_EXPIRED", "This invitation has expired", http.StatusGone)
	// ErrClaimState indicates the claim step is not allowed in the current state.
	ErrClaimState = apperrors.New("CLAIM_STATE_INVALID", "This step is not available right now", http.StatusConflict)
	// ErrEmailDelivery indicates an explicitly requested email could not be delivered.
	ErrEmailDelivery = apperrors.New("EMAIL_DELIVERY_FAILED", "The email could not be delivered", http.StatusBadGateway)
)

// translateStoreError maps store sentinels onto the API error taxonomy.
func translateStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrTicketNotFound):
		return apperrors.NewNotFound("staff ticket")
	case errors.Is(err, store.ErrBoothNotFound):
		return apperrors.NewNotFound("booth")
	case errors.Is(err, store.ErrAlreadyBound):
		return ErrStaffAlreadyClaimed
	case errors.Is(err, store.ErrDuplicateBinding):
		return ErrAlreadyStaff
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.ErrInternalServer.WithInternal(err)
}
