package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/eventpress/eventpress/internal/models"
	"github.com/eventpress/eventpress/internal/store"
	apperrors "github.com/eventpress/eventpress/pkg/errors"
	"github.com/eventpress/eventpress/pkg/logger"
	"github.com/eventpress/eventpress/pkg/mail"
	"github.com/eventpress/eventpress/pkg/metrics"
	"github.com/eventpress/eventpress/pkg/validator"
)

// EventResolver looks up events. Absent events resolve to (nil, nil).
type EventResolver interface {
	ResolveEvent(ctx context.Context, id string) (*models.Event, error)
}

// BoothResolver looks up booths. Absent booths resolve to (nil, nil).
type BoothResolver interface {
	ResolveBooth(ctx context.Context, id string) (*models.Booth, error)
}

// UserResolver looks up user identities. Absent users resolve to (nil, nil).
type UserResolver interface {
	ResolveUser(ctx context.Context, id string) (*models.User, error)
	ResolveUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// StaffOption customises StaffService behaviour.
type StaffOption func(*StaffService)

// WithStaffNotifier configures the email boundary used for invitations and verification codes.
func WithStaffNotifier(notifier StaffNotifier) StaffOption {
	return func(s *StaffService) {
		s.notifier = notifier
	}
}

// WithStaffResolvers overrides the collaborator lookups. Nil arguments keep the defaults.
func WithStaffResolvers(events EventResolver, booths BoothResolver, users UserResolver) StaffOption {
	return func(s *StaffService) {
		if events != nil {
			s.events = events
		}
		if booths != nil {
			s.booths = booths
		}
		if users != nil {
			s.users = users
		}
	}
}

// StaffService manages staff tickets, their booth permissions and identity binding.
type StaffService struct {
	store    *store.Store
	events   EventResolver
	booths   BoothResolver
	users    UserResolver
	notifier StaffNotifier
}

// NewStaffService constructs a StaffService backed by the provided database.
func NewStaffService(db *gorm.DB, opts ...StaffOption) (*StaffService, error) {
	if db == nil {
		return nil, errors.New("staff service: db is required")
	}

	st := store.New(db)
	service := &StaffService{
		store:  st,
		events: st.Directory,
		booths: st.Directory,
		users:  st.Directory,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// CreateStaff validates the request, persists the ticket with its booth grants in one
// transaction and then sends the invitation email when a verification email is set.
func (s *StaffService) CreateStaff(ctx context.Context, req CreateStaffRequest) (member *StaffMember, err error) {
	ctx = ensureContext(ctx)
	defer func() { metrics.StaffOperations.WithLabelValues("create", metrics.Result(err)).Inc() }()

	eventID := strings.ToLower(strings.TrimSpace(req.Event))
	if eventID == "" {
		return nil, apperrors.NewValidation("event is required")
	}
	event, err := s.resolveEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	boothIDs, err := s.validateBooths(ctx, event.ID, req.booths())
	if err != nil {
		return nil, err
	}

	connectedUser, _, err := s.validateConnectedUser(ctx, req.ConnectedUser)
	if err != nil {
		return nil, err
	}

	email, err := normaliseEmail(req.VerificationEmail)
	if err != nil {
		return nil, err
	}

	validUntil, _, err := parseValidUntil(req.ValidUntil)
	if err != nil {
		return nil, err
	}

	ticket := &models.StaffTicket{
		EventID:           event.ID,
		VerificationEmail: email,
		ValidUntil:        validUntil,
		Note:              req.Note,
		Message:           trimmedOrNil(req.Message),
		ConnectedUserID:   connectedUser,
	}

	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.Tickets.Create(ctx, ticket); err != nil {
			return err
		}
		for _, boothID := range boothIDs {
			if _, err := tx.Permissions.Grant(ctx, ticket.ID, boothID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, translateStoreError(err)
	}

	logger.WithModule("staff").Info("staff ticket created",
		zap.String("staff_ticket_id", ticket.ID),
		zap.String("event_id", event.ID),
		zap.Int("booths", len(boothIDs)),
	)

	if ticket.RequiresVerification() {
		// Delivery problems are recorded by deliver and never fail ticket creation.
		_ = s.deliver(ctx, emailInvite, ticket, event)
	}

	return s.member(ctx, ticket)
}

// UpdateStaff patches the mutable ticket fields and replaces the booth set in one transaction.
func (s *StaffService) UpdateStaff(ctx context.Context, req UpdateStaffRequest) (member *StaffMember, err error) {
	ctx = ensureContext(ctx)
	defer func() { metrics.StaffOperations.WithLabelValues("update", metrics.Result(err)).Inc() }()

	ticket, err := s.loadTicket(ctx, req.StaffTicketsID)
	if err != nil {
		return nil, err
	}

	if err := checkImmutable("verification_email", ticket.VerificationEmail, req.VerificationEmail, true); err != nil {
		return nil, err
	}
	if err := checkImmutable("message", ticket.Message, req.Message, false); err != nil {
		return nil, err
	}

	boothIDs, err := s.validateBooths(ctx, ticket.EventID, req.booths())
	if err != nil {
		return nil, err
	}

	connectedUser, clearUser, err := s.validateConnectedUser(ctx, req.ConnectedUser)
	if err != nil {
		return nil, err
	}

	validUntil, clearValidUntil, err := parseValidUntil(req.ValidUntil)
	if err != nil {
		return nil, err
	}

	patch := store.TicketPatch{
		ValidUntil:         validUntil,
		ClearValidUntil:    clearValidUntil,
		Note:               req.Note,
		ConnectedUserID:    connectedUser,
		ClearConnectedUser: clearUser,
	}

	var updated *models.StaffTicket
	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		var txErr error
		if updated, txErr = tx.Tickets.Update(ctx, ticket.ID, patch); txErr != nil {
			return txErr
		}
		if _, txErr = tx.Permissions.RevokeAll(ctx, ticket.ID); txErr != nil {
			return txErr
		}
		for _, boothID := range boothIDs {
			if _, txErr = tx.Permissions.Grant(ctx, ticket.ID, boothID); txErr != nil {
				return txErr
			}
		}
		return nil
	})
	if err != nil {
		return nil, translateStoreError(err)
	}

	logger.WithModule("staff").Info("staff ticket updated",
		zap.String("staff_ticket_id", ticket.ID),
		zap.Int("booths", len(boothIDs)),
	)

	return s.member(ctx, updated)
}

// DeleteStaff removes a ticket. Its permissions are removed by the storage cascade.
func (s *StaffService) DeleteStaff(ctx context.Context, req DeleteStaffRequest) (err error) {
	ctx = ensureContext(ctx)
	defer func() { metrics.StaffOperations.WithLabelValues("delete", metrics.Result(err)).Inc() }()

	id, err := requireUUID("staff_tickets_id", req.StaffTicketsID)
	if err != nil {
		return err
	}

	if err := s.store.Tickets.Delete(ctx, id); err != nil {
		return translateStoreError(err)
	}

	logger.WithModule("staff").Info("staff ticket deleted", zap.String("staff_ticket_id", id))
	return nil
}

// GetStaffOfEvent returns every ticket of the event with its booths and bound user.
func (s *StaffService) GetStaffOfEvent(ctx context.Context, eventID string) ([]StaffMember, error) {
	ctx = ensureContext(ctx)

	event, err := s.resolveEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	tickets, err := s.store.Tickets.ListByEvent(ctx, event.ID)
	if err != nil {
		return nil, translateStoreError(err)
	}

	members := make([]StaffMember, 0, len(tickets))
	for i := range tickets {
		member, err := s.member(ctx, &tickets[i])
		if err != nil {
			return nil, err
		}
		members = append(members, *member)
	}
	return members, nil
}

// GetStaffOfUser returns the raw tickets bound to a user.
func (s *StaffService) GetStaffOfUser(ctx context.Context, userID string) ([]models.StaffTicket, error) {
	ctx = ensureContext(ctx)

	id, err := requireUUID("user", userID)
	if err != nil {
		return nil, err
	}
	user, err := s.users.ResolveUser(ctx, id)
	if err != nil {
		return nil, translateStoreError(err)
	}
	if user == nil {
		return nil, apperrors.NewNotFound("user")
	}

	tickets, err := s.store.Tickets.ListByConnectedUser(ctx, user.ID)
	if err != nil {
		return nil, translateStoreError(err)
	}
	return tickets, nil
}

// GetStaffByInvitationCode returns every ticket whose ID starts with the code. Callers
// decide what to do with zero or several matches.
func (s *StaffService) GetStaffByInvitationCode(ctx context.Context, code string) ([]models.StaffTicket, error) {
	ctx = ensureContext(ctx)

	code = strings.TrimSpace(code)
	if err := validator.ValidateVar(code, "required,invitation_code"); err != nil {
		return nil, apperrors.NewValidation("invitation code must be 8 hexadecimal characters")
	}

	tickets, err := s.store.Tickets.ListByInvitationCode(ctx, code)
	if err != nil {
		return nil, translateStoreError(err)
	}
	return tickets, nil
}

// GetStaffByTicketID returns one ticket with its booths and bound user.
func (s *StaffService) GetStaffByTicketID(ctx context.Context, ticketID string) (*StaffMember, error) {
	ctx = ensureContext(ctx)

	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	return s.member(ctx, ticket)
}

// GrantPermission gives a ticket access to a booth of its event. Granting twice is a no-op.
func (s *StaffService) GrantPermission(ctx context.Context, ticketID, boothID string) (permission *models.StaffPermission, err error) {
	ctx = ensureContext(ctx)
	defer func() { metrics.StaffOperations.WithLabelValues("grant", metrics.Result(err)).Inc() }()

	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	boothIDs, err := s.validateBooths(ctx, ticket.EventID, []string{boothID})
	if err != nil {
		return nil, err
	}
	if len(boothIDs) == 0 {
		return nil, apperrors.NewValidation("booth is required")
	}

	permission, err = s.store.Permissions.Grant(ctx, ticket.ID, boothIDs[0])
	if err != nil {
		return nil, translateStoreError(err)
	}
	return permission, nil
}

// RevokePermission removes a booth grant. Revoking an absent grant returns (nil, nil).
func (s *StaffService) RevokePermission(ctx context.Context, ticketID, boothID string) (permission *models.StaffPermission, err error) {
	ctx = ensureContext(ctx)
	defer func() { metrics.StaffOperations.WithLabelValues("revoke", metrics.Result(err)).Inc() }()

	ticketID, err = requireUUID("staff_tickets_id", ticketID)
	if err != nil {
		return nil, err
	}
	boothID, err = requireUUID("booth", boothID)
	if err != nil {
		return nil, err
	}

	permission, err = s.store.Permissions.Revoke(ctx, ticketID, boothID)
	if err != nil {
		return nil, translateStoreError(err)
	}
	return permission, nil
}

// SendInviteEmail sends the invitation email of a ticket again.
func (s *StaffService) SendInviteEmail(ctx context.Context, ticketID string) error {
	return s.sendExplicit(ensureContext(ctx), emailInvite, ticketID)
}

// SendVerificationEmail sends the verification code email of a ticket.
func (s *StaffService) SendVerificationEmail(ctx context.Context, ticketID string) error {
	return s.sendExplicit(ensureContext(ctx), emailVerification, ticketID)
}

// BindUser claims an unbound ticket for userID.
func (s *StaffService) BindUser(ctx context.Context, ticketID, userID string) (ticket *models.StaffTicket, err error) {
	ctx = ensureContext(ctx)
	defer func() { metrics.StaffOperations.WithLabelValues("bind", metrics.Result(err)).Inc() }()

	ticketID, err = requireUUID("staff_tickets_id", ticketID)
	if err != nil {
		return nil, err
	}
	userID, err = requireUUID("user", userID)
	if err != nil {
		return nil, err
	}

	user, err := s.users.ResolveUser(ctx, userID)
	if err != nil {
		return nil, translateStoreError(err)
	}
	if user == nil {
		return nil, apperrors.NewNotFound("user")
	}

	ticket, err = s.store.Tickets.BindUser(ctx, ticketID, user.ID)
	if err != nil {
		return nil, translateStoreError(err)
	}

	logger.WithModule("staff").Info("staff ticket claimed",
		zap.String("staff_ticket_id", ticket.ID),
		zap.String("user_id", user.ID),
	)
	return ticket, nil
}

func (s *StaffService) sendExplicit(ctx context.Context, kind emailKind, ticketID string) error {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	if !ticket.RequiresVerification() {
		return apperrors.NewValidation("staff ticket has no verification email")
	}
	event, err := s.resolveEvent(ctx, ticket.EventID)
	if err != nil {
		return err
	}
	return s.deliver(ctx, kind, ticket, event)
}

// deliver sends one notification and records the outcome. Disabled delivery is not an error.
func (s *StaffService) deliver(ctx context.Context, kind emailKind, ticket *models.StaffTicket, event *models.Event) error {
	log := logger.WithModule("staff").With(
		zap.String("email", string(kind)),
		zap.String("staff_ticket_id", ticket.ID),
	)

	if s.notifier == nil {
		metrics.EmailDeliveries.WithLabelValues(string(kind), "skipped").Inc()
		log.Debug("no notifier configured; email skipped")
		return nil
	}

	var err error
	switch kind {
	case emailInvite:
		err = s.notifier.NotifyInvite(ctx, ticket, event)
	default:
		err = s.notifier.NotifyVerification(ctx, ticket, event)
	}

	switch {
	case err == nil:
		metrics.EmailDeliveries.WithLabelValues(string(kind), "sent").Inc()
		return nil
	case errors.Is(err, mail.ErrSMTPDisabled):
		metrics.EmailDeliveries.WithLabelValues(string(kind), "skipped").Inc()
		log.Debug("smtp disabled; email skipped")
		return nil
	default:
		metrics.EmailDeliveries.WithLabelValues(string(kind), "failed").Inc()
		log.Warn("email delivery failed", zap.Error(err))
		return ErrEmailDelivery.WithInternal(err)
	}
}

func (s *StaffService) member(ctx context.Context, ticket *models.StaffTicket) (*StaffMember, error) {
	permissions, err := s.store.Permissions.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, translateStoreError(err)
	}

	booths := make([]models.Booth, 0, len(permissions))
	for _, permission := range permissions {
		if permission.Booth != nil {
			booths = append(booths, *permission.Booth)
		}
	}

	var user *models.User
	if ticket.Claimed() {
		if user, err = s.users.ResolveUser(ctx, *ticket.ConnectedUserID); err != nil {
			return nil, translateStoreError(err)
		}
	}

	return &StaffMember{StaffTicket: *ticket, Booths: booths, ConnectedUser: user}, nil
}

func (s *StaffService) loadTicket(ctx context.Context, ticketID string) (*models.StaffTicket, error) {
	id, err := requireUUID("staff_tickets_id", ticketID)
	if err != nil {
		return nil, err
	}
	ticket, err := s.store.Tickets.GetByID(ctx, id)
	if err != nil {
		return nil, translateStoreError(err)
	}
	return ticket, nil
}

func (s *StaffService) resolveEvent(ctx context.Context, eventID string) (*models.Event, error) {
	id, err := requireUUID("event", eventID)
	if err != nil {
		return nil, err
	}
	event, err := s.events.ResolveEvent(ctx, id)
	if err != nil {
		return nil, translateStoreError(err)
	}
	if event == nil {
		return nil, apperrors.NewNotFound("event")
	}
	return event, nil
}

// validateBooths checks format, existence and event membership of every booth.
func (s *StaffService) validateBooths(ctx context.Context, eventID string, ids []string) ([]string, error) {
	ids = normaliseIDs(ids)
	for _, id := range ids {
		if !validator.IsUUID(id) {
			return nil, apperrors.NewValidation("booth %q is not a valid identifier", id)
		}
	}
	for _, id := range ids {
		booth, err := s.booths.ResolveBooth(ctx, id)
		if err != nil {
			return nil, translateStoreError(err)
		}
		if booth == nil {
			return nil, apperrors.NewNotFound("booth")
		}
		if booth.EventID != eventID {
			return nil, apperrors.NewValidation("booth %q does not belong to the ticket's event", id)
		}
	}
	return ids, nil
}

// validateConnectedUser returns the user ID to bind, or clear=true for an explicit empty value.
func (s *StaffService) validateConnectedUser(ctx context.Context, value *string) (id *string, clear bool, err error) {
	if value == nil {
		return nil, false, nil
	}
	raw := strings.ToLower(strings.TrimSpace(*value))
	if raw == "" {
		return nil, true, nil
	}
	if !validator.IsUUID(raw) {
		return nil, false, apperrors.NewValidation("connected_user is not a valid identifier")
	}
	user, err := s.users.ResolveUser(ctx, raw)
	if err != nil {
		return nil, false, translateStoreError(err)
	}
	if user == nil {
		return nil, false, apperrors.NewValidation("connected_user does not reference an existing user")
	}
	return &user.ID, false, nil
}

func requireUUID(field, value string) (string, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "", apperrors.NewValidation("%s is required", field)
	}
	if !validator.IsUUID(value) {
		return "", apperrors.NewValidation("%s is not a valid identifier", field)
	}
	return value, nil
}

func normaliseEmail(value *string) (*string, error) {
	trimmed := trimmedOrNil(value)
	if trimmed == nil {
		return nil, nil
	}
	email := strings.ToLower(*trimmed)
	if !validator.IsEmail(email) {
		return nil, apperrors.NewValidation("verification_email %q is not a valid email address", *trimmed)
	}
	return &email, nil
}

// parseValidUntil returns the parsed date, or clear=true for an explicit empty value.
func parseValidUntil(value *string) (until *time.Time, clear bool, err error) {
	if value == nil {
		return nil, false, nil
	}
	if strings.TrimSpace(*value) == "" {
		return nil, true, nil
	}
	parsed, ok := parseDate(*value)
	if !ok {
		return nil, false, apperrors.NewValidation("valid_until %q is not a valid date", *value)
	}
	return &parsed, false, nil
}

// checkImmutable rejects a supplied value that differs from the stored one.
func checkImmutable(field string, current, supplied *string, foldCase bool) error {
	if supplied == nil {
		return nil
	}
	have := strings.TrimSpace(stringValue(current))
	want := strings.TrimSpace(*supplied)
	if foldCase {
		have, want = strings.ToLower(have), strings.ToLower(want)
	}
	if have == want {
		return nil
	}
	return apperrors.NewValidation("%s cannot be changed after creation", field)
}
