package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eventpress/eventpress/internal/cache"
	"github.com/eventpress/eventpress/internal/models"
	apperrors "github.com/eventpress/eventpress/pkg/errors"
	"github.com/eventpress/eventpress/pkg/logger"
	"github.com/eventpress/eventpress/pkg/metrics"
	"github.com/eventpress/eventpress/pkg/validator"
)

// ClaimState names a step of the invitation claim flow.
type ClaimState string

const (
	ClaimAwaitingCode         ClaimState = "AWAITING_CODE"
	ClaimAwaitingVerification ClaimState = "AWAITING_VERIFICATION"
	ClaimClaimed              ClaimState = "CLAIMED"
)

const (
	defaultClaimSessionTTL    = 30 * time.Minute
	defaultVerificationLimit  = 5
	defaultVerificationWindow = 15 * time.Minute
	claimSessionKeyPrefix     = "claim:session:"
	claimAttemptsKeyPrefix    = "claim:attempts:"
)

// ClaimInvitation is the invitee-facing view of a ticket. It never carries the organizer note.
type ClaimInvitation struct {
	Code        string     `json:"code"`
	EventID     string     `json:"event_id"`
	EventName   string     `json:"event_name"`
	Message     *string    `json:"message,omitempty"`
	MaskedEmail string     `json:"masked_email,omitempty"`
	ValidUntil  *time.Time `json:"valid_until,omitempty"`
}

// ClaimView reports the current claim step of a user.
type ClaimView struct {
	State      ClaimState       `json:"state"`
	Invitation *ClaimInvitation `json:"invitation,omitempty"`
	EmailSent  bool             `json:"email_sent"`
}

type claimSession struct {
	State      ClaimState       `json:"state"`
	Invitation *ClaimInvitation `json:"invitation,omitempty"`
	TicketID   string           `json:"ticket_id,omitempty"`
	EmailSent  bool             `json:"email_sent"`
}

func (s *claimSession) view() *ClaimView {
	return &ClaimView{State: s.State, Invitation: s.Invitation, EmailSent: s.EmailSent}
}

// ClaimOption customises ClaimFlow behaviour.
type ClaimOption func(*ClaimFlow)

// WithClaimSessionTTL overrides how long an idle claim session is kept.
func WithClaimSessionTTL(ttl time.Duration) ClaimOption {
	return func(f *ClaimFlow) {
		if ttl > 0 {
			f.sessionTTL = ttl
		}
	}
}

// WithClaimAttemptLimit caps verification submissions per ticket within window. A
// non-positive max disables the cap.
func WithClaimAttemptLimit(max int, window time.Duration) ClaimOption {
	return func(f *ClaimFlow) {
		f.maxAttempts = max
		if window > 0 {
			f.attemptWindow = window
		}
	}
}

// WithClaimExpiryEnforcement makes claiming reject tickets past their valid_until.
func WithClaimExpiryEnforcement(enforce bool) ClaimOption {
	return func(f *ClaimFlow) {
		f.enforceExpiry = enforce
	}
}

// WithClaimClock injects a custom clock primarily for testing.
func WithClaimClock(clock func() time.Time) ClaimOption {
	return func(f *ClaimFlow) {
		if clock != nil {
			f.now = clock
		}
	}
}

// ClaimFlow drives the per-user invitation claim state machine.
type ClaimFlow struct {
	staff         *StaffService
	cache         cache.Store
	sessionTTL    time.Duration
	maxAttempts   int
	attemptWindow time.Duration
	enforceExpiry bool
	now           func() time.Time
}

// NewClaimFlow constructs a ClaimFlow storing its sessions in store.
func NewClaimFlow(staff *StaffService, store cache.Store, opts ...ClaimOption) (*ClaimFlow, error) {
	if staff == nil {
		return nil, errors.New("claim flow: staff service is required")
	}
	if store == nil {
		return nil, errors.New("claim flow: cache store is required")
	}

	flow := &ClaimFlow{
		staff:         staff,
		cache:         store,
		sessionTTL:    defaultClaimSessionTTL,
		maxAttempts:   defaultVerificationLimit,
		attemptWindow: defaultVerificationWindow,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(flow)
	}
	return flow, nil
}

// State returns the user's current claim step.
func (f *ClaimFlow) State(ctx context.Context, userID string) (*ClaimView, error) {
	session, err := f.load(ensureContext(ctx), userID)
	if err != nil {
		return initialView(), err
	}
	return session.view(), nil
}

// SubmitCode redeems an invitation code. Tickets without a verification email are bound
// immediately; otherwise a verification code is emailed.
func (f *ClaimFlow) SubmitCode(ctx context.Context, userID, code string) (view *ClaimView, err error) {
	ctx = ensureContext(ctx)
	defer func() { metrics.ClaimSteps.WithLabelValues("code", claimOutcome(err)).Inc() }()

	session, err := f.load(ctx, userID)
	if err != nil {
		return initialView(), err
	}
	if session.State == ClaimAwaitingVerification {
		return session.view(), ErrClaimState.WithMessage("Go back before entering another invitation code")
	}
	if session.State != ClaimAwaitingCode {
		// a finished claim starts over so failures below leave AWAITING_CODE stored
		f.reset(ctx, userID)
	}
	session = &claimSession{State: ClaimAwaitingCode}

	code = strings.ToLower(strings.TrimSpace(code))
	if verr := validator.ValidateVar(code, "required,invitation_code"); verr != nil {
		return session.view(), apperrors.NewValidation("The invitation code must be 8 characters long")
	}

	tickets, err := f.staff.GetStaffByInvitationCode(ctx, code)
	if err != nil {
		return session.view(), err
	}
	switch {
	case len(tickets) == 0:
		return session.view(), apperrors.NewNotFound("invitation")
	case len(tickets) > 1:
		return session.view(), ErrAmbiguousCode
	}

	ticket := &tickets[0]
	if err := f.checkClaimable(ticket); err != nil {
		return session.view(), err
	}

	event, err := f.staff.resolveEvent(ctx, ticket.EventID)
	if err != nil {
		return session.view(), err
	}
	invitation := invitationView(ticket, event)

	if !ticket.RequiresVerification() {
		if _, err := f.staff.BindUser(ctx, ticket.ID, userID); err != nil {
			return session.view(), err
		}
		claimed := &claimSession{State: ClaimClaimed, Invitation: invitation, TicketID: ticket.ID}
		return claimed.view(), f.save(ctx, userID, claimed)
	}

	sendErr := f.staff.deliver(ctx, emailVerification, ticket, event)
	next := &claimSession{
		State:      ClaimAwaitingVerification,
		Invitation: invitation,
		TicketID:   ticket.ID,
		EmailSent:  sendErr == nil,
	}
	if err := f.save(ctx, userID, next); err != nil {
		return session.view(), err
	}

	logger.WithModule("claim").Info("claim awaiting verification",
		zap.String("user_id", userID),
		zap.String("staff_ticket_id", ticket.ID),
		zap.Bool("email_sent", next.EmailSent),
	)
	return next.view(), nil
}

// SubmitVerification checks the emailed code and binds the ticket on a match.
func (f *ClaimFlow) SubmitVerification(ctx context.Context, userID, code string) (view *ClaimView, err error) {
	ctx = ensureContext(ctx)
	defer func() { metrics.ClaimSteps.WithLabelValues("verify", claimOutcome(err)).Inc() }()

	session, err := f.load(ctx, userID)
	if err != nil {
		return initialView(), err
	}
	if session.State != ClaimAwaitingVerification {
		return session.view(), ErrClaimState.WithMessage("There is no verification pending")
	}

	ticket, err := f.staff.store.Tickets.GetByID(ctx, session.TicketID)
	if err != nil {
		return f.reset(ctx, userID), translateStoreError(err)
	}
	if err := f.checkClaimable(ticket); err != nil {
		return f.reset(ctx, userID), err
	}

	if f.maxAttempts > 0 {
		count, _, err := f.cache.IncrementWithTTL(ctx, claimAttemptsKeyPrefix+ticket.ID, f.attemptWindow)
		if err != nil {
			return session.view(), apperrors.ErrInternalServer.WithInternal(err)
		}
		if count > int64(f.maxAttempts) {
			return session.view(), ErrVerificationLocked
		}
	}

	submitted := strings.TrimSpace(code)
	if submitted == "" || !strings.EqualFold(submitted, ticket.VerificationCode()) {
		return session.view(), ErrInvalidVerificationCode
	}

	if _, err := f.staff.BindUser(ctx, ticket.ID, userID); err != nil {
		return f.reset(ctx, userID), err
	}

	_ = f.cache.Delete(ctx, claimAttemptsKeyPrefix+ticket.ID)
	claimed := &claimSession{State: ClaimClaimed, Invitation: session.Invitation, TicketID: ticket.ID, EmailSent: session.EmailSent}
	return claimed.view(), f.save(ctx, userID, claimed)
}

// Resend emails the verification code again without changing the state.
func (f *ClaimFlow) Resend(ctx context.Context, userID string) (view *ClaimView, err error) {
	ctx = ensureContext(ctx)
	defer func() { metrics.ClaimSteps.WithLabelValues("resend", claimOutcome(err)).Inc() }()

	session, err := f.load(ctx, userID)
	if err != nil {
		return initialView(), err
	}
	if session.State != ClaimAwaitingVerification {
		return session.view(), ErrClaimState.WithMessage("There is no verification pending")
	}

	if err := f.staff.SendVerificationEmail(ctx, session.TicketID); err != nil {
		return session.view(), err
	}

	session.EmailSent = true
	return session.view(), f.save(ctx, userID, session)
}

// Back returns to the code step and forgets the selected ticket.
func (f *ClaimFlow) Back(ctx context.Context, userID string) (view *ClaimView, err error) {
	ctx = ensureContext(ctx)
	defer func() { metrics.ClaimSteps.WithLabelValues("back", claimOutcome(err)).Inc() }()

	if err := f.cache.Delete(ctx, claimSessionKeyPrefix+userID); err != nil {
		return initialView(), apperrors.ErrInternalServer.WithInternal(err)
	}
	return initialView(), nil
}

// Cancel discards the user's claim session. Emails already sent are not recalled.
func (f *ClaimFlow) Cancel(ctx context.Context, userID string) error {
	if err := f.cache.Delete(ensureContext(ctx), claimSessionKeyPrefix+userID); err != nil {
		return apperrors.ErrInternalServer.WithInternal(err)
	}
	return nil
}

func (f *ClaimFlow) checkClaimable(ticket *models.StaffTicket) error {
	if ticket.Claimed() {
		return ErrStaffAlreadyClaimed
	}
	if f.enforceExpiry && ticket.Expired(f.now()) {
		return ErrTicketExpired
	}
	return nil
}

func (f *ClaimFlow) load(ctx context.Context, userID string) (*claimSession, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.ErrUnauthorized
	}
	raw, ok, err := f.cache.Get(ctx, claimSessionKeyPrefix+userID)
	if err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}
	if !ok {
		return &claimSession{State: ClaimAwaitingCode}, nil
	}

	var session claimSession
	if err := json.Unmarshal(raw, &session); err != nil {
		logger.WithModule("claim").Warn("discarding unreadable claim session",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return &claimSession{State: ClaimAwaitingCode}, nil
	}
	return &session, nil
}

func (f *ClaimFlow) save(ctx context.Context, userID string, session *claimSession) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("claim flow: encode session: %w", err)
	}
	if err := f.cache.Set(ctx, claimSessionKeyPrefix+userID, raw, f.sessionTTL); err != nil {
		return apperrors.ErrInternalServer.WithInternal(err)
	}
	return nil
}

// reset drops the session after a failure that invalidates the selected ticket.
func (f *ClaimFlow) reset(ctx context.Context, userID string) *ClaimView {
	if err := f.cache.Delete(ctx, claimSessionKeyPrefix+userID); err != nil {
		logger.WithModule("claim").Warn("failed to reset claim session",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
	return initialView()
}

func initialView() *ClaimView {
	return &ClaimView{State: ClaimAwaitingCode}
}

func invitationView(ticket *models.StaffTicket, event *models.Event) *ClaimInvitation {
	invitation := &ClaimInvitation{
		Code:       ticket.InvitationCode(),
		EventID:    ticket.EventID,
		EventName:  eventName(event),
		Message:    ticket.Message,
		ValidUntil: ticket.ValidUntil,
	}
	if ticket.RequiresVerification() {
		invitation.MaskedEmail = maskEmail(*ticket.VerificationEmail)
	}
	return invitation
}

func claimOutcome(err error) string {
	if err == nil {
		return "success"
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return strings.ToLower(appErr.Code)
	}
	return "error"
}
