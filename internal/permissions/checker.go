// Package permissions answers scoped authorisation questions: who may manage an event's
// staff and who may work a booth.
package permissions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/eventpress/eventpress/internal/models"
	"github.com/eventpress/eventpress/internal/store"
	"github.com/eventpress/eventpress/pkg/metrics"
)

// ErrResourceNotFound indicates the event, ticket or booth being checked does not exist.
var ErrResourceNotFound = errors.New("permission checker: resource not found")

// Option customises Checker behaviour.
type Option func(*Checker)

// WithExpiryEnforcement makes booth access ignore tickets past their valid_until.
func WithExpiryEnforcement(enforce bool) Option {
	return func(c *Checker) {
		c.enforceExpiry = enforce
	}
}

// WithClock injects a custom clock primarily for testing.
func WithClock(clock func() time.Time) Option {
	return func(c *Checker) {
		if clock != nil {
			c.now = clock
		}
	}
}

// Checker evaluates event ownership and staff booth grants.
type Checker struct {
	store         *store.Store
	enforceExpiry bool
	now           func() time.Time
}

// NewChecker constructs a permission checker backed by the provided database.
func NewChecker(db *gorm.DB, opts ...Option) (*Checker, error) {
	if db == nil {
		return nil, errors.New("permission checker: db is required")
	}
	checker := &Checker{store: store.New(db), now: time.Now}
	for _, opt := range opts {
		opt(checker)
	}
	return checker, nil
}

// CanManageEvent reports whether userID owns the event.
func (c *Checker) CanManageEvent(ctx context.Context, userID, eventID string) (allowed bool, err error) {
	defer func() { record("event", allowed, err) }()

	event, err := c.store.Directory.ResolveEvent(ensureContext(ctx), strings.TrimSpace(eventID))
	if err != nil {
		return false, fmt.Errorf("permission checker: %w", err)
	}
	if event == nil {
		return false, ErrResourceNotFound
	}
	return userID != "" && event.OwnerID == userID, nil
}

// CanManageTicket reports whether userID owns the event of the ticket.
func (c *Checker) CanManageTicket(ctx context.Context, userID, ticketID string) (allowed bool, err error) {
	defer func() { record("ticket", allowed, err) }()
	ctx = ensureContext(ctx)

	ticket, err := c.store.Tickets.GetByID(ctx, strings.TrimSpace(ticketID))
	if errors.Is(err, store.ErrTicketNotFound) {
		return false, ErrResourceNotFound
	}
	if err != nil {
		return false, fmt.Errorf("permission checker: %w", err)
	}

	event, err := c.store.Directory.ResolveEvent(ctx, ticket.EventID)
	if err != nil {
		return false, fmt.Errorf("permission checker: %w", err)
	}
	return event != nil && userID != "" && event.OwnerID == userID, nil
}

// CanAccessBooth reports whether userID owns the booth's event or holds a claimed staff
// ticket granting the booth.
func (c *Checker) CanAccessBooth(ctx context.Context, userID, boothID string) (allowed bool, err error) {
	defer func() { record("booth", allowed, err) }()
	ctx = ensureContext(ctx)

	booth, err := c.store.Directory.ResolveBooth(ctx, strings.TrimSpace(boothID))
	if err != nil {
		return false, fmt.Errorf("permission checker: %w", err)
	}
	if booth == nil {
		return false, ErrResourceNotFound
	}
	if userID == "" {
		return false, nil
	}

	event, err := c.store.Directory.ResolveEvent(ctx, booth.EventID)
	if err != nil {
		return false, fmt.Errorf("permission checker: %w", err)
	}
	if event != nil && event.OwnerID == userID {
		return true, nil
	}

	ticket, err := c.store.Permissions.FindClaimedGrant(ctx, userID, booth.ID)
	if err != nil {
		return false, fmt.Errorf("permission checker: %w", err)
	}
	return c.usable(ticket), nil
}

func (c *Checker) usable(ticket *models.StaffTicket) bool {
	if ticket == nil {
		return false
	}
	return !c.enforceExpiry || !ticket.Expired(c.now())
}

func record(scope string, allowed bool, err error) {
	result := "denied"
	switch {
	case err != nil && !errors.Is(err, ErrResourceNotFound):
		result = "error"
	case allowed:
		result = "allowed"
	}
	metrics.PermissionChecks.WithLabelValues(scope, result).Inc()
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
