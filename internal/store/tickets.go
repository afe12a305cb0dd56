package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/eventpress/eventpress/internal/models"
)

// TicketPatch lists the ticket fields an update may touch. Nil pointers are left alone;
// the Clear flags null out optional columns.
type TicketPatch struct {
	VerificationEmail  *string
	ValidUntil         *time.Time
	ClearValidUntil    bool
	Note               *string
	Message            *string
	ConnectedUserID    *string
	ClearConnectedUser bool
}

func (p TicketPatch) columns() map[string]any {
	updates := map[string]any{}
	if p.VerificationEmail != nil {
		updates["verification_email"] = *p.VerificationEmail
	}
	switch {
	case p.ClearValidUntil:
		updates["valid_until"] = nil
	case p.ValidUntil != nil:
		updates["valid_until"] = *p.ValidUntil
	}
	if p.Note != nil {
		updates["note"] = *p.Note
	}
	if p.Message != nil {
		updates["message"] = *p.Message
	}
	switch {
	case p.ClearConnectedUser:
		updates["connected_user_id"] = nil
	case p.ConnectedUserID != nil:
		updates["connected_user_id"] = *p.ConnectedUserID
	}
	return updates
}

// TicketStore persists staff tickets.
type TicketStore struct {
	db *gorm.DB
}

// NewTicketStore constructs a TicketStore.
func NewTicketStore(db *gorm.DB) *TicketStore {
	return &TicketStore{db: db}
}

// Create inserts the ticket; the ID is generated when empty.
func (s *TicketStore) Create(ctx context.Context, ticket *models.StaffTicket) error {
	if ticket == nil {
		return errors.New("store: ticket is required")
	}
	if err := s.db.WithContext(ctx).Create(ticket).Error; err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateBinding
		}
		return fmt.Errorf("store: create ticket: %w", err)
	}
	return nil
}

// GetByID loads a single ticket.
func (s *TicketStore) GetByID(ctx context.Context, id string) (*models.StaffTicket, error) {
	var ticket models.StaffTicket
	err := s.db.WithContext(ctx).First(&ticket, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: load ticket: %w", err)
	}
	return &ticket, nil
}

// Update applies the provided fields and returns the reloaded ticket.
func (s *TicketStore) Update(ctx context.Context, id string, patch TicketPatch) (*models.StaffTicket, error) {
	ticket, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := patch.columns()
	if len(updates) == 0 {
		return ticket, nil
	}

	if err := s.db.WithContext(ctx).Model(ticket).Updates(updates).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrDuplicateBinding
		}
		return nil, fmt.Errorf("store: update ticket: %w", err)
	}

	return s.GetByID(ctx, id)
}

// BindUser sets connected_user only while the ticket is still unclaimed.
func (s *TicketStore) BindUser(ctx context.Context, id, userID string) (*models.StaffTicket, error) {
	result := s.db.WithContext(ctx).
		Model(&models.StaffTicket{}).
		Where("id = ? AND connected_user_id IS NULL", id).
		Updates(map[string]any{"connected_user_id": userID, "updated_at": time.Now()})
	if result.Error != nil {
		if isUniqueConstraintError(result.Error) {
			return nil, ErrDuplicateBinding
		}
		return nil, fmt.Errorf("store: bind ticket: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		if _, err := s.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrAlreadyBound
	}

	return s.GetByID(ctx, id)
}

// Delete removes the ticket; permissions go with it through the foreign key cascade.
func (s *TicketStore) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&models.StaffTicket{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("store: delete ticket: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTicketNotFound
	}
	return nil
}

// ListByEvent returns every ticket of an event, oldest first.
func (s *TicketStore) ListByEvent(ctx context.Context, eventID string) ([]models.StaffTicket, error) {
	return s.list(ctx, "event_id = ?", eventID)
}

// ListByConnectedUser returns the tickets bound to a user.
func (s *TicketStore) ListByConnectedUser(ctx context.Context, userID string) ([]models.StaffTicket, error) {
	return s.list(ctx, "connected_user_id = ?", userID)
}

// ListByInvitationCode returns every ticket whose ID starts with "<code>-". Uniqueness is
// not enforced here.
func (s *TicketStore) ListByInvitationCode(ctx context.Context, code string) ([]models.StaffTicket, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" || strings.ContainsAny(code, `%_\-`) {
		return nil, nil
	}
	return s.list(ctx, "id LIKE ?", code+"-%")
}

func (s *TicketStore) list(ctx context.Context, query string, args ...any) ([]models.StaffTicket, error) {
	var tickets []models.StaffTicket
	if err := s.db.WithContext(ctx).
		Where(query, args...).
		Order("created_at ASC").
		Find(&tickets).Error; err != nil {
		return nil, fmt.Errorf("store: list tickets: %w", err)
	}
	return tickets, nil
}

// WithTx returns a TicketStore bound to tx.
func (s *TicketStore) WithTx(tx *gorm.DB) *TicketStore {
	return &TicketStore{db: tx}
}
