package store

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/eventpress/eventpress/internal/models"
	"github.com/eventpress/eventpress/pkg/logger"
)

// PermissionStore persists booth grants of staff tickets.
type PermissionStore struct {
	db *gorm.DB
}

// NewPermissionStore constructs a PermissionStore.
func NewPermissionStore(db *gorm.DB) *PermissionStore {
	return &PermissionStore{db: db}
}

// WithTx returns a PermissionStore bound to tx.
func (s *PermissionStore) WithTx(tx *gorm.DB) *PermissionStore {
	return &PermissionStore{db: tx}
}

// Grant links a ticket to a booth. Granting an existing pair returns the stored record.
func (s *PermissionStore) Grant(ctx context.Context, ticketID, boothID string) (*models.StaffPermission, error) {
	db := s.db.WithContext(ctx)

	if err := ensureExists(db, &models.StaffTicket{}, ticketID, ErrTicketNotFound); err != nil {
		return nil, err
	}
	if err := ensureExists(db, &models.Booth{}, boothID, ErrBoothNotFound); err != nil {
		return nil, err
	}

	existing, err := s.find(ctx, ticketID, boothID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	permission := &models.StaffPermission{StaffTicketID: ticketID, BoothID: boothID}
	if err := db.Create(permission).Error; err != nil {
		if isUniqueConstraintError(err) {
			return s.find(ctx, ticketID, boothID)
		}
		return nil, fmt.Errorf("store: grant permission: %w", err)
	}
	return permission, nil
}

// Revoke removes a grant. A missing grant is not an error and yields a nil record.
func (s *PermissionStore) Revoke(ctx context.Context, ticketID, boothID string) (*models.StaffPermission, error) {
	existing, err := s.find(ctx, ticketID, boothID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		logger.WithModule("store").Debug("revoke skipped; permission absent",
			zap.String("staff_ticket_id", ticketID),
			zap.String("booth_id", boothID),
		)
		return nil, nil
	}

	if err := s.db.WithContext(ctx).Delete(existing).Error; err != nil {
		return nil, fmt.Errorf("store: revoke permission: %w", err)
	}
	return existing, nil
}

// RevokeAll drops every grant of a ticket and reports how many were removed.
func (s *PermissionStore) RevokeAll(ctx context.Context, ticketID string) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("staff_ticket_id = ?", ticketID).
		Delete(&models.StaffPermission{})
	if result.Error != nil {
		return 0, fmt.Errorf("store: revoke permissions: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// ListByTicket returns the grants of a ticket with their booths preloaded.
func (s *PermissionStore) ListByTicket(ctx context.Context, ticketID string) ([]models.StaffPermission, error) {
	var permissions []models.StaffPermission
	if err := s.db.WithContext(ctx).
		Preload("Booth").
		Where("staff_ticket_id = ?", ticketID).
		Order("created_at ASC").
		Find(&permissions).Error; err != nil {
		return nil, fmt.Errorf("store: list permissions: %w", err)
	}
	return permissions, nil
}

// FindClaimedGrant returns the ticket through which userID holds a grant on boothID, or nil.
func (s *PermissionStore) FindClaimedGrant(ctx context.Context, userID, boothID string) (*models.StaffTicket, error) {
	var ticket models.StaffTicket
	err := s.db.WithContext(ctx).
		Joins("JOIN staff_permissions ON staff_permissions.staff_ticket_id = staff_tickets.id").
		Where("staff_tickets.connected_user_id = ? AND staff_permissions.booth_id = ?", userID, boothID).
		Order("staff_tickets.created_at ASC").
		First(&ticket).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: lookup booth grant: %w", err)
	}
	return &ticket, nil
}

func (s *PermissionStore) find(ctx context.Context, ticketID, boothID string) (*models.StaffPermission, error) {
	var permission models.StaffPermission
	err := s.db.WithContext(ctx).
		Where("staff_ticket_id = ? AND booth_id = ?", ticketID, boothID).
		First(&permission).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: load permission: %w", err)
	}
	return &permission, nil
}

func ensureExists(db *gorm.DB, model any, id string, missing error) error {
	var count int64
	if err := db.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("store: check existence: %w", err)
	}
	if count == 0 {
		return missing
	}
	return nil
}
