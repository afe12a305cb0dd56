package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/eventpress/eventpress/internal/models"
)

// Directory resolves the event, booth and user records staff tickets point at. Every
// resolver returns (nil, nil) when the record is absent.
type Directory struct {
	db *gorm.DB
}

// NewDirectory constructs a Directory.
func NewDirectory(db *gorm.DB) *Directory {
	return &Directory{db: db}
}

// ResolveEvent loads an event by ID.
func (d *Directory) ResolveEvent(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	return firstOrNil(d.db.WithContext(ctx).Where("id = ?", id), &event, "event")
}

// ResolveBooth loads a booth by ID.
func (d *Directory) ResolveBooth(ctx context.Context, id string) (*models.Booth, error) {
	var booth models.Booth
	return firstOrNil(d.db.WithContext(ctx).Where("id = ?", id), &booth, "booth")
}

// ResolveUser loads a user by ID.
func (d *Directory) ResolveUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	return firstOrNil(d.db.WithContext(ctx).Where("id = ?", id), &user, "user")
}

// ResolveUserByEmail loads a user by case-insensitive email.
func (d *Directory) ResolveUserByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}
	var user models.User
	return firstOrNil(d.db.WithContext(ctx).Where("LOWER(email) = ?", email), &user, "user")
}

func firstOrNil[T any](query *gorm.DB, dest *T, kind string) (*T, error) {
	err := query.First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: resolve %s: %w", kind, err)
	}
	return dest, nil
}
