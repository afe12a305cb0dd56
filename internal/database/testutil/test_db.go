package testutil

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/eventpress/eventpress/internal/database"
	"github.com/eventpress/eventpress/internal/models"
)

// TestDBOption customises the behaviour of MustOpenTestDB.
type TestDBOption func(*testDBConfig)

type testDBConfig struct {
	autoMigrate bool
}

// WithAutoMigrate enables automatic schema migration after opening the test database.
func WithAutoMigrate() TestDBOption {
	return func(cfg *testDBConfig) {
		cfg.autoMigrate = true
	}
}

// MustOpenTestDB opens a private in-memory SQLite database for tests, applying optional
// migrations. The returned connection is automatically closed via t.Cleanup.
func MustOpenTestDB(t *testing.T, opts ...TestDBOption) *gorm.DB {
	t.Helper()

	cfg := testDBConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := database.Open(database.Config{
		Driver: "sqlite",
		DSN:    "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=1",
	})
	require.NoError(t, err)

	if cfg.autoMigrate {
		require.NoError(t, database.AutoMigrate(db))
	}

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}

// Fixture holds the collaborator rows most staff tests need.
type Fixture struct {
	Owner  *models.User
	Event  *models.Event
	Booths []*models.Booth
}

// SeedEvent inserts an owner, an event and the named booths.
func SeedEvent(t *testing.T, db *gorm.DB, boothNames ...string) Fixture {
	t.Helper()

	owner := MustCreateUser(t, db, "owner-"+uuid.NewString()[:8]+"@example.com")
	event := &models.Event{OwnerID: owner.ID, Name: "Spring Expo"}
	require.NoError(t, db.Create(event).Error)

	booths := make([]*models.Booth, 0, len(boothNames))
	for _, name := range boothNames {
		booth := &models.Booth{EventID: event.ID, Name: name}
		require.NoError(t, db.Create(booth).Error)
		booths = append(booths, booth)
	}

	return Fixture{Owner: owner, Event: event, Booths: booths}
}

// MustCreateUser inserts a user with the given email.
func MustCreateUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	user := &models.User{Email: email, DisplayName: email}
	require.NoError(t, db.Create(user).Error)
	return user
}
