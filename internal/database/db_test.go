package database

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/eventpress/eventpress/internal/models"
)

func TestOpenSQLiteMemory(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Exec("SELECT 1").Error)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.ErrorContains(t, err, "unsupported database driver")
}

func TestPrepareCreatesStaffTables(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Prepare(db))

	for _, table := range []string{"users", "events", "booths", "staff_tickets", "staff_permissions", "cache_entries"} {
		require.True(t, db.Migrator().HasTable(table), "missing table %s", table)
	}
	require.True(t, db.Migrator().HasIndex(&models.StaffTicket{}, "idx_staff_ticket_event_user"))
	require.True(t, db.Migrator().HasIndex(&models.StaffPermission{}, "idx_staff_permission_ticket_booth"))

	require.Error(t, Prepare(nil))
}

func TestTicketDeleteCascadesPermissions(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Prepare(db))

	owner := models.User{Email: "owner@example.com"}
	require.NoError(t, db.Create(&owner).Error)
	event := models.Event{OwnerID: owner.ID, Name: "Expo"}
	require.NoError(t, db.Create(&event).Error)
	booth := models.Booth{EventID: event.ID, Name: "A1"}
	require.NoError(t, db.Create(&booth).Error)
	ticket := models.StaffTicket{EventID: event.ID}
	require.NoError(t, db.Create(&ticket).Error)
	require.NoError(t, db.Create(&models.StaffPermission{StaffTicketID: ticket.ID, BoothID: booth.ID}).Error)

	require.NoError(t, db.Delete(&models.StaffTicket{}, "id = ?", ticket.ID).Error)

	var remaining int64
	require.NoError(t, db.Model(&models.StaffPermission{}).Where("staff_ticket_id = ?", ticket.ID).Count(&remaining).Error)
	require.Zero(t, remaining)
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := Open(Config{
		Driver: "sqlite",
		DSN:    "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=1",
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}
