package permissions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eventpress/eventpress/internal/database/testutil"
	"github.com/eventpress/eventpress/internal/models"
)

func TestNewCheckerRequiresDB(t *testing.T) {
	_, err := NewChecker(nil)
	require.Error(t, err)
}

func TestCanManageEvent(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	fx := testutil.SeedEvent(t, db)
	stranger := testutil.MustCreateUser(t, db, "stranger@example.com")
	checker, err := NewChecker(db)
	require.NoError(t, err)
	ctx := context.Background()

	allowed, err := checker.CanManageEvent(ctx, fx.Owner.ID, fx.Event.ID)
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = checker.CanManageEvent(ctx, stranger.ID, fx.Event.ID)
	require.NoError(t, err)
	require.False(t, allowed)

	_, err = checker.CanManageEvent(ctx, fx.Owner.ID, "00000000-0000-0000-0000-000000000000")
	require.ErrorIs(t, err, ErrResourceNotFound)
}

func TestCanManageTicket(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	fx := testutil.SeedEvent(t, db)
	stranger := testutil.MustCreateUser(t, db, "stranger@example.com")
	checker, err := NewChecker(db)
	require.NoError(t, err)
	ctx := context.Background()

	ticket := &models.StaffTicket{EventID: fx.Event.ID}
	require.NoError(t, db.Create(ticket).Error)

	allowed, err := checker.CanManageTicket(ctx, fx.Owner.ID, ticket.ID)
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = checker.CanManageTicket(ctx, stranger.ID, ticket.ID)
	require.NoError(t, err)
	require.False(t, allowed)

	_, err = checker.CanManageTicket(ctx, fx.Owner.ID, "00000000-0000-0000-0000-000000000000")
	require.ErrorIs(t, err, ErrResourceNotFound)
}

func TestCanAccessBooth(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	fx := testutil.SeedEvent(t, db, "B1", "B2")
	staff := testutil.MustCreateUser(t, db, "staff@example.com")
	pending := testutil.MustCreateUser(t, db, "pending@example.com")
	checker, err := NewChecker(db)
	require.NoError(t, err)
	ctx := context.Background()

	claimed := &models.StaffTicket{EventID: fx.Event.ID, ConnectedUserID: &staff.ID}
	require.NoError(t, db.Create(claimed).Error)
	require.NoError(t, db.Create(&models.StaffPermission{StaffTicketID: claimed.ID, BoothID: fx.Booths[0].ID}).Error)

	unclaimed := &models.StaffTicket{EventID: fx.Event.ID}
	require.NoError(t, db.Create(unclaimed).Error)
	require.NoError(t, db.Create(&models.StaffPermission{StaffTicketID: unclaimed.ID, BoothID: fx.Booths[1].ID}).Error)

	cases := []struct {
		name    string
		userID  string
		boothID string
		want    bool
	}{
		{"owner any booth", fx.Owner.ID, fx.Booths[1].ID, true},
		{"staff granted booth", staff.ID, fx.Booths[0].ID, true},
		{"staff other booth", staff.ID, fx.Booths[1].ID, false},
		{"unclaimed grant", pending.ID, fx.Booths[1].ID, false},
		{"anonymous", "", fx.Booths[0].ID, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			allowed, err := checker.CanAccessBooth(ctx, tc.userID, tc.boothID)
			require.NoError(t, err)
			require.Equal(t, tc.want, allowed)
		})
	}

	_, err = checker.CanAccessBooth(ctx, staff.ID, "00000000-0000-0000-0000-000000000000")
	require.ErrorIs(t, err, ErrResourceNotFound)
}

func TestCanAccessBoothExpiry(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	fx := testutil.SeedEvent(t, db, "B1")
	staff := testutil.MustCreateUser(t, db, "staff@example.com")
	ctx := context.Background()

	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	expired := now.Add(-time.Hour)
	ticket := &models.StaffTicket{EventID: fx.Event.ID, ConnectedUserID: &staff.ID, ValidUntil: &expired}
	require.NoError(t, db.Create(ticket).Error)
	require.NoError(t, db.Create(&models.StaffPermission{StaffTicketID: ticket.ID, BoothID: fx.Booths[0].ID}).Error)

	lenient, err := NewChecker(db, WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	allowed, err := lenient.CanAccessBooth(ctx, staff.ID, fx.Booths[0].ID)
	require.NoError(t, err)
	require.True(t, allowed)

	strict, err := NewChecker(db, WithExpiryEnforcement(true), WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	allowed, err = strict.CanAccessBooth(ctx, staff.ID, fx.Booths[0].ID)
	require.NoError(t, err)
	require.False(t, allowed)
}
