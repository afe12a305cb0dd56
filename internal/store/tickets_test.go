package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eventpress/eventpress/internal/database/testutil"
	"github.com/eventpress/eventpress/internal/models"
	"github.com/eventpress/eventpress/internal/store"
)

func strPtr(v string) *string { return &v }

func TestTicketStoreCreateAndGet(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	fx := testutil.SeedEvent(t, db)
	tickets := store.NewTicketStore(db)
	ctx := context.Background()

	ticket := &models.StaffTicket{EventID: fx.Event.ID, Note: strPtr("front desk")}
	require.NoError(t, tickets.Create(ctx, ticket))
	require.NotEmpty(t, ticket.ID)

	loaded, err := tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	require.Equal(t, fx.Event.ID, loaded.EventID)
	require.Equal(t, "front desk", *loaded.Note)
	require.False(t, loaded.Claimed())

	_, err = tickets.GetByID(ctx, "00000000-0000-0000-0000-000000000000")
	require.ErrorIs(t, err, store.ErrTicketNotFound)
}

func TestTicketStoreUniqueBindingPerEvent(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	fx := testutil.SeedEvent(t, db)
	user := testutil.MustCreateUser(t, db, "staff@example.com")
	tickets := store.NewTicketStore(db)
	ctx := context.Background()

	first := &models.StaffTicket{EventID: fx.Event.ID, ConnectedUserID: strPtr(user.ID)}
	require.NoError(t, tickets.Create(ctx, first))

	second := &models.StaffTicket{EventID: fx.Event.ID, ConnectedUserID: strPtr(user.ID)}
	require.ErrorIs(t, tickets.Create(ctx, second), store.ErrDuplicateBinding)

	// Unbound tickets never collide.
	require.NoError(t, tickets.Create(ctx, &models.StaffTicket{EventID: fx.Event.ID}))
	require.NoError(t, tickets.Create(ctx, &models.StaffTicket{EventID: fx.Event.ID}))

	other := testutil.SeedEvent(t, db)
	require.NoError(t, tickets.Create(ctx, &models.StaffTicket{EventID: other.Event.ID, ConnectedUserID: strPtr(user.ID)}))
}

func TestTicketStoreUpdatePatch(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	fx := testutil.SeedEvent(t, db)
	tickets := store.NewTicketStore(db)
	ctx := context.Background()

	until := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	ticket := &models.StaffTicket{EventID: fx.Event.ID, ValidUntil: &until, Note: strPtr("old")}
	require.NoError(t, tickets.Create(ctx, ticket))

	updated, err := tickets.Update(ctx, ticket.ID, store.TicketPatch{Note: strPtr("new"), ClearValidUntil: true})
	require.NoError(t, err)
	require.Equal(t, "new", *updated.Note)
	require.Nil(t, updated.ValidUntil)

	unchanged, err := tickets.Update(ctx, ticket.ID, store.TicketPatch{})
	require.NoError(t, err)
	require.Equal(t, "new", *unchanged.Note)

	_, err = tickets.Update(ctx, "00000000-0000-0000-0000-000000000000", store.TicketPatch{Note: strPtr("x")})
	require.ErrorIs(t, err, store.ErrTicketNotFound)
}

func TestTicketStoreBindUser(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	fx := testutil.SeedEvent(t, db)
	alice := testutil.MustCreateUser(t, db, "alice@example.com")
	bob := testutil.MustCreateUser(t, db, "bob@example.com")
	tickets := store.NewTicketStore(db)
	ctx := context.Background()

	first := &models.StaffTicket{EventID: fx.Event.ID}
	second := &models.StaffTicket{EventID: fx.Event.ID}
	require.NoError(t, tickets.Create(ctx, first))
	require.NoError(t, tickets.Create(ctx, second))

	bound, err := tickets.BindUser(ctx, first.ID, alice.ID)
	require.NoError(t, err)
	require.True(t, bound.Claimed())
	require.Equal(t, alice.ID, *bound.ConnectedUserID)

	_, err = tickets.BindUser(ctx, first.ID, bob.ID)
	require.ErrorIs(t, err, store.ErrAlreadyBound)

	_, err = tickets.BindUser(ctx, second.ID, alice.ID)
	require.ErrorIs(t, err, store.ErrDuplicateBinding)

	_, err = tickets.BindUser(ctx, "00000000-0000-0000-0000-000000000000", bob.ID)
	require.ErrorIs(t, err, store.ErrTicketNotFound)
}

func TestTicketStoreListings(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	fx := testutil.SeedEvent(t, db)
	user := testutil.MustCreateUser(t, db, "staff@example.com")
	tickets := store.NewTicketStore(db)
	ctx := context.Background()

	claimed := &models.StaffTicket{EventID: fx.Event.ID, ConnectedUserID: strPtr(user.ID)}
	open := &models.StaffTicket{EventID: fx.Event.ID}
	require.NoError(t, tickets.Create(ctx, claimed))
	require.NoError(t, tickets.Create(ctx, open))

	byEvent, err := tickets.ListByEvent(ctx, fx.Event.ID)
	require.NoError(t, err)
	require.Len(t, byEvent, 2)

	byUser, err := tickets.ListByConnectedUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, byUser, 1)
	require.Equal(t, claimed.ID, byUser[0].ID)

	byCode, err := tickets.ListByInvitationCode(ctx, open.InvitationCode())
	require.NoError(t, err)
	require.Len(t, byCode, 1)
	require.Equal(t, open.ID, byCode[0].ID)

	none, err := tickets.ListByInvitationCode(ctx, "%")
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestTicketStoreInvitationCodePrefixCollision(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	fx := testutil.SeedEvent(t, db)
	tickets := store.NewTicketStore(db)
	ctx := context.Background()

	a := &models.StaffTicket{EventID: fx.Event.ID}
	a.ID = "abcdef12-0000-4000-8000-000000000001"
	b := &models.StaffTicket{EventID: fx.Event.ID}
	b.ID = "abcdef12-0000-4000-8000-000000000002"
	require.NoError(t, tickets.Create(ctx, a))
	require.NoError(t, tickets.Create(ctx, b))

	matches, err := tickets.ListByInvitationCode(ctx, "ABCDEF12")
	require.NoError(t, err)
	require.Len(t, matches, 2)
}

func TestTicketStoreDeleteCascadesPermissions(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	fx := testutil.SeedEvent(t, db, "A", "B")
	st := store.New(db)
	ctx := context.Background()

	ticket := &models.StaffTicket{EventID: fx.Event.ID}
	require.NoError(t, st.Tickets.Create(ctx, ticket))
	for _, booth := range fx.Booths {
		_, err := st.Permissions.Grant(ctx, ticket.ID, booth.ID)
		require.NoError(t, err)
	}

	require.NoError(t, st.Tickets.Delete(ctx, ticket.ID))

	var remaining int64
	require.NoError(t, db.Model(&models.StaffPermission{}).Where("staff_ticket_id = ?", ticket.ID).Count(&remaining).Error)
	require.Zero(t, remaining)

	require.ErrorIs(t, st.Tickets.Delete(ctx, ticket.ID), store.ErrTicketNotFound)
}
