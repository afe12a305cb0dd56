package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eventpress/eventpress/internal/database/testutil"
)

func TestDatabaseStoreSetGetDelete(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := NewDatabaseStore(db)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "claim:session:u1", []byte(`{"state":"AWAITING_CODE"}`), time.Minute))

	value, ok, err := store.Get(ctx, "claim:session:u1")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"state":"AWAITING_CODE"}`, string(value))

	require.NoError(t, store.Set(ctx, "claim:session:u1", []byte("v2"), time.Minute))
	value, _, err = store.Get(ctx, "claim:session:u1")
	require.NoError(t, err)
	require.Equal(t, "v2", string(value))

	require.NoError(t, store.Delete(ctx, "claim:session:u1"))
	_, ok, err = store.Get(ctx, "claim:session:u1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDatabaseStoreExpiry(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := NewDatabaseStore(db)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }

	require.NoError(t, store.Set(ctx, "short", []byte("x"), time.Minute))
	require.NoError(t, store.Set(ctx, "forever", []byte("y"), 0))

	store.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, ok, err := store.Get(ctx, "short")
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = store.Get(ctx, "forever")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestDatabaseStoreIncrementWithTTL(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := NewDatabaseStore(db)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }

	count, ttl, err := store.IncrementWithTTL(ctx, "attempts", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.Equal(t, time.Minute, ttl)

	store.now = func() time.Time { return base.Add(20 * time.Second) }
	count, ttl, err = store.IncrementWithTTL(ctx, "attempts", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
	require.Equal(t, 40*time.Second, ttl)

	store.now = func() time.Time { return base.Add(2 * time.Minute) }
	count, _, err = store.IncrementWithTTL(ctx, "attempts", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestDatabaseStorePurgeExpired(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := NewDatabaseStore(db)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }

	require.NoError(t, store.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, store.Set(ctx, "b", []byte("2"), time.Hour))
	require.NoError(t, store.Set(ctx, "c", []byte("3"), 0))

	removed, err := store.PurgeExpired(ctx, base.Add(10*time.Minute))
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	var keys []string
	require.NoError(t, db.Table("cache_entries").Order("key").Pluck("key", &keys).Error)
	require.Equal(t, []string{"b", "c"}, keys)
}

func TestNilDatabaseStore(t *testing.T) {
	var store *DatabaseStore
	require.Nil(t, NewDatabaseStore(nil))
	_, _, err := store.Get(context.Background(), "k")
	require.ErrorIs(t, err, ErrStoreUnavailable)
}
