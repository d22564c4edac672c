package cache

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/arvandy/moodmate/internal/models"
)

func newTestDBStore(t *testing.T) *DatabaseStore {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_pragma=foreign_keys(1)"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.CacheRecord{}))

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		require.NoError(t, err)
		require.NoError(t, sqlDB.Close())
	})

	return NewDatabaseStore(db)
}

func TestDatabaseStoreSetGetDelete(t *testing.T) {
	store := newTestDBStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "greeting", []byte("hello"), time.Minute))

	value, found, err := store.Get(ctx, "greeting")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("hello"), value)

	// Upsert replaces the stored value.
	require.NoError(t, store.Set(ctx, "greeting", []byte("hi"), time.Minute))
	value, found, err = store.Get(ctx, "greeting")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("hi"), value)

	require.NoError(t, store.Delete(ctx, "greeting"))
	_, found, err = store.Get(ctx, "greeting")
	require.NoError(t, err)
	require.False(t, found)
}

func TestDatabaseStoreGetExpired(t *testing.T) {
	store := newTestDBStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "stale", []byte("x"), -time.Second))

	_, found, err := store.Get(ctx, "stale")
	require.NoError(t, err)
	require.False(t, found)
}

func TestDatabaseStoreIncrementWithTTL(t *testing.T) {
	store := newTestDBStore(t)
	ctx := context.Background()

	count, ttl, err := store.IncrementWithTTL(ctx, "counter", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.Greater(t, ttl, time.Duration(0))

	count, _, err = store.IncrementWithTTL(ctx, "counter", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
}

func TestRedisStoreIncrementWithTTL(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStoreWithClient(client)

	mock.ExpectIncr("moodmate:counter").SetVal(1)
	mock.ExpectPExpire("moodmate:counter", time.Minute).SetVal(true)
	mock.ExpectPTTL("moodmate:counter").SetVal(time.Minute)

	count, ttl, err := store.IncrementWithTTL(context.Background(), "counter", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.Equal(t, time.Minute, ttl)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStoreSetGet(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStoreWithClient(client)

	mock.ExpectSet("moodmate:token", []byte("payload"), time.Hour).SetVal("OK")
	mock.ExpectGet("moodmate:token").SetVal("payload")
	mock.ExpectGet("moodmate:missing").RedisNil()

	require.NoError(t, store.Set(context.Background(), "token", []byte("payload"), time.Hour))

	value, found, err := store.Get(context.Background(), "token")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("payload"), value)

	_, found, err = store.Get(context.Background(), "missing")
	require.NoError(t, err)
	require.False(t, found)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStoreDelete(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStoreWithClient(client)

	mock.ExpectDel("moodmate:a", "moodmate:b").SetVal(2)

	require.NoError(t, store.Delete(context.Background(), "a", "b"))
	require.NoError(t, store.Delete(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
