package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/arvandy/moodmate/internal/models"
)

var errStoreNotReady = errors.New("cache: database store not initialised")

// DatabaseStore keeps rate-limit counters and small cached blobs in the
// primary SQL database. Deployments without Redis fall back to it so the
// login limiter keeps working with a single datastore.
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore constructs a store over the given connection.
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	if db == nil {
		return nil
	}
	return &DatabaseStore{db: db}
}

// IncrementWithTTL bumps the counter stored under key inside a transaction
// holding a row lock, so concurrent login attempts against the same account
// cannot lose increments. The window restarts on every hit.
func (s *DatabaseStore) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if s == nil {
		return 0, 0, errStoreNotReady
	}
	ctx = ensureContext(ctx)
	if window <= 0 {
		window = time.Minute
	}

	now := time.Now()
	expiry := now.Add(window)

	var count int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec models.CacheRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Take(&rec, "key = ?", key).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			count = 1
			rec = models.CacheRecord{Key: key, Payload: counterPayload(count), ExpiresAt: expiry}
			return tx.Create(&rec).Error
		}
		if err != nil {
			return err
		}

		count = 1
		if rec.ExpiresAt.After(now) {
			prev, _ := strconv.ParseInt(string(rec.Payload), 10, 64)
			count = prev + 1
		}
		rec.Payload = counterPayload(count)
		rec.ExpiresAt = expiry
		return tx.Save(&rec).Error
	})
	if err != nil {
		return 0, 0, err
	}
	return count, expiry.Sub(now), nil
}

// Set writes a payload under key. A non-positive ttl stores the row without
// an expiry.
func (s *DatabaseStore) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if s == nil {
		return errStoreNotReady
	}
	ctx = ensureContext(ctx)

	rec := models.CacheRecord{Key: key, Payload: payload}
	if ttl > 0 {
		rec.ExpiresAt = time.Now().Add(ttl)
	}

	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "expires_at", "updated_at"}),
		}).Create(&rec).Error
}

// Get returns the payload for key. Rows past their expiry are removed on
// the spot and reported as a miss.
func (s *DatabaseStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s == nil {
		return nil, false, errStoreNotReady
	}
	ctx = ensureContext(ctx)

	var rec models.CacheRecord
	err := s.db.WithContext(ctx).Take(&rec, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if !rec.ExpiresAt.IsZero() && time.Now().After(rec.ExpiresAt) {
		_ = s.Delete(ctx, key)
		return nil, false, nil
	}
	return rec.Payload, true, nil
}

// Delete removes the given keys.
func (s *DatabaseStore) Delete(ctx context.Context, keys ...string) error {
	if s == nil {
		return errStoreNotReady
	}
	if len(keys) == 0 {
		return nil
	}
	ctx = ensureContext(ctx)

	return s.db.WithContext(ctx).Where("key IN ?", keys).Delete(&models.CacheRecord{}).Error
}

func counterPayload(n int64) []byte {
	return []byte(strconv.FormatInt(n, 10))
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
