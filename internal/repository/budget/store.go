package budget

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/docfeed/internal/db"
)

// keyPrefix namespaces budget counters in the shared store.
const keyPrefix = "docfeed:budget:"

// store is the consumer interface for budget operations (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Store persists token usage counters in the shared KV store.
// Counters are keyed per provider and calendar period:
//
//	docfeed:budget:{provider}:daily:2006-01-02
//	docfeed:budget:{provider}:monthly:2006-01
//
// Every counter carries a TTL, so keys from past periods expire on
// their own without a cleanup job.
type Store struct {
	store    store
	dailyTTL time.Duration
	monthTTL time.Duration
}

// New creates a budget store.
// dailyTTL is the TTL for daily keys (recommended: 48h).
// monthTTL is the TTL for monthly keys (recommended: 62 days).
func New(s store, dailyTTL, monthTTL time.Duration) *Store {
	return &Store{
		store:    s,
		dailyTTL: dailyTTL,
		monthTTL: monthTTL,
	}
}

// AddUsage increments the daily and monthly counters for the provider.
func (s *Store) AddUsage(ctx context.Context, provider string, day, month time.Time, tokens int64) error {
	if err := s.bump(ctx, dailyKey(provider, day), tokens, s.dailyTTL); err != nil {
		return err
	}
	return s.bump(ctx, monthlyKey(provider, month), tokens, s.monthTTL)
}

// Usage returns the persisted daily and monthly counters for the provider.
// Missing counters read as zero.
func (s *Store) Usage(ctx context.Context, provider string, day, month time.Time) (int64, int64, error) {
	daily, err := s.read(ctx, dailyKey(provider, day))
	if err != nil {
		return 0, 0, err
	}

	monthly, err := s.read(ctx, monthlyKey(provider, month))
	if err != nil {
		return 0, 0, err
	}

	return daily, monthly, nil
}

func (s *Store) bump(ctx context.Context, key string, val int64, ttl time.Duration) error {
	if err := s.store.IncrBy(ctx, key, val); err != nil {
		return fmt.Errorf("budget INCRBY %s: %w", key, err)
	}

	// Set TTL only if the key has no expiry yet (NX, not reset on repeat).
	if err := s.store.Expire(ctx, key, ttl, true); err != nil {
		return fmt.Errorf("budget EXPIRE %s: %w", key, err)
	}

	return nil
}

func (s *Store) read(ctx context.Context, key string) (int64, error) {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("budget GET %s: %w", key, err)
	}

	val, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("budget GET %s parse: %w", key, err)
	}
	return val, nil
}

func dailyKey(provider string, day time.Time) string {
	return keyPrefix + provider + ":daily:" + day.Format("2006-01-02")
}

func monthlyKey(provider string, month time.Time) string {
	return keyPrefix + provider + ":monthly:" + month.Format("2006-01")
}
