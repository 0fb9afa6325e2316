package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hermes/platform/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL or bbolt) with a Redis
// read-through cache for journal queries. Commits go to the primary store and
// invalidate the journals they extend; reads check Redis first then fall back
// to the primary.
//
// A cache fill and a commit never interleave: a reader that loaded the journal
// before a commit stores it before that commit's invalidation runs.
type CachedStore struct {
	primary Store
	rdb     redis.Cmdable
	ttl     time.Duration

	fillMu sync.RWMutex // held exclusively by Commit, shared by cache fills
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb redis.Cmdable, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) Commit(ctx context.Context, cs *model.Changeset) error {
	s.fillMu.Lock()
	defer s.fillMu.Unlock()

	if err := s.primary.Commit(ctx, cs); err != nil {
		return err
	}

	var keys []string
	for _, a := range touchedAccounts(cs) {
		keys = append(keys, accountEntriesKey(a))
	}
	for _, id := range touchedOrders(cs) {
		keys = append(keys, orderEntriesKey(id))
	}
	if len(keys) > 0 {
		// Invalidate; next read will re-populate.
		s.rdb.Del(ctx, keys...)
	}
	return nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetEntriesByAccount(ctx context.Context, account string) ([]model.Entry, error) {
	key := accountEntriesKey(account)
	if entries, ok := s.cachedEntries(ctx, key); ok {
		return entries, nil
	}

	// Cache miss.
	s.fillMu.RLock()
	defer s.fillMu.RUnlock()

	entries, err := s.primary.GetEntriesByAccount(ctx, account)
	if err != nil {
		return nil, err
	}
	s.cacheEntries(ctx, key, entries)
	return entries, nil
}

func (s *CachedStore) GetEntriesByOrder(ctx context.Context, orderID uint64) ([]model.Entry, error) {
	key := orderEntriesKey(orderID)
	if entries, ok := s.cachedEntries(ctx, key); ok {
		return entries, nil
	}

	s.fillMu.RLock()
	defer s.fillMu.RUnlock()

	entries, err := s.primary.GetEntriesByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.cacheEntries(ctx, key, entries)
	return entries, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) Load(ctx context.Context) (*model.Snapshot, error) {
	return s.primary.Load(ctx)
}

func (s *CachedStore) Close() error {
	return s.primary.Close()
}

// --- Cache helpers ---

func (s *CachedStore) cachedEntries(ctx context.Context, key string) ([]model.Entry, bool) {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var entries []model.Entry
	if json.Unmarshal(data, &entries) != nil {
		return nil, false
	}
	return entries, true
}

func (s *CachedStore) cacheEntries(ctx context.Context, key string, entries []model.Entry) {
	if data, err := json.Marshal(entries); err == nil {
		s.rdb.Set(ctx, key, data, s.ttl)
	}
}

func accountEntriesKey(a string) string { return fmt.Sprintf("entries:account:%s", a) }
func orderEntriesKey(id uint64) string  { return fmt.Sprintf("entries:order:%d", id) }
