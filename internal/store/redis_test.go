package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hermes/platform/internal/model"
)

// fakeRedis implements the three commands CachedStore issues.
type fakeRedis struct {
	redis.Cmdable
	mu   sync.Mutex
	data map[string][]byte
	gets int
	hits int
}

func newFakeRedis() *fakeRedis { return &fakeRedis{data: make(map[string][]byte)} }

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	f.hits++
	return redis.NewStringResult(string(v), nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value.([]byte)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestCachedStore(t *testing.T) {
	rdb := newFakeRedis()
	s := NewCachedStore(NewMemoryStore(), rdb, time.Minute)
	exerciseStore(t, s)
}

func TestCachedStore_ReadThroughAndInvalidate(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	s := NewCachedStore(NewMemoryStore(), rdb, time.Minute)

	css := sampleChangesets()
	require.NoError(t, s.Commit(ctx, css[0]))

	first, err := s.GetEntriesByAccount(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 0, rdb.hits)

	second, err := s.GetEntriesByAccount(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 1, rdb.hits)
	assert.Equal(t, entryIDs(first), entryIDs(second))

	// A commit touching alice drops her cached journal.
	require.NoError(t, s.Commit(ctx, css[1]))
	assert.NotContains(t, rdb.data, accountEntriesKey(alice))

	third, err := s.GetEntriesByAccount(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []string{"e1", "e2", "e3"}, entryIDs(third))
}

func TestCachedStore_PrimaryFailureKeepsCache(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	mem := NewMemoryStore()
	require.NoError(t, mem.Commit(ctx, sampleChangesets()[0]))

	s := NewCachedStore(failingStore{mem}, rdb, time.Minute)
	_, err := s.GetEntriesByAccount(ctx, alice)
	require.NoError(t, err)
	require.Contains(t, rdb.data, accountEntriesKey(alice))

	err = s.Commit(ctx, &model.Changeset{Entries: []model.Entry{{ID: "x", Account: alice}}})
	require.ErrorIs(t, err, errPrimary)
	assert.Contains(t, rdb.data, accountEntriesKey(alice))
}

// gatedStore blocks journal reads until released.
type gatedStore struct {
	*MemoryStore
	entered chan struct{}
	release chan struct{}
}

func (g gatedStore) GetEntriesByAccount(ctx context.Context, account string) ([]model.Entry, error) {
	entries, err := g.MemoryStore.GetEntriesByAccount(ctx, account)
	close(g.entered)
	<-g.release
	return entries, err
}

func TestCachedStore_FillDoesNotOutliveCommit(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	css := sampleChangesets()
	require.NoError(t, mem.Commit(ctx, css[0]))

	gate := gatedStore{MemoryStore: mem, entered: make(chan struct{}), release: make(chan struct{})}
	rdb := newFakeRedis()
	s := NewCachedStore(gate, rdb, time.Minute)

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		_, _ = s.GetEntriesByAccount(ctx, alice)
	}()
	<-gate.entered

	// The reader holds a journal loaded before this commit.
	commitDone := make(chan error, 1)
	go func() { commitDone <- s.Commit(ctx, css[1]) }()

	select {
	case err := <-commitDone:
		close(gate.release)
		<-readDone
		t.Fatalf("commit finished (err=%v) while a cache fill was in flight", err)
	case <-time.After(50 * time.Millisecond):
	}
	close(gate.release)
	<-readDone
	require.NoError(t, <-commitDone)

	// Bypass the gate for the fresh read.
	fresh := NewCachedStore(mem, rdb, time.Minute)
	entries, err := fresh.GetEntriesByAccount(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []string{"e1", "e2", "e3"}, entryIDs(entries))
}
