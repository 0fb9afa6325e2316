package store

import (
	"context"
	"sort"
	"sync"

	"github.com/hermes/platform/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu        sync.RWMutex
	committed bool
	state     model.PlatformState
	accounts  map[string]model.Account
	orders    map[uint64]model.Order
	journal   []model.Entry
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]model.Account),
		orders:   make(map[uint64]model.Order),
	}
}

func (s *MemoryStore) Load(_ context.Context) (*model.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.committed {
		return nil, ErrEmpty
	}

	snap := &model.Snapshot{
		State:    s.state,
		Accounts: make([]model.Account, 0, len(s.accounts)),
		Orders:   make([]model.Order, 0, len(s.orders)),
	}
	for _, a := range s.accounts {
		snap.Accounts = append(snap.Accounts, a)
	}
	for _, o := range s.orders {
		snap.Orders = append(snap.Orders, o)
	}
	sort.Slice(snap.Orders, func(i, j int) bool { return snap.Orders[i].ID < snap.Orders[j].ID })
	return snap, nil
}

func (s *MemoryStore) Commit(_ context.Context, cs *model.Changeset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.committed = true
	s.state = cs.State
	for _, a := range cs.Accounts {
		s.accounts[a.Address] = a
	}
	for _, o := range cs.Orders {
		s.orders[o.ID] = o
	}
	s.journal = append(s.journal, cs.Entries...)
	return nil
}

func (s *MemoryStore) GetEntriesByAccount(_ context.Context, account string) ([]model.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Entry
	for _, e := range s.journal {
		if e.Account == account || e.Counterparty == account {
			result = append(result, e)
		}
	}
	return result, nil
}

func (s *MemoryStore) GetEntriesByOrder(_ context.Context, orderID uint64) ([]model.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Entry
	for _, e := range s.journal {
		if e.OrderID != nil && *e.OrderID == orderID {
			result = append(result, e)
		}
	}
	return result, nil
}

// Entries returns the whole journal; tests only.
func (s *MemoryStore) Entries() []model.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Entry(nil), s.journal...)
}

func (s *MemoryStore) Close() error { return nil }
