// Package store defines the persistence interface for the platform.
// Implementations include PostgreSQL (source of truth), bbolt (single-node
// embedded), Redis (read-through cache over another store), and in-memory
// (for testing).
package store

import (
	"context"
	"errors"

	"github.com/hermes/platform/internal/model"
)

// ErrEmpty is returned by Load when nothing has been committed yet.
var ErrEmpty = errors.New("store: no platform state persisted")

// Store is the persistence interface. The platform keeps its working state
// in memory and commits one Changeset per successful operation.
type Store interface {
	// --- Platform state ---

	// Load returns the complete persisted state, or ErrEmpty.
	Load(ctx context.Context) (*model.Snapshot, error)

	// Commit atomically persists everything one operation changed.
	Commit(ctx context.Context, cs *model.Changeset) error

	// --- Immutable journal ---

	// GetEntriesByAccount returns entries where account is the subject or
	// the counterparty, oldest first.
	GetEntriesByAccount(ctx context.Context, account string) ([]model.Entry, error)

	// GetEntriesByOrder returns all entries about one order, oldest first.
	GetEntriesByOrder(ctx context.Context, orderID uint64) ([]model.Entry, error)

	// Close releases underlying resources.
	Close() error
}

// touchedAccounts lists the accounts whose journal a changeset extends.
func touchedAccounts(cs *model.Changeset) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(a string) {
		if a != "" && !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	for _, e := range cs.Entries {
		add(e.Account)
		add(e.Counterparty)
	}
	return out
}

// touchedOrders lists the orders whose journal a changeset extends.
func touchedOrders(cs *model.Changeset) []uint64 {
	seen := make(map[uint64]bool)
	var out []uint64
	for _, e := range cs.Entries {
		if e.OrderID != nil && !seen[*e.OrderID] {
			seen[*e.OrderID] = true
			out = append(out, *e.OrderID)
		}
	}
	return out
}
