package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hermes/platform/internal/model"
)

const (
	alice = "0x1000000000000000000000000000000000000001"
	bob   = "0x2000000000000000000000000000000000000002"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func u64(n uint64) *uint64 { return &n }

func sampleChangesets() []*model.Changeset {
	state := model.PlatformState{
		Round:      model.Round{Number: 1, Phase: model.PhaseSell, StartedAt: t0},
		Price:      d("10000000000000"),
		SaleSupply: d("100000000000000000000000"),
		Treasury:   decimal.Zero,
	}
	first := &model.Changeset{
		State: state,
		Accounts: []model.Account{
			{Address: alice, Referrer: "0x0000000000000000000000000000000000000000", RegisteredAt: t0},
		},
		Entries: []model.Entry{
			{ID: "e1", Kind: model.EntryRegister, Account: alice, Timestamp: t0},
		},
	}

	state.Round.Phase = model.PhaseTrade
	state.NextOrderID = 1
	state.Treasury = d("920000000000000000")
	second := &model.Changeset{
		State: state,
		Accounts: []model.Account{
			{Address: bob, Referrer: alice, RegisteredAt: t0.Add(time.Minute)},
		},
		Orders: []model.Order{{
			ID: 0, Seller: alice, Amount: d("60000"), Remaining: d("60000"),
			UnitPrice: d("10000000000000"), Status: model.OrderOpen, Round: 2, CreatedAt: t0,
		}},
		Entries: []model.Entry{
			{ID: "e2", Kind: model.EntryOrderCreated, Account: alice, OrderID: u64(0), Units: d("60000"), Timestamp: t0},
			{ID: "e3", Kind: model.EntryReward, Account: alice, Counterparty: bob, Value: d("5"), Timestamp: t0},
		},
	}
	return []*model.Changeset{first, second}
}

// exerciseStore runs the behaviour every Store implementation must share.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Load(ctx)
	require.ErrorIs(t, err, ErrEmpty)

	for _, cs := range sampleChangesets() {
		require.NoError(t, s.Commit(ctx, cs))
	}

	snap, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.PhaseTrade, snap.State.Round.Phase)
	assert.Equal(t, uint64(1), snap.State.NextOrderID)
	assert.True(t, snap.State.Treasury.Equal(d("920000000000000000")))
	assert.Len(t, snap.Accounts, 2)
	require.Len(t, snap.Orders, 1)
	assert.True(t, snap.Orders[0].Remaining.Equal(d("60000")))

	// Updating an order replaces it.
	closed := snap.Orders[0]
	closed.Remaining = decimal.Zero
	closed.Status = model.OrderClosed
	at := t0.Add(time.Hour)
	closed.ClosedAt = &at
	require.NoError(t, s.Commit(ctx, &model.Changeset{
		State:   snap.State,
		Orders:  []model.Order{closed},
		Entries: []model.Entry{{ID: "e4", Kind: model.EntryOrderClosed, Account: alice, OrderID: u64(0), Timestamp: at}},
	}))

	snap, err = s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Orders, 1)
	assert.False(t, snap.Orders[0].IsOpen())
	require.NotNil(t, snap.Orders[0].ClosedAt)

	byAlice, err := s.GetEntriesByAccount(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []string{"e1", "e2", "e3", "e4"}, entryIDs(byAlice))

	byBob, err := s.GetEntriesByAccount(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, []string{"e3"}, entryIDs(byBob))

	byOrder, err := s.GetEntriesByOrder(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"e2", "e4"}, entryIDs(byOrder))

	none, err := s.GetEntriesByOrder(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func entryIDs(entries []model.Entry) []string {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	return ids
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestBoltStore(t *testing.T) {
	s, err := OpenBoltStore(filepath.Join(t.TempDir(), "db", "hermes.db"))
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}

func TestBoltStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hermes.db")
	ctx := context.Background()

	s, err := OpenBoltStore(path)
	require.NoError(t, err)
	for _, cs := range sampleChangesets() {
		require.NoError(t, s.Commit(ctx, cs))
	}
	require.NoError(t, s.Close())

	s, err = OpenBoltStore(path)
	require.NoError(t, err)
	defer s.Close()

	snap, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Accounts, 2)
	assert.True(t, snap.State.Price.Equal(d("10000000000000")))
	assert.Equal(t, t0, snap.State.Round.StartedAt.UTC())
}

func TestTouched(t *testing.T) {
	cs := sampleChangesets()[1]
	assert.ElementsMatch(t, []string{alice, bob}, touchedAccounts(cs))
	assert.Equal(t, []uint64{0}, touchedOrders(cs))
}

var errPrimary = errors.New("primary down")

// failingStore fails every commit.
type failingStore struct{ *MemoryStore }

func (f failingStore) Commit(context.Context, *model.Changeset) error { return errPrimary }
