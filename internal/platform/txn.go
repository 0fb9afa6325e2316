package platform

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hermes/platform/internal/metrics"
	"github.com/hermes/platform/internal/model"
)

// txn is one operation in progress. Everything it changes lives in st, a
// clone of the committed state, plus the collaborator effects listed in undo.
type txn struct {
	ctx  context.Context
	p    *Platform
	st   *state
	now  time.Time
	undo []undoStep

	accounts []model.Account
	orders   []uint64
	entries  []model.Entry
}

type undoStep struct {
	what string
	fn   func(ctx context.Context) error
}

// run executes fn as one atomic operation.
func (p *Platform) run(ctx context.Context, op string, fn func(tx *txn) error) error {
	start := time.Now()

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	tx := &txn{ctx: ctx, p: p, st: p.current().clone(), now: p.clock.Now()}

	err := fn(tx)
	if err == nil {
		if cerr := p.store.Commit(ctx, tx.changeset()); cerr != nil {
			err = fmt.Errorf("commit %s: %w", op, cerr)
		}
	}
	metrics.ObserveOperation(op, start, err)
	if err != nil {
		if len(tx.undo) > 0 {
			metrics.Rollbacks.WithLabelValues(op).Inc()
			tx.rollback()
		}
		slog.Warn("operation failed", "op", op, "err", err)
		return err
	}

	p.mu.Lock()
	p.st = tx.st
	p.mu.Unlock()

	p.updateGauges(tx.st)
	if p.notifier != nil && len(tx.entries) > 0 {
		p.notifier.Publish(tx.entries)
	}
	return nil
}

// rollback undoes collaborator effects newest first. The caller's context
// may already be cancelled, so the undo runs detached from it.
func (tx *txn) rollback() {
	ctx := context.WithoutCancel(tx.ctx)
	for i := len(tx.undo) - 1; i >= 0; i-- {
		step := tx.undo[i]
		if err := step.fn(ctx); err != nil {
			slog.Error("rollback step failed", "step", step.what, "err", err)
		}
	}
}

func (tx *txn) onUndo(what string, fn func(ctx context.Context) error) {
	tx.undo = append(tx.undo, undoStep{what: what, fn: fn})
}

func (tx *txn) changeset() *model.Changeset {
	cs := &model.Changeset{
		State:    tx.st.snapshot(),
		Accounts: tx.accounts,
		Entries:  tx.entries,
	}
	for _, id := range tx.orders {
		if o, ok := tx.st.book.Get(id); ok {
			cs.Orders = append(cs.Orders, o)
		}
	}
	return cs
}

func (tx *txn) touchOrder(id uint64) {
	for _, seen := range tx.orders {
		if seen == id {
			return
		}
	}
	tx.orders = append(tx.orders, id)
}

// record appends a journal entry stamped with the operation's time and round.
func (tx *txn) record(e model.Entry) model.Entry {
	r := tx.st.rounds.Round()
	e.ID = uuid.New().String()
	e.Round = r.Number
	e.Phase = r.Phase
	e.Timestamp = tx.now
	tx.entries = append(tx.entries, e)
	return e
}

// --- Collaborator effects, each registering its compensation ---

func (tx *txn) collect(from string, amount decimal.Decimal) error {
	if err := tx.p.currency.Collect(tx.ctx, from, amount); err != nil {
		return fmt.Errorf("collect %s wei from %s: %w", amount, from, err)
	}
	tx.onUndo("collect "+from, func(ctx context.Context) error {
		return tx.p.currency.Pay(ctx, from, amount)
	})
	return nil
}

func (tx *txn) pay(to string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return nil
	}
	if err := tx.p.currency.Pay(tx.ctx, to, amount); err != nil {
		return fmt.Errorf("pay %s wei to %s: %w", amount, to, err)
	}
	tx.onUndo("pay "+to, func(ctx context.Context) error {
		return tx.p.currency.Collect(ctx, to, amount)
	})
	return nil
}

func (tx *txn) mint(to string, units decimal.Decimal) error {
	self := tx.p.cfg.Address
	if err := tx.p.token.Mint(tx.ctx, self, to, units); err != nil {
		return fmt.Errorf("mint %s units to %s: %w", units, to, err)
	}
	tx.onUndo("mint "+to, func(ctx context.Context) error {
		return tx.p.token.Burn(ctx, self, to, units)
	})
	return nil
}

// escrow pulls units from seller into the platform account. Undoing it
// returns the units and the allowance the transfer consumed.
func (tx *txn) escrow(seller string, units decimal.Decimal) error {
	self := tx.p.cfg.Address
	allowed, err := tx.p.token.Allowance(tx.ctx, seller, self)
	if err != nil {
		return fmt.Errorf("read allowance of %s: %w", seller, err)
	}
	if err := tx.p.token.TransferFrom(tx.ctx, self, seller, self, units); err != nil {
		return fmt.Errorf("escrow %s units from %s: %w", units, seller, err)
	}
	tx.onUndo("escrow "+seller, func(ctx context.Context) error {
		if err := tx.p.token.Transfer(ctx, self, seller, units); err != nil {
			return err
		}
		return tx.p.token.Approve(ctx, seller, self, allowed)
	})
	return nil
}

// release sends escrowed units from the platform account to to.
func (tx *txn) release(to string, units decimal.Decimal) error {
	if !units.IsPositive() {
		return nil
	}
	self := tx.p.cfg.Address
	if err := tx.p.token.Transfer(tx.ctx, self, to, units); err != nil {
		return fmt.Errorf("release %s units to %s: %w", units, to, err)
	}
	tx.onUndo("release "+to, func(ctx context.Context) error {
		return tx.p.token.Transfer(ctx, to, self, units)
	})
	return nil
}

// updateGauges publishes the committed state to Prometheus.
func (p *Platform) updateGauges(st *state) {
	rs := st.rounds.State()
	metrics.RoundNumber.Set(float64(rs.Round.Number))
	metrics.SetPhase(string(rs.Round.Phase),
		string(model.PhaseIdle), string(model.PhaseSell), string(model.PhaseTrade))
	metrics.UnitPrice.Set(rs.Price.InexactFloat64())
	metrics.SaleSupply.Set(rs.SaleSupply.InexactFloat64())
	metrics.TradeVolume.Set(rs.TradeVolume.InexactFloat64())
	metrics.TreasuryBalance.Set(st.treasury.InexactFloat64())
	metrics.OpenOrders.Set(float64(st.book.OpenCount()))
	metrics.RegisteredAccounts.Set(float64(st.accounts.Len()))
}

func level(i int) string { return strconv.Itoa(i + 1) }
