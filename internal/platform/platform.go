// Package platform is the settlement engine: it alternates Sell rounds
// (primary issuance at a fixed price) with Trade rounds (escrowed orders
// between registered accounts), pays two-level referral rewards and keeps
// the treasury.
//
// Every mutating operation is atomic. A single writer works on a clone of
// the state; collaborator effects are undone in reverse if anything fails,
// and the clone replaces the live state only after the store has committed.
package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/hermes/platform/internal/access"
	"github.com/hermes/platform/internal/address"
	"github.com/hermes/platform/internal/ledger"
	"github.com/hermes/platform/internal/model"
	"github.com/hermes/platform/internal/orderbook"
	"github.com/hermes/platform/internal/pricing"
	"github.com/hermes/platform/internal/registry"
	"github.com/hermes/platform/internal/rounds"
	"github.com/hermes/platform/internal/store"
)

// Notifier is told about journal entries after they are committed.
type Notifier interface {
	Publish(entries []model.Entry)
}

// Deps are the collaborators the platform drives.
type Deps struct {
	Token    ledger.Token
	Currency ledger.Currency
	Policy   access.Policy
	Store    store.Store
	Clock    Clock    // nil means SystemClock
	Notifier Notifier // optional
}

// state is everything an operation may change. It is cloned per operation.
type state struct {
	accounts *registry.Registry
	rounds   *rounds.Controller
	book     *orderbook.Book
	treasury decimal.Decimal
}

func (s *state) clone() *state {
	return &state{
		accounts: s.accounts.Clone(),
		rounds:   s.rounds.Clone(),
		book:     s.book.Clone(),
		treasury: s.treasury,
	}
}

func (s *state) snapshot() model.PlatformState {
	rs := s.rounds.State()
	return model.PlatformState{
		Round:       rs.Round,
		Price:       rs.Price,
		SaleSupply:  rs.SaleSupply,
		TradeVolume: rs.TradeVolume,
		Treasury:    s.treasury,
		NextOrderID: s.book.NextID(),
	}
}

// Platform is the settlement engine. It is safe for concurrent use.
type Platform struct {
	cfg      Config
	prices   *pricing.Engine
	token    ledger.Token
	currency ledger.Currency
	policy   access.Policy
	store    store.Store
	clock    Clock
	notifier Notifier

	writeMu sync.Mutex   // serializes operations
	mu      sync.RWMutex // guards st
	st      *state
}

// New creates a platform, restoring any state persisted in deps.Store.
func New(ctx context.Context, cfg Config, deps Deps) (*Platform, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("platform config: %w", err)
	}
	if deps.Token == nil || deps.Currency == nil || deps.Policy == nil || deps.Store == nil {
		return nil, errors.New("platform: token, currency, policy and store are required")
	}
	prices, err := pricing.NewEngine(cfg.Pricing)
	if err != nil {
		return nil, err
	}
	clock := deps.Clock
	if clock == nil {
		clock = SystemClock()
	}

	p := &Platform{
		cfg:      cfg,
		prices:   prices,
		token:    deps.Token,
		currency: deps.Currency,
		policy:   deps.Policy,
		store:    deps.Store,
		clock:    clock,
		notifier: deps.Notifier,
	}

	snap, err := deps.Store.Load(ctx)
	switch {
	case errors.Is(err, store.ErrEmpty):
		p.st = &state{
			accounts: registry.New(),
			rounds:   rounds.New(cfg.Rounds, prices),
			book:     orderbook.New(),
			treasury: decimal.Zero,
		}
		slog.Info("platform initialized", "price", prices.Initial().String())
	case err != nil:
		return nil, fmt.Errorf("load platform state: %w", err)
	default:
		p.st = &state{
			accounts: registry.FromAccounts(snap.Accounts),
			rounds: rounds.Restore(cfg.Rounds, prices, rounds.State{
				Round:       snap.State.Round,
				Price:       snap.State.Price,
				SaleSupply:  snap.State.SaleSupply,
				TradeVolume: snap.State.TradeVolume,
			}),
			book:     orderbook.Restore(snap.Orders, snap.State.NextOrderID),
			treasury: snap.State.Treasury,
		}
		slog.Info("platform restored",
			"round", snap.State.Round.Number,
			"phase", snap.State.Round.Phase,
			"accounts", len(snap.Accounts),
			"orders", len(snap.Orders),
		)
	}
	p.updateGauges(p.st)
	return p, nil
}

// Config returns the platform configuration.
func (p *Platform) Config() Config {
	return p.cfg
}

// current returns the committed state. Callers must not mutate it.
func (p *Platform) current() *state {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.st
}

// requireRole fails with a *RoleError when caller lacks role.
func (p *Platform) requireRole(ctx context.Context, role, caller string) error {
	if !p.policy.HasRole(ctx, role, caller) {
		return &RoleError{Role: role}
	}
	return nil
}

// parseAccount returns the canonical form of the address argument name.
// Accounts are keyed by that form everywhere, so mixed-case input names
// the same account.
func parseAccount(name, a string) (string, error) {
	canon, err := address.Parse(a)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return canon, nil
}

// canonical is parseAccount for lookups: input that is not an address is
// used as given and simply matches nothing.
func canonical(a string) string {
	if canon, err := address.Parse(a); err == nil {
		return canon
	}
	return a
}
