package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/hermes/platform/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context) (*model.Snapshot, error) {
	var snap model.Snapshot
	var st = &snap.State
	var roundNumber, nextOrderID int64
	var phase string
	var price, supply, volume, treasury string

	err := s.pool.QueryRow(ctx,
		`SELECT round_number, phase, started_at, ended_early,
		        price::TEXT, sale_supply::TEXT, trade_volume::TEXT, treasury::TEXT,
		        next_order_id
		 FROM platform_state WHERE id = 1`).
		Scan(&roundNumber, &phase, &st.Round.StartedAt, &st.Round.EndedEarly,
			&price, &supply, &volume, &treasury,
			&nextOrderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("load platform state: %w", err)
	}

	st.Round.Number = uint64(roundNumber)
	st.Round.Phase = model.Phase(phase)
	st.Price, _ = decimal.NewFromString(price)
	st.SaleSupply, _ = decimal.NewFromString(supply)
	st.TradeVolume, _ = decimal.NewFromString(volume)
	st.Treasury, _ = decimal.NewFromString(treasury)
	st.NextOrderID = uint64(nextOrderID)

	if snap.Accounts, err = s.loadAccounts(ctx); err != nil {
		return nil, err
	}
	if snap.Orders, err = s.loadOrders(ctx); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *PostgresStore) loadAccounts(ctx context.Context) ([]model.Account, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT address, referrer, registered_at FROM accounts ORDER BY registered_at`)
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		var a model.Account
		if err := rows.Scan(&a.Address, &a.Referrer, &a.RegisteredAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (s *PostgresStore) loadOrders(ctx context.Context) ([]model.Order, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, seller, amount::TEXT, remaining::TEXT, unit_price::TEXT,
		        status, round, created_at, closed_at
		 FROM orders ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		var id, round int64
		var amount, remaining, unitPrice, status string
		var closedAt *time.Time

		if err := rows.Scan(&id, &o.Seller, &amount, &remaining, &unitPrice,
			&status, &round, &o.CreatedAt, &closedAt); err != nil {
			return nil, err
		}
		o.ID = uint64(id)
		o.Round = uint64(round)
		o.Status = model.OrderStatus(status)
		o.Amount, _ = decimal.NewFromString(amount)
		o.Remaining, _ = decimal.NewFromString(remaining)
		o.UnitPrice, _ = decimal.NewFromString(unitPrice)
		o.ClosedAt = closedAt
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// Commit writes the changeset in a single transaction.
func (s *PostgresStore) Commit(ctx context.Context, cs *model.Changeset) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin commit: %w", err)
	}
	defer tx.Rollback(ctx)

	st := cs.State
	_, err = tx.Exec(ctx,
		`INSERT INTO platform_state (id, round_number, phase, started_at, ended_early,
		                             price, sale_supply, trade_volume, treasury, next_order_id)
		 VALUES (1, $1, $2, $3, $4, $5::NUMERIC, $6::NUMERIC, $7::NUMERIC, $8::NUMERIC, $9)
		 ON CONFLICT (id) DO UPDATE SET
		     round_number = EXCLUDED.round_number, phase = EXCLUDED.phase,
		     started_at = EXCLUDED.started_at, ended_early = EXCLUDED.ended_early,
		     price = EXCLUDED.price, sale_supply = EXCLUDED.sale_supply,
		     trade_volume = EXCLUDED.trade_volume, treasury = EXCLUDED.treasury,
		     next_order_id = EXCLUDED.next_order_id`,
		int64(st.Round.Number), string(st.Round.Phase), st.Round.StartedAt, st.Round.EndedEarly,
		st.Price.String(), st.SaleSupply.String(), st.TradeVolume.String(), st.Treasury.String(),
		int64(st.NextOrderID),
	)
	if err != nil {
		return fmt.Errorf("write platform state: %w", err)
	}

	for _, a := range cs.Accounts {
		if _, err := tx.Exec(ctx,
			`INSERT INTO accounts (address, referrer, registered_at) VALUES ($1, $2, $3)`,
			a.Address, a.Referrer, a.RegisteredAt,
		); err != nil {
			return fmt.Errorf("insert account %s: %w", a.Address, err)
		}
	}

	for _, o := range cs.Orders {
		if _, err := tx.Exec(ctx,
			`INSERT INTO orders (id, seller, amount, remaining, unit_price, status, round, created_at, closed_at)
			 VALUES ($1, $2, $3::NUMERIC, $4::NUMERIC, $5::NUMERIC, $6, $7, $8, $9)
			 ON CONFLICT (id) DO UPDATE SET
			     remaining = EXCLUDED.remaining, status = EXCLUDED.status, closed_at = EXCLUDED.closed_at`,
			int64(o.ID), o.Seller, o.Amount.String(), o.Remaining.String(), o.UnitPrice.String(),
			string(o.Status), int64(o.Round), o.CreatedAt, o.ClosedAt,
		); err != nil {
			return fmt.Errorf("upsert order %d: %w", o.ID, err)
		}
	}

	for _, e := range cs.Entries {
		var orderID *int64
		if e.OrderID != nil {
			id := int64(*e.OrderID)
			orderID = &id
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO journal_entries (id, kind, account, counterparty, order_id,
			                              units, value, price, round, phase, timestamp)
			 VALUES ($1, $2, $3, $4, $5, $6::NUMERIC, $7::NUMERIC, $8::NUMERIC, $9, $10, $11)`,
			e.ID, string(e.Kind), e.Account, e.Counterparty, orderID,
			e.Units.String(), e.Value.String(), e.Price.String(),
			int64(e.Round), string(e.Phase), e.Timestamp,
		); err != nil {
			return fmt.Errorf("insert journal entry %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetEntriesByAccount(ctx context.Context, account string) ([]model.Entry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, kind, account, counterparty, order_id,
		        units::TEXT, value::TEXT, price::TEXT, round, phase, timestamp
		 FROM journal_entries WHERE account = $1 OR counterparty = $1 ORDER BY seq`, account)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

func (s *PostgresStore) GetEntriesByOrder(ctx context.Context, orderID uint64) ([]model.Entry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, kind, account, counterparty, order_id,
		        units::TEXT, value::TEXT, price::TEXT, round, phase, timestamp
		 FROM journal_entries WHERE order_id = $1 ORDER BY seq`, int64(orderID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// pgxRows is the subset of pgx.Rows scanEntries needs.
type pgxRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanEntries(rows pgxRows) ([]model.Entry, error) {
	var entries []model.Entry
	for rows.Next() {
		var e model.Entry
		var kind, phase, unitsS, valueS, priceS string
		var orderID *int64
		var round int64

		if err := rows.Scan(&e.ID, &kind, &e.Account, &e.Counterparty, &orderID,
			&unitsS, &valueS, &priceS, &round, &phase, &e.Timestamp); err != nil {
			return nil, err
		}

		e.Kind = model.EntryKind(kind)
		e.Phase = model.Phase(phase)
		e.Round = uint64(round)
		if orderID != nil {
			id := uint64(*orderID)
			e.OrderID = &id
		}
		e.Units, _ = decimal.NewFromString(unitsS)
		e.Value, _ = decimal.NewFromString(valueS)
		e.Price, _ = decimal.NewFromString(priceS)

		entries = append(entries, e)
	}
	return entries, rows.Err()
}
