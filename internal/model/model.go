// Package model defines the core domain types shared across the platform.
// All monetary values use shopspring/decimal, never float64 for money.
// Currency amounts are integers in wei; unit amounts are integers in the
// token's smallest denomination (10^-18 of a whole unit).
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Phase is the kind of the active round.
type Phase string

const (
	// PhaseIdle is the state before the first round has been opened.
	PhaseIdle  Phase = "idle"
	PhaseSell  Phase = "sell"
	PhaseTrade Phase = "trade"
)

// OrderStatus is the lifecycle state of an order. Closed is terminal.
type OrderStatus string

const (
	OrderOpen   OrderStatus = "open"
	OrderClosed OrderStatus = "closed"
)

// Account is a registered participant and its referrer.
// Referrer is address.Zero when the account was registered without one.
type Account struct {
	Address      string    `json:"address" db:"address"`
	Referrer     string    `json:"referrer" db:"referrer"`
	RegisteredAt time.Time `json:"registered_at" db:"registered_at"`
}

// Round is the single active round.
type Round struct {
	Number     uint64    `json:"number" db:"number"`
	Phase      Phase     `json:"phase" db:"phase"`
	StartedAt  time.Time `json:"started_at" db:"started_at"`
	EndedEarly bool      `json:"ended_early" db:"ended_early"` // Sell supply exhausted
}

// PlatformState is everything the platform owns that is not keyed by
// account or order.
type PlatformState struct {
	Round       Round           `json:"round"`
	Price       decimal.Decimal `json:"price"`        // wei per whole unit
	SaleSupply  decimal.Decimal `json:"sale_supply"`  // units left in the Sell round
	TradeVolume decimal.Decimal `json:"trade_volume"` // wei traded in the current Trade round
	Treasury    decimal.Decimal `json:"treasury"`     // wei retained by the platform
	NextOrderID uint64          `json:"next_order_id"`
}

// Order is a seller-listed, partially fillable quantity held in escrow.
// Remaining never increases; Amount - Remaining has been traded or returned.
type Order struct {
	ID        uint64          `json:"id" db:"id"`
	Seller    string          `json:"seller" db:"seller"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	Remaining decimal.Decimal `json:"remaining" db:"remaining"`
	UnitPrice decimal.Decimal `json:"unit_price" db:"unit_price"`
	Status    OrderStatus     `json:"status" db:"status"`
	Round     uint64          `json:"round" db:"round"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	ClosedAt  *time.Time      `json:"closed_at,omitempty" db:"closed_at"`
}

// IsOpen reports whether the order can still be traded or cancelled.
func (o *Order) IsOpen() bool {
	return o.Status == OrderOpen
}

// EntryKind classifies journal entries.
type EntryKind string

const (
	EntryRegister     EntryKind = "register"
	EntryRound        EntryKind = "round"
	EntryBuy          EntryKind = "buy"
	EntryReward       EntryKind = "reward"
	EntryOrderCreated EntryKind = "order_created"
	EntryTrade        EntryKind = "trade"
	EntryOrderClosed  EntryKind = "order_closed"
	EntryRefund       EntryKind = "refund"
	EntryOverfill     EntryKind = "overfill" // excess trade payment kept by the treasury
	EntryWithdraw     EntryKind = "withdraw"
	EntryOwnership    EntryKind = "ownership"
)

// Entry is an immutable record of something the platform did.
// Once created, entries are never modified or deleted.
type Entry struct {
	ID           string          `json:"id" db:"id"`
	Kind         EntryKind       `json:"kind" db:"kind"`
	Account      string          `json:"account" db:"account"`
	Counterparty string          `json:"counterparty,omitempty" db:"counterparty"`
	OrderID      *uint64         `json:"order_id,omitempty" db:"order_id"`
	Units        decimal.Decimal `json:"units" db:"units"`
	Value        decimal.Decimal `json:"value" db:"value"` // wei
	Price        decimal.Decimal `json:"price" db:"price"`
	Round        uint64          `json:"round" db:"round"`
	Phase        Phase           `json:"phase,omitempty" db:"phase"`
	Timestamp    time.Time       `json:"timestamp" db:"timestamp"`
}

// Snapshot is the complete persisted state of the platform.
type Snapshot struct {
	State    PlatformState `json:"state"`
	Accounts []Account     `json:"accounts"`
	Orders   []Order       `json:"orders"`
}

// Changeset is what one committed operation changed. Stores apply it
// atomically: either every part is persisted or none is.
type Changeset struct {
	State    PlatformState `json:"state"`
	Accounts []Account     `json:"accounts,omitempty"` // newly registered
	Orders   []Order       `json:"orders,omitempty"`   // created or updated
	Entries  []Entry       `json:"entries,omitempty"`
}
