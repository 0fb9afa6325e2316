// Package orderbook holds the secondary-market orders listed during Trade
// rounds. It only keeps the records; escrow movements and payments are done
// by the platform around these calls.
package orderbook

import (
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hermes/platform/internal/model"
)

var (
	ErrOrderNotFound = errors.New("Order doesnt exist")
	ErrOrderClosed   = errors.New("Order is closed")
	ErrNotOrderOwner = errors.New("User doesnt own this order")

	// ErrOverfill is returned by Fill when more units are requested than remain.
	ErrOverfill = errors.New("orderbook: fill exceeds remaining amount")
)

// Book is the collection of orders keyed by sequential id.
// It is not safe for concurrent use; the platform serializes access.
type Book struct {
	orders map[uint64]model.Order
	nextID uint64
}

// New creates an empty book whose first order id is 0.
func New() *Book {
	return &Book{orders: make(map[uint64]model.Order)}
}

// Restore rebuilds a book from persisted orders.
func Restore(orders []model.Order, nextID uint64) *Book {
	b := &Book{orders: make(map[uint64]model.Order, len(orders)), nextID: nextID}
	for _, o := range orders {
		b.orders[o.ID] = o
		if o.ID >= b.nextID {
			b.nextID = o.ID + 1
		}
	}
	return b
}

// NextID returns the id the next order will get.
func (b *Book) NextID() uint64 {
	return b.nextID
}

// Create lists a new open order.
func (b *Book) Create(seller string, amount, unitPrice decimal.Decimal, round uint64, now time.Time) model.Order {
	o := model.Order{
		ID:        b.nextID,
		Seller:    seller,
		Amount:    amount,
		Remaining: amount,
		UnitPrice: unitPrice,
		Status:    model.OrderOpen,
		Round:     round,
		CreatedAt: now,
	}
	b.orders[o.ID] = o
	b.nextID++
	return o
}

// Get returns the order with id.
func (b *Book) Get(id uint64) (model.Order, bool) {
	o, ok := b.orders[id]
	return o, ok
}

// Open returns the order with id if it exists and is open.
func (b *Book) Open(id uint64) (model.Order, error) {
	o, ok := b.orders[id]
	if !ok {
		return model.Order{}, ErrOrderNotFound
	}
	if !o.IsOpen() {
		return model.Order{}, ErrOrderClosed
	}
	return o, nil
}

// Fill removes units from an open order, closing it when nothing remains.
func (b *Book) Fill(id uint64, units decimal.Decimal, now time.Time) (model.Order, error) {
	o, err := b.Open(id)
	if err != nil {
		return model.Order{}, err
	}
	if units.GreaterThan(o.Remaining) {
		return model.Order{}, ErrOverfill
	}
	o.Remaining = o.Remaining.Sub(units)
	if o.Remaining.IsZero() {
		markClosed(&o, now)
	}
	b.orders[id] = o
	return o, nil
}

// Cancel closes an open order on behalf of its seller and returns it as it
// was before closing, so the caller knows how much to release from escrow.
func (b *Book) Cancel(id uint64, caller string, now time.Time) (model.Order, error) {
	o, ok := b.orders[id]
	if !ok {
		return model.Order{}, ErrOrderNotFound
	}
	if o.Seller != caller {
		return model.Order{}, ErrNotOrderOwner
	}
	if !o.IsOpen() {
		return model.Order{}, ErrOrderClosed
	}
	before := o
	markClosed(&o, now)
	b.orders[id] = o
	return before, nil
}

func markClosed(o *model.Order, now time.Time) {
	o.Status = model.OrderClosed
	at := now
	o.ClosedAt = &at
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Seller string
	Status model.OrderStatus
}

// List returns matching orders sorted by id.
func (b *Book) List(f Filter) []model.Order {
	out := make([]model.Order, 0, len(b.orders))
	for _, o := range b.orders {
		if f.Seller != "" && o.Seller != f.Seller {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// OpenCount returns the number of open orders.
func (b *Book) OpenCount() int {
	n := 0
	for _, o := range b.orders {
		if o.IsOpen() {
			n++
		}
	}
	return n
}

// Clone returns an independent copy.
func (b *Book) Clone() *Book {
	c := &Book{orders: make(map[uint64]model.Order, len(b.orders)), nextID: b.nextID}
	for k, v := range b.orders {
		c.orders[k] = v
	}
	return c
}
