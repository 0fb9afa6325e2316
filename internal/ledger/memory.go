package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/hermes/platform/internal/address"
)

// MemoryToken implements Token with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryToken struct {
	mu         sync.RWMutex
	owner      string
	balances   map[string]decimal.Decimal
	allowances map[string]map[string]decimal.Decimal
	supply     decimal.Decimal
}

// NewMemoryToken creates an empty ledger owned by owner.
func NewMemoryToken(owner string) *MemoryToken {
	return &MemoryToken{
		owner:      owner,
		balances:   make(map[string]decimal.Decimal),
		allowances: make(map[string]map[string]decimal.Decimal),
	}
}

func (t *MemoryToken) BalanceOf(_ context.Context, account string) (decimal.Decimal, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.balances[account], nil
}

func (t *MemoryToken) Allowance(_ context.Context, owner, spender string) (decimal.Decimal, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.allowances[owner][spender], nil
}

// TotalSupply returns the sum of all balances.
func (t *MemoryToken) TotalSupply() decimal.Decimal {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.supply
}

func (t *MemoryToken) Transfer(_ context.Context, from, to string, amount decimal.Decimal) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.move(from, to, amount)
}

func (t *MemoryToken) TransferFrom(_ context.Context, spender, from, to string, amount decimal.Decimal) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	allowed := t.allowances[from][spender]
	if allowed.LessThan(amount) {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientAllowance, spender, allowed, amount)
	}
	if err := t.move(from, to, amount); err != nil {
		return err
	}
	if t.allowances[from] == nil {
		t.allowances[from] = make(map[string]decimal.Decimal)
	}
	t.allowances[from][spender] = allowed.Sub(amount)
	return nil
}

func (t *MemoryToken) Approve(_ context.Context, owner, spender string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrNegativeAmount
	}
	if address.IsZero(owner) || address.IsZero(spender) {
		return ErrZeroAddress
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.allowances[owner] == nil {
		t.allowances[owner] = make(map[string]decimal.Decimal)
	}
	t.allowances[owner][spender] = amount
	return nil
}

func (t *MemoryToken) Mint(_ context.Context, caller, to string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrNegativeAmount
	}
	if address.IsZero(to) {
		return ErrZeroAddress
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if caller != t.owner {
		return ErrNotOwner
	}
	t.balances[to] = t.balances[to].Add(amount)
	t.supply = t.supply.Add(amount)
	return nil
}

func (t *MemoryToken) Burn(_ context.Context, caller, from string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrNegativeAmount
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if caller != t.owner {
		return ErrNotOwner
	}
	bal := t.balances[from]
	if bal.LessThan(amount) {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, from, bal, amount)
	}
	t.balances[from] = bal.Sub(amount)
	t.supply = t.supply.Sub(amount)
	return nil
}

func (t *MemoryToken) Owner(_ context.Context) (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.owner, nil
}

func (t *MemoryToken) TransferOwnership(_ context.Context, caller, newOwner string) error {
	if address.IsZero(newOwner) {
		return ErrZeroAddress
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if caller != t.owner {
		return ErrNotOwner
	}
	t.owner = newOwner
	return nil
}

// move is called with the write lock held.
func (t *MemoryToken) move(from, to string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrNegativeAmount
	}
	if address.IsZero(to) {
		return ErrZeroAddress
	}
	bal := t.balances[from]
	if bal.LessThan(amount) {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, from, bal, amount)
	}
	t.balances[from] = bal.Sub(amount)
	t.balances[to] = t.balances[to].Add(amount)
	return nil
}

// MemoryCurrency implements Currency with in-memory balances. The platform's
// own holdings are tracked under the platform address.
type MemoryCurrency struct {
	mu       sync.RWMutex
	platform string
	balances map[string]decimal.Decimal
}

// NewMemoryCurrency creates a currency ledger whose platform account is platform.
func NewMemoryCurrency(platform string) *MemoryCurrency {
	return &MemoryCurrency{
		platform: platform,
		balances: make(map[string]decimal.Decimal),
	}
}

// Fund credits account out of thin air; development and tests only.
func (c *MemoryCurrency) Fund(account string, amount decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances[account] = c.balances[account].Add(amount)
}

// Balance returns the balance of account.
func (c *MemoryCurrency) Balance(account string) decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.balances[account]
}

func (c *MemoryCurrency) Collect(_ context.Context, from string, amount decimal.Decimal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.move(from, c.platform, amount)
}

func (c *MemoryCurrency) Pay(_ context.Context, to string, amount decimal.Decimal) error {
	if address.IsZero(to) {
		return ErrZeroAddress
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.move(c.platform, to, amount)
}

func (c *MemoryCurrency) move(from, to string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrNegativeAmount
	}
	bal := c.balances[from]
	if bal.LessThan(amount) {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, from, bal, amount)
	}
	c.balances[from] = bal.Sub(amount)
	c.balances[to] = c.balances[to].Add(amount)
	return nil
}
