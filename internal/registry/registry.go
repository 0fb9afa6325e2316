// Package registry keeps registered accounts and their referral graph.
//
// A referrer must already be registered when an account registers, so the
// graph is acyclic by construction and every chain ends at the zero address.
package registry

import (
	"errors"
	"iter"
	"time"

	"github.com/hermes/platform/internal/address"
	"github.com/hermes/platform/internal/model"
)

// ChainDepth is how many ancestors take part in reward distribution.
const ChainDepth = 2

var (
	ErrAlreadyRegistered     = errors.New("Account already registered")
	ErrReferrerNotRegistered = errors.New("Referral account not registered")
)

// Registry maps normalized addresses to accounts. It is not safe for
// concurrent use; the platform serializes access.
type Registry struct {
	accounts map[string]model.Account
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{accounts: make(map[string]model.Account)}
}

// FromAccounts rebuilds a registry from persisted accounts.
func FromAccounts(accounts []model.Account) *Registry {
	r := New()
	for _, a := range accounts {
		r.accounts[a.Address] = a
	}
	return r
}

// Register records caller with the given referrer (address.Zero for none).
func (r *Registry) Register(caller, referrer string, now time.Time) (model.Account, error) {
	if _, ok := r.accounts[caller]; ok {
		return model.Account{}, ErrAlreadyRegistered
	}
	if address.IsZero(referrer) {
		referrer = address.Zero
	} else if _, ok := r.accounts[referrer]; !ok {
		return model.Account{}, ErrReferrerNotRegistered
	}

	acct := model.Account{
		Address:      caller,
		Referrer:     referrer,
		RegisteredAt: now,
	}
	r.accounts[caller] = acct
	return acct, nil
}

// IsRegistered reports whether a is registered.
func (r *Registry) IsRegistered(a string) bool {
	_, ok := r.accounts[a]
	return ok
}

// Get returns the account for a.
func (r *Registry) Get(a string) (model.Account, bool) {
	acct, ok := r.accounts[a]
	return acct, ok
}

// Len returns the number of registered accounts.
func (r *Registry) Len() int {
	return len(r.accounts)
}

// ReferralChain yields up to ChainDepth ancestors of a: its referrer, then
// the referrer's referrer. It stops early at the zero address. The sequence
// may be ranged over any number of times.
func (r *Registry) ReferralChain(a string) iter.Seq[string] {
	return func(yield func(string) bool) {
		cur := a
		for i := 0; i < ChainDepth; i++ {
			acct, ok := r.accounts[cur]
			if !ok || address.IsZero(acct.Referrer) {
				return
			}
			if !yield(acct.Referrer) {
				return
			}
			cur = acct.Referrer
		}
	}
}

// Referrers returns ReferralChain(a) as a fixed-size array; missing levels
// are the zero address.
func (r *Registry) Referrers(a string) [ChainDepth]string {
	var out [ChainDepth]string
	for i := range out {
		out[i] = address.Zero
	}
	i := 0
	for ref := range r.ReferralChain(a) {
		out[i] = ref
		i++
	}
	return out
}

// Accounts returns all accounts in no particular order.
func (r *Registry) Accounts() []model.Account {
	out := make([]model.Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		out = append(out, a)
	}
	return out
}

// Clone returns an independent copy.
func (r *Registry) Clone() *Registry {
	c := &Registry{accounts: make(map[string]model.Account, len(r.accounts))}
	for k, v := range r.accounts {
		c.accounts[k] = v
	}
	return c
}
