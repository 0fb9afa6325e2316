// Package access answers capability questions for the platform. Granting
// and revoking roles happens elsewhere; the platform only asks HasRole.
package access

import (
	"context"
	"sync"
)

// Role names as they appear in authorization failures.
const (
	RoleChairPerson = "CHAIR_PERSON"
	RoleAdmin       = "DEFAULT_ADMIN_ROLE"
)

// Policy reports whether account holds role.
type Policy interface {
	HasRole(ctx context.Context, role, account string) bool
}

// StaticPolicy is a fixed role table, typically loaded from configuration.
type StaticPolicy struct {
	mu    sync.RWMutex
	roles map[string]map[string]bool
}

// NewStaticPolicy builds a policy from role → accounts.
func NewStaticPolicy(grants map[string][]string) *StaticPolicy {
	p := &StaticPolicy{roles: make(map[string]map[string]bool)}
	for role, accounts := range grants {
		for _, a := range accounts {
			p.grant(role, a)
		}
	}
	return p
}

func (p *StaticPolicy) HasRole(_ context.Context, role, account string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.roles[role][account]
}

func (p *StaticPolicy) grant(role, account string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.roles[role] == nil {
		p.roles[role] = make(map[string]bool)
	}
	p.roles[role][account] = true
}
