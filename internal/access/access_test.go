package access

import (
	"context"
	"testing"
)

func TestStaticPolicy(t *testing.T) {
	owner := "0xf000000000000000000000000000000000000000"
	other := "0x1000000000000000000000000000000000000001"
	p := NewStaticPolicy(map[string][]string{
		RoleChairPerson: {owner},
		RoleAdmin:       {owner},
	})
	ctx := context.Background()

	tests := []struct {
		role, account string
		want          bool
	}{
		{RoleChairPerson, owner, true},
		{RoleAdmin, owner, true},
		{RoleChairPerson, other, false},
		{RoleAdmin, other, false},
		{"MINTER", owner, false},
	}
	for _, tt := range tests {
		if got := p.HasRole(ctx, tt.role, tt.account); got != tt.want {
			t.Errorf("HasRole(%s, %s) = %v, want %v", tt.role, tt.account, got, tt.want)
		}
	}
}
