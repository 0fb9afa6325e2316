package api

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidator_Wei(t *testing.T) {
	var v interface{ Struct(interface{}) error }
	require.NotPanics(t, func() { v = newValidator() })

	tests := []struct {
		value string
		ok    bool
	}{
		{"0", true},
		{"1000000000000000000", true},
		{"0.5", false},
		{"-1", false},
	}
	for _, tt := range tests {
		err := v.Struct(ValueRequest{Value: decimal.RequireFromString(tt.value)})
		if tt.ok {
			assert.NoError(t, err, tt.value)
		} else {
			assert.Error(t, err, tt.value)
		}
	}
}
