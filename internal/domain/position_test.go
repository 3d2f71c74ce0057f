package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPosition_Validation(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name     string
		side     Side
		quantity decimal.Decimal
		entry    decimal.Decimal
		leverage int
		wantErr  error
	}{
		{
			name:     "valid buy",
			side:     SideBuy,
			quantity: decimal.NewFromFloat(0.1),
			entry:    decimal.NewFromInt(44500),
			leverage: 1,
		},
		{
			name:     "zero quantity",
			side:     SideBuy,
			quantity: decimal.Zero,
			entry:    decimal.NewFromInt(44500),
			leverage: 1,
			wantErr:  ErrInvalidQuantity,
		},
		{
			name:     "negative quantity",
			side:     SideSell,
			quantity: decimal.NewFromInt(-1),
			entry:    decimal.NewFromInt(44500),
			leverage: 1,
			wantErr:  ErrInvalidQuantity,
		},
		{
			name:     "zero leverage",
			side:     SideBuy,
			quantity: decimal.NewFromInt(1),
			entry:    decimal.NewFromInt(44500),
			leverage: 0,
			wantErr:  ErrInvalidLeverage,
		},
		{
			name:     "non-positive entry price",
			side:     SideBuy,
			quantity: decimal.NewFromInt(1),
			entry:    decimal.Zero,
			leverage: 1,
			wantErr:  ErrInvariantViolation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, err := NewPosition("id", "acc", "BTC/USD", tt.side, tt.quantity, tt.entry, tt.leverage, now)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, PositionOpen, pos.State)
			assert.False(t, pos.IsClosed())
		})
	}
}

func TestPosition_UnrealizedPnL(t *testing.T) {
	now := time.Now()
	entry := decimal.NewFromInt(44500)

	tests := []struct {
		name     string
		side     Side
		leverage int
		current  decimal.Decimal
		want     decimal.Decimal
	}{
		{
			name:     "buy profits when price rises",
			side:     SideBuy,
			leverage: 1,
			current:  decimal.NewFromFloat(45234.56),
			want:     decimal.NewFromFloat(73.456),
		},
		{
			name:     "buy loses when price falls",
			side:     SideBuy,
			leverage: 1,
			current:  decimal.NewFromInt(44000),
			want:     decimal.NewFromInt(-50),
		},
		{
			name:     "sell profits when price falls",
			side:     SideSell,
			leverage: 1,
			current:  decimal.NewFromInt(44000),
			want:     decimal.NewFromInt(50),
		},
		{
			name:     "sell loses when price rises",
			side:     SideSell,
			leverage: 1,
			current:  decimal.NewFromInt(45000),
			want:     decimal.NewFromInt(-50),
		},
		{
			name:     "leverage scales pnl",
			side:     SideBuy,
			leverage: 10,
			current:  decimal.NewFromInt(45000),
			want:     decimal.NewFromInt(500),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, err := NewPosition("id", "acc", "BTC/USD", tt.side, decimal.NewFromFloat(0.1), entry, tt.leverage, now)
			require.NoError(t, err)
			got := pos.UnrealizedPnL(tt.current)
			assert.True(t, got.Equal(tt.want), "want %s, got %s", tt.want, got)
		})
	}
}

func TestPosition_UnrealizedPnL_NilReceiver(t *testing.T) {
	var pos *Position
	assert.True(t, pos.UnrealizedPnL(decimal.NewFromInt(100)).IsZero())
}
