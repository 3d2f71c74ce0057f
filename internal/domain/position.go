package domain

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Side represents the direction of a position.
type Side string

const (
	// SideBuy long exposure.
	SideBuy Side = "buy"
	// SideSell short exposure.
	SideSell Side = "sell"
)

// String returns the string representation.
func (s Side) String() string {
	return string(s)
}

// IsValid checks if the Side value is valid.
func (s Side) IsValid() bool {
	return s == SideBuy || s == SideSell
}

// PositionState is the lifecycle state of a position.
type PositionState string

const (
	// PositionOpen the position is live and revalued on every tick.
	PositionOpen PositionState = "open"
	// PositionClosed the position is settled and immutable.
	PositionClosed PositionState = "closed"
)

// Position is a leveraged exposure to an instrument. Only the execution
// engine transitions a position from open to closed; a closed position is
// immutable.
type Position struct {
	ID          string          `json:"id"`
	AccountID   string          `json:"account_id"`
	Symbol      string          `json:"symbol"`
	Side        Side            `json:"side"`
	Quantity    decimal.Decimal `json:"quantity"`
	EntryPrice  decimal.Decimal `json:"entry_price"`
	Leverage    int             `json:"leverage"`
	OpenedAt    time.Time       `json:"opened_at"`
	State       PositionState   `json:"state"`
	ClosedAt    time.Time       `json:"closed_at,omitempty"`
	RealizedPnL decimal.Decimal `json:"realized_pnl,omitempty"`
}

// NewPosition constructs an open position. Quantity, entry price and leverage
// are validated here so the book never holds a position that violates the
// strictly-positive invariants.
func NewPosition(id, accountID, symbol string, side Side, quantity, entryPrice decimal.Decimal, leverage int, openedAt time.Time) (*Position, error) {
	if !side.IsValid() {
		return nil, errors.Errorf("unknown side: %s", side)
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidQuantity
	}
	if leverage < 1 {
		return nil, ErrInvalidLeverage
	}
	if entryPrice.LessThanOrEqual(decimal.Zero) {
		return nil, errors.Wrap(ErrInvariantViolation, "entry price must be greater than zero")
	}

	return &Position{
		ID:         id,
		AccountID:  accountID,
		Symbol:     symbol,
		Side:       side,
		Quantity:   quantity,
		EntryPrice: entryPrice,
		Leverage:   leverage,
		OpenedAt:   openedAt,
		State:      PositionOpen,
	}, nil
}

// UnrealizedPnL calculates mark-to-market profit and loss at the given price:
// (currentPrice - entryPrice) * quantity * leverage, sign inverted for sells.
func (p *Position) UnrealizedPnL(currentPrice decimal.Decimal) decimal.Decimal {
	if p == nil {
		return decimal.Zero
	}

	diff := currentPrice.Sub(p.EntryPrice)
	if p.Side == SideSell {
		diff = diff.Neg()
	}
	return diff.Mul(p.Quantity).Mul(decimal.NewFromInt(int64(p.Leverage)))
}

// IsClosed reports whether the position reached its terminal state.
func (p *Position) IsClosed() bool {
	return p != nil && p.State == PositionClosed
}
