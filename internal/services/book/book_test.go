package book

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brokersim/brokersim/internal/domain"
	"github.com/brokersim/brokersim/internal/services/catalog"
)

// stubQuotes is a settable quote source for driving the book in tests.
type stubQuotes struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
}

func newStubQuotes() *stubQuotes {
	return &stubQuotes{prices: map[string]decimal.Decimal{
		"BTC/USD": decimal.NewFromInt(44500),
		"ETH/USD": decimal.NewFromFloat(3456.78),
	}}
}

func (s *stubQuotes) set(symbol string, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[symbol] = price
}

func (s *stubQuotes) Quote(symbol string) (domain.PriceQuote, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	price, ok := s.prices[symbol]
	if !ok {
		return domain.PriceQuote{}, false
	}
	return domain.PriceQuote{Symbol: symbol, Price: price, AsOf: time.Now()}, true
}

func newTestBook() (*Book, *stubQuotes) {
	quotes := newStubQuotes()
	return New(catalog.Default(), quotes, nil), quotes
}

func TestBook_Open(t *testing.T) {
	b, _ := newTestBook()

	pos, err := b.Open("acc", "BTC/USD", domain.SideBuy, decimal.NewFromFloat(0.1), 1)
	require.NoError(t, err)
	assert.Equal(t, domain.PositionOpen, pos.State)
	assert.True(t, pos.EntryPrice.Equal(decimal.NewFromInt(44500)))
	assert.NotEmpty(t, pos.ID)

	open := b.OpenPositions("acc")
	require.Len(t, open, 1)
	assert.Equal(t, pos.ID, open[0].ID)
}

func TestBook_Open_Validation(t *testing.T) {
	b, _ := newTestBook()

	tests := []struct {
		name     string
		symbol   string
		quantity decimal.Decimal
		leverage int
		wantErr  error
	}{
		{"unknown instrument", "DOGE/USD", decimal.NewFromInt(1), 1, domain.ErrUnknownInstrument},
		{"zero quantity", "BTC/USD", decimal.Zero, 1, domain.ErrInvalidQuantity},
		{"negative quantity", "BTC/USD", decimal.NewFromInt(-1), 1, domain.ErrInvalidQuantity},
		{"leverage below one", "BTC/USD", decimal.NewFromInt(1), 0, domain.ErrInvalidLeverage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Open("acc", tt.symbol, domain.SideBuy, tt.quantity, tt.leverage)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, b.OpenPositions("acc"))
		})
	}
}

func TestBook_Close(t *testing.T) {
	b, quotes := newTestBook()

	pos, err := b.Open("acc", "BTC/USD", domain.SideBuy, decimal.NewFromFloat(0.1), 1)
	require.NoError(t, err)

	quotes.set("BTC/USD", decimal.NewFromFloat(45234.56))

	closed, err := b.Close(pos.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PositionClosed, closed.State)
	assert.False(t, closed.ClosedAt.IsZero())
	assert.True(t, closed.RealizedPnL.Equal(decimal.NewFromFloat(73.456)),
		"realized pnl %s", closed.RealizedPnL)

	assert.Empty(t, b.OpenPositions("acc"))
}

func TestBook_Close_Twice(t *testing.T) {
	b, _ := newTestBook()

	pos, err := b.Open("acc", "BTC/USD", domain.SideBuy, decimal.NewFromFloat(0.1), 1)
	require.NoError(t, err)

	_, err = b.Close(pos.ID)
	require.NoError(t, err)

	_, err = b.Close(pos.ID)
	require.ErrorIs(t, err, domain.ErrPositionAlreadyClosed)
}

func TestBook_Close_NotFound(t *testing.T) {
	b, _ := newTestBook()
	_, err := b.Close("nope")
	require.ErrorIs(t, err, domain.ErrPositionNotFound)
}

func TestBook_ClosedPositionIsImmutable(t *testing.T) {
	b, quotes := newTestBook()

	pos, err := b.Open("acc", "BTC/USD", domain.SideBuy, decimal.NewFromFloat(0.1), 1)
	require.NoError(t, err)

	quotes.set("BTC/USD", decimal.NewFromInt(46000))
	closed, err := b.Close(pos.ID)
	require.NoError(t, err)

	// a later price move does not touch the stored realized pnl
	quotes.set("BTC/USD", decimal.NewFromInt(40000))
	got, err := b.Get(pos.ID)
	require.NoError(t, err)
	assert.True(t, got.RealizedPnL.Equal(closed.RealizedPnL))
	assert.Equal(t, domain.PositionClosed, got.State)
}

func TestBook_Revalue(t *testing.T) {
	b, _ := newTestBook()

	buy, err := b.Open("acc-1", "BTC/USD", domain.SideBuy, decimal.NewFromFloat(0.1), 1)
	require.NoError(t, err)
	sell, err := b.Open("acc-2", "BTC/USD", domain.SideSell, decimal.NewFromFloat(0.1), 2)
	require.NoError(t, err)

	snapshot := map[string]domain.PriceQuote{
		"BTC/USD": {Symbol: "BTC/USD", Price: decimal.NewFromInt(45000)},
	}

	vals := b.Revalue(snapshot)
	require.Len(t, vals, 2)

	byID := make(map[string]decimal.Decimal, 2)
	for _, v := range vals {
		byID[v.Position.ID] = v.UnrealizedPnL
	}
	assert.True(t, byID[buy.ID].Equal(decimal.NewFromInt(50)), "buy pnl %s", byID[buy.ID])
	assert.True(t, byID[sell.ID].Equal(decimal.NewFromInt(-100)), "sell pnl %s", byID[sell.ID])
}

func TestBook_Revalue_SkipsClosedAndUnquoted(t *testing.T) {
	b, _ := newTestBook()

	pos, err := b.Open("acc", "BTC/USD", domain.SideBuy, decimal.NewFromInt(1), 1)
	require.NoError(t, err)
	_, err = b.Close(pos.ID)
	require.NoError(t, err)

	_, err = b.Open("acc", "ETH/USD", domain.SideBuy, decimal.NewFromInt(1), 1)
	require.NoError(t, err)

	// snapshot without ETH: nothing to revalue
	snapshot := map[string]domain.PriceQuote{
		"BTC/USD": {Symbol: "BTC/USD", Price: decimal.NewFromInt(45000)},
	}
	assert.Empty(t, b.Revalue(snapshot))
}

func TestBook_TotalUnrealizedPnL(t *testing.T) {
	b, quotes := newTestBook()

	_, err := b.Open("acc", "BTC/USD", domain.SideBuy, decimal.NewFromFloat(0.1), 1)
	require.NoError(t, err)
	_, err = b.Open("acc", "ETH/USD", domain.SideBuy, decimal.NewFromInt(1), 1)
	require.NoError(t, err)
	_, err = b.Open("other", "BTC/USD", domain.SideBuy, decimal.NewFromInt(5), 1)
	require.NoError(t, err)

	quotes.set("BTC/USD", decimal.NewFromInt(45000))
	quotes.set("ETH/USD", decimal.NewFromFloat(3500.78))

	// (45000-44500)*0.1 + (3500.78-3456.78)*1 = 50 + 44
	total := b.TotalUnrealizedPnL("acc")
	assert.True(t, total.Equal(decimal.NewFromInt(94)), "total pnl %s", total)

	assert.True(t, b.TotalUnrealizedPnL("empty").IsZero())
}
