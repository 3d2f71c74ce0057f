// Package book tracks open and closed positions and revalues the open ones
// against the latest price snapshot.
package book

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/brokersim/brokersim/internal/domain"
	"github.com/brokersim/brokersim/internal/services/catalog"
)

// QuoteSource supplies the latest price per instrument.
type QuoteSource interface {
	Quote(symbol string) (domain.PriceQuote, bool)
}

// Valuation pairs a position with its mark-to-market P&L.
type Valuation struct {
	Position      domain.Position `json:"position"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
}

// Book is the set of positions across all accounts. Revaluation is read-only
// and may run concurrently with everything except open/close.
type Book struct {
	mu        sync.RWMutex
	catalog   *catalog.Catalog
	quotes    QuoteSource
	positions map[string]*domain.Position
	byAccount map[string][]string
	logger    *zap.Logger
}

// New creates an empty position book.
func New(c *catalog.Catalog, quotes QuoteSource, logger *zap.Logger) *Book {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Book{
		catalog:   c,
		quotes:    quotes,
		positions: make(map[string]*domain.Position),
		byAccount: make(map[string][]string),
		logger:    logger,
	}
}

// Open creates a position at the current market price of the instrument.
func (b *Book) Open(accountID, symbol string, side domain.Side, quantity decimal.Decimal, leverage int) (domain.Position, error) {
	if _, ok := b.catalog.Get(symbol); !ok {
		return domain.Position{}, errors.Wrapf(domain.ErrUnknownInstrument, "symbol %s", symbol)
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return domain.Position{}, domain.ErrInvalidQuantity
	}
	if leverage < 1 {
		return domain.Position{}, domain.ErrInvalidLeverage
	}

	quote, ok := b.quotes.Quote(symbol)
	if !ok || quote.Price.LessThanOrEqual(decimal.Zero) {
		// the feed seeds every catalog symbol with a positive price at
		// startup, so this is a defect upstream, not user input
		b.logger.Error("no usable quote for catalog instrument",
			zap.String("symbol", symbol), zap.String("price", quote.Price.String()))
		return domain.Position{}, errors.Wrapf(domain.ErrInvariantViolation, "no positive quote for %s", symbol)
	}

	pos, err := domain.NewPosition(uuid.NewString(), accountID, symbol, side, quantity, quote.Price, leverage, time.Now())
	if err != nil {
		return domain.Position{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.positions[pos.ID] = pos
	b.byAccount[accountID] = append(b.byAccount[accountID], pos.ID)

	return *pos, nil
}

// Close transitions the position to closed at the current market price and
// computes its realized P&L. Closed positions are immutable; closing twice
// returns ErrPositionAlreadyClosed.
func (b *Book) Close(positionID string) (domain.Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pos, ok := b.positions[positionID]
	if !ok {
		return domain.Position{}, errors.Wrapf(domain.ErrPositionNotFound, "position %s", positionID)
	}
	if pos.IsClosed() {
		return domain.Position{}, errors.Wrapf(domain.ErrPositionAlreadyClosed, "position %s", positionID)
	}

	quote, ok := b.quotes.Quote(pos.Symbol)
	if !ok || quote.Price.LessThanOrEqual(decimal.Zero) {
		b.logger.Error("no usable quote for open position",
			zap.String("symbol", pos.Symbol), zap.String("position", positionID))
		return domain.Position{}, errors.Wrapf(domain.ErrInvariantViolation, "no positive quote for %s", pos.Symbol)
	}

	pos.RealizedPnL = pos.UnrealizedPnL(quote.Price)
	pos.State = domain.PositionClosed
	pos.ClosedAt = time.Now()

	return *pos, nil
}

// Get returns a copy of the position.
func (b *Book) Get(positionID string) (domain.Position, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	pos, ok := b.positions[positionID]
	if !ok {
		return domain.Position{}, errors.Wrapf(domain.ErrPositionNotFound, "position %s", positionID)
	}
	return *pos, nil
}

// Revalue produces the unrealized P&L of every open position against the
// given price snapshot. Read-only; performs no mutation.
func (b *Book) Revalue(snapshot map[string]domain.PriceQuote) []Valuation {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Valuation, 0, len(b.positions))
	for _, pos := range b.positions {
		if pos.IsClosed() {
			continue
		}
		quote, ok := snapshot[pos.Symbol]
		if !ok {
			continue
		}
		out = append(out, Valuation{Position: *pos, UnrealizedPnL: pos.UnrealizedPnL(quote.Price)})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Position.OpenedAt.Before(out[j].Position.OpenedAt)
	})
	return out
}

// OpenPositions returns the account's open positions, oldest first.
func (b *Book) OpenPositions(accountID string) []domain.Position {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]domain.Position, 0, len(b.byAccount[accountID]))
	for _, id := range b.byAccount[accountID] {
		if pos := b.positions[id]; !pos.IsClosed() {
			out = append(out, *pos)
		}
	}
	return out
}

// TotalUnrealizedPnL sums mark-to-market P&L over the account's open
// positions at the latest quotes.
func (b *Book) TotalUnrealizedPnL(accountID string) decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()

	total := decimal.Zero
	for _, id := range b.byAccount[accountID] {
		pos := b.positions[id]
		if pos.IsClosed() {
			continue
		}
		if quote, ok := b.quotes.Quote(pos.Symbol); ok {
			total = total.Add(pos.UnrealizedPnL(quote.Price))
		}
	}
	return total
}
