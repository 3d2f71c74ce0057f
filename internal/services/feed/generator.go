// Package feed produces a continuous synthetic price series for every
// instrument in the catalog.
package feed

import (
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/brokersim/brokersim/internal/domain"
	"github.com/brokersim/brokersim/internal/services/catalog"
)

// Drift factors per asset class: the maximum relative step a single tick may
// move the price. Forex moves in much smaller relative steps than crypto.
var driftFactors = map[domain.Category]decimal.Decimal{
	domain.CategoryCrypto: decimal.NewFromFloat(0.001),
	domain.CategoryEquity: decimal.NewFromFloat(0.0005),
	domain.CategoryForex:  decimal.NewFromFloat(0.0002),
}

// maxChangePercent bounds the display-only 24h change indicator,
// recomputed independently of the price step on every tick.
var maxChangePercent = decimal.NewFromFloat(2.5)

// minPrice is the floor a random walk step is clamped to. Prices never go
// non-positive.
var minPrice = decimal.New(1, -4)

// Generator holds the latest price per instrument and advances all of them
// one bounded random-walk step per Tick call. Given a fixed seed the series
// is fully deterministic.
type Generator struct {
	mu      sync.Mutex
	rnd     *rand.Rand
	catalog *catalog.Catalog
	seq     uint64
	prices  map[string]decimal.Decimal
	quotes  map[string]domain.PriceQuote
}

// New creates a generator seeded from the catalog's list prices.
func New(c *catalog.Catalog, seed int64) *Generator {
	g := &Generator{
		rnd:     rand.New(rand.NewSource(seed)),
		catalog: c,
		prices:  make(map[string]decimal.Decimal, c.Len()),
		quotes:  make(map[string]domain.PriceQuote, c.Len()),
	}

	now := time.Now()
	for _, ins := range c.All() {
		g.prices[ins.Symbol] = ins.ListPrice
		g.quotes[ins.Symbol] = domain.PriceQuote{
			Symbol: ins.Symbol,
			Price:  ins.ListPrice.Round(ins.PricePrecision),
			AsOf:   now,
		}
	}
	return g
}

// Tick advances every instrument one step and returns the new quotes:
// next = max(eps, prev + uniform(-1,1) * prev * drift(category)).
// The unrounded price is retained internally so rounding to the display
// precision never biases the walk.
func (g *Generator) Tick() map[string]domain.PriceQuote {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.seq++
	now := time.Now()
	for _, ins := range g.catalog.All() {
		prev := g.prices[ins.Symbol]
		step := prev.Mul(driftFactors[ins.Category]).Mul(g.uniform())
		next := prev.Add(step)
		if next.LessThan(minPrice) {
			next = minPrice
		}
		g.prices[ins.Symbol] = next

		g.quotes[ins.Symbol] = domain.PriceQuote{
			Symbol:        ins.Symbol,
			Price:         next.Round(ins.PricePrecision),
			ChangePercent: maxChangePercent.Mul(g.uniform()).Round(2),
			AsOf:          now,
			Seq:           g.seq,
		}
	}

	return g.snapshotLocked()
}

// Quote returns the latest quote for a single symbol.
func (g *Generator) Quote(symbol string) (domain.PriceQuote, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	q, ok := g.quotes[symbol]
	return q, ok
}

// Snapshot returns a copy of the latest quotes for all instruments.
func (g *Generator) Snapshot() map[string]domain.PriceQuote {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotLocked()
}

func (g *Generator) snapshotLocked() map[string]domain.PriceQuote {
	out := make(map[string]domain.PriceQuote, len(g.quotes))
	for s, q := range g.quotes {
		out[s] = q
	}
	return out
}

// uniform draws from [-1, 1).
func (g *Generator) uniform() decimal.Decimal {
	return decimal.NewFromFloat(g.rnd.Float64()*2 - 1)
}
