// Package catalog holds the static set of tradable instruments.
package catalog

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/brokersim/brokersim/internal/domain"
)

// Catalog is an immutable registry of instruments, built once at startup.
type Catalog struct {
	bySymbol map[string]domain.Instrument
	symbols  []string
}

// New builds a catalog from the given instruments. Symbols must be unique,
// categories valid and list prices strictly positive.
func New(instruments []domain.Instrument) (*Catalog, error) {
	if len(instruments) == 0 {
		return nil, errors.New("catalog requires at least one instrument")
	}

	bySymbol := make(map[string]domain.Instrument, len(instruments))
	symbols := make([]string, 0, len(instruments))
	for _, ins := range instruments {
		if ins.Symbol == "" {
			return nil, errors.New("instrument symbol is required")
		}
		if _, ok := bySymbol[ins.Symbol]; ok {
			return nil, errors.Errorf("duplicate instrument symbol: %s", ins.Symbol)
		}
		if !ins.Category.IsValid() {
			return nil, errors.Errorf("invalid category %q for %s", ins.Category, ins.Symbol)
		}
		if ins.PricePrecision < 0 {
			return nil, errors.Errorf("negative price precision for %s", ins.Symbol)
		}
		if ins.ListPrice.LessThanOrEqual(decimal.Zero) {
			return nil, errors.Errorf("list price must be greater than zero for %s", ins.Symbol)
		}
		bySymbol[ins.Symbol] = ins
		symbols = append(symbols, ins.Symbol)
	}
	sort.Strings(symbols)

	return &Catalog{bySymbol: bySymbol, symbols: symbols}, nil
}

// Default returns the built-in demo catalog.
func Default() *Catalog {
	c, err := New([]domain.Instrument{
		{Symbol: "BTC/USD", DisplayName: "Bitcoin", Category: domain.CategoryCrypto, PricePrecision: 2, ListPrice: decimal.NewFromFloat(45234.56)},
		{Symbol: "ETH/USD", DisplayName: "Ethereum", Category: domain.CategoryCrypto, PricePrecision: 2, ListPrice: decimal.NewFromFloat(3456.78)},
		{Symbol: "EUR/USD", DisplayName: "Euro Dollar", Category: domain.CategoryForex, PricePrecision: 4, ListPrice: decimal.NewFromFloat(1.0856)},
		{Symbol: "GBP/USD", DisplayName: "Pound Dollar", Category: domain.CategoryForex, PricePrecision: 4, ListPrice: decimal.NewFromFloat(1.2734)},
		{Symbol: "AAPL", DisplayName: "Apple Inc", Category: domain.CategoryEquity, PricePrecision: 2, ListPrice: decimal.NewFromFloat(178.45)},
		{Symbol: "TSLA", DisplayName: "Tesla Inc", Category: domain.CategoryEquity, PricePrecision: 2, ListPrice: decimal.NewFromFloat(234.67)},
	})
	if err != nil {
		// the built-in set is validated by tests, a failure here is a defect
		panic(err)
	}
	return c
}

// Get returns the instrument for the symbol.
func (c *Catalog) Get(symbol string) (domain.Instrument, bool) {
	ins, ok := c.bySymbol[symbol]
	return ins, ok
}

// Symbols returns all symbols in lexical order.
func (c *Catalog) Symbols() []string {
	out := make([]string, len(c.symbols))
	copy(out, c.symbols)
	return out
}

// All returns every instrument in lexical symbol order.
func (c *Catalog) All() []domain.Instrument {
	out := make([]domain.Instrument, 0, len(c.symbols))
	for _, s := range c.symbols {
		out = append(out, c.bySymbol[s])
	}
	return out
}

// ByCategory returns the instruments of one asset class, in symbol order.
func (c *Catalog) ByCategory(cat domain.Category) []domain.Instrument {
	out := make([]domain.Instrument, 0, len(c.symbols))
	for _, s := range c.symbols {
		if ins := c.bySymbol[s]; ins.Category == cat {
			out = append(out, ins)
		}
	}
	return out
}

// Len returns the number of instruments.
func (c *Catalog) Len() int {
	return len(c.symbols)
}
