// Package domain defines the core data structures of the brokerage simulator.
package domain

import "github.com/shopspring/decimal"

// Category groups instruments by asset class. The price feed derives its
// drift factor from the category: forex moves in smaller relative steps
// than crypto.
type Category string

const (
	// CategoryCrypto cryptocurrency pairs.
	CategoryCrypto Category = "crypto"
	// CategoryForex currency pairs.
	CategoryForex Category = "forex"
	// CategoryEquity listed stocks.
	CategoryEquity Category = "equity"
)

// String returns the string representation.
func (c Category) String() string {
	return string(c)
}

// IsValid checks if the Category value is valid.
func (c Category) IsValid() bool {
	return c == CategoryCrypto || c == CategoryForex || c == CategoryEquity
}

// Instrument is a tradable symbol. Instruments are defined at startup and
// never mutated afterwards.
type Instrument struct {
	// Symbol unique identifier, e.g. "BTC/USD".
	Symbol string
	// DisplayName human-readable name, e.g. "Bitcoin".
	DisplayName string
	// Category asset class of the instrument.
	Category Category
	// PricePrecision number of decimal places quotes are rounded to.
	PricePrecision int32
	// ListPrice starting price for the synthetic feed.
	ListPrice decimal.Decimal
}
