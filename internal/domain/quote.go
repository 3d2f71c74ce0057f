package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceQuote is the latest price for a single instrument. The feed keeps
// exactly one quote per instrument; no history is retained.
type PriceQuote struct {
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	AsOf          time.Time       `json:"as_of"`
	Seq           uint64          `json:"seq"`
}
