package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind classifies a balance-affecting event.
type TransactionKind string

const (
	// TransactionDeposit funds added to the account.
	TransactionDeposit TransactionKind = "deposit"
	// TransactionWithdrawal funds removed from the account.
	TransactionWithdrawal TransactionKind = "withdrawal"
	// TransactionTradeSettlement realized P&L booked when a position closes.
	TransactionTradeSettlement TransactionKind = "trade_settlement"
)

// String returns the string representation.
func (k TransactionKind) String() string {
	return string(k)
}

// Transaction is one immutable entry in an account's append-only ledger.
// The insertion order is the audit order; replaying all amounts from zero
// reconstructs the current balance exactly.
type Transaction struct {
	ID                string          `json:"id"`
	AccountID         string          `json:"account_id"`
	Kind              TransactionKind `json:"kind"`
	Amount            decimal.Decimal `json:"amount"`
	RelatedPositionID string          `json:"related_position_id,omitempty"`
	Timestamp         time.Time       `json:"ts"`
}
