// Package exec validates and executes order and balance commands, mutating
// the position book and the ledger as one unit per account.
package exec

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/brokersim/brokersim/internal/domain"
	"github.com/brokersim/brokersim/internal/services/book"
	"github.com/brokersim/brokersim/internal/services/catalog"
	"github.com/brokersim/brokersim/internal/services/ledger"
)

// OrderStatus tracks a request through its state machine:
// Submitted -> Validated -> Executed, or Submitted -> Rejected.
type OrderStatus string

const (
	// StatusSubmitted the request has been received.
	StatusSubmitted OrderStatus = "submitted"
	// StatusValidated the request passed validation.
	StatusValidated OrderStatus = "validated"
	// StatusExecuted position and ledger mutations are committed.
	StatusExecuted OrderStatus = "executed"
	// StatusRejected the request was refused; no state changed.
	StatusRejected OrderStatus = "rejected"
)

// ExecutionReport is the structured outcome of an order command. Rejections
// carry the error; they are reported, never silently dropped.
type ExecutionReport struct {
	Status      OrderStatus         `json:"status"`
	Position    *domain.Position    `json:"position,omitempty"`
	Transaction *domain.Transaction `json:"transaction,omitempty"`
	Err         error               `json:"-"`
}

// AccountSummary is the answer to the account query boundary contract.
type AccountSummary struct {
	AccountID          string               `json:"account_id"`
	Balance            decimal.Decimal      `json:"balance"`
	OpenPositions      []domain.Position    `json:"open_positions"`
	TotalUnrealizedPnL decimal.Decimal      `json:"total_unrealized_pnl"`
	RecentTransactions []domain.Transaction `json:"recent_transactions"`
}

// Engine serializes all mutating commands per account: deposits, withdrawals
// and position opens/closes on the same account never interleave, while
// different accounts proceed fully in parallel.
type Engine struct {
	ledger  *ledger.Ledger
	book    *book.Book
	catalog *catalog.Catalog
	logger  *zap.Logger

	mu       sync.Mutex
	locks    map[string]*sync.Mutex
	accounts map[string]domain.Account

	recentTxLimit int
}

// New creates an execution engine over the given ledger and position book.
func New(l *ledger.Ledger, b *book.Book, c *catalog.Catalog, recentTxLimit int, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recentTxLimit <= 0 {
		recentTxLimit = 10
	}
	return &Engine{
		ledger:        l,
		book:          b,
		catalog:       c,
		logger:        logger,
		locks:         make(map[string]*sync.Mutex),
		accounts:      make(map[string]domain.Account),
		recentTxLimit: recentTxLimit,
	}
}

// CreateAccount registers a new account. A positive opening balance is
// booked as the account's first deposit.
func (e *Engine) CreateAccount(openingBalance decimal.Decimal) (domain.Account, error) {
	if openingBalance.IsNegative() {
		return domain.Account{}, domain.ErrInvalidAmount
	}

	acc := domain.Account{ID: uuid.NewString(), CreatedAt: time.Now()}
	if err := e.ledger.Register(acc.ID); err != nil {
		return domain.Account{}, errors.Wrap(err, "register account")
	}

	e.mu.Lock()
	e.accounts[acc.ID] = acc
	e.locks[acc.ID] = &sync.Mutex{}
	e.mu.Unlock()

	if openingBalance.IsPositive() {
		if _, err := e.ledger.Deposit(acc.ID, openingBalance); err != nil {
			return domain.Account{}, errors.Wrap(err, "book opening balance")
		}
	}

	e.logger.Info("account created",
		zap.String("account", acc.ID),
		zap.String("opening_balance", openingBalance.String()))
	return acc, nil
}

// Deposit adds funds to the account.
func (e *Engine) Deposit(accountID string, amount decimal.Decimal) (domain.Transaction, error) {
	lock, err := e.accountLock(accountID)
	if err != nil {
		return domain.Transaction{}, err
	}
	lock.Lock()
	defer lock.Unlock()

	return e.ledger.Deposit(accountID, amount)
}

// Withdraw removes funds from the account.
func (e *Engine) Withdraw(accountID string, amount decimal.Decimal) (domain.Transaction, error) {
	lock, err := e.accountLock(accountID)
	if err != nil {
		return domain.Transaction{}, err
	}
	lock.Lock()
	defer lock.Unlock()

	return e.ledger.Withdraw(accountID, amount)
}

// OpenPosition validates the request and opens a position at the current
// market price. No margin is debited up front; P&L settles at close.
func (e *Engine) OpenPosition(accountID, symbol string, side domain.Side, quantity decimal.Decimal, leverage int) ExecutionReport {
	lock, err := e.accountLock(accountID)
	if err != nil {
		return e.reject("open", err, zap.String("account", accountID))
	}
	lock.Lock()
	defer lock.Unlock()

	if err := e.validateOpen(symbol, side, quantity, leverage); err != nil {
		return e.reject("open", err,
			zap.String("account", accountID), zap.String("symbol", symbol))
	}

	pos, err := e.book.Open(accountID, symbol, side, quantity, leverage)
	if err != nil {
		return e.reject("open", err,
			zap.String("account", accountID), zap.String("symbol", symbol))
	}

	e.logger.Info("position opened",
		zap.String("account", accountID),
		zap.String("position", pos.ID),
		zap.String("symbol", symbol),
		zap.String("side", side.String()),
		zap.String("quantity", quantity.String()),
		zap.Int("leverage", leverage),
		zap.String("entry_price", pos.EntryPrice.String()))
	return ExecutionReport{Status: StatusExecuted, Position: &pos}
}

// ClosePosition closes the position at the current market price and settles
// the realized P&L against the ledger. The two mutations happen under the
// account lock, so no other command on the account can observe the position
// closed but unsettled. Settlement cannot fail once the account is known to
// exist: losing settlements are clamped, never refused.
func (e *Engine) ClosePosition(positionID string) ExecutionReport {
	pos, err := e.book.Get(positionID)
	if err != nil {
		return e.reject("close", err, zap.String("position", positionID))
	}

	lock, err := e.accountLock(pos.AccountID)
	if err != nil {
		return e.reject("close", err, zap.String("position", positionID))
	}
	lock.Lock()
	defer lock.Unlock()

	closed, err := e.book.Close(positionID)
	if err != nil {
		return e.reject("close", err, zap.String("position", positionID))
	}

	tx, err := e.ledger.SettleTrade(closed.AccountID, closed.ID, closed.RealizedPnL)
	if err != nil {
		// unreachable while accounts are never deleted; treat as a defect
		e.logger.Error("settlement failed after close",
			zap.String("position", positionID), zap.Error(err))
		return ExecutionReport{Status: StatusRejected, Err: err}
	}

	e.logger.Info("position closed",
		zap.String("account", closed.AccountID),
		zap.String("position", closed.ID),
		zap.String("realized_pnl", closed.RealizedPnL.String()))
	return ExecutionReport{Status: StatusExecuted, Position: &closed, Transaction: &tx}
}

// AccountSummary answers the account query: balance, open positions, total
// unrealized P&L and the most recent transactions.
func (e *Engine) AccountSummary(accountID string) (AccountSummary, error) {
	if _, err := e.accountLock(accountID); err != nil {
		return AccountSummary{}, err
	}

	balance, err := e.ledger.Balance(accountID)
	if err != nil {
		return AccountSummary{}, err
	}
	txs, err := e.ledger.Transactions(accountID, e.recentTxLimit)
	if err != nil {
		return AccountSummary{}, err
	}

	return AccountSummary{
		AccountID:          accountID,
		Balance:            balance,
		OpenPositions:      e.book.OpenPositions(accountID),
		TotalUnrealizedPnL: e.book.TotalUnrealizedPnL(accountID),
		RecentTransactions: txs,
	}, nil
}

// Accounts returns all registered accounts.
func (e *Engine) Accounts() []domain.Account {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.Account, 0, len(e.accounts))
	for _, acc := range e.accounts {
		out = append(out, acc)
	}
	return out
}

func (e *Engine) validateOpen(symbol string, side domain.Side, quantity decimal.Decimal, leverage int) error {
	if _, ok := e.catalog.Get(symbol); !ok {
		return errors.Wrapf(domain.ErrUnknownInstrument, "symbol %s", symbol)
	}
	if !side.IsValid() {
		return errors.Errorf("unknown side: %s", side)
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return domain.ErrInvalidQuantity
	}
	if leverage < 1 {
		return domain.ErrInvalidLeverage
	}
	return nil
}

func (e *Engine) accountLock(accountID string) (*sync.Mutex, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[accountID]
	if !ok {
		return nil, errors.Wrapf(domain.ErrAccountNotFound, "account %s", accountID)
	}
	return lock, nil
}

func (e *Engine) reject(op string, err error, fields ...zap.Field) ExecutionReport {
	e.logger.Warn("order rejected", append(fields, zap.String("op", op), zap.Error(err))...)
	return ExecutionReport{Status: StatusRejected, Err: err}
}
