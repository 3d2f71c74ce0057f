// Package ledger owns per-account balances and their append-only
// transaction logs.
package ledger

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/brokersim/brokersim/internal/domain"
)

// Journal receives every committed transaction, e.g. for WAL-backed audit
// streaming. Journal failures are logged and never fail the command: the
// in-memory ledger is the source of truth.
type Journal interface {
	Append(tx domain.Transaction) error
}

type accountState struct {
	mu      sync.Mutex
	balance decimal.Decimal
	txs     []domain.Transaction
}

// Ledger keeps one balance and one transaction log per account. Operations
// on the same account are serialized by a per-account mutex; operations on
// different accounts proceed in parallel.
type Ledger struct {
	mu       sync.RWMutex
	accounts map[string]*accountState
	journal  Journal
	logger   *zap.Logger
}

// New creates an empty ledger. journal may be nil.
func New(journal Journal, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		accounts: make(map[string]*accountState),
		journal:  journal,
		logger:   logger,
	}
}

// Register creates an empty balance for the account.
func (l *Ledger) Register(accountID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.accounts[accountID]; ok {
		return errors.Errorf("account already registered: %s", accountID)
	}
	l.accounts[accountID] = &accountState{balance: decimal.Zero}
	return nil
}

// Exists reports whether the account is registered.
func (l *Ledger) Exists(accountID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.accounts[accountID]
	return ok
}

// Deposit increases the balance by amount and appends a deposit transaction.
func (l *Ledger) Deposit(accountID string, amount decimal.Decimal) (domain.Transaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return domain.Transaction{}, domain.ErrInvalidAmount
	}

	acc, err := l.account(accountID)
	if err != nil {
		return domain.Transaction{}, err
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()
	acc.balance = acc.balance.Add(amount)
	return l.appendLocked(acc, accountID, domain.TransactionDeposit, amount, ""), nil
}

// Withdraw decreases the balance by amount. Withdrawals never drive the
// balance negative.
func (l *Ledger) Withdraw(accountID string, amount decimal.Decimal) (domain.Transaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return domain.Transaction{}, domain.ErrInvalidAmount
	}

	acc, err := l.account(accountID)
	if err != nil {
		return domain.Transaction{}, err
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()
	if amount.GreaterThan(acc.balance) {
		return domain.Transaction{}, domain.ErrInsufficientFunds
	}
	acc.balance = acc.balance.Sub(amount)
	return l.appendLocked(acc, accountID, domain.TransactionWithdrawal, amount.Neg(), ""), nil
}

// SettleTrade books realized P&L for a closed position. A losing settlement
// is clamped so the balance never goes below zero; the transaction records
// the applied amount so replaying the log still reconstructs the balance.
func (l *Ledger) SettleTrade(accountID, positionID string, pnl decimal.Decimal) (domain.Transaction, error) {
	acc, err := l.account(accountID)
	if err != nil {
		return domain.Transaction{}, err
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()

	applied := pnl
	if next := acc.balance.Add(pnl); next.IsNegative() {
		applied = acc.balance.Neg()
		l.logger.Warn("settlement clamped to balance floor",
			zap.String("account", accountID),
			zap.String("position", positionID),
			zap.String("pnl", pnl.String()),
			zap.String("shortfall", next.String()))
	}
	acc.balance = acc.balance.Add(applied)
	return l.appendLocked(acc, accountID, domain.TransactionTradeSettlement, applied, positionID), nil
}

// Balance returns the current balance of the account.
func (l *Ledger) Balance(accountID string) (decimal.Decimal, error) {
	acc, err := l.account(accountID)
	if err != nil {
		return decimal.Decimal{}, err
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()
	return acc.balance, nil
}

// Transactions returns up to limit entries, most recent first. limit <= 0
// returns the full log.
func (l *Ledger) Transactions(accountID string, limit int) ([]domain.Transaction, error) {
	acc, err := l.account(accountID)
	if err != nil {
		return nil, err
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()

	n := len(acc.txs)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]domain.Transaction, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, acc.txs[i])
	}
	return out, nil
}

func (l *Ledger) account(accountID string) (*accountState, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	acc, ok := l.accounts[accountID]
	if !ok {
		return nil, errors.Wrapf(domain.ErrAccountNotFound, "account %s", accountID)
	}
	return acc, nil
}

func (l *Ledger) appendLocked(acc *accountState, accountID string, kind domain.TransactionKind, amount decimal.Decimal, positionID string) domain.Transaction {
	tx := domain.Transaction{
		ID:                uuid.NewString(),
		AccountID:         accountID,
		Kind:              kind,
		Amount:            amount,
		RelatedPositionID: positionID,
		Timestamp:         time.Now(),
	}
	acc.txs = append(acc.txs, tx)

	if l.journal != nil {
		if err := l.journal.Append(tx); err != nil {
			l.logger.Error("failed to journal transaction",
				zap.String("tx", tx.ID), zap.Error(err))
		}
	}
	return tx
}
