package txlog

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brokersim/brokersim/internal/domain"
)

func newTx(accountID string, amount int64) domain.Transaction {
	return domain.Transaction{
		ID:        "tx-" + accountID,
		AccountID: accountID,
		Kind:      domain.TransactionDeposit,
		Amount:    decimal.NewFromInt(amount),
		Timestamp: time.Now().UTC(),
	}
}

func TestStore_AppendAndReadBack(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Append(newTx("acc-1", 100)))
	require.NoError(t, store.Append(newTx("acc-2", 200)))

	records, err := store.TransactionsAfter(0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "acc-1", records[0].Tx.AccountID)
	assert.True(t, records[0].Tx.Amount.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, "acc-2", records[1].Tx.AccountID)
	assert.Equal(t, uint64(2), store.CurrentIndex())
}

func TestStore_TransactionsAfterIndex(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Append(newTx("acc-1", 1)))
	require.NoError(t, store.Append(newTx("acc-1", 2)))
	require.NoError(t, store.Append(newTx("acc-1", 3)))

	records, err := store.TransactionsAfter(2)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Tx.Amount.Equal(decimal.NewFromInt(3)))

	records, err = store.TransactionsAfter(3)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestStore_AppendRequiresAccount(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	err = store.Append(domain.Transaction{ID: "tx"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "account id is required")
}

func TestStore_NilSafety(t *testing.T) {
	var store *Store
	require.Error(t, store.Append(newTx("acc", 1)))
	_, err := store.TransactionsAfter(0)
	require.Error(t, err)
	assert.Equal(t, uint64(0), store.CurrentIndex())
}
