// Package txlog persists committed ledger transactions in a write-ahead log
// so the audit stream survives restarts and can be replayed to web clients.
// The in-memory ledger stays the source of truth; the log is an observer.
package txlog

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/brokersim/brokersim/internal/domain"
)

const (
	defaultLogDir      = "./wal/transactions"
	logSegmentLimit    = 1000
	logMaxSegments     = 100
	transactionKeyPref = "tx_"
)

// Record bundles a transaction with the log index it was written at.
type Record struct {
	Index uint64             `json:"index"`
	Tx    domain.Transaction `json:"tx"`
}

// Store is a WAL-backed append-only journal of transactions.
type Store struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// New initializes the journal under the provided directory.
func New(dir string) (*Store, error) {
	if dir == "" {
		dir = defaultLogDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "txlog_",
		SegmentThreshold: logSegmentLimit,
		MaxSegments:      logMaxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init transaction WAL")
	}

	return &Store{wal: wal}, nil
}

// Append writes the transaction to the log. The WAL key carries the account
// id so a reader can filter the stream per account without decoding.
func (s *Store) Append(tx domain.Transaction) error {
	if s == nil || s.wal == nil {
		return errors.New("transaction log is not initialized")
	}
	if tx.AccountID == "" {
		return errors.New("transaction account id is required")
	}

	payload, err := json.Marshal(tx)
	if err != nil {
		return errors.Wrapf(err, "marshal transaction %s", tx.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Write(s.wal.CurrentIndex()+1, transactionKeyPref+tx.AccountID, payload)
}

// TransactionsAfter returns all transactions written after the provided
// log index.
func (s *Store) TransactionsAfter(index uint64) ([]Record, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("transaction log is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	records := make([]Record, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, ok := s.wal.Get(idx)
		if !ok || !strings.HasPrefix(key, transactionKeyPref) {
			continue
		}
		var tx domain.Transaction
		if err := json.Unmarshal(payload, &tx); err != nil {
			return nil, errors.Wrap(err, "decode transaction")
		}
		records = append(records, Record{Index: idx, Tx: tx})
	}

	return records, nil
}

// CurrentIndex returns the latest log index stored.
func (s *Store) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *Store) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("transaction log is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
