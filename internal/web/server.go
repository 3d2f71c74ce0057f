// Package web exposes the engine's boundary contracts over HTTP: JSON
// command endpoints, the account query, and SSE streams for market
// snapshots and the transaction audit log.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/brokersim/brokersim/internal/domain"
	"github.com/brokersim/brokersim/internal/services/exec"
	"github.com/brokersim/brokersim/internal/services/publisher"
	"github.com/brokersim/brokersim/internal/storage/txlog"
)

const txPollInterval = 2 * time.Second

type transactionReader interface {
	TransactionsAfter(index uint64) ([]txlog.Record, error)
}

type snapshotSource interface {
	Subscribe() (<-chan publisher.Snapshot, func())
}

// Server exposes HTTP endpoints serving the demo UI, the command API and
// the SSE streams.
type Server struct {
	Addr      string
	Engine    *exec.Engine
	Snapshots snapshotSource
	TxLog     transactionReader
	Logger    *zap.Logger
}

// NewServer creates a new web server instance. txLog may be nil.
func NewServer(addr string, engine *exec.Engine, snapshots snapshotSource, txLog transactionReader, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{Addr: addr, Engine: engine, Snapshots: snapshots, TxLog: txLog, Logger: logger}
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is
// cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/stream", s.handleMarketStream)
	mux.HandleFunc("/transactions/stream", s.handleTransactionStream)
	mux.HandleFunc("/accounts", s.handleCreateAccount)
	mux.HandleFunc("/accounts/summary", s.handleAccountSummary)
	mux.HandleFunc("/deposit", s.handleDeposit)
	mux.HandleFunc("/withdraw", s.handleWithdraw)
	mux.HandleFunc("/positions/open", s.handleOpenPosition)
	mux.HandleFunc("/positions/close", s.handleClosePosition)

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.Logger.Info("web server listening", zap.String("addr", s.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

// handleMarketStream pushes one SSE event per publish cycle: the full quote
// snapshot plus every open position revalued against it.
func (s *Server) handleMarketStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	snapshots, cancel := s.Snapshots.Subscribe()
	defer cancel()

	// send a comment heartbeat every 30s so proxies keep connection
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case snapshot, ok := <-snapshots:
			if !ok {
				return
			}
			payload, err := json.Marshal(snapshot)
			if err != nil {
				s.Logger.Error("marshal market snapshot", zap.Error(err))
				continue
			}
			fmt.Fprintf(w, "event: snapshot\n")
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

// handleTransactionStream replays the transaction journal and then follows
// it, one SSE event per committed transaction.
func (s *Server) handleTransactionStream(w http.ResponseWriter, r *http.Request) {
	if s.TxLog == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "transaction log not available")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	pollTicker := time.NewTicker(txPollInterval)
	defer pollTicker.Stop()

	lastIndex := uint64(0)
	sendTransactions := func() error {
		records, err := s.TxLog.TransactionsAfter(lastIndex)
		if err != nil {
			return err
		}
		for _, record := range records {
			payload, err := json.Marshal(record.Tx)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "event: transaction\n")
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
			lastIndex = record.Index
		}
		return nil
	}

	if err := sendTransactions(); err != nil {
		http.Error(w, "failed to load transactions", http.StatusInternalServerError)
		s.Logger.Error("transaction stream initial load", zap.Error(err))
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case <-pollTicker.C:
			if err := sendTransactions(); err != nil {
				s.Logger.Error("transaction stream poll", zap.Error(err))
			}
		}
	}
}

type createAccountRequest struct {
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	acc, err := s.Engine.CreateAccount(req.OpeningBalance)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, acc)
}

func (s *Server) handleAccountSummary(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("id")
	summary, err := s.Engine.AccountSummary(accountID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

type fundsRequest struct {
	AccountID string          `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	s.handleFunds(w, r, s.Engine.Deposit)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	s.handleFunds(w, r, s.Engine.Withdraw)
}

func (s *Server) handleFunds(w http.ResponseWriter, r *http.Request, op func(string, decimal.Decimal) (domain.Transaction, error)) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req fundsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	tx, err := op(req.AccountID, req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tx)
}

type openPositionRequest struct {
	AccountID string          `json:"account_id"`
	Symbol    string          `json:"symbol"`
	Side      domain.Side     `json:"side"`
	Quantity  decimal.Decimal `json:"quantity"`
	Leverage  int             `json:"leverage"`
}

func (s *Server) handleOpenPosition(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req openPositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	report := s.Engine.OpenPosition(req.AccountID, req.Symbol, req.Side, req.Quantity, req.Leverage)
	s.writeReport(w, report)
}

type closePositionRequest struct {
	PositionID string `json:"position_id"`
}

func (s *Server) handleClosePosition(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req closePositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	report := s.Engine.ClosePosition(req.PositionID)
	s.writeReport(w, report)
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeReport(w http.ResponseWriter, report exec.ExecutionReport) {
	if report.Status == exec.StatusRejected {
		s.writeError(w, report.Err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, domain.ErrAccountNotFound), errors.Is(err, domain.ErrPositionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrPositionAlreadyClosed):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientFunds):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvariantViolation):
		status = http.StatusInternalServerError
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("encode response", zap.Error(err))
	}
}
