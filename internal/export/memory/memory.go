// Package memory is the in-process reporting exporter: records land in
// slices instead of a spreadsheet. It backs local development and tests.
package memory

import (
	"context"
	"sync"

	"scrapops/internal/core"
	"scrapops/internal/export"
)

type Store struct {
	mu           sync.Mutex
	transactions []core.CashFlowTransaction
	receipts     []core.Receipt
	summaries    []core.FinancialSummary
}

var (
	_ export.RecordExporter  = (*Store)(nil)
	_ export.SummaryExporter = (*Store)(nil)
)

func New() *Store {
	return &Store{}
}

func (s *Store) AppendTransaction(_ context.Context, t core.CashFlowTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = append(s.transactions, t)
	return nil
}

func (s *Store) AppendReceipt(_ context.Context, r core.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receipts = append(s.receipts, r)
	return nil
}

func (s *Store) WriteSummary(_ context.Context, sum core.FinancialSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries = append(s.summaries, sum)
	return nil
}

// Transactions returns a copy of the exported transactions.
func (s *Store) Transactions() []core.CashFlowTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.CashFlowTransaction, len(s.transactions))
	copy(out, s.transactions)
	return out
}

// Receipts returns a copy of the exported receipts.
func (s *Store) Receipts() []core.Receipt {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Receipt, len(s.receipts))
	copy(out, s.receipts)
	return out
}

// Summaries returns a copy of the exported summaries.
func (s *Store) Summaries() []core.FinancialSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.FinancialSummary, len(s.summaries))
	copy(out, s.summaries)
	return out
}
