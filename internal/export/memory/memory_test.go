package memory

import (
	"context"
	"testing"
	"time"

	"scrapops/internal/core"
)

func TestStoreAppendAndRead(t *testing.T) {
	s := New()
	ctx := context.Background()

	txn := core.CashFlowTransaction{
		ID:        "txn-1",
		AccountID: "cash",
		Date:      time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Type:      core.Deposit,
		Credit:    core.Money{Cents: 10_000},
		Balance:   core.Money{Cents: 10_000},
	}
	if err := s.AppendTransaction(ctx, txn); err != nil {
		t.Fatalf("AppendTransaction: %v", err)
	}

	rcpt := core.Receipt{
		Number: 1,
		Type:   core.SaleReceipt,
		Total:  core.Money{Cents: 34_500},
	}
	if err := s.AppendReceipt(ctx, rcpt); err != nil {
		t.Fatalf("AppendReceipt: %v", err)
	}

	sum := core.FinancialSummary{CashBalance: core.Money{Cents: 10_000}}
	if err := s.WriteSummary(ctx, sum); err != nil {
		t.Fatalf("WriteSummary: %v", err)
	}

	if got := s.Transactions(); len(got) != 1 || got[0].ID != "txn-1" {
		t.Fatalf("unexpected transactions: %+v", got)
	}
	if got := s.Receipts(); len(got) != 1 || got[0].Number != 1 {
		t.Fatalf("unexpected receipts: %+v", got)
	}
	if got := s.Summaries(); len(got) != 1 || got[0].CashBalance.Cents != 10_000 {
		t.Fatalf("unexpected summaries: %+v", got)
	}
}

func TestStoreReturnsCopies(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.AppendTransaction(ctx, core.CashFlowTransaction{ID: "a"}); err != nil {
		t.Fatalf("AppendTransaction: %v", err)
	}

	got := s.Transactions()
	got[0].ID = "mutated"

	if again := s.Transactions(); again[0].ID != "a" {
		t.Fatalf("internal state mutated through returned slice: %+v", again)
	}
}
