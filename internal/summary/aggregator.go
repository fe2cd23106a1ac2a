// Package summary produces point-in-time financial snapshots from the
// ledger, obligation tracker and inventory store. Snapshots are recomputed
// on every call; caching would hide reconciliation errors.
package summary

import (
	"time"

	"scrapops/internal/core"
)

// Ports over the stateful components. The aggregator reads each source's
// own snapshot; consistency across sources is eventual (a snapshot taken
// during concurrent writes may straddle them), which is acceptable for a
// discrepancy indicator.
type (
	BalanceSource interface {
		Accounts() []core.BankAccount
	}

	ObligationSource interface {
		OutstandingPayable() core.Money
		OutstandingReceivable() core.Money
	}

	InventorySource interface {
		Valuation() core.Money
		LowStockItems() []core.InventoryItem
	}
)

// Classifier selects the accounts that count as cash on hand.
type Classifier func(core.BankAccount) bool

// Formula computes the reconciliation gap from an otherwise complete
// summary. The gap is surfaced to operators, never auto-corrected.
type Formula func(core.FinancialSummary) core.Money

// CashAccounts is the default classifier.
func CashAccounts(a core.BankAccount) bool {
	return a.Kind == core.AccountCash
}

// DefaultFormula reports cash on hand minus net obligations:
// cashBalance - totalPayable + totalReceivable.
func DefaultFormula(s core.FinancialSummary) core.Money {
	return s.CashBalance.Sub(s.TotalPayable).Add(s.TotalReceivable)
}

type Aggregator struct {
	balances    BalanceSource
	obligations ObligationSource
	inventory   InventorySource
	classify    Classifier
	formula     Formula
	now         func() time.Time
}

// NewAggregator wires the three sources. Nil classifier and formula fall
// back to CashAccounts and DefaultFormula.
func NewAggregator(b BalanceSource, o ObligationSource, i InventorySource, classify Classifier, formula Formula) *Aggregator {
	if classify == nil {
		classify = CashAccounts
	}
	if formula == nil {
		formula = DefaultFormula
	}
	return &Aggregator{
		balances:    b,
		obligations: o,
		inventory:   i,
		classify:    classify,
		formula:     formula,
		now:         time.Now,
	}
}

// Snapshot reads the current state of all sources and derives the summary.
func (a *Aggregator) Snapshot() core.FinancialSummary {
	s := core.FinancialSummary{GeneratedAt: a.now()}

	for _, acc := range a.balances.Accounts() {
		s.TotalBankBalance = s.TotalBankBalance.Add(acc.Balance)
		if a.classify(acc) {
			s.CashBalance = s.CashBalance.Add(acc.Balance)
		}
	}
	s.TotalPayable = a.obligations.OutstandingPayable()
	s.TotalReceivable = a.obligations.OutstandingReceivable()
	s.InventoryValue = a.inventory.Valuation()
	s.LowStockCount = len(a.inventory.LowStockItems())
	s.Difference = a.formula(s)
	return s
}
