package core

import "time"

// FinancialSummary is a point-in-time reconciliation snapshot. It is derived
// from the ledger, obligation tracker and inventory store on demand and is
// never a source of truth. Difference is the reconciliation gap surfaced to
// operators; the engine never auto-corrects it.
type FinancialSummary struct {
	GeneratedAt      time.Time
	TotalBankBalance Money
	CashBalance      Money
	TotalPayable     Money
	TotalReceivable  Money
	InventoryValue   Money
	Difference       Money
	LowStockCount    int
}
