package export

import (
	"context"

	"scrapops/internal/core"
)

// Ports for outbound reporting adapters.
type (
	// RecordExporter pushes persisted ledger records to the reporting
	// destination.
	RecordExporter interface {
		AppendTransaction(ctx context.Context, t core.CashFlowTransaction) error
		AppendReceipt(ctx context.Context, r core.Receipt) error
	}

	// SummaryExporter publishes a financial snapshot for operators.
	SummaryExporter interface {
		WriteSummary(ctx context.Context, s core.FinancialSummary) error
	}
)
