// Package services orchestrates the in-memory engine (ledger, obligations,
// inventory, receipts) with SQLite persistence and AMQP sync publishing. The
// engine mutation happens first; persistence failures surface to the caller
// and publish failures are logged, never fatal.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"scrapops/internal/amqp"
	"scrapops/internal/core"
	"scrapops/internal/export"
	"scrapops/internal/inventory"
	"scrapops/internal/ledger"
	"scrapops/internal/obligation"
	"scrapops/internal/receipt"
	"scrapops/internal/storage"
	"scrapops/internal/summary"
)

type OperationsService struct {
	ledger     *ledger.Ledger
	tracker    *obligation.Tracker
	inventory  *inventory.Store
	receipts   *receipt.Generator
	aggregator *summary.Aggregator
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client

	summaryExport export.SummaryExporter

	salePrices map[string]int64
	vatRates   map[string]int64
}

func NewOperationsService(
	l *ledger.Ledger,
	t *obligation.Tracker,
	inv *inventory.Store,
	gen *receipt.Generator,
	agg *summary.Aggregator,
	store *storage.SQLiteRepository,
	amqpClient *amqp.Client,
) *OperationsService {
	return &OperationsService{
		ledger:     l,
		tracker:    t,
		inventory:  inv,
		receipts:   gen,
		aggregator: agg,
		storage:    store,
		amqpClient: amqpClient,
	}
}

// OpenAccount registers a bank or cash account in the ledger.
func (s *OperationsService) OpenAccount(ctx context.Context, a core.BankAccount) (core.BankAccount, error) {
	opened, err := s.ledger.OpenAccount(a)
	if err != nil {
		return core.BankAccount{}, err
	}
	slog.InfoContext(ctx, "Account opened",
		"account_id", opened.ID,
		"kind", opened.Kind,
		"opening_balance_cents", opened.OpeningBalance.Cents)
	return opened, nil
}

// RecordDeposit appends a credit to an account and queues it for export.
func (s *OperationsService) RecordDeposit(ctx context.Context, accountID string, amount core.Money, ref core.Reference) (core.CashFlowTransaction, error) {
	return s.record(ctx, accountID, amount, core.Deposit, ref)
}

// RecordWithdrawal appends a debit to an account and queues it for export.
func (s *OperationsService) RecordWithdrawal(ctx context.Context, accountID string, amount core.Money, ref core.Reference) (core.CashFlowTransaction, error) {
	return s.record(ctx, accountID, amount, core.Withdrawal, ref)
}

func (s *OperationsService) record(ctx context.Context, accountID string, amount core.Money, txType core.TransactionType, ref core.Reference) (core.CashFlowTransaction, error) {
	txn, err := s.ledger.Record(accountID, amount, txType, ref)
	if err != nil {
		return core.CashFlowTransaction{}, err
	}
	if err := s.persistTransaction(ctx, txn); err != nil {
		return core.CashFlowTransaction{}, err
	}
	return txn, nil
}

// RecordTransfer moves amount between two accounts and queues both legs.
func (s *OperationsService) RecordTransfer(ctx context.Context, fromID, toID string, amount core.Money, ref core.Reference) (debit, credit core.CashFlowTransaction, err error) {
	debit, credit, err = s.ledger.Transfer(fromID, toID, amount, ref)
	if err != nil {
		return core.CashFlowTransaction{}, core.CashFlowTransaction{}, err
	}
	if err := s.persistTransaction(ctx, debit); err != nil {
		return core.CashFlowTransaction{}, core.CashFlowTransaction{}, err
	}
	if err := s.persistTransaction(ctx, credit); err != nil {
		return core.CashFlowTransaction{}, core.CashFlowTransaction{}, err
	}
	return debit, credit, nil
}

// AddPayable registers a supplier obligation.
func (s *OperationsService) AddPayable(ctx context.Context, p core.Payable) (core.Payable, error) {
	added, err := s.tracker.AddPayable(p)
	if err != nil {
		return core.Payable{}, err
	}
	slog.InfoContext(ctx, "Payable added",
		"id", added.ID,
		"supplier", added.Supplier,
		"amount_cents", added.Amount.Cents)
	return added, nil
}

// AddReceivable registers a customer obligation.
func (s *OperationsService) AddReceivable(ctx context.Context, r core.Receivable) (core.Receivable, error) {
	added, err := s.tracker.AddReceivable(r)
	if err != nil {
		return core.Receivable{}, err
	}
	slog.InfoContext(ctx, "Receivable added",
		"id", added.ID,
		"customer", added.Customer,
		"amount_cents", added.Amount.Cents)
	return added, nil
}

// RecordPayment applies a payment to an obligation. When accountID is set the
// cash movement is also recorded in the ledger: a withdrawal for payables, a
// deposit for receivables. The account is checked before the obligation is
// touched so a bad account id never leaves a half-applied payment.
func (s *OperationsService) RecordPayment(ctx context.Context, obligationID string, amount core.Money, accountID string) (core.PaymentStatus, error) {
	if accountID != "" {
		if _, err := s.ledger.Account(accountID); err != nil {
			return "", err
		}
	}

	isPayable := false
	if _, err := s.tracker.Payable(obligationID); err == nil {
		isPayable = true
	}

	status, err := s.tracker.RecordPayment(obligationID, amount)
	if err != nil {
		return "", err
	}

	slog.InfoContext(ctx, "Payment recorded",
		"obligation_id", obligationID,
		"amount_cents", amount.Cents,
		"status", status)

	if accountID != "" {
		ref := core.Reference{Description: fmt.Sprintf("payment on obligation %s", obligationID)}
		txType := core.Deposit
		if isPayable {
			txType = core.Withdrawal
		}
		if _, err := s.record(ctx, accountID, amount, txType, ref); err != nil {
			slog.ErrorContext(ctx, "Failed to record payment cash movement",
				"obligation_id", obligationID,
				"account_id", accountID,
				"error", err)
			// Payment already applied; the ledger movement can be re-entered manually.
		}
	}
	return status, nil
}

// UnpaidPayables returns payables not yet fully paid in payout priority order.
func (s *OperationsService) UnpaidPayables() []core.Payable {
	return s.tracker.UnpaidByPriority()
}

// History returns the chronological transactions for one account.
func (s *OperationsService) History(accountID string) ([]core.CashFlowTransaction, error) {
	return s.ledger.History(accountID)
}

// LowStockItems returns items below their reorder threshold.
func (s *OperationsService) LowStockItems() []core.InventoryItem {
	return s.inventory.LowStockItems()
}

// SetPriceTables installs the configured per-product sale prices (cents) and
// VAT rates (basis points) used as defaults for items added without them.
func (s *OperationsService) SetPriceTables(salePrices, vatRates map[string]int64) {
	s.salePrices = salePrices
	s.vatRates = vatRates
}

// AddItem registers an inventory item. A zero sale price or VAT rate is
// filled in from the configured price tables when the product is listed
// there.
func (s *OperationsService) AddItem(ctx context.Context, it core.InventoryItem) (core.InventoryItem, error) {
	if it.SalePrice.Cents == 0 {
		if cents, ok := s.salePrices[it.Name]; ok {
			it.SalePrice = core.Money{Cents: cents}
		}
	}
	if it.VATRateBps == 0 {
		if bps, ok := s.vatRates[it.Name]; ok {
			it.VATRateBps = bps
		}
	}
	added, err := s.inventory.AddItem(it)
	if err != nil {
		return core.InventoryItem{}, err
	}
	slog.InfoContext(ctx, "Inventory item added",
		"item_id", added.ID,
		"name", added.Name,
		"stock", added.CurrentStock)
	return added, nil
}

// CollectionResult bundles the state produced by one collection: the stock
// movement, the accrued supplier payable and the issued receipt.
type CollectionResult struct {
	Transaction core.CollectionTransaction
	Payable     core.Payable
	Receipt     core.Receipt
}

// RecordCollection books inbound stock from a supplier: stock goes up, a
// payable accrues at the configured material rate, and a collection receipt
// is issued and queued for export.
func (s *OperationsService) RecordCollection(ctx context.Context, itemID, supplier string, quantity int64, dueDate time.Time, paymentMethod string) (CollectionResult, error) {
	item, err := s.inventory.Item(itemID)
	if err != nil {
		return CollectionResult{}, err
	}
	rate, err := s.tracker.MaterialRate(item.Name)
	if err != nil {
		return CollectionResult{}, err
	}
	if quantity <= 0 {
		return CollectionResult{}, core.ErrInvalidQuantity
	}
	// The payable is only accrued after the stock movement, so reject
	// anything it would refuse before inventory changes.
	pending := core.Payable{Supplier: supplier, Amount: rate.MulQty(quantity), DueDate: dueDate}
	if err := pending.Validate(); err != nil {
		return CollectionResult{}, err
	}

	txn, err := s.inventory.ApplyCollection(itemID, supplier, quantity, rate)
	if err != nil {
		return CollectionResult{}, err
	}
	payable, err := s.tracker.AccruePayable(supplier, item.Name, quantity, dueDate)
	if err != nil {
		return CollectionResult{}, err
	}

	rec, err := s.receipts.Generate(core.CollectionReceipt, []core.LineItem{{
		Description: item.Name,
		Quantity:    quantity,
		UnitPrice:   rate,
		Amount:      txn.TotalAmount,
		VATRateBps:  item.VATRateBps,
	}}, paymentMethod)
	if err != nil {
		return CollectionResult{}, err
	}
	if err := s.persistReceipt(ctx, rec); err != nil {
		return CollectionResult{}, err
	}

	slog.InfoContext(ctx, "Collection recorded",
		"item_id", itemID,
		"supplier", supplier,
		"quantity", quantity,
		"payable_id", payable.ID,
		"receipt_number", rec.Number)

	return CollectionResult{Transaction: txn, Payable: payable, Receipt: rec}, nil
}

// SaleResult bundles the state produced by one sale: the stock movement and
// the issued receipt.
type SaleResult struct {
	Transaction core.SaleTransaction
	Receipt     core.Receipt
}

// RecordSale books outbound stock to a customer at the item's sale price and
// issues a sale receipt. When accountID is set the proceeds are deposited to
// that account.
func (s *OperationsService) RecordSale(ctx context.Context, itemID, customer string, quantity int64, paymentMethod, accountID string) (SaleResult, error) {
	if accountID != "" {
		if _, err := s.ledger.Account(accountID); err != nil {
			return SaleResult{}, err
		}
	}
	item, err := s.inventory.Item(itemID)
	if err != nil {
		return SaleResult{}, err
	}

	txn, err := s.inventory.ApplySale(itemID, customer, quantity)
	if err != nil {
		return SaleResult{}, err
	}

	rec, err := s.receipts.Generate(core.SaleReceipt, []core.LineItem{{
		Description: item.Name,
		Quantity:    quantity,
		UnitPrice:   txn.UnitPrice,
		Amount:      txn.TotalAmount,
		VATRateBps:  item.VATRateBps,
	}}, paymentMethod)
	if err != nil {
		return SaleResult{}, err
	}
	if err := s.persistReceipt(ctx, rec); err != nil {
		return SaleResult{}, err
	}

	if accountID != "" {
		ref := core.Reference{
			ReceivedFrom: customer,
			DocumentNo:   storage.ReceiptID(rec.Type, rec.Number),
			Description:  fmt.Sprintf("sale of %s", item.Name),
		}
		if _, err := s.record(ctx, accountID, rec.Total, core.Deposit, ref); err != nil {
			slog.ErrorContext(ctx, "Failed to record sale proceeds",
				"item_id", itemID,
				"account_id", accountID,
				"error", err)
		}
	}

	slog.InfoContext(ctx, "Sale recorded",
		"item_id", itemID,
		"customer", customer,
		"quantity", quantity,
		"receipt_number", rec.Number)

	return SaleResult{Transaction: txn, Receipt: rec}, nil
}

// SetSummaryExporter enables pushing each generated summary to the reporting
// backend. Export failures are logged, never fatal.
func (s *OperationsService) SetSummaryExporter(e export.SummaryExporter) {
	s.summaryExport = e
}

// Snapshot computes a fresh financial summary from live engine state.
func (s *OperationsService) Snapshot(ctx context.Context) core.FinancialSummary {
	sum := s.aggregator.Snapshot()
	slog.InfoContext(ctx, "Summary generated",
		"difference_cents", sum.Difference.Cents,
		"low_stock_count", sum.LowStockCount)

	if s.summaryExport != nil {
		if err := s.summaryExport.WriteSummary(ctx, sum); err != nil {
			slog.ErrorContext(ctx, "Failed to export summary", "error", err)
		}
	}
	return sum
}

// persistTransaction saves a ledger transaction and publishes its sync message.
func (s *OperationsService) persistTransaction(ctx context.Context, txn core.CashFlowTransaction) error {
	if s.storage == nil {
		slog.WarnContext(ctx, "Storage not available, skipping transaction persistence", "id", txn.ID)
		return nil
	}
	if err := s.storage.SaveTransaction(ctx, txn); err != nil {
		return fmt.Errorf("save transaction: %w", err)
	}
	s.publishSyncMessage(ctx, storage.KindTransaction, txn.ID)
	return nil
}

// persistReceipt saves a receipt and publishes its sync message.
func (s *OperationsService) persistReceipt(ctx context.Context, rec core.Receipt) error {
	if s.storage == nil {
		slog.WarnContext(ctx, "Storage not available, skipping receipt persistence",
			"type", rec.Type, "number", rec.Number)
		return nil
	}
	if err := s.storage.SaveReceipt(ctx, rec); err != nil {
		return fmt.Errorf("save receipt: %w", err)
	}
	s.publishSyncMessage(ctx, storage.KindReceipt, storage.ReceiptID(rec.Type, rec.Number))
	return nil
}

func (s *OperationsService) publishSyncMessage(ctx context.Context, kind, id string) {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message",
			"kind", kind, "id", id)
		return
	}
	if err := s.amqpClient.PublishRecordSync(ctx, kind, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"kind", kind, "id", id, "error", err)
		// Don't fail the request - the record is saved locally and the
		// periodic pending scan will pick it up.
	}
}

// Close closes storage and AMQP connections.
func (s *OperationsService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close operations service: %v", errs)
	}
	return nil
}
