package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"scrapops/internal/core"
	"scrapops/internal/export/memory"
	"scrapops/internal/inventory"
	"scrapops/internal/ledger"
	"scrapops/internal/obligation"
	"scrapops/internal/receipt"
	"scrapops/internal/storage"
	"scrapops/internal/summary"
)

func newTestService(t *testing.T) (*OperationsService, *storage.SQLiteRepository) {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ops_test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	l := ledger.New()
	tracker := obligation.NewTracker(obligation.RateTable{"copper": 150})
	inv := inventory.NewStore()
	gen := receipt.NewGenerator()
	agg := summary.NewAggregator(l, tracker, inv, nil, nil)

	return NewOperationsService(l, tracker, inv, gen, agg, repo, nil), repo
}

func openCashAccount(t *testing.T, s *OperationsService, id string, openingCents int64) {
	t.Helper()
	_, err := s.OpenAccount(context.Background(), core.BankAccount{
		ID:             id,
		Name:           id,
		Kind:           core.AccountCash,
		OpeningBalance: core.Money{Cents: openingCents},
	})
	if err != nil {
		t.Fatalf("OpenAccount %s: %v", id, err)
	}
}

func addCopperItem(t *testing.T, s *OperationsService) {
	t.Helper()
	_, err := s.AddItem(context.Background(), core.InventoryItem{
		ID:            "copper",
		Name:          "copper",
		Unit:          "kg",
		MinStockLevel: 5,
		UnitPrice:     core.Money{Cents: 150},
		SalePrice:     core.Money{Cents: 400},
		VATRateBps:    1500,
	})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
}

func TestRecordDepositPersists(t *testing.T) {
	s, repo := newTestService(t)
	ctx := context.Background()
	openCashAccount(t, s, "cash", 100_000)

	txn, err := s.RecordDeposit(ctx, "cash", core.Money{Cents: 50_000}, core.Reference{Description: "opening float"})
	if err != nil {
		t.Fatalf("RecordDeposit: %v", err)
	}
	if txn.Balance.Cents != 150_000 {
		t.Fatalf("expected balance 150000, got %d", txn.Balance.Cents)
	}

	saved, err := repo.GetTransaction(ctx, txn.ID)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if saved.Credit.Cents != 50_000 || saved.AccountID != "cash" {
		t.Fatalf("unexpected persisted transaction: %+v", saved)
	}

	pending, err := repo.GetPendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSync: %v", err)
	}
	if len(pending) != 1 || pending[0].Kind != storage.KindTransaction {
		t.Fatalf("expected one pending transaction, got %+v", pending)
	}
}

func TestRecordTransferPersistsBothLegs(t *testing.T) {
	s, repo := newTestService(t)
	ctx := context.Background()
	openCashAccount(t, s, "cash", 100_000)
	openCashAccount(t, s, "bank-main", 0)

	debit, credit, err := s.RecordTransfer(ctx, "cash", "bank-main", core.Money{Cents: 30_000}, core.Reference{})
	if err != nil {
		t.Fatalf("RecordTransfer: %v", err)
	}
	if debit.TransferRef == "" || debit.TransferRef != credit.TransferRef {
		t.Fatalf("transfer legs not linked: %q vs %q", debit.TransferRef, credit.TransferRef)
	}

	pending, err := repo.GetPendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSync: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected both legs pending, got %+v", pending)
	}
}

func TestRecordCollection(t *testing.T) {
	s, repo := newTestService(t)
	ctx := context.Background()
	addCopperItem(t, s)

	due := time.Now().AddDate(0, 0, 14)
	res, err := s.RecordCollection(ctx, "copper", "acme-scrap", 40, due, "credit")
	if err != nil {
		t.Fatalf("RecordCollection: %v", err)
	}

	// 40 kg at the 150-cent material rate.
	if res.Payable.Amount.Cents != 6_000 {
		t.Fatalf("expected payable 6000, got %d", res.Payable.Amount.Cents)
	}
	if res.Payable.Status() != core.StatusUnpaid {
		t.Fatalf("expected unpaid payable, got %s", res.Payable.Status())
	}
	if res.Receipt.Type != core.CollectionReceipt || res.Receipt.Number != 1 {
		t.Fatalf("unexpected receipt: %+v", res.Receipt)
	}
	if res.Receipt.Subtotal.Cents != 6_000 || res.Receipt.TotalVAT.Cents != 900 {
		t.Fatalf("unexpected receipt totals: %+v", res.Receipt)
	}

	item, err := s.inventory.Item("copper")
	if err != nil {
		t.Fatalf("Item: %v", err)
	}
	if item.CurrentStock != 40 || item.TotalCollected != 40 {
		t.Fatalf("unexpected stock after collection: %+v", item)
	}

	saved, err := repo.GetReceipt(ctx, core.CollectionReceipt, 1)
	if err != nil {
		t.Fatalf("GetReceipt: %v", err)
	}
	if saved.Total.Cents != 6_900 {
		t.Fatalf("expected persisted total 6900, got %d", saved.Total.Cents)
	}
}

func TestRecordCollectionUnknownMaterialLeavesStockUntouched(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	_, err := s.AddItem(ctx, core.InventoryItem{
		ID:        "lead",
		Name:      "lead",
		Unit:      "kg",
		UnitPrice: core.Money{Cents: 90},
		SalePrice: core.Money{Cents: 200},
	})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	_, err = s.RecordCollection(ctx, "lead", "acme-scrap", 10, time.Now(), "cash")
	if !errors.Is(err, core.ErrUnknownMaterial) {
		t.Fatalf("expected ErrUnknownMaterial, got %v", err)
	}

	item, err := s.inventory.Item("lead")
	if err != nil {
		t.Fatalf("Item: %v", err)
	}
	if item.CurrentStock != 0 || item.TotalCollected != 0 {
		t.Fatalf("stock mutated on failed collection: %+v", item)
	}
}

func TestAddItemDefaultsFromPriceTables(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	s.SetPriceTables(
		map[string]int64{"copper": 400},
		map[string]int64{"copper": 1500},
	)

	added, err := s.AddItem(ctx, core.InventoryItem{
		ID:        "copper",
		Name:      "copper",
		Unit:      "kg",
		UnitPrice: core.Money{Cents: 150},
	})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if added.SalePrice.Cents != 400 {
		t.Fatalf("expected sale price defaulted to 400, got %d", added.SalePrice.Cents)
	}
	if added.VATRateBps != 1500 {
		t.Fatalf("expected VAT rate defaulted to 1500 bps, got %d", added.VATRateBps)
	}

	// An explicit sale price wins over the table.
	explicit, err := s.AddItem(ctx, core.InventoryItem{
		ID:        "copper-premium",
		Name:      "copper",
		Unit:      "kg",
		UnitPrice: core.Money{Cents: 150},
		SalePrice: core.Money{Cents: 520},
	})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if explicit.SalePrice.Cents != 520 {
		t.Fatalf("expected explicit sale price kept, got %d", explicit.SalePrice.Cents)
	}
	if explicit.VATRateBps != 1500 {
		t.Fatalf("expected VAT rate defaulted to 1500 bps, got %d", explicit.VATRateBps)
	}
}

func TestRecordCollectionEmptySupplierLeavesStockUntouched(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	addCopperItem(t, s)

	_, err := s.RecordCollection(ctx, "copper", "  ", 10, time.Now(), "cash")
	if !errors.Is(err, core.ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}

	item, err := s.inventory.Item("copper")
	if err != nil {
		t.Fatalf("Item: %v", err)
	}
	if item.CurrentStock != 0 || item.TotalCollected != 0 {
		t.Fatalf("stock mutated on failed collection: %+v", item)
	}
	if got := s.tracker.OutstandingPayable(); got.Cents != 0 {
		t.Fatalf("expected no payable accrued, got %d", got.Cents)
	}
}

func TestRecordSaleDepositsProceeds(t *testing.T) {
	s, repo := newTestService(t)
	ctx := context.Background()
	openCashAccount(t, s, "cash", 0)
	addCopperItem(t, s)

	if _, err := s.RecordCollection(ctx, "copper", "acme-scrap", 40, time.Now(), "credit"); err != nil {
		t.Fatalf("RecordCollection: %v", err)
	}

	res, err := s.RecordSale(ctx, "copper", "metalworks", 10, "cash", "cash")
	if err != nil {
		t.Fatalf("RecordSale: %v", err)
	}

	// 10 kg at the 400-cent sale price, plus 15% VAT.
	if res.Receipt.Subtotal.Cents != 4_000 || res.Receipt.Total.Cents != 4_600 {
		t.Fatalf("unexpected sale receipt totals: %+v", res.Receipt)
	}
	if res.Transaction.Quantity != 10 {
		t.Fatalf("unexpected sale transaction: %+v", res.Transaction)
	}

	acc, err := s.ledger.Account("cash")
	if err != nil {
		t.Fatalf("Account: %v", err)
	}
	if acc.Balance.Cents != 4_600 {
		t.Fatalf("expected proceeds deposited, balance %d", acc.Balance.Cents)
	}

	saved, err := repo.GetReceipt(ctx, core.SaleReceipt, 1)
	if err != nil {
		t.Fatalf("GetReceipt: %v", err)
	}
	if len(saved.Lines) != 1 || saved.Lines[0].Quantity != 10 {
		t.Fatalf("unexpected persisted sale receipt: %+v", saved)
	}
}

func TestRecordPaymentWithCashMovement(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	openCashAccount(t, s, "cash", 100_000)

	p, err := s.AddPayable(ctx, core.Payable{
		Supplier: "acme-scrap",
		Amount:   core.Money{Cents: 6_000},
		DueDate:  time.Now().AddDate(0, 0, 7),
	})
	if err != nil {
		t.Fatalf("AddPayable: %v", err)
	}

	status, err := s.RecordPayment(ctx, p.ID, core.Money{Cents: 2_500}, "cash")
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if status != core.StatusPartial {
		t.Fatalf("expected partial, got %s", status)
	}

	acc, err := s.ledger.Account("cash")
	if err != nil {
		t.Fatalf("Account: %v", err)
	}
	if acc.Balance.Cents != 97_500 {
		t.Fatalf("expected balance 97500 after payout, got %d", acc.Balance.Cents)
	}
}

func TestRecordPaymentUnknownAccountRejectedBeforeApply(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	p, err := s.AddPayable(ctx, core.Payable{
		Supplier: "acme-scrap",
		Amount:   core.Money{Cents: 6_000},
		DueDate:  time.Now(),
	})
	if err != nil {
		t.Fatalf("AddPayable: %v", err)
	}

	_, err = s.RecordPayment(ctx, p.ID, core.Money{Cents: 1_000}, "nope")
	if !errors.Is(err, core.ErrUnknownAccount) {
		t.Fatalf("expected ErrUnknownAccount, got %v", err)
	}

	got, err := s.tracker.Payable(p.ID)
	if err != nil {
		t.Fatalf("Payable: %v", err)
	}
	if got.Paid.Cents != 0 {
		t.Fatalf("payment applied despite bad account: %+v", got)
	}
}

func TestSnapshotReflectsOperations(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	exporter := memory.New()
	s.SetSummaryExporter(exporter)
	openCashAccount(t, s, "cash", 100_000)
	addCopperItem(t, s)

	if _, err := s.RecordCollection(ctx, "copper", "acme-scrap", 40, time.Now(), "credit"); err != nil {
		t.Fatalf("RecordCollection: %v", err)
	}

	sum := s.Snapshot(ctx)
	if sum.CashBalance.Cents != 100_000 {
		t.Fatalf("expected cash 100000, got %d", sum.CashBalance.Cents)
	}
	if sum.TotalPayable.Cents != 6_000 {
		t.Fatalf("expected payable 6000, got %d", sum.TotalPayable.Cents)
	}
	// cashBalance - totalPayable + totalReceivable
	if sum.Difference.Cents != 94_000 {
		t.Fatalf("expected difference 94000, got %d", sum.Difference.Cents)
	}
	if sum.InventoryValue.Cents != 6_000 {
		t.Fatalf("expected inventory value 6000, got %d", sum.InventoryValue.Cents)
	}

	exported := exporter.Summaries()
	if len(exported) != 1 || exported[0].Difference.Cents != sum.Difference.Cents {
		t.Fatalf("expected summary exported, got %+v", exported)
	}
}
