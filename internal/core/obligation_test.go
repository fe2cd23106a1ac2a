package core

import "testing"

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		amount int64
		paid   int64
		want   PaymentStatus
	}{
		{1000, 0, StatusUnpaid},
		{1000, 400, StatusPartial},
		{1000, 1000, StatusPaid},
		{1000, 999, StatusPartial},
		{1, 1, StatusPaid},
	}
	for i, tc := range cases {
		got := DeriveStatus(Money{Cents: tc.amount}, Money{Cents: tc.paid})
		if got != tc.want {
			t.Fatalf("case %d expected %s, got %s", i, tc.want, got)
		}
	}
}

func TestPayablePending(t *testing.T) {
	p := Payable{Supplier: "Mama Grace", Amount: Money{Cents: 100000}, Paid: Money{Cents: 40000}}
	if got := p.Pending().Cents; got != 60000 {
		t.Fatalf("expected pending 60000, got %d", got)
	}
	if got := p.Status(); got != StatusPartial {
		t.Fatalf("expected partial, got %s", got)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestPayableValidate(t *testing.T) {
	bads := []Payable{
		{Supplier: "", Amount: Money{Cents: 100}},
		{Supplier: "x", Amount: Money{Cents: 0}},
		{Supplier: "x", Amount: Money{Cents: 100}, Paid: Money{Cents: 200}},
		{Supplier: "x", Amount: Money{Cents: 100}, Paid: Money{Cents: -1}},
	}
	for i, p := range bads {
		if err := p.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestReceivableStatus(t *testing.T) {
	r := Receivable{Customer: "Steelworks Ltd", Amount: Money{Cents: 5000}}
	if got := r.Status(); got != StatusUnpaid {
		t.Fatalf("expected unpaid, got %s", got)
	}
	r.Paid = Money{Cents: 5000}
	if got := r.Status(); got != StatusPaid {
		t.Fatalf("expected paid, got %s", got)
	}
	if got := r.Outstanding().Cents; got != 0 {
		t.Fatalf("expected outstanding 0, got %d", got)
	}
}

func TestInventoryItemInvariants(t *testing.T) {
	item := InventoryItem{
		ID: "scrap-steel", Name: "Scrap steel", Unit: "kg",
		CurrentStock: 10, MinStockLevel: 5,
		TotalCollected: 30, TotalSold: 20,
		UnitPrice: Money{Cents: 150}, SalePrice: Money{Cents: 250},
	}
	if err := item.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if item.LowStock() {
		t.Fatalf("stock 10 with min 5 should not be low")
	}
	if got := item.StockValue().Cents; got != 1500 {
		t.Fatalf("expected stock value 1500, got %d", got)
	}

	// Counter mismatch breaks the conservation invariant.
	item.TotalSold = 25
	if err := item.Validate(); err == nil {
		t.Fatalf("expected error for broken stock invariant")
	}
}
