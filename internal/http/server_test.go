package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"scrapops/internal/inventory"
	"scrapops/internal/ledger"
	"scrapops/internal/obligation"
	"scrapops/internal/receipt"
	"scrapops/internal/services"
	"scrapops/internal/summary"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	l := ledger.New()
	tracker := obligation.NewTracker(obligation.RateTable{"copper": 150})
	inv := inventory.NewStore()
	gen := receipt.NewGenerator()
	agg := summary.NewAggregator(l, tracker, inv, nil, nil)
	ops := services.NewOperationsService(l, tracker, inv, gen, agg, nil, nil)

	srv := NewServer(":0", ops)
	t.Cleanup(func() { srv.rateLimiter.stop() })
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		srv.Handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestOpenAccountAndDeposit(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/accounts", map[string]any{
		"id": "cash", "name": "Till", "kind": "cash", "opening_balance_cents": 100_000,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("open account status=%d body=%s", rr.Code, rr.Body.String())
	}

	// Duplicate id conflicts
	rr = doJSON(t, srv, http.MethodPost, "/accounts", map[string]any{
		"id": "cash", "name": "Till", "kind": "cash",
	})
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate account, got %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodPost, "/transactions", map[string]any{
		"account_id": "cash", "type": "deposit", "amount_cents": 50_000,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("deposit status=%d body=%s", rr.Code, rr.Body.String())
	}
	var txn transactionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &txn); err != nil {
		t.Fatalf("decode deposit response: %v", err)
	}
	if txn.BalanceCents != 150_000 || txn.CreditCents != 50_000 {
		t.Fatalf("unexpected deposit response: %+v", txn)
	}

	rr = doJSON(t, srv, http.MethodPost, "/transactions", map[string]any{
		"account_id": "nope", "type": "deposit", "amount_cents": 1,
	})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown account, got %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodPost, "/transactions", map[string]any{
		"account_id": "cash", "type": "transfer", "amount_cents": 1,
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for transfer via /transactions, got %d", rr.Code)
	}
}

func TestDecimalAmountAccepted(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/accounts", map[string]any{
		"id": "cash", "name": "Till", "kind": "cash",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("open account status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodPost, "/transactions", map[string]any{
		"account_id": "cash", "type": "deposit", "amount": "125,50",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("decimal deposit status=%d body=%s", rr.Code, rr.Body.String())
	}
	var txn struct {
		CreditCents  int64 `json:"credit_cents"`
		BalanceCents int64 `json:"balance_cents"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &txn); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if txn.CreditCents != 12_550 || txn.BalanceCents != 12_550 {
		t.Fatalf("expected 12550 cents credited, got %+v", txn)
	}

	rr = doJSON(t, srv, http.MethodPost, "/transactions", map[string]any{
		"account_id": "cash", "type": "deposit", "amount": "-3.00",
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for signed decimal amount, got %d", rr.Code)
	}
}

func TestTransferAndHistory(t *testing.T) {
	srv := newTestServer(t)

	for _, acc := range []map[string]any{
		{"id": "cash", "name": "Till", "kind": "cash", "opening_balance_cents": 100_000},
		{"id": "bank-main", "name": "Main", "kind": "bank"},
	} {
		if rr := doJSON(t, srv, http.MethodPost, "/accounts", acc); rr.Code != http.StatusCreated {
			t.Fatalf("open account status=%d", rr.Code)
		}
	}

	rr := doJSON(t, srv, http.MethodPost, "/transfers", map[string]any{
		"from_account_id": "cash", "to_account_id": "bank-main", "amount_cents": 40_000,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("transfer status=%d body=%s", rr.Code, rr.Body.String())
	}
	var legs struct {
		Debit  transactionResponse `json:"debit"`
		Credit transactionResponse `json:"credit"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &legs); err != nil {
		t.Fatalf("decode transfer response: %v", err)
	}
	if legs.Debit.TransferRef == "" || legs.Debit.TransferRef != legs.Credit.TransferRef {
		t.Fatalf("transfer legs not linked: %+v", legs)
	}

	rr = doJSON(t, srv, http.MethodGet, "/accounts/bank-main/history", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("history status=%d", rr.Code)
	}
	var history []transactionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history) != 1 || history[0].BalanceCents != 40_000 {
		t.Fatalf("unexpected history: %+v", history)
	}
}

func TestCollectionSaleAndSummary(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/accounts", map[string]any{
		"id": "cash", "name": "Till", "kind": "cash", "opening_balance_cents": 100_000,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("open account status=%d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodPost, "/items", map[string]any{
		"id": "copper", "name": "copper", "unit": "kg",
		"min_stock_level": 5, "unit_price_cents": 150, "sale_price_cents": 400,
		"vat_rate_bps": 1500,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("add item status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodPost, "/collections", map[string]any{
		"item_id": "copper", "supplier": "acme-scrap", "quantity": 40,
		"payment_method": "credit",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("collection status=%d body=%s", rr.Code, rr.Body.String())
	}
	var col struct {
		Payable payableResponse `json:"payable"`
		Receipt receiptResponse `json:"receipt"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &col); err != nil {
		t.Fatalf("decode collection response: %v", err)
	}
	if col.Payable.AmountCents != 6_000 || col.Payable.Status != "unpaid" {
		t.Fatalf("unexpected payable: %+v", col.Payable)
	}
	if col.Receipt.TotalCents != 6_900 {
		t.Fatalf("unexpected collection receipt: %+v", col.Receipt)
	}

	// Selling more than collected fails without touching stock
	rr = doJSON(t, srv, http.MethodPost, "/sales", map[string]any{
		"item_id": "copper", "customer": "metalworks", "quantity": 41,
		"payment_method": "cash",
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for oversell, got %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodPost, "/sales", map[string]any{
		"item_id": "copper", "customer": "metalworks", "quantity": 10,
		"payment_method": "cash", "account_id": "cash",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("sale status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodGet, "/summary", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("summary status=%d", rr.Code)
	}
	if cc := rr.Header().Get("Cache-Control"); cc != "no-store" {
		t.Fatalf("expected no-store summary, got %q", cc)
	}
	var sum summaryResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	// 100000 opening + 4600 sale proceeds - 6000 payable
	if sum.CashBalanceCents != 104_600 {
		t.Fatalf("expected cash 104600, got %d", sum.CashBalanceCents)
	}
	if sum.TotalPayableCents != 6_000 {
		t.Fatalf("expected payable 6000, got %d", sum.TotalPayableCents)
	}
	if sum.DifferenceCents != 98_600 {
		t.Fatalf("expected difference 98600, got %d", sum.DifferenceCents)
	}
}

func TestUnpaidPayablesOrdering(t *testing.T) {
	srv := newTestServer(t)

	for _, p := range []map[string]any{
		{"supplier": "late", "amount_cents": 1_000, "first_priority": 2},
		{"supplier": "urgent", "amount_cents": 1_000, "first_priority": 1},
	} {
		if rr := doJSON(t, srv, http.MethodPost, "/payables", p); rr.Code != http.StatusCreated {
			t.Fatalf("add payable status=%d", rr.Code)
		}
	}

	rr := doJSON(t, srv, http.MethodGet, "/payables/unpaid", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("unpaid status=%d", rr.Code)
	}
	var unpaid []payableResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &unpaid); err != nil {
		t.Fatalf("decode unpaid: %v", err)
	}
	if len(unpaid) != 2 || unpaid[0].Supplier != "urgent" {
		t.Fatalf("unexpected payout order: %+v", unpaid)
	}
}

func TestInvalidBodyRejected(t *testing.T) {
	srv := newTestServer(t)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/accounts", bytes.NewBufferString("{not json"))
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", rr.Code)
	}
}
