package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"scrapops/internal/core"
)

type accountRequest struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Kind                string `json:"kind"`
	OpeningBalanceCents int64  `json:"opening_balance_cents"`
}

type accountResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Kind         string    `json:"kind"`
	BalanceCents int64     `json:"balance_cents"`
	LastUpdated  time.Time `json:"last_updated"`
}

func toAccountResponse(a core.BankAccount) accountResponse {
	return accountResponse{
		ID:           a.ID,
		Name:         a.Name,
		Kind:         string(a.Kind),
		BalanceCents: a.Balance.Cents,
		LastUpdated:  a.LastUpdated,
	}
}

type referencePayload struct {
	PaidTo       string `json:"paid_to,omitempty"`
	ReceivedFrom string `json:"received_from,omitempty"`
	DocumentNo   string `json:"document_no,omitempty"`
	Description  string `json:"description,omitempty"`
}

func (r referencePayload) toCore() core.Reference {
	return core.Reference{
		PaidTo:       r.PaidTo,
		ReceivedFrom: r.ReceivedFrom,
		DocumentNo:   r.DocumentNo,
		Description:  r.Description,
	}
}

type transactionRequest struct {
	AccountID   string           `json:"account_id"`
	Type        string           `json:"type"`
	Amount      string           `json:"amount,omitempty"`
	AmountCents int64            `json:"amount_cents,omitempty"`
	Reference   referencePayload `json:"reference"`
}

// resolveAmount accepts either form a request carries the amount in: a
// decimal string ("12.50", comma separator allowed) or integer cents. The
// decimal form wins when both are set.
func resolveAmount(decimal string, cents int64) (core.Money, error) {
	if decimal != "" {
		c, err := core.ParseDecimalToCents(decimal)
		if err != nil {
			return core.Money{}, err
		}
		return core.Money{Cents: c}, nil
	}
	return core.Money{Cents: cents}, nil
}

type transactionResponse struct {
	ID           string    `json:"id"`
	AccountID    string    `json:"account_id"`
	Date         time.Time `json:"date"`
	Type         string    `json:"type"`
	DebitCents   int64     `json:"debit_cents"`
	CreditCents  int64     `json:"credit_cents"`
	BalanceCents int64     `json:"balance_cents"`
	TransferRef  string    `json:"transfer_ref,omitempty"`
}

func toTransactionResponse(t core.CashFlowTransaction) transactionResponse {
	return transactionResponse{
		ID:           t.ID,
		AccountID:    t.AccountID,
		Date:         t.Date,
		Type:         string(t.Type),
		DebitCents:   t.Debit.Cents,
		CreditCents:  t.Credit.Cents,
		BalanceCents: t.Balance.Cents,
		TransferRef:  t.TransferRef,
	}
}

func (s *Server) handleOpenAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	opened, err := s.ops.OpenAccount(r.Context(), core.BankAccount{
		ID:             req.ID,
		Name:           req.Name,
		Kind:           core.AccountKind(req.Kind),
		OpeningBalance: core.Money{Cents: req.OpeningBalanceCents},
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toAccountResponse(opened))
}

func (s *Server) handleAccountHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.ops.History(r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]transactionResponse, 0, len(history))
	for _, t := range history {
		out = append(out, toTransactionResponse(t))
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleRecordTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	amount, err := resolveAmount(req.Amount, req.AmountCents)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var txn core.CashFlowTransaction
	switch core.TransactionType(req.Type) {
	case core.Deposit:
		txn, err = s.ops.RecordDeposit(r.Context(), req.AccountID, amount, req.Reference.toCore())
	case core.Withdrawal:
		txn, err = s.ops.RecordWithdrawal(r.Context(), req.AccountID, amount, req.Reference.toCore())
	default:
		writeJSON(w, r, http.StatusUnprocessableEntity, errorResponse{Error: "type must be deposit or withdrawal"})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toTransactionResponse(txn))
}

type transferRequest struct {
	FromAccountID string           `json:"from_account_id"`
	ToAccountID   string           `json:"to_account_id"`
	Amount        string           `json:"amount,omitempty"`
	AmountCents   int64            `json:"amount_cents,omitempty"`
	Reference     referencePayload `json:"reference"`
}

func (s *Server) handleRecordTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	amount, err := resolveAmount(req.Amount, req.AmountCents)
	if err != nil {
		writeError(w, r, err)
		return
	}
	debit, credit, err := s.ops.RecordTransfer(r.Context(),
		req.FromAccountID, req.ToAccountID,
		amount, req.Reference.toCore())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, struct {
		Debit  transactionResponse `json:"debit"`
		Credit transactionResponse `json:"credit"`
	}{toTransactionResponse(debit), toTransactionResponse(credit)})
}

type payableRequest struct {
	Supplier       string    `json:"supplier"`
	Amount         string    `json:"amount,omitempty"`
	AmountCents    int64     `json:"amount_cents,omitempty"`
	DueDate        time.Time `json:"due_date"`
	FirstPriority  int       `json:"first_priority"`
	SecondPriority int       `json:"second_priority"`
	ThirdPriority  int       `json:"third_priority"`
}

type payableResponse struct {
	ID           string    `json:"id"`
	Supplier     string    `json:"supplier"`
	AmountCents  int64     `json:"amount_cents"`
	PaidCents    int64     `json:"paid_cents"`
	PendingCents int64     `json:"pending_cents"`
	Status       string    `json:"status"`
	DueDate      time.Time `json:"due_date"`
}

func toPayableResponse(p core.Payable) payableResponse {
	return payableResponse{
		ID:           p.ID,
		Supplier:     p.Supplier,
		AmountCents:  p.Amount.Cents,
		PaidCents:    p.Paid.Cents,
		PendingCents: p.Pending().Cents,
		Status:       string(p.Status()),
		DueDate:      p.DueDate,
	}
}

func (s *Server) handleAddPayable(w http.ResponseWriter, r *http.Request) {
	var req payableRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	amount, err := resolveAmount(req.Amount, req.AmountCents)
	if err != nil {
		writeError(w, r, err)
		return
	}
	added, err := s.ops.AddPayable(r.Context(), core.Payable{
		Supplier:       req.Supplier,
		Amount:         amount,
		DueDate:        req.DueDate,
		FirstPriority:  req.FirstPriority,
		SecondPriority: req.SecondPriority,
		ThirdPriority:  req.ThirdPriority,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toPayableResponse(added))
}

func (s *Server) handleUnpaidPayables(w http.ResponseWriter, r *http.Request) {
	unpaid := s.ops.UnpaidPayables()
	out := make([]payableResponse, 0, len(unpaid))
	for _, p := range unpaid {
		out = append(out, toPayableResponse(p))
	}
	writeJSON(w, r, http.StatusOK, out)
}

type receivableRequest struct {
	Customer    string    `json:"customer"`
	Amount      string    `json:"amount,omitempty"`
	AmountCents int64     `json:"amount_cents,omitempty"`
	DueDate     time.Time `json:"due_date"`
}

func (s *Server) handleAddReceivable(w http.ResponseWriter, r *http.Request) {
	var req receivableRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	amount, err := resolveAmount(req.Amount, req.AmountCents)
	if err != nil {
		writeError(w, r, err)
		return
	}
	added, err := s.ops.AddReceivable(r.Context(), core.Receivable{
		Customer: req.Customer,
		Amount:   amount,
		DueDate:  req.DueDate,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, struct {
		ID               string `json:"id"`
		Customer         string `json:"customer"`
		AmountCents      int64  `json:"amount_cents"`
		OutstandingCents int64  `json:"outstanding_cents"`
		Status           string `json:"status"`
	}{added.ID, added.Customer, added.Amount.Cents, added.Outstanding().Cents, string(added.Status())})
}

type paymentRequest struct {
	ObligationID string `json:"obligation_id"`
	Amount       string `json:"amount,omitempty"`
	AmountCents  int64  `json:"amount_cents,omitempty"`
	AccountID    string `json:"account_id,omitempty"`
}

func (s *Server) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	amount, err := resolveAmount(req.Amount, req.AmountCents)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status, err := s.ops.RecordPayment(r.Context(), req.ObligationID,
		amount, req.AccountID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, struct {
		ObligationID string `json:"obligation_id"`
		Status       string `json:"status"`
	}{req.ObligationID, string(status)})
}

type itemRequest struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Unit           string `json:"unit"`
	MinStockLevel  int64  `json:"min_stock_level"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	SalePriceCents int64  `json:"sale_price_cents"`
	VATRateBps     int64  `json:"vat_rate_bps"`
}

type itemResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Unit           string `json:"unit"`
	CurrentStock   int64  `json:"current_stock"`
	MinStockLevel  int64  `json:"min_stock_level"`
	TotalCollected int64  `json:"total_collected"`
	TotalSold      int64  `json:"total_sold"`
	LowStock       bool   `json:"low_stock"`
}

func toItemResponse(i core.InventoryItem) itemResponse {
	return itemResponse{
		ID:             i.ID,
		Name:           i.Name,
		Unit:           i.Unit,
		CurrentStock:   i.CurrentStock,
		MinStockLevel:  i.MinStockLevel,
		TotalCollected: i.TotalCollected,
		TotalSold:      i.TotalSold,
		LowStock:       i.LowStock(),
	}
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	added, err := s.ops.AddItem(r.Context(), core.InventoryItem{
		ID:            req.ID,
		Name:          req.Name,
		Unit:          req.Unit,
		MinStockLevel: req.MinStockLevel,
		UnitPrice:     core.Money{Cents: req.UnitPriceCents},
		SalePrice:     core.Money{Cents: req.SalePriceCents},
		VATRateBps:    req.VATRateBps,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toItemResponse(added))
}

func (s *Server) handleLowStock(w http.ResponseWriter, r *http.Request) {
	items := s.ops.LowStockItems()
	out := make([]itemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, toItemResponse(it))
	}
	writeJSON(w, r, http.StatusOK, out)
}

type receiptResponse struct {
	Number        int64     `json:"number"`
	Type          string    `json:"type"`
	Date          time.Time `json:"date"`
	PaymentMethod string    `json:"payment_method"`
	SubtotalCents int64     `json:"subtotal_cents"`
	TotalVATCents int64     `json:"total_vat_cents"`
	TotalCents    int64     `json:"total_cents"`
}

func toReceiptResponse(rec core.Receipt) receiptResponse {
	return receiptResponse{
		Number:        rec.Number,
		Type:          string(rec.Type),
		Date:          rec.Date,
		PaymentMethod: rec.PaymentMethod,
		SubtotalCents: rec.Subtotal.Cents,
		TotalVATCents: rec.TotalVAT.Cents,
		TotalCents:    rec.Total.Cents,
	}
}

type collectionRequest struct {
	ItemID        string    `json:"item_id"`
	Supplier      string    `json:"supplier"`
	Quantity      int64     `json:"quantity"`
	DueDate       time.Time `json:"due_date"`
	PaymentMethod string    `json:"payment_method"`
}

func (s *Server) handleRecordCollection(w http.ResponseWriter, r *http.Request) {
	var req collectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.ops.RecordCollection(r.Context(),
		req.ItemID, req.Supplier, req.Quantity, req.DueDate, req.PaymentMethod)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, struct {
		Payable payableResponse `json:"payable"`
		Receipt receiptResponse `json:"receipt"`
	}{toPayableResponse(res.Payable), toReceiptResponse(res.Receipt)})
}

type saleRequest struct {
	ItemID        string `json:"item_id"`
	Customer      string `json:"customer"`
	Quantity      int64  `json:"quantity"`
	PaymentMethod string `json:"payment_method"`
	AccountID     string `json:"account_id,omitempty"`
}

func (s *Server) handleRecordSale(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.ops.RecordSale(r.Context(),
		req.ItemID, req.Customer, req.Quantity, req.PaymentMethod, req.AccountID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, struct {
		Receipt receiptResponse `json:"receipt"`
	}{toReceiptResponse(res.Receipt)})
}

type summaryResponse struct {
	GeneratedAt           time.Time `json:"generated_at"`
	TotalBankBalanceCents int64     `json:"total_bank_balance_cents"`
	CashBalanceCents      int64     `json:"cash_balance_cents"`
	TotalPayableCents     int64     `json:"total_payable_cents"`
	TotalReceivableCents  int64     `json:"total_receivable_cents"`
	InventoryValueCents   int64     `json:"inventory_value_cents"`
	DifferenceCents       int64     `json:"difference_cents"`
	LowStockCount         int       `json:"low_stock_count"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum := s.ops.Snapshot(r.Context())
	// Summaries are always recomputed; make sure intermediaries don't cache.
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, r, http.StatusOK, summaryResponse{
		GeneratedAt:           sum.GeneratedAt,
		TotalBankBalanceCents: sum.TotalBankBalance.Cents,
		CashBalanceCents:      sum.CashBalance.Cents,
		TotalPayableCents:     sum.TotalPayable.Cents,
		TotalReceivableCents:  sum.TotalReceivable.Cents,
		InventoryValueCents:   sum.InventoryValue.Cents,
		DifferenceCents:       sum.Difference.Cents,
		LowStockCount:         sum.LowStockCount,
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		slog.WarnContext(r.Context(), "Invalid request body",
			"method", r.Method, "url", r.URL.Path, "error", err)
		writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.ErrorContext(r.Context(), "Response encoding failed",
			"url", r.URL.Path, "error", err)
	}
}

// writeError maps engine errors to HTTP status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrUnknownAccount),
		errors.Is(err, core.ErrUnknownItem),
		errors.Is(err, core.ErrUnknownObligation),
		errors.Is(err, core.ErrUnknownMaterial):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrDuplicateAccount),
		errors.Is(err, core.ErrDuplicateItem):
		status = http.StatusConflict
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidTxType),
		errors.Is(err, core.ErrInvalidQuantity),
		errors.Is(err, core.ErrOverPayment),
		errors.Is(err, core.ErrInsufficientStock),
		errors.Is(err, core.ErrEmptyReceipt),
		errors.Is(err, core.ErrEmptyName):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method, "url", r.URL.Path, "error", err)
	}
	writeJSON(w, r, status, errorResponse{Error: err.Error()})
}
