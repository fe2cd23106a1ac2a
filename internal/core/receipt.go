package core

import "time"

type ReceiptType string

const (
	CollectionReceipt ReceiptType = "collection"
	SaleReceipt       ReceiptType = "sale"
)

// LineItem is the input for one receipt line. Amount is VAT-exclusive.
type LineItem struct {
	Description string
	Quantity    int64
	UnitPrice   Money
	Amount      Money
	VATRateBps  int64
}

// ReceiptLine is a priced line on an issued receipt.
type ReceiptLine struct {
	Description string
	Quantity    int64
	UnitPrice   Money
	Amount      Money
	VATRateBps  int64
	VATAmount   Money
}

// Receipt is an immutable snapshot issued for a collection or sale.
// Superseding a receipt issues a new one under the next number; numbers are
// monotonic per receipt type.
type Receipt struct {
	Number        int64
	Type          ReceiptType
	Date          time.Time
	PaymentMethod string
	Lines         []ReceiptLine
	Subtotal      Money
	TotalVAT      Money
	Total         Money
}
