package core

import (
	"strings"
	"time"
)

// InventoryItem tracks one material or product. TotalCollected and TotalSold
// are monotonic counters; CurrentStock is their difference and never goes
// negative.
type InventoryItem struct {
	ID             string
	Name           string
	Unit           string
	CurrentStock   int64
	MinStockLevel  int64
	TotalCollected int64
	TotalSold      int64
	UnitPrice      Money // cost basis, paid to collectors
	SalePrice      Money
	VATRateBps     int64 // basis points, per-item VAT treatment
	LastUpdated    time.Time
}

func (i InventoryItem) Validate() error {
	if strings.TrimSpace(i.ID) == "" || strings.TrimSpace(i.Name) == "" {
		return ErrEmptyName
	}
	if i.CurrentStock < 0 || i.MinStockLevel < 0 || i.VATRateBps < 0 {
		return ErrInvalidQuantity
	}
	if i.CurrentStock != i.TotalCollected-i.TotalSold {
		return ErrInvalidQuantity
	}
	return nil
}

// LowStock reports whether the item is below its reorder threshold.
func (i InventoryItem) LowStock() bool {
	return i.CurrentStock < i.MinStockLevel
}

// StockValue is the cost-basis value of the stock on hand.
func (i InventoryItem) StockValue() Money {
	return i.UnitPrice.MulQty(i.CurrentStock)
}

// CollectionTransaction records inbound stock bought from a supplier.
type CollectionTransaction struct {
	ID          string
	ItemID      string
	Supplier    string
	Quantity    int64
	UnitPrice   Money
	TotalAmount Money
	Date        time.Time
}

// SaleTransaction records outbound stock sold to a customer at the item's
// sale price.
type SaleTransaction struct {
	ID          string
	ItemID      string
	Customer    string
	Quantity    int64
	UnitPrice   Money
	TotalAmount Money
	Date        time.Time
}
