// Package inventory maintains stock levels per item and the immutable
// collection and sale transactions that move them. Stock is conserved:
// currentStock always equals totalCollected minus totalSold and a sale can
// never drive it negative.
package inventory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"scrapops/internal/core"
)

type item struct {
	mu   sync.Mutex
	info core.InventoryItem
}

// Store owns InventoryItem state and its stock movements. Each item carries
// its own lock so collection and sale updates are atomic per item.
type Store struct {
	mu    sync.RWMutex
	items map[string]*item
	now   func() time.Time
}

func NewStore() *Store {
	return &Store{
		items: make(map[string]*item),
		now:   time.Now,
	}
}

// AddItem registers a new inventory item.
func (s *Store) AddItem(it core.InventoryItem) (core.InventoryItem, error) {
	if err := it.Validate(); err != nil {
		return core.InventoryItem{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[it.ID]; ok {
		return core.InventoryItem{}, core.ErrDuplicateItem
	}
	it.LastUpdated = s.now()
	s.items[it.ID] = &item{info: it}
	return it, nil
}

func (s *Store) lookup(itemID string) (*item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[itemID]
	if !ok {
		return nil, core.ErrUnknownItem
	}
	return it, nil
}

// ApplyCollection records inbound stock bought from a supplier at the given
// unit price, incrementing totalCollected and currentStock together.
func (s *Store) ApplyCollection(itemID, supplier string, quantity int64, unitPrice core.Money) (core.CollectionTransaction, error) {
	if quantity <= 0 {
		return core.CollectionTransaction{}, core.ErrInvalidQuantity
	}
	if err := unitPrice.Validate(); err != nil {
		return core.CollectionTransaction{}, err
	}
	it, err := s.lookup(itemID)
	if err != nil {
		return core.CollectionTransaction{}, err
	}

	it.mu.Lock()
	defer it.mu.Unlock()

	txn := core.CollectionTransaction{
		ID:          uuid.NewString(),
		ItemID:      itemID,
		Supplier:    supplier,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		TotalAmount: unitPrice.MulQty(quantity),
		Date:        s.now(),
	}
	it.info.TotalCollected += quantity
	it.info.CurrentStock += quantity
	it.info.LastUpdated = txn.Date
	return txn, nil
}

// ApplySale records outbound stock at the item's sale price. A quantity
// beyond the current stock fails with ErrInsufficientStock and leaves the
// item untouched.
func (s *Store) ApplySale(itemID, customer string, quantity int64) (core.SaleTransaction, error) {
	if quantity <= 0 {
		return core.SaleTransaction{}, core.ErrInvalidQuantity
	}
	it, err := s.lookup(itemID)
	if err != nil {
		return core.SaleTransaction{}, err
	}

	it.mu.Lock()
	defer it.mu.Unlock()

	if quantity > it.info.CurrentStock {
		return core.SaleTransaction{}, core.ErrInsufficientStock
	}
	txn := core.SaleTransaction{
		ID:          uuid.NewString(),
		ItemID:      itemID,
		Customer:    customer,
		Quantity:    quantity,
		UnitPrice:   it.info.SalePrice,
		TotalAmount: it.info.SalePrice.MulQty(quantity),
		Date:        s.now(),
	}
	it.info.TotalSold += quantity
	it.info.CurrentStock -= quantity
	it.info.LastUpdated = txn.Date
	return txn, nil
}

// Item returns a snapshot of one item.
func (s *Store) Item(itemID string) (core.InventoryItem, error) {
	it, err := s.lookup(itemID)
	if err != nil {
		return core.InventoryItem{}, err
	}
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.info, nil
}

// Items returns snapshots of all items ordered by id.
func (s *Store) Items() []core.InventoryItem {
	s.mu.RLock()
	its := make([]*item, 0, len(s.items))
	for _, it := range s.items {
		its = append(its, it)
	}
	s.mu.RUnlock()

	out := make([]core.InventoryItem, 0, len(its))
	for _, it := range its {
		it.mu.Lock()
		out = append(out, it.info)
		it.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LowStockItems returns snapshots of items below their reorder threshold.
func (s *Store) LowStockItems() []core.InventoryItem {
	var out []core.InventoryItem
	for _, it := range s.Items() {
		if it.LowStock() {
			out = append(out, it)
		}
	}
	return out
}

// Valuation sums currentStock * unitPrice across items: the cost-basis value
// of stock on hand, distinct from sale-price revenue projections.
func (s *Store) Valuation() core.Money {
	var total core.Money
	for _, it := range s.Items() {
		total = total.Add(it.StockValue())
	}
	return total
}
