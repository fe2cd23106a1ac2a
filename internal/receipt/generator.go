// Package receipt composes immutable receipts from line items, computing
// per-line VAT and receipt totals. Receipt numbers are monotonic counters
// owned by the generator, one sequence per receipt type.
package receipt

import (
	"sync"
	"time"

	"scrapops/internal/core"
)

// Generator issues receipts. Counters can be seeded so numbering continues
// across restarts when the caller restores the last issued numbers.
type Generator struct {
	mu       sync.Mutex
	counters map[core.ReceiptType]int64
	now      func() time.Time
}

func NewGenerator() *Generator {
	return &Generator{
		counters: make(map[core.ReceiptType]int64),
		now:      time.Now,
	}
}

// Seed sets the last issued number for a receipt type. The next receipt of
// that type gets last+1.
func (g *Generator) Seed(t core.ReceiptType, last int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counters[t] = last
}

// Generate builds a receipt from one or more line items. Each line's VAT is
// computed from the line's own rate, so mixed VAT treatments on one receipt
// add up exactly: total = subtotal + totalVAT.
func (g *Generator) Generate(t core.ReceiptType, lines []core.LineItem, paymentMethod string) (core.Receipt, error) {
	if len(lines) == 0 {
		return core.Receipt{}, core.ErrEmptyReceipt
	}
	for _, line := range lines {
		if err := line.Amount.Validate(); err != nil {
			return core.Receipt{}, err
		}
		if line.VATRateBps < 0 {
			return core.Receipt{}, core.ErrInvalidAmount
		}
	}

	r := core.Receipt{
		Type:          t,
		Date:          g.now(),
		PaymentMethod: paymentMethod,
		Lines:         make([]core.ReceiptLine, 0, len(lines)),
	}
	for _, line := range lines {
		vat := line.Amount.ApplyRate(line.VATRateBps)
		r.Lines = append(r.Lines, core.ReceiptLine{
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Amount:      line.Amount,
			VATRateBps:  line.VATRateBps,
			VATAmount:   vat,
		})
		r.Subtotal = r.Subtotal.Add(line.Amount)
		r.TotalVAT = r.TotalVAT.Add(vat)
	}
	r.Total = r.Subtotal.Add(r.TotalVAT)

	g.mu.Lock()
	g.counters[t]++
	r.Number = g.counters[t]
	g.mu.Unlock()

	return r, nil
}
