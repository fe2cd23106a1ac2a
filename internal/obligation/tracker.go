// Package obligation tracks payables and receivables and derives payment
// status from the underlying amounts. Payout ordering follows the priority
// chain configured on each payable.
package obligation

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"scrapops/internal/core"
)

// RateTable maps material names to the payout rate per unit, in cents.
// It is explicit construction-time configuration so rate changes stay
// testable and auditable per period.
type RateTable map[string]int64

// Rate returns the per-unit rate for a material.
func (rt RateTable) Rate(material string) (core.Money, error) {
	cents, ok := rt[material]
	if !ok {
		return core.Money{}, fmt.Errorf("material %q: %w", material, core.ErrUnknownMaterial)
	}
	return core.Money{Cents: cents}, nil
}

// Tracker owns the Payable and Receivable lifecycles. One lock per
// obligation keeps each read-modify-write of the paid amount atomic.
type Tracker struct {
	mu          sync.RWMutex
	payables    map[string]*lockedPayable
	receivables map[string]*lockedReceivable
	rates       RateTable
	now         func() time.Time
}

type lockedPayable struct {
	mu sync.Mutex
	p  core.Payable
}

type lockedReceivable struct {
	mu sync.Mutex
	r  core.Receivable
}

func NewTracker(rates RateTable) *Tracker {
	return &Tracker{
		payables:    make(map[string]*lockedPayable),
		receivables: make(map[string]*lockedReceivable),
		rates:       rates,
		now:         time.Now,
	}
}

// AddPayable registers a payable. A missing id is assigned.
func (t *Tracker) AddPayable(p core.Payable) (core.Payable, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = t.now()
	}
	if err := p.Validate(); err != nil {
		return core.Payable{}, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.payables[p.ID] = &lockedPayable{p: p}
	return p, nil
}

// AddReceivable registers a receivable. A missing id is assigned.
func (t *Tracker) AddReceivable(r core.Receivable) (core.Receivable, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = t.now()
	}
	if err := r.Validate(); err != nil {
		return core.Receivable{}, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.receivables[r.ID] = &lockedReceivable{r: r}
	return r, nil
}

// AccruePayable creates a payable for a supplier's collected quantity using
// the configured material rate table.
func (t *Tracker) AccruePayable(supplier, material string, quantity int64, dueDate time.Time) (core.Payable, error) {
	if quantity <= 0 {
		return core.Payable{}, core.ErrInvalidQuantity
	}
	rate, err := t.rates.Rate(material)
	if err != nil {
		return core.Payable{}, err
	}
	return t.AddPayable(core.Payable{
		Supplier: supplier,
		Amount:   rate.MulQty(quantity),
		DueDate:  dueDate,
	})
}

// MaterialRate returns the configured payout rate for a material.
func (t *Tracker) MaterialRate(material string) (core.Money, error) {
	return t.rates.Rate(material)
}

// RecordPayment applies a payment to a payable or receivable. A payment that
// would push paid beyond the obligation amount is rejected rather than
// capped: overpayment indicates a data error upstream.
func (t *Tracker) RecordPayment(obligationID string, amount core.Money) (core.PaymentStatus, error) {
	if err := amount.Validate(); err != nil {
		return "", err
	}

	t.mu.RLock()
	lp, isPayable := t.payables[obligationID]
	lr, isReceivable := t.receivables[obligationID]
	t.mu.RUnlock()

	switch {
	case isPayable:
		lp.mu.Lock()
		defer lp.mu.Unlock()
		paid := lp.p.Paid.Add(amount)
		if paid.Cents > lp.p.Amount.Cents {
			return "", core.ErrOverPayment
		}
		lp.p.Paid = paid
		return lp.p.Status(), nil
	case isReceivable:
		lr.mu.Lock()
		defer lr.mu.Unlock()
		paid := lr.r.Paid.Add(amount)
		if paid.Cents > lr.r.Amount.Cents {
			return "", core.ErrOverPayment
		}
		lr.r.Paid = paid
		return lr.r.Status(), nil
	default:
		return "", core.ErrUnknownObligation
	}
}

// Payable returns a snapshot of one payable.
func (t *Tracker) Payable(id string) (core.Payable, error) {
	t.mu.RLock()
	lp, ok := t.payables[id]
	t.mu.RUnlock()
	if !ok {
		return core.Payable{}, core.ErrUnknownObligation
	}
	lp.mu.Lock()
	defer lp.mu.Unlock()
	return lp.p, nil
}

// Receivable returns a snapshot of one receivable.
func (t *Tracker) Receivable(id string) (core.Receivable, error) {
	t.mu.RLock()
	lr, ok := t.receivables[id]
	t.mu.RUnlock()
	if !ok {
		return core.Receivable{}, core.ErrUnknownObligation
	}
	lr.mu.Lock()
	defer lr.mu.Unlock()
	return lr.r, nil
}

// UnpaidByPriority returns all payables not yet fully paid, ordered by the
// tie-break chain (first, second, third priority), then due date. Used to
// recommend payout order under cash constraints.
func (t *Tracker) UnpaidByPriority() []core.Payable {
	t.mu.RLock()
	lps := make([]*lockedPayable, 0, len(t.payables))
	for _, lp := range t.payables {
		lps = append(lps, lp)
	}
	t.mu.RUnlock()

	out := make([]core.Payable, 0, len(lps))
	for _, lp := range lps {
		lp.mu.Lock()
		if lp.p.Status() != core.StatusPaid {
			out = append(out, lp.p)
		}
		lp.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.FirstPriority != b.FirstPriority {
			return a.FirstPriority < b.FirstPriority
		}
		if a.SecondPriority != b.SecondPriority {
			return a.SecondPriority < b.SecondPriority
		}
		if a.ThirdPriority != b.ThirdPriority {
			return a.ThirdPriority < b.ThirdPriority
		}
		return a.DueDate.Before(b.DueDate)
	})
	return out
}

// OutstandingPayable sums pending amounts across all payables.
func (t *Tracker) OutstandingPayable() core.Money {
	t.mu.RLock()
	lps := make([]*lockedPayable, 0, len(t.payables))
	for _, lp := range t.payables {
		lps = append(lps, lp)
	}
	t.mu.RUnlock()

	var total core.Money
	for _, lp := range lps {
		lp.mu.Lock()
		total = total.Add(lp.p.Pending())
		lp.mu.Unlock()
	}
	return total
}

// OutstandingReceivable sums outstanding amounts across all receivables.
func (t *Tracker) OutstandingReceivable() core.Money {
	t.mu.RLock()
	lrs := make([]*lockedReceivable, 0, len(t.receivables))
	for _, lr := range t.receivables {
		lrs = append(lrs, lr)
	}
	t.mu.RUnlock()

	var total core.Money
	for _, lr := range lrs {
		lr.mu.Lock()
		total = total.Add(lr.r.Outstanding())
		lr.mu.Unlock()
	}
	return total
}
