package core

import (
	"strings"
	"time"
)

// PaymentStatus is always derived from (amount, paid), never stored: a
// payable is paid when nothing is pending, unpaid when nothing has been
// paid, partial otherwise.
type PaymentStatus string

const (
	StatusPaid    PaymentStatus = "paid"
	StatusUnpaid  PaymentStatus = "unpaid"
	StatusPartial PaymentStatus = "partial"
)

// DeriveStatus computes the payment status for an obligation.
func DeriveStatus(amount, paid Money) PaymentStatus {
	switch {
	case amount.Sub(paid).IsZero():
		return StatusPaid
	case paid.IsZero():
		return StatusUnpaid
	default:
		return StatusPartial
	}
}

// Payable is money the business owes, typically to a supplier for collected
// material. Priorities order the payout queue when cash is constrained.
type Payable struct {
	ID             string
	Supplier       string
	Amount         Money
	Paid           Money
	DueDate        time.Time
	FirstPriority  int
	SecondPriority int
	ThirdPriority  int
	CreatedAt      time.Time
}

func (p Payable) Pending() Money {
	return p.Amount.Sub(p.Paid)
}

func (p Payable) Status() PaymentStatus {
	return DeriveStatus(p.Amount, p.Paid)
}

func (p Payable) Validate() error {
	if strings.TrimSpace(p.Supplier) == "" {
		return ErrEmptyName
	}
	if err := p.Amount.Validate(); err != nil {
		return err
	}
	if p.Paid.Cents < 0 || p.Paid.Cents > p.Amount.Cents {
		return ErrInvalidAmount
	}
	return nil
}

// Receivable is money owed to the business. It mirrors Payable without the
// payout-priority fields.
type Receivable struct {
	ID        string
	Customer  string
	Amount    Money
	Paid      Money
	DueDate   time.Time
	CreatedAt time.Time
}

func (r Receivable) Outstanding() Money {
	return r.Amount.Sub(r.Paid)
}

func (r Receivable) Status() PaymentStatus {
	return DeriveStatus(r.Amount, r.Paid)
}

func (r Receivable) Validate() error {
	if strings.TrimSpace(r.Customer) == "" {
		return ErrEmptyName
	}
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	if r.Paid.Cents < 0 || r.Paid.Cents > r.Amount.Cents {
		return ErrInvalidAmount
	}
	return nil
}
