package core

import (
	"strings"
	"time"
)

// AccountKind classifies an account for summary reporting. Cash accounts
// (tills, petty cash) feed the cash balance; bank accounts only the total.
type AccountKind string

const (
	AccountCash AccountKind = "cash"
	AccountBank AccountKind = "bank"
)

type TransactionType string

const (
	Deposit    TransactionType = "deposit"
	Withdrawal TransactionType = "withdrawal"
	Transfer   TransactionType = "transfer"
)

// BankAccount is the ledger's view of one account. Balance always equals the
// balance of the most recent transaction on the account, or OpeningBalance
// when no transactions exist.
type BankAccount struct {
	ID             string
	Name           string
	Kind           AccountKind
	OpeningBalance Money
	Balance        Money
	LastUpdated    time.Time
}

func (a BankAccount) Validate() error {
	if strings.TrimSpace(a.ID) == "" || strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	switch a.Kind {
	case AccountCash, AccountBank:
	default:
		return ErrEmptyName
	}
	return nil
}

// Reference carries the counterparty and document details of a cash movement.
type Reference struct {
	PaidTo       string
	ReceivedFrom string
	DocumentNo   string
	Description  string
}

// CashFlowTransaction is one immutable cash movement. Exactly one of Debit
// and Credit is non-zero. Balance is the account balance after applying this
// transaction. Transfers are two linked legs sharing TransferRef.
type CashFlowTransaction struct {
	ID          string
	AccountID   string
	Date        time.Time
	Type        TransactionType
	Debit       Money
	Credit      Money
	Balance     Money
	TransferRef string
	Reference   Reference
}

// Amount returns whichever leg of the transaction is set.
func (t CashFlowTransaction) Amount() Money {
	if t.Debit.Cents != 0 {
		return t.Debit
	}
	return t.Credit
}
