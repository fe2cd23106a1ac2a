// Package ledger keeps the append-only cash-flow log per bank account and
// the running balances derived from it. Corrections are new offsetting
// transactions; appended records are never edited.
package ledger

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"scrapops/internal/core"
)

type account struct {
	mu   sync.Mutex
	info core.BankAccount
	txns []core.CashFlowTransaction
}

// Ledger owns the BankAccount and CashFlowTransaction lifecycles. The outer
// lock guards the account map; each account carries its own lock so that the
// balance update and the append are one atomic step per account.
type Ledger struct {
	mu       sync.RWMutex
	accounts map[string]*account
	now      func() time.Time
}

func New() *Ledger {
	return &Ledger{
		accounts: make(map[string]*account),
		now:      time.Now,
	}
}

// OpenAccount registers a new account with an opening balance. The opening
// balance may be zero; a duplicate id is rejected.
func (l *Ledger) OpenAccount(a core.BankAccount) (core.BankAccount, error) {
	if err := a.Validate(); err != nil {
		return core.BankAccount{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.accounts[a.ID]; ok {
		return core.BankAccount{}, core.ErrDuplicateAccount
	}
	a.Balance = a.OpeningBalance
	a.LastUpdated = l.now()
	l.accounts[a.ID] = &account{info: a}
	return a, nil
}

func (l *Ledger) lookup(accountID string) (*account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	acc, ok := l.accounts[accountID]
	if !ok {
		return nil, core.ErrUnknownAccount
	}
	return acc, nil
}

// Record appends one cash movement and updates the account balance under the
// account's lock. Deposits credit the account, withdrawals debit it. Use
// Transfer for the two-legged transfer case.
func (l *Ledger) Record(accountID string, amount core.Money, txType core.TransactionType, ref core.Reference) (core.CashFlowTransaction, error) {
	switch txType {
	case core.Deposit:
		return l.append(accountID, amount, txType, true, "", ref)
	case core.Withdrawal:
		return l.append(accountID, amount, txType, false, "", ref)
	default:
		return core.CashFlowTransaction{}, core.ErrInvalidTxType
	}
}

// Transfer moves amount between two accounts as a debit leg and a credit
// leg correlated by a shared reference. Both accounts are checked before the
// first leg is applied so a bad destination never leaves a half-applied
// transfer.
func (l *Ledger) Transfer(fromID, toID string, amount core.Money, ref core.Reference) (debit, credit core.CashFlowTransaction, err error) {
	if err := amount.Validate(); err != nil {
		return core.CashFlowTransaction{}, core.CashFlowTransaction{}, err
	}
	if _, err := l.lookup(fromID); err != nil {
		return core.CashFlowTransaction{}, core.CashFlowTransaction{}, err
	}
	if _, err := l.lookup(toID); err != nil {
		return core.CashFlowTransaction{}, core.CashFlowTransaction{}, err
	}
	transferRef := uuid.NewString()
	debit, err = l.append(fromID, amount, core.Transfer, false, transferRef, ref)
	if err != nil {
		return core.CashFlowTransaction{}, core.CashFlowTransaction{}, err
	}
	credit, err = l.append(toID, amount, core.Transfer, true, transferRef, ref)
	if err != nil {
		return core.CashFlowTransaction{}, core.CashFlowTransaction{}, err
	}
	return debit, credit, nil
}

// append is the single write path: it validates the amount, computes the
// balance after the movement and publishes the record and the new balance
// together under the account lock.
func (l *Ledger) append(accountID string, amount core.Money, txType core.TransactionType, isCredit bool, transferRef string, ref core.Reference) (core.CashFlowTransaction, error) {
	if err := amount.Validate(); err != nil {
		return core.CashFlowTransaction{}, err
	}
	acc, err := l.lookup(accountID)
	if err != nil {
		return core.CashFlowTransaction{}, err
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()

	txn := core.CashFlowTransaction{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		Date:        l.now(),
		Type:        txType,
		TransferRef: transferRef,
		Reference:   ref,
	}
	if isCredit {
		txn.Credit = amount
		txn.Balance = acc.info.Balance.Add(amount)
	} else {
		txn.Debit = amount
		txn.Balance = acc.info.Balance.Sub(amount)
	}

	acc.txns = append(acc.txns, txn)
	acc.info.Balance = txn.Balance
	acc.info.LastUpdated = txn.Date
	return txn, nil
}

// BalanceAt returns the account balance as of t: the balance after the last
// transaction dated at or before t, or the opening balance if none precede it.
func (l *Ledger) BalanceAt(accountID string, t time.Time) (core.Money, error) {
	acc, err := l.lookup(accountID)
	if err != nil {
		return core.Money{}, err
	}
	acc.mu.Lock()
	defer acc.mu.Unlock()

	balance := acc.info.OpeningBalance
	for _, txn := range acc.txns {
		if txn.Date.After(t) {
			break
		}
		balance = txn.Balance
	}
	return balance, nil
}

// History returns the chronological transaction sequence for an account as
// copies; callers never hold references into internal state.
func (l *Ledger) History(accountID string) ([]core.CashFlowTransaction, error) {
	acc, err := l.lookup(accountID)
	if err != nil {
		return nil, err
	}
	acc.mu.Lock()
	defer acc.mu.Unlock()
	out := make([]core.CashFlowTransaction, len(acc.txns))
	copy(out, acc.txns)
	return out, nil
}

// Account returns a snapshot of one account.
func (l *Ledger) Account(accountID string) (core.BankAccount, error) {
	acc, err := l.lookup(accountID)
	if err != nil {
		return core.BankAccount{}, err
	}
	acc.mu.Lock()
	defer acc.mu.Unlock()
	return acc.info, nil
}

// Accounts returns snapshots of all accounts, ordered by id for stable
// reporting output.
func (l *Ledger) Accounts() []core.BankAccount {
	l.mu.RLock()
	accs := make([]*account, 0, len(l.accounts))
	for _, acc := range l.accounts {
		accs = append(accs, acc)
	}
	l.mu.RUnlock()

	out := make([]core.BankAccount, 0, len(accs))
	for _, acc := range accs {
		acc.mu.Lock()
		out = append(out, acc.info)
		acc.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
