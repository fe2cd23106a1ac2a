package core

import "errors"

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidTxType     = errors.New("invalid transaction type")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrUnknownAccount    = errors.New("unknown account")
	ErrUnknownItem       = errors.New("unknown inventory item")
	ErrUnknownObligation = errors.New("unknown obligation")
	ErrOverPayment       = errors.New("payment exceeds obligation amount")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrEmptyReceipt      = errors.New("receipt has no line items")
	ErrDuplicateAccount  = errors.New("account already exists")
	ErrDuplicateItem     = errors.New("inventory item already exists")
	ErrUnknownMaterial   = errors.New("unknown material rate")
	ErrEmptyName         = errors.New("empty name")
)
