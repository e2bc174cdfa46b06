package domain

import "errors"

// Errors returned by the price registry and balance ledger.
var (
	ErrInvalidSymbol = errors.New("invalid symbol")
	ErrInvalidPrice  = errors.New("invalid price")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrNotFound      = errors.New("not found")
)
