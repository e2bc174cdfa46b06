package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceEntry is one token amount held by a user, in internal representation.
type BalanceEntry struct {
	Token        string `json:"token"`
	ScaledAmount Scaled `json:"scaledAmount"`
}

// TokenBalance is a balance entry converted back to external representation.
type TokenBalance struct {
	Token  string          `json:"token"`
	Amount decimal.Decimal `json:"amount"`
}

// UserBalances is the persisted form of one user's ledger. Entry order is significant.
type UserBalances struct {
	User    string         `json:"user"`
	Entries []BalanceEntry `json:"entries"`
}

// Holding is one priced position inside a portfolio valuation.
type Holding struct {
	Symbol string          `json:"symbol"`
	Amount decimal.Decimal `json:"amount"`
	Value  decimal.Decimal `json:"value"`
}

// PortfolioValuation is computed on every query and never stored.
type PortfolioValuation struct {
	TotalValue decimal.Decimal `json:"totalValue"`
	Holdings   []Holding       `json:"holdings"`
}

// State is the complete exportable content of the price registry and balance ledger.
type State struct {
	Prices   []PriceEntry   `json:"prices"`
	Balances []UserBalances `json:"balances"`
	TakenAt  time.Time      `json:"takenAt"`
}
