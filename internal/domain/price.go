package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceRecord is the stored state of a single token price.
type PriceRecord struct {
	ScaledPrice   Scaled    `json:"scaledPrice"`
	CreatedAt     time.Time `json:"createdAt"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
}

// Price returns the price in external representation.
func (r PriceRecord) Price() decimal.Decimal {
	return ToExternal(r.ScaledPrice)
}

// TokenPrice is a symbol with its external price.
type TokenPrice struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

// PriceEntry is the persisted form of one registry entry.
type PriceEntry struct {
	Symbol string      `json:"symbol"`
	Record PriceRecord `json:"record"`
}
