package price

import (
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/tokenfolio/internal/domain"
)

// Registry maps token symbols to price records.
// Registry is not safe for concurrent use; tracker.Service serializes access.
type Registry struct {
	records map[string]domain.PriceRecord
	order   []string
}

// NewRegistry creates an empty price registry.
func NewRegistry() *Registry {
	return &Registry{
		records: make(map[string]domain.PriceRecord),
	}
}

// Add stores a new record for symbol. An existing record is replaced and its
// creation time is reset.
func (r *Registry) Add(symbol string, price decimal.Decimal, now time.Time) (domain.PriceRecord, error) {
	if symbol == "" {
		return domain.PriceRecord{}, domain.ErrInvalidSymbol
	}
	if !price.IsPositive() {
		return domain.PriceRecord{}, fmt.Errorf("adding %s at %s: %w", symbol, price, domain.ErrInvalidPrice)
	}

	rec := domain.PriceRecord{
		ScaledPrice:   domain.ToInternal(price),
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
	if rec.ScaledPrice.Sign() <= 0 {
		// below 10^-18
		return domain.PriceRecord{}, fmt.Errorf("adding %s at %s: %w", symbol, price, domain.ErrInvalidPrice)
	}

	if _, ok := r.records[symbol]; !ok {
		r.order = append(r.order, symbol)
	}
	r.records[symbol] = rec
	return rec, nil
}

// Update replaces the price of an existing symbol, keeping its creation time.
func (r *Registry) Update(symbol string, price decimal.Decimal, now time.Time) error {
	scaled := domain.ToInternal(price)
	if !price.IsPositive() || scaled.Sign() <= 0 {
		return fmt.Errorf("updating %s to %s: %w", symbol, price, domain.ErrInvalidPrice)
	}

	rec, ok := r.records[symbol]
	if !ok {
		return fmt.Errorf("updating %s: %w", symbol, domain.ErrNotFound)
	}

	rec.ScaledPrice = scaled
	if now.After(rec.LastUpdatedAt) {
		rec.LastUpdatedAt = now
	}
	r.records[symbol] = rec
	return nil
}

// Get returns the external price of symbol.
func (r *Registry) Get(symbol string) (decimal.Decimal, error) {
	rec, ok := r.records[symbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("price of %s: %w", symbol, domain.ErrNotFound)
	}
	return rec.Price(), nil
}

// Record returns the full stored record for symbol.
func (r *Registry) Record(symbol string) (domain.PriceRecord, bool) {
	rec, ok := r.records[symbol]
	return rec, ok
}

// ScaledPrice returns the internal price of symbol.
func (r *Registry) ScaledPrice(symbol string) (domain.Scaled, bool) {
	rec, ok := r.records[symbol]
	return rec.ScaledPrice, ok
}

// List returns every price in the order symbols were first added.
func (r *Registry) List() []domain.TokenPrice {
	return lo.Map(r.order, func(symbol string, _ int) domain.TokenPrice {
		return domain.TokenPrice{Symbol: symbol, Price: r.records[symbol].Price()}
	})
}

// Len returns the number of registered symbols.
func (r *Registry) Len() int {
	return len(r.order)
}

// Export returns all records, timestamps included, in listing order.
func (r *Registry) Export() []domain.PriceEntry {
	return lo.Map(r.order, func(symbol string, _ int) domain.PriceEntry {
		return domain.PriceEntry{Symbol: symbol, Record: r.records[symbol]}
	})
}

// Restore replaces the registry content with entries. Later duplicates win.
func (r *Registry) Restore(entries []domain.PriceEntry) {
	r.records = make(map[string]domain.PriceRecord, len(entries))
	r.order = r.order[:0]
	for _, e := range entries {
		if _, ok := r.records[e.Symbol]; !ok {
			r.order = append(r.order, e.Symbol)
		}
		r.records[e.Symbol] = e.Record
	}
}
