package external

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/tokenfolio/internal/domain"
)

// QuoteSource provides current prices keyed by external coin ID.
type QuoteSource interface {
	FetchPrices(ctx context.Context, ids []string, currency string) (map[string]decimal.Decimal, error)
}

// PriceWriter is the part of the tracker the quote feed writes to.
type PriceWriter interface {
	AddTokenPrice(symbol string, initialPrice decimal.Decimal) (domain.PriceRecord, error)
	UpdatePrice(symbol string, p decimal.Decimal) error
}

// Service pushes external quotes into the price registry.
type Service struct {
	source   QuoteSource
	prices   PriceWriter
	symbols  map[string]string
	currency string
}

// NewService creates a quote feed for the given symbol -> coin ID mapping.
func NewService(source QuoteSource, prices PriceWriter, symbols map[string]string, currency string) *Service {
	if len(symbols) == 0 {
		symbols = DefaultSymbols
	}
	if currency == "" {
		currency = "usd"
	}
	return &Service{
		source:   source,
		prices:   prices,
		symbols:  symbols,
		currency: currency,
	}
}

// FetchAndStoreQuotes fetches all configured quotes and writes them to the registry.
// Registered symbols are updated in place; unknown symbols are added.
func (s *Service) FetchAndStoreQuotes(ctx context.Context) error {
	ids := lo.Uniq(lo.Values(s.symbols))
	slices.Sort(ids)

	quotes, err := s.source.FetchPrices(ctx, ids, s.currency)
	if err != nil {
		return fmt.Errorf("fetching external prices: %w", err)
	}

	symbols := lo.Keys(s.symbols)
	slices.Sort(symbols)

	for _, symbol := range symbols {
		coinID := s.symbols[symbol]
		price, ok := quotes[coinID]
		if !ok {
			slog.Warn("no quote returned", "symbol", symbol, "coinId", coinID)
			continue
		}
		if !price.IsPositive() {
			slog.Warn("skipping non-positive quote", "symbol", symbol, "price", price.String())
			continue
		}

		if err := s.store(symbol, price); err != nil {
			return fmt.Errorf("storing quote for %s: %w", symbol, err)
		}
	}

	return nil
}

func (s *Service) store(symbol string, price decimal.Decimal) error {
	err := s.prices.UpdatePrice(symbol, price)
	if errors.Is(err, domain.ErrNotFound) {
		_, err = s.prices.AddTokenPrice(symbol, price)
	}
	return err
}
