package export

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/tokenfolio/internal/domain"
	"github.com/mtlprog/tokenfolio/internal/valuation"
)

// Source exports the tracker state under a single lock, so one report never
// mixes prices from before and after a concurrent update.
type Source interface {
	Snapshot() domain.State
}

// PriceRow is one registry entry.
type PriceRow struct {
	Symbol        string
	Price         decimal.Decimal
	CreatedAt     time.Time
	LastUpdatedAt time.Time
}

// HoldingRow is one priced position of one user.
type HoldingRow struct {
	User   string
	Symbol string
	Amount decimal.Decimal
	Value  decimal.Decimal
}

// TotalRow is the portfolio total of one user.
type TotalRow struct {
	User       string
	TotalValue decimal.Decimal
}

// Report is everything written to a spreadsheet in one export.
type Report struct {
	GeneratedAt time.Time
	Prices      []PriceRow
	Holdings    []HoldingRow
	Totals      []TotalRow
}

// SheetWriter writes a report to a spreadsheet destination.
type SheetWriter interface {
	Write(ctx context.Context, r Report) error
}

// Service builds reports from the tracker and delegates writing to a SheetWriter.
type Service struct {
	source Source
	writer SheetWriter
}

// NewService creates a new export Service.
func NewService(source Source, writer SheetWriter) *Service {
	return &Service{
		source: source,
		writer: writer,
	}
}

type statePrices map[string]domain.Scaled

func (p statePrices) ScaledPrice(symbol string) (domain.Scaled, bool) {
	v, ok := p[symbol]
	return v, ok
}

// Build values every user against the prices of one tracker snapshot.
func (s *Service) Build() Report {
	state := s.source.Snapshot()

	lookup := make(statePrices, len(state.Prices))
	prices := make([]PriceRow, 0, len(state.Prices))
	for _, e := range state.Prices {
		lookup[e.Symbol] = e.Record.ScaledPrice
		prices = append(prices, PriceRow{
			Symbol:        e.Symbol,
			Price:         e.Record.Price(),
			CreatedAt:     e.Record.CreatedAt,
			LastUpdatedAt: e.Record.LastUpdatedAt,
		})
	}

	var holdings []HoldingRow
	totals := make([]TotalRow, 0, len(state.Balances))
	for _, u := range state.Balances {
		v := valuation.Compute(u.Entries, lookup)
		holdings = append(holdings, lo.Map(v.Holdings, func(h domain.Holding, _ int) HoldingRow {
			return HoldingRow{User: u.User, Symbol: h.Symbol, Amount: h.Amount, Value: h.Value}
		})...)
		totals = append(totals, TotalRow{User: u.User, TotalValue: v.TotalValue})
	}

	return Report{
		GeneratedAt: state.TakenAt.UTC(),
		Prices:      prices,
		Holdings:    holdings,
		Totals:      totals,
	}
}

// Export builds a report and writes it. Implements worker.AfterSaveHook.
func (s *Service) Export(ctx context.Context) error {
	if err := s.writer.Write(ctx, s.Build()); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	return nil
}

// MultiWriter writes the same report to every destination in order, stopping at the first error.
type MultiWriter []SheetWriter

func (m MultiWriter) Write(ctx context.Context, r Report) error {
	for _, w := range m {
		if err := w.Write(ctx, r); err != nil {
			return err
		}
	}
	return nil
}
