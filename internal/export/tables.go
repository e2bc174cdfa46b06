package export

import (
	"time"

	"github.com/shopspring/decimal"
)

type table struct {
	name string
	rows [][]any
}

// buildTables lays out a report as the PRICES, PORTFOLIOS and TOTALS sheets.
func buildTables(r Report) []table {
	generated := r.GeneratedAt.Format(time.RFC3339)

	prices := [][]any{{"Symbol", "Price", "Created", "Updated"}}
	for _, p := range r.Prices {
		prices = append(prices, []any{p.Symbol, toFloat(p.Price), formatTime(p.CreatedAt), formatTime(p.LastUpdatedAt)})
	}

	portfolios := [][]any{{"User", "Symbol", "Amount", "Value"}}
	for _, h := range r.Holdings {
		portfolios = append(portfolios, []any{h.User, h.Symbol, toFloat(h.Amount), toFloat(h.Value)})
	}

	totals := [][]any{{"User", "Total Value", "Generated"}}
	for _, t := range r.Totals {
		totals = append(totals, []any{t.User, toFloat(t.TotalValue), generated})
	}

	return []table{
		{name: "PRICES", rows: prices},
		{name: "PORTFOLIOS", rows: portfolios},
		{name: "TOTALS", rows: totals},
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
