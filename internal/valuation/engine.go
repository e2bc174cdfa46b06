package valuation

import (
	"github.com/samber/lo"

	"github.com/mtlprog/tokenfolio/internal/domain"
)

// PriceLookup resolves a symbol to its internal price.
type PriceLookup interface {
	ScaledPrice(symbol string) (domain.Scaled, bool)
}

type pricedEntry struct {
	entry domain.BalanceEntry
	value domain.Scaled
}

// Compute values entries against prices. Entries whose symbol has no price are
// skipped: they add nothing to the total and are left out of the holdings.
// Holdings keep the order of entries.
func Compute(entries []domain.BalanceEntry, prices PriceLookup) domain.PortfolioValuation {
	priced := lo.FilterMap(entries, func(e domain.BalanceEntry, _ int) (pricedEntry, bool) {
		p, ok := prices.ScaledPrice(e.Token)
		if !ok {
			return pricedEntry{}, false
		}
		return pricedEntry{entry: e, value: domain.MulScaled(e.ScaledAmount, p)}, true
	})

	total := lo.Reduce(priced, func(acc domain.Scaled, p pricedEntry, _ int) domain.Scaled {
		return acc.Add(p.value)
	}, domain.Scaled{})

	return domain.PortfolioValuation{
		TotalValue: domain.ToExternal(total),
		Holdings: lo.Map(priced, func(p pricedEntry, _ int) domain.Holding {
			return domain.Holding{
				Symbol: p.entry.Token,
				Amount: domain.ToExternal(p.entry.ScaledAmount),
				Value:  domain.ToExternal(p.value),
			}
		}),
	}
}
