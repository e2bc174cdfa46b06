package ledger

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/tokenfolio/internal/domain"
)

// Ledger maps caller identities to their ordered token balances.
// Ledger is not safe for concurrent use; tracker.Service serializes access.
type Ledger struct {
	users map[string][]domain.BalanceEntry
	order []string
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		users: make(map[string][]domain.BalanceEntry),
	}
}

// Set stores amount as the caller's balance of token. It replaces an existing
// entry in place, or appends a new one.
func (l *Ledger) Set(caller, token string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("setting %s balance to %s: %w", token, amount, domain.ErrInvalidAmount)
	}

	scaled := domain.ToInternal(amount)
	entries, known := l.users[caller]
	if !known {
		l.order = append(l.order, caller)
	}

	if _, i, ok := lo.FindIndexOf(entries, func(e domain.BalanceEntry) bool { return e.Token == token }); ok {
		entries[i].ScaledAmount = scaled
		return nil
	}

	l.users[caller] = append(entries, domain.BalanceEntry{Token: token, ScaledAmount: scaled})
	return nil
}

// Balances returns the caller's balances in external representation.
// Unknown callers get an empty slice.
func (l *Ledger) Balances(caller string) []domain.TokenBalance {
	return lo.Map(l.users[caller], func(e domain.BalanceEntry, _ int) domain.TokenBalance {
		return domain.TokenBalance{Token: e.Token, Amount: domain.ToExternal(e.ScaledAmount)}
	})
}

// Entries returns a copy of the caller's internal entries.
func (l *Ledger) Entries(caller string) []domain.BalanceEntry {
	entries := l.users[caller]
	if entries == nil {
		return nil
	}
	out := make([]domain.BalanceEntry, len(entries))
	copy(out, entries)
	return out
}

// Users returns caller identities in the order they first appeared.
func (l *Ledger) Users() []string {
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

// Len returns the number of known callers.
func (l *Ledger) Len() int {
	return len(l.order)
}

// Export returns every user's entries with per-user order preserved.
func (l *Ledger) Export() []domain.UserBalances {
	return lo.Map(l.order, func(user string, _ int) domain.UserBalances {
		return domain.UserBalances{User: user, Entries: l.Entries(user)}
	})
}

// Restore replaces the ledger content. Entries are re-inserted through the
// same upsert rule as Set, so a duplicate token keeps its first position.
func (l *Ledger) Restore(users []domain.UserBalances) {
	l.users = make(map[string][]domain.BalanceEntry, len(users))
	l.order = l.order[:0]
	for _, u := range users {
		if _, ok := l.users[u.User]; !ok {
			l.order = append(l.order, u.User)
			l.users[u.User] = []domain.BalanceEntry{}
		}
		for _, e := range u.Entries {
			l.restoreEntry(u.User, e)
		}
	}
}

func (l *Ledger) restoreEntry(user string, e domain.BalanceEntry) {
	entries := l.users[user]
	if _, i, ok := lo.FindIndexOf(entries, func(x domain.BalanceEntry) bool { return x.Token == e.Token }); ok {
		entries[i].ScaledAmount = e.ScaledAmount
		return
	}
	l.users[user] = append(entries, e)
}
