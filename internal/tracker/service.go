package tracker

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/tokenfolio/internal/domain"
	"github.com/mtlprog/tokenfolio/internal/ledger"
	"github.com/mtlprog/tokenfolio/internal/price"
	"github.com/mtlprog/tokenfolio/internal/valuation"
)

// Service owns the price registry and the balance ledger. Every method runs
// under one lock, so each operation completes before the next one starts.
type Service struct {
	mu       sync.RWMutex
	prices   *price.Registry
	balances *ledger.Ledger
	now      func() time.Time
}

// NewService creates an empty tracker. A nil clock defaults to time.Now.
func NewService(clock func() time.Time) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		prices:   price.NewRegistry(),
		balances: ledger.New(),
		now:      clock,
	}
}

// AddTokenPrice registers symbol at initialPrice, replacing any existing record.
func (s *Service) AddTokenPrice(symbol string, initialPrice decimal.Decimal) (domain.PriceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prices.Add(symbol, initialPrice, s.now())
}

// UpdatePrice changes the price of a registered symbol.
func (s *Service) UpdatePrice(symbol string, p decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prices.Update(symbol, p, s.now())
}

// UpdateBalance sets the caller's balance of token.
func (s *Service) UpdateBalance(caller, token string, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances.Set(caller, token, amount)
}

// GetPortfolioValue values the caller's balances at current prices.
func (s *Service) GetPortfolioValue(caller string) domain.PortfolioValuation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return valuation.Compute(s.balances.Entries(caller), s.prices)
}

// GetBalances returns the caller's balances.
func (s *Service) GetBalances(caller string) []domain.TokenBalance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances.Balances(caller)
}

// GetTokenPrice returns the price of symbol.
func (s *Service) GetTokenPrice(symbol string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prices.Get(symbol)
}

// GetPriceRecord returns the stored record of symbol, timestamps included.
func (s *Service) GetPriceRecord(symbol string) (domain.PriceRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prices.Record(symbol)
}

// GetAllTokenPrices lists every registered price in registration order.
func (s *Service) GetAllTokenPrices() []domain.TokenPrice {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prices.List()
}

// Users returns every caller that holds a ledger.
func (s *Service) Users() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances.Users()
}

// Stats returns the number of registered tokens and known users.
func (s *Service) Stats() (tokens, users int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prices.Len(), s.balances.Len()
}

// Snapshot exports both stores as one consistent state.
func (s *Service) Snapshot() domain.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.State{
		Prices:   s.prices.Export(),
		Balances: s.balances.Export(),
		TakenAt:  s.now(),
	}
}

// Restore replaces both stores with state.
func (s *Service) Restore(state domain.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices.Restore(state.Prices)
	s.balances.Restore(state.Balances)
}
