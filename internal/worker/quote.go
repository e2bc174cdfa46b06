package worker

import (
	"context"
	"log/slog"
	"time"
)

// QuoteFetcher pushes one round of external quotes into the price registry.
type QuoteFetcher interface {
	FetchAndStoreQuotes(ctx context.Context) error
}

// QuoteWorker periodically refreshes registry prices from an external feed.
type QuoteWorker struct {
	fetcher  QuoteFetcher
	interval time.Duration
}

// NewQuoteWorker creates a new QuoteWorker.
func NewQuoteWorker(fetcher QuoteFetcher, interval time.Duration) *QuoteWorker {
	return &QuoteWorker{
		fetcher:  fetcher,
		interval: interval,
	}
}

func (w *QuoteWorker) fetch(ctx context.Context) {
	start := time.Now()
	if err := w.fetcher.FetchAndStoreQuotes(ctx); err != nil {
		slog.Error("QuoteWorker: fetch failed", "error", err)
		return
	}
	slog.Info("QuoteWorker: fetch completed", "duration", time.Since(start))
}

// Run fetches immediately, then every interval. It blocks until the context is cancelled.
func (w *QuoteWorker) Run(ctx context.Context) {
	slog.Info("QuoteWorker: starting", "interval", w.interval)

	w.fetch(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("QuoteWorker: shutting down")
			return
		case <-ticker.C:
			w.fetch(ctx)
		}
	}
}
