package export

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/mtlprog/tokenfolio/internal/domain"
	"github.com/mtlprog/tokenfolio/internal/tracker"
)

type mockWriter struct {
	reports []Report
	err     error
}

func (m *mockWriter) Write(_ context.Context, r Report) error {
	if m.err != nil {
		return m.err
	}
	m.reports = append(m.reports, r)
	return nil
}

type countingSource struct {
	state domain.State
	calls int
}

func (c *countingSource) Snapshot() domain.State {
	c.calls++
	return c.state
}

func populated(t *testing.T) *tracker.Service {
	t.Helper()
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := tracker.NewService(func() time.Time { return t0 })

	if _, err := svc.AddTokenPrice("BTC", decimal.NewFromInt(100)); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddTokenPrice("ETH", decimal.RequireFromString("2.5")); err != nil {
		t.Fatal(err)
	}
	for _, b := range []struct {
		user, token, amount string
	}{
		{"alice", "BTC", "2"},
		{"alice", "DOGE", "1000"},
		{"bob", "ETH", "4"},
	} {
		if err := svc.UpdateBalance(b.user, b.token, decimal.RequireFromString(b.amount)); err != nil {
			t.Fatal(err)
		}
	}
	return svc
}

func TestBuild(t *testing.T) {
	svc := NewService(populated(t), &mockWriter{})
	r := svc.Build()

	if len(r.Prices) != 2 || r.Prices[0].Symbol != "BTC" || r.Prices[1].Symbol != "ETH" {
		t.Fatalf("prices = %+v", r.Prices)
	}
	if r.Prices[0].CreatedAt.IsZero() {
		t.Error("price row missing timestamps")
	}

	if len(r.Holdings) != 2 {
		t.Fatalf("holdings = %+v, want 2 priced rows", r.Holdings)
	}
	if r.Holdings[0].User != "alice" || !r.Holdings[0].Value.Equal(decimal.NewFromInt(200)) {
		t.Errorf("holdings[0] = %+v", r.Holdings[0])
	}
	if r.Holdings[1].User != "bob" || !r.Holdings[1].Value.Equal(decimal.NewFromInt(10)) {
		t.Errorf("holdings[1] = %+v", r.Holdings[1])
	}

	if len(r.Totals) != 2 || !r.Totals[0].TotalValue.Equal(decimal.NewFromInt(200)) {
		t.Errorf("totals = %+v", r.Totals)
	}
}

func TestBuildEmptyTracker(t *testing.T) {
	r := NewService(tracker.NewService(nil), &mockWriter{}).Build()
	if len(r.Prices) != 0 || len(r.Holdings) != 0 || len(r.Totals) != 0 {
		t.Errorf("report = %+v, want empty", r)
	}
}

func TestExportDelegatesToWriter(t *testing.T) {
	w := &mockWriter{}
	if err := NewService(populated(t), w).Export(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(w.reports) != 1 {
		t.Fatalf("writer called %d times, want 1", len(w.reports))
	}
}

func TestExportWriterError(t *testing.T) {
	w := &mockWriter{err: errors.New("quota exceeded")}
	if err := NewService(populated(t), w).Export(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestMultiWriterStopsAtFirstError(t *testing.T) {
	first := &mockWriter{err: errors.New("boom")}
	second := &mockWriter{}

	if err := (MultiWriter{first, second}).Write(context.Background(), Report{}); err == nil {
		t.Fatal("expected error")
	}
	if len(second.reports) != 0 {
		t.Error("second writer should not run")
	}
}

func TestBuildTablesHeaders(t *testing.T) {
	tables := buildTables(Report{})
	want := []string{"PRICES", "PORTFOLIOS", "TOTALS"}
	if len(tables) != len(want) {
		t.Fatalf("got %d tables, want %d", len(tables), len(want))
	}
	for i, name := range want {
		if tables[i].name != name {
			t.Errorf("table %d = %s, want %s", i, tables[i].name, name)
		}
		if len(tables[i].rows) != 1 {
			t.Errorf("%s has %d rows, want header only", name, len(tables[i].rows))
		}
	}
}

func TestXLSXWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	svc := NewService(populated(t), NewXLSXWriter(path))

	if err := svc.Export(context.Background()); err != nil {
		t.Fatalf("export: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("opening workbook: %v", err)
	}
	defer f.Close()

	if got := f.GetSheetList(); len(got) != 3 || got[0] != "PRICES" {
		t.Fatalf("sheets = %v", got)
	}

	rows, err := f.GetRows("PORTFOLIOS")
	if err != nil {
		t.Fatalf("reading PORTFOLIOS: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("PORTFOLIOS rows = %d, want 3", len(rows))
	}
	if rows[1][0] != "alice" || rows[1][1] != "BTC" || rows[1][3] != "200" {
		t.Errorf("row 1 = %v", rows[1])
	}

	prices, err := f.GetRows("PRICES")
	if err != nil {
		t.Fatalf("reading PRICES: %v", err)
	}
	if prices[2][0] != "ETH" || prices[2][1] != "2.5" {
		t.Errorf("ETH row = %v", prices[2])
	}
}

func TestBuildReadsOneConsistentState(t *testing.T) {
	takenAt := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	src := &countingSource{state: domain.State{
		TakenAt: takenAt,
		Prices: []domain.PriceEntry{
			{Symbol: "BTC", Record: domain.PriceRecord{
				ScaledPrice: domain.ToInternal(decimal.NewFromInt(300)),
				CreatedAt:   takenAt,
			}},
		},
		Balances: []domain.UserBalances{
			{User: "carol", Entries: []domain.BalanceEntry{
				{Token: "BTC", ScaledAmount: domain.ToInternal(decimal.NewFromInt(3))},
				{Token: "SOL", ScaledAmount: domain.ToInternal(decimal.NewFromInt(1))},
			}},
		},
	}}

	r := NewService(src, &mockWriter{}).Build()

	if src.calls != 1 {
		t.Errorf("Snapshot called %d times, want 1", src.calls)
	}
	if !r.GeneratedAt.Equal(takenAt) {
		t.Errorf("GeneratedAt = %v, want %v", r.GeneratedAt, takenAt)
	}
	if len(r.Prices) != 1 || !r.Prices[0].Price.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("prices = %+v", r.Prices)
	}
	if len(r.Holdings) != 1 || !r.Holdings[0].Value.Equal(decimal.NewFromInt(900)) {
		t.Errorf("holdings = %+v, want BTC worth 900", r.Holdings)
	}
	if len(r.Totals) != 1 || !r.Totals[0].TotalValue.Equal(decimal.NewFromInt(900)) {
		t.Errorf("totals = %+v", r.Totals)
	}
}
