package price

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/tokenfolio/internal/domain"
)

var (
	t0 = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Hour)
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAddThenGet(t *testing.T) {
	tests := []struct {
		symbol string
		price  string
	}{
		{"BTC", "100"},
		{"ETH", "2500.75"},
		{"dust", "0.000000000000000001"},
		{"btc", "42"},
	}

	r := NewRegistry()
	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			rec, err := r.Add(tt.symbol, dec(tt.price), t0)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !rec.Price().Equal(dec(tt.price)) {
				t.Errorf("record price = %s, want %s", rec.Price(), tt.price)
			}
			got, err := r.Get(tt.symbol)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(dec(tt.price)) {
				t.Errorf("Get(%s) = %s, want %s", tt.symbol, got, tt.price)
			}
		})
	}

	if r.Len() != 4 {
		t.Errorf("Len() = %d, want 4 (symbols are case-sensitive)", r.Len())
	}
}

func TestAddValidation(t *testing.T) {
	tests := []struct {
		name    string
		symbol  string
		price   string
		wantErr error
	}{
		{"empty symbol", "", "10", domain.ErrInvalidSymbol},
		{"empty symbol with bad price", "", "-1", domain.ErrInvalidSymbol},
		{"zero price", "BTC", "0", domain.ErrInvalidPrice},
		{"negative price", "BTC", "-1", domain.ErrInvalidPrice},
		{"below smallest unit", "BTC", "0.0000000000000000001", domain.ErrInvalidPrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			_, err := r.Add(tt.symbol, dec(tt.price), t0)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Add() error = %v, want %v", err, tt.wantErr)
			}
			if r.Len() != 0 {
				t.Errorf("Len() = %d after failed add", r.Len())
			}
		})
	}
}

func TestReAddResetsHistory(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Add("BTC", dec("100"), t0); err != nil {
		t.Fatal(err)
	}
	rec, err := r.Add("BTC", dec("200"), t1)
	if err != nil {
		t.Fatal(err)
	}
	if !rec.CreatedAt.Equal(t1) || !rec.LastUpdatedAt.Equal(t1) {
		t.Errorf("re-add timestamps = %v/%v, want both %v", rec.CreatedAt, rec.LastUpdatedAt, t1)
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestUpdate(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Add("BTC", dec("100"), t0); err != nil {
		t.Fatal(err)
	}

	if err := r.Update("BTC", dec("150"), t1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, ok := r.Record("BTC")
	if !ok {
		t.Fatal("record missing after update")
	}
	if !rec.CreatedAt.Equal(t0) {
		t.Errorf("CreatedAt = %v, want %v", rec.CreatedAt, t0)
	}
	if !rec.LastUpdatedAt.Equal(t1) {
		t.Errorf("LastUpdatedAt = %v, want %v", rec.LastUpdatedAt, t1)
	}
	got, _ := r.Get("BTC")
	if !got.Equal(dec("150")) {
		t.Errorf("price = %s, want 150", got)
	}
}

func TestUpdateErrors(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Add("BTC", dec("100"), t0); err != nil {
		t.Fatal(err)
	}

	if err := r.Update("ETH", dec("1"), t1); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Update(unknown) error = %v, want ErrNotFound", err)
	}
	if err := r.Update("ETH", dec("0"), t1); !errors.Is(err, domain.ErrInvalidPrice) {
		t.Errorf("Update(unknown, 0) error = %v, want ErrInvalidPrice", err)
	}
	if err := r.Update("BTC", dec("-5"), t1); !errors.Is(err, domain.ErrInvalidPrice) {
		t.Errorf("Update(BTC, -5) error = %v, want ErrInvalidPrice", err)
	}

	got, _ := r.Get("BTC")
	if !got.Equal(dec("100")) {
		t.Errorf("price changed by failed update: %s", got)
	}
}

func TestUpdateLastUpdatedNeverGoesBack(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Add("BTC", dec("100"), t1); err != nil {
		t.Fatal(err)
	}
	if err := r.Update("BTC", dec("90"), t0); err != nil {
		t.Fatal(err)
	}
	rec, _ := r.Record("BTC")
	if !rec.LastUpdatedAt.Equal(t1) {
		t.Errorf("LastUpdatedAt = %v, want %v", rec.LastUpdatedAt, t1)
	}
}

func TestGetNotFound(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get("BTC"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestListInsertionOrder(t *testing.T) {
	r := NewRegistry()
	for _, s := range []string{"ETH", "BTC", "XLM"} {
		if _, err := r.Add(s, dec("1"), t0); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := r.Add("ETH", dec("2"), t1); err != nil {
		t.Fatal(err)
	}

	list := r.List()
	if len(list) != 3 {
		t.Fatalf("List() len = %d, want 3", len(list))
	}
	want := []string{"ETH", "BTC", "XLM"}
	for i, p := range list {
		if p.Symbol != want[i] {
			t.Errorf("List()[%d] = %s, want %s", i, p.Symbol, want[i])
		}
	}
	if !list[0].Price.Equal(dec("2")) {
		t.Errorf("ETH price = %s, want 2", list[0].Price)
	}
}

func TestListEmpty(t *testing.T) {
	if got := NewRegistry().List(); got == nil || len(got) != 0 {
		t.Errorf("List() = %v, want empty non-nil", got)
	}
}

func TestExportRestore(t *testing.T) {
	r := NewRegistry()
	r.Add("BTC", dec("100"), t0)
	r.Add("ETH", dec("2500.5"), t0)
	r.Update("BTC", dec("101"), t1)

	restored := NewRegistry()
	restored.Add("OLD", dec("1"), t0)
	restored.Restore(r.Export())

	if _, err := restored.Get("OLD"); !errors.Is(err, domain.ErrNotFound) {
		t.Error("Restore() should drop previous content")
	}
	for _, sym := range []string{"BTC", "ETH"} {
		want, _ := r.Record(sym)
		got, ok := restored.Record(sym)
		if !ok {
			t.Fatalf("%s missing after restore", sym)
		}
		if !got.ScaledPrice.Equal(want.ScaledPrice) || !got.CreatedAt.Equal(want.CreatedAt) || !got.LastUpdatedAt.Equal(want.LastUpdatedAt) {
			t.Errorf("%s restored = %+v, want %+v", sym, got, want)
		}
	}
}
