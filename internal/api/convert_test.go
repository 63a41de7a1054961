package api

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"0.50000000", "0.5", false},
		{"20000.00", "20000", false},
		{"  1.25 ", "1.25", false},
		{"", "0", false},
		{"0.00000001", "0.00000001", false},
		{"abc", "", true},
	}

	for _, tt := range tests {
		got, err := ParseDecimal(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDecimal(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if tt.wantErr {
			continue
		}
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("ParseDecimal(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestAccountResponse_ToBalances(t *testing.T) {
	t.Run("converts and upper-cases", func(t *testing.T) {
		resp := &AccountResponse{
			Balances: []APIBalance{
				{Asset: "BTC", Free: "0.5", Locked: "0.1"},
				{Asset: "usdt", Free: "100", Locked: ""},
			},
		}

		balances, err := resp.ToBalances()
		if err != nil {
			t.Fatalf("ToBalances failed: %v", err)
		}
		if len(balances) != 2 {
			t.Fatalf("len = %d, want 2", len(balances))
		}
		if !balances["BTC"].Free.Equal(decimal.RequireFromString("0.5")) {
			t.Errorf("BTC free = %s", balances["BTC"].Free)
		}
		if !balances["BTC"].Locked.Equal(decimal.RequireFromString("0.1")) {
			t.Errorf("BTC locked = %s", balances["BTC"].Locked)
		}
		if balances["USDT"].Asset != "USDT" {
			t.Errorf("USDT asset = %q", balances["USDT"].Asset)
		}
		if !balances["USDT"].Locked.IsZero() {
			t.Errorf("USDT locked = %s, want 0", balances["USDT"].Locked)
		}
	})

	t.Run("invalid quantity", func(t *testing.T) {
		resp := &AccountResponse{
			Balances: []APIBalance{{Asset: "BTC", Free: "not-a-number"}},
		}
		if _, err := resp.ToBalances(); err == nil {
			t.Error("expected error for invalid quantity")
		}
	})
}

func TestTickerPriceResponse_ToPriceQuote(t *testing.T) {
	resp := &TickerPriceResponse{Symbol: "BTCUSDT", Price: "20000.01000000"}

	q, err := resp.ToPriceQuote("btc", "usdt")
	if err != nil {
		t.Fatalf("ToPriceQuote failed: %v", err)
	}
	if q.Base != "BTC" || q.Quote != "USDT" {
		t.Errorf("quote = %+v", q)
	}
	if !q.Price.Equal(decimal.RequireFromString("20000.01")) {
		t.Errorf("Price = %s", q.Price)
	}

	bad := &TickerPriceResponse{Symbol: "BTCUSDT", Price: "NaN?"}
	if _, err := bad.ToPriceQuote("BTC", "USDT"); err == nil {
		t.Error("expected error for invalid price")
	}
}

func TestTickerPriceResponse_ToPriceQuote_RejectsUnusablePrice(t *testing.T) {
	tests := []struct {
		price string
		want  error
	}{
		{"", ErrMissingPrice},
		{"   ", ErrMissingPrice},
		{"0", ErrNonPositivePrice},
		{"0.00000000", ErrNonPositivePrice},
		{"-1.5", ErrNonPositivePrice},
	}

	for _, tt := range tests {
		t.Run(tt.price, func(t *testing.T) {
			resp := &TickerPriceResponse{Symbol: "BTCUSDT", Price: tt.price}
			_, err := resp.ToPriceQuote("BTC", "USDT")
			if !errors.Is(err, tt.want) {
				t.Errorf("ToPriceQuote(%q) error = %v, want %v", tt.price, err, tt.want)
			}
		})
	}
}
