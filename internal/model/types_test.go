package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func testSnapshot() *PortfolioSnapshot {
	return &PortfolioSnapshot{
		Quote:  "USDT",
		Assets: []string{"BTC", "MANA", "USDT"},
		Valuations: map[string]AssetValuation{
			"BTC": {
				Asset:           "BTC",
				Quantity:        decimal.RequireFromString("0.5"),
				QuoteEquivalent: decimal.RequireFromString("10000"),
			},
			"MANA": {
				Asset:           "MANA",
				Quantity:        decimal.RequireFromString("12.3456789"),
				QuoteEquivalent: decimal.RequireFromString("5.123"),
			},
			"USDT": {
				Asset:           "USDT",
				Quantity:        decimal.RequireFromString("100"),
				QuoteEquivalent: decimal.RequireFromString("100"),
			},
		},
		TotalValue: decimal.RequireFromString("10105.123"),
		Timestamp:  time.Unix(1705321845, 0),
	}
}

func TestPairSymbol(t *testing.T) {
	tests := []struct {
		base, quote string
		want        string
	}{
		{"BTC", "USDT", "BTCUSDT"},
		{"btc", "usdt", "BTCUSDT"},
		{"Mana", "USDT", "MANAUSDT"},
	}

	for _, tt := range tests {
		if got := PairSymbol(tt.base, tt.quote); got != tt.want {
			t.Errorf("PairSymbol(%q, %q) = %q, want %q", tt.base, tt.quote, got, tt.want)
		}
	}

	q := PriceQuote{Base: "AI", Quote: "USDT"}
	if q.Symbol() != "AIUSDT" {
		t.Errorf("Symbol() = %q, want %q", q.Symbol(), "AIUSDT")
	}
}

func TestPortfolioSnapshot_Ordered(t *testing.T) {
	s := testSnapshot()

	ordered := s.Ordered()
	if len(ordered) != 3 {
		t.Fatalf("len(Ordered()) = %d, want 3", len(ordered))
	}
	for i, want := range []string{"BTC", "MANA", "USDT"} {
		if ordered[i].Asset != want {
			t.Errorf("Ordered()[%d].Asset = %q, want %q", i, ordered[i].Asset, want)
		}
	}
}

func TestNewAssetUpdate(t *testing.T) {
	s := testSnapshot()

	t.Run("formats fixed precision", func(t *testing.T) {
		u, ok := NewAssetUpdate(s, "mana")
		if !ok {
			t.Fatal("expected update for MANA")
		}
		if u.Coin != "MANA" {
			t.Errorf("Coin = %q, want %q", u.Coin, "MANA")
		}
		if u.Quantity != "12.345679" {
			t.Errorf("Quantity = %q, want %q", u.Quantity, "12.345679")
		}
		if u.USDTEquivalent != "5.12" {
			t.Errorf("USDTEquivalent = %q, want %q", u.USDTEquivalent, "5.12")
		}
		if u.TotalValue != "10105.12" {
			t.Errorf("TotalValue = %q, want %q", u.TotalValue, "10105.12")
		}
	})

	t.Run("unknown asset", func(t *testing.T) {
		if _, ok := NewAssetUpdate(s, "ETH"); ok {
			t.Error("expected no update for untracked asset")
		}
	})

	t.Run("json field names", func(t *testing.T) {
		u, _ := NewAssetUpdate(s, "BTC")
		data, err := json.Marshal(u)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		want := `{"coin":"BTC","quantity":"0.500000","usdtEquivalent":"10000.00","totalValue":"10105.12"}`
		if string(data) != want {
			t.Errorf("json = %s, want %s", data, want)
		}
	})
}
