package service

import (
	"math"
	"testing"

	"arbscan/internal/domain/model"
)

func TestStripFuturesSuffix(t *testing.T) {
	ext := NewExtractor(nil)

	cases := []struct {
		exchange string
		raw      string
		want     string
	}{
		{"gateio", "BTC_UMCBL", "BTC"},
		{"gateio", "BTC_DMCBL", "BTC"},
		{"bitget", "ETH_CMCBL", "ETH"},
		{"bitget", "BTCUSDT", "BTCUSDT"},
		{"kucoin", "XBTUSDTM", "XBTUSDT"},
		{"kucoin", "ETHUSDTM", "ETHUSDT"},
	}
	for _, c := range cases {
		if got := ext.StripFuturesSuffix(c.exchange, c.raw); got != c.want {
			t.Errorf("StripFuturesSuffix(%q, %q) = %q, want %q", c.exchange, c.raw, got, c.want)
		}
	}
	// kucoin strips only a trailing M, never anything else
	if got := ext.StripFuturesSuffix("kucoin", "BTCUSDT"); got != "BTCUSDT" {
		t.Errorf("StripFuturesSuffix(kucoin, BTCUSDT) = %q, want BTCUSDT", got)
	}
	// exchanges without configured suffixes pass through untouched
	if got := ext.StripFuturesSuffix("binance", "BTCUSDTM"); got != "BTCUSDTM" {
		t.Errorf("StripFuturesSuffix(binance, BTCUSDTM) = %q, want BTCUSDTM", got)
	}
	if got := ext.StripFuturesSuffix("unknown", "BTC_UMCBL"); got != "BTC_UMCBL" {
		t.Errorf("StripFuturesSuffix(unknown, BTC_UMCBL) = %q, want BTC_UMCBL", got)
	}
}

func TestSpotPriceProbing(t *testing.T) {
	ext := NewExtractor(nil)

	if got := ext.SpotPrice(model.RawTicker{"price": "42000.5"}); got != 42000.5 {
		t.Errorf("SpotPrice(price) = %v", got)
	}
	if got := ext.SpotPrice(model.RawTicker{"lastPrice": 1.25}); got != 1.25 {
		t.Errorf("SpotPrice(lastPrice) = %v", got)
	}
	if got := ext.SpotPrice(model.RawTicker{"last": "0.5"}); got != 0.5 {
		t.Errorf("SpotPrice(last) = %v", got)
	}
	if got := ext.SpotPrice(model.RawTicker{"close": "1"}); !math.IsNaN(got) {
		t.Errorf("SpotPrice with no known field = %v, want NaN", got)
	}
	if got := ext.SpotPrice(model.RawTicker{"price": "not-a-number"}); !math.IsNaN(got) {
		t.Errorf("SpotPrice(garbage) = %v, want NaN", got)
	}
}

func TestFuturesPricePerExchange(t *testing.T) {
	ext := NewExtractor(nil)

	// gateio futures: contract symbol, price from "last"
	rec := model.RawTicker{"contract": "BTC_USDT", "last": "65000"}
	if got := ext.FuturesSymbol("gateio", rec); got != "BTC_USDT" {
		t.Errorf("gateio FuturesSymbol = %q", got)
	}
	if got := ext.FuturesPrice("gateio", rec); got != 65000 {
		t.Errorf("gateio FuturesPrice = %v", got)
	}

	// kucoin futures: price from "price"
	rec = model.RawTicker{"symbol": "XBTUSDTM", "price": 64950.0}
	if got := ext.FuturesPrice("kucoin", rec); got != 64950.0 {
		t.Errorf("kucoin FuturesPrice = %v", got)
	}

	// mexc futures: "last" falling back to "lastPrice"
	rec = model.RawTicker{"symbol": "BTC_USDT", "lastPrice": "64900"}
	if got := ext.FuturesPrice("mexc", rec); got != 64900 {
		t.Errorf("mexc FuturesPrice fallback = %v", got)
	}

	// unknown exchange yields NaN
	if got := ext.FuturesPrice("unknown", rec); !math.IsNaN(got) {
		t.Errorf("unknown FuturesPrice = %v, want NaN", got)
	}
}

func TestLiquidityPerExchange(t *testing.T) {
	ext := NewExtractor(nil)

	cases := []struct {
		exchange string
		rec      model.RawTicker
		want     float64
	}{
		{"binance", model.RawTicker{"quoteVolume": "1000000"}, 1000000},
		{"bitget", model.RawTicker{"quoteVolume": 500000.0}, 500000},
		{"mexc", model.RawTicker{"amount24": "250000"}, 250000},
		{"gateio", model.RawTicker{"volume_24h_quote": "75000"}, 75000},
		{"kucoin", model.RawTicker{"quoteVolume": "1234"}, 1234},
		{"kucoin", model.RawTicker{"volume": "99"}, 99}, // fallback
		{"unknown", model.RawTicker{"quoteVolume": "1000"}, 0},
		{"binance", model.RawTicker{}, 0},
		{"binance", model.RawTicker{"quoteVolume": "garbage"}, 0},
		{"binance", model.RawTicker{"quoteVolume": -5.0}, 0},
	}
	for i, c := range cases {
		if got := ext.Liquidity(c.exchange, c.rec, model.MarketSpot); got != c.want {
			t.Errorf("case %d: Liquidity(%s) = %v, want %v", i, c.exchange, got, c.want)
		}
	}
}

func TestFieldMapOverride(t *testing.T) {
	maps := DefaultFieldMaps()
	fm := maps["binance"]
	fm.Liquidity = []string{"turnover"}
	maps["binance"] = fm

	ext := NewExtractor(maps)
	if got := ext.Liquidity("binance", model.RawTicker{"turnover": "42"}, model.MarketSpot); got != 42 {
		t.Errorf("overridden Liquidity = %v, want 42", got)
	}
	if got := ext.Liquidity("binance", model.RawTicker{"quoteVolume": "42"}, model.MarketSpot); got != 0 {
		t.Errorf("override should replace default candidates, got %v", got)
	}
}

func TestAsFloatCoercion(t *testing.T) {
	cases := []struct {
		in   any
		want float64
	}{
		{"1.5", 1.5},
		{float64(2), 2},
		{float32(0.5), 0.5},
		{int(3), 3},
		{int64(4), 4},
		{" 5.5 ", 5.5},
	}
	for i, c := range cases {
		if got := asFloat(c.in); got != c.want {
			t.Errorf("case %d: asFloat(%v) = %v, want %v", i, c.in, got, c.want)
		}
	}
	for _, bad := range []any{nil, "abc", true, []string{"1"}} {
		if got := asFloat(bad); !math.IsNaN(got) {
			t.Errorf("asFloat(%v) = %v, want NaN", bad, got)
		}
	}
}
