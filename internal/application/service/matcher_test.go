package service

import (
	"math"
	"testing"

	"arbscan/internal/domain/model"
)

func spot(ex, sym string, price, liq float64) model.Instrument {
	return model.Instrument{Exchange: ex, Market: model.MarketSpot, Symbol: sym, Price: price, Liquidity: liq}
}

func futures(ex, sym string, price, liq float64) model.Instrument {
	return model.Instrument{Exchange: ex, Market: model.MarketFutures, Symbol: sym, Price: price, Liquidity: liq}
}

// TestMatcherCrossExchangeSpot 跨所现货匹配
func TestMatcherCrossExchangeSpot(t *testing.T) {
	m := NewMatcher(0.001)
	byEx := map[string]MarketInstruments{
		"binance": {Spot: []model.Instrument{spot("binance", "BTCUSDT", 100, 1000)}},
		"gateio":  {Spot: []model.Instrument{spot("gateio", "BTCUSDT", 101, 500)}},
	}

	out := m.Match([]string{"binance", "gateio"}, byEx)
	if len(out) != 1 {
		t.Fatalf("expected 1 opportunity, got %d", len(out))
	}
	o := out[0]
	if o.Symbol != "BTCUSDT" || o.Type != model.PairSpotSpot {
		t.Errorf("unexpected opportunity: %+v", o)
	}
	want := (101.0/100.0 - 1) * 100
	if math.Abs(o.Profit-want) > 1e-9 {
		t.Errorf("profit = %v, want %v", o.Profit, want)
	}
	if o.ID != model.OpportunityID("binance", "gateio", "BTCUSDT", model.PairSpotSpot) {
		t.Errorf("unexpected id %q", o.ID)
	}
}

// TestMatcherSelfPair 同所现货对合约
func TestMatcherSelfPair(t *testing.T) {
	m := NewMatcher(0.001)
	byEx := map[string]MarketInstruments{
		"binance": {
			Spot:    []model.Instrument{spot("binance", "BTCUSDT", 100, 0)},
			Futures: []model.Instrument{futures("binance", "BTCUSDT", 102, 0)},
		},
	}

	out := m.Match([]string{"binance"}, byEx)
	if len(out) != 1 {
		t.Fatalf("expected 1 opportunity, got %d", len(out))
	}
	if out[0].Type != model.PairSpotFutures {
		t.Errorf("type = %v, want spot-futures", out[0].Type)
	}
	if out[0].Exchange1 != "binance" || out[0].Exchange2 != "binance" {
		t.Errorf("self pair exchanges: %s / %s", out[0].Exchange1, out[0].Exchange2)
	}
}

// TestMatcherThresholdInclusive 阈值为闭区间
func TestMatcherThresholdInclusive(t *testing.T) {
	threshold := 1.0 // percent
	m := NewMatcher(threshold)

	// exactly at threshold: included
	byEx := map[string]MarketInstruments{
		"binance": {Spot: []model.Instrument{spot("binance", "AUSDT", 100, 0)}},
		"mexc":    {Spot: []model.Instrument{spot("mexc", "AUSDT", 101, 0)}},
	}
	if out := m.Match([]string{"binance", "mexc"}, byEx); len(out) != 1 {
		t.Fatalf("profit exactly at threshold should be included, got %d", len(out))
	}

	// one basis point below: excluded
	byEx["mexc"] = MarketInstruments{Spot: []model.Instrument{spot("mexc", "AUSDT", 100.99, 0)}}
	if out := m.Match([]string{"binance", "mexc"}, byEx); len(out) != 0 {
		t.Fatalf("profit below threshold should be excluded, got %d", len(out))
	}
}

func TestMatcherDiscardsInvalidPrices(t *testing.T) {
	m := NewMatcher(0.001)
	byEx := map[string]MarketInstruments{
		"binance": {Spot: []model.Instrument{
			spot("binance", "AUSDT", 0, 0),
			spot("binance", "BUSDT", math.NaN(), 0),
			spot("binance", "CUSDT", math.Inf(1), 0),
			spot("binance", "DUSDT", -5, 0),
		}},
		"mexc": {Spot: []model.Instrument{
			spot("mexc", "AUSDT", 100, 0),
			spot("mexc", "BUSDT", 100, 0),
			spot("mexc", "CUSDT", 100, 0),
			spot("mexc", "DUSDT", 100, 0),
		}},
	}
	if out := m.Match([]string{"binance", "mexc"}, byEx); len(out) != 0 {
		t.Fatalf("non-finite/non-positive prices must be discarded, got %d", len(out))
	}
}

// TestMatcherDedup 无序对去重：两个扫描方向只产出一条
func TestMatcherDedup(t *testing.T) {
	m := NewMatcher(0.001)
	byEx := map[string]MarketInstruments{
		"binance": {Spot: []model.Instrument{spot("binance", "BTCUSDT", 100, 0)}},
		"gateio":  {Spot: []model.Instrument{spot("gateio", "BTCUSDT", 105, 0)}},
	}

	out := m.Match([]string{"binance", "gateio"}, byEx)
	ids := make(map[string]int)
	for _, o := range out {
		ids[o.ID]++
	}
	for id, n := range ids {
		if n > 1 {
			t.Errorf("id %q appears %d times", id, n)
		}
	}
	if len(out) != 1 {
		t.Errorf("expected 1 deduplicated opportunity, got %d", len(out))
	}
}

func TestMatcherSortedByProfitDesc(t *testing.T) {
	m := NewMatcher(0.001)
	byEx := map[string]MarketInstruments{
		"binance": {Spot: []model.Instrument{
			spot("binance", "AUSDT", 100, 0),
			spot("binance", "BUSDT", 100, 0),
			spot("binance", "CUSDT", 100, 0),
		}},
		"mexc": {Spot: []model.Instrument{
			spot("mexc", "AUSDT", 101, 0),
			spot("mexc", "BUSDT", 110, 0),
			spot("mexc", "CUSDT", 103, 0),
		}},
	}

	out := m.Match([]string{"binance", "mexc"}, byEx)
	if len(out) != 3 {
		t.Fatalf("expected 3 opportunities, got %d", len(out))
	}
	for i := 1; i < len(out); i++ {
		if out[i].Profit > out[i-1].Profit {
			t.Errorf("not sorted desc at %d: %v > %v", i, out[i].Profit, out[i-1].Profit)
		}
	}
	if out[0].Symbol != "BUSDT" {
		t.Errorf("largest spread first, got %s", out[0].Symbol)
	}
}

// TestMatcherDeterministic 相同输入两次运行结果一致
func TestMatcherDeterministic(t *testing.T) {
	m := NewMatcher(0.001)
	byEx := map[string]MarketInstruments{
		"binance": {
			Spot:    []model.Instrument{spot("binance", "BTCUSDT", 100, 1), spot("binance", "ETHUSDT", 10, 2)},
			Futures: []model.Instrument{futures("binance", "BTCUSDT", 103, 3)},
		},
		"kucoin": {
			Spot:    []model.Instrument{spot("kucoin", "BTCUSDT", 102, 4), spot("kucoin", "ETHUSDT", 10.5, 5)},
			Futures: []model.Instrument{futures("kucoin", "ETHUSDT", 11, 6)},
		},
	}
	selected := []string{"binance", "kucoin"}

	a := m.Match(selected, byEx)
	b := m.Match(selected, byEx)
	if len(a) != len(b) {
		t.Fatalf("runs differ in length: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Profit != b[i].Profit {
			t.Errorf("run mismatch at %d: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestProfitFormula(t *testing.T) {
	// symmetry
	if model.Profit(100, 105) != model.Profit(105, 100) {
		t.Error("profit not symmetric")
	}
	// monotonicity: widening the spread strictly increases profit
	if !(model.Profit(100, 110) > model.Profit(100, 105)) {
		t.Error("profit not monotonic in spread")
	}
	// value
	if got := model.Profit(100, 102); math.Abs(got-2.0) > 1e-12 {
		t.Errorf("Profit(100, 102) = %v, want 2", got)
	}
	// invalid inputs are NaN
	for _, pair := range [][2]float64{{0, 1}, {-1, 1}, {math.NaN(), 1}, {math.Inf(1), 1}} {
		if got := model.Profit(pair[0], pair[1]); !math.IsNaN(got) {
			t.Errorf("Profit(%v, %v) = %v, want NaN", pair[0], pair[1], got)
		}
	}
}

func TestOpportunityIDOrderIndependent(t *testing.T) {
	a := model.OpportunityID("gateio", "binance", "BTCUSDT", model.PairSpotSpot)
	b := model.OpportunityID("binance", "gateio", "BTCUSDT", model.PairSpotSpot)
	if a != b {
		t.Errorf("id must ignore exchange order: %q vs %q", a, b)
	}
	c := model.OpportunityID("binance", "gateio", "BTCUSDT", model.PairSpotFutures)
	if a == c {
		t.Error("id must distinguish pair types")
	}
}
