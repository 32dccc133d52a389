package service

import (
	"math"
	"testing"

	"arbscan/internal/domain/model"
)

// 组合场景：全量匹配 + 增量更新走一遍
func TestScenarioSpotVsFutures(t *testing.T) {
	m := NewMatcher(0.001)
	byEx := map[string]MarketInstruments{
		"binance": {
			Spot:    []model.Instrument{spot("binance", "BTCUSDT", 50000, 0)},
			Futures: []model.Instrument{futures("binance", "BTCUSDT", 50500, 0)},
		},
	}

	opps := m.Match([]string{"binance"}, byEx)
	if len(opps) != 1 {
		t.Fatalf("expected 1 opportunity, got %d", len(opps))
	}
	o := opps[0]
	if o.Type != model.PairSpotFutures || o.Price1 != 50000 || o.Price2 != 50500 {
		t.Fatalf("unexpected opportunity: %+v", o)
	}
	if math.Abs(o.Profit-1.0) > 1e-9 {
		t.Errorf("profit = %v, want 1.0", o.Profit)
	}

	// push moves the spot leg above the futures leg
	u := newTestUpdater()
	out, changed := u.Apply(opps, []model.Instrument{
		{Exchange: "binance", Market: model.MarketSpot, Symbol: "BTCUSDT", Price: 51000},
	})
	if !changed {
		t.Fatal("push must apply")
	}
	got := out[0]
	if got.Price1 != 51000 {
		t.Errorf("price1 = %v, want 51000", got.Price1)
	}
	want := (51000.0/50500.0 - 1) * 100
	if math.Abs(got.Profit-want) > 1e-9 {
		t.Errorf("profit = %v, want %v", got.Profit, want)
	}
}

func TestScenarioZeroSpreadExcluded(t *testing.T) {
	byEx := map[string]MarketInstruments{
		"binance": {Spot: []model.Instrument{spot("binance", "ETHUSDT", 3000, 0)}},
		"mexc":    {Spot: []model.Instrument{spot("mexc", "ETHUSDT", 3000, 0)}},
	}

	// equal prices: profit exactly 0, below the 0.001 threshold
	if out := NewMatcher(0.001).Match([]string{"binance", "mexc"}, byEx); len(out) != 0 {
		t.Errorf("threshold 0.001 must exclude a zero spread, got %d", len(out))
	}
	// threshold 0 includes it
	if out := NewMatcher(0).Match([]string{"binance", "mexc"}, byEx); len(out) != 1 {
		t.Errorf("threshold 0 must include a zero spread, got %d", len(out))
	}
}
