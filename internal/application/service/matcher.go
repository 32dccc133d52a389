package service

import (
	"sort"
	"strings"
	"time"

	"arbscan/internal/domain/model"
)

// MarketInstruments 一个交易所的现货与合约标准化报价
type MarketInstruments struct {
	Spot    []model.Instrument
	Futures []model.Instrument
}

// Matcher finds cross-exchange and cross-market symbol matches and computes
// their percentage spread. It is stateless; the engine owns the result.
type Matcher struct {
	minProfit float64
}

// NewMatcher creates a matcher with the inclusive minimum profit threshold
// (percent).
func NewMatcher(minProfit float64) *Matcher {
	return &Matcher{minProfit: minProfit}
}

// Match scans every ordered exchange pair from selected, including self
// pairs. A self pair matches that exchange's spot against its own futures;
// a cross pair matches spot-vs-spot and spot-vs-futures. Pairs whose prices
// are not finite positive numbers are discarded silently, the unordered
// pair × symbol × type key is deduplicated, and the result is sorted by
// profit descending.
func (m *Matcher) Match(selected []string, byExchange map[string]MarketInstruments) []*model.Opportunity {
	now := time.Now().UnixMilli()
	seen := make(map[string]struct{})
	var out []*model.Opportunity

	indexed := make(map[string]indexedMarkets, len(byExchange))
	for ex, mi := range byExchange {
		indexed[strings.ToLower(ex)] = indexedMarkets{
			spot:    indexBySymbol(mi.Spot),
			futures: indexBySymbol(mi.Futures),
		}
	}

	appendMatch := func(ex1, ex2 string, pt model.PairType, a, b map[string]model.Instrument) {
		for sym, i1 := range a {
			i2, ok := b[sym]
			if !ok {
				continue
			}
			if !model.ValidPrice(i1.Price) || !model.ValidPrice(i2.Price) {
				continue
			}
			profit := model.Profit(i1.Price, i2.Price)
			if profit < m.minProfit {
				continue
			}
			id := model.OpportunityID(ex1, ex2, sym, pt)
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, &model.Opportunity{
				ID:         id,
				Symbol:     sym,
				Exchange1:  ex1,
				Exchange2:  ex2,
				Type:       pt,
				Price1:     i1.Price,
				Price2:     i2.Price,
				Liquidity1: i1.Liquidity,
				Liquidity2: i2.Liquidity,
				Profit:     profit,
				Timestamp:  now,
			})
		}
	}

	for _, raw1 := range selected {
		ex1 := strings.ToLower(strings.TrimSpace(raw1))
		m1, ok := indexed[ex1]
		if !ok {
			continue
		}
		for _, raw2 := range selected {
			ex2 := strings.ToLower(strings.TrimSpace(raw2))
			m2, ok := indexed[ex2]
			if !ok {
				continue
			}
			if ex1 == ex2 {
				appendMatch(ex1, ex2, model.PairSpotFutures, m1.spot, m2.futures)
				continue
			}
			appendMatch(ex1, ex2, model.PairSpotSpot, m1.spot, m2.spot)
			appendMatch(ex1, ex2, model.PairSpotFutures, m1.spot, m2.futures)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Profit > out[j].Profit })
	return out
}

type indexedMarkets struct {
	spot    map[string]model.Instrument
	futures map[string]model.Instrument
}

func indexBySymbol(list []model.Instrument) map[string]model.Instrument {
	idx := make(map[string]model.Instrument, len(list))
	for _, in := range list {
		if in.Symbol == "" {
			continue
		}
		// later records for the same symbol overwrite earlier ones
		idx[in.Symbol] = in
	}
	return idx
}
