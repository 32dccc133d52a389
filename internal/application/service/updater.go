package service

import (
	"strings"
	"time"

	"arbscan/internal/domain/model"
	"arbscan/internal/domain/symbol"
)

// Updater applies live push batches to an installed opportunity set. It only
// overwrites prices, liquidity, profit and timestamp of entries whose lookup
// key matches a push record; it never adds or removes entries and never
// re-applies the profit threshold.
type Updater struct {
	norm *symbol.Normalizer
	ext  *Extractor
}

func NewUpdater(norm *symbol.Normalizer, ext *Extractor) *Updater {
	return &Updater{norm: norm, ext: ext}
}

type quote struct {
	price     float64
	liquidity float64
}

// Apply mutates opps in place by swapping whole entries (a reader never sees
// a half-updated opportunity). Malformed records are skipped individually; a
// nil or empty batch is a no-op. Returns the slice and whether anything
// changed.
func (u *Updater) Apply(opps []*model.Opportunity, batch []model.Instrument) ([]*model.Opportunity, bool) {
	if len(opps) == 0 || len(batch) == 0 {
		return opps, false
	}

	fresh := make(map[string]quote, len(batch))
	for _, rec := range batch {
		ex := strings.ToLower(strings.TrimSpace(rec.Exchange))
		sym := u.norm.Normalize(rec.Symbol)
		if ex == "" || sym == "" || !model.ValidPrice(rec.Price) {
			continue
		}
		market := rec.Market
		if market != model.MarketSpot && market != model.MarketFutures {
			continue
		}
		// arrival order wins: later records overwrite earlier ones
		fresh[quoteKey(ex, sym, market)] = quote{price: rec.Price, liquidity: rec.Liquidity}
	}
	if len(fresh) == 0 {
		return opps, false
	}

	now := time.Now().UnixMilli()
	changed := false

	for i, o := range opps {
		side2Market := model.MarketSpot
		side2Symbol := o.Symbol
		if o.Type == model.PairSpotFutures {
			side2Market = model.MarketFutures
			// the futures side re-applies contract suffix stripping
			side2Symbol = u.norm.Normalize(u.ext.StripFuturesSuffix(o.Exchange2, o.Symbol))
		}

		q1, ok1 := fresh[quoteKey(o.Exchange1, o.Symbol, model.MarketSpot)]
		q2, ok2 := fresh[quoteKey(o.Exchange2, side2Symbol, side2Market)]
		if !ok1 && !ok2 {
			continue
		}

		next := o.Clone()
		touched := false
		if ok1 && (q1.price != o.Price1 || q1.liquidity != o.Liquidity1) {
			next.Price1 = q1.price
			next.Liquidity1 = q1.liquidity
			touched = true
		}
		if ok2 && (q2.price != o.Price2 || q2.liquidity != o.Liquidity2) {
			next.Price2 = q2.price
			next.Liquidity2 = q2.liquidity
			touched = true
		}
		if !touched {
			continue
		}

		next.Profit = model.Profit(next.Price1, next.Price2)
		next.Timestamp = now
		opps[i] = next
		changed = true
	}

	return opps, changed
}

func quoteKey(ex, sym string, market model.MarketType) string {
	return strings.ToLower(ex) + "|" + sym + "|" + string(market)
}
