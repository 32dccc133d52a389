package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"arbscan/internal/application/port"
	"arbscan/internal/domain/model"
	"arbscan/internal/domain/symbol"
)

type EngineDeps struct {
	Sources      map[string]port.TickerSource
	Normalizer   *symbol.Normalizer
	Extractor    *Extractor
	Matcher      *Matcher
	Updater      *Updater
	Repo         port.Repository
	ScanEvery    time.Duration
	FetchTimeout time.Duration
}

// Engine owns the installed opportunity slice. Two writers exist: the
// periodic full recompute, which installs a whole new slice, and the
// incremental updater, which swaps single entries of the installed one.
// A stale recompute (superseded by a newer trigger) is discarded via a
// monotonic generation token instead of overwriting newer state.
type Engine struct {
	deps EngineDeps

	mu       sync.RWMutex
	opps     []*model.Opportunity
	selected []string

	gen      atomic.Uint64
	lastScan atomic.Int64 // unix ms of the last installed recompute
}

func NewEngine(deps EngineDeps) *Engine {
	selected := make([]string, 0, len(deps.Sources))
	for name := range deps.Sources {
		selected = append(selected, strings.ToLower(name))
	}
	sort.Strings(selected)
	return &Engine{deps: deps, selected: selected}
}

// Run drives the scan loop until ctx is done. Push batches from pushes feed
// the incremental updater in arrival order; a closed channel disables the
// incremental path but keeps the periodic recompute alive.
func (e *Engine) Run(ctx context.Context, pushes <-chan []model.Instrument) error {
	e.TriggerRecompute(ctx)

	ticker := time.NewTicker(e.deps.ScanEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.TriggerRecompute(ctx)
		case batch, ok := <-pushes:
			if !ok {
				pushes = nil
				log.Warn().Msg("push feed closed, incremental updates disabled")
				continue
			}
			e.ApplyUpdate(ctx, batch)
		}
	}
}

// SetExchanges changes the scanned exchange selection and supersedes any
// in-flight recompute.
func (e *Engine) SetExchanges(ctx context.Context, exchanges []string) {
	selected := make([]string, 0, len(exchanges))
	for _, ex := range exchanges {
		u := strings.ToLower(strings.TrimSpace(ex))
		if u == "" {
			continue
		}
		selected = append(selected, u)
	}

	e.mu.Lock()
	e.selected = selected
	e.mu.Unlock()

	e.TriggerRecompute(ctx)
}

// TriggerRecompute starts a full recompute in the background. The returned
// generation supersedes all earlier ones.
func (e *Engine) TriggerRecompute(ctx context.Context) {
	gen := e.gen.Add(1)

	e.mu.RLock()
	selected := make([]string, len(e.selected))
	copy(selected, e.selected)
	e.mu.RUnlock()

	go e.recompute(ctx, gen, selected)
}

func (e *Engine) recompute(ctx context.Context, gen uint64, selected []string) {
	started := time.Now()
	byExchange := e.fetchAll(ctx, selected)

	result := e.deps.Matcher.Match(selected, byExchange)

	// a newer recompute started while we were fetching: discard, never
	// overwrite newer state
	if e.gen.Load() != gen {
		log.Debug().Uint64("gen", gen).Msg("stale recompute discarded")
		return
	}

	e.mu.Lock()
	e.opps = result
	e.mu.Unlock()

	now := time.Now().UnixMilli()
	e.lastScan.Store(now)

	log.Info().
		Int("exchanges", len(selected)).
		Int("opportunities", len(result)).
		Dur("took", time.Since(started)).
		Msg("scan installed")

	if e.deps.Repo != nil {
		if err := e.deps.Repo.InsertOpportunities(ctx, now, result); err != nil {
			log.Error().Err(err).Msg("persist opportunities failed")
		}
		if payload, err := json.Marshal(result); err == nil {
			_ = e.deps.Repo.InsertScanSnapshot(ctx, now, string(payload))
		}
	}
}

// fetchAll fans out over every selected exchange and market type with a
// per-call timeout. A failed or timed-out fetch degrades to zero instruments
// for that exchange/market instead of aborting the scan.
func (e *Engine) fetchAll(ctx context.Context, selected []string) map[string]MarketInstruments {
	type fetched struct {
		exchange string
		market   model.MarketType
		raws     []model.RawTicker
	}

	results := make(chan fetched, len(selected)*2)
	var wg sync.WaitGroup

	for _, ex := range selected {
		src, ok := e.deps.Sources[ex]
		if !ok {
			log.Warn().Str("exchange", ex).Msg("no ticker source registered")
			continue
		}

		for _, market := range []model.MarketType{model.MarketSpot, model.MarketFutures} {
			wg.Add(1)
			go func(ex string, market model.MarketType, src port.TickerSource) {
				defer wg.Done()

				cctx, cancel := context.WithTimeout(ctx, e.deps.FetchTimeout)
				defer cancel()

				var raws []model.RawTicker
				var err error
				if market == model.MarketSpot {
					raws, err = src.FetchSpot(cctx)
				} else {
					raws, err = src.FetchFutures(cctx)
				}
				if err != nil {
					log.Warn().Err(err).Str("exchange", ex).Str("market", string(market)).Msg("fetch failed, skipping")
					return
				}
				results <- fetched{exchange: ex, market: market, raws: raws}
			}(ex, market, src)
		}
	}

	wg.Wait()
	close(results)

	byExchange := make(map[string]MarketInstruments, len(selected))
	for f := range results {
		mi := byExchange[f.exchange]
		switch f.market {
		case model.MarketSpot:
			mi.Spot = e.buildSpot(f.exchange, f.raws)
		case model.MarketFutures:
			mi.Futures = e.buildFutures(f.exchange, f.raws)
		}
		byExchange[f.exchange] = mi
	}
	return byExchange
}

func (e *Engine) buildSpot(ex string, raws []model.RawTicker) []model.Instrument {
	out := make([]model.Instrument, 0, len(raws))
	for _, rec := range raws {
		sym := e.deps.Normalizer.Normalize(e.deps.Extractor.SpotSymbol(rec))
		if sym == "" {
			continue
		}
		out = append(out, model.Instrument{
			Exchange:  ex,
			Market:    model.MarketSpot,
			Symbol:    sym,
			Price:     e.deps.Extractor.SpotPrice(rec),
			Liquidity: e.deps.Extractor.Liquidity(ex, rec, model.MarketSpot),
		})
	}
	return out
}

func (e *Engine) buildFutures(ex string, raws []model.RawTicker) []model.Instrument {
	out := make([]model.Instrument, 0, len(raws))
	for _, rec := range raws {
		raw := e.deps.Extractor.FuturesSymbol(ex, rec)
		sym := e.deps.Normalizer.Normalize(e.deps.Extractor.StripFuturesSuffix(ex, raw))
		if sym == "" {
			continue
		}
		out = append(out, model.Instrument{
			Exchange:  ex,
			Market:    model.MarketFutures,
			Symbol:    sym,
			Price:     e.deps.Extractor.FuturesPrice(ex, rec),
			Liquidity: e.deps.Extractor.Liquidity(ex, rec, model.MarketFutures),
		})
	}
	return out
}

// ApplyUpdate feeds one push batch to the incremental updater.
func (e *Engine) ApplyUpdate(ctx context.Context, batch []model.Instrument) {
	e.mu.Lock()
	opps, changed := e.deps.Updater.Apply(e.opps, batch)
	if changed {
		e.opps = opps
	}
	e.mu.Unlock()

	if e.deps.Repo != nil {
		for _, rec := range batch {
			if !model.ValidPrice(rec.Price) || rec.Symbol == "" || rec.Exchange == "" {
				continue
			}
			_ = e.deps.Repo.UpsertLatestPrice(ctx, rec.Exchange, e.deps.Normalizer.Normalize(rec.Symbol), rec.Market, rec.Price, time.Now().UnixMilli())
		}
	}
}

// Snapshot returns the installed opportunity slice. Entries are swapped, not
// mutated, so sharing the pointers with readers is safe.
func (e *Engine) Snapshot() []*model.Opportunity {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*model.Opportunity, len(e.opps))
	copy(out, e.opps)
	return out
}

// LastScan returns the unix-ms timestamp of the last installed recompute, 0
// if none yet.
func (e *Engine) LastScan() int64 { return e.lastScan.Load() }

// Exchanges returns the current exchange selection.
func (e *Engine) Exchanges() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, len(e.selected))
	copy(out, e.selected)
	return out
}
