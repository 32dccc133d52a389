package svc

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"arbscan/internal/application/port"
	"arbscan/internal/application/service"
	"arbscan/internal/domain/model"
	"arbscan/internal/domain/symbol"
	"arbscan/internal/infrastructure/config"
	"arbscan/internal/infrastructure/exchange"
	"arbscan/internal/infrastructure/exchange/binance"
	_ "arbscan/internal/infrastructure/exchange/bitget"
	_ "arbscan/internal/infrastructure/exchange/gateio"
	_ "arbscan/internal/infrastructure/exchange/kucoin"
	_ "arbscan/internal/infrastructure/exchange/mexc"
	"arbscan/internal/infrastructure/storage"
)

// ServiceContext 按依赖顺序初始化所有组件，是应用启动的唯一入口点
type ServiceContext struct {
	Ctx    context.Context
	Config *config.Config

	// 基础设施层
	Repo    port.Repository
	Sources map[string]port.TickerSource
	Feed    port.LiveFeed // nil when no ws url is configured

	// 应用层
	Engine *service.Engine

	closerChain []func() error
}

func New(ctx context.Context, cfg *config.Config) (*ServiceContext, error) {
	sc := &ServiceContext{
		Ctx:         ctx,
		Config:      cfg,
		closerChain: make([]func() error, 0),
	}
	if err := sc.initializeComponents(); err != nil {
		_ = sc.Close()
		return nil, err
	}
	return sc, nil
}

func (sc *ServiceContext) initializeComponents() error {
	// 0. 存储层（最基础）
	repo, err := storage.Open(sc.Config.Storage)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInitFailed, err)
	}
	sc.Repo = repo
	sc.closerChain = append(sc.closerChain, func() error {
		log.Info().Msg("closing storage")
		return repo.Close()
	})

	// 1. 交易所数据源（注册表驱动）
	sc.Sources = make(map[string]port.TickerSource)
	for _, name := range sc.Config.GetEnabledExchanges() {
		factory, ok := exchange.Get(name)
		if !ok {
			log.Warn().Str("exchange", name).Msg("enabled but no adapter registered, skipping")
			continue
		}
		sc.Sources[name] = factory(sc.Config.Exchanges[name])
	}
	if len(sc.Sources) == 0 {
		return ErrNoSourcesEnabled
	}

	// 2. 应用业务组件
	norm := symbol.NewNormalizer(sc.Config.Symbols.Stablecoins)
	ext := service.NewExtractor(buildFieldMaps(sc.Config.Fields))
	sc.Engine = service.NewEngine(service.EngineDeps{
		Sources:      sc.Sources,
		Normalizer:   norm,
		Extractor:    ext,
		Matcher:      service.NewMatcher(sc.Config.Arbitrage.MinProfit),
		Updater:      service.NewUpdater(norm, ext),
		Repo:         repo,
		ScanEvery:    sc.Config.ScanEvery(),
		FetchTimeout: sc.Config.FetchTimeout(),
	})

	// 3. 实时推送源（目前仅 binance 现货流）
	if bc, ok := sc.Config.Exchanges["binance"]; ok && bc.Enabled && bc.WsURL != "" {
		sc.Feed = binance.NewTickerFeed(bc.WsURL)
	}

	log.Info().
		Int("sources", len(sc.Sources)).
		Bool("live_feed", sc.Feed != nil).
		Msg("✓ All components initialized")
	return nil
}

// Subscribe opens the live feed channel, or a closed channel when no feed is
// configured so the engine's select loop degrades to pure periodic scans.
func (sc *ServiceContext) Subscribe(ctx context.Context) <-chan []model.Instrument {
	if sc.Feed == nil {
		ch := make(chan []model.Instrument)
		close(ch)
		return ch
	}
	ch, err := sc.Feed.Subscribe(ctx)
	if err != nil {
		log.Error().Err(err).Str("feed", sc.Feed.Name()).Msg("live feed subscribe failed")
		closed := make(chan []model.Instrument)
		close(closed)
		return closed
	}
	return ch
}

// Close 按相反顺序关闭所有资源
func (sc *ServiceContext) Close() error {
	for i := len(sc.closerChain) - 1; i >= 0; i-- {
		if err := sc.closerChain[i](); err != nil {
			log.Error().Err(err).Msg("error closing resource")
		}
	}
	return nil
}

// buildFieldMaps merges config overrides onto the built-in per-exchange field
// maps. Empty override fields keep the default.
func buildFieldMaps(overrides map[string]config.FieldOverride) map[string]service.FieldMap {
	maps := service.DefaultFieldMaps()
	for ex, ov := range overrides {
		fm := maps[ex]
		if ov.FuturesSymbol != "" {
			fm.FuturesSymbol = ov.FuturesSymbol
		}
		if len(ov.FuturesPrice) > 0 {
			fm.FuturesPrice = ov.FuturesPrice
		}
		if len(ov.Liquidity) > 0 {
			fm.Liquidity = ov.Liquidity
		}
		if len(ov.FuturesSuffixes) > 0 {
			fm.FuturesSuffixes = ov.FuturesSuffixes
		}
		maps[ex] = fm
	}
	return maps
}
