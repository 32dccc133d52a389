package exchange

import (
	"github.com/rs/zerolog/log"

	"arbscan/internal/application/port"
	"arbscan/internal/infrastructure/config"
)

// Factory 根据交易所配置构造一个 ticker source
type Factory func(cfg config.ExchangeConfig) port.TickerSource

// registry maps exchange names to their respective adapter factories
var registry = make(map[string]Factory)

// Register 注册一个交易所适配器 factory
// 由各交易所包的 init() 调用来自注册
func Register(name string, factory Factory) {
	if factory == nil {
		log.Warn().Str("exchange", name).Msg("invalid ticker source factory")
		return
	}
	if _, exists := registry[name]; exists {
		log.Warn().Str("exchange", name).Msg("ticker source factory already registered, overwriting")
	}
	registry[name] = factory
	log.Debug().Str("exchange", name).Msg("ticker source factory registered")
}

// Get 获取已注册的 factory
func Get(name string) (Factory, bool) {
	factory, ok := registry[name]
	return factory, ok
}
