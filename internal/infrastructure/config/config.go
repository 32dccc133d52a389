package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	App struct {
		ListenAddr   string `toml:"listen_addr"`
		ScanEverySec int    `toml:"scan_every_sec"`
		PushEverySec int    `toml:"push_every_sec"`
	} `toml:"app"`

	Arbitrage struct {
		MinProfit       float64 `toml:"min_profit"` // percent, inclusive threshold
		FetchTimeoutSec int     `toml:"fetch_timeout_sec"`
	} `toml:"arbitrage"`

	Symbols struct {
		Stablecoins []string `toml:"stablecoins"`
	} `toml:"symbols"`

	Exchanges map[string]ExchangeConfig `toml:"exchange"`

	Fields map[string]FieldOverride `toml:"fields"`

	Fees map[string]FeeTable `toml:"fees"`

	Storage StorageConfig `toml:"storage"`
}

type StorageConfig struct {
	SQLitePath  string `toml:"sqlite_path"`
	PostgresDSN string `toml:"postgres_dsn"`
	RedisAddr   string `toml:"redis_addr"`
	RedisPrefix string `toml:"redis_prefix"`
}

type ExchangeConfig struct {
	Enabled    bool   `toml:"enabled"`
	SpotURL    string `toml:"spot_url"`
	FuturesURL string `toml:"futures_url"`
	WsURL      string `toml:"ws_url"`
}

// FieldOverride 覆盖单个交易所的原始字段映射（默认值见 service.DefaultFieldMaps）
type FieldOverride struct {
	FuturesSymbol   string   `toml:"futures_symbol"`
	FuturesPrice    []string `toml:"futures_price"`
	Liquidity       []string `toml:"liquidity"`
	FuturesSuffixes []string `toml:"futures_suffixes"`
}

func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a config with every default applied and no file read.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.App.ListenAddr) == "" {
		cfg.App.ListenAddr = ":5000"
	}
	if cfg.App.ScanEverySec <= 0 {
		cfg.App.ScanEverySec = 30
	}
	if cfg.App.PushEverySec <= 0 {
		cfg.App.PushEverySec = 2
	}
	if cfg.Arbitrage.MinProfit <= 0 {
		cfg.Arbitrage.MinProfit = 0.001
	}
	if cfg.Arbitrage.FetchTimeoutSec <= 0 {
		cfg.Arbitrage.FetchTimeoutSec = 8
	}
	if len(cfg.Symbols.Stablecoins) == 0 {
		cfg.Symbols.Stablecoins = []string{
			"USDT", "USD", "BUSD", "USDC", "DAI", "TUSD", "FDUSD", "USDP", "USDD",
		}
	}
	if cfg.Exchanges == nil {
		cfg.Exchanges = make(map[string]ExchangeConfig)
	}
	for name, def := range defaultExchanges() {
		ec, ok := cfg.Exchanges[name]
		if !ok {
			cfg.Exchanges[name] = def
			continue
		}
		if strings.TrimSpace(ec.SpotURL) == "" {
			ec.SpotURL = def.SpotURL
		}
		if strings.TrimSpace(ec.FuturesURL) == "" {
			ec.FuturesURL = def.FuturesURL
		}
		if strings.TrimSpace(ec.WsURL) == "" {
			ec.WsURL = def.WsURL
		}
		cfg.Exchanges[name] = ec
	}
	if cfg.Fees == nil {
		cfg.Fees = DefaultFees()
	} else {
		for ex, def := range DefaultFees() {
			if _, ok := cfg.Fees[ex]; !ok {
				cfg.Fees[ex] = def
			}
		}
	}
	if strings.TrimSpace(cfg.Storage.SQLitePath) == "" {
		cfg.Storage.SQLitePath = "data/arbscan.db"
	}
	if strings.TrimSpace(cfg.Storage.RedisPrefix) == "" {
		cfg.Storage.RedisPrefix = "arbscan"
	}
}

func defaultExchanges() map[string]ExchangeConfig {
	return map[string]ExchangeConfig{
		"binance": {
			Enabled:    true,
			SpotURL:    "https://api.binance.com/api/v3",
			FuturesURL: "https://fapi.binance.com/fapi/v1",
			WsURL:      "wss://stream.binance.com:9443",
		},
		"mexc": {
			Enabled:    true,
			SpotURL:    "https://api.mexc.com/api/v3",
			FuturesURL: "https://contract.mexc.com/api/v1",
		},
		"bitget": {
			Enabled:    true,
			SpotURL:    "https://api.bitget.com/api/spot/v1",
			FuturesURL: "https://api.bitget.com/api/mix/v1",
		},
		"gateio": {
			Enabled:    true,
			SpotURL:    "https://api.gateio.ws/api/v4/spot",
			FuturesURL: "https://api.gateio.ws/api/v4/futures/usdt",
		},
		"kucoin": {
			Enabled:    true,
			SpotURL:    "https://api.kucoin.com/api/v1",
			FuturesURL: "https://api-futures.kucoin.com/api/v1",
		},
	}
}

func validate(cfg *Config) error {
	enabled := 0
	for name, ec := range cfg.Exchanges {
		if !ec.Enabled {
			continue
		}
		enabled++
		if strings.TrimSpace(ec.SpotURL) == "" {
			return fmt.Errorf("exchange.%s.spot_url empty but enabled", name)
		}
	}
	if enabled == 0 {
		return errors.New("no exchange enabled")
	}
	return nil
}

// GetEnabledExchanges returns the enabled exchange names in stable order.
func (c *Config) GetEnabledExchanges() []string {
	out := make([]string, 0, len(c.Exchanges))
	for name, ec := range c.Exchanges {
		if ec.Enabled {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func (c *Config) ScanEvery() time.Duration {
	return time.Duration(c.App.ScanEverySec) * time.Second
}

func (c *Config) PushEvery() time.Duration {
	return time.Duration(c.App.PushEverySec) * time.Second
}

func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Arbitrage.FetchTimeoutSec) * time.Second
}
