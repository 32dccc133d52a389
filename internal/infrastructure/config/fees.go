package config

// FeeSet 单个市场类型的费率（百分比）
type FeeSet struct {
	Maker      float64 `toml:"maker" json:"maker"`
	Taker      float64 `toml:"taker" json:"taker"`
	TradingFee float64 `toml:"trading_fee" json:"tradingFee"`
}

// FeeTable 一个交易所的现货/合约费率表
type FeeTable struct {
	Spot    FeeSet `toml:"spot" json:"spot"`
	Futures FeeSet `toml:"futures" json:"futures"`
}

// DefaultFees 各交易所默认费率
func DefaultFees() map[string]FeeTable {
	return map[string]FeeTable{
		"binance": {
			Spot:    FeeSet{Maker: 0.1, Taker: 0.1, TradingFee: 0.1},
			Futures: FeeSet{Maker: 0.02, Taker: 0.04, TradingFee: 0.04},
		},
		"mexc": {
			Spot:    FeeSet{Maker: 0.2, Taker: 0.2, TradingFee: 0.2},
			Futures: FeeSet{Maker: 0.02, Taker: 0.05, TradingFee: 0.05},
		},
		"kucoin": {
			Spot:    FeeSet{Maker: 0.1, Taker: 0.1, TradingFee: 0.1},
			Futures: FeeSet{Maker: 0.02, Taker: 0.05, TradingFee: 0.05},
		},
		"gateio": {
			Spot:    FeeSet{Maker: 0.2, Taker: 0.2, TradingFee: 0.2},
			Futures: FeeSet{Maker: 0.025, Taker: 0.055, TradingFee: 0.055},
		},
		"bitget": {
			Spot:    FeeSet{Maker: 0.1, Taker: 0.1, TradingFee: 0.1},
			Futures: FeeSet{Maker: 0.02, Taker: 0.05, TradingFee: 0.05},
		},
	}
}
