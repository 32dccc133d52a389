package model

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// MarketType 市场类型
type MarketType string

const (
	MarketSpot    MarketType = "spot"
	MarketFutures MarketType = "futures"
)

// PairType 机会类型：现货-现货 或 现货-合约
type PairType string

const (
	PairSpotSpot    PairType = "spot-spot"
	PairSpotFutures PairType = "spot-futures"
)

// RawTicker 交易所原始 ticker 数据（各交易所字段命名不同，保持原样）
// 只在一个抓取周期内存在，不做持久化
type RawTicker map[string]any

// Instrument 单个交易所、单个市场类型下的一条标准化报价
type Instrument struct {
	Exchange  string     `json:"exchangeId"`
	Market    MarketType `json:"type"`
	Symbol    string     `json:"symbol"` // canonical, e.g. BTCUSDT
	Price     float64    `json:"price"`
	Liquidity float64    `json:"liquidity"`
}

// Opportunity 跨所/跨市场价差套利机会
type Opportunity struct {
	ID         string   `json:"id"`
	Symbol     string   `json:"symbol"`
	Exchange1  string   `json:"exchange1"` // spot side
	Exchange2  string   `json:"exchange2"` // spot or futures side, see Type
	Type       PairType `json:"type"`
	Price1     float64  `json:"price1"`
	Price2     float64  `json:"price2"`
	Liquidity1 float64  `json:"liquidity1"`
	Liquidity2 float64  `json:"liquidity2"`
	Profit     float64  `json:"profit"` // percent spread
	Timestamp  int64    `json:"ts_ms"`
}

// OpportunityID builds the deterministic key for an exchange pair, symbol and
// pair type. The exchange pair is unordered so both scan directions map to the
// same key.
func OpportunityID(ex1, ex2, symbol string, pt PairType) string {
	pair := []string{strings.ToLower(ex1), strings.ToLower(ex2)}
	sort.Strings(pair)
	return fmt.Sprintf("%s_%s_%s_%s", pair[0], pair[1], symbol, pt)
}

// Profit 对称价差百分比：(max/min - 1) * 100
// 两个价格必须是有限正数，否则返回 NaN
func Profit(p1, p2 float64) float64 {
	if !validPrice(p1) || !validPrice(p2) {
		return math.NaN()
	}
	hi, lo := p1, p2
	if p2 > p1 {
		hi, lo = p2, p1
	}
	return (hi/lo - 1) * 100
}

func validPrice(p float64) bool {
	return p > 0 && !math.IsInf(p, 0) && !math.IsNaN(p)
}

// ValidPrice reports whether p is a finite positive price.
func ValidPrice(p float64) bool { return validPrice(p) }

// Clone returns a copy of the opportunity. The updater swaps whole entries
// rather than mutating fields of an installed one.
func (o *Opportunity) Clone() *Opportunity {
	c := *o
	return &c
}
