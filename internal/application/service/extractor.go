package service

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"arbscan/internal/domain/model"
)

// FieldMap 单个交易所的原始字段映射
type FieldMap struct {
	FuturesSymbol   string   // field carrying the futures contract symbol
	FuturesPrice    []string // ordered price field candidates
	Liquidity       []string // ordered 24h quote-volume field candidates
	FuturesSuffixes []string // contract suffixes stripped before normalization
}

// DefaultFieldMaps 各交易所字段命名（确实各不相同）
func DefaultFieldMaps() map[string]FieldMap {
	return map[string]FieldMap{
		"binance": {
			FuturesSymbol: "symbol",
			FuturesPrice:  []string{"last", "lastPrice"},
			Liquidity:     []string{"quoteVolume"},
		},
		"mexc": {
			FuturesSymbol: "symbol",
			FuturesPrice:  []string{"last", "lastPrice"},
			Liquidity:     []string{"amount24"},
		},
		"bitget": {
			FuturesSymbol:   "symbol",
			FuturesPrice:    []string{"last", "lastPrice"},
			Liquidity:       []string{"quoteVolume"},
			FuturesSuffixes: []string{"_UMCBL", "_DMCBL", "_CMCBL"},
		},
		"gateio": {
			FuturesSymbol:   "contract",
			FuturesPrice:    []string{"last"},
			Liquidity:       []string{"volume_24h_quote"},
			FuturesSuffixes: []string{"_UMCBL", "_DMCBL", "_CMCBL"},
		},
		"kucoin": {
			FuturesSymbol:   "symbol",
			FuturesPrice:    []string{"price"},
			Liquidity:       []string{"quoteVolume", "volume"},
			FuturesSuffixes: []string{"M"},
		},
	}
}

// Extractor absorbs per-exchange field naming and coerces raw values into a
// canonical price/liquidity pair. Missing or unparseable numerics become NaN
// (price) or 0 (liquidity), never a panic; the matcher drops non-finite
// prices.
type Extractor struct {
	fields map[string]FieldMap
}

// NewExtractor creates an extractor; a nil map uses DefaultFieldMaps.
func NewExtractor(fields map[string]FieldMap) *Extractor {
	if len(fields) == 0 {
		fields = DefaultFieldMaps()
	}
	byEx := make(map[string]FieldMap, len(fields))
	for ex, fm := range fields {
		byEx[strings.ToLower(strings.TrimSpace(ex))] = fm
	}
	return &Extractor{fields: byEx}
}

// SpotSymbol 现货符号字段在各所基本一致
func (e *Extractor) SpotSymbol(rec model.RawTicker) string {
	return asString(rec["symbol"])
}

// SpotPrice probes the reasonably uniform spot price fields.
func (e *Extractor) SpotPrice(rec model.RawTicker) float64 {
	for _, f := range []string{"price", "lastPrice", "last"} {
		if v, ok := rec[f]; ok {
			return asFloat(v)
		}
	}
	return math.NaN()
}

// FuturesSymbol extracts the contract symbol for an exchange's futures record.
func (e *Extractor) FuturesSymbol(exchange string, rec model.RawTicker) string {
	fm, ok := e.fields[strings.ToLower(exchange)]
	if !ok {
		return asString(rec["symbol"])
	}
	return asString(rec[fm.FuturesSymbol])
}

// FuturesPrice extracts the futures price, probing the exchange's candidate
// fields in order.
func (e *Extractor) FuturesPrice(exchange string, rec model.RawTicker) float64 {
	fm, ok := e.fields[strings.ToLower(exchange)]
	if !ok {
		return math.NaN()
	}
	for _, f := range fm.FuturesPrice {
		if v, present := rec[f]; present {
			return asFloat(v)
		}
	}
	return math.NaN()
}

// Liquidity extracts the 24h quote-volume proxy. Unknown exchanges and
// unparseable values yield 0.
func (e *Extractor) Liquidity(exchange string, rec model.RawTicker, _ model.MarketType) float64 {
	fm, ok := e.fields[strings.ToLower(exchange)]
	if !ok {
		return 0
	}
	for _, f := range fm.Liquidity {
		if v, present := rec[f]; present {
			n := asFloat(v)
			if math.IsNaN(n) || n < 0 {
				continue
			}
			return n
		}
	}
	return 0
}

// StripFuturesSuffix removes the exchange's futures-only contract suffix
// (gateio/bitget _UMCBL family, kucoin single trailing M). Must run before
// symbol normalization.
func (e *Extractor) StripFuturesSuffix(exchange, raw string) string {
	fm, ok := e.fields[strings.ToLower(strings.TrimSpace(exchange))]
	if !ok {
		return raw
	}
	for _, suf := range fm.FuturesSuffixes {
		if strings.HasSuffix(strings.ToUpper(raw), suf) {
			return raw[:len(raw)-len(suf)]
		}
	}
	return raw
}

func asString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}
