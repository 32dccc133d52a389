package binance

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"arbscan/internal/application/port"
	"arbscan/internal/domain/model"
	"arbscan/internal/infrastructure/config"
	"arbscan/internal/infrastructure/exchange"
)

func init() {
	exchange.Register("binance", func(cfg config.ExchangeConfig) port.TickerSource {
		return NewClient(cfg)
	})
}

type Client struct {
	spotURL    string
	futuresURL string
	hc         *exchange.HTTPClient
}

func NewClient(cfg config.ExchangeConfig) *Client {
	return &Client{
		spotURL:    strings.TrimRight(cfg.SpotURL, "/"),
		futuresURL: strings.TrimRight(cfg.FuturesURL, "/"),
		hc:         exchange.NewHTTPClient(0),
	}
}

func (c *Client) Name() string { return "binance" }

// FetchSpot returns the USDT-quoted spot ticker list.
func (c *Client) FetchSpot(ctx context.Context) ([]model.RawTicker, error) {
	var raw []model.RawTicker
	if err := c.hc.GetJSON(ctx, c.spotURL+"/ticker/price", &raw); err != nil {
		return nil, fmt.Errorf("binance spot tickers: %w", err)
	}

	out := make([]model.RawTicker, 0, len(raw))
	for _, item := range raw {
		sym, _ := item["symbol"].(string)
		if !strings.HasSuffix(sym, "USDT") {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

// FetchFutures merges the futures price list with the 24h book stats so each
// record carries last price and quote volume.
func (c *Client) FetchFutures(ctx context.Context) ([]model.RawTicker, error) {
	var prices []model.RawTicker
	if err := c.hc.GetJSON(ctx, c.futuresURL+"/ticker/price", &prices); err != nil {
		return nil, fmt.Errorf("binance futures prices: %w", err)
	}

	var books []model.RawTicker
	if err := c.hc.GetJSON(ctx, c.futuresURL+"/ticker/24hr", &books); err != nil {
		return nil, fmt.Errorf("binance futures books: %w", err)
	}

	bySymbol := make(map[string]model.RawTicker, len(books))
	for _, b := range books {
		if sym, ok := b["symbol"].(string); ok {
			bySymbol[sym] = b
		}
	}

	out := make([]model.RawTicker, 0, len(prices))
	for _, p := range prices {
		sym, _ := p["symbol"].(string)
		rec := model.RawTicker{
			"symbol": sym,
			"last":   p["price"],
		}
		if book, ok := bySymbol[sym]; ok {
			rec["lastPrice"] = book["lastPrice"]
			rec["volume"] = book["volume"]
			rec["quoteVolume"] = book["quoteVolume"]
			rec["priceChangePercent"] = book["priceChangePercent"]
		}
		out = append(out, rec)
	}
	return out, nil
}

// FetchTicker returns the 24h stats for one raw symbol.
func (c *Client) FetchTicker(ctx context.Context, symbol string) (model.RawTicker, error) {
	var rec model.RawTicker
	u := c.spotURL + "/ticker/24hr?symbol=" + url.QueryEscape(symbol)
	if err := c.hc.GetJSON(ctx, u, &rec); err != nil {
		return nil, fmt.Errorf("binance ticker %s: %w", symbol, err)
	}
	return rec, nil
}
