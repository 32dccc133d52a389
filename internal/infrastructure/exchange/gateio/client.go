package gateio

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
	exchange.Register("gateio", func(cfg config.ExchangeConfig) port.TickerSource {
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

func (c *Client) Name() string { return "gateio" }

// FetchSpot returns spot tickers. Gate reports the pair under
// "currency_pair" (BTC_USDT); reshape to the common symbol field but keep the
// underscore for the normalizer to strip.
func (c *Client) FetchSpot(ctx context.Context) ([]model.RawTicker, error) {
	var raw []model.RawTicker
	if err := c.hc.GetJSON(ctx, c.spotURL+"/tickers", &raw); err != nil {
		return nil, fmt.Errorf("gateio spot tickers: %w", err)
	}

	out := make([]model.RawTicker, 0, len(raw))
	for _, item := range raw {
		out = append(out, model.RawTicker{
			"symbol": item["currency_pair"],
			"price":  item["last"],
			"volume": firstOf(item, "base_volume", "quote_volume"),
		})
	}
	return out, nil
}

// FetchFutures returns USDT-settled perpetual tickers in Gate naming:
// the contract symbol lives under "contract", price under "last", quote
// turnover under "volume_24h_quote".
func (c *Client) FetchFutures(ctx context.Context) ([]model.RawTicker, error) {
	var out []model.RawTicker
	if err := c.hc.GetJSON(ctx, c.futuresURL+"/tickers", &out); err != nil {
		return nil, fmt.Errorf("gateio futures tickers: %w", err)
	}
	return out, nil
}

func (c *Client) FetchTicker(ctx context.Context, symbol string) (model.RawTicker, error) {
	var raw []model.RawTicker
	u := c.spotURL + "/tickers?currency_pair=" + url.QueryEscape(symbol)
	if err := c.hc.GetJSON(ctx, u, &raw); err != nil {
		return nil, fmt.Errorf("gateio ticker %s: %w", symbol, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("gateio ticker %s: not found", symbol)
	}
	return raw[0], nil
}

func firstOf(rec model.RawTicker, fields ...string) any {
	for _, f := range fields {
		if v, ok := rec[f]; ok && v != nil {
			return v
		}
	}
	return nil
}
