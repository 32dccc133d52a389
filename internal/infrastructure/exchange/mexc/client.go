package mexc

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
	exchange.Register("mexc", func(cfg config.ExchangeConfig) port.TickerSource {
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

func (c *Client) Name() string { return "mexc" }

func (c *Client) FetchSpot(ctx context.Context) ([]model.RawTicker, error) {
	var out []model.RawTicker
	if err := c.hc.GetJSON(ctx, c.spotURL+"/ticker/price", &out); err != nil {
		return nil, fmt.Errorf("mexc spot tickers: %w", err)
	}
	return out, nil
}

// contract API wraps the list in a success/data envelope
type contractTickers struct {
	Success bool              `json:"success"`
	Code    int               `json:"code"`
	Data    []model.RawTicker `json:"data"`
}

// FetchFutures returns the perpetual contract tickers. Records carry
// lastPrice and amount24 (24h quote turnover) in MEXC naming.
func (c *Client) FetchFutures(ctx context.Context) ([]model.RawTicker, error) {
	var resp contractTickers
	if err := c.hc.GetJSON(ctx, c.futuresURL+"/contract/ticker", &resp); err != nil {
		return nil, fmt.Errorf("mexc contract tickers: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("mexc contract tickers: code %d", resp.Code)
	}
	return resp.Data, nil
}

func (c *Client) FetchTicker(ctx context.Context, symbol string) (model.RawTicker, error) {
	var rec model.RawTicker
	u := c.spotURL + "/ticker/24hr?symbol=" + url.QueryEscape(symbol)
	if err := c.hc.GetJSON(ctx, u, &rec); err != nil {
		return nil, fmt.Errorf("mexc ticker %s: %w", symbol, err)
	}
	return rec, nil
}
