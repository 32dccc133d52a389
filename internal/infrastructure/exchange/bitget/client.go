package bitget

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
	exchange.Register("bitget", func(cfg config.ExchangeConfig) port.TickerSource {
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

func (c *Client) Name() string { return "bitget" }

type envelope struct {
	Code string            `json:"code"`
	Msg  string            `json:"msg"`
	Data []model.RawTicker `json:"data"`
}

// FetchSpot returns spot tickers reshaped to the common symbol/price naming
// (Bitget reports the spot close under "close" and quote volume under
// "quoteVol"/"usdtVol").
func (c *Client) FetchSpot(ctx context.Context) ([]model.RawTicker, error) {
	var resp envelope
	if err := c.hc.GetJSON(ctx, c.spotURL+"/market/tickers", &resp); err != nil {
		return nil, fmt.Errorf("bitget spot tickers: %w", err)
	}
	if resp.Code != "00000" {
		return nil, fmt.Errorf("bitget spot tickers: code %s msg %s", resp.Code, resp.Msg)
	}

	out := make([]model.RawTicker, 0, len(resp.Data))
	for _, item := range resp.Data {
		sym, _ := item["symbol"].(string)
		rec := model.RawTicker{
			"symbol":      strings.ReplaceAll(sym, "_", ""),
			"price":       item["close"],
			"quoteVolume": firstOf(item, "usdtVol", "quoteVol"),
		}
		out = append(out, rec)
	}
	return out, nil
}

// FetchFutures returns USDT-margined contract tickers. Symbols keep the raw
// _UMCBL suffix; the extractor strips it before normalization.
func (c *Client) FetchFutures(ctx context.Context) ([]model.RawTicker, error) {
	var resp envelope
	u := c.futuresURL + "/market/tickers?productType=umcbl"
	if err := c.hc.GetJSON(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("bitget futures tickers: %w", err)
	}
	if resp.Code != "00000" {
		return nil, fmt.Errorf("bitget futures tickers: code %s msg %s", resp.Code, resp.Msg)
	}

	out := make([]model.RawTicker, 0, len(resp.Data))
	for _, item := range resp.Data {
		out = append(out, model.RawTicker{
			"symbol":      item["symbol"],
			"last":        item["last"],
			"quoteVolume": firstOf(item, "usdtVolume", "quoteVolume"),
			"volume":      item["baseVolume"],
		})
	}
	return out, nil
}

func (c *Client) FetchTicker(ctx context.Context, symbol string) (model.RawTicker, error) {
	var resp struct {
		Code string          `json:"code"`
		Msg  string          `json:"msg"`
		Data model.RawTicker `json:"data"`
	}
	u := c.spotURL + "/market/ticker?symbol=" + url.QueryEscape(symbol)
	if err := c.hc.GetJSON(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("bitget ticker %s: %w", symbol, err)
	}
	if resp.Code != "00000" {
		return nil, fmt.Errorf("bitget ticker %s: code %s msg %s", symbol, resp.Code, resp.Msg)
	}
	return resp.Data, nil
}

func firstOf(rec model.RawTicker, fields ...string) any {
	for _, f := range fields {
		if v, ok := rec[f]; ok && v != nil {
			return v
		}
	}
	return nil
}
