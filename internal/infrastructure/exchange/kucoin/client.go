package kucoin

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
	exchange.Register("kucoin", func(cfg config.ExchangeConfig) port.TickerSource {
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

func (c *Client) Name() string { return "kucoin" }

type allTickers struct {
	Code string `json:"code"`
	Data struct {
		Time   int64             `json:"time"`
		Ticker []model.RawTicker `json:"ticker"`
	} `json:"data"`
}

// FetchSpot returns spot tickers (symbols keep the BTC-USDT dash for the
// normalizer). volValue is the 24h quote turnover.
func (c *Client) FetchSpot(ctx context.Context) ([]model.RawTicker, error) {
	var resp allTickers
	if err := c.hc.GetJSON(ctx, c.spotURL+"/market/allTickers", &resp); err != nil {
		return nil, fmt.Errorf("kucoin spot tickers: %w", err)
	}
	if resp.Code != "200000" {
		return nil, fmt.Errorf("kucoin spot tickers: code %s", resp.Code)
	}

	out := make([]model.RawTicker, 0, len(resp.Data.Ticker))
	for _, item := range resp.Data.Ticker {
		out = append(out, model.RawTicker{
			"symbol":      item["symbol"],
			"price":       item["last"],
			"quoteVolume": item["volValue"],
			"volume":      item["vol"],
		})
	}
	return out, nil
}

type activeContracts struct {
	Code string            `json:"code"`
	Data []model.RawTicker `json:"data"`
}

// FetchFutures returns the active contract list. Contract symbols carry the
// trailing M (XBTUSDTM); the extractor strips it before normalization.
func (c *Client) FetchFutures(ctx context.Context) ([]model.RawTicker, error) {
	var resp activeContracts
	if err := c.hc.GetJSON(ctx, c.futuresURL+"/contracts/active", &resp); err != nil {
		return nil, fmt.Errorf("kucoin futures contracts: %w", err)
	}
	if resp.Code != "200000" {
		return nil, fmt.Errorf("kucoin futures contracts: code %s", resp.Code)
	}

	out := make([]model.RawTicker, 0, len(resp.Data))
	for _, item := range resp.Data {
		out = append(out, model.RawTicker{
			"symbol":      item["symbol"],
			"price":       firstOf(item, "markPrice", "lastTradePrice"),
			"quoteVolume": item["turnoverOf24h"],
			"volume":      item["volumeOf24h"],
		})
	}
	return out, nil
}

func (c *Client) FetchTicker(ctx context.Context, symbol string) (model.RawTicker, error) {
	var resp struct {
		Code string          `json:"code"`
		Data model.RawTicker `json:"data"`
	}
	u := c.spotURL + "/market/stats?symbol=" + url.QueryEscape(symbol)
	if err := c.hc.GetJSON(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("kucoin ticker %s: %w", symbol, err)
	}
	if resp.Code != "200000" {
		return nil, fmt.Errorf("kucoin ticker %s: code %s", symbol, resp.Code)
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
