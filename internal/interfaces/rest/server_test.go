package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"arbscan/internal/application/port"
	"arbscan/internal/application/service"
	"arbscan/internal/domain/model"
	"arbscan/internal/domain/symbol"
	"arbscan/internal/infrastructure/config"
)

type stubSource struct {
	name    string
	spot    []model.RawTicker
	futures []model.RawTicker
	ticker  model.RawTicker
	err     error
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) FetchSpot(ctx context.Context) ([]model.RawTicker, error) {
	return s.spot, s.err
}

func (s *stubSource) FetchFutures(ctx context.Context) ([]model.RawTicker, error) {
	return s.futures, s.err
}

func (s *stubSource) FetchTicker(ctx context.Context, symbol string) (model.RawTicker, error) {
	return s.ticker, s.err
}

func newTestServer(sources map[string]port.TickerSource) *Server {
	norm := symbol.NewNormalizer(nil)
	ext := service.NewExtractor(nil)
	engine := service.NewEngine(service.EngineDeps{
		Sources:      sources,
		Normalizer:   norm,
		Extractor:    ext,
		Matcher:      service.NewMatcher(0.001),
		Updater:      service.NewUpdater(norm, ext),
		ScanEvery:    time.Hour,
		FetchTimeout: time.Second,
	})
	return NewServer(engine, sources, config.DefaultFees(), time.Second, nil)
}

func TestStatusEndpoint(t *testing.T) {
	srv := newTestServer(map[string]port.TickerSource{
		"binance": &stubSource{name: "binance"},
	})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v", body["status"])
	}
}

// TestOpportunitiesEmpty 空集返回 200 与空数组
func TestOpportunitiesEmpty(t *testing.T) {
	srv := newTestServer(map[string]port.TickerSource{
		"binance": &stubSource{name: "binance"},
	})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/opportunities", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body []any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("expected json array, got %q: %v", rec.Body.String(), err)
	}
	if len(body) != 0 {
		t.Errorf("expected empty array, got %v", body)
	}
}

func TestSpotPrices(t *testing.T) {
	srv := newTestServer(map[string]port.TickerSource{
		"binance": &stubSource{
			name: "binance",
			spot: []model.RawTicker{{"symbol": "BTCUSDT", "price": "100"}},
		},
	})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/binance/spot/prices", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body []model.RawTicker
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(body) != 1 || body[0]["symbol"] != "BTCUSDT" {
		t.Errorf("unexpected body: %v", body)
	}
}

// TestUpstreamFailureIs503 上游失败与空结果要区分：失败 503，空 200
func TestUpstreamFailureIs503(t *testing.T) {
	srv := newTestServer(map[string]port.TickerSource{
		"binance": &stubSource{name: "binance", err: errors.New("boom")},
	})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/binance/spot/prices", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("failed fetch status = %d, want 503", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/binance/futures/prices", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("failed futures fetch status = %d, want 503", rec.Code)
	}
}

func TestEmptyUpstreamIs200(t *testing.T) {
	srv := newTestServer(map[string]port.TickerSource{
		"binance": &stubSource{name: "binance", spot: []model.RawTicker{}},
	})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/binance/spot/prices", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("empty fetch status = %d, want 200", rec.Code)
	}
}

func TestUnknownExchangeIs404(t *testing.T) {
	srv := newTestServer(map[string]port.TickerSource{
		"binance": &stubSource{name: "binance"},
	})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/nope/spot/prices", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown exchange status = %d, want 404", rec.Code)
	}
}

func TestTickerEndpoint(t *testing.T) {
	srv := newTestServer(map[string]port.TickerSource{
		"kucoin": &stubSource{
			name:   "kucoin",
			ticker: model.RawTicker{"symbol": "BTC-USDT", "last": "100"},
		},
	})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/kucoin/ticker/BTC-USDT", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body model.RawTicker
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body["symbol"] != "BTC-USDT" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestFeesEndpoint(t *testing.T) {
	srv := newTestServer(map[string]port.TickerSource{
		"binance": &stubSource{name: "binance"},
	})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/binance/fees", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var table config.FeeTable
	if err := json.Unmarshal(rec.Body.Bytes(), &table); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if table.Spot.Taker != 0.1 {
		t.Errorf("binance spot taker = %v", table.Spot.Taker)
	}

	// narrowed to one market type
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/binance/fees?type=futures", nil))
	var set config.FeeSet
	if err := json.Unmarshal(rec.Body.Bytes(), &set); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if set.Taker != 0.04 {
		t.Errorf("binance futures taker = %v", set.Taker)
	}

	// path-segment form is equivalent
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/binance/fees/spot", nil))
	if err := json.Unmarshal(rec.Body.Bytes(), &set); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if set.Taker != 0.1 {
		t.Errorf("binance spot taker = %v", set.Taker)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/binance/fees?type=nope", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad type status = %d, want 400", rec.Code)
	}
}
