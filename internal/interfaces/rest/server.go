package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"arbscan/internal/application/port"
	"arbscan/internal/application/service"
	"arbscan/internal/infrastructure/config"
)

// Server exposes the scanner over HTTP: raw per-exchange tickers, the
// installed opportunity set, and static fee tables.
type Server struct {
	engine  *service.Engine
	sources map[string]port.TickerSource
	fees    map[string]config.FeeTable
	timeout time.Duration
	ws      http.Handler
	mux     *http.ServeMux
}

func NewServer(engine *service.Engine, sources map[string]port.TickerSource, fees map[string]config.FeeTable, fetchTimeout time.Duration, wsHandler http.Handler) *Server {
	s := &Server{
		engine:  engine,
		sources: sources,
		fees:    fees,
		timeout: fetchTimeout,
		ws:      wsHandler,
	}
	s.mux = http.NewServeMux()
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleStatus)
	s.mux.HandleFunc("GET /api/opportunities", s.handleOpportunities)
	s.mux.HandleFunc("GET /api/{exchange}/spot/prices", s.handleSpotPrices)
	s.mux.HandleFunc("GET /api/{exchange}/futures/prices", s.handleFuturesPrices)
	s.mux.HandleFunc("GET /api/{exchange}/ticker/{symbol}", s.handleTicker)
	s.mux.HandleFunc("GET /api/{exchange}/fees", s.handleFees)
	s.mux.HandleFunc("GET /api/{exchange}/fees/{market}", s.handleFees)
	if s.ws != nil {
		s.mux.Handle("GET /ws", s.ws)
	}
}

func (s *Server) Handler() http.Handler { return s.mux }

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":       "ok",
		"exchanges":    s.engine.Exchanges(),
		"last_scan_ms": s.engine.LastScan(),
		"ts_ms":        time.Now().UnixMilli(),
	}
	if counter, ok := s.ws.(interface{ ClientCount() int }); ok {
		body["ws_clients"] = counter.ClientCount()
	}
	writeJSON(w, http.StatusOK, body)
}

// handleOpportunities returns the installed set; an empty set is 200 with an
// empty array, never an error.
func (s *Server) handleOpportunities(w http.ResponseWriter, r *http.Request) {
	opps := s.engine.Snapshot()
	if opps == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, opps)
}

func (s *Server) handleSpotPrices(w http.ResponseWriter, r *http.Request) {
	src, ok := s.source(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown exchange")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	raws, err := src.FetchSpot(ctx)
	if err != nil {
		log.Warn().Err(err).Str("exchange", src.Name()).Msg("spot prices fetch failed")
		writeError(w, http.StatusServiceUnavailable, "upstream fetch failed")
		return
	}
	writeJSON(w, http.StatusOK, raws)
}

func (s *Server) handleFuturesPrices(w http.ResponseWriter, r *http.Request) {
	src, ok := s.source(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown exchange")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	raws, err := src.FetchFutures(ctx)
	if err != nil {
		log.Warn().Err(err).Str("exchange", src.Name()).Msg("futures prices fetch failed")
		writeError(w, http.StatusServiceUnavailable, "upstream fetch failed")
		return
	}
	writeJSON(w, http.StatusOK, raws)
}

func (s *Server) handleTicker(w http.ResponseWriter, r *http.Request) {
	src, ok := s.source(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown exchange")
		return
	}
	symbol := strings.TrimSpace(r.PathValue("symbol"))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol required")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	rec, err := src.FetchTicker(ctx, symbol)
	if err != nil {
		log.Warn().Err(err).Str("exchange", src.Name()).Str("symbol", symbol).Msg("ticker fetch failed")
		writeError(w, http.StatusServiceUnavailable, "upstream fetch failed")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleFees serves the static fee table. A trailing /spot or /futures path
// segment (or ?type=) narrows to one market.
func (s *Server) handleFees(w http.ResponseWriter, r *http.Request) {
	ex := strings.ToLower(strings.TrimSpace(r.PathValue("exchange")))
	table, ok := s.fees[ex]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown exchange")
		return
	}
	market := r.PathValue("market")
	if market == "" {
		market = r.URL.Query().Get("type")
	}
	switch market {
	case "":
		writeJSON(w, http.StatusOK, table)
	case "spot":
		writeJSON(w, http.StatusOK, table.Spot)
	case "futures":
		writeJSON(w, http.StatusOK, table.Futures)
	default:
		writeError(w, http.StatusBadRequest, "type must be spot or futures")
	}
}

func (s *Server) source(r *http.Request) (port.TickerSource, bool) {
	ex := strings.ToLower(strings.TrimSpace(r.PathValue("exchange")))
	src, ok := s.sources[ex]
	return src, ok
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("json encode failed")
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
