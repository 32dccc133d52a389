package binance

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"arbscan/internal/application/port"
	"arbscan/internal/domain/model"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// TickerFeed streams spot mini-ticker updates from the all-market stream and
// batches them into instrument slices for the updater.
type TickerFeed struct {
	wsURL string // e.g. wss://stream.binance.com:9443
}

func NewTickerFeed(wsURL string) *TickerFeed {
	return &TickerFeed{wsURL: strings.TrimSpace(wsURL)}
}

var _ port.LiveFeed = (*TickerFeed)(nil)

func (f *TickerFeed) Name() string { return "binance" }

type miniTicker struct {
	Symbol      string `json:"s"`
	Close       string `json:"c"`
	QuoteVolume string `json:"q"`
}

func (f *TickerFeed) Subscribe(ctx context.Context) (<-chan []model.Instrument, error) {
	wsURL, err := buildStreamURL(f.wsURL)
	if err != nil {
		return nil, err
	}

	out := make(chan []model.Instrument, 64)
	go f.run(ctx, wsURL, out)
	return out, nil
}

func buildStreamURL(base string) (string, error) {
	if base == "" {
		return "", errors.New("binance ws url empty")
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	u.Path = "/ws/!miniTicker@arr"
	return u.String(), nil
}

func (f *TickerFeed) run(ctx context.Context, wsURL string, out chan<- []model.Instrument) {
	defer close(out)

	backoff := 500 * time.Millisecond
	maxBackoff := 10 * time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		log.Warn().Str("feed", f.Name()).Str("url", wsURL).Msg("ws connecting")
		cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		conn, _, err := websocket.DefaultDialer.DialContext(cctx, wsURL, nil)
		cancel()
		if err != nil {
			log.Error().Str("feed", f.Name()).Err(err).Msg("ws dial failed")
			time.Sleep(backoff)
			backoff = minDur(backoff*2, maxBackoff)
			continue
		}

		backoff = 500 * time.Millisecond
		log.Info().Str("feed", f.Name()).Msg("ws connected")

		err = readLoop(ctx, conn, func(b []byte) {
			var msgs []miniTicker
			if e := json.Unmarshal(b, &msgs); e != nil {
				log.Error().Str("feed", f.Name()).Err(e).Msg("json unmarshal failed")
				return
			}
			batch := make([]model.Instrument, 0, len(msgs))
			for _, m := range msgs {
				sym := strings.ToUpper(strings.TrimSpace(m.Symbol))
				px, perr := strconv.ParseFloat(strings.TrimSpace(m.Close), 64)
				if sym == "" || perr != nil || !model.ValidPrice(px) {
					continue
				}
				liq, _ := strconv.ParseFloat(strings.TrimSpace(m.QuoteVolume), 64)
				batch = append(batch, model.Instrument{
					Exchange:  f.Name(),
					Market:    model.MarketSpot,
					Symbol:    sym,
					Price:     px,
					Liquidity: liq,
				})
			}
			if len(batch) == 0 {
				return
			}
			select {
			case out <- batch:
			default:
				// 消费者落后时丢弃本批，下一批会带来更新的价格
				log.Debug().Str("feed", f.Name()).Int("size", len(batch)).Msg("push batch dropped")
			}
		})

		_ = conn.Close()

		if ctx.Err() != nil {
			return
		}

		log.Warn().Str("feed", f.Name()).Err(err).Msg("ws disconnected, reconnecting")
		time.Sleep(backoff)
		backoff = minDur(backoff*2, maxBackoff)
	}
}

func readLoop(ctx context.Context, conn *websocket.Conn, onMsg func([]byte)) error {
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	pingTicker := time.NewTicker(25 * time.Second)
	defer pingTicker.Stop()

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		for {
			_, b, err := conn.ReadMessage()
			if err == nil {
				_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			}
			if err != nil {
				errCh <- err
				return
			}
			onMsg(b)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return err
		case <-pingTicker.C:
			_ = conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second))
		}
	}
}

func minDur(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
