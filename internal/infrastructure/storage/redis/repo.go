package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"arbscan/internal/application/port"
	"arbscan/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

type Repo struct {
	rdb       *redis.Client
	prefix    string
	ttl       time.Duration
	keyLatest string // prefix + ":latest"
	oppStream string
	oppChan   string
}

type LatestPrice struct {
	Exchange string  `json:"exchange"`
	Symbol   string  `json:"symbol"`
	Market   string  `json:"market"`
	Price    float64 `json:"price"`
	Ts       int64   `json:"ts"`
}

func New(rdb *redis.Client, prefix string, ttl time.Duration, oppStream, oppChan string) *Repo {
	if strings.TrimSpace(oppStream) == "" {
		oppStream = prefix + ":opportunities"
	}
	if strings.TrimSpace(oppChan) == "" {
		oppChan = prefix + ":opportunities:pub"
	}
	return &Repo{
		rdb:       rdb,
		prefix:    prefix,
		ttl:       ttl,
		keyLatest: prefix + ":latest",
		oppStream: oppStream,
		oppChan:   oppChan,
	}
}

func (r *Repo) UpsertLatestPrice(ctx context.Context, ex, symbol string, market model.MarketType, price float64, ts int64) error {
	if price <= 0 {
		return nil
	}
	lp := LatestPrice{Exchange: ex, Symbol: symbol, Market: string(market), Price: price, Ts: ts}
	b, _ := json.Marshal(lp)

	// Hash: field = "binance:BTCUSDT:spot" -> json
	field := fmt.Sprintf("%s:%s:%s", ex, symbol, market)
	pipe := r.rdb.Pipeline()
	pipe.HSet(ctx, r.keyLatest, field, string(b))
	if r.ttl > 0 {
		pipe.Expire(ctx, r.keyLatest, r.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *Repo) InsertOpportunities(ctx context.Context, ts int64, opps []*model.Opportunity) error {
	if len(opps) == 0 {
		return nil
	}
	pipe := r.rdb.Pipeline()
	for _, o := range opps {
		if o == nil {
			continue
		}
		b, _ := json.Marshal(o)
		// 1) Stream: XADD <stream> * ts id payload
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: r.oppStream,
			Values: map[string]any{
				"ts_ms":   ts,
				"id":      o.ID,
				"payload": string(b),
			},
		})
		// 2) PubSub: PUBLISH <channel> json
		pipe.Publish(ctx, r.oppChan, string(b))
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *Repo) InsertScanSnapshot(ctx context.Context, ts int64, payload string) error {
	// snapshots belong in sql storage; redis only carries hot data
	return nil
}

func (r *Repo) Close() error { return r.rdb.Close() }

var _ port.Repository = (*Repo)(nil)
