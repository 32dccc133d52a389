package storage

import (
	"context"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"arbscan/internal/application/port"
	"arbscan/internal/domain/model"
	"arbscan/internal/infrastructure/config"
	"arbscan/internal/infrastructure/storage/composite"
	"arbscan/internal/infrastructure/storage/postgres"
	"arbscan/internal/infrastructure/storage/redis"
	"arbscan/internal/infrastructure/storage/sqlite"
)

// Open builds the persistence stack from config. Backends are optional and
// independent; any subset may be enabled. With nothing configured the scanner
// runs purely in memory.
func Open(cfg config.StorageConfig) (port.Repository, error) {
	var repos []port.Repository

	if p := strings.TrimSpace(cfg.SQLitePath); p != "" {
		r, err := sqlite.New(p)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", p).Msg("sqlite storage enabled")
		repos = append(repos, r)
	}

	if dsn := strings.TrimSpace(cfg.PostgresDSN); dsn != "" {
		r, err := postgres.New(dsn)
		if err != nil {
			return nil, err
		}
		log.Info().Msg("postgres storage enabled")
		repos = append(repos, r)
	}

	if addr := strings.TrimSpace(cfg.RedisAddr); addr != "" {
		rdb := goredis.NewClient(&goredis.Options{Addr: addr})
		prefix := cfg.RedisPrefix
		if prefix == "" {
			prefix = "arbscan"
		}
		repos = append(repos, redis.New(rdb, prefix, 24*time.Hour, "", ""))
		log.Info().Str("addr", addr).Str("prefix", prefix).Msg("redis storage enabled")
	}

	if len(repos) == 0 {
		log.Info().Msg("no storage configured, running in memory")
		return NewMemoryRepo(), nil
	}
	return composite.New(repos...), nil
}

type priceKey struct {
	Exchange string
	Symbol   string
	Market   model.MarketType
}

// MemoryRepo keeps everything in process memory. Used when no backend is
// configured and as the repository double in tests.
type MemoryRepo struct {
	mu        sync.Mutex
	prices    map[priceKey]float64
	opps      []*model.Opportunity
	snapshots []string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{prices: make(map[priceKey]float64)}
}

func (m *MemoryRepo) UpsertLatestPrice(ctx context.Context, ex, symbol string, market model.MarketType, price float64, ts int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[priceKey{Exchange: ex, Symbol: symbol, Market: market}] = price
	return nil
}

func (m *MemoryRepo) InsertOpportunities(ctx context.Context, ts int64, opps []*model.Opportunity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range opps {
		if o != nil {
			m.opps = append(m.opps, o.Clone())
		}
	}
	return nil
}

func (m *MemoryRepo) InsertScanSnapshot(ctx context.Context, ts int64, payload string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = append(m.snapshots, payload)
	return nil
}

func (m *MemoryRepo) Close() error { return nil }

// LatestPrice reports the stored price for a key; test helper.
func (m *MemoryRepo) LatestPrice(ex, symbol string, market model.MarketType) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prices[priceKey{Exchange: ex, Symbol: symbol, Market: market}]
	return p, ok
}

// OpportunityCount reports how many opportunity rows were inserted.
func (m *MemoryRepo) OpportunityCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.opps)
}

// SnapshotCount reports how many scan snapshots were inserted.
func (m *MemoryRepo) SnapshotCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.snapshots)
}

var _ port.Repository = (*MemoryRepo)(nil)
