package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"arbscan/internal/application/port"
	"arbscan/internal/domain/model"
)

type Repo struct {
	db *sql.DB
}

func New(path string) (*Repo, error) {
	// ensure directory exists
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) GetDB() *sql.DB {
	return r.db
}

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS latest_prices (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  exchange TEXT NOT NULL,
  symbol TEXT NOT NULL,
  market TEXT NOT NULL,
  price REAL NOT NULL,
  ts_ms INTEGER NOT NULL,
  created_at INTEGER NOT NULL,
  UNIQUE(exchange, symbol, market)
);
CREATE INDEX IF NOT EXISTS idx_latest_ts ON latest_prices(ts_ms);
CREATE INDEX IF NOT EXISTS idx_latest_symbol ON latest_prices(symbol);

CREATE TABLE IF NOT EXISTS opportunities (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  opp_id TEXT NOT NULL,
  symbol TEXT NOT NULL,
  exchange1 TEXT NOT NULL,
  exchange2 TEXT NOT NULL,
  pair_type TEXT NOT NULL,
  price1 REAL NOT NULL,
  price2 REAL NOT NULL,
  liquidity1 REAL NOT NULL,
  liquidity2 REAL NOT NULL,
  profit_percent REAL NOT NULL,
  ts_ms INTEGER NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_opps_symbol ON opportunities(symbol);
CREATE INDEX IF NOT EXISTS idx_opps_ts ON opportunities(ts_ms);

CREATE TABLE IF NOT EXISTS scan_snapshots (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  ts_ms INTEGER NOT NULL,
  payload TEXT NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scan_snapshots_ts ON scan_snapshots(ts_ms);
`)
	return err
}

func (r *Repo) UpsertLatestPrice(ctx context.Context, ex, symbol string, market model.MarketType, price float64, ts int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO latest_prices(exchange, symbol, market, price, ts_ms, created_at)
		VALUES(?, ?, ?, ?, ?, ?)
		ON CONFLICT(exchange, symbol, market) DO UPDATE SET
		price=excluded.price, ts_ms=excluded.ts_ms
	`, ex, symbol, string(market), price, ts, ts)
	return err
}

func (r *Repo) InsertOpportunities(ctx context.Context, ts int64, opps []*model.Opportunity) error {
	if len(opps) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO opportunities(opp_id, symbol, exchange1, exchange2, pair_type,
			price1, price2, liquidity1, liquidity2, profit_percent, ts_ms, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UnixMilli()
	for _, o := range opps {
		if o == nil {
			continue
		}
		if _, err := stmt.ExecContext(ctx, o.ID, o.Symbol, o.Exchange1, o.Exchange2,
			string(o.Type), o.Price1, o.Price2, o.Liquidity1, o.Liquidity2,
			o.Profit, ts, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *Repo) InsertScanSnapshot(ctx context.Context, ts int64, payload string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO scan_snapshots(ts_ms, payload, created_at) VALUES(?, ?, ?)`, ts, payload, ts)
	return err
}

var _ port.Repository = (*Repo)(nil)
