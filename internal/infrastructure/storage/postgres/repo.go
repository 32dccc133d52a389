package postgres

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"

	"arbscan/internal/application/port"
	"arbscan/internal/domain/model"
)

type Repo struct {
	db *sql.DB
}

func New(dsn string) (*Repo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS scan_snapshots (
  id BIGSERIAL PRIMARY KEY,
  ts_ms BIGINT NOT NULL,
  payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scan_snapshots_ts ON scan_snapshots(ts_ms);

CREATE TABLE IF NOT EXISTS opportunities (
  id BIGSERIAL PRIMARY KEY,
  opp_id TEXT NOT NULL,
  symbol TEXT NOT NULL,
  exchange1 TEXT NOT NULL,
  exchange2 TEXT NOT NULL,
  pair_type TEXT NOT NULL,
  price1 DOUBLE PRECISION NOT NULL,
  price2 DOUBLE PRECISION NOT NULL,
  profit_percent DOUBLE PRECISION NOT NULL,
  ts_ms BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_opps_symbol ON opportunities(symbol);
CREATE INDEX IF NOT EXISTS idx_opps_ts ON opportunities(ts_ms);
`)
	return err
}

func (r *Repo) UpsertLatestPrice(ctx context.Context, ex, symbol string, market model.MarketType, price float64, ts int64) error {
	// 历史库只存扫描结果，最新价走 redis
	return nil
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

	for _, o := range opps {
		if o == nil {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO opportunities(opp_id, symbol, exchange1, exchange2, pair_type, price1, price2, profit_percent, ts_ms)
			VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, o.ID, o.Symbol, o.Exchange1, o.Exchange2, string(o.Type), o.Price1, o.Price2, o.Profit, ts); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *Repo) InsertScanSnapshot(ctx context.Context, ts int64, payload string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO scan_snapshots(ts_ms, payload) VALUES($1, $2)`, ts, payload)
	return err
}

var _ port.Repository = (*Repo)(nil)
