package port

import (
	"context"

	"arbscan/internal/domain/model"
)

type Repository interface {
	// Latest prices keyed by exchange + symbol + market type
	UpsertLatestPrice(ctx context.Context, ex, symbol string, market model.MarketType, price float64, ts int64) error

	// Opportunity persistence (one row per entry of a full recompute)
	InsertOpportunities(ctx context.Context, ts int64, opps []*model.Opportunity) error

	// Whole-scan snapshot payload (JSON)
	InsertScanSnapshot(ctx context.Context, ts int64, payload string) error

	// Connection management
	Close() error
}
