package port

import (
	"context"

	"arbscan/internal/domain/model"
)

// TickerSource 交易所行情适配器
// 每个交易所实现一次，返回该所原始格式的 ticker 列表
type TickerSource interface {
	Name() string

	// FetchSpot returns the exchange's full spot ticker list in its native shape.
	FetchSpot(ctx context.Context) ([]model.RawTicker, error)

	// FetchFutures returns the exchange's full futures/contract ticker list.
	FetchFutures(ctx context.Context) ([]model.RawTicker, error)

	// FetchTicker returns the 24h detail for a single raw symbol.
	FetchTicker(ctx context.Context, symbol string) (model.RawTicker, error)
}

// LiveFeed 推送行情源：按批次产出标准化报价，供增量更新器消费
type LiveFeed interface {
	Name() string
	Subscribe(ctx context.Context) (<-chan []model.Instrument, error)
}
