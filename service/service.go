package service

import (
	"context"
	"time"

	"github.com/itqwq/stockviz/bubble"
	"github.com/itqwq/stockviz/model"
)

//go:generate mockery --name=Feeder --output=mocks
//go:generate mockery --name=Calculator --output=mocks

// Feeder provides daily candles per ticker.
type Feeder interface {
	Tickers() []string
	CandlesByPeriod(ctx context.Context, ticker string, start, end time.Time) ([]model.Candle, error)
	CandlesByLimit(ctx context.Context, ticker string, limit int) ([]model.Candle, error)
}

// Calculator answers performance, correlation and sentiment reports.
type Calculator interface {
	Calculate(ctx context.Context, request model.Request) (model.Report, error)
}

// Renderer draws bubble layout frames.
type Renderer interface {
	Draw(frame bubble.Frame) error
}
