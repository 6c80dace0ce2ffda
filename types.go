package stockviz

import (
	"github.com/itqwq/stockviz/model"
)

type (
	Settings    = model.Settings
	Candle      = model.Candle
	Dataframe   = model.Dataframe
	Series      = model.Series[float64]
	Window      = model.Window
	Word        = model.Word
	Link        = model.Link
	Request     = model.Request
	Report      = model.Report
	Performance = model.Performance
	Correlation = model.Correlation
	Sentiment   = model.Sentiment
)

const (
	DateLayout = model.DateLayout
	NoTicker   = model.NoTicker
)
