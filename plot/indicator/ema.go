package indicator

import (
	"fmt"
	"time"

	"github.com/markcheno/go-talib"

	"github.com/itqwq/stockviz/model"
	"github.com/itqwq/stockviz/plot"
)

// EMA draws the exponential moving average of the closes, seeded with the SMA of the first
// period days.
func EMA(period int, color string) plot.Indicator {
	return &ema{
		Period: period,
		Color:  color,
	}
}

type ema struct {
	Period int
	Color  string
	Values model.Series[float64]
	Time   []time.Time
}

func (e ema) Warmup() int {
	return e.Period - 1
}

func (e ema) Name() string {
	return fmt.Sprintf("EMA(%d)", e.Period)
}

func (e ema) Overlay() bool {
	return true
}

func (e *ema) Load(dataframe *model.Dataframe) {
	e.Values, e.Time = nil, nil
	if e.Period < 1 || len(dataframe.Time) < e.Period {
		return
	}

	e.Values = talib.Ema(dataframe.Close, e.Period)[e.Warmup():]
	e.Time = dataframe.Time[e.Warmup():]
}

func (e ema) Metrics() []plot.IndicatorMetric {
	return []plot.IndicatorMetric{
		{
			Name:   e.Name(),
			Style:  "line",
			Color:  e.Color,
			Values: e.Values,
			Time:   e.Time,
		},
	}
}
