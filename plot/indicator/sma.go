package indicator

import (
	"fmt"
	"time"

	"github.com/markcheno/go-talib"

	"github.com/itqwq/stockviz/model"
	"github.com/itqwq/stockviz/plot"
)

// SMA draws the simple moving average of the closes over period days.
func SMA(period int, color string) plot.Indicator {
	return &sma{
		Period: period,
		Color:  color,
	}
}

type sma struct {
	Period int
	Color  string
	Values model.Series[float64]
	Time   []time.Time
}

func (s sma) Warmup() int {
	return s.Period - 1
}

func (s sma) Name() string {
	return fmt.Sprintf("SMA(%d)", s.Period)
}

func (s sma) Overlay() bool {
	return true
}

func (s *sma) Load(dataframe *model.Dataframe) {
	s.Values, s.Time = nil, nil
	if s.Period < 1 || len(dataframe.Time) < s.Period {
		return
	}

	s.Values = talib.Sma(dataframe.Close, s.Period)[s.Warmup():]
	s.Time = dataframe.Time[s.Warmup():]
}

func (s sma) Metrics() []plot.IndicatorMetric {
	return []plot.IndicatorMetric{
		{
			Name:   s.Name(),
			Style:  "line",
			Color:  s.Color,
			Values: s.Values,
			Time:   s.Time,
		},
	}
}
