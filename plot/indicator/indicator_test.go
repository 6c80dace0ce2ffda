package indicator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itqwq/stockviz/model"
)

func dataframe(closes ...float64) *model.Dataframe {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]model.Candle, 0, len(closes))
	for i, price := range closes {
		candles = append(candles, model.Candle{Time: start.AddDate(0, 0, i), Close: price})
	}
	return model.NewDataframe("AAPL", candles)
}

func TestSMA(t *testing.T) {
	indicator := SMA(3, "red")
	indicator.Load(dataframe(1, 2, 3, 4, 5))

	assert.Equal(t, "SMA(3)", indicator.Name())
	assert.True(t, indicator.Overlay())
	metrics := indicator.Metrics()
	require.Len(t, metrics, 1)
	assert.Equal(t, "red", metrics[0].Color)
	require.Len(t, metrics[0].Values, 3)
	assert.InDeltaSlice(t, []float64{2, 3, 4}, []float64(metrics[0].Values), 1e-9)
	assert.Equal(t, 3, metrics[0].Time[0].Day())
}

func TestEMA(t *testing.T) {
	indicator := EMA(2, "blue")
	indicator.Load(dataframe(2, 4, 6))

	metrics := indicator.Metrics()
	require.Len(t, metrics[0].Values, 2)
	assert.InDelta(t, 3, metrics[0].Values[0], 1e-9)
	assert.InDelta(t, 5, metrics[0].Values[1], 1e-9)
}

func TestIndicatorWarmup(t *testing.T) {
	indicator := SMA(10, "red")
	indicator.Load(dataframe(1, 2, 3))
	assert.Empty(t, indicator.Metrics()[0].Values)
}
