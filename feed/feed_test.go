package feed

import (
	"context"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itqwq/stockviz/model"
)

const dailyCSV = `Date,Open,High,Low,Close,Volume,Dividends,Stock Splits
2020-01-08 00:00:00-05:00,9,10,8,9,300,0,0
2020-01-06 00:00:00-05:00,10,11,9,10,100,0,0
2020-01-07 00:00:00-05:00,11,12,10,11,200,0.5,0
2020-01-09 00:00:00-05:00,12,13,11,12,400,0,0
2020-01-10 00:00:00-05:00,13,14,12,13,500,0,0
`

func day(value string) time.Time {
	t, err := time.Parse(model.DateLayout, value)
	if err != nil {
		panic(err)
	}
	return t
}

func TestReadCandles(t *testing.T) {
	candles, err := ReadCandles(strings.NewReader(dailyCSV), "AAPL")
	require.NoError(t, err)
	require.Len(t, candles, 5)

	assert.Equal(t, day("2020-01-06"), candles[0].Time)
	assert.Equal(t, day("2020-01-10"), candles[4].Time)
	assert.Equal(t, "AAPL", candles[1].Ticker)
	assert.Equal(t, 11.0, candles[1].Open)
	assert.Equal(t, 0.5, candles[1].Dividends)
	assert.Equal(t, 200.0, candles[1].Volume)
}

func TestReadCandlesInvalid(t *testing.T) {
	t.Run("missing column", func(t *testing.T) {
		_, err := ReadCandles(strings.NewReader("Date,Open,Close\n2020-01-01,1,2\n"), "X")
		assert.ErrorIs(t, err, ErrInvalidHeader)
	})

	t.Run("bad number", func(t *testing.T) {
		_, err := ReadCandles(strings.NewReader("Date,Open,High,Low,Close\n2020-01-01,a,2,1,1\n"), "X")
		assert.Error(t, err)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ReadCandles(strings.NewReader(""), "X")
		assert.ErrorIs(t, err, ErrInvalidHeader)
	})
}

func TestWeeklyMondayToFriday(t *testing.T) {
	values := []float64{10, 11, 9, 12, 13}
	highs := []float64{11, 12, 10, 13, 14}
	lows := []float64{9, 10, 8, 11, 12}

	candles := make([]model.Candle, 0)
	for i := range values {
		candles = append(candles, model.Candle{
			Time:   day("2020-01-06").AddDate(0, 0, i),
			Open:   values[i],
			Close:  values[i],
			High:   highs[i],
			Low:    lows[i],
			Volume: 100,
		})
	}

	weeks := Weekly(candles)
	require.Len(t, weeks, 1)
	assert.Equal(t, 10.0, weeks[0].Open)
	assert.Equal(t, 13.0, weeks[0].Close)
	assert.Equal(t, 14.0, weeks[0].High)
	assert.Equal(t, 8.0, weeks[0].Low)
	assert.Equal(t, 500.0, weeks[0].Volume)
	assert.Equal(t, day("2020-01-05"), weeks[0].Time)
}

func TestWeeklyBoundaries(t *testing.T) {
	candles := []model.Candle{
		{Time: day("2020-01-11"), Open: 1, Close: 2, High: 3, Low: 1},
		{Time: day("2020-01-12"), Open: 2, Close: 3, High: 4, Low: 2},
		{Time: day("2020-01-13"), Open: 3, Close: 4, High: 5, Low: 3},
	}

	weeks := Weekly(candles)
	require.Len(t, weeks, 2)
	assert.Equal(t, day("2020-01-05"), weeks[0].Time)
	assert.Equal(t, day("2020-01-12"), weeks[1].Time)
	assert.Equal(t, 2.0, weeks[1].Open)
	assert.Equal(t, 4.0, weeks[1].Close)
}

func TestWeeklyKeepsBounds(t *testing.T) {
	random := rand.New(rand.NewSource(42))
	candles := make([]model.Candle, 0)
	price := 100.0
	start := day("2019-01-01")
	for i := 0; i < 400; i++ {
		open := price
		price = price * (1 + (random.Float64()-0.5)/10)
		high := open
		if price > high {
			high = price
		}
		low := open
		if price < low {
			low = price
		}
		candles = append(candles, model.Candle{
			Time:  start.AddDate(0, 0, i),
			Open:  open,
			Close: price,
			High:  high * (1 + random.Float64()/100),
			Low:   low * (1 - random.Float64()/100),
		})
	}

	weeks := Weekly(candles)
	require.NotEmpty(t, weeks)
	for _, week := range weeks {
		assert.True(t, week.Consistent(), "inconsistent bar at %s", week.Time)
		assert.Equal(t, time.Sunday, week.Time.Weekday())
	}
}

func TestWeeklyEmpty(t *testing.T) {
	assert.Empty(t, Weekly(nil))
}

func TestCSVFeedCandlesByPeriod(t *testing.T) {
	feed := &CSVFeed{Feeds: map[string]TickerFeed{}, Candles: map[string][]model.Candle{}}
	candles, err := ReadCandles(strings.NewReader(dailyCSV), "AAPL")
	require.NoError(t, err)
	feed.Add("AAPL", candles)

	result, err := feed.CandlesByPeriod(context.Background(), "AAPL", day("2020-01-07"), day("2020-01-09"))
	require.NoError(t, err)
	assert.Len(t, result, 3)

	_, err = feed.CandlesByPeriod(context.Background(), "NOPE", day("2020-01-07"), day("2020-01-09"))
	assert.ErrorIs(t, err, ErrUnknownTicker)

	_, err = feed.CandlesByLimit(context.Background(), "AAPL", 10)
	assert.ErrorIs(t, err, ErrInsufficientData)

	last, err := feed.CandlesByLimit(context.Background(), "AAPL", 2)
	require.NoError(t, err)
	assert.Equal(t, day("2020-01-10"), last[1].Time)

	assert.Equal(t, []string{"AAPL"}, feed.Tickers())
}

func TestParseDate(t *testing.T) {
	for _, value := range []string{"2020-01-06", "2020-01-06 00:00:00-05:00", "2020-01-06T10:00:00Z"} {
		date, err := ParseDate(value)
		require.NoError(t, err, value)
		assert.Equal(t, day("2020-01-06"), date)
	}
}
