package stockviz

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/itqwq/stockviz/feed"
	"github.com/itqwq/stockviz/model"
	"github.com/itqwq/stockviz/service/mocks"
)

// sessionFeed holds eleven full weeks, Sunday 2020-01-05 to Saturday 2020-03-21.
func sessionFeed() *feed.CSVFeed {
	csvFeed := &feed.CSVFeed{Feeds: map[string]feed.TickerFeed{}, Candles: map[string][]model.Candle{}}
	start := time.Date(2020, 1, 5, 0, 0, 0, 0, time.UTC)
	for _, ticker := range []string{"AAPL", "SPY"} {
		candles := make([]model.Candle, 0)
		for i := 0; i < 77; i++ {
			price := 100 + float64(i)
			candles = append(candles, model.Candle{
				Ticker: ticker, Time: start.AddDate(0, 0, i),
				Open: price, High: price + 1, Low: price - 1, Close: price + 0.5, Volume: 1,
			})
		}
		csvFeed.Add(ticker, candles)
	}
	return csvFeed
}

func newTestSession(t *testing.T, calculator *mocks.Calculator) *Session {
	window, err := model.ParseWindow("2020-01-05", "2020-03-21")
	require.NoError(t, err)

	session, err := NewSession(context.Background(),
		model.Settings{Tickers: []string{"AAPL", "SPY"}, Benchmark: "SPY"},
		sessionFeed(), calculator, WithDisplayWindow(window))
	require.NoError(t, err)
	t.Cleanup(session.Close)
	return session
}

func TestNewSession(t *testing.T) {
	session := newTestSession(t, mocks.NewCalculator(t))
	assert.Equal(t, "AAPL", session.Ticker())

	start, end := session.Slider()
	assert.Equal(t, 0.0, start)
	assert.Equal(t, 100.0, end)

	_, err := NewSession(context.Background(), model.Settings{},
		&feed.CSVFeed{Candles: map[string][]model.Candle{}}, nil)
	assert.ErrorIs(t, err, ErrNoTicker)
}

func TestSlider(t *testing.T) {
	session := newTestSession(t, mocks.NewCalculator(t))

	t.Run("set window", func(t *testing.T) {
		require.NoError(t, session.SetWindow(20, 80))
		start, end := session.Slider()
		assert.Equal(t, 20.0, start)
		assert.Equal(t, 80.0, end)

		assert.ErrorIs(t, session.SetWindow(10, 12), ErrInvalidSlider)
		assert.ErrorIs(t, session.SetWindow(-1, 50), ErrInvalidSlider)
		assert.ErrorIs(t, session.SetWindow(50, 101), ErrInvalidSlider)
	})

	t.Run("move handles keeps the gap", func(t *testing.T) {
		require.NoError(t, session.SetWindow(0, 100))
		session.MoveStart(98)
		start, _ := session.Slider()
		assert.Equal(t, 95.0, start)

		session.MoveEnd(10)
		_, end := session.Slider()
		assert.Equal(t, 100.0, end)

		session.MoveStart(-20)
		start, _ = session.Slider()
		assert.Equal(t, 0.0, start)
	})
}

func TestSliderIndex(t *testing.T) {
	assert.Equal(t, 0, sliderIndex(0, 11))
	assert.Equal(t, 5, sliderIndex(50, 11))
	assert.Equal(t, 10, sliderIndex(100, 11))
	assert.Equal(t, 2, sliderIndex(33, 8))
	assert.Equal(t, 0, sliderIndex(100, 1))
}

func TestWindow(t *testing.T) {
	session := newTestSession(t, mocks.NewCalculator(t))

	window, err := session.Window(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2020-01-05", window.Start.Format(model.DateLayout))
	assert.Equal(t, "2020-03-21", window.End.Format(model.DateLayout))

	require.NoError(t, session.SetWindow(50, 100))
	window, err = session.Window(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2020-02-09", window.Start.Format(model.DateLayout))
}

func TestRefresh(t *testing.T) {
	calculator := mocks.NewCalculator(t)
	session := newTestSession(t, calculator)
	require.NoError(t, session.SetWindow(50, 100))

	request := model.Request{StockTicker: "AAPL", StartDate: "2020-02-09", EndDate: "2020-03-21"}
	report := model.Report{
		Performance: model.Performance{Alpha: 0.05, AlphaRank: 1, Beta: 1.1, BetaRank: 2},
		Correlation: model.Correlation{MostCorrelatedStock: "SPY", MostCorrelatedStockCorrelation: 0.9},
	}
	calculator.On("Calculate", mock.Anything, request).Return(report, nil).Once()

	result := session.Refresh(context.Background())
	require.NoError(t, result.CandlesErr)
	require.NoError(t, result.ReportErr)
	require.NoError(t, result.BenchmarkErr)
	assert.False(t, result.Failed())

	assert.Len(t, result.Weekly, 11)
	assert.Len(t, result.Selected, 6)
	assert.Len(t, result.Benchmark, 6)
	assert.Equal(t, report, result.Report)

	for _, bar := range result.Selected {
		assert.True(t, bar.Consistent())
		assert.Equal(t, time.Sunday, bar.Time.Weekday())
	}

	stored, ok := session.Report()
	require.True(t, ok)
	assert.Equal(t, 1, stored.Performance.AlphaRank)

	require.NoError(t, session.SelectTicker("SPY"))
	_, ok = session.Report()
	assert.False(t, ok)
}

func TestRefreshSingleWeek(t *testing.T) {
	calculator := mocks.NewCalculator(t)
	session := newTestSession(t, calculator)
	require.NoError(t, session.SetWindow(0, 5))

	request := model.Request{StockTicker: "AAPL", StartDate: "2020-01-05", EndDate: "2020-01-11"}
	calculator.On("Calculate", mock.Anything, request).Return(model.Report{}, nil).Once()

	result := session.Refresh(context.Background())
	require.NoError(t, result.ReportErr)
	require.Len(t, result.Selected, 1)
	assert.Equal(t, "2020-01-05", result.Selected[0].Time.Format(model.DateLayout))
	assert.Len(t, result.Benchmark, 1)

	daily, err := sessionFeed().CandlesByPeriod(context.Background(), "AAPL", result.Window.Start, result.Window.End)
	require.NoError(t, err)
	assert.Len(t, daily, 7)
}

func TestRefreshReportFailure(t *testing.T) {
	calculator := mocks.NewCalculator(t)
	session := newTestSession(t, calculator)

	upstream := errors.New("service down")
	calculator.On("Calculate", mock.Anything, mock.Anything).Return(model.Report{}, upstream).Once()

	result := session.Refresh(context.Background())
	assert.NoError(t, result.CandlesErr)
	assert.ErrorIs(t, result.ReportErr, upstream)
	assert.Len(t, result.Selected, 11)
	assert.Len(t, result.Benchmark, 11)
	assert.False(t, result.Failed())

	_, ok := session.Report()
	assert.False(t, ok)
}

func TestRefreshUnknownTicker(t *testing.T) {
	session := newTestSession(t, mocks.NewCalculator(t))
	require.NoError(t, session.SelectTicker("NOPE"))
	assert.ErrorIs(t, session.SelectTicker(""), ErrNoTicker)

	result := session.Refresh(context.Background())
	assert.ErrorIs(t, result.CandlesErr, feed.ErrUnknownTicker)
	assert.ErrorIs(t, result.ReportErr, feed.ErrUnknownTicker)
	assert.True(t, result.Failed())
	assert.Empty(t, result.Selected)
}

func TestRefreshWithoutCalculator(t *testing.T) {
	window, err := model.ParseWindow("2020-01-05", "2020-03-21")
	require.NoError(t, err)
	session, err := NewSession(context.Background(), model.Settings{}, sessionFeed(), nil,
		WithDisplayWindow(window), WithTicker("SPY"))
	require.NoError(t, err)
	defer session.Close()

	result := session.Refresh(context.Background())
	assert.NoError(t, result.CandlesErr)
	assert.Error(t, result.ReportErr)
	assert.Nil(t, result.Benchmark)
}

func TestSummary(t *testing.T) {
	calculator := mocks.NewCalculator(t)
	session := newTestSession(t, calculator)
	calculator.On("Calculate", mock.Anything, mock.Anything).
		Return(model.Report{Performance: model.Performance{TreynorRatio: 0.2, TreynorRatioRank: 1}}, nil).Once()

	result := session.Refresh(context.Background())
	buffer := bytes.NewBuffer(nil)
	require.NoError(t, result.Summary(buffer))

	output := buffer.String()
	assert.Contains(t, output, "AAPL 2020-01-05..2020-03-21")
	assert.Contains(t, output, "Treynor")
	assert.Contains(t, output, "MEAN RETURN")

	rows := result.Rows()
	require.Len(t, rows, 12)
	assert.Equal(t, "2020-01-05", rows[1][0])
}

func TestClose(t *testing.T) {
	session := newTestSession(t, mocks.NewCalculator(t))
	session.Close()
	assert.Error(t, session.ctx.Err())
}

func TestSaveXLSX(t *testing.T) {
	calculator := mocks.NewCalculator(t)
	session := newTestSession(t, calculator)
	calculator.On("Calculate", mock.Anything, mock.Anything).
		Return(model.Report{Performance: model.Performance{TreynorRatio: 0.2, TreynorRatioRank: 1}}, nil).Once()

	path := filepath.Join(t.TempDir(), "aapl.xlsx")
	require.NoError(t, session.Refresh(context.Background()).SaveXLSX(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	date, err := f.GetCellValue(weeklySheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, "2020-01-05", date)

	open, err := f.GetCellValue(weeklySheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "100", open)

	ticker, err := f.GetCellValue(performanceSheet, "B1")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", ticker)

	rank, err := f.GetCellValue(performanceSheet, "C5")
	require.NoError(t, err)
	assert.Equal(t, "1", rank)
}
