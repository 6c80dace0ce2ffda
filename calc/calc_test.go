package calc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/itqwq/stockviz/feed"
	"github.com/itqwq/stockviz/model"
	"github.com/itqwq/stockviz/service/mocks"
	"github.com/itqwq/stockviz/storage"
)

func series(ticker string, start time.Time, closes ...float64) []model.Candle {
	candles := make([]model.Candle, 0, len(closes))
	for i, price := range closes {
		candles = append(candles, model.Candle{
			Ticker: ticker,
			Time:   start.AddDate(0, 0, i),
			Open:   price,
			High:   price,
			Low:    price,
			Close:  price,
		})
	}
	return candles
}

func testFeed() *feed.CSVFeed {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	csvFeed := &feed.CSVFeed{Feeds: map[string]feed.TickerFeed{}, Candles: map[string][]model.Candle{}}
	market := []float64{100, 101, 100.5, 102, 103, 102.5, 104, 105}
	csvFeed.Add("SPY", series("SPY", start, market...))
	csvFeed.Add("AAPL", series("AAPL", start, 50, 51, 50.5, 52, 53, 52.5, 54, 56))
	csvFeed.Add("MSFT", series("MSFT", start, 200, 204, 202, 208, 212, 210, 216, 224))
	csvFeed.Add("XOM", series("XOM", start, 80, 79, 80, 78, 77, 78, 76, 75))
	return csvFeed
}

func request(ticker string) model.Request {
	return model.Request{StockTicker: ticker, StartDate: "2020-01-01", EndDate: "2020-01-31"}
}

func TestValidator(t *testing.T) {
	validator := NewValidator()

	assert.NoError(t, validator.Validate(request("AAPL")))
	assert.NoError(t, validator.Validate(request("BRK.B")))

	for _, invalid := range []model.Request{
		{StockTicker: "aapl", StartDate: "2020-01-01", EndDate: "2020-01-31"},
		{StockTicker: "TOOLONGTICKER", StartDate: "2020-01-01", EndDate: "2020-01-31"},
		{StockTicker: "AAPL", StartDate: "01/01/2020", EndDate: "2020-01-31"},
		{StockTicker: "AAPL", StartDate: "2020-02-01", EndDate: "2020-01-31"},
		{StockTicker: "", StartDate: "2020-01-01", EndDate: "2020-01-31"},
	} {
		assert.ErrorIs(t, validator.Validate(invalid), ErrInvalidRequest, "%+v", invalid)
	}
}

func TestLocalCalculate(t *testing.T) {
	tweets := []model.Tweet{
		{Time: time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC), Ticker: "AAPL", Words: []string{"iphone", "growth"}, Score: 0.8},
		{Time: time.Date(2020, 1, 3, 0, 0, 0, 0, time.UTC), Ticker: "AAPL", Words: []string{"iphone", "risk"}, Score: -0.2},
		{Time: time.Date(2020, 1, 3, 0, 0, 0, 0, time.UTC), Ticker: "XOM", Words: []string{"oil"}, Score: 0.1},
		{Time: time.Date(2021, 1, 3, 0, 0, 0, 0, time.UTC), Ticker: "AAPL", Words: []string{"late"}, Score: 1},
	}
	calculator := NewLocal(testFeed(), tweets, WithUniverse("SPY", "AAPL", "MSFT", "XOM", "MISSING"))

	report, err := calculator.Calculate(context.Background(), request("AAPL"))
	require.NoError(t, err)

	performance := report.Performance
	assert.Equal(t, 0.0, performance.MarketAlpha)
	assert.Equal(t, 1.0, performance.MarketBeta)
	for _, rank := range []int{performance.AlphaRank, performance.BetaRank, performance.SharpeRatioRank, performance.TreynorRatioRank} {
		assert.GreaterOrEqual(t, rank, 1)
		assert.LessOrEqual(t, rank, 4)
	}
	assert.NotZero(t, performance.MarketSharpeRatio)
	assert.Greater(t, performance.Beta, 0.0)

	assert.Equal(t, "MSFT", report.Correlation.MostCorrelatedStock)
	assert.InDelta(t, 1, report.Correlation.MostCorrelatedStockCorrelation, 1e-9)
	assert.Equal(t, "XOM", report.Correlation.LeastCorrelatedStock)
	assert.Less(t, report.Correlation.LeastCorrelatedStockCorrelation, 0.0)

	keywords := report.Sentiment.Keywords
	require.Contains(t, keywords, "iPhone")
	assert.Equal(t, 2, keywords["iPhone"].Count)
	assert.InDelta(t, 0.3, keywords["iPhone"].SentimentScore, 1e-9)
	assert.NotContains(t, keywords, "oil")
	assert.NotContains(t, keywords, "late")
}

func TestLocalCalculateErrors(t *testing.T) {
	calculator := NewLocal(testFeed(), nil)

	_, err := calculator.Calculate(context.Background(), request("NOPE"))
	assert.ErrorIs(t, err, ErrUnknownTicker)

	_, err = calculator.Calculate(context.Background(), model.Request{StockTicker: "AAPL", StartDate: "2019-01-01", EndDate: "2019-01-31"})
	assert.ErrorIs(t, err, ErrNoData)

	_, err = calculator.Calculate(context.Background(), request("aapl"))
	assert.ErrorIs(t, err, ErrInvalidRequest)

	calculator = NewLocal(testFeed(), nil, WithBenchmark("QQQ"))
	_, err = calculator.Calculate(context.Background(), request("AAPL"))
	assert.ErrorIs(t, err, ErrUnknownTicker)
}

func TestClientCalculate(t *testing.T) {
	expected := model.Report{
		Performance: model.Performance{Alpha: 0.12, AlphaRank: 4, MarketBeta: 1},
		Correlation: model.Correlation{MostCorrelatedStock: "MSFT"},
	}

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, CalculatePath, r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req model.Request
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		switch req.StockTicker {
		case "NOPE":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"Stock data for NOPE not found"}`))
		default:
			_ = json.NewEncoder(w).Encode(expected)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", WithBackoff(time.Millisecond, 5*time.Millisecond))

	report, err := client.Calculate(context.Background(), request("AAPL"))
	require.NoError(t, err)
	assert.Equal(t, expected.Performance, report.Performance)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	_, err = client.Calculate(context.Background(), request("NOPE"))
	assert.ErrorIs(t, err, ErrUnknownTicker)
	assert.Contains(t, err.Error(), "Stock data for NOPE not found")
}

func TestClientGivesUp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, WithRetries(2), WithBackoff(time.Millisecond, 2*time.Millisecond))
	_, err := client.Calculate(context.Background(), request("AAPL"))
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Contains(t, err.Error(), "boom")
}

func TestCached(t *testing.T) {
	store, err := storage.FromMemory()
	require.NoError(t, err)

	expected := model.Report{Performance: model.Performance{Alpha: 0.5}}
	calculator := mocks.NewCalculator(t)
	calculator.On("Calculate", mock.Anything, request("AAPL")).Return(expected, nil).Once()
	calculator.On("Calculate", mock.Anything, request("NOPE")).Return(model.Report{}, ErrUnknownTicker).Once()

	cached := NewCached(calculator, store)

	for i := 0; i < 3; i++ {
		report, err := cached.Calculate(context.Background(), request("AAPL"))
		require.NoError(t, err)
		assert.Equal(t, expected.Performance, report.Performance)
	}

	_, err = cached.Calculate(context.Background(), request("NOPE"))
	assert.True(t, errors.Is(err, ErrUnknownTicker))

	reports, err := store.Reports(storage.WithTicker("AAPL"))
	require.NoError(t, err)
	assert.Len(t, reports, 1)
}

func TestCachedExpires(t *testing.T) {
	store, err := storage.FromMemory()
	require.NoError(t, err)

	stale, err := model.NewStoredReport(request("AAPL"), model.Report{Performance: model.Performance{Alpha: 1}})
	require.NoError(t, err)
	stale.CreatedAt = time.Now().Add(-48 * time.Hour)
	require.NoError(t, store.SaveReport(stale))

	fresh := model.Report{Performance: model.Performance{Alpha: 2}}
	calculator := mocks.NewCalculator(t)
	calculator.On("Calculate", mock.Anything, request("AAPL")).Return(fresh, nil).Once()

	report, err := NewCached(calculator, store, WithMaxAge(time.Hour)).Calculate(context.Background(), request("AAPL"))
	require.NoError(t, err)
	assert.Equal(t, 2.0, report.Performance.Alpha)
}
