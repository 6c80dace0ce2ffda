package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeries(t *testing.T) {
	series := Series[float64]{3, 1, 4, 1, 5}

	assert.Equal(t, 1.0, series.Min())
	assert.Equal(t, 5.0, series.Max())

	min, max := Series[float64]{}.Extent()
	assert.Zero(t, min)
	assert.Zero(t, max)
}

func TestCandleConsistent(t *testing.T) {
	assert.True(t, Candle{Open: 10, Close: 12, High: 13, Low: 9}.Consistent())
	assert.False(t, Candle{Open: 10, Close: 14, High: 13, Low: 9}.Consistent())
}

func TestDataframe(t *testing.T) {
	start := time.Date(2020, 1, 6, 0, 0, 0, 0, time.UTC)
	candles := []Candle{
		{Time: start, Close: 1},
		{Time: start.AddDate(0, 0, 1), Close: 2},
		{Time: start.AddDate(0, 0, 2), Close: 3},
	}

	df := NewDataframe("AAPL", candles)
	assert.Equal(t, Series[float64]{1, 2, 3}, df.Close)
	assert.Len(t, df.Time, 3)
	assert.Equal(t, start.AddDate(0, 0, 2), df.LastUpdate)
}

func TestParseWindow(t *testing.T) {
	window, err := ParseWindow("2020-01-06", "2020-01-10")
	require.NoError(t, err)
	assert.True(t, window.Contains(time.Date(2020, 1, 10, 23, 0, 0, 0, time.UTC)))
	assert.False(t, window.Contains(time.Date(2020, 1, 11, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2020-01-06..2020-01-10", window.String())

	_, err = ParseWindow("2020-01-10", "2020-01-06")
	assert.ErrorIs(t, err, ErrInvalidWindow)

	_, err = ParseWindow("2020/01/10", "2020-01-06")
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestKeywordJSON(t *testing.T) {
	keyword := Keyword{SentimentScore: 0.25, Count: 4, CoOccurrence: map[string]int{"risk": 2}}

	data, err := json.Marshal(keyword)
	require.NoError(t, err)
	assert.JSONEq(t, `{"sentiment_score":0.25,"count":4,"risk":2}`, string(data))

	var decoded Keyword
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, keyword, decoded)
}

func TestSentimentLinksAndWords(t *testing.T) {
	sentiment := Sentiment{Keywords: map[string]Keyword{
		"ai":   {SentimentScore: 0.5, Count: 10, CoOccurrence: map[string]int{"risk": 3, "cloud": 0}},
		"risk": {SentimentScore: -0.5, Count: 4, CoOccurrence: map[string]int{"ai": 3}},
	}}

	assert.Equal(t, []Link{{Source: "ai", Target: "risk", Weight: 3}}, sentiment.Links())

	words := sentiment.Words()
	require.Len(t, words, 2)
	assert.Equal(t, "ai", words[0].Word)
	assert.Equal(t, 5.0, words[0].TotalScore)
}

func TestStoredReport(t *testing.T) {
	request := Request{StockTicker: "AAPL", StartDate: "2020-01-01", EndDate: "2020-02-01"}
	report := Report{Performance: Performance{Alpha: 0.1, AlphaRank: 2}}

	stored, err := NewStoredReport(request, report)
	require.NoError(t, err)
	assert.Equal(t, "AAPL--2020-01-01--2020-02-01", stored.Key)

	decoded, err := stored.Report()
	require.NoError(t, err)
	assert.Equal(t, report.Performance, decoded.Performance)
}
