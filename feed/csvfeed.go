package feed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/itqwq/stockviz/model"
	"github.com/itqwq/stockviz/tools/log"
)

var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrUnknownTicker    = errors.New("unknown ticker")
	ErrInvalidHeader    = errors.New("invalid header")
)

// TickerFeed points a ticker to its daily price file.
type TickerFeed struct {
	Ticker string
	File   string
}

// CSVFeed keeps the daily candles of every loaded ticker in memory, sorted by date.
type CSVFeed struct {
	Feeds   map[string]TickerFeed
	Candles map[string][]model.Candle
}

// NewCSVFeed reads the daily candles of every feed.
func NewCSVFeed(feeds ...TickerFeed) (*CSVFeed, error) {
	csvFeed := &CSVFeed{
		Feeds:   make(map[string]TickerFeed),
		Candles: make(map[string][]model.Candle),
	}

	for _, feed := range feeds {
		csvFile, err := os.Open(feed.File)
		if err != nil {
			return nil, err
		}

		candles, err := ReadCandles(csvFile, feed.Ticker)
		csvFile.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", feed.File, err)
		}

		csvFeed.Feeds[feed.Ticker] = feed
		csvFeed.Candles[feed.Ticker] = candles
	}

	return csvFeed, nil
}

// FromDir loads <dir>/<TICKER>.csv for each ticker. Without tickers every CSV file in dir is
// loaded. Tickers without a file are skipped with a warning so that one missing dataset does
// not prevent the others from loading.
func FromDir(dir string, tickers ...string) (*CSVFeed, error) {
	if len(tickers) == 0 {
		files, err := filepath.Glob(filepath.Join(dir, "*.csv"))
		if err != nil {
			return nil, err
		}
		for _, file := range files {
			tickers = append(tickers, strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)))
		}
	}

	feeds := make([]TickerFeed, 0, len(tickers))
	for _, ticker := range tickers {
		file := filepath.Join(dir, ticker+".csv")
		if _, err := os.Stat(file); err != nil {
			log.WithField("ticker", ticker).Warnf("price data not found: %s", file)
			continue
		}
		feeds = append(feeds, TickerFeed{Ticker: ticker, File: file})
	}

	return NewCSVFeed(feeds...)
}

func parseHeaders(headers []string) (map[string]int, error) {
	index := make(map[string]int)
	for i, h := range headers {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}

	for _, required := range []string{"date", "open", "high", "low", "close"} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrInvalidHeader, required)
		}
	}
	return index, nil
}

// ParseDate reads the date part of values like "2017-01-03" or "2017-01-03 00:00:00-05:00".
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if i := strings.IndexAny(value, " T"); i > 0 {
		value = value[:i]
	}
	return time.Parse(model.DateLayout, value)
}

// ReadCandles parses a daily OHLCV CSV with a Date,Open,High,Low,Close[,Volume,Dividends,Stock Splits]
// header. Rows are returned sorted by date.
func ReadCandles(r io.Reader, ticker string) ([]model.Candle, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	lines, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidHeader)
	}

	headerMap, err := parseHeaders(lines[0])
	if err != nil {
		return nil, err
	}

	field := func(line []string, name string) (float64, error) {
		i, ok := headerMap[name]
		if !ok || i >= len(line) || strings.TrimSpace(line[i]) == "" {
			return 0, nil
		}
		return strconv.ParseFloat(strings.TrimSpace(line[i]), 64)
	}

	candles := make([]model.Candle, 0, len(lines)-1)
	for n, line := range lines[1:] {
		if len(line) <= headerMap["date"] {
			continue
		}

		date, err := ParseDate(line[headerMap["date"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n+2, err)
		}

		candle := model.Candle{Ticker: ticker, Time: date.UTC()}
		for name, target := range map[string]*float64{
			"open":         &candle.Open,
			"high":         &candle.High,
			"low":          &candle.Low,
			"close":        &candle.Close,
			"volume":       &candle.Volume,
			"dividends":    &candle.Dividends,
			"stock splits": &candle.Splits,
		} {
			*target, err = field(line, name)
			if err != nil {
				return nil, fmt.Errorf("line %d, column %s: %w", n+2, name, err)
			}
		}

		candles = append(candles, candle)
	}

	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].Time.Before(candles[j].Time)
	})

	return candles, nil
}

// Add registers candles for a ticker, replacing any previous data.
func (c *CSVFeed) Add(ticker string, candles []model.Candle) {
	sorted := append([]model.Candle(nil), candles...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})
	c.Candles[ticker] = sorted
}

// Tickers returns the loaded tickers in alphabetical order.
func (c CSVFeed) Tickers() []string {
	tickers := lo.Keys(c.Candles)
	sort.Strings(tickers)
	return tickers
}

// Limit keeps only the last duration of data of every ticker.
func (c *CSVFeed) Limit(duration time.Duration) *CSVFeed {
	for ticker, candles := range c.Candles {
		if len(candles) == 0 {
			continue
		}
		start := candles[len(candles)-1].Time.Add(-duration)
		c.Candles[ticker] = lo.Filter(candles, func(candle model.Candle, _ int) bool {
			return candle.Time.After(start)
		})
	}
	return c
}

// CandlesByPeriod returns the candles of ticker between start and end, both inclusive.
func (c CSVFeed) CandlesByPeriod(_ context.Context, ticker string, start, end time.Time) ([]model.Candle, error) {
	candles, ok := c.Candles[ticker]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTicker, ticker)
	}

	result := make([]model.Candle, 0)
	for _, candle := range candles {
		if candle.Time.Before(start) || candle.Time.After(end) {
			continue
		}
		result = append(result, candle)
	}
	return result, nil
}

// CandlesByLimit returns the newest limit candles of ticker.
func (c CSVFeed) CandlesByLimit(_ context.Context, ticker string, limit int) ([]model.Candle, error) {
	candles, ok := c.Candles[ticker]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTicker, ticker)
	}
	if len(candles) < limit {
		return nil, fmt.Errorf("%w: %s", ErrInsufficientData, ticker)
	}
	return candles[len(candles)-limit:], nil
}
