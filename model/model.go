package model

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// DateLayout is the date format of requests, CSV files and windows.
const DateLayout = "2006-01-02"

// ErrInvalidWindow is returned for malformed or reversed date ranges.
var ErrInvalidWindow = errors.New("invalid window")

// Settings is the ticker universe and the market benchmark.
type Settings struct {
	// Tickers is the universe used for ranks and correlations.
	Tickers []string
	// Benchmark is the market proxy, SPY unless configured.
	Benchmark string
	// RiskFreeRate is the annual risk free rate.
	RiskFreeRate float64
}

// Candle is a daily (or aggregated weekly) OHLCV bar.
type Candle struct {
	Ticker    string    `json:"-"`
	Time      time.Time `json:"time"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	Dividends float64   `json:"dividends,omitempty"`
	Splits    float64   `json:"splits,omitempty"`
}

// Empty reports whether the candle carries no prices.
func (c Candle) Empty() bool {
	return c.Ticker == "" && c.Close == 0 && c.Open == 0 && c.Volume == 0
}

// Consistent reports whether high and low bound both open and close.
func (c Candle) Consistent() bool {
	return c.Low <= c.Open && c.Low <= c.Close && c.High >= c.Open && c.High >= c.Close
}

// ToSlice renders the candle as a CSV row: date, open, high, low, close, volume.
func (c Candle) ToSlice(precision int) []string {
	return []string{
		c.Time.Format(DateLayout),
		strconv.FormatFloat(c.Open, 'f', precision, 64),
		strconv.FormatFloat(c.High, 'f', precision, 64),
		strconv.FormatFloat(c.Low, 'f', precision, 64),
		strconv.FormatFloat(c.Close, 'f', precision, 64),
		strconv.FormatFloat(c.Volume, 'f', 0, 64),
	}
}

// Dataframe holds the candles of one ticker as columns, ready for indicators.
type Dataframe struct {
	Ticker string

	Close  Series[float64]
	Open   Series[float64]
	High   Series[float64]
	Low    Series[float64]
	Volume Series[float64]

	Time       []time.Time
	LastUpdate time.Time
}

// NewDataframe builds the columns of candles.
func NewDataframe(ticker string, candles []Candle) *Dataframe {
	df := &Dataframe{Ticker: ticker}
	for _, candle := range candles {
		df.Append(candle)
	}
	return df
}

// Append adds a candle at the end of every column.
func (df *Dataframe) Append(candle Candle) {
	df.Close = append(df.Close, candle.Close)
	df.Open = append(df.Open, candle.Open)
	df.High = append(df.High, candle.High)
	df.Low = append(df.Low, candle.Low)
	df.Volume = append(df.Volume, candle.Volume)
	df.Time = append(df.Time, candle.Time)
	df.LastUpdate = candle.Time
}

// Window is an inclusive date range.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t is inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

func (w Window) String() string {
	return fmt.Sprintf("%s..%s", w.Start.Format(DateLayout), w.End.Format(DateLayout))
}

// ParseWindow parses two YYYY-MM-DD dates into a window ending at the last instant of end.
func ParseWindow(start, end string) (Window, error) {
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return Window{}, fmt.Errorf("%w: start date %q: %s", ErrInvalidWindow, start, err)
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return Window{}, fmt.Errorf("%w: end date %q: %s", ErrInvalidWindow, end, err)
	}
	if e.Before(s) {
		return Window{}, fmt.Errorf("%w: end date %s before start date %s", ErrInvalidWindow, end, start)
	}
	return Window{Start: s, End: e.Add(24*time.Hour - time.Nanosecond)}, nil
}
